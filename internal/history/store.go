// Package history records finished download tasks.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record statuses
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrNotFound is returned when a record id does not exist
var ErrNotFound = errors.New("history record not found")

// Record is one finished task
type Record struct {
	ID           string
	CreatedAt    time.Time
	Title        string
	ManifestURL  string
	Status       string
	Progress     int
	CompletedAt  time.Time
	Files        []string
	ErrorMessage string
}

// Store keeps records in SQLite
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore wraps db and creates the table when missing
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db, now: time.Now}
	if err := s.initTable(); err != nil {
		return nil, fmt.Errorf("init history table: %w", err)
	}
	return s, nil
}

func (s *Store) initTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		title TEXT NOT NULL,
		manifest_url TEXT NOT NULL,
		status TEXT NOT NULL,
		progress INTEGER NOT NULL DEFAULT 0,
		completed_at INTEGER,
		files TEXT,
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_history_created_at ON history(created_at);
	`
	_, err := s.db.Exec(query)
	return err
}

// Append stores r, filling ID and CreatedAt when empty
func (s *Store) Append(ctx context.Context, r Record) (Record, error) {
	if r.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return Record{}, fmt.Errorf("generate record id: %w", err)
		}
		r.ID = id.String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}

	files, err := json.Marshal(r.Files)
	if err != nil {
		return Record{}, fmt.Errorf("encode files: %w", err)
	}

	var completedAt sql.NullInt64
	if !r.CompletedAt.IsZero() {
		completedAt = sql.NullInt64{Int64: r.CompletedAt.UnixMilli(), Valid: true}
	}

	query := `INSERT INTO history (id, created_at, title, manifest_url, status, progress, completed_at, files, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		r.ID, r.CreatedAt.UnixMilli(), r.Title, r.ManifestURL, r.Status, r.Progress,
		completedAt, string(files), r.ErrorMessage)
	if err != nil {
		return Record{}, fmt.Errorf("insert history record: %w", err)
	}
	return r, nil
}

// List returns all records, newest first
func (s *Store) List(ctx context.Context) ([]Record, error) {
	query := `SELECT id, created_at, title, manifest_url, status, progress, completed_at, files, error_message
		FROM history ORDER BY created_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r           Record
			createdAt   int64
			completedAt sql.NullInt64
			files       sql.NullString
			errMsg      sql.NullString
		)
		if err := rows.Scan(&r.ID, &createdAt, &r.Title, &r.ManifestURL, &r.Status, &r.Progress, &completedAt, &files, &errMsg); err != nil {
			return nil, err
		}
		r.CreatedAt = time.UnixMilli(createdAt)
		if completedAt.Valid {
			r.CompletedAt = time.UnixMilli(completedAt.Int64)
		}
		if files.Valid && files.String != "" {
			if err := json.Unmarshal([]byte(files.String), &r.Files); err != nil {
				return nil, fmt.Errorf("decode files of %s: %w", r.ID, err)
			}
		}
		r.ErrorMessage = errMsg.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// Delete removes one record
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear removes every record
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM history`)
	return err
}
