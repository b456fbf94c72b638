package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/binbin1213/GAGA-Client/internal/platform"
)

// DatabaseFile is the history database name inside the data dir
const DatabaseFile = "history.db"

// OpenDB opens (and creates) the SQLite database in dataDir
func OpenDB(dataDir string) (*sql.DB, error) {
	if err := os.MkdirAll(dataDir, platform.DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dataDir, DatabaseFile))
	if err != nil {
		return nil, err
	}
	// one writer at a time, the desktop client never needs more
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(`
		PRAGMA busy_timeout = 5000;
		PRAGMA journal_mode = WAL;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}
	return db, nil
}
