package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := NewStore(db)
	require.NoError(t, err)
	return s
}

func TestStore_AppendAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	done, err := s.Append(ctx, Record{
		CreatedAt:   base,
		Title:       "Show S01E01",
		ManifestURL: "https://x/mpd",
		Status:      StatusCompleted,
		Progress:    100,
		CompletedAt: base.Add(time.Minute),
		Files:       []string{"/out/Show S01E01.mp4"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, done.ID)

	_, err = s.Append(ctx, Record{
		CreatedAt:    base.Add(time.Hour),
		Title:        "Show S01E02",
		ManifestURL:  "https://x/mpd2",
		Status:       StatusFailed,
		Progress:     40,
		ErrorMessage: "disk full",
	})
	require.NoError(t, err)

	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, "Show S01E02", records[0].Title, "newest first")
	require.Equal(t, StatusFailed, records[0].Status)
	require.Equal(t, "disk full", records[0].ErrorMessage)
	require.True(t, records[0].CompletedAt.IsZero())
	require.Empty(t, records[0].Files)

	require.Equal(t, done.ID, records[1].ID)
	require.Equal(t, []string{"/out/Show S01E01.mp4"}, records[1].Files)
	require.Equal(t, 100, records[1].Progress)
	require.True(t, records[1].CompletedAt.Equal(base.Add(time.Minute)))
	require.True(t, records[1].CreatedAt.Equal(base))
}

func TestStore_DeleteAndClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.Append(ctx, Record{Title: "a", ManifestURL: "u", Status: StatusCompleted})
	require.NoError(t, err)
	_, err = s.Append(ctx, Record{Title: "b", ManifestURL: "u", Status: StatusCompleted})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, a.ID))
	require.ErrorIs(t, s.Delete(ctx, a.ID), ErrNotFound)

	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "b", records[0].Title)

	require.NoError(t, s.Clear(ctx))
	records, err = s.List(ctx)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestStore_ReopenKeepsRecords(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := OpenDB(dir)
	require.NoError(t, err)
	s, err := NewStore(db)
	require.NoError(t, err)
	_, err = s.Append(ctx, Record{Title: "kept", ManifestURL: "u", Status: StatusCompleted})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = OpenDB(dir)
	require.NoError(t, err)
	defer db.Close()
	s, err = NewStore(db)
	require.NoError(t, err)

	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "kept", records[0].Title)
}
