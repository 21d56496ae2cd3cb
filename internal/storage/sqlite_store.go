package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS watcher_state (
	slot       TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// sqliteStore keeps the slot as one row of the watcher_state table.
type sqliteStore struct {
	db   *sql.DB
	slot string
}

func openSQLite(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &sqliteStore{db: db, slot: opts.Slot}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) LastSeen() (string, bool, error) {
	var url string
	err := s.db.QueryRowContext(context.Background(),
		"SELECT value FROM watcher_state WHERE slot = ?", s.slot).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, ioError(TypeSQLite, "read", err)
	}
	if url == "" {
		return "", false, nil
	}
	return url, true, nil
}

func (s *sqliteStore) SaveLastSeen(url string) error {
	url, err := cleanURL(url)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(context.Background(), `
INSERT INTO watcher_state (slot, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(slot) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.slot, url, time.Now().UTC().Format(time.RFC3339))
	return ioError(TypeSQLite, "write", err)
}
