package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

var sqliteSchema = []string{
	`PRAGMA journal_mode=WAL`,
	`CREATE TABLE IF NOT EXISTS runs (
		run_id        TEXT PRIMARY KEY,
		channels      TEXT NOT NULL DEFAULT '[]',
		status        TEXT NOT NULL,
		conversations INTEGER NOT NULL DEFAULT 0,
		clusters      INTEGER NOT NULL DEFAULT 0,
		tickets       INTEGER NOT NULL DEFAULT 0,
		error         TEXT NOT NULL DEFAULT '',
		created_at    DATETIME NOT NULL,
		completed_at  DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS insights (
		ticket_id    TEXT PRIMARY KEY,
		identifier   TEXT NOT NULL DEFAULT '',
		url          TEXT NOT NULL DEFAULT '',
		run_id       TEXT NOT NULL DEFAULT '',
		summary      TEXT NOT NULL,
		channel_name TEXT NOT NULL DEFAULT '',
		quotes       TEXT NOT NULL DEFAULT '[]',
		doc_url      TEXT NOT NULL DEFAULT '',
		suggestion   TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL,
		created_at   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_insights_run_id ON insights (run_id)`,
}

// SQLiteStore is the local default Store, kept in a single file.
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{sqlStore{db: db}}
	if err := s.migrate(context.Background(), sqliteSchema); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
