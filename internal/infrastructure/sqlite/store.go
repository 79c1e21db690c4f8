// Package sqlite implements the metadata repository on an embedded SQLite
// database. This is the primary durable store; the flat-file package is the
// emergency fallback.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// Store persists video metadata in a single SQLite database file.
// All methods are safe for concurrent use; SQLite serializes writers and
// WAL mode keeps readers off the writer's back.
type Store struct {
	db *sql.DB
}

// Open creates a Store backed by the database at path, creating the schema
// if it does not exist. Pass ":memory:" for an in-memory database (tests).
func Open(path string) (*Store, error) {
	connStr := path
	if path == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS videos (
		filename TEXT PRIMARY KEY,
		file_size INTEGER NOT NULL DEFAULT 0,
		duration_seconds REAL NOT NULL DEFAULT 0,
		added_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ratings (
		filename TEXT PRIMARY KEY,
		rating INTEGER NOT NULL CHECK (rating >= 1 AND rating <= 5),
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS views (
		filename TEXT PRIMARY KEY,
		view_count INTEGER NOT NULL DEFAULT 0,
		last_viewed DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS video_tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL,
		tag TEXT NOT NULL COLLATE NOCASE,
		UNIQUE(filename, tag)
	);

	CREATE TABLE IF NOT EXISTS favorites (
		filename TEXT PRIMARY KEY
	);

	CREATE INDEX IF NOT EXISTS idx_videos_added_at ON videos(added_at);
	CREATE INDEX IF NOT EXISTS idx_ratings_rating ON ratings(rating);
	CREATE INDEX IF NOT EXISTS idx_tags_tag ON video_tags(tag);
	CREATE INDEX IF NOT EXISTS idx_tags_filename ON video_tags(filename);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
