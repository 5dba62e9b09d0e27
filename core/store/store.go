// Package store persists extraction results in SQLite: one row per post
// with its blocks as tagged JSON, a content-hash index of downloaded media,
// and an FTS5 index over post titles and text.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalhel/postkeep/core"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a post or media record does not exist.
var ErrNotFound = errors.New("not found")

// Post statuses.
const (
	StatusOK     = "ok"
	StatusEmpty  = "empty"
	StatusFailed = "failed"
)

// Post is one archived post.
type Post struct {
	ID         int64             `json:"id"`
	URL        string            `json:"url"`
	Title      string            `json:"title"`
	Metadata   core.PostMetadata `json:"metadata"`
	Blocks     []core.Block      `json:"-"`
	Status     string            `json:"status"`
	Error      string            `json:"error,omitempty"`
	ArchivedAt time.Time         `json:"archived_at"`
}

// Result returns the post as an ExtractionResult.
func (p *Post) Result() core.ExtractionResult {
	return core.ExtractionResult{Blocks: p.Blocks, Metadata: p.Metadata}
}

// SearchHit is one full-text search match.
type SearchHit struct {
	ID      int64  `json:"id"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Media is one stored media file, keyed by content hash.
type Media struct {
	Hash string `json:"hash"`
	URL  string `json:"url"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Store is a SQLite-backed archive.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies
// migrations.
func Open(path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer; readers share the connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	version, dirty, err := RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Debug("Database ready", "path", path, "schema_version", version, "dirty", dirty)

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn in a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
