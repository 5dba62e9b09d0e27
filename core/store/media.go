package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SaveMedia records a stored media file. Saving a known hash is a no-op.
func (s *Store) SaveMedia(ctx context.Context, m Media) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO media (hash, url, path, size) VALUES (?, ?, ?, ?)
		ON CONFLICT (hash) DO NOTHING
	`, m.Hash, m.URL, m.Path, m.Size)
	if err != nil {
		return fmt.Errorf("failed to store media: %w", err)
	}
	return nil
}

// MediaByHash returns the media record for hash or ErrNotFound.
func (s *Store) MediaByHash(ctx context.Context, hash string) (*Media, error) {
	var m Media
	err := s.db.QueryRowContext(ctx,
		`SELECT hash, url, path, size FROM media WHERE hash = ?`, hash,
	).Scan(&m.Hash, &m.URL, &m.Path, &m.Size)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media: %w", err)
	}
	return &m, nil
}

// SaveMediaURL records that url serves the stored file with hash. Every URL
// is kept, so two links to the same bytes both resolve to one file.
func (s *Store) SaveMediaURL(ctx context.Context, url, hash string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO media_urls (url, hash) VALUES (?, ?)
		ON CONFLICT (url) DO UPDATE SET hash = excluded.hash
	`, url, hash)
	if err != nil {
		return fmt.Errorf("failed to store media url: %w", err)
	}
	return nil
}

// MediaByURL returns the file stored for url or ErrNotFound.
func (s *Store) MediaByURL(ctx context.Context, url string) (*Media, error) {
	var m Media
	err := s.db.QueryRowContext(ctx, `
		SELECT m.hash, u.url, m.path, m.size
		FROM media_urls u JOIN media m ON m.hash = u.hash
		WHERE u.url = ?
	`, url).Scan(&m.Hash, &m.URL, &m.Path, &m.Size)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media by url: %w", err)
	}
	return &m, nil
}
