package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kalhel/postkeep/core"
	"github.com/kalhel/postkeep/core/render"
)

const postColumns = `id, url, title, creator, avatar_url, published, likes, comments,
	blocks_json, status, error, archived_at`

// SavePost upserts the result for url and refreshes its search entry. A
// result without blocks is stored with status "empty".
func (s *Store) SavePost(ctx context.Context, url string, result core.ExtractionResult) (int64, error) {
	blocks, err := core.MarshalBlocks(result.Blocks)
	if err != nil {
		return 0, fmt.Errorf("encoding blocks: %w", err)
	}

	status := StatusOK
	if result.Empty() {
		status = StatusEmpty
	}
	title := render.Title(result.Blocks)
	meta := result.Metadata

	var id int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO posts (
				url, title, creator, avatar_url, published, likes, comments,
				blocks_json, status, error, archived_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, '', ?)
			ON CONFLICT (url) DO UPDATE SET
				title = excluded.title,
				creator = excluded.creator,
				avatar_url = excluded.avatar_url,
				published = excluded.published,
				likes = excluded.likes,
				comments = excluded.comments,
				blocks_json = excluded.blocks_json,
				status = excluded.status,
				error = '',
				archived_at = excluded.archived_at
			RETURNING id
		`, url, title, meta.Name, meta.AvatarURL, meta.Published, meta.Likes, meta.Comments,
			string(blocks), status, s.now().Unix()).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to store post: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM posts_fts WHERE rowid = ?`, id); err != nil {
			return fmt.Errorf("failed to clear search entry: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO posts_fts (rowid, url, title, body) VALUES (?, ?, ?, ?)`,
			id, url, title, render.Text(result.Blocks)); err != nil {
			return fmt.Errorf("failed to index post: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// MarkFailed records that url could not be archived. Content from an
// earlier successful run is kept.
func (s *Store) MarkFailed(ctx context.Context, url string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (url, status, error, archived_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET
			status = excluded.status,
			error = excluded.error,
			archived_at = excluded.archived_at
	`, url, StatusFailed, msg, s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to mark post failed: %w", err)
	}
	return nil
}

// GetPost returns the post with its decoded blocks.
func (s *Store) GetPost(ctx context.Context, id int64) (*Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	p, err := scanPost(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post %d: %w", id, err)
	}
	return p, nil
}

// ListPosts returns posts newest first, without their blocks.
func (s *Store) ListPosts(ctx context.Context, limit, offset int) ([]Post, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+` FROM posts
		ORDER BY archived_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}
	return posts, nil
}

// HasPost reports whether url is archived with content. Failed and empty
// attempts do not count, so the next run retries them.
func (s *Store) HasPost(ctx context.Context, url string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE url = ? AND status = ?`, url, StatusOK).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check post: %w", err)
	}
	return n > 0, nil
}

// Search runs a full-text query over titles and text. Every word of q must
// match; FTS operators in q are treated as plain words.
func (s *Store) Search(ctx context.Context, q string, limit int) ([]SearchHit, error) {
	match := ftsQuery(q)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.url, p.title, snippet(posts_fts, 2, '[', ']', '…', 12)
		FROM posts_fts
		JOIN posts p ON p.id = posts_fts.rowid
		WHERE posts_fts MATCH ?
		ORDER BY posts_fts.rank
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search posts: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.ID, &h.URL, &h.Title, &h.Snippet); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search rows: %w", err)
	}
	return hits, nil
}

// ftsQuery quotes every word so user input cannot form FTS syntax.
func ftsQuery(q string) string {
	var terms []string
	for _, w := range strings.Fields(q) {
		w = strings.ReplaceAll(w, `"`, "")
		if w != "" {
			terms = append(terms, `"`+w+`"`)
		}
	}
	return strings.Join(terms, " ")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner, withBlocks bool) (*Post, error) {
	var (
		p          Post
		blocksJSON string
		archivedAt int64
	)
	err := row.Scan(
		&p.ID, &p.URL, &p.Title, &p.Metadata.Name, &p.Metadata.AvatarURL,
		&p.Metadata.Published, &p.Metadata.Likes, &p.Metadata.Comments,
		&blocksJSON, &p.Status, &p.Error, &archivedAt,
	)
	if err != nil {
		return nil, err
	}
	p.ArchivedAt = time.Unix(archivedAt, 0).UTC()

	if withBlocks {
		blocks, err := core.UnmarshalBlocks([]byte(blocksJSON))
		if err != nil {
			return nil, fmt.Errorf("decoding blocks: %w", err)
		}
		p.Blocks = blocks
	}
	return &p, nil
}
