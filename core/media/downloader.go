// Package media downloads the files referenced by a post and stores each
// distinct file once, keyed by the xxhash of its bytes.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/kalhel/postkeep/core"
	"github.com/kalhel/postkeep/core/store"
)

// Getter streams the content at a URL into w.
type Getter interface {
	Download(ctx context.Context, url string, w io.Writer) (int64, error)
}

// Index records stored files by content hash and every URL that served
// them. *store.Store satisfies it.
type Index interface {
	MediaByHash(ctx context.Context, hash string) (*store.Media, error)
	MediaByURL(ctx context.Context, url string) (*store.Media, error)
	SaveMedia(ctx context.Context, m store.Media) error
	SaveMediaURL(ctx context.Context, url, hash string) error
}

// Downloader writes media under Dir as <hash[:2]>/<hash><ext>.
type Downloader struct {
	getter Getter
	index  Index
	dir    string
}

// New creates a Downloader.
func New(getter Getter, index Index, dir string) *Downloader {
	return &Downloader{getter: getter, index: index, dir: dir}
}

// Download fetches rawURL and returns the local path of its content. A URL
// recorded before is not fetched again. When the bytes match a stored file
// the existing path is returned and only the URL is recorded.
func (d *Downloader) Download(ctx context.Context, rawURL string) (string, error) {
	known, err := d.index.MediaByURL(ctx, rawURL)
	if err == nil {
		slog.Debug("Media URL already stored", "url", rawURL, "path", known.Path)
		return known.Path, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("looking up media %s: %w", rawURL, err)
	}

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", fmt.Errorf("creating media directory: %w", err)
	}
	tmp, err := os.CreateTemp(d.dir, ".download-*.part")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	digest := xxhash.New()
	size, err := d.getter.Download(ctx, rawURL, io.MultiWriter(tmp, digest))
	closeErr := tmp.Close()
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", rawURL, err)
	}
	if closeErr != nil {
		return "", fmt.Errorf("writing %s: %w", tmp.Name(), closeErr)
	}
	hash := hexSum(digest.Sum64())

	p, err := d.place(ctx, rawURL, hash, tmp.Name(), size)
	if err != nil {
		return "", err
	}
	if err := d.index.SaveMediaURL(ctx, rawURL, hash); err != nil {
		return "", err
	}
	return p, nil
}

// place moves the downloaded file at tmp to its content-addressed path,
// unless a file with the same hash is already stored.
func (d *Downloader) place(ctx context.Context, rawURL, hash, tmp string, size int64) (string, error) {
	existing, err := d.index.MediaByHash(ctx, hash)
	if err == nil {
		slog.Debug("Media already stored", "url", rawURL, "path", existing.Path)
		return existing.Path, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("looking up media %s: %w", hash, err)
	}

	p := filepath.Join(d.dir, hash[:2], hash+extension(rawURL))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return "", fmt.Errorf("creating media directory: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return "", fmt.Errorf("writing media file %s: %w", p, err)
	}

	if err := d.index.SaveMedia(ctx, store.Media{Hash: hash, URL: rawURL, Path: p, Size: size}); err != nil {
		return "", err
	}
	return p, nil
}

// DownloadAll downloads every media URL referenced by blocks. Failures are
// logged and skipped; the returned map holds the URLs that were stored.
func (d *Downloader) DownloadAll(ctx context.Context, blocks []core.Block) map[string]string {
	stored := make(map[string]string)
	for _, u := range URLs(blocks) {
		if ctx.Err() != nil {
			break
		}
		p, err := d.Download(ctx, u)
		if err != nil {
			slog.Warn("Failed to download media", "url", u, "error", err)
			continue
		}
		stored[u] = p
	}
	return stored
}

// Hash returns the hex xxhash64 of data, the name a file with these bytes
// is stored under.
func Hash(data []byte) string {
	return hexSum(xxhash.Sum64(data))
}

func hexSum(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}

// URLs lists the downloadable media referenced by blocks, without
// duplicates, in block order. External embeds are not downloadable; only
// their thumbnails are.
func URLs(blocks []core.Block) []string {
	var urls []string
	seen := make(map[string]bool)
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}
	for _, b := range blocks {
		switch v := b.(type) {
		case *core.Image:
			add(v.URL)
		case *core.Video:
			add(v.Poster)
			add(v.URL)
		case *core.Audio:
			add(v.Thumbnail)
			add(v.URL)
		case *core.Embed:
			add(v.Thumbnail)
		}
	}
	return urls
}

// extension returns the file extension of the URL path, or ".bin".
func extension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".bin"
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" || len(ext) > 6 {
		return ".bin"
	}
	return ext
}
