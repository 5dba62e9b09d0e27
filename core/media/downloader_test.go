package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/kalhel/postkeep/core"
	"github.com/kalhel/postkeep/core/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapGetter struct {
	files map[string][]byte
	calls int
}

func newMapGetter(files map[string][]byte) *mapGetter { return &mapGetter{files: files} }

func (g *mapGetter) Download(_ context.Context, url string, w io.Writer) (int64, error) {
	g.calls++
	data, ok := g.files[url]
	if !ok {
		return 0, errors.New("404")
	}
	n, err := w.Write(data)
	return int64(n), err
}

type memIndex struct {
	media map[string]store.Media
	urls  map[string]string
	saves int
}

func newMemIndex() *memIndex {
	return &memIndex{media: make(map[string]store.Media), urls: make(map[string]string)}
}

func (i *memIndex) MediaByHash(_ context.Context, hash string) (*store.Media, error) {
	m, ok := i.media[hash]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &m, nil
}

func (i *memIndex) MediaByURL(ctx context.Context, url string) (*store.Media, error) {
	hash, ok := i.urls[url]
	if !ok {
		return nil, store.ErrNotFound
	}
	return i.MediaByHash(ctx, hash)
}

func (i *memIndex) SaveMedia(_ context.Context, m store.Media) error {
	i.saves++
	i.media[m.Hash] = m
	return nil
}

func (i *memIndex) SaveMediaURL(_ context.Context, url, hash string) error {
	i.urls[url] = hash
	return nil
}

func TestDownloader_DeduplicatesByContent(t *testing.T) {
	dir := t.TempDir()
	getter := newMapGetter(map[string][]byte{
		"https://c.test/a.jpg?token=1": []byte("same bytes"),
		"https://c.test/b.JPG":         []byte("same bytes"),
		"https://c.test/c.mp3":         []byte("other bytes"),
	})
	index := newMemIndex()
	d := New(getter, index, dir)
	ctx := context.Background()

	first, err := d.Download(ctx, "https://c.test/a.jpg?token=1")
	require.NoError(t, err)
	hash := Hash([]byte("same bytes"))
	assert.Equal(t, filepath.Join(dir, hash[:2], hash+".jpg"), first)
	assert.Equal(t, int64(len("same bytes")), index.media[hash].Size)

	second, err := d.Download(ctx, "https://c.test/b.JPG")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, index.saves)

	third, err := d.Download(ctx, "https://c.test/c.mp3")
	require.NoError(t, err)
	assert.NotEqual(t, first, third)

	data, err := os.ReadFile(third)
	require.NoError(t, err)
	assert.Equal(t, "other bytes", string(data))

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.part"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestDownloader_RecordsEveryURL(t *testing.T) {
	getter := newMapGetter(map[string][]byte{
		"https://c.test/a.jpg":         []byte("same bytes"),
		"https://c.test/a.jpg?token=2": []byte("same bytes"),
	})
	index := newMemIndex()
	d := New(getter, index, t.TempDir())
	ctx := context.Background()

	stored := d.DownloadAll(ctx, []core.Block{
		&core.Image{URL: "https://c.test/a.jpg"},
		&core.Image{URL: "https://c.test/a.jpg?token=2"},
	})
	require.Len(t, stored, 2)

	hash := Hash([]byte("same bytes"))
	assert.Equal(t, map[string]string{
		"https://c.test/a.jpg":         hash,
		"https://c.test/a.jpg?token=2": hash,
	}, index.urls)
	assert.Equal(t, 1, index.saves)

	again, err := d.Download(ctx, "https://c.test/a.jpg?token=2")
	require.NoError(t, err)
	assert.Equal(t, stored["https://c.test/a.jpg"], again)
	assert.Equal(t, 2, getter.calls)
}

func TestDownloader_DownloadAllSkipsFailures(t *testing.T) {
	dir := t.TempDir()
	getter := newMapGetter(map[string][]byte{"https://c.test/a.jpg": []byte("img")})
	index := newMemIndex()
	d := New(getter, index, dir)

	stored := d.DownloadAll(context.Background(), []core.Block{
		&core.Image{URL: "https://c.test/a.jpg"},
		&core.Audio{URL: "https://c.test/missing.mp3"},
	})
	assert.Len(t, stored, 1)
	assert.Contains(t, stored, "https://c.test/a.jpg")
	assert.NotContains(t, index.urls, "https://c.test/missing.mp3")

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.part"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestURLs(t *testing.T) {
	urls := URLs([]core.Block{
		&core.Image{URL: "i1"},
		&core.Audio{URL: "a1", Thumbnail: "i1"},
		&core.Video{URL: "v1", Poster: "p1"},
		&core.Embed{Provider: core.ProviderYouTube, URL: "https://youtu.be/x", Thumbnail: "t1"},
		&core.Paragraph{Text: "text"},
	})
	assert.Equal(t, []string{"i1", "a1", "p1", "v1", "t1"}, urls)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".png", extension("https://c.test/x/y.PNG?w=1"))
	assert.Equal(t, ".bin", extension("https://c.test/x/y"))
	assert.Equal(t, ".bin", extension("https://c.test/x/y.verylongext"))
}
