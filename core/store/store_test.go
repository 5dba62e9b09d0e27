package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kalhel/postkeep/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func episode(title, body string) core.ExtractionResult {
	return core.ExtractionResult{
		Metadata: core.PostMetadata{Name: "Jane", AvatarURL: "https://c.test/a.png", Published: "May 1", Likes: 12, Comments: 3},
		Blocks: []core.Block{
			&core.Heading{Pos: core.Pos{N: 1}, Level: 1, Text: title},
			&core.Paragraph{Pos: core.Pos{N: 2}, Text: body},
			&core.Embed{Pos: core.Pos{N: 3}, Provider: core.ProviderYouTube, URL: "https://youtu.be/abc123", VideoID: "abc123"},
		},
	}
}

func TestStore_SaveAndGetPost(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.SavePost(ctx, "https://www.patreon.com/posts/one-1", episode("Episode one", "About **tape** machines"))
	require.NoError(t, err)

	p, err := s.GetPost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Episode one", p.Title)
	assert.Equal(t, StatusOK, p.Status)
	assert.Equal(t, "Jane", p.Metadata.Name)
	assert.Equal(t, 12, p.Metadata.Likes)
	require.Len(t, p.Blocks, 3)
	assert.Equal(t, "abc123", p.Blocks[2].(*core.Embed).VideoID)
	assert.WithinDuration(t, time.Now(), p.ArchivedAt, time.Minute)
}

func TestStore_SavePostUpserts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	url := "https://www.patreon.com/posts/one-1"

	first, err := s.SavePost(ctx, url, episode("Draft title", "draft body"))
	require.NoError(t, err)
	second, err := s.SavePost(ctx, url, episode("Final title", "final body"))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	posts, err := s.ListPosts(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Final title", posts[0].Title)
	assert.Nil(t, posts[0].Blocks)

	hits, err := s.Search(ctx, "draft", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestStore_EmptyResult(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.SavePost(ctx, "https://www.patreon.com/posts/locked-2", core.ExtractionResult{})
	require.NoError(t, err)

	p, err := s.GetPost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, p.Status)
	assert.Empty(t, p.Blocks)
}

func TestStore_EmptyPostIsNotArchived(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	url := "https://www.patreon.com/posts/locked-4"

	_, err := s.SavePost(ctx, url, core.ExtractionResult{})
	require.NoError(t, err)
	has, err := s.HasPost(ctx, url)
	require.NoError(t, err)
	assert.False(t, has)

	_, err = s.SavePost(ctx, url, episode("Unlocked", "the paywall lifted"))
	require.NoError(t, err)
	has, err = s.HasPost(ctx, url)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestStore_MarkFailedAndHasPost(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	url := "https://www.patreon.com/posts/broken-3"

	has, err := s.HasPost(ctx, url)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.MarkFailed(ctx, url, errors.New("navigation timeout")))
	has, err = s.HasPost(ctx, url)
	require.NoError(t, err)
	assert.False(t, has)

	posts, err := s.ListPosts(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, StatusFailed, posts[0].Status)
	assert.Equal(t, "navigation timeout", posts[0].Error)

	_, err = s.SavePost(ctx, url, episode("Recovered", "now it works"))
	require.NoError(t, err)
	has, err = s.HasPost(ctx, url)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestStore_GetPostNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetPost(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Search(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.SavePost(ctx, "https://www.patreon.com/posts/a-1", episode("Tape echo", "Building a **tape** echo from scratch"))
	require.NoError(t, err)
	_, err = s.SavePost(ctx, "https://www.patreon.com/posts/b-2", episode("Spring reverb", "Springs and tanks"))
	require.NoError(t, err)

	hits, err := s.Search(ctx, "tape", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Tape echo", hits[0].Title)
	assert.Contains(t, hits[0].Snippet, "[tape]")

	hits, err = s.Search(ctx, `springs "AND OR`, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = s.Search(ctx, "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestStore_Media(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.MediaByHash(ctx, "00ff")
	assert.ErrorIs(t, err, ErrNotFound)

	m := Media{Hash: "00ff", URL: "https://c.test/a.jpg", Path: "/media/00/00ff.jpg", Size: 10}
	require.NoError(t, s.SaveMedia(ctx, m))
	require.NoError(t, s.SaveMedia(ctx, Media{Hash: "00ff", URL: "https://c.test/other.jpg", Path: "/x", Size: 1}))

	got, err := s.MediaByHash(ctx, "00ff")
	require.NoError(t, err)
	assert.Equal(t, m, *got)
}

func TestStore_MediaURLs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.MediaByURL(ctx, "https://c.test/a.jpg")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SaveMedia(ctx, Media{Hash: "00ff", URL: "https://c.test/a.jpg", Path: "/media/00/00ff.jpg", Size: 10}))
	require.NoError(t, s.SaveMediaURL(ctx, "https://c.test/a.jpg", "00ff"))
	require.NoError(t, s.SaveMediaURL(ctx, "https://c.test/b.jpg?token=2", "00ff"))
	require.NoError(t, s.SaveMediaURL(ctx, "https://c.test/b.jpg?token=2", "00ff"))

	for _, u := range []string{"https://c.test/a.jpg", "https://c.test/b.jpg?token=2"} {
		got, err := s.MediaByURL(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, "/media/00/00ff.jpg", got.Path)
		assert.Equal(t, u, got.URL)
	}

	assert.Error(t, s.SaveMediaURL(ctx, "https://c.test/c.jpg", "unknown"))
}

func TestFTSQuery(t *testing.T) {
	assert.Equal(t, `"tape" "echo"`, ftsQuery("tape echo"))
	assert.Equal(t, `"a" "OR"`, ftsQuery(`"a" OR`))
	assert.Empty(t, ftsQuery("  "))
}
