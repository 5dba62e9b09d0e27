package extract

import (
	"context"
	"testing"

	"github.com/kalhel/postkeep/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYouTubeID(t *testing.T) {
	tests := map[string]string{
		"https://www.youtube.com/watch?v=abc123":               "abc123",
		"https://www.youtube.com/watch?feature=share&v=xYz_-9": "xYz_-9",
		"https://www.youtube.com/embed/abc123?rel=0":           "abc123",
		"https://www.youtube-nocookie.com/embed/abc123":        "abc123",
		"https://youtu.be/abc123":                              "abc123",
		"https://youtu.be/abc123?t=30":                         "abc123",
		"https://youtube.com/shorts/abc123":                    "abc123",
		"https://vimeo.com/123":                                "",
		"https://www.youtube.com/":                             "",
		"not a url %%":                                         "",
	}
	for in, want := range tests {
		assert.Equal(t, want, YouTubeID(in), in)
	}
}

func TestClassifyEmbed(t *testing.T) {
	tests := []struct {
		src      string
		provider core.Provider
		id       string
	}{
		{"https://www.youtube.com/embed/abc123", core.ProviderYouTube, "abc123"},
		{"https://player.vimeo.com/video/76979871?h=8272103f6e", core.ProviderVimeo, "76979871"},
		{"https://w.soundcloud.com/player/?url=https%3A//api.soundcloud.com/tracks/293&auto_play=false", core.ProviderSoundCloud, "293"},
		{"https://www.youtube.com/", core.ProviderGeneric, ""},
		{"https://example.com/widget", core.ProviderGeneric, ""},
	}
	for _, tt := range tests {
		provider, id := classifyEmbed(tt.src)
		assert.Equal(t, tt.provider, provider, tt.src)
		assert.Equal(t, tt.id, id, tt.src)
	}
}

func TestScanStructuredData(t *testing.T) {
	p := newTestPipeline(t)
	pctx := NewContext()

	docs := []string{
		`{"@context":"https://schema.org","@type":"VideoObject","embedUrl":"https://www.youtube.com/embed/abc123"}`,
		`{"@graph":[{"@type":"Article"},{"@type":["VideoObject","CreativeWork"],"embedUrl":"https://youtu.be/def456"}]}`,
		`{"@type":"VideoObject","embedUrl":"https://youtu.be/abc123"}`,
		`{"@type":"VideoObject","embedUrl":"https://vimeo.com/42"}`,
		`{not json`,
	}

	blocks := p.scanStructuredData(context.Background(), pctx, docs)
	require.Len(t, blocks, 2)

	first := blocks[0].(*core.Embed)
	assert.Equal(t, "abc123", first.VideoID)
	assert.Equal(t, core.ProviderYouTube, first.Provider)
	assert.Equal(t, "https://thumbs.test/abc123.jpg", first.Thumbnail)
	assert.Equal(t, 1, first.Position())

	second := blocks[1].(*core.Embed)
	assert.Equal(t, "def456", second.VideoID)
	assert.Equal(t, 2, second.Position())

	assert.True(t, pctx.Seen("youtube:abc123"))
	assert.True(t, pctx.Seen("youtube:def456"))
}

func TestContext_Claim(t *testing.T) {
	c := NewContext()
	assert.True(t, c.claim("youtube:a"))
	assert.False(t, c.claim("youtube:a"))
	assert.True(t, c.claim("vimeo:a"))
	assert.Equal(t, 1, c.next())
	assert.Equal(t, 2, c.next())
}
