package extract

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/kalhel/postkeep/core"
	"github.com/tidwall/gjson"
)

var (
	videoIDRe      = regexp.MustCompile(`^[A-Za-z0-9_-]{3,}$`)
	digitsRe       = regexp.MustCompile(`(\d+)`)
	soundcloudIDRe = regexp.MustCompile(`tracks/(\d+)`)
)

// YouTubeID returns the video identifier of a YouTube URL in any of the
// watch?v=, /embed/, /shorts/ or youtu.be short-link shapes.
func YouTubeID(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())

	var id string
	switch {
	case host == "youtu.be":
		id = strings.TrimPrefix(u.Path, "/")
	case strings.Contains(host, "youtube.com") || strings.Contains(host, "youtube-nocookie.com"):
		if v := u.Query().Get("v"); v != "" {
			id = v
		} else if i := strings.Index(u.Path, "/embed/"); i >= 0 {
			id = u.Path[i+len("/embed/"):]
		} else if i := strings.Index(u.Path, "/shorts/"); i >= 0 {
			id = u.Path[i+len("/shorts/"):]
		}
	default:
		return ""
	}

	id = strings.Split(id, "/")[0]
	if !videoIDRe.MatchString(id) {
		return ""
	}
	return id
}

// classifyEmbed maps an iframe source to its provider and identifier. The
// identifier is empty for generic embeds.
func classifyEmbed(src string) (core.Provider, string) {
	u, err := url.Parse(src)
	if err != nil {
		return core.ProviderGeneric, ""
	}
	host := strings.ToLower(u.Hostname())

	switch {
	case host == "youtu.be" || strings.Contains(host, "youtube.com") || strings.Contains(host, "youtube-nocookie.com"):
		if id := YouTubeID(src); id != "" {
			return core.ProviderYouTube, id
		}
		return core.ProviderGeneric, ""
	case strings.Contains(host, "vimeo.com"):
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		for i := len(segments) - 1; i >= 0; i-- {
			if m := digitsRe.FindString(segments[i]); m == segments[i] && m != "" {
				return core.ProviderVimeo, m
			}
		}
		return core.ProviderVimeo, ""
	case strings.Contains(host, "soundcloud.com"):
		target := u.Query().Get("url")
		if m := soundcloudIDRe.FindStringSubmatch(target + u.Path); m != nil {
			return core.ProviderSoundCloud, m[1]
		}
		return core.ProviderSoundCloud, target
	default:
		return core.ProviderGeneric, ""
	}
}

// scanStructuredData emits a YouTube embed for every VideoObject found in
// the page's JSON-LD blocks that the page has not produced yet.
func (p *Pipeline) scanStructuredData(ctx context.Context, pctx *Context, docs []string) []core.Block {
	var blocks []core.Block
	for i, raw := range docs {
		if !gjson.Valid(raw) {
			slog.Warn("Skipping malformed structured data", "index", i, "length", len(raw))
			continue
		}
		walkVideoObjects(gjson.Parse(raw), func(embedURL string) {
			id := YouTubeID(embedURL)
			if id == "" {
				return
			}
			if !pctx.claim(core.EmbedKey(core.ProviderYouTube, id)) {
				return
			}
			blocks = append(blocks, &core.Embed{
				Pos:       core.Pos{N: pctx.next()},
				Provider:  core.ProviderYouTube,
				URL:       embedURL,
				VideoID:   id,
				Thumbnail: p.thumbnail(ctx, id),
			})
		})
	}
	return blocks
}

// walkVideoObjects calls fn with the embedUrl of every VideoObject in r,
// searching arrays, @graph and nested objects.
func walkVideoObjects(r gjson.Result, fn func(string)) {
	switch {
	case r.IsArray():
		r.ForEach(func(_, v gjson.Result) bool {
			walkVideoObjects(v, fn)
			return true
		})
	case r.IsObject():
		if isVideoObject(r.Get("@type")) {
			if u := r.Get("embedUrl"); u.Type == gjson.String {
				fn(u.String())
			}
		}
		r.ForEach(func(_, v gjson.Result) bool {
			if v.IsObject() || v.IsArray() {
				walkVideoObjects(v, fn)
			}
			return true
		})
	}
}

func isVideoObject(t gjson.Result) bool {
	if t.IsArray() {
		for _, v := range t.Array() {
			if v.String() == "VideoObject" {
				return true
			}
		}
		return false
	}
	return t.String() == "VideoObject"
}
