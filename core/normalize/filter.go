package normalize

import (
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kalhel/postkeep/core"
)

const (
	minTextLen       = 5
	contentKeyLen    = 100
	commentPrefixLen = 60
	maxLinkTextLen   = 200
)

// filterState carries the running sets of one filter scan.
type filterState struct {
	avatarURL   string
	lastHeading string
	leaked      map[string]bool
	headerAt    int
	audio       map[string]bool
	embeds      map[string]bool
	videos      map[string]bool
	imageURLs   map[string]bool
	mediaIDs    map[string]bool
	content     map[string]bool
}

// filter drops every block that is UI chrome, a duplicate, or an avatar.
func (n *Normalizer) filter(blocks []core.Block, avatarURL string) []core.Block {
	st := &filterState{
		avatarURL: avatarURL,
		headerAt:  -1,
		leaked:    make(map[string]bool),
		audio:     make(map[string]bool),
		embeds:    make(map[string]bool),
		videos:    make(map[string]bool),
		imageURLs: make(map[string]bool),
		mediaIDs:  make(map[string]bool),
		content:   make(map[string]bool),
	}
	st.indexComments(blocks)

	kept := make([]core.Block, 0, len(blocks))
	for i, b := range blocks {
		if reason := n.drop(st, i, b); reason != "" {
			slog.Debug("Dropping block", "kind", b.Kind(), "position", b.Position(), "reason", reason)
			continue
		}
		kept = append(kept, b)
	}
	return kept
}

// indexComments records where the comment section starts and the text
// prefixes of the real comments.
func (st *filterState) indexComments(blocks []core.Block) {
	for i, b := range blocks {
		switch v := b.(type) {
		case *core.CommentsHeader:
			if st.headerAt < 0 {
				st.headerAt = i
			}
		case *core.Comment:
			if p := prefix(v.Text, commentPrefixLen); p != "" {
				st.leaked[p] = true
			}
		}
	}
}

// drop returns a non-empty reason when b must not be kept.
func (n *Normalizer) drop(st *filterState, i int, b core.Block) string {
	if t, ok := b.(core.Texter); ok && chromeCandidate(b) && n.isChrome(t.BlockText()) {
		return "ui chrome"
	}

	switch v := b.(type) {
	case *core.Heading:
		if reason := n.dropText(v.Text); reason != "" {
			return reason
		}
		norm := normalizeText(v.Text)
		if norm == st.lastHeading {
			return "duplicate heading"
		}
		if isCommentCount(norm) {
			return "comment count heading"
		}
		if !st.claimContent(b.Kind(), v.Text) {
			return "duplicate content"
		}
		st.lastHeading = norm

	case *core.Paragraph:
		if reason := n.dropText(v.Text); reason != "" {
			return reason
		}
		if st.isLeaked(i, v.Text) {
			return "leaked comment"
		}
		if !st.claimContent(b.Kind(), v.Text) {
			return "duplicate content"
		}

	case *core.PlainText:
		if reason := n.dropText(v.Text); reason != "" {
			return reason
		}
		if st.isLeaked(i, v.Text) {
			return "leaked comment"
		}

	case *core.Audio:
		if !claim(st.audio, v.URL) {
			return "duplicate audio"
		}

	case *core.Embed:
		if !claim(st.embeds, v.Key()) {
			return "duplicate embed"
		}

	case *core.Video:
		if !claim(st.videos, v.URL) {
			return "duplicate video"
		}

	case *core.Image:
		return n.dropImage(st, v)

	case *core.Link:
		return n.dropLink(v)
	}
	return ""
}

// dropText applies the rules shared by heading, paragraph and plain text.
func (n *Normalizer) dropText(text string) string {
	trimmed := strings.TrimSpace(text)
	switch {
	case trimmed == "":
		return "empty"
	case n.labels[strings.ToLower(trimmed)]:
		return "ui label"
	case utf8.RuneCountInString(trimmed) < minTextLen && !durationRe.MatchString(trimmed):
		return "too short"
	}
	return ""
}

func (n *Normalizer) dropImage(st *filterState, img *core.Image) string {
	switch {
	case img.URL == "":
		return "no source"
	case st.avatarURL != "" && img.URL == st.avatarURL:
		return "post avatar"
	case n.isAvatarImage(img.URL):
		return "avatar image"
	case st.imageURLs[img.URL]:
		return "duplicate image"
	case img.MediaID != "" && st.mediaIDs[img.MediaID]:
		return "duplicate media id"
	}
	st.imageURLs[img.URL] = true
	if img.MediaID != "" {
		st.mediaIDs[img.MediaID] = true
	}
	return ""
}

func (n *Normalizer) dropLink(l *core.Link) string {
	text := strings.TrimSpace(l.Text)
	switch {
	case n.isOwnProfile(l.URL):
		return "own profile link"
	case strings.Contains(strings.ToLower(text), "related post"):
		return "related posts link"
	case text == "" && n.hasTagFilter(l.URL):
		return "tag filter link"
	case utf8.RuneCountInString(text) > maxLinkTextLen:
		return "oversized link text"
	}
	return ""
}

func (n *Normalizer) isChrome(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range n.chrome {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func (n *Normalizer) isAvatarImage(url string) bool {
	for _, d := range n.rules.AvatarDescriptors {
		if strings.Contains(url, d) {
			return true
		}
	}
	for _, seg := range n.rules.AvatarPathSegments {
		if strings.Contains(url, seg) {
			return true
		}
	}
	return false
}

func (n *Normalizer) isOwnProfile(url string) bool {
	for _, re := range n.ownProfile {
		if re.MatchString(url) {
			return true
		}
	}
	return false
}

func (n *Normalizer) hasTagFilter(url string) bool {
	for _, p := range n.rules.TagFilterParams {
		if strings.Contains(url, p) {
			return true
		}
	}
	return false
}

func (st *filterState) isLeaked(i int, text string) bool {
	if st.headerAt < 0 || i >= st.headerAt {
		return false
	}
	return st.leaked[prefix(text, commentPrefixLen)]
}

func (st *filterState) claimContent(kind core.Kind, text string) bool {
	return claim(st.content, string(kind)+"|"+prefix(text, contentKeyLen))
}

func claim(set map[string]bool, key string) bool {
	if set[key] {
		return false
	}
	set[key] = true
	return true
}

// chromeCandidate limits the chrome-phrase rule to content text kinds.
// Comments quoting a phrase are kept.
func chromeCandidate(b core.Block) bool {
	switch b.(type) {
	case *core.Heading, *core.Paragraph, *core.PlainText, *core.Quote, *core.Link:
		return true
	}
	return false
}

// isCommentCount matches headers such as "12 comments".
func isCommentCount(norm string) bool {
	return strings.Contains(norm, "comment") && strings.ContainsFunc(norm, unicode.IsDigit)
}

// normalizeText lowercases and collapses whitespace.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// prefix returns the first n runes of the trimmed text.
func prefix(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
