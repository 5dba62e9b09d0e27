// Package render — JSON renderer.
// Writes the post URL, header metadata, a plain-text rendition for search
// and the tagged block list.
package render

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kalhel/postkeep/core"
)

// JSONRenderer produces structured JSON output.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

type postJSON struct {
	URL      string            `json:"url"`
	Metadata core.PostMetadata `json:"metadata"`
	Text     string            `json:"text"`
	Blocks   json.RawMessage   `json:"blocks"`
}

// Render encodes the result as indented JSON.
func (r *JSONRenderer) Render(result core.ExtractionResult, postURL string) ([]byte, error) {
	blocks, err := core.MarshalBlocks(result.Blocks)
	if err != nil {
		return nil, fmt.Errorf("encoding blocks: %w", err)
	}

	data, err := json.MarshalIndent(postJSON{
		URL:      postURL,
		Metadata: result.Metadata,
		Text:     Text(result.Blocks),
		Blocks:   blocks,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}

var (
	boldRe      = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRe    = regexp.MustCompile(`\*([^*\s][^*]*)\*`)
	underlineRe = regexp.MustCompile(`</?u>`)
	linkRe      = regexp.MustCompile(`\[([^\]]*)\]\([^)]+\)`)
	blankRe     = regexp.MustCompile(`\n{3,}`)
)

// Title returns the text of the first heading, or "".
func Title(blocks []core.Block) string {
	for _, b := range blocks {
		if h, ok := b.(*core.Heading); ok {
			return StripInline(h.Text)
		}
	}
	return ""
}

// Text returns the plain text of every text-bearing block, one block per
// paragraph, with inline markup tokens removed.
func Text(blocks []core.Block) string {
	var parts []string
	for _, b := range blocks {
		switch v := b.(type) {
		case *core.List:
			parts = append(parts, StripInline(strings.Join(v.Items, "\n")))
		case core.Texter:
			if text := StripInline(v.BlockText()); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return blankRe.ReplaceAllString(strings.Join(parts, "\n\n"), "\n\n")
}

// StripInline removes the bold, italic, underline and link tokens the
// extractor writes into block text.
func StripInline(text string) string {
	text = linkRe.ReplaceAllString(text, "$1")
	text = boldRe.ReplaceAllString(text, "$1")
	text = italicRe.ReplaceAllString(text, "$1")
	text = underlineRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
