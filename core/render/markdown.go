// Package render provides output renderers for extracted posts.
// This file implements the Markdown renderer, which the viewer also uses
// for its .md route.
package render

import (
	"fmt"
	"strconv"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/kalhel/postkeep/core"
)

// MarkdownRenderer writes one Markdown document per post.
type MarkdownRenderer struct{}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render converts the result into Markdown.
func (r *MarkdownRenderer) Render(result core.ExtractionResult, postURL string) ([]byte, error) {
	var parts []string
	if header := markdownHeader(result.Metadata, postURL); header != "" {
		parts = append(parts, header)
	}
	for _, b := range result.Blocks {
		if md := markdownBlock(b); md != "" {
			parts = append(parts, md)
		}
	}
	return []byte(strings.Join(parts, "\n\n") + "\n"), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}

func markdownHeader(meta core.PostMetadata, postURL string) string {
	var lines []string
	if postURL != "" {
		lines = append(lines, "Source: <"+postURL+">")
	}
	if meta.Name != "" {
		lines = append(lines, "Author: "+meta.Name)
	}
	if meta.Published != "" {
		lines = append(lines, "Published: "+meta.Published)
	}
	if meta.Likes > 0 || meta.Comments > 0 {
		lines = append(lines, fmt.Sprintf("Likes: %d · Comments: %d", meta.Likes, meta.Comments))
	}
	if len(lines) == 0 {
		return ""
	}
	// Two trailing spaces keep the header lines apart.
	return strings.Join(lines, "  \n")
}

func markdownBlock(b core.Block) string {
	switch v := b.(type) {
	case *core.Heading:
		return strings.Repeat("#", max(1, min(v.Level, 6))) + " " + v.Text
	case *core.Paragraph:
		return paragraphMarkdown(v)
	case *core.PlainText:
		return v.Text
	case *core.Image:
		return fmt.Sprintf("![%s](%s)", v.Alt, v.URL)
	case *core.Video:
		if v.Poster != "" {
			return fmt.Sprintf("[![Video](%s)](%s)", v.Poster, v.URL)
		}
		return fmt.Sprintf("[Video](%s)", v.URL)
	case *core.Audio:
		return audioMarkdown(v)
	case *core.Embed:
		return embedMarkdown(v)
	case *core.List:
		lines := make([]string, len(v.Items))
		for i, item := range v.Items {
			marker := "-"
			if v.Ordered {
				marker = strconv.Itoa(i+1) + "."
			}
			lines[i] = marker + " " + item
		}
		return strings.Join(lines, "\n")
	case *core.Quote:
		return "> " + strings.ReplaceAll(v.Text, "\n", "\n> ")
	case *core.Link:
		text := v.Text
		if text == "" {
			text = v.URL
		}
		return fmt.Sprintf("[%s](%s)", text, v.URL)
	case *core.CommentsHeader:
		return fmt.Sprintf("## %s (%d)", v.Text, v.Count)
	case *core.Comment:
		indent := strings.Repeat("  ", v.Depth)
		text := strings.ReplaceAll(v.Text, "\n", "\n"+indent+"  ")
		if v.Author == "" {
			return indent + "- " + text
		}
		return fmt.Sprintf("%s- **%s**: %s", indent, v.Author, text)
	}
	return ""
}

// paragraphMarkdown converts the paragraph's original markup when it is
// available, falling back to the extracted text.
func paragraphMarkdown(p *core.Paragraph) string {
	if p.RawHTML == "" {
		return p.Text
	}
	md, err := htmltomarkdown.ConvertString(p.RawHTML)
	if err != nil || strings.TrimSpace(md) == "" {
		return p.Text
	}
	return strings.TrimSpace(md)
}

func audioMarkdown(a *core.Audio) string {
	title := a.Title
	if title == "" {
		title = "Audio"
	}
	if a.Duration != "" {
		title += " (" + a.Duration + ")"
	}
	line := fmt.Sprintf("[%s](%s)", title, a.URL)
	if a.Thumbnail != "" {
		return fmt.Sprintf("![](%s)\n%s", a.Thumbnail, line)
	}
	return line
}

func embedMarkdown(e *core.Embed) string {
	label := providerLabel(e.Provider)
	if e.Thumbnail != "" {
		return fmt.Sprintf("[![%s](%s)](%s)", label, e.Thumbnail, e.URL)
	}
	return fmt.Sprintf("[%s](%s)", label, e.URL)
}

func providerLabel(p core.Provider) string {
	switch p {
	case core.ProviderYouTube:
		return "YouTube video"
	case core.ProviderVimeo:
		return "Vimeo video"
	case core.ProviderSoundCloud:
		return "SoundCloud track"
	}
	return "Embedded content"
}
