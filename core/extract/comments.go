package extract

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/kalhel/postkeep/core"
)

// commentsHeading labels the comment section header block.
const commentsHeading = "Comments"

// comments reads every comment row on the page. The header block is only
// emitted when at least one comment has text.
func (p *Pipeline) comments(pctx *Context, page core.Page) []core.Block {
	sel := p.rules.Selectors
	if sel.CommentRow == "" {
		return nil
	}

	var comments []*core.Comment
	for _, row := range page.FindAll(sel.CommentRow) {
		if c := p.comment(row); c != nil {
			comments = append(comments, c)
		}
	}
	if len(comments) == 0 {
		return nil
	}

	blocks := make([]core.Block, 0, len(comments)+1)
	blocks = append(blocks, &core.CommentsHeader{
		Pos:   core.Pos{N: pctx.next()},
		Text:  commentsHeading,
		Count: len(comments),
	})
	for _, c := range comments {
		c.SetPosition(pctx.next())
		blocks = append(blocks, c)
	}
	return blocks
}

func (p *Pipeline) comment(row core.Element) (c *core.Comment) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Debug("Skipping unreadable comment row", "panic", rec)
			c = nil
		}
	}()
	sel := p.rules.Selectors

	bodies := row.FindAll(sel.CommentBody)
	if len(bodies) == 0 {
		return nil
	}
	markup, err := bodies[0].InnerHTML()
	if err != nil {
		return nil
	}
	text := inlineFromMarkup(markup)
	if text == "" {
		return nil
	}

	var author string
	if names := row.FindAll(sel.CommentAuthor); len(names) > 0 {
		author = strings.TrimSpace(names[0].Text())
	}

	var depth int
	if v, ok := row.Attr("data-depth"); ok {
		if d, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && d > 0 {
			depth = d
		}
	}

	return &core.Comment{Author: author, Text: text, Depth: depth}
}
