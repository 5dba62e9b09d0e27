package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kalhel/postkeep/core"
)

var countRe = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?)\s*([km])?`)

// metadata reads the post header. Missing fields stay zero.
func (p *Pipeline) metadata(page core.Page) core.PostMetadata {
	sel := p.rules.Selectors
	var meta core.PostMetadata

	if el := first(page, sel.Avatar); el != nil {
		if src, ok := el.Attr("src"); ok {
			meta.AvatarURL = strings.TrimSpace(src)
		}
	}
	if el := first(page, sel.CreatorName); el != nil {
		meta.Name = strings.TrimSpace(el.Text())
	}
	if el := first(page, sel.Published); el != nil {
		if dt, ok := el.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
			meta.Published = strings.TrimSpace(dt)
		} else {
			meta.Published = strings.TrimSpace(el.Text())
		}
	}
	if el := first(page, sel.LikeCount); el != nil {
		meta.Likes = ParseCount(el.Text())
	}
	if el := first(page, sel.CommentCount); el != nil {
		meta.Comments = ParseCount(el.Text())
	}
	return meta
}

// first returns the first element matched by any selector, tried in order.
func first(page core.Page, selectors []string) core.Element {
	for _, s := range selectors {
		if els := page.FindAll(s); len(els) > 0 {
			return els[0]
		}
	}
	return nil
}

// ParseCount reads a displayed counter such as "1,234", "1.2K" or "3M
// likes". Unparsable text counts as 0.
func ParseCount(text string) int {
	m := countRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	num := strings.ReplaceAll(m[1], ",", "")
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	switch strings.ToLower(m[2]) {
	case "k":
		f *= 1_000
	case "m":
		f *= 1_000_000
	}
	return int(f + 0.5)
}
