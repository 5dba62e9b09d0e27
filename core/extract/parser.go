package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/kalhel/postkeep/core"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// noiseTags are dropped with their whole subtree.
var noiseTags = map[string]bool{
	"script": true, "style": true, "noscript": true,
	"svg": true, "canvas": true, "button": true,
	"form": true, "input": true, "select": true, "textarea": true,
}

// parseFragment parses markup in a <body> context.
func parseFragment(markup string) ([]*html.Node, error) {
	return html.ParseFragment(strings.NewReader(markup), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
}

// walker emits blocks for one container in document order.
type walker struct {
	ctx  context.Context
	p    *Pipeline
	pctx *Context
	out  []core.Block
}

// parse walks the container markup depth-first and returns its blocks.
func (p *Pipeline) parse(ctx context.Context, pctx *Context, markup string) []core.Block {
	nodes, err := parseFragment(markup)
	if err != nil {
		slog.Warn("Failed to parse container markup", "error", err)
		return nil
	}
	w := &walker{ctx: ctx, p: p, pctx: pctx}
	for _, n := range nodes {
		w.walk(n)
	}
	return w.out
}

func (w *walker) emit(b core.Block) {
	b.SetPosition(w.pctx.next())
	w.out = append(w.out, b)
}

func (w *walker) walkChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *walker) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		if text := cleanText(whitespaceRe.ReplaceAllString(n.Data, " ")); text != "" {
			w.emit(&core.PlainText{Text: text})
		}
	case html.ElementNode:
		w.element(n)
	case html.DocumentNode:
		w.walkChildren(n)
	}
}

func (w *walker) element(n *html.Node) {
	// A failure on one element skips that element only.
	defer func() {
		if rec := recover(); rec != nil {
			slog.Warn("Skipping element after extraction failure", "tag", n.Data, "panic", rec)
		}
	}()

	if noiseTags[n.Data] || w.p.matches(w.p.skip, n) {
		return
	}

	switch n.Data {
	case "h1", "h2", "h3":
		if text := inlineText(n); text != "" {
			w.emit(&core.Heading{Level: int(n.Data[1] - '0'), Text: text})
		}
	case "p":
		if text := inlineText(n); text != "" {
			w.emit(&core.Paragraph{Text: text, RawHTML: outerHTML(n)})
		}
	case "img":
		w.image(n, n)
	case "video":
		w.video(n)
	case "audio":
		w.audio(n)
	case "iframe":
		w.iframe(n)
	case "ul", "ol":
		w.list(n)
	case "blockquote":
		w.quote(n)
	case "a":
		w.link(n)
	case "br", "hr":
	case "div":
		if w.p.imageWrapper != nil && w.p.imageWrapper.Match(n) {
			w.wrappedImage(n)
			return
		}
		w.walkChildren(n)
	default:
		// span, section, figure, b/i/u/mark and unknown elements are
		// transparent.
		w.walkChildren(n)
	}
}

// wrappedImage emits the first image inside a pre-rendered image wrapper
// and nothing else from the wrapper.
func (w *walker) wrappedImage(wrapper *html.Node) {
	img := findFirst(wrapper, "img")
	if img == nil {
		w.walkChildren(wrapper)
		return
	}
	w.image(img, wrapper)
}

// image emits img when hosted on the user-content domain. holder is the
// element carrying the media-id attribute, img itself or its wrapper.
func (w *walker) image(img, holder *html.Node) {
	src := imageSource(img)
	if src == "" || !onDomain(src, w.p.rules.UserContentDomain) {
		return
	}
	id := attr(holder, "data-media-id")
	if id == "" {
		id = attr(img, "data-media-id")
	}
	w.emit(&core.Image{
		URL:     src,
		Alt:     strings.TrimSpace(attr(img, "alt")),
		MediaID: mediaID(id, src),
	})
}

func (w *walker) video(n *html.Node) {
	src := mediaSource(n)
	if src == "" {
		return
	}
	if !w.pctx.claim("video:" + src) {
		return
	}
	w.emit(&core.Video{URL: src, Poster: attr(n, "poster")})
}

func (w *walker) audio(n *html.Node) {
	src := mediaSource(n)
	if src == "" {
		return
	}
	title := attr(n, "title")
	if title == "" {
		title = attr(n, "aria-label")
	}
	w.emit(&core.Audio{URL: src, Title: title, Thumbnail: w.neighbourImage(n)})
}

// neighbourImage looks for a user-content image among the audio element's
// siblings and their descendants.
func (w *walker) neighbourImage(n *html.Node) string {
	if n.Parent == nil {
		return ""
	}
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c == n || c.Type != html.ElementNode {
			continue
		}
		img := c
		if c.Data != "img" {
			img = findFirst(c, "img")
		}
		if img == nil {
			continue
		}
		if src := imageSource(img); src != "" && onDomain(src, w.p.rules.UserContentDomain) {
			return src
		}
	}
	return ""
}

func (w *walker) iframe(n *html.Node) {
	src := attr(n, "src")
	if src == "" {
		src = attr(n, "data-src")
	}
	if src == "" {
		return
	}
	if strings.HasPrefix(src, "//") {
		src = "https:" + src
	}

	provider, id := classifyEmbed(src)
	embed := &core.Embed{Provider: provider, URL: src, VideoID: id}
	if !w.pctx.claim(embed.Key()) {
		slog.Debug("Skipping duplicate embed", "key", embed.Key())
		return
	}
	if provider == core.ProviderYouTube {
		embed.Thumbnail = w.p.thumbnail(w.ctx, id)
	}
	w.emit(embed)
}

func (w *walker) list(n *html.Node) {
	var items []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "li" {
			if text := inlineText(c); text != "" {
				items = append(items, text)
			}
		}
	}
	if len(items) == 0 {
		return
	}
	w.emit(&core.List{Ordered: n.Data == "ol", Items: items})
}

func (w *walker) quote(n *html.Node) {
	var parts []string
	for _, p := range findAll(n, "p") {
		if text := inlineText(p); text != "" {
			parts = append(parts, text)
		}
	}

	text := strings.Join(parts, "\n\n")
	if len(parts) == 0 {
		text = textContent(n)
	}
	if text != "" {
		w.emit(&core.Quote{Text: text})
	}
}

// link emits a standalone anchor. Anchors wrapping media are walked instead
// so the media is not lost behind the link.
func (w *walker) link(n *html.Node) {
	if containsMedia(n) {
		w.walkChildren(n)
		return
	}
	href := attr(n, "href")
	text := textContent(n)
	if href == "" {
		if text != "" {
			w.emit(&core.PlainText{Text: text})
		}
		return
	}
	w.emit(&core.Link{Text: text, URL: href})
}

func (p *Pipeline) matches(sels []cascadia.Sel, n *html.Node) bool {
	for _, s := range sels {
		if s.Match(n) {
			return true
		}
	}
	return false
}

// imageSource returns the best source attribute of an <img>.
func imageSource(img *html.Node) string {
	for _, key := range []string{"src", "data-src"} {
		if v := strings.TrimSpace(attr(img, key)); v != "" && !strings.HasPrefix(v, "data:") {
			return v
		}
	}
	return ""
}

// mediaSource returns the src of a <video>/<audio>, falling back to the
// first nested <source>.
func mediaSource(n *html.Node) string {
	if src := strings.TrimSpace(attr(n, "src")); src != "" {
		return src
	}
	if s := findFirst(n, "source"); s != nil {
		return strings.TrimSpace(attr(s, "src"))
	}
	return ""
}

func containsMedia(n *html.Node) bool {
	for _, tag := range []string{"img", "video", "audio", "iframe"} {
		if findFirst(n, tag) != nil {
			return true
		}
	}
	return false
}

func findFirst(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
		if found := findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			out = append(out, c)
			continue
		}
		out = append(out, findAll(c, tag)...)
	}
	return out
}

func outerHTML(n *html.Node) string {
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		return ""
	}
	return sb.String()
}
