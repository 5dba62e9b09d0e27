// Package dom implements the DOM access layer: a read-only Page over
// rendered markup, backed by goquery, and a chromedp browser session that
// produces such pages from live URLs.
package dom

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kalhel/postkeep/core"
	"github.com/kalhel/postkeep/core/rules"
)

// Document is a parsed snapshot of a rendered page.
type Document struct {
	doc *goquery.Document
	sel rules.Selectors
}

// NewDocument parses rendered HTML into a Document.
func NewDocument(html string, sel rules.Selectors) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return &Document{doc: doc, sel: sel}, nil
}

// ContentContainer returns the first match of the container selectors,
// tried in priority order.
func (d *Document) ContentContainer() (core.Element, bool) {
	for _, s := range d.sel.Container {
		found := d.doc.Find(s)
		if found.Length() > 0 {
			return &Element{sel: found.First()}, true
		}
	}
	return nil, false
}

// StructuredData returns the raw text of every JSON-LD script block.
func (d *Document) StructuredData() []string {
	var out []string
	d.doc.Find(d.sel.StructuredData).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}

// FindAll returns every element matching selector, in document order.
// An invalid selector matches nothing.
func (d *Document) FindAll(selector string) []core.Element {
	return wrap(d.doc.Find(selector))
}

// Title returns the page <title>.
func (d *Document) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// Element wraps one goquery node.
type Element struct {
	sel *goquery.Selection
}

// InnerHTML returns the element's inner markup.
func (e *Element) InnerHTML() (string, error) {
	html, err := e.sel.Html()
	if err != nil {
		return "", fmt.Errorf("serializing element: %w", err)
	}
	return html, nil
}

// Attr returns the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

// Text returns the combined text of the element and its descendants.
func (e *Element) Text() string {
	return e.sel.Text()
}

// FindAll returns descendants matching selector.
func (e *Element) FindAll(selector string) []core.Element {
	return wrap(e.sel.Find(selector))
}

func wrap(s *goquery.Selection) []core.Element {
	out := make([]core.Element, 0, s.Length())
	s.Each(func(_ int, item *goquery.Selection) {
		out = append(out, &Element{sel: item})
	})
	return out
}
