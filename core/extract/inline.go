package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
	spacesRe     = regexp.MustCompile(`[ \t]{2,}`)
	spaceNLRe    = regexp.MustCompile(` *\n *`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// inlineText returns the text of n's descendants with inline formatting
// kept as markup tokens: **bold**, *italic*, <u>underline</u>,
// [text](href) and a newline for <br>.
func inlineText(n *html.Node) string {
	var sb strings.Builder
	writeInline(&sb, n)
	return cleanText(sb.String())
}

// inlineFromMarkup parses an HTML fragment and returns its inline text.
func inlineFromMarkup(markup string) string {
	nodes, err := parseFragment(markup)
	if err != nil {
		return ""
	}
	var sb strings.Builder
	for _, n := range nodes {
		writeNode(&sb, n)
	}
	return cleanText(sb.String())
}

func writeInline(sb *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNode(sb, c)
	}
}

func writeNode(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		// Source formatting whitespace renders as a single space.
		sb.WriteString(whitespaceRe.ReplaceAllString(n.Data, " "))
	case html.ElementNode:
		switch n.Data {
		case "b", "strong":
			wrap(sb, n, "**", "**")
		case "i", "em":
			wrap(sb, n, "*", "*")
		case "u":
			wrap(sb, n, "<u>", "</u>")
		case "a":
			href := attr(n, "href")
			if href == "" {
				writeInline(sb, n)
				return
			}
			wrap(sb, n, "[", "]("+href+")")
		case "br":
			sb.WriteString("\n")
		case "script", "style", "noscript", "svg", "button":
		default:
			writeInline(sb, n)
		}
	}
}

// wrap writes n's inline text between open and closing, keeping the
// surrounding spaces outside the tokens.
func wrap(sb *strings.Builder, n *html.Node, open, closing string) {
	var inner strings.Builder
	writeInline(&inner, n)
	s := inner.String()

	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		sb.WriteString(s)
		return
	}
	lead := s[:strings.Index(s, trimmed)]
	trail := s[len(lead)+len(trimmed):]

	sb.WriteString(lead)
	sb.WriteString(open)
	sb.WriteString(trimmed)
	sb.WriteString(closing)
	sb.WriteString(trail)
}

// cleanText collapses runs of 3+ newlines to 2 and runs of spaces to one,
// then trims.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = spacesRe.ReplaceAllString(s, " ")
	s = spaceNLRe.ReplaceAllString(s, "\n")
	s = blankLinesRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// textContent returns the plain text of n, whitespace collapsed.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(sb.String(), " "))
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
