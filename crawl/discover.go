// Package crawl discovers post URLs for archive runs.
// It snapshots a creator's posts page, collects links to individual posts
// and skips the ones already archived, keeping discovery separate from the
// extraction pipeline.
package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/kalhel/postkeep/core"
)

// Known reports whether a post URL has already been archived.
type Known interface {
	HasPost(ctx context.Context, url string) (bool, error)
}

// Discover loads feedURL through pages, collects every post link matched
// by selector and returns the ones known does not report as archived, in
// page order. known may be nil.
func Discover(ctx context.Context, pages core.PageSource, feedURL, selector string, known Known) ([]string, error) {
	base, err := url.Parse(feedURL)
	if err != nil {
		return nil, fmt.Errorf("parsing feed URL: %w", err)
	}

	page, err := pages.Load(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("loading feed %s: %w", feedURL, err)
	}

	queue := NewQueue()
	for _, link := range extractLinks(page, selector, base) {
		if !IsSameSite(link, base.Host) || !IsPostURL(link) {
			continue
		}
		queue.Add(NormalizeURL(link))
	}

	var fresh []string
	for queue.HasNext() {
		u := queue.Next()
		if known != nil {
			archived, err := known.HasPost(ctx, u)
			if err != nil {
				return nil, fmt.Errorf("checking %s: %w", u, err)
			}
			if archived {
				continue
			}
		}
		fresh = append(fresh, u)
	}

	slog.Info("Discovered posts", "feed", feedURL, "found", queue.Visited(), "new", len(fresh))
	return fresh, nil
}

// extractLinks returns the resolved href of every element matching
// selector.
func extractLinks(page core.Page, selector string, base *url.URL) []string {
	var links []string
	for _, el := range page.FindAll(selector) {
		href, ok := el.Attr("href")
		if !ok || href == "" {
			continue
		}
		if resolved := resolveURL(href, base); resolved != "" {
			links = append(links, resolved)
		}
	}
	return links
}

// resolveURL resolves a potentially relative URL against a base.
func resolveURL(href string, base *url.URL) string {
	if strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "#") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(parsed)
	resolved.Fragment = ""
	return resolved.String()
}
