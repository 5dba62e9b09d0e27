// Package crawl — URL filtering rules.
// Provides helpers to recognise, compare and normalize post URLs.
package crawl

import (
	"net/url"
	"regexp"
	"strings"
)

// postPathRe matches /posts/<slug>-<id> and /posts/<id>.
var postPathRe = regexp.MustCompile(`^/posts/(?:[^/]*-)?\d+$`)

// IsSameSite checks if rawURL is on host, ignoring a leading "www.".
func IsSameSite(rawURL string, host string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.TrimPrefix(parsed.Host, "www.") == strings.TrimPrefix(host, "www.")
}

// IsPostURL reports whether rawURL points at a single post.
func IsPostURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return postPathRe.MatchString(strings.TrimSuffix(parsed.Path, "/"))
}

// NormalizeURL strips query, fragment and trailing slash so the same post
// reached through different links dedups to one URL.
func NormalizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	parsed.Fragment = ""
	parsed.RawQuery = ""
	if parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}
	return parsed.String()
}
