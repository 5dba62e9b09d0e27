package dom

import (
	"context"
	"fmt"
	"os"

	"github.com/kalhel/postkeep/core"
	"github.com/kalhel/postkeep/core/rules"
)

// FetchSource builds pages from plain HTTP fetches. It suits public posts
// and pages saved by other tools; gated posts need a Browser.
type FetchSource struct {
	fetcher core.Fetcher
	sel     rules.Selectors
}

// NewFetchSource creates a FetchSource.
func NewFetchSource(fetcher core.Fetcher, sel rules.Selectors) *FetchSource {
	return &FetchSource{fetcher: fetcher, sel: sel}
}

// Load fetches url and parses the response.
func (s *FetchSource) Load(ctx context.Context, url string) (core.Page, error) {
	result, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return NewDocument(result.HTML, s.sel)
}

// LoadFile parses a saved HTML file.
func LoadFile(path string, sel rules.Selectors) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return NewDocument(string(data), sel)
}
