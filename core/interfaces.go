// Package core defines the pipeline types and interfaces for postkeep.
// Each stage of the pipeline is a clean, testable interface.
package core

import "context"

// FetchResult holds the raw HTML and response metadata from a fetch.
type FetchResult struct {
	URL        string
	StatusCode int
	HTML       string
}

// PostMetadata holds the header facts of one post.
// Published is free-form text as shown on the page.
type PostMetadata struct {
	AvatarURL string `json:"avatar_url"`
	Name      string `json:"name"`
	Published string `json:"published"`
	Likes     int    `json:"likes"`
	Comments  int    `json:"comments"`
}

// ExtractionResult is the pipeline's output for one post page.
type ExtractionResult struct {
	Blocks   []Block      `json:"-"`
	Metadata PostMetadata `json:"metadata"`
}

// Empty reports whether the result carries no content blocks.
func (r ExtractionResult) Empty() bool {
	return len(r.Blocks) == 0
}

// Element is one node of a rendered page.
type Element interface {
	InnerHTML() (string, error)
	Attr(name string) (string, bool)
	Text() string
	FindAll(selector string) []Element
}

// Page is a read view over a rendered page.
type Page interface {
	// ContentContainer returns the element holding the post body.
	ContentContainer() (Element, bool)
	// StructuredData returns the raw JSON text of every
	// <script type="application/ld+json"> block on the page.
	StructuredData() []string
	FindAll(selector string) []Element
}

// Fetcher retrieves raw HTML from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// PageSource produces a Page for a URL, typically from a browser session.
type PageSource interface {
	Load(ctx context.Context, url string) (Page, error)
}

// Extractor turns a rendered post page into an ExtractionResult.
type Extractor interface {
	Extract(ctx context.Context, page Page) ExtractionResult
}

// Normalizer cleans, merges and renumbers a raw block list.
type Normalizer interface {
	Normalize(blocks []Block, avatarURL string) []Block
}

// Renderer converts an extraction result into a final output format.
type Renderer interface {
	Render(result ExtractionResult, postURL string) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".md", ".pdf").
	Extension() string
}
