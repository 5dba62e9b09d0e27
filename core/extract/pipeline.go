// Package extract turns one rendered post page into an ordered list of
// content blocks plus the post's header metadata. A page is processed in
// a fixed order:
//  1. Locate the content container (an empty result when there is none)
//  2. Read header metadata
//  3. Scan JSON-LD for video embeds
//  4. Walk the container depth-first, emitting one block per element
//  5. Read comment rows
//  6. Hand the raw blocks to the normalizer, when one is configured
package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/andybalholm/cascadia"
	"github.com/kalhel/postkeep/core"
	"github.com/kalhel/postkeep/core/rules"
	"github.com/kalhel/postkeep/core/thumbnail"
)

// ThumbnailResolver picks a preview image for a YouTube video ID. It must
// always return a URL.
type ThumbnailResolver interface {
	Resolve(ctx context.Context, videoID string) string
}

// Pipeline implements core.Extractor. It is safe for concurrent use: all
// per-page state lives in a Context built inside Extract.
type Pipeline struct {
	rules        *rules.Rules
	resolver     ThumbnailResolver
	normalizer   core.Normalizer
	skip         []cascadia.Sel
	imageWrapper cascadia.Sel
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithNormalizer runs n over the raw blocks before Extract returns.
func WithNormalizer(n core.Normalizer) Option {
	return func(p *Pipeline) { p.normalizer = n }
}

// New creates a Pipeline. resolver may be nil, in which case embeds get the
// default high-quality thumbnail URL without probing.
func New(r *rules.Rules, resolver ThumbnailResolver, opts ...Option) (*Pipeline, error) {
	if r == nil {
		r = rules.Default()
	}
	p := &Pipeline{rules: r, resolver: resolver}

	for _, s := range r.Selectors.Skip {
		sel, err := cascadia.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parsing skip selector %q: %w", s, err)
		}
		p.skip = append(p.skip, sel)
	}
	if s := r.Selectors.ImageWrapper; s != "" {
		sel, err := cascadia.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parsing image wrapper selector %q: %w", s, err)
		}
		p.imageWrapper = sel
	}

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Extract runs the full pipeline on page. It never fails: a page without a
// content container yields an empty result, and element-level failures
// drop only the affected block.
func (p *Pipeline) Extract(ctx context.Context, page core.Page) (result core.ExtractionResult) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Extraction aborted", "panic", rec)
			result = core.ExtractionResult{}
		}
	}()

	blocks, meta, ok := p.extractRaw(ctx, page)
	if !ok {
		return core.ExtractionResult{}
	}
	if p.normalizer != nil {
		blocks = p.normalizer.Normalize(blocks, meta.AvatarURL)
	}
	return core.ExtractionResult{Blocks: blocks, Metadata: meta}
}

// ExtractRaw runs every pass except normalization.
func (p *Pipeline) ExtractRaw(ctx context.Context, page core.Page) core.ExtractionResult {
	blocks, meta, _ := p.extractRaw(ctx, page)
	return core.ExtractionResult{Blocks: blocks, Metadata: meta}
}

func (p *Pipeline) extractRaw(ctx context.Context, page core.Page) ([]core.Block, core.PostMetadata, bool) {
	container, ok := page.ContentContainer()
	if !ok {
		slog.Warn("No content container on page")
		return nil, core.PostMetadata{}, false
	}

	meta := p.metadata(page)
	pctx := NewContext()

	// JSON-LD embeds are emitted ahead of the container walk.
	blocks := p.scanStructuredData(ctx, pctx, page.StructuredData())

	markup, err := container.InnerHTML()
	if err != nil {
		slog.Warn("Failed to read container markup", "error", err)
	} else {
		blocks = append(blocks, p.parse(ctx, pctx, markup)...)
	}

	blocks = append(blocks, p.comments(pctx, page)...)

	slog.Debug("Extracted raw blocks", "count", len(blocks), "author", meta.Name)
	return blocks, meta, true
}

func (p *Pipeline) thumbnail(ctx context.Context, videoID string) string {
	if p.resolver == nil {
		return thumbnail.Candidates(videoID)[0]
	}
	return p.resolver.Resolve(ctx, videoID)
}
