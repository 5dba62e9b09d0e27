// Package thumbnail picks a preview image for a YouTube video. Candidates
// are probed in a fixed preference order and the first one that exists and
// is not a near-black placeholder wins.
package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"

	"github.com/disintegration/imaging"
)

// sampleSize is the edge length images are downsampled to before averaging.
const sampleSize = 32

// candidateNames are tried in order; the first is also the fallback.
var candidateNames = []string{
	"hqdefault.jpg",
	"mqdefault.jpg",
	"1.jpg",
	"2.jpg",
	"3.jpg",
	"maxresdefault.jpg",
}

// Prober checks and fetches remote images.
type Prober interface {
	Exists(ctx context.Context, url string) (bool, error)
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Cache remembers resolved thumbnails across posts.
type Cache interface {
	Get(ctx context.Context, videoID string) (string, bool)
	Set(ctx context.Context, videoID, url string)
}

// Resolver resolves video IDs to thumbnail URLs.
type Resolver struct {
	prober    Prober
	threshold float64
	cache     Cache
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache attaches a cache consulted before probing.
func WithCache(c Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

// New creates a Resolver that rejects candidates darker than threshold.
func New(prober Prober, threshold float64, opts ...Option) *Resolver {
	r := &Resolver{prober: prober, threshold: threshold}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Candidates returns the candidate URLs for videoID in preference order.
func Candidates(videoID string) []string {
	out := make([]string, len(candidateNames))
	for i, name := range candidateNames {
		out[i] = fmt.Sprintf("https://i.ytimg.com/vi/%s/%s", videoID, name)
	}
	return out
}

// Resolve returns the first candidate that exists and is bright enough.
// It never fails: when every candidate is rejected it returns the first one.
func (r *Resolver) Resolve(ctx context.Context, videoID string) string {
	candidates := Candidates(videoID)

	if r.cache != nil {
		if url, ok := r.cache.Get(ctx, videoID); ok {
			return url
		}
	}

	for _, url := range candidates {
		if r.accept(ctx, url) {
			if r.cache != nil {
				r.cache.Set(ctx, videoID, url)
			}
			return url
		}
	}

	slog.Debug("No thumbnail candidate accepted, using default", "video_id", videoID)
	return candidates[0]
}

func (r *Resolver) accept(ctx context.Context, url string) (ok bool) {
	if r.prober == nil {
		return false
	}
	defer func() {
		if rec := recover(); rec != nil {
			slog.Warn("Thumbnail probe panicked", "url", url, "panic", rec)
			ok = false
		}
	}()

	exists, err := r.prober.Exists(ctx, url)
	if err != nil || !exists {
		slog.Debug("Thumbnail candidate missing", "url", url, "error", err)
		return false
	}

	data, err := r.prober.FetchBytes(ctx, url)
	if err != nil {
		slog.Debug("Thumbnail fetch failed", "url", url, "error", err)
		return false
	}

	brightness, err := Brightness(data)
	if err != nil {
		slog.Debug("Thumbnail decode failed", "url", url, "error", err)
		return false
	}

	if brightness < r.threshold {
		slog.Debug("Thumbnail too dark", "url", url, "brightness", brightness)
		return false
	}
	return true
}

// Brightness decodes an image and returns its mean luminance in [0, 1].
func Brightness(data []byte) (float64, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("decode image: %w", err)
	}

	small := imaging.Resize(img, sampleSize, sampleSize, imaging.Box)
	gray := imaging.Grayscale(small)

	var sum float64
	pixels := 0
	for i := 0; i+3 < len(gray.Pix); i += 4 {
		sum += float64(gray.Pix[i])
		pixels++
	}
	if pixels == 0 {
		return 0, fmt.Errorf("image has no pixels")
	}
	return sum / float64(pixels) / 255, nil
}
