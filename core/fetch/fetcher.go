// Package fetch implements HTTP access for the pipeline: page fetches for
// the Fetcher interface, the short-timeout existence probe and byte fetch
// used by the thumbnail resolver, and the streaming media download.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/corpix/uarand"
	"github.com/kalhel/postkeep/core"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultProbeTimeout = 3 * time.Second
	defaultBytesTimeout = 5 * time.Second
	maxBodyBytes        = 64 << 20
)

// ErrTooLarge is returned when a buffered response exceeds the body limit.
var ErrTooLarge = errors.New("response too large")

// Options configures an HTTPFetcher.
type Options struct {
	UserAgent    string // empty picks a random browser user agent
	ProbeTimeout time.Duration
	BytesTimeout time.Duration
}

// HTTPFetcher fetches pages and media over HTTP.
type HTTPFetcher struct {
	client    *http.Client
	download  *http.Client // no timeout; ctx bounds media downloads
	userAgent string
	probe     time.Duration
	bytes     time.Duration
	maxBody   int64
}

// New creates an HTTPFetcher with sensible timeouts.
func New(opts Options) *HTTPFetcher {
	f := &HTTPFetcher{
		client:    &http.Client{Timeout: defaultTimeout},
		download:  &http.Client{},
		userAgent: opts.UserAgent,
		probe:     opts.ProbeTimeout,
		bytes:     opts.BytesTimeout,
		maxBody:   maxBodyBytes,
	}
	if f.userAgent == "" {
		f.userAgent = uarand.GetRandom()
	}
	if f.probe <= 0 {
		f.probe = defaultProbeTimeout
	}
	if f.bytes <= 0 {
		f.bytes = defaultBytesTimeout
	}
	return f
}

// Fetch retrieves the HTML content of the given URL.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*core.FetchResult, error) {
	req, err := f.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := f.readBody(resp.Body, url)
	if err != nil {
		return nil, err
	}

	return &core.FetchResult{
		URL:        url,
		StatusCode: resp.StatusCode,
		HTML:       string(body),
	}, nil
}

// Exists issues a HEAD request and reports whether the server answered 200.
func (f *HTTPFetcher) Exists(ctx context.Context, url string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, f.probe)
	defer cancel()

	req, err := f.newRequest(ctx, http.MethodHead, url)
	if err != nil {
		return false, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("probing %s: %w", url, err)
	}
	resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}

// FetchBytes downloads url with the short byte-fetch timeout.
func (f *HTTPFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.bytes)
	defer cancel()
	return f.get(ctx, url)
}

// Download streams url into w and returns the number of bytes copied.
// Media files can be large, so there is no size limit and no client
// timeout; ctx bounds the transfer.
func (f *HTTPFetcher) Download(ctx context.Context, url string, w io.Writer) (int64, error) {
	resp, err := f.open(ctx, f.download, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("reading %s: %w", url, err)
	}
	return n, nil
}

func (f *HTTPFetcher) get(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.open(ctx, f.client, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return f.readBody(resp.Body, url)
}

// open issues a GET through client and fails on any status but 200.
func (f *HTTPFetcher) open(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := f.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}
	return resp, nil
}

// readBody reads at most maxBody bytes and fails rather than truncate.
func (f *HTTPFetcher) readBody(r io.Reader, url string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, f.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	if int64(len(data)) > f.maxBody {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, url, f.maxBody)
	}
	return data, nil
}

func (f *HTTPFetcher) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	return req, nil
}
