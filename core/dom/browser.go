package dom

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/kalhel/postkeep/core"
	"github.com/kalhel/postkeep/core/rules"
)

// BrowserOptions configures the Chrome session.
type BrowserOptions struct {
	ChromePath  string        // Path to Chrome binary (empty = auto-detect)
	UserDataDir string        // Profile directory holding the logged-in session
	Headless    bool          // false opens a visible window, e.g. to log in
	Timeout     time.Duration // per page load
	Settle      time.Duration // wait after load for client-side rendering
	UserAgent   string
}

// DefaultBrowserOptions returns sensible defaults.
func DefaultBrowserOptions() BrowserOptions {
	return BrowserOptions{
		UserDataDir: defaultUserDataDir(),
		Headless:    true,
		Timeout:     60 * time.Second,
		Settle:      2 * time.Second,
		UserAgent:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// defaultUserDataDir returns a persistent directory for Chrome user data so
// the login cookies survive between runs.
func defaultUserDataDir() string {
	dir, _ := os.UserCacheDir()
	return filepath.Join(dir, "postkeep-chrome-profile")
}

// scrollScript scrolls to the bottom so lazily rendered comments load.
const scrollScript = `window.scrollTo(0, document.body.scrollHeight); true`

// Browser is a long-lived Chrome session. Each Load opens a new tab in the
// same browser so the session cookies are shared.
type Browser struct {
	opts BrowserOptions
	sel  rules.Selectors

	mu          sync.Mutex
	allocCancel context.CancelFunc
	browserCtx  context.Context
	cancel      context.CancelFunc
}

// NewBrowser creates a Browser; Chrome is started lazily on first Load.
func NewBrowser(opts BrowserOptions, sel rules.Selectors) *Browser {
	return &Browser{opts: opts, sel: sel}
}

func (b *Browser) start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browserCtx != nil {
		return nil
	}

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("password-store", "basic"),
		chromedp.Flag("use-mock-keychain", true),
		chromedp.UserAgent(b.opts.UserAgent),
		chromedp.WindowSize(1440, 1080),
		chromedp.UserDataDir(b.opts.UserDataDir),
	}
	if b.opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	}
	if b.opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(b.opts.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	// Start the browser process now so launch errors surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return fmt.Errorf("starting chrome: %w", err)
	}

	b.allocCancel = allocCancel
	b.browserCtx = browserCtx
	b.cancel = cancel
	slog.Debug("Browser session started", "profile", b.opts.UserDataDir, "headless", b.opts.Headless)
	return nil
}

// Load navigates to url and returns a snapshot of the rendered page.
func (b *Browser) Load(ctx context.Context, url string) (core.Page, error) {
	if err := b.start(); err != nil {
		return nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.opts.Timeout)
	defer cancelTimeout()

	// Tie the tab to the caller's context as well.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		network.SetExtraHTTPHeaders(network.Headers(map[string]interface{}{
			"Accept-Language": "en-US,en;q=0.9",
		})),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(b.opts.Settle),
		chromedp.Evaluate(scrollScript, nil),
		chromedp.Sleep(b.opts.Settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("browser load %s: %w", url, err)
	}

	return NewDocument(html, b.sel)
}

// Close shuts the browser down.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.allocCancel()
		b.browserCtx = nil
		b.cancel = nil
		b.allocCancel = nil
	}
}
