// Package cmd — extract command.
// Runs one post through the pipeline:
// load → extract → normalize → render → write.
package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"

	"github.com/kalhel/postkeep/core"
	"github.com/kalhel/postkeep/core/dom"
	"github.com/kalhel/postkeep/core/output"
	"github.com/kalhel/postkeep/core/render"
	"github.com/spf13/cobra"
)

var (
	flagPDF       bool
	flagMarkdown  bool
	flagJSON      bool
	flagRaw       bool
	flagPlainHTTP bool
	flagOutputDir string
)

var extractCmd = &cobra.Command{
	Use:   "extract <file-or-url>",
	Short: "Extract one post to Markdown, JSON or PDF",
	Long: `Extract reads a single post, either a saved HTML file or a live URL opened in
the logged-in browser session, and writes it in the chosen format.

Examples:
  postkeep extract saved/post.html --markdown
  postkeep extract https://www.patreon.com/posts/episode-12-98765 --json --output_dir ./out
  postkeep extract https://www.patreon.com/posts/free-post-1234 --pdf --plain_http`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	// Output format flags (mutually exclusive).
	extractCmd.Flags().BoolVar(&flagPDF, "pdf", false, "Output PDF")
	extractCmd.Flags().BoolVar(&flagMarkdown, "markdown", false, "Output Markdown")
	extractCmd.Flags().BoolVar(&flagJSON, "json", false, "Output structured JSON")

	extractCmd.Flags().BoolVar(&flagRaw, "raw", false, "Skip normalization and keep every extracted block")
	extractCmd.Flags().BoolVar(&flagPlainHTTP, "plain_http", false, "Fetch over plain HTTP instead of the browser (public posts only)")
	extractCmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory (default: current directory)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	source := args[0]

	renderer, err := selectRenderer()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	env, err := newPipelineEnv(flagRaw)
	if err != nil {
		return err
	}
	defer env.Close()

	page, postURL, err := loadPage(ctx, env, source)
	if err != nil {
		return err
	}

	result := env.pipeline.Extract(ctx, page)
	if result.Empty() {
		fmt.Fprintf(os.Stderr, "Warning: no content extracted from %s\n", source)
	}

	data, err := renderer.Render(result, postURL)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	writer, err := output.New(flagOutputDir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}
	path, err := writer.Write(source, data, renderer.Extension())
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Written: %s (%d blocks)\n", path, len(result.Blocks))
	return nil
}

// loadPage opens source as a saved file when it exists on disk, otherwise
// as a URL. The returned post URL is empty for files.
func loadPage(ctx context.Context, env *pipelineEnv, source string) (core.Page, string, error) {
	if info, err := os.Stat(source); err == nil && !info.IsDir() {
		page, err := dom.LoadFile(source, env.rules.Selectors)
		if err != nil {
			return nil, "", err
		}
		return page, "", nil
	}

	if err := validateURL(source); err != nil {
		return nil, "", err
	}

	var pages core.PageSource
	if flagPlainHTTP {
		pages = dom.NewFetchSource(env.fetcher, env.rules.Selectors)
	} else {
		browser := env.browser()
		defer browser.Close()
		pages = browser
	}

	page, err := pages.Load(ctx, source)
	if err != nil {
		return nil, "", fmt.Errorf("loading %s: %w", source, err)
	}
	return page, source, nil
}

// validateURL requires an absolute http(s) URL.
func validateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("invalid URL: %s (must include scheme, e.g. https://www.patreon.com/posts/...)", rawURL)
	}
	return nil
}

// selectRenderer creates the renderer chosen by flags. Exactly one output
// format must be set.
func selectRenderer() (core.Renderer, error) {
	count := 0
	for _, set := range []bool{flagPDF, flagMarkdown, flagJSON} {
		if set {
			count++
		}
	}
	if count == 0 {
		return nil, fmt.Errorf("exactly one output format is required: --pdf, --markdown or --json")
	}
	if count > 1 {
		return nil, fmt.Errorf("only one output format allowed per run (got %d)", count)
	}

	switch {
	case flagMarkdown:
		return render.NewMarkdownRenderer(), nil
	case flagJSON:
		return render.NewJSONRenderer(), nil
	default:
		return render.NewPDFRenderer(), nil
	}
}
