// Package cmd — archive command.
// Discovers new posts on a creator's posts page and archives each one:
// load → extract → normalize → download media → store.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/kalhel/postkeep/core"
	"github.com/kalhel/postkeep/core/media"
	"github.com/kalhel/postkeep/core/store"
	"github.com/kalhel/postkeep/crawl"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	flagLimit   int
	flagNoMedia bool
)

var archiveCmd = &cobra.Command{
	Use:   "archive <creator-posts-url>",
	Short: "Archive every post not yet in the database",
	Long: `Archive opens the creator's posts page in the logged-in browser session,
collects links to individual posts and archives the ones not stored yet.
Posts that fail are recorded and retried on the next run; the batch goes on.

Examples:
  postkeep archive https://www.patreon.com/c/creator/posts
  postkeep archive https://www.patreon.com/c/creator/posts --limit 5 --no_media`,
	Args: cobra.ExactArgs(1),
	RunE: runArchive,
}

func init() {
	rootCmd.AddCommand(archiveCmd)

	archiveCmd.Flags().IntVar(&flagLimit, "limit", 0, "Archive at most this many new posts (0 = all)")
	archiveCmd.Flags().BoolVar(&flagNoMedia, "no_media", false, "Do not download images, audio and video")
	archiveCmd.Flags().String("media_dir", "", "Media directory (default: ~/.postkeep/media)")
	viper.BindPFlag("media_dir", archiveCmd.Flags().Lookup("media_dir"))
}

func runArchive(cmd *cobra.Command, args []string) error {
	feedURL := args[0]
	if err := validateURL(feedURL); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	env, err := newPipelineEnv(false)
	if err != nil {
		return err
	}
	defer env.Close()

	st, err := store.Open(viper.GetString("db"))
	if err != nil {
		return err
	}
	defer st.Close()

	browser := env.browser()
	defer browser.Close()

	fmt.Fprintf(os.Stdout, "Discovering posts from %s...\n", feedURL)
	urls, err := crawl.Discover(ctx, browser, feedURL, env.rules.Selectors.PostLink, st)
	if err != nil {
		return fmt.Errorf("discovering posts: %w", err)
	}
	if flagLimit > 0 && len(urls) > flagLimit {
		urls = urls[:flagLimit]
	}
	fmt.Fprintf(os.Stdout, "Found %d new posts to archive\n", len(urls))

	a := &archiver{pages: browser, extractor: env.pipeline, store: st}
	if !flagNoMedia {
		a.media = media.New(env.fetcher, st, viper.GetString("media_dir"))
	}

	var errCount int
	for i, postURL := range urls {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "Interrupted")
			break
		}
		fmt.Fprintf(os.Stdout, "[%d/%d] Archiving %s\n", i+1, len(urls), postURL)

		n, err := a.archive(ctx, postURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ Error: %v\n", err)
			errCount++
			continue
		}
		fmt.Fprintf(os.Stdout, "  ✓ Stored %d blocks\n", n)
	}

	if errCount > 0 {
		fmt.Fprintf(os.Stderr, "\n%d/%d posts failed\n", errCount, len(urls))
	}
	return nil
}

// postStore is the write side of the archive used by archive runs.
type postStore interface {
	SavePost(ctx context.Context, url string, result core.ExtractionResult) (int64, error)
	MarkFailed(ctx context.Context, url string, cause error) error
}

// mediaFetcher downloads the media a post references.
type mediaFetcher interface {
	DownloadAll(ctx context.Context, blocks []core.Block) map[string]string
}

// archiver runs one post through the pipeline into the store.
type archiver struct {
	pages     core.PageSource
	extractor core.Extractor
	media     mediaFetcher
	store     postStore
}

// archive stores postURL and returns its block count. A failure is
// recorded against the URL before it is returned.
func (a *archiver) archive(ctx context.Context, postURL string) (int, error) {
	n, err := a.process(ctx, postURL)
	if err != nil {
		if markErr := a.store.MarkFailed(ctx, postURL, err); markErr != nil {
			slog.Error("Could not record failure", "url", postURL, "error", markErr)
		}
		return 0, err
	}
	return n, nil
}

func (a *archiver) process(ctx context.Context, postURL string) (int, error) {
	page, err := a.pages.Load(ctx, postURL)
	if err != nil {
		return 0, fmt.Errorf("load: %w", err)
	}

	result := a.extractor.Extract(ctx, page)
	if result.Empty() {
		slog.Warn("No content extracted", "url", postURL)
	}

	if a.media != nil {
		stored := a.media.DownloadAll(ctx, result.Blocks)
		slog.Debug("Media stored", "url", postURL, "files", len(stored))
	}

	if _, err := a.store.SavePost(ctx, postURL, result); err != nil {
		return 0, fmt.Errorf("save: %w", err)
	}
	return len(result.Blocks), nil
}
