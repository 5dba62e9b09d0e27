package cmd

import (
	"fmt"
	"log/slog"

	"github.com/kalhel/postkeep/core/cache"
	"github.com/kalhel/postkeep/core/dom"
	"github.com/kalhel/postkeep/core/extract"
	"github.com/kalhel/postkeep/core/fetch"
	"github.com/kalhel/postkeep/core/normalize"
	"github.com/kalhel/postkeep/core/rules"
	"github.com/kalhel/postkeep/core/thumbnail"
	"github.com/spf13/viper"
)

// pipelineEnv holds the components shared by the extract and archive
// commands.
type pipelineEnv struct {
	rules    *rules.Rules
	fetcher  *fetch.HTTPFetcher
	pipeline *extract.Pipeline
	cache    *cache.Cache
}

// newPipelineEnv wires rules, fetcher, thumbnail resolver and normalizer
// into an extraction pipeline. Call Close when done.
func newPipelineEnv(raw bool) (*pipelineEnv, error) {
	r, err := loadRules()
	if err != nil {
		return nil, err
	}
	env := &pipelineEnv{
		rules:   r,
		fetcher: fetch.New(fetch.Options{}),
	}

	var resolverOpts []thumbnail.Option
	if url := viper.GetString("redis_url"); url != "" {
		c, err := cache.NewRedisCache(url, "postkeep")
		if err != nil {
			// The cache only saves probes; run without it.
			slog.Warn("Thumbnail cache unavailable", "error", err)
		} else {
			env.cache = c
			resolverOpts = append(resolverOpts, thumbnail.WithCache(c))
		}
	}
	resolver := thumbnail.New(env.fetcher, r.BrightnessThreshold, resolverOpts...)

	var opts []extract.Option
	if !raw {
		normalizer, err := normalize.New(r)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("creating normalizer: %w", err)
		}
		opts = append(opts, extract.WithNormalizer(normalizer))
	}

	env.pipeline, err = extract.New(r, resolver, opts...)
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}
	return env, nil
}

// browser returns a Chrome session using the configured profile.
func (e *pipelineEnv) browser() *dom.Browser {
	opts := dom.DefaultBrowserOptions()
	opts.ChromePath = viper.GetString("chrome_path")
	if dir := viper.GetString("profile_dir"); dir != "" {
		opts.UserDataDir = dir
	}
	opts.Headless = !viper.GetBool("headful")
	return dom.NewBrowser(opts, e.rules.Selectors)
}

// Close releases the thumbnail cache connection.
func (e *pipelineEnv) Close() {
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			slog.Debug("Closing thumbnail cache", "error", err)
		}
	}
}
