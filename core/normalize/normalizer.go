// Package normalize implements the Normalizer interface.
// It turns the raw block stream of one page into the final block list:
//  1. Filter UI chrome, duplicates and avatar images
//  2. Fold adjacent image/duration/audio runs into one audio block
//  3. Renumber positions densely from 1
package normalize

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/kalhel/postkeep/core"
	"github.com/kalhel/postkeep/core/rules"
)

// Normalizer implements core.Normalizer. It holds no per-page state and is
// safe for concurrent use.
type Normalizer struct {
	rules      *rules.Rules
	chrome     []string
	labels     map[string]bool
	ownProfile []*regexp.Regexp
	merge      []MergeRule
}

// New creates a Normalizer over r. With no merge rules the defaults are
// used: ImageDurationAudio, ImageAudio, DurationAudio.
func New(r *rules.Rules, merge ...MergeRule) (*Normalizer, error) {
	if r == nil {
		r = rules.Default()
	}
	n := &Normalizer{
		rules:  r,
		labels: make(map[string]bool, len(r.UILabels)),
		merge:  merge,
	}
	if len(n.merge) == 0 {
		n.merge = DefaultMergeRules()
	}

	for _, phrase := range r.ChromePhrases {
		n.chrome = append(n.chrome, strings.ToLower(phrase))
	}
	for _, label := range r.UILabels {
		n.labels[strings.ToLower(strings.TrimSpace(label))] = true
	}
	for _, pattern := range r.OwnProfileLinks {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling own-profile pattern %q: %w", pattern, err)
		}
		n.ownProfile = append(n.ownProfile, re)
	}
	return n, nil
}

// Normalize filters, merges and renumbers blocks. avatarURL is the post
// author's avatar, which is never kept as a content image.
func (n *Normalizer) Normalize(blocks []core.Block, avatarURL string) (out []core.Block) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Normalization failed, keeping raw blocks", "panic", rec)
			out = renumber(blocks)
		}
	}()

	kept := n.filter(blocks, avatarURL)
	merged := n.mergeAll(kept)

	slog.Debug("Normalized blocks", "in", len(blocks), "filtered", len(kept), "out", len(merged))
	return renumber(merged)
}

// mergeAll repeats merge scans until no rule applies, so a second
// Normalize never finds more to fold.
func (n *Normalizer) mergeAll(blocks []core.Block) []core.Block {
	for {
		next := n.mergeOnce(blocks)
		if len(next) == len(blocks) {
			return next
		}
		blocks = next
	}
}

func (n *Normalizer) mergeOnce(blocks []core.Block) []core.Block {
	out := make([]core.Block, 0, len(blocks))
	for i := 0; i < len(blocks); {
		consumed := 0
		for _, rule := range n.merge {
			var merged []core.Block
			if merged, consumed = rule.Merge(out, blocks[i:]); consumed > 0 {
				out = merged
				break
			}
		}
		if consumed == 0 {
			out = append(out, blocks[i])
			consumed = 1
		}
		i += consumed
	}
	return out
}

func renumber(blocks []core.Block) []core.Block {
	for i, b := range blocks {
		b.SetPosition(i + 1)
	}
	return blocks
}
