// Package rules holds the data tables that drive extraction and cleanup:
// UI-chrome phrases, avatar size descriptors, creator profile links and the
// page selectors. Tables are plain data so tests can substitute fixtures.
package rules

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Selectors locate page regions outside the block stream.
type Selectors struct {
	Container      []string `yaml:"container"`
	ImageWrapper   string   `yaml:"image_wrapper"`
	Skip           []string `yaml:"skip"`
	Avatar         []string `yaml:"avatar"`
	CreatorName    []string `yaml:"creator_name"`
	Published      []string `yaml:"published"`
	LikeCount      []string `yaml:"like_count"`
	CommentCount   []string `yaml:"comment_count"`
	CommentRow     string   `yaml:"comment_row"`
	CommentAuthor  string   `yaml:"comment_author"`
	CommentBody    string   `yaml:"comment_body"`
	PostLink       string   `yaml:"post_link"`
	StructuredData string   `yaml:"structured_data"`
}

// Rules is the full set of adjustable constants.
type Rules struct {
	// UserContentDomain is the only host images are accepted from.
	UserContentDomain string `yaml:"user_content_domain"`
	// BrightnessThreshold is the minimum mean brightness (0-1) of a
	// thumbnail candidate.
	BrightnessThreshold float64 `yaml:"brightness_threshold"`

	ChromePhrases      []string `yaml:"chrome_phrases"`
	UILabels           []string `yaml:"ui_labels"`
	AvatarDescriptors  []string `yaml:"avatar_descriptors"`
	AvatarPathSegments []string `yaml:"avatar_path_segments"`
	OwnProfileLinks    []string `yaml:"own_profile_links"`
	TagFilterParams    []string `yaml:"tag_filter_params"`

	Selectors Selectors `yaml:"selectors"`
}

// Default returns the built-in tables.
func Default() *Rules {
	return &Rules{
		UserContentDomain:   "patreonusercontent.com",
		BrightnessThreshold: 0.15,
		ChromePhrases: []string{
			"go to feed",
			"back to feed",
			"join to unlock",
			"unlock this post",
			"unlock with",
			"load more",
			"related posts",
			"more posts from",
			"recommended for you",
			"become a patron",
			"patreon logo",
			"skip navigation",
			"privacy mode",
			"this post is private",
		},
		UILabels: []string{"author", "tags", "home", "posts", "share", "like", "comment"},
		// base64 of {"w":N,"h":N} and {"h":N,"w":N} for 100, 120 and 360,
		// without padding so URL-escaped padding still matches.
		AvatarDescriptors: []string{
			"eyJ3IjoxMDAsImgiOjEwMH0",
			"eyJoIjoxMDAsInciOjEwMH0",
			"eyJ3IjoxMjAsImgiOjEyMH0",
			"eyJoIjoxMjAsInciOjEyMH0",
			"eyJ3IjozNjAsImgiOjM2MH0",
			"eyJoIjozNjAsInciOjM2MH0",
		},
		AvatarPathSegments: []string{"/p/campaign/", "/campaign_avatar/"},
		OwnProfileLinks: []string{
			`^https?://(www\.)?patreon\.com/(c/|cw/)?[A-Za-z0-9_-]+/?(\?.*)?$`,
			`^https?://(www\.)?patreon\.com/user\?u=\d+`,
		},
		TagFilterParams: []string{"filters[tag]", "filters%5Btag%5D"},
		Selectors: Selectors{
			Container: []string{
				`[data-tag="post-content"]`,
				`[data-tag="post-card"]`,
				"article",
			},
			ImageWrapper:   `[data-tag="image-wrapper"]`,
			Skip:           []string{`[data-tag="comment-avatar-wrapper"]`, `[data-tag="comment-composer"]`},
			Avatar:         []string{`[data-tag="creator-avatar"] img`, `[data-tag="post-avatar"] img`},
			CreatorName:    []string{`[data-tag="creator-name"]`, `[data-tag="metadata-wrapper"] a`},
			Published:      []string{`[data-tag="post-published-at"]`, "time"},
			LikeCount:      []string{`[data-tag="like-count"]`},
			CommentCount:   []string{`[data-tag="comment-count"]`},
			CommentRow:     `[data-tag="comment-row"]`,
			CommentAuthor:  `[data-tag="commenter-name"]`,
			CommentBody:    `[data-tag="comment-body"]`,
			PostLink:       `a[href*="/posts/"]`,
			StructuredData: `script[type="application/ld+json"]`,
		},
	}
}

// Load reads a YAML file and overlays every non-empty field on Default().
func Load(path string) (*Rules, error) {
	r := Default()
	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}

	var file Rules
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing rules file %s: %w", path, err)
	}
	r.merge(&file)

	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return r, nil
}

// Validate checks invariants the pipeline relies on.
func (r *Rules) Validate() error {
	if r.UserContentDomain == "" {
		return fmt.Errorf("user_content_domain must not be empty")
	}
	if r.BrightnessThreshold < 0 || r.BrightnessThreshold > 1 {
		return fmt.Errorf("brightness_threshold must be within [0, 1], got %v", r.BrightnessThreshold)
	}
	for _, p := range r.OwnProfileLinks {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("own_profile_links: %w", err)
		}
	}
	return nil
}

func (r *Rules) merge(o *Rules) {
	if o.UserContentDomain != "" {
		r.UserContentDomain = o.UserContentDomain
	}
	if o.BrightnessThreshold != 0 {
		r.BrightnessThreshold = o.BrightnessThreshold
	}
	setList(&r.ChromePhrases, o.ChromePhrases)
	setList(&r.UILabels, o.UILabels)
	setList(&r.AvatarDescriptors, o.AvatarDescriptors)
	setList(&r.AvatarPathSegments, o.AvatarPathSegments)
	setList(&r.OwnProfileLinks, o.OwnProfileLinks)
	setList(&r.TagFilterParams, o.TagFilterParams)

	s, src := &r.Selectors, o.Selectors
	setList(&s.Container, src.Container)
	setList(&s.Skip, src.Skip)
	setList(&s.Avatar, src.Avatar)
	setList(&s.CreatorName, src.CreatorName)
	setList(&s.Published, src.Published)
	setList(&s.LikeCount, src.LikeCount)
	setList(&s.CommentCount, src.CommentCount)
	setString(&s.ImageWrapper, src.ImageWrapper)
	setString(&s.CommentRow, src.CommentRow)
	setString(&s.CommentAuthor, src.CommentAuthor)
	setString(&s.CommentBody, src.CommentBody)
	setString(&s.PostLink, src.PostLink)
	setString(&s.StructuredData, src.StructuredData)
}

func setList(dst *[]string, src []string) {
	if len(src) > 0 {
		*dst = src
	}
}

func setString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}
