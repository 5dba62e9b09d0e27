package core

import (
	"encoding/json"
	"fmt"
)

// Kind names the variant of a content block.
type Kind string

const (
	KindHeading        Kind = "heading"
	KindParagraph      Kind = "paragraph"
	KindPlainText      Kind = "plain_text"
	KindImage          Kind = "image"
	KindVideo          Kind = "video"
	KindAudio          Kind = "audio"
	KindEmbed          Kind = "iframe_embed"
	KindNumberedList   Kind = "numbered_list"
	KindBulletedList   Kind = "bulleted_list"
	KindQuote          Kind = "quote"
	KindLink           Kind = "link"
	KindCommentsHeader Kind = "comments_header"
	KindComment        Kind = "comment"
)

// Provider identifies the host of an iframe embed.
type Provider string

const (
	ProviderYouTube    Provider = "youtube"
	ProviderVimeo      Provider = "vimeo"
	ProviderSoundCloud Provider = "soundcloud"
	ProviderGeneric    Provider = "generic"
)

// Block is one typed unit of post content. The set of implementations is
// closed: only the structs in this file satisfy it.
type Block interface {
	Kind() Kind
	Position() int
	SetPosition(n int)
	block()
}

// Texter is implemented by blocks that carry display text.
type Texter interface {
	Block
	BlockText() string
}

// Pos carries a block's order position. It is embedded in every block.
type Pos struct {
	N int `json:"position"`
}

func (p *Pos) Position() int     { return p.N }
func (p *Pos) SetPosition(n int) { p.N = n }
func (*Pos) block()              {}

// Heading is an h1-h3 element. Text may carry inline markup tokens.
type Heading struct {
	Pos
	Level int    `json:"level"`
	Text  string `json:"text"`
}

func (*Heading) Kind() Kind          { return KindHeading }
func (b *Heading) BlockText() string { return b.Text }

// Paragraph keeps the original markup next to the extracted text.
type Paragraph struct {
	Pos
	Text    string `json:"text"`
	RawHTML string `json:"raw_html,omitempty"`
}

func (*Paragraph) Kind() Kind          { return KindParagraph }
func (b *Paragraph) BlockText() string { return b.Text }

// PlainText is a bare text node found between elements.
type PlainText struct {
	Pos
	Text string `json:"text"`
}

func (*PlainText) Kind() Kind          { return KindPlainText }
func (b *PlainText) BlockText() string { return b.Text }

// Image is an image hosted on the platform's user-content domain.
type Image struct {
	Pos
	URL     string `json:"url"`
	Alt     string `json:"alt,omitempty"`
	MediaID string `json:"media_id"`
}

func (*Image) Kind() Kind { return KindImage }

// Video is a <video> element.
type Video struct {
	Pos
	URL    string `json:"url"`
	Poster string `json:"poster,omitempty"`
}

func (*Video) Kind() Kind { return KindVideo }

// Audio is an <audio> element, optionally enriched with a thumbnail and a
// duration label by the normalizer.
type Audio struct {
	Pos
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Duration  string `json:"duration,omitempty"`

	merged bool
}

func (*Audio) Kind() Kind { return KindAudio }

// MarkMerged records that neighbouring blocks were folded into a.
func (a *Audio) MarkMerged() { a.merged = true }

// Merged reports whether neighbouring blocks were already folded into a.
func (a *Audio) Merged() bool { return a.merged }

// Embed is an iframe pointing at an external media provider.
type Embed struct {
	Pos
	Provider  Provider `json:"provider"`
	URL       string   `json:"url"`
	VideoID   string   `json:"video_id,omitempty"`
	Thumbnail string   `json:"thumbnail,omitempty"`
}

func (*Embed) Kind() Kind { return KindEmbed }

// Key returns the provider+identifier pair used for embed deduplication.
func (b *Embed) Key() string {
	if b.VideoID != "" {
		return EmbedKey(b.Provider, b.VideoID)
	}
	return EmbedKey(b.Provider, b.URL)
}

// EmbedKey builds the seen-set key for a provider and identifier.
func EmbedKey(p Provider, id string) string {
	return string(p) + ":" + id
}

// List holds every item of one <ol> or <ul>.
type List struct {
	Pos
	Ordered bool     `json:"ordered"`
	Items   []string `json:"items"`
}

func (b *List) Kind() Kind {
	if b.Ordered {
		return KindNumberedList
	}
	return KindBulletedList
}

// Quote is a blockquote; paragraphs inside are joined by a blank line.
type Quote struct {
	Pos
	Text string `json:"text"`
}

func (*Quote) Kind() Kind          { return KindQuote }
func (b *Quote) BlockText() string { return b.Text }

// Link is a standalone anchor found during traversal.
type Link struct {
	Pos
	Text string `json:"text"`
	URL  string `json:"url"`
}

func (*Link) Kind() Kind          { return KindLink }
func (b *Link) BlockText() string { return b.Text }

// CommentsHeader marks the start of the comment section.
type CommentsHeader struct {
	Pos
	Text  string `json:"text"`
	Count int    `json:"count"`
}

func (*CommentsHeader) Kind() Kind          { return KindCommentsHeader }
func (b *CommentsHeader) BlockText() string { return b.Text }

// Comment is one reader comment. Depth 0 is a top-level comment.
type Comment struct {
	Pos
	Author string `json:"author"`
	Text   string `json:"text"`
	Depth  int    `json:"depth"`
}

func (*Comment) Kind() Kind          { return KindComment }
func (b *Comment) BlockText() string { return b.Text }

// NewBlock returns an empty block of the given kind.
func NewBlock(k Kind) (Block, error) {
	switch k {
	case KindHeading:
		return &Heading{}, nil
	case KindParagraph:
		return &Paragraph{}, nil
	case KindPlainText:
		return &PlainText{}, nil
	case KindImage:
		return &Image{}, nil
	case KindVideo:
		return &Video{}, nil
	case KindAudio:
		return &Audio{}, nil
	case KindEmbed:
		return &Embed{}, nil
	case KindNumberedList:
		return &List{Ordered: true}, nil
	case KindBulletedList:
		return &List{}, nil
	case KindQuote:
		return &Quote{}, nil
	case KindLink:
		return &Link{}, nil
	case KindCommentsHeader:
		return &CommentsHeader{}, nil
	case KindComment:
		return &Comment{}, nil
	default:
		return nil, fmt.Errorf("unknown block kind %q", k)
	}
}

// envelope is the tagged JSON form of one block.
type envelope struct {
	Kind Kind            `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// MarshalBlocks encodes blocks as a JSON array of {kind, data} envelopes.
func MarshalBlocks(blocks []Block) ([]byte, error) {
	envs := make([]envelope, 0, len(blocks))
	for _, b := range blocks {
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("marshaling %s block: %w", b.Kind(), err)
		}
		envs = append(envs, envelope{Kind: b.Kind(), Data: data})
	}
	return json.Marshal(envs)
}

// UnmarshalBlocks decodes the output of MarshalBlocks.
func UnmarshalBlocks(data []byte) ([]Block, error) {
	var envs []envelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return nil, fmt.Errorf("decoding block envelopes: %w", err)
	}
	blocks := make([]Block, 0, len(envs))
	for i, env := range envs {
		b, err := NewBlock(env.Kind)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		if err := json.Unmarshal(env.Data, b); err != nil {
			return nil, fmt.Errorf("block %d (%s): %w", i, env.Kind, err)
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}
