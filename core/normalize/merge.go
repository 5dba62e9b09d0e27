package normalize

import (
	"regexp"
	"strings"

	"github.com/kalhel/postkeep/core"
)

// durationRe matches M:SS, MM:SS and H:MM:SS.
var durationRe = regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?$`)

// MergeRule folds adjacent blocks that describe one media item. rest starts
// at the current input block and out is everything emitted so far. A rule
// that applies returns the new output and the number of input blocks it
// consumed; a rule that does not apply returns 0. The default rules mark the
// audio they enrich and leave a merged audio alone.
type MergeRule interface {
	Merge(out, rest []core.Block) ([]core.Block, int)
}

// MergeFunc adapts a function to MergeRule.
type MergeFunc func(out, rest []core.Block) ([]core.Block, int)

func (f MergeFunc) Merge(out, rest []core.Block) ([]core.Block, int) { return f(out, rest) }

// DefaultMergeRules returns the audio folding rules in priority order.
func DefaultMergeRules() []MergeRule {
	return []MergeRule{
		MergeFunc(ImageDurationAudio),
		MergeFunc(ImageAudio),
		MergeFunc(DurationAudio),
	}
}

// ImageDurationAudio folds [image, duration, audio] into the audio block.
func ImageDurationAudio(out, rest []core.Block) ([]core.Block, int) {
	if len(rest) < 3 {
		return nil, 0
	}
	img, ok := rest[0].(*core.Image)
	if !ok {
		return nil, 0
	}
	dur, ok := duration(rest[1])
	if !ok {
		return nil, 0
	}
	audio, ok := rest[2].(*core.Audio)
	if !ok || audio.Merged() {
		return nil, 0
	}
	audio.Thumbnail = img.URL
	audio.Duration = dur
	audio.MarkMerged()
	return append(out, audio), 3
}

// ImageAudio folds [image, audio] into the audio block.
func ImageAudio(out, rest []core.Block) ([]core.Block, int) {
	if len(rest) < 2 {
		return nil, 0
	}
	img, ok := rest[0].(*core.Image)
	if !ok {
		return nil, 0
	}
	audio, ok := rest[1].(*core.Audio)
	if !ok || audio.Merged() {
		return nil, 0
	}
	audio.Thumbnail = img.URL
	audio.MarkMerged()
	return append(out, audio), 2
}

// DurationAudio folds [duration, audio] into the audio block, retracting
// the image emitted just before the duration when there is one.
func DurationAudio(out, rest []core.Block) ([]core.Block, int) {
	if len(rest) < 2 {
		return nil, 0
	}
	dur, ok := duration(rest[0])
	if !ok {
		return nil, 0
	}
	audio, ok := rest[1].(*core.Audio)
	if !ok || audio.Merged() {
		return nil, 0
	}

	if len(out) > 0 {
		if img, ok := out[len(out)-1].(*core.Image); ok {
			out = out[:len(out)-1]
			audio.Thumbnail = img.URL
		}
	}
	audio.Duration = dur
	audio.MarkMerged()
	return append(out, audio), 2
}

// duration returns the text of a duration-shaped paragraph or plain text.
func duration(b core.Block) (string, bool) {
	var text string
	switch v := b.(type) {
	case *core.Paragraph:
		text = v.Text
	case *core.PlainText:
		text = v.Text
	default:
		return "", false
	}
	text = strings.TrimSpace(text)
	return text, durationRe.MatchString(text)
}
