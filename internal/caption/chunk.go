// Package caption groups timed words into subtitle cues and renders them
// as SRT and WebVTT documents.
package caption

import (
	"strings"
	"unicode/utf8"

	"github.com/alnah/go-captions/internal/transcribe"
)

// Cue is one timed subtitle entry.
type Cue struct {
	Index   int // 1-based, contiguous.
	StartMs int64
	EndMs   int64
	Text    string
}

// Limits bound the size of a single cue.
type Limits struct {
	MaxWords int // Words per cue.
	MaxChars int // Runes in the space-joined cue text.
}

// DefaultLimits keeps cues readable on a single broadcast-width line.
var DefaultLimits = Limits{MaxWords: 8, MaxChars: 42}

// normalize replaces non-positive limits with the defaults.
func (l Limits) normalize() Limits {
	if l.MaxWords <= 0 {
		l.MaxWords = DefaultLimits.MaxWords
	}
	if l.MaxChars <= 0 {
		l.MaxChars = DefaultLimits.MaxChars
	}
	return l
}

// Chunk groups words into cues in a single greedy pass.
//
// A cue closes once it holds MaxWords words, once its joined text reaches
// MaxChars, or at the last word. A word that would push a non-empty cue past
// MaxChars starts the next cue instead, so only a lone word longer than
// MaxChars can exceed the limit. This differs from flushing only after an
// append: words of 20, 20 and 3 runes give two cues, not one of 45. Blank
// words are skipped.
//
// Chunk is pure: the same input always yields the same cues. An empty input
// yields nil.
func Chunk(words []transcribe.Word, limits Limits) []Cue {
	limits = limits.normalize()

	var (
		cues     []Cue
		buf      []string
		chars    int
		start    int64
		end      int64
		prevFrom int64
	)

	flush := func() {
		if len(buf) == 0 {
			return
		}
		// Keep cue starts monotonic and never end before the start.
		if start < prevFrom {
			start = prevFrom
		}
		if end < start {
			end = start
		}
		cues = append(cues, Cue{
			Index:   len(cues) + 1,
			StartMs: start,
			EndMs:   end,
			Text:    strings.Join(buf, " "),
		})
		prevFrom = start
		buf = buf[:0]
		chars = 0
	}

	for i, w := range words {
		text := strings.TrimSpace(w.Text)
		if text != "" {
			n := utf8.RuneCountInString(text)
			if len(buf) > 0 && chars+1+n > limits.MaxChars {
				flush()
			}
			if len(buf) == 0 {
				start = w.StartMs
			} else {
				chars++ // joining space
			}
			buf = append(buf, text)
			chars += n
			end = w.EndMs
		}

		if len(buf) >= limits.MaxWords || chars >= limits.MaxChars || i == len(words)-1 {
			flush()
		}
	}

	return cues
}
