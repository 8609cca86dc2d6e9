// Package transcribe turns an audio file into time-aligned words using an
// external speech-to-text service.
package transcribe

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/alnah/go-captions/internal/lang"
)

// Word is one transcribed word with millisecond boundaries.
type Word struct {
	Text       string
	StartMs    int64
	EndMs      int64
	Confidence float64 // 0 when the provider does not report it.
}

// Transcript is the result of a single transcription.
type Transcript struct {
	Text       string
	Confidence float64 // Overall confidence in [0,1].
	Words      []Word  // Ordered by start time.
}

// WordCount returns the number of words in the transcript.
func (t Transcript) WordCount() int {
	return len(t.Words)
}

// Options configures a transcription request.
type Options struct {
	// Language of the audio. The zero value lets the provider decide,
	// but callers normally pass lang.DefaultCode.
	Language lang.Language
}

// Transcriber transcribes audio files.
// Implementations make exactly one logical attempt per call; retrying is the
// caller's decision.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, opts Options) (Transcript, error)
}

// httpDoer abstracts HTTP client for testing.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ httpDoer = (*http.Client)(nil)

// Provider names a transcription backend.
type Provider string

// Supported providers.
const (
	ProviderAssemblyAI Provider = "assemblyai"
	ProviderOpenAI     Provider = "openai"
)

// DefaultProvider is used when none is configured.
const DefaultProvider = ProviderAssemblyAI

// ParseProvider validates a provider name (case-insensitive).
// An empty name returns DefaultProvider.
func ParseProvider(name string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(name))); p {
	case "":
		return DefaultProvider, nil
	case ProviderAssemblyAI, ProviderOpenAI:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q (use %s or %s)", ErrUnknownProvider, name, ProviderAssemblyAI, ProviderOpenAI)
	}
}

// EnvKey returns the environment variable holding this provider's API key.
func (p Provider) EnvKey() string {
	switch p {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return "ASSEMBLYAI_API_KEY"
	}
}

// normalizeWords trims word text, drops blank words and clamps inverted
// boundaries so that StartMs <= EndMs holds for every word.
func normalizeWords(words []Word) []Word {
	out := words[:0]
	for _, w := range words {
		w.Text = strings.TrimSpace(w.Text)
		if w.Text == "" {
			continue
		}
		if w.StartMs < 0 {
			w.StartMs = 0
		}
		if w.EndMs < w.StartMs {
			w.EndMs = w.StartMs
		}
		out = append(out, w)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// clamp01 bounds a confidence value to [0,1].
func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
