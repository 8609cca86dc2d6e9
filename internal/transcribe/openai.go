package transcribe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-captions/internal/apierr"
)

// ModelWhisper1 is the only OpenAI model that returns word timestamps.
const ModelWhisper1 = openai.Whisper1

// audioTranscriber is an internal interface for OpenAI audio transcription.
// *openai.Client implements this implicitly.
// This allows injecting mocks in tests.
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Transcriber      = (*OpenAI)(nil)
	_ audioTranscriber = (*openai.Client)(nil)
)

// OpenAI transcribes audio with OpenAI's Whisper API, requesting verbose JSON
// with word-level timestamps.
type OpenAI struct {
	client  audioTranscriber
	apiKey  string
	baseURL string
	model   string
}

// OpenAIOption configures an OpenAI transcriber.
type OpenAIOption func(*OpenAI)

// WithOpenAIBaseURL points the client at a compatible API host.
func WithOpenAIBaseURL(u string) OpenAIOption {
	return func(o *OpenAI) {
		o.baseURL = u
	}
}

// NewOpenAI creates an OpenAI transcriber authenticated with apiKey.
func NewOpenAI(apiKey string, opts ...OpenAIOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %w", ProviderOpenAI.EnvKey(), ErrAPIKeyMissing)
	}
	o := &OpenAI{apiKey: apiKey, model: ModelWhisper1}
	for _, opt := range opts {
		opt(o)
	}
	if o.client == nil {
		cfg := openai.DefaultConfig(apiKey)
		if o.baseURL != "" {
			cfg.BaseURL = o.baseURL
		}
		o.client = openai.NewClientWithConfig(cfg)
	}
	return o, nil
}

// Transcribe sends audioPath in a single request.
func (o *OpenAI) Transcribe(ctx context.Context, audioPath string, opts Options) (Transcript, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return Transcript{}, fmt.Errorf("failed to open audio file: %w", err)
	}

	req := openai.AudioRequest{
		Model:    o.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: opts.Language.BaseCode(), // OpenAI only accepts ISO 639-1 base codes
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
			openai.TranscriptionTimestampGranularitySegment,
		},
	}

	resp, err := o.client.CreateTranscription(ctx, req)
	if err != nil {
		return Transcript{}, classifyError(err)
	}
	return fromAudioResponse(resp), nil
}

// fromAudioResponse converts a verbose_json response.
func fromAudioResponse(resp openai.AudioResponse) Transcript {
	words := make([]Word, 0, len(resp.Words))
	for _, w := range resp.Words {
		words = append(words, Word{
			Text:    w.Word,
			StartMs: secondsToMs(w.Start),
			EndMs:   secondsToMs(w.End),
		})
	}

	var confidence float64
	if n := len(resp.Segments); n > 0 {
		var sum float64
		for _, s := range resp.Segments {
			sum += math.Exp(s.AvgLogprob)
		}
		confidence = clamp01(sum / float64(n))
	}

	// Some models ignore the word granularity; spread each segment's words
	// across its span so captions still carry timing.
	if len(words) == 0 {
		for _, s := range resp.Segments {
			words = append(words, spreadSegment(s.Text, secondsToMs(s.Start), secondsToMs(s.End))...)
		}
	}

	return Transcript{
		Text:       strings.TrimSpace(resp.Text),
		Confidence: confidence,
		Words:      normalizeWords(words),
	}
}

// spreadSegment splits text on whitespace and assigns each word a slice of
// [startMs, endMs] proportional to its rune length.
func spreadSegment(text string, startMs, endMs int64) []Word {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	total := 0
	for _, f := range fields {
		total += utf8.RuneCountInString(f)
	}
	span := max(endMs-startMs, 0)

	words := make([]Word, len(fields))
	cursor, consumed := startMs, 0
	for i, f := range fields {
		consumed += utf8.RuneCountInString(f)
		end := startMs + span*int64(consumed)/int64(total)
		words[i] = Word{Text: f, StartMs: cursor, EndMs: end}
		cursor = end
	}
	return words
}

func secondsToMs(s float64) int64 {
	return int64(math.Round(s * 1000))
}

// classifyError maps OpenAI client errors to apierr sentinels.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if classified := apierr.FromStatus(apiErr.HTTPStatusCode, apiErr.Message); classified != nil {
			return classified
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		msg := ""
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		if classified := apierr.FromStatus(reqErr.HTTPStatusCode, msg); classified != nil {
			return classified
		}
	}

	return apierr.FromTransport(err)
}
