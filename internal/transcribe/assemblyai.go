package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alnah/go-captions/internal/apierr"
	"github.com/alnah/go-captions/internal/lang"
)

// AssemblyAI API configuration.
const (
	assemblyAIBaseURL = "https://api.assemblyai.com"

	// defaultPollInterval is the delay between status checks.
	defaultPollInterval = 3 * time.Second

	// defaultPollTimeout bounds how long a submitted job may stay non-terminal.
	defaultPollTimeout = 30 * time.Minute

	// maxResponseBody caps how much of a response is read into memory.
	maxResponseBody = 32 << 20
)

// AssemblyAI job statuses.
const (
	statusQueued     = "queued"
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusError      = "error"
)

var _ Transcriber = (*AssemblyAI)(nil)

// AssemblyAI transcribes audio with the AssemblyAI v2 REST API:
// upload the file, submit a job, then poll until the job is terminal.
type AssemblyAI struct {
	apiKey       string
	baseURL      string
	httpClient   httpDoer
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// AssemblyAIOption configures an AssemblyAI transcriber.
type AssemblyAIOption func(*AssemblyAI)

// WithAssemblyAIHTTPClient sets a custom HTTP client (for testing).
func WithAssemblyAIHTTPClient(c httpDoer) AssemblyAIOption {
	return func(a *AssemblyAI) {
		a.httpClient = c
	}
}

// WithAssemblyAIBaseURL overrides the API host, e.g. for the EU endpoint.
func WithAssemblyAIBaseURL(u string) AssemblyAIOption {
	return func(a *AssemblyAI) {
		if u != "" {
			a.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithPollInterval sets the delay between status checks.
func WithPollInterval(d time.Duration) AssemblyAIOption {
	return func(a *AssemblyAI) {
		if d > 0 {
			a.pollInterval = d
		}
	}
}

// WithPollTimeout sets how long to wait for a terminal status.
func WithPollTimeout(d time.Duration) AssemblyAIOption {
	return func(a *AssemblyAI) {
		if d > 0 {
			a.pollTimeout = d
		}
	}
}

// NewAssemblyAI creates an AssemblyAI transcriber authenticated with apiKey.
func NewAssemblyAI(apiKey string, opts ...AssemblyAIOption) (*AssemblyAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %w", ProviderAssemblyAI.EnvKey(), ErrAPIKeyMissing)
	}
	a := &AssemblyAI{
		apiKey:       apiKey,
		baseURL:      assemblyAIBaseURL,
		httpClient:   &http.Client{Timeout: 10 * time.Minute},
		pollInterval: defaultPollInterval,
		pollTimeout:  defaultPollTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Transcribe uploads audioPath and waits for the finished transcript.
func (a *AssemblyAI) Transcribe(ctx context.Context, audioPath string, opts Options) (Transcript, error) {
	uploadURL, err := a.upload(ctx, audioPath)
	if err != nil {
		return Transcript{}, fmt.Errorf("upload: %w", err)
	}

	id, err := a.submit(ctx, uploadURL, opts)
	if err != nil {
		return Transcript{}, fmt.Errorf("submit: %w", err)
	}

	job, err := a.wait(ctx, id)
	if err != nil {
		return Transcript{}, err
	}
	return job.transcript(), nil
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

// upload streams the audio file and returns its private URL.
func (a *AssemblyAI) upload(ctx context.Context, audioPath string) (string, error) {
	file, err := os.Open(audioPath) // #nosec G304 -- audioPath is the pipeline's own artifact
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var resp uploadResponse
	if err := a.do(ctx, http.MethodPost, "/v2/upload", "application/octet-stream", file, &resp); err != nil {
		return "", err
	}
	if resp.UploadURL == "" {
		return "", fmt.Errorf("%w: empty upload_url", ErrMalformedResponse)
	}
	return resp.UploadURL, nil
}

type submitRequest struct {
	AudioURL     string `json:"audio_url"`
	LanguageCode string `json:"language_code,omitempty"`
	Punctuate    bool   `json:"punctuate"`
	FormatText   bool   `json:"format_text"`
}

// transcriptJob is the subset of the transcript resource this package reads.
type transcriptJob struct {
	ID         string   `json:"id"`
	Status     string   `json:"status"`
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence"`
	Error      string   `json:"error"`
	Words      []struct {
		Text       string  `json:"text"`
		Start      int64   `json:"start"`
		End        int64   `json:"end"`
		Confidence float64 `json:"confidence"`
	} `json:"words"`
}

// submit creates the transcription job and returns its ID.
func (a *AssemblyAI) submit(ctx context.Context, uploadURL string, opts Options) (string, error) {
	body, err := json.Marshal(submitRequest{
		AudioURL:     uploadURL,
		LanguageCode: assemblyAILanguageCode(opts.Language),
		Punctuate:    true,
		FormatText:   true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	var job transcriptJob
	if err := a.do(ctx, http.MethodPost, "/v2/transcript", "application/json", bytes.NewReader(body), &job); err != nil {
		return "", err
	}
	if job.ID == "" {
		return "", fmt.Errorf("%w: empty transcript id", ErrMalformedResponse)
	}
	return job.ID, nil
}

// wait polls the job until it completes, fails, or the poll budget runs out.
func (a *AssemblyAI) wait(ctx context.Context, id string) (transcriptJob, error) {
	deadline := time.Now().Add(a.pollTimeout)
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		var job transcriptJob
		if err := a.do(ctx, http.MethodGet, "/v2/transcript/"+id, "", nil, &job); err != nil {
			return transcriptJob{}, fmt.Errorf("poll %s: %w", id, err)
		}

		switch job.Status {
		case statusCompleted:
			return job, nil
		case statusError:
			msg := job.Error
			if msg == "" {
				msg = "transcription failed"
			}
			return transcriptJob{}, fmt.Errorf("transcript %s: %s: %w", id, msg, apierr.ErrServiceFailed)
		case statusQueued, statusProcessing:
		default:
			return transcriptJob{}, fmt.Errorf("transcript %s: unexpected status %q: %w", id, job.Status, apierr.ErrServiceFailed)
		}

		// Budget expiry with a non-terminal status is a service failure.
		if time.Now().After(deadline) {
			return transcriptJob{}, fmt.Errorf("transcript %s still %q after %s: %w",
				id, job.Status, a.pollTimeout, apierr.ErrServiceFailed)
		}

		select {
		case <-ctx.Done():
			return transcriptJob{}, fmt.Errorf("transcript %s still %q: %w", id, job.Status, apierr.FromTransport(ctx.Err()))
		case <-ticker.C:
		}
	}
}

// transcript converts a completed job. Timestamps are already milliseconds.
func (j transcriptJob) transcript() Transcript {
	words := make([]Word, 0, len(j.Words))
	for _, w := range j.Words {
		words = append(words, Word{
			Text:       w.Text,
			StartMs:    w.Start,
			EndMs:      w.End,
			Confidence: clamp01(w.Confidence),
		})
	}

	var confidence float64
	if j.Confidence != nil {
		confidence = clamp01(*j.Confidence)
	}
	return Transcript{
		Text:       strings.TrimSpace(j.Text),
		Confidence: confidence,
		Words:      normalizeWords(words),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// do sends one authenticated request and decodes a JSON response into out.
func (a *AssemblyAI) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", a.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return apierr.FromTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return apierr.FromTransport(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp errorResponse
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		return apierr.FromStatus(resp.StatusCode, msg)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// assemblyAIRegional maps the regional English variants AssemblyAI models
// separately. Every other language is sent as its base code.
var assemblyAIRegional = map[string]string{
	"US": "en_us",
	"GB": "en_uk",
	"AU": "en_au",
}

// assemblyAILanguageCode returns the language_code field for l, or "" to
// let the service use its default.
func assemblyAILanguageCode(l lang.Language) string {
	if l.IsZero() {
		return ""
	}
	base := l.BaseCode()
	if base == "en" {
		if code, ok := assemblyAIRegional[l.Region()]; ok {
			return code
		}
	}
	return base
}
