package cli

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/alnah/go-captions/internal/audio"
	"github.com/alnah/go-captions/internal/config"
	"github.com/alnah/go-captions/internal/history"
	"github.com/alnah/go-captions/internal/pipeline"
	"github.com/alnah/go-captions/internal/transcribe"
)

// ---------------------------------------------------------------------------
// Mock FFmpegResolver
// ---------------------------------------------------------------------------

type mockFFmpegResolver struct {
	ResolveFunc func(ctx context.Context) (string, error)

	mu                sync.Mutex
	resolveCalls      int
	checkVersionCalls int
}

func (m *mockFFmpegResolver) Resolve(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.resolveCalls++
	m.mu.Unlock()

	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx)
	}
	return "/usr/bin/ffmpeg", nil
}

func (m *mockFFmpegResolver) CheckVersion(_ context.Context, _ string, _ *slog.Logger) {
	m.mu.Lock()
	m.checkVersionCalls++
	m.mu.Unlock()
}

func (m *mockFFmpegResolver) ResolveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveCalls
}

func (m *mockFFmpegResolver) CheckVersionCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkVersionCalls
}

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	LoadFunc func() (config.Config, error)

	mu        sync.Mutex
	loadCalls int
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	m.mu.Lock()
	m.loadCalls++
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return config.Config{}, nil
}

func (m *mockConfigLoader) LoadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCalls
}

// ---------------------------------------------------------------------------
// Mock TranscriberFactory + Transcriber
// ---------------------------------------------------------------------------

type mockTranscriber struct {
	TranscribeFunc func(ctx context.Context, audioPath string, opts transcribe.Options) (transcribe.Transcript, error)

	mu       sync.Mutex
	calls    int
	lastOpts transcribe.Options
}

func (m *mockTranscriber) Transcribe(ctx context.Context, audioPath string, opts transcribe.Options) (transcribe.Transcript, error) {
	m.mu.Lock()
	m.calls++
	m.lastOpts = opts
	m.mu.Unlock()

	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, audioPath, opts)
	}
	return threeWords(), nil
}

func (m *mockTranscriber) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockTranscriber) LastOpts() transcribe.Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastOpts
}

type mockTranscriberFactory struct {
	NewTranscriberFunc func(p transcribe.Provider, apiKey string) (transcribe.Transcriber, error)
	transcriber        *mockTranscriber

	mu           sync.Mutex
	lastProvider transcribe.Provider
	lastAPIKey   string
}

func (m *mockTranscriberFactory) NewTranscriber(p transcribe.Provider, apiKey string) (transcribe.Transcriber, error) {
	m.mu.Lock()
	m.lastProvider = p
	m.lastAPIKey = apiKey
	m.mu.Unlock()

	if m.NewTranscriberFunc != nil {
		return m.NewTranscriberFunc(p, apiKey)
	}
	return m.Transcriber(), nil
}

// Transcriber returns the mock handed out by default, creating it on first use.
func (m *mockTranscriberFactory) Transcriber() *mockTranscriber {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transcriber == nil {
		m.transcriber = &mockTranscriber{}
	}
	return m.transcriber
}

func (m *mockTranscriberFactory) LastProvider() transcribe.Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastProvider
}

func (m *mockTranscriberFactory) LastAPIKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAPIKey
}

// ---------------------------------------------------------------------------
// Mock ExtractorFactory + Extractor
// ---------------------------------------------------------------------------

type mockExtractor struct {
	ExtractFunc func(ctx context.Context, videoPath, audioPath string) error

	mu    sync.Mutex
	calls int
}

// Extract writes a placeholder MP3 unless ExtractFunc overrides it.
func (m *mockExtractor) Extract(ctx context.Context, videoPath, audioPath string) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, videoPath, audioPath)
	}
	return os.WriteFile(audioPath, []byte("ID3"), 0o644)
}

func (m *mockExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockExtractorFactory struct {
	NewExtractorFunc func(ffmpegPath string, onProgress audio.ProgressFunc) (pipeline.Extractor, error)
	extractor        *mockExtractor

	mu             sync.Mutex
	lastFFmpegPath string
	gotProgress    bool
}

func (m *mockExtractorFactory) NewExtractor(ffmpegPath string, onProgress audio.ProgressFunc) (pipeline.Extractor, error) {
	m.mu.Lock()
	m.lastFFmpegPath = ffmpegPath
	m.gotProgress = onProgress != nil
	m.mu.Unlock()

	if m.NewExtractorFunc != nil {
		return m.NewExtractorFunc(ffmpegPath, onProgress)
	}
	return m.Extractor(), nil
}

// Extractor returns the mock handed out by default, creating it on first use.
func (m *mockExtractorFactory) Extractor() *mockExtractor {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.extractor == nil {
		m.extractor = &mockExtractor{}
	}
	return m.extractor
}

func (m *mockExtractorFactory) LastFFmpegPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastFFmpegPath
}

func (m *mockExtractorFactory) GotProgress() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gotProgress
}

// ---------------------------------------------------------------------------
// Mock HistoryOpener + HistoryStore
// ---------------------------------------------------------------------------

type mockHistoryStore struct {
	RecordErr error
	ListErr   error

	mu       sync.Mutex
	runs     []history.Run
	closed   bool
	lastList int
}

func (m *mockHistoryStore) Record(_ context.Context, run history.Run) (history.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RecordErr != nil {
		return history.Run{}, m.RecordErr
	}
	m.runs = append(m.runs, run)
	return run, nil
}

func (m *mockHistoryStore) List(_ context.Context, limit int) ([]history.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastList = limit
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return append([]history.Run(nil), m.runs...), nil
}

func (m *mockHistoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockHistoryStore) Runs() []history.Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]history.Run(nil), m.runs...)
}

func (m *mockHistoryStore) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockHistoryStore) LastListLimit() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastList
}

type mockHistoryOpener struct {
	OpenErr error
	store   *mockHistoryStore

	mu    sync.Mutex
	opens int
}

func (m *mockHistoryOpener) Open(_ context.Context) (HistoryStore, error) {
	m.mu.Lock()
	m.opens++
	m.mu.Unlock()

	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	return m.Store(), nil
}

// Store returns the store handed out by Open, creating it on first use.
func (m *mockHistoryOpener) Store() *mockHistoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		m.store = &mockHistoryStore{}
	}
	return m.store
}

func (m *mockHistoryOpener) OpenCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

// ---------------------------------------------------------------------------
// Mock InputLocker
// ---------------------------------------------------------------------------

type mockLocker struct {
	LockFunc func(path string) (func() error, error)

	mu       sync.Mutex
	locked   []string
	unlocked int
}

func (m *mockLocker) Lock(path string) (func() error, error) {
	if m.LockFunc != nil {
		if _, err := m.LockFunc(path); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	m.locked = append(m.locked, path)
	m.mu.Unlock()

	return func() error {
		m.mu.Lock()
		m.unlocked++
		m.mu.Unlock()
		return nil
	}, nil
}

func (m *mockLocker) Locked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.locked...)
}

func (m *mockLocker) Unlocked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unlocked
}

// Compile-time interface verification.
var (
	_ FFmpegResolver         = (*mockFFmpegResolver)(nil)
	_ ConfigLoader           = (*mockConfigLoader)(nil)
	_ TranscriberFactory     = (*mockTranscriberFactory)(nil)
	_ transcribe.Transcriber = (*mockTranscriber)(nil)
	_ ExtractorFactory       = (*mockExtractorFactory)(nil)
	_ pipeline.Extractor     = (*mockExtractor)(nil)
	_ HistoryOpener          = (*mockHistoryOpener)(nil)
	_ HistoryStore           = (*mockHistoryStore)(nil)
	_ InputLocker            = (*mockLocker)(nil)
)
