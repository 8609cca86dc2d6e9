package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-captions/internal/config"
	"github.com/alnah/go-captions/internal/logging"
	"github.com/alnah/go-captions/internal/transcribe"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	ffmpegResolver *mockFFmpegResolver
	configLoader   *mockConfigLoader
	transcriber    *mockTranscriberFactory
	extractor      *mockExtractorFactory
	history        *mockHistoryOpener
	locker         *mockLocker
}

func newTestMocks() *testMocks {
	return &testMocks{
		ffmpegResolver: &mockFFmpegResolver{},
		configLoader:   &mockConfigLoader{},
		transcriber:    &mockTranscriberFactory{},
		extractor:      &mockExtractorFactory{},
		history:        &mockHistoryOpener{},
		locker:         &mockLocker{},
	}
}

// ---------------------------------------------------------------------------
// testEnv - creates a fully mocked Env for testing
// ---------------------------------------------------------------------------

// testEnvOptions configures a test environment.
type testEnvOptions struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
	tty    bool
	mocks  *testMocks
}

// testEnvOption configures testEnv.
type testEnvOption func(*testEnvOptions)

func withTestStdout(w io.Writer) testEnvOption {
	return func(o *testEnvOptions) { o.stdout = w }
}

func withTestStderr(w io.Writer) testEnvOption {
	return func(o *testEnvOptions) { o.stderr = w }
}

func withTestGetenv(fn func(string) string) testEnvOption {
	return func(o *testEnvOptions) { o.getenv = fn }
}

func withTestTerminal() testEnvOption {
	return func(o *testEnvOptions) { o.tty = true }
}

// testEnv creates a test Env with all dependencies mocked.
// Returns the Env and the mocks for assertions.
func testEnv(opts ...testEnvOption) (*Env, *testMocks) {
	options := &testEnvOptions{
		stdout: &syncBuffer{},
		stderr: &syncBuffer{},
		getenv: defaultTestEnv,
		mocks:  newTestMocks(),
	}

	for _, opt := range opts {
		opt(options)
	}

	env := &Env{
		Stdout:             options.stdout,
		Stderr:             options.stderr,
		Getenv:             options.getenv,
		Now:                fixedTime(time.Date(2026, 1, 26, 14, 30, 52, 0, time.UTC)),
		IsTerminal:         func(io.Writer) bool { return options.tty },
		Logger:             logging.Discard(),
		FFmpegResolver:     options.mocks.ffmpegResolver,
		ConfigLoader:       options.mocks.configLoader,
		TranscriberFactory: options.mocks.transcriber,
		ExtractorFactory:   options.mocks.extractor,
		HistoryOpener:      options.mocks.history,
		Locker:             options.mocks.locker,
	}

	return env, options.mocks
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// fixedTime returns a function that always returns the given time.
func fixedTime(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// staticEnv returns a getenv function that returns values from the given map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

// defaultTestEnv returns API keys for both providers.
func defaultTestEnv(key string) string {
	switch key {
	case transcribe.ProviderAssemblyAI.EnvKey():
		return "test-assemblyai-key"
	case transcribe.ProviderOpenAI.EnvKey():
		return "test-openai-key"
	default:
		return ""
	}
}

// threeWords is a short transcript that fits in one cue.
func threeWords() transcribe.Transcript {
	return transcribe.Transcript{
		Text:       "Hello caption world",
		Confidence: 0.875,
		Words: []transcribe.Word{
			{Text: "Hello", StartMs: 0, EndMs: 400},
			{Text: "caption", StartMs: 400, EndMs: 900},
			{Text: "world", StartMs: 900, EndMs: 1500},
		},
	}
}

// createTestVideo creates a placeholder video file in a fresh temp dir.
func createTestVideo(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("fake video content"), 0o644); err != nil {
		t.Fatalf("failed to create test video: %v", err)
	}
	return path
}

// configWith returns a ConfigLoader that returns cfg.
func configWith(cfg config.Config) *mockConfigLoader {
	return &mockConfigLoader{
		LoadFunc: func() (config.Config, error) {
			return cfg, nil
		},
	}
}

// trimExt strips the extension of path.
func trimExt(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// isolateConfig points the config file at a temp dir.
// NO t.Parallel() in callers - uses t.Setenv
func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, env := range []string{config.EnvLanguage, config.EnvProvider, config.EnvOutputDir} {
		t.Setenv(env, "")
	}
	return dir
}
