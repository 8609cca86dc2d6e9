package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alnah/go-captions/internal/audio"
	"github.com/alnah/go-captions/internal/config"
	"github.com/alnah/go-captions/internal/ffmpeg"
	"github.com/alnah/go-captions/internal/history"
	"github.com/alnah/go-captions/internal/logging"
	"github.com/alnah/go-captions/internal/pipeline"
	"github.com/alnah/go-captions/internal/transcribe"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
//
// Env must not be nil when passed to command functions. Use DefaultEnv()
// or NewEnv() to create a valid instance.
type Env struct {
	// I/O and environment
	Stdout     io.Writer
	Stderr     io.Writer
	Getenv     func(string) string
	Now        func() time.Time
	IsTerminal func(io.Writer) bool

	// Logger receives structured diagnostics. The root command replaces it
	// once the logging flags are parsed.
	Logger *slog.Logger

	// Factories for domain objects
	FFmpegResolver     FFmpegResolver
	ConfigLoader       ConfigLoader
	TranscriberFactory TranscriberFactory
	ExtractorFactory   ExtractorFactory
	HistoryOpener      HistoryOpener
	Locker             InputLocker
}

// FFmpegResolver resolves the path to the FFmpeg binary.
type FFmpegResolver interface {
	Resolve(ctx context.Context) (string, error)
	CheckVersion(ctx context.Context, ffmpegPath string, logger *slog.Logger)
}

// ConfigLoader loads and provides access to configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// TranscriberFactory creates speech-to-text clients.
type TranscriberFactory interface {
	NewTranscriber(p transcribe.Provider, apiKey string) (transcribe.Transcriber, error)
}

// ExtractorFactory creates audio extractors.
// onProgress may be nil.
type ExtractorFactory interface {
	NewExtractor(ffmpegPath string, onProgress audio.ProgressFunc) (pipeline.Extractor, error)
}

// HistoryStore records and lists past runs.
type HistoryStore interface {
	Record(ctx context.Context, run history.Run) (history.Run, error)
	List(ctx context.Context, limit int) ([]history.Run, error)
	Close() error
}

// HistoryOpener opens the run history database.
type HistoryOpener interface {
	Open(ctx context.Context) (HistoryStore, error)
}

// InputLocker takes an exclusive, non-blocking lock on an input path so two
// processes never caption the same video at once.
type InputLocker interface {
	Lock(path string) (unlock func() error, err error)
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) {
		e.Now = fn
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) EnvOption {
	return func(e *Env) {
		e.Logger = l
	}
}

// WithFFmpegResolver sets the FFmpeg resolver.
func WithFFmpegResolver(r FFmpegResolver) EnvOption {
	return func(e *Env) {
		e.FFmpegResolver = r
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) {
		e.ConfigLoader = l
	}
}

// WithTranscriberFactory sets the transcriber factory.
func WithTranscriberFactory(f TranscriberFactory) EnvOption {
	return func(e *Env) {
		e.TranscriberFactory = f
	}
}

// WithExtractorFactory sets the extractor factory.
func WithExtractorFactory(f ExtractorFactory) EnvOption {
	return func(e *Env) {
		e.ExtractorFactory = f
	}
}

// WithHistoryOpener sets how the history database is opened.
func WithHistoryOpener(o HistoryOpener) EnvOption {
	return func(e *Env) {
		e.HistoryOpener = o
	}
}

// WithLocker sets the input locker.
func WithLocker(l InputLocker) EnvOption {
	return func(e *Env) {
		e.Locker = l
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:             os.Stdout,
		Stderr:             os.Stderr,
		Getenv:             os.Getenv,
		Now:                time.Now,
		IsTerminal:         logging.IsTerminal,
		Logger:             logging.Discard(),
		FFmpegResolver:     &defaultFFmpegResolver{},
		ConfigLoader:       &defaultConfigLoader{},
		TranscriberFactory: &defaultTranscriberFactory{},
		ExtractorFactory:   &defaultExtractorFactory{},
		HistoryOpener:      &defaultHistoryOpener{},
		Locker:             newFileLocker(os.TempDir()),
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// logger returns Logger, or a discarding logger when none is set.
func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return logging.Discard()
	}
	return e.Logger
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultFFmpegResolver implements FFmpegResolver using the ffmpeg package.
type defaultFFmpegResolver struct{}

func (defaultFFmpegResolver) Resolve(ctx context.Context) (string, error) {
	return ffmpeg.Resolve(ctx)
}

func (defaultFFmpegResolver) CheckVersion(ctx context.Context, ffmpegPath string, logger *slog.Logger) {
	ffmpeg.CheckVersion(ctx, ffmpegPath, logger)
}

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

// defaultTranscriberFactory implements TranscriberFactory using the transcribe package.
type defaultTranscriberFactory struct{}

func (defaultTranscriberFactory) NewTranscriber(p transcribe.Provider, apiKey string) (transcribe.Transcriber, error) {
	return transcribe.New(p, apiKey)
}

// defaultExtractorFactory implements ExtractorFactory using the audio package.
type defaultExtractorFactory struct{}

func (defaultExtractorFactory) NewExtractor(ffmpegPath string, onProgress audio.ProgressFunc) (pipeline.Extractor, error) {
	var opts []audio.ExtractorOption
	if onProgress != nil {
		opts = append(opts, audio.WithProgress(onProgress))
	}
	return audio.NewExtractor(ffmpegPath, opts...)
}

// defaultHistoryOpener opens the SQLite history at its default location.
type defaultHistoryOpener struct{}

func (defaultHistoryOpener) Open(ctx context.Context) (HistoryStore, error) {
	path, err := history.DefaultPath()
	if err != nil {
		return nil, err
	}
	return history.Open(ctx, path)
}

// Compile-time interface verification.
var (
	_ FFmpegResolver     = (*defaultFFmpegResolver)(nil)
	_ ConfigLoader       = (*defaultConfigLoader)(nil)
	_ TranscriberFactory = (*defaultTranscriberFactory)(nil)
	_ ExtractorFactory   = (*defaultExtractorFactory)(nil)
	_ HistoryOpener      = (*defaultHistoryOpener)(nil)
	_ HistoryStore       = (*history.Store)(nil)
	_ InputLocker        = (*fileLocker)(nil)
)
