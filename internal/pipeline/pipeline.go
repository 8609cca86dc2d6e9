// Package pipeline runs one video through extraction, transcription, cue
// chunking and caption emission, then removes the intermediate audio.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/alnah/go-captions/internal/apierr"
	"github.com/alnah/go-captions/internal/audio"
	"github.com/alnah/go-captions/internal/caption"
	"github.com/alnah/go-captions/internal/format"
	"github.com/alnah/go-captions/internal/lang"
	"github.com/alnah/go-captions/internal/logging"
	"github.com/alnah/go-captions/internal/transcribe"
)

// Extractor writes the audio track of videoPath to audioPath.
// *audio.Extractor implements it.
type Extractor interface {
	Extract(ctx context.Context, videoPath, audioPath string) error
}

var _ Extractor = (*audio.Extractor)(nil)

// Config is the per-run configuration.
type Config struct {
	// LanguageCode is a BCP 47 tag such as "en" or "pt-BR". Empty means "en".
	LanguageCode string
}

func (c Config) languageCode() string {
	if c.LanguageCode == "" {
		return lang.DefaultCode
	}
	return c.LanguageCode
}

// Output describes a successful run.
type Output struct {
	Success    bool
	RunID      string
	SRTPath    string
	VTTPath    string
	Transcript string
	Confidence float64 // Raw fraction in [0, 1].
	WordCount  int
	CueCount   int
	Duration   time.Duration
}

// Pipeline orchestrates single runs. It holds no per-run state and is safe
// for concurrent use when its extractor and transcriber are.
type Pipeline struct {
	extractor   Extractor
	transcriber transcribe.Transcriber
	paths       PathFunc
	observer    func(Stage)
	logger      *slog.Logger
	files       fileSystem
	now         func() time.Time
	newID       func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPaths sets how artifact paths derive from the video path.
func WithPaths(fn PathFunc) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.paths = fn
		}
	}
}

// WithOutputDir writes every artifact into dir.
func WithOutputDir(dir string) Option {
	return WithPaths(OutputDir(dir))
}

// WithStageObserver registers fn to be called on every stage transition.
// fn runs synchronously on the run's goroutine.
func WithStageObserver(fn func(Stage)) Option {
	return func(p *Pipeline) {
		p.observer = fn
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// withFileSystem sets the filesystem (for testing).
func withFileSystem(fsys fileSystem) Option {
	return func(p *Pipeline) {
		p.files = fsys
	}
}

// New creates a Pipeline.
func New(extractor Extractor, transcriber transcribe.Transcriber, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:   extractor,
		transcriber: transcriber,
		paths:       SiblingPath,
		logger:      logging.Discard(),
		files:       osFileSystem{},
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run carries the state of one Generate call.
type run struct {
	p         *Pipeline
	id        string
	logger    *slog.Logger
	audioPath string
	extracted bool // ffmpeg ran; the audio artifact may exist.
}

func (r *run) enter(s Stage) {
	r.logger.Debug("stage", "stage", s.String())
	if r.p.observer != nil {
		r.p.observer(s)
	}
}

// fail cleans up after a failed stage and returns the tagged error.
func (r *run) fail(ctx context.Context, stage Stage, kind, err error) error {
	se := &StageError{Stage: stage, Kind: kind, Err: err}
	if r.extracted {
		se.CleanupErr = r.cleanup()
	}
	r.logger.LogAttrs(ctx, slog.LevelError, "run failed",
		slog.String("stage", stage.String()), slog.String("kind", kind.Error()), slog.Any("error", err))
	r.enter(StageFailed)
	return se
}

// cleanup removes the audio artifact. A missing file is not a failure:
// the extractor discards its own partial output.
func (r *run) cleanup() error {
	err := r.p.files.Remove(r.audioPath)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	r.logger.Warn("failed to remove audio artifact", "path", r.audioPath, "error", err)
	return fmt.Errorf("remove %s: %w", r.audioPath, err)
}

// Generate produces <base>.srt and <base>.vtt for videoPath.
//
// On failure the error is a *StageError whose Kind is one of ErrExtraction,
// ErrTranscription, ErrTransient, ErrIO or ErrInvalidConfig. The audio
// artifact never outlives the call, whatever the outcome.
func (p *Pipeline) Generate(ctx context.Context, videoPath string, cfg Config) (Output, error) {
	started := p.now()
	r := &run{p: p, id: p.newID()}
	r.logger = p.logger.With("run_id", r.id, "video", videoPath)
	r.enter(StageIdle)

	language, err := lang.Parse(cfg.languageCode())
	if err != nil {
		return Output{}, r.fail(ctx, StageIdle, ErrInvalidConfig, err)
	}

	r.audioPath = p.paths(videoPath, audio.AudioExt)
	srtPath := p.paths(videoPath, caption.FormatSRT.Extension())
	vttPath := p.paths(videoPath, caption.FormatVTT.Extension())

	// Extracting
	r.enter(StageExtracting)
	if err := checkArtifactPaths(videoPath, r.audioPath, srtPath, vttPath); err != nil {
		return Output{}, r.fail(ctx, StageExtracting, ErrIO, err)
	}
	if err := p.prepareDirs(r.audioPath, srtPath, vttPath); err != nil {
		return Output{}, r.fail(ctx, StageExtracting, ErrIO, err)
	}
	if err := p.extractor.Extract(ctx, videoPath, r.audioPath); err != nil {
		r.extracted = !errors.Is(err, audio.ErrNotStarted)
		return Output{}, r.fail(ctx, StageExtracting, extractionKind(ctx, err), err)
	}
	r.extracted = true

	// Transcribing
	r.enter(StageTranscribing)
	tr, err := p.transcriber.Transcribe(ctx, r.audioPath, transcribe.Options{Language: language})
	if err != nil {
		return Output{}, r.fail(ctx, StageTranscribing, transcriptionKind(err), err)
	}
	r.logger.Info("transcribed",
		"words", tr.WordCount(), "confidence", format.Percent(tr.Confidence))

	// Chunking
	r.enter(StageChunking)
	cues := caption.Chunk(tr.Words, caption.DefaultLimits)

	// Emitting
	r.enter(StageEmitting)
	written, err := p.emit(cues, srtPath, vttPath)
	if err != nil {
		return Output{}, r.fail(ctx, StageEmitting, ErrIO, err)
	}

	// Cleanup. A failure here is logged and the run still succeeds.
	r.enter(StageCleanup)
	_ = r.cleanup()

	out := Output{
		Success:    true,
		RunID:      r.id,
		SRTPath:    srtPath,
		VTTPath:    vttPath,
		Transcript: tr.Text,
		Confidence: tr.Confidence,
		WordCount:  tr.WordCount(),
		CueCount:   len(cues),
		Duration:   p.now().Sub(started),
	}
	r.logger.Info("captions written",
		"srt", srtPath, "vtt", vttPath, "cues", out.CueCount,
		"size", format.Size(written), "elapsed", format.Duration(out.Duration))
	r.enter(StageDone)
	return out, nil
}

// checkArtifactPaths rejects derived paths that would overwrite the source.
func checkArtifactPaths(videoPath string, artifacts ...string) error {
	src := filepath.Clean(videoPath)
	for _, path := range artifacts {
		if filepath.Clean(path) == src {
			return fmt.Errorf("artifact path %s is the source video", path)
		}
	}
	return nil
}

// prepareDirs creates the parent directories of every artifact.
func (p *Pipeline) prepareDirs(paths ...string) error {
	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		dir := filepath.Dir(path)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if err := p.files.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return nil
}

// emit renders both documents, then writes them, and returns the bytes
// written. If the second write fails, the first file is removed so no
// partial pair survives.
func (p *Pipeline) emit(cues []caption.Cue, srtPath, vttPath string) (int64, error) {
	srt := []byte(caption.SRT(cues))
	vtt := []byte(caption.VTT(cues))

	if err := p.files.WriteFileAtomic(srtPath, srt); err != nil {
		return 0, fmt.Errorf("write %s: %w", srtPath, err)
	}
	if err := p.files.WriteFileAtomic(vttPath, vtt); err != nil {
		if rmErr := p.files.Remove(srtPath); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			return 0, fmt.Errorf("write %s: %w (and remove %s: %v)", vttPath, err, srtPath, rmErr)
		}
		return 0, fmt.Errorf("write %s: %w", vttPath, err)
	}
	return int64(len(srt) + len(vtt)), nil
}

// extractionKind reports an interrupted extraction as transient.
func extractionKind(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrTransient
	}
	return ErrExtraction
}

// transcriptionKind separates retryable conditions from service rejections.
func transcriptionKind(err error) error {
	if apierr.IsTransient(err) {
		return ErrTransient
	}
	return ErrTranscription
}
