package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-captions/internal/audio"
	"github.com/alnah/go-captions/internal/config"
	"github.com/alnah/go-captions/internal/format"
	"github.com/alnah/go-captions/internal/history"
	"github.com/alnah/go-captions/internal/lang"
	"github.com/alnah/go-captions/internal/pipeline"
	"github.com/alnah/go-captions/internal/transcribe"
)

// Parallel bounds for batch runs.
const (
	defaultParallel = 2
	maxParallel     = 8
)

// clampParallel constrains the number of concurrent runs to [1, maxParallel].
func clampParallel(n int) int {
	return min(max(n, 1), maxParallel)
}

// generateOptions holds the parsed flags of the generate command.
type generateOptions struct {
	Language  string
	Provider  string
	OutputDir string
	Parallel  int
	NoHistory bool
}

// GenerateCmd creates the generate command.
// The env parameter provides injectable dependencies for testing.
func GenerateCmd(env *Env) *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate <video>...",
		Short: "Generate SRT and WebVTT captions for videos",
		Long: `Generate SRT and WebVTT captions for one or more videos.

The audio track is extracted with FFmpeg, transcribed by a speech-to-text
provider, and split into cues of at most 8 words and 42 characters.
Captions are written next to each video (or into --output-dir) as
<name>.srt and <name>.vtt. The temporary audio file is always removed.

Providers: assemblyai (ASSEMBLYAI_API_KEY), openai (OPENAI_API_KEY)
Supported formats: mp4, mov, avi, mkv`,
		Example: `  captions generate talk.mp4
  captions generate talk.mp4 -l fr
  captions generate *.mkv --output-dir ~/captions -p 4
  captions generate interview.mov --provider openai`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), env, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Language, "language", "l", "", "Spoken language (BCP 47, e.g. en, fr, pt-BR; default: en)")
	cmd.Flags().StringVar(&opts.Provider, "provider", "", "Speech-to-text provider: assemblyai, openai (default: assemblyai)")
	cmd.Flags().StringVarP(&opts.OutputDir, "output-dir", "o", "", "Directory for caption files (default: next to each video)")
	cmd.Flags().IntVarP(&opts.Parallel, "parallel", "p", defaultParallel, fmt.Sprintf("Videos processed concurrently (1-%d)", maxParallel))
	cmd.Flags().BoolVar(&opts.NoHistory, "no-history", false, "Do not record runs in the history database")

	return cmd
}

// runGenerate captions every video.
// Validation order: files exist -> formats -> language -> provider -> output dir -> API key
func runGenerate(ctx context.Context, env *Env, videos []string, opts generateOptions) error {
	// === VALIDATION (fail-fast) ===

	if len(videos) == 0 {
		return ErrNoInputs
	}

	// 1-2. Files exist and are supported videos
	for _, v := range videos {
		if err := validateInput(v); err != nil {
			return err
		}
	}

	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: failed to load config: %v\n", err)
	}

	// 3. Language: flag, then config, then default
	language := lang.Default
	if code := firstNonEmpty(opts.Language, cfg.Language); code != "" {
		if language, err = lang.Parse(code); err != nil {
			return err
		}
	}

	// 4. Provider
	provider, err := transcribe.ParseProvider(firstNonEmpty(opts.Provider, cfg.Provider))
	if err != nil {
		return err
	}

	// 5. Output directory
	outputDir := config.ExpandPath(firstNonEmpty(opts.OutputDir, cfg.OutputDir))
	if outputDir != "" {
		if err := config.EnsureOutputDir(outputDir); err != nil {
			return fmt.Errorf("invalid output-dir: %w", err)
		}
	}

	// 6. API key
	apiKey := env.Getenv(provider.EnvKey())
	if apiKey == "" {
		return fmt.Errorf("%w (set it with: export %s=...)", ErrAPIKeyMissing, provider.EnvKey())
	}

	parallel := clampParallel(opts.Parallel)

	// === SETUP ===

	ffmpegPath, err := env.FFmpegResolver.Resolve(ctx)
	if err != nil {
		return err
	}
	env.FFmpegResolver.CheckVersion(ctx, ffmpegPath, env.logger())

	transcriber, err := env.TranscriberFactory.NewTranscriber(provider, apiKey)
	if err != nil {
		return err
	}

	unlock, err := lockInputs(env.Locker, videos)
	if err != nil {
		return err
	}
	defer unlock()

	single := len(videos) == 1
	pipeOpts := []pipeline.Option{
		pipeline.WithOutputDir(outputDir),
		pipeline.WithLogger(env.logger()),
	}

	var onProgress audio.ProgressFunc
	if single {
		rep := newReporter(env.Stderr, env.IsTerminal != nil && env.IsTerminal(env.Stderr))
		pipeOpts = append(pipeOpts, pipeline.WithStageObserver(rep.Stage))
		onProgress = rep.Progress()
	} else {
		fmt.Fprintf(env.Stderr, "Generating captions for %d videos in %s (%d at a time, %s)...\n",
			len(videos), language.DisplayName(), parallel, provider)
	}

	extractor, err := env.ExtractorFactory.NewExtractor(ffmpegPath, onProgress)
	if err != nil {
		return err
	}

	p := pipeline.New(extractor, transcriber, pipeOpts...)

	// === RUN ===

	results := p.GenerateAll(ctx, videos, pipeline.Config{LanguageCode: language.String()}, parallel)

	recordHistory(ctx, env, results, language, provider, opts.NoHistory)

	return summarize(env, results)
}

// validateInput checks that path exists, is a regular file, and has a
// supported video extension.
func validateInput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("cannot access input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}
	if !audio.IsSupportedVideo(path) {
		return fmt.Errorf("unsupported format %q (supported: mp4, mov, avi, mkv): %w",
			strings.ToLower(filepath.Ext(path)), ErrUnsupportedFormat)
	}
	return nil
}

// lockInputs locks every input. On failure, locks already taken are
// released. The returned func releases all locks.
func lockInputs(l InputLocker, videos []string) (func(), error) {
	unlocks := make([]func() error, 0, len(videos))
	release := func() {
		for _, u := range unlocks {
			_ = u()
		}
	}

	seen := make(map[string]bool, len(videos))
	for _, v := range videos {
		abs, err := filepath.Abs(v)
		if err != nil {
			release()
			return nil, fmt.Errorf("resolve %s: %w", v, err)
		}
		// Repeated inputs are reported by the pipeline, not as busy.
		if seen[abs] {
			continue
		}
		seen[abs] = true

		u, err := l.Lock(abs)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, u)
	}
	return release, nil
}

// recordHistory stores one row per result. History failures never fail
// the command.
func recordHistory(ctx context.Context, env *Env, results []pipeline.BatchResult, language lang.Language, provider transcribe.Provider, disabled bool) {
	if disabled || env.HistoryOpener == nil {
		return
	}

	// Record even when the run was interrupted.
	ctx = context.WithoutCancel(ctx)

	store, err := env.HistoryOpener.Open(ctx)
	if err != nil {
		env.logger().Warn("history unavailable", "error", err)
		return
	}
	defer func() { _ = store.Close() }()

	for _, r := range results {
		if _, err := store.Record(ctx, historyRun(r, language, provider)); err != nil {
			env.logger().Warn("failed to record run", "video", r.VideoPath, "error", err)
		}
	}
}

// historyRun converts a batch result into a history row.
func historyRun(r pipeline.BatchResult, language lang.Language, provider transcribe.Provider) history.Run {
	run := history.Run{
		ID:        r.Output.RunID,
		VideoPath: r.VideoPath,
		Language:  language.String(),
		Provider:  string(provider),
	}
	if r.Err == nil {
		run.Status = history.StatusSucceeded
		run.SRTPath = r.Output.SRTPath
		run.VTTPath = r.Output.VTTPath
		run.WordCount = r.Output.WordCount
		run.CueCount = r.Output.CueCount
		run.Confidence = r.Output.Confidence
		run.Duration = r.Output.Duration
		return run
	}

	run.Status = history.StatusFailed
	run.Error = r.Err.Error()
	var se *pipeline.StageError
	if errors.As(r.Err, &se) {
		run.Stage = se.Stage.String()
		if se.Kind != nil {
			run.ErrorKind = se.Kind.Error()
		}
	}
	return run
}

// summarize prints one line per video and returns the first failure.
// Batch failures are wrapped with a count so the exit code still reflects
// the first failure's kind.
func summarize(env *Env, results []pipeline.BatchResult) error {
	var (
		firstErr error
		failed   int
	)
	for _, r := range results {
		if r.Err != nil {
			failed++
			if firstErr == nil {
				firstErr = r.Err
			}
			if len(results) > 1 {
				fmt.Fprintf(env.Stderr, "Failed: %s: %v\n", r.VideoPath, r.Err)
			}
			continue
		}
		o := r.Output
		fmt.Fprintf(env.Stderr, "Done: %s, %s (%d cues, %d words, confidence %s, %s)\n",
			o.SRTPath, o.VTTPath, o.CueCount, o.WordCount, format.Percent(o.Confidence), format.Duration(o.Duration))
	}

	switch {
	case failed == 0:
		return nil
	case len(results) == 1:
		return firstErr
	default:
		return fmt.Errorf("%d of %d videos failed: %w", failed, len(results), firstErr)
	}
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
