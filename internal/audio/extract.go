package audio

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-captions/internal/ffmpeg"
)

// AudioExt is the extension of the extracted audio artifact.
const AudioExt = ".mp3"

// videoExtensions lists the accepted source containers (lowercase, with dot).
var videoExtensions = map[string]bool{
	".mp4": true,
	".mov": true,
	".avi": true,
	".mkv": true,
}

// IsSupportedVideo reports whether path has an accepted video extension.
// The comparison is case-insensitive.
func IsSupportedVideo(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

// ProgressFunc receives transcoding progress snapshots. total is the source
// duration, or 0 when it could not be probed.
type ProgressFunc func(p ffmpeg.Progress, total time.Duration)

// Extractor demuxes the audio track of a video into an MP3 file.
type Extractor struct {
	ffmpegPath string
	transcoder transcoder
	statter    fileStatter
	files      fileRemover
	executor   *ffmpeg.Executor
	onProgress ProgressFunc
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithProgress sets a callback that receives every progress snapshot.
// The callback runs on the extracting goroutine and should return quickly.
func WithProgress(fn ProgressFunc) ExtractorOption {
	return func(e *Extractor) {
		e.onProgress = fn
	}
}

// WithTranscoder sets how the ffmpeg process is launched (for testing).
func WithTranscoder(t transcoder) ExtractorOption {
	return func(e *Extractor) {
		e.transcoder = t
	}
}

// WithExecutor sets the executor used to probe durations (for testing).
func WithExecutor(x *ffmpeg.Executor) ExtractorOption {
	return func(e *Extractor) {
		e.executor = x
	}
}

// WithFileStatter sets the stat implementation (for testing).
func WithFileStatter(s fileStatter) ExtractorOption {
	return func(e *Extractor) {
		e.statter = s
	}
}

// WithFileRemover sets the file removal implementation (for testing).
func WithFileRemover(f fileRemover) ExtractorOption {
	return func(e *Extractor) {
		e.files = f
	}
}

// NewExtractor creates an Extractor that runs the ffmpeg binary at ffmpegPath.
func NewExtractor(ffmpegPath string, opts ...ExtractorOption) (*Extractor, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpegPath cannot be empty: %w", ffmpeg.ErrNotFound)
	}

	e := &Extractor{
		ffmpegPath: ffmpegPath,
		transcoder: ffmpegTranscoder{},
		statter:    osFileStatter{},
		files:      osFileRemover{},
		executor:   ffmpeg.NewExecutor(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Extract writes the audio track of videoPath to audioPath.
// It blocks until ffmpeg exits. On any failure, including cancellation,
// audioPath is removed so no partial artifact survives. Failures that occur
// before ffmpeg starts match ErrNotStarted and leave audioPath untouched.
func (e *Extractor) Extract(ctx context.Context, videoPath, audioPath string) error {
	if !IsSupportedVideo(videoPath) {
		return notStarted(fmt.Errorf("%w: %q (supported: mp4, mov, avi, mkv)", ErrUnsupportedVideo, filepath.Ext(videoPath)))
	}
	if filepath.Clean(videoPath) == filepath.Clean(audioPath) {
		return notStarted(fmt.Errorf("%w: audio path must differ from source %s", ErrExtractionFailed, videoPath))
	}

	info, err := e.statter.Stat(videoPath)
	if err != nil {
		return notStarted(fmt.Errorf("%w: %v", ErrSourceNotFound, err))
	}
	if info.IsDir() {
		return notStarted(fmt.Errorf("%w: %s is a directory", ErrSourceNotFound, videoPath))
	}

	// Probing only sizes progress reports; a failure leaves total at 0.
	var total time.Duration
	if e.onProgress != nil {
		total, _ = e.Duration(ctx, videoPath)
	}

	job, err := e.transcoder.Start(ctx, e.ffmpegPath, extractArgs(videoPath, audioPath))
	if err != nil {
		return notStarted(fmt.Errorf("%w: %w", ErrExtractionFailed, err))
	}

	for p := range job.Progress() {
		if e.onProgress != nil {
			e.onProgress(p, total)
		}
	}

	if err := job.Wait(); err != nil {
		e.discard(audioPath)
		return fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	out, err := e.statter.Stat(audioPath)
	if err != nil || out.Size() == 0 {
		e.discard(audioPath)
		return fmt.Errorf("%w: no audio written to %s", ErrExtractionFailed, audioPath)
	}
	return nil
}

// discard removes a partial artifact on a best-effort basis; the pipeline's
// cleanup stage removes it again and reports any failure.
func (e *Extractor) discard(audioPath string) {
	_ = e.files.Remove(audioPath)
}

// extractArgs builds the ffmpeg invocation: drop video, encode VBR MP3,
// and stream machine-readable progress on stdout.
func extractArgs(videoPath, audioPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "4",
		"-progress", "pipe:1",
		"-nostats",
		audioPath,
	}
}
