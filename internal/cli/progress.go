package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/alnah/go-captions/internal/audio"
	"github.com/alnah/go-captions/internal/ffmpeg"
	"github.com/alnah/go-captions/internal/pipeline"
)

// stageMessages are the status lines printed on stage entry.
var stageMessages = map[pipeline.Stage]string{
	pipeline.StageExtracting:   "Extracting audio...",
	pipeline.StageTranscribing: "Transcribing...",
	pipeline.StageChunking:     "Building cues...",
	pipeline.StageEmitting:     "Writing captions...",
	pipeline.StageCleanup:      "Removing temporary audio...",
}

// reporter prints stage transitions and, on a terminal, an extraction
// progress bar. It is only used for single-video runs; batch runs report
// per-video results instead.
type reporter struct {
	w   io.Writer
	tty bool

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newReporter(w io.Writer, tty bool) *reporter {
	return &reporter{w: w, tty: tty}
}

// Stage implements the pipeline stage observer.
func (r *reporter) Stage(s pipeline.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s != pipeline.StageExtracting && r.bar != nil {
		_ = r.bar.Finish()
		_, _ = fmt.Fprintln(r.w)
		r.bar = nil
	}
	if msg, ok := stageMessages[s]; ok {
		_, _ = fmt.Fprintln(r.w, msg)
	}
}

// Progress returns the extraction callback, or nil when no bar is drawn.
func (r *reporter) Progress() audio.ProgressFunc {
	if !r.tty {
		return nil
	}
	return r.progress
}

func (r *reporter) progress(p ffmpeg.Progress, total time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bar == nil {
		r.bar = newExtractBar(r.w, total)
	}
	if total > 0 {
		_ = r.bar.Set64(min(p.OutTime, total).Milliseconds())
		return
	}
	_ = r.bar.Add64(1)
}

// newExtractBar sizes the bar in milliseconds of media time. An unknown
// total draws a spinner.
func newExtractBar(w io.Writer, total time.Duration) *progressbar.ProgressBar {
	maxMs := int64(-1)
	if total > 0 {
		maxMs = total.Milliseconds()
	}
	return progressbar.NewOptions64(maxMs,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("  audio"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
	)
}
