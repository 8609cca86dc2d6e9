package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// stderrTailSize bounds how much diagnostic output a Job keeps for errors.
const stderrTailSize = 4096

// waitDelay is how long Wait lets I/O drain after the process is killed.
const waitDelay = 5 * time.Second

// progressBuffer is the capacity of a Job's progress channel.
const progressBuffer = 16

// Progress is one snapshot of ffmpeg's -progress key=value stream.
type Progress struct {
	OutTime time.Duration // Media time written so far.
	Speed   string        // Encoding speed as reported, e.g. "12.3x".
	Done    bool          // True on the final "progress=end" block.
}

// Job is a running ffmpeg process.
// Wait is the single completion signal: it blocks until the process exits
// and returns its outcome. Progress snapshots stream on Progress() until then.
type Job struct {
	progress chan Progress
	done     chan struct{}
	err      error
	stderr   *tailBuffer
}

// Start launches ffmpeg with args and returns immediately.
// The caller must call Wait. Canceling ctx kills the process.
//
// Args should include "-progress pipe:1" for progress snapshots to appear;
// stdout is parsed as a progress stream and nothing else.
func Start(ctx context.Context, ffmpegPath string, args []string) (*Job, error) {
	// #nosec G204 -- ffmpegPath comes from the resolver, args from the extractor
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	cmd.WaitDelay = waitDelay

	job := &Job{
		progress: make(chan Progress, progressBuffer),
		done:     make(chan struct{}),
		stderr:   &tailBuffer{limit: stderrTailSize},
	}
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = job.stderr

	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		_ = pr.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotStarted, err)
	}

	go job.run(ctx, cmd, pr, pw)
	return job, nil
}

// run parses stdout while reaping the process, then resolves the job.
// WaitDelay bounds Wait even when a child process keeps stdout open.
func (j *Job) run(ctx context.Context, cmd *exec.Cmd, pr *io.PipeReader, pw *io.PipeWriter) {
	parsed := make(chan struct{})
	go func() {
		defer close(parsed)
		parseProgress(pr, j.send)
	}()

	err := cmd.Wait()
	_ = pw.Close()
	<-parsed

	switch {
	case ctx.Err() != nil:
		j.err = fmt.Errorf("ffmpeg interrupted: %w", ctx.Err())
	case err != nil:
		j.err = fmt.Errorf("ffmpeg: %w\nOutput: %s", err, strings.TrimSpace(j.stderr.String()))
	}

	close(j.progress)
	close(j.done)
}

// send never blocks; snapshots are dropped when the buffer is full.
func (j *Job) send(p Progress) {
	select {
	case j.progress <- p:
	default:
	}
}

// Progress returns the snapshot stream. It is closed when the process exits.
func (j *Job) Progress() <-chan Progress {
	return j.progress
}

// Done is closed once the process has exited and Wait would not block.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until ffmpeg exits and returns nil on a zero exit status.
func (j *Job) Wait() error {
	<-j.done
	return j.err
}

// Stderr returns the retained tail of ffmpeg's diagnostic output.
func (j *Job) Stderr() string {
	return j.stderr.String()
}

// parseProgress reads "key=value" lines and calls emit at the end of every
// block, which ffmpeg terminates with a "progress=continue|end" line.
func parseProgress(r io.Reader, emit func(Progress)) {
	var cur Progress
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "out_time_us", "out_time_ms":
			// Both keys carry microseconds; out_time_ms is a historical misnomer.
			if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
				cur.OutTime = time.Duration(us) * time.Microsecond
			}
		case "speed":
			cur.Speed = strings.TrimSpace(value)
		case "progress":
			cur.Done = value == "end"
			emit(cur)
		}
	}
	// Drain anything left so the process never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, r)
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

// ---------------------------------------------------------------------------
// Executor - testable FFmpeg execution with dependency injection
// ---------------------------------------------------------------------------

// runOutputFn is the function type for running a command and capturing output.
type runOutputFn func(ctx context.Context, path string, args []string) (string, error)

// Executor runs short-lived FFmpeg commands with injectable dependencies.
type Executor struct {
	runOutput runOutputFn
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRunOutput sets a custom runOutput function (for testing).
func WithRunOutput(fn runOutputFn) ExecutorOption {
	return func(e *Executor) { e.runOutput = fn }
}

// NewExecutor creates an Executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		runOutput: defaultRunOutput,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunOutput executes FFmpeg and captures its combined output.
func (e *Executor) RunOutput(ctx context.Context, ffmpegPath string, args []string) (string, error) {
	return e.runOutput(ctx, ffmpegPath, args)
}

// defaultRunOutput returns output even when the command fails, since
// ffmpeg reports diagnostics on non-zero exits too.
func defaultRunOutput(ctx context.Context, ffmpegPath string, args []string) (string, error) {
	// #nosec G204 -- ffmpegPath comes from the resolver
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	return out.String(), err
}
