package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-captions/internal/apierr"
	"github.com/alnah/go-captions/internal/config"
	"github.com/alnah/go-captions/internal/ffmpeg"
	"github.com/alnah/go-captions/internal/history"
	"github.com/alnah/go-captions/internal/lang"
	"github.com/alnah/go-captions/internal/pipeline"
	"github.com/alnah/go-captions/internal/transcribe"
)

// Notes:
// - runGenerate is driven through mocks for ffmpeg, extraction, transcription,
//   history and locking; caption files are written to real temp dirs.
// - The mock extractor writes a placeholder MP3 so cleanup is observable.

// ---------------------------------------------------------------------------
// Success paths
// ---------------------------------------------------------------------------

func TestRunGenerate_SingleVideo(t *testing.T) {
	t.Parallel()

	stderr := &syncBuffer{}
	env, mocks := testEnv(withTestStderr(stderr))
	video := createTestVideo(t, "talk.mp4")

	err := RunGenerate(context.Background(), env, []string{video}, GenerateOptions{Parallel: 1})
	if err != nil {
		t.Fatalf("RunGenerate() error = %v", err)
	}

	srt, err := os.ReadFile(trimExt(video) + ".srt")
	if err != nil {
		t.Fatalf("read srt: %v", err)
	}
	wantSRT := "1\n00:00:00,000 --> 00:00:01,500\nHello caption world\n\n"
	if string(srt) != wantSRT {
		t.Errorf("srt = %q, want %q", srt, wantSRT)
	}

	vtt, err := os.ReadFile(trimExt(video) + ".vtt")
	if err != nil {
		t.Fatalf("read vtt: %v", err)
	}
	if !strings.HasPrefix(string(vtt), "WEBVTT") {
		t.Errorf("vtt = %q, want WEBVTT header", vtt)
	}

	if _, err := os.Stat(trimExt(video) + ".mp3"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("audio artifact survived: stat err = %v", err)
	}

	out := stderr.String()
	for _, want := range []string{"Extracting audio...", "Transcribing...", "Done:", "1 cues", "3 words", "87.5%"} {
		if !strings.Contains(out, want) {
			t.Errorf("stderr missing %q:\n%s", want, out)
		}
	}

	if got := mocks.transcriber.LastProvider(); got != transcribe.ProviderAssemblyAI {
		t.Errorf("provider = %q, want %q", got, transcribe.ProviderAssemblyAI)
	}
	if got := mocks.transcriber.LastAPIKey(); got != "test-assemblyai-key" {
		t.Errorf("api key = %q, want test-assemblyai-key", got)
	}
	if got := mocks.transcriber.Transcriber().LastOpts().Language.String(); got != "en" {
		t.Errorf("language = %q, want en", got)
	}
	if got := mocks.extractor.LastFFmpegPath(); got != "/usr/bin/ffmpeg" {
		t.Errorf("ffmpeg path = %q, want /usr/bin/ffmpeg", got)
	}
	if mocks.extractor.GotProgress() {
		t.Error("progress callback set without a terminal")
	}
	if got := mocks.ffmpegResolver.CheckVersionCalls(); got != 1 {
		t.Errorf("CheckVersion calls = %d, want 1", got)
	}

	runs := mocks.history.Store().Runs()
	if len(runs) != 1 {
		t.Fatalf("history runs = %d, want 1", len(runs))
	}
	if runs[0].Status != history.StatusSucceeded || runs[0].CueCount != 1 || runs[0].WordCount != 3 {
		t.Errorf("history run = %+v, want succeeded with 1 cue and 3 words", runs[0])
	}
	if runs[0].Language != "en" || runs[0].Provider != "assemblyai" {
		t.Errorf("history run language/provider = %q/%q", runs[0].Language, runs[0].Provider)
	}
	if !mocks.history.Store().Closed() {
		t.Error("history store not closed")
	}

	abs, _ := filepath.Abs(video)
	if locked := mocks.locker.Locked(); len(locked) != 1 || locked[0] != abs {
		t.Errorf("locked = %v, want [%s]", locked, abs)
	}
	if got := mocks.locker.Unlocked(); got != 1 {
		t.Errorf("unlocked = %d, want 1", got)
	}
}

func TestRunGenerate_TerminalGetsProgress(t *testing.T) {
	t.Parallel()

	env, mocks := testEnv(withTestTerminal())
	video := createTestVideo(t, "talk.mkv")

	if err := RunGenerate(context.Background(), env, []string{video}, GenerateOptions{}); err != nil {
		t.Fatalf("RunGenerate() error = %v", err)
	}
	if !mocks.extractor.GotProgress() {
		t.Error("progress callback not set on a terminal")
	}
}

func TestRunGenerate_ConfigDefaults(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	env, mocks := testEnv()
	mocks.configLoader = configWith(config.Config{Language: "fr", Provider: "openai", OutputDir: outDir})
	env.ConfigLoader = mocks.configLoader
	video := createTestVideo(t, "cours.mov")

	if err := RunGenerate(context.Background(), env, []string{video}, GenerateOptions{}); err != nil {
		t.Fatalf("RunGenerate() error = %v", err)
	}

	if got := mocks.transcriber.LastProvider(); got != transcribe.ProviderOpenAI {
		t.Errorf("provider = %q, want openai", got)
	}
	if got := mocks.transcriber.LastAPIKey(); got != "test-openai-key" {
		t.Errorf("api key = %q, want test-openai-key", got)
	}
	if got := mocks.transcriber.Transcriber().LastOpts().Language.String(); got != "fr" {
		t.Errorf("language = %q, want fr", got)
	}
	if _, err := os.Stat(filepath.Join(outDir, "cours.srt")); err != nil {
		t.Errorf("srt not written to output dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "cours.vtt")); err != nil {
		t.Errorf("vtt not written to output dir: %v", err)
	}
}

func TestRunGenerate_FlagsOverrideConfig(t *testing.T) {
	t.Parallel()

	env, mocks := testEnv()
	mocks.configLoader = configWith(config.Config{Language: "fr", Provider: "openai"})
	env.ConfigLoader = mocks.configLoader
	video := createTestVideo(t, "talk.mp4")

	opts := GenerateOptions{Language: "pt-BR", Provider: "assemblyai"}
	if err := RunGenerate(context.Background(), env, []string{video}, opts); err != nil {
		t.Fatalf("RunGenerate() error = %v", err)
	}

	if got := mocks.transcriber.LastProvider(); got != transcribe.ProviderAssemblyAI {
		t.Errorf("provider = %q, want assemblyai", got)
	}
	if got := mocks.transcriber.Transcriber().LastOpts().Language.String(); got != "pt-BR" {
		t.Errorf("language = %q, want pt-BR", got)
	}
}

func TestRunGenerate_ConfigLoadFailureWarns(t *testing.T) {
	t.Parallel()

	stderr := &syncBuffer{}
	env, mocks := testEnv(withTestStderr(stderr))
	mocks.configLoader.LoadFunc = func() (config.Config, error) {
		return config.Config{}, errors.New("bad toml")
	}
	video := createTestVideo(t, "talk.mp4")

	if err := RunGenerate(context.Background(), env, []string{video}, GenerateOptions{}); err != nil {
		t.Fatalf("RunGenerate() error = %v", err)
	}
	if !strings.Contains(stderr.String(), "Warning: failed to load config: bad toml") {
		t.Errorf("stderr = %q, want config warning", stderr.String())
	}
}

func TestRunGenerate_NoHistory(t *testing.T) {
	t.Parallel()

	env, mocks := testEnv()
	video := createTestVideo(t, "talk.mp4")

	if err := RunGenerate(context.Background(), env, []string{video}, GenerateOptions{NoHistory: true}); err != nil {
		t.Fatalf("RunGenerate() error = %v", err)
	}
	if got := mocks.history.OpenCalls(); got != 0 {
		t.Errorf("history opened %d times, want 0", got)
	}
}

func TestRunGenerate_HistoryUnavailableDoesNotFail(t *testing.T) {
	t.Parallel()

	env, mocks := testEnv()
	mocks.history.OpenErr = errors.New("disk full")
	video := createTestVideo(t, "talk.mp4")

	if err := RunGenerate(context.Background(), env, []string{video}, GenerateOptions{}); err != nil {
		t.Fatalf("RunGenerate() error = %v, want nil", err)
	}
}

// ---------------------------------------------------------------------------
// Validation (fail-fast, before ffmpeg is resolved)
// ---------------------------------------------------------------------------

func TestRunGenerate_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		opts    GenerateOptions
		getenv  func(string) string
		wantErr error
	}{
		{
			name:    "missing file",
			setup:   func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.mp4") },
			wantErr: ErrFileNotFound,
		},
		{
			name: "directory",
			setup: func(t *testing.T) string {
				dir := filepath.Join(t.TempDir(), "clip.mp4")
				if err := os.Mkdir(dir, 0o750); err != nil {
					t.Fatal(err)
				}
				return dir
			},
			wantErr: ErrFileNotFound,
		},
		{
			name:    "unsupported format",
			setup:   func(t *testing.T) string { return createTestVideo(t, "notes.txt") },
			wantErr: ErrUnsupportedFormat,
		},
		{
			name:    "invalid language",
			setup:   func(t *testing.T) string { return createTestVideo(t, "talk.mp4") },
			opts:    GenerateOptions{Language: "klingon"},
			wantErr: lang.ErrInvalid,
		},
		{
			name:    "unknown provider",
			setup:   func(t *testing.T) string { return createTestVideo(t, "talk.mp4") },
			opts:    GenerateOptions{Provider: "whisper-local"},
			wantErr: transcribe.ErrUnknownProvider,
		},
		{
			name:    "missing API key",
			setup:   func(t *testing.T) string { return createTestVideo(t, "talk.mp4") },
			getenv:  staticEnv(nil),
			wantErr: ErrAPIKeyMissing,
		},
		{
			name:    "missing API key for chosen provider",
			setup:   func(t *testing.T) string { return createTestVideo(t, "talk.mp4") },
			opts:    GenerateOptions{Provider: "openai"},
			getenv:  staticEnv(map[string]string{"ASSEMBLYAI_API_KEY": "k"}),
			wantErr: ErrAPIKeyMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var opts []testEnvOption
			if tt.getenv != nil {
				opts = append(opts, withTestGetenv(tt.getenv))
			}
			env, mocks := testEnv(opts...)

			err := RunGenerate(context.Background(), env, []string{tt.setup(t)}, tt.opts)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("RunGenerate() error = %v, want %v", err, tt.wantErr)
			}
			if got := mocks.ffmpegResolver.ResolveCalls(); got != 0 {
				t.Errorf("ffmpeg resolved %d times before validation finished", got)
			}
		})
	}
}

func TestRunGenerate_NoInputs(t *testing.T) {
	t.Parallel()

	env, _ := testEnv()
	if err := RunGenerate(context.Background(), env, nil, GenerateOptions{}); !errors.Is(err, ErrNoInputs) {
		t.Errorf("RunGenerate(nil) error = %v, want ErrNoInputs", err)
	}
}

func TestRunGenerate_InvalidOutputDir(t *testing.T) {
	t.Parallel()

	env, _ := testEnv()
	file := createTestVideo(t, "not-a-dir.mp4")
	video := createTestVideo(t, "talk.mp4")

	err := RunGenerate(context.Background(), env, []string{video}, GenerateOptions{OutputDir: file})
	if !errors.Is(err, config.ErrNotDirectory) {
		t.Errorf("RunGenerate() error = %v, want ErrNotDirectory", err)
	}
}

// ---------------------------------------------------------------------------
// Setup and run failures
// ---------------------------------------------------------------------------

func TestRunGenerate_FFmpegNotFound(t *testing.T) {
	t.Parallel()

	env, mocks := testEnv()
	mocks.ffmpegResolver.ResolveFunc = func(context.Context) (string, error) {
		return "", ffmpeg.ErrNotFound
	}
	video := createTestVideo(t, "talk.mp4")

	err := RunGenerate(context.Background(), env, []string{video}, GenerateOptions{})
	if !errors.Is(err, ffmpeg.ErrNotFound) {
		t.Fatalf("RunGenerate() error = %v, want ffmpeg.ErrNotFound", err)
	}
	if got := mocks.extractor.LastFFmpegPath(); got != "" {
		t.Errorf("extractor created with %q after resolve failure", got)
	}
}

func TestRunGenerate_InputBusy(t *testing.T) {
	t.Parallel()

	env, mocks := testEnv()
	mocks.locker.LockFunc = func(path string) (func() error, error) {
		return nil, ErrInputBusy
	}
	video := createTestVideo(t, "talk.mp4")

	err := RunGenerate(context.Background(), env, []string{video}, GenerateOptions{})
	if !errors.Is(err, ErrInputBusy) {
		t.Fatalf("RunGenerate() error = %v, want ErrInputBusy", err)
	}
	if got := mocks.extractor.Extractor().CallCount(); got != 0 {
		t.Errorf("extractor called %d times on a busy input", got)
	}
}

func TestRunGenerate_TranscriptionFailure(t *testing.T) {
	t.Parallel()

	env, mocks := testEnv()
	mocks.transcriber.Transcriber().TranscribeFunc = func(context.Context, string, transcribe.Options) (transcribe.Transcript, error) {
		return transcribe.Transcript{}, apierr.ErrAuthFailed
	}
	video := createTestVideo(t, "talk.mp4")

	err := RunGenerate(context.Background(), env, []string{video}, GenerateOptions{})
	if !errors.Is(err, pipeline.ErrTranscription) {
		t.Fatalf("RunGenerate() error = %v, want ErrTranscription", err)
	}
	if !errors.Is(err, apierr.ErrAuthFailed) {
		t.Errorf("RunGenerate() error = %v, want wrapped ErrAuthFailed", err)
	}

	for _, ext := range []string{".srt", ".vtt", ".mp3"} {
		if _, statErr := os.Stat(trimExt(video) + ext); !errors.Is(statErr, os.ErrNotExist) {
			t.Errorf("%s exists after failure", ext)
		}
	}

	runs := mocks.history.Store().Runs()
	if len(runs) != 1 {
		t.Fatalf("history runs = %d, want 1", len(runs))
	}
	r := runs[0]
	if r.Status != history.StatusFailed || r.Stage != "transcribing" || r.ErrorKind != pipeline.ErrTranscription.Error() {
		t.Errorf("history run = %+v, want failed at transcribing", r)
	}
	if !strings.Contains(r.Error, "authentication failed") {
		t.Errorf("history error = %q, want cause", r.Error)
	}
}

func TestRunGenerate_Batch(t *testing.T) {
	t.Parallel()

	stderr := &syncBuffer{}
	env, mocks := testEnv(withTestStderr(stderr))
	dir := t.TempDir()
	videos := make([]string, 3)
	for i, name := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		videos[i] = filepath.Join(dir, name)
		if err := os.WriteFile(videos[i], []byte("video"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	mocks.transcriber.Transcriber().TranscribeFunc = func(_ context.Context, audioPath string, _ transcribe.Options) (transcribe.Transcript, error) {
		if filepath.Base(audioPath) == "b.mp3" {
			return transcribe.Transcript{}, apierr.ErrRateLimit
		}
		return threeWords(), nil
	}

	err := RunGenerate(context.Background(), env, videos, GenerateOptions{Parallel: 3})
	if !errors.Is(err, pipeline.ErrTransient) {
		t.Fatalf("RunGenerate() error = %v, want ErrTransient", err)
	}
	if !strings.Contains(err.Error(), "1 of 3 videos failed") {
		t.Errorf("error = %q, want failure count", err)
	}

	out := stderr.String()
	for _, want := range []string{"Generating captions for 3 videos in English", "Failed: " + videos[1], "Done: " + filepath.Join(dir, "a.srt")} {
		if !strings.Contains(out, want) {
			t.Errorf("stderr missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Extracting audio...") {
		t.Errorf("batch run printed per-stage lines:\n%s", out)
	}

	for _, v := range []string{videos[0], videos[2]} {
		if _, err := os.Stat(trimExt(v) + ".srt"); err != nil {
			t.Errorf("%s: srt missing: %v", v, err)
		}
	}
	if got := len(mocks.history.Store().Runs()); got != 3 {
		t.Errorf("history runs = %d, want 3", got)
	}
	if got := mocks.locker.Unlocked(); got != 3 {
		t.Errorf("unlocked = %d, want 3", got)
	}
}

func TestRunGenerate_CanceledContext(t *testing.T) {
	t.Parallel()

	env, mocks := testEnv()
	ctx, cancel := context.WithCancel(context.Background())
	mocks.extractor.Extractor().ExtractFunc = func(ctx context.Context, _, audioPath string) error {
		cancel()
		return ctx.Err()
	}
	video := createTestVideo(t, "talk.mp4")

	err := RunGenerate(ctx, env, []string{video}, GenerateOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RunGenerate() error = %v, want context.Canceled", err)
	}
	if got := len(mocks.history.Store().Runs()); got != 1 {
		t.Errorf("history runs = %d, want interrupted run recorded", got)
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func TestClampParallel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want int
	}{
		{-1, 1},
		{0, 1},
		{1, 1},
		{4, 4},
		{8, 8},
		{100, 8},
	}
	for _, tt := range tests {
		if got := ClampParallel(tt.in); got != tt.want {
			t.Errorf("ClampParallel(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestLockInputs_ReleasesOnFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.mp4"), filepath.Join(dir, "b.mp4")
	locker := &mockLocker{LockFunc: func(path string) (func() error, error) {
		if path == b {
			return nil, ErrInputBusy
		}
		return nil, nil
	}}

	if _, err := LockInputs(locker, []string{a, b}); !errors.Is(err, ErrInputBusy) {
		t.Fatalf("LockInputs() error = %v, want ErrInputBusy", err)
	}
	if got := locker.Unlocked(); got != 1 {
		t.Errorf("unlocked = %d, want 1", got)
	}
}

func TestLockInputs_SkipsRepeatedInputs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.mp4")
	locker := &mockLocker{}

	release, err := LockInputs(locker, []string{a, dir + string(filepath.Separator) + "." + string(filepath.Separator) + "a.mp4"})
	if err != nil {
		t.Fatalf("LockInputs() error = %v", err)
	}
	release()

	if got := locker.Locked(); len(got) != 1 {
		t.Errorf("locked = %v, want one path", got)
	}
}

func TestFileLocker(t *testing.T) {
	t.Parallel()

	locker := NewFileLocker(t.TempDir())
	video := filepath.Join(t.TempDir(), "talk.mp4")

	unlock, err := locker.Lock(video)
	if err != nil {
		t.Fatalf("first Lock() error = %v", err)
	}

	if _, err := locker.Lock(video); !errors.Is(err, ErrInputBusy) {
		t.Errorf("second Lock() error = %v, want ErrInputBusy", err)
	}

	other, err := locker.Lock(filepath.Join(t.TempDir(), "other.mp4"))
	if err != nil {
		t.Errorf("Lock(other) error = %v", err)
	} else {
		_ = other()
	}

	if err := unlock(); err != nil {
		t.Fatalf("unlock() error = %v", err)
	}
	again, err := locker.Lock(video)
	if err != nil {
		t.Fatalf("Lock() after unlock error = %v", err)
	}
	_ = again()
}
