package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

const (
	// binaryName is the base name of the ffmpeg binary.
	binaryName = "ffmpeg"

	// binaryExtWindows is the file extension for Windows executables.
	binaryExtWindows = ".exe"

	// minFFmpegMajorVersion is the minimum supported ffmpeg version.
	// Older builds ship without a reliable -progress stream.
	minFFmpegMajorVersion = 4
)

// Environment variable for custom ffmpeg path.
const envFFmpegPath = "FFMPEG_PATH"

// ---------------------------------------------------------------------------
// Resolver - testable FFmpeg resolution with dependency injection
// ---------------------------------------------------------------------------

// Resolver locates the FFmpeg binary.
type Resolver struct {
	stat fileStatter
	env  envProvider
	goos string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithFileStatter sets the stat implementation.
func WithFileStatter(s fileStatter) ResolverOption {
	return func(res *Resolver) { res.stat = s }
}

// WithEnvProvider sets the environment provider implementation.
func WithEnvProvider(e envProvider) ResolverOption {
	return func(res *Resolver) { res.env = e }
}

// WithPlatform sets the target OS (for testing cross-platform behavior).
func WithPlatform(goos string) ResolverOption {
	return func(res *Resolver) { res.goos = goos }
}

// NewResolver creates a Resolver with the given options.
// Uses production defaults if no options are provided.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		stat: osFileStatter{},
		env:  osEnvProvider{},
		goos: runtime.GOOS,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds ffmpeg using the following precedence:
//  1. FFMPEG_PATH environment variable (error if set but invalid)
//  2. ~/.go-captions/bin/ffmpeg
//  3. System PATH
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if envPath := r.env.Getenv(envFFmpegPath); envPath != "" {
		if _, err := r.stat.Stat(envPath); err != nil {
			return "", fmt.Errorf("%w: %s is set to %q but binary not found",
				ErrNotFound, envFFmpegPath, envPath)
		}
		return envPath, nil
	}

	if path, err := r.installedPath(); err == nil {
		if _, err := r.stat.Stat(path); err == nil {
			return path, nil
		}
	}

	if path, err := r.env.LookPath(binaryName); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%w\n\n%s", ErrNotFound, r.manualInstallInstructions())
}

// installedPath returns the path of a user-local ffmpeg install.
func (r *Resolver) installedPath() (string, error) {
	home, err := r.env.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}

	name := binaryName
	if r.goos == "windows" {
		name += binaryExtWindows
	}
	return filepath.Join(home, ".go-captions", "bin", name), nil
}

// manualInstallInstructions returns platform-specific instructions.
func (r *Resolver) manualInstallInstructions() string {
	switch r.goos {
	case "darwin":
		return `To install FFmpeg:
  brew install ffmpeg

Or set FFMPEG_PATH environment variable to your ffmpeg binary.`
	case "linux":
		return `To install FFmpeg:
  Ubuntu/Debian: sudo apt install ffmpeg
  Fedora:        sudo dnf install ffmpeg
  Arch:          sudo pacman -S ffmpeg

Or set FFMPEG_PATH environment variable to your ffmpeg binary.`
	case "windows":
		return `To install FFmpeg:
  winget install ffmpeg

Or set FFMPEG_PATH environment variable to your ffmpeg.exe.`
	default:
		return `Download FFmpeg from https://ffmpeg.org/download.html
Or set FFMPEG_PATH environment variable to your ffmpeg binary.`
	}
}

var (
	defaultResolver     *Resolver
	defaultResolverOnce sync.Once
)

// Resolve finds ffmpeg using the default resolver.
func Resolve(ctx context.Context) (string, error) {
	defaultResolverOnce.Do(func() {
		defaultResolver = NewResolver()
	})
	return defaultResolver.Resolve(ctx)
}

// ---------------------------------------------------------------------------
// VersionChecker
// ---------------------------------------------------------------------------

// VersionChecker verifies FFmpeg version requirements.
type VersionChecker struct {
	executor *Executor
	logger   *slog.Logger
}

// VersionCheckerOption configures a VersionChecker.
type VersionCheckerOption func(*VersionChecker)

// WithVersionExecutor sets the executor for running FFmpeg.
func WithVersionExecutor(e *Executor) VersionCheckerOption {
	return func(vc *VersionChecker) { vc.executor = e }
}

// WithVersionLogger sets the logger that receives version warnings.
func WithVersionLogger(l *slog.Logger) VersionCheckerOption {
	return func(vc *VersionChecker) { vc.logger = l }
}

// NewVersionChecker creates a VersionChecker with the given options.
func NewVersionChecker(opts ...VersionCheckerOption) *VersionChecker {
	vc := &VersionChecker{
		executor: NewExecutor(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(vc)
	}
	return vc
}

// Check logs a warning when ffmpeg is older than the supported minimum.
// Returns the parsed major version, or 0 if it could not be determined.
func (vc *VersionChecker) Check(ctx context.Context, ffmpegPath string) int {
	output, err := vc.executor.RunOutput(ctx, ffmpegPath, []string{"-version"})
	if err != nil && output == "" {
		return 0
	}

	major := parseMajorVersion(output)
	if major > 0 && major < minFFmpegMajorVersion {
		vc.logger.Warn("ffmpeg is older than recommended",
			"version", major, "minimum", minFFmpegMajorVersion)
	}
	return major
}

// parseMajorVersion extracts N from "ffmpeg version N.x" or "ffmpeg version nN.x".
func parseMajorVersion(output string) int {
	first, _, _ := strings.Cut(output, "\n")
	if first == "" {
		return 0
	}

	var major int
	if _, err := fmt.Sscanf(first, "ffmpeg version %d", &major); err == nil {
		return major
	}
	if _, err := fmt.Sscanf(first, "ffmpeg version n%d", &major); err == nil {
		return major
	}
	return 0
}

// CheckVersion runs the default VersionChecker, logging to logger.
func CheckVersion(ctx context.Context, ffmpegPath string, logger *slog.Logger) {
	NewVersionChecker(WithVersionLogger(logger)).Check(ctx, ffmpegPath)
}
