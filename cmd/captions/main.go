package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alnah/go-captions/internal/audio"
	"github.com/alnah/go-captions/internal/cli"
	"github.com/alnah/go-captions/internal/config"
	"github.com/alnah/go-captions/internal/ffmpeg"
	"github.com/alnah/go-captions/internal/interrupt"
	"github.com/alnah/go-captions/internal/lang"
	"github.com/alnah/go-captions/internal/logging"
	"github.com/alnah/go-captions/internal/pipeline"
	"github.com/alnah/go-captions/internal/transcribe"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK            = 0
	ExitGeneral       = 1
	ExitUsage         = 2
	ExitSetup         = 3
	ExitValidation    = 4
	ExitTranscription = 5
	ExitExtraction    = 6
	ExitIO            = 7
	ExitInterrupt     = interrupt.ExitInterrupt
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// First Ctrl+C cancels the run; a second one within 2s force quits.
	handler, ctx := interrupt.NewHandler(context.Background())
	defer handler.Stop()

	env := cli.DefaultEnv()
	rootCmd := newRootCmd(env)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		handler.Stop()
		os.Exit(exitCode(err))
	}
}

// newRootCmd builds the command tree around env.
func newRootCmd(env *cli.Env) *cobra.Command {
	var (
		logLevel  string
		logFormat string
		verbose   bool
	)

	rootCmd := &cobra.Command{
		Use:     "captions",
		Short:   "Generate SRT and WebVTT captions from videos",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logLevel = "debug"
			}
			if _, err := logging.ParseLevel(logLevel); err != nil {
				return fmt.Errorf("invalid argument %q for \"--log-level\" flag", logLevel)
			}
			logger, err := logging.New(env.Stderr, logging.Options{Level: logLevel, Format: logFormat})
			if err != nil {
				return fmt.Errorf("invalid argument %q for \"--log-format\" flag", logFormat)
			}
			env.Logger = logger
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatAuto, "Log format: auto, text, json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Shorthand for --log-level debug")

	rootCmd.AddCommand(cli.GenerateCmd(env))
	rootCmd.AddCommand(cli.HistoryCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	return rootCmd
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Check for context cancellation (interrupt).
	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Setup errors (ExitSetup = 3).
	if errors.Is(err, ffmpeg.ErrNotFound) || errors.Is(err, ffmpeg.ErrNotStarted) ||
		errors.Is(err, cli.ErrAPIKeyMissing) || errors.Is(err, transcribe.ErrUnknownProvider) {
		return ExitSetup
	}

	// Validation errors (ExitValidation = 4).
	if errors.Is(err, cli.ErrUnsupportedFormat) || errors.Is(err, cli.ErrFileNotFound) ||
		errors.Is(err, cli.ErrInputBusy) || errors.Is(err, cli.ErrNoInputs) ||
		errors.Is(err, lang.ErrInvalid) || errors.Is(err, pipeline.ErrInvalidConfig) ||
		errors.Is(err, pipeline.ErrDuplicateInput) || errors.Is(err, config.ErrInvalidKey) ||
		errors.Is(err, config.ErrNotDirectory) || errors.Is(err, config.ErrNotWritable) {
		return ExitValidation
	}

	// Transcription errors (ExitTranscription = 5), transient or not.
	if errors.Is(err, pipeline.ErrTranscription) || errors.Is(err, pipeline.ErrTransient) {
		return ExitTranscription
	}

	// Extraction errors (ExitExtraction = 6).
	if errors.Is(err, pipeline.ErrExtraction) || errors.Is(err, audio.ErrExtractionFailed) {
		return ExitExtraction
	}

	// Caption write errors (ExitIO = 7).
	if errors.Is(err, pipeline.ErrIO) {
		return ExitIO
	}

	// Usage errors (ExitUsage = 2): Cobra flag/arg parsing errors.
	// Cobra doesn't expose typed errors, so we check for known error message patterns.
	// Checked last: a typed error keeps its own code whatever its message says.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// These patterns are stable across Cobra versions (tested with v1.8+).
// Cobra doesn't expose typed errors, so string matching is the only reliable approach.
var cobraUsageErrorPatterns = []string{
	"required flag",             // Missing required flag
	"unknown flag",              // Flag doesn't exist
	"unknown shorthand",         // Short flag doesn't exist
	"unknown command",           // Subcommand doesn't exist
	"flag needs an argument",    // Flag provided without value
	"invalid argument",          // Invalid flag value type
	"if any flags in the group", // Mutually exclusive flag violation
	"accepts ",                  // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",         // Too few arguments
	"requires at most",          // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
