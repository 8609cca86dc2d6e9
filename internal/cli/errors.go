package cli

import (
	"errors"

	"github.com/alnah/go-captions/internal/audio"
	"github.com/alnah/go-captions/internal/transcribe"
)

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

var (
	// ErrAPIKeyMissing indicates the provider's API key variable is not set.
	ErrAPIKeyMissing = transcribe.ErrAPIKeyMissing

	// ErrUnsupportedFormat indicates an input has an unsupported extension.
	ErrUnsupportedFormat = audio.ErrUnsupportedVideo

	// ErrFileNotFound indicates the specified input file does not exist.
	ErrFileNotFound = audio.ErrSourceNotFound

	// ErrInputBusy indicates another process is captioning the same input.
	ErrInputBusy = errors.New("input is being processed by another run")

	// ErrNoInputs indicates the generate command received no videos.
	ErrNoInputs = errors.New("no input videos")
)
