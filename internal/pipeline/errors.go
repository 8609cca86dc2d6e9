package pipeline

import (
	"errors"
	"fmt"
)

// Error kinds. Every run failure matches exactly one of these with errors.Is.
var (
	// ErrExtraction indicates the transcoder failed or the source is missing or corrupt.
	ErrExtraction = errors.New("extraction error")

	// ErrTranscription indicates the transcription service reported a failure.
	ErrTranscription = errors.New("transcription error")

	// ErrTransient indicates a network failure, timeout or cancellation.
	// Re-invoking the run may succeed.
	ErrTransient = errors.New("transient error")

	// ErrIO indicates a local write or delete failure.
	ErrIO = errors.New("I/O error")

	// ErrInvalidConfig indicates the run configuration was rejected before any stage ran.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ErrDuplicateInput indicates a batch contained the same video, or two videos
// deriving the same output paths, more than once.
var ErrDuplicateInput = errors.New("duplicate input in batch")

// StageError is the failure of one run, tagged with the stage that failed.
//
// errors.Is matches both Kind and the underlying cause. CleanupErr records a
// failure to remove the audio artifact afterwards; it never replaces Err.
type StageError struct {
	Stage      Stage
	Kind       error
	Err        error
	CleanupErr error
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
	if e.CleanupErr != nil {
		msg += fmt.Sprintf(" (cleanup: %v)", e.CleanupErr)
	}
	return msg
}

// Unwrap exposes Kind and Err to errors.Is and errors.As.
func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
