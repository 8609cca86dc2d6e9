package audio

import "errors"

// ErrUnsupportedVideo indicates the source extension is not a known video container.
var ErrUnsupportedVideo = errors.New("unsupported video format")

// ErrSourceNotFound indicates the source video does not exist or cannot be read.
var ErrSourceNotFound = errors.New("source video not found")

// ErrExtractionFailed indicates FFmpeg failed to produce the audio track.
var ErrExtractionFailed = errors.New("audio extraction failed")

// ErrNotStarted marks failures that happened before ffmpeg ran. Nothing was
// written to the audio path, so callers must not remove it.
var ErrNotStarted = errors.New("extraction not started")

// notStartedError keeps the message of err while also matching ErrNotStarted.
type notStartedError struct {
	err error
}

func (e *notStartedError) Error() string   { return e.err.Error() }
func (e *notStartedError) Unwrap() []error { return []error{e.err, ErrNotStarted} }

func notStarted(err error) error {
	return &notStartedError{err: err}
}
