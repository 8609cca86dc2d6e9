package ffmpeg

import "errors"

// ErrNotFound indicates the FFmpeg binary could not be located.
var ErrNotFound = errors.New("ffmpeg not found")

// ErrNotStarted indicates the FFmpeg process could not be launched.
var ErrNotStarted = errors.New("ffmpeg could not be started")
