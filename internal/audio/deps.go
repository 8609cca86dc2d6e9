package audio

import (
	"context"
	"os"

	"github.com/alnah/go-captions/internal/ffmpeg"
)

// transcoder launches the external transcoding process.
type transcoder interface {
	Start(ctx context.Context, ffmpegPath string, args []string) (process, error)
}

// process is a running transcode: a progress stream plus one completion signal.
type process interface {
	Progress() <-chan ffmpeg.Progress
	Wait() error
}

// fileStatter retrieves file information.
type fileStatter interface {
	Stat(name string) (os.FileInfo, error)
}

// fileRemover removes files.
type fileRemover interface {
	Remove(name string) error
}

// Compile-time interface verification.
var (
	_ transcoder  = ffmpegTranscoder{}
	_ process     = (*ffmpeg.Job)(nil)
	_ fileStatter = osFileStatter{}
	_ fileRemover = osFileRemover{}
)

// --- Default implementations using real OS functions ---

// ffmpegTranscoder implements transcoder using ffmpeg.Start.
type ffmpegTranscoder struct{}

func (ffmpegTranscoder) Start(ctx context.Context, ffmpegPath string, args []string) (process, error) {
	job, err := ffmpeg.Start(ctx, ffmpegPath, args)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// osFileStatter implements fileStatter using os.Stat.
type osFileStatter struct{}

func (osFileStatter) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// osFileRemover implements fileRemover using os.Remove.
type osFileRemover struct{}

func (osFileRemover) Remove(name string) error {
	return os.Remove(name)
}
