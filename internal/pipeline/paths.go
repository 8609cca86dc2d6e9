package pipeline

import (
	"path/filepath"
	"strings"
)

// PathFunc derives the path of an artifact with extension ext (".mp3",
// ".srt", ".vtt") from the source video path. It must be pure.
type PathFunc func(videoPath, ext string) string

// SiblingPath swaps the video's extension for ext, keeping the directory.
func SiblingPath(videoPath, ext string) string {
	return strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ext
}

// OutputDir returns a PathFunc that places every artifact in dir under the
// video's base name. An empty dir behaves like SiblingPath.
func OutputDir(dir string) PathFunc {
	if dir == "" {
		return SiblingPath
	}
	return func(videoPath, ext string) string {
		return filepath.Join(dir, filepath.Base(SiblingPath(videoPath, ext)))
	}
}
