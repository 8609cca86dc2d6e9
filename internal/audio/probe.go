package audio

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// durationRe matches the container duration ffmpeg prints for an input,
// e.g. "Duration: 00:05:23.45".
var durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)

// Duration returns the media duration of videoPath as reported by ffmpeg.
func (e *Extractor) Duration(ctx context.Context, videoPath string) (time.Duration, error) {
	// ffmpeg exits non-zero without an output file but still prints stream info.
	output, err := e.executor.RunOutput(ctx, e.ffmpegPath, []string{"-hide_banner", "-i", videoPath})
	if err != nil && output == "" {
		return 0, err
	}
	return parseDuration(output)
}

// parseDuration extracts the first "Duration:" field from ffmpeg output.
func parseDuration(output string) (time.Duration, error) {
	m := durationRe.FindStringSubmatch(output)
	if m == nil {
		return 0, fmt.Errorf("could not parse duration from ffmpeg output")
	}
	return parseTimeComponents(m[1], m[2], m[3], m[4]), nil
}

// parseTimeComponents converts HH, MM, SS and a fractional part of any
// precision (".4", ".45", ".456789") to a Duration truncated to milliseconds.
func parseTimeComponents(hours, minutes, seconds, fractional string) time.Duration {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)

	for len(fractional) < 3 {
		fractional += "0"
	}
	ms, _ := strconv.Atoi(fractional[:3])

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond
}
