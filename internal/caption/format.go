package caption

import (
	"fmt"
	"strings"
)

// Format is a subtitle document format.
type Format int

const (
	FormatSRT Format = iota
	FormatVTT
)

// Formats lists every supported format in emission order.
var Formats = []Format{FormatSRT, FormatVTT}

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatSRT:
		return "srt"
	case FormatVTT:
		return "vtt"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	return "." + f.String()
}

// Render renders cues in this format.
func (f Format) Render(cues []Cue) string {
	if f == FormatVTT {
		return VTT(cues)
	}
	return SRT(cues)
}

// FormatTimestamp renders ms as HH:MM:SS<sep>mmm. Hours are not capped at 24.
// Negative input renders as zero.
func FormatTimestamp(ms int64, sep byte) string {
	if ms < 0 {
		ms = 0
	}
	totalSeconds := ms / 1000
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", hours, minutes, seconds, sep, ms%1000)
}

// SRT renders cues as a SubRip document. No cues render as "".
func SRT(cues []Cue) string {
	var b strings.Builder
	for _, c := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			c.Index, FormatTimestamp(c.StartMs, ','), FormatTimestamp(c.EndMs, ','), c.Text)
	}
	return b.String()
}

// VTT renders cues as a WebVTT document. No cues render as the bare header.
func VTT(cues []Cue) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, c := range cues {
		fmt.Fprintf(&b, "%s --> %s\n%s\n\n",
			FormatTimestamp(c.StartMs, '.'), FormatTimestamp(c.EndMs, '.'), c.Text)
	}
	return b.String()
}
