// Package format renders durations, sizes and ratios for terminal output.
package format

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Duration formats a duration as HH:MM:SS or MM:SS.
func Duration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// DurationHuman formats a duration for human display.
// Examples: "2h", "30m", "1h30m", "45s"
func DurationHuman(d time.Duration) string {
	if d >= time.Hour {
		hours := d / time.Hour
		minutes := (d % time.Hour) / time.Minute
		if minutes > 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}
	if d >= time.Minute {
		return fmt.Sprintf("%dm", d/time.Minute)
	}
	return fmt.Sprintf("%ds", d/time.Second)
}

// Size formats a size in bytes using IEC units ("512 B", "1.5 KiB", "50 MiB").
// Negative sizes render as "0 B".
func Size(bytes int64) string {
	return humanize.IBytes(uint64(max(bytes, 0)))
}

// Percent formats a [0, 1] fraction with one decimal ("93.4%").
// Values outside the range are clamped.
func Percent(f float64) string {
	return fmt.Sprintf("%.1f%%", min(max(f, 0), 1)*100)
}

// Ago formats t relative to now ("3 minutes ago").
func Ago(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}
