package pipeline

import "fmt"

// Stage is a state of one pipeline run.
//
//	Idle -> Extracting -> Transcribing -> Chunking -> Emitting -> Cleanup -> Done
//
// Any state may move to Failed. Done and Failed are terminal.
type Stage int

const (
	StageIdle Stage = iota
	StageExtracting
	StageTranscribing
	StageChunking
	StageEmitting
	StageCleanup
	StageDone
	StageFailed
)

var stageNames = [...]string{
	StageIdle:         "idle",
	StageExtracting:   "extracting",
	StageTranscribing: "transcribing",
	StageChunking:     "chunking",
	StageEmitting:     "emitting",
	StageCleanup:      "cleanup",
	StageDone:         "done",
	StageFailed:       "failed",
}

// String returns the lowercase stage name.
func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Terminal reports whether no further transitions follow s.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}
