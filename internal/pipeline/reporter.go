package pipeline

import (
	"errors"
	"fmt"
)

// Stage names one barrier-separated phase of a run.
type Stage string

const (
	StageNarration Stage = "narration"
	StageHeadshots Stage = "headshots"
	StageOverlays  Stage = "overlays"
	StageClips     Stage = "clips"
	StageSegments  Stage = "segments"
	StageAssemble  Stage = "assemble"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageNarration, StageHeadshots, StageOverlays, StageClips, StageSegments, StageAssemble}

// Per-slide statuses passed to Reporter.SlideStatus.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusNarrated  = "narrated"
	StatusRendered  = "rendered"
	StatusEncoded   = "encoded"
	StatusDegraded  = "degraded"
	StatusError     = "error"
	StatusCompleted = "complete"
)

// Reporter receives progress events. Calls may arrive from several worker
// goroutines at once.
type Reporter interface {
	StageStarted(stage Stage)
	StageFinished(stage Stage, err error)
	SlideStatus(stage Stage, index int, status, detail string)
}

// NopReporter discards every event.
type NopReporter struct{}

func (NopReporter) StageStarted(Stage) {}

func (NopReporter) StageFinished(Stage, error) {}

func (NopReporter) SlideStatus(Stage, int, string, string) {}

// StageError tags a run failure with the stage and, where relevant, the slide
// it came from. Index is -1 for failures that belong to no single slide.
type StageError struct {
	Stage Stage
	Index int
	Err   error
}

func (e *StageError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s stage failed at slide %d: %v", e.Stage, e.Index, e.Err)
	}
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ErrOutputLocked is returned when another run holds the output lock.
var ErrOutputLocked = errors.New("output is locked by another run")
