package tui

import (
	"fmt"
	"slices"

	tea "github.com/charmbracelet/bubbletea"

	"broadcast/internal/pipeline"
	"broadcast/internal/script"
)

// SlideColumns is the table layout for a generate run.
var SlideColumns = []Column{
	{Header: "#", Width: 3},
	{Header: "KIND", Width: 15},
	{Header: "HEADING", Width: 28},
	{Header: "STAGE", Width: 10},
	{Header: "STATUS", Width: 9},
	{Header: "DETAIL", Width: 36},
}

// SlideKey is the row key for slide index.
func SlideKey(index int) string { return fmt.Sprintf("slide:%03d", index) }

// NewSlideModel builds a progress model with one pending row per slide.
func NewSlideModel(title string, slides []script.Slide) ProgressModel {
	m := NewProgressModel(title, SlideColumns)
	for i, s := range slides {
		m.AddRow(SlideKey(i), []string{
			fmt.Sprintf("%d", i),
			string(s.Kind),
			NonEmptyOrDash(s.Heading),
			"-",
			pipeline.StatusPending,
			"",
		})
	}
	return m
}

// PipelineReporter forwards pipeline progress into a running program.
type PipelineReporter struct {
	send func(tea.Msg)
}

// NewPipelineReporter wraps a send callback, usually from RunWithWork.
func NewPipelineReporter(send func(tea.Msg)) *PipelineReporter {
	return &PipelineReporter{send: send}
}

func (r *PipelineReporter) StageStarted(stage pipeline.Stage) {
	r.send(StageMsg{Name: string(stage), Index: stageIndex(stage), Count: len(pipeline.Stages)})
}

func (r *PipelineReporter) StageFinished(pipeline.Stage, error) {}

func (r *PipelineReporter) SlideStatus(stage pipeline.Stage, index int, status, detail string) {
	r.send(RowUpdateMsg{
		Key: SlideKey(index),
		Fields: map[string]string{
			"STAGE":  string(stage),
			"STATUS": status,
			"DETAIL": detail,
		},
	})
}

// StatusReporter narrates pipeline progress through a StatusWriter for
// terminals without the full table.
type StatusReporter struct {
	sw    *StatusWriter
	total int
}

// NewStatusReporter reports on sw for a script of total slides. A total of
// zero omits the slide count, for callers that run several scripts.
func NewStatusReporter(sw *StatusWriter, total int) *StatusReporter {
	return &StatusReporter{sw: sw, total: total}
}

func (r *StatusReporter) StageStarted(stage pipeline.Stage) {
	r.sw.Update(fmt.Sprintf("[%d/%d] %s", stageIndex(stage)+1, len(pipeline.Stages), stage))
}

func (r *StatusReporter) StageFinished(stage pipeline.Stage, err error) {
	if err != nil {
		r.sw.Line(fmt.Sprintf("%s failed", stage))
		return
	}
	r.sw.Line(fmt.Sprintf("%s done", stage))
}

func (r *StatusReporter) SlideStatus(stage pipeline.Stage, index int, status, detail string) {
	switch status {
	case pipeline.StatusDegraded, pipeline.StatusError:
		r.sw.Line(fmt.Sprintf("  %s %s: %s", r.slide(index), status, detail))
	default:
		r.sw.Update(fmt.Sprintf("[%d/%d] %s: %s %s", stageIndex(stage)+1, len(pipeline.Stages), stage, r.slide(index), status))
	}
}

func (r *StatusReporter) slide(index int) string {
	if r.total > 0 {
		return fmt.Sprintf("slide %d/%d", index+1, r.total)
	}
	return fmt.Sprintf("slide %d", index+1)
}

func stageIndex(stage pipeline.Stage) int {
	return max(0, slices.Index(pipeline.Stages, stage))
}
