package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"broadcast/internal/pipeline"
	"broadcast/internal/script"
)

func testSlides() []script.Slide {
	return []script.Slide{
		{Kind: script.KindTitle, Heading: "Pool A Preview", Narration: "Welcome."},
		{Kind: script.KindPlayer, Heading: "Shohei Ohtani", Narration: "Two-way star."},
		{Kind: script.KindOutro, Narration: "Thanks for watching."},
	}
}

func applyAll(m ProgressModel, msgs []tea.Msg) ProgressModel {
	for _, msg := range msgs {
		updated, _ := m.Update(msg)
		m = updated.(ProgressModel)
	}
	return m
}

func TestNewSlideModel(t *testing.T) {
	m := NewSlideModel("Pool A", testSlides())
	if len(m.rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(m.rows))
	}
	if m.rows[1].Key != SlideKey(1) {
		t.Errorf("expected key %s, got %s", SlideKey(1), m.rows[1].Key)
	}
	if m.rows[1].Fields[1] != "player" {
		t.Errorf("expected KIND=player, got %q", m.rows[1].Fields[1])
	}
	if m.rows[2].Fields[2] != "-" {
		t.Errorf("expected empty heading shown as dash, got %q", m.rows[2].Fields[2])
	}
	if m.rows[0].Fields[m.statusCol] != pipeline.StatusPending {
		t.Errorf("expected pending status, got %q", m.rows[0].Fields[m.statusCol])
	}
}

func TestPipelineReporterUpdatesRows(t *testing.T) {
	var msgs []tea.Msg
	r := NewPipelineReporter(func(msg tea.Msg) { msgs = append(msgs, msg) })

	r.StageStarted(pipeline.StageOverlays)
	r.SlideStatus(pipeline.StageOverlays, 1, pipeline.StatusDegraded, "no headshot: Shohei Ohtani")
	r.StageFinished(pipeline.StageOverlays, nil)

	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	stage, ok := msgs[0].(StageMsg)
	if !ok {
		t.Fatalf("expected StageMsg, got %T", msgs[0])
	}
	if stage.Name != "overlays" || stage.Index != 2 || stage.Count != len(pipeline.Stages) {
		t.Errorf("unexpected stage msg %+v", stage)
	}

	m := applyAll(NewSlideModel("Pool A", testSlides()), msgs)
	row := m.rows[1].Fields
	if row[3] != "overlays" || row[4] != "degraded" || row[5] != "no headshot: Shohei Ohtani" {
		t.Errorf("unexpected row fields %q", row)
	}
	if m.rows[0].Fields[4] != "pending" {
		t.Errorf("expected other rows untouched, got %q", m.rows[0].Fields[4])
	}
}

func TestStageFraction(t *testing.T) {
	m := NewSlideModel("Pool A", testSlides())
	m = applyAll(m, []tea.Msg{
		StageMsg{Name: "segments", Index: 4, Count: 6},
		RowUpdateMsg{Key: SlideKey(0), Fields: map[string]string{"STAGE": "segments", "STATUS": "encoded"}},
		// A row still showing an earlier stage does not count toward this one.
		RowUpdateMsg{Key: SlideKey(1), Fields: map[string]string{"STAGE": "overlays", "STATUS": "rendered"}},
	})

	processed, total := m.progressCounts()
	if processed != 1 || total != 3 {
		t.Fatalf("expected 1/3, got %d/%d", processed, total)
	}
	want := (4 + 1.0/3.0) / 6
	if got := m.fraction(); got < want-1e-9 || got > want+1e-9 {
		t.Errorf("expected fraction %.4f, got %.4f", want, got)
	}

	view := m.View()
	if !strings.Contains(view, "segments (5/6)") {
		t.Errorf("expected stage in footer, got:\n%s", view)
	}
}

func TestFractionWithoutStages(t *testing.T) {
	m := NewProgressModel("batch", []Column{{Header: "STATUS", Width: 8}})
	m.AddRow("a", []string{"ok"})
	m.AddRow("b", []string{"pending"})
	if got := m.fraction(); got != 0.5 {
		t.Errorf("expected 0.5, got %v", got)
	}
}

func TestStatusWriterLineAfterStop(t *testing.T) {
	var buf bytes.Buffer
	sw := NewStatusWriter(&buf)
	sw.Stop()
	sw.Line("segments done")
	if !strings.HasSuffix(buf.String(), "segments done\n") {
		t.Errorf("expected plain line after stop, got %q", buf.String())
	}
}

func TestStatusWriterRenderKeepsJobPrefix(t *testing.T) {
	var buf bytes.Buffer
	sw := NewStatusWriter(&buf)
	sw.Stop()

	sw.SetPrefix("job 2/3 japan")
	sw.Update("[4/6] clips")
	now := sw.phaseStart.Add(2500 * time.Millisecond)
	if got := sw.render(now); got != "⠋ job 2/3 japan [4/6] clips (2.5s)" {
		t.Errorf("unexpected status line %q", got)
	}

	sw.Update("")
	if got := sw.render(sw.phaseStart.Add(90 * time.Second)); got != "⠋ job 2/3 japan (1m30s)" {
		t.Errorf("unexpected status line %q", got)
	}
}

func TestStageIndex(t *testing.T) {
	if got := stageIndex(pipeline.StageNarration); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if got := stageIndex(pipeline.StageAssemble); got != len(pipeline.Stages)-1 {
		t.Errorf("expected last index, got %d", got)
	}
	if got := stageIndex("unknown"); got != 0 {
		t.Errorf("expected unknown stage to clamp to 0, got %d", got)
	}
}

func TestStatusReporterPrintsDegradedSlides(t *testing.T) {
	var buf bytes.Buffer
	sw := NewStatusWriter(&buf)
	sw.Stop()

	r := NewStatusReporter(sw, 3)
	r.SlideStatus(pipeline.StageOverlays, 1, pipeline.StatusDegraded, "no headshot: Shohei Ohtani")
	r.StageFinished(pipeline.StageOverlays, nil)

	got := buf.String()
	if !strings.Contains(got, "slide 2/3 degraded: no headshot: Shohei Ohtani\n") {
		t.Errorf("expected degraded line, got %q", got)
	}
	if !strings.HasSuffix(got, "overlays done\n") {
		t.Errorf("expected stage line, got %q", got)
	}

	buf.Reset()
	NewStatusReporter(sw, 0).SlideStatus(pipeline.StageNarration, 0, pipeline.StatusError, "boom")
	if got := buf.String(); got != "  slide 1 error: boom\n" {
		t.Errorf("expected count-free line, got %q", got)
	}
}
