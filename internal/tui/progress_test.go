package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func segmentModel() ProgressModel {
	m := NewProgressModel("Japan vs Australia", []Column{
		{Header: "#", Width: 3},
		{Header: "STAGE", Width: 10},
		{Header: "STATUS", Width: 9},
		{Header: "DETAIL", Width: 12},
	})
	m.AddRow("slide:000", []string{"0", "-", "pending"})
	m.AddRow("slide:001", []string{"1", "-", "pending"})
	return m
}

func update(t *testing.T, m ProgressModel, msg tea.Msg) (ProgressModel, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(ProgressModel), cmd
}

func TestAddRowPadsMissingFields(t *testing.T) {
	m := segmentModel()
	if got := len(m.rows[0].Fields); got != 4 {
		t.Fatalf("expected 4 fields, got %d", got)
	}
	if m.rows[0].Fields[3] != "" {
		t.Errorf("expected empty DETAIL, got %q", m.rows[0].Fields[3])
	}
}

func TestRowUpdateByHeader(t *testing.T) {
	m, _ := update(t, segmentModel(), RowUpdateMsg{
		Key:    "slide:001",
		Fields: map[string]string{"STAGE": "segments", "STATUS": "encoded", "DETAIL": "4.20s"},
	})
	if got := m.rows[1].Fields; got[1] != "segments" || got[2] != "encoded" || got[3] != "4.20s" {
		t.Errorf("unexpected row fields %v", got)
	}
	if m.rows[0].Fields[2] != "pending" {
		t.Errorf("expected slide 0 untouched, got %q", m.rows[0].Fields[2])
	}

	m, _ = update(t, m, RowUpdateMsg{Key: "slide:042", Fields: map[string]string{"STATUS": "error"}})
	for _, row := range m.rows {
		if row.Fields[2] == "error" {
			t.Errorf("unknown key changed row %s", row.Key)
		}
	}
}

func TestCountsOnlyRowsInCurrentStage(t *testing.T) {
	m := segmentModel()
	m, _ = update(t, m, StageMsg{Name: "narration", Index: 0, Count: 6})
	m, _ = update(t, m, RowUpdateMsg{Key: "slide:000", Fields: map[string]string{"STAGE": "narration", "STATUS": "narrated"}})
	m, _ = update(t, m, RowUpdateMsg{Key: "slide:001", Fields: map[string]string{"STAGE": "narration", "STATUS": "running"}})

	if processed, total := m.progressCounts(); processed != 1 || total != 2 {
		t.Errorf("expected 1/2, got %d/%d", processed, total)
	}

	// A new stage resets the count until rows report in it.
	m, _ = update(t, m, StageMsg{Name: "overlays", Index: 2, Count: 6})
	if processed, _ := m.progressCounts(); processed != 0 {
		t.Errorf("expected 0 processed in new stage, got %d", processed)
	}
	if got := m.fraction(); got != 2.0/6.0 {
		t.Errorf("expected fraction 1/3, got %v", got)
	}
}

func TestViewRendersTableAndFooter(t *testing.T) {
	m := segmentModel()
	m, _ = update(t, m, StageMsg{Name: "segments", Index: 4, Count: 6})
	view := m.View()
	for _, want := range []string{"Japan vs Australia", "STAGE", "DETAIL", "pending", "segments (5/6)", "Processing 0/2"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q:\n%s", want, view)
		}
	}

	m, _ = update(t, m, WorkDoneMsg{})
	if strings.Contains(m.View(), "Processing") {
		t.Error("expected footer hidden once done")
	}
}

func TestTerminalMessages(t *testing.T) {
	m, cmd := update(t, segmentModel(), ErrorMsg{Err: errors.New("segments: slide 1: encode failed")})
	if !m.Done() || m.Err() == nil || cmd == nil {
		t.Fatalf("expected done with error and quit, got done=%v err=%v", m.Done(), m.Err())
	}
	if !strings.HasPrefix(m.View(), "Error: segments") {
		t.Errorf("unexpected error view %q", m.View())
	}

	m, cmd = update(t, segmentModel(), tea.KeyMsg{Type: tea.KeyCtrlC})
	if !m.Done() || m.Err() != nil || cmd == nil {
		t.Error("expected ctrl+c to quit without error")
	}
}

func TestTickAdvancesUntilDone(t *testing.T) {
	m, cmd := update(t, segmentModel(), tickMsg{})
	if m.tick != 1 || cmd == nil {
		t.Fatalf("expected tick 1 with a follow-up, got tick=%d", m.tick)
	}
	m, _ = update(t, m, WorkDoneMsg{})
	if _, cmd = update(t, m, tickMsg{}); cmd != nil {
		t.Error("expected no tick scheduled after done")
	}
}

func TestTruncateWithEllipsis(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"Pool C", 10, "Pool C"},
		{"Japan vs Australia highlights", 12, "Japan vs ..."},
		{"abcd", 3, "abc"},
		{"  padded  ", 6, "padded"},
		{"anything", 0, ""},
	}
	for _, tt := range tests {
		if got := TruncateWithEllipsis(tt.in, tt.max); got != tt.want {
			t.Errorf("TruncateWithEllipsis(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestMarqueeTextSlides(t *testing.T) {
	tests := []struct {
		text  string
		width int
		tick  int
		want  string
	}{
		{"fits", 8, 3, "fits"},
		{"no headshot", 5, 0, "no he"},
		{"no headshot", 5, 3, "headshot"[:5]},
		{"abcdef", 4, 6, "   a"},
	}
	for _, tt := range tests {
		if got := marqueeText(tt.text, tt.width, tt.tick); got != tt.want {
			t.Errorf("marqueeText(%q, %d, %d) = %q, want %q", tt.text, tt.width, tt.tick, got, tt.want)
		}
	}
}

func TestNonEmptyOrDash(t *testing.T) {
	if NonEmptyOrDash("  ") != "-" || NonEmptyOrDash(" Outro ") != "Outro" {
		t.Error("unexpected NonEmptyOrDash result")
	}
}
