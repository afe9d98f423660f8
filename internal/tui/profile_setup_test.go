package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"broadcast/internal/config"
)

func press(m profileSetupModel, keys ...string) profileSetupModel {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		}
		updated, _ := m.Update(msg)
		m = updated.(profileSetupModel)
	}
	return m
}

func TestProfileSetupSeedsFromConfig(t *testing.T) {
	cfg := config.Default()
	m := newProfileSetupModel(cfg)
	res := press(m, "enter").result()

	if res.Cancelled {
		t.Fatal("expected a result, got cancelled")
	}
	if res.Width != cfg.Video.Width || res.Height != cfg.Video.Height {
		t.Errorf("expected %dx%d, got %dx%d", cfg.Video.Width, cfg.Video.Height, res.Width, res.Height)
	}
	if res.Voice != cfg.Narration.Voice {
		t.Errorf("expected voice %s, got %s", cfg.Narration.Voice, res.Voice)
	}
	if res.FPS != cfg.Video.FPS {
		t.Errorf("expected fps %d, got %d", cfg.Video.FPS, res.FPS)
	}
}

func TestProfileSetupNavigation(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.Mode = config.ModeBroadcast
	m := newProfileSetupModel(cfg)

	// Mode row: broadcast -> classic.
	m = press(m, "right")
	// Resolution row wraps backwards from its seeded value.
	m = press(m, "down", "down", "left", "left")
	res := press(m, "enter").result()

	if res.Mode != config.ModeClassic {
		t.Errorf("expected classic mode, got %s", res.Mode)
	}
	if res.Width != cfg.Video.Width || res.Height != cfg.Video.Height {
		t.Errorf("expected two left presses over two resolutions to return to %dx%d, got %dx%d",
			cfg.Video.Width, cfg.Video.Height, res.Width, res.Height)
	}
}

func TestProfileSetupFocusClamps(t *testing.T) {
	m := newProfileSetupModel(config.Default())
	m = press(m, "up")
	if m.focused != 0 {
		t.Errorf("expected focus to stay at 0, got %d", m.focused)
	}
	for range len(m.rows) + 3 {
		m = press(m, "down")
	}
	if m.focused != len(m.rows)-1 {
		t.Errorf("expected focus on last row, got %d", m.focused)
	}
}

func TestProfileSetupCancel(t *testing.T) {
	m := press(newProfileSetupModel(config.Default()), "right", "esc")
	res := m.result()
	if !res.Cancelled {
		t.Fatal("expected cancelled result")
	}

	cfg := config.Default()
	before := cfg
	res.Apply(&cfg)
	if cfg.Pipeline.Mode != before.Pipeline.Mode || cfg.Video.Width != before.Video.Width {
		t.Error("expected cancelled result to leave config untouched")
	}
}

func TestProfileSetupApply(t *testing.T) {
	cfg := config.Default()
	ProfileSetupResult{
		Mode:        config.ModeAuto,
		Voice:       "en-GB-RyanNeural",
		Width:       1280,
		Height:      720,
		FPS:         24,
		CRF:         18,
		Preset:      "slow",
		AudioKbps:   256,
		Concurrency: 4,
	}.Apply(&cfg)

	if cfg.Pipeline.Mode != config.ModeAuto || cfg.Pipeline.Concurrency != 4 {
		t.Errorf("unexpected pipeline %+v", cfg.Pipeline)
	}
	if cfg.Video.Width != 1280 || cfg.Video.Height != 720 || cfg.Video.FPS != 24 || cfg.Video.CRF != 18 || cfg.Video.Preset != "slow" {
		t.Errorf("unexpected video %+v", cfg.Video)
	}
	if cfg.Audio.BitrateKbps != 256 || cfg.Narration.Voice != "en-GB-RyanNeural" {
		t.Errorf("unexpected audio/voice %d %s", cfg.Audio.BitrateKbps, cfg.Narration.Voice)
	}
}

func TestParseResolution(t *testing.T) {
	tests := []struct {
		in   string
		w, h int
	}{
		{"1280×720", 1280, 720},
		{"1920×1080", 1920, 1080},
		{"bogus", 1920, 1080},
		{"0×720", 1920, 1080},
	}
	for _, tt := range tests {
		w, h := parseResolution(tt.in)
		if w != tt.w || h != tt.h {
			t.Errorf("parseResolution(%q) = %dx%d, want %dx%d", tt.in, w, h, tt.w, tt.h)
		}
	}
}
