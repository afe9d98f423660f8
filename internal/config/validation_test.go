package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateDefaultsClean(t *testing.T) {
	results := Default().Validate(t.TempDir())
	if HasErrors(results) {
		t.Fatalf("expected default config to validate, got %v", results)
	}
}

func TestValidateReportsProblems(t *testing.T) {
	cfg := Default()
	cfg.Video.Width = 1921
	cfg.Video.FPS = 0
	cfg.Overlay.MaxBulletPoints = 0
	cfg.Overlay.Colors.Accent = "gold"
	cfg.Pipeline.Mode = "streaming"

	results := cfg.Validate(t.TempDir())
	want := []string{
		"must be even",
		"fps must be positive",
		"max_bullet_points",
		"accent",
		"pipeline mode",
	}
	for _, token := range want {
		if !containsMessage(results, token) {
			t.Fatalf("expected a result mentioning %q, got %v", token, results)
		}
	}
}

func TestValidateMissingFont(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Overlay.FontFile = "fonts/missing.ttf"
	results := cfg.Validate(dir)
	if !containsMessage(results, "not found") {
		t.Fatalf("expected missing font error, got %v", results)
	}

	writeFile(t, filepath.Join(dir, "present.woff"), "x")
	cfg.Overlay.FontFile = "present.woff"
	results = cfg.Validate(dir)
	if HasErrors(results) {
		t.Fatalf("expected only warnings, got %v", results)
	}
	if !containsMessage(results, "not a .ttf") {
		t.Fatalf("expected extension warning, got %v", results)
	}
}

func TestIsHexColor(t *testing.T) {
	cases := map[string]bool{
		"#0c1929":   true,
		"0c1929":    true,
		"#ffffff80": true,
		"white":     false,
		"#fff":      false,
		"":          false,
	}
	for input, want := range cases {
		if got := isHexColor(input); got != want {
			t.Fatalf("isHexColor(%q) = %v, want %v", input, got, want)
		}
	}
}

func containsMessage(results []ValidationResult, token string) bool {
	for _, r := range results {
		if strings.Contains(r.Message, token) {
			return true
		}
	}
	return false
}
