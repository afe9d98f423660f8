package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

const (
	LevelError   = "error"
	LevelWarning = "warning"
)

// Validate runs every check against the config and returns structured
// results. projectRoot resolves relative font paths.
func (c Config) Validate(projectRoot string) []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateVideo()...)
	results = append(results, c.validateNarration()...)
	results = append(results, c.validateOverlay(projectRoot)...)
	results = append(results, c.validatePipeline()...)
	return results
}

// HasErrors reports whether any result is error-level.
func HasErrors(results []ValidationResult) bool {
	for _, r := range results {
		if r.Level == LevelError {
			return true
		}
	}
	return false
}

func (c Config) validateVideo() []ValidationResult {
	var results []ValidationResult
	if c.Video.Width <= 0 || c.Video.Height <= 0 {
		results = append(results, errorf("video dimensions must be positive, got %dx%d", c.Video.Width, c.Video.Height))
	}
	if c.Video.Width%2 != 0 || c.Video.Height%2 != 0 {
		results = append(results, errorf("video dimensions must be even for yuv420p, got %dx%d", c.Video.Width, c.Video.Height))
	}
	if c.Video.FPS <= 0 {
		results = append(results, errorf("video fps must be positive, got %d", c.Video.FPS))
	}
	if c.Video.CRF < 0 || c.Video.CRF > 51 {
		results = append(results, errorf("video crf must be between 0 and 51, got %d", c.Video.CRF))
	}
	if !isHexColor(c.Video.Background) {
		results = append(results, errorf("video background %q is not a hex color", c.Video.Background))
	}
	return results
}

func (c Config) validateNarration() []ValidationResult {
	var results []ValidationResult
	n := c.Narration
	if strings.TrimSpace(n.Voice) == "" {
		results = append(results, errorf("narration voice is empty"))
	}
	if n.WordsPerMinute <= 0 {
		results = append(results, errorf("narration words_per_minute must be positive"))
	}
	if n.MinSegmentSeconds <= 0 {
		results = append(results, errorf("narration min_segment_s must be positive"))
	} else if n.MinSegmentSeconds < 1 {
		results = append(results, warnf("narration min_segment_s %.2f is shorter than one second", n.MinSegmentSeconds))
	}
	if n.LeadInSeconds < 0 {
		results = append(results, errorf("narration lead_in_s must not be negative"))
	}
	return results
}

func (c Config) validateOverlay(projectRoot string) []ValidationResult {
	var results []ValidationResult
	o := c.Overlay
	if o.MaxBulletPoints <= 0 {
		results = append(results, errorf("overlay max_bullet_points must be positive"))
	}
	for _, font := range []string{o.FontFile, o.BoldFontFile} {
		if strings.TrimSpace(font) == "" {
			continue
		}
		resolved := resolveExternalPath(projectRoot, font)
		if _, err := os.Stat(resolved); err != nil {
			results = append(results, errorf("font file %q not found", font))
		} else if ext := strings.ToLower(filepath.Ext(resolved)); ext != ".ttf" && ext != ".otf" {
			results = append(results, warnf("font file %q is not a .ttf/.otf file", font))
		}
	}
	colors := map[string]string{
		"bg":       o.Colors.Background,
		"bg_light": o.Colors.BackgroundLight,
		"text":     o.Colors.Text,
		"text_dim": o.Colors.TextDim,
		"accent":   o.Colors.Accent,
		"blue":     o.Colors.Blue,
		"green":    o.Colors.Green,
		"red":      o.Colors.Red,
	}
	for _, name := range []string{"bg", "bg_light", "text", "text_dim", "accent", "blue", "green", "red"} {
		if !isHexColor(colors[name]) {
			results = append(results, errorf("overlay color %s %q is not a hex color", name, colors[name]))
		}
	}
	return results
}

func (c Config) validatePipeline() []ValidationResult {
	var results []ValidationResult
	switch c.Pipeline.Mode {
	case ModeBroadcast, ModeClassic, ModeAuto:
	default:
		results = append(results, errorf("pipeline mode %q must be one of broadcast, classic, auto", c.Pipeline.Mode))
	}
	if c.Pipeline.Concurrency < 1 {
		results = append(results, errorf("pipeline concurrency must be at least 1"))
	}
	if c.Sources.ClipLengthSec <= 0 {
		results = append(results, errorf("sources clip_length_s must be positive"))
	}
	if !strings.Contains(c.Sources.HeadshotURL, "{id}") {
		results = append(results, warnf("sources headshot_url has no {id} placeholder"))
	}
	return results
}

func isHexColor(value string) bool {
	value = strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(value) != 6 && len(value) != 8 {
		return false
	}
	_, err := strconv.ParseUint(value, 16, 32)
	return err == nil
}

func errorf(format string, args ...any) ValidationResult {
	return ValidationResult{Level: LevelError, Message: fmt.Sprintf(format, args...)}
}

func warnf(format string, args ...any) ValidationResult {
	return ValidationResult{Level: LevelWarning, Message: fmt.Sprintf(format, args...)}
}
