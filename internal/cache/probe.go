package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Prober measures media files with ffprobe.
type Prober struct {
	Runner  Runner
	Command string
}

// ErrProbeUnavailable is returned when no ffprobe binary is configured.
var ErrProbeUnavailable = errors.New("ffprobe unavailable")

// Available reports whether the prober can run.
func (p Prober) Available() bool {
	return p.Runner != nil && strings.TrimSpace(p.Command) != ""
}

// Duration returns the container duration of path in seconds.
func (p Prober) Duration(ctx context.Context, path string) (float64, error) {
	if !p.Available() {
		return 0, ErrProbeUnavailable
	}
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	res, err := p.Runner.Run(ctx, p.Command, args, RunOptions{})
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	raw := strings.TrimSpace(string(res.Stdout))
	if raw == "" || raw == "N/A" {
		return 0, fmt.Errorf("ffprobe %s: no duration reported", path)
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: parse duration %q: %w", path, raw, err)
	}
	return seconds, nil
}

// HasAudio reports whether path carries at least one audio stream.
func (p Prober) HasAudio(ctx context.Context, path string) (bool, error) {
	if !p.Available() {
		return false, ErrProbeUnavailable
	}
	args := []string{
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=codec_type",
		"-of", "csv=p=0",
		path,
	}
	res, err := p.Runner.Run(ctx, p.Command, args, RunOptions{})
	if err != nil {
		return false, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return strings.Contains(string(res.Stdout), "audio"), nil
}
