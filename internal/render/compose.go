package render

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"broadcast/internal/cache"
	"broadcast/internal/config"
	"broadcast/internal/logx"
)

// BrollIndex marks timeline entries that belong to no slide.
const BrollIndex = -1

// durationSlack absorbs container rounding on top of the one-frame budget.
const durationSlack = 0.005

// Segment is one encoded, self-contained piece of the final timeline.
type Segment struct {
	Path            string  `json:"path"`
	SlideIndex      int     `json:"slide_index"`
	DurationSeconds float64 `json:"duration_s"`
}

// ErrSegmentEncodeFailed matches every SegmentEncodeFailedError.
var ErrSegmentEncodeFailed = errors.New("segment encode failed")

// SegmentEncodeFailedError reports a segment that ffmpeg could not produce or
// that came out at the wrong length.
type SegmentEncodeFailedError struct {
	Index   int
	Err     error
	LogPath string
}

func (e *SegmentEncodeFailedError) Error() string {
	msg := fmt.Sprintf("encode segment %d: %v", e.Index, e.Err)
	if e.LogPath != "" {
		msg += fmt.Sprintf(" (see %s)", e.LogPath)
	}
	return msg
}

func (e *SegmentEncodeFailedError) Unwrap() error { return e.Err }

func (e *SegmentEncodeFailedError) Is(target error) bool { return target == ErrSegmentEncodeFailed }

// Composer encodes slide segments and b-roll with a single profile.
type Composer struct {
	Profile Profile
	Runner  cache.Runner
	FFmpeg  string
	Prober  cache.Prober
	// Cache stores normalized b-roll. NormalizeClip requires it.
	Cache *cache.Cache
	// LogsDir receives one log per ffmpeg invocation. When empty, logs are
	// written next to the output.
	LogsDir string
	// Still encodes classic slides without the zoom.
	Still  bool
	Logger logx.Logger
}

// NewComposer builds a composer for cfg.
func NewComposer(cfg config.Config, runner cache.Runner, ffmpeg string, prober cache.Prober, logsDir string, logger logx.Logger) *Composer {
	if strings.TrimSpace(ffmpeg) == "" {
		ffmpeg = "ffmpeg"
	}
	return &Composer{
		Profile: ProfileFromConfig(cfg),
		Runner:  runner,
		FFmpeg:  ffmpeg,
		Prober:  prober,
		LogsDir: logsDir,
		Still:   cfg.Pipeline.NoZoom,
		Logger:  logx.OrDiscard(logger),
	}
}

// SegmentFileName is the file name of slide index's encoded segment.
func SegmentFileName(index int) string {
	return fmt.Sprintf("segment_%03d.mp4", index)
}

// ComposeSegment loops clip under overlay for exactly duration seconds with
// audio as the soundtrack.
func (c *Composer) ComposeSegment(ctx context.Context, index int, clip, overlay, audio string, duration float64, out string) (Segment, error) {
	if err := requireInputs(clip, overlay, audio); err != nil {
		return Segment{}, &SegmentEncodeFailedError{Index: index, Err: err}
	}
	args := BuildSegmentArgs(c.Profile, clip, overlay, audio, duration, out)
	return c.encode(ctx, index, args, duration, out)
}

// ComposeClassicSegment zooms slowly into a still slide, or holds it when
// Still is set, for exactly duration seconds with audio as the soundtrack.
func (c *Composer) ComposeClassicSegment(ctx context.Context, index int, slide, audio string, duration float64, out string) (Segment, error) {
	if err := requireInputs(slide, audio); err != nil {
		return Segment{}, &SegmentEncodeFailedError{Index: index, Err: err}
	}
	args := BuildClassicArgs(c.Profile, slide, audio, duration, c.Still, out)
	return c.encode(ctx, index, args, duration, out)
}

func (c *Composer) encode(ctx context.Context, index int, args []string, duration float64, out string) (Segment, error) {
	if duration <= 0 {
		return Segment{}, &SegmentEncodeFailedError{Index: index, Err: fmt.Errorf("invalid duration %.3fs", duration)}
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return Segment{}, &SegmentEncodeFailedError{Index: index, Err: fmt.Errorf("ensure segment directory: %w", err)}
	}

	logDir := c.LogsDir
	if logDir == "" {
		logDir = filepath.Dir(out)
	}
	logPath, err := runLogged(ctx, c.Runner, c.FFmpeg, args, logDir, fmt.Sprintf("segment_%03d.log", index))
	if err != nil {
		_ = os.Remove(out)
		return Segment{}, &SegmentEncodeFailedError{Index: index, Err: err, LogPath: logPath}
	}
	if ok, _ := nonEmptyFile(out); !ok {
		_ = os.Remove(out)
		return Segment{}, &SegmentEncodeFailedError{Index: index, Err: errors.New("ffmpeg produced no output"), LogPath: logPath}
	}

	if err := c.verifyDuration(ctx, out, duration); err != nil {
		_ = os.Remove(out)
		return Segment{}, &SegmentEncodeFailedError{Index: index, Err: err, LogPath: logPath}
	}

	c.Logger.Printf("segment %03d encoded %s (%.3fs)", index, filepath.Base(out), duration)
	return Segment{Path: out, SlideIndex: index, DurationSeconds: duration}, nil
}

func (c *Composer) verifyDuration(ctx context.Context, path string, want float64) error {
	if !c.Prober.Available() {
		c.Logger.Printf("skipping duration check for %s: %v", filepath.Base(path), cache.ErrProbeUnavailable)
		return nil
	}
	got, err := c.Prober.Duration(ctx, path)
	if err != nil {
		return fmt.Errorf("verify duration: %w", err)
	}
	if math.Abs(got-want) > c.Profile.FrameInterval()+durationSlack {
		return fmt.Errorf("duration %.3fs differs from target %.3fs by more than one frame", got, want)
	}
	return nil
}

// NormalizeClip re-encodes a b-roll clip to the composer's profile. Results
// are cached per clip id and profile, so repeated runs reuse them.
func (c *Composer) NormalizeClip(ctx context.Context, clipID, clipPath string) (Segment, error) {
	if c.Cache == nil {
		return Segment{}, fmt.Errorf("normalize %s: no cache configured", clipID)
	}
	id := clipID + "_" + c.Profile.ShortHash()

	path, err := c.Cache.FetchOrTransform(ctx, cache.KindNormalized, id, func(ctx context.Context, dest string) error {
		hasAudio, err := c.Prober.HasAudio(ctx, clipPath)
		if err != nil {
			c.Logger.Printf("normalize %s: audio probe failed, generating silence: %v", clipID, err)
			hasAudio = false
		}
		args := BuildNormalizeArgs(c.Profile, clipPath, hasAudio, dest)
		logDir := c.LogsDir
		if logDir == "" {
			logDir = filepath.Dir(dest)
		}
		logPath, err := runLogged(ctx, c.Runner, c.FFmpeg, args, logDir, "normalize_"+logName(clipID)+".log")
		if err != nil {
			return fmt.Errorf("%w (see %s)", err, logPath)
		}
		return nil
	})
	if err != nil {
		return Segment{}, err
	}

	seg := Segment{Path: path, SlideIndex: BrollIndex}
	if c.Prober.Available() {
		if d, err := c.Prober.Duration(ctx, path); err == nil {
			seg.DurationSeconds = d
		}
	}
	return seg, nil
}

// runLogged runs one tool invocation with stderr captured to logDir/name.
func runLogged(ctx context.Context, runner cache.Runner, command string, args []string, logDir, name string) (string, error) {
	if runner == nil {
		return "", errors.New("no process runner configured")
	}
	logFile, logPath, err := cache.OpenProcessLog(logDir, name)
	if err != nil {
		return "", err
	}
	defer logFile.Close()

	fmt.Fprintf(logFile, "$ %s %s\n", command, strings.Join(args, " "))
	if _, err := runner.Run(ctx, command, args, cache.RunOptions{Stderr: logFile}); err != nil {
		return logPath, fmt.Errorf("%s failed: %w", filepath.Base(command), err)
	}
	return logPath, nil
}

func requireInputs(paths ...string) error {
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			return errors.New("missing input path")
		}
		if ok, err := nonEmptyFile(p); err != nil {
			return fmt.Errorf("stat input %s: %w", p, err)
		} else if !ok {
			return fmt.Errorf("input %s is missing or empty", p)
		}
	}
	return nil
}

func nonEmptyFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular() && info.Size() > 0, nil
}

func logName(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
