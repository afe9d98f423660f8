package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"broadcast/internal/cache"
	"broadcast/internal/config"
	"broadcast/internal/logx"
)

// FinalVideo is the assembled output.
type FinalVideo struct {
	Path            string    `json:"path"`
	DurationSeconds float64   `json:"duration_s"`
	Segments        []Segment `json:"segments"`
}

// ErrConcatFailed matches every ConcatFailedError.
var ErrConcatFailed = errors.New("concat failed")

// ConcatFailedError reports a timeline that could not be joined.
type ConcatFailedError struct {
	Missing []string
	Err     error
	LogPath string
}

func (e *ConcatFailedError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("concat: missing %d segment file(s):\n  %s", len(e.Missing), strings.Join(e.Missing, "\n  "))
	}
	msg := fmt.Sprintf("concat: %v", e.Err)
	if e.LogPath != "" {
		msg += fmt.Sprintf(" (see %s)", e.LogPath)
	}
	return msg
}

func (e *ConcatFailedError) Unwrap() error { return e.Err }

func (e *ConcatFailedError) Is(target error) bool { return target == ErrConcatFailed }

// BuildTimeline orders segments by slide index. In classic mode one b-roll
// clip follows every second slide (after slides 1, 3, 5, ...) while clips last.
func BuildTimeline(segments, broll []Segment, mode string) []Segment {
	ordered := make([]Segment, len(segments))
	copy(ordered, segments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SlideIndex < ordered[j].SlideIndex
	})
	if mode != config.ModeClassic || len(broll) == 0 {
		return ordered
	}

	timeline := make([]Segment, 0, len(ordered)+len(broll))
	for i, seg := range ordered {
		timeline = append(timeline, seg)
		if i > 0 && i%2 == 1 && i/2 < len(broll) {
			clip := broll[i/2]
			clip.SlideIndex = BrollIndex
			timeline = append(timeline, clip)
		}
	}
	return timeline
}

// WriteConcatList writes an ffmpeg concat demuxer list to concatFile after
// verifying each entry exists.
func WriteConcatList(concatFile string, timeline []Segment) error {
	var missing []string
	for _, seg := range timeline {
		if _, err := os.Stat(seg.Path); err != nil {
			missing = append(missing, seg.Path)
		}
	}
	if len(missing) > 0 {
		return &ConcatFailedError{Missing: missing, Err: errors.New("missing segment files")}
	}

	if err := os.MkdirAll(filepath.Dir(concatFile), 0o755); err != nil {
		return fmt.Errorf("ensure concat list dir: %w", err)
	}
	f, err := os.Create(concatFile)
	if err != nil {
		return fmt.Errorf("create concat list: %w", err)
	}
	defer f.Close()

	for _, seg := range timeline {
		abs, err := filepath.Abs(seg.Path)
		if err != nil {
			abs = seg.Path
		}
		if _, err := fmt.Fprintf(f, "file '%s'\n", escapeConcatPath(abs)); err != nil {
			return fmt.Errorf("write concat list: %w", err)
		}
	}
	return nil
}

func escapeConcatPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}

// Assembler joins a timeline into a single file with stream copy.
type Assembler struct {
	Runner cache.Runner
	FFmpeg string
	Prober cache.Prober
	// ListPath is where the concat list is written. Defaults to out + ".txt".
	ListPath string
	LogsDir  string
	Logger   logx.Logger
}

// BuildConcatArgs returns the stream-copy concat invocation.
func BuildConcatArgs(listPath, out string) []string {
	return []string{
		"-hide_banner", "-nostdin", "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-movflags", "+faststart",
		out,
	}
}

// Assemble concatenates timeline into out without re-encoding.
func (a *Assembler) Assemble(ctx context.Context, timeline []Segment, out string) (FinalVideo, error) {
	logger := logx.OrDiscard(a.Logger)
	if len(timeline) == 0 {
		return FinalVideo{}, &ConcatFailedError{Err: errors.New("empty timeline")}
	}

	listPath := a.ListPath
	if listPath == "" {
		listPath = out + ".txt"
	}
	if err := WriteConcatList(listPath, timeline); err != nil {
		var cfe *ConcatFailedError
		if errors.As(err, &cfe) {
			return FinalVideo{}, cfe
		}
		return FinalVideo{}, &ConcatFailedError{Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return FinalVideo{}, &ConcatFailedError{Err: fmt.Errorf("prepare output dir: %w", err)}
	}

	ffmpeg := a.FFmpeg
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	logDir := a.LogsDir
	if logDir == "" {
		logDir = filepath.Dir(listPath)
	}
	logPath, err := runLogged(ctx, a.Runner, ffmpeg, BuildConcatArgs(listPath, out), logDir, "concat.log")
	if err != nil {
		_ = os.Remove(out)
		return FinalVideo{}, &ConcatFailedError{Err: err, LogPath: logPath}
	}
	if ok, _ := nonEmptyFile(out); !ok {
		_ = os.Remove(out)
		return FinalVideo{}, &ConcatFailedError{Err: errors.New("ffmpeg produced no output"), LogPath: logPath}
	}

	video := FinalVideo{Path: out, Segments: timeline}
	for _, seg := range timeline {
		video.DurationSeconds += seg.DurationSeconds
	}
	if a.Prober.Available() {
		if d, err := a.Prober.Duration(ctx, out); err == nil {
			video.DurationSeconds = d
		} else {
			logger.Printf("probe final video: %v", err)
		}
	}
	logger.Printf("assembled %d segments into %s (%.2fs)", len(timeline), out, video.DurationSeconds)
	return video, nil
}

// AssignClips cycles pool across n slides: slide i gets pool[i mod len(pool)].
// An empty pool yields nil.
func AssignClips[T any](n int, pool []T) []T {
	if n <= 0 || len(pool) == 0 {
		return nil
	}
	out := make([]T, n)
	for i := range out {
		out[i] = pool[i%len(pool)]
	}
	return out
}
