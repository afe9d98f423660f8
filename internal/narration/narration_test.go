package narration

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"broadcast/internal/cache"
	"broadcast/internal/script"
)

type fakeEngine struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
	empty bool
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Synthesize(_ context.Context, text, _ string, outPath string) error {
	f.mu.Lock()
	f.calls = append(f.calls, filepath.Base(outPath))
	f.mu.Unlock()
	if f.fail[text] {
		return errors.New("voice service unavailable")
	}
	if f.empty {
		return os.WriteFile(outPath, nil, 0o644)
	}
	return os.WriteFile(outPath, []byte("mp3:"+text), 0o644)
}

type fakeRunner struct {
	durations map[string]string
}

func (f *fakeRunner) Run(_ context.Context, command string, args []string, opts cache.RunOptions) (cache.RunResult, error) {
	switch filepath.Base(command) {
	case "ffprobe":
		target := filepath.Base(args[len(args)-1])
		d, ok := f.durations[target]
		if !ok {
			return cache.RunResult{}, fmt.Errorf("no such file %s", target)
		}
		return cache.RunResult{Stdout: []byte(d + "\n")}, nil
	case "edge-tts":
		var out string
		for i := 0; i+1 < len(args); i++ {
			if args[i] == "--write-media" {
				out = args[i+1]
			}
		}
		if opts.Stderr != nil {
			fmt.Fprintln(opts.Stderr, "WEBVTT")
		}
		return cache.RunResult{}, os.WriteFile(out, []byte("audio"), 0o644)
	default:
		return cache.RunResult{}, fmt.Errorf("fake runner: unexpected command %s", command)
	}
}

func testOptions() Options {
	return Options{
		Voice:             "en-US-AndrewNeural",
		WordsPerMinute:    150,
		LeadInSeconds:     1.5,
		MinSegmentSeconds: 3,
		ToleranceSeconds:  2,
		Concurrency:       2,
	}
}

func TestEstimate(t *testing.T) {
	text := strings.Repeat("word ", 150)
	if got := Estimate(text, 150, 1.5); math.Abs(got-61.5) > 1e-9 {
		t.Fatalf("Estimate = %v, want 61.5", got)
	}
	if got := Estimate("", 150, 1.5); got != 1.5 {
		t.Fatalf("empty estimate = %v", got)
	}
}

func TestSynthesizeUsesProbedDurations(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{durations: map[string]string{
		"slide_000.mp3": "7.25",
		"slide_001.mp3": "1.1",
	}}
	s := &Synthesizer{
		Engine:  &fakeEngine{},
		Prober:  cache.Prober{Runner: runner, Command: "ffprobe"},
		Options: testOptions(),
	}
	slides := []script.Slide{
		{Kind: script.KindTitle, Narration: "Welcome to the preview of the tournament."},
		{Kind: script.KindOutro, Narration: "Bye."},
	}
	assets, err := s.Synthesize(context.Background(), slides, dir)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("expected 2 assets, got %d", len(assets))
	}
	if assets[0].DurationSeconds != 7.25 || assets[0].Estimated {
		t.Fatalf("unexpected first asset %+v", assets[0])
	}
	if assets[1].DurationSeconds != 3 {
		t.Fatalf("expected floor of 3s, got %v", assets[1].DurationSeconds)
	}
	for i, a := range assets {
		if a.SlideIndex != i || filepath.Base(a.Path) != FileName(i) {
			t.Fatalf("asset %d out of order: %+v", i, a)
		}
	}
}

func TestSynthesizeFallsBackToEstimate(t *testing.T) {
	s := &Synthesizer{Engine: &fakeEngine{}, Options: testOptions()}
	narration := strings.Repeat("baseball ", 30)
	assets, err := s.Synthesize(context.Background(), []script.Slide{{Narration: narration}}, t.TempDir())
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if !assets[0].Estimated {
		t.Fatal("expected estimated duration without a prober")
	}
	if want := 30.0/150*60 + 1.5; math.Abs(assets[0].DurationSeconds-want) > 1e-9 {
		t.Fatalf("duration = %v, want %v", assets[0].DurationSeconds, want)
	}
}

func TestSynthesizeFailureIsTyped(t *testing.T) {
	engine := &fakeEngine{fail: map[string]bool{"Second slide.": true}}
	s := &Synthesizer{Engine: engine, Options: testOptions()}
	s.Options.Concurrency = 1
	slides := []script.Slide{{Narration: "First slide."}, {Narration: "Second slide."}, {Narration: "Third slide."}}

	_, err := s.Synthesize(context.Background(), slides, t.TempDir())
	var synthErr *SynthesisFailedError
	if !errors.As(err, &synthErr) {
		t.Fatalf("expected SynthesisFailedError, got %v", err)
	}
	if synthErr.Index != 1 || !errors.Is(err, ErrSynthesisFailed) {
		t.Fatalf("unexpected error %+v", synthErr)
	}
}

func TestSynthesizeRejectsEmptyNarrationAndOutput(t *testing.T) {
	s := &Synthesizer{Engine: &fakeEngine{}, Options: testOptions()}
	if _, err := s.SynthesizeSlide(context.Background(), 4, script.Slide{Narration: "  "}, t.TempDir()); !errors.Is(err, ErrSynthesisFailed) {
		t.Fatalf("expected failure for empty narration, got %v", err)
	}

	s.Engine = &fakeEngine{empty: true}
	dir := t.TempDir()
	_, err := s.SynthesizeSlide(context.Background(), 0, script.Slide{Narration: "Hello."}, dir)
	if !errors.Is(err, ErrSynthesisFailed) {
		t.Fatalf("expected failure for empty output, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, FileName(0))); !os.IsNotExist(statErr) {
		t.Fatal("empty output should be removed")
	}
}

func TestEdgeTTSArgsAndLog(t *testing.T) {
	dir := t.TempDir()
	logs := filepath.Join(dir, "logs")
	runner := &fakeRunner{durations: map[string]string{"slide_002.mp3": "4.0"}}
	s := &Synthesizer{
		Engine:  NewEdgeTTS(runner, "", logs),
		Prober:  cache.Prober{Runner: runner, Command: "ffprobe"},
		Options: testOptions(),
	}
	asset, err := s.SynthesizeSlide(context.Background(), 2, script.Slide{Narration: "Ohtani strikes out Trout."}, dir)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if asset.DurationSeconds != 4 {
		t.Fatalf("unexpected duration %v", asset.DurationSeconds)
	}
	data, err := os.ReadFile(filepath.Join(logs, "tts_002.log"))
	if err != nil {
		t.Fatalf("expected per-slide log: %v", err)
	}
	if !strings.Contains(string(data), "WEBVTT") {
		t.Fatalf("unexpected log contents %q", data)
	}
}
