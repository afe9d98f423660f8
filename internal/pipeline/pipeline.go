package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"broadcast/internal/cache"
	"broadcast/internal/config"
	"broadcast/internal/graphics"
	"broadcast/internal/logx"
	"broadcast/internal/narration"
	"broadcast/internal/paths"
	"broadcast/internal/render"
	"broadcast/internal/script"
	"broadcast/internal/sources"
)

// Tools holds resolved executable paths.
type Tools struct {
	FFmpeg  string
	FFprobe string
	EdgeTTS string
}

// Pipeline turns scripts into finished videos. One value can serve many runs;
// per-run state lives in Run.
type Pipeline struct {
	Config config.Config
	Paths  paths.ProjectPaths
	Cache  *cache.Cache
	Runner cache.Runner
	Tools  Tools
	// Engine overrides the configured narration engine.
	Engine narration.Engine
	// Client overrides the default MLB Stats API client.
	Client *sources.Client
	Logger logx.Logger
	// NewRunID overrides uuid generation.
	NewRunID func() string
}

// Options tunes a single run.
type Options struct {
	// Output is the final video path. Empty derives a name from the script
	// title inside the project's output directory.
	Output string
	// Mode overrides the configured pipeline mode.
	Mode     string
	Clips    sources.ClipContext
	MaxClips int
	// Concurrency overrides the configured per-stage worker count.
	Concurrency int
	KeepWork    bool
	// NoZoom holds classic slides still instead of zooming.
	NoZoom   bool
	Reporter Reporter
}

// Result describes a finished run.
type Result struct {
	RunID    string                 `json:"run_id"`
	Output   string                 `json:"output"`
	Mode     string                 `json:"mode"`
	Video    render.FinalVideo      `json:"video"`
	Audio    []narration.AudioAsset `json:"audio"`
	Clips    []sources.ClipAsset    `json:"clips"`
	Degraded []int                  `json:"degraded_slides,omitempty"`
	WorkDir  string                 `json:"work_dir,omitempty"`
	Elapsed  time.Duration          `json:"elapsed"`
}

// run carries the state of one Run call between stages.
type run struct {
	p        *Pipeline
	opts     Options
	slides   []script.Slide
	rp       paths.RunPaths
	mode     string
	workers  int
	logger   logx.Logger
	reporter Reporter

	audio     []narration.AudioAsset
	headshots *sources.Headshots
	overlays  []graphics.OverlayImage
	classic   []graphics.OverlayImage
	clips     []sources.ClipAsset
	segments  []render.Segment
	broll     []render.Segment
	degraded  []int

	renderer *graphics.Renderer
	sourcer  *sources.Sourcer
	composer *render.Composer
}

// OutputPath resolves where a run for s will write when opts names no output.
func (p *Pipeline) OutputPath(s script.Script, opts Options) string {
	if strings.TrimSpace(opts.Output) != "" {
		return p.Paths.OutputFile(opts.Output)
	}
	name := paths.Slug(s.Title)
	if name == "" {
		name = "broadcast"
	}
	return p.Paths.OutputFile(name)
}

// Run executes every stage for s. Stages run strictly in sequence; within a
// stage slides are processed on a bounded pool and the first failure cancels
// the rest. The output appears only when the whole run succeeds.
func (p *Pipeline) Run(ctx context.Context, s script.Script, opts Options) (Result, error) {
	start := time.Now()
	logger := logx.OrDiscard(p.Logger)

	if issues := s.Validate(); len(issues.Fatal()) > 0 {
		return Result{}, fmt.Errorf("invalid script: %w", issues.Fatal())
	} else if len(issues) > 0 {
		for _, issue := range issues {
			logger.Printf("script warning: %s", issue.Error())
		}
	}

	mode := strings.TrimSpace(opts.Mode)
	if mode == "" {
		mode = p.Config.Pipeline.Mode
	}
	switch mode {
	case config.ModeBroadcast, config.ModeClassic, config.ModeAuto:
	default:
		return Result{}, fmt.Errorf("unknown mode %q", mode)
	}

	out := p.OutputPath(s, opts)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return Result{}, fmt.Errorf("ensure output dir: %w", err)
	}
	unlock, err := lockOutput(out)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	runID := uuid.NewString()
	if p.NewRunID != nil {
		runID = p.NewRunID()
	}
	rp := p.Paths.Run(runID)
	if err := rp.Ensure(); err != nil {
		return Result{}, err
	}

	r := &run{
		p:        p,
		opts:     opts,
		slides:   s.Slides,
		rp:       rp,
		mode:     mode,
		workers:  max(1, firstPositive(opts.Concurrency, p.Config.Pipeline.Concurrency)),
		logger:   logx.Prefixed(logger, "["+runID[:min(8, len(runID))]+"] "),
		reporter: opts.Reporter,
	}
	if r.reporter == nil {
		r.reporter = NopReporter{}
	}
	r.logger.Printf("run start title=%q slides=%d mode=%s out=%s", s.Title, len(s.Slides), mode, out)

	if err := r.setup(); err != nil {
		return Result{}, err
	}

	partial := partialPath(out)
	video, err := r.execute(ctx, partial)
	if err != nil {
		_ = os.Remove(partial)
		r.logger.Printf("run failed: %v (work kept at %s)", err, rp.Root)
		return Result{RunID: runID, Output: out, Mode: r.mode, WorkDir: rp.Root}, err
	}
	if err := os.Rename(partial, out); err != nil {
		_ = os.Remove(partial)
		return Result{}, &StageError{Stage: StageAssemble, Index: -1, Err: fmt.Errorf("publish output: %w", err)}
	}
	video.Path = out

	res := Result{
		RunID:    runID,
		Output:   out,
		Mode:     r.mode,
		Video:    video,
		Audio:    r.audio,
		Clips:    r.clips,
		Degraded: r.degraded,
		Elapsed:  time.Since(start),
	}
	keep := opts.KeepWork || p.Config.Pipeline.KeepWork
	if keep {
		res.WorkDir = rp.Root
	} else if err := rp.Remove(); err != nil {
		r.logger.Printf("remove work dir: %v", err)
	}
	r.logger.Printf("run complete out=%s duration=%.2fs elapsed=%s", out, video.DurationSeconds, res.Elapsed.Round(time.Millisecond))
	return res, nil
}

func (r *run) setup() error {
	p := r.p
	renderer, err := graphics.NewRenderer(p.Config, p.Paths.Root, r.logger)
	if err != nil {
		return fmt.Errorf("build renderer: %w", err)
	}
	r.renderer = renderer

	client := p.Client
	if client == nil {
		client = sources.NewClient(p.Config, nil, r.logger)
	}
	r.sourcer = sources.NewSourcer(p.Config, client, p.Cache, p.Runner, p.Tools.FFmpeg, r.rp.LogsDir, r.logger)
	r.sourcer.Concurrency = r.workers

	prober := cache.Prober{Runner: p.Runner, Command: p.Tools.FFprobe}
	r.composer = render.NewComposer(p.Config, p.Runner, p.Tools.FFmpeg, prober, r.rp.LogsDir, r.logger)
	r.composer.Cache = p.Cache
	if r.opts.NoZoom {
		r.composer.Still = true
	}
	return nil
}

func (r *run) execute(ctx context.Context, partial string) (render.FinalVideo, error) {
	steps := []struct {
		stage Stage
		fn    func(context.Context) error
	}{
		{StageNarration, r.narrate},
		{StageHeadshots, r.fetchHeadshots},
		{StageOverlays, r.renderOverlays},
		{StageClips, r.resolveClips},
		{StageSegments, r.composeSegments},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return render.FinalVideo{}, &StageError{Stage: step.stage, Index: -1, Err: err}
		}
		r.reporter.StageStarted(step.stage)
		err := step.fn(ctx)
		r.reporter.StageFinished(step.stage, err)
		if err != nil {
			return render.FinalVideo{}, err
		}
	}

	r.reporter.StageStarted(StageAssemble)
	video, err := r.assemble(ctx, partial)
	r.reporter.StageFinished(StageAssemble, err)
	return video, err
}

func lockOutput(out string) (func(), error) {
	lock := flock.New(out + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock output: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", out, ErrOutputLocked)
	}
	return func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}, nil
}

func partialPath(out string) string {
	ext := filepath.Ext(out)
	if ext == "" {
		ext = ".mp4"
	}
	return strings.TrimSuffix(out, filepath.Ext(out)) + ".partial" + ext
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

// stageErr wraps err with stage context, lifting the slide index out of the
// component error types.
func stageErr(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	index := -1
	var (
		synth  *narration.SynthesisFailedError
		draw   *graphics.RenderFailedError
		encode *render.SegmentEncodeFailedError
	)
	switch {
	case errors.As(err, &synth):
		index = synth.Index
	case errors.As(err, &draw):
		index = draw.Index
	case errors.As(err, &encode):
		index = encode.Index
	}
	return &StageError{Stage: stage, Index: index, Err: err}
}
