package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"broadcast/internal/cache"
	"broadcast/internal/config"
	"broadcast/internal/graphics"
	"broadcast/internal/narration"
	"broadcast/internal/render"
	"broadcast/internal/script"
	"broadcast/internal/sources"
)

func (r *run) narrate(ctx context.Context) error {
	p := r.p
	engine := p.Engine
	if engine == nil {
		engine = narration.NewEdgeTTS(p.Runner, p.Tools.EdgeTTS, r.rp.LogsDir)
	}
	opts := narration.OptionsFromConfig(p.Config)
	opts.Concurrency = r.workers

	synth := &narration.Synthesizer{
		Engine:  engine,
		Prober:  cache.Prober{Runner: p.Runner, Command: p.Tools.FFprobe},
		Options: opts,
		Logger:  r.logger,
		OnDone: func(i int, asset narration.AudioAsset, err error) {
			if err != nil {
				r.reporter.SlideStatus(StageNarration, i, StatusError, err.Error())
				return
			}
			detail := fmt.Sprintf("%.1fs", asset.DurationSeconds)
			if asset.Estimated {
				detail += " (estimated)"
			}
			r.reporter.SlideStatus(StageNarration, i, StatusNarrated, detail)
		},
	}
	audio, err := synth.Synthesize(ctx, r.slides, r.rp.AudioDir)
	if err != nil {
		return stageErr(StageNarration, err)
	}
	r.audio = audio
	return nil
}

func (r *run) fetchHeadshots(ctx context.Context) error {
	shots, err := r.sourcer.PrefetchHeadshots(ctx, r.slides)
	if err != nil {
		return stageErr(StageHeadshots, err)
	}
	r.headshots = shots
	return nil
}

// renderOverlays draws broadcast overlays, or full classic slides when the run
// is classic from the start. Slides whose players have no portrait still
// render and are recorded as degraded.
func (r *run) renderOverlays(ctx context.Context) error {
	classic := r.mode == config.ModeClassic
	images, err := r.renderAll(ctx, classic)
	if err != nil {
		return err
	}
	if classic {
		r.classic = images
	} else {
		r.overlays = images
	}
	return nil
}

func (r *run) renderAll(ctx context.Context, classic bool) ([]graphics.OverlayImage, error) {
	images := make([]graphics.OverlayImage, len(r.slides))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, slide := range r.slides {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var (
				img graphics.OverlayImage
				err error
			)
			if classic {
				img, err = r.renderer.RenderClassic(slide, i, r.headshots, r.rp.OverlayDir)
			} else {
				img, err = r.renderer.Render(slide, i, r.headshots, r.rp.OverlayDir)
			}
			if err != nil {
				r.reporter.SlideStatus(StageOverlays, i, StatusError, err.Error())
				return stageErr(StageOverlays, err)
			}
			images[i] = img
			if missing := missingPortraits(slide, r.headshots); len(missing) > 0 {
				mu.Lock()
				r.degraded = append(r.degraded, i)
				mu.Unlock()
				r.reporter.SlideStatus(StageOverlays, i, StatusDegraded, "no headshot: "+strings.Join(missing, ", "))
				return nil
			}
			r.reporter.SlideStatus(StageOverlays, i, StatusRendered, filepath.Base(img.Path))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slices.Sort(r.degraded)
	return images, nil
}

func missingPortraits(slide script.Slide, shots *sources.Headshots) []string {
	var missing []string
	for _, ref := range slide.Players() {
		if _, ok := shots.Resolve(ref); !ok {
			missing = append(missing, ref.Name)
		}
	}
	return missing
}

// resolveClips sources footage and settles the run's mode. Broadcast runs need
// at most one clip per slide; classic runs need one per b-roll slot.
func (r *run) resolveClips(ctx context.Context) error {
	limit := firstPositive(r.opts.MaxClips, r.p.Config.Sources.MaxClips)
	if r.mode == config.ModeClassic {
		limit = min(limit, len(r.slides)/2)
	} else {
		limit = min(limit, len(r.slides))
	}

	clips, err := r.sourcer.ResolveClips(ctx, r.opts.Clips, limit)
	if err != nil {
		return stageErr(StageClips, err)
	}
	r.clips = clips
	r.logger.Printf("clips: %d resolved for %s (limit %d)", len(clips), r.opts.Clips, limit)

	switch r.mode {
	case config.ModeAuto:
		r.mode = config.ModeBroadcast
		if len(clips) == 0 {
			r.mode = config.ModeClassic
		}
		r.logger.Printf("mode: auto resolved to %s", r.mode)
	case config.ModeBroadcast:
		if len(clips) == 0 {
			r.logger.Printf("mode: no clips available, falling back to classic")
			r.mode = config.ModeClassic
		}
	case config.ModeClassic:
		return r.normalizeBroll(ctx)
	}
	return nil
}

// normalizeBroll re-encodes the resolved clips so they can be stream-copied
// between classic segments. A clip that fails is dropped.
func (r *run) normalizeBroll(ctx context.Context) error {
	broll := make([]*render.Segment, len(r.clips))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, clip := range r.clips {
		g.Go(func() error {
			seg, err := r.composer.NormalizeClip(gctx, clip.ID, clip.Path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				r.logger.Printf("b-roll %s skipped: %v", clip.ID, err)
				return nil
			}
			broll[i] = &seg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stageErr(StageClips, err)
	}
	for _, seg := range broll {
		if seg != nil {
			r.broll = append(r.broll, *seg)
		}
	}
	return nil
}

func (r *run) composeSegments(ctx context.Context) error {
	var assigned []sources.ClipAsset
	if r.mode == config.ModeBroadcast {
		assigned = render.AssignClips(len(r.slides), r.clips)
	}

	segments := make([]render.Segment, len(r.slides))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range r.slides {
		g.Go(func() error {
			seg, err := r.composeOne(gctx, i, assigned)
			if err != nil {
				r.reporter.SlideStatus(StageSegments, i, StatusError, err.Error())
				return stageErr(StageSegments, err)
			}
			segments[i] = seg
			r.reporter.SlideStatus(StageSegments, i, StatusEncoded, fmt.Sprintf("%.2fs", seg.DurationSeconds))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	r.segments = segments
	return nil
}

func (r *run) composeOne(ctx context.Context, i int, assigned []sources.ClipAsset) (render.Segment, error) {
	audio := r.audio[i]
	out := filepath.Join(r.rp.SegmentsDir, render.SegmentFileName(i))
	if r.mode == config.ModeBroadcast {
		clip := assigned[i]
		return r.composer.ComposeSegment(ctx, i, clip.Path, r.overlays[i].Path, audio.Path, audio.DurationSeconds, out)
	}

	// Runs that became classic after the overlay stage have no slide images yet.
	slide := ""
	if i < len(r.classic) {
		slide = r.classic[i].Path
	}
	if slide == "" {
		img, err := r.renderer.RenderClassic(r.slides[i], i, r.headshots, r.rp.OverlayDir)
		if err != nil {
			return render.Segment{}, err
		}
		slide = img.Path
	}
	return r.composer.ComposeClassicSegment(ctx, i, slide, audio.Path, audio.DurationSeconds, out)
}

func (r *run) assemble(ctx context.Context, partial string) (render.FinalVideo, error) {
	timeline := render.BuildTimeline(r.segments, r.broll, r.mode)
	asm := &render.Assembler{
		Runner:   r.p.Runner,
		FFmpeg:   r.p.Tools.FFmpeg,
		Prober:   cache.Prober{Runner: r.p.Runner, Command: r.p.Tools.FFprobe},
		ListPath: r.rp.ConcatList,
		LogsDir:  r.rp.LogsDir,
		Logger:   r.logger,
	}
	video, err := asm.Assemble(ctx, timeline, partial)
	if err != nil {
		return render.FinalVideo{}, stageErr(StageAssemble, err)
	}
	return video, nil
}
