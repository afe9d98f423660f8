package narration

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"broadcast/internal/cache"
	"broadcast/internal/config"
	"broadcast/internal/logx"
	"broadcast/internal/script"
)

// AudioAsset is the synthesized narration for one slide.
type AudioAsset struct {
	Path            string  `json:"path"`
	DurationSeconds float64 `json:"duration_s"`
	SlideIndex      int     `json:"slide_index"`
	// Estimated is set when the duration came from the word-count estimate
	// rather than a probe of the file.
	Estimated bool `json:"estimated"`
}

// ErrSynthesisFailed matches every SynthesisFailedError.
var ErrSynthesisFailed = errors.New("synthesis failed")

// SynthesisFailedError reports a slide whose narration could not be produced.
type SynthesisFailedError struct {
	Index int
	Err   error
}

func (e *SynthesisFailedError) Error() string {
	return fmt.Sprintf("synthesize slide %d: %v", e.Index, e.Err)
}

func (e *SynthesisFailedError) Unwrap() error { return e.Err }

func (e *SynthesisFailedError) Is(target error) bool { return target == ErrSynthesisFailed }

// Options tunes voice selection and duration handling.
type Options struct {
	Voice             string
	WordsPerMinute    float64
	LeadInSeconds     float64
	MinSegmentSeconds float64
	ToleranceSeconds  float64
	Concurrency       int
}

// OptionsFromConfig maps configuration onto synthesizer options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Voice:             cfg.Narration.Voice,
		WordsPerMinute:    cfg.Narration.WordsPerMinute,
		LeadInSeconds:     cfg.Narration.LeadInSeconds,
		MinSegmentSeconds: cfg.Narration.MinSegmentSeconds,
		ToleranceSeconds:  cfg.Narration.ToleranceSeconds,
		Concurrency:       cfg.Pipeline.Concurrency,
	}
}

// Synthesizer produces one audio file per slide.
type Synthesizer struct {
	Engine  Engine
	Prober  cache.Prober
	Options Options
	Logger  logx.Logger
	// OnDone, when set, is called after each slide finishes (successfully or not).
	OnDone func(index int, asset AudioAsset, err error)
}

// FileName is the audio file name for slide index.
func FileName(index int) string {
	return fmt.Sprintf("slide_%03d.mp3", index)
}

// Estimate predicts spoken duration from word count.
func Estimate(text string, wordsPerMinute, leadIn float64) float64 {
	if wordsPerMinute <= 0 {
		wordsPerMinute = 150
	}
	words := float64(len(strings.Fields(text)))
	return words/wordsPerMinute*60 + leadIn
}

// Synthesize narrates every slide into dir and returns assets in slide order.
// The first failure cancels outstanding work.
func (s *Synthesizer) Synthesize(ctx context.Context, slides []script.Slide, dir string) ([]AudioAsset, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure audio dir: %w", err)
	}

	assets := make([]AudioAsset, len(slides))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.Options.Concurrency))
	for i, slide := range slides {
		g.Go(func() error {
			asset, err := s.SynthesizeSlide(gctx, i, slide, dir)
			if s.OnDone != nil {
				s.OnDone(i, asset, err)
			}
			if err != nil {
				return err
			}
			assets[i] = asset
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return assets, nil
}

// SynthesizeSlide narrates a single slide.
func (s *Synthesizer) SynthesizeSlide(ctx context.Context, index int, slide script.Slide, dir string) (AudioAsset, error) {
	logger := logx.OrDiscard(s.Logger)
	text := strings.TrimSpace(slide.Narration)
	if text == "" {
		return AudioAsset{}, &SynthesisFailedError{Index: index, Err: errors.New("narration is empty")}
	}
	if s.Engine == nil {
		return AudioAsset{}, &SynthesisFailedError{Index: index, Err: errors.New("no synthesis engine configured")}
	}

	out := filepath.Join(dir, FileName(index))
	_ = os.Remove(out)
	logger.Printf("tts slide=%d engine=%s voice=%s words=%d", index, s.Engine.Name(), s.Options.Voice, slide.WordCount())
	if err := s.Engine.Synthesize(ctx, text, s.Options.Voice, out); err != nil {
		_ = os.Remove(out)
		return AudioAsset{}, &SynthesisFailedError{Index: index, Err: err}
	}
	info, err := os.Stat(out)
	if err != nil {
		return AudioAsset{}, &SynthesisFailedError{Index: index, Err: fmt.Errorf("no audio written: %w", err)}
	}
	if info.Size() == 0 {
		_ = os.Remove(out)
		return AudioAsset{}, &SynthesisFailedError{Index: index, Err: errors.New("engine wrote an empty audio file")}
	}

	estimate := Estimate(text, s.Options.WordsPerMinute, s.Options.LeadInSeconds)
	asset := AudioAsset{Path: out, SlideIndex: index}

	measured, probeErr := s.Prober.Duration(ctx, out)
	switch {
	case probeErr == nil && measured > 0:
		asset.DurationSeconds = measured
		if tol := s.Options.ToleranceSeconds; tol > 0 && math.Abs(measured-estimate) > tol {
			logger.Printf("tts slide=%d measured %.2fs differs from estimate %.2fs by more than %.2fs", index, measured, estimate, tol)
		}
	default:
		if probeErr != nil && !errors.Is(probeErr, cache.ErrProbeUnavailable) {
			logger.Printf("tts slide=%d probe failed, using estimate: %v", index, probeErr)
		}
		asset.DurationSeconds = estimate
		asset.Estimated = true
	}

	if floor := s.Options.MinSegmentSeconds; asset.DurationSeconds < floor {
		asset.DurationSeconds = floor
	}
	return asset, nil
}
