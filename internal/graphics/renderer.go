package graphics

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"

	"broadcast/internal/config"
	"broadcast/internal/logx"
	"broadcast/internal/script"
)

// Layouts are drawn on a 1920x1080 reference canvas and scaled to the
// configured frame when it differs.
const (
	refWidth  = 1920
	refHeight = 1080
)

// Resolver maps a player reference to a local headshot file.
type Resolver interface {
	Resolve(ref script.PlayerRef) (string, bool)
}

// OverlayImage is a rendered slide graphic.
type OverlayImage struct {
	Path       string `json:"path"`
	SlideIndex int    `json:"slide_index"`
}

// ErrRenderFailed matches every RenderFailedError.
var ErrRenderFailed = errors.New("render failed")

// RenderFailedError reports a slide that cannot be drawn.
type RenderFailedError struct {
	Index  int
	Kind   script.Kind
	Reason string
	Err    error
}

func (e *RenderFailedError) Error() string {
	msg := fmt.Sprintf("render slide %d (%s): %s", e.Index, e.Kind, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RenderFailedError) Unwrap() error { return e.Err }

func (e *RenderFailedError) Is(target error) bool { return target == ErrRenderFailed }

// Renderer rasterizes slides. It holds no per-render state and is safe for
// concurrent use.
type Renderer struct {
	Width           int
	Height          int
	Palette         Palette
	Fonts           Fonts
	MaxBulletPoints int
	Brand           string
	Tagline         string
	CallToAction    string
	Logger          logx.Logger
}

// NewRenderer builds a renderer from configuration. Font paths resolve
// against projectRoot.
func NewRenderer(cfg config.Config, projectRoot string, logger logx.Logger) (*Renderer, error) {
	palette, err := ParsePalette(cfg.Overlay.Colors)
	if err != nil {
		return nil, err
	}
	regular, bold := cfg.Overlay.FontFile, cfg.Overlay.BoldFontFile
	if strings.TrimSpace(regular) != "" {
		regular = config.ResolvePath(projectRoot, regular)
	}
	if strings.TrimSpace(bold) != "" {
		bold = config.ResolvePath(projectRoot, bold)
	}
	fonts, err := LoadFonts(regular, bold)
	if err != nil {
		return nil, err
	}
	return &Renderer{
		Width:           cfg.Video.Width,
		Height:          cfg.Video.Height,
		Palette:         palette,
		Fonts:           fonts,
		MaxBulletPoints: cfg.Overlay.MaxBulletPoints,
		Brand:           cfg.Overlay.Brand,
		Tagline:         cfg.Overlay.Tagline,
		CallToAction:    cfg.Overlay.CallToAction,
		Logger:          logx.OrDiscard(logger),
	}, nil
}

// OverlayFileName is the broadcast overlay file name for slide index.
func OverlayFileName(index int) string { return fmt.Sprintf("overlay_%03d.png", index) }

// SlideFileName is the classic slide file name for slide index.
func SlideFileName(index int) string { return fmt.Sprintf("slide_%03d.png", index) }

// Render draws the transparent broadcast overlay for a slide into dir.
func (r *Renderer) Render(slide script.Slide, index int, resolver Resolver, dir string) (OverlayImage, error) {
	img, err := r.OverlayImage(slide, index, resolver)
	if err != nil {
		return OverlayImage{}, err
	}
	return r.save(img, slide, index, filepath.Join(dir, OverlayFileName(index)))
}

// RenderClassic draws the opaque full-frame slide into dir.
func (r *Renderer) RenderClassic(slide script.Slide, index int, resolver Resolver, dir string) (OverlayImage, error) {
	img, err := r.ClassicImage(slide, index, resolver)
	if err != nil {
		return OverlayImage{}, err
	}
	return r.save(img, slide, index, filepath.Join(dir, SlideFileName(index)))
}

// OverlayImage returns the broadcast overlay without writing it.
func (r *Renderer) OverlayImage(slide script.Slide, index int, resolver Resolver) (image.Image, error) {
	if err := r.check(slide, index); err != nil {
		return nil, err
	}
	c := newCanvas(refWidth, refHeight, r.Fonts, r.Palette)
	defer c.faces.close()
	r.drawBroadcast(c, slide, resolver)
	return resize(c.dc.Image(), r.frameWidth(), r.frameHeight()), nil
}

// ClassicImage returns the classic slide without writing it.
func (r *Renderer) ClassicImage(slide script.Slide, index int, resolver Resolver) (image.Image, error) {
	if err := r.check(slide, index); err != nil {
		return nil, err
	}
	c := newCanvas(refWidth, refHeight, r.Fonts, r.Palette)
	defer c.faces.close()
	r.drawClassic(c, slide, resolver)
	return resize(c.dc.Image(), r.frameWidth(), r.frameHeight()), nil
}

func (r *Renderer) save(img image.Image, slide script.Slide, index int, path string) (OverlayImage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return OverlayImage{}, &RenderFailedError{Index: index, Kind: slide.Kind, Reason: "ensure output dir", Err: err}
	}
	if err := gg.SavePNG(path, img); err != nil {
		_ = os.Remove(path)
		return OverlayImage{}, &RenderFailedError{Index: index, Kind: slide.Kind, Reason: "write png", Err: err}
	}
	return OverlayImage{Path: path, SlideIndex: index}, nil
}

// check rejects slides that cannot produce a meaningful graphic.
func (r *Renderer) check(slide script.Slide, index int) error {
	if strings.TrimSpace(slide.Narration) == "" {
		return &RenderFailedError{Index: index, Kind: slide.Kind, Reason: "narration is empty"}
	}
	if slide.Variant() == script.VariantOutro {
		return nil
	}
	if displayHeading(slide) == "" {
		return &RenderFailedError{Index: index, Kind: slide.Kind, Reason: "no heading, player name or points to display"}
	}
	return nil
}

// displayHeading picks the text shown as a slide's heading.
func displayHeading(slide script.Slide) string {
	if h := strings.TrimSpace(slide.Heading); h != "" {
		return h
	}
	if n := strings.TrimSpace(slide.PlayerName); n != "" {
		return n
	}
	switch slide.Variant() {
	case script.VariantMatchup, script.VariantMatchupPlayers, script.VariantTitle:
		return ""
	}
	if len(slide.Points) > 0 {
		return strings.TrimSpace(slide.Points[0])
	}
	return ""
}

// bullets returns at most MaxBulletPoints non-empty points.
func (r *Renderer) bullets(points []string) []string {
	limit := r.MaxBulletPoints
	if limit <= 0 {
		limit = 4
	}
	out := make([]string, 0, limit)
	for _, p := range points {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

type portrait struct {
	ref script.PlayerRef
	img image.Image
}

// portraits loads headshots for refs, skipping any that are unresolved or
// unreadable.
func (r *Renderer) portraits(refs []script.PlayerRef, resolver Resolver, limit int) []portrait {
	var out []portrait
	for _, ref := range refs {
		if len(out) == limit {
			break
		}
		if img, ok := r.headshot(ref, resolver); ok {
			out = append(out, portrait{ref: ref, img: img})
		}
	}
	return out
}

func (r *Renderer) headshot(ref script.PlayerRef, resolver Resolver) (image.Image, bool) {
	if resolver == nil {
		return nil, false
	}
	path, ok := resolver.Resolve(ref)
	if !ok || path == "" {
		return nil, false
	}
	img, err := gg.LoadImage(path)
	if err != nil {
		logx.OrDiscard(r.Logger).Printf("headshot %s (%s) unreadable: %v", ref.Name, path, err)
		return nil, false
	}
	return img, true
}

func (r *Renderer) brand() string {
	if strings.TrimSpace(r.Brand) == "" {
		return "GlobalBaseball"
	}
	return r.Brand
}

func (r *Renderer) frameWidth() int {
	if r.Width <= 0 {
		return refWidth
	}
	return r.Width
}

func (r *Renderer) frameHeight() int {
	if r.Height <= 0 {
		return refHeight
	}
	return r.Height
}
