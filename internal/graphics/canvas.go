package graphics

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"broadcast/internal/config"
)

// Palette is the parsed color scheme.
type Palette struct {
	Background      color.Color
	BackgroundLight color.Color
	Text            color.Color
	TextDim         color.Color
	Accent          color.Color
	Blue            color.Color
	Green           color.Color
	Red             color.Color
}

// ParsePalette converts configured hex colors.
func ParsePalette(c config.ColorPalette) (Palette, error) {
	var (
		p   Palette
		err error
	)
	fields := []struct {
		name string
		hex  string
		dst  *color.Color
	}{
		{"bg", c.Background, &p.Background},
		{"bg_light", c.BackgroundLight, &p.BackgroundLight},
		{"text", c.Text, &p.Text},
		{"text_dim", c.TextDim, &p.TextDim},
		{"accent", c.Accent, &p.Accent},
		{"blue", c.Blue, &p.Blue},
		{"green", c.Green, &p.Green},
		{"red", c.Red, &p.Red},
	}
	for _, f := range fields {
		if *f.dst, err = parseHex(f.hex); err != nil {
			return Palette{}, fmt.Errorf("color %s: %w", f.name, err)
		}
	}
	return p, nil
}

func parseHex(value string) (color.Color, error) {
	v := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(v) != 6 && len(v) != 8 {
		return nil, fmt.Errorf("invalid hex color %q", value)
	}
	n, err := strconv.ParseUint(v, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid hex color %q", value)
	}
	if len(v) == 6 {
		return color.NRGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 0xff}, nil
	}
	return color.NRGBA{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: uint8(n)}, nil
}

func withAlpha(c color.Color, alpha float64) color.Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(math.Round(alpha * 255))
	return n
}

// canvas wraps a gg context with the renderer's fonts and palette.
type canvas struct {
	dc      *gg.Context
	faces   *faceCache
	palette Palette
}

func newCanvas(w, h int, fonts Fonts, palette Palette) *canvas {
	return &canvas{dc: gg.NewContext(w, h), faces: newFaceCache(fonts), palette: palette}
}

func (c *canvas) width() float64  { return float64(c.dc.Width()) }
func (c *canvas) height() float64 { return float64(c.dc.Height()) }

func (c *canvas) font(size float64, bold bool) {
	c.dc.SetFontFace(c.faces.face(size, bold))
}

func (c *canvas) fill(col color.Color) {
	c.dc.SetColor(col)
}

// text draws s with its baseline at y; ax 0 aligns left, 0.5 centers, 1 right.
func (c *canvas) text(s string, x, y, ax float64) {
	c.dc.DrawStringAnchored(s, x, y, ax, 0)
}

func (c *canvas) measure(s string) float64 {
	w, _ := c.dc.MeasureString(s)
	return w
}

// wrap breaks text into lines no wider than maxWidth using the current face.
// Words wider than maxWidth are split by rune so nothing overflows.
func (c *canvas) wrap(text string, maxWidth float64) []string {
	return wrapWords(text, maxWidth, c.measure)
}

func wrapWords(text string, maxWidth float64, measure func(string) float64) []string {
	var lines []string
	current := ""
	for _, word := range strings.Fields(text) {
		for measure(word) > maxWidth && len([]rune(word)) > 1 {
			if current != "" {
				lines = append(lines, current)
				current = ""
			}
			head, tail := splitToWidth(word, maxWidth, measure)
			lines = append(lines, head)
			word = tail
		}
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if current != "" && measure(candidate) > maxWidth {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

// block draws lines one lineHeight apart with the first baseline at y and
// returns the baseline a further line would use.
func (c *canvas) block(lines []string, x, y, lineHeight, ax float64) float64 {
	for _, line := range lines {
		c.text(line, x, y, ax)
		y += lineHeight
	}
	return y
}

// widest is the advance of the longest line in the current face.
func (c *canvas) widest(lines []string) float64 {
	w := 0.0
	for _, line := range lines {
		w = max(w, c.measure(line))
	}
	return w
}

func splitToWidth(word string, maxWidth float64, measure func(string) float64) (string, string) {
	runes := []rune(word)
	n := 1
	for n < len(runes) && measure(string(runes[:n+1])) <= maxWidth {
		n++
	}
	return string(runes[:n]), string(runes[n:])
}

func (c *canvas) roundRect(x, y, w, h, r float64, col color.Color) {
	c.dc.DrawRoundedRectangle(x, y, w, h, r)
	c.fill(col)
	c.dc.Fill()
}

func (c *canvas) dot(x, y, r float64, col color.Color) {
	c.dc.DrawCircle(x, y, r)
	c.fill(col)
	c.dc.Fill()
}

// circularImage draws img cover-cropped into a circle with an accent border.
func (c *canvas) circularImage(img image.Image, cx, cy, radius float64) {
	size := int(math.Round(radius * 2))
	cropped := coverSquare(img, size)

	c.dc.Push()
	c.dc.DrawCircle(cx, cy, radius)
	c.dc.Clip()
	c.dc.DrawImage(cropped, int(math.Round(cx-radius)), int(math.Round(cy-radius)))
	c.dc.ResetClip()
	c.dc.Pop()

	c.dc.SetLineWidth(3)
	c.fill(c.palette.Accent)
	c.dc.DrawCircle(cx, cy, radius)
	c.dc.Stroke()
}

// coverSquare scales img to fill a size x size square, cropping the overflow
// evenly from both sides.
func coverSquare(img image.Image, size int) image.Image {
	b := img.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	src := image.Rect(x0, y0, x0+side, y0+side)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)
	return dst
}

// resize scales img to exactly w x h.
func resize(img image.Image, w, h int) image.Image {
	if img.Bounds().Dx() == w && img.Bounds().Dy() == h {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
