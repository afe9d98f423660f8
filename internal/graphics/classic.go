package graphics

import (
	"math"
	"strings"

	"github.com/fogleman/gg"

	"broadcast/internal/script"
)

// drawClassic paints an opaque full-frame slide.
func (r *Renderer) drawClassic(c *canvas, slide script.Slide, resolver Resolver) {
	r.classicBase(c)
	switch slide.Variant() {
	case script.VariantTitle:
		r.classicTitle(c, slide)
	case script.VariantPlayer:
		r.classicPlayer(c, slide, resolver)
	case script.VariantStats:
		r.classicStats(c, slide)
	case script.VariantMatchup:
		r.classicMatchup(c, slide)
	case script.VariantMatchupPlayers:
		r.classicMatchupPlayers(c, slide, resolver)
	case script.VariantOutro:
		l := r.layoutOutro(c, slide)
		r.outroContent(c, l, outroTop(c, l))
	default:
		r.classicTeam(c, slide, resolver)
	}
}

// classicBase fills the gradient background, faint grid, bottom accent bar
// and watermark.
func (r *Renderer) classicBase(c *canvas) {
	w, h := c.width(), c.height()
	grad := gg.NewLinearGradient(0, 0, 0, h)
	grad.AddColorStop(0, c.palette.Background)
	grad.AddColorStop(1, c.palette.BackgroundLight)
	c.dc.SetFillStyle(grad)
	c.dc.DrawRectangle(0, 0, w, h)
	c.dc.Fill()

	c.dc.SetLineWidth(1)
	c.fill(withAlpha(c.palette.Text, 0.03))
	for x := 0.0; x < w; x += 60 {
		c.dc.DrawLine(x, 0, x, h)
		c.dc.Stroke()
	}
	for y := 0.0; y < h; y += 60 {
		c.dc.DrawLine(0, y, w, y)
		c.dc.Stroke()
	}

	c.roundRect(0, h-6, w, 6, 0, c.palette.Accent)

	c.font(24, false)
	c.fill(withAlpha(c.palette.Text, 0.3))
	c.text(r.brand(), w-40, h-20, 1)
}

func (r *Renderer) classicTitle(c *canvas, slide script.Slide) {
	w := c.width()
	textW := w - 200

	c.dc.Push()
	c.dc.Translate(w/2, 200)
	c.dc.Rotate(math.Pi / 4)
	c.dc.SetLineWidth(3)
	c.fill(c.palette.Accent)
	c.dc.DrawRectangle(-40, -40, 80, 80)
	c.dc.Stroke()
	c.dc.Pop()

	c.font(80, true)
	c.fill(c.palette.Text)
	y := c.block(c.wrap(slide.Heading, textW), w/2, 350, 95, 0.5)

	if sub := strings.TrimSpace(slide.Subheading); sub != "" {
		c.font(42, false)
		c.fill(c.palette.Accent)
		y = c.block(c.wrap(sub, textW), w/2, y+40, 52, 0.5) - 52
	}

	c.dc.SetLineWidth(2)
	c.fill(c.palette.Accent)
	c.dc.DrawLine(w/2-100, y+50, w/2+100, y+50)
	c.dc.Stroke()

	if r.Tagline != "" {
		c.font(32, true)
		c.fill(c.palette.Blue)
		c.block(c.wrap(r.Tagline, textW), w/2, y+100, 44, 0.5)
	}
}

func (r *Renderer) classicTeam(c *canvas, slide script.Slide, resolver Resolver) {
	w := c.width()
	shots := r.portraits(slide.PlayerImages, resolver, 3)
	textAreaWidth := w - 200
	if len(shots) > 0 {
		textAreaWidth = w * 0.55
	}
	textW := textAreaWidth - 100

	c.font(64, true)
	c.fill(c.palette.Accent)
	last := c.block(c.wrap(displayHeading(slide), textW), 100, 140, 72, 0) - 72

	if sub := strings.TrimSpace(slide.Subheading); sub != "" {
		c.font(36, false)
		c.fill(c.palette.TextDim)
		last = c.block(c.wrap(sub, textW), 100, last+55, 44, 0) - 44
	} else {
		last += 55
	}
	c.roundRect(100, last+30, 200, 4, 0, c.palette.Accent)

	c.font(38, false)
	y := last + 115
	for _, point := range r.bullets(slide.Points) {
		c.dot(130, y-12, 8, c.palette.Accent)
		c.fill(c.palette.Text)
		y = c.block(c.wrap(point, textAreaWidth-160), 160, y, 52, 0) + 18
	}

	const imgSize = 140.0
	labelW := w*0.4 - 100
	startX := w * 0.6
	imgY := 200.0
	for _, p := range shots {
		cx := startX + imgSize/2
		c.circularImage(p.img, cx, imgY+imgSize/2, imgSize/2)
		c.font(26, true)
		c.fill(c.palette.Text)
		next := c.block(c.wrap(p.ref.Name, labelW), cx, imgY+imgSize+30, 30, 0.5)
		if p.ref.Position != "" {
			c.font(20, false)
			c.fill(c.palette.TextDim)
			next = c.block(c.wrap(p.ref.Position, labelW), cx, next-4, 24, 0.5)
		}
		imgY = max(imgY+imgSize+80, next)
	}
}

func (r *Renderer) classicPlayer(c *canvas, slide script.Slide, resolver Resolver) {
	w := c.width()
	featured := slide.Players()
	rightX := 580.0

	var shot *portrait
	if len(featured) > 0 {
		if img, ok := r.headshot(featured[0], resolver); ok {
			shot = &portrait{ref: featured[0], img: img}
		}
	}

	if shot != nil {
		const columnW = 440.0
		c.circularImage(shot.img, 300, 400, 200)
		c.font(42, true)
		c.fill(c.palette.Accent)
		next := c.block(c.wrap(displayHeading(slide), columnW), 300, 650, 50, 0.5)
		if slide.Position != "" {
			c.font(28, false)
			c.fill(c.palette.TextDim)
			c.block(c.wrap(slide.Position, columnW), 300, next-10, 36, 0.5)
		}
	} else {
		// Without a portrait the text column takes the full width.
		rightX = 100
	}
	textW := w - rightX - 100

	c.font(48, true)
	c.fill(c.palette.Text)
	last := c.block(c.wrap(displayHeading(slide), textW), rightX, 180, 58, 0) - 58

	if sub := strings.TrimSpace(slide.Subheading); sub != "" {
		c.font(32, false)
		c.fill(c.palette.TextDim)
		last = c.block(c.wrap(sub, textW), rightX, last+50, 40, 0) - 40
	} else {
		last += 50
	}

	c.font(34, false)
	y := last + 80
	for _, point := range r.bullets(slide.Points) {
		c.dot(rightX+20, y-10, 7, c.palette.Accent)
		c.fill(c.palette.Text)
		y = c.block(c.wrap(point, w-rightX-150), rightX+45, y, 46, 0) + 14
	}
}

func (r *Renderer) classicStats(c *canvas, slide script.Slide) {
	w := c.width()
	textW := w - 200
	c.font(56, true)
	c.fill(c.palette.Text)
	last := c.block(c.wrap(displayHeading(slide), textW), w/2, 130, 66, 0.5) - 66

	if sub := strings.TrimSpace(slide.Subheading); sub != "" {
		c.font(32, false)
		c.fill(c.palette.Accent)
		last = c.block(c.wrap(sub, textW), w/2, last+55, 40, 0.5) - 40
	} else {
		last += 55
	}

	if len(slide.Points) == 0 {
		return
	}
	cols := min(len(slide.Points), 3)
	cardWidth := (w - 200 - float64(cols-1)*30) / float64(cols)

	c.font(30, false)
	cards := make([][]string, len(slide.Points))
	rowHeights := make([]float64, (len(slide.Points)+cols-1)/cols)
	for i, point := range slide.Points {
		cards[i] = c.wrap(point, cardWidth-40)
		rowHeights[i/cols] = max(rowHeights[i/cols], 160, 50+float64(len(cards[i]))*38)
	}

	y := last + 65
	for row, rowH := range rowHeights {
		for col := 0; col < cols; col++ {
			i := row*cols + col
			if i >= len(cards) {
				break
			}
			x := 100 + float64(col)*(cardWidth+30)
			c.roundRect(x, y, cardWidth, rowH, 12, withAlpha(c.palette.Text, 0.05))
			c.dc.SetLineWidth(1)
			c.fill(withAlpha(c.palette.Text, 0.1))
			c.dc.DrawRoundedRectangle(x, y, cardWidth, rowH, 12)
			c.dc.Stroke()

			lines := cards[i]
			c.font(30, false)
			c.fill(c.palette.Text)
			textY := y + rowH/2 + 10 - float64(len(lines)-1)*19
			c.block(lines, x+cardWidth/2, textY, 38, 0.5)
		}
		y += rowH + 40
	}
}

// classicHeader draws a centered heading and subheading from baseline top and
// returns the baseline of the last line drawn.
func (r *Renderer) classicHeader(c *canvas, slide script.Slide, top float64) float64 {
	w := c.width()
	c.font(48, true)
	c.fill(c.palette.Text)
	last := c.block(c.wrap(slide.Heading, w-200), w/2, top, 58, 0.5) - 58
	if sub := strings.TrimSpace(slide.Subheading); sub != "" {
		c.font(32, false)
		c.fill(c.palette.TextDim)
		last = c.block(c.wrap(sub, w-200), w/2, last+55, 40, 0.5) - 40
	}
	return last
}

func (r *Renderer) classicMatchup(c *canvas, slide script.Slide) {
	w, h := c.width(), c.height()
	last := r.classicHeader(c, slide, 120)
	top := max(230, last+55)

	c.font(80, true)
	c.fill(c.palette.Accent)
	c.text("VS", w/2, (top+h-100)/2+20, 0.5)

	if len(slide.Points) < 2 {
		return
	}
	c.roundRect(60, top, w/2-120, h-100-top, 16, withAlpha(c.palette.Blue, 0.1))
	c.roundRect(w/2+60, top, w/2-120, h-100-top, 16, withAlpha(c.palette.Accent, 0.1))

	c.font(34, true)
	for i, cx := range []float64{w / 4, w * 3 / 4} {
		c.fill(c.palette.Blue)
		if i == 1 {
			c.fill(c.palette.Accent)
		}
		c.block(c.wrap(slide.Points[i], w/2-180), cx, top+130, 46, 0.5)
	}
}

func (r *Renderer) classicMatchupPlayers(c *canvas, slide script.Slide, resolver Resolver) {
	w, h := c.width(), c.height()
	r.classicHeader(c, slide, 100)

	c.font(72, true)
	c.fill(c.palette.Accent)
	c.text("VS", w/2, h/2+10, 0.5)

	nameW := w/2 - 200
	cy := h/2 - 30
	for i, ref := range slide.PlayerImages {
		if i == 2 {
			break
		}
		cx := w / 4
		nameColor := c.palette.Blue
		if i == 1 {
			cx = w * 3 / 4
			nameColor = c.palette.Accent
		}
		nameY := cy
		if img, ok := r.headshot(ref, resolver); ok {
			c.circularImage(img, cx, cy, 130)
			nameY = cy + 170
		}
		c.font(30, true)
		c.fill(nameColor)
		next := c.block(c.wrap(ref.Name, nameW), cx, nameY, 36, 0.5)
		if ref.Position != "" {
			c.font(22, false)
			c.fill(c.palette.TextDim)
			c.block(c.wrap(ref.Position, nameW), cx, next-6, 30, 0.5)
		}
	}

	c.font(30, false)
	c.fill(c.palette.Text)
	var lines []string
	for _, point := range r.bullets(slide.Points) {
		lines = append(lines, c.wrap(point, w-300)...)
	}
	c.block(lines, w/2, min(h-180, h-80-float64(len(lines)-1)*42), 42, 0.5)
}
