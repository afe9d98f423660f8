package graphics

import (
	"strings"

	"broadcast/internal/logx"
	"broadcast/internal/script"
)

// drawBroadcast paints a transparent overlay meant to sit on top of footage.
func (r *Renderer) drawBroadcast(c *canvas, slide script.Slide, resolver Resolver) {
	switch slide.Variant() {
	case script.VariantTitle:
		r.broadcastTitle(c, slide)
	case script.VariantMatchup:
		r.broadcastMatchup(c, slide)
	case script.VariantMatchupPlayers:
		r.broadcastMatchupPlayers(c, slide, resolver)
	case script.VariantOutro:
		r.broadcastOutro(c, slide)
	case script.VariantPlayer:
		r.broadcastLowerThird(c, slide, slide.Players(), resolver)
	default:
		// team, stats, points and unknown kinds share the info card.
		r.broadcastLowerThird(c, slide, slide.PlayerImages, resolver)
	}
	r.brandBug(c)
}

// brandBug is the small brand plate in the top-right corner.
func (r *Renderer) brandBug(c *canvas) {
	c.font(26, true)
	label := r.brand()
	w := c.measure(label) + 48
	x := c.width() - 40 - w
	c.roundRect(x, 40, w, 52, 10, withAlpha(c.palette.Background, 0.75))
	c.dc.SetLineWidth(2)
	c.fill(withAlpha(c.palette.Accent, 0.8))
	c.dc.DrawRoundedRectangle(x, 40, w, 52, 10)
	c.dc.Stroke()
	c.fill(c.palette.Accent)
	c.text(label, x+w/2, 75, 0.5)
}

func (r *Renderer) lowerThirdMeasurer(c *canvas) measurer {
	return func(s string, style textStyle) float64 {
		c.font(style.size, style.bold)
		return c.measure(s)
	}
}

func (r *Renderer) broadcastLowerThird(c *canvas, slide script.Slide, refs []script.PlayerRef, resolver Resolver) {
	shots := r.portraits(refs, resolver, ltMaxPortraits)
	bullets := r.bullets(slide.Points)
	heading := displayHeading(slide)
	if strings.TrimSpace(slide.Heading) == "" && len(bullets) > 0 && heading == bullets[0] {
		bullets = bullets[1:]
	}

	lt := layoutLowerThird(r.lowerThirdMeasurer(c), heading, strings.TrimSpace(slide.Subheading), bullets, len(shots))
	if lt.Truncated {
		logx.OrDiscard(r.Logger).Printf("lower third %q truncated to fit the frame", heading)
	}
	x := ltMargin
	y := c.height() - ltMargin - lt.Height

	c.roundRect(x, y, lt.Width, lt.Height, 16, withAlpha(c.palette.Background, 0.88))
	c.roundRect(x, y, ltAccentWidth, lt.Height, 6, c.palette.Accent)

	h, s, b := ltHeadingStyle.scaled(lt.Scale), ltSubStyle.scaled(lt.Scale), ltBulletStyle.scaled(lt.Scale)
	textX := x + ltAccentWidth + ltPadding
	cursor := y + ltPadding

	c.font(h.size, true)
	c.fill(c.palette.Text)
	for _, line := range lt.Heading {
		cursor += h.lineHeight
		c.text(line, textX, cursor-(h.lineHeight-h.size)/2, 0)
	}

	if len(lt.Sub) > 0 {
		cursor += 8 * lt.Scale
		c.font(s.size, false)
		c.fill(c.palette.Accent)
		for _, line := range lt.Sub {
			cursor += s.lineHeight
			c.text(line, textX, cursor-(s.lineHeight-s.size)/2, 0)
		}
	}

	if len(lt.Bullets) > 0 {
		cursor += 16 * lt.Scale
		c.font(b.size, false)
	}
	for i, lines := range lt.Bullets {
		if i > 0 {
			cursor += 10 * lt.Scale
		}
		c.dot(textX+8*lt.Scale, cursor+b.lineHeight/2+2*lt.Scale, 7*lt.Scale, c.palette.Accent)
		c.fill(c.palette.Text)
		for _, line := range lines {
			cursor += b.lineHeight
			c.text(line, textX+34*lt.Scale, cursor-(b.lineHeight-b.size)/2, 0)
		}
	}

	slotX := textX + lt.TextWidth + ltPadding
	for i, p := range shots {
		cx := slotX + float64(i)*ltPortraitSlot + ltPortraitSlot/2 - ltPadding/2
		cy := y + ltPadding + ltPortraitR
		c.circularImage(p.img, cx, cy, ltPortraitR)
		c.font(24, true)
		c.fill(c.palette.Text)
		next := c.block(c.wrap(p.ref.Name, ltPortraitSlot-ltPadding), cx, cy+ltPortraitR+32, 28, 0.5)
		if p.ref.Position != "" {
			c.font(20, false)
			c.fill(c.palette.TextDim)
			c.block(c.wrap(p.ref.Position, ltPortraitSlot-ltPadding), cx, next-2, 24, 0.5)
		}
	}
}

func (r *Renderer) broadcastTitle(c *canvas, slide script.Slide) {
	w := c.width()
	textW := w - 300
	c.font(80, true)
	heading := c.wrap(slide.Heading, textW)
	c.font(42, false)
	sub := c.wrap(slide.Subheading, textW)
	c.font(32, true)
	tagline := c.wrap(r.Tagline, textW)

	height := 80 + float64(len(heading))*95
	if len(sub) > 0 {
		height += 8 + float64(len(sub))*52
	}
	if len(tagline) > 0 {
		height += 16 + float64(len(tagline))*44
	}
	y := max(0, (c.height()-height)/2)

	c.roundRect(0, y, w, height, 0, withAlpha(c.palette.Background, 0.82))
	c.roundRect(0, y, w, 5, 0, c.palette.Accent)
	c.roundRect(0, y+height-5, w, 5, 0, c.palette.Accent)

	cursor := y + 40
	c.font(80, true)
	c.fill(c.palette.Text)
	for _, line := range heading {
		cursor += 95
		c.text(line, w/2, cursor-15, 0.5)
	}
	if len(sub) > 0 {
		cursor += 8
		c.font(42, false)
		c.fill(c.palette.Accent)
		for _, line := range sub {
			cursor += 52
			c.text(line, w/2, cursor-8, 0.5)
		}
	}
	if len(tagline) > 0 {
		cursor += 16
		c.font(32, true)
		c.fill(c.palette.Blue)
		for _, line := range tagline {
			cursor += 44
			c.text(line, w/2, cursor-8, 0.5)
		}
	}
}

// headerPlate draws heading and optional subheading centered at the top.
func (r *Renderer) headerPlate(c *canvas, heading, sub string) {
	w := c.width()
	c.font(48, true)
	lines := c.wrap(heading, w-600)
	plateW := c.widest(lines)
	c.font(32, false)
	subLines := c.wrap(sub, w-600)
	plateW = max(plateW, c.widest(subLines)) + 120

	height := 40 + float64(len(lines))*58 + float64(len(subLines))*46
	x := (w - plateW) / 2
	c.roundRect(x, 40, plateW, height, 14, withAlpha(c.palette.Background, 0.85))

	cursor := 60.0
	c.font(48, true)
	c.fill(c.palette.Text)
	for _, l := range lines {
		cursor += 58
		c.text(l, w/2, cursor-12, 0.5)
	}
	c.font(32, false)
	c.fill(c.palette.TextDim)
	for _, l := range subLines {
		cursor += 46
		c.text(l, w/2, cursor-10, 0.5)
	}
}

func (r *Renderer) broadcastMatchup(c *canvas, slide script.Slide) {
	w, h := c.width(), c.height()
	r.headerPlate(c, slide.Heading, slide.Subheading)

	boxW := w/2 - 160
	type side struct {
		text string
		x    float64
		gold bool
	}
	var sides []side
	if len(slide.Points) >= 2 {
		sides = []side{
			{text: slide.Points[0], x: 60},
			{text: slide.Points[1], x: w - 60 - boxW, gold: true},
		}
	}

	c.font(34, true)
	lineSets := make([][]string, len(sides))
	tallest := 0
	for i, sd := range sides {
		lineSets[i] = c.wrap(sd.text, boxW-60)
		tallest = max(tallest, len(lineSets[i]))
	}
	boxH := 80 + float64(tallest)*46
	boxY := h - 60 - boxH

	for i, sd := range sides {
		tint := c.palette.Blue
		if sd.gold {
			tint = c.palette.Accent
		}
		c.roundRect(sd.x, boxY, boxW, boxH, 16, withAlpha(c.palette.Background, 0.88))
		c.roundRect(sd.x, boxY, boxW, 8, 4, tint)
		c.font(34, true)
		c.fill(tint)
		cursor := boxY + 40
		for _, line := range lineSets[i] {
			cursor += 46
			c.text(line, sd.x+boxW/2, cursor-8, 0.5)
		}
	}

	vsY := h - 60 - max(boxH, 140)/2
	c.dot(w/2, vsY, 70, withAlpha(c.palette.Background, 0.9))
	c.font(64, true)
	c.fill(c.palette.Accent)
	c.text("VS", w/2, vsY+22, 0.5)
}

func (r *Renderer) broadcastMatchupPlayers(c *canvas, slide script.Slide, resolver Resolver) {
	w, h := c.width(), c.height()
	r.headerPlate(c, slide.Heading, slide.Subheading)

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
		img, ok := r.headshot(ref, resolver)
		nameY := cy + 170
		if ok {
			c.dot(cx, cy, 140, withAlpha(c.palette.Background, 0.7))
			c.circularImage(img, cx, cy, 130)
		} else {
			nameY = cy
		}

		c.font(30, true)
		names := c.wrap(ref.Name, nameW)
		plateW := c.widest(names)
		c.font(22, false)
		positions := c.wrap(ref.Position, nameW)
		plateW = max(plateW, c.widest(positions)) + 60
		plateH := 46 + float64(len(names))*36 + float64(len(positions))*30
		c.roundRect(cx-plateW/2, nameY-40, plateW, plateH, 12, withAlpha(c.palette.Background, 0.85))

		c.font(30, true)
		c.fill(nameColor)
		next := c.block(names, cx, nameY, 36, 0.5)
		c.font(22, false)
		c.fill(c.palette.TextDim)
		c.block(positions, cx, next-6, 30, 0.5)
	}

	c.dot(w/2, h/2-10, 64, withAlpha(c.palette.Background, 0.9))
	c.font(72, true)
	c.fill(c.palette.Accent)
	c.text("VS", w/2, h/2+16, 0.5)

	points := r.bullets(slide.Points)
	if len(points) == 0 {
		return
	}
	c.font(30, false)
	var lines []string
	for _, p := range points {
		lines = append(lines, c.wrap(p, w-400)...)
	}
	plateH := 30 + float64(len(lines))*42
	y := h - 60 - plateH
	c.roundRect(160, y, w-320, plateH, 12, withAlpha(c.palette.Background, 0.85))
	c.fill(c.palette.Text)
	cursor := y + 15
	for _, line := range lines {
		cursor += 42
		c.text(line, w/2, cursor-10, 0.5)
	}
}

// Outro card geometry; all outro text wraps inside the padding.
const (
	outroWidth   = 1040.0
	outroPadding = 50.0
)

type outroLayout struct {
	brand   []string
	heading []string
	sub     []string
	cta     []string
	height  float64
}

func (r *Renderer) layoutOutro(c *canvas, slide script.Slide) outroLayout {
	textW := outroWidth - 2*outroPadding
	heading := strings.TrimSpace(slide.Heading)
	if heading == "" {
		heading = "Subscribe for More"
	}

	var l outroLayout
	c.font(72, true)
	l.brand = c.wrap(r.brand(), textW)
	c.font(44, false)
	l.heading = c.wrap(heading, textW)
	c.font(32, false)
	l.sub = c.wrap(slide.Subheading, textW)
	c.font(28, false)
	l.cta = c.wrap(r.CallToAction, textW)

	// Brand, heading, then the 70px subscribe button 40px below the text.
	l.height = 2*outroPadding + float64(len(l.brand))*84 + 30 + float64(len(l.heading))*56 + 40 + 70
	if len(l.sub) > 0 {
		l.height += 10 + float64(len(l.sub))*42
	}
	if len(l.cta) > 0 {
		l.height += 30 + float64(len(l.cta))*38
	}
	return l
}

// outroTop centers the outro card vertically.
func outroTop(c *canvas, l outroLayout) float64 {
	return max(0, (c.height()-l.height)/2)
}

func (r *Renderer) broadcastOutro(c *canvas, slide script.Slide) {
	l := r.layoutOutro(c, slide)
	y := outroTop(c, l)
	c.roundRect((c.width()-outroWidth)/2, y, outroWidth, l.height, 24, withAlpha(c.palette.Background, 0.88))
	r.outroContent(c, l, y)
}

// outroContent is shared by both modes: brand, heading, subscribe button and
// call to action, starting at the card top y.
func (r *Renderer) outroContent(c *canvas, l outroLayout, y float64) {
	w := c.width()
	cursor := y + outroPadding

	c.font(72, true)
	c.fill(c.palette.Accent)
	for _, line := range l.brand {
		cursor += 84
		c.text(line, w/2, cursor-14, 0.5)
	}

	cursor += 30
	c.font(44, false)
	c.fill(c.palette.Text)
	for _, line := range l.heading {
		cursor += 56
		c.text(line, w/2, cursor-12, 0.5)
	}

	if len(l.sub) > 0 {
		cursor += 10
		c.font(32, false)
		c.fill(c.palette.TextDim)
		for _, line := range l.sub {
			cursor += 42
			c.text(line, w/2, cursor-10, 0.5)
		}
	}

	cursor += 40
	c.roundRect(w/2-160, cursor, 320, 70, 12, c.palette.Red)
	c.font(32, true)
	c.fill(c.palette.Text)
	c.text("SUBSCRIBE", w/2, cursor+46, 0.5)
	cursor += 70

	if len(l.cta) > 0 {
		cursor += 30
		c.font(28, false)
		c.fill(c.palette.TextDim)
		for _, line := range l.cta {
			cursor += 38
			c.text(line, w/2, cursor-10, 0.5)
		}
	}
}
