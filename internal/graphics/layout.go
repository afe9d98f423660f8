package graphics

import "strings"

// Lower-third geometry on the reference canvas.
const (
	ltMargin       = 60.0
	ltPadding      = 36.0
	ltAccentWidth  = 12.0
	ltTextWidth    = 1040.0
	ltPortraitSlot = 240.0
	ltPortraitR    = 80.0
	ltMaxPortraits = 2
	ltMaxHeight    = refHeight - 2*ltMargin - 120.0
	ltMinScale     = 0.6
)

const ellipsis = "…"

type textStyle struct {
	size       float64
	bold       bool
	lineHeight float64
}

var (
	ltHeadingStyle = textStyle{size: 52, bold: true, lineHeight: 62}
	ltSubStyle     = textStyle{size: 32, lineHeight: 42}
	ltBulletStyle  = textStyle{size: 30, lineHeight: 40}
)

func (s textStyle) scaled(k float64) textStyle {
	return textStyle{size: s.size * k, bold: s.bold, lineHeight: s.lineHeight * k}
}

// lowerThird is the computed layout of a lower-third info card.
type lowerThird struct {
	Scale     float64
	Width     float64
	Height    float64
	TextWidth float64
	Heading   []string
	Sub       []string
	Bullets   [][]string
	Portraits int
	// Truncated is set when lines were dropped to fit the tallest card. The
	// last kept line then ends in an ellipsis.
	Truncated bool
}

// measurer returns the advance width of s in the given style.
type measurer func(s string, style textStyle) float64

// layoutLowerThird sizes the card for heading, subheading and bullets. When
// the content would exceed the tallest allowed card, text is scaled down
// until it fits or reaches the minimum scale; anything still too tall is
// truncated line by line from the end.
func layoutLowerThird(measure measurer, heading, sub string, bullets []string, portraits int) lowerThird {
	var lt lowerThird
	for scale := 1.0; ; scale -= 0.1 {
		if scale < ltMinScale {
			scale = ltMinScale
		}
		lt = measureLowerThird(measure, heading, sub, bullets, portraits, scale)
		if lt.Height <= ltMaxHeight || scale == ltMinScale {
			break
		}
	}
	if lt.Height > ltMaxHeight {
		lt.truncate(measure)
	}
	return lt
}

func measureLowerThird(measure measurer, heading, sub string, bullets []string, portraits int, scale float64) lowerThird {
	h, s, b := ltHeadingStyle.scaled(scale), ltSubStyle.scaled(scale), ltBulletStyle.scaled(scale)
	portraits = min(portraits, ltMaxPortraits)

	// Slots left empty by missing portraits go to the text column.
	lt := lowerThird{
		Scale:     scale,
		TextWidth: ltTextWidth + float64(ltMaxPortraits-portraits)*ltPortraitSlot,
		Portraits: portraits,
	}
	lt.Width = ltAccentWidth + 2*ltPadding + lt.TextWidth + float64(portraits)*ltPortraitSlot

	wrap := func(text string, style textStyle, width float64) []string {
		return wrapWords(text, width, func(v string) float64 { return measure(v, style) })
	}

	lt.Heading = wrap(heading, h, lt.TextWidth)
	if sub != "" {
		lt.Sub = wrap(sub, s, lt.TextWidth)
	}
	for _, bullet := range bullets {
		if lines := wrap(bullet, b, lt.bulletWidth()); len(lines) > 0 {
			lt.Bullets = append(lt.Bullets, lines)
		}
	}
	lt.Height = lt.contentHeight()
	return lt
}

func (lt lowerThird) bulletWidth() float64 {
	return lt.TextWidth - 34*lt.Scale
}

// contentHeight is the card height needed for the current lines.
func (lt lowerThird) contentHeight() float64 {
	h, s, b := ltHeadingStyle.scaled(lt.Scale), ltSubStyle.scaled(lt.Scale), ltBulletStyle.scaled(lt.Scale)
	height := ltPadding*2 + float64(len(lt.Heading))*h.lineHeight
	if len(lt.Sub) > 0 {
		height += 8*lt.Scale + float64(len(lt.Sub))*s.lineHeight
	}
	if len(lt.Bullets) > 0 {
		height += 16 * lt.Scale
		for i, lines := range lt.Bullets {
			height += float64(len(lines)) * b.lineHeight
			if i > 0 {
				height += 10 * lt.Scale
			}
		}
	}
	if lt.Portraits > 0 {
		// Circle plus name and position labels.
		height = max(height, 2*ltPadding+2*ltPortraitR+70)
	}
	return height
}

// truncate drops trailing lines until the card fits: bullets first, then the
// subheading, then heading lines after the first.
func (lt *lowerThird) truncate(measure measurer) {
	for lt.contentHeight() > ltMaxHeight {
		switch {
		case len(lt.Bullets) > 0:
			last := len(lt.Bullets) - 1
			lt.Bullets[last] = lt.Bullets[last][:len(lt.Bullets[last])-1]
			if len(lt.Bullets[last]) == 0 {
				lt.Bullets = lt.Bullets[:last]
			}
		case len(lt.Sub) > 0:
			lt.Sub = lt.Sub[:len(lt.Sub)-1]
		case len(lt.Heading) > 1:
			lt.Heading = lt.Heading[:len(lt.Heading)-1]
		default:
			lt.Height = min(lt.contentHeight(), ltMaxHeight)
			return
		}
		lt.Truncated = true
	}

	scaledMeasure := func(style textStyle) func(string) float64 {
		style = style.scaled(lt.Scale)
		return func(v string) float64 { return measure(v, style) }
	}
	switch {
	case len(lt.Bullets) > 0:
		lines := lt.Bullets[len(lt.Bullets)-1]
		lines[len(lines)-1] = ellipsize(lines[len(lines)-1], lt.bulletWidth(), scaledMeasure(ltBulletStyle))
	case len(lt.Sub) > 0:
		lt.Sub[len(lt.Sub)-1] = ellipsize(lt.Sub[len(lt.Sub)-1], lt.TextWidth, scaledMeasure(ltSubStyle))
	default:
		lt.Heading[len(lt.Heading)-1] = ellipsize(lt.Heading[len(lt.Heading)-1], lt.TextWidth, scaledMeasure(ltHeadingStyle))
	}
	lt.Height = lt.contentHeight()
}

// ellipsize shortens line until it fits width with a trailing ellipsis.
func ellipsize(line string, width float64, measure func(string) float64) string {
	runes := []rune(strings.TrimSpace(line))
	for len(runes) > 0 && measure(string(runes)+ellipsis) > width {
		runes = runes[:len(runes)-1]
	}
	return strings.TrimRight(string(runes), " ") + ellipsis
}
