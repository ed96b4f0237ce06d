package render

import (
	"image/color"

	"github.com/omarthisside/annoted/internal/annotation"
)

// penColors maps the logical palette to the hex values pen strokes,
// shapes and text render with.
var penColors = map[annotation.Color]color.RGBA{
	annotation.ColorBlack:  {0x1f, 0x1f, 0x1f, 0xff},
	annotation.ColorRed:    {0xe5, 0x39, 0x35, 0xff},
	annotation.ColorOrange: {0xfb, 0x8c, 0x00, 0xff},
	annotation.ColorYellow: {0xfd, 0xd8, 0x35, 0xff},
	annotation.ColorGreen:  {0x43, 0xa0, 0x47, 0xff},
	annotation.ColorBlue:   {0x1e, 0x88, 0xe5, 0xff},
	annotation.ColorPurple: {0x8e, 0x24, 0xaa, 0xff},
}

// highlightColors maps the same logical palette to the brighter variants
// highlighter strokes use. Same logical value, different rendered hex.
var highlightColors = map[annotation.Color]color.RGBA{
	annotation.ColorBlack:  {0x75, 0x75, 0x75, 0xff},
	annotation.ColorRed:    {0xff, 0x52, 0x52, 0xff},
	annotation.ColorOrange: {0xff, 0xab, 0x40, 0xff},
	annotation.ColorYellow: {0xff, 0xff, 0x00, 0xff},
	annotation.ColorGreen:  {0x69, 0xf0, 0xae, 0xff},
	annotation.ColorBlue:   {0x40, 0xc4, 0xff, 0xff},
	annotation.ColorPurple: {0xe0, 0x40, 0xfb, 0xff},
}

// highlightAlpha is the fixed partial opacity of highlighter strokes and
// filled shapes.
const highlightAlpha = 0x60

// StrokeColor resolves a logical color for the given annotation kind.
// Highlighter strokes get the bright variant at partial opacity.
func StrokeColor(c annotation.Color, kind annotation.Kind) color.RGBA {
	if kind == annotation.KindHighlighter {
		col, ok := highlightColors[c]
		if !ok {
			col = highlightColors[annotation.ColorYellow]
		}
		col.A = highlightAlpha
		return col
	}
	col, ok := penColors[c]
	if !ok {
		col = penColors[annotation.ColorBlack]
	}
	return col
}

// FillColor is the partial-opacity variant used for filled shapes.
func FillColor(c annotation.Color) color.RGBA {
	col := StrokeColor(c, annotation.KindPen)
	col.A = highlightAlpha
	return col
}
