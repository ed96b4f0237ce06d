package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	arrowheadLength = 14.0
	arrowheadAngle  = math.Pi / 7
)

// blendPixel src-over composites c onto the image at (x, y).
func blendPixel(img *image.RGBA, x, y int, c color.RGBA) {
	if !(image.Point{X: x, Y: y}).In(img.Rect) {
		return
	}
	if c.A == 0xff {
		img.SetRGBA(x, y, c)
		return
	}
	dst := img.RGBAAt(x, y)
	sa := uint32(c.A)
	da := uint32(dst.A)
	inv := 0xff - sa
	out := color.RGBA{
		R: uint8((uint32(c.R)*sa + uint32(dst.R)*da*inv/0xff) / 0xff),
		G: uint8((uint32(c.G)*sa + uint32(dst.G)*da*inv/0xff) / 0xff),
		B: uint8((uint32(c.B)*sa + uint32(dst.B)*da*inv/0xff) / 0xff),
		A: uint8(sa + da*inv/0xff),
	}
	img.SetRGBA(x, y, out)
}

// stampDot fills a disc of the given stroke width centred on (x, y).
// Alpha-blended strokes stamp opaquely into a scratch layer first, so a
// disc never double-blends against itself here.
func stampDot(img *image.RGBA, x, y int, width int, c color.RGBA) {
	r := float64(width) / 2
	ri := int(math.Ceil(r))
	for dy := -ri; dy <= ri; dy++ {
		for dx := -ri; dx <= ri; dx++ {
			if float64(dx*dx+dy*dy) <= r*r+0.25 {
				blendPixel(img, x+dx, y+dy, c)
			}
		}
	}
}

// drawSegment stamps a thick line from (x0, y0) to (x1, y1).
func drawSegment(img *image.RGBA, x0, y0, x1, y1 float64, width int, c color.RGBA) {
	dx := x1 - x0
	dy := y1 - y0
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		stampDot(img, int(math.Round(x0)), int(math.Round(y0)), width, c)
		return
	}
	steps := int(dist) + 1
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		stampDot(img, int(math.Round(x0+dx*t)), int(math.Round(y0+dy*t)), width, c)
	}
}

// drawRect strokes or fills an axis-aligned rectangle.
func drawRect(img *image.RGBA, x0, y0, x1, y1 float64, width int, c color.RGBA, filled bool, fill color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	if filled {
		for y := int(y0); y <= int(y1); y++ {
			for x := int(x0); x <= int(x1); x++ {
				blendPixel(img, x, y, fill)
			}
		}
		return
	}
	drawSegment(img, x0, y0, x1, y0, width, c)
	drawSegment(img, x1, y0, x1, y1, width, c)
	drawSegment(img, x1, y1, x0, y1, width, c)
	drawSegment(img, x0, y1, x0, y0, width, c)
}

// drawEllipse strokes or fills the ellipse inscribed in the rectangle
// spanned by the two corners.
func drawEllipse(img *image.RGBA, x0, y0, x1, y1 float64, width int, c color.RGBA, filled bool, fill color.RGBA) {
	cx := (x0 + x1) / 2
	cy := (y0 + y1) / 2
	rx := math.Abs(x1-x0) / 2
	ry := math.Abs(y1-y0) / 2
	if rx == 0 || ry == 0 {
		drawSegment(img, x0, y0, x1, y1, width, c)
		return
	}
	if filled {
		for y := int(cy - ry); y <= int(cy+ry); y++ {
			for x := int(cx - rx); x <= int(cx+rx); x++ {
				nx := (float64(x) - cx) / rx
				ny := (float64(y) - cy) / ry
				if nx*nx+ny*ny <= 1 {
					blendPixel(img, x, y, fill)
				}
			}
		}
		return
	}
	// Sample the perimeter densely enough that adjacent stamps overlap.
	steps := int(2*math.Pi*math.Max(rx, ry)) + 8
	px := cx + rx
	py := cy
	for i := 1; i <= steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		nx := cx + rx*math.Cos(a)
		ny := cy + ry*math.Sin(a)
		drawSegment(img, px, py, nx, ny, width, c)
		px, py = nx, ny
	}
}

// drawArrow draws a shaft plus a fixed-length, fixed-angle arrowhead
// computed from the shaft's direction.
func drawArrow(img *image.RGBA, x0, y0, x1, y1 float64, width int, c color.RGBA) {
	drawSegment(img, x0, y0, x1, y1, width, c)
	angle := math.Atan2(y1-y0, x1-x0)
	for _, da := range []float64{arrowheadAngle, -arrowheadAngle} {
		hx := x1 - arrowheadLength*math.Cos(angle+da)
		hy := y1 - arrowheadLength*math.Sin(angle+da)
		drawSegment(img, x1, y1, hx, hy, width, c)
	}
}

// drawText renders a single line of text with the baseline just below the
// anchor point.
func drawText(img *image.RGBA, x, y float64, content string, c color.RGBA) {
	face := basicfont.Face7x13
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(int(x), int(y)+face.Ascent),
	}
	d.DrawString(content)
}
