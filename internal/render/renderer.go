package render

import (
	"image"
	"image/draw"

	"github.com/omarthisside/annoted/internal/annotation"
)

// cullMargin pads the viewport before visibility culling. Anything whose
// bounding box falls entirely outside the padded viewport is skipped.
const cullMargin = 48.0

// Renderer projects the annotation store onto an RGBA canvas. Geometry is
// stored in document coordinates; the renderer subtracts the current
// scroll offset when drawing. It subscribes to the command log's change
// notification rather than being called from event handlers.
type Renderer struct {
	store   *annotation.Store
	img     *image.RGBA
	scrollX float64
	scrollY float64

	// drag preview: an uncommitted translation applied to one annotation
	// while the move tool is dragging it.
	previewID string
	previewDX float64
	previewDY float64
}

// New creates a renderer with a viewport-sized canvas.
func New(store *annotation.Store, width, height int) *Renderer {
	return &Renderer{
		store: store,
		img:   image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// Image returns the canvas. Contents are valid until the next Redraw.
func (r *Renderer) Image() *image.RGBA { return r.img }

// Resize replaces the canvas with one of the given size.
func (r *Renderer) Resize(width, height int) {
	r.img = image.NewRGBA(image.Rect(0, 0, width, height))
}

// SetScroll records the viewport's current scroll offset.
func (r *Renderer) SetScroll(x, y float64) {
	r.scrollX = x
	r.scrollY = y
}

// SetPreview applies an uncommitted translation to one annotation or text
// until ClearPreview. Used by the move tool between pointer-down and
// pointer-up; the store itself is untouched.
func (r *Renderer) SetPreview(id string, dx, dy float64) {
	r.previewID = id
	r.previewDX = dx
	r.previewDY = dy
}

// ClearPreview drops the drag preview.
func (r *Renderer) ClearPreview() {
	r.previewID = ""
	r.previewDX = 0
	r.previewDY = 0
}

// Redraw clears the canvas and draws every annotation visible in the
// current viewport.
func (r *Renderer) Redraw() {
	draw.Draw(r.img, r.img.Rect, image.Transparent, image.Point{}, draw.Src)
	w := float64(r.img.Rect.Dx())
	h := float64(r.img.Rect.Dy())
	for _, a := range r.store.Annotations() {
		a = r.applyPreview(a)
		if !r.visible(a, w, h) {
			continue
		}
		DrawAnnotation(r.img, a, r.scrollX, r.scrollY)
	}
	for _, t := range r.store.Texts() {
		t = r.applyTextPreview(t)
		if !r.textVisible(t, w, h) {
			continue
		}
		DrawText(r.img, t, r.scrollX, r.scrollY)
	}
}

func (r *Renderer) applyPreview(a *annotation.Annotation) *annotation.Annotation {
	if r.previewID == "" || a.ID != r.previewID {
		return a
	}
	cp := a.Clone()
	cp.Translate(r.previewDX, r.previewDY)
	return cp
}

func (r *Renderer) applyTextPreview(t *annotation.Text) *annotation.Text {
	if r.previewID == "" || t.ID != r.previewID {
		return t
	}
	cp := t.Clone()
	cp.X += r.previewDX
	cp.Y += r.previewDY
	return cp
}

// visible is a cheap bounding-box cull against the padded viewport, not
// exact clipping.
func (r *Renderer) visible(a *annotation.Annotation, w, h float64) bool {
	min, max := a.Bounds()
	return r.boxVisible(min, max, w, h)
}

func (r *Renderer) textVisible(t *annotation.Text, w, h float64) bool {
	min, max := t.Bounds()
	return r.boxVisible(min, max, w, h)
}

func (r *Renderer) boxVisible(min, max annotation.Point, w, h float64) bool {
	return max.X >= r.scrollX-cullMargin && min.X <= r.scrollX+w+cullMargin &&
		max.Y >= r.scrollY-cullMargin && min.Y <= r.scrollY+h+cullMargin
}

// DrawAnnotation renders one annotation onto img, converting document
// coordinates to viewport coordinates with the given scroll offset.
// Partial-opacity strokes (highlighter, filled shapes) render into a
// scratch layer first so overlapping stamps of one stroke do not
// double-blend.
func DrawAnnotation(img *image.RGBA, a *annotation.Annotation, scrollX, scrollY float64) {
	stroke := StrokeColor(a.Color, a.Kind)
	target := img
	alpha := uint8(0xff)
	if stroke.A != 0xff {
		alpha = stroke.A
		stroke.A = 0xff
		target = image.NewRGBA(img.Rect)
	}

	switch {
	case a.Kind.IsPath():
		pts := a.Points
		for i := 1; i < len(pts); i++ {
			drawSegment(target,
				pts[i-1].X-scrollX, pts[i-1].Y-scrollY,
				pts[i].X-scrollX, pts[i].Y-scrollY,
				a.Width, stroke)
		}
		if len(pts) == 1 {
			stampDot(target, int(pts[0].X-scrollX), int(pts[0].Y-scrollY), a.Width, stroke)
		}
	case a.Kind == annotation.KindRectangle, a.Kind == annotation.KindCircle:
		filled := a.Fill == annotation.FillFilled
		fill := FillColor(a.Color)
		if filled && target == img {
			alpha = fill.A
			fill.A = 0xff
			target = image.NewRGBA(img.Rect)
		}
		if a.Kind == annotation.KindRectangle {
			drawRect(target,
				a.Start.X-scrollX, a.Start.Y-scrollY,
				a.End.X-scrollX, a.End.Y-scrollY,
				a.Width, stroke, filled, fill)
		} else {
			drawEllipse(target,
				a.Start.X-scrollX, a.Start.Y-scrollY,
				a.End.X-scrollX, a.End.Y-scrollY,
				a.Width, stroke, filled, fill)
		}
	case a.Kind == annotation.KindArrow:
		drawArrow(target,
			a.Start.X-scrollX, a.Start.Y-scrollY,
			a.End.X-scrollX, a.End.Y-scrollY,
			a.Width, stroke)
	}

	if target != img {
		compositeWithAlpha(img, target, alpha)
	}
}

// DrawText renders one text annotation at its viewport position.
func DrawText(img *image.RGBA, t *annotation.Text, scrollX, scrollY float64) {
	drawText(img, t.X-scrollX, t.Y-scrollY, t.Content, StrokeColor(t.Color, annotation.KindPen))
}

// compositeWithAlpha blends the opaque scratch layer over dst at a
// uniform opacity.
func compositeWithAlpha(dst, scratch *image.RGBA, alpha uint8) {
	b := scratch.Rect
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := scratch.RGBAAt(x, y)
			if c.A == 0 {
				continue
			}
			c.A = alpha
			blendPixel(dst, x, y, c)
		}
	}
}

// RenderDocument draws the whole store at document scale with no culling.
// Used for the full-page composite and the canvas-data snapshot.
func RenderDocument(store *annotation.Store, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for _, a := range store.Annotations() {
		DrawAnnotation(img, a, 0, 0)
	}
	for _, t := range store.Texts() {
		DrawText(img, t, 0, 0)
	}
	return img
}
