package annotation

import (
	"github.com/google/uuid"
)

// Point is a position in document coordinates, measured from the top-left
// of the full scrollable page regardless of the current scroll offset.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Kind identifies what an annotation draws.
type Kind string

const (
	KindPen         Kind = "pen"
	KindHighlighter Kind = "highlighter"
	KindRectangle   Kind = "rectangle"
	KindCircle      Kind = "circle"
	KindArrow       Kind = "arrow"
)

// IsPath reports whether the kind carries a point sequence instead of a
// start/end pair.
func (k Kind) IsPath() bool {
	return k == KindPen || k == KindHighlighter
}

// Color is a logical palette value. The rendered hex value depends on the
// tool drawing it (highlighter strokes map to brighter variants).
type Color string

const (
	ColorBlack  Color = "black"
	ColorRed    Color = "red"
	ColorOrange Color = "orange"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorBlue   Color = "blue"
	ColorPurple Color = "purple"
)

// Palette lists every valid color in display order.
var Palette = []Color{
	ColorBlack, ColorRed, ColorOrange, ColorYellow,
	ColorGreen, ColorBlue, ColorPurple,
}

// FillMode controls whether shapes are stroked or filled.
type FillMode string

const (
	FillOutline FillMode = "outline"
	FillFilled  FillMode = "filled"
)

// Annotation is a single stroke or shape. Path kinds (pen, highlighter)
// carry Points; shape kinds carry Start/End. All geometry is in document
// coordinates.
type Annotation struct {
	ID     string   `json:"id"`
	Kind   Kind     `json:"kind"`
	Start  Point    `json:"start,omitempty"`
	End    Point    `json:"end,omitempty"`
	Points []Point  `json:"points,omitempty"`
	Color  Color    `json:"color"`
	Width  int      `json:"width"`
	Fill   FillMode `json:"fill,omitempty"`
}

// Text is a text annotation anchored at a document-space position.
// Content may be empty while it is being edited; committing an empty
// text deletes it instead.
type Text struct {
	ID      string  `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Content string  `json:"content"`
	Color   Color   `json:"color"`
}

// NewID returns a fresh annotation identifier.
func NewID() string {
	return uuid.NewString()
}

// Clone returns a deep copy of the annotation.
func (a *Annotation) Clone() *Annotation {
	if a == nil {
		return nil
	}
	cp := *a
	if a.Points != nil {
		cp.Points = make([]Point, len(a.Points))
		copy(cp.Points, a.Points)
	}
	return &cp
}

// Clone returns a copy of the text annotation.
func (t *Text) Clone() *Text {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

// Translate shifts every coordinate of the annotation by (dx, dy).
func (a *Annotation) Translate(dx, dy float64) {
	a.Start.X += dx
	a.Start.Y += dy
	a.End.X += dx
	a.End.Y += dy
	for i := range a.Points {
		a.Points[i].X += dx
		a.Points[i].Y += dy
	}
}

// Bounds returns the document-space bounding box of the annotation.
func (a *Annotation) Bounds() (min, max Point) {
	if a.Kind.IsPath() {
		if len(a.Points) == 0 {
			return Point{}, Point{}
		}
		min, max = a.Points[0], a.Points[0]
		for _, p := range a.Points[1:] {
			if p.X < min.X {
				min.X = p.X
			}
			if p.Y < min.Y {
				min.Y = p.Y
			}
			if p.X > max.X {
				max.X = p.X
			}
			if p.Y > max.Y {
				max.Y = p.Y
			}
		}
		return min, max
	}
	min = Point{X: minf(a.Start.X, a.End.X), Y: minf(a.Start.Y, a.End.Y)}
	max = Point{X: maxf(a.Start.X, a.End.X), Y: maxf(a.Start.Y, a.End.Y)}
	return min, max
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
