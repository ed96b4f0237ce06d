package annotation

import "math"

const (
	// pathHitRadius is how close (px) a pointer must come to any stored
	// point of a pen/highlighter path to hit it.
	pathHitRadius = 10.0
	// shapeHitPadding expands a shape's start/end bounding box before the
	// containment test.
	shapeHitPadding = 6.0
	// textHitWidthPerRune approximates the rendered glyph advance used for
	// the text bounding box; textHitHeight is the rendered line height.
	textHitWidthPerRune = 8.0
	textHitHeight       = 16.0
)

// Hit identifies what a hit test found.
type Hit struct {
	ID     string
	IsText bool
}

// HitTest returns the topmost annotation or text under the document-space
// point p, or nil. Z-order is last-drawn-first: the most recently added
// entry wins overlapping hits. Text boxes are tested before drawn
// annotations, matching their position above the canvas.
func (s *Store) HitTest(p Point) *Hit {
	for i := len(s.texts) - 1; i >= 0; i-- {
		if hitText(s.texts[i], p) {
			return &Hit{ID: s.texts[i].ID, IsText: true}
		}
	}
	for i := len(s.annotations) - 1; i >= 0; i-- {
		if hitAnnotation(s.annotations[i], p) {
			return &Hit{ID: s.annotations[i].ID}
		}
	}
	return nil
}

func hitAnnotation(a *Annotation, p Point) bool {
	if a.Kind.IsPath() {
		for _, q := range a.Points {
			if math.Hypot(q.X-p.X, q.Y-p.Y) <= pathHitRadius {
				return true
			}
		}
		return false
	}
	min, max := a.Bounds()
	return p.X >= min.X-shapeHitPadding && p.X <= max.X+shapeHitPadding &&
		p.Y >= min.Y-shapeHitPadding && p.Y <= max.Y+shapeHitPadding
}

// Bounds returns the approximate rendered box of the text, used for hit
// testing and visibility culling.
func (t *Text) Bounds() (min, max Point) {
	w := float64(len([]rune(t.Content))) * textHitWidthPerRune
	if w < textHitWidthPerRune {
		w = textHitWidthPerRune
	}
	return Point{X: t.X, Y: t.Y}, Point{X: t.X + w, Y: t.Y + textHitHeight}
}

func hitText(t *Text, p Point) bool {
	min, max := t.Bounds()
	return p.X >= min.X && p.X <= max.X && p.Y >= min.Y && p.Y <= max.Y
}
