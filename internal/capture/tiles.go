package capture

import "math"

// Metrics describes the page and viewport as reported by the bridge.
// All values are CSS pixels.
type Metrics struct {
	PageWidth      float64 `json:"pageWidth"`
	PageHeight     float64 `json:"pageHeight"`
	ViewportWidth  float64 `json:"viewportWidth"`
	ViewportHeight float64 `json:"viewportHeight"`
	ScrollX        float64 `json:"scrollX"`
	ScrollY        float64 `json:"scrollY"`
}

// Tile is one viewport-sized capture at a specific scroll offset.
type Tile struct {
	Row, Col int
	// X, Y is the tile's document position (Col*viewport width,
	// Row*viewport height); Width, Height is the portion of the page the
	// tile actually contributes, clipped to the true remainder on the
	// trailing row/column.
	X, Y          float64
	Width, Height float64
	// ScrollX, ScrollY is where the viewport scrolls to capture this
	// tile, clamped so trailing tiles align to the page edge instead of
	// overshooting.
	ScrollX, ScrollY float64
}

// PlanTiles lays out the row-major tile grid covering the full page:
// ceil(W/w) x ceil(H/h) tiles for a W x H page under a w x h viewport.
func PlanTiles(m Metrics) []Tile {
	if m.PageWidth <= 0 || m.PageHeight <= 0 || m.ViewportWidth <= 0 || m.ViewportHeight <= 0 {
		return nil
	}
	cols := int(math.Ceil(m.PageWidth / m.ViewportWidth))
	rows := int(math.Ceil(m.PageHeight / m.ViewportHeight))

	tiles := make([]Tile, 0, rows*cols)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			t := Tile{
				Row: row,
				Col: col,
				X:   float64(col) * m.ViewportWidth,
				Y:   float64(row) * m.ViewportHeight,
			}
			t.Width = math.Min(m.ViewportWidth, m.PageWidth-t.X)
			t.Height = math.Min(m.ViewportHeight, m.PageHeight-t.Y)
			t.ScrollX = math.Max(0, math.Min(t.X, m.PageWidth-m.ViewportWidth))
			t.ScrollY = math.Max(0, math.Min(t.Y, m.PageHeight-m.ViewportHeight))
			tiles = append(tiles, t)
		}
	}
	return tiles
}
