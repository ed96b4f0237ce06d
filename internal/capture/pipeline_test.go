package capture

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePage simulates a scrollable page. Screenshot pixels encode their
// document position (R = x, G = y) so stitching mistakes show up as
// wrong colors.
type fakePage struct {
	metrics Metrics

	scrollX, scrollY float64
	chromeHidden     bool
	overlayHidden    bool
	whiteBg          bool

	shots                int
	chromeHiddenPerShot  []bool
	overlayHiddenPerShot []bool
	failShot             int // 1-based shot index that returns a deadline error
	scrollLog            [][2]float64
}

func newFakePage(m Metrics) *fakePage {
	return &fakePage{metrics: m, scrollX: m.ScrollX, scrollY: m.ScrollY}
}

func (f *fakePage) Metrics(ctx context.Context) (Metrics, error) {
	m := f.metrics
	m.ScrollX = f.scrollX
	m.ScrollY = f.scrollY
	return m, nil
}

func (f *fakePage) ScrollTo(ctx context.Context, x, y float64) error {
	f.scrollX, f.scrollY = x, y
	f.scrollLog = append(f.scrollLog, [2]float64{x, y})
	return nil
}

func (f *fakePage) Screenshot(ctx context.Context) (image.Image, error) {
	f.shots++
	if f.failShot > 0 && f.shots == f.failShot {
		return nil, context.DeadlineExceeded
	}
	f.chromeHiddenPerShot = append(f.chromeHiddenPerShot, f.chromeHidden)
	f.overlayHiddenPerShot = append(f.overlayHiddenPerShot, f.overlayHidden)
	w := int(f.metrics.ViewportWidth)
	h := int(f.metrics.ViewportHeight)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(int(f.scrollX) + x),
				G: uint8(int(f.scrollY) + y),
				A: 0xff,
			})
		}
	}
	return img, nil
}

func (f *fakePage) SetChromeHidden(ctx context.Context, hidden bool) error {
	f.chromeHidden = hidden
	return nil
}

func (f *fakePage) SetOverlayHidden(ctx context.Context, hidden bool) error {
	f.overlayHidden = hidden
	return nil
}

func (f *fakePage) SetWhiteBackground(ctx context.Context, on bool) error {
	f.whiteBg = on
	return nil
}

func testOptions() Options {
	return Options{Sleep: func(time.Duration) {}}
}

func TestCaptureViewportHidesAndRestoresOverlay(t *testing.T) {
	page := newFakePage(Metrics{PageWidth: 100, PageHeight: 100, ViewportWidth: 100, ViewportHeight: 100})
	p := New(page, testOptions())

	img, err := p.CaptureViewport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	require.Len(t, page.overlayHiddenPerShot, 1)
	assert.True(t, page.overlayHiddenPerShot[0], "overlay must be hidden during the shot")
	assert.False(t, page.overlayHidden, "overlay must be restored afterwards")
}

func TestCaptureFullPageStitches(t *testing.T) {
	m := Metrics{
		PageWidth: 100, PageHeight: 120,
		ViewportWidth: 60, ViewportHeight: 50,
		ScrollX: 10, ScrollY: 20,
	}
	page := newFakePage(m)
	p := New(page, testOptions())

	img, err := p.CaptureFullPage(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 120, img.Bounds().Dy())

	// ceil(100/60) * ceil(120/50) tiles
	assert.Equal(t, 2*3, page.shots)

	// every composite pixel must hold its own document coordinates,
	// including the clipped trailing row/column stitched from clamped
	// captures
	for _, pt := range []image.Point{{0, 0}, {59, 49}, {60, 0}, {99, 119}, {75, 110}, {0, 100}} {
		got := img.RGBAAt(pt.X, pt.Y)
		assert.Equal(t, uint8(pt.X), got.R, "x at %v", pt)
		assert.Equal(t, uint8(pt.Y), got.G, "y at %v", pt)
	}
}

func TestCaptureFullPageChromeHandling(t *testing.T) {
	m := Metrics{PageWidth: 100, PageHeight: 120, ViewportWidth: 60, ViewportHeight: 50}
	page := newFakePage(m)
	p := New(page, testOptions())

	_, err := p.CaptureFullPage(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, page.chromeHiddenPerShot, 6)
	assert.False(t, page.chromeHiddenPerShot[0], "page chrome stays visible on the first tile")
	for i := 1; i < 6; i++ {
		assert.True(t, page.chromeHiddenPerShot[i], "chrome hidden on tile %d", i)
	}
	for i, hidden := range page.overlayHiddenPerShot {
		assert.True(t, hidden, "overlay hidden on tile %d", i)
	}

	// everything restored afterwards
	assert.False(t, page.chromeHidden)
	assert.False(t, page.overlayHidden)
	assert.False(t, page.whiteBg)
}

func TestCaptureFullPageRestoresScroll(t *testing.T) {
	m := Metrics{
		PageWidth: 100, PageHeight: 120,
		ViewportWidth: 60, ViewportHeight: 50,
		ScrollX: 10, ScrollY: 20,
	}
	page := newFakePage(m)
	p := New(page, testOptions())

	_, err := p.CaptureFullPage(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 10.0, page.scrollX)
	assert.Equal(t, 20.0, page.scrollY)

	// the settling trick scrolls to the bottom and back before tiling
	require.GreaterOrEqual(t, len(page.scrollLog), 2)
	assert.Equal(t, [2]float64{0, 120}, page.scrollLog[0])
	assert.Equal(t, [2]float64{0, 0}, page.scrollLog[1])
}

func TestCaptureFullPageCompositesOverlay(t *testing.T) {
	m := Metrics{PageWidth: 100, PageHeight: 120, ViewportWidth: 60, ViewportHeight: 50}
	page := newFakePage(m)
	p := New(page, testOptions())

	overlay := image.NewRGBA(image.Rect(0, 0, 100, 120))
	overlay.SetRGBA(80, 110, color.RGBA{B: 0xff, A: 0xff})

	img, err := p.CaptureFullPage(context.Background(), overlay)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xff), img.RGBAAt(80, 110).B)
	// untouched pixels still show the page
	assert.Equal(t, uint8(40), img.RGBAAt(40, 10).R)
}

func TestCaptureFullPageTimeoutFallsBackToViewport(t *testing.T) {
	m := Metrics{PageWidth: 100, PageHeight: 120, ViewportWidth: 60, ViewportHeight: 50}
	page := newFakePage(m)
	page.failShot = 1
	p := New(page, testOptions())

	img, err := p.CaptureFullPage(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 60, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())
}

func TestCaptureFullPageHonorsCallerCancel(t *testing.T) {
	m := Metrics{PageWidth: 100, PageHeight: 120, ViewportWidth: 60, ViewportHeight: 50}
	page := newFakePage(m)
	page.failShot = 1
	p := New(page, testOptions())

	// when the caller itself is done, there is no fallback
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.CaptureFullPage(ctx, nil)
	assert.Error(t, err)
}
