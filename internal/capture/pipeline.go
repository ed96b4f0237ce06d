// Package capture orchestrates viewport and full-page screenshots. The
// privileged browser work (scrolling, DOM tweaks, the actual capture) is
// delegated to a Page so the sequencing logic runs headless under test.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log"
	"math"
	"time"
)

// Page is the bridge contract the pipeline drives. Every call is a
// cross-context round trip and must respect its context deadline.
type Page interface {
	Metrics(ctx context.Context) (Metrics, error)
	ScrollTo(ctx context.Context, x, y float64) error
	Screenshot(ctx context.Context) (image.Image, error)
	// SetChromeHidden hides or restores the page's fixed/sticky elements
	// so headers and navbars appear once, not on every tile.
	SetChromeHidden(ctx context.Context, hidden bool) error
	// SetOverlayHidden detaches or reattaches the annotation overlay from
	// the render tree so it never shows up inside a page screenshot.
	SetOverlayHidden(ctx context.Context, hidden bool) error
	// SetWhiteBackground forces a plain white document background during
	// stitching to avoid blending artifacts on transparent pages.
	SetWhiteBackground(ctx context.Context, on bool) error
}

// Options tunes the pipeline's timing. Zero values get defaults.
type Options struct {
	// Timeout bounds a full-page run; past it the pipeline degrades to a
	// single viewport capture instead of hanging.
	Timeout time.Duration
	// SettleDelay is the per-tile repaint wait after each scroll.
	SettleDelay time.Duration
	// FirstTileDelay is the extended settling phase before the first
	// tile, which captures with the page chrome still visible.
	FirstTileDelay time.Duration
	// Sleep is swapped for a no-op in tests.
	Sleep func(time.Duration)
}

const (
	defaultTimeout        = 45 * time.Second
	defaultSettleDelay    = 150 * time.Millisecond
	defaultFirstTileDelay = 450 * time.Millisecond
	fallbackTimeout       = 10 * time.Second
)

// Pipeline owns capture sequencing for one page.
type Pipeline struct {
	page Page
	opts Options
}

// New builds a pipeline, filling in default timings.
func New(page Page, opts Options) *Pipeline {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = defaultSettleDelay
	}
	if opts.FirstTileDelay <= 0 {
		opts.FirstTileDelay = defaultFirstTileDelay
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	return &Pipeline{page: page, opts: opts}
}

// CaptureViewport grabs the currently visible area with the annotation
// overlay hidden, then restores it.
func (p *Pipeline) CaptureViewport(ctx context.Context) (image.Image, error) {
	if err := p.page.SetOverlayHidden(ctx, true); err != nil {
		return nil, fmt.Errorf("capture: hide overlay: %w", err)
	}
	p.opts.Sleep(p.opts.SettleDelay)
	img, err := p.page.Screenshot(ctx)
	if restoreErr := p.page.SetOverlayHidden(ctx, false); restoreErr != nil {
		log.Printf("[capture] restore overlay: %v", restoreErr)
	}
	if err != nil {
		return nil, fmt.Errorf("capture: viewport screenshot: %w", err)
	}
	return img, nil
}

// CaptureFullPage scrolls the page tile by tile, stitches the captures
// into one document-sized image and composites the annotation overlay on
// top. overlay, if non-nil, must be rendered in document coordinates.
// When the run exceeds the configured timeout it degrades to a single
// viewport capture rather than failing outright.
func (p *Pipeline) CaptureFullPage(ctx context.Context, overlay *image.RGBA) (*image.RGBA, error) {
	runCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	img, err := p.stitch(runCtx, overlay)
	if err == nil {
		return img, nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		log.Printf("[capture] full page timed out, falling back to viewport: %v", err)
		return p.viewportFallback(ctx, overlay)
	}
	return nil, err
}

func (p *Pipeline) viewportFallback(ctx context.Context, overlay *image.RGBA) (*image.RGBA, error) {
	fbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fallbackTimeout)
	defer cancel()
	m, err := p.page.Metrics(fbCtx)
	if err != nil {
		return nil, fmt.Errorf("capture: fallback metrics: %w", err)
	}
	shot, err := p.CaptureViewport(fbCtx)
	if err != nil {
		return nil, err
	}
	out := image.NewRGBA(image.Rect(0, 0, shot.Bounds().Dx(), shot.Bounds().Dy()))
	draw.Draw(out, out.Rect, shot, shot.Bounds().Min, draw.Src)
	if overlay != nil {
		// Overlay is document-space; shift it by the current scroll.
		draw.Draw(out, out.Rect, overlay, image.Pt(int(m.ScrollX), int(m.ScrollY)), draw.Over)
	}
	return out, nil
}

func (p *Pipeline) stitch(ctx context.Context, overlay *image.RGBA) (*image.RGBA, error) {
	origin, err := p.page.Metrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture: page metrics: %w", err)
	}

	// Force lazy content to render before trusting the page height:
	// measuring without a bottom-and-back scroll undercounts pages that
	// grow as they load.
	if err := p.page.ScrollTo(ctx, 0, origin.PageHeight); err != nil {
		return nil, fmt.Errorf("capture: settle scroll: %w", err)
	}
	p.opts.Sleep(p.opts.SettleDelay)
	if err := p.page.ScrollTo(ctx, 0, 0); err != nil {
		return nil, fmt.Errorf("capture: settle scroll: %w", err)
	}
	p.opts.Sleep(p.opts.SettleDelay)

	m, err := p.page.Metrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture: page metrics: %w", err)
	}
	tiles := PlanTiles(m)
	if len(tiles) == 0 {
		return nil, errors.New("capture: page reports zero size")
	}

	composite := image.NewRGBA(image.Rect(0, 0,
		int(math.Ceil(m.PageWidth)), int(math.Ceil(m.PageHeight))))

	// Everything hidden or forced below is restored on the way out, and
	// the viewport goes back to where the user left it.
	defer func() {
		restoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fallbackTimeout)
		defer cancel()
		if err := p.page.SetChromeHidden(restoreCtx, false); err != nil {
			log.Printf("[capture] restore fixed elements: %v", err)
		}
		if err := p.page.SetWhiteBackground(restoreCtx, false); err != nil {
			log.Printf("[capture] restore background: %v", err)
		}
		if err := p.page.SetOverlayHidden(restoreCtx, false); err != nil {
			log.Printf("[capture] restore overlay: %v", err)
		}
		if err := p.page.ScrollTo(restoreCtx, origin.ScrollX, origin.ScrollY); err != nil {
			log.Printf("[capture] restore scroll: %v", err)
		}
	}()

	for i, t := range tiles {
		if err := p.page.ScrollTo(ctx, t.ScrollX, t.ScrollY); err != nil {
			return nil, fmt.Errorf("capture: scroll to tile %d,%d: %w", t.Row, t.Col, err)
		}
		p.opts.Sleep(p.opts.SettleDelay)

		if i == 0 {
			// First tile keeps the page chrome visible so the header
			// appears exactly once, and takes the extended settle with
			// the overlay fully detached and the background forced white.
			if err := p.page.SetOverlayHidden(ctx, true); err != nil {
				return nil, fmt.Errorf("capture: hide overlay: %w", err)
			}
			if err := p.page.SetWhiteBackground(ctx, true); err != nil {
				return nil, fmt.Errorf("capture: force background: %w", err)
			}
			p.opts.Sleep(p.opts.FirstTileDelay)
		} else if i == 1 {
			// Fixed and sticky elements stay hidden from the second tile
			// on so headers do not repeat down the stitched image.
			if err := p.page.SetChromeHidden(ctx, true); err != nil {
				return nil, fmt.Errorf("capture: hide fixed elements: %w", err)
			}
			p.opts.Sleep(p.opts.SettleDelay)
		}

		shot, err := p.page.Screenshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("capture: tile %d,%d: %w", t.Row, t.Col, err)
		}

		// A clamped trailing tile captures more page than it owns; the
		// source offset skips the part earlier tiles already covered.
		src := shot.Bounds().Min.Add(image.Pt(int(t.X-t.ScrollX), int(t.Y-t.ScrollY)))
		dst := image.Rect(int(t.X), int(t.Y), int(t.X+t.Width), int(t.Y+t.Height))
		draw.Draw(composite, dst, shot, src, draw.Src)
	}

	if overlay != nil {
		draw.Draw(composite, composite.Rect, overlay, image.Point{}, draw.Over)
	}
	return composite, nil
}
