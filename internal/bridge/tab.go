package bridge

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/omarthisside/annoted/internal/capture"
)

// overlayElementID is the DOM id of the annotation overlay injected into
// the page. Hiding it detaches the overlay from the render tree so it
// never appears inside a page screenshot.
const overlayElementID = "annoted-overlay"

const metricsJS = `({
	pageWidth: Math.max(document.documentElement.scrollWidth, document.body ? document.body.scrollWidth : 0),
	pageHeight: Math.max(document.documentElement.scrollHeight, document.body ? document.body.scrollHeight : 0),
	viewportWidth: window.innerWidth,
	viewportHeight: window.innerHeight,
	scrollX: window.scrollX,
	scrollY: window.scrollY
})`

const hideChromeJS = `(() => {
	for (const el of document.querySelectorAll('*')) {
		if (el.id === %q) continue;
		const pos = getComputedStyle(el).position;
		if (pos === 'fixed' || pos === 'sticky') {
			if (!el.dataset.annotedHidden) {
				el.dataset.annotedHidden = el.style.visibility || 'unset';
				el.style.visibility = 'hidden';
			}
		}
	}
})()`

const showChromeJS = `(() => {
	for (const el of document.querySelectorAll('[data-annoted-hidden]')) {
		el.style.visibility = el.dataset.annotedHidden === 'unset' ? '' : el.dataset.annotedHidden;
		delete el.dataset.annotedHidden;
	}
})()`

const whiteBackgroundJS = `(() => {
	if (document.documentElement.dataset.annotedBg === undefined) {
		document.documentElement.dataset.annotedBg = document.documentElement.style.background || 'unset';
	}
	document.documentElement.style.background = '#ffffff';
})()`

const restoreBackgroundJS = `(() => {
	const prev = document.documentElement.dataset.annotedBg;
	if (prev !== undefined) {
		document.documentElement.style.background = prev === 'unset' ? '' : prev;
		delete document.documentElement.dataset.annotedBg;
	}
})()`

// Tab drives one browser tab over the DevTools protocol. It implements
// capture.Page.
type Tab struct {
	ctx context.Context
}

var _ capture.Page = (*Tab)(nil)

// NewTab opens a tab in the given browser context and navigates it.
func NewTab(browserCtx context.Context, url string) (*Tab, context.CancelFunc, error) {
	tabCtx, cancel := chromedp.NewContext(browserCtx)
	if err := chromedp.Run(tabCtx, chromedp.Navigate(url), chromedp.WaitReady("body")); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("bridge: open %s: %w", url, err)
	}
	return &Tab{ctx: tabCtx}, cancel, nil
}

// AttachTab wraps an already-established chromedp tab context.
func AttachTab(tabCtx context.Context) *Tab {
	return &Tab{ctx: tabCtx}
}

// URL returns the tab's current location.
func (t *Tab) URL(ctx context.Context) (string, error) {
	var url string
	if err := t.run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("bridge: read location: %w", err)
	}
	return url, nil
}

// Navigate points the tab at a new URL.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	if err := t.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body")); err != nil {
		return fmt.Errorf("bridge: navigate: %w", err)
	}
	return nil
}

// ReplaceURL rewrites the visible address without reloading, used to
// strip a consumed share fragment so a reload does not restore it again.
func (t *Tab) ReplaceURL(ctx context.Context, url string) error {
	js := fmt.Sprintf("history.replaceState(null, '', %q)", url)
	if err := t.run(ctx, chromedp.Evaluate(js, nil)); err != nil {
		return fmt.Errorf("bridge: replace url: %w", err)
	}
	return nil
}

// Metrics reports page and viewport dimensions plus the scroll offset.
func (t *Tab) Metrics(ctx context.Context) (capture.Metrics, error) {
	var m capture.Metrics
	if err := t.run(ctx, chromedp.Evaluate(metricsJS, &m)); err != nil {
		return capture.Metrics{}, fmt.Errorf("bridge: page metrics: %w", err)
	}
	return m, nil
}

// ScrollTo scrolls the viewport to the given document offset.
func (t *Tab) ScrollTo(ctx context.Context, x, y float64) error {
	js := fmt.Sprintf("window.scrollTo(%.0f, %.0f)", x, y)
	if err := t.run(ctx, chromedp.Evaluate(js, nil)); err != nil {
		return fmt.Errorf("bridge: scroll: %w", err)
	}
	return nil
}

// Screenshot captures the visible viewport.
func (t *Tab) Screenshot(ctx context.Context) (image.Image, error) {
	var buf []byte
	action := chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			Do(ctx)
		return err
	})
	if err := t.run(ctx, action); err != nil {
		return nil, fmt.Errorf("bridge: capture screenshot: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("bridge: decode screenshot: %w", err)
	}
	return img, nil
}

// SetChromeHidden hides or restores the page's fixed and sticky
// elements. Hiding is idempotent; already-hidden elements keep their
// original style for the restore.
func (t *Tab) SetChromeHidden(ctx context.Context, hidden bool) error {
	js := showChromeJS
	if hidden {
		js = fmt.Sprintf(hideChromeJS, overlayElementID)
	}
	if err := t.run(ctx, chromedp.Evaluate(js, nil)); err != nil {
		return fmt.Errorf("bridge: toggle fixed elements: %w", err)
	}
	return nil
}

// SetOverlayHidden detaches or reattaches the annotation overlay.
// Pages without an injected overlay are a no-op.
func (t *Tab) SetOverlayHidden(ctx context.Context, hidden bool) error {
	display := "''"
	if hidden {
		display = "'none'"
	}
	js := fmt.Sprintf(`(() => {
		const el = document.getElementById(%q);
		if (el) el.style.display = %s;
	})()`, overlayElementID, display)
	if err := t.run(ctx, chromedp.Evaluate(js, nil)); err != nil {
		return fmt.Errorf("bridge: toggle overlay: %w", err)
	}
	return nil
}

// SetWhiteBackground forces or restores a plain white document
// background.
func (t *Tab) SetWhiteBackground(ctx context.Context, on bool) error {
	js := restoreBackgroundJS
	if on {
		js = whiteBackgroundJS
	}
	if err := t.run(ctx, chromedp.Evaluate(js, nil)); err != nil {
		return fmt.Errorf("bridge: toggle background: %w", err)
	}
	return nil
}

// run executes chromedp actions against the tab under the caller's
// deadline. chromedp actions bind to the tab's own context, so the
// deadline is raced explicitly instead of being passed down.
func (t *Tab) run(ctx context.Context, actions ...chromedp.Action) error {
	if t.ctx == nil {
		return fmt.Errorf("bridge: no tab")
	}
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(t.ctx, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
