package main

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/draw"
	"log"
	"math"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/omarthisside/annoted/internal/annotation"
	"github.com/omarthisside/annoted/internal/bridge"
	"github.com/omarthisside/annoted/internal/capture"
	"github.com/omarthisside/annoted/internal/controller"
	"github.com/omarthisside/annoted/internal/history"
	"github.com/omarthisside/annoted/internal/render"
	"github.com/omarthisside/annoted/internal/session"
	"github.com/omarthisside/annoted/internal/share"
)

// tabDriver is the slice of bridge.Tab the engine needs; tests swap in a
// fake page.
type tabDriver interface {
	capture.Page
	URL(ctx context.Context) (string, error)
	ReplaceURL(ctx context.Context, url string) error
}

// engine ties one tab's annotation state to the bridge protocol. All
// mutation funnels through its mutex, giving the same single-writer
// guarantee a content script gets from the browser event loop.
type engine struct {
	mu sync.Mutex

	tab        tabDriver
	sessions   *session.Store
	downloader *bridge.Downloader

	store    *annotation.Store
	hist     *history.Log
	renderer *render.Renderer
	ctrl     *controller.Controller
	pipeline *capture.Pipeline

	pageURL string
	active  bool
}

var _ bridge.Engine = (*engine)(nil)

func newEngine(tab tabDriver, sessions *session.Store, downloader *bridge.Downloader) (*engine, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pageURL, err := tab.URL(ctx)
	if err != nil {
		return nil, err
	}
	m, err := tab.Metrics(ctx)
	if err != nil {
		return nil, err
	}

	store := annotation.NewStore()
	hist := history.New(store)
	renderer := render.New(store, int(m.ViewportWidth), int(m.ViewportHeight))
	ctrl := controller.New(store, hist, renderer)

	e := &engine{
		tab:        tab,
		sessions:   sessions,
		downloader: downloader,
		store:      store,
		hist:       hist,
		renderer:   renderer,
		ctrl:       ctrl,
		pipeline:   capture.New(tab, capture.Options{}),
		pageURL:    share.NormalizeURL(pageURL),
		active:     true,
	}

	hist.SetOnChange(renderer.Redraw)
	hist.SetOnCommit(e.persist)
	ctrl.OnToolState = e.persistTools
	ctrl.OnCapture = e.backgroundDownload(e.DownloadScreenshot)
	ctrl.OnFullPage = e.backgroundDownload(e.DownloadFullPage)

	e.restore(ctx, pageURL)
	return e, nil
}

// restore replays a share-link payload when the page loaded with one,
// otherwise the saved session for this URL. Width falls back to the
// global last-used value when neither carries tool state.
func (e *engine) restore(ctx context.Context, rawURL string) {
	if frag := fragmentOf(rawURL); frag != "" {
		payload, err := share.Decode(rawURL, frag)
		switch {
		case errors.Is(err, share.ErrNoPayload):
			// some other fragment, leave it alone
		case err != nil:
			log.Printf("[engine] share restore rejected: %v", err)
		default:
			e.hist.Replay(payload.Commands)
			e.ctrl.SetTools(payload.Tools)
			if err := e.tab.ReplaceURL(ctx, share.StripFragment(rawURL)); err != nil {
				log.Printf("[engine] strip share fragment: %v", err)
			}
			log.Printf("[engine] restored %d commands from share link", len(payload.Commands))
			return
		}
	}

	rec, err := e.sessions.Load(e.pageURL)
	if err != nil {
		log.Printf("[engine] session load: %v", err)
	}
	if rec != nil {
		e.hist.Replay(rec.Commands)
		e.ctrl.SetTools(rec.Tools)
		log.Printf("[engine] restored session with %d commands", len(rec.Commands))
		return
	}
	if w, ok := e.sessions.DefaultWidth(); ok {
		e.ctrl.SetWidth(w)
	}
}

// persist saves the session after every committed command. Best effort:
// a full disk must not break drawing.
func (e *engine) persist() {
	err := e.sessions.Save(&session.Record{
		PageURL:  e.pageURL,
		Commands: e.hist.Commands(),
		Tools:    e.ctrl.Tools(),
	})
	if err != nil {
		log.Printf("[engine] session save: %v", err)
	}
}

func (e *engine) persistTools(ts annotation.ToolState) {
	if err := e.sessions.SaveDefaultWidth(ts.Width); err != nil {
		log.Printf("[engine] save pen width: %v", err)
	}
}

func (e *engine) backgroundDownload(fn func(context.Context) error) func() {
	return func() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if err := fn(ctx); err != nil {
				log.Printf("[engine] capture shortcut: %v", err)
			}
		}()
	}
}

// CaptureVisibleTab returns the bare viewport as a PNG data URL.
func (e *engine) CaptureVisibleTab(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	img, err := e.pipeline.CaptureViewport(ctx)
	if err != nil {
		return "", err
	}
	return capture.DataURL(img)
}

// CaptureScreenshot captures the viewport with annotations composited in
// and downloads it as PNG.
func (e *engine) CaptureScreenshot(ctx context.Context) error {
	return e.DownloadScreenshot(ctx)
}

// DownloadScreenshot captures the annotated viewport and writes it to
// the downloads directory.
func (e *engine) DownloadScreenshot(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	img, err := e.annotatedViewport(ctx)
	if err != nil {
		return err
	}
	path, err := e.downloader.Save("annoted-screenshot", "png", func(f *os.File) error {
		return capture.EncodePNG(img, f)
	})
	if err != nil {
		return err
	}
	log.Printf("[engine] saved screenshot %s", path)
	return nil
}

// DownloadFullPage runs the scroll-and-stitch pipeline and writes the
// result as a PDF. PDF failures surface as-is; no silent PNG fallback.
// While annotation mode is off the export is the bare page.
func (e *engine) DownloadFullPage(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, err := e.tab.Metrics(ctx)
	if err != nil {
		return err
	}
	var overlay *image.RGBA
	if e.active {
		overlay = render.RenderDocument(e.store,
			int(math.Ceil(m.PageWidth)), int(math.Ceil(m.PageHeight)))
	}
	img, err := e.pipeline.CaptureFullPage(ctx, overlay)
	if err != nil {
		return err
	}
	path, err := e.downloader.Save("annoted-fullpage", "pdf", func(f *os.File) error {
		return capture.ExportPDF(img, f)
	})
	if err != nil {
		return err
	}
	log.Printf("[engine] saved full page %s", path)
	return nil
}

// CanvasData snapshots the annotation layer as a PNG data URL; ok is
// false when nothing is drawn or annotation mode is off (the overlay is
// unmounted, there is no canvas to read).
func (e *engine) CanvasData() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active || e.store.Empty() {
		return "", false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	w, h := e.documentSize(ctx)
	data, err := capture.DataURL(render.RenderDocument(e.store, w, h))
	if err != nil {
		log.Printf("[engine] canvas data: %v", err)
		return "", false
	}
	return data, true
}

// Toggle flips annotation mode for the tab: the overlay element is
// shown or hidden to match, and an inactive engine stops compositing
// annotations into captures.
func (e *engine) Toggle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = !e.active
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.tab.SetOverlayHidden(ctx, !e.active); err != nil {
		log.Printf("[engine] toggle overlay: %v", err)
	}
	log.Printf("[engine] annotation mode active=%v", e.active)
	return e.active
}

// documentSize prefers live page metrics and falls back to the extent of
// the drawn annotations when the tab cannot answer.
func (e *engine) documentSize(ctx context.Context) (int, int) {
	if m, err := e.tab.Metrics(ctx); err == nil && m.PageWidth > 0 && m.PageHeight > 0 {
		return int(math.Ceil(m.PageWidth)), int(math.Ceil(m.PageHeight))
	}
	var w, h float64
	for _, a := range e.store.Annotations() {
		_, max := a.Bounds()
		w = math.Max(w, max.X)
		h = math.Max(h, max.Y)
	}
	for _, t := range e.store.Texts() {
		w = math.Max(w, t.X+200)
		h = math.Max(h, t.Y+32)
	}
	return int(math.Ceil(w)) + 1, int(math.Ceil(h)) + 1
}

// annotatedViewport composites the current annotation layer over a
// viewport screenshot. While annotation mode is off the screenshot comes
// back bare.
func (e *engine) annotatedViewport(ctx context.Context) (*image.RGBA, error) {
	shot, err := e.pipeline.CaptureViewport(ctx)
	if err != nil {
		return nil, err
	}
	out := image.NewRGBA(image.Rect(0, 0, shot.Bounds().Dx(), shot.Bounds().Dy()))
	draw.Draw(out, out.Rect, shot, shot.Bounds().Min, draw.Src)
	if !e.active {
		return out, nil
	}
	m, err := e.tab.Metrics(ctx)
	if err != nil {
		return nil, err
	}
	e.renderer.Resize(out.Rect.Dx(), out.Rect.Dy())
	e.renderer.SetScroll(m.ScrollX, m.ScrollY)
	e.renderer.Redraw()
	draw.Draw(out, out.Rect, e.renderer.Image(), image.Point{}, draw.Over)
	return out, nil
}

// handleShare generates a share link for the current session over plain
// HTTP. Too-large sessions answer 413 so the caller can fall back to an
// image export.
func (e *engine) handleShare(w http.ResponseWriter, r *http.Request) {
	e.mu.Lock()
	link, err := share.Encode(e.pageURL, e.hist.Commands(), e.ctrl.Tools())
	e.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if errors.Is(err, share.ErrTooLarge) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"url": link.URL, "warning": link.Warning})
}

func fragmentOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Fragment
}
