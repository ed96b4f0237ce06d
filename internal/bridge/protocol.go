// Package bridge is the privileged side of the system: the only code
// allowed to drive the browser tab and write downloads. The annotation
// engine talks to it over a typed websocket request/response protocol.
package bridge

import "context"

// Actions the bridge accepts.
const (
	ActionCaptureVisibleTab  = "captureVisibleTab"
	ActionCaptureScreenshot  = "captureScreenshot"
	ActionDownloadScreenshot = "downloadScreenshot"
	ActionDownloadFullPage   = "downloadFullPage"
	ActionGetCanvasData      = "getCanvasData"
	ActionToggle             = "toggle"
)

// Request is one action request from a client.
type Request struct {
	ID     string `json:"id"`
	Action string `json:"action"`
}

// Response answers a request. Error is set instead of thrown: transport
// problems and capture failures both come back as typed results.
type Response struct {
	ID      string `json:"id"`
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	// captureVisibleTab
	DataURL string `json:"dataUrl,omitempty"`
	// getCanvasData: a PNG data URL, or null when nothing is drawn. Null
	// must reach the wire, so no omitempty.
	CanvasData *string `json:"canvasData"`
	// toggle: the new mode. False is an answer, not an absence.
	Active bool `json:"active"`
}

// Engine is what the action server drives. The daemon's engine wires the
// annotation store, command log, renderer and capture pipeline behind it.
type Engine interface {
	// CaptureVisibleTab returns the current viewport as a PNG data URL.
	CaptureVisibleTab(ctx context.Context) (string, error)
	// CaptureScreenshot captures the viewport with annotations and
	// downloads it.
	CaptureScreenshot(ctx context.Context) error
	// DownloadScreenshot captures and downloads the viewport.
	DownloadScreenshot(ctx context.Context) error
	// DownloadFullPage runs the full-page stitch and downloads the
	// result; it degrades to a viewport capture internally on timeout.
	DownloadFullPage(ctx context.Context) error
	// CanvasData snapshots the annotation layer; ok is false when the
	// page has no annotations (a null result, not an error).
	CanvasData() (data string, ok bool)
	// Toggle flips annotation mode and reports the new state.
	Toggle() bool
}
