package bridge

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	mu          sync.Mutex
	dataURL     string
	captureErr  error
	fullPageErr error
	canvasData  string
	hasCanvas   bool
	active      bool

	calls []string
}

func (e *stubEngine) record(action string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, action)
}

func (e *stubEngine) recorded() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func (e *stubEngine) setCanvas(data string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.canvasData = data
	e.hasCanvas = true
}

func (e *stubEngine) CaptureVisibleTab(ctx context.Context) (string, error) {
	e.record(ActionCaptureVisibleTab)
	return e.dataURL, e.captureErr
}

func (e *stubEngine) CaptureScreenshot(ctx context.Context) error {
	e.record(ActionCaptureScreenshot)
	return e.captureErr
}

func (e *stubEngine) DownloadScreenshot(ctx context.Context) error {
	e.record(ActionDownloadScreenshot)
	return e.captureErr
}

func (e *stubEngine) DownloadFullPage(ctx context.Context) error {
	e.record(ActionDownloadFullPage)
	return e.fullPageErr
}

func (e *stubEngine) CanvasData() (string, bool) {
	e.record(ActionGetCanvasData)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canvasData, e.hasCanvas
}

func (e *stubEngine) Toggle() bool {
	e.record(ActionToggle)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = !e.active
	return e.active
}

func dialTestServer(t *testing.T, eng Engine) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewServer(eng))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, req Request) Response {
	t.Helper()
	require.NoError(t, conn.WriteJSON(req))
	var resp Response
	require.NoError(t, conn.ReadJSON(&resp))
	return resp
}

func TestCaptureVisibleTabRoundTrip(t *testing.T) {
	eng := &stubEngine{dataURL: "data:image/png;base64,abc"}
	conn := dialTestServer(t, eng)

	resp := roundTrip(t, conn, Request{ID: "r1", Action: ActionCaptureVisibleTab})
	assert.Equal(t, "r1", resp.ID)
	assert.Equal(t, ActionCaptureVisibleTab, resp.Action)
	assert.True(t, resp.Success)
	assert.Equal(t, eng.dataURL, resp.DataURL)
	assert.Empty(t, resp.Error)
}

func TestFailureComesBackAsTypedResult(t *testing.T) {
	eng := &stubEngine{captureErr: errors.New("tab went away")}
	conn := dialTestServer(t, eng)

	resp := roundTrip(t, conn, Request{ID: "r2", Action: ActionDownloadScreenshot})
	assert.Equal(t, "r2", resp.ID)
	assert.False(t, resp.Success)
	assert.Equal(t, "tab went away", resp.Error)
}

func TestCanvasDataNullWhenEmpty(t *testing.T) {
	eng := &stubEngine{}
	conn := dialTestServer(t, eng)

	resp := roundTrip(t, conn, Request{ID: "r3", Action: ActionGetCanvasData})
	assert.True(t, resp.Success)
	assert.Nil(t, resp.CanvasData)

	eng.setCanvas("data:image/png;base64,xyz")
	resp = roundTrip(t, conn, Request{ID: "r4", Action: ActionGetCanvasData})
	assert.True(t, resp.Success)
	require.NotNil(t, resp.CanvasData)
	assert.Equal(t, "data:image/png;base64,xyz", *resp.CanvasData)
}

func TestToggleReportsNewState(t *testing.T) {
	eng := &stubEngine{}
	conn := dialTestServer(t, eng)

	resp := roundTrip(t, conn, Request{ID: "t1", Action: ActionToggle})
	assert.True(t, resp.Success)
	assert.True(t, resp.Active)

	resp = roundTrip(t, conn, Request{ID: "t2", Action: ActionToggle})
	assert.True(t, resp.Success)
	assert.False(t, resp.Active)
}

func TestUnknownActionRejected(t *testing.T) {
	eng := &stubEngine{}
	conn := dialTestServer(t, eng)

	resp := roundTrip(t, conn, Request{ID: "u1", Action: "explode"})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "unknown action")
	assert.Empty(t, eng.recorded())
}

func TestRequestsAnsweredInOrder(t *testing.T) {
	eng := &stubEngine{}
	conn := dialTestServer(t, eng)

	for _, action := range []string{ActionToggle, ActionCaptureScreenshot, ActionDownloadFullPage} {
		resp := roundTrip(t, conn, Request{ID: action, Action: action})
		assert.Equal(t, action, resp.ID)
	}
	assert.Equal(t, []string{ActionToggle, ActionCaptureScreenshot, ActionDownloadFullPage}, eng.recorded())
}
