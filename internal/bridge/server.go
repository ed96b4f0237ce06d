package bridge

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// actionTimeout bounds ordinary actions; full-page capture gets a
	// longer leash because its internal timeout already degrades it.
	actionTimeout   = 15 * time.Second
	fullPageTimeout = 90 * time.Second
)

// Server answers action requests over a websocket.
type Server struct {
	engine   Engine
	upgrader websocket.Upgrader
}

// NewServer wraps an engine.
func NewServer(engine Engine) *Server {
	return &Server{
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1 << 10,
			WriteBufferSize: 1 << 20, // data URLs of viewport captures are large
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and answers requests until the
// client goes away. Requests on one connection are handled in order;
// there is a single tab and a single command log behind them.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[bridge] upgrade from %s: %v", r.RemoteAddr, err)
		return
	}
	defer conn.Close()
	log.Printf("[bridge] client connected from %s", conn.RemoteAddr())

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			log.Printf("[bridge] client %s disconnected: %v", conn.RemoteAddr(), err)
			return
		}
		resp := s.dispatch(r.Context(), &req)
		if err := conn.WriteJSON(resp); err != nil {
			log.Printf("[bridge] write to %s: %v", conn.RemoteAddr(), err)
			return
		}
	}
}

func (s *Server) dispatch(parent context.Context, req *Request) *Response {
	timeout := actionTimeout
	if req.Action == ActionDownloadFullPage {
		timeout = fullPageTimeout
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	resp := &Response{ID: req.ID, Action: req.Action}
	switch req.Action {
	case ActionCaptureVisibleTab:
		dataURL, err := s.engine.CaptureVisibleTab(ctx)
		if err != nil {
			resp.Error = err.Error()
			return resp
		}
		resp.Success = true
		resp.DataURL = dataURL
	case ActionCaptureScreenshot:
		s.result(resp, s.engine.CaptureScreenshot(ctx))
	case ActionDownloadScreenshot:
		s.result(resp, s.engine.DownloadScreenshot(ctx))
	case ActionDownloadFullPage:
		s.result(resp, s.engine.DownloadFullPage(ctx))
	case ActionGetCanvasData:
		resp.Success = true
		if data, ok := s.engine.CanvasData(); ok {
			resp.CanvasData = &data
		}
	case ActionToggle:
		resp.Success = true
		resp.Active = s.engine.Toggle()
	default:
		resp.Error = "unknown action " + req.Action
	}
	return resp
}

func (s *Server) result(resp *Response, err error) {
	if err != nil {
		log.Printf("[bridge] %s failed: %v", resp.Action, err)
		resp.Error = err.Error()
		return
	}
	resp.Success = true
}
