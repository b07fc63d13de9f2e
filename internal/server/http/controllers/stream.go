package controllers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/delivery"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/event"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/runtime"
	logpkg "github.com/SaanjSulthana/hospitality-management-platform-sub005/pkg/log"
)

var streamUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handshakeTimeout bounds how long a fresh socket may sit without sending
// its handshake frame.
const handshakeTimeout = 10 * time.Second

// StreamController serves the WebSocket consumer endpoint.
type StreamController struct {
	rt     *runtime.Runtime
	logger logpkg.Logger
}

func NewStreamController(rt *runtime.Runtime, logger logpkg.Logger) *StreamController {
	return &StreamController{rt: rt, logger: logger}
}

// RegisterRoutes registers the stream route with the given mux.
func (c *StreamController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/stream", c.handleStream)
}

// wsSink adapts one WebSocket to the router's sink interface. Writes are
// serialized; the session's writer goroutine and the handshake path never
// overlap, but the error path can.
type wsSink struct {
	ws           *websocket.Conn
	ctx          context.Context
	writeTimeout time.Duration
	mu           sync.Mutex
}

func (s *wsSink) Send(env event.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeTimeout > 0 {
		_ = s.ws.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	return s.ws.WriteJSON(env)
}

func (s *wsSink) Context() context.Context { return s.ctx }

func (c *StreamController) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	cfg := c.rt.Config()
	tenantID := tenantFrom(r, cfg.DefaultTenantName)
	actorID := actorFrom(r)

	ws, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.Warn("websocket upgrade failed", logpkg.Err(err))
		return
	}
	defer ws.Close()

	_ = ws.SetReadDeadline(time.Now().Add(handshakeTimeout))
	var h delivery.Handshake
	if err := ws.ReadJSON(&h); err != nil {
		_ = ws.WriteJSON(event.NewError("", "handshake expected", delivery.CodeInvalidArgument, 0))
		return
	}
	_ = ws.SetReadDeadline(time.Time{})

	// The request context dies with the HTTP handler once the connection is
	// hijacked, so disconnects are detected by the read pump instead.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	sink := &wsSink{ws: ws, ctx: ctx, writeTimeout: time.Duration(cfg.Session.WriteTimeoutMs) * time.Millisecond}
	if err := c.rt.Delivery().ServeStream(ctx, tenantID, actorID, h, sink); err != nil {
		c.logger.Debug("stream rejected", logpkg.Str("tenant", tenantID), logpkg.Err(err))
	}
}
