package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/otiai10/consultbase/internal/auth"
	"github.com/otiai10/consultbase/internal/logging"
	"github.com/otiai10/consultbase/internal/session"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
	streamReadLimit  = 512
)

// StreamMessage is one frame of the session stream. Event is empty on
// the first frame.
type StreamMessage struct {
	Event   *session.Event `json:"event,omitempty"`
	Session SessionView    `json:"session"`
}

// StreamHandler pushes a fresh SessionView over a WebSocket after every
// change to the session's plan state.
type StreamHandler struct {
	h        *Handler
	upgrader websocket.Upgrader
}

// NewStreamHandler creates a StreamHandler accepting browser connections
// from allowedOrigins. An empty list or "*" accepts any origin.
func NewStreamHandler(h *Handler, allowedOrigins []string) *StreamHandler {
	return &StreamHandler{h: h, upgrader: makeUpgrader(allowedOrigins)}
}

func makeUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowAll := len(allowedOrigins) == 0
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		originSet[o] = true
	}

	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // non-browser clients
			}
			return originSet[origin]
		},
	}
}

// ServeHTTP handles GET /api/session/stream.
// Browsers cannot set headers on a WebSocket handshake, so the token may
// also be passed as ?token=.
func (sh *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.BearerToken(r)
	if !ok {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		writeError(w, "Authorization header required", http.StatusUnauthorized)
		return
	}
	s, ok := sh.h.sessions.Get(token)
	if !ok {
		writeError(w, "Session not found", http.StatusUnauthorized)
		return
	}

	conn, err := sh.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		return
	}
	defer conn.Close()

	sh.h.metrics.StreamConnected()
	defer sh.h.metrics.StreamDisconnected()

	logger := logging.FromContext(r.Context(), "stream")
	logger.Debug().Msg("stream connected")

	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go sh.readPump(conn, done)

	ctx := r.Context()
	if err := sh.send(ctx, conn, s, nil); err != nil {
		logger.Debug().Err(err).Msg("failed to send initial frame")
		return
	}

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(streamWriteWait))
				return
			}
			if err := sh.send(ctx, conn, s, &ev); err != nil {
				logger.Debug().Err(err).Msg("stream write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case <-done:
			logger.Debug().Msg("stream disconnected")
			return
		}
	}
}

// readPump consumes client frames so pongs and close frames are handled.
// It closes done when the connection fails.
func (sh *StreamHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(streamReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (sh *StreamHandler) send(ctx context.Context, conn *websocket.Conn, s *session.Store, ev *session.Event) error {
	view, err := sh.h.view(ctx, s)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(StreamMessage{Event: ev, Session: view})
}
