package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/sourcegraph/conc"

	"github.com/krishimitra/advisor/internal/chat"
	"github.com/krishimitra/advisor/internal/identity"
	"github.com/krishimitra/advisor/internal/local"
	"github.com/krishimitra/advisor/internal/responder"
)

// Frame types exchanged on /ws/chat.
const (
	frameGreeting = "greeting"
	frameMessage  = "message"
	frameTyping   = "typing"
	frameBusy     = "busy"
	frameError    = "error"
	framePing     = "ping"
	framePong     = "pong"
)

// wsMessage is a client frame.
type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// wsFrame is a server frame.
type wsFrame struct {
	Type        string                 `json:"type"`
	Content     string                 `json:"content,omitempty"`
	Suggestions []responder.Suggestion `json:"suggestions,omitempty"`
	Turn        *chat.Turn             `json:"turn,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// chatConn is one live socket bound to a user tab.
type chatConn struct {
	ws        *websocket.Conn
	userID    string
	sessionID string
	lang      local.Language
	turns     conc.WaitGroup
	inFlight  atomic.Bool
}

// WebSocketHandler serves live chat sessions.
type WebSocketHandler struct {
	*Handler
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(base *Handler, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		Handler:       base,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	lang := identity.LanguageFromContext(r.Context())
	slog.Info("WebSocket connection request", "user_id", userID, "session_id", sessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	h.conns.Register(userID, sessionID, ws)
	defer h.conns.Unregister(userID, sessionID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s := h.chats.Get(userID, sessionID, lang)
	greeting := wsFrame{Type: frameGreeting, Content: s.Greeting(), Suggestions: s.Suggestions()}
	if err := h.writeJSON(ctx, ws, greeting); err != nil {
		slog.Debug("Failed to send greeting", "error", err, "user_id", userID)
		return
	}

	// Turns run beside the read loop so pings and busy replies keep
	// flowing while the assistant is thinking.
	c := &chatConn{ws: ws, userID: userID, sessionID: sessionID, lang: lang}
	h.readLoop(ctx, c)
	cancel()
	c.turns.Wait()
	slog.Info("Chat socket ended", "user_id", userID, "session_id", sessionID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "" || h.allowedOrigin == "*" {
		return true
	}
	if strings.TrimRight(origin, "/") == strings.TrimRight(h.allowedOrigin, "/") {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, c *chatConn) {
	ws, userID := c.ws, c.userID
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket closed", "user_id", userID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.send(ctx, ws, wsFrame{Type: frameError, Error: "invalid_frame"})
			continue
		}

		switch msg.Type {
		case framePing:
			h.send(ctx, ws, wsFrame{Type: framePong})
		case frameMessage:
			if strings.TrimSpace(msg.Content) == "" {
				continue
			}
			// The session is fetched per turn: the sweeper may have
			// replaced it since the socket opened.
			s := h.chats.Get(userID, c.sessionID, c.lang)
			if s.State() == chat.StateAwaitingResponse || !c.inFlight.CompareAndSwap(false, true) {
				h.send(ctx, ws, wsFrame{Type: frameBusy})
				continue
			}
			if !h.allow(ctx, userID) {
				c.inFlight.Store(false)
				h.send(ctx, ws, wsFrame{Type: frameError, Error: "rate_limited"})
				continue
			}
			h.send(ctx, ws, wsFrame{Type: frameTyping})
			content := msg.Content
			c.turns.Go(func() { h.runTurn(ctx, c, s, content) })
		default:
			h.send(ctx, ws, wsFrame{Type: frameError, Error: "unknown_frame_type"})
		}
	}
}

func (h *WebSocketHandler) runTurn(ctx context.Context, c *chatConn, s *chat.Session, content string) {
	ws, userID, sessionID := c.ws, c.userID, c.sessionID
	turn, err := s.Submit(ctx, content)
	// Cleared before the reply is written so the client's next frame
	// is never answered with busy.
	c.inFlight.Store(false)
	switch {
	case err == nil:
		h.logTurn(userID, sessionID, "chat_ws", s, turn)
		h.touch(userID)
		h.send(ctx, ws, wsFrame{Type: frameMessage, Turn: &turn})
	case errors.Is(err, chat.ErrBusy):
		h.send(ctx, ws, wsFrame{Type: frameBusy})
	case errors.Is(err, chat.ErrEmptyInput):
	case errors.Is(err, chat.ErrClosed):
		h.send(ctx, ws, wsFrame{Type: frameError, Error: "session_closed"})
	case ctx.Err() != nil:
		slog.Debug("Chat turn abandoned, socket closed", "user_id", userID, "session_id", sessionID)
	default:
		slog.Error("Chat turn failed", "user_id", userID, "session_id", sessionID, "error", err)
		h.send(ctx, ws, wsFrame{Type: frameError, Error: "chat_failed"})
	}
}

func (h *WebSocketHandler) send(ctx context.Context, ws *websocket.Conn, frame wsFrame) {
	if err := h.writeJSON(ctx, ws, frame); err != nil && ctx.Err() == nil {
		slog.Debug("Failed to send frame", "type", frame.Type, "error", err)
	}
}

func (h *WebSocketHandler) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
