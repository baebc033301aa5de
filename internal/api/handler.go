// Package api provides HTTP and WebSocket handlers for the advisor.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/krishimitra/advisor/internal/chat"
	"github.com/krishimitra/advisor/internal/chatlog"
	"github.com/krishimitra/advisor/internal/ratelimit"
	"github.com/krishimitra/advisor/internal/store"
	"github.com/krishimitra/advisor/internal/support"
)

const maxBodyBytes = 16 << 10

// Deps are the services shared by every handler.
type Deps struct {
	Repo            store.Repository
	Chats           *chat.Manager
	Support         *support.Service
	Limiter         ratelimit.Limiter
	ConversationLog chatlog.ConversationLogger
}

// Handler provides common handler utilities.
type Handler struct {
	repo    store.Repository
	chats   *chat.Manager
	support *support.Service
	limiter ratelimit.Limiter
	convLog chatlog.ConversationLogger
	conns   *ConnRegistry
}

// NewHandler creates a new Handler. A nil ConversationLog discards events.
func NewHandler(deps Deps, conns *ConnRegistry) *Handler {
	convLog := deps.ConversationLog
	if convLog == nil {
		convLog = chatlog.Noop()
	}
	if conns == nil {
		conns = NewConnRegistry()
	}
	return &Handler{
		repo:    deps.Repo,
		chats:   deps.Chats,
		support: deps.Support,
		limiter: deps.Limiter,
		convLog: convLog,
		conns:   conns,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}

// allow applies the per-user rate limit. Limiter failures let the
// request through.
func (h *Handler) allow(ctx context.Context, userID string) bool {
	if h.limiter == nil {
		return true
	}
	ok, err := h.limiter.Allow(ctx, userID)
	if err != nil {
		slog.Warn("Rate limiter unavailable, allowing request", "user_id", userID, "error", err)
		return true
	}
	if !ok {
		slog.Warn("Rate limit exceeded", "user_id", userID)
	}
	return ok
}

// touch updates last seen asynchronously with timeout.
func (h *Handler) touch(userID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.repo.UpdateLastSeen(ctx, userID, time.Now()); err != nil {
			slog.Warn("Failed to update last seen", "user_id", userID, "error", err)
		}
	}()
}

// logTurn writes both halves of a completed turn to the conversation log.
func (h *Handler) logTurn(userID, sessionID, channel string, s *chat.Session, turn chat.Turn) {
	lang := string(s.Language())
	h.convLog.Log(chatlog.ConversationLogEvent{
		Timestamp:  turn.User.CreatedAt,
		UserID:     userID,
		SessionID:  sessionID,
		Channel:    channel,
		Direction:  "inbound",
		EventType:  chatlog.EventUserMessage,
		Category:   string(turn.Category),
		Language:   lang,
		ContentRaw: turn.User.Text,
	})
	h.convLog.Log(chatlog.ConversationLogEvent{
		Timestamp:  turn.Reply.CreatedAt,
		UserID:     userID,
		SessionID:  sessionID,
		Channel:    channel,
		Direction:  "outbound",
		EventType:  chatlog.EventAssistantMessage,
		Category:   string(turn.Category),
		Language:   lang,
		ContentRaw: turn.Reply.Text,
	})
}
