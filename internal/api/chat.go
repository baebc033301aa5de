package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/krishimitra/advisor/internal/chat"
	"github.com/krishimitra/advisor/internal/chatlog"
	"github.com/krishimitra/advisor/internal/domain"
	"github.com/krishimitra/advisor/internal/identity"
	"github.com/krishimitra/advisor/internal/responder"
)

// RegisterRoutes registers the advisor API routes. They expect the
// identity middleware to have run.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.GetMe)

		r.Get("/chat", h.GetChat)
		r.Delete("/chat", h.DeleteChat)
		r.Post("/chat/messages", h.PostMessage)

		r.Post("/voice/commands", h.PostVoiceCommand)

		r.Get("/support/tickets", h.ListTickets)
		r.Post("/support/tickets", h.CreateTicket)
	})
}

type chatView struct {
	SessionID   string                 `json:"session_id"`
	Language    string                 `json:"language"`
	Greeting    string                 `json:"greeting"`
	Suggestions []responder.Suggestion `json:"suggestions"`
	State       string                 `json:"state"`
	Pending     string                 `json:"pending,omitempty"`
	Messages    []domain.Message       `json:"messages"`
}

// GetChat returns the caller's session, creating it if needed.
func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := h.chats.Get(identity.UserIDFromContext(ctx), identity.SessionIDFromContext(ctx), identity.LanguageFromContext(ctx))

	JSON(w, http.StatusOK, chatView{
		SessionID:   identity.SessionIDFromContext(ctx),
		Language:    string(s.Language()),
		Greeting:    s.Greeting(),
		Suggestions: s.Suggestions(),
		State:       s.State().String(),
		Pending:     s.Pending(),
		Messages:    s.Transcript(),
	})
}

type messageRequest struct {
	Message string `json:"message"`
}

// PostMessage runs one chat turn and returns it.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := identity.UserIDFromContext(ctx)
	sessionID := identity.SessionIDFromContext(ctx)

	var req messageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !h.allow(ctx, userID) {
		Error(w, http.StatusTooManyRequests, "rate_limited")
		return
	}

	s := h.chats.Get(userID, sessionID, identity.LanguageFromContext(ctx))
	turn, err := s.Submit(ctx, req.Message)
	switch {
	case err == nil:
	case errors.Is(err, chat.ErrEmptyInput):
		w.WriteHeader(http.StatusNoContent)
		return
	case errors.Is(err, chat.ErrBusy):
		Error(w, http.StatusConflict, "awaiting_response")
		return
	case errors.Is(err, chat.ErrClosed):
		Error(w, http.StatusConflict, "session_closed")
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		slog.Debug("Chat request cancelled before reply", "user_id", userID, "session_id", sessionID)
		return
	default:
		slog.Error("Chat turn failed", "user_id", userID, "session_id", sessionID, "error", err)
		Error(w, http.StatusInternalServerError, "chat_failed")
		return
	}

	h.logTurn(userID, sessionID, "chat_http", s, turn)
	h.touch(userID)
	slog.Info("Chat turn completed", "user_id", userID, "session_id", sessionID, "category", string(turn.Category))
	JSON(w, http.StatusOK, turn)
}

// DeleteChat discards the caller's session and closes its socket.
func (h *Handler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := identity.UserIDFromContext(ctx)
	sessionID := identity.SessionIDFromContext(ctx)

	existed := h.chats.Close(userID, sessionID)
	h.conns.Close(userID, sessionID)

	if existed {
		h.convLog.Log(chatlog.ConversationLogEvent{
			UserID:    userID,
			SessionID: sessionID,
			Channel:   "chat_http",
			Direction: "internal",
			EventType: chatlog.EventSessionClosed,
			Content:   "session closed by client",
		})
	}

	JSON(w, http.StatusOK, map[string]interface{}{"status": "closed", "existed": existed})
}
