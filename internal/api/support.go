package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/krishimitra/advisor/internal/chatlog"
	"github.com/krishimitra/advisor/internal/identity"
	"github.com/krishimitra/advisor/internal/support"
)

// CreateTicket files a support query and returns the resolved ticket.
func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := identity.UserIDFromContext(ctx)

	var req messageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !h.allow(ctx, userID) {
		Error(w, http.StatusTooManyRequests, "rate_limited")
		return
	}

	ticket, err := h.support.Submit(ctx, userID, req.Message)
	if errors.Is(err, support.ErrEmptyMessage) {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}
	if err != nil {
		slog.Error("Failed to create support ticket", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to create ticket")
		return
	}

	h.convLog.Log(chatlog.ConversationLogEvent{
		Timestamp: ticket.CreatedAt,
		UserID:    userID,
		SessionID: identity.SessionIDFromContext(ctx),
		Channel:   "support_http",
		Direction: "inbound",
		EventType: chatlog.EventSupportTicket,
		Category:  ticket.Category,
		Content:   ticket.Message,
	})

	JSON(w, http.StatusCreated, ticket)
}

// ListTickets returns the caller's tickets, newest first.
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := identity.UserIDFromContext(ctx)

	tickets, err := h.support.List(ctx, userID)
	if err != nil {
		slog.Error("Failed to list support tickets", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to list tickets")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"tickets": tickets})
}
