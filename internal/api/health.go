package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/krishimitra/advisor/internal/chat"
	"github.com/krishimitra/advisor/internal/identity"
	"github.com/krishimitra/advisor/internal/store"
)

// GetMe returns the current user's information.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := identity.UserIDFromContext(ctx)
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.repo.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		Error(w, http.StatusUnauthorized, "user not found")
		return
	}
	if err != nil {
		slog.Error("Failed to load user", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"user_id":    user.UserID,
		"username":   user.Username,
		"language":   string(identity.LanguageFromContext(ctx)),
		"session_id": identity.SessionIDFromContext(ctx),
		"created_at": user.CreatedAt,
	})
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	repo    store.Repository
	chats   *chat.Manager
	conns   *ConnRegistry
	timeout time.Duration
}

// NewHealthHandler creates a new health handler. chats and conns may be nil.
func NewHealthHandler(repo store.Repository, chats *chat.Manager, conns *ConnRegistry) *HealthHandler {
	return &HealthHandler{repo: repo, chats: chats, conns: conns, timeout: 5 * time.Second}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status": "healthy",
		"checks": checks,
	}
	statusCode := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		checks["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if h.chats != nil {
		status["chat_sessions"] = h.chats.Count()
	}
	if h.conns != nil {
		status["chat_sockets"] = h.conns.Count()
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
