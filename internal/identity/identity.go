// Package identity provides anonymous per-device identity primitives.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/krishimitra/advisor/internal/domain"
	"github.com/krishimitra/advisor/internal/local"
	"github.com/krishimitra/advisor/internal/store"
)

const (
	AnonCookieName        = "krishi_anon_id"
	SessionHeaderName     = "X-Krishi-Session-ID"
	DefaultSessionIDValue = "default"
	anonCookieMaxAge      = 30 * 24 * time.Hour
)

type contextKey int

const (
	userIDKey contextKey = iota
	usernameKey
	sessionIDKey
	languageKey
)

var (
	anonIDPattern    = regexp.MustCompile(`^anon_[a-f0-9]{32}$`)
	sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)
)

// UserStore is the part of store.Repository identity needs.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	UpsertUser(ctx context.Context, user *domain.User) error
}

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// UsernameFromContext extracts the username from the request context.
func UsernameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(usernameKey).(string); ok {
		return v
	}
	return ""
}

// SessionIDFromContext extracts the tab session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return DefaultSessionIDValue
}

// LanguageFromContext returns the reply language negotiated for the request.
func LanguageFromContext(ctx context.Context) local.Language {
	if v, ok := ctx.Value(languageKey).(local.Language); ok {
		return v
	}
	return local.Bilingual
}

// WithIdentity returns ctx carrying the given identity. Handlers read it
// back with the *FromContext helpers.
func WithIdentity(ctx context.Context, userID, sessionID string, lang local.Language) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, usernameKey, deriveUsername(userID))
	ctx = context.WithValue(ctx, sessionIDKey, sanitizeSessionID(sessionID))
	return context.WithValue(ctx, languageKey, lang)
}

func generateAnonID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate anonymous id: %w", err)
	}
	return "anon_" + hex.EncodeToString(buf), nil
}

func isValidAnonID(id string) bool {
	return anonIDPattern.MatchString(id)
}

func sanitizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !sessionIDPattern.MatchString(id) {
		return DefaultSessionIDValue
	}
	return id
}

func deriveUsername(userID string) string {
	if len(userID) > 13 {
		return "kisan-" + userID[len(userID)-8:]
	}
	return "kisan"
}

// ensureUser loads or creates the user and records the requested
// language. It returns the language stored for the user.
func ensureUser(ctx context.Context, repo UserStore, userID string, requested local.Language, explicit bool) (local.Language, error) {
	now := time.Now()
	user, err := repo.GetUser(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		user = &domain.User{
			UserID:    userID,
			Username:  deriveUsername(userID),
			Language:  string(requested),
			CreatedAt: now,
		}
	case err != nil:
		return "", err
	case explicit && user.Language != string(requested):
		user.Language = string(requested)
	default:
		return local.Language(user.Language), nil
	}

	user.LastSeenAt = now
	user.UpdatedAt = now
	if err := repo.UpsertUser(ctx, user); err != nil {
		return "", err
	}
	return requested, nil
}

func setAnonCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AnonCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(anonCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(anonCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

func getOrCreateAnonID(w http.ResponseWriter, r *http.Request, isDev bool) (string, error) {
	if c, err := r.Cookie(AnonCookieName); err == nil && isValidAnonID(c.Value) {
		setAnonCookie(w, c.Value, isDev)
		return c.Value, nil
	}

	id, err := generateAnonID()
	if err != nil {
		return "", err
	}
	setAnonCookie(w, id, isDev)
	return id, nil
}

func sessionIDFromRequest(r *http.Request) string {
	sid := r.Header.Get(SessionHeaderName)
	if sid == "" {
		sid = r.URL.Query().Get("session_id")
	}
	return sanitizeSessionID(sid)
}

// languageFromRequest reads ?lang= first, then Accept-Language. explicit
// is true only for ?lang=, which is remembered for the user.
func languageFromRequest(r *http.Request, fallback local.Language) (lang local.Language, explicit bool) {
	if q := r.URL.Query().Get("lang"); q != "" {
		return local.ParseLanguage(q), true
	}
	if h := r.Header.Get("Accept-Language"); h != "" {
		return local.ParseLanguage(h), false
	}
	return fallback, false
}

// Middleware injects anonymous per-device identity, the per-tab session ID
// and the reply language.
func Middleware(repo UserStore, isDev bool, defaultLang local.Language) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := getOrCreateAnonID(w, r, isDev)
			if err != nil {
				http.Error(w, `{"error":"failed to establish anonymous identity"}`, http.StatusInternalServerError)
				return
			}

			requested, explicit := languageFromRequest(r, defaultLang)
			stored, err := ensureUser(r.Context(), repo, userID, requested, explicit)
			if err != nil {
				slog.Error("Failed to initialize anonymous user", "user_id", userID, "error", err)
				http.Error(w, `{"error":"failed to initialize anonymous user"}`, http.StatusInternalServerError)
				return
			}

			lang := requested
			if !explicit && r.Header.Get("Accept-Language") == "" && stored != "" {
				lang = stored
			}

			ctx := WithIdentity(r.Context(), userID, sessionIDFromRequest(r), lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IPFromRequest returns a normalized remote IP for optional request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
