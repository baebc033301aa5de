package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/krishimitra/advisor/internal/intent"
	"github.com/krishimitra/advisor/internal/local"
	"github.com/krishimitra/advisor/internal/responder"
)

// Manager owns the live sessions, one per user and browser tab.
type Manager struct {
	classifier *intent.Classifier
	selectors  map[local.Language]*responder.Selector
	opts       Options

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager validates pool once per language and returns an empty manager.
func NewManager(classifier *intent.Classifier, pool responder.Pool, opts Options) (*Manager, error) {
	opts = opts.withDefaults()
	selectors := make(map[local.Language]*responder.Selector)
	for _, lang := range []local.Language{local.Bilingual, local.English, local.Hindi} {
		sel, err := responder.New(pool, opts.Source, lang)
		if err != nil {
			return nil, fmt.Errorf("build %q selector: %w", lang, err)
		}
		selectors[lang] = sel
	}
	return &Manager{
		classifier: classifier,
		selectors:  selectors,
		opts:       opts,
		sessions:   make(map[string]*Session),
	}, nil
}

func sessionKey(userID, sessionID string) string {
	return userID + ":" + sessionID
}

// Get returns the session for userID/sessionID, creating it in language
// when it does not exist yet. An existing session keeps its language and
// counts as active, so Sweep does not close it right after Get.
func (m *Manager) Get(userID, sessionID string, language local.Language) *Session {
	key := sessionKey(userID, sessionID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[key]; ok {
		s.touch()
		return s
	}
	sel, ok := m.selectors[language]
	if !ok {
		sel = m.selectors[local.Bilingual]
	}
	s := NewSession(key, m.classifier, sel, m.opts)
	m.sessions[key] = s
	slog.Info("Chat session started", "user_id", userID, "session_id", sessionID, "language", string(sel.Language()))
	return s
}

// Lookup returns an existing session without creating one.
func (m *Manager) Lookup(userID, sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionKey(userID, sessionID)]
	return s, ok
}

// Close tears down one session. It reports whether a session existed.
func (m *Manager) Close(userID, sessionID string) bool {
	key := sessionKey(userID, sessionID)

	m.mu.Lock()
	s, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()

	if ok {
		s.Close()
		slog.Info("Chat session closed", "user_id", userID, "session_id", sessionID)
	}
	return ok
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes idle sessions whose last activity is older than ttl and
// returns how many were closed. Sessions with a pending turn are kept.
func (m *Manager) Sweep(ttl time.Duration) int {
	cutoff := m.opts.Now().Add(-ttl)

	m.mu.Lock()
	var expired []*Session
	for key, s := range m.sessions {
		if s.State() == StateIdle && s.LastActive().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, key)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	return len(expired)
}

// CloseAll tears down every session, used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

// StartSweeper runs Sweep every interval until ctx is done.
func (m *Manager) StartSweeper(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Chat session sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				if closed := m.Sweep(ttl); closed > 0 {
					slog.Info("Chat session sweeper closed idle sessions", "count", closed, "remaining", m.Count())
				}
			case <-ctx.Done():
				slog.Info("Chat session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
