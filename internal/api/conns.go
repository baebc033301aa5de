package api

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// ConnRegistry tracks the live chat WebSocket for each user tab. A new
// connection for the same tab replaces the old one.
type ConnRegistry struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewConnRegistry creates an empty registry.
func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// Register adds conn for userID/sessionID, closing any connection it replaces.
func (m *ConnRegistry) Register(userID, sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[userID]; !exists {
		m.active[userID] = make(map[string]*websocket.Conn)
	}

	if existing, exists := m.active[userID][sessionID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
	}

	m.active[userID][sessionID] = conn
	slog.Info("Chat socket registered", "user_id", userID, "session_id", sessionID)
}

// Unregister removes conn if it is still the registered connection.
func (m *ConnRegistry) Unregister(userID, sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessions, ok := m.active[userID]; ok {
		if current, exists := sessions[sessionID]; exists && current == conn {
			delete(sessions, sessionID)
			if len(sessions) == 0 {
				delete(m.active, userID)
			}
			slog.Info("Chat socket unregistered", "user_id", userID, "session_id", sessionID)
		}
	}
}

// Close terminates the socket for one tab, if any.
func (m *ConnRegistry) Close(userID, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, ok := m.active[userID]
	if !ok {
		return
	}
	if conn, exists := sessions[sessionID]; exists {
		_ = conn.Close(websocket.StatusNormalClosure, "session closed")
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(m.active, userID)
		}
	}
}

// CloseAll terminates every socket, used on shutdown.
func (m *ConnRegistry) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for userID, sessions := range m.active {
		for _, conn := range sessions {
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		}
		delete(m.active, userID)
	}
}

// Count returns the number of live sockets.
func (m *ConnRegistry) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, sessions := range m.active {
		n += len(sessions)
	}
	return n
}
