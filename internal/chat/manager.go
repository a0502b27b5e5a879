// Package chat provides the WebSocket chat transport for the assessment flow.
package chat

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// ConnManager tracks active WebSocket connections per user. A user may have
// several open tabs, each with its own connection ID.
type ConnManager struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewConnManager creates a new connection manager.
func NewConnManager() *ConnManager {
	return &ConnManager{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// GetActive returns the active connection for a user and connection ID.
func (m *ConnManager) GetActive(userID, connID string) *websocket.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if conns, ok := m.active[userID]; ok {
		return conns[connID]
	}
	return nil
}

// Register adds a new WebSocket connection for a user.
func (m *ConnManager) Register(userID, connID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[userID]; !exists {
		m.active[userID] = make(map[string]*websocket.Conn)
	}

	if existing, exists := m.active[userID][connID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "connection replaced")
	}

	m.active[userID][connID] = conn
	slog.Info("Chat connection registered", "user_id", userID, "conn_id", connID)
}

// Unregister removes a WebSocket connection for a user.
func (m *ConnManager) Unregister(userID, connID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conns, ok := m.active[userID]; ok {
		if current, exists := conns[connID]; exists && current == conn {
			delete(conns, connID)
			if len(conns) == 0 {
				delete(m.active, userID)
			}
			slog.Info("Chat connection unregistered", "user_id", userID, "conn_id", connID)
		}
	}
}

// CloseUser forcefully closes all active connections for a user.
func (m *ConnManager) CloseUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conns, ok := m.active[userID]
	if !ok {
		return
	}

	for cid, conn := range conns {
		_ = conn.Close(websocket.StatusNormalClosure, "session closed")
		slog.Info("Chat connection closed", "user_id", userID, "conn_id", cid)
	}
	delete(m.active, userID)
}
