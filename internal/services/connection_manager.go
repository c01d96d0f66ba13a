package services

import (
	"log"
	"sync"

	"listai/internal/models"
)

// ConnectionManager tracks open goal chat WebSockets
type ConnectionManager struct {
	connections map[string]*models.ChatConnection
	mutex       sync.RWMutex
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*models.ChatConnection),
	}
}

// Add registers a connection
func (cm *ConnectionManager) Add(conn *models.ChatConnection) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.connections[conn.ConnID] = conn
	GetMetrics().RecordWebSocketConnect()
	log.Printf("✅ [WS] Connection added: %s goal=%s (Total: %d)", conn.ConnID, conn.GoalID, len(cm.connections))
}

// Remove unregisters a connection and marks it closed
func (cm *ConnectionManager) Remove(connID string) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	if conn, exists := cm.connections[connID]; exists {
		conn.MarkClosed()
		delete(cm.connections, connID)
		GetMetrics().RecordWebSocketDisconnect()
		log.Printf("❌ [WS] Connection removed: %s (Total: %d)", connID, len(cm.connections))
	}
}

// Count returns the number of open connections
func (cm *ConnectionManager) Count() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.connections)
}

// CountForGoal returns the number of open connections on one goal
func (cm *ConnectionManager) CountForGoal(goalID string) int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	n := 0
	for _, conn := range cm.connections {
		if conn.GoalID == goalID {
			n++
		}
	}
	return n
}
