package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Hub tracks dashboard subscriber connections and fans accepted readings
// out to them.
type Hub struct {
	mu    sync.RWMutex
	conns map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]struct{})}
}

// Register adds a subscriber connection.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

// Unregister removes and closes a subscriber connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; ok {
		_ = conn.Close()
		delete(h.conns, conn)
	}
}

// Broadcast sends payload to every subscriber. Connections that fail to
// write are dropped.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.Unregister(c)
		}
	}
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
