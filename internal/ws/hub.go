package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Hub holds the active WebSocket connections keyed by connection ID and
// provides fan-out primitives. Writes to a single connection are serialized
// with a per-connection lock; gorilla/websocket allows only one concurrent
// writer.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*connection
}

type connection struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *connection) send(payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(payload)
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]*connection),
	}
}

// Register adds a connection under the given ID.
func (h *Hub) Register(connID string, ws *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[connID] = &connection{ws: ws}
}

// Unregister removes a connection. Safe to call twice.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, connID)
}

// Broadcast sends the payload to every connection.
func (h *Hub) Broadcast(payload any) {
	h.fanOut(payload, "")
}

// BroadcastExcept sends the payload to every connection but one; used for
// typing indicators, which the sender does not need echoed back.
func (h *Hub) BroadcastExcept(exceptID string, payload any) {
	h.fanOut(payload, exceptID)
}

// SendTo writes the payload to a single connection. It reports whether the
// connection was present.
func (h *Hub) SendTo(connID string, payload any) bool {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	if err := c.send(payload); err != nil {
		c.ws.Close()
		// removal happens when the connection's read loop exits
	}
	return true
}

func (h *Hub) fanOut(payload any, exceptID string) {
	h.mu.RLock()
	targets := make([]*connection, 0, len(h.conns))
	for id, c := range h.conns {
		if id == exceptID {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.send(payload); err != nil {
			c.ws.Close()
			// best-effort cleanup; the read loop unregisters on exit
		}
	}
}
