// Package ws serves the realtime channel: conversation events in both
// directions plus composting-progress broadcasts from the REST layer.
package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Envelope is the wire frame for every server->client event.
type Envelope struct {
	Type    string `json:"type"`
	Content any    `json:"content"`
}

// Conn wraps a websocket connection with a write lock; gorilla permits only
// one concurrent writer.
type Conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

func (c *Conn) Send(event string, content any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(Envelope{Type: event, Content: content})
}

// Hub tracks which connections joined which conversation session, standing
// in for socket.io style rooms.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[string]map[*Conn]struct{})}
}

func (h *Hub) Join(sessionID string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.sessions[sessionID]
	if !ok {
		conns = make(map[*Conn]struct{})
		h.sessions[sessionID] = conns
	}
	conns[c] = struct{}{}
}

// Leave removes the connection from every session it joined.
func (h *Hub) Leave(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conns := range h.sessions {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.sessions, id)
		}
	}
}

// Broadcast sends the event to every connection in the session.
func (h *Hub) Broadcast(sessionID, event string, content any) {
	for _, c := range h.members(sessionID) {
		_ = c.Send(event, content)
	}
}

// BroadcastExcept sends the event to every connection in the session other
// than skip. Used for typing indicators.
func (h *Hub) BroadcastExcept(sessionID string, skip *Conn, event string, content any) {
	for _, c := range h.members(sessionID) {
		if c == skip {
			continue
		}
		_ = c.Send(event, content)
	}
}

func (h *Hub) members(sessionID string) []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := make([]*Conn, 0, len(h.sessions[sessionID]))
	for c := range h.sessions[sessionID] {
		conns = append(conns, c)
	}
	return conns
}
