package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"emolens/internal/detection"
	"emolens/internal/logger"
	"emolens/internal/pipeline"
)

// client is one websocket connection with its own write lock
type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) write(message []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// SessionHub fans status, tick and session messages out to websocket clients.
// It subscribes to the pipeline bus and to health status changes.
type SessionHub struct {
	clients map[*websocket.Conn]*client
	mu      sync.RWMutex
	log     *logrus.Entry
}

// NewSessionHub creates an empty hub
func NewSessionHub(log logrus.FieldLogger) *SessionHub {
	return &SessionHub{
		clients: make(map[*websocket.Conn]*client),
		log:     logger.Component(log, "WS"),
	}
}

// register adds a connection
func (h *SessionHub) register(conn *websocket.Conn) *client {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := &client{conn: conn}
	h.clients[conn] = c
	h.log.Debugf("Client registered (total: %d)", len(h.clients))
	return c
}

// Unregister removes a connection
func (h *SessionHub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		h.log.Debugf("Client unregistered (total: %d)", len(h.clients))
	}
}

// HasClients returns true if any client is connected
func (h *SessionHub) HasClients() bool {
	return h.ClientCount() > 0
}

// ClientCount returns the number of connected clients
func (h *SessionHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a raw text message to every client. Clients that fail
// the write are dropped.
func (h *SessionHub) Broadcast(message []byte) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(message); err != nil {
			h.log.WithError(err).Debug("Error sending to client")
			h.Unregister(c.conn)
			c.conn.Close()
		}
	}
}

// BroadcastJSON marshals v and broadcasts it
func (h *SessionHub) BroadcastJSON(v interface{}) {
	if !h.HasClients() {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		h.log.WithError(err).Error("Error marshaling message")
		return
	}
	h.Broadcast(data)
}

// OnEvent forwards pipeline events
func (h *SessionHub) OnEvent(ev *pipeline.Event) {
	switch ev.Kind {
	case pipeline.EventTick:
		if ev.Tick != nil {
			h.BroadcastJSON(NewTickMessage(ev.Tick))
		}
	case pipeline.EventSession:
		h.BroadcastJSON(NewSessionMessage(ev.Action, ev.Session))
	}
}

// OnStatusChange forwards health status changes; matches detection.StatusListener
func (h *SessionHub) OnStatusChange(previous, current detection.Status) {
	h.BroadcastJSON(NewStatusMessage(previous, current))
}

// Close disconnects every client
func (h *SessionHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}
