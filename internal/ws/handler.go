package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"emolens/internal/pipeline"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for development
		// In production, this should be more restrictive
		return true
	},
}

// SnapshotSource provides the session snapshot sent to new clients
type SnapshotSource interface {
	Snapshot() *pipeline.Snapshot
}

// Handler handles websocket connections on /ws/session
type Handler struct {
	hub      *SessionHub
	sessions SnapshotSource
}

// NewHandler creates a new websocket handler
func NewHandler(hub *SessionHub, sessions SnapshotSource) *Handler {
	return &Handler{hub: hub, sessions: sessions}
}

// ServeHTTP upgrades the request, sends the current status and session,
// then keeps the connection registered until the client leaves
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.log.WithError(err).Warn("Upgrade error")
		return
	}

	h.hub.log.WithField("remote", r.RemoteAddr).Info("New connection")

	c := h.hub.register(conn)

	if h.sessions != nil {
		snap := h.sessions.Snapshot()
		h.send(c, NewStatusMessage("", snap.Status))
		h.send(c, NewSessionMessage("", snap))
	}

	h.readPump(conn, c)
}

func (h *Handler) send(c *client, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.hub.log.WithError(err).Error("Error marshaling message")
		return
	}
	if err := c.write(data); err != nil {
		h.hub.log.WithError(err).Debug("Error sending initial state")
	}
}

// readPump reads messages from the websocket connection.
// This keeps the connection alive and handles client disconnection.
func (h *Handler) readPump(conn *websocket.Conn, c *client) {
	defer func() {
		h.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadLimit(512) // Small limit since client shouldn't send much
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.writeMu.Lock()
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				err := conn.WriteMessage(websocket.PingMessage, nil)
				c.writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	// Read loop - mainly to detect disconnection
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.hub.log.WithError(err).Debug("Read error")
			}
			break
		}
	}
}

// Ensure the hub satisfies the bus handler interface
var _ pipeline.EventHandler = (*SessionHub)(nil)
