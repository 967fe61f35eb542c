package stream

import (
	"encoding/binary"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"emolens/internal/logger"
)

// Binary message types sent by FrameSocket
const (
	// MessageFrame carries a rendered JPEG frame
	MessageFrame byte = 1
	// MessageClear tells the client to blank its preview
	MessageClear byte = 2
)

// headerSize is 1 byte type + 8 bytes sequence + 4 bytes length
const headerSize = 13

var frameUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 256 * 1024, // 256KB for video frames
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

type frameClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex // Protects concurrent writes to this connection
}

// FrameSocket pushes rendered frames to websocket clients as binary messages.
// Message layout: type byte, big-endian uint64 sequence, big-endian uint32
// length, JPEG bytes.
type FrameSocket struct {
	log *logrus.Entry

	clients   map[*websocket.Conn]*frameClient
	clientsMu sync.RWMutex

	lastSeq   uint64
	lastSeqMu sync.Mutex

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewFrameSocket creates a frame socket with no clients
func NewFrameSocket(log logrus.FieldLogger) *FrameSocket {
	return &FrameSocket{
		log:     logger.Component(log, "FrameSocket"),
		clients: make(map[*websocket.Conn]*frameClient),
		stopCh:  make(chan struct{}),
	}
}

// EncodeMessage builds a binary frame message
func EncodeMessage(kind byte, seq uint64, frameData []byte) []byte {
	msg := make([]byte, headerSize+len(frameData))
	msg[0] = kind
	binary.BigEndian.PutUint64(msg[1:9], seq)
	binary.BigEndian.PutUint32(msg[9:13], uint32(len(frameData)))
	copy(msg[headerSize:], frameData)
	return msg
}

// SetAnnotatedFrame broadcasts a rendered frame. Out-of-order frames are dropped.
func (s *FrameSocket) SetAnnotatedFrame(seq uint64, frameData []byte) {
	if len(frameData) == 0 {
		return
	}

	s.lastSeqMu.Lock()
	if seq <= s.lastSeq {
		s.lastSeqMu.Unlock()
		return
	}
	s.lastSeq = seq
	s.lastSeqMu.Unlock()

	s.broadcast(EncodeMessage(MessageFrame, seq, frameData))
}

// ClearFrame tells clients the preview was cleared
func (s *FrameSocket) ClearFrame() {
	s.lastSeqMu.Lock()
	seq := s.lastSeq
	s.lastSeqMu.Unlock()

	s.broadcast(EncodeMessage(MessageClear, seq, nil))
}

func (s *FrameSocket) broadcast(msg []byte) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, client := range s.clients {
		// Use per-client mutex to prevent concurrent writes
		client.writeMu.Lock()
		client.conn.SetWriteDeadline(time.Now().Add(100 * time.Millisecond))
		err := client.conn.WriteMessage(websocket.BinaryMessage, msg)
		client.writeMu.Unlock()
		if err != nil {
			// Will be cleaned up by read pump
			s.log.WithError(err).Debug("Write error to client")
		}
	}
}

// ClientCount returns the number of connected clients
func (s *FrameSocket) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Close disconnects every client
func (s *FrameSocket) Close() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for conn := range s.clients {
		conn.Close()
		delete(s.clients, conn)
	}
}

// ServeHTTP upgrades the connection and streams frames until the client leaves
func (s *FrameSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := frameUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("Upgrade error")
		return
	}

	client := &frameClient{conn: conn}

	s.clientsMu.Lock()
	s.clients[conn] = client
	clientCount := len(s.clients)
	s.clientsMu.Unlock()

	s.log.WithFields(logger.Fields{"remote": r.RemoteAddr, "clients": clientCount}).Info("Client connected")

	s.readPump(client)
}

// readPump reads from the socket to detect disconnection
func (s *FrameSocket) readPump(client *frameClient) {
	conn := client.conn
	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, conn)
		clientCount := len(s.clients)
		s.clientsMu.Unlock()
		conn.Close()
		s.log.WithField("clients", clientCount).Info("Client disconnected")
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Ping ticker to keep connection alive
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case <-s.stopCh:
				return
			case <-done:
				return
			case <-ticker.C:
				client.writeMu.Lock()
				client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				err := client.conn.WriteMessage(websocket.PingMessage, nil)
				client.writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
