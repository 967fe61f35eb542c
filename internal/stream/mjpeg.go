package stream

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"emolens/internal/logger"
)

// MJPEGStream serves the rendered preview surface as multipart MJPEG.
// Frames arrive already mirrored and annotated from the detection loop.
type MJPEGStream struct {
	log *logrus.Entry

	clients   map[chan []byte]bool
	clientsMu sync.RWMutex

	currentFrame []byte
	frameSeq     uint64 // Sequence of currentFrame
	frameMu      sync.RWMutex

	closed bool
}

// NewMJPEGStream creates an empty stream
func NewMJPEGStream(log logrus.FieldLogger) *MJPEGStream {
	return &MJPEGStream{
		log:     logger.Component(log, "MJPEGStream"),
		clients: make(map[chan []byte]bool),
	}
}

// SetAnnotatedFrame stores a rendered frame and broadcasts it to all clients.
// Frames with seq <= the last accepted seq are dropped.
func (s *MJPEGStream) SetAnnotatedFrame(seq uint64, frameData []byte) {
	if len(frameData) == 0 {
		return
	}

	s.frameMu.Lock()
	if seq <= s.frameSeq {
		s.frameMu.Unlock()
		return
	}
	s.frameSeq = seq
	s.currentFrame = frameData
	s.frameMu.Unlock()

	s.clientsMu.RLock()
	for ch := range s.clients {
		select {
		case ch <- frameData:
		default:
			// Client is slow, skip frame (don't block the detection loop)
		}
	}
	s.clientsMu.RUnlock()
}

// ClearFrame drops the current frame. Sequence tracking is kept so late
// frames from a stopped run stay dropped.
func (s *MJPEGStream) ClearFrame() {
	s.frameMu.Lock()
	s.currentFrame = nil
	s.frameMu.Unlock()
}

// CurrentFrame returns the latest rendered frame, nil if none
func (s *MJPEGStream) CurrentFrame() []byte {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	return s.currentFrame
}

// CurrentFrameSeq returns the sequence of the latest accepted frame
func (s *MJPEGStream) CurrentFrameSeq() uint64 {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	return s.frameSeq
}

// ClientCount returns the number of connected viewers
func (s *MJPEGStream) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Close disconnects every viewer
func (s *MJPEGStream) Close() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	s.closed = true
	for ch := range s.clients {
		close(ch)
		delete(s.clients, ch)
	}
}

// ServeHTTP serves the MJPEG stream to a client
func (s *MJPEGStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Create client channel
	clientCh := make(chan []byte, 5)
	s.clientsMu.Lock()
	if s.closed {
		s.clientsMu.Unlock()
		http.Error(w, "Stream closed", http.StatusServiceUnavailable)
		return
	}
	s.clients[clientCh] = true
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, clientCh)
		s.clientsMu.Unlock()
	}()

	// Set MJPEG headers
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.log.WithField("remote", r.RemoteAddr).Debug("Client connected")

	// Start with the current frame so new viewers don't wait for the next tick
	if frame := s.CurrentFrame(); frame != nil {
		writePart(w, frame)
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			s.log.WithField("remote", r.RemoteAddr).Debug("Client disconnected")
			return
		case frame, ok := <-clientCh:
			if !ok {
				return
			}
			writePart(w, frame)
			flusher.Flush()
		}
	}
}

func writePart(w http.ResponseWriter, frame []byte) {
	fmt.Fprintf(w, "--frame\r\n")
	fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
	fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(frame))
	w.Write(frame)
	fmt.Fprintf(w, "\r\n")
}

// SnapshotHandler serves the latest rendered frame as a single JPEG
type SnapshotHandler struct {
	stream *MJPEGStream
}

// NewSnapshotHandler creates a new snapshot handler
func NewSnapshotHandler(stream *MJPEGStream) *SnapshotHandler {
	return &SnapshotHandler{stream: stream}
}

// ServeHTTP serves a single JPEG snapshot
func (h *SnapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	frame := h.stream.CurrentFrame()
	if frame == nil {
		http.Error(w, "No frame available", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(frame)))
	w.Write(frame)
}
