package ws

import (
	"time"

	"emolens/internal/detection"
	"emolens/internal/pipeline"
	"emolens/internal/stats"
)

// Message types sent on /ws/session
const (
	TypeStatus  = "status"
	TypeTick    = "tick"
	TypeSession = "session"
)

// StatusMessage reports an inference service status change
type StatusMessage struct {
	Type      string           `json:"type"` // "status"
	Status    detection.Status `json:"status"`
	Previous  detection.Status `json:"previous,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// TickMessage carries one completed detection tick
type TickMessage struct {
	Type        string                     `json:"type"` // "tick"
	SessionID   string                     `json:"session_id"`
	Seq         uint64                     `json:"seq"`
	Timestamp   time.Time                  `json:"timestamp"`
	FrameWidth  int                        `json:"frame_width"`
	FrameHeight int                        `json:"frame_height"`
	FacesCount  int                        `json:"faces_count"`
	Detections  []pipeline.DetectionResult `json:"detections"`
	Stats       stats.SessionStats         `json:"stats"`
	InferenceMs float64                    `json:"inference_ms"`
	Error       string                     `json:"error,omitempty"`
}

// SessionMessage carries the session snapshot after a control action
type SessionMessage struct {
	Type      string             `json:"type"` // "session"
	Action    string             `json:"action,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Session   *pipeline.Snapshot `json:"session"`
}

// NewStatusMessage creates a status message
func NewStatusMessage(previous, current detection.Status) *StatusMessage {
	return &StatusMessage{
		Type:      TypeStatus,
		Status:    current,
		Previous:  previous,
		Timestamp: time.Now(),
	}
}

// NewTickMessage converts a tick into its wire form. Rendered frame bytes are
// not included; they go out on the video endpoints.
func NewTickMessage(t *pipeline.TickResult) *TickMessage {
	detections := t.Detections
	if detections == nil {
		detections = []pipeline.DetectionResult{}
	}
	return &TickMessage{
		Type:        TypeTick,
		SessionID:   t.SessionID,
		Seq:         t.Seq,
		Timestamp:   t.Timestamp,
		FrameWidth:  t.Width,
		FrameHeight: t.Height,
		FacesCount:  t.FacesCount,
		Detections:  detections,
		Stats:       t.Stats,
		InferenceMs: t.InferenceMs,
		Error:       t.Error,
	}
}

// NewSessionMessage creates a session message
func NewSessionMessage(action string, snap *pipeline.Snapshot) *SessionMessage {
	return &SessionMessage{
		Type:      TypeSession,
		Action:    action,
		Timestamp: time.Now(),
		Session:   snap,
	}
}
