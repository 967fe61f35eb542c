package pipeline

import (
	"time"

	"emolens/internal/detection"
	"emolens/internal/emotion"
	"emolens/internal/stats"
)

// Box is an axis-aligned rectangle in display-space pixels
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the x coordinate of the right edge
func (b Box) Right() float64 { return b.X + b.Width }

// DetectionResult is one annotated face, boxed in the pixel space of the
// surface it was rendered on
type DetectionResult struct {
	Emotion    string  `json:"emotion"`
	Box        Box     `json:"box"`
	Confidence float64 `json:"confidence"`
}

// EmotionLabel implements stats.Sample
func (d DetectionResult) EmotionLabel() string { return d.Emotion }

// ConfidenceScore implements stats.Sample
func (d DetectionResult) ConfidenceScore() float64 { return d.Confidence }

// Bounds implements render.Overlay
func (d DetectionResult) Bounds() (x, y, w, h float64) {
	return d.Box.X, d.Box.Y, d.Box.Width, d.Box.Height
}

// TickResult is published after every completed tick
type TickResult struct {
	SessionID   string             `json:"session_id"`
	Seq         uint64             `json:"seq"`       // Tick sequence, increasing across runs
	FrameSeq    uint64             `json:"frame_seq"` // Camera frame the tick sampled
	Timestamp   time.Time          `json:"timestamp"`
	Width       int                `json:"width"`
	Height      int                `json:"height"`
	Detections  []DetectionResult  `json:"detections"`
	FacesCount  int                `json:"faces_count"`
	Stats       stats.SessionStats `json:"stats"`
	InferenceMs float64            `json:"inference_ms"`
	Error       string             `json:"error,omitempty"` // Set when inference failed
	ImageData   []byte             `json:"-"`               // Rendered surface as JPEG
}

// Failed reports whether the tick's inference failed
func (t *TickResult) Failed() bool { return t.Error != "" }

// Snapshot is a consistent copy of the session context
type Snapshot struct {
	SessionID        string               `json:"session_id"`
	Running          bool                 `json:"running"`
	Status           detection.Status     `json:"status"`
	Detections       []DetectionResult    `json:"detections"`
	Stats            stats.SessionStats   `json:"stats"`
	Counts           map[string]int       `json:"counts"`
	CountsSorted     []stats.LabelCount   `json:"counts_sorted"`
	FinalizedEmotion string               `json:"finalized_emotion,omitempty"`
	Suggestions      []emotion.Suggestion `json:"suggestions"`
	Ticks            uint64               `json:"ticks"`
	StartedAt        *time.Time           `json:"started_at,omitempty"`
}

// EventKind identifies what an Event carries
type EventKind string

const (
	// EventTick carries a completed tick
	EventTick EventKind = "tick"
	// EventSession carries a session snapshot after a control action
	EventSession EventKind = "session"
)

// Event is delivered to bus subscribers
type Event struct {
	Kind    EventKind
	Tick    *TickResult
	Session *Snapshot
	Action  string // start, stop, reset, finalize, lost
}
