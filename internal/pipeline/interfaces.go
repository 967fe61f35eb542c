package pipeline

import (
	"context"

	"emolens/internal/camera"
	"emolens/internal/detection"
)

// Inferencer submits one encoded frame to the remote inference service
type Inferencer interface {
	// Detect returns the detections for a JPEG data URI. Any error is a
	// transient failure of the tick that submitted it.
	Detect(ctx context.Context, dataURI string) (*detection.DetectResponse, error)
}

// Capture is the capture session as seen by the controller.
// Implemented by camera.Session.
type Capture interface {
	Start() error
	Stop()
	IsRunning() bool
	Latest() *camera.Frame
}

// StatusReader exposes the connection status used to gate starts.
// Implemented by detection.HealthMonitor.
type StatusReader interface {
	Status() detection.Status
}

// EventHandler receives events from the bus
type EventHandler interface {
	// OnEvent is called synchronously, in publish order
	OnEvent(ev *Event)
}

// EventHandlerFunc adapts a function to EventHandler
type EventHandlerFunc func(ev *Event)

// OnEvent implements EventHandler
func (f EventHandlerFunc) OnEvent(ev *Event) { f(ev) }

// StreamProvider is implemented by streaming components that serve the
// rendered surface
type StreamProvider interface {
	// SetAnnotatedFrame provides a rendered frame. Implementations drop
	// frames with seq <= the last received seq.
	SetAnnotatedFrame(seq uint64, frameData []byte)

	// ClearFrame drops the current frame, e.g. when the session stops
	ClearFrame()
}
