package camera

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"emolens/internal/detection"
	"emolens/internal/logger"
)

// ErrCameraUnavailable is returned when the capture source cannot be opened
var ErrCameraUnavailable = errors.New("camera unavailable")

// StatusSetter receives webcam-error when the camera cannot be used
type StatusSetter interface {
	SetStatus(status detection.Status)
}

// SourceFactory builds a source for a configuration
type SourceFactory func(cfg SourceConfig) Source

// Session owns the capture source. Only the session starts or stops it;
// everyone else reads frames through Latest.
type Session struct {
	cfg     SourceConfig
	factory SourceFactory
	status  StatusSetter
	log     *logrus.Entry

	mu         sync.RWMutex
	running    bool
	generation uint64
	source     Source
	latest     *Frame
	onLost     func(err error)
}

// NewSession creates a capture session. A nil factory uses NewSource.
func NewSession(cfg SourceConfig, factory SourceFactory, status StatusSetter, log logrus.FieldLogger) *Session {
	if factory == nil {
		factory = NewSource
	}
	return &Session{
		cfg:     cfg,
		factory: factory,
		status:  status,
		log:     logger.Component(log, "Camera"),
	}
}

// OnLost registers a callback fired when a bound source dies on its own
func (s *Session) OnLost(fn func(err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLost = fn
}

// Start opens the source. Calling Start while running is a no-op.
// On failure the status becomes webcam-error and nothing stays bound.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	src := s.factory(s.cfg)
	if err := src.Start(func(frame *Frame) { s.bind(gen, frame) }); err != nil {
		return s.fail(gen, err)
	}

	s.mu.Lock()
	if s.generation != gen {
		// stopped while opening: drop the new source
		s.mu.Unlock()
		src.Stop()
		s.log.Info("Start superseded by stop, source released")
		return nil
	}
	s.source = src
	s.mu.Unlock()

	go s.watch(gen, src)

	s.log.WithField("device", s.cfg.Device).Infof("Capture started (%dx%d @ %d fps requested)", s.cfg.Width, s.cfg.Height, s.cfg.FPS)
	return nil
}

// Stop halts the bound source and detaches the sink. Safe with nothing bound.
func (s *Session) Stop() {
	s.mu.Lock()
	s.generation++
	wasRunning := s.running
	s.running = false
	src := s.source
	s.source = nil
	s.latest = nil
	s.mu.Unlock()

	if src != nil {
		src.Stop()
	}
	if wasRunning {
		s.log.Info("Capture stopped")
	}
}

// IsRunning reports the running flag
func (s *Session) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Latest returns the most recent frame, nil before the first frame
func (s *Session) Latest() *Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Session) bind(gen uint64, frame *Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen || !s.running {
		return
	}
	s.latest = frame
}

func (s *Session) fail(gen uint64, err error) error {
	s.mu.Lock()
	current := s.generation == gen
	if current {
		s.running = false
	}
	s.mu.Unlock()

	s.log.WithError(err).Error("Error accessing camera")
	if current && s.status != nil {
		s.status.SetStatus(detection.StatusWebcamError)
	}
	return fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
}

// watch releases the session when the source ends without being stopped
func (s *Session) watch(gen uint64, src Source) {
	<-src.Done()
	err := src.Err()
	if err == nil {
		return
	}

	s.mu.Lock()
	if s.generation != gen || s.source != src {
		s.mu.Unlock()
		return
	}
	s.generation++
	s.running = false
	s.source = nil
	s.latest = nil
	onLost := s.onLost
	s.mu.Unlock()

	s.log.WithError(err).Error("Capture source lost")
	if s.status != nil {
		s.status.SetStatus(detection.StatusWebcamError)
	}
	if onLost != nil {
		onLost(err)
	}
}
