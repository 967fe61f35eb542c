package detection

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"emolens/internal/logger"
)

// Status is the connection state of the inference service as seen by the UI
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusModelError   Status = "model-error"
	StatusDisconnected Status = "disconnected"
	StatusWebcamError  Status = "webcam-error"
)

// AllStatuses lists every status value
func AllStatuses() []Status {
	return []Status{StatusConnecting, StatusConnected, StatusModelError, StatusDisconnected, StatusWebcamError}
}

// Prober performs a single availability probe of the inference service
type Prober interface {
	Probe(ctx context.Context) Status
}

// StatusListener is notified on every status change
type StatusListener func(previous, current Status)

// HTTPProber probes GET /api/health
type HTTPProber struct {
	client *Client
}

// NewHTTPProber wraps an inference client as a prober
func NewHTTPProber(client *Client) *HTTPProber {
	return &HTTPProber{client: client}
}

// Probe maps the health response to a status
func (p *HTTPProber) Probe(ctx context.Context) Status {
	health, err := p.client.CheckHealth(ctx)
	if err != nil {
		return StatusDisconnected
	}
	if health.ModelLoaded {
		return StatusConnected
	}
	return StatusModelError
}

// HealthMonitor periodically probes the inference service and owns the
// connection status. It never waits on the detection loop.
type HealthMonitor struct {
	prober   Prober
	interval time.Duration
	log      *logrus.Entry

	mu        sync.RWMutex
	status    Status
	lastProbe time.Time
	listeners []StatusListener
}

// NewHealthMonitor creates a monitor starting in the connecting state
func NewHealthMonitor(prober Prober, interval time.Duration, log logrus.FieldLogger) *HealthMonitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &HealthMonitor{
		prober:   prober,
		interval: interval,
		status:   StatusConnecting,
		log:      logger.Component(log, "HealthMonitor"),
	}
}

// OnChange registers a listener called synchronously on status changes
func (m *HealthMonitor) OnChange(listener StatusListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, listener)
}

// Status returns the current connection status
func (m *HealthMonitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// LastProbe returns when the last probe result was applied
func (m *HealthMonitor) LastProbe() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastProbe
}

// SetStatus overrides the status; used by the capture session for webcam-error.
// The next probe overwrites it again.
func (m *HealthMonitor) SetStatus(status Status) {
	m.mu.Lock()
	previous := m.status
	m.status = status
	listeners := append([]StatusListener(nil), m.listeners...)
	m.mu.Unlock()

	if previous == status {
		return
	}
	m.log.Infof("Status %s -> %s", previous, status)
	for _, l := range listeners {
		l(previous, status)
	}
}

// Run probes immediately, then every interval until ctx is cancelled.
// A probe resolving after cancellation is dropped.
func (m *HealthMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.log.Infof("Started (interval: %s)", m.interval)
	m.probeOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			m.log.Info("Stopped")
			return
		case <-ticker.C:
			m.probeOnce(ctx)
		}
	}
}

func (m *HealthMonitor) probeOnce(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.interval)
	status := m.prober.Probe(probeCtx)
	cancel()

	if ctx.Err() != nil {
		return
	}

	m.mu.Lock()
	m.lastProbe = time.Now()
	m.mu.Unlock()

	m.SetStatus(status)
}
