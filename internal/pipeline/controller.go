package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"emolens/internal/config"
	"emolens/internal/detection"
	"emolens/internal/emotion"
	"emolens/internal/logger"
	"emolens/internal/render"
	"emolens/internal/stats"
)

// ErrNotConnected is returned by Start unless the inference service is connected
var ErrNotConnected = errors.New("inference service not connected")

// Session actions carried on session events
const (
	ActionStart    = "start"
	ActionStop     = "stop"
	ActionReset    = "reset"
	ActionFinalize = "finalize"
	ActionLost     = "lost"
)

// FinalizeResult is the outcome of an explicit finalize
type FinalizeResult struct {
	Emotion     string               `json:"emotion,omitempty"` // empty when nothing was detected
	Suggestions []emotion.Suggestion `json:"suggestions"`
}

// Controller owns the session context: the live detection set, the session
// stats, the cumulative counts and the finalized emotion. It starts and stops
// the detection loop and the capture session together.
type Controller struct {
	capture    Capture
	inferencer Inferencer
	status     StatusReader
	bus        *EventBus
	renderer   *render.Renderer
	log        *logrus.Entry

	ctrlMu sync.Mutex // serializes Start/Stop

	mu          sync.RWMutex
	cfg         config.LoopConfig
	sessionID   string
	running     bool
	generation  uint64
	cancel      context.CancelFunc
	done        chan struct{}
	results     []DetectionResult
	stats       stats.SessionStats
	counts      *stats.Counts
	finalized   string
	suggestions []emotion.Suggestion
	ticks       uint64
	seq         uint64
	startedAt   time.Time
}

// NewController creates a controller. A nil bus gets a private one.
func NewController(capture Capture, inferencer Inferencer, status StatusReader, bus *EventBus, cfg config.LoopConfig, log logrus.FieldLogger) *Controller {
	if bus == nil {
		bus = NewEventBus()
	}
	return &Controller{
		capture:     capture,
		inferencer:  inferencer,
		status:      status,
		bus:         bus,
		renderer:    render.NewRenderer(),
		log:         logger.Component(log, "Pipeline"),
		cfg:         cfg,
		counts:      stats.NewCounts(),
		results:     []DetectionResult{},
		suggestions: []emotion.Suggestion{},
	}
}

// Bus returns the event bus ticks and session changes are published on
func (c *Controller) Bus() *EventBus {
	return c.bus
}

// LoopConfig returns the loop policy used by the next run
func (c *Controller) LoopConfig() config.LoopConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// SetLoopConfig replaces the loop policy. A running loop keeps its policy
// until the next start.
func (c *Controller) SetLoopConfig(cfg config.LoopConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
}

// IsRunning reports whether a detection run is active
func (c *Controller) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Start opens the camera and starts the detection loop. It is a no-op while
// running, fails with ErrNotConnected unless the service is connected, and
// fails with the camera error if capture cannot start.
func (c *Controller) Start() error {
	c.ctrlMu.Lock()
	defer c.ctrlMu.Unlock()

	if c.IsRunning() {
		return nil
	}
	if st := c.status.Status(); st != detection.StatusConnected {
		return fmt.Errorf("%w (status %s)", ErrNotConnected, st)
	}

	if err := c.capture.Start(); err != nil {
		c.log.WithError(err).Error("Failed to start capture")
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.running = true
	c.cancel = cancel
	c.done = done
	c.sessionID = uuid.NewString()
	c.finalized = ""
	c.suggestions = []emotion.Suggestion{}
	c.startedAt = time.Now()
	cfg := c.cfg
	sessionID := c.sessionID
	c.mu.Unlock()

	go c.run(ctx, gen, cfg, done)

	c.log.WithFields(logger.Fields{"session": sessionID}).Infof(
		"Detection started (tick %v, defer %v, inference %dx%d)",
		cfg.TickInterval, cfg.DeferDelay, cfg.InferenceSize, cfg.InferenceSize)
	c.publishSession(ActionStart)
	return nil
}

// Stop ends the run, releases the camera and clears the live set and stats.
// Counts are kept. Safe to call when not running.
func (c *Controller) Stop() {
	c.ctrlMu.Lock()
	defer c.ctrlMu.Unlock()

	wasRunning := c.halt()
	c.capture.Stop()

	if wasRunning {
		c.log.Info("Detection stopped")
	}
	c.publishSession(ActionStop)
}

// halt cancels the run and waits for the worker to exit
func (c *Controller) halt() bool {
	c.mu.Lock()
	wasRunning := c.running
	c.running = false
	c.generation++
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.results = []DetectionResult{}
	c.stats = stats.SessionStats{}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	return wasRunning
}

// HandleCaptureLost stops the run after the camera went away on its own
func (c *Controller) HandleCaptureLost(err error) {
	c.ctrlMu.Lock()
	defer c.ctrlMu.Unlock()

	if !c.halt() {
		return
	}
	c.log.WithError(err).Warn("Capture lost, detection stopped")
	c.publishSession(ActionLost)
}

// Reset clears counts, stats, the live set and any finalized emotion.
// A running loop keeps ticking.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.counts.Reset()
	c.stats = stats.SessionStats{}
	c.results = []DetectionResult{}
	c.finalized = ""
	c.suggestions = []emotion.Suggestion{}
	c.mu.Unlock()

	c.log.Info("Session statistics reset")
	c.publishSession(ActionReset)
}

// Finalize snapshots the dominant emotion and its suggestions.
// It does not affect the running loop.
func (c *Controller) Finalize() FinalizeResult {
	c.mu.Lock()
	label := chooseFinal(c.stats, c.counts, c.results)
	c.finalized = label
	c.suggestions = emotion.Suggestions(label)
	res := FinalizeResult{Emotion: label, Suggestions: append([]emotion.Suggestion(nil), c.suggestions...)}
	c.mu.Unlock()

	c.log.WithField("emotion", label).Info("Emotion finalized")
	c.publishSession(ActionFinalize)
	return res
}

// chooseFinal picks the dominant emotion of the latest stats, else the most
// recently folded label, else the first live detection
func chooseFinal(st stats.SessionStats, counts *stats.Counts, results []DetectionResult) string {
	if st.DominantEmotion != "" {
		return st.DominantEmotion
	}
	if last := counts.LastFolded(); last != "" {
		return last
	}
	if len(results) > 0 {
		return results[0].Emotion
	}
	return ""
}

// Snapshot returns a consistent copy of the session context
func (c *Controller) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() *Snapshot {
	snap := &Snapshot{
		SessionID:        c.sessionID,
		Running:          c.running,
		Status:           c.status.Status(),
		Detections:       append([]DetectionResult{}, c.results...),
		Stats:            c.stats,
		Counts:           c.counts.Map(),
		CountsSorted:     c.counts.Sorted(),
		FinalizedEmotion: c.finalized,
		Suggestions:      append([]emotion.Suggestion{}, c.suggestions...),
		Ticks:            c.ticks,
	}
	if c.running {
		started := c.startedAt
		snap.StartedAt = &started
	}
	return snap
}

// Counts returns a copy of the cumulative counts
func (c *Controller) Counts() *stats.Counts {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts.Clone()
}

func (c *Controller) publishSession(action string) {
	c.bus.Publish(&Event{Kind: EventSession, Session: c.Snapshot(), Action: action})
}

// apply replaces the live set and folds it, unless the run was superseded.
// Returns the stats after the update and false when the result was dropped.
func (c *Controller) apply(gen uint64, results []DetectionResult) (stats.SessionStats, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.generation != gen {
		return stats.SessionStats{}, 0, false
	}
	c.results = results
	if len(results) > 0 {
		stats.Fold(c.counts, results)
		c.stats = stats.Compute(results)
	}
	c.ticks++
	c.seq++
	return c.stats, c.seq, true
}

// current returns the live set and stats for a tick whose inference failed
func (c *Controller) current(gen uint64) ([]DetectionResult, stats.SessionStats, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.generation != gen {
		return nil, stats.SessionStats{}, 0, false
	}
	c.ticks++
	c.seq++
	return append([]DetectionResult{}, c.results...), c.stats, c.seq, true
}

func (c *Controller) currentSessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}
