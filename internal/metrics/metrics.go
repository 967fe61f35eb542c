package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"emolens/internal/detection"
	"emolens/internal/pipeline"
)

// Metrics holds the service collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	ticks             prometheus.Counter
	inferenceFailures prometheus.Counter
	inferenceLatency  prometheus.Histogram
	faces             *prometheus.CounterVec
	sessionActions    *prometheus.CounterVec
	status            *prometheus.GaugeVec
	running           prometheus.Gauge
}

// New creates the collectors and registers them
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "emolens_ticks_total",
			Help: "Completed detection ticks",
		}),
		inferenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "emolens_inference_failures_total",
			Help: "Ticks whose inference request failed",
		}),
		inferenceLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "emolens_inference_duration_seconds",
			Help:    "Inference request latency",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		faces: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "emolens_faces_total",
			Help: "Detected faces by emotion",
		}, []string{"emotion"}),
		sessionActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "emolens_session_actions_total",
			Help: "Session control actions",
		}, []string{"action"}),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "emolens_inference_status",
			Help: "1 for the current inference service status",
		}, []string{"status"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "emolens_loop_running",
			Help: "1 while the detection loop runs",
		}),
	}

	m.registry.MustRegister(
		m.ticks,
		m.inferenceFailures,
		m.inferenceLatency,
		m.faces,
		m.sessionActions,
		m.status,
		m.running,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.SetStatus(detection.StatusConnecting)

	return m
}

// Registry exposes the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// OnEvent records ticks and session actions
func (m *Metrics) OnEvent(ev *pipeline.Event) {
	switch ev.Kind {
	case pipeline.EventTick:
		if ev.Tick == nil {
			return
		}
		m.ticks.Inc()
		if ev.Tick.Failed() {
			m.inferenceFailures.Inc()
		}
		if ev.Tick.InferenceMs > 0 {
			m.inferenceLatency.Observe(ev.Tick.InferenceMs / 1000)
		}
		if !ev.Tick.Failed() {
			for _, d := range ev.Tick.Detections {
				m.faces.WithLabelValues(d.Emotion).Inc()
			}
		}
	case pipeline.EventSession:
		if ev.Action != "" {
			m.sessionActions.WithLabelValues(ev.Action).Inc()
		}
		if ev.Session != nil {
			if ev.Session.Running {
				m.running.Set(1)
			} else {
				m.running.Set(0)
			}
		}
	}
}

// OnStatusChange sets the status gauge; matches detection.StatusListener
func (m *Metrics) OnStatusChange(_, current detection.Status) {
	m.SetStatus(current)
}

// SetStatus marks current as the only active status
func (m *Metrics) SetStatus(current detection.Status) {
	for _, s := range detection.AllStatuses() {
		v := 0.0
		if s == current {
			v = 1
		}
		m.status.WithLabelValues(string(s)).Set(v)
	}
}
