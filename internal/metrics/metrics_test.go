package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emolens/internal/detection"
	"emolens/internal/pipeline"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestTickMetrics(t *testing.T) {
	m := New()

	m.OnEvent(&pipeline.Event{Kind: pipeline.EventTick, Tick: &pipeline.TickResult{
		InferenceMs: 40,
		Detections: []pipeline.DetectionResult{
			{Emotion: "happy"}, {Emotion: "happy"}, {Emotion: "sad"},
		},
	}})
	m.OnEvent(&pipeline.Event{Kind: pipeline.EventTick, Tick: &pipeline.TickResult{
		Error:      "timeout",
		Detections: []pipeline.DetectionResult{{Emotion: "happy"}},
	}})

	body := scrape(t, m)
	assert.Contains(t, body, "emolens_ticks_total 2\n")
	assert.Contains(t, body, "emolens_inference_failures_total 1\n")
	assert.Contains(t, body, `emolens_faces_total{emotion="happy"} 2`)
	assert.Contains(t, body, `emolens_faces_total{emotion="sad"} 1`)
	assert.Contains(t, body, "emolens_inference_duration_seconds_count 1\n")
}

func TestSessionMetrics(t *testing.T) {
	m := New()

	m.OnEvent(&pipeline.Event{Kind: pipeline.EventSession, Action: pipeline.ActionStart, Session: &pipeline.Snapshot{Running: true}})
	assert.Contains(t, scrape(t, m), "emolens_loop_running 1\n")

	m.OnEvent(&pipeline.Event{Kind: pipeline.EventSession, Action: pipeline.ActionStop, Session: &pipeline.Snapshot{}})
	body := scrape(t, m)
	assert.Contains(t, body, "emolens_loop_running 0\n")
	assert.Contains(t, body, `emolens_session_actions_total{action="start"} 1`)
	assert.Contains(t, body, `emolens_session_actions_total{action="stop"} 1`)
}

func TestStatusGauge(t *testing.T) {
	m := New()
	assert.Contains(t, scrape(t, m), `emolens_inference_status{status="connecting"} 1`)

	m.OnStatusChange(detection.StatusConnecting, detection.StatusConnected)
	body := scrape(t, m)
	assert.Contains(t, body, `emolens_inference_status{status="connecting"} 0`)
	assert.Contains(t, body, `emolens_inference_status{status="connected"} 1`)
}
