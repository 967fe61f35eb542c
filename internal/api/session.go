package api

import (
	"errors"
	"net/http"
	"time"

	"emolens/internal/camera"
	"emolens/internal/detection"
	"emolens/internal/pipeline"
)

// StatusResponse is the full session view served by /api/status
type StatusResponse struct {
	*pipeline.Snapshot
	EmotionsSupported []string   `json:"emotions_supported"`
	LastProbe         *time.Time `json:"last_probe,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Snapshot:          s.ctrl.Snapshot(),
		EmotionsSupported: []string{},
	}
	if s.catalog != nil {
		if labels := s.catalog.SupportedEmotions(); labels != nil {
			resp.EmotionsSupported = labels
		}
	}
	if last := s.status.LastProbe(); !last.IsZero() {
		resp.LastProbe = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleStart maps the start gate and camera failures to status codes
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	err := s.ctrl.Start()
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
	case errors.Is(err, pipeline.ErrNotConnected):
		s.writeError(w, r, http.StatusConflict, err, string(s.status.Status()))
	case errors.Is(err, camera.ErrCameraUnavailable):
		s.writeError(w, r, http.StatusBadGateway, err, string(detection.StatusWebcamError))
	default:
		s.writeError(w, r, http.StatusInternalServerError, err, "")
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Stop()
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Reset()
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Finalize())
}
