package api

import (
	"net/http"

	"emolens/internal/detection"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz is ready only while the inference service is connected
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := s.status.Status()
	code := http.StatusOK
	if status != detection.StatusConnected {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": string(status)})
}
