package api

import (
	"net/http"

	"emolens/internal/database"
)

// SettingsResponse reports the loop tunables used by the next run
type SettingsResponse struct {
	database.LoopSettings
	AppliesOn string `json:"applies_on"`
}

const appliesOnNextStart = "next_start"

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SettingsResponse{
		LoopSettings: database.SettingsFromLoop(s.ctrl.LoopConfig()),
		AppliesOn:    appliesOnNextStart,
	})
}

// handlePutSettings validates, persists and applies the tunables.
// A running loop keeps its current values until restarted.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req database.LoopSettings
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err, "")
		return
	}

	cfg := req.Apply(s.ctrl.LoopConfig())
	if err := cfg.Validate(); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err, "")
		return
	}

	if s.settings != nil {
		if err := s.settings.SaveLoopSettings(req); err != nil {
			s.writeError(w, r, http.StatusInternalServerError, err, "")
			return
		}
	}
	s.ctrl.SetLoopConfig(cfg)

	s.log.WithField("settings", req).Info("Loop settings updated")
	writeJSON(w, http.StatusOK, SettingsResponse{LoopSettings: req, AppliesOn: appliesOnNextStart})
}
