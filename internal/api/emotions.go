package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"emolens/internal/emotion"
)

// EmotionInfo is one entry of the label palette
type EmotionInfo struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// EmotionsResponse lists the known labels and the ones the service reports
type EmotionsResponse struct {
	Emotions  []EmotionInfo `json:"emotions"`
	Supported []string      `json:"supported"`
	Default   string        `json:"default_color"`
}

// SuggestionsResponse lists the suggestions for one label
type SuggestionsResponse struct {
	Emotion     string               `json:"emotion"`
	Suggestions []emotion.Suggestion `json:"suggestions"`
}

func (s *Server) handleEmotions(w http.ResponseWriter, r *http.Request) {
	labels := emotion.Labels()
	resp := EmotionsResponse{
		Emotions:  make([]EmotionInfo, 0, len(labels)),
		Supported: []string{},
		Default:   emotion.Hex(emotion.DefaultColor),
	}
	for _, label := range labels {
		resp.Emotions = append(resp.Emotions, EmotionInfo{Label: label, Color: emotion.Hex(emotion.Color(label))})
	}
	if s.catalog != nil {
		if supported := s.catalog.SupportedEmotions(); supported != nil {
			resp.Supported = supported
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSuggestions returns an empty list for unknown labels
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	label := strings.ToLower(chi.URLParam(r, "label"))
	writeJSON(w, http.StatusOK, SuggestionsResponse{
		Emotion:     label,
		Suggestions: emotion.Suggestions(label),
	})
}
