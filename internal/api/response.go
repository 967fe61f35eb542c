package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"emolens/internal/middleware"
)

var validate = validator.New()

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error     string `json:"error"`
	Status    string `json:"status,omitempty"` // connection status when relevant
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError logs err with the request ID and writes a JSON error body
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, code int, err error, status string) {
	requestID := middleware.GetRequestID(r.Context())
	entry := s.log.WithField("request_id", requestID).WithError(err)
	if code >= http.StatusInternalServerError {
		entry.Errorf("%s %s failed", r.Method, r.URL.Path)
	} else {
		entry.Debugf("%s %s rejected", r.Method, r.URL.Path)
	}

	writeJSON(w, code, ErrorResponse{
		Error:     err.Error(),
		Status:    status,
		RequestID: requestID,
	})
}

// decodeBody decodes a JSON body into v and validates it
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}
