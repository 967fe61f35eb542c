package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"emolens/internal/auth"
)

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued token
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthStatusResponse reports whether auth is on and who the caller is
type AuthStatusResponse struct {
	Enabled       bool   `json:"enabled"`
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		s.writeError(w, r, http.StatusUnauthorized, auth.ErrAuthDisabled, "")
		return
	}

	var req LoginRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err, "")
		return
	}

	token, expiresAt, err := s.auth.Authenticate(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			s.writeError(w, r, http.StatusUnauthorized, errors.New("invalid username or password"), "")
		case errors.Is(err, auth.ErrAuthDisabled):
			s.writeError(w, r, http.StatusUnauthorized, err, "")
		default:
			s.writeError(w, r, http.StatusInternalServerError, err, "")
		}
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: time.Unix(expiresAt, 0).UTC()})
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	resp := AuthStatusResponse{}
	if s.auth == nil || !s.auth.IsEnabled() {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp.Enabled = true
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		if claims, err := s.auth.ValidateToken(token); err == nil {
			resp.Authenticated = true
			resp.Username = claims.Username
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
