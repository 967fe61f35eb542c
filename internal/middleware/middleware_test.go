package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emolens/internal/auth"
	"emolens/internal/config"
	"emolens/internal/logger"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func newAuthenticator(t *testing.T, enabled bool) *auth.Authenticator {
	t.Helper()
	a, err := auth.NewAuthenticator(config.AuthConfig{
		Enabled:   enabled,
		Username:  "admin",
		Password:  "pw",
		JWTSecret: "secret",
		JWTExpiry: time.Hour,
	})
	require.NoError(t, err)
	return a
}

func TestAuthMiddlewareDisabledPassesThrough(t *testing.T) {
	h := AuthMiddleware(newAuthenticator(t, false))(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/session/start", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddlewareRequiresBearerToken(t *testing.T) {
	a := newAuthenticator(t, true)
	var user *auth.Claims
	h := AuthMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user = GetUserFromContext(r.Context())
	}))

	for _, header := range []string{"", "Basic abc", "Bearer nope"} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Contains(t, rec.Body.String(), `"error"`)
	}

	token, _, err := a.Authenticate("admin", "pw")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, user)
	assert.Equal(t, "admin", user.Username)
}

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, logger.Discard())
	h := rl.Handler(okHandler)

	codes := func(remote string, n int) []int {
		var out []int
		for i := 0; i < n; i++ {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.RemoteAddr = remote
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			out = append(out, rec.Code)
		}
		return out
	}

	assert.Equal(t, []int{200, 200, 429}, codes("10.0.0.1:1234", 3))
	assert.Equal(t, []int{429}, codes("10.0.0.1:9999", 1))
	assert.Equal(t, []int{200}, codes("10.0.0.2:1234", 1))
}

func TestRateLimiterEvictsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, logger.Discard())
	clock := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return clock }
	rl.lastSweep = clock

	require.True(t, rl.LimiterFor("10.0.0.1").Allow())
	require.False(t, rl.LimiterFor("10.0.0.1").Allow())
	rl.LimiterFor("10.0.0.2")

	clock = clock.Add(DefaultIdleTTL / 2)
	rl.LimiterFor("10.0.0.2")
	assert.Equal(t, 2, rl.Tracked())

	clock = clock.Add(DefaultIdleTTL/2 + time.Second)
	// 10.0.0.1 was idle past the TTL and comes back with a fresh bucket
	assert.True(t, rl.LimiterFor("10.0.0.1").Allow())
	assert.Equal(t, 2, rl.Tracked())

	clock = clock.Add(DefaultIdleTTL)
	rl.LimiterFor("10.0.0.3")
	assert.Equal(t, 1, rl.Tracked())
}

func TestRequestIDAssignedAndEchoed(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
}

func TestLoggerKeepsStatus(t *testing.T) {
	h := Logger(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
