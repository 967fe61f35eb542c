package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	auth   string
	body   map[string]interface{}
}

func newFakeAPI(t *testing.T, calls *[]recorded) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization")}
		json.NewDecoder(r.Body).Decode(&rec.body)
		*calls = append(*calls, rec)

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/auth/login":
			w.Write([]byte(`{"token":"tok","expires_at":"2026-01-01T00:00:00Z"}`))
		case "/api/session/start":
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"error":"inference service not connected","status":"disconnected"}`))
		default:
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunCommands(t *testing.T) {
	var calls []recorded
	srv := newFakeAPI(t, &calls)
	c := newAPIClient(srv.URL+"/", "abc", 5, false)

	out, err := run(c, "status", nil)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"ok\": true\n}", out)

	_, err = run(c, "reset", nil)
	require.NoError(t, err)

	_, err = run(c, "settings", []string{"200", "30", "70"})
	require.NoError(t, err)

	require.Len(t, calls, 3)
	assert.Equal(t, recorded{method: "GET", path: "/api/status", auth: "Bearer abc"}, calls[0])
	assert.Equal(t, "/api/session/reset", calls[1].path)
	assert.Equal(t, http.MethodPut, calls[2].method)
	assert.Equal(t, float64(70), calls[2].body["jpeg_quality"])
}

func TestRunLoginPrintsToken(t *testing.T) {
	var calls []recorded
	srv := newFakeAPI(t, &calls)

	out, err := run(newAPIClient(srv.URL, "", 5, false), "login", []string{"admin", "pw"})
	require.NoError(t, err)
	assert.Equal(t, "tok", out)
	assert.Equal(t, "admin", calls[0].body["username"])
	assert.Empty(t, calls[0].auth)
}

func TestRunReportsAPIErrors(t *testing.T) {
	var calls []recorded
	srv := newFakeAPI(t, &calls)

	_, err := run(newAPIClient(srv.URL, "", 5, false), "start", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
	assert.Contains(t, err.Error(), "status disconnected")
}

func TestRunUsageErrors(t *testing.T) {
	c := newAPIClient("http://127.0.0.1:0", "", 1, false)

	_, err := run(c, "bogus", nil)
	assert.Error(t, err)
	_, err = run(c, "login", []string{"only-user"})
	assert.Error(t, err)
	_, err = run(c, "settings", []string{"1", "x", "3"})
	assert.Error(t, err)
}
