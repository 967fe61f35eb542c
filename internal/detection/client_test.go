package detection

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectParsesEmotions(t *testing.T) {
	var gotImage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/detect-emotion", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotImage = body["image"]

		w.Write([]byte(`{"faces_count":1,"emotions":[{"emotion":"happy","x":10,"y":10,"width":40,"height":40,"confidence":0.9}]}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL + "/"})
	resp, err := c.Detect(context.Background(), "data:image/jpeg;base64,AAAA")
	require.NoError(t, err)

	assert.Equal(t, "data:image/jpeg;base64,AAAA", gotImage)
	assert.Equal(t, 1, resp.FacesCount)
	require.Len(t, resp.Emotions, 1)
	assert.Equal(t, RemoteDetection{Emotion: "happy", X: 10, Y: 10, Width: 40, Height: 40, Confidence: 0.9}, resp.Emotions[0])
}

func TestDetectEmptyEmotions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"faces_count":0}`))
	}))
	defer srv.Close()

	resp, err := NewClient(ClientConfig{BaseURL: srv.URL}).Detect(context.Background(), "x")
	require.NoError(t, err)
	assert.NotNil(t, resp.Emotions)
	assert.Empty(t, resp.Emotions)
}

func TestDetectErrorBodies(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		reject bool
	}{
		{"error body with 200", http.StatusOK, `{"error":"Model not loaded yet. Try again in a few seconds."}`, true},
		{"error body with 400", http.StatusBadRequest, `{"error":"Incorrect padding"}`, true},
		{"plain 500", http.StatusInternalServerError, `boom`, false},
		{"garbage 200", http.StatusOK, `not json`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(ClientConfig{BaseURL: srv.URL}).Detect(context.Background(), "x")
			require.Error(t, err)
			assert.Equal(t, tc.reject, errors.Is(err, ErrInferenceRejected))
		})
	}
}

func TestDetectTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(ClientConfig{BaseURL: url, Timeout: time.Second}).Detect(context.Background(), "x")
	assert.Error(t, err)
}

func TestCheckHealthKeepsSupportedEmotions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		w.Write([]byte(`{"status":"ok","model_loaded":true,"emotions_supported":["angry","happy"]}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	health, err := c.CheckHealth(context.Background())
	require.NoError(t, err)
	assert.True(t, health.ModelLoaded)
	assert.Equal(t, []string{"angry", "happy"}, c.SupportedEmotions())
}
