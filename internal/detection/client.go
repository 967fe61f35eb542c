package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrInferenceRejected is returned when the service answers with an {"error": ...} body
var ErrInferenceRejected = errors.New("inference service rejected the frame")

// RemoteDetection is a face region in inference-space pixels
// (origin top-left of the unmirrored downsampled frame)
type RemoteDetection struct {
	Emotion    string  `json:"emotion"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
}

// DetectResponse is the body returned by /api/detect-emotion
type DetectResponse struct {
	FacesCount int               `json:"faces_count"`
	Emotions   []RemoteDetection `json:"emotions"`
	Error      string            `json:"error,omitempty"`
}

// HealthResponse is the body returned by /api/health
type HealthResponse struct {
	Status            string   `json:"status"`
	ModelLoaded       bool     `json:"model_loaded"`
	EmotionsSupported []string `json:"emotions_supported"`
}

type detectRequest struct {
	Image string `json:"image"`
}

// ClientConfig holds configuration for the inference client
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the remote emotion inference service
type Client struct {
	endpoint string
	client   *http.Client

	mu         sync.RWMutex
	lastHealth HealthResponse
}

// NewClient creates a new inference client
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		endpoint: strings.TrimRight(config.BaseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Endpoint returns the service base URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Detect submits a data-URI encoded JPEG and returns the detections.
// Transport errors, non-2xx answers, undecodable bodies and error bodies all fail.
func (c *Client) Detect(ctx context.Context, imageDataURI string) (*DetectResponse, error) {
	payload, err := json.Marshal(detectRequest{Image: imageDataURI})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/api/detect-emotion", c.endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result DetectResponse
	decodeErr := json.Unmarshal(body, &result)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && result.Error != "" {
			return nil, fmt.Errorf("%w: status %d: %s", ErrInferenceRejected, resp.StatusCode, result.Error)
		}
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode detect response: %w", decodeErr)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrInferenceRejected, result.Error)
	}
	if result.Emotions == nil {
		result.Emotions = []RemoteDetection{}
	}

	return &result, nil
}

// CheckHealth queries /api/health
func (c *Client) CheckHealth(ctx context.Context) (*HealthResponse, error) {
	url := fmt.Sprintf("%s/api/health", c.endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}

	c.mu.Lock()
	c.lastHealth = health
	c.mu.Unlock()

	return &health, nil
}

// SupportedEmotions returns the label set reported by the last successful health check
func (c *Client) SupportedEmotions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.lastHealth.EmotionsSupported))
	copy(out, c.lastHealth.EmotionsSupported)
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
