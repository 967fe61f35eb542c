package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"
	"time"
)

// Doer performs HTTP requests
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// debugDoer dumps every request and response to stderr
type debugDoer struct {
	doer Doer
}

func (d *debugDoer) Do(req *http.Request) (*http.Response, error) {
	if dump, err := httputil.DumpRequestOut(req, true); err == nil {
		fmt.Fprintf(os.Stderr, "> %s\n", strings.ReplaceAll(string(dump), "\n", "\n> "))
	}
	resp, err := d.doer.Do(req)
	if err != nil {
		return nil, err
	}
	if dump, err := httputil.DumpResponse(resp, true); err == nil {
		fmt.Fprintf(os.Stderr, "< %s\n", strings.ReplaceAll(string(dump), "\n", "\n< "))
	}
	return resp, nil
}

// apiClient calls the emolens control API
type apiClient struct {
	base  string
	token string
	doer  Doer
}

func newAPIClient(base, token string, timeout int, debug bool) *apiClient {
	var doer Doer = &http.Client{Timeout: time.Duration(timeout) * time.Second}
	if debug {
		doer = &debugDoer{doer: doer}
	}
	return &apiClient{base: strings.TrimRight(base, "/"), token: token, doer: doer}
}

// call sends body as JSON (when non-nil) and returns the raw response body.
// Non-2xx responses become errors carrying the server's error message.
func (c *apiClient) call(method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error  string `json:"error"`
			Status string `json:"status"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			if apiErr.Status != "" {
				return nil, fmt.Errorf("%s: %s (status %s)", resp.Status, apiErr.Error, apiErr.Status)
			}
			return nil, fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return nil, fmt.Errorf("%s", resp.Status)
	}
	return data, nil
}
