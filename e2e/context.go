package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// TestContext carries HTTP state across the steps of one scenario: the last
// response status and its decoded body.
type TestContext struct {
	baseURL string
	apiKey  string
	client  *http.Client

	lastStatus int
	lastBody   map[string]any
}

// NewTestContext reads the target server location from the environment.
// LIF_E2E_BASE_URL defaults to a local development server.
func NewTestContext() *TestContext {
	baseURL := os.Getenv("LIF_E2E_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &TestContext{
		baseURL: baseURL,
		apiKey:  os.Getenv("LIF_E2E_API_KEY"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (tc *TestContext) do(method, path string, body any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	req, err := http.NewRequest(method, tc.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if tc.apiKey != "" {
		req.Header.Set("X-API-Key", tc.apiKey)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody = nil
	_ = json.NewDecoder(resp.Body).Decode(&tc.lastBody)
	return nil
}

// POST sends a JSON body and records the response.
func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body)
}

// GET records the response of a read.
func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

// DELETE sends a keyed delete and records the response.
func (tc *TestContext) DELETE(path string, body any) error {
	return tc.do(http.MethodDelete, path, body)
}

// Field returns a top-level field of the last response body.
func (tc *TestContext) Field(name string) (any, error) {
	v, ok := tc.lastBody[name]
	if !ok {
		return nil, fmt.Errorf("response has no field %q: %v", name, tc.lastBody)
	}
	return v, nil
}
