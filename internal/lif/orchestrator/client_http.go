package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"lif/internal/platform/config"
	"lif/pkg/platform/circuit"
	"lif/pkg/platform/sentinel"
)

// restClient is the shared HTTP plumbing behind the concrete clients. Each
// variant contributes its endpoint layout and native status vocabulary.
// Beyond a cache of the last observed status per job, the client holds no
// state: job lifecycle lives in the orchestrator.
type restClient struct {
	name       string
	baseURL    string
	apiKey     string
	submitPath string
	statusPath string // format with one %s for the job ID
	vocabulary map[string]Status
	httpc      *http.Client
	logger     *slog.Logger

	// breaker fails submissions fast while the orchestrator is down,
	// instead of burning the per-part retry budget on a dead endpoint.
	// After its cooldown it lets a trial submission through so a
	// recovered orchestrator closes the circuit again.
	breaker *circuit.Breaker

	mu           sync.RWMutex
	lastObserved map[string]Job
}

// NewHTTPClient builds a client for a generic HTTP job queue:
// POST {base}/jobs to submit, GET {base}/jobs/{id} for status.
func NewHTTPClient(cfg config.Orchestrator, logger *slog.Logger) Client {
	return &restClient{
		name:       "http",
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		submitPath: "/jobs",
		statusPath: "/jobs/%s",
		vocabulary: map[string]Status{
			"pending":   StatusPending,
			"queued":    StatusPending,
			"running":   StatusRunning,
			"succeeded": StatusSucceeded,
			"failed":    StatusFailed,
		},
		httpc:        &http.Client{Timeout: 10 * time.Second},
		logger:       logger,
		breaker:      circuit.New("orchestrator-http"),
		lastObserved: make(map[string]Job),
	}
}

// NewDagsterClient builds a client for a Dagster-backed orchestrator using
// its run launch/status endpoints and run-status vocabulary.
func NewDagsterClient(cfg config.Orchestrator, logger *slog.Logger) Client {
	return &restClient{
		name:       "dagster",
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		submitPath: "/api/runs",
		statusPath: "/api/runs/%s",
		vocabulary: map[string]Status{
			"QUEUED":      StatusPending,
			"NOT_STARTED": StatusPending,
			"STARTING":    StatusRunning,
			"STARTED":     StatusRunning,
			"SUCCESS":     StatusSucceeded,
			"FAILURE":     StatusFailed,
			"CANCELED":    StatusFailed,
		},
		httpc:        &http.Client{Timeout: 10 * time.Second},
		logger:       logger,
		breaker:      circuit.New("orchestrator-dagster"),
		lastObserved: make(map[string]Job),
	}
}

// NewClient selects the client implementation from configuration.
func NewClient(cfg config.Orchestrator, logger *slog.Logger) (Client, error) {
	switch cfg.Kind {
	case "http":
		return NewHTTPClient(cfg, logger), nil
	case "dagster":
		return NewDagsterClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown orchestrator kind %q", cfg.Kind)
	}
}

type submitResponse struct {
	JobID string `json:"job_id"`
}

type statusResponse struct {
	JobID  string          `json:"job_id"`
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
}

func (c *restClient) PostJob(ctx context.Context, definition JobDefinition) (string, error) {
	if !c.breaker.Allow() {
		return "", fmt.Errorf("%w: %s circuit open: %w", ErrSubmission, c.name, sentinel.ErrUnavailable)
	}

	jobID, err := c.submit(ctx, definition)
	if err != nil {
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.logger.WarnContext(ctx, "orchestrator circuit opened", "orchestrator", c.name)
		}
		return "", err
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "orchestrator circuit closed", "orchestrator", c.name)
	}
	return jobID, nil
}

func (c *restClient) submit(ctx context.Context, definition JobDefinition) (string, error) {
	body, err := json.Marshal(definition)
	if err != nil {
		return "", fmt.Errorf("marshal job definition: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.submitPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: %s responded %d: %s", ErrSubmission, c.name, resp.StatusCode, payload)
	}

	var sr submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("%w: decode submit response: %v", ErrSubmission, err)
	}
	if sr.JobID == "" {
		return "", fmt.Errorf("%w: %s returned no job id", ErrSubmission, c.name)
	}

	c.logger.DebugContext(ctx, "job submitted", "orchestrator", c.name, "job_id", sr.JobID)
	return sr.JobID, nil
}

func (c *restClient) GetJobStatus(ctx context.Context, jobID string) (Job, error) {
	url := c.baseURL + fmt.Sprintf(c.statusPath, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Job{}, fmt.Errorf("build status request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Job{}, fmt.Errorf("poll job %s: %w", jobID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Job{}, fmt.Errorf("poll job %s: %s responded %d", jobID, c.name, resp.StatusCode)
	}

	var sr statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return Job{}, fmt.Errorf("decode status response for job %s: %w", jobID, err)
	}

	status, ok := c.vocabulary[sr.Status]
	if !ok {
		return Job{}, &StatusMappingError{Orchestrator: c.name, RawStatus: sr.Status}
	}

	job := Job{ID: jobID, Status: status, RawStatus: sr.Status, Result: sr.Result}

	c.mu.Lock()
	c.lastObserved[jobID] = job
	c.mu.Unlock()

	return job, nil
}

// LastObserved returns the most recent status successfully polled for the
// job, if any.
func (c *restClient) LastObserved(jobID string) (Job, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	job, ok := c.lastObserved[jobID]
	return job, ok
}
