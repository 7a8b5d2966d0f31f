// Package orchestrator submits query-plan parts as asynchronous jobs to an
// external job orchestrator and polls their status. Each concrete client
// normalizes its orchestrator's native status vocabulary into the internal
// Status enumeration; an unmapped native status is a fatal configuration
// error, since guessing a status would corrupt the merge result.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"lif/internal/lif/identity"
	"lif/internal/lif/plan"
)

// Status is the internal, orchestrator-independent job status.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
	StatusUnknown   Status = "UNKNOWN"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Job is the orchestrator-side view of one submitted plan part.
type Job struct {
	ID        string
	Status    Status
	RawStatus string

	// Result carries the raw fragment payload once the job has succeeded.
	Result json.RawMessage
}

// PlanPartPayload is the wire form of one plan part inside a job definition.
type PlanPartPayload struct {
	AdapterIdentifier string                    `json:"adapter_identifier"`
	PersonIdentifier  identity.PersonIdentifier `json:"person_identifier"`
	LIFFragmentPaths  []string                  `json:"lif_fragment_paths"`
}

// JobDefinition is the orchestrator submission payload.
type JobDefinition struct {
	LIFQueryPlan []PlanPartPayload `json:"lif_query_plan"`
}

// DefinitionFromPart converts a plan part into its submission payload.
func DefinitionFromPart(part plan.Part) JobDefinition {
	paths := make([]string, len(part.FragmentPaths))
	for i, p := range part.FragmentPaths {
		paths[i] = p.String()
	}
	return JobDefinition{LIFQueryPlan: []PlanPartPayload{{
		AdapterIdentifier: part.AdapterID,
		PersonIdentifier:  part.Person,
		LIFFragmentPaths:  paths,
	}}}
}

// ErrSubmission marks an orchestrator rejection of a job definition
// (malformed payload, capacity rejection, auth failure). Callers retry a
// bounded number of times with backoff.
var ErrSubmission = errors.New("job submission rejected")

// StatusMappingError reports a native status string absent from a client's
// mapping table. Fatal and non-retryable: a guessed status would corrupt
// the merge result.
type StatusMappingError struct {
	Orchestrator string
	RawStatus    string
}

func (e *StatusMappingError) Error() string {
	return fmt.Sprintf("orchestrator %s returned unmapped status %q", e.Orchestrator, e.RawStatus)
}

// Client is the capability every orchestrator backend must provide.
// Cancellation is deliberately absent: no backing orchestrator contract for
// it exists yet, and a half-supported cancel would be worse than none.
type Client interface {
	// PostJob submits one plan part as an asynchronous unit of work and
	// returns the orchestrator-assigned job identifier. Never blocks waiting
	// for completion. Rejections wrap ErrSubmission.
	PostJob(ctx context.Context, definition JobDefinition) (string, error)

	// GetJobStatus returns the job with its current normalized status.
	// Unmapped native statuses return a *StatusMappingError.
	GetJobStatus(ctx context.Context, jobID string) (Job, error)
}
