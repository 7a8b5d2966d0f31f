// Package query orchestrates one logical person query end to end: plan the
// requested fragment paths onto information sources, dispatch each plan part
// as an asynchronous orchestrator job, poll the jobs to completion and merge
// the returned fragments into one canonical record.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"lif/internal/audit"
	"lif/internal/lif/fragment"
	"lif/internal/lif/identity"
	"lif/internal/lif/merge"
	"lif/internal/lif/orchestrator"
	"lif/internal/lif/plan"
	"lif/internal/platform/config"
	"lif/internal/platform/metrics"
	"lif/pkg/apperrors"
	"lif/pkg/platform/sentinel"
	strutil "lif/pkg/platform/strings"
	"lif/pkg/requestcontext"
)

// submitBackoffBase is the initial wait between submission retries; each
// retry doubles it.
const submitBackoffBase = 250 * time.Millisecond

// maxPollInterval caps the poll backoff so long-running jobs are still
// observed at a useful cadence.
const maxPollInterval = 5 * time.Second

// Request is one person query.
type Request struct {
	// OrganizationID scopes identifier resolution to one LIF organization.
	OrganizationID string

	// Person is the canonical identifier the caller knows the person by.
	Person identity.PersonIdentifier

	// Paths are the requested canonical fragment paths.
	Paths []string

	// RequireAll fails the whole query on any unsatisfied path or failed
	// part instead of returning a partial record with warnings.
	RequireAll bool
}

// Result is the outcome of one person query. CorrelationID is always set,
// including on the error path, so callers can attach it to responses.
type Result struct {
	Record           fragment.Record
	Warnings         []string
	UnsatisfiedPaths []string
	CorrelationID    string
}

// Service runs person queries against the configured information sources.
type Service struct {
	planner  *plan.Builder
	store    identity.Store
	client   orchestrator.Client
	cfg      config.Orchestrator
	logger   *slog.Logger
	metrics  *metrics.Metrics
	auditPub *audit.Publisher
}

// NewService wires the query pipeline. Metrics and audit publisher may be
// nil; the pipeline then runs without them.
func NewService(
	planner *plan.Builder,
	store identity.Store,
	client orchestrator.Client,
	cfg config.Orchestrator,
	logger *slog.Logger,
	m *metrics.Metrics,
	auditPub *audit.Publisher,
) *Service {
	return &Service{
		planner:  planner,
		store:    store,
		client:   client,
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		auditPub: auditPub,
	}
}

// partOutcome is the fan-in unit: the fragments one plan part produced, or
// the reason it failed. Slots are indexed by part so the collector never
// contends with the dispatch goroutines.
type partOutcome struct {
	sourceID  string
	fragments []fragment.Fragment
	err       error
}

// Query runs one person query. In best-effort mode (the default) failed
// parts and unsatisfied paths degrade to warnings on a partial record; with
// RequireAll any of them fails the whole request.
func (s *Service) Query(ctx context.Context, req Request) (Result, error) {
	correlationID := requestcontext.CorrelationID(ctx)
	if correlationID == "" {
		correlationID = uuid.NewString()
		ctx = requestcontext.WithCorrelationID(ctx, correlationID)
	}
	result := Result{Record: fragment.EmptyRecord(), CorrelationID: correlationID}

	paths, err := fragment.ParsePaths(strutil.DedupeAndTrim(req.Paths))
	if err != nil {
		s.countQuery("failed")
		return result, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid fragment paths")
	}
	if req.Person.IsZero() {
		s.countQuery("failed")
		return result, apperrors.New(apperrors.CodeBadRequest, "person identifier is required")
	}

	audit.LogAudit(ctx, s.logger, s.auditPub, audit.EventQueryReceived,
		"person_identifier", req.Person.Identifier,
		"paths", len(paths),
	)

	parts, unsatisfied := s.planner.Build(paths, req.Person)
	result.UnsatisfiedPaths = pathStrings(unsatisfied)
	if s.metrics != nil {
		s.metrics.PlanPartsTotal.Add(float64(len(parts)))
		s.metrics.UnsatisfiedPaths.Add(float64(len(unsatisfied)))
	}

	requireAll := req.RequireAll || s.cfg.RequireAll
	if requireAll && len(unsatisfied) > 0 {
		s.failQuery(ctx, req, "unsatisfiable paths")
		return result, apperrors.Newf(apperrors.CodeUnsatisfiable,
			"no information source can serve: %v", result.UnsatisfiedPaths)
	}
	for _, p := range result.UnsatisfiedPaths {
		result.Warnings = append(result.Warnings, fmt.Sprintf("no information source can serve %s", p))
	}

	if len(parts) == 0 {
		s.countQuery("partial")
		return result, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	outcomes := make([]partOutcome, len(parts))
	g, gctx := errgroup.WithContext(ctx)
	for i, part := range parts {
		g.Go(func() error {
			fragments, err := s.runPart(gctx, req, part)
			outcomes[i] = partOutcome{sourceID: part.InformationSourceID, fragments: fragments, err: err}
			// Part failures are collected, not propagated: one slow or
			// broken source must not cancel its siblings mid-flight.
			return nil
		})
	}
	_ = g.Wait()

	// Deterministic fan-in: merge in information-source order regardless of
	// job completion order.
	sort.SliceStable(outcomes, func(i, j int) bool {
		return outcomes[i].sourceID < outcomes[j].sourceID
	})

	var merged []fragment.Fragment
	var failed []partOutcome
	for _, outcome := range outcomes {
		if outcome.err != nil {
			failed = append(failed, outcome)
			continue
		}
		merged = append(merged, outcome.fragments...)
	}

	if requireAll && len(failed) > 0 {
		first := failed[0]
		s.failQuery(ctx, req, first.err.Error())
		return result, apperrors.Wrap(first.err, failureCode(first.err),
			fmt.Sprintf("information source %s failed", first.sourceID))
	}
	for _, outcome := range failed {
		s.logger.WarnContext(ctx, "plan part failed",
			"information_source_id", outcome.sourceID,
			"correlation_id", correlationID,
			"error", outcome.err,
		)
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("information source %s failed: %v", outcome.sourceID, outcome.err))
	}

	result.Record = merge.Merge(merged)
	if s.metrics != nil {
		s.metrics.FragmentsMerged.Add(float64(len(merged)))
	}

	outcome := "ok"
	if len(result.Warnings) > 0 {
		outcome = "partial"
	}
	s.countQuery(outcome)
	audit.LogAudit(ctx, s.logger, s.auditPub, audit.EventQueryCompleted,
		"person_identifier", req.Person.Identifier,
		"outcome", outcome,
		"sources", len(parts),
		"fragments", len(merged),
	)
	return result, nil
}

// runPart drives one plan part through its whole lifecycle: identifier
// translation, submission with bounded retries, polling to a terminal
// status, and fragment decoding.
func (s *Service) runPart(ctx context.Context, req Request, part plan.Part) ([]fragment.Fragment, error) {
	if err := s.resolvePerson(ctx, req, &part); err != nil {
		return nil, err
	}

	jobID, err := s.submit(ctx, orchestrator.DefinitionFromPart(part))
	if err != nil {
		return nil, err
	}

	job, err := s.awaitTerminal(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != orchestrator.StatusSucceeded {
		return nil, fmt.Errorf("job %s finished %s", jobID, job.Status)
	}

	return decodeFragments(job.Result)
}

// resolvePerson translates the canonical identifier into the namespace the
// source's adapter expects, when they differ.
func (s *Service) resolvePerson(ctx context.Context, req Request, part *plan.Part) error {
	if part.PersonIDType == "" || part.PersonIDType == req.Person.IdentifierType {
		return nil
	}

	key := identity.Key{
		LIFOrganizationID:        req.OrganizationID,
		LIFOrganizationPersonID:  req.Person.Identifier,
		TargetSystemID:           part.InformationSourceID,
		TargetSystemPersonIDType: part.PersonIDType,
	}
	targetID, err := s.store.Resolve(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return fmt.Errorf("no %s identity mapping for person in %s",
				part.PersonIDType, part.InformationSourceID)
		}
		return fmt.Errorf("resolve identity mapping: %w", err)
	}

	part.Person = identity.PersonIdentifier{Identifier: targetID, IdentifierType: part.PersonIDType}
	return nil
}

// submit posts the job definition, retrying rejections a bounded number of
// times with doubling backoff.
func (s *Service) submit(ctx context.Context, def orchestrator.JobDefinition) (string, error) {
	backoff := submitBackoffBase
	attempts := s.cfg.SubmitRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		jobID, err := s.client.PostJob(ctx, def)
		if err == nil {
			if s.metrics != nil {
				s.metrics.JobSubmissionsVec.WithLabelValues("ok").Inc()
			}
			return jobID, nil
		}
		lastErr = err

		if errors.Is(err, sentinel.ErrUnavailable) {
			// Circuit open: the client keeps rejecting for its whole
			// cooldown, so retrying within the backoff window is wasted.
			if s.metrics != nil {
				s.metrics.JobSubmissionsVec.WithLabelValues("failed").Inc()
			}
			return "", fmt.Errorf("job submission suspended: %w", err)
		}
		if attempt == attempts {
			break
		}
		if s.metrics != nil {
			s.metrics.JobSubmissionsVec.WithLabelValues("retried").Inc()
		}
		s.logger.WarnContext(ctx, "job submission retry",
			"attempt", attempt, "backoff", backoff.String(), "error", err)
		if err := sleep(ctx, backoff); err != nil {
			return "", err
		}
		backoff *= 2
	}

	if s.metrics != nil {
		s.metrics.JobSubmissionsVec.WithLabelValues("failed").Inc()
	}
	return "", fmt.Errorf("job submission failed after %d attempts: %w", attempts, lastErr)
}

// awaitTerminal polls the job with backoff until it reaches a terminal
// status or the per-job poll timeout elapses. A timed-out job counts as
// failed, never unknown: the caller must be able to act on the status.
func (s *Service) awaitTerminal(ctx context.Context, jobID string) (orchestrator.Job, error) {
	start := time.Now()
	deadline := start.Add(s.cfg.JobPollTimeout)
	interval := s.cfg.JobPollInterval

	for {
		job, err := s.client.GetJobStatus(ctx, jobID)
		if err != nil {
			var mappingErr *orchestrator.StatusMappingError
			if errors.As(err, &mappingErr) {
				// Non-retryable: polling again would return the same
				// unmapped status.
				return orchestrator.Job{}, err
			}
			s.logger.WarnContext(ctx, "job poll failed", "job_id", jobID, "error", err)
		} else if job.Status.Terminal() {
			if s.metrics != nil {
				s.metrics.JobPollDuration.Observe(time.Since(start).Seconds())
			}
			return job, nil
		}

		if time.Now().Add(interval).After(deadline) {
			return orchestrator.Job{ID: jobID, Status: orchestrator.StatusFailed},
				fmt.Errorf("job %s did not finish within %s: %w", jobID, s.cfg.JobPollTimeout, context.DeadlineExceeded)
		}
		if err := sleep(ctx, interval); err != nil {
			return orchestrator.Job{}, err
		}
		if interval *= 2; interval > maxPollInterval {
			interval = maxPollInterval
		}
	}
}

// jobResult is the wire shape of a succeeded job's payload: one entry per
// retrieved fragment path.
type jobResult struct {
	Fragments []struct {
		Path  string           `json:"lif_fragment_path"`
		Items []map[string]any `json:"items"`
	} `json:"fragments"`
}

func decodeFragments(raw json.RawMessage) ([]fragment.Fragment, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("succeeded job carried no result payload")
	}
	var jr jobResult
	if err := json.Unmarshal(raw, &jr); err != nil {
		return nil, fmt.Errorf("decode job result: %w", err)
	}

	fragments := make([]fragment.Fragment, 0, len(jr.Fragments))
	for _, entry := range jr.Fragments {
		path, err := fragment.NewPath(entry.Path)
		if err != nil {
			return nil, fmt.Errorf("job result path %q: %w", entry.Path, err)
		}
		if len(entry.Items) == 0 {
			continue
		}
		f, err := fragment.NewFragment(path, entry.Items)
		if err != nil {
			return nil, fmt.Errorf("job result fragment %s: %w", entry.Path, err)
		}
		fragments = append(fragments, f)
	}
	return fragments, nil
}

func (s *Service) failQuery(ctx context.Context, req Request, reason string) {
	s.countQuery("failed")
	audit.LogAudit(ctx, s.logger, s.auditPub, audit.EventQueryFailed,
		"person_identifier", req.Person.Identifier,
		"outcome", "failed",
		"reason", reason,
	)
}

func (s *Service) countQuery(outcome string) {
	if s.metrics != nil {
		s.metrics.QueriesTotal.WithLabelValues(outcome).Inc()
	}
}

// failureCode picks the error code a failed part maps to under RequireAll.
func failureCode(err error) apperrors.Code {
	var mappingErr *orchestrator.StatusMappingError
	switch {
	case errors.As(err, &mappingErr):
		return apperrors.CodeConfig
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.CodeTimeout
	default:
		return apperrors.CodeUnavailable
	}
}

func pathStrings(paths []fragment.Path) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p.String()
	}
	return out
}

// sleep waits for d unless the context ends first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
