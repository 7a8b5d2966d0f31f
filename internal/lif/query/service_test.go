package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"lif/internal/audit"
	"lif/internal/lif/fragment"
	"lif/internal/lif/identity"
	"lif/internal/lif/orchestrator"
	"lif/internal/lif/orchestrator/mocks"
	"lif/internal/lif/plan"
	"lif/internal/platform/config"
	"lif/pkg/apperrors"
	"lif/pkg/platform/sentinel"
)

var testCfg = config.Orchestrator{
	QueryTimeout:    5 * time.Second,
	JobPollTimeout:  2 * time.Second,
	JobPollInterval: 5 * time.Millisecond,
	SubmitRetries:   3,
}

var person = identity.PersonIdentifier{Identifier: "p-1", IdentifierType: "lifPersonId"}

func testPlanner(t *testing.T) *plan.Builder {
	t.Helper()
	b, err := plan.NewBuilder(plan.Config{Sources: []plan.SourceConfig{
		{
			InformationSourceID: "hr",
			AdapterID:           "hr-adapter",
			Capabilities:        []fragment.Path{fragment.MustPath("person.name")},
		},
		{
			InformationSourceID: "sis",
			AdapterID:           "sis-adapter",
			Capabilities:        []fragment.Path{fragment.MustPath("person.enrollment")},
		},
	}})
	require.NoError(t, err)
	return b
}

func newService(t *testing.T, client orchestrator.Client, cfg config.Orchestrator) *Service {
	t.Helper()
	pub := audit.NewPublisher(audit.NewInMemoryStore())
	t.Cleanup(pub.Close)
	return NewService(testPlanner(t), identity.NewMemoryStore(), client, cfg, slog.Default(), nil, pub)
}

func succeededJob(id string, path string, items ...map[string]any) orchestrator.Job {
	payload := map[string]any{"fragments": []map[string]any{
		{"lif_fragment_path": path, "items": items},
	}}
	raw, _ := json.Marshal(payload)
	return orchestrator.Job{ID: id, Status: orchestrator.StatusSucceeded, Result: raw}
}

func TestQuery_MergesFragmentsFromAllSources(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	client.EXPECT().PostJob(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, def orchestrator.JobDefinition) (string, error) {
			require.Len(t, def.LIFQueryPlan, 1)
			return "job-" + def.LIFQueryPlan[0].AdapterIdentifier, nil
		}).Times(2)
	client.EXPECT().GetJobStatus(gomock.Any(), "job-hr-adapter").Return(
		succeededJob("job-hr-adapter", "person.name", map[string]any{"firstName": "Ada"}), nil)
	client.EXPECT().GetJobStatus(gomock.Any(), "job-sis-adapter").Return(
		succeededJob("job-sis-adapter", "person.enrollment", map[string]any{"courseId": "CS101"}), nil)

	svc := newService(t, client, testCfg)
	result, err := svc.Query(context.Background(), Request{
		OrganizationID: "org-1",
		Person:         person,
		Paths:          []string{"person.name.firstName", "person.enrollment.courseId"},
	})

	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
	assert.NotEmpty(t, result.CorrelationID)
	assert.Equal(t, []map[string]any{{
		"name":       []map[string]any{{"firstName": "Ada"}},
		"enrollment": []map[string]any{{"courseId": "CS101"}},
	}}, result.Record.Person)
}

func TestQuery_ResolvesPerSourceIdentifier(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	planner, err := plan.NewBuilder(plan.Config{Sources: []plan.SourceConfig{{
		InformationSourceID: "hr",
		AdapterID:           "hr-adapter",
		Capabilities:        []fragment.Path{fragment.MustPath("person.name")},
		PersonIDType:        "employeeNumber",
	}}})
	require.NoError(t, err)

	store := identity.NewMemoryStore()
	mapping, err := identity.NewMapping(identity.Key{
		LIFOrganizationID:        "org-1",
		LIFOrganizationPersonID:  "p-1",
		TargetSystemID:           "hr",
		TargetSystemPersonIDType: "employeeNumber",
	}, "emp-42")
	require.NoError(t, err)
	require.NoError(t, store.Register(context.Background(), mapping))

	client.EXPECT().PostJob(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, def orchestrator.JobDefinition) (string, error) {
			require.Len(t, def.LIFQueryPlan, 1)
			assert.Equal(t, identity.PersonIdentifier{
				Identifier:     "emp-42",
				IdentifierType: "employeeNumber",
			}, def.LIFQueryPlan[0].PersonIdentifier)
			return "job-1", nil
		})
	client.EXPECT().GetJobStatus(gomock.Any(), "job-1").Return(
		succeededJob("job-1", "person.name", map[string]any{"firstName": "Ada"}), nil)

	svc := NewService(planner, store, client, testCfg, slog.Default(), nil, nil)
	result, err := svc.Query(context.Background(), Request{
		OrganizationID: "org-1",
		Person:         person,
		Paths:          []string{"person.name.firstName"},
	})

	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
}

func TestQuery_MissingMappingDegradesToWarning(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	planner, err := plan.NewBuilder(plan.Config{Sources: []plan.SourceConfig{{
		InformationSourceID: "hr",
		AdapterID:           "hr-adapter",
		Capabilities:        []fragment.Path{fragment.MustPath("person.name")},
		PersonIDType:        "employeeNumber",
	}}})
	require.NoError(t, err)

	svc := NewService(planner, identity.NewMemoryStore(), client, testCfg, slog.Default(), nil, nil)
	result, err := svc.Query(context.Background(), Request{
		OrganizationID: "org-1",
		Person:         person,
		Paths:          []string{"person.name.firstName"},
	})

	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "no employeeNumber identity mapping")
	assert.Empty(t, result.Record.Person)
}

func TestQuery_UnsatisfiedPaths(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().PostJob(gomock.Any(), gomock.Any()).Return("job-1", nil)
	client.EXPECT().GetJobStatus(gomock.Any(), "job-1").Return(
		succeededJob("job-1", "person.name", map[string]any{"firstName": "Ada"}), nil)

	svc := newService(t, client, testCfg)
	result, err := svc.Query(context.Background(), Request{
		Person: person,
		Paths:  []string{"person.name.firstName", "person.photos"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"person.photos"}, result.UnsatisfiedPaths)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "person.photos")
}

func TestQuery_RequireAllFailsOnUnsatisfiedPath(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	svc := newService(t, client, testCfg)
	_, err := svc.Query(context.Background(), Request{
		Person:     person,
		Paths:      []string{"person.photos"},
		RequireAll: true,
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnsatisfiable, apperrors.CodeOf(err))
}

func TestQuery_FailedJobDegradesToWarning(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().PostJob(gomock.Any(), gomock.Any()).Return("job-1", nil).Times(2)
	client.EXPECT().GetJobStatus(gomock.Any(), "job-1").DoAndReturn(
		func(_ context.Context, _ string) (orchestrator.Job, error) {
			return orchestrator.Job{ID: "job-1", Status: orchestrator.StatusFailed}, nil
		}).Times(2)

	svc := newService(t, client, testCfg)
	result, err := svc.Query(context.Background(), Request{
		Person: person,
		Paths:  []string{"person.name.firstName", "person.enrollment.courseId"},
	})

	require.NoError(t, err)
	require.Len(t, result.Warnings, 2)
	assert.Contains(t, result.Warnings[0], "information source hr failed")
	assert.Empty(t, result.Record.Person)
}

func TestQuery_RequireAllFailsOnFailedJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().PostJob(gomock.Any(), gomock.Any()).Return("job-1", nil)
	client.EXPECT().GetJobStatus(gomock.Any(), "job-1").Return(
		orchestrator.Job{ID: "job-1", Status: orchestrator.StatusFailed}, nil)

	svc := newService(t, client, testCfg)
	_, err := svc.Query(context.Background(), Request{
		Person:     person,
		Paths:      []string{"person.name.firstName"},
		RequireAll: true,
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnavailable, apperrors.CodeOf(err))
}

func TestQuery_RetriesSubmission(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	gomock.InOrder(
		client.EXPECT().PostJob(gomock.Any(), gomock.Any()).
			Return("", fmt.Errorf("%w: queue full", orchestrator.ErrSubmission)),
		client.EXPECT().PostJob(gomock.Any(), gomock.Any()).Return("job-1", nil),
	)
	client.EXPECT().GetJobStatus(gomock.Any(), "job-1").Return(
		succeededJob("job-1", "person.name", map[string]any{"firstName": "Ada"}), nil)

	svc := newService(t, client, testCfg)
	result, err := svc.Query(context.Background(), Request{
		Person: person,
		Paths:  []string{"person.name.firstName"},
	})

	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
}

func TestQuery_ExhaustedRetriesFailPart(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().PostJob(gomock.Any(), gomock.Any()).
		Return("", fmt.Errorf("%w: queue full", orchestrator.ErrSubmission)).Times(3)

	svc := newService(t, client, testCfg)
	result, err := svc.Query(context.Background(), Request{
		Person: person,
		Paths:  []string{"person.name.firstName"},
	})

	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "after 3 attempts")
}

// While the orchestrator client's circuit is open every submission is
// rejected for the whole cooldown, so the retry budget is not spent on it.
func TestQuery_SuspendedSubmissionSkipsRetries(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().PostJob(gomock.Any(), gomock.Any()).
		Return("", fmt.Errorf("%w: http circuit open: %w", orchestrator.ErrSubmission, sentinel.ErrUnavailable)).
		Times(1)

	svc := newService(t, client, testCfg)
	result, err := svc.Query(context.Background(), Request{
		Person: person,
		Paths:  []string{"person.name.firstName"},
	})

	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "job submission suspended")
}

func TestQuery_PollsUntilTerminal(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().PostJob(gomock.Any(), gomock.Any()).Return("job-1", nil)
	gomock.InOrder(
		client.EXPECT().GetJobStatus(gomock.Any(), "job-1").Return(
			orchestrator.Job{ID: "job-1", Status: orchestrator.StatusPending}, nil),
		client.EXPECT().GetJobStatus(gomock.Any(), "job-1").Return(
			orchestrator.Job{ID: "job-1", Status: orchestrator.StatusRunning}, nil),
		client.EXPECT().GetJobStatus(gomock.Any(), "job-1").Return(
			succeededJob("job-1", "person.name", map[string]any{"firstName": "Ada"}), nil),
	)

	svc := newService(t, client, testCfg)
	result, err := svc.Query(context.Background(), Request{
		Person: person,
		Paths:  []string{"person.name.firstName"},
	})

	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
	require.Len(t, result.Record.Person, 1)
}

// A job that never reaches a terminal status times out as failed, not
// unknown.
func TestQuery_PollTimeoutFailsPart(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().PostJob(gomock.Any(), gomock.Any()).Return("job-1", nil)
	client.EXPECT().GetJobStatus(gomock.Any(), "job-1").Return(
		orchestrator.Job{ID: "job-1", Status: orchestrator.StatusRunning}, nil).AnyTimes()

	cfg := testCfg
	cfg.JobPollTimeout = 30 * time.Millisecond

	svc := newService(t, client, cfg)
	result, err := svc.Query(context.Background(), Request{
		Person: person,
		Paths:  []string{"person.name.firstName"},
	})

	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "did not finish")
}

func TestQuery_RequireAllPollTimeoutIsTimeoutCode(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().PostJob(gomock.Any(), gomock.Any()).Return("job-1", nil)
	client.EXPECT().GetJobStatus(gomock.Any(), "job-1").Return(
		orchestrator.Job{ID: "job-1", Status: orchestrator.StatusRunning}, nil).AnyTimes()

	cfg := testCfg
	cfg.JobPollTimeout = 30 * time.Millisecond

	svc := newService(t, client, cfg)
	_, err := svc.Query(context.Background(), Request{
		Person:     person,
		Paths:      []string{"person.name.firstName"},
		RequireAll: true,
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeTimeout, apperrors.CodeOf(err))
}

// An unmapped native status is a deployment defect; polling again would
// return the same answer, so the part aborts on the first observation.
func TestQuery_StatusMappingErrorAbortsPart(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().PostJob(gomock.Any(), gomock.Any()).Return("job-1", nil)
	client.EXPECT().GetJobStatus(gomock.Any(), "job-1").Return(
		orchestrator.Job{}, &orchestrator.StatusMappingError{Orchestrator: "http", RawStatus: "ODD"}).Times(1)

	svc := newService(t, client, testCfg)
	_, err := svc.Query(context.Background(), Request{
		Person:     person,
		Paths:      []string{"person.name.firstName"},
		RequireAll: true,
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConfig, apperrors.CodeOf(err))
}

func TestQuery_InvalidPathRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := newService(t, mocks.NewMockClient(ctrl), testCfg)

	_, err := svc.Query(context.Background(), Request{
		Person: person,
		Paths:  []string{"account.name"},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeBadRequest, apperrors.CodeOf(err))

	_, err = svc.Query(context.Background(), Request{
		Paths: []string{"person.name"},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeBadRequest, apperrors.CodeOf(err))
}

func TestQuery_MalformedResultFailsPart(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().PostJob(gomock.Any(), gomock.Any()).Return("job-1", nil)
	client.EXPECT().GetJobStatus(gomock.Any(), "job-1").Return(
		orchestrator.Job{ID: "job-1", Status: orchestrator.StatusSucceeded, Result: json.RawMessage(`{"fragments": "oops"}`)}, nil)

	svc := newService(t, client, testCfg)
	result, err := svc.Query(context.Background(), Request{
		Person: person,
		Paths:  []string{"person.name.firstName"},
	})

	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "decode job result")
}
