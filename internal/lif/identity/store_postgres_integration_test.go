//go:build integration

package identity_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"lif/internal/lif/identity"
	"lif/pkg/platform/sentinel"
	"lif/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *identity.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = identity.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "lif_identity_mappings")
	s.Require().NoError(err)
}

func newKey(targetSystem string) identity.Key {
	return identity.Key{
		LIFOrganizationID:        "org-1",
		LIFOrganizationPersonID:  "person-1",
		TargetSystemID:           targetSystem,
		TargetSystemPersonIDType: "employeeNumber",
	}
}

func (s *PostgresStoreSuite) TestRegisterAndResolve() {
	ctx := context.Background()

	m, err := identity.NewMapping(newKey("hr-system"), "emp-42")
	s.Require().NoError(err)
	s.Require().NoError(s.store.Register(ctx, m))

	targetID, err := s.store.Resolve(ctx, newKey("hr-system"))
	s.Require().NoError(err)
	s.Equal("emp-42", targetID)
}

func (s *PostgresStoreSuite) TestResolveUnknownReturnsNotFound() {
	_, err := s.store.Resolve(context.Background(), newKey("nowhere"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestRegisterIdenticalIsNoop() {
	ctx := context.Background()

	first, err := identity.NewMapping(newKey("hr-system"), "emp-42")
	s.Require().NoError(err)
	s.Require().NoError(s.store.Register(ctx, first))

	second, err := identity.NewMapping(newKey("hr-system"), "emp-42")
	s.Require().NoError(err)
	s.NoError(s.store.Register(ctx, second))
}

func (s *PostgresStoreSuite) TestRegisterDifferentValueConflicts() {
	ctx := context.Background()

	first, err := identity.NewMapping(newKey("hr-system"), "emp-42")
	s.Require().NoError(err)
	s.Require().NoError(s.store.Register(ctx, first))

	conflicting, err := identity.NewMapping(newKey("hr-system"), "emp-99")
	s.Require().NoError(err)
	s.ErrorIs(s.store.Register(ctx, conflicting), sentinel.ErrConflict)

	targetID, err := s.store.Resolve(ctx, newKey("hr-system"))
	s.Require().NoError(err)
	s.Equal("emp-42", targetID)
}

// TestConcurrentRegister verifies the uniqueness tuple is serialized by the
// database constraint, not application locking: concurrent registrations of
// conflicting values yield exactly one stored value.
func (s *PostgresStoreSuite) TestConcurrentRegister() {
	ctx := context.Background()
	const goroutines = 50

	var wg sync.WaitGroup
	var conflicts atomic.Int32
	var failures atomic.Int32

	for i := 0; i < goroutines; i++ {
		value := "emp-42"
		if i%2 == 1 {
			value = "emp-99"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := identity.NewMapping(newKey("hr-system"), value)
			if err != nil {
				failures.Add(1)
				return
			}
			err = s.store.Register(ctx, m)
			switch {
			case err == nil:
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			default:
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Zero(failures.Load(), "no unexpected errors")
	s.Equal(int32(goroutines/2), conflicts.Load(), "every attempt with the losing value conflicts")

	mappings, err := s.store.List(ctx, "org-1", "person-1")
	s.Require().NoError(err)
	s.Len(mappings, 1)
}

func (s *PostgresStoreSuite) TestListAndDelete() {
	ctx := context.Background()

	for _, system := range []string{"sis", "hr-system"} {
		m, err := identity.NewMapping(newKey(system), "id-"+system)
		s.Require().NoError(err)
		s.Require().NoError(s.store.Register(ctx, m))
	}

	mappings, err := s.store.List(ctx, "org-1", "person-1")
	s.Require().NoError(err)
	s.Require().Len(mappings, 2)
	s.Equal("hr-system", mappings[0].TargetSystemID)

	s.Require().NoError(s.store.Delete(ctx, newKey("sis")))
	s.ErrorIs(s.store.Delete(ctx, newKey("sis")), sentinel.ErrNotFound)
}
