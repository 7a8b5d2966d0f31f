//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// schema creates every table the integration suites touch.
const schema = `
CREATE TABLE IF NOT EXISTS lif_identity_mappings (
    mapping_id                   UUID PRIMARY KEY,
    lif_organization_id          TEXT NOT NULL,
    lif_organization_person_id   TEXT NOT NULL,
    target_system_id             TEXT NOT NULL,
    target_system_person_id_type TEXT NOT NULL,
    target_system_person_id      TEXT NOT NULL,
    UNIQUE (lif_organization_id, lif_organization_person_id,
            target_system_id, target_system_person_id_type)
);

CREATE TABLE IF NOT EXISTS mdr_entities (
    entity_id   UUID PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS mdr_attributes (
    attribute_id UUID PRIMARY KEY,
    entity_id    UUID NOT NULL REFERENCES mdr_entities (entity_id) ON DELETE CASCADE,
    name         TEXT NOT NULL,
    schema_type  TEXT NOT NULL,
    multivalued  BOOLEAN NOT NULL DEFAULT FALSE,
    UNIQUE (entity_id, name)
);

CREATE TABLE IF NOT EXISTS mdr_inclusions (
    inclusion_id     UUID PRIMARY KEY,
    parent_entity_id UUID NOT NULL REFERENCES mdr_entities (entity_id) ON DELETE CASCADE,
    child_entity_id  UUID NOT NULL REFERENCES mdr_entities (entity_id) ON DELETE CASCADE,
    name             TEXT NOT NULL,
    multivalued      BOOLEAN NOT NULL DEFAULT FALSE,
    UNIQUE (parent_entity_id, name)
);
`

// PostgresContainer wraps a testcontainers PostgreSQL instance.
type PostgresContainer struct {
	Container testcontainers.Container
	DB        *sql.DB
	DSN       string
}

// NewPostgresContainer starts a PostgreSQL container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("lif_test"),
		tcpostgres.WithUsername("lif"),
		tcpostgres.WithPassword("lif"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	// Not registered with t.Cleanup: the container is shared across suites
	// via the Manager. Ryuk handles cleanup.
	return &PostgresContainer{Container: container, DB: db, DSN: dsn}
}

// TruncateTables empties the named tables between tests.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	stmt := fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(tables, ", "))
	if _, err := p.DB.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}
