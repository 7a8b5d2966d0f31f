package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"lif/pkg/platform/sentinel"
)

// uniqueViolation is the PostgreSQL error code raised when the composite
// uniqueness constraint on the mapping tuple is violated.
const uniqueViolation = "23505"

// PostgresStore persists identity mappings in PostgreSQL.
//
// Expected table:
//
//	CREATE TABLE lif_identity_mappings (
//	    mapping_id                   UUID PRIMARY KEY,
//	    lif_organization_id          TEXT NOT NULL,
//	    lif_organization_person_id   TEXT NOT NULL,
//	    target_system_id             TEXT NOT NULL,
//	    target_system_person_id_type TEXT NOT NULL,
//	    target_system_person_id      TEXT NOT NULL,
//	    UNIQUE (lif_organization_id, lif_organization_person_id,
//	            target_system_id, target_system_person_id_type)
//	);
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed identity mapping store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Resolve(ctx context.Context, key Key) (string, error) {
	var targetID string
	err := s.db.QueryRowContext(ctx, `
		SELECT target_system_person_id
		FROM lif_identity_mappings
		WHERE lif_organization_id = $1
		  AND lif_organization_person_id = $2
		  AND target_system_id = $3
		  AND target_system_person_id_type = $4`,
		key.LIFOrganizationID, key.LIFOrganizationPersonID,
		key.TargetSystemID, key.TargetSystemPersonIDType,
	).Scan(&targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("resolve mapping: %w", sentinel.ErrNotFound)
		}
		return "", fmt.Errorf("resolve mapping: %w", err)
	}
	return targetID, nil
}

func (s *PostgresStore) Register(ctx context.Context, mapping *Mapping) error {
	if mapping == nil {
		return fmt.Errorf("mapping is required")
	}
	if err := mapping.Key.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lif_identity_mappings (
			mapping_id, lif_organization_id, lif_organization_person_id,
			target_system_id, target_system_person_id_type, target_system_person_id
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		mapping.MappingID, mapping.LIFOrganizationID, mapping.LIFOrganizationPersonID,
		mapping.TargetSystemID, mapping.TargetSystemPersonIDType, mapping.TargetSystemPersonID,
	)
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != uniqueViolation {
		return fmt.Errorf("register mapping: %w", err)
	}

	// The tuple exists. Idempotent when the value matches, conflict otherwise.
	existing, resolveErr := s.Resolve(ctx, mapping.Key)
	if resolveErr != nil {
		return fmt.Errorf("register mapping: %w", resolveErr)
	}
	if existing == mapping.TargetSystemPersonID {
		return nil
	}
	return fmt.Errorf("register mapping for %s/%s: %w",
		mapping.TargetSystemID, mapping.TargetSystemPersonIDType, sentinel.ErrConflict)
}

func (s *PostgresStore) List(ctx context.Context, organizationID, organizationPersonID string) ([]*Mapping, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mapping_id, lif_organization_id, lif_organization_person_id,
		       target_system_id, target_system_person_id_type, target_system_person_id
		FROM lif_identity_mappings
		WHERE lif_organization_id = $1 AND lif_organization_person_id = $2
		ORDER BY target_system_id, target_system_person_id_type`,
		organizationID, organizationPersonID,
	)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	defer rows.Close()

	var out []*Mapping
	for rows.Next() {
		var m Mapping
		if err := rows.Scan(
			&m.MappingID, &m.LIFOrganizationID, &m.LIFOrganizationPersonID,
			&m.TargetSystemID, &m.TargetSystemPersonIDType, &m.TargetSystemPersonID,
		); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, key Key) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM lif_identity_mappings
		WHERE lif_organization_id = $1
		  AND lif_organization_person_id = $2
		  AND target_system_id = $3
		  AND target_system_person_id_type = $4`,
		key.LIFOrganizationID, key.LIFOrganizationPersonID,
		key.TargetSystemID, key.TargetSystemPersonIDType,
	)
	if err != nil {
		return fmt.Errorf("delete mapping: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete mapping: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete mapping: %w", sentinel.ErrNotFound)
	}
	return nil
}
