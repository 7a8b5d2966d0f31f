package mdr

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"lif/pkg/platform/sentinel"
)

// uniqueViolation is the PostgreSQL error code raised when a name
// uniqueness constraint is violated.
const uniqueViolation = "23505"

// PostgresStore persists the metadata registry in PostgreSQL across the
// mdr_entities, mdr_attributes and mdr_inclusions tables. Child rows cascade
// on entity deletion.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed registry store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateEntity(ctx context.Context, entity *Entity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mdr_entities (entity_id, name, description)
		VALUES ($1, $2, $3)`,
		entity.EntityID, entity.Name, entity.Description,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("entity %q: %w", entity.Name, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create entity: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetEntity(ctx context.Context, entityID string) (*Entity, error) {
	return s.scanEntity(s.db.QueryRowContext(ctx, `
		SELECT entity_id, name, description
		FROM mdr_entities WHERE entity_id = $1`, entityID))
}

func (s *PostgresStore) GetEntityByName(ctx context.Context, name string) (*Entity, error) {
	return s.scanEntity(s.db.QueryRowContext(ctx, `
		SELECT entity_id, name, description
		FROM mdr_entities WHERE name = $1`, name))
}

func (s *PostgresStore) scanEntity(row *sql.Row) (*Entity, error) {
	var e Entity
	if err := row.Scan(&e.EntityID, &e.Name, &e.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get entity: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get entity: %w", err)
	}
	return &e, nil
}

func (s *PostgresStore) ListEntities(ctx context.Context) ([]*Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_id, name, description
		FROM mdr_entities ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var out []*Entity
	for rows.Next() {
		var e Entity
		if err := rows.Scan(&e.EntityID, &e.Name, &e.Description); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateEntity(ctx context.Context, entity *Entity) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE mdr_entities SET name = $2, description = $3
		WHERE entity_id = $1`,
		entity.EntityID, entity.Name, entity.Description,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("entity %q: %w", entity.Name, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("update entity: %w", err)
	}
	return requireAffected(res, "update entity")
}

func (s *PostgresStore) DeleteEntity(ctx context.Context, entityID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM mdr_entities WHERE entity_id = $1`, entityID)
	if err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	return requireAffected(res, "delete entity")
}

func (s *PostgresStore) AddAttribute(ctx context.Context, attribute *Attribute) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mdr_attributes (attribute_id, entity_id, name, schema_type, multivalued)
		VALUES ($1, $2, $3, $4, $5)`,
		attribute.AttributeID, attribute.EntityID, attribute.Name,
		attribute.SchemaType, attribute.Multivalued,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("attribute %q: %w", attribute.Name, sentinel.ErrConflict)
	}
	if isForeignKeyViolation(err) {
		return fmt.Errorf("entity %s: %w", attribute.EntityID, sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("add attribute: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAttributes(ctx context.Context, entityID string) ([]*Attribute, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT attribute_id, entity_id, name, schema_type, multivalued
		FROM mdr_attributes WHERE entity_id = $1 ORDER BY name`, entityID)
	if err != nil {
		return nil, fmt.Errorf("list attributes: %w", err)
	}
	defer rows.Close()

	var out []*Attribute
	for rows.Next() {
		var a Attribute
		if err := rows.Scan(&a.AttributeID, &a.EntityID, &a.Name, &a.SchemaType, &a.Multivalued); err != nil {
			return nil, fmt.Errorf("scan attribute: %w", err)
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attributes: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteAttribute(ctx context.Context, attributeID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM mdr_attributes WHERE attribute_id = $1`, attributeID)
	if err != nil {
		return fmt.Errorf("delete attribute: %w", err)
	}
	return requireAffected(res, "delete attribute")
}

func (s *PostgresStore) AddInclusion(ctx context.Context, inclusion *Inclusion) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mdr_inclusions (inclusion_id, parent_entity_id, child_entity_id, name, multivalued)
		VALUES ($1, $2, $3, $4, $5)`,
		inclusion.InclusionID, inclusion.ParentEntityID, inclusion.ChildEntityID,
		inclusion.Name, inclusion.Multivalued,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("inclusion %q: %w", inclusion.Name, sentinel.ErrConflict)
	}
	if isForeignKeyViolation(err) {
		return fmt.Errorf("inclusion entities: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("add inclusion: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListInclusions(ctx context.Context, parentEntityID string) ([]*Inclusion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT inclusion_id, parent_entity_id, child_entity_id, name, multivalued
		FROM mdr_inclusions WHERE parent_entity_id = $1 ORDER BY name`, parentEntityID)
	if err != nil {
		return nil, fmt.Errorf("list inclusions: %w", err)
	}
	defer rows.Close()

	var out []*Inclusion
	for rows.Next() {
		var inc Inclusion
		if err := rows.Scan(&inc.InclusionID, &inc.ParentEntityID, &inc.ChildEntityID, &inc.Name, &inc.Multivalued); err != nil {
			return nil, fmt.Errorf("scan inclusion: %w", err)
		}
		out = append(out, &inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list inclusions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteInclusion(ctx context.Context, inclusionID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM mdr_inclusions WHERE inclusion_id = $1`, inclusionID)
	if err != nil {
		return fmt.Errorf("delete inclusion: %w", err)
	}
	return requireAffected(res, "delete inclusion")
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

// foreignKeyViolation is the PostgreSQL error code for a missing referenced
// row.
const foreignKeyViolation = "23503"

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == foreignKeyViolation
}

func requireAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, sentinel.ErrNotFound)
	}
	return nil
}
