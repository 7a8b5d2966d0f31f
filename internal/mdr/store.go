package mdr

import "context"

// Store is the persistence contract for the metadata registry. Name
// uniqueness (entity name globally, attribute and inclusion names within
// their parent entity) is enforced by the backing store.
type Store interface {
	CreateEntity(ctx context.Context, entity *Entity) error
	GetEntity(ctx context.Context, entityID string) (*Entity, error)
	GetEntityByName(ctx context.Context, name string) (*Entity, error)
	ListEntities(ctx context.Context) ([]*Entity, error)
	UpdateEntity(ctx context.Context, entity *Entity) error

	// DeleteEntity removes the entity with its attributes and any
	// inclusions referencing it.
	DeleteEntity(ctx context.Context, entityID string) error

	AddAttribute(ctx context.Context, attribute *Attribute) error
	ListAttributes(ctx context.Context, entityID string) ([]*Attribute, error)
	DeleteAttribute(ctx context.Context, attributeID string) error

	AddInclusion(ctx context.Context, inclusion *Inclusion) error
	ListInclusions(ctx context.Context, parentEntityID string) ([]*Inclusion, error)
	DeleteInclusion(ctx context.Context, inclusionID string) error
}
