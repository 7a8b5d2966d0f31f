package identity

import (
	"context"
)

// Store is the persistence contract for identity mappings. Implementations
// enforce the Key uniqueness tuple transactionally (insert-or-detect-conflict),
// never with application-level locking.
type Store interface {
	// Resolve returns the target-system person identifier for the key.
	// Returns sentinel.ErrNotFound (wrapped) when no mapping exists.
	Resolve(ctx context.Context, key Key) (string, error)

	// Register persists a mapping. Registering the identical tuple and value
	// again is a no-op; the same tuple with a different target person ID
	// returns sentinel.ErrConflict (wrapped).
	Register(ctx context.Context, mapping *Mapping) error

	// List returns all mappings for one canonical person, ordered by target
	// system then identifier type.
	List(ctx context.Context, organizationID, organizationPersonID string) ([]*Mapping, error)

	// Delete removes the mapping for the key. Deleting a missing mapping
	// returns sentinel.ErrNotFound (wrapped).
	Delete(ctx context.Context, key Key) error
}
