// Package identity persists and resolves mappings between the canonical LIF
// person identity and target-system-specific person identifiers. The query
// service translates identifiers through this package before dispatch.
package identity

import (
	"fmt"

	"github.com/google/uuid"
)

// PersonIdentifier identifies a person within one information source's
// namespace. Immutable value type.
type PersonIdentifier struct {
	Identifier     string `json:"identifier"`
	IdentifierType string `json:"identifier_type"`
}

// NewPersonIdentifier validates and constructs a PersonIdentifier.
func NewPersonIdentifier(identifier, identifierType string) (PersonIdentifier, error) {
	if identifier == "" {
		return PersonIdentifier{}, fmt.Errorf("person identifier is required")
	}
	if identifierType == "" {
		return PersonIdentifier{}, fmt.Errorf("person identifier type is required")
	}
	return PersonIdentifier{Identifier: identifier, IdentifierType: identifierType}, nil
}

// IsZero returns true for the uninitialized identifier.
func (p PersonIdentifier) IsZero() bool {
	return p.Identifier == "" && p.IdentifierType == ""
}

// Key is the uniqueness tuple of an identity mapping.
type Key struct {
	LIFOrganizationID        string `json:"lif_organization_id"`
	LIFOrganizationPersonID  string `json:"lif_organization_person_id"`
	TargetSystemID           string `json:"target_system_id"`
	TargetSystemPersonIDType string `json:"target_system_person_id_type"`
}

// Validate rejects keys with missing components.
func (k Key) Validate() error {
	if k.LIFOrganizationID == "" || k.LIFOrganizationPersonID == "" ||
		k.TargetSystemID == "" || k.TargetSystemPersonIDType == "" {
		return fmt.Errorf("identity mapping key requires organization, person, target system and id type")
	}
	return nil
}

// Mapping links one canonical person to their identifier in one target
// system. Never mutated in place; replace-on-change.
//
// Invariant: the Key tuple is unique, enforced by the backing store.
type Mapping struct {
	MappingID string `json:"mapping_id"`
	Key
	TargetSystemPersonID string `json:"target_system_person_id"`
}

// NewMapping validates and constructs a Mapping, generating the mapping ID
// when the caller did not supply one.
func NewMapping(key Key, targetSystemPersonID string) (*Mapping, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if targetSystemPersonID == "" {
		return nil, fmt.Errorf("target system person id is required")
	}
	return &Mapping{
		MappingID:            uuid.NewString(),
		Key:                  key,
		TargetSystemPersonID: targetSystemPersonID,
	}, nil
}
