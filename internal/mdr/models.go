// Package mdr is the metadata registry: the relational description of the
// canonical person schema. Entities hold attributes (leaves) and inclusions
// (nested entities); the query surfaces derive the set of queryable fragment
// paths from it.
package mdr

import (
	"fmt"

	"github.com/google/uuid"

	"lif/internal/lif/naming"
)

// Entity is one object type of the canonical schema.
type Entity struct {
	EntityID    string `json:"entity_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NewEntity validates and constructs an Entity. Names are normalized to
// camelCase so the same entity renders consistently on every surface.
func NewEntity(name, description string) (*Entity, error) {
	name = naming.ToCamel(name)
	if name == "" {
		return nil, fmt.Errorf("entity name is required")
	}
	return &Entity{
		EntityID:    uuid.NewString(),
		Name:        name,
		Description: description,
	}, nil
}

// Attribute is one scalar-valued leaf of an entity.
type Attribute struct {
	AttributeID string `json:"attribute_id"`
	EntityID    string `json:"entity_id"`
	Name        string `json:"name"`

	// SchemaType is the XSD-like external type name; ValueType() maps it to
	// the neutral enumeration.
	SchemaType  string `json:"schema_type"`
	Multivalued bool   `json:"multivalued"`
}

// NewAttribute validates and constructs an Attribute.
func NewAttribute(entityID, name, schemaType string, multivalued bool) (*Attribute, error) {
	name = naming.ToCamel(name)
	if name == "" {
		return nil, fmt.Errorf("attribute name is required")
	}
	if entityID == "" {
		return nil, fmt.Errorf("attribute entity id is required")
	}
	if schemaType == "" {
		schemaType = "xs:string"
	}
	return &Attribute{
		AttributeID: uuid.NewString(),
		EntityID:    entityID,
		Name:        name,
		SchemaType:  schemaType,
		Multivalued: multivalued,
	}, nil
}

// ValueType returns the neutral value type of the attribute.
func (a *Attribute) ValueType() naming.ValueType {
	return naming.ValueTypeFor(a.SchemaType)
}

// Inclusion nests one entity inside another under a field name.
type Inclusion struct {
	InclusionID    string `json:"inclusion_id"`
	ParentEntityID string `json:"parent_entity_id"`
	ChildEntityID  string `json:"child_entity_id"`
	Name           string `json:"name"`
	Multivalued    bool   `json:"multivalued"`
}

// NewInclusion validates and constructs an Inclusion.
func NewInclusion(parentEntityID, childEntityID, name string, multivalued bool) (*Inclusion, error) {
	name = naming.ToCamel(name)
	if name == "" {
		return nil, fmt.Errorf("inclusion name is required")
	}
	if parentEntityID == "" || childEntityID == "" {
		return nil, fmt.Errorf("inclusion parent and child entity ids are required")
	}
	if parentEntityID == childEntityID {
		return nil, fmt.Errorf("entity cannot include itself")
	}
	return &Inclusion{
		InclusionID:    uuid.NewString(),
		ParentEntityID: parentEntityID,
		ChildEntityID:  childEntityID,
		Name:           name,
		Multivalued:    multivalued,
	}, nil
}
