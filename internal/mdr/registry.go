package mdr

import (
	"context"
	"fmt"

	"lif/internal/lif/fragment"
	"lif/internal/lif/naming"
)

// Registry is the domain service over the metadata store: path derivation
// and whole-registry import/export.
type Registry struct {
	store Store
}

func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

func (r *Registry) Store() Store {
	return r.store
}

// FragmentPaths derives the queryable fragment path set from the registry:
// starting at the root person entity, attributes become leaf paths and
// inclusions recurse into their child entity. Inclusion cycles are walked
// once.
func (r *Registry) FragmentPaths(ctx context.Context) ([]fragment.Path, error) {
	root, err := r.store.GetEntityByName(ctx, fragment.Root)
	if err != nil {
		return nil, fmt.Errorf("registry has no %s entity: %w", fragment.Root, err)
	}

	visited := map[string]bool{root.EntityID: true}
	paths, err := r.walk(ctx, root, fragment.MustPath(fragment.Root), visited)
	if err != nil {
		return nil, err
	}
	return paths, nil
}

func (r *Registry) walk(ctx context.Context, entity *Entity, prefix fragment.Path, visited map[string]bool) ([]fragment.Path, error) {
	var out []fragment.Path

	attributes, err := r.store.ListAttributes(ctx, entity.EntityID)
	if err != nil {
		return nil, err
	}
	for _, attribute := range attributes {
		path, err := childPath(prefix, attribute.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, path)
	}

	inclusions, err := r.store.ListInclusions(ctx, entity.EntityID)
	if err != nil {
		return nil, err
	}
	for _, inclusion := range inclusions {
		path, err := childPath(prefix, inclusion.Name)
		if err != nil {
			return nil, err
		}
		if visited[inclusion.ChildEntityID] {
			// Cycle: expose the branch itself without recursing again.
			out = append(out, path)
			continue
		}

		child, err := r.store.GetEntity(ctx, inclusion.ChildEntityID)
		if err != nil {
			return nil, err
		}
		visited[child.EntityID] = true
		nested, err := r.walk(ctx, child, path, visited)
		if err != nil {
			return nil, err
		}
		delete(visited, child.EntityID)

		if len(nested) == 0 {
			// Empty child entities still expose the branch path.
			out = append(out, path)
			continue
		}
		out = append(out, nested...)
	}
	return out, nil
}

func childPath(prefix fragment.Path, name string) (fragment.Path, error) {
	path, err := fragment.NewPath(prefix.String() + "." + name)
	if err != nil {
		return fragment.Path{}, fmt.Errorf("derive path under %s: %w", prefix, err)
	}
	return path, nil
}

// Document is the import/export shape of the whole registry. Entities
// reference each other by name so documents survive regeneration of IDs.
type Document struct {
	Entities []EntityDocument `json:"entities"`
}

type EntityDocument struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Attributes  []AttributeDocument `json:"attributes,omitempty"`
	Inclusions  []InclusionDocument `json:"inclusions,omitempty"`
}

type AttributeDocument struct {
	Name        string `json:"name"`
	SchemaType  string `json:"schema_type,omitempty"`
	Multivalued bool   `json:"multivalued,omitempty"`
}

type InclusionDocument struct {
	Name        string `json:"name"`
	ChildEntity string `json:"child_entity"`
	Multivalued bool   `json:"multivalued,omitempty"`
}

// Import loads a registry document. Entities are created first so
// inclusions can reference children by name regardless of document order.
func (r *Registry) Import(ctx context.Context, doc Document) error {
	entityIDs := make(map[string]string, len(doc.Entities))
	for _, entityDoc := range doc.Entities {
		entity, err := NewEntity(entityDoc.Name, entityDoc.Description)
		if err != nil {
			return err
		}
		if err := r.store.CreateEntity(ctx, entity); err != nil {
			return err
		}
		entityIDs[entity.Name] = entity.EntityID
	}

	for _, entityDoc := range doc.Entities {
		parentID := entityIDs[naming.ToCamel(entityDoc.Name)]
		for _, attributeDoc := range entityDoc.Attributes {
			attribute, err := NewAttribute(parentID, attributeDoc.Name, attributeDoc.SchemaType, attributeDoc.Multivalued)
			if err != nil {
				return err
			}
			if err := r.store.AddAttribute(ctx, attribute); err != nil {
				return err
			}
		}
		for _, inclusionDoc := range entityDoc.Inclusions {
			childID, ok := entityIDs[naming.ToCamel(inclusionDoc.ChildEntity)]
			if !ok {
				return fmt.Errorf("inclusion %q references unknown entity %q",
					inclusionDoc.Name, inclusionDoc.ChildEntity)
			}
			inclusion, err := NewInclusion(parentID, childID, inclusionDoc.Name, inclusionDoc.Multivalued)
			if err != nil {
				return err
			}
			if err := r.store.AddInclusion(ctx, inclusion); err != nil {
				return err
			}
		}
	}
	return nil
}

// Export renders the whole registry as a document.
func (r *Registry) Export(ctx context.Context) (Document, error) {
	entities, err := r.store.ListEntities(ctx)
	if err != nil {
		return Document{}, err
	}

	names := make(map[string]string, len(entities))
	for _, entity := range entities {
		names[entity.EntityID] = entity.Name
	}

	doc := Document{Entities: make([]EntityDocument, 0, len(entities))}
	for _, entity := range entities {
		entityDoc := EntityDocument{Name: entity.Name, Description: entity.Description}

		attributes, err := r.store.ListAttributes(ctx, entity.EntityID)
		if err != nil {
			return Document{}, err
		}
		for _, attribute := range attributes {
			entityDoc.Attributes = append(entityDoc.Attributes, AttributeDocument{
				Name:        attribute.Name,
				SchemaType:  attribute.SchemaType,
				Multivalued: attribute.Multivalued,
			})
		}

		inclusions, err := r.store.ListInclusions(ctx, entity.EntityID)
		if err != nil {
			return Document{}, err
		}
		for _, inclusion := range inclusions {
			entityDoc.Inclusions = append(entityDoc.Inclusions, InclusionDocument{
				Name:        inclusion.Name,
				ChildEntity: names[inclusion.ChildEntityID],
				Multivalued: inclusion.Multivalued,
			})
		}
		doc.Entities = append(doc.Entities, entityDoc)
	}
	return doc, nil
}
