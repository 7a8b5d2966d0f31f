package mdr

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"lif/pkg/platform/sentinel"
)

// MemoryStore keeps the registry in process memory. It backs tests and
// deployments without a configured database.
type MemoryStore struct {
	mu         sync.RWMutex
	entities   map[string]*Entity    // by entity ID
	attributes map[string]*Attribute // by attribute ID
	inclusions map[string]*Inclusion // by inclusion ID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entities:   make(map[string]*Entity),
		attributes: make(map[string]*Attribute),
		inclusions: make(map[string]*Inclusion),
	}
}

func (s *MemoryStore) CreateEntity(_ context.Context, entity *Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entities {
		if existing.Name == entity.Name {
			return fmt.Errorf("entity %q: %w", entity.Name, sentinel.ErrConflict)
		}
	}
	copied := *entity
	s.entities[entity.EntityID] = &copied
	return nil
}

func (s *MemoryStore) GetEntity(_ context.Context, entityID string) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entity, ok := s.entities[entityID]
	if !ok {
		return nil, fmt.Errorf("entity %s: %w", entityID, sentinel.ErrNotFound)
	}
	copied := *entity
	return &copied, nil
}

func (s *MemoryStore) GetEntityByName(_ context.Context, name string) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, entity := range s.entities {
		if entity.Name == name {
			copied := *entity
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("entity %q: %w", name, sentinel.ErrNotFound)
}

func (s *MemoryStore) ListEntities(_ context.Context) ([]*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entity, 0, len(s.entities))
	for _, entity := range s.entities {
		copied := *entity
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) UpdateEntity(_ context.Context, entity *Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[entity.EntityID]; !ok {
		return fmt.Errorf("entity %s: %w", entity.EntityID, sentinel.ErrNotFound)
	}
	for _, existing := range s.entities {
		if existing.EntityID != entity.EntityID && existing.Name == entity.Name {
			return fmt.Errorf("entity %q: %w", entity.Name, sentinel.ErrConflict)
		}
	}
	copied := *entity
	s.entities[entity.EntityID] = &copied
	return nil
}

func (s *MemoryStore) DeleteEntity(_ context.Context, entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[entityID]; !ok {
		return fmt.Errorf("entity %s: %w", entityID, sentinel.ErrNotFound)
	}
	delete(s.entities, entityID)
	for id, attribute := range s.attributes {
		if attribute.EntityID == entityID {
			delete(s.attributes, id)
		}
	}
	for id, inclusion := range s.inclusions {
		if inclusion.ParentEntityID == entityID || inclusion.ChildEntityID == entityID {
			delete(s.inclusions, id)
		}
	}
	return nil
}

func (s *MemoryStore) AddAttribute(_ context.Context, attribute *Attribute) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[attribute.EntityID]; !ok {
		return fmt.Errorf("entity %s: %w", attribute.EntityID, sentinel.ErrNotFound)
	}
	for _, existing := range s.attributes {
		if existing.EntityID == attribute.EntityID && existing.Name == attribute.Name {
			return fmt.Errorf("attribute %q: %w", attribute.Name, sentinel.ErrConflict)
		}
	}
	copied := *attribute
	s.attributes[attribute.AttributeID] = &copied
	return nil
}

func (s *MemoryStore) ListAttributes(_ context.Context, entityID string) ([]*Attribute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Attribute
	for _, attribute := range s.attributes {
		if attribute.EntityID == entityID {
			copied := *attribute
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) DeleteAttribute(_ context.Context, attributeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attributes[attributeID]; !ok {
		return fmt.Errorf("attribute %s: %w", attributeID, sentinel.ErrNotFound)
	}
	delete(s.attributes, attributeID)
	return nil
}

func (s *MemoryStore) AddInclusion(_ context.Context, inclusion *Inclusion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[inclusion.ParentEntityID]; !ok {
		return fmt.Errorf("entity %s: %w", inclusion.ParentEntityID, sentinel.ErrNotFound)
	}
	if _, ok := s.entities[inclusion.ChildEntityID]; !ok {
		return fmt.Errorf("entity %s: %w", inclusion.ChildEntityID, sentinel.ErrNotFound)
	}
	for _, existing := range s.inclusions {
		if existing.ParentEntityID == inclusion.ParentEntityID && existing.Name == inclusion.Name {
			return fmt.Errorf("inclusion %q: %w", inclusion.Name, sentinel.ErrConflict)
		}
	}
	copied := *inclusion
	s.inclusions[inclusion.InclusionID] = &copied
	return nil
}

func (s *MemoryStore) ListInclusions(_ context.Context, parentEntityID string) ([]*Inclusion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Inclusion
	for _, inclusion := range s.inclusions {
		if inclusion.ParentEntityID == parentEntityID {
			copied := *inclusion
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) DeleteInclusion(_ context.Context, inclusionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inclusions[inclusionID]; !ok {
		return fmt.Errorf("inclusion %s: %w", inclusionID, sentinel.ErrNotFound)
	}
	delete(s.inclusions, inclusionID)
	return nil
}
