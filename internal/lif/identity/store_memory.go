package identity

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"lif/pkg/platform/sentinel"
)

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	mappings map[Key]*Mapping
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mappings: make(map[Key]*Mapping)}
}

func (s *MemoryStore) Resolve(_ context.Context, key Key) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mappings[key]
	if !ok {
		return "", fmt.Errorf("resolve mapping: %w", sentinel.ErrNotFound)
	}
	return m.TargetSystemPersonID, nil
}

func (s *MemoryStore) Register(_ context.Context, mapping *Mapping) error {
	if mapping == nil {
		return fmt.Errorf("mapping is required")
	}
	if err := mapping.Key.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.mappings[mapping.Key]; ok {
		if existing.TargetSystemPersonID == mapping.TargetSystemPersonID {
			return nil
		}
		return fmt.Errorf("register mapping for %s/%s: %w",
			mapping.TargetSystemID, mapping.TargetSystemPersonIDType, sentinel.ErrConflict)
	}

	copied := *mapping
	s.mappings[mapping.Key] = &copied
	return nil
}

func (s *MemoryStore) List(_ context.Context, organizationID, organizationPersonID string) ([]*Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Mapping
	for _, m := range s.mappings {
		if m.LIFOrganizationID == organizationID && m.LIFOrganizationPersonID == organizationPersonID {
			copied := *m
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TargetSystemID != out[j].TargetSystemID {
			return out[i].TargetSystemID < out[j].TargetSystemID
		}
		return out[i].TargetSystemPersonIDType < out[j].TargetSystemPersonIDType
	})
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mappings[key]; !ok {
		return fmt.Errorf("delete mapping: %w", sentinel.ErrNotFound)
	}
	delete(s.mappings, key)
	return nil
}
