package portals

import (
	"fmt"
	"slices"
	"sync"
)

// EntityID identifies an entity or a store owner. Ids are assigned by the
// host and never reused.
type EntityID string

// Store is a persistent per-owner property bag. Values are strings, float64
// numbers or booleans; integers are accepted and normalised to float64.
//
// Writes to different keys are independent. Callers must tolerate a subset of
// a multi-key update being applied.
type Store interface {
	// Property returns the value stored under key for owner.
	Property(owner EntityID, key string) (any, bool)
	// SetProperty stores value under key for owner.
	SetProperty(owner EntityID, key string, value any) error
	// DeleteProperty removes key for owner. Missing keys are not an error.
	DeleteProperty(owner EntityID, key string) error
	// PropertyKeys returns the keys stored for owner.
	PropertyKeys(owner EntityID) []string
	// ClearProperties removes every key for owner.
	ClearProperties(owner EntityID) error
	// Owners returns every owner with at least one key, in a stable order.
	Owners() []EntityID
}

// MemoryStore is a map backed Store.
type MemoryStore struct {
	mu    sync.RWMutex
	props map[EntityID]map[string]any
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{props: make(map[EntityID]map[string]any)}
}

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// Property implements Store.
func (s *MemoryStore) Property(owner EntityID, key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.props[owner][key]
	return v, ok
}

// SetProperty implements Store.
func (s *MemoryStore) SetProperty(owner EntityID, key string, value any) error {
	v, ok := NormalizeValue(value)
	if !ok {
		return fmt.Errorf("set %s on %s: %w (%T)", key, owner, ErrUnsupportedValue, value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	bag, ok := s.props[owner]
	if !ok {
		bag = make(map[string]any)
		s.props[owner] = bag
	}
	bag[key] = v
	return nil
}

// DeleteProperty implements Store.
func (s *MemoryStore) DeleteProperty(owner EntityID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bag, ok := s.props[owner]
	if !ok {
		return nil
	}
	delete(bag, key)
	if len(bag) == 0 {
		delete(s.props, owner)
	}
	return nil
}

// PropertyKeys implements Store.
func (s *MemoryStore) PropertyKeys(owner EntityID) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.props[owner]))
	for k := range s.props[owner] {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ClearProperties implements Store.
func (s *MemoryStore) ClearProperties(owner EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.props, owner)
	return nil
}

// Owners implements Store.
func (s *MemoryStore) Owners() []EntityID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owners := make([]EntityID, 0, len(s.props))
	for o := range s.props {
		owners = append(owners, o)
	}
	slices.Sort(owners)
	return owners
}

// Len returns the number of owners in the store.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.props)
}
