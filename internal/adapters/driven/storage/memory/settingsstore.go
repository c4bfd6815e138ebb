package memory

import (
	"maps"
	"slices"
	"sync"

	"github.com/custodia-labs/connect-cli/internal/core/ports/driven"
)

// Ensure SettingsStore implements the interface.
var _ driven.SettingsStore = (*SettingsStore)(nil)

// SettingsStore holds settings in a map.
type SettingsStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewSettingsStore creates an empty store.
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{values: make(map[string]any)}
}

func (s *SettingsStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *SettingsStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *SettingsStore) Unset(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *SettingsStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.values))
}

// Path is empty: nothing is persisted.
func (s *SettingsStore) Path() string {
	return ""
}
