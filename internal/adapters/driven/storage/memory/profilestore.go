package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driven"
)

// Ensure ProfileStore implements the interface.
var _ driven.ProfileStore = (*ProfileStore)(nil)

type memProfile struct {
	config domain.ProfileConfig
	tokens *domain.Tokens
}

// ProfileStore is an in-memory implementation of driven.ProfileStore.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]map[string]*memProfile
	current  map[string]string
}

// NewProfileStore creates a new in-memory profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		profiles: make(map[string]map[string]*memProfile),
		current:  make(map[string]string),
	}
}

func validName(name string) error {
	if !domain.ValidProfileName(name) {
		return fmt.Errorf("%w %q: %w", domain.ErrInvalidProfileName, name, domain.ErrInvalidInput)
	}
	return nil
}

// get returns a profile, creating it when create is set (caller must hold lock).
func (s *ProfileStore) get(connector, name string, create bool) *memProfile {
	byName, ok := s.profiles[connector]
	if !ok {
		if !create {
			return nil
		}
		byName = make(map[string]*memProfile)
		s.profiles[connector] = byName
	}
	p, ok := byName[name]
	if !ok && create {
		p = &memProfile{config: domain.ProfileConfig{}}
		byName[name] = p
	}
	return p
}

// Create adds an empty profile.
func (s *ProfileStore) Create(connector, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.get(connector, name, false) != nil {
		return fmt.Errorf("profile %q: %w", name, domain.ErrAlreadyExists)
	}
	s.get(connector, name, true)
	return nil
}

// List returns the profiles sorted by name.
func (s *ProfileStore) List(connector string) ([]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	current := s.currentName(connector)
	var out []domain.Profile
	for name := range s.profiles[connector] {
		out = append(out, domain.Profile{Name: name, Connector: connector, Current: name == current})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Switch selects name as current.
func (s *ProfileStore) Switch(connector, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.get(connector, name, false) == nil {
		return fmt.Errorf("profile %q: %w", name, domain.ErrNotFound)
	}
	s.current[connector] = name
	return nil
}

// Delete removes a profile.
func (s *ProfileStore) Delete(connector, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.get(connector, name, false) == nil {
		return fmt.Errorf("profile %q: %w", name, domain.ErrNotFound)
	}
	delete(s.profiles[connector], name)
	if s.current[connector] == name {
		delete(s.current, connector)
	}
	return nil
}

// Current returns the selected profile.
func (s *ProfileStore) Current(connector string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentName(connector), nil
}

func (s *ProfileStore) currentName(connector string) string {
	if name, ok := s.current[connector]; ok {
		return name
	}
	return domain.DefaultProfile
}

// Exists reports whether a profile exists.
func (s *ProfileStore) Exists(connector, name string) (bool, error) {
	if err := validName(name); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(connector, name, false) != nil, nil
}

// LoadConfig returns a copy of the profile's config.
func (s *ProfileStore) LoadConfig(connector, name string) (domain.ProfileConfig, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.get(connector, name, false)
	if p == nil {
		return domain.ProfileConfig{}, nil
	}
	return p.config.Clone(), nil
}

// SaveConfig replaces the profile's config.
func (s *ProfileStore) SaveConfig(connector, name string, cfg domain.ProfileConfig) error {
	if err := validName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(connector, name, true).config = cfg.Clone()
	return nil
}

// LoadTokens returns the profile's tokens, or nil.
func (s *ProfileStore) LoadTokens(connector, name string) (*domain.Tokens, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.get(connector, name, false)
	if p == nil || p.tokens == nil {
		return nil, nil
	}
	t := *p.tokens
	return &t, nil
}

// SaveTokens replaces the profile's tokens.
func (s *ProfileStore) SaveTokens(connector, name string, tokens *domain.Tokens) error {
	if err := validName(name); err != nil {
		return err
	}
	if tokens == nil {
		return fmt.Errorf("save tokens: %w", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := *tokens
	s.get(connector, name, true).tokens = &t
	return nil
}

// DeleteTokens removes the profile's tokens.
func (s *ProfileStore) DeleteTokens(connector, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.get(connector, name, false); p != nil {
		p.tokens = nil
	}
	return nil
}

// Dir returns a pseudo path; nothing is written to disk.
func (s *ProfileStore) Dir(connector, name string) string {
	return ":memory:/" + connector + "/" + name
}
