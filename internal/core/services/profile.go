package services

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driven"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driving"
)

// Ensure ProfileService implements the interface.
var _ driving.ProfileService = (*ProfileService)(nil)

// ProfileService manages profiles through a driven.ProfileStore.
type ProfileService struct {
	store    driven.ProfileStore
	registry driving.ConnectorRegistry
}

// NewProfileService creates a new profile service. Connector IDs are
// checked against registry.
func NewProfileService(store driven.ProfileStore, registry driving.ConnectorRegistry) *ProfileService {
	return &ProfileService{store: store, registry: registry}
}

func (s *ProfileService) check(connector string) error {
	_, err := s.registry.Get(connector)
	return err
}

// Create adds an empty profile.
func (s *ProfileService) Create(connector, name string) error {
	if err := s.check(connector); err != nil {
		return err
	}
	return s.store.Create(connector, name)
}

// List returns the connector's profiles.
func (s *ProfileService) List(connector string) ([]domain.Profile, error) {
	if err := s.check(connector); err != nil {
		return nil, err
	}
	return s.store.List(connector)
}

// Switch selects the current profile.
func (s *ProfileService) Switch(connector, name string) error {
	if err := s.check(connector); err != nil {
		return err
	}
	return s.store.Switch(connector, name)
}

// Delete removes a profile.
func (s *ProfileService) Delete(connector, name string) error {
	if err := s.check(connector); err != nil {
		return err
	}
	return s.store.Delete(connector, name)
}

// Current returns the current profile name.
func (s *ProfileService) Current(connector string) (string, error) {
	if err := s.check(connector); err != nil {
		return "", err
	}
	return s.store.Current(connector)
}

// Resolve loads the named profile, or the current one when name is empty.
// A named profile other than the default must exist.
func (s *ProfileService) Resolve(connector, name string) (domain.Profile, error) {
	if err := s.check(connector); err != nil {
		return domain.Profile{}, err
	}
	if name != "" && name != domain.DefaultProfile {
		ok, err := s.store.Exists(connector, name)
		if err != nil {
			return domain.Profile{}, err
		}
		if !ok {
			return domain.Profile{}, fmt.Errorf("%s profile %q: %w", connector, name, domain.ErrNotFound)
		}
	}
	return s.load(connector, name)
}

// Ensure is Resolve for commands that write to the profile: a named
// profile that does not exist yet is created first.
func (s *ProfileService) Ensure(connector, name string) (domain.Profile, error) {
	if err := s.check(connector); err != nil {
		return domain.Profile{}, err
	}
	if name != "" {
		if err := s.store.Create(connector, name); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
			return domain.Profile{}, err
		}
	}
	return s.load(connector, name)
}

func (s *ProfileService) load(connector, name string) (domain.Profile, error) {
	current, err := s.store.Current(connector)
	if err != nil {
		return domain.Profile{}, err
	}
	if name == "" {
		name = current
	}

	cfg, err := s.store.LoadConfig(connector, name)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("load %s profile %q: %w", connector, name, err)
	}
	tokens, err := s.store.LoadTokens(connector, name)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("load %s tokens for %q: %w", connector, name, err)
	}
	return domain.Profile{
		Name:      name,
		Connector: connector,
		Current:   name == current,
		Config:    cfg,
		Tokens:    tokens,
	}, nil
}

// SetConfig sets one key, creating a named profile that does not exist.
// Empty keys are rejected.
func (s *ProfileService) SetConfig(connector, name, key, value string) error {
	if key == "" {
		return fmt.Errorf("config key is required: %w", domain.ErrInvalidInput)
	}
	p, err := s.Ensure(connector, name)
	if err != nil {
		return err
	}
	cfg := p.Config.Clone()
	cfg[key] = value
	return s.store.SaveConfig(connector, p.Name, cfg)
}

// UnsetConfig removes one key. Missing keys are not an error.
func (s *ProfileService) UnsetConfig(connector, name, key string) error {
	p, err := s.Resolve(connector, name)
	if err != nil {
		return err
	}
	if _, ok := p.Config[key]; !ok {
		return nil
	}
	cfg := p.Config.Clone()
	delete(cfg, key)
	return s.store.SaveConfig(connector, p.Name, cfg)
}
