package driving

import "github.com/custodia-labs/connect-cli/internal/core/domain"

// ProfileService manages a connector's profiles and their configuration.
type ProfileService interface {
	// Create adds an empty profile.
	Create(connector, name string) error

	// List returns the profiles with the current one flagged.
	List(connector string) ([]domain.Profile, error)

	// Switch selects name as the current profile.
	Switch(connector, name string) error

	// Delete removes a profile.
	Delete(connector, name string) error

	// Current returns the current profile name.
	Current(connector string) (string, error)

	// Resolve loads a profile with its config and tokens. An empty name
	// resolves the current profile. A named profile other than the default
	// must exist.
	Resolve(connector, name string) (domain.Profile, error)

	// Ensure resolves a profile for writing, creating a named one that does
	// not exist.
	Ensure(connector, name string) (domain.Profile, error)

	// SetConfig sets one config key on a profile.
	SetConfig(connector, name, key, value string) error

	// UnsetConfig removes one config key from a profile.
	UnsetConfig(connector, name, key string) error
}

// CredentialResolver merges environment variables over a profile's config.
type CredentialResolver interface {
	// Resolve returns the effective config of profile for connector type ct.
	Resolve(ct domain.ConnectorType, profile domain.Profile) domain.ProfileConfig

	// EnvVar returns the environment variable that overrides key.
	EnvVar(ct domain.ConnectorType, key string) string
}

// ConnectorRegistry lists the supported connectors.
type ConnectorRegistry interface {
	// List returns every connector type sorted by ID.
	List() []domain.ConnectorType

	// Get returns a connector type. Returns domain.ErrUnsupportedType if unknown.
	Get(id string) (domain.ConnectorType, error)
}
