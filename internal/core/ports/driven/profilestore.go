package driven

import "github.com/custodia-labs/connect-cli/internal/core/domain"

// ProfileStore persists named profiles per connector.
//
// Every method takes the connector ID; profiles of different connectors
// never interact. Implementations migrate legacy single-profile layouts on
// first access.
type ProfileStore interface {
	// Create adds an empty profile. Returns domain.ErrAlreadyExists if it exists
	// and domain.ErrInvalidProfileName for names outside [A-Za-z0-9_-].
	Create(connector, name string) error

	// List returns the connector's profiles sorted by name with the current
	// one flagged.
	List(connector string) ([]domain.Profile, error)

	// Switch makes name the current profile. Returns domain.ErrNotFound,
	// leaving the current profile untouched, when name does not exist.
	Switch(connector, name string) error

	// Delete removes a profile and its files. Deleting the current profile
	// clears the selection so that Current falls back to the default.
	Delete(connector, name string) error

	// Current returns the selected profile name, or domain.DefaultProfile.
	Current(connector string) (string, error)

	// Exists reports whether the profile directory exists.
	Exists(connector, name string) (bool, error)

	// LoadConfig returns the profile's config; a missing file yields an empty config.
	LoadConfig(connector, name string) (domain.ProfileConfig, error)

	// SaveConfig replaces the profile's config, creating the profile if needed.
	SaveConfig(connector, name string, cfg domain.ProfileConfig) error

	// LoadTokens returns the profile's tokens, or nil when none were saved.
	LoadTokens(connector, name string) (*domain.Tokens, error)

	// SaveTokens replaces the profile's tokens.
	SaveTokens(connector, name string, tokens *domain.Tokens) error

	// DeleteTokens removes the profile's tokens. Missing tokens are not an error.
	DeleteTokens(connector, name string) error

	// Dir returns the profile directory (watched by long-running servers).
	Dir(connector, name string) string
}
