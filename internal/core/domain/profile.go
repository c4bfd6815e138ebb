package domain

import "regexp"

// DefaultProfile is the profile used when none has been selected.
const DefaultProfile = "default"

// Well-known profile configuration keys shared by connectors.
const (
	KeyAPIKey       = "api_key"
	KeyAccessToken  = "access_token"
	KeyClientID     = "client_id"
	KeyClientSecret = "client_secret"
	KeyRefreshToken = "refresh_token"
	KeyBaseURL      = "base_url"

	KeyServiceAccountKey     = "service_account_key"
	KeyServiceAccountSubject = "service_account_subject"
)

var profileNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidProfileName reports whether name can be used as a profile directory.
func ValidProfileName(name string) bool {
	return profileNamePattern.MatchString(name)
}

// ProfileConfig holds a profile's persisted key-value settings.
type ProfileConfig map[string]string

// Get returns the value for key, or empty string if unset.
func (c ProfileConfig) Get(key string) string {
	if c == nil {
		return ""
	}
	return c[key]
}

// Clone returns a copy of the config.
func (c ProfileConfig) Clone() ProfileConfig {
	out := make(ProfileConfig, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Profile is a named bundle of credentials and defaults for one connector.
// A resolved Profile is passed explicitly to every operation that needs
// credentials; nothing reads the "current" profile implicitly.
type Profile struct {
	// Name is the profile directory name.
	Name string `json:"name"`
	// Connector is the connector the profile belongs to (e.g. "notion").
	Connector string `json:"connector"`
	// Current is true if the profile is the connector's active profile.
	Current bool `json:"current"`
	// Config holds the profile's key-value settings.
	Config ProfileConfig `json:"config,omitempty"`
	// Tokens holds OAuth tokens, nil if none were saved.
	Tokens *Tokens `json:"-"`
}
