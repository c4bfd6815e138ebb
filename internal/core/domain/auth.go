package domain

import "time"

// AuthMethod defines how a connector authenticates.
type AuthMethod string

const (
	// AuthMethodAPIKey uses a static API key or integration token.
	AuthMethodAPIKey AuthMethod = "api_key"
	// AuthMethodBasic uses HTTP basic credentials (service accounts).
	AuthMethodBasic AuthMethod = "basic"
	// AuthMethodOAuth uses OAuth 2.0 access and refresh tokens.
	AuthMethodOAuth AuthMethod = "oauth"
)

// Tokens represents stored OAuth credentials for a profile.
// Persisted as tokens.json next to the profile's config.json.
type Tokens struct {
	// AccessToken is the bearer token for API access.
	AccessToken string `json:"access_token"`
	// RefreshToken is used to obtain new access tokens.
	RefreshToken string `json:"refresh_token,omitempty"`
	// TokenType is typically "Bearer".
	TokenType string `json:"token_type,omitempty"`
	// Expiry is when the access token expires.
	Expiry time.Time `json:"expiry,omitempty"`
	// Scopes lists the granted scopes, if the provider reports them.
	Scopes []string `json:"scopes,omitempty"`
	// UpdatedAt is when the tokens were last written.
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// IsExpired returns true if the access token has expired.
// A zero expiry never expires.
func (t *Tokens) IsExpired() bool {
	if t == nil || t.Expiry.IsZero() {
		return false
	}
	return time.Now().After(t.Expiry)
}

// HasRefreshToken returns true if a refresh token is available.
func (t *Tokens) HasRefreshToken() bool {
	return t != nil && t.RefreshToken != ""
}

// ExpiresWithin reports whether the token expires within d.
func (t *Tokens) ExpiresWithin(d time.Duration) bool {
	if t == nil || t.Expiry.IsZero() {
		return false
	}
	return time.Until(t.Expiry) < d
}
