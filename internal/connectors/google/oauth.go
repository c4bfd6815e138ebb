package google

import (
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
)

// OAuth scopes requested by the drive connector.
const (
	ScopeDrive     = "https://www.googleapis.com/auth/drive"
	ScopeUserEmail = "https://www.googleapis.com/auth/userinfo.email"
)

// DefaultScopes are requested at login when none are configured.
var DefaultScopes = []string{ScopeDrive, ScopeUserEmail}

// TokenURL is Google's OAuth token endpoint.
const TokenURL = "https://oauth2.googleapis.com/token"

// OAuthConfig returns the OAuth2 configuration for Google. An empty scope
// list uses DefaultScopes.
func OAuthConfig(clientID, clientSecret, redirectURL string, scopes ...string) *oauth2.Config {
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	endpoint := googleoauth.Endpoint
	endpoint.TokenURL = TokenURL
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
		Endpoint:     endpoint,
	}
}
