package google

import (
	"context"
	"fmt"
	"os"

	googleoauth "golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
)

var _ rest.Refresher = (*ServiceAccount)(nil)

// ServiceAccount mints access tokens from a service account key. Tokens
// live in memory only; a new one is signed whenever the old one is rejected.
type ServiceAccount struct {
	config *jwt.Config
}

// NewServiceAccount parses a JSON key. subject, when set, is the user the
// account impersonates through domain-wide delegation. No scopes means
// ScopeDrive.
func NewServiceAccount(key []byte, subject string, scopes ...string) (*ServiceAccount, error) {
	if len(scopes) == 0 {
		scopes = []string{ScopeDrive}
	}
	cfg, err := googleoauth.JWTConfigFromJSON(key, scopes...)
	if err != nil {
		return nil, fmt.Errorf("google: parse service account key: %w", err)
	}
	cfg.Subject = subject
	return &ServiceAccount{config: cfg}, nil
}

// LoadServiceAccount reads the key file at path.
func LoadServiceAccount(path, subject string, scopes ...string) (*ServiceAccount, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("google: read service account key: %w", err)
	}
	return NewServiceAccount(key, subject, scopes...)
}

// Email is the service account's address.
func (s *ServiceAccount) Email() string {
	return s.config.Email
}

// Refresh signs an assertion and exchanges it for an access token.
func (s *ServiceAccount) Refresh(ctx context.Context) (string, error) {
	tok, err := s.config.TokenSource(ctx).Token()
	if err != nil {
		return "", fmt.Errorf("google: service account token: %w", err)
	}
	return tok.AccessToken, nil
}
