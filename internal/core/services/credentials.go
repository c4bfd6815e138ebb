package services

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driving"
)

// Ensure CredentialResolver implements the interface.
var _ driving.CredentialResolver = (*CredentialResolver)(nil)

// CredentialResolver layers environment variables over profile config.
// A variable named <PREFIX>_<KEY> overrides key; empty variables are ignored.
type CredentialResolver struct{}

// NewCredentialResolver creates a resolver reading the process environment.
func NewCredentialResolver() *CredentialResolver {
	return &CredentialResolver{}
}

// Resolve returns the effective config. Keys present only in the profile
// are kept as they are.
func (r *CredentialResolver) Resolve(ct domain.ConnectorType, profile domain.Profile) domain.ProfileConfig {
	v := viper.New()
	v.SetEnvPrefix(ct.EnvPrefix)

	settings := make(map[string]any, len(profile.Config))
	for k, val := range profile.Config {
		settings[k] = val
	}
	// MergeConfigMap cannot fail for a plain string map.
	_ = v.MergeConfigMap(settings)

	out := profile.Config.Clone()
	for _, key := range ct.ConfigKeys {
		_ = v.BindEnv(key.Key, r.EnvVar(ct, key.Key))
		if val := v.GetString(key.Key); val != "" {
			out[key.Key] = val
		}
	}
	return out
}

// EnvVar returns the environment variable overriding key.
func (r *CredentialResolver) EnvVar(ct domain.ConnectorType, key string) string {
	return strings.ToUpper(ct.EnvPrefix + "_" + key)
}
