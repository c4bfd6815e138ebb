package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

func TestConnectorRegistry_List(t *testing.T) {
	registry := NewConnectorRegistry()

	types := registry.List()

	ids := make([]string, 0, len(types))
	for _, ct := range types {
		ids = append(ids, ct.ID)
	}
	assert.Equal(t, []string{
		ConnectorCloudflare, ConnectorGoogleDrive, ConnectorMetaAds,
		ConnectorMixpanel, ConnectorNotion, ConnectorStripe,
	}, ids)
}

func TestConnectorRegistry_Get(t *testing.T) {
	registry := NewConnectorRegistry()

	ct, err := registry.Get(ConnectorStripe)
	require.NoError(t, err)
	assert.Equal(t, "Stripe", ct.Name)
	assert.Equal(t, "STRIPE", ct.EnvPrefix)
	assert.Equal(t, domain.AuthMethodAPIKey, ct.AuthMethod)
	assert.Equal(t, []string{domain.KeyAPIKey}, ct.RequiredKeys())
	assert.True(t, ct.IsSecret(domain.KeyAPIKey))
	assert.False(t, ct.IsSecret(domain.KeyBaseURL))
}

func TestConnectorRegistry_Get_Unknown(t *testing.T) {
	registry := NewConnectorRegistry()

	_, err := registry.Get("salesforce")
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestConnectorRegistry_EveryConnectorHasEnvPrefix(t *testing.T) {
	for _, ct := range NewConnectorRegistry().List() {
		assert.NotEmpty(t, ct.EnvPrefix, ct.ID)
		assert.NotEmpty(t, ct.ConfigKeys, ct.ID)
	}
}

func TestConnectorRegistry_MixpanelRequiredKeys(t *testing.T) {
	ct, err := NewConnectorRegistry().Get(ConnectorMixpanel)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{domain.KeyAPIKey, "username", "project_id"}, ct.RequiredKeys())
	assert.Equal(t, domain.AuthMethodBasic, ct.AuthMethod)
}
