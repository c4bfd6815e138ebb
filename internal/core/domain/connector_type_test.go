package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectorType_RequiredKeys(t *testing.T) {
	ct := ConnectorType{
		ID: "stripe",
		ConfigKeys: []ConfigKey{
			{Key: KeyAPIKey, Required: true, Secret: true},
			{Key: "account", Required: false},
		},
	}

	assert.Equal(t, []string{KeyAPIKey}, ct.RequiredKeys())
	assert.True(t, ct.IsSecret(KeyAPIKey))
	assert.False(t, ct.IsSecret("account"))
	assert.False(t, ct.IsSecret("unknown"))
}

func TestWatchChannel_ExpiresWithin(t *testing.T) {
	var never WatchChannel
	assert.False(t, never.ExpiresWithin(0))
}
