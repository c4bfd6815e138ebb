package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/connect-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

func TestNewSettingsService(t *testing.T) {
	service := NewSettingsService(memory.NewSettingsStore())

	require.NotNil(t, service)
	assert.Empty(t, service.List())
}

func TestSettingsService_Set_UnknownKey(t *testing.T) {
	service := NewSettingsService(memory.NewSettingsStore())

	err := service.Set("search.mode", "hybrid")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_Set_OutputFormat(t *testing.T) {
	service := NewSettingsService(memory.NewSettingsStore())

	require.NoError(t, service.Set(KeyOutputFormat, "table"))
	assert.Equal(t, "table", service.OutputFormat())

	err := service.Set(KeyOutputFormat, "xml")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, "table", service.OutputFormat())
}

func TestSettingsService_BatchSize(t *testing.T) {
	store := memory.NewSettingsStore()
	service := NewSettingsService(store)

	assert.Equal(t, 3, service.BatchSize(3))

	require.NoError(t, service.Set(KeyBulkBatchSize, "10"))
	assert.Equal(t, 10, service.BatchSize(3))
	val, ok := store.Get(KeyBulkBatchSize)
	require.True(t, ok)
	assert.Equal(t, 10, val)

	assert.ErrorIs(t, service.Set(KeyBulkBatchSize, "0"), domain.ErrInvalidInput)
	assert.ErrorIs(t, service.Set(KeyBulkBatchSize, "ten"), domain.ErrInvalidInput)
}

func TestSettingsService_HTTPTimeout(t *testing.T) {
	service := NewSettingsService(memory.NewSettingsStore())

	assert.Equal(t, 30*time.Second, service.HTTPTimeout(30*time.Second))

	require.NoError(t, service.Set(KeyHTTPTimeout, "90s"))
	assert.Equal(t, 90*time.Second, service.HTTPTimeout(30*time.Second))

	assert.ErrorIs(t, service.Set(KeyHTTPTimeout, "soon"), domain.ErrInvalidInput)
	assert.ErrorIs(t, service.Set(KeyHTTPTimeout, "-1s"), domain.ErrInvalidInput)
}

func TestSettingsService_MixpanelRegion(t *testing.T) {
	service := NewSettingsService(memory.NewSettingsStore())

	assert.Equal(t, "us", service.String(KeyMixpanelRegion, "us"))
	require.NoError(t, service.Set(KeyMixpanelRegion, "eu"))
	assert.Equal(t, "eu", service.String(KeyMixpanelRegion, "us"))
	assert.ErrorIs(t, service.Set(KeyMixpanelRegion, "apac"), domain.ErrInvalidInput)
}

func TestSettingsService_ListAndUnset(t *testing.T) {
	service := NewSettingsService(memory.NewSettingsStore())

	require.NoError(t, service.Set(KeyMetaAPIVersion, "v19.0"))
	require.NoError(t, service.Set(KeyOutputFormat, "json"))

	assert.Equal(t, map[string]any{
		KeyMetaAPIVersion: "v19.0",
		KeyOutputFormat:   "json",
	}, service.List())

	require.NoError(t, service.Unset(KeyMetaAPIVersion))
	_, ok := service.Get(KeyMetaAPIVersion)
	assert.False(t, ok)
	require.NoError(t, service.Unset(KeyMetaAPIVersion))
}

func TestSettingsService_BatchSizeFromTOMLInteger(t *testing.T) {
	store := memory.NewSettingsStore()
	require.NoError(t, store.Set(KeyBulkBatchSize, int64(7)))

	assert.Equal(t, 7, NewSettingsService(store).BatchSize(3))
}

func TestSettingsService_IgnoresWrongTypes(t *testing.T) {
	store := memory.NewSettingsStore()
	require.NoError(t, store.Set(KeyOutputFormat, 42))
	require.NoError(t, store.Set(KeyBulkBatchSize, "many"))
	service := NewSettingsService(store)

	assert.Empty(t, service.OutputFormat())
	assert.Equal(t, 3, service.BatchSize(3))
	assert.Empty(t, service.Path())
}

func TestKnownSettings_AllValidated(t *testing.T) {
	for _, key := range KnownSettings() {
		_, ok := knownSettings[key]
		assert.True(t, ok, key)
	}
	assert.Len(t, KnownSettings(), len(knownSettings))
}
