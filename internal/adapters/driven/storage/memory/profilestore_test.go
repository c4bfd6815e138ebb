package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

func TestProfileStore_Lifecycle(t *testing.T) {
	store := NewProfileStore()

	require.NoError(t, store.Create("notion", "work"))
	assert.ErrorIs(t, store.Create("notion", "work"), domain.ErrAlreadyExists)
	assert.ErrorIs(t, store.Create("notion", "bad name"), domain.ErrInvalidInput)

	require.NoError(t, store.Switch("notion", "work"))
	assert.ErrorIs(t, store.Switch("notion", "ghost"), domain.ErrNotFound)

	current, err := store.Current("notion")
	require.NoError(t, err)
	assert.Equal(t, "work", current)

	profiles, err := store.List("notion")
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.True(t, profiles[0].Current)

	require.NoError(t, store.Delete("notion", "work"))
	current, err = store.Current("notion")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultProfile, current)
}

func TestProfileStore_ConfigAndTokensAreCopied(t *testing.T) {
	store := NewProfileStore()

	cfg := domain.ProfileConfig{"api_key": "a"}
	require.NoError(t, store.SaveConfig("stripe", "default", cfg))
	cfg["api_key"] = "mutated"

	loaded, err := store.LoadConfig("stripe", "default")
	require.NoError(t, err)
	assert.Equal(t, "a", loaded.Get("api_key"))

	require.NoError(t, store.SaveTokens("stripe", "default", &domain.Tokens{AccessToken: "t"}))
	tokens, err := store.LoadTokens("stripe", "default")
	require.NoError(t, err)
	assert.Equal(t, "t", tokens.AccessToken)

	require.NoError(t, store.DeleteTokens("stripe", "default"))
	tokens, err = store.LoadTokens("stripe", "default")
	require.NoError(t, err)
	assert.Nil(t, tokens)
}
