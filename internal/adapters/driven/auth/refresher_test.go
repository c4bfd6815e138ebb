package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/connect-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

func tokenServer(t *testing.T, status int, body map[string]any) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func oauthConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}
}

func TestOAuthRefresher_RefreshPersistsTokens(t *testing.T) {
	srv, calls := tokenServer(t, http.StatusOK, map[string]any{
		"access_token": "new-access",
		"token_type":   "Bearer",
		"expires_in":   3600,
		"scope":        "drive email",
	})
	store := memory.NewProfileStore()
	require.NoError(t, store.SaveTokens("googledrive", "default", &domain.Tokens{
		AccessToken: "old", RefreshToken: "rt-1",
	}))

	r := NewOAuthRefresher(oauthConfig(srv.URL), store, "googledrive", "default", "")
	token, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new-access", token)
	assert.Equal(t, int32(1), calls.Load())

	saved, err := store.LoadTokens("googledrive", "default")
	require.NoError(t, err)
	assert.Equal(t, "new-access", saved.AccessToken)
	assert.Equal(t, "rt-1", saved.RefreshToken, "refresh token kept when not rotated")
	assert.Equal(t, []string{"drive", "email"}, saved.Scopes)
	assert.WithinDuration(t, time.Now().Add(time.Hour), saved.Expiry, time.Minute)
}

func TestOAuthRefresher_FallbackRefreshToken(t *testing.T) {
	srv, _ := tokenServer(t, http.StatusOK, map[string]any{
		"access_token": "a", "refresh_token": "rotated", "expires_in": 60,
	})
	store := memory.NewProfileStore()

	r := NewOAuthRefresher(oauthConfig(srv.URL), store, "notion", "default", "from-env")
	assert.True(t, r.CanRefresh())

	_, err := r.Refresh(context.Background())
	require.NoError(t, err)

	saved, err := store.LoadTokens("notion", "default")
	require.NoError(t, err)
	assert.Equal(t, "rotated", saved.RefreshToken)
}

func TestOAuthRefresher_NoRefreshToken(t *testing.T) {
	r := NewOAuthRefresher(oauthConfig("http://unused"), memory.NewProfileStore(), "notion", "default", "")

	assert.False(t, r.CanRefresh())
	_, err := r.Refresh(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoRefreshToken)
}

func TestOAuthRefresher_ProviderRejects(t *testing.T) {
	srv, _ := tokenServer(t, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
	store := memory.NewProfileStore()
	require.NoError(t, store.SaveTokens("googledrive", "default", &domain.Tokens{RefreshToken: "revoked"}))

	r := NewOAuthRefresher(oauthConfig(srv.URL), store, "googledrive", "default", "")
	_, err := r.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTokenRefreshFailed)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestOAuthRefresher_AccessToken(t *testing.T) {
	srv, calls := tokenServer(t, http.StatusOK, map[string]any{"access_token": "fresh", "expires_in": 3600})
	store := memory.NewProfileStore()
	r := NewOAuthRefresher(oauthConfig(srv.URL), store, "googledrive", "default", "")

	_, err := r.AccessToken(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	require.NoError(t, store.SaveTokens("googledrive", "default", &domain.Tokens{
		AccessToken: "valid", RefreshToken: "rt", Expiry: time.Now().Add(time.Hour),
	}))
	token, err := r.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "valid", token)
	assert.Equal(t, int32(0), calls.Load())

	require.NoError(t, store.SaveTokens("googledrive", "default", &domain.Tokens{
		AccessToken: "stale", RefreshToken: "rt", Expiry: time.Now().Add(time.Minute),
	}))
	token, err = r.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOAuthRefresher_WithRefreshingBearer(t *testing.T) {
	srv, calls := tokenServer(t, http.StatusOK, map[string]any{"access_token": "second", "expires_in": 3600})
	store := memory.NewProfileStore()
	require.NoError(t, store.SaveTokens("googledrive", "default", &domain.Tokens{AccessToken: "first", RefreshToken: "rt"}))

	bearer := rest.NewRefreshingBearer("first", NewOAuthRefresher(oauthConfig(srv.URL), store, "googledrive", "default", ""))
	token, err := bearer.Refresh(context.Background(), "first")
	require.NoError(t, err)
	assert.Equal(t, "second", token)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTokenConversions(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: expiry}

	stored := FromOAuth2(tok)
	assert.Equal(t, "a", stored.AccessToken)
	assert.Empty(t, stored.Scopes)

	back := ToOAuth2(stored)
	assert.Equal(t, tok.AccessToken, back.AccessToken)
	assert.Equal(t, tok.RefreshToken, back.RefreshToken)
	assert.True(t, back.Expiry.Equal(expiry))
}
