// Package auth provides OAuth token refresh and token file watching for
// profiles stored through driven.ProfileStore.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driven"
	"github.com/custodia-labs/connect-cli/internal/logger"
)

// Ensure OAuthRefresher implements rest.Refresher.
var _ rest.Refresher = (*OAuthRefresher)(nil)

// DefaultRefreshBuffer is how long before expiry a token is refreshed ahead.
const DefaultRefreshBuffer = 5 * time.Minute

// OAuthRefresher exchanges a profile's refresh token and persists the result
// to the profile's tokens.json.
type OAuthRefresher struct {
	config    *oauth2.Config
	store     driven.ProfileStore
	connector string
	profile   string
	// fallback is a refresh token from profile config or the environment,
	// used when tokens.json has none.
	fallback string

	mu            sync.Mutex
	refreshBuffer time.Duration
}

// NewOAuthRefresher creates a refresher for one profile.
func NewOAuthRefresher(
	config *oauth2.Config, store driven.ProfileStore, connector, profile, fallbackRefreshToken string,
) *OAuthRefresher {
	return &OAuthRefresher{
		config:        config,
		store:         store,
		connector:     connector,
		profile:       profile,
		fallback:      fallbackRefreshToken,
		refreshBuffer: DefaultRefreshBuffer,
	}
}

// CanRefresh reports whether a refresh token is available.
func (r *OAuthRefresher) CanRefresh() bool {
	if r.fallback != "" {
		return true
	}
	tokens, err := r.store.LoadTokens(r.connector, r.profile)
	return err == nil && tokens.HasRefreshToken()
}

// Refresh exchanges the refresh token for a new access token.
func (r *OAuthRefresher) Refresh(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tokens, err := r.store.LoadTokens(r.connector, r.profile)
	if err != nil {
		return "", fmt.Errorf("load tokens: %w", err)
	}
	refreshToken := r.fallback
	if tokens.HasRefreshToken() {
		refreshToken = tokens.RefreshToken
	}
	if refreshToken == "" {
		return "", domain.ErrNoRefreshToken
	}

	// An expired token makes the source go straight to the refresh grant.
	src := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)})
	tok, err := src.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return "", fmt.Errorf("%w: %s", domain.ErrTokenRefreshFailed, re.ErrorCode)
		}
		return "", fmt.Errorf("%w: %w", domain.ErrTokenRefreshFailed, err)
	}

	saved := FromOAuth2(tok)
	if saved.RefreshToken == "" {
		saved.RefreshToken = refreshToken
	}
	if err := r.store.SaveTokens(r.connector, r.profile, saved); err != nil {
		return "", fmt.Errorf("save refreshed tokens: %w", err)
	}
	logger.Debug("%s/%s: access token refreshed, expires %s", r.connector, r.profile, saved.Expiry.Format(time.RFC3339))
	return saved.AccessToken, nil
}

// AccessToken returns the stored access token, refreshing it first when it
// expires within the refresh buffer and a refresh token is available.
func (r *OAuthRefresher) AccessToken(ctx context.Context) (string, error) {
	tokens, err := r.store.LoadTokens(r.connector, r.profile)
	if err != nil {
		return "", fmt.Errorf("load tokens: %w", err)
	}
	if tokens != nil && tokens.AccessToken != "" && !tokens.ExpiresWithin(r.refreshBuffer) {
		return tokens.AccessToken, nil
	}
	if !r.CanRefresh() {
		if tokens != nil && tokens.AccessToken != "" {
			return tokens.AccessToken, nil
		}
		return "", domain.ErrAuthRequired
	}
	return r.Refresh(ctx)
}

// FromOAuth2 converts an oauth2 token to the stored form.
func FromOAuth2(tok *oauth2.Token) *domain.Tokens {
	t := &domain.Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	}
	if scope, ok := tok.Extra("scope").(string); ok && scope != "" {
		t.Scopes = strings.Fields(scope)
	}
	return t
}

// ToOAuth2 converts stored tokens to an oauth2 token.
func ToOAuth2(t *domain.Tokens) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
	}
}
