package google

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
)

func apiErr(status int, code string) error {
	return fmt.Errorf("list files: %w", &rest.APIError{Connector: "googledrive", StatusCode: status, Code: code, Message: "boom"})
}

func TestWrapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unauthorised", apiErr(http.StatusUnauthorized, "authError"), ErrUnauthorized},
		{"forbidden", apiErr(http.StatusForbidden, "insufficientPermissions"), ErrForbidden},
		{"quota", apiErr(http.StatusForbidden, "userRateLimitExceeded"), ErrQuotaExceeded},
		{"not found", apiErr(http.StatusNotFound, "notFound"), ErrNotFound},
		{"rate limited", apiErr(http.StatusTooManyRequests, ""), ErrRateLimited},
		{"gone", apiErr(http.StatusGone, ""), ErrSyncTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := WrapError(tt.err)
			assert.ErrorIs(t, wrapped, tt.want)
			_, ok := rest.AsAPIError(wrapped)
			assert.True(t, ok, "APIError stays reachable")
		})
	}

	plain := errors.New("dial tcp: refused")
	assert.Same(t, plain, WrapError(plain))
	assert.NoError(t, WrapError(nil))
	server := apiErr(http.StatusInternalServerError, "backendError")
	assert.Equal(t, server, WrapError(server))
}

func TestClassifiers(t *testing.T) {
	quota := apiErr(http.StatusForbidden, "rateLimitExceeded")
	assert.True(t, IsQuotaExceeded(quota))
	assert.False(t, IsForbidden(quota))

	denied := apiErr(http.StatusForbidden, "insufficientFilePermissions")
	assert.True(t, IsForbidden(denied))
	assert.False(t, IsQuotaExceeded(denied))

	assert.True(t, IsSyncTokenExpired(apiErr(http.StatusGone, "")))
	assert.True(t, IsNotFound(ErrNotFound))
	assert.True(t, IsUnauthorized(apiErr(http.StatusUnauthorized, "")))
	assert.True(t, IsRateLimited(apiErr(http.StatusTooManyRequests, "")))
}

func TestErrorParser(t *testing.T) {
	body := []byte(`{"error":{"code":403,"message":"Rate limit","status":"PERMISSION_DENIED",
		"errors":[{"domain":"usageLimits","reason":"userRateLimitExceeded"}]}}`)
	code, msg := ErrorParser(http.StatusForbidden, body)
	assert.Equal(t, "userRateLimitExceeded", code)
	assert.Equal(t, "Rate limit", msg)

	code, msg = ErrorParser(http.StatusNotFound, []byte(`{"error":{"code":404,"message":"nope","status":"NOT_FOUND"}}`))
	assert.Equal(t, "NOT_FOUND", code)
	assert.Equal(t, "nope", msg)

	code, msg = ErrorParser(http.StatusBadRequest, []byte(`{"error":"invalid_grant","error_description":"Bad Request"}`))
	assert.Equal(t, "invalid_grant", code)
	assert.Equal(t, "Bad Request", msg)
}

func TestOAuthConfigDefaults(t *testing.T) {
	cfg := OAuthConfig("id", "secret", "http://127.0.0.1:8080/callback")
	assert.Equal(t, DefaultScopes, cfg.Scopes)
	assert.Equal(t, TokenURL, cfg.Endpoint.TokenURL)
	assert.Contains(t, cfg.Endpoint.AuthURL, "accounts.google.com")
}
