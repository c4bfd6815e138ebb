package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

// stripeServer serves a fake Stripe API and configures the default stripe
// profile in dir to use it.
func stripeServer(t *testing.T, dir string, handler http.HandlerFunc) {
	t.Helper()
	t.Setenv("STRIPE_API_KEY", "")
	t.Setenv("STRIPE_BASE_URL", "")
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	_, err := runCLI(t, dir, "stripe", "config", "set", "api_key", "sk_test_cli")
	require.NoError(t, err)
	_, err = runCLI(t, dir, "stripe", "config", "set", "base_url", srv.URL)
	require.NoError(t, err)
}

func writeStripeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestStripe_CustomersList(t *testing.T) {
	dir := t.TempDir()
	stripeServer(t, dir, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk_test_cli", r.Header.Get("Authorization"))
		assert.Equal(t, "/customers", r.URL.Path)
		assert.Equal(t, "ada@example.com", r.URL.Query().Get("email"))
		writeStripeJSON(w, http.StatusOK, map[string]any{
			"object":   "list",
			"has_more": false,
			"data": []map[string]any{
				{"id": "cus_1", "object": "customer", "email": "ada@example.com", "balance": -500, "currency": "usd"},
			},
		})
	})

	out, err := runCLI(t, dir, "-f", "table", "stripe", "customers", "list", "--email", "ada@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "cus_1")
	assert.Contains(t, out, "-5.00 USD")
}

func TestProfile_SwitchedProfileSuppliesCredential(t *testing.T) {
	dir := t.TempDir()
	stripeServer(t, dir, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk_test_profile", r.Header.Get("Authorization"))
		writeStripeJSON(w, http.StatusOK, map[string]any{
			"object": "list", "has_more": false,
			"data": []map[string]any{{"id": "cus_9", "object": "customer"}},
		})
	})
	baseURL, err := runCLI(t, dir, "stripe", "config", "get", "base_url")
	require.NoError(t, err)

	_, err = runCLI(t, dir, "stripe", "profile", "create", "test")
	require.NoError(t, err)
	_, err = runCLI(t, dir, "-p", "test", "stripe", "config", "set", "api_key", "sk_test_profile")
	require.NoError(t, err)
	_, err = runCLI(t, dir, "-p", "test", "stripe", "config", "set", "base_url", strings.TrimSpace(baseURL))
	require.NoError(t, err)
	_, err = runCLI(t, dir, "stripe", "profile", "switch", "test")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "-f", "json", "stripe", "customers", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "cus_9")

	data, err := os.ReadFile(filepath.Join(dir, "stripe", "profiles", "test", "config.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "sk_test_profile")
	data, err = os.ReadFile(filepath.Join(dir, "stripe", "profiles", "default", "config.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk_test_profile")
}

func TestStripe_CustomersListAllFollowsCursor(t *testing.T) {
	dir := t.TempDir()
	var calls int
	stripeServer(t, dir, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("starting_after") == "" {
			writeStripeJSON(w, http.StatusOK, map[string]any{
				"object": "list", "has_more": true,
				"data": []map[string]any{{"id": "cus_1", "object": "customer"}},
			})
			return
		}
		assert.Equal(t, "cus_1", r.URL.Query().Get("starting_after"))
		writeStripeJSON(w, http.StatusOK, map[string]any{
			"object": "list", "has_more": false,
			"data": []map[string]any{{"id": "cus_2", "object": "customer"}},
		})
	})

	out, err := runCLI(t, dir, "-f", "json", "stripe", "customers", "list", "--all")
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "cus_2", got[1]["id"])
	assert.Equal(t, 2, calls)
}

func TestStripe_CustomersGetNotFound(t *testing.T) {
	dir := t.TempDir()
	stripeServer(t, dir, func(w http.ResponseWriter, r *http.Request) {
		writeStripeJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]any{
				"code":    "resource_missing",
				"message": "No such customer: 'cus_x'",
				"type":    "invalid_request_error",
			},
		})
	})

	_, err := runCLI(t, dir, "stripe", "customers", "get", "cus_x")
	require.Error(t, err)
	assert.True(t, rest.IsNotFound(err))
}

func TestStripe_MissingKey(t *testing.T) {
	t.Setenv("STRIPE_API_KEY", "")
	_, err := runCLI(t, t.TempDir(), "stripe", "balance")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

func TestStripe_SubscriptionCreateNeedsItems(t *testing.T) {
	dir := t.TempDir()
	stripeServer(t, dir, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})

	_, err := runCLI(t, dir, "stripe", "subscriptions", "create", "--customer", "cus_1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
