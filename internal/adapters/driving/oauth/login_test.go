//nolint:noctx // Test file uses http.Get for convenience; context not required in tests
package oauth

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestLogin_PKCEFlow(t *testing.T) {
	var challenge string
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))

		sum := sha256.Sum256([]byte(r.PostForm.Get("code_verifier")))
		assert.Equal(t, challenge, base64.RawURLEncoding.EncodeToString(sum[:]))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "ya29.new",
			"refresh_token": "1//refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	defer tokenSrv.Close()

	cfg := &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.example.com/auth",
			TokenURL: tokenSrv.URL,
		},
		Scopes: []string{"drive"},
	}

	var out bytes.Buffer
	open := func(authURL string) error {
		u, err := url.Parse(authURL)
		require.NoError(t, err)
		q := u.Query()
		assert.Equal(t, "S256", q.Get("code_challenge_method"))
		assert.Equal(t, "offline", q.Get("access_type"))
		assert.Equal(t, "consent", q.Get("prompt"))
		challenge = q.Get("code_challenge")

		go func() {
			cb := q.Get("redirect_uri") + "?" + url.Values{"code": {"the-code"}, "state": {q.Get("state")}}.Encode()
			if resp, err := http.Get(cb); err == nil {
				resp.Body.Close()
			}
		}()
		return errors.New("no browser in tests")
	}

	token, err := Login(context.Background(), cfg, LoginOptions{Timeout: 5 * time.Second, Out: &out, Open: open})
	require.NoError(t, err)
	assert.Equal(t, "ya29.new", token.AccessToken)
	assert.Equal(t, "1//refresh", token.RefreshToken)
	assert.Contains(t, out.String(), "https://accounts.example.com/auth?")
	assert.Empty(t, cfg.RedirectURL, "caller's config must not be modified")
}

func TestLogin_RequiresClientID(t *testing.T) {
	_, err := Login(context.Background(), &oauth2.Config{}, LoginOptions{})
	assert.Error(t, err)
}

func TestLogin_Timeout(t *testing.T) {
	cfg := &oauth2.Config{ClientID: "c", Endpoint: oauth2.Endpoint{AuthURL: "https://a", TokenURL: "https://t"}}
	_, err := Login(context.Background(), cfg, LoginOptions{
		Timeout: 50 * time.Millisecond,
		Open:    func(string) error { return nil },
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}
