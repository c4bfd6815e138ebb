package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
)

func TestNewRateLimiter_KnownAndUnknownAPIs(t *testing.T) {
	for _, api := range []API{APIDrive, APIOAuth, API(99)} {
		assert.NotNil(t, NewRateLimiter(api))
	}
}

func TestGetUserInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ya29.tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"email":"ada@example.com","verified_email":true,"name":"Ada"}`))
	}))
	defer srv.Close()

	target, err := url.Parse(srv.URL)
	require.NoError(t, err)
	c := rest.New("",
		rest.WithAuth(rest.BearerToken("ya29.tok")),
		rest.WithHTTPClient(&http.Client{Transport: redirectTo{target}}),
	)

	info, err := GetUserInfo(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", info.Email)
	assert.True(t, info.VerifiedEmail)
}

// redirectTo sends every request to the test server, keeping the path.
type redirectTo struct{ u *url.URL }

func (r redirectTo) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = r.u.Scheme
	req.URL.Host = r.u.Host
	return http.DefaultTransport.RoundTrip(req)
}
