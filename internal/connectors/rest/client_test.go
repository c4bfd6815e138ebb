package rest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rtFunc lets tests stub the transport.
type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestClient_BuildURL(t *testing.T) {
	c := New("https://api.example.com/v1/")

	t.Run("joins base and path", func(t *testing.T) {
		got, err := c.buildURL("/pages/abc", nil)
		require.NoError(t, err)
		assert.Equal(t, "https://api.example.com/v1/pages/abc", got)
	})

	t.Run("drops empty query values", func(t *testing.T) {
		q := url.Values{}
		q.Set("limit", "10")
		q.Set("starting_after", "")
		got, err := c.buildURL("customers", q)
		require.NoError(t, err)
		assert.Equal(t, "https://api.example.com/v1/customers?limit=10", got)
	})

	t.Run("absolute URL used as is", func(t *testing.T) {
		got, err := c.buildURL("https://upload.example.com/files?uploadType=multipart", nil)
		require.NoError(t, err)
		assert.Equal(t, "https://upload.example.com/files?uploadType=multipart", got)
	})
}

func TestClient_AuthHeaders(t *testing.T) {
	tests := []struct {
		name   string
		auth   Authenticator
		header string
		want   string
	}{
		{"bearer", BearerToken("tok"), "Authorization", "Bearer tok"},
		{"basic", BasicAuth{Username: "user", Password: "pass"}, "Authorization", "Basic dXNlcjpwYXNz"},
		{"context header", HeaderAuth{Name: "Stripe-Account", Value: "acct_1"}, "Stripe-Account", "acct_1"},
		{
			"chain",
			ChainAuth{BearerToken("tok"), HeaderAuth{Name: "X-Extra", Value: "1"}},
			"X-Extra", "1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get(tt.header)
				w.WriteHeader(http.StatusNoContent)
			}))
			defer srv.Close()

			c := New(srv.URL, WithAuth(tt.auth))
			_, err := c.Do(context.Background(), Request{Path: "/"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_MissingCredentials(t *testing.T) {
	c := New("https://api.example.com", WithAuth(BearerToken("")))

	_, err := c.Do(context.Background(), Request{Path: "/x"})

	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestClient_Classification(t *testing.T) {
	t.Run("204 is empty", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		resp, err := New(srv.URL).Do(context.Background(), Request{Method: http.MethodDelete, Path: "/x"})
		require.NoError(t, err)
		assert.Equal(t, KindEmpty, resp.Kind)

		var out map[string]any
		require.NoError(t, resp.Decode(&out))
		assert.Nil(t, out)
	})

	t.Run("json content type is parsed", func(t *testing.T) {
		srv := httptest.NewServer(jsonHandler(http.StatusOK, `{"id":"abc"}`))
		defer srv.Close()

		resp, err := New(srv.URL).Do(context.Background(), Request{Path: "/x"})
		require.NoError(t, err)
		assert.Equal(t, KindJSON, resp.Kind)

		var out struct{ ID string }
		require.NoError(t, resp.Decode(&out))
		assert.Equal(t, "abc", out.ID)
	})

	t.Run("other content is raw text", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = io.WriteString(w, "{\"event\":\"a\"}\n{\"event\":\"b\"}\n")
		}))
		defer srv.Close()

		resp, err := New(srv.URL).Do(context.Background(), Request{Path: "/export"})
		require.NoError(t, err)
		assert.Equal(t, KindText, resp.Kind)
		assert.Contains(t, resp.Text(), `"event":"b"`)

		var out map[string]any
		err = resp.Decode(&out)
		var decErr *DecodeError
		require.ErrorAs(t, err, &decErr)
		assert.ErrorIs(t, err, ErrNotJSON)
	})
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(http.StatusNotFound,
		`{"object":"error","status":404,"code":"object_not_found","message":"Could not find page."}`))
	defer srv.Close()

	c := New(srv.URL, WithName("notion"))
	_, err := c.Do(context.Background(), Request{Path: "/pages/missing"})

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "object_not_found", apiErr.Code)
	assert.Equal(t, "Could not find page.", apiErr.Message)
	assert.Equal(t, http.MethodGet, apiErr.Method)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "notion: API error 404")
}

func TestClient_APIError_NonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Do(context.Background(), Request{Path: "/"})

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestClient_BodyEncoding(t *testing.T) {
	type captured struct {
		contentType string
		body        string
	}
	var got captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		got = captured{contentType: r.Header.Get("Content-Type"), body: string(data)}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ctx := context.Background()
	body := map[string]any{"a": map[string]any{"b": 1}, "c": []int{2, 3}}

	t.Run("json by default", func(t *testing.T) {
		_, err := New(srv.URL).Do(ctx, Request{Method: http.MethodPost, Path: "/", Body: body})
		require.NoError(t, err)
		assert.Equal(t, "application/json", got.contentType)
		assert.JSONEq(t, `{"a":{"b":1},"c":[2,3]}`, got.body)
	})

	t.Run("form when configured", func(t *testing.T) {
		c := New(srv.URL, WithEncoding(EncodingForm))
		_, err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/", Body: body})
		require.NoError(t, err)
		assert.Equal(t, "application/x-www-form-urlencoded", got.contentType)
		assert.Equal(t, "a[b]=1&c[0]=2&c[1]=3", got.body)
	})

	t.Run("raw with content type", func(t *testing.T) {
		_, err := New(srv.URL).Do(ctx, Request{
			Method:      http.MethodPost,
			Path:        "/",
			Body:        []byte("raw-bytes"),
			Encoding:    EncodingRaw,
			ContentType: "application/octet-stream",
		})
		require.NoError(t, err)
		assert.Equal(t, "application/octet-stream", got.contentType)
		assert.Equal(t, "raw-bytes", got.body)
	})
}

func TestDoJSON_DecodeError(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(http.StatusOK, `{"id": 42}`))
	defer srv.Close()

	type item struct {
		ID string `json:"id"`
	}
	_, err := DoJSON[item](context.Background(), New(srv.URL), Request{Path: "/"})

	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Contains(t, decErr.Target, "item")
}

func TestClient_TransportError(t *testing.T) {
	hc := &http.Client{Transport: rtFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})}
	c := New("https://api.example.com", WithHTTPClient(hc), WithName("stripe"))

	_, err := c.Do(context.Background(), Request{Path: "/v1/customers"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "stripe: GET")
	assert.Contains(t, err.Error(), "connection refused")
	_, ok := AsAPIError(err)
	assert.False(t, ok)
}

func TestClient_RateLimitedRecordsBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL, WithRateLimit(100, 10))
	_, err := c.Do(context.Background(), Request{Path: "/"})

	assert.True(t, IsRateLimited(err))
	assert.False(t, c.rateLimiter.Allow())
}

func TestClient_Metrics(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(http.StatusOK, `{}`))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	c := New(srv.URL, WithName("cloudflare"), WithMetrics(m))

	for i := 0; i < 3; i++ {
		_, err := c.Do(context.Background(), Request{Path: "/zones"})
		require.NoError(t, err)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.requests.WithLabelValues("cloudflare", "GET", "200")))
}

func TestRedact(t *testing.T) {
	got := redact("https://graph.example.com/oauth?access_token=secret&fields=id")
	assert.NotContains(t, got, "secret")
	assert.Contains(t, got, "fields=id")
}
