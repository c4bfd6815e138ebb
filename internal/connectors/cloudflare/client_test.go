package cloudflare

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

func newTestClient(t *testing.T, cfg Config, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	if cfg.APIToken == "" && cfg.APIKey == "" {
		cfg.APIToken = "cf-token"
	}
	cfg.BaseURL = srv.URL
	c, err := New(cfg, rest.WithRateLimiter(nil))
	require.NoError(t, err)
	return c
}

func writeEnvelope(w http.ResponseWriter, status int, env map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func ok(result any) map[string]any {
	return map[string]any{"success": true, "errors": []any{}, "messages": []any{}, "result": result}
}

func TestNew_Auth(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	_, err = New(Config{APIKey: "key-only"})
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
}

func TestAuthHeaders(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		expect map[string]string
	}{
		{
			name:   "api token",
			cfg:    Config{APIToken: "tok"},
			expect: map[string]string{"Authorization": "Bearer tok"},
		},
		{
			name: "legacy global key",
			cfg:  Config{Email: "ops@example.com", APIKey: "gk"},
			expect: map[string]string{
				HeaderAuthEmail: "ops@example.com",
				HeaderAuthKey:   "gk",
				"Authorization": "",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := http.Header{}
			c := newTestClient(t, tt.cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Clone()
				writeEnvelope(w, http.StatusOK, ok(map[string]any{"id": "t1", "status": "active"}))
			}))

			status, err := c.VerifyToken(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "active", status.Status)
			for k, v := range tt.expect {
				assert.Equal(t, v, got.Get(k), k)
			}
		})
	}
}

func TestEnvelope_UnsuccessfulOn2xxIsAPIError(t *testing.T) {
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]any{
			"success": false,
			"errors": []map[string]any{
				{"code": 1003, "message": "Invalid or missing zone id."},
				{"code": 1004, "message": "DNS Validation Error"},
			},
			"result": nil,
		})
	}))

	_, err := c.Zones.Get(context.Background(), "bad")
	require.Error(t, err)

	apiErr, isAPI := rest.AsAPIError(err)
	require.True(t, isAPI)
	assert.Equal(t, http.StatusOK, apiErr.StatusCode)
	assert.Equal(t, "1003", apiErr.Code)
	assert.Equal(t, "Invalid or missing zone id.; DNS Validation Error", apiErr.Message)
	assert.Equal(t, "cloudflare", apiErr.Connector)
	assert.Equal(t, "GET", apiErr.Method)
}

func TestEnvelope_HTTPErrorUsesFirstError(t *testing.T) {
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusForbidden, map[string]any{
			"success": false,
			"errors":  []map[string]any{{"code": 10000, "message": "Authentication error"}},
		})
	}))

	_, err := c.Accounts.ListAll(context.Background())
	require.Error(t, err)
	assert.True(t, rest.IsForbidden(err))
	apiErr, _ := rest.AsAPIError(err)
	assert.Equal(t, "10000", apiErr.Code)
	assert.Equal(t, "Authentication error", apiErr.Message)
}

func TestZones_ListAllWalksPages(t *testing.T) {
	var pages []string
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/zones", r.URL.Path)
		assert.Equal(t, "active", q.Get("status"))
		assert.Equal(t, "2", q.Get("per_page"))
		assert.False(t, q.Has("name"))
		pages = append(pages, q.Get("page"))

		env := ok([]map[string]any{{"id": "z" + q.Get("page") + "a"}, {"id": "z" + q.Get("page") + "b"}})
		if q.Get("page") == "3" {
			env = ok([]map[string]any{{"id": "z3a"}})
		}
		env["result_info"] = map[string]any{"per_page": 2, "total_pages": 3, "total_count": 5}
		writeEnvelope(w, http.StatusOK, env)
	}))

	zones, err := c.Zones.ListAll(context.Background(), ZoneListParams{Status: "active", PageParams: PageParams{PerPage: 2}})
	require.NoError(t, err)

	ids := make([]string, len(zones))
	for i, z := range zones {
		ids[i] = z.ID
	}
	assert.Equal(t, []string{"z1a", "z1b", "z2a", "z2b", "z3a"}, ids)
	assert.Equal(t, []string{"1", "2", "3"}, pages)
}

func TestResultInfo_HasNext(t *testing.T) {
	var nilInfo *ResultInfo
	assert.False(t, nilInfo.HasNext(1, 10))
	assert.True(t, (&ResultInfo{TotalPages: 2}).HasNext(1, 0))
	assert.False(t, (&ResultInfo{TotalPages: 2}).HasNext(2, 50))
	assert.True(t, (&ResultInfo{PerPage: 2}).HasNext(1, 2))
	assert.False(t, (&ResultInfo{PerPage: 2}).HasNext(1, 1))
}

func TestDNS_CreateAndPatch(t *testing.T) {
	var bodies []map[string]any
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		var m map[string]any
		require.NoError(t, json.Unmarshal(b, &m))
		bodies = append(bodies, m)
		writeEnvelope(w, http.StatusOK, ok(map[string]any{"id": "rec1", "name": "www.example.com", "type": "A", "content": "1.2.3.4"}))
	}))
	ctx := context.Background()

	proxied := true
	rec, err := c.DNS.Create(ctx, "zone1", DNSRecord{Type: "A", Name: "www", Content: "1.2.3.4", Proxied: &proxied, TTL: 1})
	require.NoError(t, err)
	assert.Equal(t, "rec1", rec.ID)

	content := "5.6.7.8"
	_, err = c.DNS.Patch(ctx, "zone1", "rec1", DNSRecordPatch{Content: &content})
	require.NoError(t, err)

	require.Len(t, bodies, 2)
	assert.Equal(t, map[string]any{"type": "A", "name": "www", "content": "1.2.3.4", "proxied": true, "ttl": float64(1)}, bodies[0])
	assert.Equal(t, map[string]any{"content": "5.6.7.8"}, bodies[1])

	_, err = c.DNS.Create(ctx, "zone1", DNSRecord{Type: "A"})
	assert.Error(t, err)
}

func TestCache_Purge(t *testing.T) {
	var bodies []string
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/zones/zone1/purge_cache", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		writeEnvelope(w, http.StatusOK, ok(map[string]any{"id": "zone1"}))
	}))
	ctx := context.Background()

	id, err := c.Cache.PurgeEverything(ctx, "zone1")
	require.NoError(t, err)
	assert.Equal(t, "zone1", id)

	_, err = c.Cache.Purge(ctx, "zone1", PurgeRequest{Tags: []string{"blog"}})
	require.NoError(t, err)

	_, err = c.Cache.Purge(ctx, "zone1", PurgeRequest{})
	assert.ErrorIs(t, err, ErrEmptyPurge)

	assert.Equal(t, []string{`{"purge_everything":true}`, `{"tags":["blog"]}`}, bodies)
}

func TestSettings_EditAndString(t *testing.T) {
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/zones/zone1/settings/ssl", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeEnvelope(w, http.StatusOK, ok(map[string]any{"id": "ssl", "value": body["value"], "editable": true}))
	}))

	s, err := c.Settings.Edit(context.Background(), "zone1", "ssl", ParseSettingValue("strict"))
	require.NoError(t, err)
	assert.Equal(t, "strict", s.String())

	assert.Equal(t, float64(30), ParseSettingValue("30"))
	assert.Equal(t, map[string]any{"enabled": true}, ParseSettingValue(`{"enabled":true}`))
}

func TestZones_CreateUsesDefaultAccount(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, Config{AccountID: "acc1"}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeEnvelope(w, http.StatusOK, ok(map[string]any{"id": "z1", "name": "example.com", "status": "pending"}))
	}))

	z, err := c.Zones.Create(context.Background(), ZoneCreateRequest{Name: "example.com"})
	require.NoError(t, err)
	assert.Equal(t, "pending", z.Status)
	assert.Equal(t, map[string]any{"id": "acc1"}, body["account"])
}
