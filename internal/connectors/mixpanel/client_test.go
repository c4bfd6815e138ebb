package mixpanel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

// newTestClient points all three hosts at one test server.
func newTestClient(t *testing.T, cfg Config, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	if cfg.Username == "" {
		cfg.Username = "sa.user"
		cfg.Secret = "sa-secret"
	}
	if cfg.ProjectID == "" {
		cfg.ProjectID = "123"
	}
	cfg.Hosts = Hosts{Ingest: srv.URL + "/ingest", Export: srv.URL + "/export", Query: srv.URL + "/query"}
	c, err := New(cfg, rest.WithRateLimiter(nil))
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	_, err = New(Config{Username: "u", Secret: "s", Region: "apac"})
	assert.ErrorIs(t, err, ErrUnknownRegion)
}

func TestHostsFor(t *testing.T) {
	us, err := HostsFor("")
	require.NoError(t, err)
	assert.Equal(t, "https://api.mixpanel.com", us.Ingest)

	eu, err := HostsFor("EU")
	require.NoError(t, err)
	assert.Equal(t, Hosts{
		Ingest: "https://api-eu.mixpanel.com",
		Export: "https://data-eu.mixpanel.com",
		Query:  "https://eu.mixpanel.com",
	}, eu)
}

func TestImport_BasicAuthAndStrict(t *testing.T) {
	var got []Event
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ingest/import", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("strict"))
		assert.Equal(t, "123", r.URL.Query().Get("project_id"))
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "sa.user", user)
		assert.Equal(t, "sa-secret", pass)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{"code": 200, "status": "OK", "num_records_imported": len(got)})
	}))

	res, err := c.Events.Import(context.Background(), []Event{
		{Event: "signup", Properties: map[string]any{"distinct_id": "u1", "time": 1700000000, "$insert_id": "a"}},
		{Event: "login", Properties: map[string]any{"distinct_id": "u1", "time": 1700000100, "$insert_id": "b"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.NumRecordsImported)
	require.Len(t, got, 2)
	assert.Equal(t, "login", got[1].Event)
}

func TestImport_BatchesLargeSlices(t *testing.T) {
	var sizes []int
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch []Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		sizes = append(sizes, len(batch))
		writeJSON(w, http.StatusOK, map[string]any{"code": 200, "status": "OK", "num_records_imported": len(batch)})
	}))

	events := make([]Event, MaxImportBatch+5)
	for i := range events {
		events[i] = Event{Event: "e", Properties: map[string]any{"distinct_id": strconv.Itoa(i)}}
	}
	res, err := c.Events.Import(context.Background(), events)
	require.NoError(t, err)
	assert.Equal(t, []int{MaxImportBatch, 5}, sizes)
	assert.Equal(t, MaxImportBatch+5, res.NumRecordsImported)
}

func TestImport_ErrorStatus(t *testing.T) {
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Invalid service account credentials", "status": "error"})
	}))

	_, err := c.Events.Import(context.Background(), []Event{{Event: "x"}})
	require.Error(t, err)
	assert.True(t, rest.IsUnauthorized(err))
	apiErr, _ := rest.AsAPIError(err)
	assert.Equal(t, "Invalid service account credentials", apiErr.Message)
}

func TestExport_DecodesJSONL(t *testing.T) {
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/export/api/2.0/export", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "2024-01-01", q.Get("from_date"))
		assert.Equal(t, `["signup"]`, q.Get("event"))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, `{"event":"signup","properties":{"distinct_id":"u1","time":1}}`)
		fmt.Fprintln(w, ``)
		fmt.Fprintln(w, `{"event":"signup","properties":{"distinct_id":"u2","time":2}}`)
	}))

	events, err := c.Events.Export(context.Background(), ExportParams{FromDate: "2024-01-01", ToDate: "2024-01-02", Events: []string{"signup"}})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "u2", events[1].Properties["distinct_id"])
}

func TestExport_MalformedLine(t *testing.T) {
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintln(w, `{"event":"ok","properties":{}}`)
		fmt.Fprintln(w, `{not json`)
	}))

	_, err := c.Events.Export(context.Background(), ExportParams{FromDate: "a", ToDate: "b"})
	var decodeErr *rest.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Contains(t, decodeErr.Error(), "line 2")

	_, err = c.Events.Export(context.Background(), ExportParams{})
	assert.Error(t, err)
}

func TestQuery_SegmentationAndTopEvents(t *testing.T) {
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "123", q.Get("project_id"))
		switch r.URL.Path {
		case "/query/api/query/segmentation":
			assert.Equal(t, "signup", q.Get("event"))
			assert.Equal(t, "day", q.Get("unit"))
			assert.False(t, q.Has("on"))
			writeJSON(w, http.StatusOK, map[string]any{
				"data": map[string]any{
					"series": []string{"2024-01-01"},
					"values": map[string]any{"signup": map[string]any{"2024-01-01": 7}},
				},
				"legend_size": 1,
			})
		case "/query/api/query/events/top":
			assert.Equal(t, "general", q.Get("type"))
			writeJSON(w, http.StatusOK, map[string]any{
				"events": []map[string]any{{"event": "login", "amount": 40, "percent_change": 0.5}},
				"type":   "general",
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	ctx := context.Background()

	seg, err := c.Query.Segmentation(ctx, SegmentationParams{Event: "signup", FromDate: "2024-01-01", ToDate: "2024-01-01", Unit: UnitDay})
	require.NoError(t, err)
	assert.Equal(t, 7.0, seg.Data.Values["signup"]["2024-01-01"])

	top, err := c.Query.TopEvents(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "login", top[0].Event)
}

func TestEngage_QueryAllPagesUntilShortPage(t *testing.T) {
	var forms []url.Values
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query/api/query/engage", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		form, err := url.ParseQuery(string(b))
		require.NoError(t, err)
		forms = append(forms, form)

		page, _ := strconv.Atoi(form.Get("page"))
		results := []map[string]any{{"$distinct_id": fmt.Sprintf("u%d-a", page)}, {"$distinct_id": fmt.Sprintf("u%d-b", page)}}
		if page == 1 {
			results = results[:1]
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"results": results, "page": page, "page_size": 2, "session_id": "sess-1", "status": "ok",
		})
	}))

	profiles, err := c.Engage.QueryAll(context.Background(), EngageParams{Where: `properties["plan"] == "pro"`})
	require.NoError(t, err)

	ids := make([]string, len(profiles))
	for i, p := range profiles {
		ids[i] = p.DistinctID
	}
	assert.Equal(t, []string{"u0-a", "u0-b", "u1-a"}, ids)
	require.Len(t, forms, 2)
	assert.Equal(t, `properties["plan"] == "pro"`, forms[0].Get("where"))
	assert.Empty(t, forms[0].Get("session_id"))
	assert.Equal(t, "sess-1", forms[1].Get("session_id"))
	assert.Equal(t, "1", forms[1].Get("page"))
}

func TestEngage_SetAndDelete(t *testing.T) {
	var updates [][]map[string]any
	c := newTestClient(t, Config{ProjectToken: "tok"}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ingest/engage", r.URL.Path)
		var u []map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&u))
		updates = append(updates, u)
		writeJSON(w, http.StatusOK, map[string]any{"status": 1, "error": nil})
	}))
	ctx := context.Background()

	require.NoError(t, c.Engage.Set(ctx, "u1", map[string]any{"plan": "pro"}))
	require.NoError(t, c.Engage.Delete(ctx, "u1"))

	require.Len(t, updates, 2)
	assert.Equal(t, map[string]any{"$token": "tok", "$distinct_id": "u1", "$set": map[string]any{"plan": "pro"}}, updates[0][0])
	assert.Equal(t, "", updates[1][0]["$delete"])
	assert.Equal(t, true, updates[1][0]["$ignore_alias"])

	noToken := newTestClient(t, Config{}, http.NotFoundHandler())
	assert.ErrorIs(t, noToken.Engage.Set(ctx, "u1", nil), ErrNoProjectToken)
}

func TestAnnotationsAndCohorts(t *testing.T) {
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/query/api/app/projects/123/annotations":
			writeJSON(w, http.StatusOK, map[string]any{"results": []map[string]any{{"id": 5, "date": "2024-01-01 00:00:00", "description": "launch"}}})
		case r.Method == http.MethodDelete && r.URL.Path == "/query/api/app/projects/123/annotations/5":
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPost && r.URL.Path == "/query/api/query/cohorts/list":
			writeJSON(w, http.StatusOK, []map[string]any{{"id": 9, "name": "Power users", "count": 120}})
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))
	ctx := context.Background()

	anns, err := c.Annotations.List(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, anns, 1)
	assert.Equal(t, "launch", anns[0].Description)
	require.NoError(t, c.Annotations.Delete(ctx, 5))

	cohorts, err := c.Cohorts.List(ctx)
	require.NoError(t, err)
	require.Len(t, cohorts, 1)
	assert.Equal(t, 120, cohorts[0].Count)
}
