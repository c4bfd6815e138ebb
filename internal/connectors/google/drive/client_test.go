package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/connect-cli/internal/connectors/google"
	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

func newTestClient(t *testing.T, cfg Config, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	if cfg.AccessToken == "" && cfg.Refresher == nil {
		cfg.AccessToken = "ya29.test"
	}
	cfg.BaseURL = srv.URL + "/drive/v3"
	cfg.UploadURL = srv.URL + "/upload/drive/v3"
	c, err := New(cfg, rest.WithRateLimiter(nil))
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func googleError(w http.ResponseWriter, status int, reason, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": message,
			"errors":  []map[string]any{{"domain": "global", "reason": reason, "message": message}},
		},
	})
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	_, err = New(Config{Refresher: rest.RefresherFunc(func(context.Context) (string, error) { return "t", nil })})
	assert.NoError(t, err)
}

func TestFiles_ListQuery(t *testing.T) {
	tests := []struct {
		name   string
		params ListFilesParams
		want   map[string]string
		absent []string
	}{
		{
			name:   "defaults",
			params: ListFilesParams{},
			want: map[string]string{
				"pageSize":                  "100",
				"fields":                    DefaultFileFields,
				"supportsAllDrives":         "true",
				"includeItemsFromAllDrives": "true",
			},
			absent: []string{"q", "corpora", "driveId", "pageToken"},
		},
		{
			name:   "page size clamped high",
			params: ListFilesParams{PageSize: 5000},
			want:   map[string]string{"pageSize": "1000"},
		},
		{
			name:   "page size clamped low",
			params: ListFilesParams{PageSize: -3},
			want:   map[string]string{"pageSize": "1"},
		},
		{
			name:   "drive id implies drive corpora",
			params: ListFilesParams{DriveID: "0AB", MyDriveOnly: true},
			want:   map[string]string{"corpora": "drive", "driveId": "0AB", "supportsAllDrives": "true"},
		},
		{
			name:   "my drive only",
			params: ListFilesParams{MyDriveOnly: true},
			want:   map[string]string{"supportsAllDrives": "false", "includeItemsFromAllDrives": "false"},
		},
		{
			name:   "exclude folders prefixes the query",
			params: ListFilesParams{Query: "name contains 'x'", ExcludeFolders: true, Fields: []string{"id", "name"}},
			want: map[string]string{
				"q":      "mimeType != 'application/vnd.google-apps.folder' and name contains 'x'",
				"fields": "files(id,name),nextPageToken",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.params.query("")
			for k, v := range tt.want {
				assert.Equal(t, v, q.Get(k), k)
			}
			for _, k := range tt.absent {
				assert.Empty(t, q.Get(k), k)
			}
		})
	}
}

func TestFiles_ListAllFollowsPageTokens(t *testing.T) {
	var tokens []string
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/drive/v3/files", r.URL.Path)
		assert.Equal(t, "Bearer ya29.test", r.Header.Get("Authorization"))
		token := r.URL.Query().Get("pageToken")
		tokens = append(tokens, token)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{
				"files":         []map[string]any{{"id": "1", "name": "a.txt", "size": "12"}},
				"nextPageToken": "p2",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"files": []map[string]any{{"id": "2", "name": "b.txt"}}})
	}))

	files, err := c.Files.ListAll(context.Background(), ListFilesParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"", "p2"}, tokens)
	require.Len(t, files, 2)
	assert.Equal(t, int64(12), files[0].Size)
	assert.Equal(t, "b.txt", files[1].Name)
}

func TestFolderQuery(t *testing.T) {
	assert.Equal(t, "'abc' in parents and trashed = false", FolderQuery("abc"))
	assert.Equal(t, `'a\'b' in parents and trashed = false`, FolderQuery("a'b"))
}

func TestFiles_CreateFolder(t *testing.T) {
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Reports", body["name"])
		assert.Equal(t, MimeTypeFolder, body["mimeType"])
		assert.Equal(t, []any{"root-1"}, body["parents"])
		writeJSON(w, http.StatusOK, map[string]any{"id": "f1", "name": "Reports", "mimeType": MimeTypeFolder})
	}))

	f, err := c.Files.CreateFolder(context.Background(), "Reports", "root-1")
	require.NoError(t, err)
	assert.Equal(t, "f1", f.Id)

	_, err = c.Files.CreateFolder(context.Background(), "")
	assert.Error(t, err)
}

func TestFiles_UploadIsMultipartRelated(t *testing.T) {
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload/drive/v3/files", r.URL.Path)
		assert.Equal(t, "multipart", r.URL.Query().Get("uploadType"))

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/related", mediaType)

		mr := multipart.NewReader(r.Body, params["boundary"])
		meta, err := mr.NextPart()
		require.NoError(t, err)
		assert.Contains(t, meta.Header.Get("Content-Type"), "application/json")
		var m map[string]any
		require.NoError(t, json.NewDecoder(meta).Decode(&m))
		assert.Equal(t, "notes.txt", m["name"])

		media, err := mr.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "text/plain", media.Header.Get("Content-Type"))
		data, _ := io.ReadAll(media)
		assert.Equal(t, "hello drive", string(data))

		writeJSON(w, http.StatusOK, map[string]any{"id": "u1", "name": "notes.txt"})
	}))

	f, err := c.Files.Upload(context.Background(), "notes.txt", "text/plain", strings.NewReader("hello drive"))
	require.NoError(t, err)
	assert.Equal(t, "u1", f.Id)
}

func TestFiles_DownloadAndExport(t *testing.T) {
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/drive/v3/files/bin1":
			assert.Equal(t, "media", r.URL.Query().Get("alt"))
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write([]byte{0x00, 0x01, 0x02})
		case "/drive/v3/files/doc1/export":
			assert.Equal(t, ExportMimeText, r.URL.Query().Get("mimeType"))
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("exported"))
		default:
			googleError(w, http.StatusNotFound, "notFound", "File not found: "+r.URL.Path)
		}
	}))
	ctx := context.Background()

	var buf bytes.Buffer
	n, err := c.Files.Download(ctx, "bin1", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, []byte{0x00, 0x01, 0x02}, buf.Bytes())

	buf.Reset()
	_, err = c.Files.Export(ctx, "doc1", ExportMimeText, &buf)
	require.NoError(t, err)
	assert.Equal(t, "exported", buf.String())

	_, err = c.Files.Download(ctx, "missing", io.Discard)
	assert.True(t, google.IsNotFound(err))
	assert.ErrorIs(t, err, google.ErrNotFound)
}

func TestExportMimeType(t *testing.T) {
	assert.Equal(t, ExportMimeText, ExportMimeType(MimeTypeGoogleDoc))
	assert.Equal(t, ExportMimeCSV, ExportMimeType(MimeTypeGoogleSheet))
	assert.Equal(t, ExportMimePDF, ExportMimeType("application/vnd.google-apps.drawing"))
	assert.Empty(t, ExportMimeType("image/png"))
}

func TestChanges_ListAllReturnsNewStartToken(t *testing.T) {
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "drive", q.Get("spaces"))
		switch q.Get("pageToken") {
		case "100":
			writeJSON(w, http.StatusOK, map[string]any{
				"changes":       []map[string]any{{"fileId": "a", "changeType": "file"}},
				"nextPageToken": "101",
			})
		case "101":
			writeJSON(w, http.StatusOK, map[string]any{
				"changes":           []map[string]any{{"fileId": "b", "removed": true}},
				"newStartPageToken": "150",
			})
		default:
			t.Errorf("unexpected page token %q", q.Get("pageToken"))
		}
	}))

	changes, next, err := c.Changes.ListAll(context.Background(), "100", ListChangesParams{})
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.True(t, changes[1].Removed)
	assert.Equal(t, "150", next)
}

func TestChanges_ExpiredTokenIsSyncTokenExpired(t *testing.T) {
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		googleError(w, http.StatusGone, "badRequest", "Page token is no longer valid")
	}))

	_, err := c.Changes.List(context.Background(), "1", ListChangesParams{})
	require.Error(t, err)
	assert.ErrorIs(t, err, google.ErrSyncTokenExpired)
	assert.Equal(t, http.StatusGone, rest.StatusCode(err))
}

func TestChanges_WatchAndStop(t *testing.T) {
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body drive.Channel
		if r.Method == http.MethodPost {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		}
		switch r.URL.Path {
		case "/drive/v3/changes/startPageToken":
			writeJSON(w, http.StatusOK, map[string]any{"startPageToken": "42"})
		case "/drive/v3/changes/watch":
			assert.Equal(t, "42", r.URL.Query().Get("pageToken"))
			assert.Equal(t, "web_hook", body.Type)
			assert.Equal(t, "https://hooks.example.com/drive", body.Address)
			assert.Equal(t, "3600", body.Params["ttl"])
			writeJSON(w, http.StatusOK, map[string]any{
				"id": body.Id, "resourceId": "res-1", "expiration": "1700000000000",
			})
		case "/drive/v3/channels/stop":
			assert.Equal(t, "chan-1", body.Id)
			assert.Equal(t, "res-1", body.ResourceId)
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	ctx := context.Background()

	start, err := c.Changes.StartPageToken(ctx)
	require.NoError(t, err)

	ch, err := c.Changes.Watch(ctx, start, WatchRequest{ID: "chan-1", Address: "https://hooks.example.com/drive", TTLSeconds: 3600})
	require.NoError(t, err)
	assert.Equal(t, "res-1", ch.ResourceId)
	assert.Equal(t, int64(1700000000000), ch.Expiration)

	require.NoError(t, c.Channels.Stop(ctx, "chan-1", "res-1"))

	_, err = c.Changes.Watch(ctx, start, WatchRequest{ID: "x"})
	assert.Error(t, err)
}

func TestPermissions(t *testing.T) {
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("supportsAllDrives"))
		switch {
		case r.Method == http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]any{"permissions": []map[string]any{{"id": "p1", "role": "owner", "type": "user"}}})
		case r.Method == http.MethodPost:
			assert.Equal(t, "false", r.URL.Query().Get("sendNotificationEmail"))
			var p map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
			assert.Equal(t, map[string]any{"role": "reader", "type": "user", "emailAddress": "ada@example.com"}, p)
			writeJSON(w, http.StatusOK, map[string]any{"id": "p2", "role": "reader", "type": "user"})
		case r.Method == http.MethodPatch:
			assert.Equal(t, "/drive/v3/files/f1/permissions/p2", r.URL.Path)
			writeJSON(w, http.StatusOK, map[string]any{"id": "p2", "role": "writer"})
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	ctx := context.Background()

	perms, err := c.Permissions.List(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, perms, 1)

	created, err := c.Permissions.Create(ctx, "f1", &drive.Permission{Role: RoleReader, Type: GranteeUser, EmailAddress: "ada@example.com"}, false)
	require.NoError(t, err)
	assert.Equal(t, "p2", created.Id)

	updated, err := c.Permissions.Update(ctx, "f1", "p2", RoleWriter)
	require.NoError(t, err)
	assert.Equal(t, RoleWriter, updated.Role)

	require.NoError(t, c.Permissions.Delete(ctx, "f1", "p2"))

	_, err = c.Permissions.Create(ctx, "f1", &drive.Permission{Role: RoleReader, Type: GranteeUser}, false)
	assert.Error(t, err)
}

func TestDrives_ListAllClampsPageSize(t *testing.T) {
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("pageSize"))
		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(w, http.StatusOK, map[string]any{"drives": []map[string]any{{"id": "d1", "name": "Team"}}, "nextPageToken": "n"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"drives": []map[string]any{{"id": "d2", "name": "Ops"}}})
	}))

	drives, err := c.Drives.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, drives, 2)
	assert.Equal(t, "Ops", drives[1].Name)
}

func TestRefreshOn401UsesRefresher(t *testing.T) {
	var refreshes atomic.Int32
	refresher := rest.RefresherFunc(func(context.Context) (string, error) {
		refreshes.Add(1)
		return "fresh", nil
	})
	c := newTestClient(t, Config{AccessToken: "stale", Refresher: refresher}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			googleError(w, http.StatusUnauthorized, "authError", "Invalid Credentials")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "f1"})
	}))

	f, err := c.Files.Get(context.Background(), "f1", "id")
	require.NoError(t, err)
	assert.Equal(t, "f1", f.Id)
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, "fresh", c.Bearer().Token())
}

func TestAPI_DownloadFileExportsWorkspaceFiles(t *testing.T) {
	var paths []string
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("a,b\n"))
	}))
	api := c.API()
	ctx := context.Background()

	_, err := api.DownloadFile(ctx, &drive.File{Id: "sheet", MimeType: MimeTypeGoogleSheet}, io.Discard)
	require.NoError(t, err)
	_, err = api.DownloadFile(ctx, &drive.File{Id: "bin", MimeType: "image/png"}, io.Discard)
	require.NoError(t, err)
	_, err = api.DownloadFile(ctx, &drive.File{Id: "dir", MimeType: MimeTypeFolder}, io.Discard)
	assert.Error(t, err)

	assert.Equal(t, []string{"/drive/v3/files/sheet/export", "/drive/v3/files/bin"}, paths)
}
