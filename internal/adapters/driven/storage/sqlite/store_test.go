package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

// ==================== Store Creation and Initialization Tests ====================

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, DatabaseFileName), store.Path())
	_, err = os.Stat(store.Path())
	assert.NoError(t, err)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestNewStore_ExplicitDatabaseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "drive.db")
	store, err := NewStore(path)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, path, store.Path())
}

func TestNewStore_ReopenKeepsDataAndSkipsMigrations(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveCheckpoint(ctx, domain.SyncCheckpoint{
		AccountID: "acct", Resource: "changes", Cursor: "42",
	}))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	cp, err := reopened.GetCheckpoint(ctx, "acct", "changes")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, "42", cp.Cursor)

	version, err := goose.GetDBVersionContext(ctx, reopened.db)
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)

	var applied int
	require.NoError(t, reopened.db.QueryRow(
		"SELECT COUNT(*) FROM goose_db_version WHERE version_id > 0").Scan(&applied))
	assert.Equal(t, 1, applied, "reopening must not apply migrations again")
}

func TestMigrations_DownRemovesTables(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, goose.DownToContext(ctx, store.db, ".", 0))

	var tables int
	require.NoError(t, store.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'sync_checkpoints'").Scan(&tables))
	assert.Zero(t, tables)
}

// ==================== Checkpoint Tests ====================

func TestCheckpoint_MissingReturnsNil(t *testing.T) {
	store := setupTestStore(t)

	cp, err := store.GetCheckpoint(context.Background(), "acct", "changes")
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestCheckpoint_SaveReplaces(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	second := first.Add(time.Hour)

	require.NoError(t, store.SaveCheckpoint(ctx, domain.SyncCheckpoint{
		AccountID: "acct", Resource: "changes", Cursor: "1", LastSyncedAt: first,
	}))
	require.NoError(t, store.SaveCheckpoint(ctx, domain.SyncCheckpoint{
		AccountID: "acct", Resource: "changes", Cursor: "2", LastSyncedAt: second,
	}))

	cp, err := store.GetCheckpoint(ctx, "acct", "changes")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, "2", cp.Cursor)
	assert.True(t, second.Equal(cp.LastSyncedAt))

	other, err := store.GetCheckpoint(ctx, "other", "changes")
	require.NoError(t, err)
	assert.Nil(t, other)
}

// ==================== Download Audit Tests ====================

func seedDownload(t *testing.T, store *Store, id, account string, started time.Time) {
	t.Helper()
	require.NoError(t, store.CreateDownload(context.Background(), domain.DownloadAudit{
		ID:          id,
		AccountID:   account,
		FileID:      "file-" + id,
		FileName:    id + ".txt",
		Destination: "/tmp/" + id + ".txt",
		Status:      domain.DownloadStarted,
		StartedAt:   started,
	}))
}

func TestDownloads_CreateFinishList(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)

	seedDownload(t, store, "a", "acct", base)
	seedDownload(t, store, "b", "acct", base.Add(time.Minute))
	seedDownload(t, store, "c", "other", base.Add(2*time.Minute))

	require.NoError(t, store.FinishDownload(ctx, "a", domain.DownloadCompleted, 128, ""))
	require.NoError(t, store.FinishDownload(ctx, "b", domain.DownloadFailed, 0, "boom"))

	all, err := store.ListDownloads(ctx, domain.DownloadFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	acct, err := store.ListDownloads(ctx, domain.DownloadFilter{AccountID: "acct"})
	require.NoError(t, err)
	require.Len(t, acct, 2)
	assert.Equal(t, domain.DownloadFailed, acct[0].Status)
	assert.Equal(t, "boom", acct[0].Error)
	assert.Equal(t, domain.DownloadCompleted, acct[1].Status)
	assert.Equal(t, int64(128), acct[1].Bytes)
	assert.False(t, acct[1].FinishedAt.IsZero())
	assert.True(t, base.Equal(acct[1].StartedAt))

	completed, err := store.ListDownloads(ctx, domain.DownloadFilter{Status: domain.DownloadCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "a", completed[0].ID)
}

func TestDownloads_LimitOffset(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	for i := range 5 {
		seedDownload(t, store, fmt.Sprintf("d%d", i), "acct", base.Add(time.Duration(i)*time.Minute))
	}

	page, err := store.ListDownloads(ctx, domain.DownloadFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "d3", page[0].ID)
	assert.Equal(t, "d2", page[1].ID)

	tail, err := store.ListDownloads(ctx, domain.DownloadFilter{Offset: 4})
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "d0", tail[0].ID)
}

func TestDownloads_DuplicateID(t *testing.T) {
	store := setupTestStore(t)
	seedDownload(t, store, "dup", "acct", time.Now())

	err := store.CreateDownload(context.Background(), domain.DownloadAudit{
		ID: "dup", AccountID: "acct", FileID: "f", Destination: "/tmp/x", Status: domain.DownloadStarted,
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestDownloads_FinishMissing(t *testing.T) {
	store := setupTestStore(t)

	err := store.FinishDownload(context.Background(), "missing", domain.DownloadCompleted, 1, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDownloads_PruneKeepsStartedAndRecent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)

	seedDownload(t, store, "old-done", "acct", old)
	seedDownload(t, store, "old-failed", "acct", old)
	seedDownload(t, store, "old-running", "acct", old)
	seedDownload(t, store, "new-done", "acct", time.Now())
	require.NoError(t, store.FinishDownload(ctx, "old-done", domain.DownloadCompleted, 1, ""))
	require.NoError(t, store.FinishDownload(ctx, "old-failed", domain.DownloadFailed, 0, "x"))
	require.NoError(t, store.FinishDownload(ctx, "new-done", domain.DownloadCompleted, 1, ""))

	removed, err := store.PruneDownloads(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	left, err := store.ListDownloads(ctx, domain.DownloadFilter{})
	require.NoError(t, err)
	ids := make([]string, 0, len(left))
	for _, a := range left {
		ids = append(ids, a.ID)
	}
	assert.ElementsMatch(t, []string{"old-running", "new-done"}, ids)
}

// ==================== Watch Channel Tests ====================

func TestChannels_SaveGetListDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond)

	later := domain.WatchChannel{
		ID: "ch-2", AccountID: "acct", ResourceID: "res-2", Token: "tok",
		Address: "https://example.com/hook", PageToken: "10", Expiration: now.Add(2 * time.Hour),
	}
	sooner := domain.WatchChannel{
		ID: "ch-1", AccountID: "acct", ResourceID: "res-1",
		Address: "https://example.com/hook", Expiration: now.Add(time.Hour), CreatedAt: now,
	}
	require.NoError(t, store.SaveChannel(ctx, later))
	require.NoError(t, store.SaveChannel(ctx, sooner))
	require.NoError(t, store.SaveChannel(ctx, domain.WatchChannel{
		ID: "ch-3", AccountID: "other", Address: "https://example.com/hook",
	}))

	got, err := store.GetChannel(ctx, "ch-2")
	require.NoError(t, err)
	assert.Equal(t, "res-2", got.ResourceID)
	assert.Equal(t, "tok", got.Token)
	assert.Equal(t, "10", got.PageToken)
	assert.True(t, later.Expiration.Equal(got.Expiration))
	assert.False(t, got.CreatedAt.IsZero())

	list, err := store.ListChannels(ctx, "acct")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "ch-1", list[0].ID)
	assert.Equal(t, "ch-2", list[1].ID)

	all, err := store.ListChannels(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, store.DeleteChannel(ctx, "ch-2"))
	require.NoError(t, store.DeleteChannel(ctx, "ch-2"))
	_, err = store.GetChannel(ctx, "ch-2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChannels_SaveUpdatesExisting(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	ch := domain.WatchChannel{ID: "ch", AccountID: "acct", Address: "https://a.example.com"}
	require.NoError(t, store.SaveChannel(ctx, ch))
	ch.Address = "https://b.example.com"
	require.NoError(t, store.SaveChannel(ctx, ch))

	got, err := store.GetChannel(ctx, "ch")
	require.NoError(t, err)
	assert.Equal(t, "https://b.example.com", got.Address)
}

// ==================== Drive Catalog Tests ====================

func TestDriveCatalog_UpsertListLastSynced(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	last, err := store.LastSynced(ctx, "acct")
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	synced := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertDrives(ctx, []domain.DriveCatalogEntry{
		{AccountID: "acct", DriveID: domain.MyDriveID, Name: "My Drive", Kind: domain.DriveKindMyDrive, Active: true, SyncedAt: synced},
		{AccountID: "acct", DriveID: "0AB", Name: "Finance", Kind: domain.DriveKindShared, Active: true, SyncedAt: synced},
		{AccountID: "acct", DriveID: "0CD", Name: "Archive", Kind: domain.DriveKindShared, Active: false, SyncedAt: synced},
	}))

	active, err := store.ListDrives(ctx, "acct", false)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Finance", active[0].Name)
	assert.Equal(t, "My Drive", active[1].Name)
	assert.Equal(t, domain.DriveKindShared, active[0].Kind)

	all, err := store.ListDrives(ctx, "acct", true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Archive", all[0].Name)
	assert.False(t, all[0].Active)

	last, err = store.LastSynced(ctx, "acct")
	require.NoError(t, err)
	assert.True(t, synced.Equal(last))

	// Reactivate and rename.
	require.NoError(t, store.UpsertDrives(ctx, []domain.DriveCatalogEntry{
		{AccountID: "acct", DriveID: "0CD", Name: "Old Archive", Kind: domain.DriveKindShared, Active: true, SyncedAt: synced},
	}))
	active, err = store.ListDrives(ctx, "acct", false)
	require.NoError(t, err)
	assert.Len(t, active, 3)
	assert.Equal(t, "Old Archive", active[2].Name)
}
