package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/connect-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

func TestDownloadService_Download_ToDirectory(t *testing.T) {
	api := newFakeDriveAPI()
	api.addFile("f1", "report.txt", "hello drive")
	store := memory.NewDriveStateStore()
	service := NewDownloadService(api, store)
	dir := t.TempDir()

	audit, err := service.Download(context.Background(), "acct", "f1", dir)
	require.NoError(t, err)

	dest := filepath.Join(dir, "report.txt")
	assert.Equal(t, dest, audit.Destination)
	assert.Equal(t, domain.DownloadCompleted, audit.Status)
	assert.Equal(t, int64(len("hello drive")), audit.Bytes)
	assert.Equal(t, "report.txt", audit.FileName)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "hello drive", string(data))

	history, err := service.History(context.Background(), domain.DownloadFilter{AccountID: "acct"})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, audit.ID, history[0].ID)
	assert.Equal(t, domain.DownloadCompleted, history[0].Status)
}

func TestDownloadService_Download_ToFilePath(t *testing.T) {
	api := newFakeDriveAPI()
	api.addFile("f1", "report.txt", "content")
	service := NewDownloadService(api, memory.NewDriveStateStore())
	dest := filepath.Join(t.TempDir(), "nested", "renamed.txt")

	audit, err := service.Download(context.Background(), "acct", "f1", dest)
	require.NoError(t, err)

	assert.Equal(t, dest, audit.Destination)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestDownloadService_Download_FailureIsAudited(t *testing.T) {
	api := newFakeDriveAPI()
	api.addFile("f1", "big.bin", "0123456789")
	api.dlErr = errors.New("connection reset")
	store := memory.NewDriveStateStore()
	service := NewDownloadService(api, store)
	dir := t.TempDir()

	audit, err := service.Download(context.Background(), "acct", "f1", dir)
	require.Error(t, err)
	require.NotNil(t, audit)

	assert.Equal(t, domain.DownloadFailed, audit.Status)
	assert.Equal(t, "connection reset", audit.Error)

	// No partial file is left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	history, err := service.History(context.Background(), domain.DownloadFilter{Status: domain.DownloadFailed})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "connection reset", history[0].Error)
}

func TestDownloadService_Download_UnknownFile(t *testing.T) {
	store := memory.NewDriveStateStore()
	service := NewDownloadService(newFakeDriveAPI(), store)

	_, err := service.Download(context.Background(), "acct", "missing", t.TempDir())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	history, err := service.History(context.Background(), domain.DownloadFilter{})
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestDownloadService_Download_Validation(t *testing.T) {
	service := NewDownloadService(newFakeDriveAPI(), memory.NewDriveStateStore())

	_, err := service.Download(context.Background(), "acct", "", "/tmp")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = service.Download(context.Background(), "acct", "f1", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDownloadService_History_DefaultsAndValidation(t *testing.T) {
	store := memory.NewDriveStateStore()
	service := NewDownloadService(newFakeDriveAPI(), store)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	for i := range DefaultHistoryLimit + 5 {
		require.NoError(t, store.CreateDownload(ctx, domain.DownloadAudit{
			ID: time.Duration(i).String(), AccountID: "acct", FileID: "f", Destination: "/tmp/f",
			Status: domain.DownloadCompleted, StartedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	history, err := service.History(ctx, domain.DownloadFilter{})
	require.NoError(t, err)
	assert.Len(t, history, DefaultHistoryLimit)

	_, err = service.History(ctx, domain.DownloadFilter{Offset: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDownloadService_Prune(t *testing.T) {
	store := memory.NewDriveStateStore()
	service := NewDownloadService(newFakeDriveAPI(), store)
	ctx := context.Background()
	old := time.Now().Add(-72 * time.Hour)

	require.NoError(t, store.CreateDownload(ctx, domain.DownloadAudit{
		ID: "old", AccountID: "acct", Status: domain.DownloadCompleted, StartedAt: old,
	}))
	require.NoError(t, store.CreateDownload(ctx, domain.DownloadAudit{
		ID: "running", AccountID: "acct", Status: domain.DownloadStarted, StartedAt: old,
	}))
	require.NoError(t, store.CreateDownload(ctx, domain.DownloadAudit{
		ID: "recent", AccountID: "acct", Status: domain.DownloadFailed, StartedAt: time.Now(),
	}))

	n, err := service.Prune(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = service.Prune(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
