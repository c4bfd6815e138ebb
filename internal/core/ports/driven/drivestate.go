package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

// CheckpointStore persists change-feed cursors.
type CheckpointStore interface {
	// GetCheckpoint returns the checkpoint, or nil when none was saved.
	GetCheckpoint(ctx context.Context, accountID, resource string) (*domain.SyncCheckpoint, error)

	// SaveCheckpoint creates or replaces a checkpoint.
	SaveCheckpoint(ctx context.Context, cp domain.SyncCheckpoint) error
}

// DownloadAuditStore persists download audit records.
type DownloadAuditStore interface {
	// CreateDownload records a started download.
	CreateDownload(ctx context.Context, audit domain.DownloadAudit) error

	// FinishDownload sets the final status, byte count and error of a download.
	FinishDownload(ctx context.Context, id string, status domain.DownloadStatus, bytes int64, errMsg string) error

	// ListDownloads returns audits newest first.
	ListDownloads(ctx context.Context, filter domain.DownloadFilter) ([]domain.DownloadAudit, error)

	// PruneDownloads deletes finished audits older than before and returns
	// the number removed.
	PruneDownloads(ctx context.Context, before time.Time) (int64, error)
}

// WatchChannelStore persists push channels.
type WatchChannelStore interface {
	SaveChannel(ctx context.Context, ch domain.WatchChannel) error
	GetChannel(ctx context.Context, id string) (*domain.WatchChannel, error)
	ListChannels(ctx context.Context, accountID string) ([]domain.WatchChannel, error)
	DeleteChannel(ctx context.Context, id string) error
}

// DriveCatalogStore caches the drives visible to an account.
type DriveCatalogStore interface {
	// UpsertDrives creates or updates entries.
	UpsertDrives(ctx context.Context, entries []domain.DriveCatalogEntry) error

	// ListDrives returns entries sorted by name. Inactive entries are
	// included only when includeInactive is set.
	ListDrives(ctx context.Context, accountID string, includeInactive bool) ([]domain.DriveCatalogEntry, error)

	// LastSynced returns the most recent sync time, zero when never synced.
	LastSynced(ctx context.Context, accountID string) (time.Time, error)
}

// DriveStateStore bundles the drive stores backed by one database.
type DriveStateStore interface {
	CheckpointStore
	DownloadAuditStore
	WatchChannelStore
	DriveCatalogStore

	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	Close() error
}
