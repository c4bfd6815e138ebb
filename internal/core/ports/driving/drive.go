package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

// DriveSyncService tracks the Drive change feed per account.
type DriveSyncService interface {
	// SyncChanges fetches one page of changes after the stored cursor and
	// advances it. Without a checkpoint it only records the start token.
	SyncChanges(ctx context.Context, accountID string) (*domain.SyncResult, error)

	// GetCheckpoint returns the stored checkpoint, or nil.
	GetCheckpoint(ctx context.Context, accountID string) (*domain.SyncCheckpoint, error)

	// UpdateCheckpoint overwrites the stored cursor.
	UpdateCheckpoint(ctx context.Context, accountID, cursor string) (*domain.SyncCheckpoint, error)
}

// DownloadService downloads files and keeps an audit trail.
type DownloadService interface {
	// Download writes a file to dest and records the outcome.
	Download(ctx context.Context, accountID, fileID, dest string) (*domain.DownloadAudit, error)

	// History lists audits newest first.
	History(ctx context.Context, filter domain.DownloadFilter) ([]domain.DownloadAudit, error)

	// Prune deletes finished audits older than olderThan.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// DriveCatalogService caches the drives visible to an account.
type DriveCatalogService interface {
	// Sync refreshes the catalog from the API.
	Sync(ctx context.Context, accountID string) ([]domain.DriveCatalogEntry, error)

	// EnsureSynced syncs only when the catalog is older than maxAge.
	EnsureSynced(ctx context.Context, accountID string, maxAge time.Duration) error

	// List returns the cached drives sorted by name.
	List(ctx context.Context, accountID string, includeInactive bool) ([]domain.DriveCatalogEntry, error)

	// ResolveDriveID maps a drive name or id to its id.
	ResolveDriveID(ctx context.Context, accountID, nameOrID string) (string, error)
}

// WatchService manages push channels on the change feed.
type WatchService interface {
	// Register creates a channel delivering to address.
	Register(ctx context.Context, accountID, address string) (*domain.WatchChannel, error)

	// Delete stops a channel and forgets it.
	Delete(ctx context.Context, channelID string) error

	// Renew replaces channels expiring within window and returns the new ones.
	Renew(ctx context.Context, accountID, address string, window time.Duration) ([]domain.WatchChannel, error)

	// List returns the account's channels.
	List(ctx context.Context, accountID string) ([]domain.WatchChannel, error)

	// ValidateChannel checks a notification's channel and token against the
	// stored channel.
	ValidateChannel(ctx context.Context, channelID, token string) (*domain.WatchChannel, error)

	// Upsert records what a notification reports about its channel.
	Upsert(ctx context.Context, accountID string, n domain.ChannelNotification) (*domain.WatchChannel, error)
}
