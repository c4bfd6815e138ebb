package mcp

import (
	"context"

	"github.com/custodia-labs/connect-cli/internal/core/ports/driven"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driving"
)

// HealthChecker reports whether local state is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Ports aggregates everything the MCP server calls.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Drive is the Drive API used for files and permissions.
	Drive driven.DriveAPI

	// Sync tracks the change feed.
	Sync driving.DriveSyncService

	// Watch manages push channels.
	Watch driving.WatchService

	// Downloads owns the download audit trail.
	Downloads driving.DownloadService

	// Catalog resolves shared drive names.
	Catalog driving.DriveCatalogService

	// Health pings the state database.
	Health HealthChecker

	// AccountID keys checkpoints and channels, usually the profile name.
	AccountID string

	// WebhookURL is the default push channel address.
	WebhookURL string
}

// Validate ensures all required ports are set.
// Watch, Downloads, Catalog and Health are optional; tools that need them
// report ErrNotConfigured.
func (p *Ports) Validate() error {
	if p.Drive == nil {
		return ErrMissingDriveAPI
	}
	if p.Sync == nil {
		return ErrMissingSyncService
	}
	return nil
}
