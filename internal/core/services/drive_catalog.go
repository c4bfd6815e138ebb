package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driven"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driving"
	"github.com/custodia-labs/connect-cli/internal/logger"
)

// Ensure DriveCatalogService implements the interface.
var _ driving.DriveCatalogService = (*DriveCatalogService)(nil)

// DefaultCatalogMaxAge is how long a synced catalog is trusted.
const DefaultCatalogMaxAge = time.Hour

// DriveCatalogService caches the user's drive and the shared drives.
type DriveCatalogService struct {
	api   driven.DriveAPI
	store driven.DriveCatalogStore
	now   func() time.Time
}

// NewDriveCatalogService creates a new catalog service.
func NewDriveCatalogService(api driven.DriveAPI, store driven.DriveCatalogStore) *DriveCatalogService {
	return &DriveCatalogService{
		api:   api,
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Sync lists shared drives, upserts them with "my-drive" and marks drives
// that disappeared as inactive. It returns the active entries.
func (s *DriveCatalogService) Sync(ctx context.Context, accountID string) ([]domain.DriveCatalogEntry, error) {
	var (
		shared   []*drive.Drive
		existing []domain.DriveCatalogEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		shared, err = s.api.ListSharedDrives(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		existing, err = s.store.ListDrives(gctx, accountID, true)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sync drive catalog: %w", err)
	}

	now := s.now()
	entries := make([]domain.DriveCatalogEntry, 0, len(shared)+1)
	entries = append(entries, domain.DriveCatalogEntry{
		AccountID: accountID,
		DriveID:   domain.MyDriveID,
		Name:      "My Drive",
		Kind:      domain.DriveKindMyDrive,
		Active:    true,
		SyncedAt:  now,
	})
	seen := map[string]bool{domain.MyDriveID: true}
	for _, d := range shared {
		seen[d.Id] = true
		entries = append(entries, domain.DriveCatalogEntry{
			AccountID: accountID,
			DriveID:   d.Id,
			Name:      d.Name,
			Kind:      domain.DriveKindShared,
			Active:    true,
			SyncedAt:  now,
		})
	}
	active := append([]domain.DriveCatalogEntry(nil), entries...)

	for _, e := range existing {
		if seen[e.DriveID] || !e.Active {
			continue
		}
		e.Active = false
		e.SyncedAt = now
		entries = append(entries, e)
	}

	if err := s.store.UpsertDrives(ctx, entries); err != nil {
		return nil, fmt.Errorf("store drive catalog: %w", err)
	}
	logger.Debug("drive catalog: %d active, %d deactivated", len(active), len(entries)-len(active))
	return active, nil
}

// EnsureSynced syncs when the catalog was never synced or is older than maxAge.
func (s *DriveCatalogService) EnsureSynced(ctx context.Context, accountID string, maxAge time.Duration) error {
	if maxAge <= 0 {
		maxAge = DefaultCatalogMaxAge
	}
	last, err := s.store.LastSynced(ctx, accountID)
	if err != nil {
		return err
	}
	if !last.IsZero() && s.now().Sub(last) < maxAge {
		return nil
	}
	_, err = s.Sync(ctx, accountID)
	return err
}

// List returns the cached drives.
func (s *DriveCatalogService) List(
	ctx context.Context, accountID string, includeInactive bool,
) ([]domain.DriveCatalogEntry, error) {
	return s.store.ListDrives(ctx, accountID, includeInactive)
}

// ResolveDriveID accepts a drive id or a case-insensitive name.
// "my-drive" and the empty string resolve to domain.MyDriveID.
func (s *DriveCatalogService) ResolveDriveID(ctx context.Context, accountID, nameOrID string) (string, error) {
	if nameOrID == "" || nameOrID == domain.MyDriveID {
		return domain.MyDriveID, nil
	}
	if err := s.EnsureSynced(ctx, accountID, DefaultCatalogMaxAge); err != nil {
		return "", err
	}
	drives, err := s.store.ListDrives(ctx, accountID, false)
	if err != nil {
		return "", err
	}

	var matches []string
	for _, d := range drives {
		if d.DriveID == nameOrID {
			return d.DriveID, nil
		}
		if strings.EqualFold(d.Name, nameOrID) {
			matches = append(matches, d.DriveID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("drive %q: %w", nameOrID, domain.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("drive name %q matches %d drives, use an id: %w",
			nameOrID, len(matches), domain.ErrInvalidInput)
	}
}
