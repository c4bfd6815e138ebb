package services

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driven"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driving"
	"github.com/custodia-labs/connect-cli/internal/logger"
)

// Ensure DriveSyncService implements the interface.
var _ driving.DriveSyncService = (*DriveSyncService)(nil)

// ChangesResource names the change-feed checkpoint.
const ChangesResource = "changes"

// DefaultChangesPageSize is the page size of one sync.
const DefaultChangesPageSize = 100

// DriveSyncService advances a per-account cursor over the Drive change feed.
type DriveSyncService struct {
	api      driven.DriveAPI
	store    driven.CheckpointStore
	pageSize int
	now      func() time.Time
}

// NewDriveSyncService creates a new sync service.
func NewDriveSyncService(api driven.DriveAPI, store driven.CheckpointStore) *DriveSyncService {
	return &DriveSyncService{
		api:      api,
		store:    store,
		pageSize: DefaultChangesPageSize,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SyncChanges fetches one page of changes. Callers loop while HasMore.
func (s *DriveSyncService) SyncChanges(ctx context.Context, accountID string) (*domain.SyncResult, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account id is required: %w", domain.ErrInvalidInput)
	}
	cp, err := s.store.GetCheckpoint(ctx, accountID, ChangesResource)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	if cp == nil || cp.Cursor == "" {
		token, err := s.api.StartPageToken(ctx)
		if err != nil {
			return nil, err
		}
		if _, err := s.save(ctx, accountID, token); err != nil {
			return nil, err
		}
		logger.Debug("drive sync: initialised %s at %s", accountID, token)
		return &domain.SyncResult{
			AccountID:   accountID,
			Initialised: true,
			Changes:     []domain.DriveChange{},
			Cursor:      token,
		}, nil
	}

	page, err := s.api.ListChanges(ctx, cp.Cursor, s.pageSize)
	if err != nil {
		return nil, err
	}

	next := cp.Cursor
	switch {
	case page.NewStartPageToken != "":
		next = page.NewStartPageToken
	case page.NextPageToken != "":
		next = page.NextPageToken
	}
	if _, err := s.save(ctx, accountID, next); err != nil {
		return nil, err
	}

	changes := make([]domain.DriveChange, 0, len(page.Changes))
	for _, c := range page.Changes {
		changes = append(changes, toDriveChange(c))
	}
	logger.Debug("drive sync: %s %d changes, cursor %s", accountID, len(changes), next)
	return &domain.SyncResult{
		AccountID: accountID,
		Changes:   changes,
		Cursor:    next,
		HasMore:   page.NextPageToken != "",
	}, nil
}

// GetCheckpoint returns the account's checkpoint, or nil.
func (s *DriveSyncService) GetCheckpoint(ctx context.Context, accountID string) (*domain.SyncCheckpoint, error) {
	return s.store.GetCheckpoint(ctx, accountID, ChangesResource)
}

// UpdateCheckpoint overwrites the cursor, for replays or manual resets.
func (s *DriveSyncService) UpdateCheckpoint(ctx context.Context, accountID, cursor string) (*domain.SyncCheckpoint, error) {
	if accountID == "" || cursor == "" {
		return nil, fmt.Errorf("account id and cursor are required: %w", domain.ErrInvalidInput)
	}
	return s.save(ctx, accountID, cursor)
}

func (s *DriveSyncService) save(ctx context.Context, accountID, cursor string) (*domain.SyncCheckpoint, error) {
	cp := domain.SyncCheckpoint{
		AccountID:    accountID,
		Resource:     ChangesResource,
		Cursor:       cursor,
		LastSyncedAt: s.now(),
	}
	if err := s.store.SaveCheckpoint(ctx, cp); err != nil {
		return nil, fmt.Errorf("save checkpoint: %w", err)
	}
	return &cp, nil
}

func toDriveChange(c *drive.Change) domain.DriveChange {
	out := domain.DriveChange{
		FileID:  c.FileId,
		DriveID: c.DriveId,
		Removed: c.Removed,
	}
	if t, err := time.Parse(time.RFC3339, c.Time); err == nil {
		out.Time = t
	}
	if c.File != nil {
		out.Name = c.File.Name
		out.MimeType = c.File.MimeType
		if c.File.Trashed {
			out.Removed = true
		}
	}
	return out
}
