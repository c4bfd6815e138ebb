package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driven"
)

// Ensure DriveStateStore implements the interface.
var _ driven.DriveStateStore = (*DriveStateStore)(nil)

// DriveStateStore is an in-memory implementation of driven.DriveStateStore.
type DriveStateStore struct {
	mu          sync.RWMutex
	checkpoints map[string]domain.SyncCheckpoint
	downloads   []domain.DownloadAudit
	channels    map[string]domain.WatchChannel
	drives      map[string]map[string]domain.DriveCatalogEntry
}

// NewDriveStateStore creates a new in-memory drive state store.
func NewDriveStateStore() *DriveStateStore {
	return &DriveStateStore{
		checkpoints: make(map[string]domain.SyncCheckpoint),
		channels:    make(map[string]domain.WatchChannel),
		drives:      make(map[string]map[string]domain.DriveCatalogEntry),
	}
}

func checkpointKey(accountID, resource string) string {
	return accountID + "\x00" + resource
}

// GetCheckpoint returns the checkpoint, or nil.
func (s *DriveStateStore) GetCheckpoint(_ context.Context, accountID, resource string) (*domain.SyncCheckpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.checkpoints[checkpointKey(accountID, resource)]
	if !ok {
		return nil, nil
	}
	return &cp, nil
}

// SaveCheckpoint creates or replaces a checkpoint.
func (s *DriveStateStore) SaveCheckpoint(_ context.Context, cp domain.SyncCheckpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[checkpointKey(cp.AccountID, cp.Resource)] = cp
	return nil
}

// CreateDownload records a started download.
func (s *DriveStateStore) CreateDownload(_ context.Context, audit domain.DownloadAudit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.downloads {
		if d.ID == audit.ID {
			return fmt.Errorf("download %s: %w", audit.ID, domain.ErrAlreadyExists)
		}
	}
	s.downloads = append(s.downloads, audit)
	return nil
}

// FinishDownload records the outcome of a download.
func (s *DriveStateStore) FinishDownload(
	_ context.Context, id string, status domain.DownloadStatus, bytes int64, errMsg string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.downloads {
		if s.downloads[i].ID == id {
			s.downloads[i].Status = status
			s.downloads[i].Bytes = bytes
			s.downloads[i].Error = errMsg
			s.downloads[i].FinishedAt = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("download %s: %w", id, domain.ErrNotFound)
}

// ListDownloads returns audits newest first.
func (s *DriveStateStore) ListDownloads(_ context.Context, filter domain.DownloadFilter) ([]domain.DownloadAudit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.DownloadAudit
	for _, d := range s.downloads {
		if filter.AccountID != "" && d.AccountID != filter.AccountID {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// PruneDownloads deletes finished audits started before the cutoff.
func (s *DriveStateStore) PruneDownloads(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.downloads[:0]
	var removed int64
	for _, d := range s.downloads {
		if d.Status != domain.DownloadStarted && d.StartedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, d)
	}
	s.downloads = kept
	return removed, nil
}

// SaveChannel creates or replaces a channel.
func (s *DriveStateStore) SaveChannel(_ context.Context, ch domain.WatchChannel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[ch.ID] = ch
	return nil
}

// GetChannel returns a channel or domain.ErrNotFound.
func (s *DriveStateStore) GetChannel(_ context.Context, id string) (*domain.WatchChannel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.channels[id]
	if !ok {
		return nil, fmt.Errorf("channel %s: %w", id, domain.ErrNotFound)
	}
	return &ch, nil
}

// ListChannels returns the account's channels ordered by expiration.
func (s *DriveStateStore) ListChannels(_ context.Context, accountID string) ([]domain.WatchChannel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.WatchChannel
	for _, ch := range s.channels {
		if accountID == "" || ch.AccountID == accountID {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Expiration.Before(out[j].Expiration) })
	return out, nil
}

// DeleteChannel removes a channel.
func (s *DriveStateStore) DeleteChannel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels, id)
	return nil
}

// UpsertDrives creates or updates catalog entries.
func (s *DriveStateStore) UpsertDrives(_ context.Context, entries []domain.DriveCatalogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		byID, ok := s.drives[e.AccountID]
		if !ok {
			byID = make(map[string]domain.DriveCatalogEntry)
			s.drives[e.AccountID] = byID
		}
		byID[e.DriveID] = e
	}
	return nil
}

// ListDrives returns entries sorted by name.
func (s *DriveStateStore) ListDrives(
	_ context.Context, accountID string, includeInactive bool,
) ([]domain.DriveCatalogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.DriveCatalogEntry
	for _, e := range s.drives[accountID] {
		if e.Active || includeInactive {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// LastSynced returns the latest sync time of the account's catalog.
func (s *DriveStateStore) LastSynced(_ context.Context, accountID string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var last time.Time
	for _, e := range s.drives[accountID] {
		if e.SyncedAt.After(last) {
			last = e.SyncedAt
		}
	}
	return last, nil
}

// Ping always succeeds.
func (s *DriveStateStore) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (s *DriveStateStore) Close() error {
	return nil
}
