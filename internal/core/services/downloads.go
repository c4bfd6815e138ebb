package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driven"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driving"
	"github.com/custodia-labs/connect-cli/internal/logger"
)

// Ensure DownloadService implements the interface.
var _ driving.DownloadService = (*DownloadService)(nil)

// DefaultHistoryLimit bounds history listings without an explicit limit.
const DefaultHistoryLimit = 50

// DownloadService downloads Drive files and audits every attempt.
type DownloadService struct {
	api   driven.DriveAPI
	store driven.DownloadAuditStore
	now   func() time.Time
}

// NewDownloadService creates a new download service.
func NewDownloadService(api driven.DriveAPI, store driven.DownloadAuditStore) *DownloadService {
	return &DownloadService{
		api:   api,
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Download writes fileID to dest. When dest is an existing directory the
// file keeps its Drive name inside it. The audit row is returned even
// when the transfer fails.
func (s *DownloadService) Download(ctx context.Context, accountID, fileID, dest string) (*domain.DownloadAudit, error) {
	if fileID == "" || dest == "" {
		return nil, fmt.Errorf("file id and destination are required: %w", domain.ErrInvalidInput)
	}

	file, err := s.api.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		dest = filepath.Join(dest, filepath.Base(file.Name))
	}

	audit := domain.DownloadAudit{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		FileID:      fileID,
		FileName:    file.Name,
		Destination: dest,
		Status:      domain.DownloadStarted,
		StartedAt:   s.now(),
	}
	if err := s.store.CreateDownload(ctx, audit); err != nil {
		return nil, fmt.Errorf("record download: %w", err)
	}

	n, dlErr := s.write(file.Id, dest, func(w *os.File) (int64, error) {
		return s.api.DownloadFile(ctx, file, w)
	})

	audit.Bytes = n
	audit.FinishedAt = s.now()
	if dlErr != nil {
		audit.Status = domain.DownloadFailed
		audit.Error = dlErr.Error()
	} else {
		audit.Status = domain.DownloadCompleted
	}

	// Record the outcome even if ctx was cancelled mid-transfer.
	finishCtx := context.WithoutCancel(ctx)
	if err := s.store.FinishDownload(finishCtx, audit.ID, audit.Status, audit.Bytes, audit.Error); err != nil {
		return &audit, errors.Join(dlErr, fmt.Errorf("record download outcome: %w", err))
	}
	if dlErr != nil {
		return &audit, dlErr
	}
	logger.Info("downloaded %s (%d bytes) to %s", file.Name, n, dest)
	return &audit, nil
}

// write streams into a temp file next to dest and renames it on success.
func (s *DownloadService) write(fileID, dest string, copyFn func(*os.File) (int64, error)) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-"+fileID+"-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	n, err := copyFn(tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, err
	}
	return n, os.Rename(tmp.Name(), dest)
}

// History lists audits newest first.
func (s *DownloadService) History(ctx context.Context, filter domain.DownloadFilter) ([]domain.DownloadAudit, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultHistoryLimit
	}
	if filter.Offset < 0 {
		return nil, fmt.Errorf("offset must not be negative: %w", domain.ErrInvalidInput)
	}
	return s.store.ListDownloads(ctx, filter)
}

// Prune deletes finished audits started more than olderThan ago.
func (s *DownloadService) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("retention must be positive: %w", domain.ErrInvalidInput)
	}
	n, err := s.store.PruneDownloads(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	logger.Debug("pruned %d download audits", n)
	return n, nil
}
