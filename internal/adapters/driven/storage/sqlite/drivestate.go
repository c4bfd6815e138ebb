package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

// ==================== Checkpoints ====================

// GetCheckpoint returns the checkpoint, or nil when none was saved.
func (s *Store) GetCheckpoint(ctx context.Context, accountID, resource string) (*domain.SyncCheckpoint, error) {
	var (
		cp     domain.SyncCheckpoint
		synced sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT account_id, resource, cursor, last_synced_at
		FROM sync_checkpoints
		WHERE account_id = ? AND resource = ?
	`, accountID, resource).Scan(&cp.AccountID, &cp.Resource, &cp.Cursor, &synced)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting checkpoint: %w", err)
	}
	cp.LastSyncedAt = fromMillis(synced)
	return &cp, nil
}

// SaveCheckpoint creates or replaces a checkpoint.
func (s *Store) SaveCheckpoint(ctx context.Context, cp domain.SyncCheckpoint) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_checkpoints (account_id, resource, cursor, last_synced_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(account_id, resource) DO UPDATE SET
			cursor = excluded.cursor,
			last_synced_at = excluded.last_synced_at
	`, cp.AccountID, cp.Resource, cp.Cursor, stamp(cp.LastSyncedAt))
	if err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	return nil
}

// ==================== Download audits ====================

// CreateDownload records a started download.
func (s *Store) CreateDownload(ctx context.Context, audit domain.DownloadAudit) error {
	status := audit.Status
	if status == "" {
		status = domain.DownloadStarted
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO download_audits
			(id, account_id, file_id, file_name, destination, status, bytes, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, audit.ID, audit.AccountID, audit.FileID, audit.FileName, audit.Destination,
		string(status), audit.Bytes, audit.Error, stamp(audit.StartedAt), toMillis(audit.FinishedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("download %s: %w", audit.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("creating download audit: %w", err)
	}
	return nil
}

// FinishDownload sets the final status, byte count and error of a download.
func (s *Store) FinishDownload(
	ctx context.Context, id string, status domain.DownloadStatus, bytes int64, errMsg string,
) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE download_audits
		SET status = ?, bytes = ?, error = ?, finished_at = ?
		WHERE id = ?
	`, string(status), bytes, errMsg, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("finishing download audit: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("download %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListDownloads returns audits newest first.
func (s *Store) ListDownloads(ctx context.Context, filter domain.DownloadFilter) ([]domain.DownloadAudit, error) {
	query := `
		SELECT id, account_id, file_id, file_name, destination, status, bytes, error, started_at, finished_at
		FROM download_audits
		WHERE 1 = 1`
	var args []any
	if filter.AccountID != "" {
		query += " AND account_id = ?"
		args = append(args, filter.AccountID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	query += " ORDER BY started_at DESC, rowid DESC"

	// SQLite needs a LIMIT for OFFSET; -1 means unbounded.
	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, max(filter.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing downloads: %w", err)
	}
	defer rows.Close()

	var audits []domain.DownloadAudit
	for rows.Next() {
		var (
			a                 domain.DownloadAudit
			status            string
			started, finished sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &a.AccountID, &a.FileID, &a.FileName, &a.Destination,
			&status, &a.Bytes, &a.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning download audit: %w", err)
		}
		a.Status = domain.DownloadStatus(status)
		a.StartedAt = fromMillis(started)
		a.FinishedAt = fromMillis(finished)
		audits = append(audits, a)
	}
	return audits, rows.Err()
}

// PruneDownloads deletes finished audits started before the cutoff.
func (s *Store) PruneDownloads(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM download_audits
		WHERE status != ? AND started_at < ?
	`, string(domain.DownloadStarted), before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("pruning downloads: %w", err)
	}
	return result.RowsAffected()
}

// ==================== Watch channels ====================

// SaveChannel creates or replaces a channel.
func (s *Store) SaveChannel(ctx context.Context, ch domain.WatchChannel) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watch_channels
			(id, account_id, resource_id, resource_uri, token, address, page_token, expiration, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_id = excluded.account_id,
			resource_id = excluded.resource_id,
			resource_uri = excluded.resource_uri,
			token = excluded.token,
			address = excluded.address,
			page_token = excluded.page_token,
			expiration = excluded.expiration
	`, ch.ID, ch.AccountID, ch.ResourceID, ch.ResourceURI, ch.Token, ch.Address, ch.PageToken,
		toMillis(ch.Expiration), stamp(ch.CreatedAt))
	if err != nil {
		return fmt.Errorf("saving channel: %w", err)
	}
	return nil
}

const channelColumns = `id, account_id, resource_id, resource_uri, token, address, page_token, expiration, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row rowScanner) (domain.WatchChannel, error) {
	var (
		ch                  domain.WatchChannel
		expiration, created sql.NullInt64
	)
	err := row.Scan(&ch.ID, &ch.AccountID, &ch.ResourceID, &ch.ResourceURI, &ch.Token,
		&ch.Address, &ch.PageToken, &expiration, &created)
	if err != nil {
		return ch, err
	}
	ch.Expiration = fromMillis(expiration)
	ch.CreatedAt = fromMillis(created)
	return ch, nil
}

// GetChannel returns a channel or domain.ErrNotFound.
func (s *Store) GetChannel(ctx context.Context, id string) (*domain.WatchChannel, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM watch_channels WHERE id = ?`, id)
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("channel %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting channel: %w", err)
	}
	return &ch, nil
}

// ListChannels returns the account's channels ordered by expiration.
// An empty accountID lists every channel.
func (s *Store) ListChannels(ctx context.Context, accountID string) ([]domain.WatchChannel, error) {
	query := `SELECT ` + channelColumns + ` FROM watch_channels`
	var args []any
	if accountID != "" {
		query += ` WHERE account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY expiration ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing channels: %w", err)
	}
	defer rows.Close()

	var channels []domain.WatchChannel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning channel: %w", err)
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// DeleteChannel removes a channel. Deleting a missing channel is not an error.
func (s *Store) DeleteChannel(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM watch_channels WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting channel: %w", err)
	}
	return nil
}

// ==================== Drive catalog ====================

// UpsertDrives creates or updates catalog entries in one transaction.
func (s *Store) UpsertDrives(ctx context.Context, entries []domain.DriveCatalogEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO drive_catalog (account_id, drive_id, name, kind, active, synced_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, drive_id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			active = excluded.active,
			synced_at = excluded.synced_at
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.AccountID, e.DriveID, e.Name, string(e.Kind),
			e.Active, stamp(e.SyncedAt)); err != nil {
			return fmt.Errorf("upserting drive %s: %w", e.DriveID, err)
		}
	}
	return tx.Commit()
}

// ListDrives returns entries sorted by name.
func (s *Store) ListDrives(
	ctx context.Context, accountID string, includeInactive bool,
) ([]domain.DriveCatalogEntry, error) {
	query := `
		SELECT account_id, drive_id, name, kind, active, synced_at
		FROM drive_catalog
		WHERE account_id = ?`
	if !includeInactive {
		query += ` AND active = 1`
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing drives: %w", err)
	}
	defer rows.Close()

	var entries []domain.DriveCatalogEntry
	for rows.Next() {
		var (
			e      domain.DriveCatalogEntry
			kind   string
			synced sql.NullInt64
		)
		if err := rows.Scan(&e.AccountID, &e.DriveID, &e.Name, &kind, &e.Active, &synced); err != nil {
			return nil, fmt.Errorf("scanning drive: %w", err)
		}
		e.Kind = domain.DriveKind(kind)
		e.SyncedAt = fromMillis(synced)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LastSynced returns the latest sync time of the account's catalog, zero
// when it was never synced.
func (s *Store) LastSynced(ctx context.Context, accountID string) (time.Time, error) {
	var last sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(synced_at) FROM drive_catalog WHERE account_id = ?`, accountID).Scan(&last)
	if err != nil {
		return time.Time{}, fmt.Errorf("getting last sync: %w", err)
	}
	return fromMillis(last), nil
}
