package drive

import (
	"context"
	"fmt"
	"io"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/connect-cli/internal/connectors/google"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driven"
)

// api adapts Client to driven.DriveAPI.
type api struct {
	c *Client
}

var _ driven.DriveAPI = api{}

// API returns the client as a driven.DriveAPI.
func (c *Client) API() driven.DriveAPI {
	return api{c: c}
}

func (a api) ListFiles(ctx context.Context, query, driveID string, pageSize int, pageToken string) (*drive.FileList, error) {
	return a.c.Files.List(ctx, ListFilesParams{Query: query, DriveID: driveID, PageSize: pageSize}, pageToken)
}

func (a api) GetFile(ctx context.Context, fileID string) (*drive.File, error) {
	return a.c.Files.Get(ctx, fileID, "id", "name", "mimeType", "size", "modifiedTime", "md5Checksum", "parents")
}

func (a api) CreateFolder(ctx context.Context, name string, parents ...string) (*drive.File, error) {
	return a.c.Files.CreateFolder(ctx, name, parents...)
}

// DownloadFile downloads binary files and exports Google Workspace files.
func (a api) DownloadFile(ctx context.Context, file *drive.File, w io.Writer) (int64, error) {
	if file.MimeType == MimeTypeFolder {
		return 0, fmt.Errorf("googledrive: %s is a folder", file.Id)
	}
	if export := ExportMimeType(file.MimeType); export != "" {
		return a.c.Files.Export(ctx, file.Id, export, w)
	}
	return a.c.Files.Download(ctx, file.Id, w)
}

func (a api) StartPageToken(ctx context.Context) (string, error) {
	return a.c.Changes.StartPageToken(ctx)
}

func (a api) ListChanges(ctx context.Context, pageToken string, pageSize int) (*drive.ChangeList, error) {
	return a.c.Changes.List(ctx, pageToken, ListChangesParams{PageSize: pageSize})
}

func (a api) WatchChanges(ctx context.Context, pageToken string, req driven.WatchRequest) (*drive.Channel, error) {
	return a.c.Changes.Watch(ctx, pageToken, WatchRequest{
		ID:         req.ChannelID,
		Address:    req.Address,
		Token:      req.Token,
		TTLSeconds: req.TTLSeconds,
	})
}

// StopChannel reports channels Google no longer knows as domain.ErrNotFound.
func (a api) StopChannel(ctx context.Context, channelID, resourceID string) error {
	err := a.c.Channels.Stop(ctx, channelID, resourceID)
	if err != nil && google.IsNotFound(err) {
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	}
	return err
}

func (a api) ListPermissions(ctx context.Context, fileID string) ([]*drive.Permission, error) {
	return a.c.Permissions.List(ctx, fileID)
}

func (a api) CreatePermission(
	ctx context.Context, fileID string, perm *drive.Permission, notify bool,
) (*drive.Permission, error) {
	return a.c.Permissions.Create(ctx, fileID, perm, notify)
}

func (a api) UpdatePermission(ctx context.Context, fileID, permissionID, role string) (*drive.Permission, error) {
	return a.c.Permissions.Update(ctx, fileID, permissionID, role)
}

func (a api) DeletePermission(ctx context.Context, fileID, permissionID string) error {
	return a.c.Permissions.Delete(ctx, fileID, permissionID)
}

func (a api) ListSharedDrives(ctx context.Context) ([]*drive.Drive, error) {
	return a.c.Drives.ListAll(ctx)
}
