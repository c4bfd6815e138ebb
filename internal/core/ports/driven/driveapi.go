package driven

import (
	"context"
	"io"

	"google.golang.org/api/drive/v3"
)

// DriveAPI is the subset of the Google Drive client used by the drive
// services and the MCP server. The drive connector provides an
// implementation backed by its REST client.
type DriveAPI interface {
	// Files.
	ListFiles(ctx context.Context, query, driveID string, pageSize int, pageToken string) (*drive.FileList, error)
	GetFile(ctx context.Context, fileID string) (*drive.File, error)
	CreateFolder(ctx context.Context, name string, parents ...string) (*drive.File, error)
	DownloadFile(ctx context.Context, file *drive.File, w io.Writer) (int64, error)

	// Changes and channels.
	StartPageToken(ctx context.Context) (string, error)
	ListChanges(ctx context.Context, pageToken string, pageSize int) (*drive.ChangeList, error)
	WatchChanges(ctx context.Context, pageToken string, req WatchRequest) (*drive.Channel, error)
	StopChannel(ctx context.Context, channelID, resourceID string) error

	// Permissions.
	ListPermissions(ctx context.Context, fileID string) ([]*drive.Permission, error)
	CreatePermission(ctx context.Context, fileID string, perm *drive.Permission, notify bool) (*drive.Permission, error)
	UpdatePermission(ctx context.Context, fileID, permissionID, role string) (*drive.Permission, error)
	DeletePermission(ctx context.Context, fileID, permissionID string) error

	// Shared drives.
	ListSharedDrives(ctx context.Context) ([]*drive.Drive, error)
}

// WatchRequest describes a push channel registration.
type WatchRequest struct {
	ChannelID  string
	Address    string
	Token      string
	TTLSeconds int
}
