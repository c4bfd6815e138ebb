package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

// defaultPageSize bounds drive_list_files when no page size is given.
const defaultPageSize = 50

// FileOutput is a Drive file.
type FileOutput struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	MimeType     string   `json:"mime_type"`
	Size         int64    `json:"size,omitempty"`
	ModifiedTime string   `json:"modified_time,omitempty"`
	Parents      []string `json:"parents,omitempty"`
	WebViewLink  string   `json:"web_view_link,omitempty"`
}

func toFileOutput(f *drive.File) FileOutput {
	return FileOutput{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		Size:         f.Size,
		ModifiedTime: f.ModifiedTime,
		Parents:      f.Parents,
		WebViewLink:  f.WebViewLink,
	}
}

// ListFilesInput is the input schema for drive_list_files.
type ListFilesInput struct {
	Query     string `json:"query,omitempty" jsonschema:"Drive search query, e.g. name contains 'report' and trashed = false"`
	Drive     string `json:"drive,omitempty" jsonschema:"shared drive id or name; omit for My Drive"`
	PageSize  int    `json:"page_size,omitempty" jsonschema:"maximum files to return (default 50, max 1000)"`
	PageToken string `json:"page_token,omitempty" jsonschema:"token from a previous call to continue listing"`
}

// ListFilesOutput is the output schema for drive_list_files.
type ListFilesOutput struct {
	Files         []FileOutput `json:"files"`
	Count         int          `json:"count"`
	NextPageToken string       `json:"next_page_token,omitempty"`
}

// CreateFolderInput is the input schema for drive_create_folder.
type CreateFolderInput struct {
	Name     string `json:"name" jsonschema:"folder name"`
	ParentID string `json:"parent_id,omitempty" jsonschema:"parent folder id; omit for the root"`
}

// CheckpointInput is the input schema for drive_get_checkpoint.
type CheckpointInput struct{}

// UpdateCheckpointInput is the input schema for drive_update_checkpoint.
type UpdateCheckpointInput struct {
	Cursor string `json:"cursor" jsonschema:"change feed page token to resume from"`
}

// CheckpointOutput is a sync checkpoint.
type CheckpointOutput struct {
	AccountID    string `json:"account_id"`
	Exists       bool   `json:"exists"`
	Cursor       string `json:"cursor,omitempty"`
	LastSyncedAt string `json:"last_synced_at,omitempty"`
}

func toCheckpointOutput(accountID string, cp *domain.SyncCheckpoint) CheckpointOutput {
	out := CheckpointOutput{AccountID: accountID}
	if cp == nil {
		return out
	}
	out.Exists = true
	out.Cursor = cp.Cursor
	out.LastSyncedAt = formatTime(cp.LastSyncedAt)
	return out
}

// SyncChangesInput is the input schema for drive_sync_changes.
type SyncChangesInput struct{}

// ChangeOutput is one change feed entry.
type ChangeOutput struct {
	FileID   string `json:"file_id"`
	DriveID  string `json:"drive_id,omitempty"`
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Removed  bool   `json:"removed"`
	Time     string `json:"time,omitempty"`
}

// SyncChangesOutput is the output schema for drive_sync_changes.
type SyncChangesOutput struct {
	Initialised bool           `json:"initialised"`
	Changes     []ChangeOutput `json:"changes"`
	Count       int            `json:"count"`
	Cursor      string         `json:"cursor"`
	HasMore     bool           `json:"has_more"`
}

// ListChannelsInput is the input schema for watch_list_channels.
type ListChannelsInput struct{}

// ChannelOutput is a push channel.
type ChannelOutput struct {
	ID         string `json:"id"`
	ResourceID string `json:"resource_id"`
	Address    string `json:"address"`
	PageToken  string `json:"page_token,omitempty"`
	Expiration string `json:"expiration,omitempty"`
}

func toChannelOutput(ch domain.WatchChannel) ChannelOutput {
	return ChannelOutput{
		ID:         ch.ID,
		ResourceID: ch.ResourceID,
		Address:    ch.Address,
		PageToken:  ch.PageToken,
		Expiration: formatTime(ch.Expiration),
	}
}

// ListChannelsOutput is the output schema for watch_list_channels.
type ListChannelsOutput struct {
	Channels []ChannelOutput `json:"channels"`
	Count    int             `json:"count"`
}

// RegisterChannelInput is the input schema for watch_register_channel.
type RegisterChannelInput struct {
	Address string `json:"address,omitempty" jsonschema:"HTTPS webhook address; defaults to the configured webhook url"`
}

// DeleteChannelInput is the input schema for watch_delete_channel.
type DeleteChannelInput struct {
	ChannelID string `json:"channel_id" jsonschema:"id of the channel to stop"`
}

// DeleteChannelOutput is the output schema for watch_delete_channel.
type DeleteChannelOutput struct {
	ChannelID string `json:"channel_id"`
	Deleted   bool   `json:"deleted"`
}

// PermissionOutput is a file permission.
type PermissionOutput struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Role         string `json:"role"`
	EmailAddress string `json:"email_address,omitempty"`
	Domain       string `json:"domain,omitempty"`
	DisplayName  string `json:"display_name,omitempty"`
}

func toPermissionOutput(p *drive.Permission) PermissionOutput {
	return PermissionOutput{
		ID:           p.Id,
		Type:         p.Type,
		Role:         p.Role,
		EmailAddress: p.EmailAddress,
		Domain:       p.Domain,
		DisplayName:  p.DisplayName,
	}
}

// ListPermissionsInput is the input schema for permissions_list.
type ListPermissionsInput struct {
	FileID string `json:"file_id" jsonschema:"file or folder id"`
}

// ListPermissionsOutput is the output schema for permissions_list.
type ListPermissionsOutput struct {
	Permissions []PermissionOutput `json:"permissions"`
	Count       int                `json:"count"`
}

// GrantPermissionInput is the input schema for permissions_grant.
type GrantPermissionInput struct {
	FileID       string `json:"file_id" jsonschema:"file or folder id"`
	Type         string `json:"type" jsonschema:"grantee type: user, group, domain or anyone"`
	Role         string `json:"role" jsonschema:"role: reader, commenter, writer, fileOrganizer, organizer or owner"`
	EmailAddress string `json:"email_address,omitempty" jsonschema:"email for user and group grants"`
	Domain       string `json:"domain,omitempty" jsonschema:"domain for domain grants"`
	Notify       bool   `json:"notify,omitempty" jsonschema:"send a notification email"`
}

// UpdatePermissionInput is the input schema for permissions_update.
type UpdatePermissionInput struct {
	FileID       string `json:"file_id" jsonschema:"file or folder id"`
	PermissionID string `json:"permission_id" jsonschema:"permission id from permissions_list"`
	Role         string `json:"role" jsonschema:"new role"`
}

// RevokePermissionInput is the input schema for permissions_revoke.
type RevokePermissionInput struct {
	FileID       string `json:"file_id" jsonschema:"file or folder id"`
	PermissionID string `json:"permission_id" jsonschema:"permission id from permissions_list"`
}

// RevokePermissionOutput is the output schema for permissions_revoke.
type RevokePermissionOutput struct {
	PermissionID string `json:"permission_id"`
	Revoked      bool   `json:"revoked"`
}

// PruneDownloadsInput is the input schema for maintenance_prune_downloads.
type PruneDownloadsInput struct {
	OlderThanDays int `json:"older_than_days,omitempty" jsonschema:"delete finished audit rows older than this many days (default 30)"`
}

// PruneDownloadsOutput is the output schema for maintenance_prune_downloads.
type PruneDownloadsOutput struct {
	Removed int64 `json:"removed"`
}

// HealthInput is the input schema for maintenance_health.
type HealthInput struct{}

// HealthOutput is the output schema for maintenance_health.
type HealthOutput struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	API       string `json:"api"`
	CheckedAt string `json:"checked_at"`
}

// defaultPruneDays applies when maintenance_prune_downloads gets no age.
const defaultPruneDays = 30

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "drive_list_files",
		Description: "List or search files in My Drive or a shared drive",
	}, s.handleListFiles)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "drive_create_folder",
		Description: "Create a folder",
	}, s.handleCreateFolder)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "drive_get_checkpoint",
		Description: "Show the stored change feed cursor",
	}, s.handleGetCheckpoint)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "drive_update_checkpoint",
		Description: "Overwrite the change feed cursor, to replay or skip changes",
	}, s.handleUpdateCheckpoint)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "drive_sync_changes",
		Description: "Fetch the next page of changes and advance the cursor",
	}, s.handleSyncChanges)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "watch_list_channels",
		Description: "List registered push notification channels",
	}, s.handleListChannels)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "watch_register_channel",
		Description: "Register a push notification channel on the change feed",
	}, s.handleRegisterChannel)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "watch_delete_channel",
		Description: "Stop a push notification channel",
	}, s.handleDeleteChannel)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "permissions_list",
		Description: "List who can access a file",
	}, s.handleListPermissions)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "permissions_grant",
		Description: "Share a file with a user, group, domain or anyone",
	}, s.handleGrantPermission)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "permissions_update",
		Description: "Change the role of an existing permission",
	}, s.handleUpdatePermission)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "permissions_revoke",
		Description: "Remove a permission from a file",
	}, s.handleRevokePermission)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "maintenance_prune_downloads",
		Description: "Delete old download audit rows",
	}, s.handlePruneDownloads)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "maintenance_health",
		Description: "Check the state database and the Drive API",
	}, s.handleHealth)
}

// toolNames lists the registered tools, in registration order.
var toolNames = []string{
	"drive_list_files", "drive_create_folder",
	"drive_get_checkpoint", "drive_update_checkpoint", "drive_sync_changes",
	"watch_list_channels", "watch_register_channel", "watch_delete_channel",
	"permissions_list", "permissions_grant", "permissions_update", "permissions_revoke",
	"maintenance_prune_downloads", "maintenance_health",
}

func required(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required: %w", field, domain.ErrInvalidInput)
	}
	return nil
}

func (s *Server) handleListFiles(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListFilesInput,
) (*mcp.CallToolResult, ListFilesOutput, error) {
	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	driveID := ""
	if input.Drive != "" {
		driveID = input.Drive
		if s.ports.Catalog != nil {
			id, err := s.ports.Catalog.ResolveDriveID(ctx, s.ports.AccountID, input.Drive)
			if err != nil {
				return nil, ListFilesOutput{}, err
			}
			driveID = id
		}
		if driveID == domain.MyDriveID {
			driveID = ""
		}
	}

	list, err := s.ports.Drive.ListFiles(ctx, input.Query, driveID, pageSize, input.PageToken)
	if err != nil {
		return nil, ListFilesOutput{}, err
	}

	output := ListFilesOutput{
		Files:         make([]FileOutput, len(list.Files)),
		Count:         len(list.Files),
		NextPageToken: list.NextPageToken,
	}
	for i, f := range list.Files {
		output.Files[i] = toFileOutput(f)
	}
	return nil, output, nil
}

func (s *Server) handleCreateFolder(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CreateFolderInput,
) (*mcp.CallToolResult, FileOutput, error) {
	if err := required("name", input.Name); err != nil {
		return nil, FileOutput{}, err
	}
	var parents []string
	if input.ParentID != "" {
		parents = append(parents, input.ParentID)
	}
	folder, err := s.ports.Drive.CreateFolder(ctx, input.Name, parents...)
	if err != nil {
		return nil, FileOutput{}, err
	}
	return nil, toFileOutput(folder), nil
}

func (s *Server) handleGetCheckpoint(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ CheckpointInput,
) (*mcp.CallToolResult, CheckpointOutput, error) {
	cp, err := s.ports.Sync.GetCheckpoint(ctx, s.ports.AccountID)
	if err != nil {
		return nil, CheckpointOutput{}, err
	}
	return nil, toCheckpointOutput(s.ports.AccountID, cp), nil
}

func (s *Server) handleUpdateCheckpoint(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UpdateCheckpointInput,
) (*mcp.CallToolResult, CheckpointOutput, error) {
	cp, err := s.ports.Sync.UpdateCheckpoint(ctx, s.ports.AccountID, input.Cursor)
	if err != nil {
		return nil, CheckpointOutput{}, err
	}
	return nil, toCheckpointOutput(s.ports.AccountID, cp), nil
}

func (s *Server) handleSyncChanges(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ SyncChangesInput,
) (*mcp.CallToolResult, SyncChangesOutput, error) {
	result, err := s.ports.Sync.SyncChanges(ctx, s.ports.AccountID)
	if err != nil {
		return nil, SyncChangesOutput{}, err
	}

	output := SyncChangesOutput{
		Initialised: result.Initialised,
		Changes:     make([]ChangeOutput, len(result.Changes)),
		Count:       len(result.Changes),
		Cursor:      result.Cursor,
		HasMore:     result.HasMore,
	}
	for i, c := range result.Changes {
		output.Changes[i] = ChangeOutput{
			FileID:   c.FileID,
			DriveID:  c.DriveID,
			Name:     c.Name,
			MimeType: c.MimeType,
			Removed:  c.Removed,
			Time:     formatTime(c.Time),
		}
	}
	return nil, output, nil
}

func (s *Server) handleListChannels(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListChannelsInput,
) (*mcp.CallToolResult, ListChannelsOutput, error) {
	if s.ports.Watch == nil {
		return nil, ListChannelsOutput{}, ErrNotConfigured
	}
	channels, err := s.ports.Watch.List(ctx, s.ports.AccountID)
	if err != nil {
		return nil, ListChannelsOutput{}, err
	}

	output := ListChannelsOutput{
		Channels: make([]ChannelOutput, len(channels)),
		Count:    len(channels),
	}
	for i, ch := range channels {
		output.Channels[i] = toChannelOutput(ch)
	}
	return nil, output, nil
}

func (s *Server) handleRegisterChannel(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RegisterChannelInput,
) (*mcp.CallToolResult, ChannelOutput, error) {
	if s.ports.Watch == nil {
		return nil, ChannelOutput{}, ErrNotConfigured
	}
	address := input.Address
	if address == "" {
		address = s.ports.WebhookURL
	}
	ch, err := s.ports.Watch.Register(ctx, s.ports.AccountID, address)
	if err != nil {
		return nil, ChannelOutput{}, err
	}
	return nil, toChannelOutput(*ch), nil
}

func (s *Server) handleDeleteChannel(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DeleteChannelInput,
) (*mcp.CallToolResult, DeleteChannelOutput, error) {
	if s.ports.Watch == nil {
		return nil, DeleteChannelOutput{}, ErrNotConfigured
	}
	if err := required("channel_id", input.ChannelID); err != nil {
		return nil, DeleteChannelOutput{}, err
	}
	if err := s.ports.Watch.Delete(ctx, input.ChannelID); err != nil {
		return nil, DeleteChannelOutput{}, err
	}
	return nil, DeleteChannelOutput{ChannelID: input.ChannelID, Deleted: true}, nil
}

func (s *Server) handleListPermissions(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListPermissionsInput,
) (*mcp.CallToolResult, ListPermissionsOutput, error) {
	if err := required("file_id", input.FileID); err != nil {
		return nil, ListPermissionsOutput{}, err
	}
	perms, err := s.ports.Drive.ListPermissions(ctx, input.FileID)
	if err != nil {
		return nil, ListPermissionsOutput{}, err
	}

	output := ListPermissionsOutput{
		Permissions: make([]PermissionOutput, len(perms)),
		Count:       len(perms),
	}
	for i, p := range perms {
		output.Permissions[i] = toPermissionOutput(p)
	}
	return nil, output, nil
}

func (s *Server) handleGrantPermission(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GrantPermissionInput,
) (*mcp.CallToolResult, PermissionOutput, error) {
	if err := errors.Join(
		required("file_id", input.FileID),
		required("type", input.Type),
		required("role", input.Role),
	); err != nil {
		return nil, PermissionOutput{}, err
	}
	perm := &drive.Permission{
		Type:         input.Type,
		Role:         input.Role,
		EmailAddress: input.EmailAddress,
		Domain:       input.Domain,
	}
	created, err := s.ports.Drive.CreatePermission(ctx, input.FileID, perm, input.Notify)
	if err != nil {
		return nil, PermissionOutput{}, err
	}
	return nil, toPermissionOutput(created), nil
}

func (s *Server) handleUpdatePermission(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UpdatePermissionInput,
) (*mcp.CallToolResult, PermissionOutput, error) {
	if err := errors.Join(
		required("file_id", input.FileID),
		required("permission_id", input.PermissionID),
		required("role", input.Role),
	); err != nil {
		return nil, PermissionOutput{}, err
	}
	updated, err := s.ports.Drive.UpdatePermission(ctx, input.FileID, input.PermissionID, input.Role)
	if err != nil {
		return nil, PermissionOutput{}, err
	}
	return nil, toPermissionOutput(updated), nil
}

func (s *Server) handleRevokePermission(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RevokePermissionInput,
) (*mcp.CallToolResult, RevokePermissionOutput, error) {
	if err := errors.Join(
		required("file_id", input.FileID),
		required("permission_id", input.PermissionID),
	); err != nil {
		return nil, RevokePermissionOutput{}, err
	}
	if err := s.ports.Drive.DeletePermission(ctx, input.FileID, input.PermissionID); err != nil {
		return nil, RevokePermissionOutput{}, err
	}
	return nil, RevokePermissionOutput{PermissionID: input.PermissionID, Revoked: true}, nil
}

func (s *Server) handlePruneDownloads(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input PruneDownloadsInput,
) (*mcp.CallToolResult, PruneDownloadsOutput, error) {
	if s.ports.Downloads == nil {
		return nil, PruneDownloadsOutput{}, ErrNotConfigured
	}
	days := input.OlderThanDays
	if days <= 0 {
		days = defaultPruneDays
	}
	n, err := s.ports.Downloads.Prune(ctx, time.Duration(days)*24*time.Hour)
	if err != nil {
		return nil, PruneDownloadsOutput{}, err
	}
	return nil, PruneDownloadsOutput{Removed: n}, nil
}

// handleHealth never fails; problems are reported in the output.
func (s *Server) handleHealth(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ HealthInput,
) (*mcp.CallToolResult, HealthOutput, error) {
	output := HealthOutput{
		Status:    "ok",
		Database:  "ok",
		API:       "ok",
		CheckedAt: formatTime(s.now()),
	}
	if s.ports.Health == nil {
		output.Database = "not configured"
	} else if err := s.ports.Health.Ping(ctx); err != nil {
		output.Status = "degraded"
		output.Database = err.Error()
	}
	if _, err := s.ports.Sync.GetCheckpoint(ctx, s.ports.AccountID); err != nil {
		output.Status = "degraded"
		output.Database = err.Error()
	}
	if _, err := s.ports.Drive.StartPageToken(ctx); err != nil {
		output.Status = "degraded"
		output.API = err.Error()
	}
	return nil, output, nil
}
