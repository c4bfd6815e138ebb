package drive

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/connect-cli/internal/connectors/google"
	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
)

// Permission roles.
const (
	RoleOwner         = "owner"
	RoleOrganizer     = "organizer"
	RoleFileOrganizer = "fileOrganizer"
	RoleWriter        = "writer"
	RoleCommenter     = "commenter"
	RoleReader        = "reader"
)

// Grantee types.
const (
	GranteeUser   = "user"
	GranteeGroup  = "group"
	GranteeDomain = "domain"
	GranteeAnyone = "anyone"
)

// PermissionsService handles file sharing.
type PermissionsService struct {
	c *Client
}

// List returns the permissions of a file.
func (s *PermissionsService) List(ctx context.Context, fileID string) ([]*drive.Permission, error) {
	var out drive.PermissionList
	if err := s.c.rest.Get(ctx, path("files", fileID, "permissions"), allDrivesQuery(), &out); err != nil {
		return nil, fmt.Errorf("list permissions of %s: %w", fileID, google.WrapError(err))
	}
	return out.Permissions, nil
}

// Create grants a permission. notify sends the grantee an email.
func (s *PermissionsService) Create(
	ctx context.Context, fileID string, perm *drive.Permission, notify bool,
) (*drive.Permission, error) {
	if perm == nil || perm.Role == "" || perm.Type == "" {
		return nil, fmt.Errorf("googledrive: permission needs a role and a type")
	}
	if (perm.Type == GranteeUser || perm.Type == GranteeGroup) && perm.EmailAddress == "" {
		return nil, fmt.Errorf("googledrive: %s permission needs an email address", perm.Type)
	}
	q := allDrivesQuery()
	q.Set("sendNotificationEmail", strconv.FormatBool(notify))
	return s.send(ctx, http.MethodPost, path("files", fileID, "permissions"), q, perm)
}

// Update changes the role of a permission.
func (s *PermissionsService) Update(ctx context.Context, fileID, permissionID, role string) (*drive.Permission, error) {
	if role == "" {
		return nil, fmt.Errorf("googledrive: role is required")
	}
	return s.send(ctx, http.MethodPatch, path("files", fileID, "permissions", permissionID), allDrivesQuery(),
		&drive.Permission{Role: role})
}

// Delete revokes a permission.
func (s *PermissionsService) Delete(ctx context.Context, fileID, permissionID string) error {
	err := s.c.rest.Delete(ctx, path("files", fileID, "permissions", permissionID), allDrivesQuery(), nil)
	if err != nil {
		return fmt.Errorf("delete permission %s of %s: %w", permissionID, fileID, google.WrapError(err))
	}
	return nil
}

func (s *PermissionsService) send(
	ctx context.Context, method, p string, q url.Values, body *drive.Permission,
) (*drive.Permission, error) {
	resp, err := s.c.rest.Do(ctx, rest.Request{Method: method, Path: p, Query: q, Body: body})
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, p, google.WrapError(err))
	}
	var out drive.Permission
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
