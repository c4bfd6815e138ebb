// Package drive provides a typed client for the Google Drive v3 REST API.
//
// Wire types are the generated structs of google.golang.org/api/drive/v3;
// requests go through the shared REST client so that token refresh, rate
// limiting, logging and metrics behave like every other connector.
package drive

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/custodia-labs/connect-cli/internal/connectors/google"
	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

const (
	// DefaultBaseURL is the Drive v3 API root.
	DefaultBaseURL = "https://www.googleapis.com/drive/v3"
	// DefaultUploadURL is the Drive v3 media upload root.
	DefaultUploadURL = "https://www.googleapis.com/upload/drive/v3"
)

// Config configures a Client.
type Config struct {
	// AccessToken is the current OAuth access token. It may be empty when
	// Refresher can mint one.
	AccessToken string
	// Refresher exchanges the refresh token after a 401.
	Refresher rest.Refresher
	// BaseURL and UploadURL override the API roots (tests).
	BaseURL   string
	UploadURL string
}

// Client is the Google Drive API facade.
type Client struct {
	rest   *rest.Client
	upload *rest.Client
	bearer *rest.RefreshingBearer

	Files       *FilesService
	Changes     *ChangesService
	Channels    *ChannelsService
	Permissions *PermissionsService
	Drives      *DrivesService
}

// New creates a Drive client.
func New(cfg Config, opts ...rest.Option) (*Client, error) {
	if cfg.AccessToken == "" && cfg.Refresher == nil {
		return nil, fmt.Errorf("googledrive: %w: run 'connect googledrive auth login'", domain.ErrAuthRequired)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UploadURL == "" {
		cfg.UploadURL = DefaultUploadURL
	}

	bearer := rest.NewRefreshingBearer(cfg.AccessToken, cfg.Refresher)
	base := []rest.Option{
		rest.WithName("googledrive"),
		rest.WithAuth(bearer),
		rest.WithErrorParser(google.ErrorParser),
		rest.WithRateLimiter(google.NewRateLimiter(google.APIDrive)),
	}
	all := append(base, opts...)

	c := &Client{
		rest:   rest.New(cfg.BaseURL, all...),
		upload: rest.New(cfg.UploadURL, all...),
		bearer: bearer,
	}
	c.Files = &FilesService{c: c}
	c.Changes = &ChangesService{c: c}
	c.Channels = &ChannelsService{c: c}
	c.Permissions = &PermissionsService{c: c}
	c.Drives = &DrivesService{c: c}
	return c, nil
}

// REST returns the underlying API client.
func (c *Client) REST() *rest.Client {
	return c.rest
}

// Bearer returns the refreshing authenticator shared by both hosts.
// Resetting it swaps the token used by subsequent calls.
func (c *Client) Bearer() *rest.RefreshingBearer {
	return c.bearer
}

// clampPageSize bounds n to [1, limit]; zero picks def.
func clampPageSize(n, def, limit int) int {
	if n == 0 {
		n = def
	}
	return min(max(n, 1), limit)
}

func path(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(p))
	}
	return b.String()
}

func allDrivesQuery() url.Values {
	return url.Values{"supportsAllDrives": {"true"}}
}
