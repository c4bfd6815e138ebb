package drive

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/connect-cli/internal/connectors/google"
	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
)

// DrivesService lists shared drives.
type DrivesService struct {
	c *Client
}

// List returns one page of shared drives. pageSize is clamped to 1..100.
func (s *DrivesService) List(ctx context.Context, pageSize int, pageToken string) (*drive.DriveList, error) {
	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(clampPageSize(pageSize, 100, 100)))
	q.Set("pageToken", pageToken)
	var out drive.DriveList
	if err := s.c.rest.Get(ctx, "/drives", q, &out); err != nil {
		return nil, fmt.Errorf("list drives: %w", google.WrapError(err))
	}
	return &out, nil
}

// ListAll returns every shared drive visible to the user.
func (s *DrivesService) ListAll(ctx context.Context) ([]*drive.Drive, error) {
	return rest.CollectAll(ctx, func(ctx context.Context, cursor string) (rest.Page[*drive.Drive], error) {
		page, err := s.List(ctx, 0, cursor)
		if err != nil {
			return rest.Page[*drive.Drive]{}, err
		}
		return rest.Page[*drive.Drive]{Items: page.Drives, Next: page.NextPageToken}, nil
	})
}
