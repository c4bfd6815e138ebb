package drive

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/connect-cli/internal/connectors/google"
	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
)

// ChangesService handles the change feed.
type ChangesService struct {
	c *Client
}

// ListChangesParams configures a change listing.
type ListChangesParams struct {
	// PageSize is clamped to 1..1000; zero means 100.
	PageSize int
	// Fields is an optional field mask.
	Fields []string
}

func (p ListChangesParams) query(pageToken string) url.Values {
	q := url.Values{}
	q.Set("pageToken", pageToken)
	q.Set("pageSize", strconv.Itoa(clampPageSize(p.PageSize, 100, 1000)))
	q.Set("includeItemsFromAllDrives", "true")
	q.Set("supportsAllDrives", "true")
	q.Set("spaces", "drive")
	q.Set("fields", strings.Join(p.Fields, ","))
	return q
}

// StartPageToken returns the token marking the current head of the change feed.
func (s *ChangesService) StartPageToken(ctx context.Context) (string, error) {
	var out drive.StartPageToken
	if err := s.c.rest.Get(ctx, "/changes/startPageToken", allDrivesQuery(), &out); err != nil {
		return "", fmt.Errorf("get start page token: %w", google.WrapError(err))
	}
	if out.StartPageToken == "" {
		return "", fmt.Errorf("googledrive: empty start page token")
	}
	return out.StartPageToken, nil
}

// List returns one page of changes from pageToken. A 410 response is
// reported as google.ErrSyncTokenExpired.
func (s *ChangesService) List(ctx context.Context, pageToken string, params ListChangesParams) (*drive.ChangeList, error) {
	if pageToken == "" {
		return nil, fmt.Errorf("googledrive: a page token is required to list changes")
	}
	var out drive.ChangeList
	if err := s.c.rest.Get(ctx, "/changes", params.query(pageToken), &out); err != nil {
		return nil, fmt.Errorf("list changes: %w", google.WrapError(err))
	}
	return &out, nil
}

// ListAll follows nextPageToken from pageToken and returns every change
// along with the feed's newStartPageToken, which is only reported on the
// last page.
func (s *ChangesService) ListAll(ctx context.Context, pageToken string, params ListChangesParams) ([]*drive.Change, string, error) {
	var newStart string
	changes, err := rest.CollectAll(ctx, func(ctx context.Context, cursor string) (rest.Page[*drive.Change], error) {
		if cursor == "" {
			cursor = pageToken
		}
		page, err := s.List(ctx, cursor, params)
		if err != nil {
			return rest.Page[*drive.Change]{}, err
		}
		if page.NewStartPageToken != "" {
			newStart = page.NewStartPageToken
		}
		return rest.Page[*drive.Change]{Items: page.Changes, Next: page.NextPageToken}, nil
	})
	if err != nil {
		return nil, "", err
	}
	return changes, newStart, nil
}

// WatchRequest registers a push channel on the change feed.
type WatchRequest struct {
	// ID is the caller-chosen channel id.
	ID string
	// Address is the HTTPS webhook receiving notifications.
	Address string
	// Token is echoed back in the X-Goog-Channel-Token header.
	Token string
	// TTLSeconds asks Google for a channel lifetime; zero uses its default.
	TTLSeconds int
}

// Watch subscribes a webhook to changes after pageToken.
func (s *ChangesService) Watch(ctx context.Context, pageToken string, req WatchRequest) (*drive.Channel, error) {
	if req.ID == "" || req.Address == "" {
		return nil, fmt.Errorf("googledrive: watch needs a channel id and a webhook address")
	}
	body := &drive.Channel{
		Id:      req.ID,
		Type:    "web_hook",
		Address: req.Address,
		Token:   req.Token,
	}
	if req.TTLSeconds > 0 {
		body.Params = map[string]string{"ttl": strconv.Itoa(req.TTLSeconds)}
	}

	q := allDrivesQuery()
	q.Set("pageToken", pageToken)
	q.Set("includeItemsFromAllDrives", "true")
	var out drive.Channel
	resp, err := s.c.rest.Do(ctx, rest.Request{Method: http.MethodPost, Path: "/changes/watch", Query: q, Body: body})
	if err != nil {
		return nil, fmt.Errorf("watch changes: %w", google.WrapError(err))
	}
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChannelsService handles push channels.
type ChannelsService struct {
	c *Client
}

// Stop stops a push channel. resourceID may be empty.
func (s *ChannelsService) Stop(ctx context.Context, channelID, resourceID string) error {
	body := &drive.Channel{Id: channelID, ResourceId: resourceID}
	if err := s.c.rest.Post(ctx, "/channels/stop", body, nil); err != nil {
		return fmt.Errorf("stop channel %s: %w", channelID, google.WrapError(err))
	}
	return nil
}
