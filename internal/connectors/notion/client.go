package notion

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

const (
	// DefaultBaseURL is the Notion API root.
	DefaultBaseURL = "https://api.notion.com/v1"

	// DefaultVersion is the Notion-Version header value.
	DefaultVersion = "2022-06-28"

	// MaxPageSize is the largest page_size Notion accepts.
	MaxPageSize = 100

	// requestsPerSecond is Notion's documented average request rate.
	requestsPerSecond = 3
)

// Config configures a Client.
type Config struct {
	// Token is an integration secret or OAuth access token.
	Token string
	// BaseURL overrides DefaultBaseURL (tests, proxies).
	BaseURL string
	// Version overrides DefaultVersion.
	Version string
	// Refresher, when set, refreshes an OAuth token after a 401.
	Refresher rest.Refresher
}

// Client is the Notion API facade.
type Client struct {
	rest *rest.Client

	Pages     *PagesService
	Databases *DatabasesService
	Blocks    *BlocksService
	Search    *SearchService
	Users     *UsersService
	Comments  *CommentsService
}

// New creates a Notion client. Extra options are applied after the
// defaults, so callers can override timeouts, transport or metrics.
func New(cfg Config, opts ...rest.Option) (*Client, error) {
	if cfg.Token == "" && cfg.Refresher == nil {
		return nil, fmt.Errorf("notion: %w: set NOTION_API_KEY or run 'connect notion auth login'", domain.ErrAuthRequired)
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	version := cfg.Version
	if version == "" {
		version = DefaultVersion
	}

	var auth rest.Authenticator = rest.BearerToken(cfg.Token)
	if cfg.Refresher != nil {
		auth = rest.NewRefreshingBearer(cfg.Token, cfg.Refresher)
	}

	all := append([]rest.Option{
		rest.WithName("notion"),
		rest.WithAuth(auth),
		rest.WithHeader("Notion-Version", version),
		rest.WithRateLimit(requestsPerSecond, requestsPerSecond),
	}, opts...)

	return newClient(rest.New(base, all...)), nil
}

func newClient(rc *rest.Client) *Client {
	c := &Client{rest: rc}
	c.Pages = &PagesService{client: rc}
	c.Databases = &DatabasesService{client: rc}
	c.Blocks = &BlocksService{client: rc}
	c.Search = &SearchService{client: rc}
	c.Users = &UsersService{client: rc}
	c.Comments = &CommentsService{client: rc}
	return c
}

// REST returns the underlying REST client.
func (c *Client) REST() *rest.Client {
	return c.rest
}

// listQuery renders pagination options as query parameters.
func listQuery(opts ListOptions) url.Values {
	q := url.Values{}
	q.Set("start_cursor", opts.StartCursor)
	if opts.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(clampPageSize(opts.PageSize)))
	}
	return q
}

func clampPageSize(n int) int {
	if n <= 0 || n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// collect follows next_cursor over a list endpoint.
func collect[T any](ctx context.Context, fetch func(ctx context.Context, cursor string) (*List[T], error)) ([]T, error) {
	return rest.CollectAll(ctx, func(ctx context.Context, cursor string) (rest.Page[T], error) {
		list, err := fetch(ctx, cursor)
		if err != nil {
			return rest.Page[T]{}, err
		}
		return rest.Page[T]{Items: list.Results, Next: list.Next()}, nil
	})
}
