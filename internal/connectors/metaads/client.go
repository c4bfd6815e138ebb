// Package metaads provides a typed client for the Meta Marketing API
// (Graph API ad objects, insights and media).
//
// Listings follow paging.cursors.after until paging.next is empty. Ad
// account IDs are accepted with or without the "act_" prefix.
package metaads

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

const (
	// DefaultVersion is the Graph API version used when none is configured.
	DefaultVersion = "v19.0"

	// DefaultHost is the Graph API host.
	DefaultHost = "https://graph.facebook.com"

	// DefaultLimit is the page size used by list-all helpers.
	DefaultLimit = 100

	requestsPerSecond = 10
)

// Config configures a Client.
type Config struct {
	AccessToken string
	// AccountID is the default ad account, with or without "act_".
	AccountID string
	// Version is the Graph API version, e.g. "v19.0".
	Version string
	// BaseURL overrides DefaultHost + "/" + Version.
	BaseURL string
	// ClientID and ClientSecret are the app credentials used by ExchangeToken.
	ClientID     string
	ClientSecret string
}

// Client is the Meta Ads API facade.
type Client struct {
	rest      *rest.Client
	token     string
	accountID string
	appID     string
	appSecret string

	Campaigns *ObjectService[Campaign]
	AdSets    *ObjectService[AdSet]
	Ads       *ObjectService[Ad]
	Creatives *CreativesService
	Insights  *InsightsService
	Accounts  *AccountsService
	Media     *MediaService
}

// New creates a Meta Ads client.
func New(cfg Config, opts ...rest.Option) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("metaads: %w: set META_ACCESS_TOKEN or 'connect metaads auth login'", domain.ErrAuthRequired)
	}
	base := cfg.BaseURL
	if base == "" {
		version := cfg.Version
		if version == "" {
			version = DefaultVersion
		}
		base = DefaultHost + "/" + version
	}

	all := append([]rest.Option{
		rest.WithName("metaads"),
		rest.WithAuth(rest.BearerToken(cfg.AccessToken)),
		rest.WithRateLimit(requestsPerSecond, requestsPerSecond),
	}, opts...)

	c := &Client{
		rest:      rest.New(base, all...),
		token:     cfg.AccessToken,
		accountID: cfg.AccountID,
		appID:     cfg.ClientID,
		appSecret: cfg.ClientSecret,
	}
	c.Campaigns = newObjectService[Campaign](c, "campaigns", CampaignFields)
	c.AdSets = newObjectService[AdSet](c, "adsets", AdSetFields)
	c.Ads = newObjectService[Ad](c, "ads", AdFields)
	c.Creatives = &CreativesService{c: c}
	c.Insights = &InsightsService{c: c}
	c.Accounts = &AccountsService{c: c}
	c.Media = &MediaService{c: c, poll: defaultPoll}
	return c, nil
}

// REST returns the underlying REST client.
func (c *Client) REST() *rest.Client {
	return c.rest
}

// NormaliseAccountID adds the "act_" prefix when it is missing.
func NormaliseAccountID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.HasPrefix(id, "act_") {
		return id
	}
	return "act_" + id
}

// account resolves the ad account for a call, falling back to the default.
func (c *Client) account(id string) (string, error) {
	if id == "" {
		id = c.accountID
	}
	if id == "" {
		return "", ErrNoAccount
	}
	return NormaliseAccountID(id), nil
}

// Paging is the Graph API paging block.
type Paging struct {
	Cursors struct {
		Before string `json:"before"`
		After  string `json:"after"`
	} `json:"cursors"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
}

// List is a Graph API edge listing.
type List[T any] struct {
	Data   []T     `json:"data"`
	Paging *Paging `json:"paging,omitempty"`
}

// Next returns the after cursor, or "" on the last page.
func (l *List[T]) Next() string {
	if l == nil || l.Paging == nil || l.Paging.Next == "" {
		return ""
	}
	return l.Paging.Cursors.After
}

// ListParams are the common edge listing parameters.
type ListParams struct {
	Fields          []string
	EffectiveStatus []string
	Limit           int
	After           string
}

func (p ListParams) query(defaultFields []string) url.Values {
	q := url.Values{}
	fields := p.Fields
	if len(fields) == 0 {
		fields = defaultFields
	}
	q.Set("fields", strings.Join(fields, ","))
	if len(p.EffectiveStatus) > 0 {
		q.Set("effective_status", jsonStringArray(p.EffectiveStatus))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	q.Set("after", p.After)
	return q
}

// jsonStringArray renders ["A","B"], the form Graph expects for array params.
func jsonStringArray(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = strconv.Quote(s)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

// listAll follows the after cursor until paging.next is empty.
func listAll[T any](ctx context.Context, params ListParams, fetch func(ctx context.Context, p ListParams) (*List[T], error)) ([]T, error) {
	if params.Limit <= 0 {
		params.Limit = DefaultLimit
	}
	return rest.CollectAll(ctx, func(ctx context.Context, cursor string) (rest.Page[T], error) {
		p := params
		p.After = cursor
		l, err := fetch(ctx, p)
		if err != nil {
			return rest.Page[T]{}, err
		}
		return rest.Page[T]{Items: l.Data, Next: l.Next()}, nil
	})
}

// created is the response of create endpoints.
type created struct {
	ID string `json:"id"`
}

// success is the response of update and delete endpoints.
type success struct {
	Success bool `json:"success"`
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	return c.rest.Get(ctx, path, q, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.rest.Post(ctx, path, body, out)
}

func (c *Client) update(ctx context.Context, id string, body any) error {
	var s success
	if err := c.rest.Post(ctx, "/"+url.PathEscape(id), body, &s); err != nil {
		return err
	}
	if !s.Success {
		return fmt.Errorf("metaads: update %s not acknowledged", id)
	}
	return nil
}

func (c *Client) remove(ctx context.Context, id string) error {
	var s success
	return c.rest.Delete(ctx, "/"+url.PathEscape(id), nil, &s)
}
