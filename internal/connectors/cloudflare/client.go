// Package cloudflare provides a typed client for the Cloudflare v4 API.
//
// Every response is wrapped in an envelope:
//
//	{"success": true, "errors": [], "messages": [], "result": ..., "result_info": {...}}
//
// The client unwraps it and returns the result. An envelope with
// success=false is an *rest.APIError even when the HTTP status is 2xx.
package cloudflare

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

const (
	// DefaultBaseURL is the Cloudflare v4 API root.
	DefaultBaseURL = "https://api.cloudflare.com/client/v4"

	// DefaultPerPage is the page size used by list-all helpers.
	DefaultPerPage = 50

	// HeaderAuthEmail and HeaderAuthKey carry legacy global API key credentials.
	HeaderAuthEmail = "X-Auth-Email"
	HeaderAuthKey   = "X-Auth-Key"

	requestsPerSecond = 4
)

// Config configures a Client. Set APIToken, or Email and APIKey for the
// legacy global key.
type Config struct {
	APIToken  string
	APIKey    string
	Email     string
	AccountID string
	BaseURL   string
}

func (c Config) authenticator() (rest.Authenticator, error) {
	switch {
	case c.APIToken != "":
		return rest.BearerToken(c.APIToken), nil
	case c.APIKey != "" && c.Email != "":
		return rest.ChainAuth{
			rest.HeaderAuth{Name: HeaderAuthEmail, Value: c.Email},
			rest.HeaderAuth{Name: HeaderAuthKey, Value: c.APIKey},
		}, nil
	default:
		return nil, fmt.Errorf("cloudflare: %w: set CLOUDFLARE_API_TOKEN, or CLOUDFLARE_EMAIL and CLOUDFLARE_API_KEY", domain.ErrAuthRequired)
	}
}

// Client is the Cloudflare API facade.
type Client struct {
	rest      *rest.Client
	accountID string

	Zones    *ZonesService
	DNS      *DNSService
	Cache    *CacheService
	Settings *SettingsService
	Accounts *AccountsService
}

// New creates a Cloudflare client.
func New(cfg Config, opts ...rest.Option) (*Client, error) {
	auth, err := cfg.authenticator()
	if err != nil {
		return nil, err
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	all := append([]rest.Option{
		rest.WithName("cloudflare"),
		rest.WithAuth(auth),
		rest.WithRateLimit(requestsPerSecond, requestsPerSecond),
	}, opts...)

	c := &Client{rest: rest.New(base, all...), accountID: cfg.AccountID}
	c.Zones = &ZonesService{c: c}
	c.DNS = &DNSService{c: c}
	c.Cache = &CacheService{c: c}
	c.Settings = &SettingsService{c: c}
	c.Accounts = &AccountsService{c: c}
	return c, nil
}

// REST returns the underlying REST client.
func (c *Client) REST() *rest.Client {
	return c.rest
}

// AccountID returns the default account used when a call does not name one.
func (c *Client) AccountID() string {
	return c.accountID
}

// TokenStatus is the result of a token verification.
type TokenStatus struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	ExpiresOn string `json:"expires_on,omitempty"`
}

// VerifyToken checks that the configured API token is valid.
func (c *Client) VerifyToken(ctx context.Context) (*TokenStatus, error) {
	s, _, err := call[TokenStatus](ctx, c, rest.Request{Path: "/user/tokens/verify"})
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	return &s, nil
}

// PageParams selects one page of a listing.
type PageParams struct {
	Page    int
	PerPage int
}

func (p PageParams) apply(q url.Values) {
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(p.PerPage))
	}
}

// listAll walks page numbers until result_info.total_pages is reached.
func listAll[T any](ctx context.Context, perPage int, fetch func(ctx context.Context, p PageParams) ([]T, *ResultInfo, error)) ([]T, error) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return rest.CollectAll(ctx, func(ctx context.Context, cursor string) (rest.Page[T], error) {
		page := 1
		if cursor != "" {
			n, err := strconv.Atoi(cursor)
			if err != nil {
				return rest.Page[T]{}, fmt.Errorf("cloudflare: bad page cursor %q", cursor)
			}
			page = n
		}
		items, info, err := fetch(ctx, PageParams{Page: page, PerPage: perPage})
		if err != nil {
			return rest.Page[T]{}, err
		}
		next := ""
		if info.HasNext(page, len(items)) {
			next = strconv.Itoa(page + 1)
		}
		return rest.Page[T]{Items: items, Next: next}, nil
	})
}

func zonePath(zoneID string, parts ...string) string {
	p := "/zones/" + url.PathEscape(zoneID)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func get[T any](ctx context.Context, c *Client, path string, query url.Values) (T, *ResultInfo, error) {
	return call[T](ctx, c, rest.Request{Method: http.MethodGet, Path: path, Query: query})
}

func send[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	v, _, err := call[T](ctx, c, rest.Request{Method: method, Path: path, Body: body})
	return v, err
}
