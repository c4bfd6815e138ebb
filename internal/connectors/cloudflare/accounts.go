package cloudflare

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Account is a Cloudflare account.
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	CreatedOn time.Time `json:"created_on"`
}

// AccountsService handles account endpoints.
type AccountsService struct {
	c *Client
}

// List returns one page of accounts.
func (s *AccountsService) List(ctx context.Context, params PageParams) ([]Account, *ResultInfo, error) {
	q := url.Values{}
	params.apply(q)
	accounts, info, err := get[[]Account](ctx, s.c, "/accounts", q)
	if err != nil {
		return nil, nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, info, nil
}

// ListAll returns every account the credentials can see.
func (s *AccountsService) ListAll(ctx context.Context) ([]Account, error) {
	return listAll(ctx, DefaultPerPage, s.List)
}
