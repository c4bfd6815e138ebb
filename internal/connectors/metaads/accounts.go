package metaads

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// AccountFields is the default field set for ad accounts.
var AccountFields = []string{"id", "account_id", "name", "account_status", "currency", "timezone_name", "amount_spent"}

// AdAccount is an ad account.
type AdAccount struct {
	ID            string `json:"id"`
	AccountID     string `json:"account_id"`
	Name          string `json:"name"`
	AccountStatus int    `json:"account_status"`
	Currency      string `json:"currency"`
	TimezoneName  string `json:"timezone_name"`
	AmountSpent   string `json:"amount_spent"`
}

// AccountsService handles ad account endpoints.
type AccountsService struct {
	c *Client
}

// List returns one page of the ad accounts the token can access.
func (s *AccountsService) List(ctx context.Context, params ListParams) (*List[AdAccount], error) {
	var l List[AdAccount]
	if err := s.c.get(ctx, "/me/adaccounts", params.query(AccountFields), &l); err != nil {
		return nil, fmt.Errorf("list ad accounts: %w", err)
	}
	return &l, nil
}

// ListAll returns every accessible ad account.
func (s *AccountsService) ListAll(ctx context.Context) ([]AdAccount, error) {
	return listAll(ctx, ListParams{}, s.List)
}

// Get retrieves an ad account; an empty ID uses the default.
func (s *AccountsService) Get(ctx context.Context, account string) (*AdAccount, error) {
	act, err := s.c.account(account)
	if err != nil {
		return nil, err
	}
	q := url.Values{"fields": {strings.Join(AccountFields, ",")}}
	var a AdAccount
	if err := s.c.get(ctx, "/"+act, q, &a); err != nil {
		return nil, fmt.Errorf("get ad account %s: %w", act, err)
	}
	return &a, nil
}
