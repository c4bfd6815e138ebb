package metaads

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

// exchangeResponse is the body of /oauth/access_token.
type exchangeResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ExchangeToken trades a short-lived user token for a long-lived one
// (about 60 days) using the fb_exchange_token grant. An empty token
// exchanges the client's own token.
func (c *Client) ExchangeToken(ctx context.Context, shortLived string) (*domain.Tokens, error) {
	if c.appID == "" || c.appSecret == "" {
		return nil, ErrAppCredentials
	}
	if shortLived == "" {
		shortLived = c.token
	}

	q := url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {c.appID},
		"client_secret":     {c.appSecret},
		"fb_exchange_token": {shortLived},
	}
	var out exchangeResponse
	if err := c.get(ctx, "/oauth/access_token", q, &out); err != nil {
		return nil, fmt.Errorf("exchange token: %w", err)
	}

	now := time.Now()
	tokens := &domain.Tokens{
		AccessToken: out.AccessToken,
		TokenType:   out.TokenType,
		UpdatedAt:   now,
	}
	if out.ExpiresIn > 0 {
		tokens.Expiry = now.Add(time.Duration(out.ExpiresIn) * time.Second)
	}
	return tokens, nil
}
