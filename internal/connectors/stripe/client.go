// Package stripe provides a typed client for the Stripe API.
//
// Request bodies are form encoded with bracket notation. Every POST carries
// an Idempotency-Key. Connected accounts are addressed with the
// Stripe-Account header (Config.Account).
package stripe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

const (
	// DefaultBaseURL is the Stripe API root.
	DefaultBaseURL = "https://api.stripe.com/v1"

	// MaxLimit is the largest page size Stripe accepts.
	MaxLimit = 100

	// HeaderIdempotencyKey makes POST retries safe.
	HeaderIdempotencyKey = "Idempotency-Key"

	// HeaderAccount addresses a connected account.
	HeaderAccount = "Stripe-Account"

	// HeaderVersion pins the API version.
	HeaderVersion = "Stripe-Version"

	requestsPerSecond = 25
)

// Config configures a Client.
type Config struct {
	// APIKey is a secret or restricted key (sk_..., rk_...).
	APIKey string
	// Account is a connected account ID sent as Stripe-Account.
	Account string
	// Version pins Stripe-Version; the account default when empty.
	Version string
	// BaseURL overrides DefaultBaseURL.
	BaseURL string
}

// Client is the Stripe API facade.
type Client struct {
	rest *rest.Client

	Customers      *CustomersService
	Products       *ProductsService
	Prices         *PricesService
	Invoices       *InvoicesService
	PaymentIntents *PaymentIntentsService
	Subscriptions  *SubscriptionsService
	Refunds        *RefundsService
	Charges        *ChargesService
	Balance        *BalanceService
	Events         *EventsService
}

// New creates a Stripe client.
func New(cfg Config, opts ...rest.Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("stripe: %w: set STRIPE_API_KEY or 'connect stripe config set api_key'", domain.ErrAuthRequired)
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	all := []rest.Option{
		rest.WithName("stripe"),
		rest.WithAuth(rest.ChainAuth{
			rest.BearerToken(cfg.APIKey),
			rest.HeaderAuth{Name: HeaderAccount, Value: cfg.Account},
		}),
		rest.WithEncoding(rest.EncodingForm),
		rest.WithRateLimit(requestsPerSecond, requestsPerSecond),
	}
	if cfg.Version != "" {
		all = append(all, rest.WithHeader(HeaderVersion, cfg.Version))
	}
	all = append(all, opts...)

	b := &backend{client: rest.New(base, all...)}
	return &Client{
		rest:           b.client,
		Customers:      &CustomersService{b: b},
		Products:       &ProductsService{b: b},
		Prices:         &PricesService{b: b},
		Invoices:       &InvoicesService{b: b},
		PaymentIntents: &PaymentIntentsService{b: b},
		Subscriptions:  &SubscriptionsService{b: b},
		Refunds:        &RefundsService{b: b},
		Charges:        &ChargesService{b: b},
		Balance:        &BalanceService{b: b},
		Events:         &EventsService{b: b},
	}, nil
}

// REST returns the underlying REST client.
func (c *Client) REST() *rest.Client {
	return c.rest
}

// RequestOption adjusts a single request.
type RequestOption func(*rest.Request)

// WithIdempotencyKey sets an explicit Idempotency-Key instead of a random one.
func WithIdempotencyKey(key string) RequestOption {
	return func(r *rest.Request) {
		r.Header.Set(HeaderIdempotencyKey, key)
	}
}

// backend is shared by the resource services.
type backend struct {
	client *rest.Client
}

func (b *backend) get(ctx context.Context, path string, params any, out any) error {
	q, err := formQuery(params)
	if err != nil {
		return err
	}
	return b.client.Get(ctx, path, q, out)
}

// post sends a form body with an Idempotency-Key.
func (b *backend) post(ctx context.Context, path string, params any, out any, opts ...RequestOption) error {
	req := rest.Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   params,
		Header: http.Header{},
	}
	if params == nil {
		req.Body = map[string]string{}
	}
	for _, opt := range opts {
		opt(&req)
	}
	if req.Header.Get(HeaderIdempotencyKey) == "" {
		req.Header.Set(HeaderIdempotencyKey, uuid.NewString())
	}

	resp, err := b.client.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}

func (b *backend) delete(ctx context.Context, path string, out any) error {
	return b.client.Delete(ctx, path, nil, out)
}

// formQuery renders params as query values using the form encoder.
func formQuery(params any) (url.Values, error) {
	if params == nil {
		return nil, nil
	}
	encoded, err := rest.EncodeForm(params)
	if err != nil {
		return nil, err
	}
	q, err := url.ParseQuery(encoded)
	if err != nil {
		return nil, fmt.Errorf("stripe: encode query: %w", err)
	}
	return q, nil
}

func path(parts ...string) string {
	p := ""
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}
