package stripe

import (
	"context"
	"fmt"
)

// Product is a Stripe product.
type Product struct {
	ID           string            `json:"id"`
	Object       string            `json:"object"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Active       bool              `json:"active"`
	DefaultPrice *string           `json:"default_price"`
	Created      int64             `json:"created"`
	Updated      int64             `json:"updated"`
	Metadata     map[string]string `json:"metadata"`
}

// GetID returns the product ID.
func (p Product) GetID() string { return p.ID }

// ProductParams creates or updates a product.
type ProductParams struct {
	Name        string            `form:"name,omitempty"`
	Description string            `form:"description,omitempty"`
	Active      *bool             `form:"active,omitempty"`
	Metadata    map[string]string `form:"metadata,omitempty"`
}

// ProductListParams filters a product listing.
type ProductListParams struct {
	ListParams
	Active *bool `form:"active,omitempty"`
}

// ProductsService handles product endpoints.
type ProductsService struct {
	b *backend
}

// List returns one page of products.
func (s *ProductsService) List(ctx context.Context, params ProductListParams) (*List[Product], error) {
	var l List[Product]
	if err := s.b.get(ctx, "/products", params, &l); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return &l, nil
}

// ListAll returns every product matching params.
func (s *ProductsService) ListAll(ctx context.Context, params ProductListParams) ([]Product, error) {
	params.Limit = pageLimit(params.Limit)
	return listAll(ctx, func(ctx context.Context, after string) (*List[Product], error) {
		p := params
		p.StartingAfter = after
		return s.List(ctx, p)
	})
}

// Get retrieves a product.
func (s *ProductsService) Get(ctx context.Context, id string) (*Product, error) {
	var p Product
	if err := s.b.get(ctx, path("products", id), nil, &p); err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return &p, nil
}

// Create creates a product.
func (s *ProductsService) Create(ctx context.Context, params ProductParams, opts ...RequestOption) (*Product, error) {
	var p Product
	if err := s.b.post(ctx, "/products", params, &p, opts...); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return &p, nil
}

// Update updates a product.
func (s *ProductsService) Update(ctx context.Context, id string, params ProductParams, opts ...RequestOption) (*Product, error) {
	var p Product
	if err := s.b.post(ctx, path("products", id), params, &p, opts...); err != nil {
		return nil, fmt.Errorf("update product %s: %w", id, err)
	}
	return &p, nil
}

// Price is a Stripe price.
type Price struct {
	ID         string            `json:"id"`
	Object     string            `json:"object"`
	Product    string            `json:"product"`
	Active     bool              `json:"active"`
	Currency   string            `json:"currency"`
	UnitAmount *int64            `json:"unit_amount"`
	Type       string            `json:"type"`
	Nickname   string            `json:"nickname"`
	Recurring  *Recurring        `json:"recurring"`
	Created    int64             `json:"created"`
	Metadata   map[string]string `json:"metadata"`
}

// GetID returns the price ID.
func (p Price) GetID() string { return p.ID }

// Recurring describes a subscription price interval.
type Recurring struct {
	Interval      string `json:"interval" form:"interval"`
	IntervalCount int    `json:"interval_count,omitempty" form:"interval_count,omitempty"`
}

// PriceParams creates a price. Only Active, Nickname and Metadata can be updated.
type PriceParams struct {
	Product    string            `form:"product,omitempty"`
	Currency   string            `form:"currency,omitempty"`
	UnitAmount *int64            `form:"unit_amount,omitempty"`
	Nickname   string            `form:"nickname,omitempty"`
	Active     *bool             `form:"active,omitempty"`
	Recurring  *Recurring        `form:"recurring,omitempty"`
	Metadata   map[string]string `form:"metadata,omitempty"`
}

// PriceListParams filters a price listing.
type PriceListParams struct {
	ListParams
	Product string `form:"product,omitempty"`
	Active  *bool  `form:"active,omitempty"`
	Type    string `form:"type,omitempty"`
}

// PricesService handles price endpoints.
type PricesService struct {
	b *backend
}

// List returns one page of prices.
func (s *PricesService) List(ctx context.Context, params PriceListParams) (*List[Price], error) {
	var l List[Price]
	if err := s.b.get(ctx, "/prices", params, &l); err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}
	return &l, nil
}

// ListAll returns every price matching params.
func (s *PricesService) ListAll(ctx context.Context, params PriceListParams) ([]Price, error) {
	params.Limit = pageLimit(params.Limit)
	return listAll(ctx, func(ctx context.Context, after string) (*List[Price], error) {
		p := params
		p.StartingAfter = after
		return s.List(ctx, p)
	})
}

// Get retrieves a price.
func (s *PricesService) Get(ctx context.Context, id string) (*Price, error) {
	var p Price
	if err := s.b.get(ctx, path("prices", id), nil, &p); err != nil {
		return nil, fmt.Errorf("get price %s: %w", id, err)
	}
	return &p, nil
}

// Create creates a price.
func (s *PricesService) Create(ctx context.Context, params PriceParams, opts ...RequestOption) (*Price, error) {
	var p Price
	if err := s.b.post(ctx, "/prices", params, &p, opts...); err != nil {
		return nil, fmt.Errorf("create price: %w", err)
	}
	return &p, nil
}

// Update updates a price.
func (s *PricesService) Update(ctx context.Context, id string, params PriceParams, opts ...RequestOption) (*Price, error) {
	var p Price
	if err := s.b.post(ctx, path("prices", id), params, &p, opts...); err != nil {
		return nil, fmt.Errorf("update price %s: %w", id, err)
	}
	return &p, nil
}
