package stripe

import (
	"context"
	"fmt"
)

// Customer is a Stripe customer.
type Customer struct {
	ID          string            `json:"id"`
	Object      string            `json:"object"`
	Email       string            `json:"email"`
	Name        string            `json:"name"`
	Phone       string            `json:"phone"`
	Description string            `json:"description"`
	Currency    string            `json:"currency"`
	Balance     int64             `json:"balance"`
	Delinquent  bool              `json:"delinquent"`
	Created     int64             `json:"created"`
	Livemode    bool              `json:"livemode"`
	Address     *Address          `json:"address"`
	Metadata    map[string]string `json:"metadata"`
}

// GetID returns the customer ID.
func (c Customer) GetID() string { return c.ID }

// CustomerParams creates or updates a customer.
type CustomerParams struct {
	Email       string            `form:"email,omitempty"`
	Name        string            `form:"name,omitempty"`
	Phone       string            `form:"phone,omitempty"`
	Description string            `form:"description,omitempty"`
	Address     *Address          `form:"address,omitempty"`
	Metadata    map[string]string `form:"metadata,omitempty"`
}

// CustomerListParams filters a customer listing.
type CustomerListParams struct {
	ListParams
	Email string `form:"email,omitempty"`
}

// CustomersService handles customer endpoints.
type CustomersService struct {
	b *backend
}

// List returns one page of customers.
func (s *CustomersService) List(ctx context.Context, params CustomerListParams) (*List[Customer], error) {
	var l List[Customer]
	if err := s.b.get(ctx, "/customers", params, &l); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return &l, nil
}

// ListAll returns every customer matching params.
func (s *CustomersService) ListAll(ctx context.Context, params CustomerListParams) ([]Customer, error) {
	params.Limit = pageLimit(params.Limit)
	return listAll(ctx, func(ctx context.Context, after string) (*List[Customer], error) {
		p := params
		p.StartingAfter = after
		return s.List(ctx, p)
	})
}

// Get retrieves a customer.
func (s *CustomersService) Get(ctx context.Context, id string) (*Customer, error) {
	var c Customer
	if err := s.b.get(ctx, path("customers", id), nil, &c); err != nil {
		return nil, fmt.Errorf("get customer %s: %w", id, err)
	}
	return &c, nil
}

// Create creates a customer.
func (s *CustomersService) Create(ctx context.Context, params CustomerParams, opts ...RequestOption) (*Customer, error) {
	var c Customer
	if err := s.b.post(ctx, "/customers", params, &c, opts...); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return &c, nil
}

// Update updates a customer.
func (s *CustomersService) Update(ctx context.Context, id string, params CustomerParams, opts ...RequestOption) (*Customer, error) {
	var c Customer
	if err := s.b.post(ctx, path("customers", id), params, &c, opts...); err != nil {
		return nil, fmt.Errorf("update customer %s: %w", id, err)
	}
	return &c, nil
}

// Delete permanently deletes a customer.
func (s *CustomersService) Delete(ctx context.Context, id string) (*Deleted, error) {
	var d Deleted
	if err := s.b.delete(ctx, path("customers", id), &d); err != nil {
		return nil, fmt.Errorf("delete customer %s: %w", id, err)
	}
	return &d, nil
}

// Search runs a search query (e.g. "email:'a@b.com'") and returns one page.
func (s *CustomersService) Search(ctx context.Context, params SearchParams) (*SearchResult[Customer], error) {
	var r SearchResult[Customer]
	if err := s.b.get(ctx, "/customers/search", params, &r); err != nil {
		return nil, fmt.Errorf("search customers: %w", err)
	}
	return &r, nil
}

// SearchAll returns every customer matching the query.
func (s *CustomersService) SearchAll(ctx context.Context, query string) ([]Customer, error) {
	return searchAll(ctx, func(ctx context.Context, page string) (*SearchResult[Customer], error) {
		return s.Search(ctx, SearchParams{Query: query, Limit: MaxLimit, Page: page})
	})
}
