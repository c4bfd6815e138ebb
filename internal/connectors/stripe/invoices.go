package stripe

import (
	"context"
	"fmt"
)

// Invoice is a Stripe invoice.
type Invoice struct {
	ID               string            `json:"id"`
	Object           string            `json:"object"`
	Customer         string            `json:"customer"`
	Subscription     *string           `json:"subscription"`
	Status           string            `json:"status"`
	Number           string            `json:"number"`
	Currency         string            `json:"currency"`
	AmountDue        int64             `json:"amount_due"`
	AmountPaid       int64             `json:"amount_paid"`
	AmountRemaining  int64             `json:"amount_remaining"`
	Total            int64             `json:"total"`
	HostedInvoiceURL string            `json:"hosted_invoice_url"`
	DueDate          *int64            `json:"due_date"`
	Created          int64             `json:"created"`
	Metadata         map[string]string `json:"metadata"`
}

// GetID returns the invoice ID.
func (i Invoice) GetID() string { return i.ID }

// InvoiceParams creates an invoice.
type InvoiceParams struct {
	Customer         string            `form:"customer,omitempty"`
	Description      string            `form:"description,omitempty"`
	CollectionMethod string            `form:"collection_method,omitempty"`
	DaysUntilDue     int               `form:"days_until_due,omitempty"`
	AutoAdvance      *bool             `form:"auto_advance,omitempty"`
	Metadata         map[string]string `form:"metadata,omitempty"`
}

// InvoiceListParams filters an invoice listing.
type InvoiceListParams struct {
	ListParams
	Customer     string `form:"customer,omitempty"`
	Status       string `form:"status,omitempty"`
	Subscription string `form:"subscription,omitempty"`
}

// InvoicesService handles invoice endpoints.
type InvoicesService struct {
	b *backend
}

// List returns one page of invoices.
func (s *InvoicesService) List(ctx context.Context, params InvoiceListParams) (*List[Invoice], error) {
	var l List[Invoice]
	if err := s.b.get(ctx, "/invoices", params, &l); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return &l, nil
}

// ListAll returns every invoice matching params.
func (s *InvoicesService) ListAll(ctx context.Context, params InvoiceListParams) ([]Invoice, error) {
	params.Limit = pageLimit(params.Limit)
	return listAll(ctx, func(ctx context.Context, after string) (*List[Invoice], error) {
		p := params
		p.StartingAfter = after
		return s.List(ctx, p)
	})
}

// Get retrieves an invoice.
func (s *InvoicesService) Get(ctx context.Context, id string) (*Invoice, error) {
	var i Invoice
	if err := s.b.get(ctx, path("invoices", id), nil, &i); err != nil {
		return nil, fmt.Errorf("get invoice %s: %w", id, err)
	}
	return &i, nil
}

// Create creates a draft invoice.
func (s *InvoicesService) Create(ctx context.Context, params InvoiceParams, opts ...RequestOption) (*Invoice, error) {
	var i Invoice
	if err := s.b.post(ctx, "/invoices", params, &i, opts...); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	return &i, nil
}

func (s *InvoicesService) action(ctx context.Context, id, action string, opts []RequestOption) (*Invoice, error) {
	var i Invoice
	if err := s.b.post(ctx, path("invoices", id, action), nil, &i, opts...); err != nil {
		return nil, fmt.Errorf("%s invoice %s: %w", action, id, err)
	}
	return &i, nil
}

// Finalize finalizes a draft invoice.
func (s *InvoicesService) Finalize(ctx context.Context, id string, opts ...RequestOption) (*Invoice, error) {
	return s.action(ctx, id, "finalize", opts)
}

// Pay attempts to pay an open invoice.
func (s *InvoicesService) Pay(ctx context.Context, id string, opts ...RequestOption) (*Invoice, error) {
	return s.action(ctx, id, "pay", opts)
}

// Void voids a finalized invoice.
func (s *InvoicesService) Void(ctx context.Context, id string, opts ...RequestOption) (*Invoice, error) {
	return s.action(ctx, id, "void", opts)
}

// Send emails an invoice to the customer.
func (s *InvoicesService) Send(ctx context.Context, id string, opts ...RequestOption) (*Invoice, error) {
	return s.action(ctx, id, "send", opts)
}
