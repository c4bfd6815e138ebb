package stripe

import (
	"context"
	"fmt"
)

// PaymentIntent is a Stripe payment intent.
type PaymentIntent struct {
	ID             string            `json:"id"`
	Object         string            `json:"object"`
	Amount         int64             `json:"amount"`
	AmountReceived int64             `json:"amount_received"`
	Currency       string            `json:"currency"`
	Customer       *string           `json:"customer"`
	Status         string            `json:"status"`
	Description    string            `json:"description"`
	PaymentMethod  *string           `json:"payment_method"`
	CaptureMethod  string            `json:"capture_method"`
	ClientSecret   string            `json:"client_secret"`
	LatestCharge   *string           `json:"latest_charge"`
	Created        int64             `json:"created"`
	Metadata       map[string]string `json:"metadata"`
}

// GetID returns the payment intent ID.
func (p PaymentIntent) GetID() string { return p.ID }

// PaymentIntentParams creates a payment intent.
type PaymentIntentParams struct {
	Amount             int64             `form:"amount,omitempty"`
	Currency           string            `form:"currency,omitempty"`
	Customer           string            `form:"customer,omitempty"`
	Description        string            `form:"description,omitempty"`
	PaymentMethod      string            `form:"payment_method,omitempty"`
	PaymentMethodTypes []string          `form:"payment_method_types,omitempty"`
	CaptureMethod      string            `form:"capture_method,omitempty"`
	Confirm            bool              `form:"confirm,omitempty"`
	Metadata           map[string]string `form:"metadata,omitempty"`
}

// PaymentIntentListParams filters a payment intent listing.
type PaymentIntentListParams struct {
	ListParams
	Customer string `form:"customer,omitempty"`
}

// PaymentIntentsService handles payment intent endpoints.
type PaymentIntentsService struct {
	b *backend
}

// List returns one page of payment intents.
func (s *PaymentIntentsService) List(ctx context.Context, params PaymentIntentListParams) (*List[PaymentIntent], error) {
	var l List[PaymentIntent]
	if err := s.b.get(ctx, "/payment_intents", params, &l); err != nil {
		return nil, fmt.Errorf("list payment intents: %w", err)
	}
	return &l, nil
}

// ListAll returns every payment intent matching params.
func (s *PaymentIntentsService) ListAll(ctx context.Context, params PaymentIntentListParams) ([]PaymentIntent, error) {
	params.Limit = pageLimit(params.Limit)
	return listAll(ctx, func(ctx context.Context, after string) (*List[PaymentIntent], error) {
		p := params
		p.StartingAfter = after
		return s.List(ctx, p)
	})
}

// Get retrieves a payment intent.
func (s *PaymentIntentsService) Get(ctx context.Context, id string) (*PaymentIntent, error) {
	var p PaymentIntent
	if err := s.b.get(ctx, path("payment_intents", id), nil, &p); err != nil {
		return nil, fmt.Errorf("get payment intent %s: %w", id, err)
	}
	return &p, nil
}

// Create creates a payment intent.
func (s *PaymentIntentsService) Create(ctx context.Context, params PaymentIntentParams, opts ...RequestOption) (*PaymentIntent, error) {
	var p PaymentIntent
	if err := s.b.post(ctx, "/payment_intents", params, &p, opts...); err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &p, nil
}

func (s *PaymentIntentsService) action(ctx context.Context, id, action string, params any, opts []RequestOption) (*PaymentIntent, error) {
	var p PaymentIntent
	if err := s.b.post(ctx, path("payment_intents", id, action), params, &p, opts...); err != nil {
		return nil, fmt.Errorf("%s payment intent %s: %w", action, id, err)
	}
	return &p, nil
}

// Confirm confirms a payment intent, optionally with a payment method.
func (s *PaymentIntentsService) Confirm(ctx context.Context, id, paymentMethod string, opts ...RequestOption) (*PaymentIntent, error) {
	params := map[string]string{}
	if paymentMethod != "" {
		params["payment_method"] = paymentMethod
	}
	return s.action(ctx, id, "confirm", params, opts)
}

// Capture captures an authorized payment intent. A zero amount captures the full amount.
func (s *PaymentIntentsService) Capture(ctx context.Context, id string, amount int64, opts ...RequestOption) (*PaymentIntent, error) {
	params := map[string]int64{}
	if amount > 0 {
		params["amount_to_capture"] = amount
	}
	return s.action(ctx, id, "capture", params, opts)
}

// Cancel cancels a payment intent.
func (s *PaymentIntentsService) Cancel(ctx context.Context, id, reason string, opts ...RequestOption) (*PaymentIntent, error) {
	params := map[string]string{}
	if reason != "" {
		params["cancellation_reason"] = reason
	}
	return s.action(ctx, id, "cancel", params, opts)
}

// Refund is a Stripe refund.
type Refund struct {
	ID            string            `json:"id"`
	Object        string            `json:"object"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Charge        string            `json:"charge"`
	PaymentIntent string            `json:"payment_intent"`
	Reason        *string           `json:"reason"`
	Status        string            `json:"status"`
	Created       int64             `json:"created"`
	Metadata      map[string]string `json:"metadata"`
}

// GetID returns the refund ID.
func (r Refund) GetID() string { return r.ID }

// RefundParams creates a refund. Set Charge or PaymentIntent.
type RefundParams struct {
	Charge        string            `form:"charge,omitempty"`
	PaymentIntent string            `form:"payment_intent,omitempty"`
	Amount        int64             `form:"amount,omitempty"`
	Reason        string            `form:"reason,omitempty"`
	Metadata      map[string]string `form:"metadata,omitempty"`
}

// RefundListParams filters a refund listing.
type RefundListParams struct {
	ListParams
	Charge        string `form:"charge,omitempty"`
	PaymentIntent string `form:"payment_intent,omitempty"`
}

// RefundsService handles refund endpoints.
type RefundsService struct {
	b *backend
}

// List returns one page of refunds.
func (s *RefundsService) List(ctx context.Context, params RefundListParams) (*List[Refund], error) {
	var l List[Refund]
	if err := s.b.get(ctx, "/refunds", params, &l); err != nil {
		return nil, fmt.Errorf("list refunds: %w", err)
	}
	return &l, nil
}

// Create refunds a charge or payment intent.
func (s *RefundsService) Create(ctx context.Context, params RefundParams, opts ...RequestOption) (*Refund, error) {
	if params.Charge == "" && params.PaymentIntent == "" {
		return nil, fmt.Errorf("stripe: refund needs a charge or a payment intent")
	}
	var r Refund
	if err := s.b.post(ctx, "/refunds", params, &r, opts...); err != nil {
		return nil, fmt.Errorf("create refund: %w", err)
	}
	return &r, nil
}

// Charge is a Stripe charge.
type Charge struct {
	ID             string            `json:"id"`
	Object         string            `json:"object"`
	Amount         int64             `json:"amount"`
	AmountRefunded int64             `json:"amount_refunded"`
	Currency       string            `json:"currency"`
	Customer       *string           `json:"customer"`
	Description    string            `json:"description"`
	Paid           bool              `json:"paid"`
	Refunded       bool              `json:"refunded"`
	Status         string            `json:"status"`
	PaymentIntent  *string           `json:"payment_intent"`
	ReceiptURL     string            `json:"receipt_url"`
	Created        int64             `json:"created"`
	Metadata       map[string]string `json:"metadata"`
}

// GetID returns the charge ID.
func (c Charge) GetID() string { return c.ID }

// ChargeListParams filters a charge listing.
type ChargeListParams struct {
	ListParams
	Customer      string `form:"customer,omitempty"`
	PaymentIntent string `form:"payment_intent,omitempty"`
}

// ChargesService handles charge endpoints.
type ChargesService struct {
	b *backend
}

// List returns one page of charges.
func (s *ChargesService) List(ctx context.Context, params ChargeListParams) (*List[Charge], error) {
	var l List[Charge]
	if err := s.b.get(ctx, "/charges", params, &l); err != nil {
		return nil, fmt.Errorf("list charges: %w", err)
	}
	return &l, nil
}

// Get retrieves a charge.
func (s *ChargesService) Get(ctx context.Context, id string) (*Charge, error) {
	var c Charge
	if err := s.b.get(ctx, path("charges", id), nil, &c); err != nil {
		return nil, fmt.Errorf("get charge %s: %w", id, err)
	}
	return &c, nil
}
