package stripe

import (
	"context"
	"fmt"
)

// Subscription is a Stripe subscription.
type Subscription struct {
	ID                 string                  `json:"id"`
	Object             string                  `json:"object"`
	Customer           string                  `json:"customer"`
	Status             string                  `json:"status"`
	CancelAtPeriodEnd  bool                    `json:"cancel_at_period_end"`
	CurrentPeriodStart int64                   `json:"current_period_start"`
	CurrentPeriodEnd   int64                   `json:"current_period_end"`
	CanceledAt         *int64                  `json:"canceled_at"`
	Items              *List[SubscriptionItem] `json:"items"`
	Created            int64                   `json:"created"`
	Metadata           map[string]string       `json:"metadata"`
}

// GetID returns the subscription ID.
func (s Subscription) GetID() string { return s.ID }

// SubscriptionItem is one price on a subscription.
type SubscriptionItem struct {
	ID       string `json:"id"`
	Price    Price  `json:"price"`
	Quantity int64  `json:"quantity"`
}

// GetID returns the item ID.
func (i SubscriptionItem) GetID() string { return i.ID }

// SubscriptionItemParams is one item of a subscription create or update.
type SubscriptionItemParams struct {
	ID       string `form:"id,omitempty"`
	Price    string `form:"price,omitempty"`
	Quantity int64  `form:"quantity,omitempty"`
	Deleted  bool   `form:"deleted,omitempty"`
}

// SubscriptionParams creates or updates a subscription.
type SubscriptionParams struct {
	Customer          string                   `form:"customer,omitempty"`
	Items             []SubscriptionItemParams `form:"items,omitempty"`
	TrialPeriodDays   int                      `form:"trial_period_days,omitempty"`
	CancelAtPeriodEnd *bool                    `form:"cancel_at_period_end,omitempty"`
	ProrationBehavior string                   `form:"proration_behavior,omitempty"`
	Metadata          map[string]string        `form:"metadata,omitempty"`
}

// SubscriptionListParams filters a subscription listing.
type SubscriptionListParams struct {
	ListParams
	Customer string `form:"customer,omitempty"`
	Price    string `form:"price,omitempty"`
	Status   string `form:"status,omitempty"`
}

// SubscriptionsService handles subscription endpoints.
type SubscriptionsService struct {
	b *backend
}

// List returns one page of subscriptions.
func (s *SubscriptionsService) List(ctx context.Context, params SubscriptionListParams) (*List[Subscription], error) {
	var l List[Subscription]
	if err := s.b.get(ctx, "/subscriptions", params, &l); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return &l, nil
}

// ListAll returns every subscription matching params.
func (s *SubscriptionsService) ListAll(ctx context.Context, params SubscriptionListParams) ([]Subscription, error) {
	params.Limit = pageLimit(params.Limit)
	return listAll(ctx, func(ctx context.Context, after string) (*List[Subscription], error) {
		p := params
		p.StartingAfter = after
		return s.List(ctx, p)
	})
}

// Get retrieves a subscription.
func (s *SubscriptionsService) Get(ctx context.Context, id string) (*Subscription, error) {
	var sub Subscription
	if err := s.b.get(ctx, path("subscriptions", id), nil, &sub); err != nil {
		return nil, fmt.Errorf("get subscription %s: %w", id, err)
	}
	return &sub, nil
}

// Create creates a subscription.
func (s *SubscriptionsService) Create(ctx context.Context, params SubscriptionParams, opts ...RequestOption) (*Subscription, error) {
	var sub Subscription
	if err := s.b.post(ctx, "/subscriptions", params, &sub, opts...); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	return &sub, nil
}

// Update updates a subscription.
func (s *SubscriptionsService) Update(ctx context.Context, id string, params SubscriptionParams, opts ...RequestOption) (*Subscription, error) {
	var sub Subscription
	if err := s.b.post(ctx, path("subscriptions", id), params, &sub, opts...); err != nil {
		return nil, fmt.Errorf("update subscription %s: %w", id, err)
	}
	return &sub, nil
}

// Cancel cancels a subscription immediately.
func (s *SubscriptionsService) Cancel(ctx context.Context, id string) (*Subscription, error) {
	var sub Subscription
	if err := s.b.delete(ctx, path("subscriptions", id), &sub); err != nil {
		return nil, fmt.Errorf("cancel subscription %s: %w", id, err)
	}
	return &sub, nil
}
