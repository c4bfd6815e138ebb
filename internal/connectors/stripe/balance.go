package stripe

import (
	"context"
	"encoding/json"
	"fmt"
)

// Balance is the account balance.
type Balance struct {
	Object    string          `json:"object"`
	Available []BalanceAmount `json:"available"`
	Pending   []BalanceAmount `json:"pending"`
	Livemode  bool            `json:"livemode"`
}

// BalanceAmount is a balance in one currency.
type BalanceAmount struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// BalanceService handles the balance endpoint.
type BalanceService struct {
	b *backend
}

// Get retrieves the current balance.
func (s *BalanceService) Get(ctx context.Context) (*Balance, error) {
	var bal Balance
	if err := s.b.get(ctx, "/balance", nil, &bal); err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return &bal, nil
}

// Event is a Stripe webhook event.
type Event struct {
	ID       string `json:"id"`
	Object   string `json:"object"`
	Type     string `json:"type"`
	Created  int64  `json:"created"`
	Livemode bool   `json:"livemode"`
	Data     struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// GetID returns the event ID.
func (e Event) GetID() string { return e.ID }

// EventListParams filters an event listing.
type EventListParams struct {
	ListParams
	Type string `form:"type,omitempty"`
}

// EventsService handles event endpoints.
type EventsService struct {
	b *backend
}

// List returns one page of events.
func (s *EventsService) List(ctx context.Context, params EventListParams) (*List[Event], error) {
	var l List[Event]
	if err := s.b.get(ctx, "/events", params, &l); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return &l, nil
}

// Get retrieves an event.
func (s *EventsService) Get(ctx context.Context, id string) (*Event, error) {
	var e Event
	if err := s.b.get(ctx, path("events", id), nil, &e); err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	return &e, nil
}
