package metaads

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Configured statuses accepted by status updates.
const (
	StatusActive   = "ACTIVE"
	StatusPaused   = "PAUSED"
	StatusArchived = "ARCHIVED"
	StatusDeleted  = "DELETED"
)

// Default field sets requested when a listing names no fields.
var (
	CampaignFields = []string{"id", "name", "objective", "status", "effective_status", "daily_budget", "lifetime_budget", "created_time", "updated_time"}
	AdSetFields    = []string{"id", "name", "campaign_id", "status", "effective_status", "daily_budget", "billing_event", "optimization_goal", "start_time", "end_time"}
	AdFields       = []string{"id", "name", "adset_id", "campaign_id", "status", "effective_status", "creative", "created_time"}
)

// Campaign is an ad campaign. Budgets are in the account currency's minor
// unit and arrive as strings.
type Campaign struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Objective       string `json:"objective,omitempty"`
	Status          string `json:"status,omitempty"`
	EffectiveStatus string `json:"effective_status,omitempty"`
	DailyBudget     string `json:"daily_budget,omitempty"`
	LifetimeBudget  string `json:"lifetime_budget,omitempty"`
	CreatedTime     string `json:"created_time,omitempty"`
	UpdatedTime     string `json:"updated_time,omitempty"`
}

// AdSet is an ad set within a campaign.
type AdSet struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	CampaignID       string         `json:"campaign_id,omitempty"`
	Status           string         `json:"status,omitempty"`
	EffectiveStatus  string         `json:"effective_status,omitempty"`
	DailyBudget      string         `json:"daily_budget,omitempty"`
	BillingEvent     string         `json:"billing_event,omitempty"`
	OptimizationGoal string         `json:"optimization_goal,omitempty"`
	Targeting        map[string]any `json:"targeting,omitempty"`
	StartTime        string         `json:"start_time,omitempty"`
	EndTime          string         `json:"end_time,omitempty"`
}

// Ad is an ad within an ad set.
type Ad struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	AdSetID         string       `json:"adset_id,omitempty"`
	CampaignID      string       `json:"campaign_id,omitempty"`
	Status          string       `json:"status,omitempty"`
	EffectiveStatus string       `json:"effective_status,omitempty"`
	Creative        *CreativeRef `json:"creative,omitempty"`
	CreatedTime     string       `json:"created_time,omitempty"`
}

// CreativeRef points an ad at a creative.
type CreativeRef struct {
	ID string `json:"id"`
}

// ObjectService manages one ad object type (campaigns, ad sets or ads)
// under an ad account.
type ObjectService[T any] struct {
	c      *Client
	edge   string
	fields []string
}

func newObjectService[T any](c *Client, edge string, fields []string) *ObjectService[T] {
	return &ObjectService[T]{c: c, edge: edge, fields: fields}
}

// List returns one page of objects in an account. An empty account uses
// the client's default.
func (s *ObjectService[T]) List(ctx context.Context, account string, params ListParams) (*List[T], error) {
	act, err := s.c.account(account)
	if err != nil {
		return nil, err
	}
	var l List[T]
	if err := s.c.get(ctx, "/"+act+"/"+s.edge, params.query(s.fields), &l); err != nil {
		return nil, fmt.Errorf("list %s: %w", s.edge, err)
	}
	return &l, nil
}

// ListAll returns every object in an account matching params.
func (s *ObjectService[T]) ListAll(ctx context.Context, account string, params ListParams) ([]T, error) {
	return listAll(ctx, params, func(ctx context.Context, p ListParams) (*List[T], error) {
		return s.List(ctx, account, p)
	})
}

// Get retrieves one object.
func (s *ObjectService[T]) Get(ctx context.Context, id string, fields ...string) (*T, error) {
	if len(fields) == 0 {
		fields = s.fields
	}
	q := url.Values{"fields": {strings.Join(fields, ",")}}
	var v T
	if err := s.c.get(ctx, "/"+url.PathEscape(id), q, &v); err != nil {
		return nil, fmt.Errorf("get %s %s: %w", strings.TrimSuffix(s.edge, "s"), id, err)
	}
	return &v, nil
}

// Create creates an object in an account and returns its ID. params are
// sent as the request body (e.g. name, objective, status,
// special_ad_categories).
func (s *ObjectService[T]) Create(ctx context.Context, account string, params map[string]any) (string, error) {
	act, err := s.c.account(account)
	if err != nil {
		return "", err
	}
	var out created
	if err := s.c.post(ctx, "/"+act+"/"+s.edge, params, &out); err != nil {
		return "", fmt.Errorf("create %s: %w", strings.TrimSuffix(s.edge, "s"), err)
	}
	return out.ID, nil
}

// Update changes fields of an object.
func (s *ObjectService[T]) Update(ctx context.Context, id string, params map[string]any) error {
	if err := s.c.update(ctx, id, params); err != nil {
		return fmt.Errorf("update %s %s: %w", strings.TrimSuffix(s.edge, "s"), id, err)
	}
	return nil
}

// Delete deletes an object.
func (s *ObjectService[T]) Delete(ctx context.Context, id string) error {
	if err := s.c.remove(ctx, id); err != nil {
		return fmt.Errorf("delete %s %s: %w", strings.TrimSuffix(s.edge, "s"), id, err)
	}
	return nil
}

// SetStatus sets the configured status.
func (s *ObjectService[T]) SetStatus(ctx context.Context, id, status string) error {
	return s.Update(ctx, id, map[string]any{"status": status})
}

// Pause sets status PAUSED.
func (s *ObjectService[T]) Pause(ctx context.Context, id string) error {
	return s.SetStatus(ctx, id, StatusPaused)
}

// Activate sets status ACTIVE.
func (s *ObjectService[T]) Activate(ctx context.Context, id string) error {
	return s.SetStatus(ctx, id, StatusActive)
}

// Archive sets status ARCHIVED.
func (s *ObjectService[T]) Archive(ctx context.Context, id string) error {
	return s.SetStatus(ctx, id, StatusArchived)
}
