package metaads

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Insight levels.
const (
	LevelAccount  = "account"
	LevelCampaign = "campaign"
	LevelAdSet    = "adset"
	LevelAd       = "ad"
)

// DefaultInsightFields is requested when InsightsParams names no fields.
var DefaultInsightFields = []string{"campaign_name", "adset_name", "ad_name", "impressions", "clicks", "spend", "reach", "ctr", "cpc", "cpm", "actions"}

// TimeRange is an inclusive date range, YYYY-MM-DD.
type TimeRange struct {
	Since string `json:"since"`
	Until string `json:"until"`
}

// InsightsParams configures an insights query.
type InsightsParams struct {
	Level         string
	Fields        []string
	DatePreset    string
	TimeRange     *TimeRange
	TimeIncrement string
	Breakdowns    []string
	Limit         int
	After         string
}

func (p InsightsParams) query() (url.Values, error) {
	q := url.Values{}
	fields := p.Fields
	if len(fields) == 0 {
		fields = DefaultInsightFields
	}
	q.Set("fields", strings.Join(fields, ","))
	q.Set("level", p.Level)
	q.Set("date_preset", p.DatePreset)
	if p.TimeRange != nil {
		tr, err := json.Marshal(p.TimeRange)
		if err != nil {
			return nil, err
		}
		q.Set("time_range", string(tr))
	}
	q.Set("time_increment", p.TimeIncrement)
	q.Set("breakdowns", strings.Join(p.Breakdowns, ","))
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	q.Set("after", p.After)
	return q, nil
}

// ActionValue is one entry of an actions breakdown.
type ActionValue struct {
	ActionType string `json:"action_type"`
	Value      string `json:"value"`
}

// Insight is one row of an insights report. Metrics arrive as strings.
type Insight struct {
	AccountID    string        `json:"account_id,omitempty"`
	CampaignID   string        `json:"campaign_id,omitempty"`
	CampaignName string        `json:"campaign_name,omitempty"`
	AdSetID      string        `json:"adset_id,omitempty"`
	AdSetName    string        `json:"adset_name,omitempty"`
	AdID         string        `json:"ad_id,omitempty"`
	AdName       string        `json:"ad_name,omitempty"`
	Impressions  string        `json:"impressions,omitempty"`
	Clicks       string        `json:"clicks,omitempty"`
	Spend        string        `json:"spend,omitempty"`
	Reach        string        `json:"reach,omitempty"`
	CTR          string        `json:"ctr,omitempty"`
	CPC          string        `json:"cpc,omitempty"`
	CPM          string        `json:"cpm,omitempty"`
	Actions      []ActionValue `json:"actions,omitempty"`
	DateStart    string        `json:"date_start"`
	DateStop     string        `json:"date_stop"`
	// Extra holds breakdown columns and any requested field not listed above.
	Extra map[string]any `json:"-"`
}

var insightKnown = map[string]bool{
	"account_id": true, "campaign_id": true, "campaign_name": true, "adset_id": true,
	"adset_name": true, "ad_id": true, "ad_name": true, "impressions": true, "clicks": true,
	"spend": true, "reach": true, "ctr": true, "cpc": true, "cpm": true, "actions": true,
	"date_start": true, "date_stop": true,
}

// UnmarshalJSON keeps unknown columns in Extra.
func (in *Insight) UnmarshalJSON(data []byte) error {
	type plain Insight
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k, v := range all {
		if insightKnown[k] {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		p.Extra[k] = v
	}
	*in = Insight(p)
	return nil
}

// InsightsService handles the insights edge of accounts and ad objects.
type InsightsService struct {
	c *Client
}

// Get returns one page of insights for an object: an ad account (with or
// without "act_"), campaign, ad set or ad ID.
func (s *InsightsService) Get(ctx context.Context, objectID string, params InsightsParams) (*List[Insight], error) {
	q, err := params.query()
	if err != nil {
		return nil, fmt.Errorf("insights query: %w", err)
	}
	var l List[Insight]
	if err := s.c.get(ctx, "/"+url.PathEscape(objectID)+"/insights", q, &l); err != nil {
		return nil, fmt.Errorf("get insights for %s: %w", objectID, err)
	}
	return &l, nil
}

// ForAccount returns one page of account insights; an empty account uses the default.
func (s *InsightsService) ForAccount(ctx context.Context, account string, params InsightsParams) (*List[Insight], error) {
	act, err := s.c.account(account)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, act, params)
}

// All returns every insights row for an object.
func (s *InsightsService) All(ctx context.Context, objectID string, params InsightsParams) ([]Insight, error) {
	return listAll(ctx, ListParams{Limit: params.Limit}, func(ctx context.Context, p ListParams) (*List[Insight], error) {
		ip := params
		ip.Limit = p.Limit
		ip.After = p.After
		return s.Get(ctx, objectID, ip)
	})
}
