package mixpanel

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Units for time-bucketed queries.
const (
	UnitMinute = "minute"
	UnitHour   = "hour"
	UnitDay    = "day"
	UnitWeek   = "week"
	UnitMonth  = "month"
)

// SegmentationParams configures a segmentation query.
type SegmentationParams struct {
	Event    string
	FromDate string
	ToDate   string
	// On is a property expression to segment by, e.g. `properties["country"]`.
	On    string
	Where string
	Unit  string
	// Type is "general", "unique" or "average".
	Type  string
	Limit int
}

// SegmentationResult is the response of the segmentation query.
type SegmentationResult struct {
	Data struct {
		Series []string                      `json:"series"`
		Values map[string]map[string]float64 `json:"values"`
	} `json:"data"`
	LegendSize int `json:"legend_size"`
}

// FunnelParams configures a saved funnel query.
type FunnelParams struct {
	FunnelID int
	FromDate string
	ToDate   string
	Unit     string
	On       string
	Where    string
}

// RetentionParams configures a retention query.
type RetentionParams struct {
	FromDate      string
	ToDate        string
	BornEvent     string
	Event         string
	RetentionType string
	Unit          string
	Interval      int
	IntervalCount int
	Where         string
}

// TopEvent is one row of the top events query.
type TopEvent struct {
	Event         string  `json:"event"`
	Amount        float64 `json:"amount"`
	PercentChange float64 `json:"percent_change"`
}

// QueryService handles the query API.
type QueryService struct {
	c *Client
}

func (s *QueryService) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	merged := s.c.projectQuery()
	for k, vs := range q {
		for _, v := range vs {
			merged.Add(k, v)
		}
	}
	return s.c.query.Get(ctx, path, merged, out)
}

// Segmentation returns event counts over time, optionally segmented.
func (s *QueryService) Segmentation(ctx context.Context, p SegmentationParams) (*SegmentationResult, error) {
	if p.Event == "" || p.FromDate == "" || p.ToDate == "" {
		return nil, fmt.Errorf("mixpanel: segmentation needs an event and a date range")
	}
	q := url.Values{}
	q.Set("event", p.Event)
	q.Set("from_date", p.FromDate)
	q.Set("to_date", p.ToDate)
	q.Set("on", p.On)
	q.Set("where", p.Where)
	q.Set("unit", p.Unit)
	q.Set("type", p.Type)
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	var out SegmentationResult
	if err := s.getJSON(ctx, "/api/query/segmentation", q, &out); err != nil {
		return nil, fmt.Errorf("segmentation %s: %w", p.Event, err)
	}
	return &out, nil
}

// Funnel returns the step conversion data of a saved funnel. The shape
// depends on the funnel, so it is returned as a generic document.
func (s *QueryService) Funnel(ctx context.Context, p FunnelParams) (map[string]any, error) {
	q := url.Values{}
	q.Set("funnel_id", strconv.Itoa(p.FunnelID))
	q.Set("from_date", p.FromDate)
	q.Set("to_date", p.ToDate)
	q.Set("unit", p.Unit)
	q.Set("on", p.On)
	q.Set("where", p.Where)
	var out map[string]any
	if err := s.getJSON(ctx, "/api/query/funnels", q, &out); err != nil {
		return nil, fmt.Errorf("funnel %d: %w", p.FunnelID, err)
	}
	return out, nil
}

// ListFunnels returns the saved funnels of the project.
func (s *QueryService) ListFunnels(ctx context.Context) ([]map[string]any, error) {
	var out []map[string]any
	if err := s.getJSON(ctx, "/api/query/funnels/list", nil, &out); err != nil {
		return nil, fmt.Errorf("list funnels: %w", err)
	}
	return out, nil
}

// Retention returns cohort retention keyed by cohort date.
func (s *QueryService) Retention(ctx context.Context, p RetentionParams) (map[string]any, error) {
	q := url.Values{}
	q.Set("from_date", p.FromDate)
	q.Set("to_date", p.ToDate)
	q.Set("born_event", p.BornEvent)
	q.Set("event", p.Event)
	q.Set("retention_type", p.RetentionType)
	q.Set("unit", p.Unit)
	q.Set("where", p.Where)
	if p.Interval > 0 {
		q.Set("interval", strconv.Itoa(p.Interval))
	}
	if p.IntervalCount > 0 {
		q.Set("interval_count", strconv.Itoa(p.IntervalCount))
	}
	var out map[string]any
	if err := s.getJSON(ctx, "/api/query/retention", q, &out); err != nil {
		return nil, fmt.Errorf("retention: %w", err)
	}
	return out, nil
}

// Insights returns the results of a saved Insights report.
func (s *QueryService) Insights(ctx context.Context, bookmarkID int) (map[string]any, error) {
	q := url.Values{"bookmark_id": {strconv.Itoa(bookmarkID)}}
	var out map[string]any
	if err := s.getJSON(ctx, "/api/query/insights", q, &out); err != nil {
		return nil, fmt.Errorf("insights report %d: %w", bookmarkID, err)
	}
	return out, nil
}

// EventNames returns the most common event names. typ is "general",
// "unique" or "average"; limit 0 uses the server default.
func (s *QueryService) EventNames(ctx context.Context, typ string, limit int) ([]string, error) {
	q := url.Values{}
	q.Set("type", defaultString(typ, "general"))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []string
	if err := s.getJSON(ctx, "/api/query/events/names", q, &out); err != nil {
		return nil, fmt.Errorf("event names: %w", err)
	}
	return out, nil
}

// TopEvents returns today's top events.
func (s *QueryService) TopEvents(ctx context.Context, typ string, limit int) ([]TopEvent, error) {
	q := url.Values{}
	q.Set("type", defaultString(typ, "general"))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Events []TopEvent `json:"events"`
		Type   string     `json:"type"`
	}
	if err := s.getJSON(ctx, "/api/query/events/top", q, &out); err != nil {
		return nil, fmt.Errorf("top events: %w", err)
	}
	return out.Events, nil
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
