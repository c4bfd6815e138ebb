package mixpanel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
)

// Profile is a user profile returned by the engage query.
type Profile struct {
	DistinctID string         `json:"$distinct_id"`
	Properties map[string]any `json:"$properties"`
}

// EngageParams filters an engage query.
type EngageParams struct {
	// Where is a profile filter expression, e.g. `properties["plan"] == "pro"`.
	Where string
	// OutputProperties limits the returned properties.
	OutputProperties []string
	// CohortID restricts the query to a cohort.
	CohortID int
}

// EngagePage is one page of an engage query.
type EngagePage struct {
	Results   []Profile `json:"results"`
	Page      int       `json:"page"`
	PageSize  int       `json:"page_size"`
	SessionID string    `json:"session_id"`
	Status    string    `json:"status"`
	Total     int       `json:"total"`
}

// engageForm is the form body of /api/query/engage.
type engageForm struct {
	Where            string `form:"where,omitempty"`
	OutputProperties string `form:"output_properties,omitempty"`
	FilterByCohort   string `form:"filter_by_cohort,omitempty"`
	SessionID        string `form:"session_id,omitempty"`
	Page             int    `form:"page,omitempty"`
}

// profileUpdate is one /engage operation.
type profileUpdate struct {
	Token       string         `json:"$token"`
	DistinctID  string         `json:"$distinct_id"`
	Set         map[string]any `json:"$set,omitempty"`
	Delete      *string        `json:"$delete,omitempty"`
	IgnoreAlias bool           `json:"$ignore_alias,omitempty"`
}

// EngageService handles user profile endpoints.
type EngageService struct {
	c *Client
}

// Query returns one page of profiles. Pass the session ID and page of the
// previous page to continue a query; zero values start a new one.
func (s *EngageService) Query(ctx context.Context, params EngageParams, sessionID string, page int) (*EngagePage, error) {
	form := engageForm{
		Where:     params.Where,
		SessionID: sessionID,
		Page:      page,
	}
	if len(params.OutputProperties) > 0 {
		names, err := json.Marshal(params.OutputProperties)
		if err != nil {
			return nil, err
		}
		form.OutputProperties = string(names)
	}
	if params.CohortID > 0 {
		form.FilterByCohort = fmt.Sprintf(`{"id":%d}`, params.CohortID)
	}

	resp, err := s.c.query.Do(ctx, rest.Request{
		Method:   http.MethodPost,
		Path:     "/api/query/engage",
		Query:    s.c.projectQuery(),
		Body:     form,
		Encoding: rest.EncodingForm,
	})
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	var out EngagePage
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryAll returns every profile matching params. Pages are requested
// until one comes back shorter than the page size.
func (s *EngageService) QueryAll(ctx context.Context, params EngageParams) ([]Profile, error) {
	var all []Profile
	sessionID := ""
	page := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := s.Query(ctx, params, sessionID, page)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Results...)
		if p.PageSize == 0 || len(p.Results) < p.PageSize {
			return all, nil
		}
		sessionID = p.SessionID
		page = p.Page + 1
	}
}

// Set sets properties on a profile.
func (s *EngageService) Set(ctx context.Context, distinctID string, props map[string]any) error {
	return s.send(ctx, profileUpdate{DistinctID: distinctID, Set: props})
}

// Delete deletes a profile.
func (s *EngageService) Delete(ctx context.Context, distinctID string) error {
	empty := ""
	return s.send(ctx, profileUpdate{DistinctID: distinctID, Delete: &empty, IgnoreAlias: true})
}

func (s *EngageService) send(ctx context.Context, u profileUpdate) error {
	if s.c.projectToken == "" {
		return ErrNoProjectToken
	}
	if u.DistinctID == "" {
		return fmt.Errorf("mixpanel: profile update needs a distinct id")
	}
	u.Token = s.c.projectToken

	var out struct {
		Status int    `json:"status"`
		Error  string `json:"error"`
	}
	q := s.c.projectQuery()
	q.Set("verbose", "1")
	resp, err := s.c.ingest.Do(ctx, rest.Request{
		Method: http.MethodPost,
		Path:   "/engage",
		Query:  q,
		Body:   []profileUpdate{u},
	})
	if err != nil {
		return fmt.Errorf("update profile %s: %w", u.DistinctID, err)
	}
	if err := resp.Decode(&out); err != nil {
		return err
	}
	if out.Status != 1 {
		return fmt.Errorf("update profile %s: %s", u.DistinctID, defaultString(out.Error, "rejected"))
	}
	return nil
}
