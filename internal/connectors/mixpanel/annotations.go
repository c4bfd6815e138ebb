package mixpanel

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
)

// Annotation marks a point in time on Mixpanel charts.
type Annotation struct {
	ID          int    `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	User        *struct {
		ID        int    `json:"id"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"user,omitempty"`
}

// AnnotationsService handles project annotations.
type AnnotationsService struct {
	c *Client
}

func (s *AnnotationsService) path(parts ...string) (string, error) {
	if s.c.projectID == "" {
		return "", fmt.Errorf("mixpanel: annotations need MIXPANEL_PROJECT_ID")
	}
	p := "/api/app/projects/" + url.PathEscape(s.c.projectID) + "/annotations"
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p, nil
}

// List returns annotations between two dates (YYYY-MM-DD); empty dates are unbounded.
func (s *AnnotationsService) List(ctx context.Context, fromDate, toDate string) ([]Annotation, error) {
	p, err := s.path()
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("fromDate", fromDate)
	q.Set("toDate", toDate)
	var out struct {
		Results []Annotation `json:"results"`
	}
	if err := s.c.query.Get(ctx, p, q, &out); err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	return out.Results, nil
}

// Create adds an annotation. date is "YYYY-MM-DD HH:MM:SS".
func (s *AnnotationsService) Create(ctx context.Context, date, description string) (*Annotation, error) {
	p, err := s.path()
	if err != nil {
		return nil, err
	}
	body := map[string]string{"date": date, "description": description}
	var out struct {
		Results Annotation `json:"results"`
	}
	if err := s.c.query.Post(ctx, p, body, &out); err != nil {
		return nil, fmt.Errorf("create annotation: %w", err)
	}
	return &out.Results, nil
}

// Delete removes an annotation.
func (s *AnnotationsService) Delete(ctx context.Context, id int) error {
	p, err := s.path(strconv.Itoa(id))
	if err != nil {
		return err
	}
	if err := s.c.query.Delete(ctx, p, nil, nil); err != nil {
		return fmt.Errorf("delete annotation %d: %w", id, err)
	}
	return nil
}

// Cohort is a saved cohort.
type Cohort struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Count       int    `json:"count"`
	Created     string `json:"created"`
	IsVisible   int    `json:"is_visible"`
	ProjectID   int    `json:"project_id"`
}

// CohortsService handles cohorts.
type CohortsService struct {
	c *Client
}

// List returns the project's saved cohorts.
func (s *CohortsService) List(ctx context.Context) ([]Cohort, error) {
	var out []Cohort
	resp, err := s.c.query.Do(ctx, rest.Request{
		Method:   http.MethodPost,
		Path:     "/api/query/cohorts/list",
		Query:    s.c.projectQuery(),
		Body:     map[string]string{},
		Encoding: rest.EncodingForm,
	})
	if err != nil {
		return nil, fmt.Errorf("list cohorts: %w", err)
	}
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
