package notion

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
)

// SearchRequest is the body of a search.
type SearchRequest struct {
	Query       string        `json:"query,omitempty"`
	Filter      *SearchFilter `json:"filter,omitempty"`
	Sort        *SearchSort   `json:"sort,omitempty"`
	StartCursor string        `json:"start_cursor,omitempty"`
	PageSize    int           `json:"page_size,omitempty"`
}

// SearchFilter restricts results to pages or databases.
type SearchFilter struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

// ObjectFilter returns a filter on the object type ("page" or "database").
func ObjectFilter(object string) *SearchFilter {
	return &SearchFilter{Property: "object", Value: object}
}

// SearchSort orders results by last edit time.
type SearchSort struct {
	Direction string `json:"direction"`
	Timestamp string `json:"timestamp"`
}

// SearchResult is a page or a database.
type SearchResult struct {
	Object   string
	Page     *Page
	Database *Database
}

// ID returns the result's ID.
func (r SearchResult) ID() string {
	switch {
	case r.Page != nil:
		return r.Page.ID
	case r.Database != nil:
		return r.Database.ID
	}
	return ""
}

// Title returns the result's title.
func (r SearchResult) Title() string {
	switch {
	case r.Page != nil:
		return r.Page.Title()
	case r.Database != nil:
		return r.Database.Name()
	}
	return ""
}

// UnmarshalJSON decodes a page or database by its object field.
func (r *SearchResult) UnmarshalJSON(data []byte) error {
	var h struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(data, &h); err != nil {
		return rest.NewDecodeError(r, data, err)
	}
	r.Object = h.Object
	switch h.Object {
	case "page":
		r.Page = &Page{}
		return json.Unmarshal(data, r.Page)
	case "database":
		r.Database = &Database{}
		return json.Unmarshal(data, r.Database)
	default:
		return rest.NewDecodeError(r, data, fmt.Errorf("unexpected search object %q", h.Object))
	}
}

// MarshalJSON encodes the underlying page or database.
func (r SearchResult) MarshalJSON() ([]byte, error) {
	if r.Page != nil {
		return json.Marshal(r.Page)
	}
	return json.Marshal(r.Database)
}

// SearchService handles the search endpoint.
type SearchService struct {
	client *rest.Client
}

// Search returns one page of pages and databases shared with the integration.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (*List[SearchResult], error) {
	if req.PageSize > 0 {
		req.PageSize = clampPageSize(req.PageSize)
	}
	var list List[SearchResult]
	if err := s.client.Post(ctx, "/search", req, &list); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return &list, nil
}

// SearchAll returns every result, following cursors.
func (s *SearchService) SearchAll(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	return collect(ctx, func(ctx context.Context, cursor string) (*List[SearchResult], error) {
		r := req
		r.StartCursor = cursor
		return s.Search(ctx, r)
	})
}
