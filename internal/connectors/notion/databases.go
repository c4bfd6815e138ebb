package notion

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
)

// Database is a Notion database.
type Database struct {
	Object         string      `json:"object"`
	ID             string      `json:"id"`
	CreatedTime    time.Time   `json:"created_time"`
	LastEditedTime time.Time   `json:"last_edited_time"`
	Title          []RichText  `json:"title"`
	Description    []RichText  `json:"description,omitempty"`
	Parent         Parent      `json:"parent"`
	URL            string      `json:"url,omitempty"`
	Archived       bool        `json:"archived"`
	InTrash        bool        `json:"in_trash,omitempty"`
	IsInline       bool        `json:"is_inline,omitempty"`
	Icon           *Icon       `json:"icon,omitempty"`
	Cover          *FileObject `json:"cover,omitempty"`
	Properties     Schema      `json:"properties"`
}

// Name returns the database title as plain text.
func (d *Database) Name() string {
	return PlainText(d.Title)
}

// CreateDatabaseRequest is the body of a database creation. Properties
// follow the API's schema objects, e.g. {"Name": {"title": {}}}.
type CreateDatabaseRequest struct {
	Parent     Parent         `json:"parent"`
	Title      []RichText     `json:"title"`
	Properties map[string]any `json:"properties"`
	IsInline   bool           `json:"is_inline,omitempty"`
	Icon       *Icon          `json:"icon,omitempty"`
}

// UpdateDatabaseRequest is the body of a database update.
type UpdateDatabaseRequest struct {
	Title       []RichText     `json:"title,omitempty"`
	Description []RichText     `json:"description,omitempty"`
	Properties  map[string]any `json:"properties,omitempty"`
	Archived    *bool          `json:"archived,omitempty"`
}

// Sort orders database query results.
type Sort struct {
	Property  string `json:"property,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Direction string `json:"direction"`
}

// QueryRequest is the body of a database query.
type QueryRequest struct {
	// Filter is a Notion filter object, e.g. the output of ParseFilter.
	Filter      map[string]any `json:"filter,omitempty"`
	Sorts       []Sort         `json:"sorts,omitempty"`
	StartCursor string         `json:"start_cursor,omitempty"`
	PageSize    int            `json:"page_size,omitempty"`
}

// DatabasesService handles database endpoints.
type DatabasesService struct {
	client *rest.Client
}

// Get retrieves a database and its schema.
func (s *DatabasesService) Get(ctx context.Context, id string) (*Database, error) {
	var d Database
	if err := s.client.Get(ctx, "/databases/"+url.PathEscape(id), nil, &d); err != nil {
		return nil, fmt.Errorf("get database %s: %w", id, err)
	}
	return &d, nil
}

// Create creates a database under a page.
func (s *DatabasesService) Create(ctx context.Context, req CreateDatabaseRequest) (*Database, error) {
	var d Database
	if err := s.client.Post(ctx, "/databases", req, &d); err != nil {
		return nil, fmt.Errorf("create database: %w", err)
	}
	return &d, nil
}

// Update patches a database title, description or schema.
func (s *DatabasesService) Update(ctx context.Context, id string, req UpdateDatabaseRequest) (*Database, error) {
	var d Database
	if err := s.client.Patch(ctx, "/databases/"+url.PathEscape(id), req, &d); err != nil {
		return nil, fmt.Errorf("update database %s: %w", id, err)
	}
	return &d, nil
}

// Query returns one page of database rows.
func (s *DatabasesService) Query(ctx context.Context, id string, req QueryRequest) (*List[Page], error) {
	if req.PageSize > 0 {
		req.PageSize = clampPageSize(req.PageSize)
	}
	var list List[Page]
	if err := s.client.Post(ctx, "/databases/"+url.PathEscape(id)+"/query", req, &list); err != nil {
		return nil, fmt.Errorf("query database %s: %w", id, err)
	}
	return &list, nil
}

// QueryAll returns every row matching req, following cursors.
func (s *DatabasesService) QueryAll(ctx context.Context, id string, req QueryRequest) ([]Page, error) {
	return collect(ctx, func(ctx context.Context, cursor string) (*List[Page], error) {
		r := req
		r.StartCursor = cursor
		if r.PageSize == 0 {
			r.PageSize = MaxPageSize
		}
		return s.Query(ctx, id, r)
	})
}
