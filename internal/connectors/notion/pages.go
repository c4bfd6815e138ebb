package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
)

// Page is a Notion page.
type Page struct {
	Object         string                   `json:"object"`
	ID             string                   `json:"id"`
	CreatedTime    time.Time                `json:"created_time"`
	LastEditedTime time.Time                `json:"last_edited_time"`
	CreatedBy      *User                    `json:"created_by,omitempty"`
	LastEditedBy   *User                    `json:"last_edited_by,omitempty"`
	Parent         Parent                   `json:"parent"`
	Archived       bool                     `json:"archived"`
	InTrash        bool                     `json:"in_trash,omitempty"`
	URL            string                   `json:"url,omitempty"`
	PublicURL      *string                  `json:"public_url,omitempty"`
	Icon           *Icon                    `json:"icon,omitempty"`
	Cover          *FileObject              `json:"cover,omitempty"`
	Properties     map[string]PropertyValue `json:"properties"`
}

// Title returns the plain text of the page's title property.
func (p *Page) Title() string {
	for _, v := range p.Properties {
		if t, ok := v.Data.(*TitleValue); ok {
			return PlainText(t.RichText)
		}
	}
	return ""
}

// Schema returns the property names and types of the page.
func (p *Page) Schema() Schema {
	s := make(Schema, len(p.Properties))
	for name, v := range p.Properties {
		s[name] = PropertySchema{ID: v.ID, Name: name, Type: v.Type}
	}
	return s
}

// CreatePageRequest is the body of a page creation.
type CreatePageRequest struct {
	Parent     Parent                   `json:"parent"`
	Properties map[string]PropertyValue `json:"properties"`
	Children   []*Block                 `json:"children,omitempty"`
	Icon       *Icon                    `json:"icon,omitempty"`
	Cover      *FileObject              `json:"cover,omitempty"`
}

// UpdatePageRequest is the body of a page update. Nil fields are left unchanged.
type UpdatePageRequest struct {
	Properties map[string]PropertyValue `json:"properties,omitempty"`
	Archived   *bool                    `json:"archived,omitempty"`
	Icon       *Icon                    `json:"icon,omitempty"`
	Cover      *FileObject              `json:"cover,omitempty"`
}

// PropertyItem is the response of the page property endpoint. Paginated
// property types (title, rich_text, relation, people) return a list of
// items in Results.
type PropertyItem struct {
	Object     string          `json:"object"`
	ID         string          `json:"id,omitempty"`
	Type       PropertyType    `json:"type"`
	Results    []PropertyItem  `json:"results,omitempty"`
	NextCursor *string         `json:"next_cursor,omitempty"`
	HasMore    bool            `json:"has_more,omitempty"`
	Value      json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the value stored under the item's type key.
func (p *PropertyItem) UnmarshalJSON(data []byte) error {
	type item PropertyItem
	var h item
	if err := json.Unmarshal(data, &h); err != nil {
		return rest.NewDecodeError(p, data, err)
	}
	*p = PropertyItem(h)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return rest.NewDecodeError(p, data, err)
	}
	if p.Type != "" {
		p.Value = fields[string(p.Type)]
	}
	return nil
}

// PagesService handles page endpoints.
type PagesService struct {
	client *rest.Client
}

// Get retrieves a page.
func (s *PagesService) Get(ctx context.Context, id string) (*Page, error) {
	var p Page
	if err := s.client.Get(ctx, "/pages/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, fmt.Errorf("get page %s: %w", id, err)
	}
	return &p, nil
}

// Create creates a page under a page or database parent.
func (s *PagesService) Create(ctx context.Context, req CreatePageRequest) (*Page, error) {
	var p Page
	if err := s.client.Post(ctx, "/pages", req, &p); err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return &p, nil
}

// Update patches page properties, icon, cover or archived state.
func (s *PagesService) Update(ctx context.Context, id string, req UpdatePageRequest) (*Page, error) {
	var p Page
	if err := s.client.Patch(ctx, "/pages/"+url.PathEscape(id), req, &p); err != nil {
		return nil, fmt.Errorf("update page %s: %w", id, err)
	}
	return &p, nil
}

// Archive moves a page to the trash.
func (s *PagesService) Archive(ctx context.Context, id string) (*Page, error) {
	archived := true
	return s.Update(ctx, id, UpdatePageRequest{Archived: &archived})
}

// Restore brings an archived page back.
func (s *PagesService) Restore(ctx context.Context, id string) (*Page, error) {
	archived := false
	return s.Update(ctx, id, UpdatePageRequest{Archived: &archived})
}

// GetProperty retrieves one page property item.
func (s *PagesService) GetProperty(ctx context.Context, pageID, propertyID string, opts ListOptions) (*PropertyItem, error) {
	var item PropertyItem
	path := "/pages/" + url.PathEscape(pageID) + "/properties/" + url.PathEscape(propertyID)
	if err := s.client.Get(ctx, path, listQuery(opts), &item); err != nil {
		return nil, fmt.Errorf("get property %s of page %s: %w", propertyID, pageID, err)
	}
	return &item, nil
}
