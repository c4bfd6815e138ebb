package metaads

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// CreativeFields is the default field set for creatives.
var CreativeFields = []string{"id", "name", "title", "body", "image_hash", "image_url", "thumbnail_url", "object_story_spec", "status"}

// Creative is an ad creative.
type Creative struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Title           string         `json:"title,omitempty"`
	Body            string         `json:"body,omitempty"`
	ImageHash       string         `json:"image_hash,omitempty"`
	ImageURL        string         `json:"image_url,omitempty"`
	ThumbnailURL    string         `json:"thumbnail_url,omitempty"`
	ObjectStorySpec map[string]any `json:"object_story_spec,omitempty"`
	Status          string         `json:"status,omitempty"`
}

// CreativesService handles ad creative endpoints.
type CreativesService struct {
	c *Client
}

// List returns one page of creatives in an account.
func (s *CreativesService) List(ctx context.Context, account string, params ListParams) (*List[Creative], error) {
	act, err := s.c.account(account)
	if err != nil {
		return nil, err
	}
	var l List[Creative]
	if err := s.c.get(ctx, "/"+act+"/adcreatives", params.query(CreativeFields), &l); err != nil {
		return nil, fmt.Errorf("list creatives: %w", err)
	}
	return &l, nil
}

// Get retrieves a creative.
func (s *CreativesService) Get(ctx context.Context, id string) (*Creative, error) {
	q := url.Values{"fields": {strings.Join(CreativeFields, ",")}}
	var cr Creative
	if err := s.c.get(ctx, "/"+url.PathEscape(id), q, &cr); err != nil {
		return nil, fmt.Errorf("get creative %s: %w", id, err)
	}
	return &cr, nil
}

// Create creates a creative and returns its ID.
func (s *CreativesService) Create(ctx context.Context, account string, params map[string]any) (string, error) {
	act, err := s.c.account(account)
	if err != nil {
		return "", err
	}
	var out created
	if err := s.c.post(ctx, "/"+act+"/adcreatives", params, &out); err != nil {
		return "", fmt.Errorf("create creative: %w", err)
	}
	return out.ID, nil
}
