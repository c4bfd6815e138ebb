package notion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
)

// Comment is a comment on a page or block.
type Comment struct {
	Object         string     `json:"object"`
	ID             string     `json:"id"`
	Parent         Parent     `json:"parent"`
	DiscussionID   string     `json:"discussion_id"`
	CreatedTime    time.Time  `json:"created_time"`
	LastEditedTime time.Time  `json:"last_edited_time"`
	CreatedBy      User       `json:"created_by"`
	RichText       []RichText `json:"rich_text"`
}

// CreateCommentRequest is the body of a comment creation. Exactly one of
// Parent (a page) or DiscussionID must be set.
type CreateCommentRequest struct {
	Parent       *Parent    `json:"parent,omitempty"`
	DiscussionID string     `json:"discussion_id,omitempty"`
	RichText     []RichText `json:"rich_text"`
}

// CommentsService handles comment endpoints.
type CommentsService struct {
	client *rest.Client
}

// List returns one page of unresolved comments on a page or block.
func (s *CommentsService) List(ctx context.Context, blockID string, opts ListOptions) (*List[Comment], error) {
	q := listQuery(opts)
	q.Set("block_id", blockID)
	var list List[Comment]
	if err := s.client.Get(ctx, "/comments", q, &list); err != nil {
		return nil, fmt.Errorf("list comments on %s: %w", blockID, err)
	}
	return &list, nil
}

// ListAll returns every unresolved comment on a page or block.
func (s *CommentsService) ListAll(ctx context.Context, blockID string) ([]Comment, error) {
	return collect(ctx, func(ctx context.Context, cursor string) (*List[Comment], error) {
		return s.List(ctx, blockID, ListOptions{StartCursor: cursor, PageSize: MaxPageSize})
	})
}

// Create adds a comment to a page or replies to a discussion.
func (s *CommentsService) Create(ctx context.Context, req CreateCommentRequest) (*Comment, error) {
	if (req.Parent == nil) == (req.DiscussionID == "") {
		return nil, errors.New("notion: comment needs exactly one of a parent page or a discussion id")
	}
	var c Comment
	if err := s.client.Post(ctx, "/comments", req, &c); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return &c, nil
}
