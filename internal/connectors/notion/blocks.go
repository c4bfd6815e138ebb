package notion

import (
	"context"
	"fmt"
	"net/url"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
)

// maxAppendBlocks is the most children one append call accepts.
const maxAppendBlocks = 100

// BlocksService handles block endpoints.
type BlocksService struct {
	client *rest.Client
}

// Get retrieves a block.
func (s *BlocksService) Get(ctx context.Context, id string) (*Block, error) {
	var b Block
	if err := s.client.Get(ctx, "/blocks/"+url.PathEscape(id), nil, &b); err != nil {
		return nil, fmt.Errorf("get block %s: %w", id, err)
	}
	return &b, nil
}

// Update replaces a block's payload. The block's type must not change.
func (s *BlocksService) Update(ctx context.Context, id string, b *Block) (*Block, error) {
	var out Block
	if err := s.client.Patch(ctx, "/blocks/"+url.PathEscape(id), b, &out); err != nil {
		return nil, fmt.Errorf("update block %s: %w", id, err)
	}
	return &out, nil
}

// Delete archives a block.
func (s *BlocksService) Delete(ctx context.Context, id string) (*Block, error) {
	var out Block
	if err := s.client.Delete(ctx, "/blocks/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, fmt.Errorf("delete block %s: %w", id, err)
	}
	return &out, nil
}

// ListChildren returns one page of a block's children.
func (s *BlocksService) ListChildren(ctx context.Context, id string, opts ListOptions) (*List[*Block], error) {
	var list List[*Block]
	if err := s.client.Get(ctx, "/blocks/"+url.PathEscape(id)+"/children", listQuery(opts), &list); err != nil {
		return nil, fmt.Errorf("list children of %s: %w", id, err)
	}
	return &list, nil
}

// ListAllChildren returns every direct child of a block.
func (s *BlocksService) ListAllChildren(ctx context.Context, id string) ([]*Block, error) {
	return collect(ctx, func(ctx context.Context, cursor string) (*List[*Block], error) {
		return s.ListChildren(ctx, id, ListOptions{StartCursor: cursor, PageSize: MaxPageSize})
	})
}

// Tree returns every descendant of a block, with Children filled in.
func (s *BlocksService) Tree(ctx context.Context, id string) ([]*Block, error) {
	children, err := s.ListAllChildren(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		// Child pages and databases are separate documents.
		if !child.HasChildren || child.Type == BlockChildPage || child.Type == BlockChildDatabase {
			continue
		}
		child.Children, err = s.Tree(ctx, child.ID)
		if err != nil {
			return nil, err
		}
	}
	return children, nil
}

type appendRequest struct {
	Children []*Block `json:"children"`
	After    string   `json:"after,omitempty"`
}

// AppendChildren appends blocks to a parent block or page, in chunks of
// at most 100. When after is set, the first chunk is inserted after that
// block and later chunks follow the previous chunk.
func (s *BlocksService) AppendChildren(ctx context.Context, id string, blocks []*Block, after string) ([]*Block, error) {
	var created []*Block
	for start := 0; start < len(blocks); start += maxAppendBlocks {
		end := min(start+maxAppendBlocks, len(blocks))

		var list List[*Block]
		req := appendRequest{Children: blocks[start:end], After: after}
		if err := s.client.Patch(ctx, "/blocks/"+url.PathEscape(id)+"/children", req, &list); err != nil {
			return created, fmt.Errorf("append children to %s: %w", id, err)
		}
		created = append(created, list.Results...)
		if after != "" && len(list.Results) > 0 {
			after = list.Results[len(list.Results)-1].ID
		}
	}
	return created, nil
}
