package rest

import (
	"context"
	"fmt"
)

// Page is one page of a cursor-paginated listing.
type Page[T any] struct {
	// Items holds the page's results in provider order.
	Items []T
	// Next is the cursor for the following page; empty on the last page.
	Next string
}

// PageFunc fetches the page that starts at cursor. The first call receives
// an empty cursor.
type PageFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

// CollectAll fetches every page and concatenates the items in order.
// It stops when a page reports no next cursor. A cursor the provider already
// returned aborts with ErrRepeatedCursor instead of looping forever.
func CollectAll[T any](ctx context.Context, fetch PageFunc[T]) ([]T, error) {
	var all []T
	seen := make(map[string]struct{})
	cursor := ""

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		page, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)

		if page.Next == "" {
			return all, nil
		}
		if _, dup := seen[page.Next]; dup {
			return nil, fmt.Errorf("%w: %q", ErrRepeatedCursor, page.Next)
		}
		seen[page.Next] = struct{}{}
		cursor = page.Next
	}
}
