package stripe

import (
	"context"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
)

// Object is implemented by every Stripe resource with an ID.
type Object interface {
	GetID() string
}

// List is a Stripe list response.
type List[T Object] struct {
	Object  string `json:"object"`
	Data    []T    `json:"data"`
	HasMore bool   `json:"has_more"`
	URL     string `json:"url"`
}

// Next returns the starting_after cursor for the following page.
func (l *List[T]) Next() string {
	if l == nil || !l.HasMore || len(l.Data) == 0 {
		return ""
	}
	return l.Data[len(l.Data)-1].GetID()
}

// SearchResult is a Stripe search response.
type SearchResult[T Object] struct {
	Object   string  `json:"object"`
	Data     []T     `json:"data"`
	HasMore  bool    `json:"has_more"`
	NextPage *string `json:"next_page"`
	URL      string  `json:"url"`
}

// Next returns the page cursor for the following page.
func (s *SearchResult[T]) Next() string {
	if s == nil || !s.HasMore || s.NextPage == nil {
		return ""
	}
	return *s.NextPage
}

// ListParams holds cursor pagination parameters shared by list endpoints.
type ListParams struct {
	Limit         int      `form:"limit,omitempty"`
	StartingAfter string   `form:"starting_after,omitempty"`
	EndingBefore  string   `form:"ending_before,omitempty"`
	Expand        []string `form:"expand,omitempty"`
}

// SearchParams holds search query parameters.
type SearchParams struct {
	Query string `form:"query"`
	Limit int    `form:"limit,omitempty"`
	Page  string `form:"page,omitempty"`
}

// Deleted is returned by delete endpoints.
type Deleted struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// listAll follows starting_after until has_more is false. fetch receives
// the cursor to use as starting_after.
func listAll[T Object](ctx context.Context, fetch func(ctx context.Context, after string) (*List[T], error)) ([]T, error) {
	return rest.CollectAll(ctx, func(ctx context.Context, cursor string) (rest.Page[T], error) {
		l, err := fetch(ctx, cursor)
		if err != nil {
			return rest.Page[T]{}, err
		}
		return rest.Page[T]{Items: l.Data, Next: l.Next()}, nil
	})
}

// searchAll follows next_page until has_more is false.
func searchAll[T Object](ctx context.Context, fetch func(ctx context.Context, page string) (*SearchResult[T], error)) ([]T, error) {
	return rest.CollectAll(ctx, func(ctx context.Context, cursor string) (rest.Page[T], error) {
		s, err := fetch(ctx, cursor)
		if err != nil {
			return rest.Page[T]{}, err
		}
		return rest.Page[T]{Items: s.Data, Next: s.Next()}, nil
	})
}

func pageLimit(n int) int {
	if n <= 0 || n > MaxLimit {
		return MaxLimit
	}
	return n
}

// Address is a postal address.
type Address struct {
	Line1      string `json:"line1,omitempty" form:"line1,omitempty"`
	Line2      string `json:"line2,omitempty" form:"line2,omitempty"`
	City       string `json:"city,omitempty" form:"city,omitempty"`
	State      string `json:"state,omitempty" form:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty" form:"postal_code,omitempty"`
	Country    string `json:"country,omitempty" form:"country,omitempty"`
}
