package notion

import (
	"context"
	"fmt"
	"net/url"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
)

// UsersService handles user endpoints.
type UsersService struct {
	client *rest.Client
}

// List returns one page of workspace users.
func (s *UsersService) List(ctx context.Context, opts ListOptions) (*List[User], error) {
	var list List[User]
	if err := s.client.Get(ctx, "/users", listQuery(opts), &list); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return &list, nil
}

// ListAll returns every workspace user.
func (s *UsersService) ListAll(ctx context.Context) ([]User, error) {
	return collect(ctx, func(ctx context.Context, cursor string) (*List[User], error) {
		return s.List(ctx, ListOptions{StartCursor: cursor, PageSize: MaxPageSize})
	})
}

// Get retrieves a user.
func (s *UsersService) Get(ctx context.Context, id string) (*User, error) {
	var u User
	if err := s.client.Get(ctx, "/users/"+url.PathEscape(id), nil, &u); err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}

// Me retrieves the bot user of the current token.
func (s *UsersService) Me(ctx context.Context) (*User, error) {
	var u User
	if err := s.client.Get(ctx, "/users/me", nil, &u); err != nil {
		return nil, fmt.Errorf("get bot user: %w", err)
	}
	return &u, nil
}
