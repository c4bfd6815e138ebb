package rest

import (
	"context"
	"net/http"
)

// Authenticator attaches credentials to an outgoing request.
type Authenticator interface {
	Authenticate(ctx context.Context, req *http.Request) error
}

// AuthFunc adapts a function to the Authenticator interface.
type AuthFunc func(ctx context.Context, req *http.Request) error

// Authenticate calls f.
func (f AuthFunc) Authenticate(ctx context.Context, req *http.Request) error {
	return f(ctx, req)
}

// BearerToken sends "Authorization: Bearer <token>".
type BearerToken string

// Authenticate sets the bearer header.
func (t BearerToken) Authenticate(_ context.Context, req *http.Request) error {
	if t == "" {
		return ErrMissingCredentials
	}
	req.Header.Set("Authorization", "Bearer "+string(t))
	return nil
}

// BasicAuth sends HTTP basic credentials.
type BasicAuth struct {
	Username string
	Password string
}

// Authenticate sets the basic auth header.
func (b BasicAuth) Authenticate(_ context.Context, req *http.Request) error {
	if b.Username == "" && b.Password == "" {
		return ErrMissingCredentials
	}
	req.SetBasicAuth(b.Username, b.Password)
	return nil
}

// HeaderAuth sends a single custom header, such as an account context header.
// An empty value sends nothing.
type HeaderAuth struct {
	Name  string
	Value string
}

// Authenticate sets the header when a value is present.
func (h HeaderAuth) Authenticate(_ context.Context, req *http.Request) error {
	if h.Value != "" {
		req.Header.Set(h.Name, h.Value)
	}
	return nil
}

// ChainAuth applies several authenticators in order.
type ChainAuth []Authenticator

// Authenticate applies every authenticator, stopping at the first error.
func (c ChainAuth) Authenticate(ctx context.Context, req *http.Request) error {
	for _, a := range c {
		if a == nil {
			continue
		}
		if err := a.Authenticate(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// refreshable is implemented by authenticators that can recover from a 401.
type refreshable interface {
	CanRefresh() bool
	Refresh(ctx context.Context, stale string) (string, error)
}

// findRefreshable returns the first refreshable authenticator in a, if any.
func findRefreshable(a Authenticator) refreshable {
	switch v := a.(type) {
	case refreshable:
		return v
	case ChainAuth:
		for _, inner := range v {
			if r := findRefreshable(inner); r != nil {
				return r
			}
		}
	}
	return nil
}
