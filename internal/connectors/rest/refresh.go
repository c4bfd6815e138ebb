package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/connect-cli/internal/logger"
)

// TokenState is the state of a RefreshingBearer.
type TokenState int

const (
	// StateAuthenticated means the current token is believed valid.
	StateAuthenticated TokenState = iota
	// StateRefreshing means a refresh exchange is in flight.
	StateRefreshing
	// StateFailed means the last refresh failed; no further refresh is attempted.
	StateFailed
)

func (s TokenState) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("TokenState(%d)", int(s))
	}
}

// Refresher exchanges a refresh token for a new access token.
// Implementations persist the new token before returning it.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// refreshTimeout bounds one refresh exchange. The exchange outlives the
// context of the caller that started it so that joined callers are not
// failed by that caller going away.
const refreshTimeout = 30 * time.Second

// RefresherFunc adapts a function to the Refresher interface.
type RefresherFunc func(ctx context.Context) (string, error)

// Refresh calls f.
func (f RefresherFunc) Refresh(ctx context.Context) (string, error) {
	return f(ctx)
}

// RefreshingBearer is a bearer authenticator that can refresh its token.
//
// Transitions:
//
//	Authenticated --401--> Refreshing --ok--> Authenticated
//	                                  --err-> Failed
//
// Concurrent refresh requests share one exchange. A caller whose failed
// token has already been replaced receives the new token without another
// exchange. Once Failed, Refresh returns ErrRefreshFailed until Reset.
// A cancelled or timed-out exchange is not a failure: the state returns to
// Authenticated and the next 401 tries again.
type RefreshingBearer struct {
	mu        sync.Mutex
	token     string
	state     TokenState
	lastErr   error
	refresher Refresher
	group     singleflight.Group
}

var _ Authenticator = (*RefreshingBearer)(nil)

// NewRefreshingBearer creates a bearer authenticator. refresher may be nil,
// in which case 401 responses are returned without a refresh attempt.
func NewRefreshingBearer(token string, refresher Refresher) *RefreshingBearer {
	return &RefreshingBearer{token: token, refresher: refresher}
}

// Authenticate sets the bearer header. With no access token but a
// refresher, a refresh is performed first.
func (b *RefreshingBearer) Authenticate(ctx context.Context, req *http.Request) error {
	token := b.Token()
	if token == "" && b.CanRefresh() {
		var err error
		token, err = b.Refresh(ctx, "")
		if err != nil {
			return err
		}
	}
	if token == "" {
		return ErrMissingCredentials
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// Token returns the current access token.
func (b *RefreshingBearer) Token() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token
}

// State returns the current state.
func (b *RefreshingBearer) State() TokenState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// CanRefresh reports whether a refresh may be attempted.
func (b *RefreshingBearer) CanRefresh() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refresher != nil && b.state != StateFailed
}

// Reset replaces the token and returns to Authenticated.
// Used when tokens are changed outside the client (e.g. a new login).
func (b *RefreshingBearer) Reset(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
	b.state = StateAuthenticated
	b.lastErr = nil
}

// Refresh obtains a new token after stale was rejected.
func (b *RefreshingBearer) Refresh(ctx context.Context, stale string) (string, error) {
	b.mu.Lock()
	switch {
	case b.refresher == nil:
		b.mu.Unlock()
		return "", ErrNoRefresher
	case b.state == StateFailed:
		err := b.lastErr
		b.mu.Unlock()
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	case b.token != "" && b.token != stale && b.state == StateAuthenticated:
		token := b.token
		b.mu.Unlock()
		return token, nil
	}
	b.mu.Unlock()

	ch := b.group.DoChan("refresh", func() (any, error) {
		b.mu.Lock()
		if b.token != "" && b.token != stale && b.state == StateAuthenticated {
			token := b.token
			b.mu.Unlock()
			return token, nil
		}
		b.state = StateRefreshing
		b.mu.Unlock()

		exchangeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		logger.Debug("refreshing access token")
		token, err := b.refresher.Refresh(exchangeCtx)

		b.mu.Lock()
		defer b.mu.Unlock()
		if err == nil && token == "" {
			err = fmt.Errorf("refresher returned an empty token")
		}
		switch {
		case err == nil:
			b.token = token
			b.state = StateAuthenticated
			return token, nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			b.state = StateAuthenticated
			return "", fmt.Errorf("refresh access token: %w", err)
		default:
			b.state = StateFailed
			b.lastErr = err
			return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
		}
	})

	select {
	case res := <-ch:
		if res.Shared {
			logger.Debug("joined in-flight token refresh")
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
