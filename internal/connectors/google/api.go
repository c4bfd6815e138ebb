package google

import (
	"context"
	"fmt"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
)

// API selects the request budget of a Google endpoint family.
type API int

const (
	// APIDrive is the Drive v3 files, permissions and changes endpoints.
	APIDrive API = iota
	// APIOAuth is the token and userinfo endpoints.
	APIOAuth
)

// NewRateLimiter returns a limiter sized for api. Drive allows ten requests
// per second per user; we stay under it so bursts from bulk commands do not
// trip a 429.
func NewRateLimiter(api API) *rest.RateLimiter {
	switch api {
	case APIDrive:
		return rest.NewRateLimiter(8, 10)
	case APIOAuth:
		return rest.NewRateLimiter(2, 2)
	}
	return rest.NewRateLimiter(5, 10)
}

// UserInfoURL returns the signed-in user's profile.
const UserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// UserInfo is the subset of the userinfo response the CLI shows.
type UserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// GetUserInfo fetches the account behind the bearer token c carries.
func GetUserInfo(ctx context.Context, c *rest.Client) (*UserInfo, error) {
	var info UserInfo
	if err := c.Get(ctx, UserInfoURL, nil, &info); err != nil {
		return nil, fmt.Errorf("fetch user info: %w", WrapError(err))
	}
	return &info, nil
}
