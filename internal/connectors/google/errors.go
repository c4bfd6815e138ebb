package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
)

// Common Google API errors.
var (
	// ErrUnauthorized indicates invalid or expired credentials.
	ErrUnauthorized = errors.New("google: unauthorised (invalid credentials)")

	// ErrForbidden indicates insufficient permissions.
	ErrForbidden = errors.New("google: forbidden (insufficient permissions)")

	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = errors.New("google: resource not found")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("google: rate limit exceeded")

	// ErrQuotaExceeded indicates the API quota was exceeded.
	ErrQuotaExceeded = errors.New("google: quota exceeded")

	// ErrSyncTokenExpired indicates the page token has expired (410 GONE).
	// The client should perform a full resync.
	ErrSyncTokenExpired = errors.New("google: sync token expired, full resync required")
)

// quota reasons reported with a 403 instead of a 429.
var quotaCodes = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"quotaExceeded":         true,
	"dailyLimitExceeded":    true,
}

func statusIs(err error, sentinel error, status int) bool {
	if errors.Is(err, sentinel) {
		return true
	}
	return rest.StatusCode(err) == status
}

// IsUnauthorized returns true if the error indicates invalid credentials.
func IsUnauthorized(err error) bool {
	return statusIs(err, ErrUnauthorized, http.StatusUnauthorized)
}

// IsForbidden returns true if the error indicates insufficient permissions.
func IsForbidden(err error) bool {
	return statusIs(err, ErrForbidden, http.StatusForbidden) && !IsQuotaExceeded(err)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return statusIs(err, ErrNotFound, http.StatusNotFound)
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return statusIs(err, ErrRateLimited, http.StatusTooManyRequests)
}

// IsQuotaExceeded returns true for the 403 quota responses Google sends
// in place of a 429.
func IsQuotaExceeded(err error) bool {
	if errors.Is(err, ErrQuotaExceeded) {
		return true
	}
	apiErr, ok := rest.AsAPIError(err)
	return ok && apiErr.StatusCode == http.StatusForbidden && quotaCodes[apiErr.Code]
}

// IsSyncTokenExpired returns true if the error indicates an expired page token (410 GONE).
func IsSyncTokenExpired(err error) bool {
	return statusIs(err, ErrSyncTokenExpired, http.StatusGone)
}

// WrapError tags a Google API error with the matching sentinel. The
// original *rest.APIError stays reachable through errors.As.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	apiErr, ok := rest.AsAPIError(err)
	if !ok {
		return err
	}

	var sentinel error
	switch {
	case apiErr.StatusCode == http.StatusUnauthorized:
		sentinel = ErrUnauthorized
	case IsQuotaExceeded(err):
		sentinel = ErrQuotaExceeded
	case apiErr.StatusCode == http.StatusForbidden:
		sentinel = ErrForbidden
	case apiErr.StatusCode == http.StatusNotFound:
		sentinel = ErrNotFound
	case apiErr.StatusCode == http.StatusTooManyRequests:
		sentinel = ErrRateLimited
	case apiErr.StatusCode == http.StatusGone:
		sentinel = ErrSyncTokenExpired
	default:
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// ErrorParser reads the Google error object. The code is the first
// error reason (e.g. "userRateLimitExceeded") when present, else the
// status name.
//
//	{"error":{"code":403,"message":"...","status":"PERMISSION_DENIED",
//	  "errors":[{"domain":"usageLimits","reason":"userRateLimitExceeded"}]}}
func ErrorParser(status int, body []byte) (string, string) {
	var payload struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
			Errors  []struct {
				Reason string `json:"reason"`
			} `json:"errors"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error.Message == "" {
		return rest.DefaultErrorParser(status, body)
	}
	code := payload.Error.Status
	if len(payload.Error.Errors) > 0 && payload.Error.Errors[0].Reason != "" {
		code = payload.Error.Errors[0].Reason
	}
	return code, payload.Error.Message
}
