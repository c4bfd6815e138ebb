package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Client errors.
var (
	// ErrMissingCredentials indicates an authenticator has nothing to send.
	ErrMissingCredentials = errors.New("rest: missing credentials")

	// ErrRefreshFailed indicates the access token could not be refreshed.
	ErrRefreshFailed = errors.New("rest: token refresh failed")

	// ErrNoRefresher indicates a refresh was requested without a refresher.
	ErrNoRefresher = errors.New("rest: no token refresher configured")

	// ErrRepeatedCursor indicates a provider returned a cursor it already returned.
	ErrRepeatedCursor = errors.New("rest: pagination cursor repeated")

	// ErrNotJSON indicates a JSON decode was requested on a non-JSON response.
	ErrNotJSON = errors.New("rest: response is not JSON")
)

// maxErrorBody bounds the raw body kept in error messages.
const maxErrorBody = 512

// APIError is returned for every non-2xx response.
type APIError struct {
	// Connector is the connector name that issued the request.
	Connector string
	// StatusCode is the HTTP status code.
	StatusCode int
	// Code is the provider's error code (e.g. "object_not_found"), if any.
	Code string
	// Message is the provider's error message, or the status text.
	Message string
	// Method and URL identify the failed request.
	Method string
	URL    string
	// Body is the raw response body.
	Body []byte
}

func (e *APIError) Error() string {
	prefix := "rest"
	if e.Connector != "" {
		prefix = e.Connector
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: API error %d %s: %s (URL: %s)", prefix, e.StatusCode, e.Code, e.Message, e.URL)
	}
	return fmt.Sprintf("%s: API error %d: %s (URL: %s)", prefix, e.StatusCode, e.Message, e.URL)
}

// DecodeError is returned when a response body does not match the expected shape.
type DecodeError struct {
	// Target names the type being decoded into.
	Target string
	// Body is a prefix of the offending payload.
	Body string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("rest: decode %s: %v", e.Target, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewDecodeError builds a DecodeError for target from a raw payload.
func NewDecodeError(target any, body []byte, err error) *DecodeError {
	return &DecodeError{
		Target: fmt.Sprintf("%T", target),
		Body:   truncate(body, maxErrorBody),
		Err:    err,
	}
}

// ErrorParser extracts the provider error code and message from an error body.
type ErrorParser func(status int, body []byte) (code, message string)

// DefaultErrorParser understands the error payloads of every connector:
//
//	{"object":"error","code":"...","message":"..."}            Notion
//	{"error":{"type":"...","code":"...","message":"..."}}      Stripe
//	{"error":{"code":190,"type":"OAuthException","message"}}   Meta
//	{"error":{"code":404,"status":"NOT_FOUND","message"}}      Google
//	{"success":false,"errors":[{"code":7003,"message":"..."}]} Cloudflare
//	{"error":"...","status":"error"}                           Mixpanel
//	{"error":"invalid_grant","error_description":"..."}        OAuth
func DefaultErrorParser(_ int, body []byte) (string, string) {
	var payload struct {
		Code             json.RawMessage `json:"code"`
		Message          string          `json:"message"`
		Error            json.RawMessage `json:"error"`
		ErrorDescription string          `json:"error_description"`
		Errors           []struct {
			Code    json.RawMessage `json:"code"`
			Message string          `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", strings.TrimSpace(truncate(body, maxErrorBody))
	}

	if len(payload.Error) > 0 {
		var s string
		if json.Unmarshal(payload.Error, &s) == nil && s != "" {
			if payload.ErrorDescription != "" {
				return s, payload.ErrorDescription
			}
			return "", s
		}
		var obj struct {
			Code    json.RawMessage `json:"code"`
			Message string          `json:"message"`
			Type    string          `json:"type"`
			Status  string          `json:"status"`
		}
		if json.Unmarshal(payload.Error, &obj) == nil && obj.Message != "" {
			return objectErrorCode(obj.Code, obj.Status, obj.Type), obj.Message
		}
	}

	if payload.Message != "" {
		return rawString(payload.Code), payload.Message
	}

	if len(payload.Errors) > 0 {
		return rawString(payload.Errors[0].Code), payload.Errors[0].Message
	}

	return "", ""
}

// objectErrorCode prefers string codes, then a status name, then numeric codes, then the type.
func objectErrorCode(code json.RawMessage, status, typ string) string {
	if isJSONString(code) {
		return rawString(code)
	}
	if status != "" {
		return status
	}
	if c := rawString(code); c != "" {
		return c
	}
	return typ
}

func isJSONString(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '"'
}

// rawString renders a JSON string or number as a plain string.
func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// AsAPIError returns the APIError in err's chain, if any.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StatusCode returns the HTTP status of an APIError in err's chain, or 0.
func StatusCode(err error) int {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound returns true if err is a 404 APIError.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsUnauthorized returns true if err is a 401 APIError.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsForbidden returns true if err is a 403 APIError.
func IsForbidden(err error) bool {
	return StatusCode(err) == http.StatusForbidden
}

// IsConflict returns true if err is a 409 APIError.
func IsConflict(err error) bool {
	return StatusCode(err) == http.StatusConflict
}

// IsRateLimited returns true if err is a 429 APIError.
func IsRateLimited(err error) bool {
	return StatusCode(err) == http.StatusTooManyRequests
}
