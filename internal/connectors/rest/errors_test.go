package rest

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultErrorParser(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantCode    string
		wantMessage string
	}{
		{
			name:        "notion",
			body:        `{"object":"error","status":400,"code":"validation_error","message":"body failed validation"}`,
			wantCode:    "validation_error",
			wantMessage: "body failed validation",
		},
		{
			name:        "stripe",
			body:        `{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such customer: 'cus_x'"}}`,
			wantCode:    "resource_missing",
			wantMessage: "No such customer: 'cus_x'",
		},
		{
			name:        "stripe without code uses type",
			body:        `{"error":{"type":"api_error","message":"Something went wrong"}}`,
			wantCode:    "api_error",
			wantMessage: "Something went wrong",
		},
		{
			name:        "meta numeric code",
			body:        `{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190,"fbtrace_id":"x"}}`,
			wantCode:    "190",
			wantMessage: "Invalid OAuth access token.",
		},
		{
			name:        "google status",
			body:        `{"error":{"code":404,"message":"File not found: abc.","status":"NOT_FOUND"}}`,
			wantCode:    "NOT_FOUND",
			wantMessage: "File not found: abc.",
		},
		{
			name:        "cloudflare errors array",
			body:        `{"success":false,"errors":[{"code":7003,"message":"Could not route to /zones/x"}],"messages":[],"result":null}`,
			wantCode:    "7003",
			wantMessage: "Could not route to /zones/x",
		},
		{
			name:        "mixpanel string error",
			body:        `{"error":"Invalid project_id","status":"error"}`,
			wantCode:    "",
			wantMessage: "Invalid project_id",
		},
		{
			name:        "oauth error",
			body:        `{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`,
			wantCode:    "invalid_grant",
			wantMessage: "Token has been expired or revoked.",
		},
		{
			name:        "plain text",
			body:        "upstream timeout\n",
			wantCode:    "",
			wantMessage: "upstream timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := DefaultErrorParser(http.StatusBadRequest, []byte(tt.body))
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantMessage, msg)
		})
	}
}

func TestStatusHelpers(t *testing.T) {
	mk := func(status int) error {
		return fmt.Errorf("list customers: %w", &APIError{StatusCode: status})
	}

	assert.True(t, IsNotFound(mk(http.StatusNotFound)))
	assert.True(t, IsUnauthorized(mk(http.StatusUnauthorized)))
	assert.True(t, IsForbidden(mk(http.StatusForbidden)))
	assert.True(t, IsConflict(mk(http.StatusConflict)))
	assert.True(t, IsRateLimited(mk(http.StatusTooManyRequests)))
	assert.False(t, IsNotFound(errors.New("plain")))
	assert.Equal(t, 0, StatusCode(nil))
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{Connector: "stripe", StatusCode: 402, Code: "card_declined", Message: "Your card was declined.", URL: "https://api.stripe.com/v1/payment_intents"}
	assert.Equal(t, "stripe: API error 402 card_declined: Your card was declined. (URL: https://api.stripe.com/v1/payment_intents)", err.Error())

	err = &APIError{StatusCode: 500, Message: "Internal Server Error", URL: "u"}
	assert.Equal(t, "rest: API error 500: Internal Server Error (URL: u)", err.Error())
}
