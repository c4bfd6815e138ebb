package metaads

import "errors"

var (
	// ErrNoAccount is returned when a call needs an ad account and none is configured.
	ErrNoAccount = errors.New("metaads: no ad account; pass --account or set META_AD_ACCOUNT_ID")

	// ErrMediaTimeout is returned when a video is not ready before the wait deadline.
	ErrMediaTimeout = errors.New("metaads: timed out waiting for video processing")

	// ErrMediaFailed is returned when video processing ends in an error state.
	ErrMediaFailed = errors.New("metaads: video processing failed")

	// ErrAppCredentials is returned when a token exchange lacks the app id or secret.
	ErrAppCredentials = errors.New("metaads: token exchange needs META_CLIENT_ID and META_CLIENT_SECRET")
)
