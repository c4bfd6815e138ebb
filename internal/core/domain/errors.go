package domain

import "errors"

// Sentinel errors shared by services, stores and the CLI. Callers wrap them
// with context and test with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnsupportedType = errors.New("unsupported type")
	ErrPermission      = errors.New("permission denied")

	// ErrInvalidProfileName also matches ErrInvalidInput when returned by
	// the profile store.
	ErrInvalidProfileName = errors.New("invalid profile name")

	// ErrAuthRequired means a required credential has no value in the
	// profile or the environment.
	ErrAuthRequired       = errors.New("authentication required")
	ErrNoRefreshToken     = errors.New("no refresh token available")
	ErrTokenRefreshFailed = errors.New("token refresh failed")
)

// ExitFailure is the process status for any handled error.
const ExitFailure = 1

// ExitCode maps err to the status the process should exit with: zero for
// nil and ExitFailure for everything else, whatever sentinel it wraps.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return ExitFailure
}
