package chartwell

import (
	"errors"

	"github.com/chartwell-io/chartwell-go/internal/types"
)

// Sentinel errors. These are the same values the internal packages
// return, so errors.Is works across the package boundary.
var (
	// ErrNoServerURL is returned when a client is built without a server URL
	ErrNoServerURL = types.ErrNoServerURL

	// ErrUnsupportedCredentialMode is returned for credential modes this
	// library does not know how to send
	ErrUnsupportedCredentialMode = types.ErrUnsupportedCredentialMode

	// ErrMalformedResponse is returned when a response body cannot be
	// parsed or is missing required fields
	ErrMalformedResponse = types.ErrMalformedResponse

	// ErrNotSignedIn is returned when an operation needs a session and
	// none is present
	ErrNotSignedIn = types.ErrNotSignedIn

	// ErrDestinationExists is returned when a download would replace a
	// file the caller asked to keep
	ErrDestinationExists = types.ErrDestinationExists

	// ErrEmptyPayload is returned when an upload is attempted with no body
	ErrEmptyPayload = types.ErrEmptyPayload

	// ErrUnauthorized is returned when the server rejects the session token
	ErrUnauthorized = types.ErrUnauthorized

	// ErrForbidden is returned when the signed-in user lacks permission
	ErrForbidden = types.ErrForbidden

	// ErrNotFound is returned when resource not found
	ErrNotFound = types.ErrNotFound

	// ErrRateLimited is returned when rate limited
	ErrRateLimited = types.ErrRateLimited

	// ErrTimeout is returned on timeout
	ErrTimeout = types.ErrTimeout

	// ErrServerError is returned for server errors
	ErrServerError = types.ErrServerError

	// ErrRequestFailed is returned for rejections with no finer category
	ErrRequestFailed = types.ErrRequestFailed
)

// IsAuthError checks if error is authentication related
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrNotSignedIn)
}

// IsRetryable reports whether retrying the operation might help. The
// library never retries on its own; this only advises callers.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServerError) {
		return true
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode >= 500 || reqErr.StatusCode == 429
	}

	return false
}
