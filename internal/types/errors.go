package types

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrNoServerURL is returned when a client is built without a server URL
	ErrNoServerURL = errors.New("server URL is required")

	// ErrUnsupportedCredentialMode is returned for credential modes this
	// library does not know how to send
	ErrUnsupportedCredentialMode = errors.New("unsupported credential mode")

	// ErrMalformedResponse is returned when a response body cannot be
	// parsed or is missing required fields
	ErrMalformedResponse = errors.New("malformed server response")

	// ErrNotSignedIn is returned when an operation needs a session and
	// none is present
	ErrNotSignedIn = errors.New("not signed in")

	// ErrDestinationExists is returned when a download would replace a
	// file the caller asked to keep
	ErrDestinationExists = errors.New("destination file already exists")

	// ErrEmptyPayload is returned when an upload is attempted with no body
	ErrEmptyPayload = errors.New("empty multipart payload")

	// ErrUnauthorized is returned when the server rejects the session token
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the signed-in user lacks permission
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when resource not found
	ErrNotFound = errors.New("resource not found")

	// ErrRateLimited is returned when rate limited
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout is returned on timeout
	ErrTimeout = errors.New("request timeout")

	// ErrServerError is returned for server errors
	ErrServerError = errors.New("server error")

	// ErrRequestFailed is returned for rejections with no finer category
	ErrRequestFailed = errors.New("request failed")
)

// RequestError describes a request that reached the server and came
// back with a non-success status.
type RequestError struct {
	Method      string `json:"method"`
	URL         string `json:"url"`
	StatusCode  int    `json:"statusCode"`
	Description string `json:"description,omitempty"`
	RequestID   string `json:"requestId,omitempty"`
	Body        string `json:"body,omitempty"`
	Err         error  `json:"-"`
}

// Error implements the error interface
func (e *RequestError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s %s returned %d", e.Description, e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s returned %d", e.Method, e.URL, e.StatusCode)
}

// Unwrap returns the classification sentinel for the status code
func (e *RequestError) Unwrap() error {
	return e.Err
}
