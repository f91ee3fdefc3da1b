package types

import "time"

const (
	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second

	// DefaultDownloadTimeout bounds file downloads, which routinely
	// outlive the standard request timeout
	DefaultDownloadTimeout = 5 * time.Minute

	// UserAgent is the user agent string
	UserAgent = "chartwell-go/1.0.0"

	// AuthTokenHeader carries the session token on every request
	AuthTokenHeader = "X-Chartwell-Auth"

	// RequestIDHeader correlates status-log entries with server logs
	RequestIDHeader = "X-Request-Id"

	// SignInEndpoint is the session creation route
	SignInEndpoint = "/api/v1/auth/signin"

	// SignOutEndpoint is the session invalidation route
	SignOutEndpoint = "/api/v1/auth/signout"

	// TempSuffix marks in-flight download files
	TempSuffix = ".tmp"
)
