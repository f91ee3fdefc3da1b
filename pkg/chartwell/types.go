package chartwell

import (
	"time"

	"github.com/chartwell-io/chartwell-go/internal/transfer"
	"github.com/chartwell-io/chartwell-go/internal/types"
)

// CredentialMode selects which credential pair SignIn sends
type CredentialMode = types.CredentialMode

const (
	// CredentialModePassword signs in with a user name and password
	CredentialModePassword = types.CredentialModePassword

	// CredentialModeAccessToken signs in with a personal access token
	CredentialModeAccessToken = types.CredentialModeAccessToken
)

// Credentials holds the secret material used to sign in
type Credentials = types.Credentials

// PasswordCredentials builds password-mode credentials
func PasswordCredentials(name, password string) Credentials {
	return Credentials{
		Mode:   CredentialModePassword,
		Name:   name,
		Secret: password,
	}
}

// AccessTokenCredentials builds personal-access-token credentials
func AccessTokenCredentials(tokenName, tokenSecret string) Credentials {
	return Credentials{
		Mode:   CredentialModeAccessToken,
		Name:   tokenName,
		Secret: tokenSecret,
	}
}

// Session is a snapshot of the authenticated session state
type Session = types.Session

// Logger interface for logging
type Logger = types.Logger

// Hooks provides lifecycle hooks for requests
type Hooks = types.Hooks

// RateLimiter interface for rate limiting
type RateLimiter = types.RateLimiter

// MimePayload is a fully encoded multipart message
type MimePayload = types.MimePayload

// RequestError describes a request the server rejected
type RequestError = types.RequestError

// DownloadOptions control a single download
type DownloadOptions = transfer.Options

// DownloadResult reports where a download landed
type DownloadResult = transfer.Result

// UploadOptions control a single upload
type UploadOptions struct {
	// Timeout bounds the whole upload. Defaults to the client timeout.
	Timeout time.Duration
}

// RequestOptions control a single raw request
type RequestOptions struct {
	// Body is sent as-is when non-empty
	Body []byte

	// ContentType overrides the application/json default for requests
	// with a body
	ContentType string

	// Timeout overrides the client timeout for this request
	Timeout time.Duration
}
