package types

import (
	"context"
	"net/http"
	"time"
)

// CredentialMode selects which credential pair is sent at sign-in.
type CredentialMode string

const (
	// CredentialModePassword signs in with a user name and password.
	CredentialModePassword CredentialMode = "password"

	// CredentialModeAccessToken signs in with a personal access token.
	CredentialModeAccessToken CredentialMode = "access-token"
)

// Credentials holds the secret material used to sign in
type Credentials struct {
	Mode   CredentialMode
	Name   string
	Secret string
}

// Session represents an authenticated session
type Session struct {
	Token    string `json:"token"`
	SiteID   string `json:"siteId"`
	UserID   string `json:"userId"`
	Cookie   string `json:"cookie,omitempty"`
	SignedIn bool   `json:"signedIn"`
}

// Logger interface for logging
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// NopLogger discards every entry. It stands in when no logger is
// configured so call sites never nil-check.
type NopLogger struct{}

func (NopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (NopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (NopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (NopLogger) Error(msg string, keysAndValues ...interface{}) {}

// Hooks provides lifecycle hooks for requests
type Hooks struct {
	OnRequest  func(ctx context.Context, req *http.Request)
	OnResponse func(ctx context.Context, resp *http.Response, duration time.Duration)
	OnError    func(ctx context.Context, err error)
}

// RateLimiter interface for rate limiting
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// MimePayload is a fully encoded multipart message: the boundary
// marker plus the complete body bytes.
type MimePayload struct {
	Boundary string
	Body     []byte
}
