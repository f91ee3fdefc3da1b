package chartwell

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/chartwell-io/chartwell-go/internal/naming"
	"github.com/chartwell-io/chartwell-go/internal/session"
	"github.com/chartwell-io/chartwell-go/internal/transfer"
	"github.com/chartwell-io/chartwell-go/internal/transport"
	"github.com/getsentry/sentry-go"
)

const (
	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second

	// DefaultDownloadTimeout is the default per-download timeout
	DefaultDownloadTimeout = 5 * time.Minute

	// UserAgent is the user agent string
	UserAgent = "chartwell-go/1.0.0"
)

// Client is the main Chartwell Server API client
type Client struct {
	// Service interfaces
	Auth     AuthService
	Files    FileService
	Requests RequestService

	// Internal fields
	serverURL  string
	httpClient *http.Client
	pipeline   *transport.Pipeline
	store      *session.Store
	sessions   *session.Service
	options    *ClientOptions
}

// ClientOptions configures the client
type ClientOptions struct {
	// ServerURL is the Chartwell server base URL, for example
	// "https://charts.example.com". Required.
	ServerURL string

	// Site is the content URL segment of the site to sign in to.
	// Empty selects the default site.
	Site string

	// Credentials used by Auth.SignIn
	Credentials Credentials

	// HTTPClient allows using a custom HTTP client
	HTTPClient *http.Client

	// Timeout sets the HTTP client timeout
	Timeout time.Duration

	// Logger receives the status log. Nil disables logging.
	Logger Logger

	// Hooks for observability
	Hooks *Hooks

	// RateLimiter gates request sends when set
	RateLimiter RateLimiter

	// SessionFile path for session persistence. When set, the session
	// is loaded from it at construction and saved to it after each
	// successful sign-in.
	SessionFile string

	// FileNameSanitizer overrides the default base-name cleaning
	// applied to download file names
	FileNameSanitizer func(string) string

	// ExtensionResolver overrides the default content-type to file
	// extension mapping for downloads
	ExtensionResolver func(string) string

	// SentryDSN enables Sentry error tracking when set
	SentryDSN string

	// SentryOptions allows custom Sentry configuration
	SentryOptions *sentry.ClientOptions
}

// NewClient creates a new Chartwell client
func NewClient(opts *ClientOptions) (*Client, error) {
	if opts == nil {
		opts = &ClientOptions{}
	}

	if opts.ServerURL == "" {
		return nil, ErrNoServerURL
	}

	// Initialize Sentry if DSN is provided
	if opts.SentryDSN != "" || opts.SentryOptions != nil {
		sentryOpts := sentry.ClientOptions{}

		// Use provided options if available, otherwise create new ones
		if opts.SentryOptions != nil {
			sentryOpts = *opts.SentryOptions
		}

		// Override DSN if provided separately
		if opts.SentryDSN != "" {
			sentryOpts.Dsn = opts.SentryDSN
		}

		// Set default environment if not provided
		if sentryOpts.Environment == "" {
			sentryOpts.Environment = "production"
		}

		if err := sentry.Init(sentryOpts); err != nil {
			// Log error but don't fail client creation
			if opts.Logger != nil {
				opts.Logger.Error("Failed to initialize Sentry", "error", err)
			}
		}
	}

	// Set defaults
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{
			Timeout: DefaultTimeout,
		}
	}

	if opts.Timeout > 0 {
		opts.HTTPClient.Timeout = opts.Timeout
	}

	serverURL := strings.TrimRight(opts.ServerURL, "/")

	store := session.NewStore()
	pipeline := transport.NewPipeline(&transport.Options{
		HTTPClient:  opts.HTTPClient,
		TokenSource: store,
		Logger:      opts.Logger,
		Hooks:       opts.Hooks,
		RateLimiter: opts.RateLimiter,
	})

	c := &Client{
		serverURL:  serverURL,
		httpClient: opts.HTTPClient,
		pipeline:   pipeline,
		store:      store,
		options:    opts,
	}
	c.sessions = session.NewService(serverURL, opts.Site, opts.Credentials, pipeline, store, opts.Logger)

	// Initialize services
	c.initServices()

	// Load session if file specified
	if opts.SessionFile != "" {
		if err := c.Auth.LoadSession(opts.SessionFile); err != nil && opts.Logger != nil {
			opts.Logger.Warn("Failed to load session", "error", err)
		}
	}

	return c, nil
}

// NewClientWithToken creates a client that resumes a live session
// instead of signing in.
func NewClientWithToken(serverURL, token, siteID string) (*Client, error) {
	c, err := NewClient(&ClientOptions{
		ServerURL: serverURL,
	})
	if err != nil {
		return nil, err
	}

	c.sessions.Resume(token, siteID)
	return c, nil
}

// initServices initializes all service implementations
func (c *Client) initServices() {
	sanitize := c.options.FileNameSanitizer
	if sanitize == nil {
		sanitize = naming.SanitizeBaseName
	}
	extensionFor := c.options.ExtensionResolver
	if extensionFor == nil {
		extensionFor = naming.ExtensionForContentType
	}

	c.Auth = &authService{client: c}
	c.Files = &fileService{
		client:     c,
		downloader: transfer.NewDownloader(c.pipeline, c.options.Logger, sanitize, extensionFor),
		uploader:   transfer.NewUploader(c.pipeline, c.options.Logger),
	}
	c.Requests = &requestService{client: c}
}

// ServerURL returns the normalized server base URL
func (c *Client) ServerURL() string {
	return c.serverURL
}

// Close flushes any pending Sentry events and performs cleanup
func (c *Client) Close() {
	// Flush Sentry events with a 2 second timeout
	sentry.Flush(2 * time.Second)
}

// captureError reports an operation failure to Sentry when it is
// configured
func (c *Client) captureError(ctx context.Context, operation string, err error) {
	if err == nil {
		return
	}
	if c.options.SentryDSN == "" && c.options.SentryOptions == nil {
		return
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("chartwell.operation", operation)
			hub.CaptureException(err)
		})
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("chartwell.operation", operation)
		sentry.CaptureException(err)
	})
}
