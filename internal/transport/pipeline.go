package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/chartwell-io/chartwell-go/internal/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const contentTypeJSON = "application/json"

// TokenSource supplies the session token attached to outgoing requests.
// The pipeline reads it on every call, so a re-sign-in is picked up by
// the next request with no caching in between.
type TokenSource interface {
	AuthToken() string
}

// noToken is the source used when none is configured. Every request
// goes out unauthenticated.
type noToken struct{}

func (noToken) AuthToken() string { return "" }

// RequestSpec describes a single API request. Specs are built fresh
// per call and never reused.
type RequestSpec struct {
	Method string
	URL    string

	// Description names the operation in status-log entries and errors,
	// e.g. "sign in" or "download file".
	Description string

	// Body is sent as-is when non-empty.
	Body []byte

	// ContentType overrides the application/json default for requests
	// with a body.
	ContentType string

	// Timeout overrides the client timeout for this request. It covers
	// the whole exchange including the body read.
	Timeout time.Duration
}

// Pipeline sends authenticated requests and routes failures through
// the status log before surfacing them.
type Pipeline struct {
	httpClient *http.Client
	tokens     TokenSource
	logger     types.Logger
	hooks      *types.Hooks
	limiter    types.RateLimiter
}

// Options for the request pipeline
type Options struct {
	HTTPClient  *http.Client
	TokenSource TokenSource
	Logger      types.Logger
	Hooks       *types.Hooks
	RateLimiter types.RateLimiter
}

// NewPipeline creates a new request pipeline
func NewPipeline(opts *Options) *Pipeline {
	if opts == nil {
		opts = &Options{}
	}

	// Set defaults
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{
			Timeout: types.DefaultTimeout,
		}
	}
	if opts.TokenSource == nil {
		opts.TokenSource = noToken{}
	}
	if opts.Logger == nil {
		opts.Logger = types.NopLogger{}
	}

	return &Pipeline{
		httpClient: opts.HTTPClient,
		tokens:     opts.TokenSource,
		logger:     opts.Logger,
		hooks:      opts.Hooks,
		limiter:    opts.RateLimiter,
	}
}

// NewRequest builds an HTTP request carrying the standard header set.
// The auth header always holds the token source's current value; an
// empty token yields an unauthenticated request, not an error.
func (p *Pipeline) NewRequest(ctx context.Context, spec *RequestSpec) (*http.Request, error) {
	var body io.Reader
	if len(spec.Body) > 0 {
		body = bytes.NewReader(spec.Body)
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, spec.URL, body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s request", spec.Description)
	}

	req.Header.Set(types.AuthTokenHeader, p.tokens.AuthToken())
	req.Header.Set(types.RequestIDHeader, uuid.New().String())
	req.Header.Set("User-Agent", types.UserAgent)
	req.Header.Set("Accept", contentTypeJSON)

	if len(spec.Body) > 0 {
		ct := spec.ContentType
		if ct == "" {
			ct = contentTypeJSON
		}
		req.Header.Set("Content-Type", ct)
	}

	return req, nil
}

// Do sends the request described by spec. Transport failures and
// non-success statuses are described in the status log before the
// error is returned. On success the caller owns resp.Body.
func (p *Pipeline) Do(ctx context.Context, spec *RequestSpec) (*http.Response, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "rate limiter")
		}
	}

	req, err := p.NewRequest(ctx, spec)
	if err != nil {
		return nil, err
	}
	requestID := req.Header.Get(types.RequestIDHeader)

	if p.hooks != nil && p.hooks.OnRequest != nil {
		p.hooks.OnRequest(ctx, req)
	}

	p.logger.Debug("Sending request",
		"description", spec.Description,
		"method", spec.Method,
		"url", spec.URL,
		"requestId", requestID,
	)

	// Execute request
	start := time.Now()
	resp, err := p.clientFor(spec).Do(req)
	duration := time.Since(start)

	if err != nil {
		p.describeFailure(spec, nil, err, duration, requestID)
		if p.hooks != nil && p.hooks.OnError != nil {
			p.hooks.OnError(ctx, err)
		}
		return nil, errors.Wrapf(err, "%s failed", spec.Description)
	}

	if p.hooks != nil && p.hooks.OnResponse != nil {
		p.hooks.OnResponse(ctx, resp, duration)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		record := p.describeFailure(spec, resp, nil, duration, requestID)
		reqErr := &types.RequestError{
			Method:      spec.Method,
			URL:         spec.URL,
			StatusCode:  resp.StatusCode,
			Description: spec.Description,
			RequestID:   requestID,
			Body:        record.Body,
			Err:         classifyStatus(resp.StatusCode),
		}
		if p.hooks != nil && p.hooks.OnError != nil {
			p.hooks.OnError(ctx, reqErr)
		}
		return nil, reqErr
	}

	p.logger.Debug("Request succeeded",
		"description", spec.Description,
		"status", resp.StatusCode,
		"duration", duration,
		"requestId", requestID,
	)

	return resp, nil
}

// DoJSON sends the request and decodes the response document into out.
// A nil out discards the document. The body is released on every path.
func (p *Pipeline) DoJSON(ctx context.Context, spec *RequestSpec, out interface{}) error {
	resp, err := p.Do(ctx, spec)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s response", spec.Description)
	}

	if out == nil || len(body) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(types.ErrMalformedResponse, "failed to parse %s response: %v", spec.Description, err)
	}

	return nil
}

// DoDiscard sends the request and throws the response body away. The
// boolean reports that a response was obtained at all.
func (p *Pipeline) DoDiscard(ctx context.Context, spec *RequestSpec) (bool, error) {
	resp, err := p.Do(ctx, spec)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return false, errors.Wrapf(err, "failed to drain %s response", spec.Description)
	}

	return true, nil
}

// clientFor returns the pipeline client, shallow-copied with a
// different timeout when the request asks for one.
func (p *Pipeline) clientFor(spec *RequestSpec) *http.Client {
	if spec.Timeout <= 0 || spec.Timeout == p.httpClient.Timeout {
		return p.httpClient
	}
	client := *p.httpClient
	client.Timeout = spec.Timeout
	return &client
}

// classifyStatus maps a rejected status code to a sentinel error
func classifyStatus(statusCode int) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return types.ErrUnauthorized
	case http.StatusForbidden:
		return types.ErrForbidden
	case http.StatusNotFound:
		return types.ErrNotFound
	case http.StatusTooManyRequests:
		return types.ErrRateLimited
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return types.ErrTimeout
	default:
		if statusCode >= 500 {
			return types.ErrServerError
		}
		return types.ErrRequestFailed
	}
}
