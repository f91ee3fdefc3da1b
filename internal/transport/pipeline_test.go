package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chartwell-io/chartwell-go/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// tokenStub is a TokenSource with a settable value
type tokenStub struct {
	mu    sync.Mutex
	token string
}

func (t *tokenStub) AuthToken() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.token
}

func (t *tokenStub) set(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = token
}

// recordingLogger captures status-log entries for assertions
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level string
	msg   string
	kv    []interface{}
}

func (l *recordingLogger) record(level, msg string, kv []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, kv: kv})
}

func (l *recordingLogger) Debug(msg string, kv ...interface{}) { l.record("debug", msg, kv) }
func (l *recordingLogger) Info(msg string, kv ...interface{})  { l.record("info", msg, kv) }
func (l *recordingLogger) Warn(msg string, kv ...interface{})  { l.record("warn", msg, kv) }
func (l *recordingLogger) Error(msg string, kv ...interface{}) { l.record("error", msg, kv) }

// find returns the first entry with the given level and message
func (l *recordingLogger) find(level, msg string) *logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entries {
		if l.entries[i].level == level && l.entries[i].msg == msg {
			return &l.entries[i]
		}
	}
	return nil
}

// value returns the field logged under key, or nil
func (e *logEntry) value(key string) interface{} {
	for i := 0; i+1 < len(e.kv); i += 2 {
		if e.kv[i] == key {
			return e.kv[i+1]
		}
	}
	return nil
}

// MockRateLimiter is a mock implementation of types.RateLimiter
type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) Wait(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// trackingBody remembers whether it was closed
type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

// stubTransport returns a canned response without touching the network
type stubTransport struct {
	resp *http.Response
}

func (s stubTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return s.resp, nil
}

func TestPipeline_AuthHeaderReadAtCallTime(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get(types.AuthTokenHeader))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tokens := &tokenStub{}
	p := NewPipeline(&Options{TokenSource: tokens})
	ctx := context.Background()

	// First request goes out before any sign-in
	_, err := p.DoDiscard(ctx, &RequestSpec{Method: http.MethodGet, URL: server.URL, Description: "probe"})
	require.NoError(t, err)

	// A token set afterwards must show up on the next request
	tokens.set("tok-2")
	_, err = p.DoDiscard(ctx, &RequestSpec{Method: http.MethodGet, URL: server.URL, Description: "probe"})
	require.NoError(t, err)

	assert.Equal(t, []string{"", "tok-2"}, seen)
}

func TestPipeline_StandardHeaders(t *testing.T) {
	var headers http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tokens := &tokenStub{token: "tok-1"}
	p := NewPipeline(&Options{TokenSource: tokens})

	_, err := p.DoDiscard(context.Background(), &RequestSpec{
		Method:      http.MethodPost,
		URL:         server.URL,
		Description: "probe",
		Body:        []byte(`{"a":1}`),
	})
	require.NoError(t, err)

	assert.Equal(t, "tok-1", headers.Get(types.AuthTokenHeader))
	assert.Equal(t, types.UserAgent, headers.Get("User-Agent"))
	assert.Equal(t, "application/json", headers.Get("Accept"))
	assert.Equal(t, "application/json", headers.Get("Content-Type"))

	_, err = uuid.Parse(headers.Get(types.RequestIDHeader))
	assert.NoError(t, err, "request id should be a uuid")
}

func TestPipeline_ContentTypeOverride(t *testing.T) {
	var contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewPipeline(nil)
	_, err := p.DoDiscard(context.Background(), &RequestSpec{
		Method:      http.MethodPost,
		URL:         server.URL,
		Description: "probe",
		Body:        []byte("col1,col2"),
		ContentType: "text/csv",
	})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
}

func TestPipeline_StatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"401 unauthorized", http.StatusUnauthorized, types.ErrUnauthorized},
		{"403 forbidden", http.StatusForbidden, types.ErrForbidden},
		{"404 not found", http.StatusNotFound, types.ErrNotFound},
		{"408 request timeout", http.StatusRequestTimeout, types.ErrTimeout},
		{"429 rate limited", http.StatusTooManyRequests, types.ErrRateLimited},
		{"500 server error", http.StatusInternalServerError, types.ErrServerError},
		{"504 gateway timeout", http.StatusGatewayTimeout, types.ErrTimeout},
		{"418 uncategorized", http.StatusTeapot, types.ErrRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("nope"))
			}))
			defer server.Close()

			p := NewPipeline(&Options{Logger: &recordingLogger{}})
			_, err := p.Do(context.Background(), &RequestSpec{
				Method:      http.MethodGet,
				URL:         server.URL,
				Description: "probe",
			})

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var reqErr *types.RequestError
			require.ErrorAs(t, err, &reqErr)
			assert.Equal(t, tt.status, reqErr.StatusCode)
			assert.Equal(t, "probe", reqErr.Description)
			assert.Equal(t, "nope", reqErr.Body)
			assert.NotEmpty(t, reqErr.RequestID)
		})
	}
}

func TestPipeline_SendFailureLogsDiagnostic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close() // connections now refused

	logger := &recordingLogger{}
	p := NewPipeline(&Options{Logger: logger})

	_, err := p.Do(context.Background(), &RequestSpec{
		Method:      http.MethodGet,
		URL:         url,
		Description: "unreachable probe",
	})
	require.Error(t, err)

	entry := logger.find("error", "Request failed")
	require.NotNil(t, entry, "failure should produce a diagnostic entry")
	assert.Equal(t, "unreachable probe", entry.value("description"))
	assert.Equal(t, url, entry.value("url"))
	assert.Equal(t, "", entry.value("body"), "no response body exists for a failed send")
	assert.NotEmpty(t, entry.value("cause"))
}

func TestPipeline_TimeoutProducesDiagnostic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	logger := &recordingLogger{}
	p := NewPipeline(&Options{Logger: logger})

	_, err := p.Do(context.Background(), &RequestSpec{
		Method:      http.MethodGet,
		URL:         server.URL,
		Description: "slow probe",
		Timeout:     20 * time.Millisecond,
	})
	require.Error(t, err)

	entry := logger.find("error", "Request failed")
	require.NotNil(t, entry)
	assert.Equal(t, "slow probe", entry.value("description"))
	assert.Equal(t, "", entry.value("body"))
}

func TestPipeline_PerRequestTimeoutDoesNotMutateClient(t *testing.T) {
	client := &http.Client{Timeout: types.DefaultTimeout}
	p := NewPipeline(&Options{HTTPClient: client})

	scoped := p.clientFor(&RequestSpec{Timeout: time.Second})
	assert.Equal(t, time.Second, scoped.Timeout)
	assert.Equal(t, types.DefaultTimeout, client.Timeout)

	// Without an override the shared client is reused directly
	assert.Same(t, client, p.clientFor(&RequestSpec{}))
}

func TestPipeline_DoJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"quarterly","size":42}`))
	}))
	defer server.Close()

	p := NewPipeline(nil)

	var out struct {
		Name string `json:"name"`
		Size int    `json:"size"`
	}
	err := p.DoJSON(context.Background(), &RequestSpec{
		Method:      http.MethodGet,
		URL:         server.URL,
		Description: "fetch view",
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, "quarterly", out.Name)
	assert.Equal(t, 42, out.Size)
}

func TestPipeline_DoJSON_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	p := NewPipeline(&Options{Logger: &recordingLogger{}})

	var out map[string]interface{}
	err := p.DoJSON(context.Background(), &RequestSpec{
		Method:      http.MethodGet,
		URL:         server.URL,
		Description: "fetch view",
	}, &out)

	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrMalformedResponse)
}

func TestPipeline_DoJSON_ReleasesBodyOnParseFailure(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader("not json")}
	resp := &http.Response{
		Status:     "200 OK",
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       body,
	}
	p := NewPipeline(&Options{HTTPClient: &http.Client{Transport: stubTransport{resp: resp}}})

	var out map[string]interface{}
	err := p.DoJSON(context.Background(), &RequestSpec{
		Method:      http.MethodGet,
		URL:         "http://chartwell.test/doc",
		Description: "fetch doc",
	}, &out)

	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrMalformedResponse)
	assert.True(t, body.closed, "response body must be released on parse failure")
}

func TestPipeline_RejectedResponseBodyIsClosed(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader("denied")}
	resp := &http.Response{
		Status:     "403 Forbidden",
		StatusCode: http.StatusForbidden,
		Header:     http.Header{},
		Body:       body,
	}
	p := NewPipeline(&Options{
		HTTPClient: &http.Client{Transport: stubTransport{resp: resp}},
		Logger:     &recordingLogger{},
	})

	_, err := p.Do(context.Background(), &RequestSpec{
		Method:      http.MethodGet,
		URL:         "http://chartwell.test/doc",
		Description: "fetch doc",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrForbidden)
	assert.True(t, body.closed, "rejected response body is consumed by diagnostics")
}

func TestPipeline_DoJSON_NilOutSkipsDecoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("### not json at all ###"))
	}))
	defer server.Close()

	p := NewPipeline(nil)
	err := p.DoJSON(context.Background(), &RequestSpec{
		Method:      http.MethodGet,
		URL:         server.URL,
		Description: "fire and forget",
	}, nil)

	assert.NoError(t, err)
}

func TestPipeline_DoDiscard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ignored"))
	}))
	defer server.Close()

	p := NewPipeline(nil)
	ok, err := p.DoDiscard(context.Background(), &RequestSpec{
		Method:      http.MethodPost,
		URL:         server.URL,
		Description: "sign out",
	})

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPipeline_RateLimiterBlocksSend(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	limiter := new(MockRateLimiter)
	limiter.On("Wait", mock.Anything).Return(context.DeadlineExceeded)

	p := NewPipeline(&Options{RateLimiter: limiter})
	_, err := p.Do(context.Background(), &RequestSpec{
		Method:      http.MethodGet,
		URL:         server.URL,
		Description: "probe",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits), "request must not be sent when the limiter refuses")
	limiter.AssertExpectations(t)
}

func TestPipeline_RateLimiterAllowsSend(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	limiter := new(MockRateLimiter)
	limiter.On("Wait", mock.Anything).Return(nil)

	p := NewPipeline(&Options{RateLimiter: limiter})
	ok, err := p.DoDiscard(context.Background(), &RequestSpec{
		Method:      http.MethodGet,
		URL:         server.URL,
		Description: "probe",
	})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	limiter.AssertExpectations(t)
}

func TestPipeline_Hooks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var requested, responded bool
	var errored error
	hooks := &types.Hooks{
		OnRequest:  func(ctx context.Context, req *http.Request) { requested = true },
		OnResponse: func(ctx context.Context, resp *http.Response, d time.Duration) { responded = true },
		OnError:    func(ctx context.Context, err error) { errored = err },
	}

	p := NewPipeline(&Options{Hooks: hooks})
	_, err := p.DoDiscard(context.Background(), &RequestSpec{
		Method:      http.MethodGet,
		URL:         server.URL,
		Description: "probe",
	})

	require.NoError(t, err)
	assert.True(t, requested)
	assert.True(t, responded)
	assert.NoError(t, errored)
}

func TestPipeline_HooksOnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	var errored error
	hooks := &types.Hooks{
		OnError: func(ctx context.Context, err error) { errored = err },
	}

	p := NewPipeline(&Options{Hooks: hooks, Logger: &recordingLogger{}})
	_, err := p.Do(context.Background(), &RequestSpec{
		Method:      http.MethodGet,
		URL:         server.URL,
		Description: "probe",
	})

	require.Error(t, err)
	require.Error(t, errored)
	assert.ErrorIs(t, errored, types.ErrServerError)
}
