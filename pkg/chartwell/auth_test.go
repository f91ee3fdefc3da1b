package chartwell

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/chartwell-io/chartwell-go/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const signInResponse = `{"credentials":{"token":"T1","site":{"id":"S1"},"user":{"id":"U1"}}}`

// newAuthServer serves the sign-in and sign-out endpoints and records
// what reached them.
func newAuthServer(t *testing.T, signInBody string) (*httptest.Server, *authCalls) {
	t.Helper()
	calls := &authCalls{}
	mux := http.NewServeMux()
	mux.HandleFunc(types.SignInEndpoint, func(w http.ResponseWriter, r *http.Request) {
		calls.signIns++
		_ = json.NewDecoder(r.Body).Decode(&calls.signInRequest)
		_, _ = w.Write([]byte(signInBody))
	})
	mux.HandleFunc(types.SignOutEndpoint, func(w http.ResponseWriter, r *http.Request) {
		calls.signOuts++
		calls.signOutToken = r.Header.Get(types.AuthTokenHeader)
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, calls
}

type authCalls struct {
	signIns       int
	signOuts      int
	signOutToken  string
	signInRequest struct {
		Credentials struct {
			Name     string `json:"name"`
			Password string `json:"password"`
			Site     struct {
				ContentURL string `json:"contentUrl"`
			} `json:"site"`
		} `json:"credentials"`
	}
}

func TestAuth_SignInSignOutFlow(t *testing.T) {
	server, calls := newAuthServer(t, signInResponse)

	client, err := NewClient(&ClientOptions{
		ServerURL:   server.URL,
		Site:        "mysite",
		Credentials: PasswordCredentials("alice", "pw"),
	})
	require.NoError(t, err)

	ok, err := client.Auth.SignIn(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", calls.signInRequest.Credentials.Name)
	assert.Equal(t, "pw", calls.signInRequest.Credentials.Password)
	assert.Equal(t, "mysite", calls.signInRequest.Credentials.Site.ContentURL)

	session, err := client.Auth.Session()
	require.NoError(t, err)
	assert.Equal(t, "T1", session.Token)
	assert.Equal(t, "S1", session.SiteID)
	assert.Equal(t, "U1", session.UserID)

	require.NoError(t, client.Auth.SignOut(context.Background()))
	assert.Equal(t, 1, calls.signOuts)
	assert.Equal(t, "T1", calls.signOutToken)

	_, err = client.Auth.Session()
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestAuth_SignIn_SoftFailure(t *testing.T) {
	server, calls := newAuthServer(t, `{"credentials":{"token":"T1","site":{"id":"S1"}}}`)

	client, err := NewClient(&ClientOptions{
		ServerURL:   server.URL,
		Credentials: PasswordCredentials("alice", "pw"),
	})
	require.NoError(t, err)

	ok, err := client.Auth.SignIn(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, calls.signIns)

	_, err = client.Auth.Session()
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestAuth_SignIn_ServerRejects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad credentials"))
	}))
	defer server.Close()

	client, err := NewClient(&ClientOptions{
		ServerURL:   server.URL,
		Credentials: PasswordCredentials("alice", "wrong"),
	})
	require.NoError(t, err)

	ok, err := client.Auth.SignIn(context.Background())
	require.Error(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, IsAuthError(err))
}

func TestAuth_SessionFilePersistence(t *testing.T) {
	server, _ := newAuthServer(t, signInResponse)
	path := filepath.Join(t.TempDir(), "state", "session.json")

	first, err := NewClient(&ClientOptions{
		ServerURL:   server.URL,
		Credentials: PasswordCredentials("alice", "pw"),
		SessionFile: path,
	})
	require.NoError(t, err)

	ok, err := first.Auth.SignIn(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	// Sign-in wrote the session file
	_, err = os.Stat(path)
	require.NoError(t, err)

	// A fresh client picks the session up without signing in
	second, err := NewClient(&ClientOptions{
		ServerURL:   server.URL,
		SessionFile: path,
	})
	require.NoError(t, err)

	session, err := second.Auth.Session()
	require.NoError(t, err)
	assert.Equal(t, "T1", session.Token)
	assert.Equal(t, "S1", session.SiteID)
}

func TestAuth_SaveAndLoadSession(t *testing.T) {
	server, _ := newAuthServer(t, signInResponse)
	path := filepath.Join(t.TempDir(), "session.json")

	client, err := NewClient(&ClientOptions{
		ServerURL:   server.URL,
		Credentials: AccessTokenCredentials("ci-token", "secret-value"),
	})
	require.NoError(t, err)

	ok, err := client.Auth.SignIn(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, client.Auth.SaveSession(path))

	restored, err := NewClient(&ClientOptions{ServerURL: server.URL})
	require.NoError(t, err)
	require.NoError(t, restored.Auth.LoadSession(path))

	session, err := restored.Auth.Session()
	require.NoError(t, err)
	assert.Equal(t, "T1", session.Token)
}
