package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/chartwell-io/chartwell-go/internal/transport"
	"github.com/chartwell-io/chartwell-go/internal/types"
	"github.com/pkg/errors"
)

// Service drives the sign-in and sign-out lifecycle against the
// Chartwell auth endpoints.
type Service struct {
	serverURL string
	site      string
	creds     types.Credentials
	pipeline  *transport.Pipeline
	store     *Store
	logger    types.Logger
}

// NewService creates a new session service. site is the content URL
// segment of the site to sign in to; empty selects the default site.
func NewService(serverURL, site string, creds types.Credentials, pipeline *transport.Pipeline, store *Store, logger types.Logger) *Service {
	if logger == nil {
		logger = types.NopLogger{}
	}

	return &Service{
		serverURL: serverURL,
		site:      site,
		creds:     creds,
		pipeline:  pipeline,
		store:     store,
		logger:    logger,
	}
}

// signInResponse mirrors the credentials document the server returns.
// User is a pointer because older servers omit it entirely.
type signInResponse struct {
	Credentials struct {
		Token string `json:"token"`
		Site  struct {
			ID string `json:"id"`
		} `json:"site"`
		User *struct {
			ID string `json:"id"`
		} `json:"user,omitempty"`
	} `json:"credentials"`
}

// SignIn authenticates with the configured credentials and stores the
// resulting token, site id and user id. It returns true only when the
// response carried a non-blank user id; a well-formed response without
// one is a soft failure (false, nil) that leaves the store signed out.
func (s *Service) SignIn(ctx context.Context) (bool, error) {
	body, err := s.signInBody()
	if err != nil {
		return false, err
	}

	s.logger.Debug("Signing in",
		"server", s.serverURL,
		"site", s.site,
		"mode", s.creds.Mode,
		"name", s.creds.Name,
	)

	resp, err := s.pipeline.Do(ctx, &transport.RequestSpec{
		Method:      http.MethodPost,
		URL:         s.serverURL + types.SignInEndpoint,
		Description: "sign in",
		Body:        body,
	})
	if err != nil {
		return false, errors.Wrap(err, "sign in request failed")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, errors.Wrap(err, "failed to read sign in response")
	}

	var doc signInResponse
	if err := json.Unmarshal(payload, &doc); err != nil {
		return false, errors.Wrapf(types.ErrMalformedResponse, "failed to parse sign in response: %v", err)
	}

	token := doc.Credentials.Token
	siteID := doc.Credentials.Site.ID
	if token == "" || siteID == "" {
		return false, errors.Wrap(types.ErrMalformedResponse, "sign in response missing token or site id")
	}

	// A session without a user id cannot be attributed to anyone, so
	// the parsed token is discarded rather than stored.
	if doc.Credentials.User == nil || doc.Credentials.User.ID == "" {
		s.logger.Warn("Sign in response carried no user id, treating as failed",
			"server", s.serverURL,
			"site", s.site,
		)
		return false, nil
	}

	s.store.set(types.Session{
		Token:    token,
		SiteID:   siteID,
		UserID:   doc.Credentials.User.ID,
		Cookie:   resp.Header.Get("Set-Cookie"),
		SignedIn: true,
	})

	s.logger.Info("Signed in",
		"site", s.site,
		"siteId", siteID,
		"userId", doc.Credentials.User.ID,
	)

	return true, nil
}

// signInBody builds the credentials document for the configured mode.
// Unknown modes fail here, before any network traffic.
func (s *Service) signInBody() ([]byte, error) {
	credentials := map[string]interface{}{
		"site": map[string]string{"contentUrl": s.site},
	}

	switch s.creds.Mode {
	case types.CredentialModePassword:
		credentials["name"] = s.creds.Name
		credentials["password"] = s.creds.Secret
	case types.CredentialModeAccessToken:
		credentials["personalAccessTokenName"] = s.creds.Name
		credentials["personalAccessTokenSecret"] = s.creds.Secret
	default:
		return nil, errors.Wrapf(types.ErrUnsupportedCredentialMode, "credential mode %q", s.creds.Mode)
	}

	body, err := json.Marshal(map[string]interface{}{"credentials": credentials})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal sign in request")
	}

	return body, nil
}

// SignOut invalidates the server-side session. Local session state is
// cleared even when the server call fails, so a stale token can never
// authenticate a later request.
func (s *Service) SignOut(ctx context.Context) error {
	if !s.store.Snapshot().SignedIn {
		s.logger.Error("Sign out requested without an active session", "server", s.serverURL)
	}
	defer s.store.clear()

	_, err := s.pipeline.DoDiscard(ctx, &transport.RequestSpec{
		Method:      http.MethodPost,
		URL:         s.serverURL + types.SignOutEndpoint,
		Description: "sign out",
	})
	if err != nil {
		return errors.Wrap(err, "sign out request failed")
	}

	s.logger.Info("Signed out", "site", s.site)
	return nil
}

// Session returns a snapshot of the current session state.
func (s *Service) Session() (*types.Session, error) {
	snapshot := s.store.Snapshot()
	if snapshot.Token == "" {
		return nil, types.ErrNotSignedIn
	}
	return &snapshot, nil
}

// Resume installs a session without a sign-in round trip, for callers
// holding a still-valid token.
func (s *Service) Resume(token, siteID string) {
	s.store.set(types.Session{
		Token:    token,
		SiteID:   siteID,
		SignedIn: true,
	})
}

// Save writes the current session to path with restrictive permissions.
func (s *Service) Save(path string) error {
	snapshot := s.store.Snapshot()
	if snapshot.Token == "" {
		return types.ErrNotSignedIn
	}

	// Create directory if needed
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrap(err, "failed to create session directory")
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal session")
	}

	// Write to file with restrictive permissions
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write session file")
	}

	s.logger.Info("Session saved", "path", path)
	return nil
}

// Load restores a previously saved session from path.
func (s *Service) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.ErrNotSignedIn
		}
		return errors.Wrap(err, "failed to read session file")
	}

	var session types.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return errors.Wrap(err, "failed to unmarshal session")
	}
	if session.Token == "" {
		return errors.New("session file carries no token")
	}

	session.SignedIn = true
	s.store.set(session)

	s.logger.Info("Session loaded", "path", path, "siteId", session.SiteID)
	return nil
}
