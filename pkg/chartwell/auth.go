package chartwell

import (
	"context"
)

// authService implements the AuthService interface
type authService struct {
	client *Client
}

// SignIn authenticates with the configured credentials
func (a *authService) SignIn(ctx context.Context) (bool, error) {
	ok, err := a.client.sessions.SignIn(ctx)
	if err != nil {
		a.client.captureError(ctx, "auth.signIn", err)
		return false, err
	}

	// Save session if configured
	if ok && a.client.options.SessionFile != "" {
		_ = a.client.sessions.Save(a.client.options.SessionFile)
	}

	return ok, nil
}

// SignOut invalidates the session
func (a *authService) SignOut(ctx context.Context) error {
	if err := a.client.sessions.SignOut(ctx); err != nil {
		a.client.captureError(ctx, "auth.signOut", err)
		return err
	}
	return nil
}

// Session returns the current session
func (a *authService) Session() (*Session, error) {
	return a.client.sessions.Session()
}

// SaveSession saves the session to a file
func (a *authService) SaveSession(path string) error {
	return a.client.sessions.Save(path)
}

// LoadSession loads a previously saved session from a file
func (a *authService) LoadSession(path string) error {
	return a.client.sessions.Load(path)
}
