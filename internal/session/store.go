package session

import (
	"sync"

	"github.com/chartwell-io/chartwell-go/internal/types"
)

// Store holds the session state shared by the signing service and the
// request pipeline. Access is safe across goroutines; the pipeline asks
// for the token on every request it builds.
type Store struct {
	mu      sync.RWMutex
	session types.Session
}

// NewStore returns an empty, signed-out store.
func NewStore() *Store {
	return &Store{}
}

// AuthToken returns the current session token. Empty until a sign-in
// succeeds.
func (s *Store) AuthToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Token
}

// Snapshot returns a copy of the current session state.
func (s *Store) Snapshot() types.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// set replaces the session state wholesale.
func (s *Store) set(session types.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
}

// clear drops all session state, returning the store to signed-out.
func (s *Store) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = types.Session{}
}
