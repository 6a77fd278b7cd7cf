package auth

import (
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// State is the login state of a Session.
type State int

const (
	StateAnonymous State = iota
	StateAwaitingCallback
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAwaitingCallback:
		return "awaiting_callback"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Identity is the verified user returned by the provider.
type Identity struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Session carries the auth state of one browser session. It is safe for concurrent use.
type Session struct {
	mu         sync.Mutex
	id         string
	state      State
	oauthState string
	identity   Identity
	token      *oauth2.Token

	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewSession returns an anonymous session.
func NewSession(id string, createdAt, expiresAt time.Time) *Session {
	return &Session{id: id, CreatedAt: createdAt, ExpiresAt: expiresAt}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns the logged-in user, if any.
func (s *Session) Identity() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, s.state == StateAuthenticated
}

func (s *Session) Token() *oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// resetLocked drops everything learned during login. Callers hold mu.
func (s *Session) resetLocked() {
	s.state = StateAnonymous
	s.oauthState = ""
	s.identity = Identity{}
	s.token = nil
}
