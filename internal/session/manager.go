package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"grocery-planner/internal/auth"
)

// ErrSessionNotFound is returned for unknown, expired or tampered session tokens.
var ErrSessionNotFound = errors.New("session not found")

const issuer = "grocery-planner"

// Manager keeps auth sessions in memory and hands out signed cookie tokens that reference them.
type Manager struct {
	mu       sync.Mutex
	secret   []byte
	ttl      time.Duration
	sessions map[string]*auth.Session
	now      func() time.Time
}

// NewManager creates a Manager signing tokens with secret.
func NewManager(secret []byte, ttl time.Duration) *Manager {
	return &Manager{
		secret:   secret,
		ttl:      ttl,
		sessions: make(map[string]*auth.Session),
		now:      time.Now,
	}
}

// Create starts an anonymous session and returns it with its signed token.
func (m *Manager) Create() (*auth.Session, string, error) {
	now := m.now()
	s := auth.NewSession(uuid.NewString(), now, now.Add(m.ttl))

	claims := jwt.RegisteredClaims{
		ID:        s.ID(),
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign session token: %w", err)
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s, token, nil
}

// Resolve verifies token and returns the session it names.
func (m *Manager) Resolve(token string) (*auth.Session, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[claims.ID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.Expired(m.now()) {
		delete(m.sessions, claims.ID)
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete forgets a session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// CleanupExpired drops expired sessions and reports how many were removed.
func (m *Manager) CleanupExpired() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
