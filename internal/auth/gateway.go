package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"grocery-planner/internal/config"
)

// Scopes requested from the provider.
var Scopes = []string{"openid", "email", "profile"}

// LoginResult is what a successful callback yields.
type LoginResult struct {
	Identity Identity
	Token    *oauth2.Token
}

// IdentityFetcher turns a fresh token into a verified identity.
type IdentityFetcher interface {
	FetchIdentity(ctx context.Context, token *oauth2.Token) (Identity, error)
}

// Gateway drives the OAuth2 authorization-code flow for a Session.
type Gateway struct {
	oauth      *oauth2.Config
	fetcher    IdentityFetcher
	httpClient *http.Client
	timeout    time.Duration
}

// NewGateway builds a Gateway from configuration. A nil httpClient gets one with cfg.HTTPTimeout.
func NewGateway(cfg *config.Config, fetcher IdentityFetcher, httpClient *http.Client) *Gateway {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &Gateway{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		fetcher:    fetcher,
		httpClient: httpClient,
		timeout:    cfg.HTTPTimeout,
	}
}

// BuildAuthorizationURL issues a fresh state token for s and returns the provider URL.
// Any earlier login on s is discarded.
func (g *Gateway) BuildAuthorizationURL(s *Session) (string, error) {
	state, err := newStateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.oauthState = state
	s.state = StateAwaitingCallback

	return g.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

func newStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CompleteLogin handles the provider callback. The pending state is single use: whatever the
// outcome, s is either authenticated or back to anonymous when this returns.
func (g *Gateway) CompleteLogin(ctx context.Context, s *Session, code, returnedState string) (*LoginResult, error) {
	s.mu.Lock()
	pending := s.oauthState
	s.resetLocked()
	s.mu.Unlock()

	if pending == "" || subtle.ConstantTimeCompare([]byte(pending), []byte(returnedState)) != 1 {
		return nil, ErrStateMismatch
	}
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", ErrTokenExchange)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}

	identity, err := g.fetcher.FetchIdentity(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentityFetch, err)
	}
	if identity.Email == "" {
		return nil, fmt.Errorf("%w: provider returned no email", ErrIdentityFetch)
	}

	s.mu.Lock()
	s.state = StateAuthenticated
	s.identity = identity
	s.token = token
	s.mu.Unlock()

	return &LoginResult{Identity: identity, Token: token}, nil
}

// HandleProviderError resets s after the provider redirected back with an error parameter.
func (g *Gateway) HandleProviderError(s *Session, code, description string) error {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()

	if description != "" {
		return fmt.Errorf("%w: %s (%s)", ErrProviderDenied, code, description)
	}
	return fmt.Errorf("%w: %s", ErrProviderDenied, code)
}

// Logout returns s to anonymous. Calling it on an anonymous session is a no-op.
func (g *Gateway) Logout(s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}
