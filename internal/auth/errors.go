package auth

import "errors"

var (
	ErrStateMismatch  = errors.New("oauth state mismatch")
	ErrTokenExchange  = errors.New("token exchange failed")
	ErrIdentityFetch  = errors.New("identity fetch failed")
	ErrProviderDenied = errors.New("provider denied authorization")
)
