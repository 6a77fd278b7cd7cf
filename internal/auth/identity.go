package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

// UserInfoFetcher reads the identity from the provider's userinfo endpoint.
type UserInfoFetcher struct {
	url    string
	client *http.Client
}

// NewUserInfoFetcher creates a fetcher for the given endpoint.
func NewUserInfoFetcher(url string, client *http.Client) *UserInfoFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &UserInfoFetcher{url: url, client: client}
}

type userInfoResponse struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
}

func (f *UserInfoFetcher) FetchIdentity(ctx context.Context, token *oauth2.Token) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to create userinfo request: %w", err)
	}
	token.SetAuthHeader(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to call userinfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Identity{}, fmt.Errorf("userinfo endpoint returned status %d", resp.StatusCode)
	}

	var info userInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Identity{}, fmt.Errorf("failed to decode userinfo response: %w", err)
	}
	if info.EmailVerified != nil && !*info.EmailVerified {
		return Identity{}, fmt.Errorf("email %s is not verified", info.Email)
	}
	return Identity{Email: info.Email, Name: info.Name}, nil
}

type validateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// IDTokenVerifier validates the id_token returned with the access token against Google's keys.
type IDTokenVerifier struct {
	clientID string
	validate validateFunc
}

// NewIDTokenVerifier builds a verifier whose audience is clientID.
func NewIDTokenVerifier(ctx context.Context, clientID string, client *http.Client) (*IDTokenVerifier, error) {
	var opts []option.ClientOption
	if client != nil {
		opts = append(opts, option.WithHTTPClient(client))
	}
	validator, err := idtoken.NewValidator(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create id token validator: %w", err)
	}
	return &IDTokenVerifier{clientID: clientID, validate: validator.Validate}, nil
}

func (v *IDTokenVerifier) FetchIdentity(ctx context.Context, token *oauth2.Token) (Identity, error) {
	raw, _ := token.Extra("id_token").(string)
	if raw == "" {
		return Identity{}, fmt.Errorf("token response carried no id_token")
	}

	payload, err := v.validate(ctx, raw, v.clientID)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to validate id token: %w", err)
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	if verified, ok := payload.Claims["email_verified"].(bool); !ok || !verified {
		return Identity{}, fmt.Errorf("email %s is not verified", email)
	}
	return Identity{Email: email, Name: name}, nil
}
