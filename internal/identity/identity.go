// Copyright 2025 Oskar Olofsson
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package identity resolves bearer tokens for authenticated backend calls.
// The pipeline never caches tokens itself; every call asks the provider for
// a token at the moment the request is built, so session refresh and
// revocation stay entirely the identity layer's concern.
package identity

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/oskarjolofsson/swingpipe/internal/config"
)

// ErrNotSignedIn is returned when no identity is available to mint a token.
var ErrNotSignedIn = errors.New("no signed-in user")

// User identifies the account the provider mints tokens for.
type User struct {
	ID string `json:"id"`
}

// Provider hands out bearer tokens and names the account behind them.
// Implementations must be safe for concurrent use; the upload orchestrator
// and the poller both call Token from their own goroutines.
type Provider interface {
	// Token returns a bearer token valid right now. Implementations may
	// refresh under the hood, but callers treat every returned token as
	// single-use.
	Token(ctx context.Context) (string, error)
	// CurrentUser resolves the signed-in account, or ErrNotSignedIn when
	// there is none.
	CurrentUser(ctx context.Context) (User, error)
}

// OAuthProvider mints tokens from an OAuth2 token endpoint using the
// client-credentials grant. The client ID doubles as the account identity.
type OAuthProvider struct {
	source   oauth2.TokenSource
	clientID string
}

// NewOAuthProvider builds a provider from the identity configuration.
func NewOAuthProvider(ctx context.Context, cfg config.Identity) (*OAuthProvider, error) {
	if cfg.TokenURL == "" {
		return nil, errors.New("identity: token_url is not configured")
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	return &OAuthProvider{source: cc.TokenSource(ctx), clientID: cfg.ClientID}, nil
}

// Token implements Provider.
func (p *OAuthProvider) Token(_ context.Context) (string, error) {
	tok, err := p.source.Token()
	if err != nil {
		return "", fmt.Errorf("identity: fetching token: %w", err)
	}
	if !tok.Valid() {
		return "", ErrNotSignedIn
	}
	return tok.AccessToken, nil
}

// CurrentUser implements Provider.
func (p *OAuthProvider) CurrentUser(context.Context) (User, error) {
	if p.clientID == "" {
		return User{}, ErrNotSignedIn
	}
	return User{ID: p.clientID}, nil
}

// StaticProvider returns a fixed token. Used in tests and local development
// against an unauthenticated backend.
type StaticProvider struct {
	Value   string
	Subject string // Account ID reported by CurrentUser; "local" when empty.
}

// Token implements Provider.
func (p *StaticProvider) Token(context.Context) (string, error) {
	if p.Value == "" {
		return "", ErrNotSignedIn
	}
	return p.Value, nil
}

// CurrentUser implements Provider.
func (p *StaticProvider) CurrentUser(context.Context) (User, error) {
	if p.Value == "" {
		return User{}, ErrNotSignedIn
	}
	if p.Subject == "" {
		return User{ID: "local"}, nil
	}
	return User{ID: p.Subject}, nil
}
