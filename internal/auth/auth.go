// Copyright (c) 2026 Relay Chat <oss@relay.chat>.
// SPDX-License-Identifier: Apache-2.0

// Package auth holds the session credential pair and the refresh exchange.
// Tokens are opaque: expiry is discovered reactively via a 401, never
// predicted client-side.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/apex/log"
	"golang.org/x/sync/singleflight"
)

// ErrAuthExpired means the refresh token itself was rejected. The session is
// over; callers clear local state and send the user back through login.
var ErrAuthExpired = errors.New("auth: session expired")

// ErrNoSession is returned when a refresh is attempted with no stored pair.
var ErrNoSession = errors.New("auth: no session")

// TokenPair is the access/refresh credential pair issued at login.
type TokenPair struct {
	Access  string `json:"access_token"`
	Refresh string `json:"refresh_token"`
}

// Refresher exchanges a refresh token for a new pair. Implementations signal
// a rejected refresh token with ErrAuthExpired.
type Refresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (TokenPair, error)
}

// Provider owns the current pair. Refresh is safe to call concurrently:
// callers arriving while an exchange is in flight join it and observe its
// result rather than issuing a duplicate exchange, which on many auth
// backends would invalidate the first caller's new token.
type Provider struct {
	mu        sync.Mutex
	pair      TokenPair
	refresher Refresher
	group     singleflight.Group
	onChange  func(TokenPair)
}

// NewProvider returns a Provider that performs exchanges through r.
func NewProvider(r Refresher) *Provider {
	return &Provider{refresher: r}
}

// AccessToken returns the current access token, possibly empty.
func (p *Provider) AccessToken() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pair.Access
}

// SetPair replaces the stored credential pair.
func (p *Provider) SetPair(access, refresh string) {
	p.setPair(TokenPair{Access: access, Refresh: refresh})
}

// Clear drops the stored pair, ending the session locally.
func (p *Provider) Clear() {
	p.setPair(TokenPair{})
}

// OnChange registers a hook invoked whenever the pair changes, including
// pipeline-triggered refreshes. The CLI uses it to persist the session.
func (p *Provider) OnChange(fn func(TokenPair)) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

func (p *Provider) setPair(pair TokenPair) {
	p.mu.Lock()
	p.pair = pair
	fn := p.onChange
	p.mu.Unlock()

	if fn != nil {
		fn(pair)
	}
}

// Refresh exchanges the refresh token for a new pair and returns the new
// access token. Concurrent callers share one underlying exchange.
func (p *Provider) Refresh(ctx context.Context) (string, error) {
	token, err, shared := p.group.Do("refresh", func() (any, error) {
		p.mu.Lock()
		refresh := p.pair.Refresh
		p.mu.Unlock()

		if refresh == "" {
			return "", ErrNoSession
		}

		pair, err := p.refresher.RefreshToken(ctx, refresh)
		if err != nil {
			if errors.Is(err, ErrAuthExpired) {
				return "", err
			}
			return "", fmt.Errorf("failed to refresh credentials: %w", err)
		}

		p.setPair(pair)
		return pair.Access, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		log.Debug("auth: joined in-flight refresh")
	}
	return token.(string), nil
}
