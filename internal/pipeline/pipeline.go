// Copyright (c) 2026 Relay Chat <oss@relay.chat>.
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/apex/log"

	"github.com/relaychat/relayctl/internal/auth"
	"github.com/relaychat/relayctl/internal/cache"
)

// Call names one logical network call. Bypass is the x-bypass-cache signal:
// skip the cache consult for this call, but still write the result back.
type Call struct {
	Method string
	Path   string
	Params map[string]string
	Body   []byte
	Bypass bool
}

// Response is what a Transport hands back. RetryAfter is the parsed
// Retry-After hint, zero when the server sent none.
type Response struct {
	Status     int
	Body       []byte
	RetryAfter time.Duration
}

// Transport performs a named network call. The HTTP implementation lives in
// internal/transport; tests substitute their own.
type Transport interface {
	RoundTrip(ctx context.Context, call Call) (*Response, error)
}

// Result is the tagged outcome of a call: either the network answered, or
// the cache did, in which case Stale says whether the entry had expired.
// Stale data is never silently promoted to fresh.
type Result struct {
	Data      json.RawMessage
	FromCache bool
	Stale     bool
}

// Pipeline drives every outbound call through the request stage (cache
// consult, cooldown check) and the response stage (write-back, cooldown
// trip, refresh-and-retry).
type Pipeline struct {
	transport Transport
	cache     *cache.Manager[json.RawMessage]
	tokens    *auth.Provider
	rules     Rules
	limits    *RateLimitState
}

// New wires the pipeline. All collaborators are constructed by the caller
// and shared by reference; there are no package-level singletons.
func New(t Transport, c *cache.Manager[json.RawMessage], tokens *auth.Provider, rules Rules, limits *RateLimitState) *Pipeline {
	return &Pipeline{
		transport: t,
		cache:     c,
		tokens:    tokens,
		rules:     rules,
		limits:    limits,
	}
}

// Cache exposes the underlying manager for stats and startup reload.
func (p *Pipeline) Cache() *cache.Manager[json.RawMessage] { return p.cache }

// Do runs one logical call through both stages.
func (p *Pipeline) Do(ctx context.Context, call Call) (*Result, error) {
	rule, found := p.rules.Find(call.Path)
	cacheable := found && call.Method == http.MethodGet

	var key string
	if cacheable {
		key = cache.Key(call.Path, call.Params)
	}

	if p.limits.Active(time.Now()) {
		// Cooling down: prefer anything we have over fresh traffic. A key
		// with nothing cached still goes through; we cannot serve nothing.
		if key != "" {
			if data, stale, ok := p.cache.GetWithStale(key); ok {
				log.Debugf("pipeline: cooldown, served %s from cache (stale=%t)", key, stale)
				return &Result{Data: data, FromCache: true, Stale: stale}, nil
			}
		}
	} else if cacheable && !call.Bypass {
		// Stale-while-revalidate: a hit short-circuits even when expired.
		// Revalidation happens on the next organic request after expiry or
		// via Preload, never from a background thread.
		if data, stale, ok := p.cache.GetWithStale(key); ok {
			return &Result{Data: data, FromCache: true, Stale: stale}, nil
		}
	}

	return p.roundTrip(ctx, call, key, rule)
}

func (p *Pipeline) roundTrip(ctx context.Context, call Call, key string, rule Rule) (*Result, error) {
	retried := false
	for {
		resp, err := p.transport.RoundTrip(ctx, call)
		if err != nil {
			return nil, fmt.Errorf("transport failure: %w", err)
		}

		switch {
		case resp.Status == http.StatusUnauthorized:
			if retried {
				return nil, auth.ErrAuthExpired
			}
			retried = true
			if _, err := p.tokens.Refresh(ctx); err != nil {
				if errors.Is(err, auth.ErrNoSession) {
					// Never logged in; this 401 is the real answer.
					return nil, &StatusError{Status: resp.Status, Body: resp.Body}
				}
				if errors.Is(err, auth.ErrAuthExpired) {
					return nil, err
				}
				return nil, errors.Join(auth.ErrAuthExpired, err)
			}
			continue

		case resp.Status == http.StatusTooManyRequests:
			d := resp.RetryAfter
			if d <= 0 {
				d = DefaultCooldown
			}
			until := time.Now().Add(d)
			p.limits.Trip(until)
			log.Warnf("pipeline: rate limited, cooling down for %s", d)
			if key != "" {
				if data, stale, ok := p.cache.GetWithStale(key); ok {
					return &Result{Data: data, FromCache: true, Stale: stale}, nil
				}
			}
			return nil, &RateLimitedError{Until: until}

		case resp.Status < http.StatusOK || resp.Status >= http.StatusMultipleChoices:
			return nil, &StatusError{Status: resp.Status, Body: resp.Body}
		}

		if key != "" {
			if err := p.cache.Set(key, json.RawMessage(resp.Body), rule.TTL); err != nil {
				log.WithError(err).Warnf("pipeline: cannot cache %s", key)
			}
		}
		return &Result{Data: resp.Body}, nil
	}
}

// Preload warms the cache for the given GET paths, bypassing any entries
// already present. Best-effort: failures are logged, not returned.
func (p *Pipeline) Preload(ctx context.Context, paths ...string) {
	for _, path := range paths {
		if _, err := p.Do(ctx, Call{Method: http.MethodGet, Path: path, Bypass: true}); err != nil {
			log.WithError(err).Warnf("pipeline: preload of %s failed", path)
		}
	}
}

// Invalidate removes cached entries whose keys match re. Mutation flows call
// this for the resource they just wrote.
func (p *Pipeline) Invalidate(re *regexp.Regexp) {
	p.cache.ClearPattern(re)
}

// ClearAll empties the cache, both tiers. Used by the logout flow.
func (p *Pipeline) ClearAll() {
	p.cache.Clear()
}
