// Copyright (c) 2026 Relay Chat <oss@relay.chat>.
// SPDX-License-Identifier: Apache-2.0

// Package transport is the net/http implementation of pipeline.Transport,
// plus the auth.Refresher exchange against the Relay auth endpoints.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/relaychat/relayctl/internal/auth"
	"github.com/relaychat/relayctl/internal/pipeline"
)

const defaultTimeout = 30 * time.Second

// HTTP performs Relay API calls against a base URL, injecting the current
// bearer token on every request.
type HTTP struct {
	base   string
	client *http.Client
	tokens *auth.Provider
}

// New returns a transport rooted at base, e.g. "https://api.relay.chat".
// The token provider is attached afterwards with SetTokens: the provider
// needs the transport as its Refresher, so one of the two must come first.
func New(base string, tokens *auth.Provider) *HTTP {
	return &HTTP{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: defaultTimeout},
		tokens: tokens,
	}
}

// SetTokens attaches the provider whose access token is injected per call.
func (t *HTTP) SetTokens(tokens *auth.Provider) {
	t.tokens = tokens
}

// RoundTrip implements pipeline.Transport.
func (t *HTTP) RoundTrip(ctx context.Context, call pipeline.Call) (*pipeline.Response, error) {
	u := t.base + call.Path
	if len(call.Params) > 0 {
		q := url.Values{}
		for k, v := range call.Params {
			q.Set(k, v)
		}
		u += "?" + q.Encode()
	}

	var body io.Reader
	if len(call.Body) > 0 {
		body = bytes.NewReader(call.Body)
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if len(call.Body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.tokens != nil {
		if tok := t.tokens.AccessToken(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	out := &pipeline.Response{Status: resp.StatusCode, Body: bytes.TrimSpace(data)}
	if resp.StatusCode == http.StatusTooManyRequests {
		out.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}
	log.Debugf("transport: %s %s -> %d (%d bytes)", call.Method, call.Path, out.Status, len(out.Body))
	return out, nil
}

// RefreshToken implements auth.Refresher via POST /auth/refresh. A 401 or
// 403 means the refresh token itself was rejected.
func (t *HTTP) RefreshToken(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	payload, _ := json.Marshal(map[string]string{"refresh_token": refreshToken})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.base+"/auth/refresh", bytes.NewReader(payload))
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("failed to execute refresh: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return auth.TokenPair{}, auth.ErrAuthExpired
	}
	if resp.StatusCode != http.StatusOK {
		return auth.TokenPair{}, fmt.Errorf("refresh returned status %d", resp.StatusCode)
	}

	var pair auth.TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return auth.TokenPair{}, fmt.Errorf("failed to decode refresh response: %w", err)
	}
	return pair, nil
}

// parseRetryAfter handles both delta-seconds and HTTP-date forms. Returns 0
// when the header is absent or unparseable, leaving the default cooldown to
// the pipeline.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
