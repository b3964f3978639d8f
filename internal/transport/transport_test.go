// Copyright (c) 2026 Relay Chat <oss@relay.chat>.
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaychat/relayctl/internal/auth"
	"github.com/relaychat/relayctl/internal/pipeline"
)

func TestRoundTrip(t *testing.T) {
	var gotAuth, gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tr := New(srv.URL, nil)
	tokens := auth.NewProvider(tr)
	tokens.SetPair("tok123", "ref")
	tr.SetTokens(tokens)

	resp, err := tr.RoundTrip(context.Background(), pipeline.Call{
		Method: http.MethodGet,
		Path:   "/rooms",
		Params: map[string]string{"page": "2"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
	assert.Equal(t, "Bearer tok123", gotAuth)
	assert.Equal(t, "/rooms", gotPath)
	assert.Equal(t, "page=2", gotQuery)
}

func TestRoundTripNoToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	tr := New(srv.URL, nil)
	_, err := tr.RoundTrip(context.Background(), pipeline.Call{Method: http.MethodGet, Path: "/rooms"})
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestRoundTripRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tr := New(srv.URL, nil)
	resp, err := tr.RoundTrip(context.Background(), pipeline.Call{Method: http.MethodGet, Path: "/rooms"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusTooManyRequests, resp.Status)
	assert.Equal(t, 7*time.Second, resp.RetryAfter)
}

func TestRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/refresh", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "old-refresh", body["refresh_token"])
		_ = json.NewEncoder(w).Encode(auth.TokenPair{Access: "new-a", Refresh: "new-r"})
	}))
	defer srv.Close()

	tr := New(srv.URL, nil)
	pair, err := tr.RefreshToken(context.Background(), "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "new-a", pair.Access)
	assert.Equal(t, "new-r", pair.Refresh)
}

func TestRefreshTokenRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tr := New(srv.URL, nil)
	_, err := tr.RefreshToken(context.Background(), "dead")
	assert.ErrorIs(t, err, auth.ErrAuthExpired)
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Duration
	}{
		{name: "empty", in: "", want: 0},
		{name: "seconds", in: "30", want: 30 * time.Second},
		{name: "zero seconds", in: "0", want: 0},
		{name: "negative clamped", in: "-5", want: 0},
		{name: "garbage", in: "soon", want: 0},
		{name: "past http date", in: "Mon, 02 Jan 2006 15:04:05 GMT", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseRetryAfter(tt.in))
		})
	}
}

func TestParseRetryAfterFutureDate(t *testing.T) {
	at := time.Now().Add(10 * time.Second).UTC()
	got := parseRetryAfter(at.Format(http.TimeFormat))
	assert.Greater(t, got, 5*time.Second)
	assert.LessOrEqual(t, got, 10*time.Second)
}
