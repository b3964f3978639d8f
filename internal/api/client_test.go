// Copyright (c) 2026 Relay Chat <oss@relay.chat>.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaychat/relayctl/internal/auth"
	"github.com/relaychat/relayctl/internal/cache"
	"github.com/relaychat/relayctl/internal/pipeline"
)

// fakeTransport routes calls to per-path handlers.
type fakeTransport struct {
	calls    atomic.Int32
	handlers map[string]func(call pipeline.Call) *pipeline.Response
}

func (f *fakeTransport) RoundTrip(ctx context.Context, call pipeline.Call) (*pipeline.Response, error) {
	f.calls.Add(1)
	if h, ok := f.handlers[call.Path]; ok {
		return h(call), nil
	}
	return &pipeline.Response{Status: http.StatusNotFound}, nil
}

type nopRefresher struct{}

func (nopRefresher) RefreshToken(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	return auth.TokenPair{}, auth.ErrAuthExpired
}

func newTestClient(ft *fakeTransport) (*Client, *auth.Provider) {
	tokens := auth.NewProvider(nopRefresher{})
	tokens.SetPair("a", "r")
	pipe := pipeline.New(ft, cache.NewManager[json.RawMessage](), tokens, pipeline.DefaultRules(), pipeline.NewRateLimitState())
	return NewClient(pipe, tokens), tokens
}

func okJSON(v any) *pipeline.Response {
	b, _ := json.Marshal(v)
	return &pipeline.Response{Status: http.StatusOK, Body: b}
}

func TestRoomsDecodesAndCaches(t *testing.T) {
	ft := &fakeTransport{handlers: map[string]func(pipeline.Call) *pipeline.Response{
		"/rooms": func(pipeline.Call) *pipeline.Response {
			return okJSON([]Room{{ID: "r1", Name: "general", MemberCount: 12}})
		},
	}}
	client, _ := newTestClient(ft)

	rooms, meta, err := client.Rooms(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "general", rooms[0].Name)
	assert.False(t, meta.FromCache)

	rooms, meta, err = client.Rooms(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.True(t, meta.FromCache)
	assert.Equal(t, int32(1), ft.calls.Load())
}

func TestCreateRoomInvalidatesList(t *testing.T) {
	var created atomic.Bool
	ft := &fakeTransport{handlers: map[string]func(pipeline.Call) *pipeline.Response{
		"/rooms": func(call pipeline.Call) *pipeline.Response {
			if call.Method == http.MethodPost {
				created.Store(true)
				return okJSON(Room{ID: "r2", Name: "new-room"})
			}
			if created.Load() {
				return okJSON([]Room{{ID: "r1"}, {ID: "r2"}})
			}
			return okJSON([]Room{{ID: "r1"}})
		},
	}}
	client, _ := newTestClient(ft)

	rooms, _, err := client.Rooms(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, rooms, 1)

	room, err := client.CreateRoom(context.Background(), "new-room", "")
	require.NoError(t, err)
	assert.Equal(t, "r2", room.ID)

	// The cached list was invalidated, so this refetches.
	rooms, meta, err := client.Rooms(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, rooms, 2)
	assert.False(t, meta.FromCache)
}

func TestSendMessageInvalidatesRoom(t *testing.T) {
	ft := &fakeTransport{handlers: map[string]func(pipeline.Call) *pipeline.Response{
		"/rooms/r1/messages": func(call pipeline.Call) *pipeline.Response {
			if call.Method == http.MethodPost {
				return okJSON(Message{ID: "m2"})
			}
			return okJSON([]Message{{ID: "m1", Text: "hi"}})
		},
		"/rooms/r1": func(pipeline.Call) *pipeline.Response {
			return okJSON(Room{ID: "r1"})
		},
	}}
	client, _ := newTestClient(ft)

	_, _, err := client.Messages(context.Background(), "r1", 50, false)
	require.NoError(t, err)
	require.NoError(t, client.SendMessage(context.Background(), "r1", "hello"))

	key := cache.Key("/rooms/r1/messages", map[string]string{"limit": "50"})
	assert.False(t, client.Pipeline().Cache().HasAny(key), "room resources must be invalidated after a send")
}

func TestLoginInstallsPair(t *testing.T) {
	ft := &fakeTransport{handlers: map[string]func(pipeline.Call) *pipeline.Response{
		"/auth/login": func(call pipeline.Call) *pipeline.Response {
			var creds map[string]string
			_ = json.Unmarshal(call.Body, &creds)
			if creds["password"] != "hunter2" {
				return &pipeline.Response{Status: http.StatusUnauthorized}
			}
			return okJSON(auth.TokenPair{Access: "fresh-a", Refresh: "fresh-r"})
		},
	}}
	client, tokens := newTestClient(ft)
	tokens.Clear()

	// Wrong password while logged out surfaces the 401 as-is; there is no
	// session to refresh.
	err := client.Login(context.Background(), "ada", "wrong")
	require.Error(t, err)
	var se *pipeline.StatusError
	assert.ErrorAs(t, err, &se)

	require.NoError(t, client.Login(context.Background(), "ada", "hunter2"))
	assert.Equal(t, "fresh-a", tokens.AccessToken())
}

func TestRegisterInstallsPair(t *testing.T) {
	ft := &fakeTransport{handlers: map[string]func(pipeline.Call) *pipeline.Response{
		"/auth/register": func(call pipeline.Call) *pipeline.Response {
			return okJSON(auth.TokenPair{Access: "reg-a", Refresh: "reg-r"})
		},
	}}
	client, tokens := newTestClient(ft)
	tokens.Clear()

	require.NoError(t, client.Register(context.Background(), "ada", "hunter2"))
	assert.Equal(t, "reg-a", tokens.AccessToken())
}

func TestLogoutTearsDownEverything(t *testing.T) {
	ft := &fakeTransport{handlers: map[string]func(pipeline.Call) *pipeline.Response{
		"/rooms":       func(pipeline.Call) *pipeline.Response { return okJSON([]Room{{ID: "r1"}}) },
		"/auth/logout": func(pipeline.Call) *pipeline.Response { return &pipeline.Response{Status: http.StatusNoContent} },
	}}
	client, tokens := newTestClient(ft)

	_, _, err := client.Rooms(context.Background(), false)
	require.NoError(t, err)
	require.True(t, client.Pipeline().Cache().HasAny("/rooms"))

	client.Logout(context.Background())

	assert.Empty(t, tokens.AccessToken())
	assert.False(t, client.Pipeline().Cache().HasAny("/rooms"))
	assert.Equal(t, 0, client.Pipeline().Cache().Stats().Total)
}
