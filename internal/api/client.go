// Copyright (c) 2026 Relay Chat <oss@relay.chat>.
// SPDX-License-Identifier: Apache-2.0

// Package api is the typed Relay client the CLI commands talk to. Every read
// goes through the pipeline and reports whether it was served from cache and
// whether it was stale; mutations invalidate the resources they touched.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/relaychat/relayctl/internal/auth"
	"github.com/relaychat/relayctl/internal/pipeline"
)

type Room struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Topic       string    `json:"topic"`
	MemberCount int       `json:"member_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Profile struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

type Presence struct {
	UserID   string    `json:"user_id"`
	Status   string    `json:"status"`
	LastSeen time.Time `json:"last_seen"`
}

type Message struct {
	ID     string    `json:"id"`
	RoomID string    `json:"room_id"`
	Author string    `json:"author"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

// Meta describes how a read was satisfied, so callers can surface a "may be
// outdated" affordance on stale data.
type Meta struct {
	FromCache bool
	Stale     bool
}

// Client wraps the pipeline with typed accessors.
type Client struct {
	pipe   *pipeline.Pipeline
	tokens *auth.Provider
}

func NewClient(pipe *pipeline.Pipeline, tokens *auth.Provider) *Client {
	return &Client{pipe: pipe, tokens: tokens}
}

// Pipeline exposes the underlying pipeline, for preload and cache commands.
func (c *Client) Pipeline() *pipeline.Pipeline { return c.pipe }

func (c *Client) Rooms(ctx context.Context, bypass bool) ([]Room, Meta, error) {
	var rooms []Room
	meta, err := c.get(ctx, "/rooms", nil, bypass, &rooms)
	return rooms, meta, err
}

func (c *Client) Room(ctx context.Context, id string, bypass bool) (Room, Meta, error) {
	var room Room
	meta, err := c.get(ctx, "/rooms/"+id, nil, bypass, &room)
	return room, meta, err
}

func (c *Client) Messages(ctx context.Context, roomID string, limit int, bypass bool) ([]Message, Meta, error) {
	params := map[string]string{"limit": fmt.Sprintf("%d", limit)}
	var msgs []Message
	meta, err := c.get(ctx, "/rooms/"+roomID+"/messages", params, bypass, &msgs)
	return msgs, meta, err
}

func (c *Client) Profile(ctx context.Context, bypass bool) (Profile, Meta, error) {
	var profile Profile
	meta, err := c.get(ctx, "/profile", nil, bypass, &profile)
	return profile, meta, err
}

func (c *Client) Presence(ctx context.Context, roomID string, bypass bool) ([]Presence, Meta, error) {
	var ps []Presence
	meta, err := c.get(ctx, "/presence/"+roomID, nil, bypass, &ps)
	return ps, meta, err
}

func (c *Client) UnreadCounts(ctx context.Context, bypass bool) (map[string]int, Meta, error) {
	counts := map[string]int{}
	meta, err := c.get(ctx, "/counts", nil, bypass, &counts)
	return counts, meta, err
}

// Raw fetches a path without decoding, for --query drilling.
func (c *Client) Raw(ctx context.Context, path string, bypass bool) (json.RawMessage, Meta, error) {
	res, err := c.pipe.Do(ctx, pipeline.Call{Method: http.MethodGet, Path: path, Bypass: bypass})
	if err != nil {
		return nil, Meta{}, err
	}
	return res.Data, Meta{FromCache: res.FromCache, Stale: res.Stale}, nil
}

// CreateRoom posts a new room and invalidates the cached room list.
func (c *Client) CreateRoom(ctx context.Context, name, topic string) (Room, error) {
	body, _ := json.Marshal(map[string]string{"name": name, "topic": topic})
	res, err := c.pipe.Do(ctx, pipeline.Call{Method: http.MethodPost, Path: "/rooms", Body: body})
	if err != nil {
		return Room{}, err
	}
	c.pipe.Invalidate(regexp.MustCompile(`^/rooms`))

	var room Room
	if err := json.Unmarshal(res.Data, &room); err != nil {
		return Room{}, fmt.Errorf("failed to decode room: %w", err)
	}
	return room, nil
}

// SendMessage posts to a room and invalidates that room's cached resources.
func (c *Client) SendMessage(ctx context.Context, roomID, text string) error {
	body, _ := json.Marshal(map[string]string{"text": text})
	path := "/rooms/" + roomID + "/messages"
	if _, err := c.pipe.Do(ctx, pipeline.Call{Method: http.MethodPost, Path: path, Body: body}); err != nil {
		return err
	}
	c.pipe.Invalidate(regexp.MustCompile("^" + regexp.QuoteMeta("/rooms/"+roomID)))
	return nil
}

// Login exchanges credentials for a token pair and installs it.
func (c *Client) Login(ctx context.Context, handle, password string) error {
	body, _ := json.Marshal(map[string]string{"handle": handle, "password": password})
	res, err := c.pipe.Do(ctx, pipeline.Call{Method: http.MethodPost, Path: "/auth/login", Body: body})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	var pair auth.TokenPair
	if err := json.Unmarshal(res.Data, &pair); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}
	c.tokens.SetPair(pair.Access, pair.Refresh)
	return nil
}

// Register creates an account and installs the issued token pair, leaving
// the caller signed in.
func (c *Client) Register(ctx context.Context, handle, password string) error {
	body, _ := json.Marshal(map[string]string{"handle": handle, "password": password})
	res, err := c.pipe.Do(ctx, pipeline.Call{Method: http.MethodPost, Path: "/auth/register", Body: body})
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	var pair auth.TokenPair
	if err := json.Unmarshal(res.Data, &pair); err != nil {
		return fmt.Errorf("failed to decode registration response: %w", err)
	}
	c.tokens.SetPair(pair.Access, pair.Refresh)
	return nil
}

// Logout ends the session: best-effort server revoke, then local teardown of
// both the credential pair and the entire cache.
func (c *Client) Logout(ctx context.Context) {
	_, _ = c.pipe.Do(ctx, pipeline.Call{Method: http.MethodPost, Path: "/auth/logout"})
	c.tokens.Clear()
	c.pipe.ClearAll()
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, bypass bool, out any) (Meta, error) {
	res, err := c.pipe.Do(ctx, pipeline.Call{
		Method: http.MethodGet,
		Path:   path,
		Params: params,
		Bypass: bypass,
	})
	if err != nil {
		return Meta{}, err
	}
	if err := json.Unmarshal(res.Data, out); err != nil {
		return Meta{}, fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return Meta{FromCache: res.FromCache, Stale: res.Stale}, nil
}
