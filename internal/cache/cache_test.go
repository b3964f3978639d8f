// Copyright (c) 2026 Relay Chat <oss@relay.chat>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaychat/relayctl/internal/store"
)

// newClocked returns a manager on a controllable clock.
func newClocked[V any](opts ...Option[V]) (*Manager[V], *time.Time) {
	m := NewManager(opts...)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return m, &now
}

func persistAll(string) bool { return true }

func TestKey(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		params   map[string]string
		want     string
	}{
		{
			name:     "no params keys on endpoint alone",
			endpoint: "/rooms",
			want:     "/rooms",
		},
		{
			name:     "params sorted by name",
			endpoint: "/rooms",
			params:   map[string]string{"b": "2", "a": "1"},
			want:     "/rooms?a=1&b=2",
		},
		{
			name:     "single param",
			endpoint: "/presence/r1",
			params:   map[string]string{"limit": "10"},
			want:     "/presence/r1?limit=10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.endpoint, tt.params))
		})
	}
}

func TestKeyOrderIndependence(t *testing.T) {
	a := Key("/rooms", map[string]string{"a": "1", "b": "2"})
	b := Key("/rooms", map[string]string{"b": "2", "a": "1"})
	assert.Equal(t, a, b)

	c := Key("/rooms", map[string]string{"a": "2", "b": "1"})
	assert.NotEqual(t, a, c, "different parameter sets must not collide")
}

func TestSetGet(t *testing.T) {
	m, _ := newClocked[string]()

	require.NoError(t, m.Set("/rooms", "payload", time.Minute))

	got, ok := m.Get("/rooms", false)
	require.True(t, ok)
	assert.Equal(t, "payload", got)
	assert.True(t, m.Has("/rooms"))
}

func TestSetRejectsBadTTL(t *testing.T) {
	m, _ := newClocked[string]()

	assert.ErrorIs(t, m.Set("k", "v", 0), ErrInvalidTTL)
	assert.ErrorIs(t, m.Set("k", "v", -time.Second), ErrInvalidTTL)
	assert.False(t, m.HasAny("k"))
}

func TestExpiry(t *testing.T) {
	m, now := newClocked[string]()

	require.NoError(t, m.Set("k", "v", time.Minute))
	*now = now.Add(2 * time.Minute)

	// Stale-tolerant read still sees the data, flagged stale.
	got, stale, ok := m.GetWithStale("k")
	require.True(t, ok)
	assert.True(t, stale)
	assert.Equal(t, "v", got)

	assert.False(t, m.Has("k"))
	assert.True(t, m.HasAny("k"))

	// Non-stale-tolerant read misses and evicts.
	_, ok = m.Get("k", false)
	assert.False(t, ok)
	assert.False(t, m.HasAny("k"))
}

func TestGetAllowStale(t *testing.T) {
	m, now := newClocked[string]()

	require.NoError(t, m.Set("k", "v", time.Minute))
	*now = now.Add(2 * time.Minute)

	got, ok := m.Get("k", true)
	require.True(t, ok)
	assert.Equal(t, "v", got)
	// allowStale must not evict.
	assert.True(t, m.HasAny("k"))
}

func TestGetWithStaleAbsent(t *testing.T) {
	m, _ := newClocked[string]()

	_, stale, ok := m.GetWithStale("nope")
	assert.False(t, ok)
	assert.True(t, stale)
}

func TestTTLInfinite(t *testing.T) {
	m, now := newClocked[string]()

	require.NoError(t, m.Set("k", "v", TTLInfinite))
	*now = now.Add(1000 * time.Hour)

	got, stale, ok := m.GetWithStale("k")
	require.True(t, ok)
	assert.False(t, stale)
	assert.Equal(t, "v", got)
}

func TestLastWriteWins(t *testing.T) {
	m, _ := newClocked[string]()

	require.NoError(t, m.Set("k", "first", time.Minute))
	require.NoError(t, m.Set("k", "second", time.Minute))

	got, _ := m.Get("k", false)
	assert.Equal(t, "second", got)
}

func TestDelete(t *testing.T) {
	backing := store.NewMemStore(0)
	m, _ := newClocked(WithStore[string](backing, persistAll))

	require.NoError(t, m.Set("k", "v", time.Minute))
	assert.Equal(t, 1, backing.Len())

	m.Delete("k")
	assert.False(t, m.HasAny("k"))
	assert.Equal(t, 0, backing.Len())
}

func TestClearPattern(t *testing.T) {
	backing := store.NewMemStore(0)
	m, _ := newClocked(WithStore[string](backing, persistAll))

	require.NoError(t, m.Set("/rooms", `[{"id":1}]`, 2*time.Minute))
	require.NoError(t, m.Set("/rooms/r1", "detail", 2*time.Minute))
	require.NoError(t, m.Set("/profile", "me", 2*time.Minute))
	require.True(t, m.Has("/rooms"))

	m.ClearPattern(regexp.MustCompile(`^/rooms`))

	assert.False(t, m.Has("/rooms"))
	assert.False(t, m.HasAny("/rooms/r1"))
	assert.True(t, m.Has("/profile"))
	assert.Equal(t, 1, backing.Len())
}

func TestClear(t *testing.T) {
	backing := store.NewMemStore(0)
	// Unrelated data sharing the medium must survive Clear.
	require.NoError(t, backing.Set("other:thing", []byte("keep")))

	m, _ := newClocked(WithStore[string](backing, persistAll))
	require.NoError(t, m.Set("/rooms", "v", time.Minute))

	m.Clear()

	assert.Equal(t, 0, m.Stats().Total)
	_, ok, err := backing.Get("other:thing")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPersistSubset(t *testing.T) {
	backing := store.NewMemStore(0)
	persist := func(key string) bool { return strings.HasPrefix(key, "/rooms") }
	m, _ := newClocked(WithStore[string](backing, persist))

	require.NoError(t, m.Set("/rooms", "durable", time.Minute))
	require.NoError(t, m.Set("/presence/r1", "ephemeral", time.Minute))

	keys, err := backing.Keys(Namespace)
	require.NoError(t, err)
	assert.Equal(t, []string{Namespace + "/rooms"}, keys)
}

func TestRestartRestoresWithStaleness(t *testing.T) {
	backing := store.NewMemStore(0)

	m1, now1 := newClocked(WithStore[string](backing, persistAll))
	require.NoError(t, m1.Set("/rooms", "rooms", time.Minute))
	require.NoError(t, m1.Set("/profile", "me", time.Hour))

	// Simulated restart 10 minutes later: fresh memory tier, same store.
	m2, now2 := newClocked(WithStore[string](backing, persistAll))
	*now2 = now1.Add(10 * time.Minute)
	require.NoError(t, m2.LoadPersistent())

	got, stale, ok := m2.GetWithStale("/rooms")
	require.True(t, ok)
	assert.True(t, stale, "one-minute entry must come back stale")
	assert.Equal(t, "rooms", got)

	got, stale, ok = m2.GetWithStale("/profile")
	require.True(t, ok)
	assert.False(t, stale, "one-hour entry is still valid")
	assert.Equal(t, "me", got)

	assert.True(t, m2.Stats().Initialized)
}

func TestLoadPersistentDropsCorrupt(t *testing.T) {
	backing := store.NewMemStore(0)
	require.NoError(t, backing.Set(Namespace+"/bad", []byte("{not json")))

	m, _ := newClocked(WithStore[string](backing, persistAll))
	require.NoError(t, m.LoadPersistent())

	assert.False(t, m.HasAny("/bad"))
	_, ok, err := backing.Get(Namespace + "/bad")
	require.NoError(t, err)
	assert.False(t, ok, "corrupt entries are deleted, not retried")
}

func TestCleanup(t *testing.T) {
	m, now := newClocked[string]()

	require.NoError(t, m.Set("old", "v", TTLInfinite))
	*now = now.Add(25 * time.Hour)
	require.NoError(t, m.Set("new", "v", TTLInfinite))

	m.Cleanup()

	assert.False(t, m.HasAny("old"))
	assert.True(t, m.HasAny("new"))
}

func TestJanitorSweepsPeriodically(t *testing.T) {
	m := NewManager[string]()
	require.NoError(t, m.Set("old", "v", TTLInfinite))
	m.mu.Lock()
	m.entries["old"].persistedAt = time.Now().Add(-25 * time.Hour)
	m.mu.Unlock()

	stop := m.Janitor(10 * time.Millisecond)
	defer stop()

	assert.Eventually(t, func() bool {
		return !m.HasAny("old")
	}, time.Second, 10*time.Millisecond)
}

func TestCleanupStorageEvictsOldestHalf(t *testing.T) {
	// Room for 100 envelopes, then the quota slams shut.
	backing := store.NewMemStore(100)
	m, now := newClocked(WithStore[string](backing, persistAll))

	for i := 0; i < 100; i++ {
		require.NoError(t, m.Set(fmt.Sprintf("/rooms/%03d", i), "v", time.Hour))
		*now = now.Add(time.Second)
	}
	require.Equal(t, 100, backing.Len())

	// The 101st write hits the quota, evicts the oldest half, and succeeds
	// on retry. No error ever reaches the caller.
	require.NoError(t, m.Set("/rooms/final", "v", time.Hour))

	assert.Equal(t, 51, backing.Len())

	_, ok, err := backing.Get(Namespace + "/rooms/000")
	require.NoError(t, err)
	assert.False(t, ok, "oldest entry must have been evicted")

	_, ok, err = backing.Get(Namespace + "/rooms/099")
	require.NoError(t, err)
	assert.True(t, ok, "newest entries must survive")

	_, ok, err = backing.Get(Namespace + "/rooms/final")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStats(t *testing.T) {
	m, now := newClocked[string]()

	require.NoError(t, m.Set("valid", "v", time.Hour))
	require.NoError(t, m.Set("stale", "v", time.Minute))
	require.NoError(t, m.Set("dead", "v", time.Minute))
	// Backdate the dead entry past the maximum stale age.
	m.mu.Lock()
	m.entries["dead"].persistedAt = now.Add(-25 * time.Hour)
	m.mu.Unlock()
	*now = now.Add(2 * time.Minute)

	s := m.Stats()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Valid)
	assert.Equal(t, 1, s.Stale)
	assert.Equal(t, 1, s.Expired)
	assert.False(t, s.Initialized)
}

func TestRawMessageRoundTrip(t *testing.T) {
	// The pipeline stores payloads as json.RawMessage; make sure the
	// persistent envelope embeds them as-is.
	backing := store.NewMemStore(0)
	m1, _ := newClocked(WithStore[json.RawMessage](backing, persistAll))

	payload := json.RawMessage(`[{"id":"r1","name":"general"}]`)
	require.NoError(t, m1.Set("/rooms", payload, time.Hour))

	m2, _ := newClocked(WithStore[json.RawMessage](backing, persistAll))
	require.NoError(t, m2.LoadPersistent())

	got, ok := m2.Get("/rooms", false)
	require.True(t, ok)
	assert.JSONEq(t, string(payload), string(got))
}
