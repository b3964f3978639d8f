// Copyright (c) 2026 Relay Chat <oss@relay.chat>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/relaychat/relayctl/internal/store"
)

// Namespace prefixes every persisted key so the shared storage medium can
// hold unrelated data without collisions.
const Namespace = "relayctl:cache:"

// MaxStaleAge is how long a dead entry may linger before a cleanup sweep
// removes it regardless of staleness tolerance.
const MaxStaleAge = 24 * time.Hour

// TTLInfinite marks an entry that never organically expires. It is only
// removed by explicit invalidation or emergency eviction.
const TTLInfinite = time.Duration(math.MaxInt64)

// ErrInvalidTTL is returned by Set for a zero or negative TTL. That is a
// caller bug, not a condition to degrade around.
var ErrInvalidTTL = errors.New("cache: ttl must be positive")

type entry[V any] struct {
	data        V
	expiresAt   time.Time // zero => never expires
	persistedAt time.Time
}

func (e *entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// envelope is the serialized form of an entry in the persistent tier.
type envelope[V any] struct {
	Data        V         `json:"data"`
	ExpiresAt   time.Time `json:"expires_at"`
	PersistedAt time.Time `json:"persisted_at"`
}

// Stats is a read-only snapshot for diagnostics and tests.
type Stats struct {
	Total       int
	Valid       int
	Stale       int
	Expired     int
	Initialized bool
}

// Manager owns the two-tier cache. V is the payload type; the cache never
// inspects it beyond (de)serializing for the persistent tier.
type Manager[V any] struct {
	mu          sync.Mutex
	entries     map[string]*entry[V]
	backing     store.Store       // nil => memory-only
	persist     func(string) bool // which keys go to the persistent tier
	initialized bool

	now func() time.Time
}

// Option configures a Manager.
type Option[V any] func(*Manager[V])

// WithStore attaches the persistent tier. persist decides which keys are
// written through; a nil persist persists nothing.
func WithStore[V any](s store.Store, persist func(key string) bool) Option[V] {
	return func(m *Manager[V]) {
		m.backing = s
		m.persist = persist
	}
}

// NewManager returns an empty memory-only Manager unless WithStore is given.
func NewManager[V any](opts ...Option[V]) *Manager[V] {
	m := &Manager[V]{
		entries: map[string]*entry[V]{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Set writes key, fully replacing any prior entry. The memory tier is written
// unconditionally; keys in the persistent subset are also serialized to the
// backing store. Storage failures trigger an emergency eviction and one
// retry, then degrade to memory-only. They are never returned.
func (m *Manager[V]) Set(key string, data V, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	now := m.now()
	ent := &entry[V]{data: data, persistedAt: now}
	if ttl != TTLInfinite {
		ent.expiresAt = now.Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = ent
	m.mu.Unlock()

	if m.backing == nil || m.persist == nil || !m.persist(key) {
		return nil
	}

	blob, err := json.Marshal(envelope[V]{
		Data:        data,
		ExpiresAt:   ent.expiresAt,
		PersistedAt: ent.persistedAt,
	})
	if err != nil {
		log.WithError(err).Warnf("cache: cannot serialize %s for persistence", key)
		return nil
	}

	if err := m.backing.Set(Namespace+key, blob); err != nil {
		log.WithError(err).Debugf("cache: persist failed for %s, evicting", key)
		m.CleanupStorage()
		if err := m.backing.Set(Namespace+key, blob); err != nil {
			log.WithError(err).Warnf("cache: persist failed for %s, memory-only", key)
		}
	}
	return nil
}

// Get returns the entry's data if unexpired. An expired entry is evicted from
// memory and reported as a miss unless allowStale is set. Callers that need
// to know whether the data is stale use GetWithStale instead.
func (m *Manager[V]) Get(key string, allowStale bool) (V, bool) {
	var zero V

	m.mu.Lock()
	defer m.mu.Unlock()

	ent, ok := m.entries[key]
	if !ok {
		return zero, false
	}
	if ent.expired(m.now()) {
		if !allowStale {
			delete(m.entries, key)
			return zero, false
		}
	}
	return ent.data, true
}

// GetWithStale reports whatever is present for key plus a staleness flag.
// An absent key reports (zero, true, false). This is the primitive the
// request pipeline uses during rate-limit cooldowns.
func (m *Manager[V]) GetWithStale(key string) (data V, isStale bool, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ent, present := m.entries[key]
	if !present {
		var zero V
		return zero, true, false
	}
	return ent.data, ent.expired(m.now()), true
}

// Has reports whether key holds a valid (unexpired) entry.
func (m *Manager[V]) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ent, ok := m.entries[key]
	return ok && !ent.expired(m.now())
}

// HasAny reports whether key holds any entry, stale or not.
func (m *Manager[V]) HasAny(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.entries[key]
	return ok
}

// Delete removes key from both tiers.
func (m *Manager[V]) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()

	m.removePersisted(key)
}

// ClearPattern removes every key matching re from both tiers.
func (m *Manager[V]) ClearPattern(re *regexp.Regexp) {
	m.mu.Lock()
	var victims []string
	for k := range m.entries {
		if re.MatchString(k) {
			victims = append(victims, k)
		}
	}
	for _, k := range victims {
		delete(m.entries, k)
	}
	m.mu.Unlock()

	if m.backing == nil {
		return
	}
	keys, err := m.backing.Keys(Namespace)
	if err != nil {
		log.WithError(err).Warn("cache: cannot enumerate store for pattern clear")
		return
	}
	for _, k := range keys {
		if re.MatchString(k[len(Namespace):]) {
			m.removeStoreKey(k)
		}
	}
}

// Clear empties both tiers. Only keys under the cache namespace are touched
// in the backing store.
func (m *Manager[V]) Clear() {
	m.mu.Lock()
	m.entries = map[string]*entry[V]{}
	m.mu.Unlock()

	if m.backing == nil {
		return
	}
	keys, err := m.backing.Keys(Namespace)
	if err != nil {
		log.WithError(err).Warn("cache: cannot enumerate store for clear")
		return
	}
	for _, k := range keys {
		m.removeStoreKey(k)
	}
}

// Cleanup sweeps out entries written more than MaxStaleAge ago from both
// tiers. Run from a periodic timer, not on the read path.
func (m *Manager[V]) Cleanup() {
	cutoff := m.now().Add(-MaxStaleAge)

	m.mu.Lock()
	var victims []string
	for k, ent := range m.entries {
		if ent.persistedAt.Before(cutoff) {
			victims = append(victims, k)
		}
	}
	for _, k := range victims {
		delete(m.entries, k)
	}
	m.mu.Unlock()

	for _, k := range victims {
		m.removePersisted(k)
	}
	if len(victims) > 0 {
		log.Debugf("cache: cleanup removed %d entries", len(victims))
	}
}

// Janitor runs Cleanup every interval until the returned stop func is called.
func (m *Manager[V]) Janitor(interval time.Duration) (stop func()) {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				m.Cleanup()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}

// CleanupStorage is the emergency valve for quota pressure: it sorts all
// persisted entries by write time and evicts the oldest half. Blunt rather
// than a precise LRU; it only runs when a persistent write has failed.
func (m *Manager[V]) CleanupStorage() {
	if m.backing == nil {
		return
	}

	keys, err := m.backing.Keys(Namespace)
	if err != nil {
		log.WithError(err).Warn("cache: cannot enumerate store for eviction")
		return
	}

	type aged struct {
		key string
		at  time.Time
	}
	entries := make([]aged, 0, len(keys))
	for _, k := range keys {
		blob, ok, err := m.backing.Get(k)
		if err != nil || !ok {
			continue
		}
		var env envelope[V]
		if err := json.Unmarshal(blob, &env); err != nil {
			// Corrupt entry, zero-cost eviction candidate.
			m.removeStoreKey(k)
			continue
		}
		entries = append(entries, aged{key: k, at: env.PersistedAt})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].at.Before(entries[j].at)
	})

	half := (len(entries) + 1) / 2 //nolint:mnd
	for _, e := range entries[:half] {
		m.removeStoreKey(e.key)
	}
	log.Debugf("cache: storage pressure, evicted %d of %d persisted entries", half, len(entries))
}

// LoadPersistent repopulates the memory tier from the backing store. Entries
// whose expiry has already passed come back stale rather than dropped, which
// is what lets a fresh process render instantly from yesterday's data.
// Corrupted entries are deleted from the store, not retried.
func (m *Manager[V]) LoadPersistent() error {
	defer func() {
		m.mu.Lock()
		m.initialized = true
		m.mu.Unlock()
	}()

	if m.backing == nil {
		return nil
	}

	keys, err := m.backing.Keys(Namespace)
	if err != nil {
		return err
	}

	loaded := 0
	for _, k := range keys {
		blob, ok, err := m.backing.Get(k)
		if err != nil || !ok {
			continue
		}
		var env envelope[V]
		if err := json.Unmarshal(blob, &env); err != nil {
			log.Debugf("cache: dropping corrupt persisted entry %s", k)
			m.removeStoreKey(k)
			continue
		}
		m.mu.Lock()
		m.entries[k[len(Namespace):]] = &entry[V]{
			data:        env.Data,
			expiresAt:   env.ExpiresAt,
			persistedAt: env.PersistedAt,
		}
		m.mu.Unlock()
		loaded++
	}
	log.Debugf("cache: restored %d persisted entries", loaded)
	return nil
}

// Stats returns a snapshot of the cache population. Valid entries are
// unexpired; stale ones are expired but still within MaxStaleAge; expired
// ones are sweep candidates.
func (m *Manager[V]) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cutoff := now.Add(-MaxStaleAge)
	s := Stats{Total: len(m.entries), Initialized: m.initialized}
	for _, ent := range m.entries {
		switch {
		case !ent.expired(now):
			s.Valid++
		case ent.persistedAt.After(cutoff):
			s.Stale++
		default:
			s.Expired++
		}
	}
	return s
}

func (m *Manager[V]) removePersisted(key string) {
	m.removeStoreKey(Namespace + key)
}

func (m *Manager[V]) removeStoreKey(nsKey string) {
	if m.backing == nil {
		return
	}
	if err := m.backing.Remove(nsKey); err != nil {
		log.WithError(err).Debugf("cache: failed to remove persisted %s", nsKey)
	}
}
