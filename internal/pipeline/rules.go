// Copyright (c) 2026 Relay Chat <oss@relay.chat>.
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"strings"
	"time"
)

// MatchKind controls how a rule pattern is compared to a call path.
type MatchKind string

const (
	MatchExact  MatchKind = "exact"
	MatchPrefix MatchKind = "prefix"
)

// Rule declares cacheability for one endpoint pattern.
type Rule struct {
	Pattern    string
	Match      MatchKind
	TTL        time.Duration
	Persistent bool
}

// Rules is the static endpoint-pattern table consulted by both pipeline
// stages. First match wins, so exact rules go before their prefix cousins.
type Rules []Rule

// DefaultRules covers the Relay API surface. Durable, slow-moving resources
// (profile, room list) are persisted for cold starts; high-churn endpoints
// (presence, unread counts) stay memory-only so restarts do not resurrect
// them.
func DefaultRules() Rules {
	return Rules{
		{Pattern: "/profile", Match: MatchExact, TTL: time.Hour, Persistent: true},
		{Pattern: "/rooms", Match: MatchExact, TTL: 2 * time.Minute, Persistent: true},
		{Pattern: "/rooms/", Match: MatchPrefix, TTL: 2 * time.Minute, Persistent: true},
		{Pattern: "/users/", Match: MatchPrefix, TTL: 10 * time.Minute, Persistent: true},
		{Pattern: "/presence", Match: MatchPrefix, TTL: 15 * time.Second},
		{Pattern: "/counts", Match: MatchExact, TTL: 10 * time.Second},
	}
}

// Find returns the first rule matching path.
func (rs Rules) Find(path string) (Rule, bool) {
	for _, r := range rs {
		switch r.Match {
		case MatchPrefix:
			if strings.HasPrefix(path, r.Pattern) {
				return r, true
			}
		default:
			if path == r.Pattern {
				return r, true
			}
		}
	}
	return Rule{}, false
}

// PersistKey reports whether a cache key belongs to the persistent subset.
// Keys carry an optional "?params" suffix that is not part of the path.
func (rs Rules) PersistKey(key string) bool {
	path := key
	if i := strings.IndexByte(key, '?'); i >= 0 {
		path = key[:i]
	}
	r, ok := rs.Find(path)
	return ok && r.Persistent
}

// OverrideTTL replaces the TTL of the rule with the given pattern, if any.
// Lets relayctl.yaml tune expiry without recompiling.
func (rs Rules) OverrideTTL(pattern string, ttl time.Duration) {
	for i := range rs {
		if rs[i].Pattern == pattern {
			rs[i].TTL = ttl
			return
		}
	}
}
