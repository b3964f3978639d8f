// Copyright (c) 2026 Relay Chat <oss@relay.chat>.
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"sync"
	"time"
)

// DefaultCooldown is used when a 429 carries no Retry-After hint.
const DefaultCooldown = 30 * time.Second

// RateLimitState is the process-wide cooldown window. Construct one per
// process and share it by reference; a second call arriving while the window
// is open must observe the first call's cooldown rather than re-tripping it.
type RateLimitState struct {
	mu    sync.Mutex
	until time.Time
}

// NewRateLimitState returns a state that is not cooling down.
func NewRateLimitState() *RateLimitState {
	return &RateLimitState{}
}

// Active reports whether the cooldown window is open at now.
func (s *RateLimitState) Active(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Before(s.until)
}

// Until returns the current cooldown end, zero when never tripped.
func (s *RateLimitState) Until() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.until
}

// Trip opens the cooldown window through until. A shorter window never
// truncates a longer one already in effect.
func (s *RateLimitState) Trip(until time.Time) {
	s.mu.Lock()
	if until.After(s.until) {
		s.until = until
	}
	s.mu.Unlock()
}
