// Copyright (c) 2026 Relay Chat <oss@relay.chat>.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"strings"
	"sync"
)

// MemStore is a map-backed Store. With a non-zero Limit it refuses new keys
// once full, returning ErrQuotaExceeded the way a browser local-storage quota
// or a full disk would. Used as the degraded fallback when no durable
// directory can be resolved, and by tests to simulate quota pressure.
type MemStore struct {
	mu    sync.Mutex
	data  map[string][]byte
	limit int
}

// NewMemStore returns an empty MemStore. limit <= 0 means unbounded.
func NewMemStore(limit int) *MemStore {
	return &MemStore{data: map[string][]byte{}, limit: limit}
}

func (s *MemStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	buf := make([]byte, len(v))
	copy(buf, v)
	return buf, true, nil
}

func (s *MemStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; !exists && s.limit > 0 && len(s.data) >= s.limit {
		return ErrQuotaExceeded
	}
	buf := make([]byte, len(value))
	copy(buf, value)
	s.data[key] = buf
	return nil
}

func (s *MemStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

func (s *MemStore) Keys(prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *MemStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = map[string][]byte{}
	return nil
}

// Len reports the number of stored keys.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.data)
}
