// Copyright (c) 2026 Relay Chat <oss@relay.chat>.
// SPDX-License-Identifier: Apache-2.0

package store

import "errors"

// ErrQuotaExceeded is returned by Set when the store cannot accept any more
// data. The cache treats it as pressure to evict, never as a request failure.
var ErrQuotaExceeded = errors.New("store: quota exceeded")

// Store is a flat key/value byte store. Keys are opaque strings; callers
// namespace them with a prefix and use Keys to enumerate that namespace.
type Store interface {
	// Get returns the stored value and whether the key was present.
	Get(key string) ([]byte, bool, error)

	// Set stores value under key, replacing any prior value.
	Set(key string, value []byte) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error

	// Keys lists all stored keys that begin with prefix.
	Keys(prefix string) ([]string, error)

	// Clear removes everything in the store.
	Clear() error
}
