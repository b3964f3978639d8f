// Copyright (c) 2026 Relay Chat <oss@relay.chat>.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps one file per key inside a base directory. Filenames are the
// base64url encoding of the key, so enumeration can recover the clear key.
type FileStore struct {
	base string
}

// Dir resolves the base storage directory.
// Precedence:
//  1. RELAYCTL_CACHE_DIR, if set and non-empty
//  2. os.UserCacheDir()/relayctl
//
// Returns ("", false) if a base cannot be resolved (treat as disabled).
func Dir() (string, bool) {
	if c, ok := os.LookupEnv("RELAYCTL_CACHE_DIR"); ok && c != "" {
		return c, true
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "relayctl"), true
	}
	return "", false
}

// NewFileStore creates the base directory if needed and returns a store
// rooted there.
func NewFileStore(base string) (*FileStore, error) {
	if err := os.MkdirAll(base, 0o755); err != nil { //nolint:mnd
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{base: base}, nil
}

func (s *FileStore) Get(key string) ([]byte, bool, error) {
	b, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read store entry: %w", err)
	}
	return b, true, nil
}

func (s *FileStore) Set(key string, value []byte) error {
	if err := os.WriteFile(s.path(key), value, os.FileMode(0o600)); err != nil { //nolint:mnd
		return fmt.Errorf("failed to write store entry: %w", err)
	}
	return nil
}

func (s *FileStore) Remove(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove store entry: %w", err)
	}
	return nil
}

func (s *FileStore) Keys(prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list store entries: %w", err)
	}

	var keys []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key, ok := decodeName(e.Name())
		if !ok {
			// Not one of ours.
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *FileStore) Clear() error {
	entries, err := os.ReadDir(s.base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to list store entries: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := decodeName(e.Name()); !ok {
			continue
		}
		if err := os.Remove(filepath.Join(s.base, e.Name())); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to clear store: %w", err)
		}
	}
	return nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.base, encodeName(key))
}

// encodeName maps a clear key to a filesystem-safe filename. Unlike a hash it
// is reversible, which Keys relies on for the startup reload.
func encodeName(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key)) + ".kv"
}

func decodeName(name string) (string, bool) {
	enc, ok := strings.CutSuffix(name, ".kv")
	if !ok {
		return "", false
	}
	b, err := base64.RawURLEncoding.DecodeString(enc)
	if err != nil {
		return "", false
	}
	return string(b), true
}
