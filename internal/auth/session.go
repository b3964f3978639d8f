// Copyright (c) 2026 Relay Chat <oss@relay.chat>.
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SessionPath resolves where the credential pair lives between invocations.
// Precedence:
//  1. RELAYCTL_SESSION, if set and non-empty
//  2. os.UserConfigDir()/relayctl/session.json
//
// Returns ("", false) if a path cannot be resolved.
func SessionPath() (string, bool) {
	if p, ok := os.LookupEnv("RELAYCTL_SESSION"); ok && p != "" {
		return p, true
	}
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "relayctl", "session.json"), true
	}
	return "", false
}

// LoadSession reads a saved pair. A missing file is not an error; it just
// means nobody is logged in.
func LoadSession(path string) (TokenPair, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return TokenPair{}, nil
		}
		return TokenPair{}, fmt.Errorf("failed to read session: %w", err)
	}
	var pair TokenPair
	if err := json.Unmarshal(b, &pair); err != nil {
		return TokenPair{}, fmt.Errorf("failed to parse session: %w", err)
	}
	return pair, nil
}

// SaveSession writes the pair with owner-only permissions. An empty pair
// removes the file instead.
func SaveSession(path string, pair TokenPair) error {
	if pair.Access == "" && pair.Refresh == "" {
		return RemoveSession(path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil { //nolint:mnd
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	b, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}
	if err := os.WriteFile(path, b, os.FileMode(0o600)); err != nil { //nolint:mnd
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// RemoveSession deletes the saved pair, if any.
func RemoveSession(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}
