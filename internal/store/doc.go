// Copyright © 2026 Relay Chat oss@relay.chat
// SPDX-License-Identifier: Apache-2.0

// Package store provides the narrow key/value byte storage abstraction the
// cache persists into. It is pure storage: no TTL, no eviction policy, no
// knowledge of what the bytes mean.
package store
