// Copyright © 2026 Relay Chat oss@relay.chat
// SPDX-License-Identifier: Apache-2.0

// Package cache implements the two-tier response cache: a fast in-memory map
// for everything, backed by a store.Store for a configured subset of keys so
// cold starts can render from yesterday's data before the first round trip.
//
// Entries expire by TTL but are kept around for stale-while-revalidate reads;
// staleness is always reported, never hidden. Storage failures degrade the
// cache to memory-only and are logged, never returned to callers.
package cache
