// Copyright © 2026 Relay Chat oss@relay.chat
// SPDX-License-Identifier: Apache-2.0

// Package pipeline wraps a Transport with the caching and resilience stages
// every outbound API call goes through: cache short-circuiting on the way
// out, cache write-back on the way in, a process-wide rate-limit cooldown
// that prefers stale data over fresh traffic, and a single refresh-and-retry
// on credential expiry.
package pipeline
