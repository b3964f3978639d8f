// Copyright (c) 2026 Relay Chat <oss@relay.chat>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"sort"
	"strings"
)

// Key builds the canonical cache key for an endpoint and its parameters.
// Params are sorted by name before concatenation, so equivalent parameter
// sets always collide on the same key regardless of caller ordering. An
// endpoint with no params keys on the endpoint alone.
func Key(endpoint string, params map[string]string) string {
	if len(params) == 0 {
		return endpoint
	}

	names := make([]string, 0, len(params))
	for n := range params {
		names = append(names, n)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(endpoint)
	b.WriteByte('?')
	for i, n := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(n)
		b.WriteByte('=')
		b.WriteString(params[n])
	}
	return b.String()
}
