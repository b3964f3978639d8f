// Copyright (c) 2026 Relay Chat <oss@relay.chat>.
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"
	"time"
)

// RateLimitedError is surfaced only when the server said slow down and no
// cached fallback existed. It carries the end of the cooldown window.
type RateLimitedError struct {
	Until time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited until %s", e.Until.Format(time.RFC3339))
}

// StatusError is a non-2xx response that the pipeline has no recovery for.
// It passes through unchanged; the pipeline does not retry arbitrary
// failures.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned status %d", e.Status)
}
