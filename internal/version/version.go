// Copyright © 2026 Relay Chat oss@relay.chat
// SPDX-License-Identifier: Apache-2.0

package version

// Version is stamped at build time via -ldflags.
var Version = "dev"
