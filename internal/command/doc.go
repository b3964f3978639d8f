// Copyright © 2026 Relay Chat oss@relay.chat
// SPDX-License-Identifier: Apache-2.0

// Package command builds the relayctl CLI: one builder per subcommand, a
// shared flag set, and the wiring that assembles the cache, auth, and
// pipeline stack behind the api client.
package command
