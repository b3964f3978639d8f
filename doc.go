// Copyright © 2026 Relay Chat oss@relay.chat
// SPDX-License-Identifier: Apache-2.0

// relayctl is the main package for the relayctl command line tool. It wires
// the CLI, delegates to internal packages, and serves as the entry point.
package main
