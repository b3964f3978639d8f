// Copyright (c) 2026 Relay Chat <oss@relay.chat>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitApp(t *testing.T) {
	app, err := InitApp(context.Background(), []string{"relayctl", "rooms"})
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, c := range app.Commands {
		names[c.Name] = true
	}
	for _, want := range []string{"login", "logout", "room", "rooms", "messages", "profile", "presence", "counts", "preload", "cache"} {
		assert.True(t, names[want], "missing command %q", want)
	}
}

func TestGetMetaMissing(t *testing.T) {
	app, err := InitApp(context.Background(), []string{"relayctl"})
	require.NoError(t, err)

	// The root command carries no metadata; GetMeta degrades to zero value.
	m := GetMeta(app)
	assert.Nil(t, m.Config.Data)
}

func TestGlobalFlagNames(t *testing.T) {
	var names []string
	for _, f := range NewGlobalFlags() {
		names = append(names, f.Names()[0])
	}
	assert.ElementsMatch(t, []string{"server", "bypass", "json", "query"}, names)
}
