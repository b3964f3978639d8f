// Copyright © 2026 Relay Chat oss@relay.chat
// SPDX-License-Identifier: Apache-2.0
package command

import (
	"context"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/relaychat/relayctl/internal/config"
	"github.com/relaychat/relayctl/internal/meta"
)

func InitApp(ctx context.Context, args []string) (*cli.Command, error) {
	cfg, _ := config.Load()
	meta := meta.Meta{
		Args:    args,
		Config:  cfg,
		Context: ctx,
	}

	app := &cli.Command{
		Name:  "relayctl",
		Usage: "Relay chat from the command line",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "version",
				Aliases:     []string{"v"},
				Usage:       "relayctl version info",
				HideDefault: true,
			},
		},
	}

	app.Commands = append(app.Commands,
		CacheCommandBuilder(app, meta),
		CountsCommandBuilder(app, meta),
		LoginCommandBuilder(app, meta),
		LogoutCommandBuilder(app, meta),
		MessagesCommandBuilder(app, meta),
		PreloadCommandBuilder(app, meta),
		PresenceCommandBuilder(app, meta),
		ProfileCommandBuilder(app, meta),
		RoomCommandBuilder(app, meta),
		RoomsCommandBuilder(app, meta),
	)

	// Make sure flags are sorted for the --help text.
	for _, cmd := range app.Commands {
		sort.Slice(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
	}

	return app, nil
}
