// Copyright (c) 2026 Relay Chat <oss@relay.chat>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/relaychat/relayctl/internal/meta"
)

func ProfileCommandAction(ctx context.Context, cmd *cli.Command) error {
	client, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	if cmd.String("query") != "" || cmd.Bool("json") {
		raw, m, err := client.Raw(ctx, "/profile", cmd.Bool("bypass"))
		if err != nil {
			return err
		}
		StaleNotice(m)
		Emit(cmd, raw)
		return nil
	}

	profile, m, err := client.Profile(ctx, cmd.Bool("bypass"))
	if err != nil {
		return err
	}
	StaleNotice(m)

	fmt.Printf("%s (@%s)\n%s\n", profile.DisplayName, profile.Handle, profile.Email)
	return nil
}

func ProfileCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "profile",
		Usage:     "show the signed-in profile",
		UsageText: `relayctl profile [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags:  NewGlobalFlags(),
		Action: ProfileCommandAction,
	}
}
