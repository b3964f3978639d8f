// Copyright (c) 2026 Relay Chat <oss@relay.chat>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/relaychat/relayctl/internal/meta"
)

func PresenceCommandAction(ctx context.Context, cmd *cli.Command) error {
	roomID := cmd.Args().First()
	if roomID == "" {
		return fmt.Errorf("a room id is required")
	}

	client, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	ps, m, err := client.Presence(ctx, roomID, cmd.Bool("bypass"))
	if err != nil {
		return err
	}
	StaleNotice(m)

	for _, p := range ps {
		fmt.Printf("%s\t%s\t(seen %s)\n", p.UserID, p.Status, humanize.Time(p.LastSeen))
	}
	return nil
}

func PresenceCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "presence",
		Usage:     "who is online in a room",
		UsageText: `relayctl presence ROOM [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags:  NewGlobalFlags(),
		Action: PresenceCommandAction,
	}
}

func CountsCommandAction(ctx context.Context, cmd *cli.Command) error {
	client, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	counts, m, err := client.UnreadCounts(ctx, cmd.Bool("bypass"))
	if err != nil {
		return err
	}
	StaleNotice(m)

	for room, n := range counts {
		fmt.Printf("%s\t%d\n", room, n)
	}
	return nil
}

func CountsCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "counts",
		Usage:     "unread message counts per room",
		UsageText: `relayctl counts [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags:  NewGlobalFlags(),
		Action: CountsCommandAction,
	}
}
