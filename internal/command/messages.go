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

func MessagesCommandAction(ctx context.Context, cmd *cli.Command) error {
	roomID := cmd.Args().First()
	if roomID == "" {
		return fmt.Errorf("a room id is required")
	}

	client, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	if text := cmd.String("send"); text != "" {
		if err := client.SendMessage(ctx, roomID, text); err != nil {
			return err
		}
		fmt.Println("Sent.")
		return nil
	}

	msgs, m, err := client.Messages(ctx, roomID, int(cmd.Int("limit")), cmd.Bool("bypass"))
	if err != nil {
		return err
	}
	StaleNotice(m)

	for _, msg := range msgs {
		fmt.Printf("[%s] %s: %s\n", humanize.Time(msg.SentAt), msg.Author, msg.Text)
	}
	return nil
}

func MessagesCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "messages",
		Usage:     "read or send room messages",
		UsageText: `relayctl messages ROOM [--send TEXT] [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "number of messages to fetch",
				Value:   50,
			},
			&cli.StringFlag{
				Name:  "send",
				Usage: "send this message instead of reading",
			},
		}, NewGlobalFlags()...),
		Action: MessagesCommandAction,
	}
}
