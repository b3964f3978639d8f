// Copyright (c) 2026 Relay Chat <oss@relay.chat>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/relaychat/relayctl/internal/meta"
)

func RoomsCommandAction(ctx context.Context, cmd *cli.Command) error {
	meta := GetMeta(cmd)
	log.Debugf("Executing action for %v", meta.Args[1:])

	client, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	if cmd.String("query") != "" || cmd.Bool("json") {
		raw, m, err := client.Raw(ctx, "/rooms", cmd.Bool("bypass"))
		if err != nil {
			return err
		}
		StaleNotice(m)
		Emit(cmd, raw)
		return nil
	}

	rooms, m, err := client.Rooms(ctx, cmd.Bool("bypass"))
	if err != nil {
		return err
	}
	StaleNotice(m)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMEMBERS\tUPDATED")
	for _, r := range rooms {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.ID, r.Name, r.MemberCount, humanize.Time(r.UpdatedAt))
	}
	return w.Flush()
}

func RoomsCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "rooms",
		Usage:     "list joined rooms",
		UsageText: `relayctl rooms [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: NewGlobalFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			return RoomsCommandAction(ctx, c)
		},
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "create a room",
				UsageText: `relayctl rooms create --name NAME [--topic TOPIC]`,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "room name"},
					&cli.StringFlag{Name: "topic", Usage: "room topic"},
					NewServerFlag(),
				},
				Action: CreateRoomCommandAction,
			},
		},
	}
}

func RoomCommandAction(ctx context.Context, cmd *cli.Command) error {
	roomID := cmd.Args().First()
	if roomID == "" {
		return fmt.Errorf("a room id is required")
	}

	client, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	if cmd.String("query") != "" || cmd.Bool("json") {
		raw, m, err := client.Raw(ctx, "/rooms/"+roomID, cmd.Bool("bypass"))
		if err != nil {
			return err
		}
		StaleNotice(m)
		Emit(cmd, raw)
		return nil
	}

	room, m, err := client.Room(ctx, roomID, cmd.Bool("bypass"))
	if err != nil {
		return err
	}
	StaleNotice(m)

	fmt.Printf("%s (%s)\n", room.Name, room.ID)
	if room.Topic != "" {
		fmt.Println(room.Topic)
	}
	fmt.Printf("%d members, updated %s\n", room.MemberCount, humanize.Time(room.UpdatedAt))
	return nil
}

func RoomCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "room",
		Usage:     "show one room",
		UsageText: `relayctl room ROOM [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags:  NewGlobalFlags(),
		Action: RoomCommandAction,
	}
}

func CreateRoomCommandAction(ctx context.Context, cmd *cli.Command) error {
	name := cmd.String("name")
	if name == "" {
		return fmt.Errorf("a room name is required (--name)")
	}

	client, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	room, err := client.CreateRoom(ctx, name, cmd.String("topic"))
	if err != nil {
		return err
	}
	fmt.Printf("Created room %s (%s)\n", room.Name, room.ID)
	return nil
}
