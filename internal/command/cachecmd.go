// Copyright (c) 2026 Relay Chat <oss@relay.chat>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/relaychat/relayctl/internal/meta"
)

func CacheStatsAction(ctx context.Context, cmd *cli.Command) error {
	client, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	s := client.Pipeline().Cache().Stats()
	fmt.Printf("total:       %d\n", s.Total)
	fmt.Printf("valid:       %d\n", s.Valid)
	fmt.Printf("stale:       %d\n", s.Stale)
	fmt.Printf("expired:     %d\n", s.Expired)
	fmt.Printf("initialized: %t\n", s.Initialized)
	return nil
}

func CachePurgeAction(ctx context.Context, cmd *cli.Command) error {
	client, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	client.Pipeline().Cache().Cleanup()
	fmt.Println("Purged entries past their maximum stale age.")
	return nil
}

func CacheClearAction(ctx context.Context, cmd *cli.Command) error {
	client, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	client.Pipeline().ClearAll()
	fmt.Println("Cache cleared.")
	return nil
}

func CacheCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "cache",
		Usage:     "inspect and maintain the response cache",
		UsageText: `relayctl cache (stats|purge|clear)`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "cache population snapshot",
				Flags:  []cli.Flag{NewServerFlag()},
				Action: CacheStatsAction,
			},
			{
				Name:   "purge",
				Usage:  "sweep entries past the maximum stale age",
				Flags:  []cli.Flag{NewServerFlag()},
				Action: CachePurgeAction,
			},
			{
				Name:   "clear",
				Usage:  "drop everything, both tiers",
				Flags:  []cli.Flag{NewServerFlag()},
				Action: CacheClearAction,
			},
		},
	}
}

func PreloadCommandAction(ctx context.Context, cmd *cli.Command) error {
	client, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		paths = []string{"/rooms", "/profile"}
	}
	client.Pipeline().Preload(ctx, paths...)
	fmt.Printf("Preloaded %d endpoints.\n", len(paths))
	return nil
}

func PreloadCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "preload",
		Usage:     "warm the cache for cold-start endpoints",
		UsageText: `relayctl preload [PATH ...]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags:  []cli.Flag{NewServerFlag()},
		Action: PreloadCommandAction,
	}
}
