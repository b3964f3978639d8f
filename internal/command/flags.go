// Copyright (c) 2026 Relay Chat <oss@relay.chat>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/relaychat/relayctl/internal/config"
)

func init() {
	cfg, _ = config.Load()
}

var (
	cfg config.Type

	bypassFlag *cli.BoolFlag = &cli.BoolFlag{
		Name:        "bypass",
		Aliases:     []string{"b"},
		Usage:       "skip the cache for this call (the result is still cached)",
		HideDefault: true,
	}

	jsonFlag *cli.BoolFlag = &cli.BoolFlag{
		Name:        "json",
		Usage:       "emit raw JSON",
		HideDefault: true,
	}

	queryFlag *cli.StringFlag = &cli.StringFlag{
		Name:    "query",
		Aliases: []string{"q"},
		Usage:   "gjson path to drill into the response payload",
	}
)

// NewServerFlag resolves the API address from --server, RELAY_SERVER, or
// the server key in relayctl.yaml, in that order.
func NewServerFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Relay API base URL",
		Value:   "https://api.relay.chat",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("RELAY_SERVER"),
			yaml.YAML("server", altsrc.StringSourcer(cfg.Source)),
		),
	}
}

// NewGlobalFlags returns the flags shared by every fetch command.
func NewGlobalFlags() []cli.Flag {
	return []cli.Flag{
		NewServerFlag(),
		bypassFlag,
		jsonFlag,
		queryFlag,
	}
}
