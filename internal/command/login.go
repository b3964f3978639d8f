// Copyright (c) 2026 Relay Chat <oss@relay.chat>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/relaychat/relayctl/internal/meta"
)

func LoginCommandAction(ctx context.Context, cmd *cli.Command) error {
	meta := GetMeta(cmd)
	log.Debugf("Executing action for %v", meta.Args[1:])

	handle := cmd.String("handle")
	if handle == "" {
		return fmt.Errorf("a handle is required (--handle)")
	}

	password := cmd.String("password")
	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = string(b)
	}

	client, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("register") {
		if err := client.Register(ctx, handle, password); err != nil {
			return err
		}
		fmt.Printf("Registered and logged in as %s\n", handle)
		return nil
	}

	if err := client.Login(ctx, handle, password); err != nil {
		return err
	}
	fmt.Printf("Logged in as %s\n", handle)
	return nil
}

func LoginCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "login",
		Usage:     "sign in and store a session",
		UsageText: `relayctl login --handle HANDLE [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "handle",
				Usage: "account handle",
			},
			&cli.StringFlag{
				Name:  "password",
				Usage: "account password (prompted when omitted)",
			},
			&cli.BoolFlag{
				Name:        "register",
				Usage:       "create a new account instead of signing in",
				HideDefault: true,
			},
			NewServerFlag(),
		},
		Action: LoginCommandAction,
	}
}

func LogoutCommandAction(ctx context.Context, cmd *cli.Command) error {
	client, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	client.Logout(ctx)
	fmt.Println("Logged out.")
	return nil
}

func LogoutCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "logout",
		Usage:     "end the session and clear all cached data",
		UsageText: `relayctl logout`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags:  []cli.Flag{NewServerFlag()},
		Action: LogoutCommandAction,
	}
}
