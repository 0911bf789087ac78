// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/crossword/cmd/crossword/cli"
	"github.com/bureau-foundation/crossword/lib/config"
	"github.com/bureau-foundation/crossword/lib/version"
)

func root() *cli.Command {
	return &cli.Command{
		Name: "crossword",
		Description: `Crossword escrow client.

Puzzles are keyed by the token derived from their answer. Solving
proves knowledge of the answer and names a fresh token; only that token
can later claim the reward.`,
		Subcommands: []*cli.Command{
			keygenCommand(),
			deriveCommand(),
			createCommand(),
			solveCommand(),
			claimCommand(),
			inspectCommand(),
			balanceCommand(),
			statusCommand(),
			versionCommand(),
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Run: func(context.Context, []string) error {
			fmt.Println(version.Full())
			return nil
		},
	}
}

// connection holds the flags every command that talks to the service
// shares.
type connection struct {
	socket string
}

func (c *connection) register(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.socket, "socket", "", "service socket (default: paths.socket from $CROSSWORD_CONFIG)")
}

// socketPath resolves --socket, falling back to the config file named
// by CROSSWORD_CONFIG.
func (c *connection) socketPath() (string, error) {
	if c.socket != "" {
		return c.socket, nil
	}
	path := os.Getenv(config.EnvironmentVariable)
	if path == "" {
		return "", errors.New("no service socket: pass --socket or set CROSSWORD_CONFIG")
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return "", fmt.Errorf("loading config: %w", err)
	}
	return cfg.Paths.Socket, nil
}

func newFlagSet(name string) *pflag.FlagSet {
	return pflag.NewFlagSet(name, pflag.ContinueOnError)
}
