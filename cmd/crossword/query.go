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
	"github.com/bureau-foundation/crossword/lib/crossword"
	"github.com/bureau-foundation/crossword/lib/ledger"
	"github.com/bureau-foundation/crossword/lib/service"
	"github.com/bureau-foundation/crossword/lib/token"
)

func inspectCommand() *cli.Command {
	var (
		conn       connection
		answerFile string
		output     cli.JSONOutput
	)
	return &cli.Command{
		Name:    "inspect",
		Summary: "Show a puzzle's registry entry",
		Description: `Show a puzzle's state, reward, and layout.

The puzzle is named by its token, or by its answer with --answer-file.`,
		Usage: "crossword inspect [PUZZLE-TOKEN] [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("inspect")
			conn.register(flagSet)
			flagSet.StringVar(&answerFile, "answer-file", "", `derive the puzzle token from an answer file ("-" for stdin)`)
			output.Register(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			key, err := puzzleArgument(args, answerFile)
			if err != nil {
				return err
			}
			socketPath, err := conn.socketPath()
			if err != nil {
				return err
			}
			var response crossword.PuzzleResponse
			err = service.NewServiceClient(socketPath).Call(ctx, crossword.ActionInspect, map[string]any{
				"puzzle": key,
			}, &response)
			if err != nil {
				return err
			}
			return emitPuzzle(&output, response)
		},
	}
}

func puzzleArgument(args []string, answerFile string) (token.Token, error) {
	switch {
	case len(args) > 1:
		return token.Token{}, fmt.Errorf("unexpected argument %q", args[1])
	case len(args) == 1 && answerFile != "":
		return token.Token{}, errors.New("pass a puzzle token or --answer-file, not both")
	case len(args) == 1:
		return token.Parse(args[0])
	case answerFile != "":
		key, private, err := answerKey(answerFile)
		clear(private)
		return key, err
	default:
		return token.Token{}, errors.New("puzzle token required")
	}
}

func balanceCommand() *cli.Command {
	var (
		conn    connection
		history bool
		output  cli.JSONOutput
	)
	return &cli.Command{
		Name:    "balance",
		Summary: "Show an account balance",
		Usage:   "crossword balance ACCOUNT [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("balance")
			conn.register(flagSet)
			flagSet.BoolVar(&history, "history", false, "include transfers")
			output.Register(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return errors.New("exactly one account required")
			}
			account := ledger.Account(args[0])
			if err := account.Validate(); err != nil {
				return err
			}
			socketPath, err := conn.socketPath()
			if err != nil {
				return err
			}
			var response crossword.BalanceResponse
			err = service.NewServiceClient(socketPath).Call(ctx, crossword.ActionBalance, map[string]any{
				"account": account,
				"history": history,
			}, &response)
			if err != nil {
				return err
			}
			if done, err := output.Emit(response); done {
				return err
			}
			_, err = fmt.Fprint(os.Stdout, renderBalance(response))
			return err
		},
	}
}

func statusCommand() *cli.Command {
	var (
		conn   connection
		output cli.JSONOutput
	)
	return &cli.Command{
		Name:    "status",
		Summary: "Check that the service is up",
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("status")
			conn.register(flagSet)
			output.Register(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			socketPath, err := conn.socketPath()
			if err != nil {
				return err
			}
			var response crossword.StatusResponse
			if err := service.NewServiceClient(socketPath).Call(ctx, crossword.ActionStatus, nil, &response); err != nil {
				return err
			}
			if done, err := output.Emit(response); done {
				return err
			}
			_, err = fmt.Fprint(os.Stdout, renderStatus(response))
			return err
		},
	}
}
