// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/crossword/cmd/crossword/cli"
	"github.com/bureau-foundation/crossword/lib/crossword"
	"github.com/bureau-foundation/crossword/lib/ledger"
	"github.com/bureau-foundation/crossword/lib/service"
	"github.com/bureau-foundation/crossword/lib/token"
)

func createCommand() *cli.Command {
	var (
		conn           connection
		keyFile        string
		passphraseFile string
		puzzlePath     string
		reward         uint64
		answerFile     string
		output         cli.JSONOutput
		flagSet        *pflag.FlagSet
	)
	return &cli.Command{
		Name:    "create",
		Summary: "Fund a new puzzle",
		Description: `Register a puzzle and escrow its reward.

The puzzle is keyed by the token derived from its answer, which is read
from --answer-file or prompted for. The reward moves from the account
bound to --key into escrow. --reward overrides the file's "reward";
one of them is required, and a zero reward is allowed.`,
		Usage: "crossword create --key FILE --puzzle FILE [flags]",
		Examples: []cli.Example{
			{Command: "crossword create --key alice.key --puzzle puzzle.jsonc --reward 100"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet = newFlagSet("create")
			conn.register(flagSet)
			flagSet.StringVar(&keyFile, "key", "", "creator account key file")
			flagSet.StringVar(&passphraseFile, "passphrase-file", "", `read the key passphrase from a file ("-" for stdin)`)
			flagSet.StringVar(&puzzlePath, "puzzle", "", "puzzle layout (JSONC)")
			flagSet.Uint64Var(&reward, "reward", 0, "reward to escrow")
			flagSet.StringVar(&answerFile, "answer-file", "", `read the answer from a file ("-" for stdin)`)
			output.Register(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if puzzlePath == "" {
				return errors.New("--puzzle is required")
			}
			file, err := readPuzzleFile(puzzlePath)
			if err != nil {
				return err
			}
			amount, err := resolveReward(reward, flagSet.Changed("reward"), file)
			if err != nil {
				return err
			}
			socketPath, err := conn.socketPath()
			if err != nil {
				return err
			}

			answerToken, answerPrivate, err := answerKey(answerFile)
			if err != nil {
				return err
			}
			clear(answerPrivate)

			key, err := unlockKey(keyFile, passphraseFile)
			if err != nil {
				return err
			}
			defer key.Close()
			signer := key.PrivateKey()
			defer clear(signer)

			var response crossword.PuzzleResponse
			err = service.NewSigningClient(socketPath, signer, nil).CallSigned(ctx, crossword.ActionCreate, crossword.CreateArgs{
				AnswerToken: answerToken,
				Reward:      amount,
				Metadata:    file.Metadata,
			}, &response)
			if err != nil {
				return err
			}
			cli.NewCommandLogger(slog.LevelInfo).Info("puzzle created",
				"puzzle", answerToken.String(),
				"reward", uint64(amount),
			)
			return emitPuzzle(&output, response)
		},
	}
}

// resolveReward picks --reward when given, else the puzzle file's
// reward.
func resolveReward(flagReward uint64, flagGiven bool, file puzzleFile) (ledger.Amount, error) {
	switch {
	case flagGiven:
		if flagReward > uint64(ledger.MaxAmount) {
			return 0, fmt.Errorf("--reward %d exceeds the maximum %d", flagReward, ledger.MaxAmount)
		}
		return ledger.Amount(flagReward), nil
	case file.Reward != nil:
		return *file.Reward, nil
	default:
		return 0, errors.New("no reward: pass --reward or set \"reward\" in the puzzle file")
	}
}

func solveCommand() *cli.Command {
	var (
		conn           connection
		answerFile     string
		keyFile        string
		passphraseFile string
		newToken       string
		output         cli.JSONOutput
	)
	return &cli.Command{
		Name:    "solve",
		Summary: "Submit a solution",
		Description: `Prove the answer and name the token that may claim the reward.

The call is signed with the key derived from the answer. The new token
is the public token of --key, or --new-token given directly. Only the
first correct solve wins; keep the new token's key to claim.`,
		Usage: "crossword solve (--key FILE | --new-token TOKEN) [flags]",
		Examples: []cli.Example{
			{Description: "Solve with a fresh solver key", Command: "crossword keygen --out solver.key && crossword solve --key solver.key"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("solve")
			conn.register(flagSet)
			flagSet.StringVar(&answerFile, "answer-file", "", `read the answer from a file ("-" for stdin)`)
			flagSet.StringVar(&keyFile, "key", "", "solver key file whose token becomes the claimant")
			flagSet.StringVar(&passphraseFile, "passphrase-file", "", `read the key passphrase from a file ("-" for stdin)`)
			flagSet.StringVar(&newToken, "new-token", "", "claimant token, instead of --key")
			output.Register(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			claimant, err := resolveClaimant(keyFile, passphraseFile, newToken)
			if err != nil {
				return err
			}
			socketPath, err := conn.socketPath()
			if err != nil {
				return err
			}

			_, answerPrivate, err := answerKey(answerFile)
			if err != nil {
				return err
			}
			defer clear(answerPrivate)

			var response crossword.PuzzleResponse
			err = service.NewSigningClient(socketPath, answerPrivate, nil).CallSigned(ctx, crossword.ActionSolve, crossword.SolveArgs{
				NewToken: claimant,
			}, &response)
			if err != nil {
				return err
			}
			return emitPuzzle(&output, response)
		},
	}
}

// resolveClaimant returns the token named by exactly one of --key or
// --new-token.
func resolveClaimant(keyFile, passphraseFile, newToken string) (token.Token, error) {
	switch {
	case keyFile != "" && newToken != "":
		return token.Token{}, errors.New("--key and --new-token are mutually exclusive")
	case newToken != "":
		return token.Parse(newToken)
	case keyFile != "":
		key, err := unlockKey(keyFile, passphraseFile)
		if err != nil {
			return token.Token{}, err
		}
		defer key.Close()
		return key.Token(), nil
	default:
		return token.Token{}, errors.New("one of --key or --new-token is required")
	}
}

func claimCommand() *cli.Command {
	var (
		conn           connection
		keyFile        string
		passphraseFile string
		receiver       string
		memo           string
		output         cli.JSONOutput
	)
	return &cli.Command{
		Name:    "claim",
		Summary: "Collect the reward for a solved puzzle",
		Description: `Pay a solved puzzle's reward to an account.

Signed with the solver key named when solving. The puzzle becomes
Claimed and the memo is stored with it.`,
		Usage: "crossword claim --key FILE --receiver ACCOUNT [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("claim")
			conn.register(flagSet)
			flagSet.StringVar(&keyFile, "key", "", "solver key file")
			flagSet.StringVar(&passphraseFile, "passphrase-file", "", `read the key passphrase from a file ("-" for stdin)`)
			flagSet.StringVar(&receiver, "receiver", "", "account to pay")
			flagSet.StringVar(&memo, "memo", "", "memo stored with the claim")
			output.Register(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			account := ledger.Account(receiver)
			if err := account.Validate(); err != nil {
				return fmt.Errorf("--receiver: %w", err)
			}
			socketPath, err := conn.socketPath()
			if err != nil {
				return err
			}

			key, err := unlockKey(keyFile, passphraseFile)
			if err != nil {
				return err
			}
			defer key.Close()
			signer := key.PrivateKey()
			defer clear(signer)

			var response crossword.PuzzleResponse
			err = service.NewSigningClient(socketPath, signer, nil).CallSigned(ctx, crossword.ActionClaim, crossword.ClaimArgs{
				Receiver: account,
				Memo:     memo,
			}, &response)
			if err != nil {
				return err
			}
			return emitPuzzle(&output, response)
		},
	}
}

func emitPuzzle(output *cli.JSONOutput, response crossword.PuzzleResponse) error {
	if done, err := output.Emit(response); done {
		return err
	}
	_, err := fmt.Fprint(os.Stdout, renderPuzzle(response))
	return err
}
