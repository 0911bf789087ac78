// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/crossword/cmd/crossword/cli"
	"github.com/bureau-foundation/crossword/lib/keystore"
	"github.com/bureau-foundation/crossword/lib/token"
)

type keyResult struct {
	Token token.Token `json:"token"`
	File  string      `json:"file,omitempty"`
	Label string      `json:"label,omitempty"`
}

func keygenCommand() *cli.Command {
	var (
		out            string
		label          string
		passphraseFile string
		workFactor     int
		output         cli.JSONOutput
	)
	return &cli.Command{
		Name:    "keygen",
		Summary: "Generate a passphrase-sealed signing key",
		Description: `Generate an Ed25519 signing key and seal it to a new file.

Account keys sign create calls; the operator binds them to accounts in
the service config. Solver keys are named as the new token when
solving and later sign the claim.`,
		Usage: "crossword keygen --out FILE [flags]",
		Examples: []cli.Example{
			{Description: "Create a solver key", Command: "crossword keygen --out solver.key --label solver"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("keygen")
			flagSet.StringVarP(&out, "out", "o", "", "key file to create (must not exist)")
			flagSet.StringVar(&label, "label", "", "label stored with the key")
			flagSet.StringVar(&passphraseFile, "passphrase-file", "", `read the passphrase from a file ("-" for stdin)`)
			flagSet.IntVar(&workFactor, "work-factor", keystore.DefaultWorkFactor, "scrypt work factor (log2 N)")
			output.Register(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			result, err := runKeygen(out, label, passphraseFile, workFactor, cli.NewCommandLogger(slog.LevelInfo))
			if err != nil {
				return err
			}
			return printKey(&output, os.Stdout, result)
		},
	}
}

func runKeygen(out, label, passphraseFile string, workFactor int, logger *slog.Logger) (keyResult, error) {
	if out == "" {
		return keyResult{}, errors.New("--out is required")
	}
	passphrase, err := readSecret(passphraseFile, "Passphrase", "passphrase-file", true)
	if err != nil {
		return keyResult{}, err
	}
	defer passphrase.Close()

	publicToken, privateKey, err := token.Generate()
	if err != nil {
		return keyResult{}, err
	}
	defer clear(privateKey)

	err = keystore.WriteFile(out, privateKey, passphrase, keystore.Options{
		WorkFactor: workFactor,
		Label:      label,
	})
	if err != nil {
		return keyResult{}, err
	}
	logger.Info("key file written", "file", out, "token", publicToken.String())
	return keyResult{Token: publicToken, File: out, Label: label}, nil
}

func deriveCommand() *cli.Command {
	var (
		answerFile string
		output     cli.JSONOutput
	)
	return &cli.Command{
		Name:    "derive",
		Summary: "Print the puzzle token for an answer",
		Description: `Derive the answer token for a crossword solution.

The answer is lowercased and its whitespace collapsed before
derivation, so "Near Protocol" and "near  protocol" give the same
token. The token is the puzzle's registry key.`,
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("derive")
			flagSet.StringVar(&answerFile, "answer-file", "", `read the answer from a file ("-" for stdin)`)
			output.Register(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			answerToken, privateKey, err := answerKey(answerFile)
			if err != nil {
				return err
			}
			clear(privateKey)
			return printKey(&output, os.Stdout, keyResult{Token: answerToken})
		},
	}
}

func printKey(output *cli.JSONOutput, w io.Writer, result keyResult) error {
	if done, err := output.Emit(result); done {
		return err
	}
	_, err := fmt.Fprintln(w, result.Token)
	return err
}
