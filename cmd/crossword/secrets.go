// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/bureau-foundation/crossword/lib/keystore"
	"github.com/bureau-foundation/crossword/lib/secret"
	"github.com/bureau-foundation/crossword/lib/token"
)

// derivation is the answer stretching cost. Tests lower it.
var derivation = token.DefaultDerivation

// readSecret reads a secret from path ("-" for one line of stdin), or
// prompts without echo when path is empty. With confirm, the prompt is
// repeated and both entries must match.
func readSecret(path, prompt, flagName string, confirm bool) (*secret.Buffer, error) {
	if path != "" {
		return secret.ReadFromPath(path)
	}
	descriptor := int(os.Stdin.Fd())
	if !term.IsTerminal(descriptor) {
		return nil, fmt.Errorf("stdin is not a terminal; pass --%s", flagName)
	}

	first, err := promptHidden(descriptor, prompt+": ")
	if err != nil {
		return nil, err
	}
	if !confirm {
		return first, nil
	}
	second, err := promptHidden(descriptor, "Repeat "+prompt+": ")
	if err != nil {
		first.Close()
		return nil, err
	}
	defer second.Close()
	if !first.Equal(second.Bytes()) {
		first.Close()
		return nil, errors.New("entries do not match")
	}
	return first, nil
}

func promptHidden(descriptor int, prompt string) (*secret.Buffer, error) {
	fmt.Fprint(os.Stderr, prompt)
	entered, err := term.ReadPassword(descriptor)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if len(entered) == 0 {
		return nil, errors.New("empty input")
	}
	return secret.NewFromBytes(entered)
}

// answerKey derives the answer keypair from the answer at answerFile,
// or prompts for it.
func answerKey(answerFile string) (token.Token, ed25519.PrivateKey, error) {
	answer, err := readSecret(answerFile, "Answer", "answer-file", false)
	if err != nil {
		return token.Token{}, nil, err
	}
	defer answer.Close()
	return token.DeriveFromAnswerWith(answer.String(), derivation)
}

// unlockKey opens a key file, reading the passphrase from
// passphraseFile or the terminal.
func unlockKey(path, passphraseFile string) (*keystore.Key, error) {
	if path == "" {
		return nil, errors.New("--key is required")
	}
	passphrase, err := readSecret(passphraseFile, "Passphrase for "+path, "passphrase-file", false)
	if err != nil {
		return nil, err
	}
	defer passphrase.Close()
	return keystore.ReadFile(path, passphrase)
}
