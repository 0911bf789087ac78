// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/argon2"
)

// derivationContext is the BLAKE3 key-derivation context string. It is
// part of the key format: changing it changes every answer token.
const derivationContext = "bureau crossword 2026-01-15 answer signing key"

// derivationSalt is the fixed argon2id salt. The answer itself is the
// only secret; a fixed salt keeps derivation reproducible offline.
var derivationSalt = []byte("bureau-crossword-answer-v1")

// DerivationParams are the argon2id cost parameters.
type DerivationParams struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultDerivation is the argon2id cost used by the CLI and the
// reference puzzles.
var DefaultDerivation = DerivationParams{Time: 1, Memory: 64 * 1024, Threads: 4}

// Generate creates a fresh random keypair, used for solver tokens and
// account keys.
func Generate() (Token, ed25519.PrivateKey, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Token{}, nil, fmt.Errorf("generating Ed25519 keypair: %w", err)
	}
	t, err := FromPublicKey(public)
	if err != nil {
		return Token{}, nil, err
	}
	return t, private, nil
}

// NormalizeAnswer lowercases the answer and collapses whitespace.
func NormalizeAnswer(answer string) string {
	return strings.Join(strings.Fields(strings.ToLower(answer)), " ")
}

// DeriveFromAnswer derives the answer keypair for a crossword solution
// with DefaultDerivation.
func DeriveFromAnswer(answer string) (Token, ed25519.PrivateKey, error) {
	return DeriveFromAnswerWith(answer, DefaultDerivation)
}

// DeriveFromAnswerWith derives the answer keypair with explicit argon2id
// parameters. The same answer and parameters always yield the same
// keypair.
func DeriveFromAnswerWith(answer string, params DerivationParams) (Token, ed25519.PrivateKey, error) {
	normalized := NormalizeAnswer(answer)
	if normalized == "" {
		return Token{}, nil, fmt.Errorf("token: answer is empty")
	}
	if params.Time == 0 || params.Memory == 0 || params.Threads == 0 {
		return Token{}, nil, fmt.Errorf("token: derivation parameters must be positive: %+v", params)
	}

	stretched := argon2.IDKey([]byte(normalized), derivationSalt, params.Time, params.Memory, params.Threads, 32)

	seed := make([]byte, ed25519.SeedSize)
	blake3.DeriveKey(derivationContext, stretched, seed)

	private := ed25519.NewKeyFromSeed(seed)
	clear(seed)
	clear(stretched)

	t, err := FromPublicKey(private.Public().(ed25519.PublicKey))
	if err != nil {
		return Token{}, nil, err
	}
	return t, private, nil
}
