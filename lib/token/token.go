// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// prefix is the algorithm tag on the text form of a Token.
const prefix = "ed25519:"

// Token is an Ed25519 public key used as an authorization token.
// The zero Token is not a valid credential.
type Token [ed25519.PublicKeySize]byte

// ErrInvalidToken is returned when parsing a malformed token string.
var ErrInvalidToken = errors.New("token: invalid authorization token")

// FromPublicKey converts an Ed25519 public key into a Token.
func FromPublicKey(publicKey ed25519.PublicKey) (Token, error) {
	var t Token
	if len(publicKey) != ed25519.PublicKeySize {
		return t, fmt.Errorf("%w: public key has %d bytes, want %d", ErrInvalidToken, len(publicKey), ed25519.PublicKeySize)
	}
	copy(t[:], publicKey)
	return t, nil
}

// Parse decodes the "ed25519:<hex>" text form.
func Parse(s string) (Token, error) {
	var t Token
	encoded, found := strings.CutPrefix(s, prefix)
	if !found {
		return t, fmt.Errorf("%w: %q lacks %q prefix", ErrInvalidToken, s, prefix)
	}
	if len(encoded) != hex.EncodedLen(len(t)) {
		return t, fmt.Errorf("%w: %q has %d hex characters, want %d", ErrInvalidToken, s, len(encoded), hex.EncodedLen(len(t)))
	}
	if _, err := hex.Decode(t[:], []byte(encoded)); err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if t.IsZero() {
		return Token{}, fmt.Errorf("%w: zero key", ErrInvalidToken)
	}
	return t, nil
}

// MustParse is Parse for constants and tests. Panics on error.
func MustParse(s string) Token {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

// PublicKey returns the token as an ed25519.PublicKey for signature
// verification. The returned slice is a copy.
func (t Token) PublicKey() ed25519.PublicKey {
	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(key, t[:])
	return key
}

// IsZero reports whether t is the zero Token.
func (t Token) IsZero() bool {
	return t == Token{}
}

func (t Token) String() string {
	return prefix + hex.EncodeToString(t[:])
}

// MarshalText implements encoding.TextMarshaler. CBOR and JSON both
// carry tokens in their text form.
func (t Token) MarshalText() ([]byte, error) {
	if t.IsZero() {
		return nil, fmt.Errorf("%w: cannot encode zero token", ErrInvalidToken)
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Token) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
