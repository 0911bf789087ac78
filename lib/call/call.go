// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package call

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/crossword/lib/codec"
	"github.com/bureau-foundation/crossword/lib/token"
)

const signatureSize = ed25519.SignatureSize

// MaxClockSkew is how far in the future an envelope's issue time may
// be before it is rejected.
const MaxClockSkew = 30 * time.Second

// DefaultMaxAge is the freshness window used when none is configured.
const DefaultMaxAge = 5 * time.Minute

// Payload is the signed portion of an envelope.
type Payload struct {
	// Operation is the action the caller is invoking.
	Operation string `cbor:"1,keyasint"`

	// Signer is the token whose private key signed the envelope.
	Signer token.Token `cbor:"2,keyasint"`

	// Args is the CBOR encoding of the operation's arguments.
	Args codec.RawMessage `cbor:"3,keyasint,omitempty"`

	// Nonce makes otherwise identical calls distinct.
	Nonce []byte `cbor:"4,keyasint"`

	// IssuedAt is Unix seconds.
	IssuedAt int64 `cbor:"5,keyasint"`
}

var (
	ErrEnvelopeTooShort = errors.New("call: envelope too short for signature")
	ErrInvalidSignature = errors.New("call: invalid Ed25519 signature")
	ErrStale            = errors.New("call: envelope outside freshness window")
	ErrWrongOperation   = errors.New("call: envelope signed for a different operation")
	ErrReplayed         = errors.New("call: envelope already used")
)

// Sign builds and signs an envelope for operation with args encoded
// as CBOR. The signer token is derived from privateKey.
func Sign(privateKey ed25519.PrivateKey, operation string, args any, now time.Time) ([]byte, error) {
	signer, err := token.FromPublicKey(privateKey.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("call: %w", err)
	}

	var rawArgs codec.RawMessage
	if args != nil {
		rawArgs, err = codec.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("call: encoding %s arguments: %w", operation, err)
		}
	}

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("call: generating nonce: %w", err)
	}

	payload, err := codec.Marshal(Payload{
		Operation: operation,
		Signer:    signer,
		Args:      rawArgs,
		Nonce:     nonce,
		IssuedAt:  now.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("call: encoding payload: %w", err)
	}

	envelope := make([]byte, len(payload)+signatureSize)
	copy(envelope, payload)
	copy(envelope[len(payload):], ed25519.Sign(privateKey, payload))
	return envelope, nil
}

// Verify checks the envelope's signature against its own signer token
// and that it was issued within maxAge before now. It does not check
// the replay guard.
func Verify(envelope []byte, now time.Time, maxAge time.Duration) (*Payload, error) {
	if len(envelope) <= signatureSize {
		return nil, ErrEnvelopeTooShort
	}
	splitPoint := len(envelope) - signatureSize
	raw, signature := envelope[:splitPoint], envelope[splitPoint:]

	var payload Payload
	if err := codec.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("call: decoding payload: %w", err)
	}
	if payload.Signer.IsZero() {
		return nil, fmt.Errorf("%w: missing signer", ErrInvalidSignature)
	}
	if !ed25519.Verify(payload.Signer.PublicKey(), raw, signature) {
		return nil, ErrInvalidSignature
	}

	issued := time.Unix(payload.IssuedAt, 0)
	if issued.Before(now.Add(-maxAge)) || issued.After(now.Add(MaxClockSkew)) {
		return nil, fmt.Errorf("%w: issued %s, now %s", ErrStale, issued.UTC().Format(time.RFC3339), now.UTC().Format(time.RFC3339))
	}
	return &payload, nil
}

// VerifyOperation is Verify plus a check that the envelope was signed
// for operation.
func VerifyOperation(envelope []byte, operation string, now time.Time, maxAge time.Duration) (*Payload, error) {
	payload, err := Verify(envelope, now, maxAge)
	if err != nil {
		return nil, err
	}
	if payload.Operation != operation {
		return nil, fmt.Errorf("%w: signed for %q, called as %q", ErrWrongOperation, payload.Operation, operation)
	}
	return payload, nil
}

// DecodeArgs decodes the payload's arguments into v.
func (p *Payload) DecodeArgs(v any) error {
	if len(p.Args) == 0 {
		return nil
	}
	if err := codec.Unmarshal(p.Args, v); err != nil {
		return fmt.Errorf("call: decoding %s arguments: %w", p.Operation, err)
	}
	return nil
}

// ID is a short hex digest identifying an envelope, used for replay
// tracking and log correlation.
func ID(envelope []byte) string {
	sum := blake3.Sum256(envelope)
	return hex.EncodeToString(sum[:16])
}
