// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package crossword

import (
	"errors"

	"github.com/bureau-foundation/crossword/lib/capability"
	"github.com/bureau-foundation/crossword/lib/ledger"
	"github.com/bureau-foundation/crossword/lib/puzzle"
	"github.com/bureau-foundation/crossword/lib/registry"
)

// The contract's error kinds. Every error returned by an entry point
// wraps exactly one of these, so callers branch with errors.Is.
var (
	ErrDuplicateRecord        = registry.ErrDuplicateRecord
	ErrRecordNotFound         = registry.ErrRecordNotFound
	ErrTokenInUse             = registry.ErrTokenInUse
	ErrInvalidStateTransition = puzzle.ErrInvalidStateTransition
	ErrCapabilityMismatch     = capability.ErrCapabilityMismatch
	ErrInsufficientFunds      = ledger.ErrInsufficientFunds

	// ErrUnknownSigner is returned by Create when the signing key is
	// not bound to any account.
	ErrUnknownSigner = errors.New("signer is not a registered account key")

	// ErrInvalidArgument covers malformed requests: zero tokens and
	// invalid receiver accounts.
	ErrInvalidArgument = errors.New("invalid argument")
)

// outcome maps an entry point's result to a metrics label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrDuplicateRecord):
		return "duplicate_record"
	case errors.Is(err, ErrRecordNotFound):
		return "not_found"
	case errors.Is(err, ErrTokenInUse):
		return "token_in_use"
	case errors.Is(err, ErrInvalidStateTransition):
		return "invalid_transition"
	case errors.Is(err, ErrCapabilityMismatch):
		return "capability_mismatch"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrUnknownSigner):
		return "unknown_signer"
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ledger.ErrInvalidAccount):
		return "invalid_argument"
	default:
		return "error"
	}
}
