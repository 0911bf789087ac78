// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/crossword/lib/token"
)

// Operation is the single contract operation a capability authorizes.
type Operation string

const (
	Solve Operation = "solve"
	Claim Operation = "claim"
)

// Valid reports whether o is an operation a capability can be scoped to.
func (o Operation) Valid() bool {
	return o == Solve || o == Claim
}

// ErrCapabilityMismatch is returned when the presented credential does
// not hold an active capability for the requested operation on the
// requested puzzle.
var ErrCapabilityMismatch = errors.New("capability mismatch")

// ErrZeroTime is returned for a grant or revocation at the zero time,
// which would read back as an active capability.
var ErrZeroTime = errors.New("capability: zero timestamp")

// Capability is one row of the capability table.
type Capability struct {
	// ID identifies the grant in logs and audit output.
	ID uuid.UUID `json:"id"`

	// Token is the credential the grant is bound to.
	Token token.Token `json:"token"`

	// Operation is the only operation this grant authorizes.
	Operation Operation `json:"operation"`

	// Puzzle is the registry key (creation token) of the puzzle the
	// grant applies to.
	Puzzle token.Token `json:"puzzle"`

	GrantedAt time.Time `json:"granted_at"`

	// RevokedAt is zero while the grant is active.
	RevokedAt time.Time `json:"revoked_at,omitzero"`
}

// New builds an active capability with a fresh ID.
func New(holder token.Token, operation Operation, puzzle token.Token, grantedAt time.Time) (Capability, error) {
	if !operation.Valid() {
		return Capability{}, fmt.Errorf("capability: unknown operation %q", operation)
	}
	if holder.IsZero() || puzzle.IsZero() {
		return Capability{}, fmt.Errorf("capability: zero token")
	}
	if grantedAt.IsZero() {
		return Capability{}, ErrZeroTime
	}
	return Capability{
		ID:        uuid.New(),
		Token:     holder,
		Operation: operation,
		Puzzle:    puzzle,
		GrantedAt: grantedAt,
	}, nil
}

// Active reports whether the capability has not been revoked.
func (c Capability) Active() bool {
	return c.RevokedAt.IsZero()
}

// Check verifies that c authorizes operation on puzzle. Revocation is
// checked first so a replay reports the revoked grant rather than a
// scope error.
func Check(c Capability, operation Operation, puzzle token.Token) error {
	if !c.Active() {
		return fmt.Errorf("%w: %s capability %s was revoked at %s", ErrCapabilityMismatch, c.Operation, c.ID, c.RevokedAt.UTC().Format(time.RFC3339))
	}
	if c.Operation != operation {
		return fmt.Errorf("%w: token is scoped to %s, not %s", ErrCapabilityMismatch, c.Operation, operation)
	}
	if c.Puzzle != puzzle {
		return fmt.Errorf("%w: token is bound to puzzle %s", ErrCapabilityMismatch, c.Puzzle)
	}
	return nil
}
