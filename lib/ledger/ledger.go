// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ledger defines the value side of the contract: named
// accounts, amounts, and the custody account that holds escrowed
// rewards between create and claim.
//
// Balances live in the registry store so that an escrow or payout
// commits or aborts together with the record mutation and capability
// rotation of the same call.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"
)

// Amount is a quantity of value in the ledger's smallest unit.
type Amount uint64

// MaxAmount is the largest amount any balance may hold. Stores persist
// amounts as signed 64-bit integers.
const MaxAmount Amount = math.MaxInt64

// Account names a balance holder.
type Account string

// EscrowAccount is the contract's custody account. Rewards move into it
// on create and out of it on claim; nothing else touches it.
const EscrowAccount Account = "crossword.escrow"

var accountPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,62}$`)

var (
	// ErrInsufficientFunds is returned when a transfer would overdraw
	// the source account.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrInvalidAccount is returned for malformed account names.
	ErrInvalidAccount = errors.New("ledger: invalid account name")

	// ErrAmountOverflow is returned when a credit would exceed MaxAmount.
	ErrAmountOverflow = errors.New("ledger: amount overflow")
)

// Validate checks that the account name is well formed: lowercase
// alphanumerics plus '.', '_' and '-', at most 63 characters.
func (a Account) Validate() error {
	if !accountPattern.MatchString(string(a)) {
		return fmt.Errorf("%w: %q", ErrInvalidAccount, string(a))
	}
	return nil
}

func (a Account) String() string { return string(a) }

// Transfer is an applied movement of value, kept for audit.
type Transfer struct {
	From   Account   `json:"from"`
	To     Account   `json:"to"`
	Amount Amount    `json:"amount"`
	Memo   string    `json:"memo,omitempty"`
	At     time.Time `json:"at"`
}

// Validate checks both account names and rejects transfers from an
// account to itself.
func (t Transfer) Validate() error {
	if err := t.From.Validate(); err != nil {
		return err
	}
	if err := t.To.Validate(); err != nil {
		return err
	}
	if t.From == t.To {
		return fmt.Errorf("%w: transfer from %s to itself", ErrInvalidAccount, t.From)
	}
	return nil
}

// Apply computes the balances after moving amount from a source with
// balance from to a destination with balance to. Stores call this so
// the overdraft and overflow rules live in one place.
func Apply(from, to, amount Amount) (Amount, Amount, error) {
	if amount > from {
		return from, to, fmt.Errorf("%w: balance %d, need %d", ErrInsufficientFunds, from, amount)
	}
	if amount > MaxAmount-to {
		return from, to, fmt.Errorf("%w: %d + %d", ErrAmountOverflow, to, amount)
	}
	return from - amount, to + amount, nil
}
