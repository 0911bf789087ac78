// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry defines the contract's transactional store: the
// puzzle registry, the capability table, and the ledger balances,
// mutated together so that one contract call commits or aborts as a
// unit.
//
// Implementations:
//
//   - memstore: maps behind a mutex, with an overlay per transaction.
//   - sqlitestore: SQLite via lib/sqlitepool, one IMMEDIATE
//     transaction per Update.
//
// Both pass the conformance suite in registrytest.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/bureau-foundation/crossword/lib/capability"
	"github.com/bureau-foundation/crossword/lib/ledger"
	"github.com/bureau-foundation/crossword/lib/puzzle"
	"github.com/bureau-foundation/crossword/lib/token"
)

var (
	// ErrDuplicateRecord is returned when inserting a puzzle under a
	// key that is already registered.
	ErrDuplicateRecord = errors.New("duplicate record")

	// ErrRecordNotFound is returned when a puzzle, capability, or
	// account key lookup finds nothing.
	ErrRecordNotFound = errors.New("record not found")

	// ErrTokenInUse is returned when granting or registering a token
	// that has already been granted a capability or bound to an
	// account. Tokens are single-use for their whole lifetime.
	ErrTokenInUse = errors.New("token already in use")

	// ErrClosed is returned by transactions started after Close.
	ErrClosed = errors.New("registry: store closed")
)

// ReadTx is the read side of a transaction.
type ReadTx interface {
	// Puzzle returns the record registered under key, or
	// ErrRecordNotFound.
	Puzzle(key token.Token) (puzzle.Record, error)

	// Capability returns the capability row for holder, active or
	// revoked, or ErrRecordNotFound if holder was never granted.
	Capability(holder token.Token) (capability.Capability, error)

	// Balance returns the balance of account. Unknown accounts have a
	// zero balance.
	Balance(account ledger.Account) (ledger.Amount, error)

	// AccountForKey returns the account a full-access key belongs to,
	// or ErrRecordNotFound.
	AccountForKey(key token.Token) (ledger.Account, error)

	// Transfers returns the transfers into or out of account, oldest
	// first.
	Transfers(account ledger.Account) ([]ledger.Transfer, error)

	// Funded reports whether account has received its opening Credit.
	Funded(account ledger.Account) (bool, error)
}

// Tx is a read-write transaction. Nothing written through a Tx is
// visible to other transactions until the Update function returns nil.
type Tx interface {
	ReadTx

	// InsertPuzzle registers a new record. ErrDuplicateRecord if key
	// is already present; the existing record is untouched.
	InsertPuzzle(key token.Token, record puzzle.Record) error

	// UpdatePuzzle replaces an existing record. ErrRecordNotFound if
	// key is absent.
	UpdatePuzzle(key token.Token, record puzzle.Record) error

	// GrantCapability adds an active capability row. ErrTokenInUse if
	// the token was ever granted or is an account key;
	// capability.ErrZeroTime if GrantedAt is zero or RevokedAt is set.
	GrantCapability(grant capability.Capability) error

	// RevokeCapability marks holder's capability revoked at the given
	// time, which must not be zero (capability.ErrZeroTime).
	// ErrRecordNotFound if never granted; revoking twice is an error
	// wrapping capability.ErrCapabilityMismatch.
	RevokeCapability(holder token.Token, at time.Time) error

	// Transfer moves value between accounts.
	// ledger.ErrInsufficientFunds if the source would be overdrawn.
	Transfer(transfer ledger.Transfer) error

	// Credit issues account's opening balance. An account is credited
	// at most once, independent of which keys it holds:
	// ErrDuplicateRecord if it was credited before.
	Credit(account ledger.Account, amount ledger.Amount) error

	// RegisterKey binds a full-access key to account. Registering the
	// same binding again is a no-op; ErrTokenInUse if the key is bound
	// elsewhere or was granted a capability.
	RegisterKey(key token.Token, account ledger.Account) error
}

// Store runs transactions against the registry.
type Store interface {
	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(ReadTx) error) error

	// Update runs fn in a read-write transaction. If fn returns an
	// error, none of its writes are kept and the error is returned
	// unchanged.
	Update(ctx context.Context, fn func(Tx) error) error

	Close() error
}
