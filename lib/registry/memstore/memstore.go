// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package memstore is an in-memory registry.Store. Writers are
// serialized; each Update collects its writes in an overlay that is
// folded into the committed maps only when the update function
// returns nil.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/bureau-foundation/crossword/lib/capability"
	"github.com/bureau-foundation/crossword/lib/ledger"
	"github.com/bureau-foundation/crossword/lib/puzzle"
	"github.com/bureau-foundation/crossword/lib/registry"
	"github.com/bureau-foundation/crossword/lib/token"
)

type state struct {
	puzzles      map[token.Token]puzzle.Record
	capabilities map[token.Token]capability.Capability
	balances     map[ledger.Account]ledger.Amount
	keys         map[token.Token]ledger.Account
	funded       map[ledger.Account]bool
	transfers    []ledger.Transfer
}

func newState() state {
	return state{
		puzzles:      make(map[token.Token]puzzle.Record),
		capabilities: make(map[token.Token]capability.Capability),
		balances:     make(map[ledger.Account]ledger.Amount),
		keys:         make(map[token.Token]ledger.Account),
		funded:       make(map[ledger.Account]bool),
	}
}

// Store is an in-memory registry.Store.
type Store struct {
	mu        sync.RWMutex
	committed state
	closed    bool
}

var _ registry.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{committed: newState()}
}

func (s *Store) View(ctx context.Context, fn func(registry.ReadTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return registry.ErrClosed
	}
	return fn(&tx{base: &s.committed, overlay: newState()})
}

func (s *Store) Update(ctx context.Context, fn func(registry.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return registry.ErrClosed
	}
	t := &tx{base: &s.committed, overlay: newState()}
	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.commit()
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// tx reads through the overlay to the committed state. Values stored
// in either map are never mutated in place, only replaced.
type tx struct {
	base    *state
	overlay state
}

func (t *tx) commit() {
	maps.Copy(t.base.puzzles, t.overlay.puzzles)
	maps.Copy(t.base.capabilities, t.overlay.capabilities)
	maps.Copy(t.base.balances, t.overlay.balances)
	maps.Copy(t.base.keys, t.overlay.keys)
	maps.Copy(t.base.funded, t.overlay.funded)
	t.base.transfers = append(t.base.transfers, t.overlay.transfers...)
}

func lookup[K comparable, V any](overlay, base map[K]V, key K) (V, bool) {
	if value, ok := overlay[key]; ok {
		return value, true
	}
	value, ok := base[key]
	return value, ok
}

func (t *tx) Puzzle(key token.Token) (puzzle.Record, error) {
	record, ok := lookup(t.overlay.puzzles, t.base.puzzles, key)
	if !ok {
		return puzzle.Record{}, fmt.Errorf("puzzle %s: %w", key, registry.ErrRecordNotFound)
	}
	return record.Clone(), nil
}

func (t *tx) Capability(holder token.Token) (capability.Capability, error) {
	grant, ok := lookup(t.overlay.capabilities, t.base.capabilities, holder)
	if !ok {
		return capability.Capability{}, fmt.Errorf("capability for %s: %w", holder, registry.ErrRecordNotFound)
	}
	return grant, nil
}

func (t *tx) Balance(account ledger.Account) (ledger.Amount, error) {
	balance, _ := lookup(t.overlay.balances, t.base.balances, account)
	return balance, nil
}

func (t *tx) AccountForKey(key token.Token) (ledger.Account, error) {
	account, ok := lookup(t.overlay.keys, t.base.keys, key)
	if !ok {
		return "", fmt.Errorf("account for key %s: %w", key, registry.ErrRecordNotFound)
	}
	return account, nil
}

func (t *tx) Transfers(account ledger.Account) ([]ledger.Transfer, error) {
	var result []ledger.Transfer
	for _, transfer := range slices.Concat(t.base.transfers, t.overlay.transfers) {
		if transfer.From == account || transfer.To == account {
			result = append(result, transfer)
		}
	}
	return result, nil
}

func (t *tx) Funded(account ledger.Account) (bool, error) {
	funded, _ := lookup(t.overlay.funded, t.base.funded, account)
	return funded, nil
}

func (t *tx) InsertPuzzle(key token.Token, record puzzle.Record) error {
	if _, ok := lookup(t.overlay.puzzles, t.base.puzzles, key); ok {
		return fmt.Errorf("puzzle %s: %w", key, registry.ErrDuplicateRecord)
	}
	t.overlay.puzzles[key] = record.Clone()
	return nil
}

func (t *tx) UpdatePuzzle(key token.Token, record puzzle.Record) error {
	if _, ok := lookup(t.overlay.puzzles, t.base.puzzles, key); !ok {
		return fmt.Errorf("puzzle %s: %w", key, registry.ErrRecordNotFound)
	}
	t.overlay.puzzles[key] = record.Clone()
	return nil
}

func (t *tx) GrantCapability(grant capability.Capability) error {
	if grant.GrantedAt.IsZero() || !grant.Active() {
		return fmt.Errorf("grant %s: %w", grant.Token, capability.ErrZeroTime)
	}
	if _, ok := lookup(t.overlay.capabilities, t.base.capabilities, grant.Token); ok {
		return fmt.Errorf("grant %s: %w", grant.Token, registry.ErrTokenInUse)
	}
	if _, ok := lookup(t.overlay.keys, t.base.keys, grant.Token); ok {
		return fmt.Errorf("grant %s: token is an account key: %w", grant.Token, registry.ErrTokenInUse)
	}
	t.overlay.capabilities[grant.Token] = grant
	return nil
}

func (t *tx) RevokeCapability(holder token.Token, at time.Time) error {
	if at.IsZero() {
		return fmt.Errorf("revoke %s: %w", holder, capability.ErrZeroTime)
	}
	grant, err := t.Capability(holder)
	if err != nil {
		return err
	}
	if !grant.Active() {
		return fmt.Errorf("revoke %s: %w: already revoked", holder, capability.ErrCapabilityMismatch)
	}
	grant.RevokedAt = at
	t.overlay.capabilities[holder] = grant
	return nil
}

func (t *tx) Transfer(transfer ledger.Transfer) error {
	if err := transfer.Validate(); err != nil {
		return err
	}
	from, _ := t.Balance(transfer.From)
	to, _ := t.Balance(transfer.To)
	from, to, err := ledger.Apply(from, to, transfer.Amount)
	if err != nil {
		return err
	}
	t.overlay.balances[transfer.From] = from
	t.overlay.balances[transfer.To] = to
	t.overlay.transfers = append(t.overlay.transfers, transfer)
	return nil
}

func (t *tx) Credit(account ledger.Account, amount ledger.Amount) error {
	if err := account.Validate(); err != nil {
		return err
	}
	if funded, _ := t.Funded(account); funded {
		return fmt.Errorf("credit for %s: %w", account, registry.ErrDuplicateRecord)
	}
	balance, _ := t.Balance(account)
	if amount > ledger.MaxAmount-balance {
		return fmt.Errorf("%w: %d + %d", ledger.ErrAmountOverflow, balance, amount)
	}
	t.overlay.balances[account] = balance + amount
	t.overlay.funded[account] = true
	return nil
}

func (t *tx) RegisterKey(key token.Token, account ledger.Account) error {
	if err := account.Validate(); err != nil {
		return err
	}
	if existing, ok := lookup(t.overlay.keys, t.base.keys, key); ok {
		if existing == account {
			return nil
		}
		return fmt.Errorf("key %s is bound to %s: %w", key, existing, registry.ErrTokenInUse)
	}
	if _, ok := lookup(t.overlay.capabilities, t.base.capabilities, key); ok {
		return fmt.Errorf("key %s was granted a capability: %w", key, registry.ErrTokenInUse)
	}
	t.overlay.keys[key] = account
	return nil
}
