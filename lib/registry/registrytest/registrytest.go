// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package registrytest is the conformance suite every registry.Store
// implementation runs from its own tests.
package registrytest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/crossword/lib/capability"
	"github.com/bureau-foundation/crossword/lib/ledger"
	"github.com/bureau-foundation/crossword/lib/puzzle"
	"github.com/bureau-foundation/crossword/lib/registry"
	"github.com/bureau-foundation/crossword/lib/token"
)

// Factory returns a fresh, empty store. It should register its own
// cleanup with t.
type Factory func(t *testing.T) registry.Store

// Run executes every conformance test against stores from factory.
func Run(t *testing.T, factory Factory) {
	tests := []struct {
		name string
		fn   func(*testing.T, registry.Store)
	}{
		{"PuzzleRoundtrip", testPuzzleRoundtrip},
		{"DuplicatePuzzle", testDuplicatePuzzle},
		{"MissingPuzzle", testMissingPuzzle},
		{"CapabilityLifecycle", testCapabilityLifecycle},
		{"TokenSingleUse", testTokenSingleUse},
		{"AccountKeys", testAccountKeys},
		{"LedgerTransfers", testLedgerTransfers},
		{"CreditOnce", testCreditOnce},
		{"RollbackDiscardsWrites", testRollbackDiscardsWrites},
		{"ConcurrentTransfers", testConcurrentTransfers},
		{"CanceledContext", testCanceledContext},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			test.fn(t, factory(t))
		})
	}
}

var epoch = time.Date(2026, time.March, 14, 9, 26, 53, 589793238, time.UTC)

func newToken(t *testing.T) token.Token {
	t.Helper()
	tok, _, err := token.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return tok
}

func sampleRecord() puzzle.Record {
	return puzzle.NewRecord("alice", 100, puzzle.Metadata{
		Dimensions: puzzle.Coordinate{X: 5, Y: 5},
		Answers: []puzzle.Answer{
			{Num: 1, Start: puzzle.Coordinate{X: 0, Y: 0}, Direction: puzzle.Across, Length: 5, Clue: "Opposite of night"},
			{Num: 2, Start: puzzle.Coordinate{X: 4, Y: 0}, Direction: puzzle.Down, Length: 3},
		},
	}, epoch)
}

func update(t *testing.T, store registry.Store, fn func(registry.Tx) error) {
	t.Helper()
	if err := store.Update(context.Background(), fn); err != nil {
		t.Fatalf("Update: %v", err)
	}
}

func view(t *testing.T, store registry.Store, fn func(registry.ReadTx) error) {
	t.Helper()
	if err := store.View(context.Background(), fn); err != nil {
		t.Fatalf("View: %v", err)
	}
}

// assertRecord compares records field by field; stores may return
// times in a different location.
func assertRecord(t *testing.T, got, want puzzle.Record) {
	t.Helper()
	if got.Status.State != want.Status.State || got.Status.Memo != want.Status.Memo {
		t.Errorf("status = %s, want %s", got.Status, want.Status)
	}
	if (got.Status.Solver == nil) != (want.Status.Solver == nil) ||
		(want.Status.Solver != nil && *got.Status.Solver != *want.Status.Solver) {
		t.Errorf("solver = %v, want %v", got.Status.Solver, want.Status.Solver)
	}
	if got.Reward != want.Reward || got.Creator != want.Creator {
		t.Errorf("reward/creator = %d/%s, want %d/%s", got.Reward, got.Creator, want.Reward, want.Creator)
	}
	if !reflect.DeepEqual(got.Metadata, want.Metadata) {
		t.Errorf("metadata = %+v, want %+v", got.Metadata, want.Metadata)
	}
	for _, pair := range [][2]time.Time{
		{got.CreatedAt, want.CreatedAt},
		{got.SolvedAt, want.SolvedAt},
		{got.ClaimedAt, want.ClaimedAt},
	} {
		if !pair[0].Equal(pair[1]) {
			t.Errorf("timestamp = %v, want %v", pair[0], pair[1])
		}
	}
}

func testPuzzleRoundtrip(t *testing.T, store registry.Store) {
	key := newToken(t)
	solver := newToken(t)
	record := sampleRecord()

	update(t, store, func(tx registry.Tx) error {
		return tx.InsertPuzzle(key, record)
	})
	view(t, store, func(tx registry.ReadTx) error {
		got, err := tx.Puzzle(key)
		if err != nil {
			return err
		}
		assertRecord(t, got, record)
		return nil
	})

	solved := record.Clone()
	status, err := solved.Status.Solve(solver)
	if err != nil {
		t.Fatal(err)
	}
	solved.Status = status
	solved.SolvedAt = epoch.Add(time.Minute)
	update(t, store, func(tx registry.Tx) error {
		return tx.UpdatePuzzle(key, solved)
	})
	view(t, store, func(tx registry.ReadTx) error {
		got, err := tx.Puzzle(key)
		if err != nil {
			return err
		}
		assertRecord(t, got, solved)
		return nil
	})

	claimed := solved.Clone()
	claimed.Status, err = claimed.Status.Claim("thanks")
	if err != nil {
		t.Fatal(err)
	}
	claimed.ClaimedAt = epoch.Add(2 * time.Minute)
	update(t, store, func(tx registry.Tx) error {
		return tx.UpdatePuzzle(key, claimed)
	})
	view(t, store, func(tx registry.ReadTx) error {
		got, err := tx.Puzzle(key)
		if err != nil {
			return err
		}
		assertRecord(t, got, claimed)
		return nil
	})

	// A record without answers survives too.
	bare := puzzle.NewRecord("bob", 0, puzzle.Metadata{Dimensions: puzzle.Coordinate{X: 1, Y: 1}}, epoch)
	bareKey := newToken(t)
	update(t, store, func(tx registry.Tx) error {
		return tx.InsertPuzzle(bareKey, bare)
	})
	view(t, store, func(tx registry.ReadTx) error {
		got, err := tx.Puzzle(bareKey)
		if err != nil {
			return err
		}
		assertRecord(t, got, bare)
		return nil
	})
}

func testDuplicatePuzzle(t *testing.T, store registry.Store) {
	key := newToken(t)
	original := sampleRecord()
	update(t, store, func(tx registry.Tx) error {
		return tx.InsertPuzzle(key, original)
	})

	replacement := puzzle.NewRecord("mallory", 1, puzzle.Metadata{}, epoch.Add(time.Hour))
	err := store.Update(context.Background(), func(tx registry.Tx) error {
		return tx.InsertPuzzle(key, replacement)
	})
	if !errors.Is(err, registry.ErrDuplicateRecord) {
		t.Fatalf("second insert error = %v, want ErrDuplicateRecord", err)
	}
	view(t, store, func(tx registry.ReadTx) error {
		got, err := tx.Puzzle(key)
		if err != nil {
			return err
		}
		assertRecord(t, got, original)
		return nil
	})
}

func testMissingPuzzle(t *testing.T, store registry.Store) {
	key := newToken(t)
	view(t, store, func(tx registry.ReadTx) error {
		if _, err := tx.Puzzle(key); !errors.Is(err, registry.ErrRecordNotFound) {
			t.Errorf("Puzzle error = %v, want ErrRecordNotFound", err)
		}
		if _, err := tx.Capability(key); !errors.Is(err, registry.ErrRecordNotFound) {
			t.Errorf("Capability error = %v, want ErrRecordNotFound", err)
		}
		if _, err := tx.AccountForKey(key); !errors.Is(err, registry.ErrRecordNotFound) {
			t.Errorf("AccountForKey error = %v, want ErrRecordNotFound", err)
		}
		return nil
	})
	err := store.Update(context.Background(), func(tx registry.Tx) error {
		return tx.UpdatePuzzle(key, sampleRecord())
	})
	if !errors.Is(err, registry.ErrRecordNotFound) {
		t.Errorf("UpdatePuzzle error = %v, want ErrRecordNotFound", err)
	}
}

func testCapabilityLifecycle(t *testing.T, store registry.Store) {
	puzzleKey := newToken(t)
	grant, err := capability.New(puzzleKey, capability.Solve, puzzleKey, epoch)
	if err != nil {
		t.Fatal(err)
	}
	update(t, store, func(tx registry.Tx) error {
		return tx.GrantCapability(grant)
	})
	view(t, store, func(tx registry.ReadTx) error {
		got, err := tx.Capability(puzzleKey)
		if err != nil {
			return err
		}
		if got.ID != grant.ID || got.Operation != capability.Solve || got.Puzzle != puzzleKey {
			t.Errorf("capability = %+v, want %+v", got, grant)
		}
		if !got.Active() || !got.GrantedAt.Equal(epoch) {
			t.Errorf("capability active=%v granted=%v", got.Active(), got.GrantedAt)
		}
		return nil
	})

	// The zero time would read back as active.
	err = store.Update(context.Background(), func(tx registry.Tx) error {
		return tx.RevokeCapability(puzzleKey, time.Time{})
	})
	if !errors.Is(err, capability.ErrZeroTime) {
		t.Errorf("revoke at zero time error = %v, want ErrZeroTime", err)
	}
	zeroGrant := capability.Capability{Token: newToken(t), Operation: capability.Solve, Puzzle: puzzleKey}
	err = store.Update(context.Background(), func(tx registry.Tx) error {
		return tx.GrantCapability(zeroGrant)
	})
	if !errors.Is(err, capability.ErrZeroTime) {
		t.Errorf("grant at zero time error = %v, want ErrZeroTime", err)
	}
	view(t, store, func(tx registry.ReadTx) error {
		got, err := tx.Capability(puzzleKey)
		if err != nil {
			return err
		}
		if !got.Active() {
			t.Error("capability revoked by a rejected zero-time revoke")
		}
		if _, err := tx.Capability(zeroGrant.Token); !errors.Is(err, registry.ErrRecordNotFound) {
			t.Errorf("zero-time grant stored: %v", err)
		}
		return nil
	})

	revokedAt := epoch.Add(time.Second)
	update(t, store, func(tx registry.Tx) error {
		return tx.RevokeCapability(puzzleKey, revokedAt)
	})
	view(t, store, func(tx registry.ReadTx) error {
		got, err := tx.Capability(puzzleKey)
		if err != nil {
			return err
		}
		if got.Active() || !got.RevokedAt.Equal(revokedAt) {
			t.Errorf("after revoke: active=%v revoked_at=%v", got.Active(), got.RevokedAt)
		}
		return nil
	})

	err = store.Update(context.Background(), func(tx registry.Tx) error {
		return tx.RevokeCapability(puzzleKey, revokedAt)
	})
	if !errors.Is(err, capability.ErrCapabilityMismatch) {
		t.Errorf("second revoke error = %v, want ErrCapabilityMismatch", err)
	}
	err = store.Update(context.Background(), func(tx registry.Tx) error {
		return tx.RevokeCapability(newToken(t), revokedAt)
	})
	if !errors.Is(err, registry.ErrRecordNotFound) {
		t.Errorf("revoke of unknown token error = %v, want ErrRecordNotFound", err)
	}
}

func testTokenSingleUse(t *testing.T, store registry.Store) {
	puzzleKey := newToken(t)
	holder := newToken(t)
	first, _ := capability.New(holder, capability.Claim, puzzleKey, epoch)
	update(t, store, func(tx registry.Tx) error {
		if err := tx.GrantCapability(first); err != nil {
			return err
		}
		return tx.RevokeCapability(holder, epoch)
	})

	// Revoked tokens stay reserved.
	second, _ := capability.New(holder, capability.Solve, puzzleKey, epoch)
	err := store.Update(context.Background(), func(tx registry.Tx) error {
		return tx.GrantCapability(second)
	})
	if !errors.Is(err, registry.ErrTokenInUse) {
		t.Fatalf("regrant error = %v, want ErrTokenInUse", err)
	}
	view(t, store, func(tx registry.ReadTx) error {
		got, err := tx.Capability(holder)
		if err != nil {
			return err
		}
		if got.ID != first.ID || got.Active() {
			t.Errorf("capability row changed: %+v", got)
		}
		return nil
	})
}

func testAccountKeys(t *testing.T, store registry.Store) {
	key := newToken(t)
	update(t, store, func(tx registry.Tx) error {
		if err := tx.RegisterKey(key, "alice"); err != nil {
			return err
		}
		// Same binding again is fine.
		return tx.RegisterKey(key, "alice")
	})
	view(t, store, func(tx registry.ReadTx) error {
		account, err := tx.AccountForKey(key)
		if err != nil {
			return err
		}
		if account != "alice" {
			t.Errorf("AccountForKey = %q, want alice", account)
		}
		return nil
	})

	err := store.Update(context.Background(), func(tx registry.Tx) error {
		return tx.RegisterKey(key, "bob")
	})
	if !errors.Is(err, registry.ErrTokenInUse) {
		t.Errorf("rebinding key error = %v, want ErrTokenInUse", err)
	}

	grant, _ := capability.New(key, capability.Solve, newToken(t), epoch)
	err = store.Update(context.Background(), func(tx registry.Tx) error {
		return tx.GrantCapability(grant)
	})
	if !errors.Is(err, registry.ErrTokenInUse) {
		t.Errorf("granting an account key error = %v, want ErrTokenInUse", err)
	}

	granted := newToken(t)
	grant, _ = capability.New(granted, capability.Solve, granted, epoch)
	update(t, store, func(tx registry.Tx) error {
		return tx.GrantCapability(grant)
	})
	err = store.Update(context.Background(), func(tx registry.Tx) error {
		return tx.RegisterKey(granted, "carol")
	})
	if !errors.Is(err, registry.ErrTokenInUse) {
		t.Errorf("registering a capability token error = %v, want ErrTokenInUse", err)
	}

	err = store.Update(context.Background(), func(tx registry.Tx) error {
		return tx.RegisterKey(newToken(t), "Not Valid")
	})
	if !errors.Is(err, ledger.ErrInvalidAccount) {
		t.Errorf("invalid account error = %v, want ErrInvalidAccount", err)
	}
}

func testLedgerTransfers(t *testing.T, store registry.Store) {
	update(t, store, func(tx registry.Tx) error {
		return tx.Credit("alice", 150)
	})
	update(t, store, func(tx registry.Tx) error {
		return tx.Transfer(ledger.Transfer{From: "alice", To: ledger.EscrowAccount, Amount: 100, At: epoch})
	})
	update(t, store, func(tx registry.Tx) error {
		return tx.Transfer(ledger.Transfer{From: ledger.EscrowAccount, To: "bob", Amount: 100, Memo: "done", At: epoch.Add(time.Minute)})
	})

	err := store.Update(context.Background(), func(tx registry.Tx) error {
		return tx.Transfer(ledger.Transfer{From: "alice", To: "bob", Amount: 51, At: epoch})
	})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Errorf("overdraft error = %v, want ErrInsufficientFunds", err)
	}
	err = store.Update(context.Background(), func(tx registry.Tx) error {
		return tx.Transfer(ledger.Transfer{From: "alice", To: "alice", Amount: 1, At: epoch})
	})
	if !errors.Is(err, ledger.ErrInvalidAccount) {
		t.Errorf("self transfer error = %v, want ErrInvalidAccount", err)
	}
	err = store.Update(context.Background(), func(tx registry.Tx) error {
		return tx.Credit("bob", ledger.MaxAmount)
	})
	if !errors.Is(err, ledger.ErrAmountOverflow) {
		t.Errorf("overflowing credit error = %v, want ErrAmountOverflow", err)
	}

	view(t, store, func(tx registry.ReadTx) error {
		for account, want := range map[ledger.Account]ledger.Amount{
			"alice":              50,
			"bob":                100,
			ledger.EscrowAccount: 0,
			"nobody":             0,
		} {
			got, err := tx.Balance(account)
			if err != nil {
				return err
			}
			if got != want {
				t.Errorf("Balance(%s) = %d, want %d", account, got, want)
			}
		}

		history, err := tx.Transfers("bob")
		if err != nil {
			return err
		}
		if len(history) != 1 {
			t.Fatalf("bob has %d transfers, want 1", len(history))
		}
		if history[0].From != ledger.EscrowAccount || history[0].Amount != 100 || history[0].Memo != "done" || !history[0].At.Equal(epoch.Add(time.Minute)) {
			t.Errorf("bob transfer = %+v", history[0])
		}
		escrow, err := tx.Transfers(ledger.EscrowAccount)
		if err != nil {
			return err
		}
		if len(escrow) != 2 || escrow[0].From != "alice" || escrow[1].To != "bob" {
			t.Errorf("escrow transfers = %+v, want alice->escrow then escrow->bob", escrow)
		}
		return nil
	})
}

func testCreditOnce(t *testing.T, store registry.Store) {
	view(t, store, func(tx registry.ReadTx) error {
		if funded, err := tx.Funded("alice"); err != nil || funded {
			t.Errorf("Funded before credit = %v, %v", funded, err)
		}
		return nil
	})
	update(t, store, func(tx registry.Tx) error {
		return tx.Credit("alice", 100)
	})

	err := store.Update(context.Background(), func(tx registry.Tx) error {
		return tx.Credit("alice", 100)
	})
	if !errors.Is(err, registry.ErrDuplicateRecord) {
		t.Errorf("second credit error = %v, want ErrDuplicateRecord", err)
	}

	// A zero credit still counts as the opening balance.
	update(t, store, func(tx registry.Tx) error {
		return tx.Credit("bob", 0)
	})
	err = store.Update(context.Background(), func(tx registry.Tx) error {
		return tx.Credit("bob", 5)
	})
	if !errors.Is(err, registry.ErrDuplicateRecord) {
		t.Errorf("credit after zero credit error = %v, want ErrDuplicateRecord", err)
	}

	// A credit rolled back with its transaction leaves the account
	// unfunded.
	sentinel := errors.New("abort")
	err = store.Update(context.Background(), func(tx registry.Tx) error {
		if err := tx.Credit("carol", 10); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Update error = %v, want %v", err, sentinel)
	}

	view(t, store, func(tx registry.ReadTx) error {
		for account, want := range map[ledger.Account]struct {
			funded  bool
			balance ledger.Amount
		}{
			"alice": {true, 100},
			"bob":   {true, 0},
			"carol": {false, 0},
		} {
			funded, err := tx.Funded(account)
			if err != nil {
				return err
			}
			balance, _ := tx.Balance(account)
			if funded != want.funded || balance != want.balance {
				t.Errorf("%s: funded=%v balance=%d, want funded=%v balance=%d", account, funded, balance, want.funded, want.balance)
			}
		}
		return nil
	})
}

func testRollbackDiscardsWrites(t *testing.T, store registry.Store) {
	update(t, store, func(tx registry.Tx) error {
		return tx.Credit("alice", 100)
	})

	key := newToken(t)
	sentinel := errors.New("payout failed")
	err := store.Update(context.Background(), func(tx registry.Tx) error {
		if err := tx.InsertPuzzle(key, sampleRecord()); err != nil {
			return err
		}
		grant, err := capability.New(key, capability.Solve, key, epoch)
		if err != nil {
			return err
		}
		if err := tx.GrantCapability(grant); err != nil {
			return err
		}
		if err := tx.RegisterKey(newToken(t), "alice"); err != nil {
			return err
		}
		if err := tx.Transfer(ledger.Transfer{From: "alice", To: ledger.EscrowAccount, Amount: 100, At: epoch}); err != nil {
			return err
		}
		// Writes are visible inside the transaction that made them.
		if balance, _ := tx.Balance(ledger.EscrowAccount); balance != 100 {
			t.Errorf("escrow balance inside tx = %d, want 100", balance)
		}
		if _, err := tx.Puzzle(key); err != nil {
			t.Errorf("Puzzle inside tx: %v", err)
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Update error = %v, want %v", err, sentinel)
	}

	view(t, store, func(tx registry.ReadTx) error {
		if _, err := tx.Puzzle(key); !errors.Is(err, registry.ErrRecordNotFound) {
			t.Errorf("puzzle survived rollback: %v", err)
		}
		if _, err := tx.Capability(key); !errors.Is(err, registry.ErrRecordNotFound) {
			t.Errorf("capability survived rollback: %v", err)
		}
		if balance, _ := tx.Balance("alice"); balance != 100 {
			t.Errorf("alice balance = %d after rollback, want 100", balance)
		}
		if balance, _ := tx.Balance(ledger.EscrowAccount); balance != 0 {
			t.Errorf("escrow balance = %d after rollback, want 0", balance)
		}
		if history, _ := tx.Transfers("alice"); len(history) != 0 {
			t.Errorf("transfers survived rollback: %+v", history)
		}
		return nil
	})
}

func testConcurrentTransfers(t *testing.T, store registry.Store) {
	const workers = 8
	const perWorker = 10
	update(t, store, func(tx registry.Tx) error {
		return tx.Credit("alice", workers*perWorker)
	})

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for worker := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWorker {
				err := store.Update(context.Background(), func(tx registry.Tx) error {
					return tx.Transfer(ledger.Transfer{
						From:   "alice",
						To:     "bob",
						Amount: 1,
						Memo:   fmt.Sprintf("%d/%d", worker, i),
						At:     epoch,
					})
				})
				if err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent transfer: %v", err)
	}

	view(t, store, func(tx registry.ReadTx) error {
		alice, _ := tx.Balance("alice")
		bob, _ := tx.Balance("bob")
		if alice != 0 || bob != workers*perWorker {
			t.Errorf("balances alice=%d bob=%d, want 0 and %d", alice, bob, workers*perWorker)
		}
		return nil
	})
}

func testCanceledContext(t *testing.T, store registry.Store) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := store.Update(ctx, func(tx registry.Tx) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Update error = %v, want context.Canceled", err)
	}
	if called {
		t.Error("Update ran its function with a canceled context")
	}
}
