// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"errors"
	"strings"
	"testing"
)

func TestAccountValidate(t *testing.T) {
	valid := []Account{"alice", "bob.testnet", "x", "crossword.escrow", "a_b-c.d", Account(strings.Repeat("a", 63))}
	for _, account := range valid {
		if err := account.Validate(); err != nil {
			t.Errorf("Validate(%q): %v", account, err)
		}
	}

	invalid := []Account{"", "Alice", ".leading", "-dash", "has space", Account(strings.Repeat("a", 64)), "ümlaut"}
	for _, account := range invalid {
		if err := account.Validate(); !errors.Is(err, ErrInvalidAccount) {
			t.Errorf("Validate(%q) = %v, want ErrInvalidAccount", account, err)
		}
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name             string
		from, to, amount Amount
		wantFrom, wantTo Amount
		wantErr          error
	}{
		{name: "simple", from: 150, to: 10, amount: 100, wantFrom: 50, wantTo: 110},
		{name: "exact balance", from: 100, to: 0, amount: 100, wantFrom: 0, wantTo: 100},
		{name: "zero amount", from: 0, to: 0, amount: 0, wantFrom: 0, wantTo: 0},
		{name: "overdraft", from: 99, to: 0, amount: 100, wantFrom: 99, wantTo: 0, wantErr: ErrInsufficientFunds},
		{name: "overflow", from: 10, to: MaxAmount - 5, amount: 10, wantFrom: 10, wantTo: MaxAmount - 5, wantErr: ErrAmountOverflow},
		{name: "fill to max", from: 5, to: MaxAmount - 5, amount: 5, wantFrom: 0, wantTo: MaxAmount},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			gotFrom, gotTo, err := Apply(test.from, test.to, test.amount)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("error = %v, want %v", err, test.wantErr)
			}
			if gotFrom != test.wantFrom || gotTo != test.wantTo {
				t.Errorf("balances = (%d, %d), want (%d, %d)", gotFrom, gotTo, test.wantFrom, test.wantTo)
			}
		})
	}
}

func TestTransferValidate(t *testing.T) {
	valid := Transfer{From: "alice", To: EscrowAccount, Amount: 5}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	for _, transfer := range []Transfer{
		{From: "alice", To: "alice", Amount: 1},
		{From: "", To: "bob", Amount: 1},
		{From: "alice", To: "Bob", Amount: 1},
	} {
		if err := transfer.Validate(); !errors.Is(err, ErrInvalidAccount) {
			t.Errorf("Validate(%+v) = %v, want ErrInvalidAccount", transfer, err)
		}
	}
}
