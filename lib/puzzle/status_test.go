// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package puzzle

import (
	"errors"
	"strings"
	"testing"

	"github.com/bureau-foundation/crossword/lib/token"
)

func mustToken(t *testing.T) token.Token {
	t.Helper()
	tok, _, err := token.Generate()
	if err != nil {
		t.Fatalf("token.Generate: %v", err)
	}
	return tok
}

func TestLifecycleForward(t *testing.T) {
	solver := mustToken(t)

	status := UnsolvedStatus()
	solved, err := status.Solve(solver)
	if err != nil {
		t.Fatalf("Solve from Unsolved: %v", err)
	}
	if solved.State != Solved || !solved.SolvedBy(solver) {
		t.Fatalf("after Solve: %v, want solved by %s", solved, solver)
	}

	claimed, err := solved.Claim("done")
	if err != nil {
		t.Fatalf("Claim from Solved: %v", err)
	}
	if claimed.State != Claimed || claimed.Memo != "done" {
		t.Fatalf("after Claim: %v, want claimed{done}", claimed)
	}
	if claimed.Solver != nil {
		t.Errorf("claimed status still carries solver %s", claimed.Solver)
	}
}

func TestLifecycleRejectsIllegalTransitions(t *testing.T) {
	solver := mustToken(t)
	solved := Status{State: Solved, Solver: &solver}
	claimed := Status{State: Claimed, Memo: "m"}

	tests := []struct {
		name   string
		apply  func() (Status, error)
		from   Status
		reason string
	}{
		{"solve solved", func() (Status, error) { return solved.Solve(mustToken(t)) }, solved, "already solved"},
		{"solve claimed", func() (Status, error) { return claimed.Solve(solver) }, claimed, "already claimed"},
		{"claim unsolved", func() (Status, error) { return UnsolvedStatus().Claim("m") }, UnsolvedStatus(), "not claimable"},
		{"claim claimed", func() (Status, error) { return claimed.Claim("again") }, claimed, "not claimable"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := test.apply()
			if !errors.Is(err, ErrInvalidStateTransition) {
				t.Fatalf("error = %v, want ErrInvalidStateTransition", err)
			}
			if !strings.Contains(err.Error(), test.reason) {
				t.Errorf("error %q does not mention %q", err, test.reason)
			}
			if got.State != test.from.State || got.Memo != test.from.Memo {
				t.Errorf("rejected transition changed status: %v -> %v", test.from, got)
			}
		})
	}
}

func TestSolvedBy(t *testing.T) {
	solver := mustToken(t)
	other := mustToken(t)
	solved, err := UnsolvedStatus().Solve(solver)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if solved.SolvedBy(other) {
		t.Error("SolvedBy reports a different token")
	}
	if UnsolvedStatus().SolvedBy(solver) {
		t.Error("SolvedBy true for unsolved status")
	}
}

func TestStateText(t *testing.T) {
	for _, state := range []State{Unsolved, Solved, Claimed} {
		text, err := state.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d): %v", state, err)
		}
		var decoded State
		if err := decoded.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", text, err)
		}
		if decoded != state {
			t.Errorf("roundtrip %s -> %s", state, decoded)
		}
	}
	if _, err := State(9).MarshalText(); err == nil {
		t.Error("MarshalText accepted unknown state")
	}
	var decoded State
	if err := decoded.UnmarshalText([]byte("abandoned")); err == nil {
		t.Error("UnmarshalText accepted unknown state")
	}
}
