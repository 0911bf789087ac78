// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package puzzle

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/crossword/lib/token"
)

// ErrInvalidStateTransition is returned when an operation is attempted
// against a record that is not in the operation's required source state.
var ErrInvalidStateTransition = errors.New("invalid state transition")

// State is the lifecycle position of a puzzle.
type State uint8

const (
	Unsolved State = iota
	Solved
	Claimed
)

var stateNames = [...]string{
	Unsolved: "unsolved",
	Solved:   "solved",
	Claimed:  "claimed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	if int(s) >= len(stateNames) {
		return nil, fmt.Errorf("puzzle: unknown state %d", uint8(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	for value, name := range stateNames {
		if name == string(text) {
			*s = State(value)
			return nil
		}
	}
	return fmt.Errorf("puzzle: unknown state %q", text)
}

// Status is a State plus the data the state carries: the winning
// solver token when Solved, the claim memo when Claimed.
type Status struct {
	State  State        `json:"state"`
	Solver *token.Token `json:"solver,omitempty"`
	Memo   string       `json:"memo,omitempty"`
}

// UnsolvedStatus is the initial status of every record.
func UnsolvedStatus() Status {
	return Status{State: Unsolved}
}

// Solve transitions Unsolved to Solved{solver}.
func (s Status) Solve(solver token.Token) (Status, error) {
	switch s.State {
	case Unsolved:
		return Status{State: Solved, Solver: &solver}, nil
	case Solved:
		return s, fmt.Errorf("%w: already solved", ErrInvalidStateTransition)
	case Claimed:
		return s, fmt.Errorf("%w: already claimed", ErrInvalidStateTransition)
	default:
		return s, fmt.Errorf("%w: from %s", ErrInvalidStateTransition, s.State)
	}
}

// Claim transitions Solved{solver} to Claimed{memo}.
func (s Status) Claim(memo string) (Status, error) {
	switch s.State {
	case Solved:
		return Status{State: Claimed, Memo: memo}, nil
	case Unsolved:
		return s, fmt.Errorf("%w: not claimable: puzzle is unsolved", ErrInvalidStateTransition)
	case Claimed:
		return s, fmt.Errorf("%w: not claimable: already claimed", ErrInvalidStateTransition)
	default:
		return s, fmt.Errorf("%w: from %s", ErrInvalidStateTransition, s.State)
	}
}

// SolvedBy reports whether the status is Solved by exactly solver.
func (s Status) SolvedBy(solver token.Token) bool {
	return s.State == Solved && s.Solver != nil && *s.Solver == solver
}

func (s Status) String() string {
	switch s.State {
	case Solved:
		if s.Solver != nil {
			return fmt.Sprintf("solved{%s}", s.Solver)
		}
	case Claimed:
		return fmt.Sprintf("claimed{%q}", s.Memo)
	}
	return s.State.String()
}
