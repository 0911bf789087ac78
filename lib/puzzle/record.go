// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package puzzle

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/bureau-foundation/crossword/lib/ledger"
)

// Coordinate is a cell position. The origin (0, 0) is the top left
// of the grid.
type Coordinate struct {
	X uint8 `json:"x"`
	Y uint8 `json:"y"`
}

// Direction is the orientation of an answer in the grid.
type Direction uint8

const (
	Across Direction = iota
	Down
)

func (d Direction) String() string {
	switch d {
	case Across:
		return "Across"
	case Down:
		return "Down"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	switch d {
	case Across, Down:
		return []byte(d.String()), nil
	}
	return nil, fmt.Errorf("puzzle: unknown direction %d", uint8(d))
}

// UnmarshalText implements encoding.TextUnmarshaler. Accepts "Across"
// and "Down" as published by puzzle authoring tools.
func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Across":
		*d = Across
	case "Down":
		*d = Down
	default:
		return fmt.Errorf("puzzle: unknown direction %q", text)
	}
	return nil
}

// Answer describes where one answer sits in the grid.
type Answer struct {
	Num       uint8      `json:"num"`
	Start     Coordinate `json:"start"`
	Direction Direction  `json:"direction"`
	Length    uint8      `json:"length"`
	Clue      string     `json:"clue,omitempty"`
}

// Metadata is the creator-supplied shape of a puzzle: grid size and
// answer placements. Opaque to the contract.
type Metadata struct {
	Dimensions Coordinate `json:"dimensions"`
	Answers    []Answer   `json:"answers,omitempty"`
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	return Metadata{Dimensions: m.Dimensions, Answers: slices.Clone(m.Answers)}
}

// ErrInvalidLayout is returned by Metadata.Validate.
var ErrInvalidLayout = errors.New("puzzle: invalid layout")

// Validate checks that every answer starts inside the grid, has a
// nonzero length, and ends inside the grid.
func (m Metadata) Validate() error {
	if m.Dimensions.X == 0 || m.Dimensions.Y == 0 {
		return fmt.Errorf("%w: empty grid %dx%d", ErrInvalidLayout, m.Dimensions.X, m.Dimensions.Y)
	}
	for _, answer := range m.Answers {
		if answer.Length == 0 {
			return fmt.Errorf("%w: %d %s has zero length", ErrInvalidLayout, answer.Num, answer.Direction)
		}
		// line is the row (Across) or column (Down) the answer sits
		// in; offset and span run along it.
		line, lines := answer.Start.X, m.Dimensions.X
		offset, span := int(answer.Start.Y), int(m.Dimensions.Y)
		if answer.Direction == Across {
			line, lines = answer.Start.Y, m.Dimensions.Y
			offset, span = int(answer.Start.X), int(m.Dimensions.X)
		}
		if line >= lines {
			return fmt.Errorf("%w: %d %s starts outside the grid", ErrInvalidLayout, answer.Num, answer.Direction)
		}
		if offset+int(answer.Length) > span {
			return fmt.Errorf("%w: %d %s runs past the grid edge", ErrInvalidLayout, answer.Num, answer.Direction)
		}
	}
	return nil
}

// Record is one puzzle's registry entry.
type Record struct {
	Status  Status         `json:"status"`
	Reward  ledger.Amount  `json:"reward"`
	Creator ledger.Account `json:"creator"`
	Metadata

	CreatedAt time.Time `json:"created_at"`
	SolvedAt  time.Time `json:"solved_at,omitzero"`
	ClaimedAt time.Time `json:"claimed_at,omitzero"`
}

// NewRecord returns an Unsolved record.
func NewRecord(creator ledger.Account, reward ledger.Amount, metadata Metadata, createdAt time.Time) Record {
	return Record{
		Status:    UnsolvedStatus(),
		Reward:    reward,
		Creator:   creator,
		Metadata:  metadata.Clone(),
		CreatedAt: createdAt,
	}
}

// Clone returns a deep copy, so stores can hand out records without
// sharing the answers slice or the solver pointer.
func (r Record) Clone() Record {
	clone := r
	clone.Metadata = r.Metadata.Clone()
	if r.Status.Solver != nil {
		solver := *r.Status.Solver
		clone.Status.Solver = &solver
	}
	return clone
}
