// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package puzzle defines the puzzle record and its lifecycle.
//
// A record moves strictly forward through three states:
//
//	Unsolved --Solve(solver)--> Solved{solver} --Claim(memo)--> Claimed{memo}
//
// Every other transition is rejected with ErrInvalidStateTransition.
// Claimed is terminal; records are never deleted.
//
// Dimensions and answers describe the crossword's shape for clients.
// They are carried through unmodified and never validated here.
package puzzle
