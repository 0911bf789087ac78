// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package crossword

import (
	"github.com/bureau-foundation/crossword/lib/ledger"
	"github.com/bureau-foundation/crossword/lib/puzzle"
	"github.com/bureau-foundation/crossword/lib/token"
)

// Socket actions served by crossword-service.
const (
	ActionStatus  = "status"
	ActionCreate  = "create"
	ActionSolve   = "solve"
	ActionClaim   = "claim"
	ActionInspect = "inspect"
	ActionBalance = "balance"
)

// CreateArgs are the signed arguments of a create call. The signer is
// the creator's account key.
type CreateArgs struct {
	AnswerToken token.Token     `cbor:"answer_token" json:"answer_token"`
	Reward      ledger.Amount   `cbor:"reward" json:"reward"`
	Metadata    puzzle.Metadata `cbor:"metadata" json:"metadata"`
}

// SolveArgs are the signed arguments of a solve call. The signer is
// the answer key.
type SolveArgs struct {
	NewToken token.Token `cbor:"new_token" json:"new_token"`
}

// ClaimArgs are the signed arguments of a claim call. The signer is
// the solver token named in SolveArgs.
type ClaimArgs struct {
	Receiver ledger.Account `cbor:"receiver" json:"receiver"`
	Memo     string         `cbor:"memo,omitempty" json:"memo,omitempty"`
}

// InspectRequest names the puzzle to read.
type InspectRequest struct {
	Puzzle token.Token `cbor:"puzzle" json:"puzzle"`
}

// BalanceRequest names the account to read. History adds its
// transfers to the response.
type BalanceRequest struct {
	Account ledger.Account `cbor:"account" json:"account"`
	History bool           `cbor:"history,omitempty" json:"history,omitempty"`
}

// PuzzleResponse is returned by create, solve, claim, and inspect.
type PuzzleResponse struct {
	Puzzle token.Token   `cbor:"puzzle" json:"puzzle"`
	Record puzzle.Record `cbor:"record" json:"record"`
}

// BalanceResponse is returned by balance.
type BalanceResponse struct {
	Account   ledger.Account    `cbor:"account" json:"account"`
	Balance   ledger.Amount     `cbor:"balance" json:"balance"`
	Transfers []ledger.Transfer `cbor:"transfers,omitempty" json:"transfers,omitempty"`
}

// StatusResponse is returned by status.
type StatusResponse struct {
	Version       string        `cbor:"version" json:"version"`
	Store         string        `cbor:"store" json:"store"`
	UptimeSeconds float64       `cbor:"uptime_seconds" json:"uptime_seconds"`
	Escrowed      ledger.Amount `cbor:"escrowed" json:"escrowed"`
}
