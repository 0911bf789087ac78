// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/crossword/lib/call"
	"github.com/bureau-foundation/crossword/lib/clock"
	"github.com/bureau-foundation/crossword/lib/codec"
	"github.com/bureau-foundation/crossword/lib/crossword"
	"github.com/bureau-foundation/crossword/lib/ledger"
	"github.com/bureau-foundation/crossword/lib/service"
	"github.com/bureau-foundation/crossword/lib/version"
)

// host adapts socket requests to contract entry points.
type host struct {
	contract  *crossword.Contract
	clock     clock.Clock
	startedAt time.Time
	storeKind string
	logger    *slog.Logger
}

// registerActions wires every action onto server. Reads are open;
// anything that moves value or changes a puzzle requires a signed call.
func (h *host) registerActions(server *service.SocketServer) {
	server.Handle(crossword.ActionStatus, h.handleStatus)
	server.Handle(crossword.ActionInspect, h.handleInspect)
	server.Handle(crossword.ActionBalance, h.handleBalance)

	server.HandleSigned(crossword.ActionCreate, h.handleCreate)
	server.HandleSigned(crossword.ActionSolve, h.handleSolve)
	server.HandleSigned(crossword.ActionClaim, h.handleClaim)
}

func (h *host) handleStatus(ctx context.Context, raw []byte) (any, error) {
	escrowed, err := h.contract.Balance(ctx, ledger.EscrowAccount)
	if err != nil {
		return nil, err
	}
	return crossword.StatusResponse{
		Version:       version.Info(),
		Store:         h.storeKind,
		UptimeSeconds: h.clock.Now().Sub(h.startedAt).Seconds(),
		Escrowed:      escrowed,
	}, nil
}

func (h *host) handleInspect(ctx context.Context, raw []byte) (any, error) {
	var request crossword.InspectRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid inspect request: %w", err)
	}
	if request.Puzzle.IsZero() {
		return nil, fmt.Errorf("missing required field: puzzle")
	}
	record, err := h.contract.Inspect(ctx, request.Puzzle)
	if err != nil {
		return nil, err
	}
	return crossword.PuzzleResponse{Puzzle: request.Puzzle, Record: record}, nil
}

func (h *host) handleBalance(ctx context.Context, raw []byte) (any, error) {
	var request crossword.BalanceRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid balance request: %w", err)
	}
	balance, err := h.contract.Balance(ctx, request.Account)
	if err != nil {
		return nil, err
	}
	response := crossword.BalanceResponse{Account: request.Account, Balance: balance}
	if request.History {
		response.Transfers, err = h.contract.History(ctx, request.Account)
		if err != nil {
			return nil, err
		}
	}
	return response, nil
}

func (h *host) handleCreate(ctx context.Context, payload *call.Payload) (any, error) {
	var args crossword.CreateArgs
	if err := payload.DecodeArgs(&args); err != nil {
		return nil, err
	}
	record, err := h.contract.Create(ctx, crossword.CreateRequest{
		Creator:     payload.Signer,
		AnswerToken: args.AnswerToken,
		Reward:      args.Reward,
		Metadata:    args.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return crossword.PuzzleResponse{Puzzle: args.AnswerToken, Record: record}, nil
}

// handleSolve treats the signer as the answer key. The answer key is
// also the puzzle key.
func (h *host) handleSolve(ctx context.Context, payload *call.Payload) (any, error) {
	var args crossword.SolveArgs
	if err := payload.DecodeArgs(&args); err != nil {
		return nil, err
	}
	record, err := h.contract.Solve(ctx, payload.Signer, args.NewToken)
	if err != nil {
		return nil, err
	}
	key, err := h.contract.PuzzleFor(ctx, payload.Signer)
	if err != nil {
		return nil, err
	}
	return crossword.PuzzleResponse{Puzzle: key, Record: record}, nil
}

func (h *host) handleClaim(ctx context.Context, payload *call.Payload) (any, error) {
	var args crossword.ClaimArgs
	if err := payload.DecodeArgs(&args); err != nil {
		return nil, err
	}
	record, err := h.contract.Claim(ctx, payload.Signer, args.Receiver, args.Memo)
	if err != nil {
		return nil, err
	}
	key, err := h.contract.PuzzleFor(ctx, payload.Signer)
	if err != nil {
		return nil, err
	}
	return crossword.PuzzleResponse{Puzzle: key, Record: record}, nil
}
