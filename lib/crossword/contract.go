// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package crossword

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/crossword/lib/capability"
	"github.com/bureau-foundation/crossword/lib/clock"
	"github.com/bureau-foundation/crossword/lib/ledger"
	"github.com/bureau-foundation/crossword/lib/puzzle"
	"github.com/bureau-foundation/crossword/lib/registry"
	"github.com/bureau-foundation/crossword/lib/token"
)

// Config holds the contract's collaborators. Store is required.
type Config struct {
	Store registry.Store

	// Clock stamps records and capabilities. Defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to a discarding logger.
	Logger *slog.Logger

	// Registerer receives the contract's metrics. If nil the metrics
	// are registered with a private registry and never exported.
	Registerer prometheus.Registerer
}

// Contract serves the escrow's entry points. Safe for concurrent use.
type Contract struct {
	store   registry.Store
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics

	// mu serializes mutating entry points. Reads go straight to the
	// store, which gives them a consistent snapshot.
	mu sync.Mutex
}

// New creates a contract over cfg.Store.
func New(cfg Config) (*Contract, error) {
	if cfg.Store == nil {
		return nil, errors.New("crossword: Store is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.NewRegistry()
	}
	return &Contract{
		store:   cfg.Store,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		metrics: newMetrics(cfg.Registerer),
	}, nil
}

// CreateRequest is the argument to Create.
type CreateRequest struct {
	// Creator is the verified signer of the create call. It must be a
	// key registered to an account; that account funds the reward.
	Creator token.Token

	// AnswerToken is the public key derived from the solution. It
	// becomes the puzzle's registry key and the holder of the solve
	// capability.
	AnswerToken token.Token

	// Reward is moved from the creator's account into escrow.
	Reward ledger.Amount

	Metadata puzzle.Metadata
}

// Create registers an Unsolved puzzle keyed by req.AnswerToken, grants
// the answer token the solve capability, and escrows the reward.
func (c *Contract) Create(ctx context.Context, req CreateRequest) (record puzzle.Record, err error) {
	start := time.Now()
	defer func() { c.metrics.observe("create", start, err) }()
	c.mu.Lock()
	defer c.mu.Unlock()

	if req.AnswerToken.IsZero() {
		return puzzle.Record{}, fmt.Errorf("create: %w: zero answer token", ErrInvalidArgument)
	}

	now := c.clock.Now()
	var escrowed ledger.Amount
	err = c.store.Update(ctx, func(tx registry.Tx) error {
		creator, err := tx.AccountForKey(req.Creator)
		if errors.Is(err, registry.ErrRecordNotFound) {
			return fmt.Errorf("create: %w: %s", ErrUnknownSigner, req.Creator)
		}
		if err != nil {
			return err
		}

		record = puzzle.NewRecord(creator, req.Reward, req.Metadata, now)
		if err := tx.InsertPuzzle(req.AnswerToken, record); err != nil {
			return fmt.Errorf("create: %w", err)
		}

		grant, err := capability.New(req.AnswerToken, capability.Solve, req.AnswerToken, now)
		if err != nil {
			return err
		}
		if err := tx.GrantCapability(grant); err != nil {
			return fmt.Errorf("create: %w", err)
		}

		err = tx.Transfer(ledger.Transfer{
			From:   creator,
			To:     ledger.EscrowAccount,
			Amount: req.Reward,
			Memo:   "escrow " + req.AnswerToken.String(),
			At:     now,
		})
		if err != nil {
			return fmt.Errorf("create: escrowing reward: %w", err)
		}

		escrowed, err = tx.Balance(ledger.EscrowAccount)
		return err
	})
	if err != nil {
		return puzzle.Record{}, err
	}

	c.metrics.setEscrowed(escrowed)
	c.metrics.transitions.WithLabelValues(puzzle.Unsolved.String()).Inc()
	c.logger.Info("puzzle created",
		"puzzle", req.AnswerToken.String(),
		"creator", record.Creator,
		"reward", uint64(record.Reward),
		"answers", len(record.Answers),
	)
	return record, nil
}

// Solve marks the puzzle whose solve capability caller holds as
// Solved{newToken}. The caller's capability is revoked and newToken
// is granted the claim capability for the same puzzle.
func (c *Contract) Solve(ctx context.Context, caller, newToken token.Token) (record puzzle.Record, err error) {
	start := time.Now()
	defer func() { c.metrics.observe("solve", start, err) }()
	c.mu.Lock()
	defer c.mu.Unlock()

	if newToken.IsZero() {
		return puzzle.Record{}, fmt.Errorf("solve: %w: zero new token", ErrInvalidArgument)
	}

	now := c.clock.Now()
	var key token.Token
	err = c.store.Update(ctx, func(tx registry.Tx) error {
		var grant capability.Capability
		var err error
		key, grant, record, err = resolve(tx, caller)
		if err != nil {
			return fmt.Errorf("solve: %w", err)
		}

		next, err := record.Status.Solve(newToken)
		if err != nil {
			return fmt.Errorf("solve: %w", err)
		}
		if err := capability.Check(grant, capability.Solve, key); err != nil {
			return fmt.Errorf("solve: %w", err)
		}

		if err := tx.RevokeCapability(caller, now); err != nil {
			return fmt.Errorf("solve: %w", err)
		}
		claimGrant, err := capability.New(newToken, capability.Claim, key, now)
		if err != nil {
			return err
		}
		if err := tx.GrantCapability(claimGrant); err != nil {
			return fmt.Errorf("solve: new token: %w", err)
		}

		record.Status = next
		record.SolvedAt = now
		return tx.UpdatePuzzle(key, record)
	})
	if err != nil {
		return puzzle.Record{}, err
	}

	c.metrics.transitions.WithLabelValues(puzzle.Solved.String()).Inc()
	c.logger.Info("puzzle solved",
		"puzzle", key.String(),
		"solver", newToken.String(),
	)
	return record, nil
}

// Claim pays the reward of the puzzle caller solved to receiver and
// marks it Claimed{memo}. caller must be the new token the winning
// Solve call supplied.
func (c *Contract) Claim(ctx context.Context, caller token.Token, receiver ledger.Account, memo string) (record puzzle.Record, err error) {
	start := time.Now()
	defer func() { c.metrics.observe("claim", start, err) }()
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := receiver.Validate(); err != nil {
		return puzzle.Record{}, fmt.Errorf("claim: receiver: %w", err)
	}
	if receiver == ledger.EscrowAccount {
		return puzzle.Record{}, fmt.Errorf("claim: %w: receiver is the escrow account", ErrInvalidArgument)
	}

	now := c.clock.Now()
	var (
		key      token.Token
		escrowed ledger.Amount
	)
	err = c.store.Update(ctx, func(tx registry.Tx) error {
		var grant capability.Capability
		var err error
		key, grant, record, err = resolve(tx, caller)
		if err != nil {
			return fmt.Errorf("claim: %w", err)
		}

		next, err := record.Status.Claim(memo)
		if err != nil {
			return fmt.Errorf("claim: %w", err)
		}
		if err := capability.Check(grant, capability.Claim, key); err != nil {
			return fmt.Errorf("claim: %w", err)
		}
		if !record.Status.SolvedBy(caller) {
			return fmt.Errorf("claim: %w: caller is not the recorded solver", ErrCapabilityMismatch)
		}

		if err := tx.RevokeCapability(caller, now); err != nil {
			return fmt.Errorf("claim: %w", err)
		}
		record.Status = next
		record.ClaimedAt = now
		if err := tx.UpdatePuzzle(key, record); err != nil {
			return err
		}

		err = tx.Transfer(ledger.Transfer{
			From:   ledger.EscrowAccount,
			To:     receiver,
			Amount: record.Reward,
			Memo:   memo,
			At:     now,
		})
		if err != nil {
			return fmt.Errorf("claim: paying reward: %w", err)
		}

		escrowed, err = tx.Balance(ledger.EscrowAccount)
		return err
	})
	if err != nil {
		return puzzle.Record{}, err
	}

	c.metrics.setEscrowed(escrowed)
	c.metrics.transitions.WithLabelValues(puzzle.Claimed.String()).Inc()
	c.logger.Info("puzzle claimed",
		"puzzle", key.String(),
		"receiver", receiver,
		"reward", uint64(record.Reward),
		"memo", memo,
	)
	return record, nil
}

// resolve finds the puzzle a credential refers to through its
// capability row. Revoked rows still resolve, so a replayed call is
// rejected by the lifecycle or the capability check rather than
// reported as unknown.
func resolve(tx registry.ReadTx, caller token.Token) (token.Token, capability.Capability, puzzle.Record, error) {
	grant, err := tx.Capability(caller)
	if errors.Is(err, registry.ErrRecordNotFound) {
		return token.Token{}, capability.Capability{}, puzzle.Record{}, fmt.Errorf("no matching puzzle: %w", ErrRecordNotFound)
	}
	if err != nil {
		return token.Token{}, capability.Capability{}, puzzle.Record{}, err
	}
	record, err := tx.Puzzle(grant.Puzzle)
	if err != nil {
		return token.Token{}, capability.Capability{}, puzzle.Record{}, fmt.Errorf("no matching puzzle: %w", err)
	}
	return grant.Puzzle, grant, record, nil
}

// Inspect returns the record registered under key. Read-only.
func (c *Contract) Inspect(ctx context.Context, key token.Token) (record puzzle.Record, err error) {
	start := time.Now()
	defer func() { c.metrics.observe("inspect", start, err) }()

	err = c.store.View(ctx, func(tx registry.ReadTx) error {
		record, err = tx.Puzzle(key)
		return err
	})
	if errors.Is(err, registry.ErrRecordNotFound) {
		return puzzle.Record{}, fmt.Errorf("inspect: no matching puzzle: %w", err)
	}
	if err != nil {
		return puzzle.Record{}, err
	}
	c.logger.Debug("puzzle inspected",
		"puzzle", key.String(),
		"status", record.Status.String(),
		"reward", uint64(record.Reward),
	)
	return record, nil
}

// PuzzleFor returns the key of the puzzle holder's capability refers
// to. Revoked capabilities still resolve.
func (c *Contract) PuzzleFor(ctx context.Context, holder token.Token) (key token.Token, err error) {
	err = c.store.View(ctx, func(tx registry.ReadTx) error {
		grant, err := tx.Capability(holder)
		if err != nil {
			return err
		}
		key = grant.Puzzle
		return nil
	})
	if errors.Is(err, registry.ErrRecordNotFound) {
		return token.Token{}, fmt.Errorf("no matching puzzle: %w", err)
	}
	return key, err
}

// Balance returns an account's balance. Unknown accounts have zero.
func (c *Contract) Balance(ctx context.Context, account ledger.Account) (balance ledger.Amount, err error) {
	start := time.Now()
	defer func() { c.metrics.observe("balance", start, err) }()

	if err := account.Validate(); err != nil {
		return 0, err
	}
	err = c.store.View(ctx, func(tx registry.ReadTx) error {
		balance, err = tx.Balance(account)
		return err
	})
	return balance, err
}

// History returns the transfers into and out of account, oldest first.
func (c *Contract) History(ctx context.Context, account ledger.Account) (transfers []ledger.Transfer, err error) {
	if err := account.Validate(); err != nil {
		return nil, err
	}
	err = c.store.View(ctx, func(tx registry.ReadTx) error {
		transfers, err = tx.Transfers(account)
		return err
	})
	return transfers, err
}

// GenesisAccount is an account funded when the host starts.
type GenesisAccount struct {
	Account ledger.Account
	Key     token.Token
	Balance ledger.Amount
}

// Genesis binds each account's key and credits its opening balance.
// An account is credited once over the life of the store, whatever key
// it is configured with, so rerunning Genesis after a restart or a key
// rotation issues no new value.
func (c *Contract) Genesis(ctx context.Context, accounts []GenesisAccount) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var funded []GenesisAccount
	err := c.store.Update(ctx, func(tx registry.Tx) error {
		for _, account := range accounts {
			if account.Account == ledger.EscrowAccount {
				return fmt.Errorf("genesis: %w: %s is reserved", ErrInvalidArgument, account.Account)
			}
			bound, err := tx.AccountForKey(account.Key)
			switch {
			case err == nil && bound != account.Account:
				return fmt.Errorf("genesis: key for %s: %w: bound to %s", account.Account, ErrTokenInUse, bound)
			case err == nil:
			case errors.Is(err, registry.ErrRecordNotFound):
				if err := tx.RegisterKey(account.Key, account.Account); err != nil {
					return fmt.Errorf("genesis: %w", err)
				}
			default:
				return err
			}

			alreadyFunded, err := tx.Funded(account.Account)
			if err != nil {
				return err
			}
			if alreadyFunded {
				continue
			}
			if err := tx.Credit(account.Account, account.Balance); err != nil {
				return fmt.Errorf("genesis: crediting %s: %w", account.Account, err)
			}
			funded = append(funded, account)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, account := range funded {
		c.logger.Info("genesis account funded",
			"account", account.Account,
			"key", account.Key.String(),
			"balance", uint64(account.Balance),
		)
	}
	return nil
}
