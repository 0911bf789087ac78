// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitestore is the persistent registry.Store. Each Update
// runs in one BEGIN IMMEDIATE transaction, so a contract call's record
// mutation, capability rotation, and value transfer reach disk
// together or not at all.
package sqlitestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/crossword/lib/capability"
	"github.com/bureau-foundation/crossword/lib/codec"
	"github.com/bureau-foundation/crossword/lib/ledger"
	"github.com/bureau-foundation/crossword/lib/puzzle"
	"github.com/bureau-foundation/crossword/lib/registry"
	"github.com/bureau-foundation/crossword/lib/sqlitepool"
	"github.com/bureau-foundation/crossword/lib/token"
)

// Config holds the parameters for Open.
type Config struct {
	// Path is the database file.
	Path string

	// PoolSize is passed to sqlitepool.
	PoolSize int

	// Durable selects synchronous=FULL.
	Durable bool

	Logger *slog.Logger
}

// Store is a registry.Store backed by SQLite.
type Store struct {
	pool    *sqlitepool.Pool
	encoder *zstd.Encoder
	decoder *zstd.Decoder

	closeOnce sync.Once
	closeErr  error
}

var _ registry.Store = (*Store)(nil)

// Open opens or creates the database at cfg.Path.
func Open(cfg Config) (*Store, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("sqlitestore: zstd decoder: %w", err)
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
		Durable:  cfg.Durable,
		Logger:   cfg.Logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		encoder.Close()
		decoder.Close()
		return nil, err
	}

	return &Store{pool: pool, encoder: encoder, decoder: decoder}, nil
}

func (s *Store) View(ctx context.Context, fn func(registry.ReadTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.pool.Read(ctx, func(conn *sqlite.Conn) error {
		return fn(&tx{store: s, conn: conn})
	})
}

func (s *Store) Update(ctx context.Context, fn func(registry.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		return fn(&tx{store: s, conn: conn})
	})
}

func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.pool.Close()
		s.encoder.Close()
		s.decoder.Close()
	})
	return s.closeErr
}

func (s *Store) encodeMetadata(metadata puzzle.Metadata) ([]byte, error) {
	raw, err := codec.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	return s.encoder.EncodeAll(raw, nil), nil
}

func (s *Store) decodeMetadata(blob []byte) (puzzle.Metadata, error) {
	raw, err := s.decoder.DecodeAll(blob, nil)
	if err != nil {
		return puzzle.Metadata{}, fmt.Errorf("decompressing metadata: %w", err)
	}
	var metadata puzzle.Metadata
	if err := codec.Unmarshal(raw, &metadata); err != nil {
		return puzzle.Metadata{}, fmt.Errorf("decoding metadata: %w", err)
	}
	return metadata, nil
}

// nanos maps the zero time to NULL.
func nanos(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UnixNano()
}

func columnTime(stmt *sqlite.Stmt, col int) time.Time {
	if stmt.ColumnIsNull(col) {
		return time.Time{}
	}
	return time.Unix(0, stmt.ColumnInt64(col)).UTC()
}

func columnBlob(stmt *sqlite.Stmt, col int) []byte {
	buf := make([]byte, stmt.ColumnLen(col))
	stmt.ColumnBytes(col, buf)
	return buf
}

// tx implements registry.Tx over a connection that is already inside a
// transaction. The read-only methods are also used by View.
type tx struct {
	store *Store
	conn  *sqlite.Conn
}

// exists reports whether query with args returns at least one row.
func (t *tx) exists(query string, args ...any) (bool, error) {
	found := false
	err := sqlitex.Execute(t.conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(*sqlite.Stmt) error {
			found = true
			return nil
		},
	})
	return found, err
}

func (t *tx) Puzzle(key token.Token) (puzzle.Record, error) {
	var (
		record puzzle.Record
		blob   []byte
		found  bool
		err    error
	)
	err = sqlitex.Execute(t.conn, `
		SELECT state, solver, memo, reward, creator, metadata, created_at, solved_at, claimed_at
		FROM puzzles WHERE key = ?`, &sqlitex.ExecOptions{
		Args: []any{key.String()},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			if err := record.Status.State.UnmarshalText([]byte(stmt.ColumnText(0))); err != nil {
				return err
			}
			if !stmt.ColumnIsNull(1) {
				solver, err := token.Parse(stmt.ColumnText(1))
				if err != nil {
					return fmt.Errorf("solver column: %w", err)
				}
				record.Status.Solver = &solver
			}
			record.Status.Memo = stmt.ColumnText(2)
			record.Reward = ledger.Amount(stmt.ColumnInt64(3))
			record.Creator = ledger.Account(stmt.ColumnText(4))
			blob = columnBlob(stmt, 5)
			record.CreatedAt = columnTime(stmt, 6)
			record.SolvedAt = columnTime(stmt, 7)
			record.ClaimedAt = columnTime(stmt, 8)
			return nil
		},
	})
	if err != nil {
		return puzzle.Record{}, fmt.Errorf("reading puzzle %s: %w", key, err)
	}
	if !found {
		return puzzle.Record{}, fmt.Errorf("puzzle %s: %w", key, registry.ErrRecordNotFound)
	}
	record.Metadata, err = t.store.decodeMetadata(blob)
	if err != nil {
		return puzzle.Record{}, fmt.Errorf("puzzle %s: %w", key, err)
	}
	return record, nil
}

// puzzleArgs returns the column values for record, in schema order
// after key.
func (t *tx) puzzleArgs(record puzzle.Record) ([]any, error) {
	blob, err := t.store.encodeMetadata(record.Metadata)
	if err != nil {
		return nil, err
	}
	var solver any
	if record.Status.Solver != nil {
		solver = record.Status.Solver.String()
	}
	return []any{
		record.Status.State.String(),
		solver,
		record.Status.Memo,
		int64(record.Reward),
		string(record.Creator),
		blob,
		nanos(record.CreatedAt),
		nanos(record.SolvedAt),
		nanos(record.ClaimedAt),
	}, nil
}

func (t *tx) InsertPuzzle(key token.Token, record puzzle.Record) error {
	if record.Reward > ledger.MaxAmount {
		return fmt.Errorf("puzzle %s: %w: reward %d", key, ledger.ErrAmountOverflow, record.Reward)
	}
	present, err := t.exists("SELECT 1 FROM puzzles WHERE key = ?", key.String())
	if err != nil {
		return fmt.Errorf("checking puzzle %s: %w", key, err)
	}
	if present {
		return fmt.Errorf("puzzle %s: %w", key, registry.ErrDuplicateRecord)
	}
	args, err := t.puzzleArgs(record)
	if err != nil {
		return err
	}
	err = sqlitex.Execute(t.conn, `
		INSERT INTO puzzles (key, state, solver, memo, reward, creator, metadata, created_at, solved_at, claimed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: append([]any{key.String()}, args...),
	})
	if err != nil {
		return fmt.Errorf("inserting puzzle %s: %w", key, err)
	}
	return nil
}

func (t *tx) UpdatePuzzle(key token.Token, record puzzle.Record) error {
	args, err := t.puzzleArgs(record)
	if err != nil {
		return err
	}
	err = sqlitex.Execute(t.conn, `
		UPDATE puzzles SET state = ?, solver = ?, memo = ?, reward = ?, creator = ?, metadata = ?,
			created_at = ?, solved_at = ?, claimed_at = ?
		WHERE key = ?`, &sqlitex.ExecOptions{
		Args: append(args, key.String()),
	})
	if err != nil {
		return fmt.Errorf("updating puzzle %s: %w", key, err)
	}
	if t.conn.Changes() == 0 {
		return fmt.Errorf("puzzle %s: %w", key, registry.ErrRecordNotFound)
	}
	return nil
}

func (t *tx) Capability(holder token.Token) (capability.Capability, error) {
	var (
		grant    capability.Capability
		found    bool
		parseErr error
	)
	err := sqlitex.Execute(t.conn, `
		SELECT id, operation, puzzle, granted_at, revoked_at
		FROM capabilities WHERE token = ?`, &sqlitex.ExecOptions{
		Args: []any{holder.String()},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			grant.Token = holder
			grant.ID, parseErr = uuid.Parse(stmt.ColumnText(0))
			if parseErr != nil {
				return parseErr
			}
			grant.Operation = capability.Operation(stmt.ColumnText(1))
			grant.Puzzle, parseErr = token.Parse(stmt.ColumnText(2))
			if parseErr != nil {
				return parseErr
			}
			grant.GrantedAt = columnTime(stmt, 3)
			grant.RevokedAt = columnTime(stmt, 4)
			return nil
		},
	})
	if err != nil {
		return capability.Capability{}, fmt.Errorf("reading capability for %s: %w", holder, err)
	}
	if !found {
		return capability.Capability{}, fmt.Errorf("capability for %s: %w", holder, registry.ErrRecordNotFound)
	}
	return grant, nil
}

func (t *tx) GrantCapability(grant capability.Capability) error {
	if grant.GrantedAt.IsZero() || !grant.Active() {
		return fmt.Errorf("grant %s: %w", grant.Token, capability.ErrZeroTime)
	}
	holder := grant.Token.String()
	granted, err := t.exists("SELECT 1 FROM capabilities WHERE token = ?", holder)
	if err != nil {
		return fmt.Errorf("checking capability %s: %w", holder, err)
	}
	if granted {
		return fmt.Errorf("grant %s: %w", holder, registry.ErrTokenInUse)
	}
	bound, err := t.exists("SELECT 1 FROM account_keys WHERE key = ?", holder)
	if err != nil {
		return fmt.Errorf("checking account key %s: %w", holder, err)
	}
	if bound {
		return fmt.Errorf("grant %s: token is an account key: %w", holder, registry.ErrTokenInUse)
	}
	err = sqlitex.Execute(t.conn, `
		INSERT INTO capabilities (token, id, operation, puzzle, granted_at, revoked_at)
		VALUES (?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			holder,
			grant.ID.String(),
			string(grant.Operation),
			grant.Puzzle.String(),
			grant.GrantedAt.UnixNano(),
			nanos(grant.RevokedAt),
		},
	})
	if err != nil {
		return fmt.Errorf("granting %s: %w", holder, err)
	}
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
	err = sqlitex.Execute(t.conn, "UPDATE capabilities SET revoked_at = ? WHERE token = ?", &sqlitex.ExecOptions{
		Args: []any{at.UnixNano(), holder.String()},
	})
	if err != nil {
		return fmt.Errorf("revoking %s: %w", holder, err)
	}
	return nil
}

func (t *tx) Balance(account ledger.Account) (ledger.Amount, error) {
	var balance ledger.Amount
	err := sqlitex.Execute(t.conn, "SELECT balance FROM accounts WHERE name = ?", &sqlitex.ExecOptions{
		Args: []any{string(account)},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			balance = ledger.Amount(stmt.ColumnInt64(0))
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("reading balance of %s: %w", account, err)
	}
	return balance, nil
}

func (t *tx) setBalance(account ledger.Account, balance ledger.Amount) error {
	err := sqlitex.Execute(t.conn, `
		INSERT INTO accounts (name, balance) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET balance = excluded.balance`, &sqlitex.ExecOptions{
		Args: []any{string(account), int64(balance)},
	})
	if err != nil {
		return fmt.Errorf("writing balance of %s: %w", account, err)
	}
	return nil
}

func (t *tx) Transfer(transfer ledger.Transfer) error {
	if err := transfer.Validate(); err != nil {
		return err
	}
	from, err := t.Balance(transfer.From)
	if err != nil {
		return err
	}
	to, err := t.Balance(transfer.To)
	if err != nil {
		return err
	}
	from, to, err = ledger.Apply(from, to, transfer.Amount)
	if err != nil {
		return err
	}
	if err := t.setBalance(transfer.From, from); err != nil {
		return err
	}
	if err := t.setBalance(transfer.To, to); err != nil {
		return err
	}
	err = sqlitex.Execute(t.conn, `
		INSERT INTO transfers (source, destination, amount, memo, at) VALUES (?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{string(transfer.From), string(transfer.To), int64(transfer.Amount), transfer.Memo, transfer.At.UnixNano()},
	})
	if err != nil {
		return fmt.Errorf("recording transfer: %w", err)
	}
	return nil
}

func (t *tx) Credit(account ledger.Account, amount ledger.Amount) error {
	if err := account.Validate(); err != nil {
		return err
	}
	funded, err := t.Funded(account)
	if err != nil {
		return err
	}
	if funded {
		return fmt.Errorf("credit for %s: %w", account, registry.ErrDuplicateRecord)
	}
	balance, err := t.Balance(account)
	if err != nil {
		return err
	}
	if amount > ledger.MaxAmount-balance {
		return fmt.Errorf("%w: %d + %d", ledger.ErrAmountOverflow, balance, amount)
	}
	err = sqlitex.Execute(t.conn, "INSERT INTO credits (account, amount) VALUES (?, ?)", &sqlitex.ExecOptions{
		Args: []any{string(account), int64(amount)},
	})
	if err != nil {
		return fmt.Errorf("recording credit for %s: %w", account, err)
	}
	return t.setBalance(account, balance+amount)
}

func (t *tx) Funded(account ledger.Account) (bool, error) {
	funded, err := t.exists("SELECT 1 FROM credits WHERE account = ?", string(account))
	if err != nil {
		return false, fmt.Errorf("checking credit for %s: %w", account, err)
	}
	return funded, nil
}

func (t *tx) Transfers(account ledger.Account) ([]ledger.Transfer, error) {
	var transfers []ledger.Transfer
	err := sqlitex.Execute(t.conn, `
		SELECT source, destination, amount, memo, at FROM transfers
		WHERE source = ?1 OR destination = ?1
		ORDER BY id`, &sqlitex.ExecOptions{
		Args: []any{string(account)},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			transfers = append(transfers, ledger.Transfer{
				From:   ledger.Account(stmt.ColumnText(0)),
				To:     ledger.Account(stmt.ColumnText(1)),
				Amount: ledger.Amount(stmt.ColumnInt64(2)),
				Memo:   stmt.ColumnText(3),
				At:     columnTime(stmt, 4),
			})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("listing transfers of %s: %w", account, err)
	}
	return transfers, nil
}

func (t *tx) AccountForKey(key token.Token) (ledger.Account, error) {
	var (
		account ledger.Account
		found   bool
	)
	err := sqlitex.Execute(t.conn, "SELECT account FROM account_keys WHERE key = ?", &sqlitex.ExecOptions{
		Args: []any{key.String()},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			account = ledger.Account(stmt.ColumnText(0))
			found = true
			return nil
		},
	})
	if err != nil {
		return "", fmt.Errorf("reading account for key %s: %w", key, err)
	}
	if !found {
		return "", fmt.Errorf("account for key %s: %w", key, registry.ErrRecordNotFound)
	}
	return account, nil
}

func (t *tx) RegisterKey(key token.Token, account ledger.Account) error {
	if err := account.Validate(); err != nil {
		return err
	}
	existing, err := t.AccountForKey(key)
	switch {
	case err == nil && existing == account:
		return nil
	case err == nil:
		return fmt.Errorf("key %s is bound to %s: %w", key, existing, registry.ErrTokenInUse)
	case !errors.Is(err, registry.ErrRecordNotFound):
		return err
	}
	granted, err := t.exists("SELECT 1 FROM capabilities WHERE token = ?", key.String())
	if err != nil {
		return fmt.Errorf("checking capability %s: %w", key, err)
	}
	if granted {
		return fmt.Errorf("key %s was granted a capability: %w", key, registry.ErrTokenInUse)
	}
	err = sqlitex.Execute(t.conn, "INSERT INTO account_keys (key, account) VALUES (?, ?)", &sqlitex.ExecOptions{
		Args: []any{key.String(), string(account)},
	})
	if err != nil {
		return fmt.Errorf("registering key %s: %w", key, err)
	}
	return nil
}
