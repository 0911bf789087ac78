// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitestore

// schema runs on every new connection. Tokens are stored in their
// "ed25519:<hex>" text form and timestamps as Unix nanoseconds, NULL
// when unset. Puzzle metadata is zstd-compressed CBOR.
const schema = `
CREATE TABLE IF NOT EXISTS puzzles (
	key        TEXT PRIMARY KEY,
	state      TEXT NOT NULL,
	solver     TEXT,
	memo       TEXT NOT NULL DEFAULT '',
	reward     INTEGER NOT NULL CHECK (reward >= 0),
	creator    TEXT NOT NULL,
	metadata   BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	solved_at  INTEGER,
	claimed_at INTEGER
) STRICT;

CREATE TABLE IF NOT EXISTS capabilities (
	token      TEXT PRIMARY KEY,
	id         TEXT NOT NULL UNIQUE,
	operation  TEXT NOT NULL,
	puzzle     TEXT NOT NULL,
	granted_at INTEGER NOT NULL,
	revoked_at INTEGER
) STRICT;

CREATE INDEX IF NOT EXISTS capabilities_by_puzzle ON capabilities (puzzle);

CREATE TABLE IF NOT EXISTS accounts (
	name    TEXT PRIMARY KEY,
	balance INTEGER NOT NULL CHECK (balance >= 0)
) STRICT;

-- One row per account that received its opening credit.
CREATE TABLE IF NOT EXISTS credits (
	account TEXT PRIMARY KEY,
	amount  INTEGER NOT NULL CHECK (amount >= 0)
) STRICT;

CREATE TABLE IF NOT EXISTS account_keys (
	key     TEXT PRIMARY KEY,
	account TEXT NOT NULL
) STRICT;

CREATE TABLE IF NOT EXISTS transfers (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	source      TEXT NOT NULL,
	destination TEXT NOT NULL,
	amount      INTEGER NOT NULL CHECK (amount >= 0),
	memo        TEXT NOT NULL DEFAULT '',
	at          INTEGER NOT NULL
) STRICT;

CREATE INDEX IF NOT EXISTS transfers_by_source ON transfers (source);
CREATE INDEX IF NOT EXISTS transfers_by_destination ON transfers (destination);
`
