// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens SQLite connection pools with the pragmas the
// registry store depends on, and runs transactions against them.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool. Callers either
// [Pool.Take] a connection and [Pool.Put] it back, or hand a function
// to [Pool.Write] or [Pool.Read], which borrow a connection and wrap
// the function in a transaction.
//
// # Pragmas
//
//   - journal_mode=WAL: readers never block the single writer.
//   - synchronous: FULL when Config.Durable is set, NORMAL otherwise.
//     NORMAL survives process crashes but not power loss.
//   - busy_timeout=5000: wait up to 5 seconds for the write lock.
//   - foreign_keys=OFF: the registry maintains its own invariants.
//   - cache_size=-8192: 8 MB page cache per connection.
//   - temp_store=MEMORY.
//
// # Usage
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:    "/var/lib/crossword/registry.db",
//	    Durable: true,
//	    Logger:  logger,
//	    OnConnect: func(conn *sqlite.Conn) error {
//	        return sqlitex.ExecuteScript(conn, schema, nil)
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	err = pool.Write(ctx, func(conn *sqlite.Conn) error {
//	    return sqlitex.Execute(conn, "UPDATE ...", nil)
//	})
package sqlitepool
