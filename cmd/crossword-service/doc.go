// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Crossword-service hosts the crossword escrow contract on a Unix
// socket.
//
// On startup it loads the YAML config (--config or CROSSWORD_CONFIG),
// opens the registry (SQLite at paths.database, or in memory when that
// is empty), funds the configured genesis accounts, and serves:
//
//   - status, inspect, balance: unauthenticated reads
//   - create, solve, claim: signed call envelopes; the signer is the
//     caller credential
//
// Prometheus metrics are served on service.metrics_address when set.
package main
