// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Crossword is the command-line client for crossword-service.
//
// Creators fund puzzles from an account key, solvers prove the answer
// by signing with the key derived from it, and winners claim the
// escrowed reward with the fresh token they named when solving. Key
// files are passphrase-sealed with age; answers and passphrases are
// read without echo when stdin is a terminal.
package main
