// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package crossword is the escrow contract: puzzle creators lock a
// reward behind a token derived from the puzzle's solution, the first
// party to prove the solution may claim the reward, and the claim pays
// out exactly once.
//
// Puzzles are keyed by capability tokens rather than identities. Each
// transition consumes the capability that authorized it and, for
// solve, mints the next one:
//
//	Create(answerToken) ──► Unsolved   grant(answerToken, solve)
//	Solve(newToken)     ──► Solved     revoke(answerToken), grant(newToken, claim)
//	Claim(receiver)     ──► Claimed    revoke(newToken), pay reward to receiver
//
// The status flip, the capability rotation, and any value transfer of
// a call happen in one registry transaction: a call either has all of
// its effects or none. Mutating calls are also serialized by a
// contract-wide lock, so the first valid solve wins and a racing
// second solve observes the Solved status.
//
// Callers are identified by the verified signer token of their call
// envelope (see lib/call). The contract never sees private keys.
package crossword
