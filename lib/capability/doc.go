// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package capability defines the operation-scoped grants that gate the
// puzzle lifecycle.
//
// A capability binds one authorization token to exactly one operation
// on exactly one puzzle. The contract mints and revokes capabilities in
// the same store transaction as the record mutation they guard:
//
//   - create mints (answer token, solve) for the new puzzle;
//   - solve revokes the answer token's grant and mints
//     (solver token, claim) for the same puzzle;
//   - claim revokes the solver token's grant.
//
// Revoked capabilities stay in the table with RevokedAt set. A token is
// therefore granted at most once for its whole lifetime: a replayed
// call finds a revoked row and fails Check, and no later grant can
// resurrect the token.
package capability
