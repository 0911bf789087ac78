// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package token defines the authorization token: the Ed25519 public key
// that is both the registry's lookup key for a puzzle and the credential
// whose private half must sign a call for the call to be accepted.
//
// Tokens are compared for equality and used to verify signatures;
// nothing else about their structure is interpreted. The text form is
// "ed25519:" followed by 64 lowercase hex characters.
//
// # Answer-derived keys
//
// A puzzle's answer token is derived deterministically from the
// crossword solution, so the creator can publish the public half while
// anyone who solves the puzzle can recompute the private half
// offline. Crossword answers are low-entropy and the public key is
// published, so the normalized answer is stretched with argon2id before
// BLAKE3 key derivation produces the Ed25519 seed:
//
//	seed = BLAKE3-DeriveKey(context, argon2id(normalize(answer), salt))
//
// Normalization lowercases the answer and collapses runs of whitespace,
// so "Near  Protocol" and "near protocol" derive the same key.
package token
