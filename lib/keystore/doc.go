// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package keystore stores Ed25519 signing keys in passphrase-encrypted
// files.
//
// A key file is ASCII-armored age ciphertext sealed to an scrypt
// recipient. The plaintext is a CBOR map holding a format version, the
// 32-byte Ed25519 seed, and an optional label. Decrypted seeds live in a
// [secret.Buffer] until the [Key] is closed.
//
// The crossword CLI keeps one file per account key and one per solver
// token. Answer keys are never stored: they are re-derived from the
// answer with [token.DeriveFromAnswer].
package keystore
