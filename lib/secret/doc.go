// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds private key material and passphrases outside the
// Go heap.
//
// A [Buffer] is an anonymous mmap region, mlock'd against swap and
// marked MADV_DONTDUMP. Close zeroes, unlocks, and unmaps it; any read
// after Close panics. The crossword CLI keeps Ed25519 seeds and keystore
// passphrases in Buffers for the lifetime of a command.
//
// Depends on golang.org/x/sys/unix only.
package secret
