// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package call authenticates contract calls.
//
// A caller proves possession of a token's private key by signing the
// call itself. The envelope is a CBOR payload followed by a 64-byte
// Ed25519 signature:
//
//	[CBOR payload][64-byte signature]
//
// The payload names the operation, the signer token (the public key
// the signature verifies against), the CBOR-encoded arguments, a random
// nonce, and the issue time. Verification is self-contained: the
// verifier needs no key material, only the envelope and the current
// time. Whether the signer is authorized for the operation is decided
// by the contract's capability table, not here.
//
// Replay of a captured envelope is bounded twice: envelopes older than
// the freshness window are rejected, and envelopes inside the window
// are remembered by a [ReplayGuard] until they age out.
package call
