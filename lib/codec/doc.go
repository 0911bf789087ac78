// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the single CBOR configuration used by the crossword
// contract for everything that crosses a process or disk boundary:
// signed call envelopes, socket requests and responses, and the
// puzzle metadata stored alongside each record.
//
// Encoding uses Core Deterministic Encoding (RFC 8949 §4.2). Signatures
// in lib/call are computed over encoded bytes, so the same logical call
// must always produce the same bytes on every machine.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Stream helpers wrap a connection for the socket protocol:
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Types that implement encoding.TextMarshaler (token.Token,
// ledger.Account) encode as CBOR text strings.
package codec
