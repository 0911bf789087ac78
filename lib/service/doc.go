// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service is the CBOR Unix-socket transport between the
// contract host and its clients.
//
// Each connection carries exactly one request and one response. A
// request is a CBOR map with an "action" field; signed actions also
// carry a "call" byte string holding a lib/call envelope. The server
// verifies the envelope's signature, operation, freshness, and
// uniqueness before the handler sees the signer. Responses are
// {ok, error, data}, with data holding the handler's CBOR result.
//
// Access to the socket file is the only gate for unsigned actions, so
// those are limited to read-only queries.
package service
