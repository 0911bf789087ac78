// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by the repository's tests.
//
// [SocketDir] returns a short directory under /tmp for Unix sockets,
// whose paths are limited to 108 bytes. [RequireReceive] and
// [RequireClosed] bound channel waits with a timeout so a broken test
// fails instead of hanging. [UniqueID] and [UniqueAccount] produce
// distinct names for tests that share a store or a server.
//
// Helpers fail the test with t.Fatalf rather than returning errors.
package testutil
