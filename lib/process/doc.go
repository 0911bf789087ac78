// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint helpers shared by the crossword
// binaries. Each main calls run() and hands any error to [Fatal], which
// writes to stderr because the logger may not exist yet.
package process
