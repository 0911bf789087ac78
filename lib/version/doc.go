// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for --version output.
//
// Release builds inject [Version], [Commit], and [BuildTime] with
//
//	go build -ldflags "-X github.com/bureau-foundation/crossword/lib/version.Commit=$(git rev-parse --short HEAD)"
//
// Development builds fall back to the VCS stamp the Go toolchain
// embeds, when present.
package version
