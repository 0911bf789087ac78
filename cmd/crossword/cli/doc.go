// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework behind the crossword CLI: a
// tree of [Command] values with pflag flag sets, generated help,
// did-you-mean suggestions for mistyped commands and flags, a
// TTY-aware logger, and --json output.
package cli
