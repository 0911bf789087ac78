// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"
)

var uniqueCounter atomic.Uint64

// UniqueID returns "prefix-N" with N increasing across the test binary.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}

// UniqueAccount returns a distinct, valid ledger account name.
func UniqueAccount(prefix string) string {
	return fmt.Sprintf("%s.%d", prefix, uniqueCounter.Add(1))
}
