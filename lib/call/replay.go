// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package call

import (
	"sync"
	"time"
)

// ReplayGuard remembers envelope IDs until their freshness window
// closes. Envelopes older than the window are already rejected by
// Verify, so entries past their expiry are dropped.
type ReplayGuard struct {
	mu      sync.Mutex
	maxAge  time.Duration
	entries map[string]time.Time
}

// NewReplayGuard returns a guard for envelopes verified with maxAge.
func NewReplayGuard(maxAge time.Duration) *ReplayGuard {
	return &ReplayGuard{
		maxAge:  maxAge,
		entries: make(map[string]time.Time),
	}
}

// Observe records the envelope ID issued at issuedAt. It returns
// ErrReplayed if the ID was already recorded and has not yet expired.
// Expired entries are pruned on each call.
func (g *ReplayGuard) Observe(id string, issuedAt, now time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for seen, expiresAt := range g.entries {
		if !now.Before(expiresAt) {
			delete(g.entries, seen)
		}
	}
	if _, exists := g.entries[id]; exists {
		return ErrReplayed
	}
	g.entries[id] = issuedAt.Add(g.maxAge + MaxClockSkew)
	return nil
}

// Len returns the number of remembered envelopes.
func (g *ReplayGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}
