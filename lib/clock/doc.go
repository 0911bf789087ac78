// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the time source injected into the contract,
// the call verifier, and the service.
//
// The contract stamps CreatedAt/SolvedAt/ClaimedAt and capability
// grant times from the clock, and the call verifier rejects envelopes
// outside the freshness window relative to it. Production wires Real();
// tests wire Fake() and move time explicitly with Advance or Set.
package clock
