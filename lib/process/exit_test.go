// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestReport(t *testing.T) {
	var out bytes.Buffer
	if code := report(&out, errors.New("socket missing")); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if out.String() != "error: socket missing\n" {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	if code := report(&out, fmt.Errorf("serving: %w", context.Canceled)); code != 130 {
		t.Errorf("exit code = %d, want 130", code)
	}
	if out.Len() != 0 {
		t.Errorf("canceled error should be silent, got %q", out.String())
	}
}
