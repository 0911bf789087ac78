// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"io"
	"os"
	"reflect"

	"github.com/spf13/pflag"
)

// JSONOutput adds a --json flag to a command.
type JSONOutput struct {
	Enabled bool
	Out     io.Writer
}

// Register adds --json to flagSet.
func (j *JSONOutput) Register(flagSet *pflag.FlagSet) {
	flagSet.BoolVar(&j.Enabled, "json", false, "output as JSON")
}

// Emit writes result as indented JSON if --json was given, reporting
// whether it did. Nil slices are written as [].
func (j *JSONOutput) Emit(result any) (bool, error) {
	if !j.Enabled {
		return false, nil
	}
	out := j.Out
	if out == nil {
		out = os.Stdout
	}
	return true, WriteJSON(out, normalizeNilSlice(result))
}

// WriteJSON writes value as indented JSON.
func WriteJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func normalizeNilSlice(value any) any {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Slice && v.IsNil() {
		return reflect.MakeSlice(v.Type(), 0, 0).Interface()
	}
	return value
}
