// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestExecuteDispatchesToSubcommand(t *testing.T) {
	var called string
	var received []string
	root := &Command{
		Name: "crossword",
		Subcommands: []*Command{
			{Name: "solve", Run: func(_ context.Context, args []string) error {
				called, received = "solve", args
				return nil
			}},
			{Name: "claim", Run: func(context.Context, []string) error {
				called = "claim"
				return nil
			}},
		},
	}

	if err := root.execute(context.Background(), []string{"solve", "extra"}, &bytes.Buffer{}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if called != "solve" || len(received) != 1 || received[0] != "extra" {
		t.Errorf("called %q with %v", called, received)
	}
}

func TestExecuteParsesFlags(t *testing.T) {
	var reward uint64
	var positional []string
	command := &Command{
		Name: "create",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("create", pflag.ContinueOnError)
			flagSet.Uint64Var(&reward, "reward", 0, "reward")
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			positional = args
			return nil
		},
	}

	if err := command.execute(context.Background(), []string{"--reward", "42", "puzzle.jsonc"}, &bytes.Buffer{}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if reward != 42 || len(positional) != 1 || positional[0] != "puzzle.jsonc" {
		t.Errorf("reward=%d args=%v", reward, positional)
	}
}

func TestUnknownCommandSuggests(t *testing.T) {
	root := &Command{
		Name: "crossword",
		Subcommands: []*Command{
			{Name: "inspect", Run: func(context.Context, []string) error { return nil }},
			{Name: "balance", Run: func(context.Context, []string) error { return nil }},
		},
	}
	err := root.execute(context.Background(), []string{"inspcet"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), `did you mean "inspect"`) {
		t.Errorf("error = %v", err)
	}

	err = root.execute(context.Background(), []string{"zzzzzzzz"}, &bytes.Buffer{})
	if err == nil || strings.Contains(err.Error(), "did you mean") {
		t.Errorf("distant typo should not suggest: %v", err)
	}
}

func TestUnknownFlagSuggests(t *testing.T) {
	command := &Command{
		Name: "claim",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("claim", pflag.ContinueOnError)
			flagSet.String("receiver", "", "account")
			return flagSet
		},
		Run: func(context.Context, []string) error { return nil },
	}
	err := command.execute(context.Background(), []string{"--reciever", "bob"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "did you mean --receiver") {
		t.Errorf("error = %v", err)
	}
}

func TestHelpOutput(t *testing.T) {
	root := &Command{
		Name:        "crossword",
		Description: "Crossword escrow client.",
		Subcommands: []*Command{
			{Name: "keygen", Summary: "Generate a key file", Run: func(context.Context, []string) error { return nil }},
		},
	}
	var help bytes.Buffer
	if err := root.execute(context.Background(), []string{"--help"}, &help); err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, want := range []string{"Crossword escrow client.", "keygen", "Generate a key file"} {
		if !strings.Contains(help.String(), want) {
			t.Errorf("help missing %q:\n%s", want, help.String())
		}
	}

	help.Reset()
	if err := root.execute(context.Background(), nil, &help); err == nil {
		t.Error("group without subcommand should error")
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"solve", "solve", 0},
		{"solve", "slove", 2},
		{"claim", "clam", 1},
		{"kitten", "sitting", 3},
	}
	for _, test := range tests {
		if got := levenshtein(test.a, test.b); got != test.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
		}
	}
}

func TestJSONOutput(t *testing.T) {
	var out bytes.Buffer
	output := JSONOutput{Out: &out}
	if done, _ := output.Emit([]string(nil)); done {
		t.Fatal("Emit without --json should not write")
	}
	output.Enabled = true
	done, err := output.Emit([]string(nil))
	if !done || err != nil {
		t.Fatalf("Emit = %v, %v", done, err)
	}
	if strings.TrimSpace(out.String()) != "[]" {
		t.Errorf("nil slice encoded as %q", out.String())
	}
}
