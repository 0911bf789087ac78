// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/crossword/lib/puzzle"
	"github.com/bureau-foundation/crossword/lib/registry"
	"github.com/bureau-foundation/crossword/lib/registry/registrytest"
	"github.com/bureau-foundation/crossword/lib/token"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := Open(Config{Path: path, PoolSize: 4})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func TestConformance(t *testing.T) {
	registrytest.Run(t, func(t *testing.T) registry.Store {
		return openStore(t, filepath.Join(t.TempDir(), "registry.db"))
	})
}

func TestReopenKeepsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	key, _, err := token.Generate()
	if err != nil {
		t.Fatal(err)
	}
	createdAt := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	metadata := puzzle.Metadata{
		Dimensions: puzzle.Coordinate{X: 3, Y: 3},
		Answers:    []puzzle.Answer{{Num: 1, Direction: puzzle.Across, Length: 3, Clue: "Feline"}},
	}

	first, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	err = first.Update(context.Background(), func(tx registry.Tx) error {
		if err := tx.Credit("alice", 7); err != nil {
			return err
		}
		return tx.InsertPuzzle(key, puzzle.NewRecord("alice", 3, metadata, createdAt))
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second := openStore(t, path)
	err = second.View(context.Background(), func(tx registry.ReadTx) error {
		record, err := tx.Puzzle(key)
		if err != nil {
			return err
		}
		if record.Reward != 3 || record.Answers[0].Clue != "Feline" || !record.CreatedAt.Equal(createdAt) {
			t.Errorf("reopened record = %+v", record)
		}
		balance, err := tx.Balance("alice")
		if err != nil {
			return err
		}
		if balance != 7 {
			t.Errorf("balance = %d, want 7", balance)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestMetadataIsCompressed(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "registry.db"))
	metadata := puzzle.Metadata{Dimensions: puzzle.Coordinate{X: 15, Y: 15}}
	for i := range 30 {
		metadata.Answers = append(metadata.Answers, puzzle.Answer{
			Num:       uint8(i + 1),
			Direction: puzzle.Across,
			Length:    5,
			Clue:      "A clue that repeats across many answers in the grid",
		})
	}
	raw, err := store.encodeMetadata(puzzle.Metadata{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.decodeMetadata(raw); err != nil {
		t.Fatalf("empty metadata roundtrip: %v", err)
	}

	blob, err := store.encodeMetadata(metadata)
	if err != nil {
		t.Fatal(err)
	}
	if len(blob) >= 30*len(metadata.Answers[0].Clue) {
		t.Errorf("compressed metadata is %d bytes, expected repetition to compress", len(blob))
	}
	decoded, err := store.decodeMetadata(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded.Answers) != 30 || decoded.Answers[29].Num != 30 {
		t.Errorf("decoded %d answers", len(decoded.Answers))
	}
}
