// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/crossword/lib/ledger"
	"github.com/bureau-foundation/crossword/lib/puzzle"
)

// puzzleFile is the authoring format read by create: the published
// puzzle layout plus an optional default reward, as JSON with comments
// and trailing commas.
//
//	{
//	  "reward": 100,
//	  "dimensions": {"x": 19, "y": 13},
//	  "answers": [
//	    // 1 Across
//	    {"num": 1, "start": {"x": 1, "y": 2}, "direction": "Across", "length": 8, "clue": "..."},
//	  ],
//	}
type puzzleFile struct {
	Reward *ledger.Amount `json:"reward,omitempty"`
	puzzle.Metadata
}

func parsePuzzleFile(data []byte) (puzzleFile, error) {
	var file puzzleFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
		return puzzleFile{}, fmt.Errorf("parsing puzzle: %w", err)
	}
	if err := file.Metadata.Validate(); err != nil {
		return puzzleFile{}, err
	}
	return file, nil
}

func readPuzzleFile(path string) (puzzleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return puzzleFile{}, fmt.Errorf("reading %s: %w", path, err)
	}
	file, err := parsePuzzleFile(data)
	if err != nil {
		return puzzleFile{}, fmt.Errorf("%s: %w", path, err)
	}
	return file, nil
}
