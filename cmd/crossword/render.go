// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/crossword/lib/crossword"
	"github.com/bureau-foundation/crossword/lib/ledger"
	"github.com/bureau-foundation/crossword/lib/puzzle"
)

var (
	labelStyle   = lipgloss.NewStyle().Bold(true).Width(10)
	faintStyle   = lipgloss.NewStyle().Faint(true)
	headingStyle = lipgloss.NewStyle().Bold(true).Underline(true)

	stateColors = map[puzzle.State]lipgloss.Color{
		puzzle.Unsolved: lipgloss.Color("3"),
		puzzle.Solved:   lipgloss.Color("4"),
		puzzle.Claimed:  lipgloss.Color("2"),
	}
)

func field(label, value string) string {
	return labelStyle.Render(label) + value + "\n"
}

func renderTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func renderPuzzle(response crossword.PuzzleResponse) string {
	record := response.Record
	var b strings.Builder

	state := lipgloss.NewStyle().Bold(true).Foreground(stateColors[record.Status.State]).
		Render(record.Status.State.String())

	b.WriteString(field("Puzzle", response.Puzzle.String()))
	b.WriteString(field("State", state))
	if record.Status.Solver != nil {
		b.WriteString(field("Solver", record.Status.Solver.String()))
	}
	if record.Status.State == puzzle.Claimed && record.Status.Memo != "" {
		b.WriteString(field("Memo", record.Status.Memo))
	}
	b.WriteString(field("Reward", fmt.Sprintf("%d", record.Reward)))
	b.WriteString(field("Creator", string(record.Creator)))
	b.WriteString(field("Created", renderTime(record.CreatedAt)))
	if !record.SolvedAt.IsZero() {
		b.WriteString(field("Solved", renderTime(record.SolvedAt)))
	}
	if !record.ClaimedAt.IsZero() {
		b.WriteString(field("Claimed", renderTime(record.ClaimedAt)))
	}
	b.WriteString(field("Grid", fmt.Sprintf("%d×%d", record.Dimensions.X, record.Dimensions.Y)))

	for _, direction := range []puzzle.Direction{puzzle.Across, puzzle.Down} {
		var lines []string
		for _, answer := range record.Answers {
			if answer.Direction != direction {
				continue
			}
			position := faintStyle.Render(fmt.Sprintf("(%d,%d) %d letters", answer.Start.X, answer.Start.Y, answer.Length))
			lines = append(lines, fmt.Sprintf("  %3d  %s  %s", answer.Num, answer.Clue, position))
		}
		if len(lines) == 0 {
			continue
		}
		b.WriteString("\n" + headingStyle.Render(direction.String()) + "\n")
		b.WriteString(strings.Join(lines, "\n") + "\n")
	}
	return b.String()
}

func renderBalance(response crossword.BalanceResponse) string {
	var b strings.Builder
	b.WriteString(field("Account", string(response.Account)))
	b.WriteString(field("Balance", fmt.Sprintf("%d", response.Balance)))
	if len(response.Transfers) == 0 {
		return b.String()
	}
	b.WriteString("\n" + headingStyle.Render("Transfers") + "\n")
	for _, transfer := range response.Transfers {
		b.WriteString(renderTransfer(response.Account, transfer) + "\n")
	}
	return b.String()
}

func renderTransfer(account ledger.Account, transfer ledger.Transfer) string {
	amount, counterparty := fmt.Sprintf("+%d", transfer.Amount), "from "+string(transfer.From)
	if transfer.From == account {
		amount, counterparty = fmt.Sprintf("-%d", transfer.Amount), "to "+string(transfer.To)
	}
	line := fmt.Sprintf("  %s  %8s  %s", faintStyle.Render(renderTime(transfer.At)), amount, counterparty)
	if transfer.Memo != "" {
		line += "  " + faintStyle.Render(fmt.Sprintf("%q", transfer.Memo))
	}
	return line
}

func renderStatus(response crossword.StatusResponse) string {
	uptime := (time.Duration(response.UptimeSeconds) * time.Second).String()
	return field("Version", response.Version) +
		field("Store", response.Store) +
		field("Uptime", uptime) +
		field("Escrowed", fmt.Sprintf("%d", response.Escrowed))
}
