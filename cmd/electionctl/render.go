// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/danielhkuo/quickly-elect/models"
)

var anchorStates = []models.AnchorState{
	models.AnchorUnanchored,
	models.AnchorPending,
	models.AnchorConfirmed,
	models.AnchorFailed,
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	return t
}

func renderReport(out io.Writer, r models.ReconcileReport, now time.Time) {
	fmt.Fprintf(out, "Election %s checked %s\n", r.ElectionID, r.CheckedAt.Format(time.RFC3339))

	t := newTable(out)
	t.AppendHeader(table.Row{"State", "Votes"})
	total := 0
	for _, s := range anchorStates {
		t.AppendRow(table.Row{s, humanize.Comma(int64(r.Counts[s]))})
		total += r.Counts[s]
	}
	t.AppendFooter(table.Row{"Total", humanize.Comma(int64(total))})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight}})
	t.Render()

	fmt.Fprintf(out, "Ledger entries: %s\n", humanize.Comma(int64(r.OnLedger)))
	if r.OldestOpen != nil {
		fmt.Fprintf(out, "Oldest unconfirmed vote: %s\n", humanize.RelTime(*r.OldestOpen, now, "ago", "from now"))
	}

	if len(r.Mismatches) == 0 {
		fmt.Fprintln(out, "No mismatches")
		return
	}

	m := newTable(out)
	m.AppendHeader(table.Row{"Kind", "Vote", "Detail"})
	for _, mm := range r.Mismatches {
		vote := mm.VoteID
		if vote == "" {
			vote = mm.VoteKey
		}
		m.AppendRow(table.Row{mm.Kind, vote, mm.Detail})
	}
	m.Render()
	fmt.Fprintf(out, "%d mismatches\n", len(r.Mismatches))
}

func renderAddress(out io.Writer, a models.LedgerAddress) {
	t := newTable(out)
	t.AppendRow(table.Row{"Address", a.Address})
	t.AppendRow(table.Row{"Valid", a.Valid})
	if a.Balance != nil {
		balance := *a.Balance
		if wei, ok := new(big.Int).SetString(balance, 10); ok {
			balance = humanize.BigComma(wei) + " wei"
		}
		t.AppendRow(table.Row{"Balance", balance})
	}
	if a.BalanceAt != nil {
		t.AppendRow(table.Row{"Balance checked", humanize.Time(*a.BalanceAt)})
	}
	t.Render()
}

func renderDrain(out io.Writer, results map[models.AnchorState]int) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Outcome", "Votes"})
	for _, s := range anchorStates {
		if n := results[s]; n > 0 {
			t.AppendRow(table.Row{s, humanize.Comma(int64(n))})
		}
	}
	t.Render()
}
