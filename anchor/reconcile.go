// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package anchor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/ballot"
	"github.com/danielhkuo/quickly-elect/db"
	"github.com/danielhkuo/quickly-elect/ledger"
	"github.com/danielhkuo/quickly-elect/models"
)

type ElectionSource interface {
	Get(ctx context.Context, electionID string) (models.Election, error)
}

// Reconciler compares local votes with the ledger. It reports divergence
// and never repairs it.
type Reconciler struct {
	elections ElectionSource
	votes     *ballot.AnchorLog
	chain     ledger.Chain // nil when the ledger is off
	salt      string
}

func NewReconciler(elections ElectionSource, votes *ballot.AnchorLog, chain ledger.Chain, commitSalt string) *Reconciler {
	return &Reconciler{elections: elections, votes: votes, chain: chain, salt: commitSalt}
}

// Reconcile builds the report for one election. A pending vote found on
// the ledger is an anchor still being confirmed and is not a mismatch.
func (r *Reconciler) Reconcile(ctx context.Context, electionID string, now time.Time) (models.ReconcileReport, error) {
	if _, err := r.elections.Get(ctx, electionID); err != nil {
		return models.ReconcileReport{}, err
	}

	votes, err := r.votes.ListByElection(ctx, electionID)
	if err != nil {
		return models.ReconcileReport{}, err
	}

	report := models.ReconcileReport{
		ElectionID: electionID,
		Counts: map[models.AnchorState]int{
			models.AnchorUnanchored: 0,
			models.AnchorPending:    0,
			models.AnchorConfirmed:  0,
			models.AnchorFailed:     0,
		},
		Mismatches: []models.Mismatch{},
		CheckedAt:  db.UTC(now),
	}

	for _, v := range votes {
		report.Counts[v.AnchorState]++
		if v.AnchorState != models.AnchorConfirmed {
			if report.OldestOpen == nil || v.CastAt.Before(*report.OldestOpen) {
				t := v.CastAt
				report.OldestOpen = &t
			}
		}
	}

	if r.chain == nil {
		return report, nil
	}

	entries, err := r.chain.Entries(ctx, ledger.Key(electionID))
	if err != nil {
		return models.ReconcileReport{}, fmt.Errorf("%w: %v", models.ErrLedgerUnavailable, err)
	}

	onLedger := make(map[common.Hash]ledger.Entry, len(entries))
	for _, e := range entries {
		onLedger[e.VoteKey] = e
	}
	report.OnLedger = len(onLedger)

	for _, v := range votes {
		key := ledger.Key(v.ID)
		e, found := onLedger[key]
		delete(onLedger, key)

		if !found {
			if v.AnchorState == models.AnchorConfirmed {
				report.Mismatches = append(report.Mismatches, models.Mismatch{
					Kind:    models.MismatchMissingOnLedger,
					VoteKey: key.Hex(),
					VoteID:  v.ID,
					Detail:  "vote is confirmed locally but has no ledger entry",
				})
			}
			continue
		}

		want := ledger.Digest(v.ID, v.ElectionID, v.CandidacyID, auth.VoterCommitment(v.VoterID, r.salt))
		if e.Digest != want {
			report.Mismatches = append(report.Mismatches, models.Mismatch{
				Kind:    models.MismatchDigest,
				VoteKey: key.Hex(),
				VoteID:  v.ID,
				Detail:  fmt.Sprintf("ledger digest %s does not match local record", e.Digest.Hex()),
			})
		}

		switch v.AnchorState {
		case models.AnchorUnanchored, models.AnchorFailed:
			report.Mismatches = append(report.Mismatches, models.Mismatch{
				Kind:    models.MismatchAnchoredNotRecorded,
				VoteKey: key.Hex(),
				VoteID:  v.ID,
				Detail:  fmt.Sprintf("ledger entry %s exists but local anchor state is %s", e.Ref, v.AnchorState),
			})
		}
	}

	for key, e := range onLedger {
		report.Mismatches = append(report.Mismatches, models.Mismatch{
			Kind:    models.MismatchMissingLocally,
			VoteKey: key.Hex(),
			Detail:  fmt.Sprintf("ledger entry %s has no local vote", e.Ref),
		})
	}

	sort.Slice(report.Mismatches, func(i, j int) bool {
		a, b := report.Mismatches[i], report.Mismatches[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.VoteKey < b.VoteKey
	})

	if len(report.Mismatches) > 0 {
		slog.Warn("reconcile found mismatches", "election_id", electionID,
			"mismatches", len(report.Mismatches), "on_ledger", report.OnLedger)
	} else {
		slog.Info("reconcile clean", "election_id", electionID,
			"votes", len(votes), "on_ledger", report.OnLedger)
	}

	return report, nil
}
