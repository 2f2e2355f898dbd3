// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ballot

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/quickly-elect/db"
	"github.com/danielhkuo/quickly-elect/models"
	"github.com/danielhkuo/quickly-elect/phase"
	"github.com/danielhkuo/quickly-elect/voter"
)

type ElectionSource interface {
	Get(ctx context.Context, electionID string) (models.Election, error)
}

type VoterSource interface {
	Get(ctx context.Context, voterID string) (models.Voter, error)
}

type ApprovalChecker interface {
	IsApproved(ctx context.Context, electionID, candidacyID string) (bool, error)
}

// Notifier is told about every recorded vote. VoteCast must not block.
type Notifier interface {
	VoteCast(voteID string)
}

// Core records votes. It is the only writer of vote rows.
type Core struct {
	db          *sql.DB
	elections   ElectionSource
	voters      VoterSource
	candidacies ApprovalChecker
	notify      Notifier
}

// NewCore wires the vote core. notify may be nil when ledger anchoring is
// disabled.
func NewCore(conn *sql.DB, elections ElectionSource, voters VoterSource, candidacies ApprovalChecker, notify Notifier) *Core {
	return &Core{
		db:          conn,
		elections:   elections,
		voters:      voters,
		candidacies: candidacies,
		notify:      notify,
	}
}

// Cast records one vote of voterID for candidacyID in electionID.
//
// Checks run in a fixed order and the first failure wins: voter eligibility,
// election phase, candidate approval, then the one-vote-per-voter rule. The
// last check is the INSERT itself; the (election_id, voter_id) unique
// constraint decides between concurrent casts.
func (c *Core) Cast(ctx context.Context, electionID, voterID, candidacyID string, now time.Time) (models.VoteReceipt, error) {
	if electionID == "" || voterID == "" || candidacyID == "" {
		return models.VoteReceipt{}, fmt.Errorf("election, voter and candidacy are required: %w", models.ErrValidation)
	}

	v, err := c.voters.Get(ctx, voterID)
	if err != nil {
		if models.KindOf(err) == models.KindNotFound {
			return models.VoteReceipt{}, models.ErrVoterNotEligible
		}
		return models.VoteReceipt{}, err
	}
	if !voter.Eligible(v) {
		return models.VoteReceipt{}, models.ErrVoterNotEligible
	}

	e, err := c.elections.Get(ctx, electionID)
	if err != nil {
		return models.VoteReceipt{}, err
	}
	if phase.Of(e, now) != models.PhaseOpen {
		return models.VoteReceipt{}, models.ErrElectionNotOpen
	}

	approved, err := c.candidacies.IsApproved(ctx, electionID, candidacyID)
	if err != nil {
		return models.VoteReceipt{}, err
	}
	if !approved {
		return models.VoteReceipt{}, models.ErrCandidateNotApproved
	}

	// Past this point the vote is committed; a request that has already
	// timed out must leave nothing behind.
	if err := ctx.Err(); err != nil {
		return models.VoteReceipt{}, err
	}

	receipt := models.VoteReceipt{
		VoteID: uuid.NewString(),
		CastAt: db.UTC(now),
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO vote (id, election_id, voter_id, candidacy_id, cast_at, anchor_state, anchor_updated_at)
		VALUES ($1, $2, $3, $4, $5, 'unanchored', $5)
	`, receipt.VoteID, electionID, voterID, candidacyID, receipt.CastAt)
	if db.IsUniqueViolation(err) {
		return models.VoteReceipt{}, models.ErrAlreadyVoted
	}
	if err != nil {
		return models.VoteReceipt{}, fmt.Errorf("failed to insert vote: %w", err)
	}

	// Never log the voter next to the choice.
	slog.Info("vote cast", "vote_id", receipt.VoteID, "election_id", electionID)

	if c.notify != nil {
		c.notify.VoteCast(receipt.VoteID)
	}

	return receipt, nil
}

// HasVoted reports whether voterID has a vote in electionID. It reads the
// same row the unique constraint in Cast guards.
func (c *Core) HasVoted(ctx context.Context, electionID, voterID string) (bool, error) {
	if _, err := c.elections.Get(ctx, electionID); err != nil {
		return false, err
	}

	var voted bool
	err := c.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM vote WHERE election_id = $1 AND voter_id = $2)
	`, electionID, voterID).Scan(&voted)
	if err != nil {
		return false, fmt.Errorf("failed to check vote: %w", err)
	}
	return voted, nil
}

// Tally counts votes per approved candidacy. Results stay sealed until the
// election has closed.
func (c *Core) Tally(ctx context.Context, electionID string, now time.Time) (models.Tally, error) {
	e, err := c.elections.Get(ctx, electionID)
	if err != nil {
		return models.Tally{}, err
	}
	if phase.Of(e, now) != models.PhaseClosed {
		return models.Tally{}, models.ErrElectionNotClosed
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT c.id, v.name, COUNT(vt.id) AS votes
		FROM candidacy c
		JOIN voter v ON v.id = c.voter_id
		LEFT JOIN vote vt ON vt.candidacy_id = c.id
		WHERE c.election_id = $1 AND c.state = 'approved'
		GROUP BY c.id, v.name
		ORDER BY votes DESC, c.id
	`, electionID)
	if err != nil {
		return models.Tally{}, fmt.Errorf("failed to query tally: %w", err)
	}
	defer rows.Close()

	t := models.Tally{
		ElectionID: electionID,
		Results:    []models.CandidacyTally{},
		ComputedAt: db.UTC(now),
	}
	for rows.Next() {
		var ct models.CandidacyTally
		if err := rows.Scan(&ct.CandidacyID, &ct.CandidateName, &ct.Votes); err != nil {
			return models.Tally{}, fmt.Errorf("failed to scan tally: %w", err)
		}
		t.TotalVotes += ct.Votes
		t.Results = append(t.Results, ct)
	}
	if err := rows.Err(); err != nil {
		return models.Tally{}, fmt.Errorf("failed to read tally: %w", err)
	}

	return t, nil
}
