// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ballot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/danielhkuo/quickly-elect/db"
	"github.com/danielhkuo/quickly-elect/models"
)

// AnchorLog reads votes and updates their ledger-anchor state. It never
// touches any other vote column.
//
// Every transition out of pending is conditional on the vote still being
// pending, so a late writer cannot overwrite a decision made elsewhere.
type AnchorLog struct {
	db *sql.DB
}

func NewAnchorLog(conn *sql.DB) *AnchorLog {
	return &AnchorLog{db: conn}
}

const selectVote = `
	SELECT id, election_id, voter_id, candidacy_id, cast_at,
	       anchor_state, anchor_ref, anchor_attempts, anchor_error, anchored_at
	FROM vote
`

type scanner interface {
	Scan(dest ...any) error
}

func scanVote(row scanner) (models.Vote, error) {
	var (
		v          models.Vote
		state      string
		ref        sql.NullString
		anchorErr  sql.NullString
		anchoredAt sql.NullTime
	)
	err := row.Scan(&v.ID, &v.ElectionID, &v.VoterID, &v.CandidacyID, &v.CastAt,
		&state, &ref, &v.AnchorAttempts, &anchorErr, &anchoredAt)
	if err != nil {
		return models.Vote{}, err
	}
	v.CastAt = v.CastAt.UTC()
	v.AnchorState = models.AnchorState(state)
	if ref.Valid {
		v.AnchorRef = &ref.String
	}
	if anchorErr.Valid {
		v.AnchorError = &anchorErr.String
	}
	if anchoredAt.Valid {
		t := anchoredAt.Time.UTC()
		v.AnchoredAt = &t
	}
	return v, nil
}

// Get returns a vote by ID.
func (l *AnchorLog) Get(ctx context.Context, voteID string) (models.Vote, error) {
	v, err := scanVote(l.db.QueryRowContext(ctx, selectVote+` WHERE id = $1`, voteID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Vote{}, fmt.Errorf("vote %s: %w", voteID, models.ErrNotFound)
	}
	if err != nil {
		return models.Vote{}, fmt.Errorf("failed to query vote: %w", err)
	}
	return v, nil
}

// ClaimForAnchoring moves an unanchored vote, or a pending one whose last
// update is older than staleBefore, to pending. It reports false when the
// vote is in any other state; the vote is returned either way.
func (l *AnchorLog) ClaimForAnchoring(ctx context.Context, voteID string, now, staleBefore time.Time) (models.Vote, bool, error) {
	res, err := l.db.ExecContext(ctx, `
		UPDATE vote SET anchor_state = 'pending', anchor_updated_at = $1
		WHERE id = $2
		  AND (anchor_state = 'unanchored'
		       OR (anchor_state = 'pending' AND anchor_updated_at < $3))
	`, db.UTC(now), voteID, db.UTC(staleBefore))
	if err != nil {
		return models.Vote{}, false, fmt.Errorf("failed to claim vote: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Vote{}, false, fmt.Errorf("failed to claim vote: %w", err)
	}

	v, err := l.Get(ctx, voteID)
	if err != nil {
		return models.Vote{}, false, err
	}
	return v, n == 1, nil
}

// RecordAnchorAttempt stores a failed attempt and refreshes the claim.
func (l *AnchorLog) RecordAnchorAttempt(ctx context.Context, voteID string, attempts int, errMsg string, now time.Time) error {
	_, err := l.db.ExecContext(ctx, `
		UPDATE vote SET anchor_attempts = $1, anchor_error = $2, anchor_updated_at = $3
		WHERE id = $4 AND anchor_state = 'pending'
	`, attempts, errMsg, db.UTC(now), voteID)
	if err != nil {
		return fmt.Errorf("failed to record anchor attempt: %w", err)
	}
	return nil
}

// ConfirmAnchor marks a pending vote confirmed with its ledger reference.
func (l *AnchorLog) ConfirmAnchor(ctx context.Context, voteID, ref string, attempts int, now time.Time) error {
	return l.finish(ctx, `
		UPDATE vote SET anchor_state = 'confirmed', anchor_ref = $1, anchor_attempts = $2,
		       anchor_error = NULL, anchored_at = $3, anchor_updated_at = $3
		WHERE id = $4 AND anchor_state = 'pending'
	`, voteID, ref, attempts, db.UTC(now), voteID)
}

// FailAnchor marks a pending vote failed after retries ran out. The vote
// itself stays valid.
func (l *AnchorLog) FailAnchor(ctx context.Context, voteID string, attempts int, errMsg string, now time.Time) error {
	return l.finish(ctx, `
		UPDATE vote SET anchor_state = 'failed', anchor_attempts = $1, anchor_error = $2,
		       anchor_updated_at = $3
		WHERE id = $4 AND anchor_state = 'pending'
	`, voteID, attempts, errMsg, db.UTC(now), voteID)
}

// ResetFailedAnchor puts a failed vote back to unanchored with a fresh
// attempt budget.
func (l *AnchorLog) ResetFailedAnchor(ctx context.Context, voteID string, now time.Time) error {
	res, err := l.db.ExecContext(ctx, `
		UPDATE vote SET anchor_state = 'unanchored', anchor_attempts = 0, anchor_updated_at = $1
		WHERE id = $2 AND anchor_state = 'failed'
	`, db.UTC(now), voteID)
	if err != nil {
		return fmt.Errorf("failed to reset anchor: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to reset anchor: %w", err)
	}
	if n == 0 {
		v, err := l.Get(ctx, voteID)
		if err != nil {
			return err
		}
		return fmt.Errorf("vote anchor is %s, not failed: %w", v.AnchorState, models.ErrInvalidTransition)
	}
	return nil
}

func (l *AnchorLog) finish(ctx context.Context, query, voteID string, args ...any) error {
	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update anchor state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update anchor state: %w", err)
	}
	if n == 0 {
		v, err := l.Get(ctx, voteID)
		if err != nil {
			return err
		}
		return fmt.Errorf("vote anchor is %s, not pending: %w", v.AnchorState, models.ErrInvalidTransition)
	}
	return nil
}

// ListAnchorable returns IDs of votes that still need anchoring: unanchored
// ones and pending ones not updated since staleBefore. Oldest first.
func (l *AnchorLog) ListAnchorable(ctx context.Context, staleBefore time.Time, limit int) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id FROM vote
		WHERE anchor_state = 'unanchored'
		   OR (anchor_state = 'pending' AND anchor_updated_at < $1)
		ORDER BY cast_at, id
		LIMIT $2
	`, db.UTC(staleBefore), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query anchorable votes: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan vote id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListByElection returns every vote of an election. The result includes
// voter IDs and must stay inside the process.
func (l *AnchorLog) ListByElection(ctx context.Context, electionID string) ([]models.Vote, error) {
	rows, err := l.db.QueryContext(ctx, selectVote+` WHERE election_id = $1 ORDER BY cast_at, id`, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}
	defer rows.Close()

	votes := []models.Vote{}
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}
