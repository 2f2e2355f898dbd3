// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package candidacy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/db"
	"github.com/danielhkuo/quickly-elect/models"
	"github.com/danielhkuo/quickly-elect/phase"
)

type ElectionSource interface {
	Get(ctx context.Context, electionID string) (models.Election, error)
}

type VoterSource interface {
	Get(ctx context.Context, voterID string) (models.Voter, error)
}

// Registry is the only writer of candidacy records.
type Registry struct {
	db        *sql.DB
	elections ElectionSource
	voters    VoterSource
}

func NewRegistry(conn *sql.DB, elections ElectionSource, voters VoterSource) *Registry {
	return &Registry{db: conn, elections: elections, voters: voters}
}

// Submit records a pending candidacy for voterID in electionID.
func (r *Registry) Submit(ctx context.Context, electionID, voterID, statement string, now time.Time) (models.Candidacy, error) {
	if electionID == "" || voterID == "" {
		return models.Candidacy{}, fmt.Errorf("election and voter are required: %w", models.ErrValidation)
	}

	e, err := r.elections.Get(ctx, electionID)
	if err != nil {
		return models.Candidacy{}, err
	}
	if _, err := r.voters.Get(ctx, voterID); err != nil {
		return models.Candidacy{}, err
	}
	if !phase.AcceptsCandidacies(e, now) {
		return models.Candidacy{}, models.ErrElectionNotAcceptingCandidacies
	}

	candidacyID, err := auth.GenerateID(12)
	if err != nil {
		return models.Candidacy{}, err
	}

	c := models.Candidacy{
		ID:          candidacyID,
		ElectionID:  electionID,
		VoterID:     voterID,
		Statement:   statement,
		State:       models.CandidacyPending,
		SubmittedAt: db.UTC(now),
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO candidacy (id, election_id, voter_id, statement, state, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.ElectionID, c.VoterID, c.Statement, string(c.State), c.SubmittedAt)
	if db.IsUniqueViolation(err) {
		return models.Candidacy{}, models.ErrDuplicateCandidacy
	}
	if err != nil {
		return models.Candidacy{}, fmt.Errorf("failed to insert candidacy: %w", err)
	}

	slog.Info("candidacy submitted", "candidacy_id", c.ID, "election_id", electionID)
	return c, nil
}

// Decide moves a pending candidacy to approved or rejected. Decided
// candidacies never change again.
func (r *Registry) Decide(ctx context.Context, candidacyID string, decision models.Decision, decidedBy string, now time.Time) error {
	var state models.CandidacyState
	switch decision {
	case models.DecisionApprove:
		state = models.CandidacyApproved
	case models.DecisionReject:
		state = models.CandidacyRejected
	default:
		return fmt.Errorf("unknown decision %q: %w", decision, models.ErrValidation)
	}
	if decidedBy == "" {
		return fmt.Errorf("deciding administrator is required: %w", models.ErrValidation)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE candidacy SET state = $1, decided_by = $2, decided_at = $3
		WHERE id = $4 AND state = 'pending'
	`, string(state), decidedBy, db.UTC(now), candidacyID)
	if err != nil {
		return fmt.Errorf("failed to update candidacy: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update candidacy: %w", err)
	}
	if n == 0 {
		// Either it does not exist or someone decided it first.
		if _, err := r.Get(ctx, candidacyID); err != nil {
			return err
		}
		return models.ErrInvalidTransition
	}

	slog.Info("candidacy decided", "candidacy_id", candidacyID, "state", state, "decided_by", decidedBy)
	return nil
}

// Get returns a candidacy by ID.
func (r *Registry) Get(ctx context.Context, candidacyID string) (models.Candidacy, error) {
	c, err := scanCandidacy(r.db.QueryRowContext(ctx, selectCandidacy+` WHERE id = $1`, candidacyID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Candidacy{}, fmt.Errorf("candidacy %s: %w", candidacyID, models.ErrNotFound)
	}
	if err != nil {
		return models.Candidacy{}, fmt.Errorf("failed to query candidacy: %w", err)
	}
	return c, nil
}

// List returns every candidacy of an election, optionally filtered by state.
// It backs the administrator's review queue.
func (r *Registry) List(ctx context.Context, electionID string, state models.CandidacyState) ([]models.Candidacy, error) {
	if _, err := r.elections.Get(ctx, electionID); err != nil {
		return nil, err
	}

	query := selectCandidacy + ` WHERE election_id = $1`
	args := []any{electionID}
	if state != "" {
		query += ` AND state = $2`
		args = append(args, string(state))
	}
	query += ` ORDER BY submitted_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidacies: %w", err)
	}
	defer rows.Close()

	list := []models.Candidacy{}
	for rows.Next() {
		c, err := scanCandidacy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidacy: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// ListApproved returns the ballot for an election in submission order.
func (r *Registry) ListApproved(ctx context.Context, electionID string) ([]models.CandidacySummary, error) {
	if _, err := r.elections.Get(ctx, electionID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, v.name, v.department, c.statement, c.submitted_at
		FROM candidacy c
		JOIN voter v ON v.id = c.voter_id
		WHERE c.election_id = $1 AND c.state = 'approved'
		ORDER BY c.submitted_at, c.id
	`, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query approved candidacies: %w", err)
	}
	defer rows.Close()

	summaries := []models.CandidacySummary{}
	for rows.Next() {
		var s models.CandidacySummary
		if err := rows.Scan(&s.ID, &s.CandidateName, &s.Department, &s.Statement, &s.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan candidacy: %w", err)
		}
		s.SubmittedAt = s.SubmittedAt.UTC()
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// IsApproved reports whether candidacyID is an approved candidacy of
// electionID. A candidacy of another election is never approved here.
func (r *Registry) IsApproved(ctx context.Context, electionID, candidacyID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM candidacy
			WHERE id = $1 AND election_id = $2 AND state = 'approved'
		)
	`, candidacyID, electionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check candidacy: %w", err)
	}
	return exists, nil
}

const selectCandidacy = `
	SELECT id, election_id, voter_id, statement, state, submitted_at, decided_by, decided_at
	FROM candidacy
`

type scanner interface {
	Scan(dest ...any) error
}

func scanCandidacy(row scanner) (models.Candidacy, error) {
	var (
		c         models.Candidacy
		state     string
		decidedBy sql.NullString
		decidedAt sql.NullTime
	)
	err := row.Scan(&c.ID, &c.ElectionID, &c.VoterID, &c.Statement, &state,
		&c.SubmittedAt, &decidedBy, &decidedAt)
	if err != nil {
		return models.Candidacy{}, err
	}
	c.State = models.CandidacyState(state)
	c.SubmittedAt = c.SubmittedAt.UTC()
	if decidedBy.Valid {
		c.DecidedBy = &decidedBy.String
	}
	if decidedAt.Valid {
		t := decidedAt.Time.UTC()
		c.DecidedAt = &t
	}
	return c, nil
}
