// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/db"
	"github.com/danielhkuo/quickly-elect/models"
)

// Store owns posts and election configuration. The voting path only reads
// from it.
type Store struct {
	db *sql.DB
}

func NewStore(conn *sql.DB) *Store {
	return &Store{db: conn}
}

// CreatePost registers an office that elections can be held for.
func (s *Store) CreatePost(ctx context.Context, name, description string, now time.Time) (models.Post, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Post{}, fmt.Errorf("post name is required: %w", models.ErrValidation)
	}

	postID, err := auth.GenerateID(12)
	if err != nil {
		return models.Post{}, err
	}

	post := models.Post{
		ID:          postID,
		Name:        name,
		Description: description,
		CreatedAt:   db.UTC(now),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO post (id, name, description, created_at)
		VALUES ($1, $2, $3, $4)
	`, post.ID, post.Name, post.Description, post.CreatedAt)
	if err != nil {
		return models.Post{}, fmt.Errorf("failed to insert post: %w", err)
	}

	slog.Info("post created", "post_id", post.ID)
	return post, nil
}

// GetPost returns a post by ID.
func (s *Store) GetPost(ctx context.Context, postID string) (models.Post, error) {
	var p models.Post
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at FROM post WHERE id = $1
	`, postID).Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Post{}, fmt.Errorf("post %s: %w", postID, models.ErrNotFound)
	}
	if err != nil {
		return models.Post{}, fmt.Errorf("failed to query post: %w", err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

// CreateElection schedules a new election for an existing post.
func (s *Store) CreateElection(ctx context.Context, req models.CreateElectionRequest, now time.Time) (models.Election, error) {
	if strings.TrimSpace(req.Name) == "" {
		return models.Election{}, fmt.Errorf("election name is required: %w", models.ErrValidation)
	}
	opensAt, closesAt := db.UTC(req.OpensAt), db.UTC(req.ClosesAt)
	if !opensAt.Before(closesAt) {
		return models.Election{}, fmt.Errorf("opens_at must be before closes_at: %w", models.ErrValidation)
	}

	if _, err := s.GetPost(ctx, req.PostID); err != nil {
		return models.Election{}, err
	}

	electionID, err := auth.GenerateID(16)
	if err != nil {
		return models.Election{}, err
	}

	e := models.Election{
		ID:          electionID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		PostID:      req.PostID,
		OpensAt:     opensAt,
		ClosesAt:    closesAt,
		CreatedAt:   db.UTC(now),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO election (id, name, description, post_id, opens_at, closes_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.Name, e.Description, e.PostID, e.OpensAt, e.ClosesAt, e.CreatedAt)
	if err != nil {
		return models.Election{}, fmt.Errorf("failed to insert election: %w", err)
	}

	slog.Info("election created", "election_id", e.ID, "post_id", e.PostID,
		"opens_at", e.OpensAt, "closes_at", e.ClosesAt)
	return e, nil
}

const selectElection = `
	SELECT e.id, e.name, e.description, e.post_id, e.opens_at, e.closes_at, e.created_at,
	       (SELECT COUNT(*) FROM candidacy c WHERE c.election_id = e.id)
	FROM election e
`

type scanner interface {
	Scan(dest ...any) error
}

func scanElection(row scanner) (models.Election, error) {
	var e models.Election
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.PostID,
		&e.OpensAt, &e.ClosesAt, &e.CreatedAt, &e.CandidacyCount)
	if err != nil {
		return models.Election{}, err
	}
	e.OpensAt = e.OpensAt.UTC()
	e.ClosesAt = e.ClosesAt.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}

// Get returns an election with its candidacy count.
func (s *Store) Get(ctx context.Context, electionID string) (models.Election, error) {
	e, err := scanElection(s.db.QueryRowContext(ctx, selectElection+` WHERE e.id = $1`, electionID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Election{}, fmt.Errorf("election %s: %w", electionID, models.ErrNotFound)
	}
	if err != nil {
		return models.Election{}, fmt.Errorf("failed to query election: %w", err)
	}
	return e, nil
}

// List returns all elections, most recently opening first.
func (s *Store) List(ctx context.Context) ([]models.Election, error) {
	rows, err := s.db.QueryContext(ctx, selectElection+` ORDER BY e.opens_at DESC, e.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query elections: %w", err)
	}
	defer rows.Close()

	elections := []models.Election{}
	for rows.Next() {
		e, err := scanElection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan election: %w", err)
		}
		elections = append(elections, e)
	}
	return elections, rows.Err()
}

// Reschedule changes an election's window.
//
// Once any vote exists the only permitted change is pushing closes_at later;
// opens_at is frozen and closes_at can never move backwards. Without votes
// any valid window is accepted. In both cases the new closes_at may not lie
// in the past.
func (s *Store) Reschedule(ctx context.Context, electionID string, opensAt, closesAt, now time.Time) (models.Election, error) {
	opensAt, closesAt, now = db.UTC(opensAt), db.UTC(closesAt), db.UTC(now)
	if !opensAt.Before(closesAt) {
		return models.Election{}, fmt.Errorf("opens_at must be before closes_at: %w", models.ErrValidation)
	}
	if closesAt.Before(now) {
		return models.Election{}, fmt.Errorf("closes_at cannot be in the past: %w", models.ErrValidation)
	}

	cur, err := s.Get(ctx, electionID)
	if err != nil {
		return models.Election{}, err
	}

	if opensAt.Equal(cur.OpensAt) && closesAt.After(cur.ClosesAt) {
		// Extensions are always allowed, votes or not. The WHERE clause
		// rejects an extension overtaken by a concurrent, later one.
		res, err := s.db.ExecContext(ctx, `
			UPDATE election SET closes_at = $1
			WHERE id = $2 AND opens_at = $3 AND closes_at < $1
		`, closesAt, electionID, cur.OpensAt)
		if err != nil {
			return models.Election{}, fmt.Errorf("failed to extend election: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return models.Election{}, fmt.Errorf("failed to extend election: %w", err)
		}
		if n == 0 {
			return models.Election{}, fmt.Errorf("election %s changed concurrently: %w", electionID, models.ErrScheduleLocked)
		}
		slog.Info("election extended", "election_id", electionID, "closes_at", closesAt)
		return s.Get(ctx, electionID)
	}

	// The vote check and the update are one statement, so a vote recorded
	// concurrently either blocks the change or lands after it.
	res, err := s.db.ExecContext(ctx, `
		UPDATE election SET opens_at = $1, closes_at = $2
		WHERE id = $3 AND NOT EXISTS (SELECT 1 FROM vote WHERE election_id = $3)
	`, opensAt, closesAt, electionID)
	if err != nil {
		return models.Election{}, fmt.Errorf("failed to reschedule election: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Election{}, fmt.Errorf("failed to reschedule election: %w", err)
	}
	if n == 0 {
		return models.Election{}, fmt.Errorf("election %s: %w", electionID, models.ErrScheduleLocked)
	}

	slog.Info("election rescheduled", "election_id", electionID, "opens_at", opensAt, "closes_at", closesAt)
	return s.Get(ctx, electionID)
}
