// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package voter stores voter profiles and decides who may cast a vote.
package voter

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

// Eligible reports whether v may cast a vote: only active accounts with the
// voter role.
func Eligible(v models.Voter) bool {
	return v.Role == models.RoleVoter && v.Status == models.VoterActive
}

type Registry struct {
	db *sql.DB
}

func NewRegistry(conn *sql.DB) *Registry {
	return &Registry{db: conn}
}

func validRole(role string) bool {
	switch role {
	case models.RoleVoter, models.RoleSupervisor, models.RoleAdmin:
		return true
	}
	return false
}

func validStatus(status string) bool {
	switch status {
	case models.VoterActive, models.VoterInactive, models.VoterSuspended:
		return true
	}
	return false
}

// Register creates a voter. Status defaults to active.
func (r *Registry) Register(ctx context.Context, req models.RegisterVoterRequest, now time.Time) (models.Voter, error) {
	if req.Status == "" {
		req.Status = models.VoterActive
	}
	if strings.TrimSpace(req.Name) == "" {
		return models.Voter{}, fmt.Errorf("voter name is required: %w", models.ErrValidation)
	}
	if !validRole(req.Role) {
		return models.Voter{}, fmt.Errorf("unknown role %q: %w", req.Role, models.ErrValidation)
	}
	if !validStatus(req.Status) {
		return models.Voter{}, fmt.Errorf("unknown status %q: %w", req.Status, models.ErrValidation)
	}

	voterID, err := auth.GenerateID(12)
	if err != nil {
		return models.Voter{}, err
	}

	v := models.Voter{
		ID:         voterID,
		Name:       strings.TrimSpace(req.Name),
		Email:      req.Email,
		Department: req.Department,
		Role:       req.Role,
		Status:     req.Status,
		CreatedAt:  db.UTC(now),
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO voter (id, name, email, department, role, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, v.ID, v.Name, v.Email, v.Department, v.Role, v.Status, v.CreatedAt)
	if err != nil {
		return models.Voter{}, fmt.Errorf("failed to insert voter: %w", err)
	}

	slog.Info("voter registered", "voter_id", v.ID, "role", v.Role)
	return v, nil
}

// Get returns a voter by ID.
func (r *Registry) Get(ctx context.Context, voterID string) (models.Voter, error) {
	var v models.Voter
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, department, role, status, created_at
		FROM voter WHERE id = $1
	`, voterID).Scan(&v.ID, &v.Name, &v.Email, &v.Department, &v.Role, &v.Status, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Voter{}, fmt.Errorf("voter %s: %w", voterID, models.ErrNotFound)
	}
	if err != nil {
		return models.Voter{}, fmt.Errorf("failed to query voter: %w", err)
	}
	v.CreatedAt = v.CreatedAt.UTC()
	return v, nil
}

// SetStatus changes a voter's account status.
func (r *Registry) SetStatus(ctx context.Context, voterID, status string) error {
	if !validStatus(status) {
		return fmt.Errorf("unknown status %q: %w", status, models.ErrValidation)
	}

	res, err := r.db.ExecContext(ctx, `UPDATE voter SET status = $1 WHERE id = $2`, status, voterID)
	if err != nil {
		return fmt.Errorf("failed to update voter status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update voter status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("voter %s: %w", voterID, models.ErrNotFound)
	}

	slog.Info("voter status changed", "voter_id", voterID, "status", status)
	return nil
}
