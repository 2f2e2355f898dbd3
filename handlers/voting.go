// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/middleware"
	"github.com/danielhkuo/quickly-elect/models"
)

type VotingHandler struct {
	svc *Services
	cfg cliparse.Config
}

func NewVotingHandler(svc *Services, cfg cliparse.Config) *VotingHandler {
	return &VotingHandler{svc: svc, cfg: cfg}
}

// CastVote handles POST /elections/{id}/votes
// One vote per voter per election. Votes cannot be changed.
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	now := h.svc.Clock.Now()
	voterID, ok := requireVoter(w, r)
	if !ok {
		return
	}

	var req models.CastVoteRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	receipt, err := h.svc.Ballots.Cast(r.Context(), r.PathValue("id"), voterID, req.CandidacyID, now)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, receipt)
}

// HasVoted handles GET /elections/{id}/has-voted
func (h *VotingHandler) HasVoted(w http.ResponseWriter, r *http.Request) {
	voterID, ok := requireVoter(w, r)
	if !ok {
		return
	}

	voted, err := h.svc.Ballots.HasVoted(r.Context(), r.PathValue("id"), voterID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.HasVotedResponse{HasVoted: voted})
}
