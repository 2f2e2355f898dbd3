// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"fmt"
	"net/http"

	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/middleware"
	"github.com/danielhkuo/quickly-elect/models"
)

type CandidacyHandler struct {
	svc *Services
	cfg cliparse.Config
}

func NewCandidacyHandler(svc *Services, cfg cliparse.Config) *CandidacyHandler {
	return &CandidacyHandler{svc: svc, cfg: cfg}
}

// Submit handles POST /elections/{id}/candidacies
// The authenticated voter stands as the candidate.
func (h *CandidacyHandler) Submit(w http.ResponseWriter, r *http.Request) {
	now := h.svc.Clock.Now()
	voterID, ok := requireVoter(w, r)
	if !ok {
		return
	}

	var req models.SubmitCandidacyRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	c, err := h.svc.Candidacies.Submit(r.Context(), r.PathValue("id"), voterID, req.Statement, now)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, c)
}

// ListApproved handles GET /elections/{id}/candidacies
func (h *CandidacyHandler) ListApproved(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.svc.Candidacies.ListApproved(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, summaries)
}

// ListAll handles GET /elections/{id}/candidacies/all
// Admin view with every state; ?state= narrows it.
func (h *CandidacyHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r, h.cfg.AdminKeySalt); !ok {
		return
	}

	state := models.CandidacyState(r.URL.Query().Get("state"))
	switch state {
	case "", models.CandidacyPending, models.CandidacyApproved, models.CandidacyRejected:
	default:
		middleware.WriteError(w, fmt.Errorf("unknown candidacy state %q: %w", state, models.ErrValidation))
		return
	}

	list, err := h.svc.Candidacies.List(r.Context(), r.PathValue("id"), state)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, list)
}

// Decide handles POST /candidacies/{id}/decision
func (h *CandidacyHandler) Decide(w http.ResponseWriter, r *http.Request) {
	now := h.svc.Clock.Now()
	adminID, ok := requireAdmin(w, r, h.cfg.AdminKeySalt)
	if !ok {
		return
	}

	var req models.DecideCandidacyRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	candidacyID := r.PathValue("id")
	if err := h.svc.Candidacies.Decide(r.Context(), candidacyID, req.Decision, adminID, now); err != nil {
		middleware.WriteError(w, err)
		return
	}

	c, err := h.svc.Candidacies.Get(r.Context(), candidacyID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, c)
}
