// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/middleware"
	"github.com/danielhkuo/quickly-elect/models"
)

type VoterHandler struct {
	svc *Services
	cfg cliparse.Config
}

func NewVoterHandler(svc *Services, cfg cliparse.Config) *VoterHandler {
	return &VoterHandler{svc: svc, cfg: cfg}
}

// Register handles POST /voters
func (h *VoterHandler) Register(w http.ResponseWriter, r *http.Request) {
	now := h.svc.Clock.Now()
	if _, ok := requireAdmin(w, r, h.cfg.AdminKeySalt); !ok {
		return
	}

	var req models.RegisterVoterRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	v, err := h.svc.Voters.Register(r.Context(), req, now)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, v)
}

// SetStatus handles POST /voters/{id}/status
// Suspending a voter blocks future votes only.
func (h *VoterHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r, h.cfg.AdminKeySalt); !ok {
		return
	}

	var req models.SetVoterStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	voterID := r.PathValue("id")
	if err := h.svc.Voters.SetStatus(r.Context(), voterID, req.Status); err != nil {
		middleware.WriteError(w, err)
		return
	}

	v, err := h.svc.Voters.Get(r.Context(), voterID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, v)
}
