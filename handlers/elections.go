// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"time"

	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/middleware"
	"github.com/danielhkuo/quickly-elect/models"
	"github.com/danielhkuo/quickly-elect/phase"
)

type ElectionHandler struct {
	svc *Services
	cfg cliparse.Config
}

func NewElectionHandler(svc *Services, cfg cliparse.Config) *ElectionHandler {
	return &ElectionHandler{svc: svc, cfg: cfg}
}

// CreatePost handles POST /posts
func (h *ElectionHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	now := h.svc.Clock.Now()
	if _, ok := requireAdmin(w, r, h.cfg.AdminKeySalt); !ok {
		return
	}

	var req models.CreatePostRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	post, err := h.svc.Elections.CreatePost(r.Context(), req.Name, req.Description, now)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, post)
}

// CreateElection handles POST /elections
func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	now := h.svc.Clock.Now()
	if _, ok := requireAdmin(w, r, h.cfg.AdminKeySalt); !ok {
		return
	}

	var req models.CreateElectionRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	e, err := h.svc.Elections.CreateElection(r.Context(), req, now)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, view(e, now))
}

// ListElections handles GET /elections
func (h *ElectionHandler) ListElections(w http.ResponseWriter, r *http.Request) {
	now := h.svc.Clock.Now()

	elections, err := h.svc.Elections.List(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	views := make([]models.ElectionView, 0, len(elections))
	for _, e := range elections {
		views = append(views, view(e, now))
	}
	middleware.JSONResponse(w, http.StatusOK, views)
}

// GetElection handles GET /elections/{id}
func (h *ElectionHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	now := h.svc.Clock.Now()

	e, err := h.svc.Elections.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, view(e, now))
}

// Reschedule handles POST /elections/{id}/schedule
func (h *ElectionHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	now := h.svc.Clock.Now()
	if _, ok := requireAdmin(w, r, h.cfg.AdminKeySalt); !ok {
		return
	}

	var req models.RescheduleRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	e, err := h.svc.Elections.Reschedule(r.Context(), r.PathValue("id"), req.OpensAt, req.ClosesAt, now)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, view(e, now))
}

// GetTally handles GET /elections/{id}/tally
// Sealed until the election closes.
func (h *ElectionHandler) GetTally(w http.ResponseWriter, r *http.Request) {
	now := h.svc.Clock.Now()

	tally, err := h.svc.Ballots.Tally(r.Context(), r.PathValue("id"), now)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, tally)
}

func view(e models.Election, now time.Time) models.ElectionView {
	return models.ElectionView{Election: e, Phase: phase.Of(e, now)}
}
