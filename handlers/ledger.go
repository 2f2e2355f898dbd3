// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/middleware"
	"github.com/danielhkuo/quickly-elect/models"
)

type LedgerHandler struct {
	svc *Services
	cfg cliparse.Config
}

func NewLedgerHandler(svc *Services, cfg cliparse.Config) *LedgerHandler {
	return &LedgerHandler{svc: svc, cfg: cfg}
}

// EnsureAddress handles POST /voters/me/ledger-address
// Idempotent: repeated calls return the same address.
func (h *LedgerHandler) EnsureAddress(w http.ResponseWriter, r *http.Request) {
	now := h.svc.Clock.Now()
	voterID, ok := requireVoter(w, r)
	if !ok {
		return
	}

	addr, err := h.svc.Addresses.EnsureAddress(r.Context(), voterID, now)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.LedgerAddressResponse{
		Address: addr.Address,
		Valid:   addr.Valid,
	})
}

// Reconcile handles GET /elections/{id}/reconcile
// Reports divergence between local votes and the ledger. Never repairs.
func (h *LedgerHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	now := h.svc.Clock.Now()
	if _, ok := requireAdmin(w, r, h.cfg.AdminKeySalt); !ok {
		return
	}

	report, err := h.svc.Reconciler.Reconcile(r.Context(), r.PathValue("id"), now)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, report)
}

// RetryAnchor handles POST /votes/{id}/anchor-retry
// Only failed votes can be retried.
func (h *LedgerHandler) RetryAnchor(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r, h.cfg.AdminKeySalt); !ok {
		return
	}
	if h.svc.Anchors == nil {
		middleware.WriteError(w, models.ErrLedgerUnavailable)
		return
	}

	voteID := r.PathValue("id")
	state, err := h.svc.Anchors.Retry(r.Context(), voteID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusAccepted, models.AnchorRetryResponse{
		VoteID: voteID,
		State:  state,
	})
}
