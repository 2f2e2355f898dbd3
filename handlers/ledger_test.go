// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"testing"

	"github.com/danielhkuo/quickly-elect/anchor"
	"github.com/danielhkuo/quickly-elect/models"
	"github.com/danielhkuo/quickly-elect/phase"
	"github.com/danielhkuo/quickly-elect/testutil"
)

func TestEnsureAddress(t *testing.T) {
	env := setupEnv(t, testutil.During)
	handler := NewLedgerHandler(env.svc, env.cfg)
	voterID := testutil.CreateActiveVoter(t, env.db, "Ada")

	ensure := func(headers map[string]string) (int, models.LedgerAddressResponse) {
		req := testutil.MakeRequest("POST", "/voters/me/ledger-address", nil, headers)
		w := call(handler.EnsureAddress, req)
		var resp models.LedgerAddressResponse
		if w.Code == http.StatusOK {
			testutil.AssertJSON(t, w, &resp)
		}
		return w.Code, resp
	}

	code, first := ensure(testutil.VoterHeaders(voterID))
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if !first.Valid {
		t.Error("Expected a valid address")
	}
	if want := anchor.DeriveAddress(voterID, env.cfg.VoterCommitKey).Hex(); first.Address != want {
		t.Errorf("Expected address %s, got %s", want, first.Address)
	}

	code, second := ensure(testutil.VoterHeaders(voterID))
	if code != http.StatusOK || second.Address != first.Address {
		t.Errorf("Expected the same address again, got %d %s", code, second.Address)
	}

	if code, _ := ensure(nil); code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without identity, got %d", code)
	}
	if code, _ := ensure(testutil.VoterHeaders("missing")); code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown voter, got %d", code)
	}
}

func TestReconcileElection(t *testing.T) {
	env := setupEnv(t, testutil.After)
	handler := NewLedgerHandler(env.svc, env.cfg)
	admin := testutil.AdminHeaders(env.cfg)

	electionID := testutil.CreateOpenElection(t, env.db)
	candidacyID := testutil.CreateApprovedCandidate(t, env.db, electionID, "Alice")
	testutil.CastTestVote(t, env.db, electionID, testutil.CreateActiveVoter(t, env.db, "Bob"),
		candidacyID, models.AnchorConfirmed)
	testutil.CastTestVote(t, env.db, electionID, testutil.CreateActiveVoter(t, env.db, "Carol"),
		candidacyID, models.AnchorUnanchored)

	req := testutil.MakeRequest("GET", "/elections/"+electionID+"/reconcile", nil, nil)
	w := call(handler.Reconcile, req, "id", electionID)
	testutil.AssertStatus(t, w, http.StatusUnauthorized)

	req = testutil.MakeRequest("GET", "/elections/"+electionID+"/reconcile", nil, admin)
	w = call(handler.Reconcile, req, "id", electionID)
	testutil.AssertStatus(t, w, http.StatusOK)

	var report models.ReconcileReport
	testutil.AssertJSON(t, w, &report)
	if report.Counts[models.AnchorConfirmed] != 1 || report.Counts[models.AnchorUnanchored] != 1 {
		t.Errorf("Unexpected counts %v", report.Counts)
	}
	// The confirmed vote was never written to the ledger
	if len(report.Mismatches) != 1 || report.Mismatches[0].Kind != models.MismatchMissingOnLedger {
		t.Errorf("Expected one missing_on_ledger mismatch, got %+v", report.Mismatches)
	}
	if report.OldestOpen == nil || !report.OldestOpen.Equal(testutil.During) {
		t.Errorf("Expected oldest_open %v, got %v", testutil.During, report.OldestOpen)
	}

	req = testutil.MakeRequest("GET", "/elections/missing/reconcile", nil, admin)
	w = call(handler.Reconcile, req, "id", "missing")
	testutil.AssertStatus(t, w, http.StatusNotFound)

	t.Run("ledger off reports counts only", func(t *testing.T) {
		off := NewLedgerHandler(NewServices(env.db, env.cfg, nil, phase.FixedClock(testutil.After)), env.cfg)
		req := testutil.MakeRequest("GET", "/elections/"+electionID+"/reconcile", nil, admin)
		w := call(off.Reconcile, req, "id", electionID)
		testutil.AssertStatus(t, w, http.StatusOK)

		var report models.ReconcileReport
		testutil.AssertJSON(t, w, &report)
		if len(report.Mismatches) != 0 {
			t.Errorf("Expected no mismatches without a ledger, got %+v", report.Mismatches)
		}
		if report.Counts[models.AnchorConfirmed] != 1 {
			t.Errorf("Unexpected counts %v", report.Counts)
		}
	})
}

func TestRetryAnchor(t *testing.T) {
	env := setupEnv(t, testutil.After)
	handler := NewLedgerHandler(env.svc, env.cfg)
	admin := testutil.AdminHeaders(env.cfg)

	electionID := testutil.CreateOpenElection(t, env.db)
	candidacyID := testutil.CreateApprovedCandidate(t, env.db, electionID, "Alice")
	failed := testutil.CastTestVote(t, env.db, electionID, testutil.CreateActiveVoter(t, env.db, "Bob"),
		candidacyID, models.AnchorFailed)
	confirmed := testutil.CastTestVote(t, env.db, electionID, testutil.CreateActiveVoter(t, env.db, "Carol"),
		candidacyID, models.AnchorConfirmed)

	tests := []struct {
		name           string
		voteID         string
		headers        map[string]string
		expectedStatus int
	}{
		{"no admin key", failed, nil, http.StatusUnauthorized},
		{"failed vote", failed, admin, http.StatusAccepted},
		{"already reset", failed, admin, http.StatusConflict},
		{"confirmed vote", confirmed, admin, http.StatusConflict},
		{"unknown vote", "missing", admin, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/votes/"+tt.voteID+"/anchor-retry", nil, tt.headers)
			w := call(handler.RetryAnchor, req, "id", tt.voteID)
			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusAccepted {
				var resp models.AnchorRetryResponse
				testutil.AssertJSON(t, w, &resp)
				if resp.State != models.AnchorUnanchored {
					t.Errorf("Expected unanchored, got %s", resp.State)
				}
			}
		})
	}

	if state := testutil.AnchorStateOf(t, env.db, failed); state != models.AnchorUnanchored {
		t.Errorf("Expected vote reset to unanchored, got %s", state)
	}

	t.Run("ledger off", func(t *testing.T) {
		off := NewLedgerHandler(NewServices(env.db, env.cfg, nil, phase.FixedClock(testutil.After)), env.cfg)
		req := testutil.MakeRequest("POST", "/votes/"+confirmed+"/anchor-retry", nil, admin)
		w := call(off.RetryAnchor, req, "id", confirmed)
		testutil.AssertStatus(t, w, http.StatusServiceUnavailable)
	})
}
