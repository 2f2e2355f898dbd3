// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/danielhkuo/quickly-elect/models"
	"github.com/danielhkuo/quickly-elect/testutil"
)

func TestCreatePostAndElection(t *testing.T) {
	env := setupEnv(t, testutil.Before)
	handler := NewElectionHandler(env.svc, env.cfg)
	admin := testutil.AdminHeaders(env.cfg)

	// Admin key required
	req := testutil.MakeRequest("POST", "/posts", models.CreatePostRequest{Name: "Treasurer"}, nil)
	w := call(handler.CreatePost, req)
	testutil.AssertStatus(t, w, http.StatusUnauthorized)

	req = testutil.MakeRequest("POST", "/posts", models.CreatePostRequest{Name: "Treasurer"}, admin)
	w = call(handler.CreatePost, req)
	testutil.AssertStatus(t, w, http.StatusCreated)

	var post models.Post
	testutil.AssertJSON(t, w, &post)
	if post.ID == "" {
		t.Fatal("Expected post ID")
	}

	tests := []struct {
		name           string
		body           interface{}
		expectedStatus int
	}{
		{
			name: "valid election",
			body: models.CreateElectionRequest{
				Name: "Treasurer 2024", PostID: post.ID,
				OpensAt: testutil.Opens, ClosesAt: testutil.Closes,
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "closes before opens",
			body: models.CreateElectionRequest{
				Name: "Backwards", PostID: post.ID,
				OpensAt: testutil.Closes, ClosesAt: testutil.Opens,
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "missing name",
			body: models.CreateElectionRequest{
				PostID: post.ID, OpensAt: testutil.Opens, ClosesAt: testutil.Closes,
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unknown post",
			body: models.CreateElectionRequest{
				Name: "Orphan", PostID: "missing",
				OpensAt: testutil.Opens, ClosesAt: testutil.Closes,
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "not JSON",
			body:           "opens tomorrow",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/elections", tt.body, admin)
			w := call(handler.CreateElection, req)
			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusCreated {
				var v models.ElectionView
				testutil.AssertJSON(t, w, &v)
				if v.Phase != models.PhaseScheduled {
					t.Errorf("Expected phase scheduled, got %s", v.Phase)
				}
				if !v.OpensAt.Equal(testutil.Opens) {
					t.Errorf("Expected opens_at %v, got %v", testutil.Opens, v.OpensAt)
				}
			}
		})
	}
}

func TestGetElection_PhaseFollowsClock(t *testing.T) {
	env := setupEnv(t, testutil.During)
	electionID := testutil.CreateOpenElection(t, env.db)

	tests := []struct {
		name string
		now  time.Time
		want models.Phase
	}{
		{"before window", testutil.Before, models.PhaseScheduled},
		{"at opening instant", testutil.Opens, models.PhaseOpen},
		{"during window", testutil.During, models.PhaseOpen},
		{"at closing instant", testutil.Closes, models.PhaseOpen},
		{"just after close", testutil.Closes.Add(time.Second), models.PhaseClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewElectionHandler(env.at(tt.now), env.cfg)
			req := testutil.MakeRequest("GET", "/elections/"+electionID, nil, nil)
			w := call(handler.GetElection, req, "id", electionID)
			testutil.AssertStatus(t, w, http.StatusOK)

			var v models.ElectionView
			testutil.AssertJSON(t, w, &v)
			if v.Phase != tt.want {
				t.Errorf("Expected phase %s, got %s", tt.want, v.Phase)
			}
		})
	}

	t.Run("unknown election", func(t *testing.T) {
		handler := NewElectionHandler(env.svc, env.cfg)
		req := testutil.MakeRequest("GET", "/elections/missing", nil, nil)
		w := call(handler.GetElection, req, "id", "missing")
		testutil.AssertStatus(t, w, http.StatusNotFound)
	})
}

func TestListElections(t *testing.T) {
	env := setupEnv(t, testutil.During)
	handler := NewElectionHandler(env.svc, env.cfg)

	// Empty list is an array, not null
	w := call(handler.ListElections, testutil.MakeRequest("GET", "/elections", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	if body := w.Body.String(); body != "[]\n" {
		t.Errorf("Expected empty array, got %q", body)
	}

	testutil.CreateOpenElection(t, env.db)
	testutil.CreateTestElection(t, env.db, testutil.After, testutil.After.Add(24*time.Hour))

	w = call(handler.ListElections, testutil.MakeRequest("GET", "/elections", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var views []models.ElectionView
	testutil.AssertJSON(t, w, &views)
	if len(views) != 2 {
		t.Fatalf("Expected 2 elections, got %d", len(views))
	}

	phases := map[models.Phase]int{}
	for _, v := range views {
		phases[v.Phase]++
	}
	if phases[models.PhaseOpen] != 1 || phases[models.PhaseScheduled] != 1 {
		t.Errorf("Unexpected phases: %v", phases)
	}
}

func TestReschedule(t *testing.T) {
	env := setupEnv(t, testutil.During)
	handler := NewElectionHandler(env.svc, env.cfg)
	admin := testutil.AdminHeaders(env.cfg)

	electionID := testutil.CreateOpenElection(t, env.db)
	candidacyID := testutil.CreateApprovedCandidate(t, env.db, electionID, "Alice")
	voterID := testutil.CreateActiveVoter(t, env.db, "Bob")
	testutil.CastTestVote(t, env.db, electionID, voterID, candidacyID, models.AnchorUnanchored)

	later := testutil.Closes.Add(48 * time.Hour)

	tests := []struct {
		name           string
		headers        map[string]string
		body           models.RescheduleRequest
		expectedStatus int
	}{
		{
			name:           "no admin key",
			body:           models.RescheduleRequest{OpensAt: testutil.Opens, ClosesAt: later},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "extension with votes",
			headers:        admin,
			body:           models.RescheduleRequest{OpensAt: testutil.Opens, ClosesAt: later},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "moving opens_at with votes",
			headers:        admin,
			body:           models.RescheduleRequest{OpensAt: testutil.Opens.Add(time.Hour), ClosesAt: later},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "inverted window",
			headers:        admin,
			body:           models.RescheduleRequest{OpensAt: later, ClosesAt: testutil.Opens},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/elections/"+electionID+"/schedule", tt.body, tt.headers)
			w := call(handler.Reschedule, req, "id", electionID)
			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}

	e, err := env.svc.Elections.Get(t.Context(), electionID)
	if err != nil {
		t.Fatalf("Failed to load election: %v", err)
	}
	if !e.ClosesAt.Equal(later) || !e.OpensAt.Equal(testutil.Opens) {
		t.Errorf("Unexpected window %v - %v", e.OpensAt, e.ClosesAt)
	}
}

func TestGetTally(t *testing.T) {
	env := setupEnv(t, testutil.During)
	electionID := testutil.CreateOpenElection(t, env.db)
	alice := testutil.CreateApprovedCandidate(t, env.db, electionID, "Alice")
	bob := testutil.CreateApprovedCandidate(t, env.db, electionID, "Bob")
	carol := testutil.CreateApprovedCandidate(t, env.db, electionID, "Carol")

	for i, c := range []string{alice, alice, bob} {
		voterID := testutil.CreateActiveVoter(t, env.db, "voter"+string(rune('a'+i)))
		testutil.CastTestVote(t, env.db, electionID, voterID, c, models.AnchorConfirmed)
	}

	// Sealed while open
	handler := NewElectionHandler(env.svc, env.cfg)
	req := testutil.MakeRequest("GET", "/elections/"+electionID+"/tally", nil, nil)
	w := call(handler.GetTally, req, "id", electionID)
	testutil.AssertStatus(t, w, http.StatusForbidden)

	var errResp models.ErrorResponse
	testutil.AssertJSON(t, w, &errResp)
	if errResp.Code != "election_not_closed" {
		t.Errorf("Expected code election_not_closed, got %s", errResp.Code)
	}

	handler = NewElectionHandler(env.at(testutil.After), env.cfg)
	req = testutil.MakeRequest("GET", "/elections/"+electionID+"/tally", nil, nil)
	w = call(handler.GetTally, req, "id", electionID)
	testutil.AssertStatus(t, w, http.StatusOK)

	var tally models.Tally
	testutil.AssertJSON(t, w, &tally)
	if tally.TotalVotes != 3 {
		t.Errorf("Expected 3 votes, got %d", tally.TotalVotes)
	}
	if len(tally.Results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(tally.Results))
	}
	if tally.Results[0].CandidacyID != alice || tally.Results[0].Votes != 2 {
		t.Errorf("Expected Alice first with 2 votes, got %+v", tally.Results[0])
	}
	if tally.Results[2].CandidacyID != carol || tally.Results[2].Votes != 0 {
		t.Errorf("Expected Carol last with 0 votes, got %+v", tally.Results[2])
	}
	if !tally.ComputedAt.Equal(testutil.After) {
		t.Errorf("Expected computed_at %v, got %v", testutil.After, tally.ComputedAt)
	}
}
