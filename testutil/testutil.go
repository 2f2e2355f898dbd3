// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/db"
	"github.com/danielhkuo/quickly-elect/models"
)

// Fixed instants used across tests. The default test election is open
// between Opens and Closes.
var (
	Opens  = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	Closes = time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	During = time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)
	Before = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	After  = time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC)
)

// SetupTestDB creates a fresh SQLite database in a temp dir with the full
// production schema. It is closed when the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	conn, err := db.Open(ctx, db.TypeSQLite, "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(ctx, conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:           3318,
		DatabaseURL:    "file::memory:",
		DatabaseType:   db.TypeSQLite,
		AdminKeySalt:   "test-admin-salt",
		VoterCommitKey: "test-commit-salt",
		RequestTimeout: 5 * time.Second,
		Ledger: cliparse.LedgerConfig{
			Mode: cliparse.LedgerMemory,
		},
		Anchor: cliparse.AnchorConfig{
			Workers:      2,
			QueueSize:    64,
			MaxAttempts:  5,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			StaleAfter:   time.Minute,
		},
		ReconcileSchedule: "@every 1h",
	}
}

// AdminHeaders returns headers identifying a valid administrator.
func AdminHeaders(cfg cliparse.Config) map[string]string {
	return map[string]string{
		"X-Admin-ID":  "admin-1",
		"X-Admin-Key": auth.GenerateAdminKey("admin-1", cfg.AdminKeySalt),
	}
}

// VoterHeaders returns headers carrying an authenticated voter ID.
func VoterHeaders(voterID string) map[string]string {
	return map[string]string{"X-Voter-ID": voterID}
}

// CreateTestPost inserts a post and returns its ID
func CreateTestPost(t *testing.T, conn *sql.DB) string {
	t.Helper()

	postID, _ := auth.GenerateID(12)
	_, err := conn.Exec(`
		INSERT INTO post (id, name, description, created_at)
		VALUES ($1, 'President', 'Head of the organization', $2)
	`, postID, db.UTC(Before))
	if err != nil {
		t.Fatalf("Failed to create test post: %v", err)
	}

	return postID
}

// CreateTestElection inserts an election with the given window and returns its ID
func CreateTestElection(t *testing.T, conn *sql.DB, opensAt, closesAt time.Time) string {
	t.Helper()

	postID := CreateTestPost(t, conn)
	electionID, _ := auth.GenerateID(16)
	_, err := conn.Exec(`
		INSERT INTO election (id, name, description, post_id, opens_at, closes_at, created_at)
		VALUES ($1, 'Board Election', 'Annual board election', $2, $3, $4, $5)
	`, electionID, postID, db.UTC(opensAt), db.UTC(closesAt), db.UTC(Before))
	if err != nil {
		t.Fatalf("Failed to create test election: %v", err)
	}

	return electionID
}

// CreateOpenElection inserts an election spanning Opens..Closes
func CreateOpenElection(t *testing.T, conn *sql.DB) string {
	t.Helper()
	return CreateTestElection(t, conn, Opens, Closes)
}

// CreateTestVoter inserts a voter and returns its ID
func CreateTestVoter(t *testing.T, conn *sql.DB, name, role, status string) string {
	t.Helper()

	voterID, _ := auth.GenerateID(12)
	_, err := conn.Exec(`
		INSERT INTO voter (id, name, email, department, role, status, created_at)
		VALUES ($1, $2, $3, 'Engineering', $4, $5, $6)
	`, voterID, name, name+"@example.org", role, status, db.UTC(Before))
	if err != nil {
		t.Fatalf("Failed to create test voter: %v", err)
	}

	return voterID
}

// CreateActiveVoter inserts an active voter with the voter role
func CreateActiveVoter(t *testing.T, conn *sql.DB, name string) string {
	t.Helper()
	return CreateTestVoter(t, conn, name, models.RoleVoter, models.VoterActive)
}

// CreateTestCandidacy inserts a candidacy in the given state and returns its ID
func CreateTestCandidacy(t *testing.T, conn *sql.DB, electionID, voterID string, state models.CandidacyState) string {
	t.Helper()

	candidacyID, _ := auth.GenerateID(12)
	_, err := conn.Exec(`
		INSERT INTO candidacy (id, election_id, voter_id, statement, state, submitted_at)
		VALUES ($1, $2, $3, 'I will serve', $4, $5)
	`, candidacyID, electionID, voterID, string(state), db.UTC(Before))
	if err != nil {
		t.Fatalf("Failed to create test candidacy: %v", err)
	}

	return candidacyID
}

// CreateApprovedCandidate registers a new voter standing as an approved
// candidate and returns the candidacy ID
func CreateApprovedCandidate(t *testing.T, conn *sql.DB, electionID, name string) string {
	t.Helper()
	voterID := CreateActiveVoter(t, conn, name)
	return CreateTestCandidacy(t, conn, electionID, voterID, models.CandidacyApproved)
}

// CastTestVote inserts a vote directly with the given anchor state
func CastTestVote(t *testing.T, conn *sql.DB, electionID, voterID, candidacyID string, state models.AnchorState) string {
	t.Helper()

	voteID := uuid.NewString()
	_, err := conn.Exec(`
		INSERT INTO vote (id, election_id, voter_id, candidacy_id, cast_at, anchor_state, anchor_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $5)
	`, voteID, electionID, voterID, candidacyID, db.UTC(During), string(state))
	if err != nil {
		t.Fatalf("Failed to create test vote: %v", err)
	}

	return voteID
}

// AnchorStateOf reads a vote's anchor state
func AnchorStateOf(t *testing.T, conn *sql.DB, voteID string) models.AnchorState {
	t.Helper()

	var state string
	if err := conn.QueryRow(`SELECT anchor_state FROM vote WHERE id = $1`, voteID).Scan(&state); err != nil {
		t.Fatalf("Failed to read anchor state: %v", err)
	}
	return models.AnchorState(state)
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
