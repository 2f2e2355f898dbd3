package models

import "time"

// Election phases. Derived from the schedule, never stored.
type Phase string

const (
	PhaseScheduled Phase = "scheduled"
	PhaseOpen      Phase = "open"
	PhaseClosed    Phase = "closed"
)

// Candidacy states
type CandidacyState string

const (
	CandidacyPending  CandidacyState = "pending"
	CandidacyApproved CandidacyState = "approved"
	CandidacyRejected CandidacyState = "rejected"
)

// Decision is an administrator's verdict on a pending candidacy.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Voter roles
const (
	RoleVoter      = "voter"
	RoleSupervisor = "supervisor"
	RoleAdmin      = "admin"
)

// Voter account statuses
const (
	VoterActive    = "active"
	VoterInactive  = "inactive"
	VoterSuspended = "suspended"
)

// Ledger anchor states of a vote
type AnchorState string

const (
	AnchorUnanchored AnchorState = "unanchored"
	AnchorPending    AnchorState = "pending"
	AnchorConfirmed  AnchorState = "confirmed"
	AnchorFailed     AnchorState = "failed"
)

// Reconcile mismatch kinds
const (
	MismatchMissingOnLedger     = "missing_on_ledger"
	MismatchMissingLocally      = "missing_locally"
	MismatchDigest              = "digest_mismatch"
	MismatchAnchoredNotRecorded = "anchored_not_recorded"
)

// Request types

type CreatePostRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

type CreateElectionRequest struct {
	Name        string    `json:"name" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=2000"`
	PostID      string    `json:"post_id" validate:"required"`
	OpensAt     time.Time `json:"opens_at" validate:"required"`
	ClosesAt    time.Time `json:"closes_at" validate:"required,gtfield=OpensAt"`
}

type RescheduleRequest struct {
	OpensAt  time.Time `json:"opens_at" validate:"required"`
	ClosesAt time.Time `json:"closes_at" validate:"required,gtfield=OpensAt"`
}

type RegisterVoterRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	Email      string `json:"email" validate:"omitempty,email"`
	Department string `json:"department" validate:"max=200"`
	Role       string `json:"role" validate:"required,oneof=voter supervisor admin"`
	Status     string `json:"status" validate:"omitempty,oneof=active inactive suspended"`
}

type SetVoterStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive suspended"`
}

type SubmitCandidacyRequest struct {
	Statement string `json:"statement" validate:"max=5000"`
}

type DecideCandidacyRequest struct {
	Decision Decision `json:"decision" validate:"required,oneof=approve reject"`
}

type CastVoteRequest struct {
	CandidacyID string `json:"candidacy_id" validate:"required"`
}

// Response types

type CreatedResponse struct {
	ID string `json:"id"`
}

type HasVotedResponse struct {
	HasVoted bool `json:"has_voted"`
}

type LedgerAddressResponse struct {
	Address string `json:"address"`
	Valid   bool   `json:"valid"`
}

type AnchorRetryResponse struct {
	VoteID string      `json:"vote_id"`
	State  AnchorState `json:"state"`
}

// Domain types

type Post struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type Election struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	PostID         string    `json:"post_id"`
	OpensAt        time.Time `json:"opens_at"`
	ClosesAt       time.Time `json:"closes_at"`
	CandidacyCount int       `json:"candidacy_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// ElectionView is an election together with its phase at request time.
type ElectionView struct {
	Election
	Phase Phase `json:"phase"`
}

type Voter struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Department string    `json:"department"`
	Role       string    `json:"role"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

type Candidacy struct {
	ID          string         `json:"id"`
	ElectionID  string         `json:"election_id"`
	VoterID     string         `json:"voter_id"`
	Statement   string         `json:"statement"`
	State       CandidacyState `json:"state"`
	SubmittedAt time.Time      `json:"submitted_at"`
	DecidedBy   *string        `json:"decided_by,omitempty"`
	DecidedAt   *time.Time     `json:"decided_at,omitempty"`
}

// CandidacySummary is the ballot-facing view of an approved candidacy.
type CandidacySummary struct {
	ID            string    `json:"id"`
	CandidateName string    `json:"candidate_name"`
	Department    string    `json:"department"`
	Statement     string    `json:"statement"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

type Vote struct {
	ID             string      `json:"id"`
	ElectionID     string      `json:"election_id"`
	VoterID        string      `json:"-"` // Never expose in JSON
	CandidacyID    string      `json:"candidacy_id"`
	CastAt         time.Time   `json:"cast_at"`
	AnchorState    AnchorState `json:"anchor_state"`
	AnchorRef      *string     `json:"anchor_ref,omitempty"`
	AnchorAttempts int         `json:"anchor_attempts"`
	AnchorError    *string     `json:"anchor_error,omitempty"`
	AnchoredAt     *time.Time  `json:"anchored_at,omitempty"`
}

// VoteReceipt is returned to the voter after a successful cast. It carries
// no voter identity and no choice.
type VoteReceipt struct {
	VoteID string    `json:"vote_id"`
	CastAt time.Time `json:"cast_at"`
}

type LedgerAddress struct {
	VoterID   string     `json:"-"`
	Address   string     `json:"address"`
	Valid     bool       `json:"valid"`
	Balance   *string    `json:"balance,omitempty"` // informational only
	BalanceAt *time.Time `json:"balance_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Tally types

type CandidacyTally struct {
	CandidacyID   string `json:"candidacy_id"`
	CandidateName string `json:"candidate_name"`
	Votes         int    `json:"votes"`
}

type Tally struct {
	ElectionID string           `json:"election_id"`
	TotalVotes int              `json:"total_votes"`
	Results    []CandidacyTally `json:"results"`
	ComputedAt time.Time        `json:"computed_at"`
}

// Reconcile types

type Mismatch struct {
	Kind    string `json:"kind"`
	VoteKey string `json:"vote_key"` // Keccak256 of the vote ID, as seen on the ledger
	VoteID  string `json:"vote_id,omitempty"`
	Detail  string `json:"detail"`
}

type ReconcileReport struct {
	ElectionID string              `json:"election_id"`
	Counts     map[AnchorState]int `json:"counts"`
	OnLedger   int                 `json:"on_ledger"`
	Mismatches []Mismatch          `json:"mismatches"`
	OldestOpen *time.Time          `json:"oldest_open,omitempty"` // oldest cast_at among non-confirmed votes
	CheckedAt  time.Time           `json:"checked_at"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
