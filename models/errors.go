// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "errors"

// Kind groups errors by how callers should react to them.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindStateConflict  Kind = "state_conflict"
	KindEligibility    Kind = "eligibility"
	KindInfrastructure Kind = "infrastructure"
)

var (
	ErrValidation = errors.New("invalid input")
	ErrNotFound   = errors.New("not found")

	ErrAlreadyVoted       = errors.New("voter has already voted in this election")
	ErrDuplicateCandidacy = errors.New("voter already has a candidacy in this election")
	ErrInvalidTransition  = errors.New("candidacy is not pending")
	ErrScheduleLocked     = errors.New("election schedule can only be extended once votes exist")

	ErrVoterNotEligible                = errors.New("voter is not eligible to vote")
	ErrElectionNotOpen                 = errors.New("election is not open")
	ErrCandidateNotApproved            = errors.New("candidate is not approved for this election")
	ErrElectionNotAcceptingCandidacies = errors.New("election is not accepting candidacies")
	ErrElectionNotClosed               = errors.New("results are sealed until the election closes")

	ErrLedgerUnavailable = errors.New("ledger unavailable")
)

var kinds = []struct {
	err  error
	kind Kind
	code string
}{
	{ErrValidation, KindValidation, "invalid_input"},
	{ErrNotFound, KindNotFound, "not_found"},
	{ErrAlreadyVoted, KindStateConflict, "already_voted"},
	{ErrDuplicateCandidacy, KindStateConflict, "duplicate_candidacy"},
	{ErrInvalidTransition, KindStateConflict, "invalid_transition"},
	{ErrScheduleLocked, KindStateConflict, "schedule_locked"},
	{ErrVoterNotEligible, KindEligibility, "voter_not_eligible"},
	{ErrElectionNotOpen, KindEligibility, "election_not_open"},
	{ErrCandidateNotApproved, KindEligibility, "candidate_not_approved"},
	{ErrElectionNotAcceptingCandidacies, KindEligibility, "election_not_accepting_candidacies"},
	{ErrElectionNotClosed, KindEligibility, "election_not_closed"},
	{ErrLedgerUnavailable, KindInfrastructure, "ledger_unavailable"},
}

// KindOf classifies err. Anything unrecognised is infrastructure.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInfrastructure
}

// CodeOf returns the stable machine-readable code for err.
func CodeOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return "unavailable"
}
