// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API,
plus the error taxonomy shared by every component.

# Domain Types

  - Post: the office an election fills
  - Election: name, post, opens_at/closes_at window
  - Voter: profile, role, account status
  - Candidacy: a voter standing in an election, pending/approved/rejected
  - Vote: one ballot per (election, voter), with ledger anchor state
  - LedgerAddress: the voter's ledger identity
  - Tally, ReconcileReport: read models

Vote.VoterID is never serialized. Receipts carry only the vote ID and
timestamp.

# Constants

Phases are derived, never stored:

	PhaseScheduled = "scheduled"
	PhaseOpen      = "open"
	PhaseClosed    = "closed"

Anchor states:

	AnchorUnanchored → AnchorPending → AnchorConfirmed | AnchorFailed

# Errors

Every component returns (possibly wrapped) sentinels from this package.
KindOf maps an error to validation, not_found, state_conflict,
eligibility or infrastructure; CodeOf gives the stable code used in
error responses:

	if errors.Is(err, models.ErrAlreadyVoted) { ... }
	kind := models.KindOf(err)
*/
package models
