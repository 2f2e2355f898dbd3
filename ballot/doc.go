// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ballot records votes and computes sealed tallies.

# Casting

Core.Cast checks, in order:

 1. the voter exists, has the voter role and is active (ErrVoterNotEligible)
 2. the election is open at the request's now (ErrElectionNotOpen)
 3. the candidacy is approved for this election (ErrCandidateNotApproved)
 4. no vote exists for (election, voter) (ErrAlreadyVoted)

Step 4 is not a read. The INSERT runs against a UNIQUE (election_id,
voter_id) constraint and a violation is reported as ErrAlreadyVoted, so N
concurrent casts for one voter produce exactly one row.

A successful cast hands the vote ID to a Notifier, normally the anchor
worker, without waiting for it.

# Receipts

The receipt holds only the vote ID and cast time. Vote.VoterID is kept in
storage for the uniqueness check and is never serialized.

# Anchor State

AnchorLog is the only code that updates a vote after insertion, and it only
touches the anchor columns:

	unanchored -> pending -> confirmed
	                      -> failed -> unanchored (operator retry)

A pending vote whose last update is older than the stale threshold can be
claimed again; this recovers from a crash mid-anchor.

# Tally

Tally is refused with ErrElectionNotClosed until the election has closed.
*/
package ballot
