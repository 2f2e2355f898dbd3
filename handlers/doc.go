// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Quickly Elect API.

# Services

Handlers share one Services value that wires the core components:

	svc := handlers.NewServices(db, cfg, chain, phase.SystemClock())
	electionHandler := handlers.NewElectionHandler(svc, cfg)

chain is nil when the ledger is off; svc.Anchors is then nil as well and
anchor retries answer 503.

Every handler reads svc.Clock once on entry and passes that instant to
every check the request makes.

# Handler Types

  - ElectionHandler: posts, elections, schedule changes and the tally
  - VoterHandler: voter registration and account status
  - CandidacyHandler: candidacy submission, review and the ballot
  - VotingHandler: casting votes and has-voted checks
  - LedgerHandler: ledger addresses, reconciliation and anchor retries

# Identity

Voter operations require X-Voter-ID. Admin operations require X-Admin-ID and
X-Admin-Key. Missing or bad credentials answer 401; every other failure goes
through middleware.WriteError.

# Voting Flow

	GET  /elections/{id}/candidacies → ListApproved
	POST /elections/{id}/votes       → CastVote (returns a receipt)
	GET  /elections/{id}/has-voted   → HasVoted
	GET  /elections/{id}/tally       → GetTally (after close only)

A receipt carries the vote ID and cast time, never the choice.
*/
package handlers
