// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package election stores posts and election schedules.

An election is held for one post and is open for voting between OpensAt and
ClosesAt, both inclusive. The phase is never stored; see package phase.

	store := election.NewStore(db)
	e, err := store.CreateElection(ctx, req, now)

# Rescheduling

Before the first vote any valid window may be set. Once a vote exists only
extending ClosesAt is allowed; anything else fails with
models.ErrScheduleLocked. The vote check and the update run as one
statement.
*/
package election
