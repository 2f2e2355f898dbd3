// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package candidacy stores candidacy submissions and their approval state.

# State Machine

	pending -> approved
	pending -> rejected

Both targets are terminal. A rejected candidate who wants to stand again
needs a new submission in a different election; within one election the
(election, voter) pair is unique.

Decide is a single conditional UPDATE on state = 'pending', so two
administrators deciding the same candidacy at once produce one decision and
one ErrInvalidTransition.

# Submissions

Submissions are accepted while the election is scheduled or open and refused
with ErrElectionNotAcceptingCandidacies once it has closed.
*/
package candidacy
