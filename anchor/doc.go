// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package anchor binds voters to ledger addresses and mirrors recorded votes
onto the ledger.

Nothing here is on the voting path. A vote is authoritative the moment
ballot.Core.Cast returns; anchoring only adds tamper evidence.

# Addresses

AddressBook.EnsureAddress derives a secp256k1 key from an HMAC of the voter
ID and stores the resulting address with INSERT ... ON CONFLICT DO NOTHING
followed by a read, so concurrent first calls agree on one row.

# Anchoring

Worker receives vote IDs from the vote core through a bounded channel. Each
run claims the vote (unanchored to pending), then calls the ledger with
exponential backoff until it succeeds or MaxAttempts is reached:

	unanchored -> pending -> confirmed
	                      -> failed

Runs for the same vote ID go through a singleflight group. Across processes
the claim itself is the lock: a pending vote can only be claimed again once
its last update is older than StaleAfter. Sweep re-queues anything left
behind by a full queue or a crash.

# Reconciliation

Reconciler compares an election's votes with the ledger entries under its
key and reports, without repairing:

	missing_on_ledger      confirmed locally, absent on the ledger
	missing_locally        on the ledger, no local vote
	digest_mismatch        entry digest differs from the local recomputation
	anchored_not_recorded  on the ledger while the vote is unanchored or failed
*/
package anchor
