// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ledger adapts distributed ledgers that votes are anchored to.

An anchored vote is a VoteAnchored(election, vote, digest) event, all three
topics indexed:

	election = keccak256(electionID)
	vote     = keccak256(voteID)
	digest   = keccak256(voteID 0x00 electionID 0x00 candidacyID 0x00 commitment)

The commitment is an HMAC of the voter ID under a server secret, so the
ledger alone reveals neither who voted nor for whom, while the server can
recompute every digest from its own records.

Two implementations exist: Memory for development and tests, and EthChain
which signs legacy transactions against an anchor contract through
ethclient. Both are idempotent per vote key.
*/
package ledger
