// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides identity helpers and ID generation.

Session handling lives upstream: by the time a request reaches this service
the voter has been authenticated and arrives as an opaque ID. This package
only covers what the core itself needs.

# Admin Keys

Admin keys use HMAC-SHA256 to create deterministic, verifiable keys:

	adminKey := auth.GenerateAdminKey(adminID, salt)
	err := auth.ValidateAdminKey(adminID, adminKey, salt)

The key is URL-safe base64 encoded without padding. Since it's deterministic,
the same admin ID and salt always produce the same key. This allows validation
without storing the key in the database.

# Voter Commitments

	c := auth.VoterCommitment(voterID, salt)

A 32-byte HMAC of the voter ID. Ledger digests include it instead of the ID so
that the ledger never carries a voter identity.

# Address Seeds

	seed := auth.AddressSeed(voterID, salt)

Seed for deterministic ledger key derivation, domain-separated from the
commitment.

# ID Generation

Random hex IDs for database records:

	id, err := auth.GenerateID(16)  // 32 hex characters
*/
package auth
