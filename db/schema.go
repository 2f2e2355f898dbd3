// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// The same DDL runs on PostgreSQL and SQLite. Timestamps are always written
// in UTC. The UNIQUE constraints below carry the one-per-key invariants:
// one candidacy per (election, voter), one vote per (election, voter) and
// one ledger address per voter.
const schema = `
-- Posts
CREATE TABLE IF NOT EXISTS post (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);

-- Elections
CREATE TABLE IF NOT EXISTS election (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    post_id TEXT NOT NULL REFERENCES post(id),
    opens_at TIMESTAMP NOT NULL,
    closes_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_election_post_id ON election(post_id);

-- Voters
CREATE TABLE IF NOT EXISTS voter (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    department TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT 'voter' CHECK (role IN ('voter', 'supervisor', 'admin')),
    status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'inactive', 'suspended')),
    created_at TIMESTAMP NOT NULL
);

-- Candidacies
CREATE TABLE IF NOT EXISTS candidacy (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES election(id),
    voter_id TEXT NOT NULL REFERENCES voter(id),
    statement TEXT NOT NULL DEFAULT '',
    state TEXT NOT NULL DEFAULT 'pending' CHECK (state IN ('pending', 'approved', 'rejected')),
    submitted_at TIMESTAMP NOT NULL,
    decided_by TEXT,
    decided_at TIMESTAMP,
    UNIQUE (election_id, voter_id)
);

CREATE INDEX IF NOT EXISTS idx_candidacy_election_state ON candidacy(election_id, state);

-- Votes
CREATE TABLE IF NOT EXISTS vote (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES election(id),
    voter_id TEXT NOT NULL REFERENCES voter(id),
    candidacy_id TEXT NOT NULL REFERENCES candidacy(id),
    cast_at TIMESTAMP NOT NULL,
    anchor_state TEXT NOT NULL DEFAULT 'unanchored'
        CHECK (anchor_state IN ('unanchored', 'pending', 'confirmed', 'failed')),
    anchor_ref TEXT,
    anchor_attempts INTEGER NOT NULL DEFAULT 0,
    anchor_error TEXT,
    anchor_updated_at TIMESTAMP,
    anchored_at TIMESTAMP,
    UNIQUE (election_id, voter_id)
);

CREATE INDEX IF NOT EXISTS idx_vote_candidacy_id ON vote(candidacy_id);
CREATE INDEX IF NOT EXISTS idx_vote_anchor_state ON vote(anchor_state);

-- Ledger addresses
CREATE TABLE IF NOT EXISTS ledger_address (
    voter_id TEXT PRIMARY KEY REFERENCES voter(id),
    address TEXT NOT NULL UNIQUE,
    valid BOOLEAN NOT NULL,
    balance TEXT,
    balance_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL
);
`
