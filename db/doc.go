// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database connections and schema creation.

# Connecting

Open selects the driver from the configured database type:

	conn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)

  - sqlite: modernc.org/sqlite (pure Go, used for development and tests)
  - postgres: github.com/lib/pq

Queries use $N placeholders, which both drivers accept.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(ctx, conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - post: offices elections are held for
  - election: schedule window per election
  - voter: profile, role and account status
  - candidacy: one per (election, voter)
  - vote: one per (election, voter), plus ledger anchor state
  - ledger_address: one per voter

# Relationships

	post 1──* election
	election 1──* candidacy *──1 voter
	election 1──* vote *──1 voter
	candidacy 1──* vote
	voter 1──1 ledger_address

# Atomicity

Invariants that must hold under concurrent requests are unique constraints,
not read-then-write checks. Callers insert and classify the failure with
IsUniqueViolation, which understands both pq and sqlite error codes.
*/
package db
