// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Quickly Elect API server.

Quickly Elect runs organisational elections: administrators schedule an
election for a post, voters stand as candidates, an administrator approves
the ballot, and every eligible voter casts exactly one vote while the
election is open. Each recorded vote is mirrored onto an append-only ledger
in the background; reconciliation reports any divergence.

# Starting the Server

	DATABASE_URL=file:elect.db ADMIN_KEY_SALT=... VOTER_COMMIT_SALT=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -ledger off

A .env file in the working directory is loaded first if present.

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - ADMIN_KEY_SALT (--admin-salt): Secret for admin key HMAC
  - VOTER_COMMIT_SALT (--commit-salt): Secret for voter commitments and ledger addresses

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - REQUEST_TIMEOUT: Per-request deadline (default: 10s)
  - LEDGER_MODE (-ledger): off, memory or ethereum (default: memory)
  - LEDGER_RPC_URL, LEDGER_CHAIN_ID, LEDGER_ANCHOR_CONTRACT, LEDGER_SIGNER_KEY: ethereum ledger
  - ANCHOR_WORKERS, ANCHOR_QUEUE_SIZE, ANCHOR_MAX_ATTEMPTS: anchor worker pool
  - ANCHOR_INITIAL_DELAY, ANCHOR_MAX_DELAY, ANCHOR_STALE_AFTER: anchor retry timing
  - RECONCILE_SCHEDULE: cron spec for background reconciliation (default: @every 10m)

# Architecture

  - election, voter, candidacy: configuration and registries
  - ballot: vote casting, has-voted and the tally
  - ledger: chain abstraction with memory and Ethereum backends
  - anchor: background anchoring, ledger addresses and reconciliation
  - scheduler: periodic reconcile, sweep and balance jobs
  - handlers, router, middleware: HTTP surface
  - phase: election phase derived from the schedule
  - models, auth, db, cliparse: shared types, identity, storage and config

The cmd/electionctl binary offers the same operations from the command line.
*/
package main
