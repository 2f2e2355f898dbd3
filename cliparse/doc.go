// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

A .env file in the working directory is loaded first (github.com/joho/godotenv).
Variables already present in the environment are not overwritten by it.

# CLI Flags

	-p            Server port
	-d            Database URL
	-t            Database type (sqlite or postgres)
	-admin-salt   Admin key salt
	-commit-salt  Voter commitment salt
	-ledger       Ledger mode (off, memory, ethereum)

# Environment Variables

	PORT                   → -p (default 3318)
	DATABASE_URL           → -d (required)
	DATABASE_TYPE          → -t (default sqlite)
	ADMIN_KEY_SALT         → -admin-salt (required)
	VOTER_COMMIT_SALT      → -commit-salt (required)
	LEDGER_MODE            → -ledger (default memory)
	LEDGER_RPC_URL, LEDGER_CHAIN_ID, LEDGER_ANCHOR_CONTRACT, LEDGER_SIGNER_KEY
	ANCHOR_WORKERS         (default 4)
	ANCHOR_QUEUE_SIZE      (default 1024)
	ANCHOR_MAX_ATTEMPTS    (default 5)
	ANCHOR_INITIAL_DELAY   (default 500ms)
	ANCHOR_MAX_DELAY       (default 30s)
	ANCHOR_STALE_AFTER     (default 5m, must exceed ANCHOR_MAX_DELAY)
	RECONCILE_SCHEDULE     (default "@every 10m", robfig/cron syntax)
	REQUEST_TIMEOUT        (default 10s)

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error if required values are missing or malformed.
The ethereum ledger mode additionally requires the RPC URL, the anchor
contract address and a signer key.
*/
package cliparse
