// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Quickly Elect API.

	svc := handlers.NewServices(db, cfg, chain, phase.SystemClock())
	mux := router.NewRouter(svc, cfg)

Every route except /health and / runs under middleware.WithLogging and
middleware.WithTimeout(cfg.RequestTimeout).

# Endpoints

Election configuration (admin; reads are public):

	POST /posts                       - Create post
	POST /elections                   - Create election
	GET  /elections                   - List with derived phase
	GET  /elections/{id}              - Get with derived phase
	POST /elections/{id}/schedule     - Reschedule
	GET  /elections/{id}/tally        - Tally (closed only)

Voters (admin):

	POST /voters             - Register
	POST /voters/{id}/status - Activate, deactivate, suspend

Candidacies:

	POST /elections/{id}/candidacies     - Submit (voter)
	GET  /elections/{id}/candidacies     - Approved ballot (public)
	GET  /elections/{id}/candidacies/all - Review queue (admin)
	POST /candidacies/{id}/decision      - Approve or reject (admin)

Voting (voter):

	POST /elections/{id}/votes     - Cast
	GET  /elections/{id}/has-voted - Has voted

Ledger:

	POST /voters/me/ledger-address - Ensure address (voter)
	GET  /elections/{id}/reconcile - Reconcile (admin)
	POST /votes/{id}/anchor-retry  - Retry failed anchor (admin)
*/
package router
