// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging and Deadlines

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))
	mux.HandleFunc("POST /elections/{id}/votes",
		middleware.WithLogging(middleware.WithTimeout(cfg.RequestTimeout, h.CastVote)))

WithLogging records method, path, client IP, status and duration_ms.
WithTimeout puts a deadline on the request context.

# CORS

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Backed by github.com/rs/cors. Allows GET, POST, PUT, DELETE, OPTIONS with
Content-Type, Authorization, X-Voter-ID, X-Admin-ID and X-Admin-Key.

# Identity

Voters are authenticated upstream and arrive as X-Voter-ID. Administrators
send X-Admin-ID and an HMAC X-Admin-Key:

	voterID, err := middleware.VoterID(r)
	adminID, err := middleware.AdminID(r, cfg.AdminKeySalt)

# JSON Helpers

	var req models.CastVoteRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, receipt)

DecodeAndValidate runs go-playground/validator over the struct's validate
tags. WriteError maps the error taxonomy in models to a status:

	validation      400
	not found       404
	state conflict  409 (also election_not_open)
	eligibility     403
	infrastructure  503
*/
package middleware
