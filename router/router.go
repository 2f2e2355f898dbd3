// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/handlers"
	"github.com/danielhkuo/quickly-elect/middleware"
)

func NewRouter(svc *handlers.Services, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	electionHandler := handlers.NewElectionHandler(svc, cfg)
	voterHandler := handlers.NewVoterHandler(svc, cfg)
	candidacyHandler := handlers.NewCandidacyHandler(svc, cfg)
	votingHandler := handlers.NewVotingHandler(svc, cfg)
	ledgerHandler := handlers.NewLedgerHandler(svc, cfg)

	wrap := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.WithTimeout(cfg.RequestTimeout, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Election configuration (admin, reads are public)
	mux.HandleFunc("POST /posts", wrap(electionHandler.CreatePost))
	mux.HandleFunc("POST /elections", wrap(electionHandler.CreateElection))
	mux.HandleFunc("GET /elections", wrap(electionHandler.ListElections))
	mux.HandleFunc("GET /elections/{id}", wrap(electionHandler.GetElection))
	mux.HandleFunc("POST /elections/{id}/schedule", wrap(electionHandler.Reschedule))
	mux.HandleFunc("GET /elections/{id}/tally", wrap(electionHandler.GetTally))

	// Voter registry (admin)
	mux.HandleFunc("POST /voters", wrap(voterHandler.Register))
	mux.HandleFunc("POST /voters/{id}/status", wrap(voterHandler.SetStatus))

	// Candidacies
	mux.HandleFunc("POST /elections/{id}/candidacies", wrap(candidacyHandler.Submit))
	mux.HandleFunc("GET /elections/{id}/candidacies", wrap(candidacyHandler.ListApproved))
	mux.HandleFunc("GET /elections/{id}/candidacies/all", wrap(candidacyHandler.ListAll))
	mux.HandleFunc("POST /candidacies/{id}/decision", wrap(candidacyHandler.Decide))

	// Voting (voter)
	mux.HandleFunc("POST /elections/{id}/votes", wrap(votingHandler.CastVote))
	mux.HandleFunc("GET /elections/{id}/has-voted", wrap(votingHandler.HasVoted))

	// Ledger
	mux.HandleFunc("POST /voters/me/ledger-address", wrap(ledgerHandler.EnsureAddress))
	mux.HandleFunc("GET /elections/{id}/reconcile", wrap(ledgerHandler.Reconcile))
	mux.HandleFunc("POST /votes/{id}/anchor-retry", wrap(ledgerHandler.RetryAnchor))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("quickly-elect API v1"))
	})

	return mux
}
