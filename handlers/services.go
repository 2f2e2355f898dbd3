// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"

	"github.com/danielhkuo/quickly-elect/anchor"
	"github.com/danielhkuo/quickly-elect/ballot"
	"github.com/danielhkuo/quickly-elect/candidacy"
	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/election"
	"github.com/danielhkuo/quickly-elect/ledger"
	"github.com/danielhkuo/quickly-elect/phase"
	"github.com/danielhkuo/quickly-elect/voter"
)

// Services wires the core components together. Anchors is nil when the
// ledger is off.
type Services struct {
	Elections   *election.Store
	Voters      *voter.Registry
	Candidacies *candidacy.Registry
	Ballots     *ballot.Core
	Votes       *ballot.AnchorLog
	Addresses   *anchor.AddressBook
	Anchors     *anchor.Worker
	Reconciler  *anchor.Reconciler
	Clock       phase.Clock
}

// NewServices builds every component over conn. chain may be nil.
// The anchor worker is created but not started.
func NewServices(conn *sql.DB, cfg cliparse.Config, chain ledger.Chain, clock phase.Clock) *Services {
	if clock == nil {
		clock = phase.SystemClock()
	}

	s := &Services{
		Elections: election.NewStore(conn),
		Voters:    voter.NewRegistry(conn),
		Votes:     ballot.NewAnchorLog(conn),
		Clock:     clock,
	}
	s.Candidacies = candidacy.NewRegistry(conn, s.Elections, s.Voters)
	s.Addresses = anchor.NewAddressBook(conn, chain, cfg.VoterCommitKey, s.Voters)
	s.Reconciler = anchor.NewReconciler(s.Elections, s.Votes, chain, cfg.VoterCommitKey)

	// A nil *Worker must not become a non-nil Notifier
	var notify ballot.Notifier
	if chain != nil {
		s.Anchors = anchor.NewWorker(s.Votes, chain, cfg.VoterCommitKey, cfg.Anchor, clock)
		notify = s.Anchors
	}
	s.Ballots = ballot.NewCore(conn, s.Elections, s.Voters, s.Candidacies, notify)

	return s
}
