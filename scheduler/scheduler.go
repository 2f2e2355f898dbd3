// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package scheduler runs the periodic ledger jobs: anchor sweeps,
// reconciliation of every started election and balance snapshots.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/danielhkuo/quickly-elect/models"
	"github.com/danielhkuo/quickly-elect/phase"
)

const (
	sweepSpec   = "@every 1m"
	balanceSpec = "@every 1h"
	jobTimeout  = 5 * time.Minute
)

type ElectionLister interface {
	List(ctx context.Context) ([]models.Election, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, electionID string, now time.Time) (models.ReconcileReport, error)
}

type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type BalanceRefresher interface {
	RefreshBalances(ctx context.Context, now time.Time) (int, error)
}

// Jobs holds what the scheduler drives. Sweeper and Balances are nil when
// the ledger is off.
type Jobs struct {
	Elections  ElectionLister
	Reconciler Reconciler
	Sweeper    Sweeper
	Balances   BalanceRefresher
	Clock      phase.Clock
}

type Scheduler struct {
	cron   *cron.Cron
	jobs   Jobs
	ctx    context.Context
	cancel context.CancelFunc
}

// New registers the jobs. reconcileSpec is a cron spec such as
// "@every 10m" or "0 */6 * * *".
func New(reconcileSpec string, jobs Jobs) (*Scheduler, error) {
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))

	s := &Scheduler{cron: c, jobs: jobs}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if _, err := c.AddFunc(reconcileSpec, s.runJob("reconcile", s.ReconcileAll)); err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", reconcileSpec, err)
	}
	if jobs.Sweeper != nil {
		if _, err := c.AddFunc(sweepSpec, s.runJob("anchor sweep", func(ctx context.Context) error {
			_, err := jobs.Sweeper.Sweep(ctx)
			return err
		})); err != nil {
			return nil, err
		}
	}
	if jobs.Balances != nil {
		if _, err := c.AddFunc(balanceSpec, s.runJob("balance refresh", func(ctx context.Context) error {
			_, err := jobs.Balances.RefreshBalances(ctx, jobs.Clock.Now())
			return err
		})); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Scheduler) runJob(name string, fn func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
		defer cancel()

		start := time.Now()
		if err := fn(ctx); err != nil {
			slog.Error("scheduled job failed", "job", name, "error", err)
			return
		}
		slog.Debug("scheduled job finished", "job", name, "duration", time.Since(start))
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// ReconcileAll reconciles every election that has opened. A failure for one
// election does not stop the others; the last error is returned.
func (s *Scheduler) ReconcileAll(ctx context.Context) error {
	elections, err := s.jobs.Elections.List(ctx)
	if err != nil {
		return err
	}

	now := s.jobs.Clock.Now()
	var lastErr error
	for _, e := range elections {
		if phase.Of(e, now) == models.PhaseScheduled {
			continue
		}
		report, err := s.jobs.Reconciler.Reconcile(ctx, e.ID, now)
		if err != nil {
			slog.Error("reconcile failed", "election_id", e.ID, "error", err)
			lastErr = err
			continue
		}
		if len(report.Mismatches) > 0 {
			slog.Warn("ledger divergence", "election_id", e.ID,
				"mismatches", len(report.Mismatches), "failed", report.Counts[models.AnchorFailed])
		}
	}
	return lastErr
}
