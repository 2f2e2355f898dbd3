// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package anchor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/ballot"
	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/ledger"
	"github.com/danielhkuo/quickly-elect/models"
	"github.com/danielhkuo/quickly-elect/phase"
)

const sweepBatch = 500

// Worker mirrors recorded votes onto the ledger in the background.
//
// Votes arrive through VoteCast and a bounded queue. Anchor runs for
// different votes proceed in parallel; runs for the same vote are collapsed
// into one.
type Worker struct {
	log     *ballot.AnchorLog
	chain   ledger.Chain
	salt    string
	cfg     cliparse.AnchorConfig
	backoff Backoff
	clock   phase.Clock

	queue  chan string
	group  singleflight.Group
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewWorker(log *ballot.AnchorLog, chain ledger.Chain, commitSalt string, cfg cliparse.AnchorConfig, clock phase.Clock) *Worker {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	return &Worker{
		log:   log,
		chain: chain,
		salt:  commitSalt,
		cfg:   cfg,
		backoff: Backoff{
			Initial:    cfg.InitialDelay,
			Max:        cfg.MaxDelay,
			Multiplier: 2,
			Jitter:     0.2,
		},
		clock: clock,
		queue: make(chan string, cfg.QueueSize),
	}
}

// VoteCast queues a vote for anchoring without blocking. If the queue is
// full the vote stays unanchored until the next sweep.
func (w *Worker) VoteCast(voteID string) {
	select {
	case w.queue <- voteID:
	default:
		slog.Warn("anchor queue full, leaving vote for sweep", "vote_id", voteID)
	}
}

// Start launches the worker goroutines. They run until Stop or until ctx
// is done.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	for i := 0; i < w.cfg.Workers; i++ {
		w.wg.Add(1)
		go w.run(ctx)
	}
	slog.Info("anchor worker started", "workers", w.cfg.Workers, "queue", w.cfg.QueueSize)
}

// Stop cancels in-flight anchors and waits for the goroutines to exit.
// Votes cut off mid-anchor stay pending and are picked up by a later sweep.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case voteID := <-w.queue:
			if _, err := w.Anchor(ctx, voteID); err != nil && ctx.Err() == nil {
				slog.Error("anchor failed", "vote_id", voteID, "error", err)
			}
		}
	}
}

// Anchor drives one vote to a terminal anchor state and returns the state
// it ended in. A vote that is already confirmed, failed or being anchored
// elsewhere is left alone.
func (w *Worker) Anchor(ctx context.Context, voteID string) (models.AnchorState, error) {
	state, err, _ := w.group.Do(voteID, func() (any, error) {
		return w.anchor(ctx, voteID)
	})
	s, _ := state.(models.AnchorState)
	return s, err
}

func (w *Worker) anchor(ctx context.Context, voteID string) (models.AnchorState, error) {
	now := w.clock.Now()
	v, claimed, err := w.log.ClaimForAnchoring(ctx, voteID, now, now.Add(-w.cfg.StaleAfter))
	if err != nil {
		return "", err
	}
	if !claimed {
		return v.AnchorState, nil
	}

	entry := ledger.NewEntry(v.ID, v.ElectionID, v.CandidacyID, auth.VoterCommitment(v.VoterID, w.salt))
	attempts := v.AnchorAttempts

	for {
		attempts++
		ref, err := w.chain.Anchor(ctx, entry)
		if err == nil {
			if err := w.log.ConfirmAnchor(ctx, voteID, ref, attempts, w.clock.Now()); err != nil {
				return "", err
			}
			slog.Info("vote anchored", "vote_id", voteID, "ref", ref, "attempts", attempts)
			return models.AnchorConfirmed, nil
		}

		if ctx.Err() != nil {
			return models.AnchorPending, ctx.Err()
		}

		if attempts >= w.cfg.MaxAttempts {
			if ferr := w.log.FailAnchor(ctx, voteID, attempts, err.Error(), w.clock.Now()); ferr != nil {
				return "", ferr
			}
			slog.Error("anchor retries exhausted", "vote_id", voteID, "attempts", attempts, "error", err)
			return models.AnchorFailed, nil
		}

		if rerr := w.log.RecordAnchorAttempt(ctx, voteID, attempts, err.Error(), w.clock.Now()); rerr != nil {
			return "", rerr
		}

		delay := w.backoff.Delay(attempts)
		slog.Warn("anchor attempt failed, retrying", "vote_id", voteID,
			"attempt", attempts, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return models.AnchorPending, ctx.Err()
		case <-timer.C:
		}
	}
}

// Sweep queues votes that were never handed to the worker or whose anchor
// run was cut off. It stops early when the queue is full and returns how
// many it queued.
func (w *Worker) Sweep(ctx context.Context) (int, error) {
	ids, err := w.log.ListAnchorable(ctx, w.clock.Now().Add(-w.cfg.StaleAfter), sweepBatch)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, id := range ids {
		select {
		case w.queue <- id:
			queued++
		default:
			slog.Warn("anchor queue full, sweep stopped early", "queued", queued, "pending", len(ids))
			return queued, nil
		}
	}

	if queued > 0 {
		slog.Info("anchor sweep queued votes", "queued", queued)
	}
	return queued, nil
}

// Drain anchors every anchorable vote synchronously and returns how many
// ended in each state. It is meant for one-shot runs without Start.
func (w *Worker) Drain(ctx context.Context) (map[models.AnchorState]int, error) {
	ids, err := w.log.ListAnchorable(ctx, w.clock.Now().Add(-w.cfg.StaleAfter), sweepBatch)
	if err != nil {
		return nil, err
	}

	results := make(map[models.AnchorState]int)
	for _, id := range ids {
		state, err := w.Anchor(ctx, id)
		if err != nil {
			return results, fmt.Errorf("anchor %s: %w", id, err)
		}
		results[state]++
	}
	return results, nil
}

// Retry resets a failed vote and queues it again.
func (w *Worker) Retry(ctx context.Context, voteID string) (models.AnchorState, error) {
	if err := w.log.ResetFailedAnchor(ctx, voteID, w.clock.Now()); err != nil {
		return "", err
	}
	slog.Info("anchor retry requested", "vote_id", voteID)
	w.VoteCast(voteID)
	return models.AnchorUnanchored, nil
}
