package anchor

import (
	"context"
	"database/sql"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/ballot"
	"github.com/danielhkuo/quickly-elect/candidacy"
	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/election"
	"github.com/danielhkuo/quickly-elect/ledger"
	"github.com/danielhkuo/quickly-elect/models"
	"github.com/danielhkuo/quickly-elect/phase"
	"github.com/danielhkuo/quickly-elect/testutil"
	"github.com/danielhkuo/quickly-elect/voter"
)

const commitSalt = "test-commit-salt"

var errRPC = errors.New("rpc unavailable")

type fixture struct {
	conn       *sql.DB
	log        *ballot.AnchorLog
	chain      *ledger.Memory
	elections  *election.Store
	voters     *voter.Registry
	electionID string
	candidacy  string
}

func setup(t *testing.T) fixture {
	t.Helper()
	conn := testutil.SetupTestDB(t)
	f := fixture{
		conn:      conn,
		log:       ballot.NewAnchorLog(conn),
		chain:     ledger.NewMemory(),
		elections: election.NewStore(conn),
		voters:    voter.NewRegistry(conn),
	}
	f.electionID = testutil.CreateOpenElection(t, conn)
	f.candidacy = testutil.CreateApprovedCandidate(t, conn, f.electionID, "Alice")
	return f
}

func (f fixture) vote(t *testing.T, state models.AnchorState) string {
	t.Helper()
	v := testutil.CreateActiveVoter(t, f.conn, "V")
	return testutil.CastTestVote(t, f.conn, f.electionID, v, f.candidacy, state)
}

func (f fixture) worker(cfg cliparse.AnchorConfig, now time.Time) *Worker {
	return NewWorker(f.log, f.chain, commitSalt, cfg, phase.FixedClock(now))
}

func testAnchorConfig() cliparse.AnchorConfig {
	return testutil.GetTestConfig().Anchor
}

func TestWorker_RetriesThenConfirms(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	voteID := f.vote(t, models.AnchorUnanchored)
	w := f.worker(testAnchorConfig(), testutil.During)

	f.chain.FailNext(3, errRPC)

	state, err := w.Anchor(ctx, voteID)
	require.NoError(t, err)
	assert.Equal(t, models.AnchorConfirmed, state)
	assert.Equal(t, 4, f.chain.Calls())

	v, err := f.log.Get(ctx, voteID)
	require.NoError(t, err)
	assert.Equal(t, models.AnchorConfirmed, v.AnchorState)
	assert.Equal(t, 4, v.AnchorAttempts)
	assert.Nil(t, v.AnchorError)
	require.NotNil(t, v.AnchorRef)

	// Already confirmed: nothing more is sent.
	state, err = w.Anchor(ctx, voteID)
	require.NoError(t, err)
	assert.Equal(t, models.AnchorConfirmed, state)
	assert.Equal(t, 4, f.chain.Calls())
}

func TestWorker_ExhaustionMarksFailedAndRetryRecovers(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	voteID := f.vote(t, models.AnchorUnanchored)
	cfg := testAnchorConfig()
	w := f.worker(cfg, testutil.During)

	f.chain.FailNext(cfg.MaxAttempts, errRPC)

	state, err := w.Anchor(ctx, voteID)
	require.NoError(t, err)
	assert.Equal(t, models.AnchorFailed, state)

	v, err := f.log.Get(ctx, voteID)
	require.NoError(t, err)
	assert.Equal(t, models.AnchorFailed, v.AnchorState)
	assert.Equal(t, cfg.MaxAttempts, v.AnchorAttempts)
	require.NotNil(t, v.AnchorError)
	assert.Contains(t, *v.AnchorError, "rpc unavailable")

	// The vote itself is untouched by the failure.
	var n int
	require.NoError(t, f.conn.QueryRow(`SELECT COUNT(*) FROM vote WHERE id = $1`, voteID).Scan(&n))
	assert.Equal(t, 1, n)

	state, err = w.Retry(ctx, voteID)
	require.NoError(t, err)
	assert.Equal(t, models.AnchorUnanchored, state)
	assert.Equal(t, 1, len(w.queue))

	state, err = w.Anchor(ctx, <-w.queue)
	require.NoError(t, err)
	assert.Equal(t, models.AnchorConfirmed, state)

	_, err = w.Retry(ctx, voteID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestWorker_SameVoteAnchoredOnce(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	voteID := f.vote(t, models.AnchorUnanchored)
	w := f.worker(testAnchorConfig(), testutil.During)

	var wg sync.WaitGroup
	var confirmed atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state, err := w.Anchor(ctx, voteID)
			assert.NoError(t, err)
			if state == models.AnchorConfirmed {
				confirmed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.chain.Calls())
	assert.Equal(t, int32(10), confirmed.Load(), "every caller observes the final state")
}

func TestWorker_CancelledRunIsResumedBySweep(t *testing.T) {
	f := setup(t)
	voteID := f.vote(t, models.AnchorUnanchored)

	cfg := testAnchorConfig()
	cfg.InitialDelay = time.Hour
	cfg.MaxDelay = time.Hour
	cfg.StaleAfter = 2 * time.Hour
	w := f.worker(cfg, testutil.During)

	f.chain.FailNext(1, errRPC)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	state, err := w.Anchor(ctx, voteID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, models.AnchorPending, state)
	assert.Equal(t, models.AnchorPending, testutil.AnchorStateOf(t, f.conn, voteID))

	// A fresh pending claim is not swept.
	results, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)

	// Once stale, another worker takes it over.
	later := f.worker(cfg, testutil.During.Add(cfg.StaleAfter+time.Minute))
	results, err = later.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, results[models.AnchorConfirmed])
	assert.Equal(t, models.AnchorConfirmed, testutil.AnchorStateOf(t, f.conn, voteID))
}

func TestWorker_VoteCastNeverBlocks(t *testing.T) {
	f := setup(t)
	cfg := testAnchorConfig()
	cfg.QueueSize = 1
	w := f.worker(cfg, testutil.During)

	done := make(chan struct{})
	go func() {
		w.VoteCast("a")
		w.VoteCast("b")
		w.VoteCast("c")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("VoteCast blocked on a full queue")
	}
	assert.Equal(t, 1, len(w.queue))
}

func TestWorker_Sweep(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	a := f.vote(t, models.AnchorUnanchored)
	b := f.vote(t, models.AnchorUnanchored)
	f.vote(t, models.AnchorConfirmed)
	f.vote(t, models.AnchorFailed)

	w := f.worker(testAnchorConfig(), testutil.During)
	queued, err := w.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, queued)
	assert.ElementsMatch(t, []string{a, b}, []string{<-w.queue, <-w.queue})
}

func TestWorker_BackgroundAnchorsCastVotes(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	w := f.worker(testAnchorConfig(), testutil.During)
	core := ballot.NewCore(f.conn, f.elections, f.voters,
		candidacy.NewRegistry(f.conn, f.elections, f.voters), w)

	f.chain.FailNext(3, errRPC)

	w.Start(ctx)
	defer w.Stop()

	voterID := testutil.CreateActiveVoter(t, f.conn, "Bob")
	receipt, err := core.Cast(ctx, f.electionID, voterID, f.candidacy, testutil.During)
	require.NoError(t, err)

	// The vote counts from the moment it is cast.
	voted, err := core.HasVoted(ctx, f.electionID, voterID)
	require.NoError(t, err)
	assert.True(t, voted)

	require.Eventually(t, func() bool {
		v, err := f.log.Get(ctx, receipt.VoteID)
		return err == nil && v.AnchorState == models.AnchorConfirmed
	}, 5*time.Second, 10*time.Millisecond)
}

func TestAddressBook_EnsureAddress(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	book := NewAddressBook(f.conn, f.chain, commitSalt, f.voters)
	voterID := testutil.CreateActiveVoter(t, f.conn, "Bob")

	const n = 20
	addrs := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			la, err := book.EnsureAddress(ctx, voterID, testutil.During)
			if assert.NoError(t, err) {
				addrs[i] = la.Address
			}
		}(i)
	}
	wg.Wait()

	want := DeriveAddress(voterID, commitSalt).Hex()
	for _, a := range addrs {
		assert.Equal(t, want, a)
	}

	var rows int
	require.NoError(t, f.conn.QueryRow(`SELECT COUNT(*) FROM ledger_address WHERE voter_id = $1`, voterID).Scan(&rows))
	assert.Equal(t, 1, rows)

	la, err := book.EnsureAddress(ctx, voterID, testutil.After)
	require.NoError(t, err)
	assert.True(t, la.Valid)
	assert.True(t, la.CreatedAt.Equal(testutil.During), "existing address is returned unchanged")

	_, err = book.EnsureAddress(ctx, "missing", testutil.During)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAddressBook_ValidityFollowsSalt(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	voterID := testutil.CreateActiveVoter(t, f.conn, "Bob")

	_, err := NewAddressBook(f.conn, nil, commitSalt, f.voters).EnsureAddress(ctx, voterID, testutil.During)
	require.NoError(t, err)

	la, err := NewAddressBook(f.conn, nil, "rotated", f.voters).Get(ctx, voterID)
	require.NoError(t, err)
	assert.False(t, la.Valid)
}

func TestAddressBook_RefreshBalances(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	book := NewAddressBook(f.conn, f.chain, commitSalt, f.voters)
	voterID := testutil.CreateActiveVoter(t, f.conn, "Bob")

	la, err := book.EnsureAddress(ctx, voterID, testutil.During)
	require.NoError(t, err)
	assert.Nil(t, la.Balance)

	wei, _ := new(big.Int).SetString("1000000000000000000", 10)
	f.chain.SetBalance(DeriveAddress(voterID, commitSalt), wei)

	updated, err := book.RefreshBalances(ctx, testutil.After)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	la, err = book.Get(ctx, voterID)
	require.NoError(t, err)
	require.NotNil(t, la.Balance)
	assert.Equal(t, "1000000000000000000", *la.Balance)
	require.NotNil(t, la.BalanceAt)
	assert.True(t, la.BalanceAt.Equal(testutil.After))

	off := NewAddressBook(f.conn, nil, commitSalt, f.voters)
	updated, err = off.RefreshBalances(ctx, testutil.After)
	require.NoError(t, err)
	assert.Equal(t, 0, updated)
}

func commitment(voterID string) []byte {
	return auth.VoterCommitment(voterID, commitSalt)
}
