package ballot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quickly-elect/models"
	"github.com/danielhkuo/quickly-elect/testutil"
)

func TestAnchorLog_Lifecycle(t *testing.T) {
	ctx := context.Background()
	conn := testutil.SetupTestDB(t)
	log := NewAnchorLog(conn)

	electionID := testutil.CreateOpenElection(t, conn)
	cand := testutil.CreateApprovedCandidate(t, conn, electionID, "Alice")
	voterID := testutil.CreateActiveVoter(t, conn, "Bob")
	voteID := testutil.CastTestVote(t, conn, electionID, voterID, cand, models.AnchorUnanchored)

	now := testutil.During.Add(time.Minute)
	stale := now.Add(-time.Hour)

	v, claimed, err := log.ClaimForAnchoring(ctx, voteID, now, stale)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, models.AnchorPending, v.AnchorState)
	assert.Equal(t, voterID, v.VoterID)

	// A fresh pending claim cannot be taken twice.
	_, claimed, err = log.ClaimForAnchoring(ctx, voteID, now, stale)
	require.NoError(t, err)
	assert.False(t, claimed)

	require.NoError(t, log.RecordAnchorAttempt(ctx, voteID, 1, "rpc timeout", now))
	v, err = log.Get(ctx, voteID)
	require.NoError(t, err)
	assert.Equal(t, 1, v.AnchorAttempts)
	require.NotNil(t, v.AnchorError)
	assert.Equal(t, "rpc timeout", *v.AnchorError)

	require.NoError(t, log.ConfirmAnchor(ctx, voteID, "0xabc", 2, now))
	v, err = log.Get(ctx, voteID)
	require.NoError(t, err)
	assert.Equal(t, models.AnchorConfirmed, v.AnchorState)
	require.NotNil(t, v.AnchorRef)
	assert.Equal(t, "0xabc", *v.AnchorRef)
	assert.Nil(t, v.AnchorError)
	require.NotNil(t, v.AnchoredAt)
	assert.True(t, v.AnchoredAt.Equal(now))

	// Confirmed is final for the worker.
	err = log.FailAnchor(ctx, voteID, 3, "late", now)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	err = log.ResetFailedAnchor(ctx, voteID, now)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestAnchorLog_StaleClaimAndReset(t *testing.T) {
	ctx := context.Background()
	conn := testutil.SetupTestDB(t)
	log := NewAnchorLog(conn)

	electionID := testutil.CreateOpenElection(t, conn)
	cand := testutil.CreateApprovedCandidate(t, conn, electionID, "Alice")
	voteID := testutil.CastTestVote(t, conn, electionID, testutil.CreateActiveVoter(t, conn, "Bob"), cand, models.AnchorUnanchored)

	claimAt := testutil.During.Add(time.Minute)
	_, claimed, err := log.ClaimForAnchoring(ctx, voteID, claimAt, claimAt.Add(-time.Hour))
	require.NoError(t, err)
	require.True(t, claimed)

	// Later, the claim has gone stale and can be taken over.
	later := claimAt.Add(2 * time.Hour)
	ids, err := log.ListAnchorable(ctx, later.Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{voteID}, ids)

	_, claimed, err = log.ClaimForAnchoring(ctx, voteID, later, later.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, claimed)

	require.NoError(t, log.FailAnchor(ctx, voteID, 5, "gave up", later))
	v, err := log.Get(ctx, voteID)
	require.NoError(t, err)
	assert.Equal(t, models.AnchorFailed, v.AnchorState)
	assert.Equal(t, 5, v.AnchorAttempts)

	ids, err = log.ListAnchorable(ctx, later, 10)
	require.NoError(t, err)
	assert.Empty(t, ids, "failed votes wait for an operator")

	require.NoError(t, log.ResetFailedAnchor(ctx, voteID, later))
	v, err = log.Get(ctx, voteID)
	require.NoError(t, err)
	assert.Equal(t, models.AnchorUnanchored, v.AnchorState)
	assert.Equal(t, 0, v.AnchorAttempts)

	assert.ErrorIs(t, log.ResetFailedAnchor(ctx, "missing", later), models.ErrNotFound)
}

func TestAnchorLog_ListByElection(t *testing.T) {
	ctx := context.Background()
	conn := testutil.SetupTestDB(t)
	log := NewAnchorLog(conn)

	electionID := testutil.CreateOpenElection(t, conn)
	other := testutil.CreateOpenElection(t, conn)
	cand := testutil.CreateApprovedCandidate(t, conn, electionID, "Alice")
	otherCand := testutil.CreateApprovedCandidate(t, conn, other, "Bob")

	testutil.CastTestVote(t, conn, electionID, testutil.CreateActiveVoter(t, conn, "A"), cand, models.AnchorConfirmed)
	testutil.CastTestVote(t, conn, electionID, testutil.CreateActiveVoter(t, conn, "B"), cand, models.AnchorPending)
	testutil.CastTestVote(t, conn, other, testutil.CreateActiveVoter(t, conn, "C"), otherCand, models.AnchorFailed)

	votes, err := log.ListByElection(ctx, electionID)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	for _, v := range votes {
		assert.Equal(t, electionID, v.ElectionID)
		assert.Equal(t, cand, v.CandidacyID)
	}

	_, err = log.Get(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
