package tests

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdeck/jobdeck/api/internal/model"
	"github.com/jobdeck/jobdeck/api/internal/repository"
	"github.com/jobdeck/jobdeck/api/internal/testing/testdb"
)

/*
FEATURE: Durable Dispatch Queue
DOMAIN: Notification Dispatch

ACCEPTANCE CRITERIA:
===================

AC-QUEUE-001: Enqueue and Claim
  GIVEN a pending dispatch request
  WHEN a worker claims
  THEN it receives the request in running state with attempt count 1

AC-QUEUE-002: Claim Mutual Exclusion
  GIVEN one pending request and two concurrent claimers
  WHEN both claim at once
  THEN exactly one receives the request

AC-QUEUE-003: Priority Ordering
  GIVEN pending requests of different priority
  WHEN a worker claims
  THEN the highest priority request wins

AC-QUEUE-004: Nack Scheduling
  GIVEN a claimed request that is nacked with a delay
  WHEN a worker claims before the delay lapses
  THEN nothing is eligible

AC-QUEUE-005: Abandon Audit
  GIVEN an abandoned request
  WHEN the abandoned state is listed
  THEN the request appears with its last error

AC-QUEUE-006: Visibility Reclaim
  GIVEN a running request whose claim went stale
  WHEN the reclaimer runs
  THEN the request is pending and claimable again

AC-QUEUE-007: Reclaim Honors Attempt Budget
  GIVEN a stale claim on a request with no attempts remaining
  WHEN the reclaimer runs
  THEN the request is abandoned, not re-pended, and never claimed again
*/

func newPipelineStore(t *testing.T) (*testdb.TestDB, *repository.DispatchRepository) {
	t.Helper()
	tdb := testdb.New(t)
	t.Cleanup(tdb.Close)
	return tdb, repository.NewDispatchRepository(tdb.DB)
}

func TestDispatchQueue_EnqueueAndClaim(t *testing.T) {
	// AC-QUEUE-001: Enqueue and Claim
	tdb, store := newPipelineStore(t)

	req := model.NewDispatchRequest(model.WelcomePayload{UserID: "user-1"}, 3)
	require.NoError(t, store.Enqueue(tdb.Ctx(), req))

	claimed, err := store.Claim(tdb.Ctx(), "worker-1")
	require.NoError(t, err)
	require.NotNil(t, claimed)

	assert.Equal(t, req.ID, claimed.ID)
	assert.Equal(t, model.KindWelcomeEmail, claimed.Kind)
	assert.Equal(t, model.DispatchRunning, claimed.State)
	assert.Equal(t, 1, claimed.AttemptCount)
	assert.Equal(t, "worker-1", claimed.ClaimedBy)

	payload, ok := claimed.Payload.(model.WelcomePayload)
	require.True(t, ok, "expected welcome payload, got %T", claimed.Payload)
	assert.Equal(t, "user-1", payload.UserID)

	// Nothing else is eligible
	again, err := store.Claim(tdb.Ctx(), "worker-2")
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestDispatchQueue_ConcurrentClaim_OneWinner(t *testing.T) {
	// AC-QUEUE-002: Claim Mutual Exclusion
	tdb, store := newPipelineStore(t)

	req := model.NewDispatchRequest(model.WelcomePayload{UserID: "user-1"}, 3)
	require.NoError(t, store.Enqueue(tdb.Ctx(), req))

	const claimers = 4
	results := make([]*model.DispatchRequest, claimers)
	var wg sync.WaitGroup
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			claimed, err := store.Claim(tdb.Ctx(), "worker")
			if err == nil {
				results[n] = claimed
			}
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, r := range results {
		if r != nil {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one claimer must win")
}

func TestDispatchQueue_PriorityOrdering(t *testing.T) {
	// AC-QUEUE-003: Priority Ordering
	tdb, store := newPipelineStore(t)

	bulk := model.NewDispatchRequest(model.BulkPayload{Template: "digest", UserIDs: []string{"u1"}}, 3)
	welcome := model.NewDispatchRequest(model.WelcomePayload{UserID: "user-1"}, 3)
	require.NoError(t, store.Enqueue(tdb.Ctx(), bulk))
	require.NoError(t, store.Enqueue(tdb.Ctx(), welcome))

	claimed, err := store.Claim(tdb.Ctx(), "worker-1")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, welcome.ID, claimed.ID, "welcome email outranks bulk digest")
}

func TestDispatchQueue_NackDelaysEligibility(t *testing.T) {
	// AC-QUEUE-004: Nack Scheduling
	tdb, store := newPipelineStore(t)

	req := model.NewDispatchRequest(model.WelcomePayload{UserID: "user-1"}, 3)
	require.NoError(t, store.Enqueue(tdb.Ctx(), req))

	claimed, err := store.Claim(tdb.Ctx(), "worker-1")
	require.NoError(t, err)
	require.NotNil(t, claimed)

	require.NoError(t, store.Nack(tdb.Ctx(), req.ID, time.Hour, "smtp timeout"))

	again, err := store.Claim(tdb.Ctx(), "worker-1")
	require.NoError(t, err)
	assert.Nil(t, again, "nacked request must not be claimable before its delay")
}

func TestDispatchQueue_AbandonIsAuditable(t *testing.T) {
	// AC-QUEUE-005: Abandon Audit
	tdb, store := newPipelineStore(t)

	req := model.NewDispatchRequest(model.WelcomePayload{UserID: "gone"}, 3)
	require.NoError(t, store.Enqueue(tdb.Ctx(), req))

	claimed, err := store.Claim(tdb.Ctx(), "worker-1")
	require.NoError(t, err)
	require.NotNil(t, claimed)

	require.NoError(t, store.Abandon(tdb.Ctx(), req.ID, "recipient does not exist"))

	abandoned, err := store.ListByState(tdb.Ctx(), model.DispatchAbandoned, 10)
	require.NoError(t, err)
	require.Len(t, abandoned, 1)
	assert.Equal(t, req.ID, abandoned[0].ID)
	assert.Equal(t, "recipient does not exist", abandoned[0].LastError)

	counts, err := store.Counts(tdb.Ctx())
	require.NoError(t, err)
	assert.Equal(t, 1, counts[model.DispatchAbandoned])
}

func TestDispatchQueue_ReclaimStaleClaims(t *testing.T) {
	// AC-QUEUE-006: Visibility Reclaim
	tdb, store := newPipelineStore(t)

	req := model.NewDispatchRequest(model.WelcomePayload{UserID: "user-1"}, 3)
	require.NoError(t, store.Enqueue(tdb.Ctx(), req))

	claimed, err := store.Claim(tdb.Ctx(), "crashed-worker")
	require.NoError(t, err)
	require.NotNil(t, claimed)

	// A zero visibility makes every running claim stale immediately
	n, err := store.Reclaim(tdb.Ctx(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	again, err := store.Claim(tdb.Ctx(), "worker-2")
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, req.ID, again.ID)
	assert.Equal(t, 2, again.AttemptCount, "reclaimed requests keep their attempt history")
}

func TestDispatchQueue_ReclaimAbandonsExhaustedBudget(t *testing.T) {
	// AC-QUEUE-007: Reclaim Honors Attempt Budget
	tdb, store := newPipelineStore(t)

	req := model.NewDispatchRequest(model.WelcomePayload{UserID: "user-1"}, 1)
	require.NoError(t, store.Enqueue(tdb.Ctx(), req))

	// The single attempt is consumed by the claim, then the worker crashes
	claimed, err := store.Claim(tdb.Ctx(), "crashed-worker")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.Equal(t, 1, claimed.AttemptCount)

	n, err := store.Reclaim(tdb.Ctx(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	again, err := store.Claim(tdb.Ctx(), "worker-2")
	require.NoError(t, err)
	assert.Nil(t, again, "attempt_count must never exceed max_attempts")

	abandoned, err := store.ListByState(tdb.Ctx(), model.DispatchAbandoned, 10)
	require.NoError(t, err)
	require.Len(t, abandoned, 1)
	assert.Equal(t, req.ID, abandoned[0].ID)
	assert.Equal(t, 1, abandoned[0].AttemptCount)
	assert.NotEmpty(t, abandoned[0].LastError)
}
