package queue

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdeck/jobdeck/api/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ============================================================
// Enqueue validation
// ============================================================

func TestQueue_Enqueue_RejectsUnknownKind(t *testing.T) {
	q := New(NewMemory(), Config{}, discardLogger())

	req := model.NewDispatchRequest(model.WelcomePayload{UserID: "user-1"}, 3)
	req.Kind = "carrier_pigeon"

	err := q.Enqueue(context.Background(), req)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dispatch kind")
}

func TestQueue_Enqueue_WrapsStoreFailure(t *testing.T) {
	store := &failingStore{}
	q := New(store, Config{}, discardLogger())

	err := q.Enqueue(context.Background(), model.NewDispatchRequest(model.WelcomePayload{UserID: "u"}, 3))

	assert.ErrorIs(t, err, model.ErrQueueUnavailable)
}

func TestQueue_PassThrough(t *testing.T) {
	q := New(NewMemory(), Config{}, discardLogger())
	ctx := context.Background()

	req := model.NewDispatchRequest(model.WelcomePayload{UserID: "user-1"}, 3)
	require.NoError(t, q.Enqueue(ctx, req))

	claimed, err := q.Claim(ctx, "worker-1")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.NoError(t, q.Ack(ctx, claimed.ID))

	counts, err := q.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[model.DispatchSucceeded])
}

// ============================================================
// Background reclaimer
// ============================================================

func TestQueue_Reclaimer_RecoversStaleClaim(t *testing.T) {
	mem := NewMemory()
	q := New(mem, Config{
		Visibility:      50 * time.Millisecond,
		ReclaimInterval: 10 * time.Millisecond,
	}, discardLogger())
	ctx := context.Background()

	req := model.NewDispatchRequest(model.WelcomePayload{UserID: "user-1"}, 3)
	require.NoError(t, q.Enqueue(ctx, req))
	claimed, err := q.Claim(ctx, "crashed-worker")
	require.NoError(t, err)
	require.NotNil(t, claimed)

	q.Start()
	defer q.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if stored, ok := mem.Get(req.ID); ok && stored.State == model.DispatchPending {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("stale claim was never reclaimed")
}

func TestQueue_StartStop_Idempotent(t *testing.T) {
	q := New(NewMemory(), Config{
		Visibility:      time.Minute,
		ReclaimInterval: time.Hour,
	}, discardLogger())

	q.Start()
	q.Start()
	q.Stop()
	q.Stop()
}

// failingStore fails every operation
type failingStore struct{}

func (f *failingStore) Enqueue(context.Context, *model.DispatchRequest) error { return errStore }
func (f *failingStore) Claim(context.Context, string) (*model.DispatchRequest, error) {
	return nil, errStore
}
func (f *failingStore) Ack(context.Context, string) error { return errStore }
func (f *failingStore) Nack(context.Context, string, time.Duration, string) error {
	return errStore
}
func (f *failingStore) Abandon(context.Context, string, string) error { return errStore }
func (f *failingStore) Reclaim(context.Context, time.Duration) (int, error) {
	return 0, errStore
}
func (f *failingStore) ListByState(context.Context, model.DispatchState, int) ([]*model.DispatchRequest, error) {
	return nil, errStore
}
func (f *failingStore) Counts(context.Context) (map[model.DispatchState]int, error) {
	return nil, errStore
}

var errStore = assert.AnError
