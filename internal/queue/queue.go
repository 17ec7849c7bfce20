// Package queue implements the durable dispatch work queue.
//
// The queue provides at-least-once semantics: a request is claimed by
// exactly one worker at a time, and a claim that is never acked or nacked
// (a crashed worker) becomes claimable again once the visibility timeout
// passes. Requests are FIFO within a priority class.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jobdeck/jobdeck/api/internal/model"
)

// Queue wraps a Store with enqueue validation and a background reclaimer
// that recovers work from crashed workers.
type Queue struct {
	store      Store
	visibility time.Duration
	interval   time.Duration
	logger     *slog.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// Config holds queue configuration
type Config struct {
	// Visibility is how long a claim may go without an ack or nack
	// before the request becomes claimable again.
	Visibility time.Duration

	// ReclaimInterval is how often the reclaimer scans for stale claims.
	ReclaimInterval time.Duration
}

// New creates a queue over the given store
func New(store Store, cfg Config, logger *slog.Logger) *Queue {
	if cfg.Visibility == 0 {
		cfg.Visibility = 5 * time.Minute
	}
	if cfg.ReclaimInterval == 0 {
		cfg.ReclaimInterval = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		store:      store,
		visibility: cfg.Visibility,
		interval:   cfg.ReclaimInterval,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}
}

// Enqueue persists a request. Failures surface as ErrQueueUnavailable;
// callers must not swallow them.
func (q *Queue) Enqueue(ctx context.Context, req *model.DispatchRequest) error {
	if !req.Kind.Valid() {
		return fmt.Errorf("enqueue: unknown dispatch kind %q", req.Kind)
	}
	if err := q.store.Enqueue(ctx, req); err != nil {
		return fmt.Errorf("%w: %v", model.ErrQueueUnavailable, err)
	}
	q.logger.Info("dispatch enqueued",
		slog.String("id", req.ID),
		slog.String("kind", string(req.Kind)),
		slog.String("subject", req.SubjectID),
	)
	return nil
}

// Claim takes the next eligible request for the given worker
func (q *Queue) Claim(ctx context.Context, workerID string) (*model.DispatchRequest, error) {
	return q.store.Claim(ctx, workerID)
}

// Ack marks a claimed request succeeded
func (q *Queue) Ack(ctx context.Context, id string) error {
	return q.store.Ack(ctx, id)
}

// Nack returns a claimed request to the queue after a retry delay
func (q *Queue) Nack(ctx context.Context, id string, retryAfter time.Duration, lastErr string) error {
	return q.store.Nack(ctx, id, retryAfter, lastErr)
}

// Abandon marks a claimed request abandoned. The record is kept so
// operators can audit delivery failures.
func (q *Queue) Abandon(ctx context.Context, id string, lastErr string) error {
	return q.store.Abandon(ctx, id, lastErr)
}

// ListByState exposes queue contents for the audit surface
func (q *Queue) ListByState(ctx context.Context, state model.DispatchState, limit int) ([]*model.DispatchRequest, error) {
	return q.store.ListByState(ctx, state, limit)
}

// Counts returns per-state queue depths
func (q *Queue) Counts(ctx context.Context) (map[model.DispatchState]int, error) {
	return q.store.Counts(ctx)
}

// Start launches the background reclaimer
func (q *Queue) Start() {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()

	q.wg.Add(1)
	go q.reclaimLoop()
	q.logger.Info("queue reclaimer started",
		slog.Duration("visibility", q.visibility),
		slog.Duration("interval", q.interval),
	)
}

// Stop gracefully stops the reclaimer
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.mu.Unlock()

	close(q.stopCh)
	q.wg.Wait()
	q.logger.Info("queue reclaimer stopped")
}

func (q *Queue) reclaimLoop() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			q.reclaimOnce()
		case <-q.stopCh:
			return
		}
	}
}

func (q *Queue) reclaimOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := q.store.Reclaim(ctx, q.visibility)
	if err != nil {
		q.logger.Error("reclaim failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		q.logger.Warn("reclaimed stale claims", slog.Int("count", n))
	}
}
