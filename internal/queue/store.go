package queue

import (
	"context"
	"time"

	"github.com/jobdeck/jobdeck/api/internal/model"
)

// Store defines the persistence contract for dispatch requests.
//
// Claim must be safe under concurrent workers: no two workers may claim
// the same pending request. Mutual exclusion is per request, not per
// queue, so workers never serialize behind each other.
type Store interface {
	// Enqueue persists a new request in pending state.
	Enqueue(ctx context.Context, req *model.DispatchRequest) error

	// Claim atomically takes the next eligible pending request (highest
	// priority first, oldest first within a priority class), marks it
	// running, increments its attempt count and returns it. Returns
	// (nil, nil) when nothing is eligible.
	Claim(ctx context.Context, workerID string) (*model.DispatchRequest, error)

	// Ack marks a claimed request succeeded.
	Ack(ctx context.Context, id string) error

	// Nack returns a claimed request to pending, not eligible for claim
	// again before retryAfter has elapsed.
	Nack(ctx context.Context, id string, retryAfter time.Duration, lastErr string) error

	// Abandon marks a claimed request abandoned. Abandoned requests are
	// kept so delivery failures can be audited.
	Abandon(ctx context.Context, id string, lastErr string) error

	// Reclaim returns running requests whose claim is older than the
	// visibility timeout to pending, making work from crashed workers
	// claimable again. Returns how many requests were reclaimed.
	Reclaim(ctx context.Context, visibility time.Duration) (int, error)

	// ListByState returns requests in the given state, newest first.
	ListByState(ctx context.Context, state model.DispatchState, limit int) ([]*model.DispatchRequest, error)

	// Counts returns the number of requests per state.
	Counts(ctx context.Context) (map[model.DispatchState]int, error)
}
