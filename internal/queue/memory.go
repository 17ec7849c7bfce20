package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jobdeck/jobdeck/api/internal/model"
)

// Memory is an in-memory Store used by tests. Production runs on the
// SurrealDB-backed store in the repository package.
type Memory struct {
	mu       sync.Mutex
	requests map[string]*model.DispatchRequest
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		requests: make(map[string]*model.DispatchRequest),
	}
}

// Enqueue persists a new request in pending state
func (m *Memory) Enqueue(_ context.Context, req *model.DispatchRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *req
	cp.State = model.DispatchPending
	m.requests[cp.ID] = &cp
	return nil
}

// Claim atomically takes the next eligible pending request
func (m *Memory) Claim(_ context.Context, workerID string) (*model.DispatchRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()

	var candidates []*model.DispatchRequest
	for _, req := range m.requests {
		if req.State == model.DispatchPending && !req.NotBefore.After(now) {
			candidates = append(candidates, req)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	req := candidates[0]
	req.State = model.DispatchRunning
	req.AttemptCount++
	req.ClaimedAt = &now
	req.ClaimedBy = workerID

	cp := *req
	return &cp, nil
}

// Ack marks a claimed request succeeded
func (m *Memory) Ack(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok {
		return model.ErrNotFound
	}
	req.State = model.DispatchSucceeded
	req.ClaimedAt = nil
	req.ClaimedBy = ""
	return nil
}

// Nack reschedules a claimed request after the retry delay
func (m *Memory) Nack(_ context.Context, id string, retryAfter time.Duration, lastErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok {
		return model.ErrNotFound
	}
	req.State = model.DispatchPending
	req.NotBefore = time.Now().UTC().Add(retryAfter)
	req.ClaimedAt = nil
	req.ClaimedBy = ""
	req.LastError = lastErr
	return nil
}

// Abandon marks a claimed request abandoned, keeping it for audit
func (m *Memory) Abandon(_ context.Context, id string, lastErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok {
		return model.ErrNotFound
	}
	req.State = model.DispatchAbandoned
	req.ClaimedAt = nil
	req.ClaimedBy = ""
	req.LastError = lastErr
	return nil
}

// Reclaim recovers stale running claims. A request with attempts
// remaining goes back to pending; one whose attempt budget is already
// spent is abandoned, since a re-claim would push attempt_count past
// max_attempts.
func (m *Memory) Reclaim(_ context.Context, visibility time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().UTC().Add(-visibility)
	reclaimed := 0
	for _, req := range m.requests {
		if req.State == model.DispatchRunning && req.ClaimedAt != nil && req.ClaimedAt.Before(cutoff) {
			if req.AttemptCount >= req.MaxAttempts {
				req.State = model.DispatchAbandoned
				req.LastError = "claim expired with no attempts remaining"
			} else {
				req.State = model.DispatchPending
			}
			req.ClaimedAt = nil
			req.ClaimedBy = ""
			reclaimed++
		}
	}
	return reclaimed, nil
}

// ListByState returns requests in the given state, newest first
func (m *Memory) ListByState(_ context.Context, state model.DispatchState, limit int) ([]*model.DispatchRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.DispatchRequest
	for _, req := range m.requests {
		if req.State == state {
			cp := *req
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Counts returns the number of requests per state
func (m *Memory) Counts(_ context.Context) (map[model.DispatchState]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[model.DispatchState]int)
	for _, req := range m.requests {
		counts[req.State]++
	}
	return counts, nil
}

// Get returns a copy of a request by id. Test helper.
func (m *Memory) Get(id string) (*model.DispatchRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok {
		return nil, false
	}
	cp := *req
	return &cp, true
}

var _ Store = (*Memory)(nil)
