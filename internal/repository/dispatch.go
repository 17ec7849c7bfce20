package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jobdeck/jobdeck/api/internal/database"
	"github.com/jobdeck/jobdeck/api/internal/model"
	"github.com/jobdeck/jobdeck/api/internal/queue"
)

var _ queue.Store = (*DispatchRepository)(nil)

// DispatchRepository is the SurrealDB-backed queue store. Claims are
// single conditional UPDATE statements so two workers can never take the
// same pending request.
type DispatchRepository struct {
	db database.Database
}

// NewDispatchRepository creates a new dispatch repository
func NewDispatchRepository(db database.Database) *DispatchRepository {
	return &DispatchRepository{db: db}
}

// Enqueue persists a new request in pending state
func (r *DispatchRepository) Enqueue(ctx context.Context, req *model.DispatchRequest) error {
	payload, err := model.EncodePayload(req.Payload)
	if err != nil {
		return err
	}

	query := `
		CREATE dispatch CONTENT {
			request_id: $request_id,
			kind: $kind,
			subject_id: $subject_id,
			payload: $payload,
			priority: $priority,
			state: 'pending',
			attempt_count: 0,
			max_attempts: $max_attempts,
			created_at: time::now(),
			not_before: <datetime>$not_before,
			last_error: ''
		}
	`

	vars := map[string]interface{}{
		"request_id":   req.ID,
		"kind":         string(req.Kind),
		"subject_id":   req.SubjectID,
		"payload":      payload,
		"priority":     req.Priority,
		"max_attempts": req.MaxAttempts,
		"not_before":   req.NotBefore.UTC().Format(time.RFC3339),
	}

	_, err = r.db.Query(ctx, query, vars)
	return err
}

// Claim atomically takes the next eligible pending request. The nested
// SELECT picks one candidate and the UPDATE only succeeds if it is still
// pending, so concurrent claimers cannot both win.
func (r *DispatchRepository) Claim(ctx context.Context, workerID string) (*model.DispatchRequest, error) {
	query := `
		UPDATE (
			SELECT VALUE id FROM dispatch
			WHERE state = 'pending' AND not_before <= time::now()
			ORDER BY priority DESC, created_at ASC
			LIMIT 1
		)
		SET state = 'running',
			attempt_count += 1,
			claimed_at = time::now(),
			claimed_by = $worker
		WHERE state = 'pending'
		RETURN AFTER
	`
	vars := map[string]interface{}{"worker": workerID}

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	req, err := parseDispatchRecord(result)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return req, nil
}

// Ack marks a claimed request succeeded
func (r *DispatchRepository) Ack(ctx context.Context, id string) error {
	query := `
		UPDATE dispatch SET
			state = 'succeeded',
			claimed_at = NONE,
			claimed_by = ''
		WHERE request_id = $request_id AND state = 'running'
	`
	return r.db.Execute(ctx, query, map[string]interface{}{"request_id": id})
}

// Nack returns a claimed request to pending with a retry delay
func (r *DispatchRepository) Nack(ctx context.Context, id string, retryAfter time.Duration, lastErr string) error {
	query := `
		UPDATE dispatch SET
			state = 'pending',
			not_before = <datetime>$not_before,
			claimed_at = NONE,
			claimed_by = '',
			last_error = $last_error
		WHERE request_id = $request_id AND state = 'running'
	`
	vars := map[string]interface{}{
		"request_id": id,
		"not_before": time.Now().UTC().Add(retryAfter).Format(time.RFC3339),
		"last_error": lastErr,
	}
	return r.db.Execute(ctx, query, vars)
}

// Abandon marks a claimed request abandoned; the record is kept for audit
func (r *DispatchRepository) Abandon(ctx context.Context, id string, lastErr string) error {
	query := `
		UPDATE dispatch SET
			state = 'abandoned',
			claimed_at = NONE,
			claimed_by = '',
			last_error = $last_error
		WHERE request_id = $request_id AND state = 'running'
	`
	vars := map[string]interface{}{
		"request_id": id,
		"last_error": lastErr,
	}
	return r.db.Execute(ctx, query, vars)
}

// Reclaim recovers stale running claims. A request with attempts
// remaining goes back to pending; one whose attempt budget is already
// spent is abandoned, since the claim that would follow a re-pend would
// push attempt_count past max_attempts.
func (r *DispatchRepository) Reclaim(ctx context.Context, visibility time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-visibility).Format(time.RFC3339)
	abandonExhausted := `
		UPDATE dispatch SET
			state = 'abandoned',
			claimed_at = NONE,
			claimed_by = '',
			last_error = 'claim expired with no attempts remaining'
		WHERE state = 'running' AND claimed_at < <datetime>$cutoff
			AND attempt_count >= max_attempts
		RETURN AFTER
	`
	repend := `
		UPDATE dispatch SET
			state = 'pending',
			claimed_at = NONE,
			claimed_by = ''
		WHERE state = 'running' AND claimed_at < <datetime>$cutoff
			AND attempt_count < max_attempts
		RETURN AFTER
	`
	vars := map[string]interface{}{"cutoff": cutoff}

	n := 0
	for _, query := range []string{abandonExhausted, repend} {
		results, err := r.db.Query(ctx, query, vars)
		if err != nil {
			return n, err
		}
		if rows, ok := extractQueryResults(results); ok {
			n += len(rows)
		}
	}
	return n, nil
}

// ListByState returns requests in the given state, newest first
func (r *DispatchRepository) ListByState(ctx context.Context, state model.DispatchState, limit int) ([]*model.DispatchRequest, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT * FROM dispatch
		WHERE state = $state
		ORDER BY created_at DESC
		LIMIT $limit
	`
	vars := map[string]interface{}{
		"state": string(state),
		"limit": limit,
	}

	results, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}

	rows, ok := extractQueryResults(results)
	if !ok {
		return nil, nil
	}

	out := make([]*model.DispatchRequest, 0, len(rows))
	for _, row := range rows {
		req, err := parseDispatchRecord(row)
		if err != nil {
			continue
		}
		out = append(out, req)
	}
	return out, nil
}

// Counts returns per-state queue depths
func (r *DispatchRepository) Counts(ctx context.Context) (map[model.DispatchState]int, error) {
	query := `SELECT state, count() AS total FROM dispatch GROUP BY state`

	results, err := r.db.Query(ctx, query, nil)
	if err != nil {
		return nil, err
	}

	counts := make(map[model.DispatchState]int)
	rows, ok := extractQueryResults(results)
	if !ok {
		return counts, nil
	}
	for _, row := range rows {
		m, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		state := model.DispatchState(getString(m, "state"))
		counts[state] = extractCountValue(m["total"])
	}
	return counts, nil
}

// parseDispatchRecord converts a SurrealDB row into a DispatchRequest
func parseDispatchRecord(result interface{}) (*model.DispatchRequest, error) {
	m, ok := result.(map[string]interface{})
	if !ok {
		return nil, database.ErrNotFound
	}

	kind := model.DispatchKind(getString(m, "kind"))
	payload, err := model.DecodePayload(kind, getString(m, "payload"))
	if err != nil {
		return nil, fmt.Errorf("dispatch %s: %w", getString(m, "request_id"), err)
	}

	req := &model.DispatchRequest{
		ID:           getString(m, "request_id"),
		Kind:         kind,
		SubjectID:    getString(m, "subject_id"),
		Payload:      payload,
		Priority:     getInt(m, "priority"),
		State:        model.DispatchState(getString(m, "state")),
		AttemptCount: getInt(m, "attempt_count"),
		MaxAttempts:  getInt(m, "max_attempts"),
		CreatedAt:    getTime(m, "created_at"),
		NotBefore:    getTime(m, "not_before"),
		ClaimedBy:    getString(m, "claimed_by"),
		LastError:    getString(m, "last_error"),
	}
	if t := getTime(m, "claimed_at"); !t.IsZero() {
		req.ClaimedAt = &t
	}
	return req, nil
}
