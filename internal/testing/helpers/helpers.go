// Package helpers provides test utility functions for e2e testing.
//
// It contains record assertions against the test database and a polling
// helper for asserting on asynchronous outcomes like queue transitions.
package helpers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jobdeck/jobdeck/api/internal/database"
)

func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// AssertRecordExists fails the test if no row in table matches the field
func AssertRecordExists(t *testing.T, db database.Database, table, field, value string) {
	t.Helper()

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = $value LIMIT 1", table, field)
	ctx, cancel := contextWithTimeout()
	defer cancel()

	_, err := db.QueryOne(ctx, query, map[string]interface{}{"value": value})
	if err != nil {
		t.Errorf("expected %s with %s=%s to exist: %v", table, field, value, err)
	}
}

// AssertRecordNotExists fails the test if a row in table matches the field
func AssertRecordNotExists(t *testing.T, db database.Database, table, field, value string) {
	t.Helper()

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = $value LIMIT 1", table, field)
	ctx, cancel := contextWithTimeout()
	defer cancel()

	if _, err := db.QueryOne(ctx, query, map[string]interface{}{"value": value}); err == nil {
		t.Errorf("expected no %s with %s=%s", table, field, value)
	}
}

// WaitFor polls cond until it returns true or the timeout lapses. Use it
// for outcomes produced by background workers.
func WaitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for: %s", msg)
}

// TimeAgo returns a UTC timestamp the given duration in the past
func TimeAgo(d time.Duration) time.Time {
	return time.Now().UTC().Add(-d)
}
