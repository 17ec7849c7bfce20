package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jobdeck/jobdeck/api/internal/database"
	"github.com/jobdeck/jobdeck/api/internal/jobs"
	"github.com/jobdeck/jobdeck/api/internal/model"
)

// ScheduleRepository persists schedule entries so batch fires survive
// restarts without repeating.
type ScheduleRepository struct {
	db database.Database
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(db database.Database) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Get retrieves the schedule entry for a task kind
func (r *ScheduleRepository) Get(ctx context.Context, kind model.DispatchKind) (*jobs.ScheduleEntry, error) {
	query := `SELECT * FROM schedule WHERE task_kind = $task_kind LIMIT 1`
	vars := map[string]interface{}{"task_kind": string(kind)}

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}

	m, ok := result.(map[string]interface{})
	if !ok {
		return nil, model.ErrNotFound
	}
	return &jobs.ScheduleEntry{
		TaskKind:    model.DispatchKind(getString(m, "task_kind")),
		Spec:        getString(m, "spec"),
		LastFiredAt: getTime(m, "last_fired_at"),
	}, nil
}

// Save upserts the schedule entry for a task kind
func (r *ScheduleRepository) Save(ctx context.Context, entry *jobs.ScheduleEntry) error {
	query := `
		UPSERT schedule SET
			task_kind = $task_kind,
			spec = $spec,
			last_fired_at = <datetime>$last_fired_at
		WHERE task_kind = $task_kind
	`
	vars := map[string]interface{}{
		"task_kind":     string(entry.TaskKind),
		"spec":          entry.Spec,
		"last_fired_at": entry.LastFiredAt.UTC().Format(time.RFC3339),
	}
	return r.db.Execute(ctx, query, vars)
}
