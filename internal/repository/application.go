package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jobdeck/jobdeck/api/internal/database"
	"github.com/jobdeck/jobdeck/api/internal/model"
)

// ApplicationRepository reads job applications
type ApplicationRepository struct {
	db database.Database
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db database.Database) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// GetByID retrieves an application by ID
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*model.Application, error) {
	query := `SELECT * FROM application WHERE application_id = $application_id LIMIT 1`
	vars := map[string]interface{}{"application_id": id}

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return parseApplicationRecord(result)
}

// ListAwaitingFollowUpIDs returns submitted applications that have not
// moved since the cutoff. These are the ones worth nudging about.
func (r *ApplicationRepository) ListAwaitingFollowUpIDs(ctx context.Context, updatedBefore time.Time) ([]string, error) {
	query := `
		SELECT VALUE application_id FROM application
		WHERE status = 'submitted' AND updated_at < <datetime>$cutoff
	`
	vars := map[string]interface{}{
		"cutoff": updatedBefore.UTC().Format(time.RFC3339),
	}

	results, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	rows, ok := extractQueryResults(results)
	if !ok {
		return nil, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if id, ok := row.(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// parseApplicationRecord converts a SurrealDB row into an Application
func parseApplicationRecord(result interface{}) (*model.Application, error) {
	m, ok := result.(map[string]interface{})
	if !ok {
		return nil, model.ErrNotFound
	}
	return &model.Application{
		ID:        getString(m, "application_id"),
		UserID:    getString(m, "user_id"),
		JobID:     getString(m, "job_id"),
		Status:    model.ApplicationStatus(getString(m, "status")),
		CreatedAt: getTime(m, "created_at"),
		UpdatedAt: getTime(m, "updated_at"),
	}, nil
}
