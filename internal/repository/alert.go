package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jobdeck/jobdeck/api/internal/database"
	"github.com/jobdeck/jobdeck/api/internal/model"
)

// AlertRepository reads saved job alerts and advances their watermark
type AlertRepository struct {
	db database.Database
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db database.Database) *AlertRepository {
	return &AlertRepository{db: db}
}

// GetByID retrieves an alert by ID
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*model.JobAlert, error) {
	query := `SELECT * FROM job_alert WHERE alert_id = $alert_id LIMIT 1`
	vars := map[string]interface{}{"alert_id": id}

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return parseAlertRecord(result)
}

// ListActiveIDs returns IDs of alerts eligible for the next batch
func (r *AlertRepository) ListActiveIDs(ctx context.Context) ([]string, error) {
	query := `SELECT VALUE alert_id FROM job_alert WHERE active = true`

	results, err := r.db.Query(ctx, query, nil)
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

// AdvanceWatermark moves the alert's last-sent marker forward. The
// condition keeps it monotonic if two sends race.
func (r *AlertRepository) AdvanceWatermark(ctx context.Context, id string, sentAt time.Time) error {
	query := `
		UPDATE job_alert SET last_sent_at = <datetime>$sent_at
		WHERE alert_id = $alert_id AND last_sent_at < <datetime>$sent_at
	`
	vars := map[string]interface{}{
		"alert_id": id,
		"sent_at":  sentAt.UTC().Format(time.RFC3339),
	}
	return r.db.Execute(ctx, query, vars)
}

// parseAlertRecord converts a SurrealDB row into a JobAlert
func parseAlertRecord(result interface{}) (*model.JobAlert, error) {
	m, ok := result.(map[string]interface{})
	if !ok {
		return nil, model.ErrNotFound
	}

	alert := &model.JobAlert{
		ID:         getString(m, "alert_id"),
		UserID:     getString(m, "user_id"),
		Active:     getBool(m, "active"),
		LastSentAt: getTime(m, "last_sent_at"),
		CreatedAt:  getTime(m, "created_at"),
	}
	if c, ok := m["criteria"].(map[string]interface{}); ok {
		alert.Criteria = model.AlertCriteria{
			TitleContains:    getString(c, "title_contains"),
			LocationContains: getString(c, "location_contains"),
			Type:             model.JobType(getString(c, "type")),
			SalaryMin:        getInt(c, "salary_min"),
			SalaryMax:        getInt(c, "salary_max"),
		}
	}
	return alert, nil
}
