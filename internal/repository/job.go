package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jobdeck/jobdeck/api/internal/database"
	"github.com/jobdeck/jobdeck/api/internal/model"
)

// JobRepository reads job listings for alert and recommendation batches
type JobRepository struct {
	db database.Database
}

// NewJobRepository creates a new job repository
func NewJobRepository(db database.Database) *JobRepository {
	return &JobRepository{db: db}
}

// Search returns listings created after the watermark that satisfy the
// criteria, newest first. Zero-valued criteria fields add no condition.
func (r *JobRepository) Search(ctx context.Context, c model.AlertCriteria, after time.Time, limit int) ([]*model.JobListing, error) {
	if limit <= 0 {
		limit = 50
	}

	conditions := []string{"created_at > <datetime>$after"}
	vars := map[string]interface{}{
		"after": after.UTC().Format(time.RFC3339),
		"limit": limit,
	}

	if c.TitleContains != "" {
		conditions = append(conditions, "string::contains(string::lowercase(title), string::lowercase($title))")
		vars["title"] = c.TitleContains
	}
	if c.LocationContains != "" {
		conditions = append(conditions, "string::contains(string::lowercase(location), string::lowercase($location))")
		vars["location"] = c.LocationContains
	}
	if c.Type != "" {
		conditions = append(conditions, "type = $type")
		vars["type"] = string(c.Type)
	}
	if c.SalaryMin > 0 {
		conditions = append(conditions, "salary_max >= $salary_min")
		vars["salary_min"] = c.SalaryMin
	}
	if c.SalaryMax > 0 {
		conditions = append(conditions, "salary_min <= $salary_max")
		vars["salary_max"] = c.SalaryMax
	}

	query := `
		SELECT * FROM job_listing
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY created_at DESC
		LIMIT $limit
	`
	return r.list(ctx, query, vars)
}

// Recommend returns the newest listings the user has not applied to.
// Scoring beyond recency lives outside this service.
func (r *JobRepository) Recommend(ctx context.Context, userID string, limit int) ([]*model.JobListing, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT * FROM job_listing
		WHERE job_id NOT IN (SELECT VALUE job_id FROM application WHERE user_id = $user_id)
		ORDER BY created_at DESC
		LIMIT $limit
	`
	vars := map[string]interface{}{
		"user_id": userID,
		"limit":   limit,
	}
	return r.list(ctx, query, vars)
}

func (r *JobRepository) list(ctx context.Context, query string, vars map[string]interface{}) ([]*model.JobListing, error) {
	results, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	rows, ok := extractQueryResults(results)
	if !ok {
		return nil, nil
	}
	listings := make([]*model.JobListing, 0, len(rows))
	for _, row := range rows {
		listing, err := parseJobRecord(row)
		if err != nil {
			continue
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

// parseJobRecord converts a SurrealDB row into a JobListing
func parseJobRecord(result interface{}) (*model.JobListing, error) {
	m, ok := result.(map[string]interface{})
	if !ok {
		return nil, database.ErrNotFound
	}
	return &model.JobListing{
		ID:        getString(m, "job_id"),
		Title:     getString(m, "title"),
		Company:   getString(m, "company"),
		Location:  getString(m, "location"),
		Type:      model.JobType(getString(m, "type")),
		SalaryMin: getInt(m, "salary_min"),
		SalaryMax: getInt(m, "salary_max"),
		CreatedAt: getTime(m, "created_at"),
	}, nil
}
