// Package fixtures provides test data factories for e2e testing.
//
// Each factory method creates entities with sensible defaults while
// allowing customization via option structs. Factories handle database
// insertion and return fully populated models.
//
// Usage:
//
//	f := fixtures.New(tdb.DB)
//	user := f.CreateUser(t)
//	listing := f.CreateJobListing(t)
//	alert := f.CreateJobAlert(t, user)
package fixtures

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/jobdeck/jobdeck/api/internal/database"
	"github.com/jobdeck/jobdeck/api/internal/model"
)

// Factory creates test entities in the database
type Factory struct {
	db database.Database
}

// New creates a new fixture factory
func New(db database.Database) *Factory {
	return &Factory{db: db}
}

// randomID generates a random hex ID
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// ctx returns a context with timeout
func ctx() context.Context {
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	_ = cancel
	return c
}

// ============================================================================
// User Fixtures
// ============================================================================

// UserOpts customizes user creation
type UserOpts struct {
	Email       string
	Name        string
	Role        model.UserRole
	DigestOptIn bool
	LastActive  time.Time
}

// CreateUser creates a user with defaults
func (f *Factory) CreateUser(t *testing.T, opts ...UserOpts) *model.User {
	t.Helper()

	var o UserOpts
	if len(opts) > 0 {
		o = opts[0]
	}

	id := "user-" + randomID()
	if o.Email == "" {
		o.Email = fmt.Sprintf("%s@example.com", id)
	}
	if o.Name == "" {
		o.Name = "Test User " + id
	}
	if o.Role == "" {
		o.Role = model.RoleUser
	}
	if o.LastActive.IsZero() {
		o.LastActive = time.Now().UTC()
	}

	query := `
		CREATE user CONTENT {
			user_id: $user_id,
			email: $email,
			name: $name,
			role: $role,
			digest_opt_in: $digest_opt_in,
			created_at: time::now(),
			last_active_at: <datetime>$last_active_at
		}
	`
	vars := map[string]interface{}{
		"user_id":        id,
		"email":          o.Email,
		"name":           o.Name,
		"role":           string(o.Role),
		"digest_opt_in":  o.DigestOptIn,
		"last_active_at": o.LastActive.Format(time.RFC3339),
	}
	if _, err := f.db.Query(ctx(), query, vars); err != nil {
		t.Fatalf("fixtures: failed to create user: %v", err)
	}

	return &model.User{
		ID:           id,
		Email:        o.Email,
		Name:         o.Name,
		Role:         o.Role,
		DigestOptIn:  o.DigestOptIn,
		LastActiveAt: o.LastActive,
	}
}

// ============================================================================
// Job Listing Fixtures
// ============================================================================

// ListingOpts customizes job listing creation
type ListingOpts struct {
	Title     string
	Company   string
	Location  string
	Type      model.JobType
	SalaryMin int
	SalaryMax int
	CreatedAt time.Time
}

// CreateJobListing creates a job listing with defaults
func (f *Factory) CreateJobListing(t *testing.T, opts ...ListingOpts) *model.JobListing {
	t.Helper()

	var o ListingOpts
	if len(opts) > 0 {
		o = opts[0]
	}

	id := "job-" + randomID()
	if o.Title == "" {
		o.Title = "Backend Engineer"
	}
	if o.Company == "" {
		o.Company = "Acme"
	}
	if o.Location == "" {
		o.Location = "Berlin"
	}
	if o.Type == "" {
		o.Type = model.JobTypeFullTime
	}
	if o.SalaryMax == 0 {
		o.SalaryMax = 90000
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}

	query := `
		CREATE job_listing CONTENT {
			job_id: $job_id,
			title: $title,
			company: $company,
			location: $location,
			type: $type,
			salary_min: $salary_min,
			salary_max: $salary_max,
			created_at: <datetime>$created_at
		}
	`
	vars := map[string]interface{}{
		"job_id":     id,
		"title":      o.Title,
		"company":    o.Company,
		"location":   o.Location,
		"type":       string(o.Type),
		"salary_min": o.SalaryMin,
		"salary_max": o.SalaryMax,
		"created_at": o.CreatedAt.Format(time.RFC3339),
	}
	if _, err := f.db.Query(ctx(), query, vars); err != nil {
		t.Fatalf("fixtures: failed to create job listing: %v", err)
	}

	return &model.JobListing{
		ID:        id,
		Title:     o.Title,
		Company:   o.Company,
		Location:  o.Location,
		Type:      o.Type,
		SalaryMin: o.SalaryMin,
		SalaryMax: o.SalaryMax,
		CreatedAt: o.CreatedAt,
	}
}

// ============================================================================
// Job Alert Fixtures
// ============================================================================

// AlertOpts customizes job alert creation
type AlertOpts struct {
	Criteria   model.AlertCriteria
	Active     *bool
	LastSentAt time.Time
}

// CreateJobAlert creates a saved alert for the user
func (f *Factory) CreateJobAlert(t *testing.T, user *model.User, opts ...AlertOpts) *model.JobAlert {
	t.Helper()

	var o AlertOpts
	if len(opts) > 0 {
		o = opts[0]
	}

	id := "alert-" + randomID()
	active := true
	if o.Active != nil {
		active = *o.Active
	}
	if o.LastSentAt.IsZero() {
		o.LastSentAt = time.Now().UTC().Add(-24 * time.Hour)
	}

	query := `
		CREATE job_alert CONTENT {
			alert_id: $alert_id,
			user_id: $user_id,
			criteria: {
				title_contains: $title_contains,
				location_contains: $location_contains,
				type: $type,
				salary_min: $salary_min,
				salary_max: $salary_max
			},
			active: $active,
			last_sent_at: <datetime>$last_sent_at,
			created_at: time::now()
		}
	`
	vars := map[string]interface{}{
		"alert_id":          id,
		"user_id":           user.ID,
		"title_contains":    o.Criteria.TitleContains,
		"location_contains": o.Criteria.LocationContains,
		"type":              string(o.Criteria.Type),
		"salary_min":        o.Criteria.SalaryMin,
		"salary_max":        o.Criteria.SalaryMax,
		"active":            active,
		"last_sent_at":      o.LastSentAt.Format(time.RFC3339),
	}
	if _, err := f.db.Query(ctx(), query, vars); err != nil {
		t.Fatalf("fixtures: failed to create job alert: %v", err)
	}

	return &model.JobAlert{
		ID:         id,
		UserID:     user.ID,
		Criteria:   o.Criteria,
		Active:     active,
		LastSentAt: o.LastSentAt,
	}
}

// ============================================================================
// Application Fixtures
// ============================================================================

// ApplicationOpts customizes application creation
type ApplicationOpts struct {
	Status    model.ApplicationStatus
	UpdatedAt time.Time
}

// CreateApplication creates an application linking user and listing
func (f *Factory) CreateApplication(t *testing.T, user *model.User, listing *model.JobListing, opts ...ApplicationOpts) *model.Application {
	t.Helper()

	var o ApplicationOpts
	if len(opts) > 0 {
		o = opts[0]
	}

	id := "app-" + randomID()
	if o.Status == "" {
		o.Status = model.StatusSubmitted
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = time.Now().UTC()
	}

	query := `
		CREATE application CONTENT {
			application_id: $application_id,
			user_id: $user_id,
			job_id: $job_id,
			status: $status,
			created_at: time::now(),
			updated_at: <datetime>$updated_at
		}
	`
	vars := map[string]interface{}{
		"application_id": id,
		"user_id":        user.ID,
		"job_id":         listing.ID,
		"status":         string(o.Status),
		"updated_at":     o.UpdatedAt.Format(time.RFC3339),
	}
	if _, err := f.db.Query(ctx(), query, vars); err != nil {
		t.Fatalf("fixtures: failed to create application: %v", err)
	}

	return &model.Application{
		ID:        id,
		UserID:    user.ID,
		JobID:     listing.ID,
		Status:    o.Status,
		UpdatedAt: o.UpdatedAt,
	}
}
