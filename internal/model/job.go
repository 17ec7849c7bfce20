package model

import (
	"strings"
	"time"
)

// JobType classifies a listing's employment type
type JobType string

const (
	JobTypeFullTime JobType = "full_time"
	JobTypePartTime JobType = "part_time"
	JobTypeContract JobType = "contract"
	JobTypeIntern   JobType = "internship"
)

// JobListing is a published job post. Listing CRUD is handled by the
// web layer; the notification core reads listings to build alert and
// recommendation batches.
type JobListing struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Company   string    `json:"company"`
	Location  string    `json:"location"`
	Type      JobType   `json:"type"`
	SalaryMin int       `json:"salary_min"`
	SalaryMax int       `json:"salary_max"`
	CreatedAt time.Time `json:"created_at"`
}

// AlertCriteria are the stored search criteria of a saved job alert.
// Zero values mean "no constraint" for that field.
type AlertCriteria struct {
	TitleContains    string  `json:"title_contains,omitempty"`
	LocationContains string  `json:"location_contains,omitempty"`
	Type             JobType `json:"type,omitempty"`
	SalaryMin        int     `json:"salary_min,omitempty"`
	SalaryMax        int     `json:"salary_max,omitempty"`
}

// Matches reports whether the listing satisfies every set criterion.
// Substring matches are case-insensitive.
func (c AlertCriteria) Matches(j *JobListing) bool {
	if c.TitleContains != "" &&
		!strings.Contains(strings.ToLower(j.Title), strings.ToLower(c.TitleContains)) {
		return false
	}
	if c.LocationContains != "" &&
		!strings.Contains(strings.ToLower(j.Location), strings.ToLower(c.LocationContains)) {
		return false
	}
	if c.Type != "" && j.Type != c.Type {
		return false
	}
	if c.SalaryMin > 0 && j.SalaryMax < c.SalaryMin {
		return false
	}
	if c.SalaryMax > 0 && j.SalaryMin > c.SalaryMax {
		return false
	}
	return true
}

// JobAlert is a user's saved search. LastSentAt is the watermark: only
// listings created after it are included in the next batch, and it only
// advances after a batch actually goes out.
type JobAlert struct {
	ID         string        `json:"id"`
	UserID     string        `json:"user_id"`
	Criteria   AlertCriteria `json:"criteria"`
	Active     bool          `json:"active"`
	LastSentAt time.Time     `json:"last_sent_at"`
	CreatedAt  time.Time     `json:"created_at"`
}

// ApplicationStatus is the review pipeline stage of an application
type ApplicationStatus string

const (
	StatusSubmitted   ApplicationStatus = "submitted"
	StatusUnderReview ApplicationStatus = "under_review"
	StatusInterview   ApplicationStatus = "interview"
	StatusOffered     ApplicationStatus = "offered"
	StatusRejected    ApplicationStatus = "rejected"
	StatusWithdrawn   ApplicationStatus = "withdrawn"
)

// Application links a user to a job listing they applied for
type Application struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	JobID     string            `json:"job_id"`
	Status    ApplicationStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
