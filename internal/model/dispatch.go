package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DispatchKind identifies what a dispatch request will send
type DispatchKind string

const (
	KindWelcomeEmail      DispatchKind = "welcome_email"
	KindStatusUpdate      DispatchKind = "status_update"
	KindJobAlert          DispatchKind = "job_alert"
	KindJobRecommendation DispatchKind = "job_recommendation"
	KindFollowUpReminder  DispatchKind = "follow_up_reminder"
	KindBulkNotification  DispatchKind = "bulk_notification"
)

// Valid reports whether the kind is one of the known dispatch kinds
func (k DispatchKind) Valid() bool {
	switch k {
	case KindWelcomeEmail, KindStatusUpdate, KindJobAlert,
		KindJobRecommendation, KindFollowUpReminder, KindBulkNotification:
		return true
	}
	return false
}

// Priority returns the queue priority class for the kind.
// Higher values are claimed first; within a class requests are FIFO.
func (k DispatchKind) Priority() int {
	switch k {
	case KindWelcomeEmail, KindStatusUpdate:
		return 2
	case KindJobAlert, KindFollowUpReminder:
		return 1
	default:
		return 0
	}
}

// DispatchState is the lifecycle state of a dispatch request
type DispatchState string

const (
	DispatchPending   DispatchState = "pending"
	DispatchRunning   DispatchState = "running"
	DispatchSucceeded DispatchState = "succeeded"
	DispatchFailed    DispatchState = "failed"
	DispatchAbandoned DispatchState = "abandoned"
)

// Terminal reports whether the state is final (no further attempts)
func (s DispatchState) Terminal() bool {
	return s == DispatchSucceeded || s == DispatchAbandoned
}

// DispatchRequest is the unit of work representing "send this notification".
// It is owned by the queue until a worker claims it; the worker returns it
// as a terminal record or a rescheduled pending entry.
type DispatchRequest struct {
	ID           string        `json:"id"`
	Kind         DispatchKind  `json:"kind"`
	SubjectID    string        `json:"subject_id"`
	Payload      Payload       `json:"payload"`
	Priority     int           `json:"priority"`
	State        DispatchState `json:"state"`
	AttemptCount int           `json:"attempt_count"`
	MaxAttempts  int           `json:"max_attempts"`
	CreatedAt    time.Time     `json:"created_at"`
	NotBefore    time.Time     `json:"not_before"`
	ClaimedAt    *time.Time    `json:"claimed_at,omitempty"`
	ClaimedBy    string        `json:"claimed_by,omitempty"`
	LastError    string        `json:"last_error,omitempty"`
}

// NewDispatchRequest builds a pending request for the given payload.
// SubjectID is taken from the payload so the queue can be inspected
// without decoding payloads.
func NewDispatchRequest(p Payload, maxAttempts int) *DispatchRequest {
	now := time.Now().UTC()
	return &DispatchRequest{
		ID:          uuid.New().String(),
		Kind:        p.DispatchKind(),
		SubjectID:   p.SubjectID(),
		Payload:     p,
		Priority:    p.DispatchKind().Priority(),
		State:       DispatchPending,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		NotBefore:   now,
	}
}

// Payload carries the kind-specific fields of a dispatch request.
// Each kind has its own variant so layers cannot pass fields the
// kind does not need.
type Payload interface {
	DispatchKind() DispatchKind
	// SubjectID returns the id of the entity the notification is about
	SubjectID() string
}

// WelcomePayload triggers a welcome email for a newly created user
type WelcomePayload struct {
	UserID string `json:"user_id"`
}

func (p WelcomePayload) DispatchKind() DispatchKind { return KindWelcomeEmail }
func (p WelcomePayload) SubjectID() string { return p.UserID }

// StatusUpdatePayload notifies an applicant of an application status change
type StatusUpdatePayload struct {
	ApplicationID string            `json:"application_id"`
	OldStatus     ApplicationStatus `json:"old_status"`
	NewStatus     ApplicationStatus `json:"new_status"`
}

func (p StatusUpdatePayload) DispatchKind() DispatchKind { return KindStatusUpdate }
func (p StatusUpdatePayload) SubjectID() string { return p.ApplicationID }

// JobAlertPayload triggers a saved-alert batch send
type JobAlertPayload struct {
	AlertID string `json:"alert_id"`
}

func (p JobAlertPayload) DispatchKind() DispatchKind { return KindJobAlert }
func (p JobAlertPayload) SubjectID() string { return p.AlertID }

// RecommendationPayload triggers a personalized job recommendation email
type RecommendationPayload struct {
	UserID string `json:"user_id"`
}

func (p RecommendationPayload) DispatchKind() DispatchKind { return KindJobRecommendation }
func (p RecommendationPayload) SubjectID() string { return p.UserID }

// ReminderPayload nudges an applicant about a stale application
type ReminderPayload struct {
	ApplicationID string `json:"application_id"`
}

func (p ReminderPayload) DispatchKind() DispatchKind { return KindFollowUpReminder }
func (p ReminderPayload) SubjectID() string { return p.ApplicationID }

// BulkPayload fans one rendered template out to many recipients.
// Delivery to each recipient is independent; one failure does not
// abort the batch.
type BulkPayload struct {
	Subject  string   `json:"subject"`
	Template string   `json:"template"`
	UserIDs  []string `json:"user_ids"`
}

func (p BulkPayload) DispatchKind() DispatchKind { return KindBulkNotification }
func (p BulkPayload) SubjectID() string { return p.Template }

// EncodePayload serializes a payload for storage
func EncodePayload(p Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encoding %s payload: %w", p.DispatchKind(), err)
	}
	return string(data), nil
}

// DecodePayload deserializes a stored payload into the variant for kind
func DecodePayload(kind DispatchKind, data string) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch kind {
	case KindWelcomeEmail:
		var v WelcomePayload
		err = json.Unmarshal([]byte(data), &v)
		p = v
	case KindStatusUpdate:
		var v StatusUpdatePayload
		err = json.Unmarshal([]byte(data), &v)
		p = v
	case KindJobAlert:
		var v JobAlertPayload
		err = json.Unmarshal([]byte(data), &v)
		p = v
	case KindJobRecommendation:
		var v RecommendationPayload
		err = json.Unmarshal([]byte(data), &v)
		p = v
	case KindFollowUpReminder:
		var v ReminderPayload
		err = json.Unmarshal([]byte(data), &v)
		p = v
	case KindBulkNotification:
		var v BulkPayload
		err = json.Unmarshal([]byte(data), &v)
		p = v
	default:
		return nil, fmt.Errorf("unknown dispatch kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", kind, err)
	}
	return p, nil
}
