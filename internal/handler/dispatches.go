package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/jobdeck/jobdeck/api/internal/model"
)

const maxDispatchPageSize = 200

// DispatchLister exposes dispatch requests for the audit surface
type DispatchLister interface {
	ListByState(ctx context.Context, state model.DispatchState, limit int) ([]*model.DispatchRequest, error)
}

// DispatchView is the audit representation of a dispatch request. The
// raw payload stays internal; kind and subject are enough to trace a
// failed delivery.
type DispatchView struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	SubjectID    string `json:"subject_id"`
	State        string `json:"state"`
	AttemptCount int    `json:"attempt_count"`
	MaxAttempts  int    `json:"max_attempts"`
	CreatedAt    string `json:"created_at"`
	LastError    string `json:"last_error,omitempty"`
}

// DispatchHandler handles admin dispatch audit requests
type DispatchHandler struct {
	store DispatchLister
}

// NewDispatchHandler creates a new dispatch handler
func NewDispatchHandler(store DispatchLister) *DispatchHandler {
	return &DispatchHandler{store: store}
}

// List handles GET /v1/admin/dispatches - inspect dispatch requests by
// state. Defaults to abandoned, the state operators actually chase.
func (h *DispatchHandler) List(w http.ResponseWriter, r *http.Request) {
	state := model.DispatchState(r.URL.Query().Get("state"))
	if state == "" {
		state = model.DispatchAbandoned
	}
	switch state {
	case model.DispatchPending, model.DispatchRunning, model.DispatchSucceeded,
		model.DispatchFailed, model.DispatchAbandoned:
	default:
		WriteError(w, model.NewBadRequestError("unknown state: "+string(state)))
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxDispatchPageSize {
			WriteError(w, model.NewBadRequestError("limit must be between 1 and 200"))
			return
		}
		limit = n
	}

	requests, err := h.store.ListByState(r.Context(), state, limit)
	if err != nil {
		WriteError(w, model.NewInternalError("failed to list dispatches"))
		return
	}

	views := make([]DispatchView, 0, len(requests))
	for _, req := range requests {
		views = append(views, DispatchView{
			ID:           req.ID,
			Kind:         string(req.Kind),
			SubjectID:    req.SubjectID,
			State:        string(req.State),
			AttemptCount: req.AttemptCount,
			MaxAttempts:  req.MaxAttempts,
			CreatedAt:    req.CreatedAt.Format(time.RFC3339),
			LastError:    req.LastError,
		})
	}

	WriteCollection(w, http.StatusOK, views, len(views))
}
