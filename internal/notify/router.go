package notify

import (
	"context"
	"log/slog"

	"github.com/jobdeck/jobdeck/api/internal/model"
)

// EventKind identifies a persistence-boundary event
type EventKind string

const (
	EventUserCreated      EventKind = "user_created"
	EventApplicationSaved EventKind = "application_saved"
	EventAlertCreated     EventKind = "alert_created"
)

// Event is an explicit change notification emitted by the persistence
// boundary after a save. For application saves, Old is the pre-save
// snapshot; nil Old with Created unset means the pre-save lookup failed
// (the entity was deleted concurrently).
type Event struct {
	Kind    EventKind
	User    *model.User
	Alert   *model.JobAlert
	Old     *model.Application
	New     *model.Application
	Created bool
}

// Enqueuer is the queue's enqueue surface
type Enqueuer interface {
	Enqueue(ctx context.Context, req *model.DispatchRequest) error
}

// Router converts persistence events into dispatch requests. Each
// invocation enqueues zero or one request, never more, and never sends
// anything itself.
type Router struct {
	queue    Enqueuer
	policies Policies
	logger   *slog.Logger
}

// NewRouter creates a signal router
func NewRouter(queue Enqueuer, policies Policies, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{queue: queue, policies: policies, logger: logger}
}

// Route inspects an event and enqueues at most one dispatch request.
// It returns the enqueued request's id, or "" when the event was not
// notification-worthy. Enqueue failures are returned to the caller;
// everything else resolves to a skip.
func (r *Router) Route(ctx context.Context, ev Event) (string, error) {
	switch ev.Kind {
	case EventUserCreated:
		return r.routeUserCreated(ctx, ev)
	case EventApplicationSaved:
		return r.routeApplicationSaved(ctx, ev)
	case EventAlertCreated:
		return r.routeAlertCreated(ctx, ev)
	default:
		r.logger.Warn("unroutable event", slog.String("kind", string(ev.Kind)))
		return "", nil
	}
}

func (r *Router) routeUserCreated(ctx context.Context, ev Event) (string, error) {
	if ev.User == nil {
		r.logger.Warn("user_created event without user snapshot")
		return "", nil
	}
	return r.enqueue(ctx, model.WelcomePayload{UserID: ev.User.ID})
}

// routeAlertCreated enqueues the initial batch send for a freshly saved
// alert so the user sees existing matches without waiting for the next
// hourly cycle
func (r *Router) routeAlertCreated(ctx context.Context, ev Event) (string, error) {
	if ev.Alert == nil {
		r.logger.Warn("alert_created event without alert snapshot")
		return "", nil
	}
	if !ev.Alert.Active {
		return "", nil
	}
	return r.enqueue(ctx, model.JobAlertPayload{AlertID: ev.Alert.ID})
}

func (r *Router) routeApplicationSaved(ctx context.Context, ev Event) (string, error) {
	if ev.New == nil {
		r.logger.Warn("application_saved event without post-save snapshot")
		return "", nil
	}
	if ev.Created {
		// Creation does not notify; only status transitions do.
		return "", nil
	}
	if ev.Old == nil {
		// The pre-save snapshot could not be loaded (deleted
		// concurrently). Record it and move on rather than guess at
		// a transition.
		r.logger.Warn("old snapshot missing, skipping notification",
			slog.String("application", ev.New.ID),
		)
		return "", nil
	}
	if ev.Old.Status == ev.New.Status {
		return "", nil
	}
	return r.enqueue(ctx, model.StatusUpdatePayload{
		ApplicationID: ev.New.ID,
		OldStatus:     ev.Old.Status,
		NewStatus:     ev.New.Status,
	})
}

func (r *Router) enqueue(ctx context.Context, p model.Payload) (string, error) {
	req := model.NewDispatchRequest(p, r.policies.For(p.DispatchKind()).MaxAttempts)
	if err := r.queue.Enqueue(ctx, req); err != nil {
		return "", err
	}
	return req.ID, nil
}
