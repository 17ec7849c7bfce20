package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jobdeck/jobdeck/api/internal/model"
)

// AlertBatchSize caps how many listings go into one job-alert email
const AlertBatchSize = 50

// UserReader resolves notification recipients
type UserReader interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// ApplicationReader loads applications referenced by payloads
type ApplicationReader interface {
	GetByID(ctx context.Context, id string) (*model.Application, error)
}

// AlertStore loads saved alerts and advances their watermark
type AlertStore interface {
	GetByID(ctx context.Context, id string) (*model.JobAlert, error)
	AdvanceWatermark(ctx context.Context, id string, sentAt time.Time) error
}

// JobSearcher selects listings matching alert criteria created after the
// watermark, newest first, capped at limit
type JobSearcher interface {
	Search(ctx context.Context, c model.AlertCriteria, after time.Time, limit int) ([]*model.JobListing, error)
}

// Recommender produces personalized listing suggestions. The scoring is
// an external collaborator; only the invocation contract is fixed here.
type Recommender interface {
	Recommend(ctx context.Context, userID string, limit int) ([]*model.JobListing, error)
}

// Transport delivers a rendered notification. Implementations classify
// their failures as transient or terminal via the model sentinels; the
// dispatcher does not interpret transport-specific codes.
type Transport interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// Renderer renders a named template with the given data. Render failures
// are terminal for the dispatch that hit them.
type Renderer interface {
	Render(name string, data any) (string, error)
}

// Dispatcher consumes claimed dispatch requests, resolves recipients,
// renders content and hands off to the delivery transport. Every
// collaborator failure is translated into an Outcome at this boundary.
type Dispatcher struct {
	users       UserReader
	apps        ApplicationReader
	alerts      AlertStore
	jobs        JobSearcher
	recommender Recommender
	transport   Transport
	renderer    Renderer
	logger      *slog.Logger
}

// DispatcherConfig holds the dispatcher's collaborators
type DispatcherConfig struct {
	Users       UserReader
	Apps        ApplicationReader
	Alerts      AlertStore
	Jobs        JobSearcher
	Recommender Recommender
	Transport   Transport
	Renderer    Renderer
	Logger      *slog.Logger
}

// NewDispatcher creates a dispatcher
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		users:       cfg.Users,
		apps:        cfg.Apps,
		alerts:      cfg.Alerts,
		jobs:        cfg.Jobs,
		recommender: cfg.Recommender,
		transport:   cfg.Transport,
		renderer:    cfg.Renderer,
		logger:      logger,
	}
}

// Dispatch executes one delivery attempt for the request
func (d *Dispatcher) Dispatch(ctx context.Context, req *model.DispatchRequest) Outcome {
	switch p := req.Payload.(type) {
	case model.WelcomePayload:
		return d.sendWelcome(ctx, p)
	case model.StatusUpdatePayload:
		return d.sendStatusUpdate(ctx, p)
	case model.JobAlertPayload:
		return d.sendJobAlert(ctx, p)
	case model.RecommendationPayload:
		return d.sendRecommendation(ctx, p)
	case model.ReminderPayload:
		return d.sendReminder(ctx, p)
	case model.BulkPayload:
		return d.sendBulk(ctx, p)
	default:
		return Failed(fmt.Errorf("%w: no handler for kind %q", model.ErrTemplateRender, req.Kind))
	}
}

func (d *Dispatcher) sendWelcome(ctx context.Context, p model.WelcomePayload) Outcome {
	user, out := d.recipient(ctx, p.UserID)
	if out != nil {
		return *out
	}
	body, err := d.renderer.Render("welcome", map[string]any{
		"Name": user.Name,
	})
	if err != nil {
		return Failed(renderErr("welcome", err))
	}
	if err := d.send(ctx, user.Email, "Welcome to Jobdeck", body); err != nil {
		return Failed(err)
	}
	return Delivered(1)
}

func (d *Dispatcher) sendStatusUpdate(ctx context.Context, p model.StatusUpdatePayload) Outcome {
	app, err := d.apps.GetByID(ctx, p.ApplicationID)
	if err != nil {
		return Failed(lookupErr("application", p.ApplicationID, err))
	}
	user, out := d.recipient(ctx, app.UserID)
	if out != nil {
		return *out
	}
	body, err := d.renderer.Render("status_update", map[string]any{
		"Name":      user.Name,
		"OldStatus": string(p.OldStatus),
		"NewStatus": string(p.NewStatus),
	})
	if err != nil {
		return Failed(renderErr("status_update", err))
	}
	if err := d.send(ctx, user.Email, "Your application status changed", body); err != nil {
		return Failed(err)
	}
	return Delivered(1)
}

// sendJobAlert performs the filter-then-window step: listings matching
// the alert criteria AND created after the last successful send, capped
// at AlertBatchSize, newest first. An empty window is a success with
// zero items and leaves the watermark alone so nothing is skipped next
// cycle. The watermark only advances after the email actually went out.
func (d *Dispatcher) sendJobAlert(ctx context.Context, p model.JobAlertPayload) Outcome {
	alert, err := d.alerts.GetByID(ctx, p.AlertID)
	if err != nil {
		return Failed(lookupErr("alert", p.AlertID, err))
	}
	user, out := d.recipient(ctx, alert.UserID)
	if out != nil {
		return *out
	}

	listings, err := d.jobs.Search(ctx, alert.Criteria, alert.LastSentAt, AlertBatchSize)
	if err != nil {
		return Failed(fmt.Errorf("%w: searching listings: %v", model.ErrTransientDelivery, err))
	}
	if len(listings) == 0 {
		return Delivered(0)
	}

	body, err := d.renderer.Render("job_alert", map[string]any{
		"Name":     user.Name,
		"Listings": listings,
	})
	if err != nil {
		return Failed(renderErr("job_alert", err))
	}
	subject := fmt.Sprintf("%d new jobs matching your alert", len(listings))
	if err := d.send(ctx, user.Email, subject, body); err != nil {
		return Failed(err)
	}

	// Listings are newest first; the watermark moves to the newest
	// included listing so anything created mid-send is picked up next
	// cycle rather than skipped.
	if err := d.alerts.AdvanceWatermark(ctx, alert.ID, listings[0].CreatedAt); err != nil {
		d.logger.Warn("watermark not advanced, next cycle may resend",
			slog.String("alert", alert.ID),
			slog.String("error", err.Error()),
		)
	}
	return Delivered(len(listings))
}

func (d *Dispatcher) sendRecommendation(ctx context.Context, p model.RecommendationPayload) Outcome {
	user, out := d.recipient(ctx, p.UserID)
	if out != nil {
		return *out
	}
	listings, err := d.recommender.Recommend(ctx, user.ID, 10)
	if err != nil {
		return Failed(fmt.Errorf("%w: recommending: %v", model.ErrTransientDelivery, err))
	}
	if len(listings) == 0 {
		return Delivered(0)
	}
	body, err := d.renderer.Render("recommendation", map[string]any{
		"Name":     user.Name,
		"Listings": listings,
	})
	if err != nil {
		return Failed(renderErr("recommendation", err))
	}
	if err := d.send(ctx, user.Email, "Jobs picked for you", body); err != nil {
		return Failed(err)
	}
	return Delivered(len(listings))
}

func (d *Dispatcher) sendReminder(ctx context.Context, p model.ReminderPayload) Outcome {
	app, err := d.apps.GetByID(ctx, p.ApplicationID)
	if err != nil {
		return Failed(lookupErr("application", p.ApplicationID, err))
	}
	user, out := d.recipient(ctx, app.UserID)
	if out != nil {
		return *out
	}
	body, err := d.renderer.Render("follow_up", map[string]any{
		"Name":   user.Name,
		"Status": string(app.Status),
	})
	if err != nil {
		return Failed(renderErr("follow_up", err))
	}
	if err := d.send(ctx, user.Email, "Your application is waiting on you", body); err != nil {
		return Failed(err)
	}
	return Delivered(1)
}

// sendBulk delivers to every recipient independently: one recipient's
// failure never aborts the batch. Recipients that were delivered to are
// never retried; the partial counts are the record of what happened.
func (d *Dispatcher) sendBulk(ctx context.Context, p model.BulkPayload) Outcome {
	if len(p.UserIDs) == 0 {
		return Delivered(0)
	}

	var delivered, failed int
	var lastErr error
	for _, userID := range p.UserIDs {
		if err := d.sendBulkOne(ctx, p, userID); err != nil {
			failed++
			lastErr = err
			d.logger.Warn("bulk recipient failed",
				slog.String("user", userID),
				slog.String("error", err.Error()),
			)
			continue
		}
		delivered++
	}

	switch {
	case failed == 0:
		return Delivered(delivered)
	case delivered == 0:
		return Failed(lastErr)
	default:
		return Partial(delivered, failed)
	}
}

func (d *Dispatcher) sendBulkOne(ctx context.Context, p model.BulkPayload, userID string) error {
	user, err := d.users.GetByID(ctx, userID)
	if err != nil {
		return lookupErr("user", userID, err)
	}
	if user.Email == "" {
		return fmt.Errorf("%w: user %s has no address", model.ErrTerminalRecipient, userID)
	}
	body, err := d.renderer.Render(p.Template, map[string]any{
		"Name": user.Name,
	})
	if err != nil {
		return renderErr(p.Template, err)
	}
	return d.send(ctx, user.Email, p.Subject, body)
}

// recipient resolves a user and validates they can receive email.
// Returns a non-nil Outcome when resolution failed.
func (d *Dispatcher) recipient(ctx context.Context, userID string) (*model.User, *Outcome) {
	user, err := d.users.GetByID(ctx, userID)
	if err != nil {
		out := Failed(lookupErr("user", userID, err))
		return nil, &out
	}
	if user.Email == "" {
		out := Failed(fmt.Errorf("%w: user %s has no address", model.ErrTerminalRecipient, userID))
		return nil, &out
	}
	return user, nil
}

// send hands off to the transport, classifying unclassified failures as
// transient so the retry policy has something to act on
func (d *Dispatcher) send(ctx context.Context, recipient, subject, body string) error {
	err := d.transport.Send(ctx, recipient, subject, body)
	if err == nil {
		return nil
	}
	if model.TerminalError(err) || errors.Is(err, model.ErrTransientDelivery) {
		return err
	}
	return fmt.Errorf("%w: %v", model.ErrTransientDelivery, err)
}

func lookupErr(entity, id string, err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("%w: %s %s does not exist", model.ErrTerminalRecipient, entity, id)
	}
	return fmt.Errorf("%w: loading %s %s: %v", model.ErrTransientDelivery, entity, id, err)
}

func renderErr(name string, err error) error {
	return fmt.Errorf("%w: template %s: %v", model.ErrTemplateRender, name, err)
}
