package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jobdeck/jobdeck/api/internal/model"
	"github.com/jobdeck/jobdeck/api/internal/notify"
)

// ScheduleEntry records when a periodic task last fired. LastFiredAt is
// mutated only by the scheduler's own timer callback and strictly
// increases, so a restart never re-fires an interval that already ran.
type ScheduleEntry struct {
	TaskKind    model.DispatchKind `json:"task_kind"`
	Spec        string             `json:"spec"`
	LastFiredAt time.Time          `json:"last_fired_at"`
}

// ScheduleStore persists schedule entries across restarts
type ScheduleStore interface {
	Get(ctx context.Context, kind model.DispatchKind) (*ScheduleEntry, error)
	Save(ctx context.Context, entry *ScheduleEntry) error
}

// AlertLister lists alerts due for a batch send
type AlertLister interface {
	ListActiveIDs(ctx context.Context) ([]string, error)
}

// ApplicationLister lists applications that warrant a follow-up nudge
type ApplicationLister interface {
	ListAwaitingFollowUpIDs(ctx context.Context, updatedBefore time.Time) ([]string, error)
}

// UserLister lists recommendation and digest audiences
type UserLister interface {
	ListActiveIDs(ctx context.Context) ([]string, error)
	ListDigestOptInIDs(ctx context.Context) ([]string, error)
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Queue    notify.Enqueuer
	Policies notify.Policies
	Store    ScheduleStore
	Alerts   AlertLister
	Apps     ApplicationLister
	Users    UserLister

	// Timezone is an IANA name; cron specs are evaluated in it.
	// Defaults to UTC.
	Timezone string

	// FollowUpAfter is how long an application may sit untouched before
	// a reminder goes out. Defaults to 7 days.
	FollowUpAfter time.Duration

	Logger *slog.Logger
}

// Scheduler fires the static periodic trigger table and enqueues the
// resulting dispatch requests. It only ever enqueues, never dequeues;
// backpressure is the queue's job. A fire while the previous batch is
// still in flight is allowed for the same reason.
type Scheduler struct {
	queue         notify.Enqueuer
	policies      notify.Policies
	store         ScheduleStore
	alerts        AlertLister
	apps          ApplicationLister
	users         UserLister
	followUpAfter time.Duration
	location      *time.Location
	logger        *slog.Logger

	c       *cron.Cron
	running bool
	mu      sync.Mutex
}

// The periodic trigger table. Static on purpose: dynamic schedule
// mutation is out of scope.
const (
	specJobAlerts       = "@hourly"
	specFollowUps       = "@every 30m"
	specRecommendations = "30 9 * * *" // daily at 09:30
	specDigest          = "0 8 * * 1"  // Mondays at 08:00
)

// NewScheduler creates a scheduler
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	loc := time.UTC
	if cfg.Timezone != "" {
		if l, err := time.LoadLocation(cfg.Timezone); err == nil {
			loc = l
		}
	}
	if cfg.FollowUpAfter == 0 {
		cfg.FollowUpAfter = 7 * 24 * time.Hour
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		queue:         cfg.Queue,
		policies:      cfg.Policies,
		store:         cfg.Store,
		alerts:        cfg.Alerts,
		apps:          cfg.Apps,
		users:         cfg.Users,
		followUpAfter: cfg.FollowUpAfter,
		location:      loc,
		logger:        logger,
	}
}

// Start registers the trigger table and starts the cron loop
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	s.c = cron.New(cron.WithLocation(s.location))
	_, _ = s.c.AddFunc(specJobAlerts, func() { s.fire(model.KindJobAlert, specJobAlerts, s.enqueueJobAlerts) })
	_, _ = s.c.AddFunc(specFollowUps, func() { s.fire(model.KindFollowUpReminder, specFollowUps, s.enqueueFollowUps) })
	_, _ = s.c.AddFunc(specRecommendations, func() { s.fire(model.KindJobRecommendation, specRecommendations, s.enqueueRecommendations) })
	_, _ = s.c.AddFunc(specDigest, func() { s.fire(model.KindBulkNotification, specDigest, s.enqueueDigest) })
	s.c.Start()

	s.logger.Info("scheduler started", slog.String("timezone", s.location.String()))
}

// Stop stops the cron loop and waits for running fires to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false

	<-s.c.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// fire runs one trigger: it checks the persisted entry so LastFiredAt
// stays strictly monotonic, runs the enqueue function, then records the
// fire time. Errors are logged, never raised into cron.
func (s *Scheduler) fire(kind model.DispatchKind, spec string, enqueue func(ctx context.Context) (int, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	now := time.Now().UTC()

	entry, err := s.store.Get(ctx, kind)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		s.logger.Error("schedule entry load failed",
			slog.String("task", string(kind)),
			slog.String("error", err.Error()),
		)
		return
	}
	if entry != nil && !now.After(entry.LastFiredAt) {
		// Clock skew or a duplicate fire; skip rather than regress.
		return
	}

	n, err := enqueue(ctx)
	if err != nil {
		s.logger.Error("scheduled enqueue failed",
			slog.String("task", string(kind)),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := s.store.Save(ctx, &ScheduleEntry{TaskKind: kind, Spec: spec, LastFiredAt: now}); err != nil {
		s.logger.Error("schedule entry save failed",
			slog.String("task", string(kind)),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("schedule fired",
		slog.String("task", string(kind)),
		slog.Int("enqueued", n),
	)
}

// RunOnce fires one task kind immediately (for manual trigger or tests)
func (s *Scheduler) RunOnce(ctx context.Context, kind model.DispatchKind) (int, error) {
	switch kind {
	case model.KindJobAlert:
		return s.enqueueJobAlerts(ctx)
	case model.KindFollowUpReminder:
		return s.enqueueFollowUps(ctx)
	case model.KindJobRecommendation:
		return s.enqueueRecommendations(ctx)
	case model.KindBulkNotification:
		return s.enqueueDigest(ctx)
	default:
		return 0, model.ErrNotFound
	}
}

func (s *Scheduler) enqueueJobAlerts(ctx context.Context) (int, error) {
	ids, err := s.alerts.ListActiveIDs(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		if err := s.enqueue(ctx, model.JobAlertPayload{AlertID: id}); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (s *Scheduler) enqueueFollowUps(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.followUpAfter)
	ids, err := s.apps.ListAwaitingFollowUpIDs(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		if err := s.enqueue(ctx, model.ReminderPayload{ApplicationID: id}); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (s *Scheduler) enqueueRecommendations(ctx context.Context) (int, error) {
	ids, err := s.users.ListActiveIDs(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		if err := s.enqueue(ctx, model.RecommendationPayload{UserID: id}); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (s *Scheduler) enqueueDigest(ctx context.Context) (int, error) {
	ids, err := s.users.ListDigestOptInIDs(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	err = s.enqueue(ctx, model.BulkPayload{
		Subject:  "Your weekly Jobdeck digest",
		Template: "digest",
		UserIDs:  ids,
	})
	if err != nil {
		return 0, err
	}
	return 1, nil
}

func (s *Scheduler) enqueue(ctx context.Context, p model.Payload) error {
	req := model.NewDispatchRequest(p, s.policies.For(p.DispatchKind()).MaxAttempts)
	return s.queue.Enqueue(ctx, req)
}
