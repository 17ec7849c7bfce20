package notify

import (
	"math"
	"time"

	"github.com/jobdeck/jobdeck/api/internal/model"
)

// RetryPolicy governs how a failing dispatch request is re-attempted.
// Policies are fixed per dispatch kind and never mutated after creation.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// Delay returns the backoff before the next attempt given the number of
// attempts already made: BaseDelay * Multiplier^attempts, so delays are
// monotonically non-decreasing and Delay(0) is BaseDelay.
func (p RetryPolicy) Delay(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	return time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempts)))
}

// Action tells the worker what to do with a failed request
type Action struct {
	// Abandon means the request transitions to abandoned and is kept
	// for audit. When false, retry After the given delay.
	Abandon bool
	After   time.Duration
}

// Policies maps each dispatch kind to its retry policy
type Policies map[model.DispatchKind]RetryPolicy

// DefaultPolicies returns the per-kind retry configuration.
// User-facing transactional kinds get more attempts than batch kinds.
func DefaultPolicies() Policies {
	return Policies{
		model.KindWelcomeEmail:      {MaxAttempts: 5, BaseDelay: 30 * time.Second, Multiplier: 2},
		model.KindStatusUpdate:      {MaxAttempts: 5, BaseDelay: 30 * time.Second, Multiplier: 2},
		model.KindJobAlert:          {MaxAttempts: 3, BaseDelay: time.Minute, Multiplier: 2},
		model.KindJobRecommendation: {MaxAttempts: 3, BaseDelay: time.Minute, Multiplier: 2},
		model.KindFollowUpReminder:  {MaxAttempts: 3, BaseDelay: time.Minute, Multiplier: 2},
		model.KindBulkNotification:  {MaxAttempts: 2, BaseDelay: 5 * time.Minute, Multiplier: 2},
	}
}

// For returns the policy for a kind, falling back to a conservative
// default for kinds without an explicit entry.
func (ps Policies) For(kind model.DispatchKind) RetryPolicy {
	if p, ok := ps[kind]; ok {
		return p
	}
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Minute, Multiplier: 2}
}

// Next decides whether a failed request is retried or abandoned.
// Terminal errors abandon immediately regardless of remaining attempts;
// transient errors retry with exponential backoff until the attempt
// budget is exhausted.
func (ps Policies) Next(req *model.DispatchRequest, err error) Action {
	if model.TerminalError(err) {
		return Action{Abandon: true}
	}
	if req.AttemptCount >= req.MaxAttempts {
		return Action{Abandon: true}
	}
	return Action{After: ps.For(req.Kind).Delay(req.AttemptCount)}
}
