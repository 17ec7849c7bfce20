package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jobdeck/jobdeck/api/internal/model"
	"github.com/jobdeck/jobdeck/api/internal/notify"
	"github.com/jobdeck/jobdeck/api/internal/queue"
)

// WorkerPool drains the dispatch queue with a fixed number of workers.
// Each worker claims one request at a time, runs it with a bounded
// attempt timeout, and feeds the outcome through the retry policy.
// Retries of one request are strictly sequential because the request
// only re-enters the queue after its current attempt resolves; there is
// no ordering guarantee across different requests.
type WorkerPool struct {
	queue      *queue.Queue
	dispatcher *notify.Dispatcher
	policies   notify.Policies

	workers        int
	pollInterval   time.Duration
	attemptTimeout time.Duration
	logger         *slog.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// WorkerPoolConfig holds worker pool configuration
type WorkerPoolConfig struct {
	Queue      *queue.Queue
	Dispatcher *notify.Dispatcher
	Policies   notify.Policies

	// Workers is the pool size. Defaults to 4.
	Workers int

	// PollInterval is how long an idle worker waits before checking the
	// queue again. Defaults to 1s.
	PollInterval time.Duration

	// AttemptTimeout bounds one dispatch attempt end to end.
	// Defaults to 30s.
	AttemptTimeout time.Duration

	Logger *slog.Logger
}

// NewWorkerPool creates a worker pool
func NewWorkerPool(cfg WorkerPoolConfig) *WorkerPool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.AttemptTimeout == 0 {
		cfg.AttemptTimeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{
		queue:          cfg.Queue,
		dispatcher:     cfg.Dispatcher,
		policies:       cfg.Policies,
		workers:        cfg.Workers,
		pollInterval:   cfg.PollInterval,
		attemptTimeout: cfg.AttemptTimeout,
		logger:         logger,
		stopCh:         make(chan struct{}),
	}
}

// Start launches the workers
func (p *WorkerPool) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	for i := 0; i < p.workers; i++ {
		workerID := fmt.Sprintf("worker-%d", i+1)
		p.wg.Add(1)
		go p.run(workerID)
	}
	p.logger.Info("worker pool started", slog.Int("workers", p.workers))
}

// Stop drains gracefully: in-flight attempts run to completion or to
// their own timeout, then the workers exit.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	close(p.stopCh)
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// IsRunning returns whether the pool is running
func (p *WorkerPool) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *WorkerPool) run(workerID string) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		claimed, err := p.claimOne(workerID)
		if err != nil {
			p.logger.Error("claim failed",
				slog.String("worker", workerID),
				slog.String("error", err.Error()),
			)
			claimed = false
		}
		if claimed {
			continue
		}

		// Queue empty: idle until the next poll.
		select {
		case <-p.stopCh:
			return
		case <-time.After(p.pollInterval):
		}
	}
}

// claimOne claims and processes a single request. Returns false when the
// queue had nothing eligible.
func (p *WorkerPool) claimOne(workerID string) (bool, error) {
	claimCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	req, err := p.queue.Claim(claimCtx, workerID)
	cancel()
	if err != nil {
		return false, err
	}
	if req == nil {
		return false, nil
	}

	p.process(workerID, req)
	return true, nil
}

func (p *WorkerPool) process(workerID string, req *model.DispatchRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), p.attemptTimeout)
	defer cancel()

	out := p.dispatcher.Dispatch(ctx, req)

	// State transitions get their own deadline so a dispatch that ran up
	// to its timeout can still be acked or rescheduled.
	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()

	switch out.Kind {
	case notify.OutcomeDelivered:
		p.finish(req, p.queue.Ack(sctx, req.ID))
		p.logger.Info("dispatch succeeded",
			slog.String("id", req.ID),
			slog.String("kind", string(req.Kind)),
			slog.Int("delivered", out.Delivered),
			slog.Int("attempt", req.AttemptCount),
		)

	case notify.OutcomePartial:
		// Partial success is terminal: delivered recipients must not be
		// retried, and the counts are the audit record for the rest.
		p.finish(req, p.queue.Ack(sctx, req.ID))
		p.logger.Warn("dispatch partially delivered",
			slog.String("id", req.ID),
			slog.String("kind", string(req.Kind)),
			slog.Int("delivered", out.Delivered),
			slog.Int("failed", out.Failed),
		)

	case notify.OutcomeFailed:
		action := p.policies.Next(req, out.Err)
		if action.Abandon {
			p.finish(req, p.queue.Abandon(sctx, req.ID, out.Err.Error()))
			p.logger.Error("dispatch abandoned",
				slog.String("id", req.ID),
				slog.String("kind", string(req.Kind)),
				slog.Int("attempts", req.AttemptCount),
				slog.String("error", out.Err.Error()),
			)
			return
		}
		p.finish(req, p.queue.Nack(sctx, req.ID, action.After, out.Err.Error()))
		p.logger.Warn("dispatch failed, retrying",
			slog.String("id", req.ID),
			slog.String("kind", string(req.Kind)),
			slog.Int("attempt", req.AttemptCount),
			slog.Duration("retry_after", action.After),
			slog.String("error", out.Err.Error()),
			slog.String("worker", workerID),
		)
	}
}

// finish logs state-transition failures; the reclaimer will recover the
// request once its visibility timeout lapses
func (p *WorkerPool) finish(req *model.DispatchRequest, err error) {
	if err != nil {
		p.logger.Error("queue state transition failed",
			slog.String("id", req.ID),
			slog.String("error", err.Error()),
		)
	}
}
