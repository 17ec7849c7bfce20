// Package jobs implements background processing for the Jobdeck API.
//
// The jobs package contains the worker pool that drains the dispatch
// queue and the scheduler that fires the periodic trigger table. Both
// run independently of HTTP request handling.
//
// # Worker Pool
//
// A fixed-size pool claims dispatch requests, executes them through the
// notify.Dispatcher, and acts on the returned Outcome: ack on success,
// nack with a backoff delay on retryable failure, abandon when the
// attempt budget is exhausted or the error is terminal.
//
// # Scheduler
//
// The scheduler registers a static cron table (hourly alert batches,
// follow-up sweeps every 30 minutes, daily recommendations, a weekly
// digest) and enqueues the resulting requests. It never dequeues;
// backpressure belongs to the queue. Fire times are persisted through a
// ScheduleStore so restarts do not re-fire intervals that already ran.
//
// # Error Handling
//
// Jobs log errors but don't crash the application. Failed dispatches
// are retried according to their kind's retry policy.
package jobs
