// Package notify implements the notification dispatch core.
//
// The package contains the parts of the pipeline between the persistence
// boundary and the delivery transport:
//
//   - Router: converts persistence events into dispatch requests,
//     exactly zero or one per event
//   - Dispatcher: executes a claimed request against the transport and
//     templating collaborators, returning an Outcome value
//   - Policies: the retry/backoff engine deciding retry vs abandon
//   - SMTPTransport / LogTransport: delivery collaborators
//   - TemplateRenderer: the templating collaborator
//
// # Outcome-Driven Control Flow
//
// No exceptions cross component boundaries. A dispatch attempt returns
// an Outcome (delivered, partial, failed); the worker feeds failed
// outcomes through Policies.Next to get an explicit retry-or-abandon
// action for the queue.
//
// # Error Classification
//
// Collaborator failures are wrapped in the model package's sentinels:
// transient failures (transport timeouts, rate limits) are retryable,
// terminal failures (missing recipient, render errors) abandon the
// request immediately. Abandoned requests stay queryable for audit.
package notify
