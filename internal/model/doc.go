// Package model defines domain entities and data structures for the Jobdeck API.
//
// The model package contains struct definitions for domain objects consumed
// by the notification core, the dispatch request lifecycle, and error
// definitions. Models are used across all layers of the application.
//
// # Domain Entities
//
//   - User: Platform account, read to resolve notification recipients
//   - JobListing: Published job post matched against saved alerts
//   - JobAlert: Saved search with a last-sent watermark
//   - Application: A user's application to a listing with a review status
//
// # Dispatch Lifecycle
//
// DispatchRequest is the unit of asynchronous work. It moves through
//
//	pending -> running -> succeeded | failed | abandoned
//
// where a failed request returns to pending with a backoff delay until its
// attempt budget is exhausted, at which point it becomes abandoned and is
// kept for audit rather than deleted.
//
// # Payload Variants
//
// Each DispatchKind has its own payload struct carrying only the fields
// that kind needs. Payloads are persisted as a kind-keyed JSON envelope;
// use EncodePayload and DecodePayload at the storage boundary.
//
// # Error Types
//
// Dispatch errors form a small taxonomy of sentinels (transient vs
// terminal) checked with errors.Is. HTTP-facing errors follow RFC 9457
// Problem Details, defined in errors.go.
package model
