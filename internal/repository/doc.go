// Package repository implements the data access layer for the JobDeck API.
//
// The repository package contains all database operations using SurrealDB.
// Each repository struct handles the data operations for a specific domain
// entity: dispatch requests, users, job listings, saved alerts, applications
// and schedule entries.
//
// # Repository Pattern
//
// All repositories follow a consistent pattern:
//
//   - Constructor function (NewXxxRepository) accepts a database connection
//   - Methods implement specific data operations (Enqueue, GetByID, Claim, etc.)
//   - SurrealQL queries are used for all database interactions
//   - Results are parsed and mapped to model structs
//   - database.ErrNotFound is translated to model.ErrNotFound so callers
//     classify missing records without importing the database package
//
// # Queue Semantics
//
// DispatchRepository doubles as the durable queue store. Claim is a single
// conditional UPDATE over a nested SELECT, so concurrent workers never take
// the same pending request, and Reclaim returns stale running requests to
// pending after the visibility window lapses.
//
// # Example Usage
//
//	repo := NewAlertRepository(db)
//	alert, err := repo.GetByID(ctx, "alert-123")
//	if err != nil {
//	    if errors.Is(err, model.ErrNotFound) {
//	        // Handle not found
//	    }
//	    return err
//	}
package repository
