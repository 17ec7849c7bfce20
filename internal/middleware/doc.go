// Package middleware provides HTTP middleware for the JobDeck API.
//
// Middlewares follow the standard http.Handler wrapping pattern and are
// applied with Chain:
//
//	handler := middleware.Chain(mux,
//	    middleware.RequestID,
//	    middleware.Logger,
//	    middleware.Recovery,
//	)
//
// # Available Middleware
//
//   - RequestID: attaches a unique request ID, honoring X-Request-ID
//   - Logger: structured request logging via slog
//   - Recovery: converts panics into RFC 9457 500 responses
//   - AdminKey: guards operational endpoints behind a bcrypt-hashed key
//
// Chat WebSocket authentication lives in the ws package, not here; it
// never rejects a request, so it is not a gate in the usual sense.
package middleware
