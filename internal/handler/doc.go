// Package handler implements the HTTP surface of the JobDeck API.
//
// The surface is deliberately thin: a health endpoint with queue depth,
// the admin dispatch audit endpoint, and the chat WebSocket upgrade
// (which lives in the chat package). Handlers accept narrow interfaces
// for their collaborators and return structs, so tests wire them with
// function-field mocks.
//
// Errors are written as RFC 9457 Problem Details via WriteError.
package handler
