// Package ws implements authentication for chat WebSocket handshakes.
//
// The gateway resolves every upgrade request to an Identity before the
// chat handler runs. Tokens are looked for in the token query parameter
// first (browsers cannot set headers on WebSocket upgrades), then in the
// Authorization header as a Bearer token.
//
// The gateway never rejects a handshake. Missing, malformed, expired or
// foreign tokens, tokens naming deleted users, and user-store outages
// all downgrade the connection to anonymous; the chat layer decides what
// anonymous connections may do.
package ws
