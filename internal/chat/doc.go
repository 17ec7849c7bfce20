// Package chat implements the WebSocket chat endpoint.
//
// A single Hub fans broadcast frames out to every connected client. The
// Handler upgrades requests, reads the connection identity that
// ws.Gateway placed on the context, and runs gorilla/websocket
// read/write pumps with ping keepalives.
//
// Anonymous connections are first-class: the handshake always completes,
// they receive broadcasts, and only their attempts to send are refused.
package chat
