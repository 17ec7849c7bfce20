package ws

import "context"

// Identity is the authenticated principal attached to a chat connection.
// The zero value is the anonymous identity.
type Identity struct {
	UserID    string
	Email     string
	Name      string
	Anonymous bool
}

// Anonymous returns the identity used when no valid token was presented
func AnonymousIdentity() Identity {
	return Identity{Anonymous: true}
}

type contextKey string

const identityKey contextKey = "chatIdentity"

// WithIdentity returns a context carrying the identity
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext extracts the identity from context. A request that never
// passed through the gateway reads as anonymous.
func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey).(Identity); ok {
		return id
	}
	return AnonymousIdentity()
}
