package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jobdeck/jobdeck/api/internal/model"
	"github.com/jobdeck/jobdeck/api/pkg/jwt"
)

// TokenValidator verifies a chat token and returns its claims
type TokenValidator interface {
	Validate(token string) (*jwt.Claims, error)
}

// PrincipalReader checks that the user a token names still exists
type PrincipalReader interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// Gateway authenticates chat WebSocket handshakes. It never rejects a
// request: every failure mode (missing token, malformed token, expired
// token, deleted user, unavailable user store) downgrades the connection
// to anonymous so the handshake still completes. Browsers cannot set
// headers on WebSocket upgrades, so the token query parameter is checked
// before the Authorization header.
type Gateway struct {
	validator TokenValidator
	users     PrincipalReader
	logger    *slog.Logger
}

// NewGateway creates a new chat auth gateway
func NewGateway(validator TokenValidator, users PrincipalReader, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		validator: validator,
		users:     users,
		logger:    logger,
	}
}

// Wrap returns a handler that resolves the connection identity and stores
// it on the request context before invoking next.
func (g *Gateway) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := g.identify(r)
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// identify resolves the request to an authenticated or anonymous identity
func (g *Gateway) identify(r *http.Request) Identity {
	token := extractToken(r)
	if token == "" {
		return AnonymousIdentity()
	}

	claims, err := g.validator.Validate(token)
	if err != nil {
		g.logger.Debug("chat token rejected, continuing anonymous",
			slog.String("reason", tokenFailure(err)))
		return AnonymousIdentity()
	}

	user, err := g.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			g.logger.Debug("chat token names unknown user, continuing anonymous",
				slog.String("user_id", claims.UserID))
		} else {
			g.logger.Warn("user lookup failed during chat handshake, continuing anonymous",
				slog.String("user_id", claims.UserID),
				slog.String("error", err.Error()))
		}
		return AnonymousIdentity()
	}

	return Identity{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
	}
}

// extractToken pulls the chat token from the request. The query parameter
// wins over the Authorization header when both are present.
func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

// tokenFailure maps validation errors to log-safe reason strings
func tokenFailure(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenNotYetValid):
		return "not yet valid"
	case errors.Is(err, jwt.ErrInvalidSignature):
		return "bad signature"
	default:
		return "malformed"
	}
}
