package ws

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jobdeck/jobdeck/api/internal/model"
	"github.com/jobdeck/jobdeck/api/pkg/jwt"
)

// ============================================================================
// Test Helpers
// ============================================================================

type mockUsers struct {
	GetByIDFunc func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUsers) GetByID(ctx context.Context, id string) (*model.User, error) {
	return m.GetByIDFunc(ctx, id)
}

func knownUsers(ids ...string) *mockUsers {
	return &mockUsers{
		GetByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			for _, known := range ids {
				if id == known {
					return &model.User{ID: id, Email: id + "@example.com", Name: "User " + id}, nil
				}
			}
			return nil, model.ErrNotFound
		},
	}
}

func newTestJWT(t *testing.T, expiration time.Duration) *jwt.Service {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	return jwt.NewTestService(privateKey, "test-issuer", expiration)
}

// resolveIdentity runs a request through the gateway and returns the
// identity the inner handler observed.
func resolveIdentity(t *testing.T, g *Gateway, req *http.Request) Identity {
	t.Helper()
	var got Identity
	rec := httptest.NewRecorder()
	g.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
		w.WriteHeader(http.StatusSwitchingProtocols)
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusSwitchingProtocols {
		t.Fatalf("gateway must never block the handshake, got status %d", rec.Code)
	}
	return got
}

// ============================================================================
// Gateway Tests
// ============================================================================

func TestGateway_ValidQueryToken_Authenticated(t *testing.T) {
	t.Parallel()
	svc := newTestJWT(t, 15*time.Minute)
	token, err := svc.Sign(jwt.Claims{UserID: "user-1"})
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	g := NewGateway(svc, knownUsers("user-1"), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/chat/ws?token="+token, nil)
	got := resolveIdentity(t, g, req)

	if got.Anonymous {
		t.Fatal("expected authenticated identity")
	}
	if got.UserID != "user-1" {
		t.Errorf("expected user-1, got %q", got.UserID)
	}
}

func TestGateway_ValidBearerToken_Authenticated(t *testing.T) {
	t.Parallel()
	svc := newTestJWT(t, 15*time.Minute)
	token, err := svc.Sign(jwt.Claims{UserID: "user-1"})
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	g := NewGateway(svc, knownUsers("user-1"), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/chat/ws", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	got := resolveIdentity(t, g, req)

	if got.Anonymous || got.UserID != "user-1" {
		t.Errorf("expected authenticated user-1, got %+v", got)
	}
}

func TestGateway_QueryTokenWinsOverHeader(t *testing.T) {
	t.Parallel()
	svc := newTestJWT(t, 15*time.Minute)
	queryToken, err := svc.Sign(jwt.Claims{UserID: "query-user"})
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	headerToken, err := svc.Sign(jwt.Claims{UserID: "header-user"})
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	g := NewGateway(svc, knownUsers("query-user", "header-user"), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/chat/ws?token="+queryToken, nil)
	req.Header.Set("Authorization", "Bearer "+headerToken)
	got := resolveIdentity(t, g, req)

	if got.UserID != "query-user" {
		t.Errorf("expected query parameter to take precedence, got %q", got.UserID)
	}
}

func TestGateway_NoToken_Anonymous(t *testing.T) {
	t.Parallel()
	g := NewGateway(newTestJWT(t, 15*time.Minute), knownUsers(), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/chat/ws", nil)
	got := resolveIdentity(t, g, req)

	if !got.Anonymous {
		t.Errorf("expected anonymous identity, got %+v", got)
	}
}

func TestGateway_ExpiredToken_Anonymous(t *testing.T) {
	t.Parallel()
	svc := newTestJWT(t, -1*time.Minute)
	token, err := svc.Sign(jwt.Claims{UserID: "user-1"})
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	g := NewGateway(svc, knownUsers("user-1"), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/chat/ws?token="+token, nil)
	got := resolveIdentity(t, g, req)

	if !got.Anonymous {
		t.Errorf("expected anonymous identity for expired token, got %+v", got)
	}
}

func TestGateway_GarbageToken_Anonymous(t *testing.T) {
	t.Parallel()
	g := NewGateway(newTestJWT(t, 15*time.Minute), knownUsers("user-1"), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/chat/ws?token=not.a.jwt", nil)
	got := resolveIdentity(t, g, req)

	if !got.Anonymous {
		t.Errorf("expected anonymous identity for garbage token, got %+v", got)
	}
}

func TestGateway_DeletedUser_Anonymous(t *testing.T) {
	t.Parallel()
	svc := newTestJWT(t, 15*time.Minute)
	token, err := svc.Sign(jwt.Claims{UserID: "gone-user"})
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	g := NewGateway(svc, knownUsers("user-1"), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/chat/ws?token="+token, nil)
	got := resolveIdentity(t, g, req)

	if !got.Anonymous {
		t.Errorf("expected anonymous identity for deleted user, got %+v", got)
	}
}

func TestGateway_UserStoreError_Anonymous(t *testing.T) {
	t.Parallel()
	svc := newTestJWT(t, 15*time.Minute)
	token, err := svc.Sign(jwt.Claims{UserID: "user-1"})
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	users := &mockUsers{
		GetByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return nil, errors.New("connection refused")
		},
	}
	g := NewGateway(svc, users, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/chat/ws?token="+token, nil)
	got := resolveIdentity(t, g, req)

	if !got.Anonymous {
		t.Errorf("expected anonymous identity when user store is down, got %+v", got)
	}
}

func TestFromContext_MissingIdentity_Anonymous(t *testing.T) {
	t.Parallel()
	got := FromContext(context.Background())
	if !got.Anonymous {
		t.Errorf("expected anonymous identity from bare context, got %+v", got)
	}
}
