package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ============================================================================
// Test Helpers
// ============================================================================

func newTestService(t *testing.T) *Service {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	return NewTestService(privateKey, "test-issuer", 15*time.Minute)
}

func newTestServiceWithExpiration(t *testing.T, expiration time.Duration) *Service {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	return NewTestService(privateKey, "test-issuer", expiration)
}

// ============================================================================
// Claims.Valid() Tests
// ============================================================================

func TestClaims_Valid_NoExpiration_ReturnsNil(t *testing.T) {
	t.Parallel()
	claims := Claims{
		UserID: "user-123",
		Email:  "test@example.com",
	}

	if err := claims.Valid(); err != nil {
		t.Errorf("expected no error for claims without expiration, got %v", err)
	}
}

func TestClaims_Valid_Expired_ReturnsErrTokenExpired(t *testing.T) {
	t.Parallel()
	claims := Claims{
		UserID:    "user-123",
		ExpiresAt: time.Now().Add(-1 * time.Hour).Unix(),
	}

	if err := claims.Valid(); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestClaims_Valid_NotYetValid_ReturnsErrTokenNotYetValid(t *testing.T) {
	t.Parallel()
	claims := Claims{
		UserID:    "user-123",
		NotBefore: time.Now().Add(1 * time.Hour).Unix(),
	}

	if err := claims.Valid(); !errors.Is(err, ErrTokenNotYetValid) {
		t.Errorf("expected ErrTokenNotYetValid, got %v", err)
	}
}

func TestClaims_IsAdmin(t *testing.T) {
	t.Parallel()
	if (&Claims{Role: "user"}).IsAdmin() {
		t.Error("user role should not be admin")
	}
	if !(&Claims{Role: "admin"}).IsAdmin() {
		t.Error("admin role should be admin")
	}
}

// ============================================================================
// Sign / Validate Round Trip Tests
// ============================================================================

func TestService_SignAndValidate_RoundTrip(t *testing.T) {
	t.Parallel()
	service := newTestService(t)

	token, err := service.Sign(Claims{
		UserID: "user-123",
		Email:  "dev@example.com",
		Name:   "Dev User",
		Role:   "user",
	})
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	if len(strings.Split(token, ".")) != 3 {
		t.Fatalf("expected three token segments, got %q", token)
	}

	claims, err := service.Validate(token)
	if err != nil {
		t.Fatalf("failed to validate token: %v", err)
	}
	if claims.UserID != "user-123" {
		t.Errorf("expected user ID user-123, got %q", claims.UserID)
	}
	if claims.Email != "dev@example.com" {
		t.Errorf("expected email dev@example.com, got %q", claims.Email)
	}
	if claims.Issuer != "test-issuer" {
		t.Errorf("expected issuer test-issuer, got %q", claims.Issuer)
	}
	if claims.ExpiresAt == 0 {
		t.Error("expected expiration to be set by Sign")
	}
}

func TestService_Validate_ExpiredToken_ReturnsErrTokenExpired(t *testing.T) {
	t.Parallel()
	service := newTestServiceWithExpiration(t, -1*time.Minute)

	token, err := service.Sign(Claims{UserID: "user-123"})
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, err := service.Validate(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestService_Validate_TamperedToken_ReturnsError(t *testing.T) {
	t.Parallel()
	service := newTestService(t)

	token, err := service.Sign(Claims{UserID: "user-123"})
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	// Corrupt the claims segment
	parts := strings.Split(token, ".")
	parts[1] = parts[1][:len(parts[1])-2] + "xx"
	tampered := strings.Join(parts, ".")

	if _, err := service.Validate(tampered); err == nil {
		t.Error("expected error for tampered token, got nil")
	}
}

func TestService_Validate_WrongIssuer_ReturnsErrInvalidToken(t *testing.T) {
	t.Parallel()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	signer := NewTestService(privateKey, "other-issuer", 15*time.Minute)
	verifier := NewTestService(privateKey, "test-issuer", 15*time.Minute)

	token, err := signer.Sign(Claims{UserID: "user-123"})
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, err := verifier.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestService_Validate_WrongKey_ReturnsErrInvalidSignature(t *testing.T) {
	t.Parallel()
	signer := newTestService(t)
	verifier := newTestService(t)

	token, err := signer.Sign(Claims{UserID: "user-123"})
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, err := verifier.Validate(token); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestService_Validate_MalformedToken_ReturnsErrInvalidToken(t *testing.T) {
	t.Parallel()
	service := newTestService(t)

	for _, token := range []string{"", "not-a-token", "one.two", "a.b.c.d"} {
		if _, err := service.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestService_Sign_WithoutPrivateKey_ReturnsErrInvalidKey(t *testing.T) {
	t.Parallel()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	service := &Service{publicKey: &privateKey.PublicKey, issuer: "test-issuer"}

	if _, err := service.Sign(Claims{UserID: "user-123"}); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

// ============================================================================
// Key File Tests
// ============================================================================

func TestGenerateKeyPair_AndLoad_RoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	privatePath := filepath.Join(dir, "private.pem")
	publicPath := filepath.Join(dir, "public.pem")

	if err := GenerateKeyPair(privatePath, publicPath); err != nil {
		t.Fatalf("failed to generate key pair: %v", err)
	}

	signer, err := NewService(Config{
		PrivateKeyPath: privatePath,
		Issuer:         "test-issuer",
		ExpirationMins: 15,
	})
	if err != nil {
		t.Fatalf("failed to create signing service: %v", err)
	}

	verifier, err := NewService(Config{
		PublicKeyPath:  publicPath,
		Issuer:         "test-issuer",
		ExpirationMins: 15,
	})
	if err != nil {
		t.Fatalf("failed to create verifying service: %v", err)
	}

	token, err := signer.Sign(Claims{UserID: "user-123"})
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	claims, err := verifier.Validate(token)
	if err != nil {
		t.Fatalf("failed to validate token: %v", err)
	}
	if claims.UserID != "user-123" {
		t.Errorf("expected user ID user-123, got %q", claims.UserID)
	}
}

func TestNewService_MissingKeyFile_ReturnsError(t *testing.T) {
	t.Parallel()
	_, err := NewService(Config{
		PrivateKeyPath: filepath.Join(t.TempDir(), "missing.pem"),
		Issuer:         "test-issuer",
	})
	if err == nil {
		t.Error("expected error for missing key file, got nil")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped os.ErrNotExist, got %v", err)
	}
}
