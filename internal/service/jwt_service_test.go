package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"smartchef/internal/domain"
)

func signTestToken(t *testing.T, secret, userID string, issuedAt, expiresAt time.Time) string {
	t.Helper()
	claims := Claims{
		UserID:   userID,
		Provider: domain.ProviderGoogle,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "smartchef",
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign test token: %v", err)
	}
	return signed
}

func TestJWTService_IssueAndVerify(t *testing.T) {
	svc := NewJWTService("secret", 7*24*time.Hour)
	user := domain.User{ID: "google_1", Provider: domain.ProviderGoogle}

	token, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "google_1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestJWTService_ValidWithinSevenDays(t *testing.T) {
	svc := NewJWTService("secret", 7*24*time.Hour)
	now := time.Now().UTC()

	// Emitida hace 6 dias con politica de 7: todavia valida.
	token := signTestToken(t, "secret", "u1", now.Add(-6*24*time.Hour), now.Add(24*time.Hour))
	if _, err := svc.Verify(token); err != nil {
		t.Fatalf("expected valid at T+6d, got %v", err)
	}
}

func TestJWTService_ExpiredAfterSevenDays(t *testing.T) {
	svc := NewJWTService("secret", 7*24*time.Hour)
	now := time.Now().UTC()

	// Emitida hace 8 dias con politica de 7: vencida.
	token := signTestToken(t, "secret", "u1", now.Add(-8*24*time.Hour), now.Add(-24*time.Hour))
	if _, err := svc.Verify(token); !errors.Is(err, ErrJWTExpired) {
		t.Fatalf("expected ErrJWTExpired at T+8d, got %v", err)
	}
}

func TestJWTService_MalformedToken(t *testing.T) {
	svc := NewJWTService("secret", 7*24*time.Hour)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := svc.Verify(token); !errors.Is(err, ErrJWTInvalid) {
			t.Fatalf("expected ErrJWTInvalid for %q, got %v", token, err)
		}
	}
}

func TestJWTService_WrongSignature(t *testing.T) {
	svc := NewJWTService("secret", 7*24*time.Hour)
	now := time.Now().UTC()

	token := signTestToken(t, "other-secret", "u1", now, now.Add(time.Hour))
	if _, err := svc.Verify(token); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid for wrong signature, got %v", err)
	}
}

func TestJWTService_WrongIssuer(t *testing.T) {
	svc := NewJWTService("secret", 7*24*time.Hour)
	now := time.Now().UTC()
	claims := Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "other-issuer",
			Subject:   "u1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.Verify(token); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid for wrong issuer, got %v", err)
	}
}

func TestJWTService_RejectsEmptySecret(t *testing.T) {
	svc := NewJWTService("", 7*24*time.Hour)

	if _, err := svc.Issue(domain.User{ID: "u1"}); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid on empty secret, got %v", err)
	}
}

func TestJWTService_DefaultTTLIsSevenDays(t *testing.T) {
	svc := NewJWTService("secret", 0)

	token, err := svc.Issue(domain.User{ID: "u1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	ttl := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time)
	if ttl != 7*24*time.Hour {
		t.Fatalf("expected 7d ttl, got %v", ttl)
	}
}
