package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/infrastructure/auth"
)

func TestJWTManagerGenerateAndVerify(t *testing.T) {
	t.Parallel()

	manager := auth.NewJWTManager("super-secret", time.Minute)

	p := &domain.Principal{UserID: "user-123", CompanyID: "acme", Role: domain.RoleOperator}

	token, err := manager.Generate(p)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	claims, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("expected token to verify, got %v", err)
	}

	if *claims.Principal() != *p {
		t.Fatalf("expected claims to match principal, got %+v", claims)
	}
}

func TestJWTManagerGenerateRejectsUnscoped(t *testing.T) {
	t.Parallel()

	manager := auth.NewJWTManager("secret", time.Minute)

	if _, err := manager.Generate(&domain.Principal{UserID: "u", Role: domain.RoleAdmin}); !errors.Is(err, domain.ErrMissingCompany) {
		t.Fatalf("expected ErrMissingCompany, got %v", err)
	}
	if _, err := manager.Generate(&domain.Principal{UserID: "u", CompanyID: "acme", Role: "root"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for unknown role, got %v", err)
	}
}

func sign(t *testing.T, secret string, claims auth.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestJWTManagerVerifyErrors(t *testing.T) {
	t.Parallel()

	manager := auth.NewJWTManager("secret", time.Minute)

	expiredToken := sign(t, "secret", auth.Claims{
		UserID:    "expired",
		CompanyID: "acme",
		Role:      domain.RoleViewer,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    auth.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Minute)),
			NotBefore: jwt.NewNumericDate(time.Now().Add(-2 * time.Minute)),
		},
	})

	if _, err := manager.Verify(expiredToken); err != domain.ErrExpiredToken {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}

	otherManager := auth.NewJWTManager("other-secret", time.Minute)
	if _, err := otherManager.Verify(expiredToken); err == nil || err == domain.ErrExpiredToken {
		t.Fatalf("expected invalid token error, got %v", err)
	}

	if _, err := manager.Verify("not-a-token"); err == nil {
		t.Fatalf("expected failure for malformed token")
	}

	noCompany := sign(t, "secret", auth.Claims{
		UserID: "u",
		Role:   domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    auth.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	if _, err := manager.Verify(noCompany); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for token without company, got %v", err)
	}
}

func TestJWTManagerRequiresIssuerAndExpiry(t *testing.T) {
	t.Parallel()

	manager := auth.NewJWTManager("secret", time.Minute)

	foreign := sign(t, "secret", auth.Claims{
		UserID:    "u",
		CompanyID: "acme",
		Role:      domain.RoleViewer,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "payroll",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	if _, err := manager.Verify(foreign); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for a foreign issuer, got %v", err)
	}

	forever := sign(t, "secret", auth.Claims{
		UserID:           "u",
		CompanyID:        "acme",
		Role:             domain.RoleViewer,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: auth.Issuer},
	})
	if _, err := manager.Verify(forever); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for a token without expiry, got %v", err)
	}
}

func TestJWTManagerSecretRotation(t *testing.T) {
	t.Parallel()

	p := &domain.Principal{UserID: "u1", CompanyID: "acme", Role: domain.RoleAdmin}
	old := auth.NewJWTManager("2023-secret", time.Hour)
	oldToken, err := old.Generate(p)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	rotated := auth.NewJWTManager("2024-secret", time.Hour, auth.WithPreviousSecret("2023-secret"))
	if _, err := rotated.Verify(oldToken); err != nil {
		t.Fatalf("expected token signed with the previous secret to verify, got %v", err)
	}

	newToken, err := rotated.Generate(p)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	if _, err := old.Verify(newToken); err != domain.ErrInvalidToken {
		t.Fatalf("expected the retired manager to reject the new secret, got %v", err)
	}

	retired := auth.NewJWTManager("2024-secret", time.Hour)
	if _, err := retired.Verify(oldToken); err != domain.ErrInvalidToken {
		t.Fatalf("expected tokens of a dropped secret to be rejected, got %v", err)
	}
}

func TestJWTManagerClock(t *testing.T) {
	t.Parallel()

	issued := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	now := issued
	manager := auth.NewJWTManager("secret", time.Hour, auth.WithClock(func() time.Time { return now }))

	token, err := manager.Generate(&domain.Principal{UserID: "u", CompanyID: "acme", Role: domain.RoleViewer})
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	now = issued.Add(59 * time.Minute)
	if _, err := manager.Verify(token); err != nil {
		t.Fatalf("expected token valid within its hour, got %v", err)
	}
	now = issued.Add(61 * time.Minute)
	if _, err := manager.Verify(token); err != domain.ErrExpiredToken {
		t.Fatalf("expected ErrExpiredToken after an hour, got %v", err)
	}
}
