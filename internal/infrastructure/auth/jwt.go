package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iho/bookkeeper/internal/domain"
)

// Issuer is stamped into every token and required on verification.
const Issuer = "bookkeeper"

// Claims carries the tenant scope of a caller.
type Claims struct {
	UserID    string      `json:"user_id"`
	CompanyID string      `json:"company_id"`
	Role      domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Principal converts the claims into the caller identity used by use cases.
func (c *Claims) Principal() *domain.Principal {
	return &domain.Principal{UserID: c.UserID, CompanyID: c.CompanyID, Role: c.Role}
}

// Option configures a JWTManager.
type Option func(*JWTManager)

// WithPreviousSecret keeps accepting tokens signed with a retired secret
// while they age out. New tokens are always signed with the current one.
func WithPreviousSecret(secret string) Option {
	return func(m *JWTManager) {
		if secret != "" {
			m.keys[keyID(secret)] = []byte(secret)
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *JWTManager) { m.now = now }
}

// JWTManager issues and verifies HS256 tokens scoped to one company. Tokens
// carry a kid derived from the signing secret so a secret can be rotated
// without logging every caller out.
type JWTManager struct {
	kid           string
	keys          map[string][]byte
	tokenDuration time.Duration
	now           func() time.Time
}

// NewJWTManager creates a new JWT manager signing with secretKey.
func NewJWTManager(secretKey string, tokenDuration time.Duration, opts ...Option) *JWTManager {
	kid := keyID(secretKey)
	m := &JWTManager{
		kid:           kid,
		keys:          map[string][]byte{kid: []byte(secretKey)},
		tokenDuration: tokenDuration,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Generate issues a token scoping p to its company.
func (m *JWTManager) Generate(p *domain.Principal) (string, error) {
	if p == nil || p.CompanyID == "" {
		return "", domain.ErrMissingCompany
	}
	if !p.Role.IsValid() {
		return "", domain.NewValidationError("role", fmt.Sprintf("unknown role %q", p.Role))
	}

	now := m.now()
	claims := Claims{
		UserID:    p.UserID,
		CompanyID: p.CompanyID,
		Role:      p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   p.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = m.kid
	return token.SignedString(m.keys[m.kid])
}

// Verify checks signature, issuer and lifetime, and returns the claims.
// Expired tokens map to domain.ErrExpiredToken, everything else to
// domain.ErrInvalidToken.
func (m *JWTManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		m.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrExpiredToken
		}
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}

	// Tokens without a company cannot reach tenant data.
	if claims.CompanyID == "" || !claims.Role.IsValid() {
		return nil, domain.ErrInvalidToken
	}

	return claims, nil
}

// key picks the secret named by the token's kid. Tokens without a kid are
// checked against the current secret.
func (m *JWTManager) key(token *jwt.Token) (any, error) {
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return m.keys[m.kid], nil
	}
	key, ok := m.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return key, nil
}

func keyID(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:4])
}
