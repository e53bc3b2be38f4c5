package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/infrastructure/auth"
)

// Headers that scope a request when token auth is disabled.
const (
	CompanyIDHeader = "X-Company-ID"
	UserIDHeader    = "X-User-ID"
	RoleHeader      = "X-Role"
)

// TokenVerifier verifies bearer tokens.
type TokenVerifier interface {
	Verify(tokenString string) (*auth.Claims, error)
}

// TenantAuth attaches the caller's principal to the request context.
// With a verifier, a bearer token is required and carries the company and role.
// Without one (local development), the company comes from X-Company-ID and the
// role from X-Role, defaulting to admin.
func TenantAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				p   *domain.Principal
				err error
			)
			if verifier != nil {
				p, err = principalFromToken(verifier, r)
			} else {
				p, err = principalFromHeaders(r)
			}
			if err != nil {
				writeAuthError(w, err)
				return
			}

			ctx := domain.ContextWithPrincipal(r.Context(), p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func principalFromToken(verifier TokenVerifier, r *http.Request) (*domain.Principal, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, domain.ErrUnauthorized
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, domain.ErrInvalidToken
	}

	claims, err := verifier.Verify(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, err
	}
	return claims.Principal(), nil
}

func principalFromHeaders(r *http.Request) (*domain.Principal, error) {
	companyID := strings.TrimSpace(r.Header.Get(CompanyIDHeader))
	if companyID == "" {
		return nil, domain.ErrMissingCompany
	}

	role := domain.RoleAdmin
	if v := r.Header.Get(RoleHeader); v != "" {
		role = domain.Role(strings.ToLower(strings.TrimSpace(v)))
		if !role.IsValid() {
			return nil, domain.ErrInvalidToken
		}
	}

	userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if userID == "" {
		userID = domain.SystemUserID
	}
	return &domain.Principal{UserID: userID, CompanyID: companyID, Role: role}, nil
}

// RequireRole rejects callers below minRole.
func RequireRole(minRole domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := domain.PrincipalFromContext(r.Context())
			if !ok {
				writeAuthError(w, domain.ErrUnauthorized)
				return
			}
			if !p.Role.Allows(minRole) {
				writeAuthError(w, domain.ErrInsufficientRole)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, err error) {
	status := http.StatusUnauthorized
	if errors.Is(err, domain.ErrInsufficientRole) {
		status = http.StatusForbidden
	}
	writeJSONError(w, status, err.Error())
}
