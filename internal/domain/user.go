package domain

import (
	"context"
	"errors"
)

// Role represents a user's access level
type Role string

const (
	// RoleAdmin may seed charts and manage accounts
	RoleAdmin Role = "admin"

	// RoleOperator may post, import, reconcile and close periods
	RoleOperator Role = "operator"

	// RoleViewer can only read
	RoleViewer Role = "viewer"
)

var roleRank = map[Role]int{
	RoleViewer:   1,
	RoleOperator: 2,
	RoleAdmin:    3,
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	return roleRank[r] > 0
}

// Allows reports whether r is at least as privileged as min.
func (r Role) Allows(min Role) bool {
	return r.IsValid() && roleRank[r] >= roleRank[min]
}

// CanWrite checks if the role can create or change ledger data
func (r Role) CanWrite() bool {
	return r.Allows(RoleOperator)
}

// CanManageAccounts checks if the role can change the chart of accounts
func (r Role) CanManageAccounts() bool {
	return r == RoleAdmin
}

// Principal is the authenticated caller, scoped to one company.
type Principal struct {
	UserID    string
	CompanyID string
	Role      Role
}

// SystemUserID is recorded when no principal is attached to a request.
const SystemUserID = "system"

type principalKey struct{}

// ContextWithPrincipal attaches p to ctx.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal attached to ctx, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// ActorFromContext returns the acting user ID, or SystemUserID.
func ActorFromContext(ctx context.Context) string {
	if p, ok := PrincipalFromContext(ctx); ok && p.UserID != "" {
		return p.UserID
	}
	return SystemUserID
}

// Authentication errors
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInsufficientRole = errors.New("insufficient role for this operation")
	ErrMissingCompany   = errors.New("company scope is required")
)
