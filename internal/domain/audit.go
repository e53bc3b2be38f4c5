package domain

import (
	"context"
	"encoding/json"
	"time"
)

// AuditLog represents an audit trail entry for compliance and debugging
type AuditLog struct {
	ID           string
	CompanyID    string
	UserID       string // Who performed the action
	Action       string
	ResourceType string
	ResourceID   string
	IPAddress    string
	UserAgent    string
	RequestID    string
	BeforeState  JSON
	AfterState   JSON
	Status       string // success, failure, error
	ErrorMessage string
	CreatedAt    time.Time
}

// JSON is a type alias for JSON data
type JSON map[string]any

// AuditAction represents different types of auditable actions
type AuditAction string

const (
	AuditActionChartInitialize AuditAction = "chart.initialize"
	AuditActionAccountCreate   AuditAction = "account.create"
	AuditActionAccountDisable  AuditAction = "account.deactivate"
	AuditActionAccountLinkBank AuditAction = "account.link_bank"

	AuditActionTransactionCreate  AuditAction = "transaction.create"
	AuditActionTransactionPost    AuditAction = "transaction.post"
	AuditActionTransactionReverse AuditAction = "transaction.reverse"

	AuditActionStatementImport     AuditAction = "statement.import"
	AuditActionStatementMatch      AuditAction = "statement.match"
	AuditActionStatementUnmatch    AuditAction = "statement.unmatch"
	AuditActionStatementCategorize AuditAction = "statement.categorize"
	AuditActionStatementConfirm    AuditAction = "statement.confirm_unmatched"
	AuditActionStatementDispute    AuditAction = "statement.dispute"
	AuditActionStatementReopen     AuditAction = "statement.reopen"

	AuditActionMonthlyUpdate AuditAction = "monthly.update"
	AuditActionMonthlyClose  AuditAction = "monthly.close"
)

// AuditStatus represents the status of an audited action
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
	AuditStatusError   AuditStatus = "error"
)

// MarshalState converts a domain object to JSON for audit logging
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}

// AuditFilter defines filters for querying audit logs
type AuditFilter struct {
	CompanyID    string
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	StartDate    *time.Time
	EndDate      *time.Time
	Limit        int
	Offset       int
}

// RequestMeta describes the inbound request behind an action.
type RequestMeta struct {
	IPAddress string
	UserAgent string
	RequestID string
}

type requestMetaKey struct{}

// ContextWithRequestMeta attaches m to ctx.
func ContextWithRequestMeta(ctx context.Context, m RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, m)
}

// RequestMetaFromContext returns the request metadata attached to ctx, or the zero value.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	m, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return m
}
