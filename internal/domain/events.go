package domain

import "time"

// Event types
const (
	EventTypeTransactionPosted    = "transaction.posted"
	EventTypeTransactionReversed  = "transaction.reversed"
	EventTypeStatementImported    = "statement.imported"
	EventTypeStatementMatched     = "statement.matched"
	EventTypeStatementUnmatched   = "statement.unmatched"
	EventTypeStatementCategorized = "statement.categorized"
	EventTypeAccountCreated       = "account.created"
	EventTypeChartInitialized     = "chart.initialized"
	EventTypeMonthClosed          = "monthly_reconciliation.closed"
)

// Aggregate types
const (
	AggregateTypeTransaction    = "transaction"
	AggregateTypeStatementEntry = "bank_statement_entry"
	AggregateTypeImportBatch    = "statement_import_batch"
	AggregateTypeAccount        = "account"
	AggregateTypeCompany        = "company"
	AggregateTypeMonthly        = "monthly_reconciliation"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	CompanyID     string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// NewOutboxEvent builds an unpublished event.
func NewOutboxEvent(id, companyID, aggregateType, aggregateID, eventType string, payload map[string]any, at time.Time) *OutboxEvent {
	return &OutboxEvent{
		ID:            id,
		CompanyID:     companyID,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     at,
	}
}
