package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StatementStatus is the reconciliation state of a bank statement line.
type StatementStatus string

const (
	StatementStatusPending            StatementStatus = "pending"
	StatementStatusMatched            StatementStatus = "matched"
	StatementStatusUnmatchedConfirmed StatementStatus = "unmatched_confirmed"
	StatementStatusDisputed           StatementStatus = "disputed"
)

// IsValid reports whether s is a known status.
func (s StatementStatus) IsValid() bool {
	switch s {
	case StatementStatusPending, StatementStatusMatched, StatementStatusUnmatchedConfirmed, StatementStatusDisputed:
		return true
	}
	return false
}

// statementTransitions lists the legal status changes of a statement line.
var statementTransitions = map[StatementStatus][]StatementStatus{
	StatementStatusPending:            {StatementStatusMatched, StatementStatusUnmatchedConfirmed, StatementStatusDisputed},
	StatementStatusMatched:            {StatementStatusPending},
	StatementStatusUnmatchedConfirmed: {StatementStatusPending},
	StatementStatusDisputed:           {StatementStatusPending},
}

// CanTransition reports whether a statement line may move from one status to another.
func (s StatementStatus) CanTransition(to StatementStatus) bool {
	for _, allowed := range statementTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// BankStatementEntry is a line reported by the bank. It is not a ledger fact.
type BankStatementEntry struct {
	ID                   string
	CompanyID            string
	BankAccountID        string
	ImportBatchID        *string
	ValueDate            time.Time
	PostingDate          *time.Time
	Amount               decimal.Decimal
	Reference            string
	Description          string
	RunningBalance       *decimal.Decimal
	Status               StatementStatus
	MatchedEntryID       *string
	CreatedTransactionID *string
	MatchedAt            *time.Time
	CreatedAt            time.Time
}

// DedupeKey identifies a statement line for duplicate-import detection.
type DedupeKey struct {
	BankAccountID string
	ValueDate     string
	Amount        string
	Reference     string
}

// DedupeKey returns the (bank account, value date, amount, reference) tuple.
func (e *BankStatementEntry) DedupeKey() DedupeKey {
	return DedupeKey{
		BankAccountID: e.BankAccountID,
		ValueDate:     e.ValueDate.Format(time.DateOnly),
		Amount:        RoundCents(e.Amount).StringFixed(CentsPlaces),
		Reference:     strings.TrimSpace(e.Reference),
	}
}

// Validate checks a statement line before it is stored.
func (e *BankStatementEntry) Validate() error {
	if e.CompanyID == "" {
		return NewValidationError("company_id", "company is required")
	}
	if e.BankAccountID == "" {
		return NewValidationError("bank_account_id", "bank account is required")
	}
	if e.ValueDate.IsZero() {
		return NewValidationError("date", "value date is required")
	}
	if e.Amount.IsZero() {
		return NewValidationError("amount", "amount must not be zero")
	}
	if !HasAtMostCents(e.Amount) {
		return ErrTooManyDecimals
	}
	return nil
}

// IsCredit reports whether the bank recorded money in.
func (e *BankStatementEntry) IsCredit() bool {
	return e.Amount.IsPositive()
}

// StatementFilter narrows statement listings.
type StatementFilter struct {
	BankAccountID string
	Status        StatementStatus
	From          *time.Time
	To            *time.Time
}

// RowError is a statement row that could not be imported.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// StatementImportBatch records one statement import.
type StatementImportBatch struct {
	ID            string
	CompanyID     string
	BankAccountID string
	Source        string
	Format        string
	RowsTotal     int
	RowsImported  int
	RowsDuplicate int
	RowErrors     []RowError
	CreatedAt     time.Time
}
