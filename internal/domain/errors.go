package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by the ledger unwraps to exactly one of these.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrConfiguration = errors.New("configuration error")
)

// ValidationError reports a malformed request. Nothing has been written when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Is matches a sentinel with the same reason regardless of field, so a
// field-qualified copy of ErrNegativeAmount still satisfies errors.Is.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Reason == e.Reason
}

// ForField returns a copy of e naming field.
func (e *ValidationError) ForField(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: e.Reason}
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports a missing resource or one owned by another company.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Is lets a NotFoundError with an ID match the ID-less sentinel of the same resource.
func (e *NotFoundError) Is(target error) bool {
	t, ok := target.(*NotFoundError)
	if !ok {
		return false
	}
	return t.Resource == e.Resource && (t.ID == "" || t.ID == e.ID)
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConflictError reports an attempted mutation of an immutable fact.
type ConflictError struct {
	Resource string
	Reason   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s: %s", e.Resource, e.Reason)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NewConflictError creates a ConflictError.
func NewConflictError(resource, reason string) *ConflictError {
	return &ConflictError{Resource: resource, Reason: reason}
}

// ConfigurationError reports that the chart of accounts lacks codes a posting needs.
type ConfigurationError struct {
	MissingCodes []string
	Reason       string
}

func (e *ConfigurationError) Error() string {
	if len(e.MissingCodes) > 0 {
		return fmt.Sprintf("configuration error: missing account codes %s", strings.Join(e.MissingCodes, ", "))
	}
	return "configuration error: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// Is matches any ConfigurationError against the ErrChartNotInitialized sentinel.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrChartNotInitialized
}

var (
	// Accounts
	ErrAccountNotFound      = NewNotFoundError("account", "")
	ErrDuplicateAccountCode = NewValidationError("code", "account code already exists for this company")
	ErrAccountInactive      = NewValidationError("account_id", "account is inactive")
	ErrSystemAccount        = NewConflictError("account", "system accounts cannot be deactivated")
	ErrAccountHasBalance    = NewConflictError("account", "account with a non-zero balance cannot be deactivated")
	ErrChartNotInitialized  = &ConfigurationError{Reason: "chart of accounts is not initialized"}

	// Journal
	ErrTransactionNotFound  = NewNotFoundError("transaction", "")
	ErrTooFewEntries        = NewValidationError("entries", "at least two entries are required")
	ErrUnbalancedEntries    = NewValidationError("entries", "total debits must equal total credits")
	ErrZeroTotal            = NewValidationError("entries", "transaction total must not be zero")
	ErrNegativeAmount       = NewValidationError("amount", "must not be negative")
	ErrAmbiguousEntry       = NewValidationError("amount", "exactly one of debit or credit must be non-zero")
	ErrTooManyDecimals      = NewValidationError("amount", "limited to two decimal places")
	ErrNotDraft             = NewConflictError("transaction", "only draft transactions can be posted")
	ErrReverseNotPosted     = NewValidationError("status", "only posted transactions can be reversed")
	ErrAlreadyReversed      = NewConflictError("transaction", "transaction is already reversed")
	ErrOpeningBalanceExists = NewConflictError("opening balance", "account already has an opening balance; reverse it first")

	// Bank statements and matching
	ErrStatementEntryNotFound = NewNotFoundError("bank statement entry", "")
	ErrStatementNotPending    = NewConflictError("bank statement entry", "entry is not pending")
	ErrStatementNotMatched    = NewConflictError("bank statement entry", "entry is not matched")
	ErrEntryAlreadyReconciled = NewConflictError("transaction entry", "entry is already reconciled")
	ErrEntryNotOnBankAccount  = NewValidationError("transaction_entry_id", "entry is not posted to the bank's ledger account")
	ErrEntryNotMatchable      = NewValidationError("transaction_entry_id", "only entries of posted, non-reversal transactions can be matched")
	ErrBankAccountNotLinked   = NewNotFoundError("bank account link", "")
	ErrUnsupportedFormat      = NewValidationError("format", "unsupported statement format")

	// Monthly close
	ErrReconciliationClosed = NewConflictError("monthly reconciliation", "period is closed")
	ErrInvalidPeriod        = NewValidationError("period", "month must be 1-12 and year 1900-9999")
)

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool { return errors.Is(err, ErrConfiguration) }
