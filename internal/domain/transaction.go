package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle state of a journal transaction.
type TransactionStatus string

const (
	TransactionStatusDraft    TransactionStatus = "draft"
	TransactionStatusPosted   TransactionStatus = "posted"
	TransactionStatusReversed TransactionStatus = "reversed"
)

// ReferenceType tags the business document a transaction originates from.
type ReferenceType string

const (
	ReferenceInvoice        ReferenceType = "invoice"
	ReferencePayment        ReferenceType = "payment"
	ReferencePayroll        ReferenceType = "payroll"
	ReferenceBankImport     ReferenceType = "bank-import"
	ReferenceCheque         ReferenceType = "cheque"
	ReferenceOpeningBalance ReferenceType = "opening-balance"
	ReferenceManual         ReferenceType = "manual"
	ReferenceTransfer       ReferenceType = "transfer"
)

// IsValid reports whether r is a known reference type.
func (r ReferenceType) IsValid() bool {
	switch r {
	case ReferenceInvoice, ReferencePayment, ReferencePayroll, ReferenceBankImport, ReferenceCheque,
		ReferenceOpeningBalance, ReferenceManual, ReferenceTransfer:
		return true
	}
	return false
}

// Reference points at the originating business document.
type Reference struct {
	Type ReferenceType
	ID   *string
}

// Transaction is one journal entry.
type Transaction struct {
	ID           string
	CompanyID    string
	Number       int64
	Date         time.Time
	Description  string
	Reference    Reference
	Status       TransactionStatus
	IsReconciled bool
	ReversesID   *string
	ReversedByID *string
	Entries      []*TransactionEntry
	CreatedAt    time.Time
	PostedAt     *time.Time
}

// TransactionEntry is one debit or credit leg of a transaction.
type TransactionEntry struct {
	ID            string
	TransactionID string
	AccountID     string
	Description   string
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	IsReconciled  bool
	ReconciledAt  *time.Time
	BankDate      *time.Time
	BankReference string
	CreatedAt     time.Time
}

// Side returns which side of the entry carries the amount.
func (e *TransactionEntry) Side() Side {
	if e.Debit.IsPositive() {
		return SideDebit
	}
	return SideCredit
}

// Amount returns the non-zero side's amount.
func (e *TransactionEntry) Amount() decimal.Decimal {
	if e.Debit.IsPositive() {
		return e.Debit
	}
	return e.Credit
}

// BankAmount is the entry seen from a bank account: positive means money in.
func (e *TransactionEntry) BankAmount() decimal.Decimal {
	return e.Debit.Sub(e.Credit)
}

// Validate checks that the entry has exactly one non-zero side within cent precision.
func (e *TransactionEntry) Validate() error {
	if e.AccountID == "" {
		return NewValidationError("account_id", "account is required")
	}
	if err := ValidateAmount("debit", e.Debit); err != nil {
		return err
	}
	if err := ValidateAmount("credit", e.Credit); err != nil {
		return err
	}
	if e.Debit.IsZero() == e.Credit.IsZero() {
		return ErrAmbiguousEntry
	}
	return nil
}

// Totals returns the summed debits and credits of the entries.
func Totals(entries []*TransactionEntry) (debits, credits decimal.Decimal) {
	debits, credits = decimal.Zero, decimal.Zero
	for _, e := range entries {
		debits = debits.Add(e.Debit)
		credits = credits.Add(e.Credit)
	}
	return debits, credits
}

// ValidateBalanced enforces the double-entry rules on a set of legs.
func ValidateBalanced(entries []*TransactionEntry) error {
	if len(entries) < 2 {
		return ErrTooFewEntries
	}
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	debits, credits := Totals(entries)
	if !debits.Equal(credits) {
		return ErrUnbalancedEntries
	}
	if debits.IsZero() {
		return ErrZeroTotal
	}
	return nil
}

// Validate checks the transaction header and its legs.
func (t *Transaction) Validate() error {
	if t.CompanyID == "" {
		return NewValidationError("company_id", "company is required")
	}
	if t.Date.IsZero() {
		return NewValidationError("date", "date is required")
	}
	if !t.Reference.Type.IsValid() {
		return NewValidationError("reference_type", "unknown reference type "+string(t.Reference.Type))
	}
	return ValidateBalanced(t.Entries)
}

// Total returns the sum of the debit legs.
func (t *Transaction) Total() decimal.Decimal {
	debits, _ := Totals(t.Entries)
	return debits
}

// AccountIDs returns the distinct accounts touched, in entry order.
func (t *Transaction) AccountIDs() []string {
	seen := make(map[string]bool, len(t.Entries))
	ids := make([]string, 0, len(t.Entries))
	for _, e := range t.Entries {
		if !seen[e.AccountID] {
			seen[e.AccountID] = true
			ids = append(ids, e.AccountID)
		}
	}
	return ids
}

// CanPost reports whether the transaction may move to posted.
func (t *Transaction) CanPost() error {
	if t.Status != TransactionStatusDraft {
		return ErrNotDraft
	}
	return ValidateBalanced(t.Entries)
}

// CanReverse reports whether a reversal may be generated for the transaction.
func (t *Transaction) CanReverse() error {
	if t.ReversedByID != nil || t.Status == TransactionStatusReversed {
		return ErrAlreadyReversed
	}
	if t.Status != TransactionStatusPosted {
		return ErrReverseNotPosted
	}
	return nil
}

// CanMatch reports whether the transaction's entries may be paired with bank
// statement lines. Reversals and reversed originals net to nothing on the bank
// account, so neither side is offered to the matcher. ListUnreconciledEntries
// applies the same rule in SQL.
func (t *Transaction) CanMatch() error {
	if t.Status != TransactionStatusPosted || t.ReversesID != nil {
		return ErrEntryNotMatchable
	}
	return nil
}

// OpeningBalanceFor returns the account code whose opening balance t holds.
// Reversals and reversed originals hold none, so a reversed opening can be
// booked again.
func (t *Transaction) OpeningBalanceFor() (string, bool) {
	if t.Reference.Type != ReferenceOpeningBalance || t.Reference.ID == nil ||
		t.ReversesID != nil || t.Status == TransactionStatusReversed {
		return "", false
	}
	return *t.Reference.ID, true
}

// MirrorEntries returns new legs with debits and credits swapped.
func (t *Transaction) MirrorEntries(newID func() string, transactionID string, now time.Time) []*TransactionEntry {
	mirrored := make([]*TransactionEntry, 0, len(t.Entries))
	for _, e := range t.Entries {
		mirrored = append(mirrored, &TransactionEntry{
			ID:            newID(),
			TransactionID: transactionID,
			AccountID:     e.AccountID,
			Description:   e.Description,
			Debit:         e.Credit,
			Credit:        e.Debit,
			CreatedAt:     now,
		})
	}
	return mirrored
}

// TransactionFilter narrows transaction listings.
type TransactionFilter struct {
	Status        TransactionStatus
	ReferenceType ReferenceType
	From          *time.Time
	To            *time.Time
}
