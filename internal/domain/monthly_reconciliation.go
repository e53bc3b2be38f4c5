package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyStatus is the state of a monthly bank reconciliation.
type MonthlyStatus string

const (
	MonthlyStatusDraft      MonthlyStatus = "draft"
	MonthlyStatusReconciled MonthlyStatus = "reconciled"
	MonthlyStatusClosed     MonthlyStatus = "closed"
)

// Adjustments are the categorized explanations of a bank vs. book difference.
type Adjustments struct {
	OutstandingCheques decimal.Decimal
	DepositsInTransit  decimal.Decimal
	UnbookedCharges    decimal.Decimal
	UnbookedInterest   decimal.Decimal
	Other              decimal.Decimal
}

// Total sums all buckets.
func (a Adjustments) Total() decimal.Decimal {
	return RoundCents(a.OutstandingCheques.
		Add(a.DepositsInTransit).
		Add(a.UnbookedCharges).
		Add(a.UnbookedInterest).
		Add(a.Other))
}

// MonthlyBankReconciliation compares one bank account's book and bank view for a month.
type MonthlyBankReconciliation struct {
	ID            string
	CompanyID     string
	BankAccountID string
	Year          int
	Month         int
	BankOpening   decimal.Decimal
	BankClosing   decimal.Decimal
	BookOpening   decimal.Decimal
	BookClosing   decimal.Decimal
	BookDebits    decimal.Decimal
	BookCredits   decimal.Decimal
	Adjustments   Adjustments
	Notes         string
	Status        MonthlyStatus
	ClosedBy      *string
	ClosedAt      *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PeriodBounds returns the first and last day of a month, and the last day of the prior month.
func PeriodBounds(year, month int) (start, end, priorEnd time.Time) {
	start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, -1)
	priorEnd = start.AddDate(0, 0, -1)
	return start, end, priorEnd
}

// BookNetMovement is the money that moved through the bank's ledger account in the month.
func (r *MonthlyBankReconciliation) BookNetMovement() decimal.Decimal {
	return RoundCents(r.BookDebits.Sub(r.BookCredits))
}

// ExpectedBankClosing is bank opening plus book movement.
func (r *MonthlyBankReconciliation) ExpectedBankClosing() decimal.Decimal {
	return RoundCents(r.BankOpening.Add(r.BookNetMovement()))
}

// Difference is what the bank reports minus what the books expect.
func (r *MonthlyBankReconciliation) Difference() decimal.Decimal {
	return RoundCents(r.BankClosing.Sub(r.ExpectedBankClosing()))
}

// UnexplainedDifference is the difference left after the adjustment buckets.
func (r *MonthlyBankReconciliation) UnexplainedDifference() decimal.Decimal {
	return RoundCents(r.Difference().Sub(r.Adjustments.Total()))
}

// IsClosed reports whether the period is locked.
func (r *MonthlyBankReconciliation) IsClosed() bool {
	return r.Status == MonthlyStatusClosed
}

// SetStatus moves between draft and reconciled. Closing uses Close.
func (r *MonthlyBankReconciliation) SetStatus(status MonthlyStatus) error {
	if r.IsClosed() {
		return ErrReconciliationClosed
	}
	switch status {
	case MonthlyStatusDraft, MonthlyStatusReconciled:
		r.Status = status
		return nil
	case MonthlyStatusClosed:
		return NewValidationError("status", "use close to lock a period")
	}
	return NewValidationError("status", "unknown status "+string(status))
}

// Close locks the period.
func (r *MonthlyBankReconciliation) Close(by string, at time.Time) error {
	if r.IsClosed() {
		return ErrReconciliationClosed
	}
	r.Status = MonthlyStatusClosed
	r.ClosedBy = &by
	r.ClosedAt = &at
	r.UpdatedAt = at
	return nil
}
