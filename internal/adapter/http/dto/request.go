package dto

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/usecase"
)

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	Code          string  `json:"code"            validate:"required,max=20"`
	Name          string  `json:"name"            validate:"required,max=255"`
	Type          string  `json:"type"            validate:"required,oneof=asset liability equity revenue expense"`
	ParentID      *string `json:"parent_id,omitempty"`
	BankAccountID *string `json:"bank_account_id,omitempty" validate:"omitempty,max=100"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput(companyID string) usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		CompanyID:     companyID,
		Code:          r.Code,
		Name:          r.Name,
		Type:          domain.AccountType(r.Type),
		ParentID:      r.ParentID,
		BankAccountID: r.BankAccountID,
	}
}

// LinkBankAccountRequest links a ledger account to an external bank account ID.
type LinkBankAccountRequest struct {
	BankAccountID string `json:"bank_account_id" validate:"required,max=100"`
}

// BalancesRequest asks for several balances at once.
type BalancesRequest struct {
	AccountIDs []string `json:"account_ids" validate:"required,min=1,max=500,dive,required"`
	AsOf       *Date    `json:"as_of,omitempty"`
}

// EntryRequest is one leg of a journal transaction.
type EntryRequest struct {
	AccountID   string          `json:"account_id" validate:"required"`
	Description string          `json:"description,omitempty" validate:"max=500"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// CreateTransactionRequest represents a manual journal entry.
type CreateTransactionRequest struct {
	Date          *Date          `json:"date"        validate:"required"`
	Description   string         `json:"description" validate:"required,max=500"`
	ReferenceType string         `json:"reference_type,omitempty"`
	ReferenceID   *string        `json:"reference_id,omitempty"`
	Entries       []EntryRequest `json:"entries"     validate:"required,min=2,dive"`
	AutoPost      bool           `json:"auto_post"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateTransactionRequest) ToUseCaseInput(companyID string) usecase.CreateJournalEntryInput {
	refType := domain.ReferenceType(r.ReferenceType)
	if refType == "" {
		refType = domain.ReferenceManual
	}
	entries := make([]usecase.EntryInput, len(r.Entries))
	for i, e := range r.Entries {
		entries[i] = usecase.EntryInput{
			AccountID:   e.AccountID,
			Description: e.Description,
			Debit:       e.Debit,
			Credit:      e.Credit,
		}
	}
	return usecase.CreateJournalEntryInput{
		CompanyID:   companyID,
		Date:        r.Date.Time,
		Description: r.Description,
		Reference:   domain.Reference{Type: refType, ID: r.ReferenceID},
		Entries:     entries,
		AutoPost:    r.AutoPost,
	}
}

// ReverseTransactionRequest reverses a posted transaction.
type ReverseTransactionRequest struct {
	Date   *Date  `json:"date,omitempty"`
	Reason string `json:"reason" validate:"required,max=500"`
}

// ToUseCaseInput converts to use case input.
func (r *ReverseTransactionRequest) ToUseCaseInput(companyID, transactionID string) usecase.ReverseTransactionInput {
	return usecase.ReverseTransactionInput{
		CompanyID:     companyID,
		TransactionID: transactionID,
		Date:          r.Date.Ptr(),
		Reason:        r.Reason,
	}
}

// AutoMatchRequest optionally overrides the matcher tolerance.
type AutoMatchRequest struct {
	DateToleranceDays *int             `json:"date_tolerance_days,omitempty" validate:"omitempty,min=0,max=31"`
	AmountTolerance   *decimal.Decimal `json:"amount_tolerance,omitempty"`
}

// ToUseCaseInput converts to use case input, filling unset fields from def.
func (r *AutoMatchRequest) ToUseCaseInput(companyID, bankAccountID string, def domain.MatchTolerance) usecase.AutoMatchInput {
	in := usecase.AutoMatchInput{CompanyID: companyID, BankAccountID: bankAccountID}
	if r.DateToleranceDays == nil && r.AmountTolerance == nil {
		return in
	}
	tol := def
	if r.DateToleranceDays != nil {
		tol.DateDays = *r.DateToleranceDays
	}
	if r.AmountTolerance != nil {
		tol.Amount = *r.AmountTolerance
	}
	in.Tolerance = &tol
	return in
}

// ManualMatchRequest pairs a statement line with a ledger entry.
type ManualMatchRequest struct {
	TransactionEntryID string `json:"transaction_entry_id" validate:"required"`
}

// CategorizeRequest books a statement line against an offset account.
type CategorizeRequest struct {
	AccountID   string `json:"account_id,omitempty"   validate:"required_without=AccountCode"`
	AccountCode string `json:"account_code,omitempty" validate:"required_without=AccountID"`
	Description string `json:"description,omitempty"  validate:"max=500"`
}

// ToUseCaseInput converts to use case input.
func (r *CategorizeRequest) ToUseCaseInput(companyID, statementEntryID string) usecase.CategorizeInput {
	return usecase.CategorizeInput{
		CompanyID:        companyID,
		StatementEntryID: statementEntryID,
		AccountID:        strings.TrimSpace(r.AccountID),
		AccountCode:      strings.TrimSpace(r.AccountCode),
		Description:      r.Description,
	}
}

// AdjustmentsRequest carries the reconciling items of a month.
type AdjustmentsRequest struct {
	OutstandingCheques decimal.Decimal `json:"outstanding_cheques"`
	DepositsInTransit  decimal.Decimal `json:"deposits_in_transit"`
	UnbookedCharges    decimal.Decimal `json:"unbooked_charges"`
	UnbookedInterest   decimal.Decimal `json:"unbooked_interest"`
	Other              decimal.Decimal `json:"other"`
}

// UpdateMonthlyRequest updates the bank-side figures of a period. Omitted fields are unchanged.
type UpdateMonthlyRequest struct {
	BankOpening *decimal.Decimal    `json:"bank_opening,omitempty"`
	BankClosing *decimal.Decimal    `json:"bank_closing,omitempty"`
	Adjustments *AdjustmentsRequest `json:"adjustments,omitempty"`
	Notes       *string             `json:"notes,omitempty"  validate:"omitempty,max=2000"`
	Status      *string             `json:"status,omitempty" validate:"omitempty,oneof=draft reconciled"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateMonthlyRequest) ToUseCaseInput(p usecase.Period) usecase.UpdateMonthlyInput {
	in := usecase.UpdateMonthlyInput{
		Period:      p,
		BankOpening: r.BankOpening,
		BankClosing: r.BankClosing,
		Notes:       r.Notes,
	}
	if a := r.Adjustments; a != nil {
		in.Adjustments = &domain.Adjustments{
			OutstandingCheques: a.OutstandingCheques,
			DepositsInTransit:  a.DepositsInTransit,
			UnbookedCharges:    a.UnbookedCharges,
			UnbookedInterest:   a.UnbookedInterest,
			Other:              a.Other,
		}
	}
	if r.Status != nil {
		s := domain.MonthlyStatus(*r.Status)
		in.Status = &s
	}
	return in
}

// CloseMonthlyRequest closes a period. ClosedBy defaults to the caller.
type CloseMonthlyRequest struct {
	ClosedBy string `json:"closed_by,omitempty" validate:"max=255"`
}
