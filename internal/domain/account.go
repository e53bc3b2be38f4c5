package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies an account in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// Side is the debit or credit side of an entry.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// IsValid reports whether t is a known account type.
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// NormalBalance returns the side that increases an account of this type.
func (t AccountType) NormalBalance() Side {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return SideDebit
	default:
		return SideCredit
	}
}

// SignedBalance applies the normal-balance rule to debit and credit totals.
func (t AccountType) SignedBalance(debits, credits decimal.Decimal) decimal.Decimal {
	if t.NormalBalance() == SideDebit {
		return RoundCents(debits.Sub(credits))
	}
	return RoundCents(credits.Sub(debits))
}

// Account is a node in a company's chart of accounts. It carries no balance;
// balances are always derived from posted entries.
type Account struct {
	ID            string
	CompanyID     string
	Code          string
	Name          string
	Type          AccountType
	ParentID      *string
	BankAccountID *string
	IsSystem      bool
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate checks the account's own fields.
func (a *Account) Validate() error {
	if a.CompanyID == "" {
		return NewValidationError("company_id", "company is required")
	}
	if err := ValidateAccountCode(a.Code); err != nil {
		return err
	}
	if err := ValidateAccountName(a.Name); err != nil {
		return err
	}
	if !a.Type.IsValid() {
		return NewValidationError("type", "unknown account type "+string(a.Type))
	}
	return nil
}

// Balance is a derived account balance.
type Balance struct {
	AccountID string
	Debits    decimal.Decimal
	Credits   decimal.Decimal
	Balance   decimal.Decimal
	AsOf      *time.Time
}

// NewBalance builds a Balance from raw sums using the account type's normal-balance rule.
func NewBalance(accountID string, t AccountType, debits, credits decimal.Decimal, asOf *time.Time) Balance {
	return Balance{
		AccountID: accountID,
		Debits:    RoundCents(debits),
		Credits:   RoundCents(credits),
		Balance:   t.SignedBalance(debits, credits),
		AsOf:      asOf,
	}
}

// Movement is the activity on an account between two dates, inclusive.
type Movement struct {
	AccountID string
	From      time.Time
	To        time.Time
	Debits    decimal.Decimal
	Credits   decimal.Decimal
	Net       decimal.Decimal
}

// LedgerLine is an entry with the account's running balance after it.
type LedgerLine struct {
	Entry             *TransactionEntry
	TransactionNumber int64
	Date              time.Time
	Description       string
	Running           decimal.Decimal
}

// AccountLedger is an account statement for a date range.
type AccountLedger struct {
	Account *Account
	From    time.Time
	To      time.Time
	Opening decimal.Decimal
	Lines   []LedgerLine
	Closing decimal.Decimal
}

// AccountFilter narrows account listings.
type AccountFilter struct {
	Type            AccountType
	IncludeInactive bool
}
