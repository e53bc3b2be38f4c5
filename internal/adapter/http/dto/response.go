package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/usecase"
)

// money renders an amount with exactly two decimals.
func money(d decimal.Decimal) string {
	return domain.RoundCents(d).StringFixed(domain.CentsPlaces)
}

func optionalMoney(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := money(*d)
	return &s
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
	// MissingCodes lists chart codes a posting needed but the company lacks.
	MissingCodes []string `json:"missing_codes,omitempty"`
}

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	ParentID      *string   `json:"parent_id,omitempty"`
	BankAccountID *string   `json:"bank_account_id,omitempty"`
	IsSystem      bool      `json:"is_system"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:            a.ID,
		Code:          a.Code,
		Name:          a.Name,
		Type:          string(a.Type),
		ParentID:      a.ParentID,
		BankAccountID: a.BankAccountID,
		IsSystem:      a.IsSystem,
		IsActive:      a.IsActive,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse is a page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Count    int                `json:"count"`
}

// InitializeChartResponse reports a chart seed.
type InitializeChartResponse struct {
	Created []*AccountResponse `json:"created"`
	Skipped int                `json:"skipped"`
}

// InitializeChartFromResult converts the seed result.
func InitializeChartFromResult(r *usecase.InitializeChartResult) *InitializeChartResponse {
	return &InitializeChartResponse{Created: AccountsFromDomain(r.Created), Skipped: r.Skipped}
}

// BalanceResponse is a derived account balance.
type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Debits    string `json:"debits"`
	Credits   string `json:"credits"`
	Balance   string `json:"balance"`
	AsOf      *Date  `json:"as_of,omitempty"`
}

// BalanceFromDomain converts a balance.
func BalanceFromDomain(b domain.Balance) *BalanceResponse {
	return &BalanceResponse{
		AccountID: b.AccountID,
		Debits:    money(b.Debits),
		Credits:   money(b.Credits),
		Balance:   money(b.Balance),
		AsOf:      DatePtr(b.AsOf),
	}
}

// BalancesResponse wraps several balances.
type BalancesResponse struct {
	Balances []*BalanceResponse `json:"balances"`
}

// BalancesFromDomain converts balances.
func BalancesFromDomain(bs []domain.Balance) *BalancesResponse {
	out := &BalancesResponse{Balances: make([]*BalanceResponse, len(bs))}
	for i, b := range bs {
		out.Balances[i] = BalanceFromDomain(b)
	}
	return out
}

// MovementResponse is account activity for a date range.
type MovementResponse struct {
	AccountID string `json:"account_id"`
	From      Date   `json:"from"`
	To        Date   `json:"to"`
	Debits    string `json:"debits"`
	Credits   string `json:"credits"`
	Net       string `json:"net"`
}

// MovementFromDomain converts a movement.
func MovementFromDomain(m *domain.Movement) *MovementResponse {
	return &MovementResponse{
		AccountID: m.AccountID,
		From:      NewDate(m.From),
		To:        NewDate(m.To),
		Debits:    money(m.Debits),
		Credits:   money(m.Credits),
		Net:       money(m.Net),
	}
}

// LedgerLineResponse is one account statement line.
type LedgerLineResponse struct {
	EntryID           string `json:"entry_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionNumber int64  `json:"transaction_number"`
	Date              Date   `json:"date"`
	Description       string `json:"description"`
	Debit             string `json:"debit"`
	Credit            string `json:"credit"`
	Running           string `json:"running_balance"`
	IsReconciled      bool   `json:"is_reconciled"`
}

// AccountLedgerResponse is an account statement.
type AccountLedgerResponse struct {
	Account *AccountResponse      `json:"account"`
	From    Date                  `json:"from"`
	To      Date                  `json:"to"`
	Opening string                `json:"opening_balance"`
	Lines   []*LedgerLineResponse `json:"lines"`
	Closing string                `json:"closing_balance"`
}

// AccountLedgerFromDomain converts an account ledger.
func AccountLedgerFromDomain(l *domain.AccountLedger) *AccountLedgerResponse {
	lines := make([]*LedgerLineResponse, len(l.Lines))
	for i, line := range l.Lines {
		desc := line.Description
		if line.Entry.Description != "" {
			desc = line.Entry.Description
		}
		lines[i] = &LedgerLineResponse{
			EntryID:           line.Entry.ID,
			TransactionID:     line.Entry.TransactionID,
			TransactionNumber: line.TransactionNumber,
			Date:              NewDate(line.Date),
			Description:       desc,
			Debit:             money(line.Entry.Debit),
			Credit:            money(line.Entry.Credit),
			Running:           money(line.Running),
			IsReconciled:      line.Entry.IsReconciled,
		}
	}
	return &AccountLedgerResponse{
		Account: AccountFromDomain(l.Account),
		From:    NewDate(l.From),
		To:      NewDate(l.To),
		Opening: money(l.Opening),
		Lines:   lines,
		Closing: money(l.Closing),
	}
}

// EntryResponse is one leg of a transaction.
type EntryResponse struct {
	ID            string     `json:"id"`
	AccountID     string     `json:"account_id"`
	Description   string     `json:"description,omitempty"`
	Debit         string     `json:"debit"`
	Credit        string     `json:"credit"`
	IsReconciled  bool       `json:"is_reconciled"`
	ReconciledAt  *time.Time `json:"reconciled_at,omitempty"`
	BankDate      *Date      `json:"bank_date,omitempty"`
	BankReference string     `json:"bank_reference,omitempty"`
}

// EntryFromDomain converts a transaction entry.
func EntryFromDomain(e *domain.TransactionEntry) *EntryResponse {
	return &EntryResponse{
		ID:            e.ID,
		AccountID:     e.AccountID,
		Description:   e.Description,
		Debit:         money(e.Debit),
		Credit:        money(e.Credit),
		IsReconciled:  e.IsReconciled,
		ReconciledAt:  e.ReconciledAt,
		BankDate:      DatePtr(e.BankDate),
		BankReference: e.BankReference,
	}
}

// TransactionResponse is a journal transaction with its legs.
type TransactionResponse struct {
	ID            string           `json:"id"`
	Number        int64            `json:"number"`
	Date          Date             `json:"date"`
	Description   string           `json:"description"`
	ReferenceType string           `json:"reference_type"`
	ReferenceID   *string          `json:"reference_id,omitempty"`
	Status        string           `json:"status"`
	IsReconciled  bool             `json:"is_reconciled"`
	ReversesID    *string          `json:"reverses_id,omitempty"`
	ReversedByID  *string          `json:"reversed_by_id,omitempty"`
	Entries       []*EntryResponse `json:"entries"`
	CreatedAt     time.Time        `json:"created_at"`
	PostedAt      *time.Time       `json:"posted_at,omitempty"`
}

// TransactionFromDomain converts a transaction.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	entries := make([]*EntryResponse, len(t.Entries))
	for i, e := range t.Entries {
		entries[i] = EntryFromDomain(e)
	}
	return &TransactionResponse{
		ID:            t.ID,
		Number:        t.Number,
		Date:          NewDate(t.Date),
		Description:   t.Description,
		ReferenceType: string(t.Reference.Type),
		ReferenceID:   t.Reference.ID,
		Status:        string(t.Status),
		IsReconciled:  t.IsReconciled,
		ReversesID:    t.ReversesID,
		ReversedByID:  t.ReversedByID,
		Entries:       entries,
		CreatedAt:     t.CreatedAt,
		PostedAt:      t.PostedAt,
	}
}

// TransactionsFromDomain converts transactions.
func TransactionsFromDomain(ts []*domain.Transaction) []*TransactionResponse {
	out := make([]*TransactionResponse, len(ts))
	for i, t := range ts {
		out[i] = TransactionFromDomain(t)
	}
	return out
}

// ListTransactionsResponse is a page of transactions.
type ListTransactionsResponse struct {
	Transactions []*TransactionResponse `json:"transactions"`
	Count        int                    `json:"count"`
}

// PostingResultResponse reports a template posting.
type PostingResultResponse struct {
	Template    string               `json:"template"`
	Skipped     bool                 `json:"skipped"`
	Reason      string               `json:"reason,omitempty"`
	Transaction *TransactionResponse `json:"transaction,omitempty"`
}

// PostingResultFromUseCase converts a posting result.
func PostingResultFromUseCase(r *usecase.PostingResult) *PostingResultResponse {
	out := &PostingResultResponse{Template: r.Template, Skipped: r.Skipped, Reason: r.Reason}
	if r.Transaction != nil {
		out.Transaction = TransactionFromDomain(r.Transaction)
	}
	return out
}

// StatementEntryResponse is one bank statement line.
type StatementEntryResponse struct {
	ID                   string     `json:"id"`
	BankAccountID        string     `json:"bank_account_id"`
	ImportBatchID        *string    `json:"import_batch_id,omitempty"`
	ValueDate            Date       `json:"value_date"`
	PostingDate          *Date      `json:"posting_date,omitempty"`
	Amount               string     `json:"amount"`
	Reference            string     `json:"reference,omitempty"`
	Description          string     `json:"description,omitempty"`
	RunningBalance       *string    `json:"running_balance,omitempty"`
	Status               string     `json:"status"`
	MatchedEntryID       *string    `json:"matched_entry_id,omitempty"`
	CreatedTransactionID *string    `json:"created_transaction_id,omitempty"`
	MatchedAt            *time.Time `json:"matched_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// StatementEntryFromDomain converts a statement line.
func StatementEntryFromDomain(e *domain.BankStatementEntry) *StatementEntryResponse {
	return &StatementEntryResponse{
		ID:                   e.ID,
		BankAccountID:        e.BankAccountID,
		ImportBatchID:        e.ImportBatchID,
		ValueDate:            NewDate(e.ValueDate),
		PostingDate:          DatePtr(e.PostingDate),
		Amount:               money(e.Amount),
		Reference:            e.Reference,
		Description:          e.Description,
		RunningBalance:       optionalMoney(e.RunningBalance),
		Status:               string(e.Status),
		MatchedEntryID:       e.MatchedEntryID,
		CreatedTransactionID: e.CreatedTransactionID,
		MatchedAt:            e.MatchedAt,
		CreatedAt:            e.CreatedAt,
	}
}

// StatementEntriesFromDomain converts statement lines.
func StatementEntriesFromDomain(es []*domain.BankStatementEntry) []*StatementEntryResponse {
	out := make([]*StatementEntryResponse, len(es))
	for i, e := range es {
		out[i] = StatementEntryFromDomain(e)
	}
	return out
}

// ListStatementEntriesResponse is a page of statement lines.
type ListStatementEntriesResponse struct {
	Entries []*StatementEntryResponse `json:"entries"`
	Count   int                       `json:"count"`
}

// ImportBatchResponse describes one import.
type ImportBatchResponse struct {
	ID            string            `json:"id"`
	BankAccountID string            `json:"bank_account_id"`
	Source        string            `json:"source,omitempty"`
	Format        string            `json:"format"`
	RowsTotal     int               `json:"rows_total"`
	RowsImported  int               `json:"rows_imported"`
	RowsDuplicate int               `json:"rows_duplicate"`
	RowErrors     []domain.RowError `json:"row_errors"`
	CreatedAt     time.Time         `json:"created_at"`
}

// ImportBatchFromDomain converts an import batch.
func ImportBatchFromDomain(b *domain.StatementImportBatch) *ImportBatchResponse {
	rowErrors := b.RowErrors
	if rowErrors == nil {
		rowErrors = []domain.RowError{}
	}
	return &ImportBatchResponse{
		ID:            b.ID,
		BankAccountID: b.BankAccountID,
		Source:        b.Source,
		Format:        b.Format,
		RowsTotal:     b.RowsTotal,
		RowsImported:  b.RowsImported,
		RowsDuplicate: b.RowsDuplicate,
		RowErrors:     rowErrors,
		CreatedAt:     b.CreatedAt,
	}
}

// ListImportBatchesResponse is a page of imports.
type ListImportBatchesResponse struct {
	Imports []*ImportBatchResponse `json:"imports"`
	Count   int                    `json:"count"`
}

// ImportResultResponse reports a statement import.
type ImportResultResponse struct {
	Batch   *ImportBatchResponse      `json:"batch"`
	Entries []*StatementEntryResponse `json:"entries"`
}

// ImportResultFromUseCase converts an import result.
func ImportResultFromUseCase(r *usecase.ImportResult) *ImportResultResponse {
	return &ImportResultResponse{
		Batch:   ImportBatchFromDomain(r.Batch),
		Entries: StatementEntriesFromDomain(r.Entries),
	}
}

// MatchPairResponse is one auto-matched pair.
type MatchPairResponse struct {
	StatementEntryID   string `json:"statement_entry_id"`
	TransactionEntryID string `json:"transaction_entry_id"`
	DateGap            int    `json:"date_gap_days"`
	AmountGap          string `json:"amount_gap"`
}

func matchPairs(ps []domain.MatchPair) []*MatchPairResponse {
	out := make([]*MatchPairResponse, len(ps))
	for i, p := range ps {
		out[i] = &MatchPairResponse{
			StatementEntryID:   p.Bank.ID,
			TransactionEntryID: p.Book.Entry.ID,
			DateGap:            p.DateGap,
			AmountGap:          money(p.AmountGap),
		}
	}
	return out
}

// UnmatchedBookResponse is a ledger entry left open by auto-match.
type UnmatchedBookResponse struct {
	TransactionEntryID string `json:"transaction_entry_id"`
	TransactionID      string `json:"transaction_id"`
	Date               Date   `json:"date"`
	Debit              string `json:"debit"`
	Credit             string `json:"credit"`
}

// AutoMatchResponse reports an auto-match pass.
type AutoMatchResponse struct {
	Matched       []*MatchPairResponse      `json:"matched"`
	Contended     []*MatchPairResponse      `json:"contended"`
	UnmatchedBook []*UnmatchedBookResponse  `json:"unmatched_book"`
	UnmatchedBank []*StatementEntryResponse `json:"unmatched_bank"`
}

// AutoMatchFromUseCase converts an auto-match result.
func AutoMatchFromUseCase(r *usecase.AutoMatchResult) *AutoMatchResponse {
	book := make([]*UnmatchedBookResponse, len(r.UnmatchedBook))
	for i, c := range r.UnmatchedBook {
		book[i] = &UnmatchedBookResponse{
			TransactionEntryID: c.Entry.ID,
			TransactionID:      c.Entry.TransactionID,
			Date:               NewDate(c.Date),
			Debit:              money(c.Entry.Debit),
			Credit:             money(c.Entry.Credit),
		}
	}
	return &AutoMatchResponse{
		Matched:       matchPairs(r.Matched),
		Contended:     matchPairs(r.Contended),
		UnmatchedBook: book,
		UnmatchedBank: StatementEntriesFromDomain(r.UnmatchedBank),
	}
}

// CategorizeResponse is the booked transaction and the matched line.
type CategorizeResponse struct {
	StatementEntry *StatementEntryResponse `json:"statement_entry"`
	Transaction    *TransactionResponse    `json:"transaction"`
}

// AdjustmentsResponse carries the reconciling items of a month.
type AdjustmentsResponse struct {
	OutstandingCheques string `json:"outstanding_cheques"`
	DepositsInTransit  string `json:"deposits_in_transit"`
	UnbookedCharges    string `json:"unbooked_charges"`
	UnbookedInterest   string `json:"unbooked_interest"`
	Other              string `json:"other"`
	Total              string `json:"total"`
}

// MonthlyReconciliationResponse is a monthly bank reconciliation with derived figures.
type MonthlyReconciliationResponse struct {
	ID                    string              `json:"id"`
	BankAccountID         string              `json:"bank_account_id"`
	Year                  int                 `json:"year"`
	Month                 int                 `json:"month"`
	BankOpening           string              `json:"bank_opening"`
	BankClosing           string              `json:"bank_closing"`
	BookOpening           string              `json:"book_opening"`
	BookDebits            string              `json:"book_debits"`
	BookCredits           string              `json:"book_credits"`
	BookClosing           string              `json:"book_closing"`
	ExpectedBankClosing   string              `json:"expected_bank_closing"`
	Difference            string              `json:"difference"`
	UnexplainedDifference string              `json:"unexplained_difference"`
	Adjustments           AdjustmentsResponse `json:"adjustments"`
	Notes                 string              `json:"notes,omitempty"`
	Status                string              `json:"status"`
	ClosedBy              *string             `json:"closed_by,omitempty"`
	ClosedAt              *time.Time          `json:"closed_at,omitempty"`
	UpdatedAt             time.Time           `json:"updated_at"`
}

// MonthlyFromDomain converts a monthly reconciliation.
func MonthlyFromDomain(r *domain.MonthlyBankReconciliation) *MonthlyReconciliationResponse {
	a := r.Adjustments
	return &MonthlyReconciliationResponse{
		ID:                    r.ID,
		BankAccountID:         r.BankAccountID,
		Year:                  r.Year,
		Month:                 r.Month,
		BankOpening:           money(r.BankOpening),
		BankClosing:           money(r.BankClosing),
		BookOpening:           money(r.BookOpening),
		BookDebits:            money(r.BookDebits),
		BookCredits:           money(r.BookCredits),
		BookClosing:           money(r.BookClosing),
		ExpectedBankClosing:   money(r.ExpectedBankClosing()),
		Difference:            money(r.Difference()),
		UnexplainedDifference: money(r.UnexplainedDifference()),
		Adjustments: AdjustmentsResponse{
			OutstandingCheques: money(a.OutstandingCheques),
			DepositsInTransit:  money(a.DepositsInTransit),
			UnbookedCharges:    money(a.UnbookedCharges),
			UnbookedInterest:   money(a.UnbookedInterest),
			Other:              money(a.Other),
			Total:              money(a.Total()),
		},
		Notes:     r.Notes,
		Status:    string(r.Status),
		ClosedBy:  r.ClosedBy,
		ClosedAt:  r.ClosedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// ConsistencyResponse reports a ledger check.
type ConsistencyResponse struct {
	Consistent             bool     `json:"consistent"`
	TotalDebits            string   `json:"total_debits"`
	TotalCredits           string   `json:"total_credits"`
	UnbalancedTransactions []string `json:"unbalanced_transactions"`
	ReconciliationDrift    []string `json:"reconciliation_drift"`
}

// ConsistencyFromReport converts a consistency report.
func ConsistencyFromReport(r *usecase.ConsistencyReport) *ConsistencyResponse {
	unbalanced := r.UnbalancedTransactions
	if unbalanced == nil {
		unbalanced = []string{}
	}
	drift := r.ReconciliationDrift
	if drift == nil {
		drift = []string{}
	}
	return &ConsistencyResponse{
		Consistent:             r.Consistent,
		TotalDebits:            money(r.TotalDebits),
		TotalCredits:           money(r.TotalCredits),
		UnbalancedTransactions: unbalanced,
		ReconciliationDrift:    drift,
	}
}

// AuditLogResponse is one audit trail record.
type AuditLogResponse struct {
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	Action       string      `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id"`
	IPAddress    string      `json:"ip_address,omitempty"`
	RequestID    string      `json:"request_id,omitempty"`
	BeforeState  domain.JSON `json:"before,omitempty"`
	AfterState   domain.JSON `json:"after,omitempty"`
	Status       string      `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
}

// AuditLogsFromDomain converts audit records.
func AuditLogsFromDomain(logs []*domain.AuditLog) []*AuditLogResponse {
	out := make([]*AuditLogResponse, len(logs))
	for i, l := range logs {
		out[i] = &AuditLogResponse{
			ID:           l.ID,
			UserID:       l.UserID,
			Action:       l.Action,
			ResourceType: l.ResourceType,
			ResourceID:   l.ResourceID,
			IPAddress:    l.IPAddress,
			RequestID:    l.RequestID,
			BeforeState:  l.BeforeState,
			AfterState:   l.AfterState,
			Status:       l.Status,
			CreatedAt:    l.CreatedAt,
		}
	}
	return out
}
