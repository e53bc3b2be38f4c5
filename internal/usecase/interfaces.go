package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bookkeeper/internal/domain"
)

// AccountRepository defines data access for the chart of accounts.
type AccountRepository interface {
	CreateTx(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByID(ctx context.Context, companyID, id string) (*domain.Account, error)
	GetByIDs(ctx context.Context, companyID string, ids []string) ([]*domain.Account, error)
	GetByBankAccountID(ctx context.Context, companyID, bankAccountID string) (*domain.Account, error)
	// CodeIndex returns every account of the company, active or not, keyed by code.
	CodeIndex(ctx context.Context, companyID string) (domain.AccountsByCode, error)
	List(ctx context.Context, companyID string, filter domain.AccountFilter, limit, offset int) ([]*domain.Account, error)
	SetActive(ctx context.Context, tx Transaction, companyID, id string, active bool, updatedAt time.Time) error
	LinkBankAccount(ctx context.Context, tx Transaction, companyID, id, bankAccountID string, updatedAt time.Time) error
}

// TransactionRepository defines data access for journal transactions.
type TransactionRepository interface {
	// NextNumber increments and returns the company's transaction counter inside tx.
	NextNumber(ctx context.Context, tx Transaction, companyID string) (int64, error)
	Create(ctx context.Context, tx Transaction, transaction *domain.Transaction) error
	GetByID(ctx context.Context, companyID, id string) (*domain.Transaction, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, companyID, id string) (*domain.Transaction, error)
	MarkPosted(ctx context.Context, tx Transaction, id string, postedAt time.Time) error
	MarkReversed(ctx context.Context, tx Transaction, id, reversedByID string) error
	// RefreshReconciled recomputes the transaction flag from its bank-side entries.
	RefreshReconciled(ctx context.Context, tx Transaction, id string) error
	List(ctx context.Context, companyID string, filter domain.TransactionFilter, limit, offset int) ([]*domain.Transaction, error)
}

// EntrySums are raw debit and credit totals for one account.
type EntrySums struct {
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

// EntryRepository defines data access for transaction entries.
type EntryRepository interface {
	CreateBatch(ctx context.Context, tx Transaction, entries []*domain.TransactionEntry) error
	GetByID(ctx context.Context, companyID, id string) (*domain.TransactionEntry, error)
	// Sums totals entries of posted and reversed transactions per account, dates inclusive.
	Sums(ctx context.Context, companyID string, accountIDs []string, from, to *time.Time) (map[string]EntrySums, error)
	ListForLedger(ctx context.Context, companyID, accountID string, from, to time.Time) ([]domain.LedgerLine, error)
	// ListUnreconciled returns match candidates on an account: posted, not reversal-paired, not reconciled.
	ListUnreconciled(ctx context.Context, companyID, accountID string) ([]domain.BookCandidate, error)
	// MarkReconciled flips is_reconciled only if it is currently false.
	MarkReconciled(ctx context.Context, tx Transaction, id string, bankDate time.Time, bankReference string, at time.Time) (bool, error)
	ClearReconciled(ctx context.Context, tx Transaction, id string) error
}

// StatementRepository defines data access for bank statement lines.
type StatementRepository interface {
	// Insert stores a line unless its dedupe key already exists.
	Insert(ctx context.Context, tx Transaction, entry *domain.BankStatementEntry) (bool, error)
	GetByID(ctx context.Context, companyID, id string) (*domain.BankStatementEntry, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, companyID, id string) (*domain.BankStatementEntry, error)
	ListPending(ctx context.Context, companyID, bankAccountID string) ([]*domain.BankStatementEntry, error)
	List(ctx context.Context, companyID string, filter domain.StatementFilter, limit, offset int) ([]*domain.BankStatementEntry, error)
	// MarkMatched moves a pending line to matched.
	MarkMatched(ctx context.Context, tx Transaction, id, entryID string, createdTransactionID *string, at time.Time) (bool, error)
	// Transition moves a line between statuses, clearing match links when it returns to pending.
	Transition(ctx context.Context, tx Transaction, id string, from, to domain.StatementStatus) (bool, error)
}

// ImportBatchRepository defines data access for statement import batches.
type ImportBatchRepository interface {
	Create(ctx context.Context, tx Transaction, batch *domain.StatementImportBatch) error
	// UpdateCounts stores the final row counts and row errors of a batch.
	UpdateCounts(ctx context.Context, tx Transaction, batch *domain.StatementImportBatch) error
	List(ctx context.Context, companyID, bankAccountID string, limit, offset int) ([]*domain.StatementImportBatch, error)
}

// MonthlyReconciliationRepository defines data access for monthly bank reconciliations.
type MonthlyReconciliationRepository interface {
	// Insert creates the row unless the period already exists.
	Insert(ctx context.Context, tx Transaction, rec *domain.MonthlyBankReconciliation) error
	GetForUpdate(ctx context.Context, tx Transaction, companyID, bankAccountID string, year, month int) (*domain.MonthlyBankReconciliation, error)
	Save(ctx context.Context, tx Transaction, rec *domain.MonthlyBankReconciliation) error
}

// ConsistencyReport is the result of a ledger-wide double-entry check.
type ConsistencyReport struct {
	CompanyID              string
	TotalDebits            decimal.Decimal
	TotalCredits           decimal.Decimal
	UnbalancedTransactions []string
	// ReconciliationDrift lists entries whose reconciled flag disagrees with
	// the statement lines matched to them.
	ReconciliationDrift []string
	Consistent          bool
}

// LedgerRepository defines data access for ledger-wide operations.
type LedgerRepository interface {
	CheckConsistency(ctx context.Context, companyID string) (*ConsistencyReport, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier retries operations that failed on transient database errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// BalanceCache is an optional read-through cache of derived balances. It is never a source of truth.
type BalanceCache interface {
	// Get returns the cached balance (nil on a miss) and the generation it read.
	Get(ctx context.Context, companyID, accountID string, asOf *time.Time) (*domain.Balance, int64, error)
	// Set stores a balance computed after the Get that returned gen.
	Set(ctx context.Context, companyID string, gen int64, balance domain.Balance) error
	// Invalidate makes every cached balance of the accounts stale.
	Invalidate(ctx context.Context, companyID string, accountIDs []string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

// StatementParser turns raw statement bytes into rows.
type StatementParser interface {
	Parse(ctx context.Context, data []byte, opts ParseOptions) (*ParseResult, error)
}

// ParserRegistry resolves a parser by format name.
type ParserRegistry interface {
	Get(format string) (StatementParser, error)
}

// ColumnMapping names the source columns for each statement field. Empty fields are auto-detected.
type ColumnMapping struct {
	Date        string `json:"date,omitempty"`
	PostingDate string `json:"posting_date,omitempty"`
	Description string `json:"description,omitempty"`
	Debit       string `json:"debit,omitempty"`
	Credit      string `json:"credit,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Reference   string `json:"reference,omitempty"`
	Balance     string `json:"balance,omitempty"`
}

// ParseOptions control a statement parse.
type ParseOptions struct {
	Mapping    *ColumnMapping
	DateLayout string
	Delimiter  rune
	MaxRows    int
}

// ParsedRow is one statement line before it is bound to a company.
type ParsedRow struct {
	Line           int
	ValueDate      time.Time
	PostingDate    *time.Time
	Amount         decimal.Decimal
	Reference      string
	Description    string
	RunningBalance *decimal.Decimal
}

// ParseResult is the output of a parse: good rows plus row-scoped errors.
type ParseResult struct {
	Rows      []ParsedRow
	RowErrors []domain.RowError
	Mapping   ColumnMapping
}
