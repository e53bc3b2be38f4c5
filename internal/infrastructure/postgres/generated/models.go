package generated

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Account struct {
	ID            string             `json:"id"`
	CompanyID     string             `json:"company_id"`
	Code          string             `json:"code"`
	Name          string             `json:"name"`
	Type          string             `json:"type"`
	ParentID      pgtype.Text        `json:"parent_id"`
	BankAccountID pgtype.Text        `json:"bank_account_id"`
	IsSystem      bool               `json:"is_system"`
	IsActive      bool               `json:"is_active"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	UpdatedAt     pgtype.Timestamptz `json:"updated_at"`
}

type AuditLog struct {
	ID           string             `json:"id"`
	CompanyID    string             `json:"company_id"`
	UserID       string             `json:"user_id"`
	Action       string             `json:"action"`
	ResourceType string             `json:"resource_type"`
	ResourceID   string             `json:"resource_id"`
	IpAddress    string             `json:"ip_address"`
	UserAgent    string             `json:"user_agent"`
	RequestID    string             `json:"request_id"`
	BeforeState  []byte             `json:"before_state"`
	AfterState   []byte             `json:"after_state"`
	Status       string             `json:"status"`
	ErrorMessage string             `json:"error_message"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
}

type BankStatementEntry struct {
	ID                   string             `json:"id"`
	CompanyID            string             `json:"company_id"`
	BankAccountID        string             `json:"bank_account_id"`
	ImportBatchID        pgtype.Text        `json:"import_batch_id"`
	ValueDate            pgtype.Date        `json:"value_date"`
	PostingDate          pgtype.Date        `json:"posting_date"`
	Amount               pgtype.Numeric     `json:"amount"`
	Reference            string             `json:"reference"`
	Description          string             `json:"description"`
	RunningBalance       pgtype.Numeric     `json:"running_balance"`
	Status               string             `json:"status"`
	MatchedEntryID       pgtype.Text        `json:"matched_entry_id"`
	CreatedTransactionID pgtype.Text        `json:"created_transaction_id"`
	MatchedAt            pgtype.Timestamptz `json:"matched_at"`
	CreatedAt            pgtype.Timestamptz `json:"created_at"`
}

type MonthlyBankReconciliation struct {
	ID                 string             `json:"id"`
	CompanyID          string             `json:"company_id"`
	BankAccountID      string             `json:"bank_account_id"`
	Year               int32              `json:"year"`
	Month              int32              `json:"month"`
	BankOpening        pgtype.Numeric     `json:"bank_opening"`
	BankClosing        pgtype.Numeric     `json:"bank_closing"`
	BookOpening        pgtype.Numeric     `json:"book_opening"`
	BookClosing        pgtype.Numeric     `json:"book_closing"`
	BookDebits         pgtype.Numeric     `json:"book_debits"`
	BookCredits        pgtype.Numeric     `json:"book_credits"`
	OutstandingCheques pgtype.Numeric     `json:"outstanding_cheques"`
	DepositsInTransit  pgtype.Numeric     `json:"deposits_in_transit"`
	UnbookedCharges    pgtype.Numeric     `json:"unbooked_charges"`
	UnbookedInterest   pgtype.Numeric     `json:"unbooked_interest"`
	OtherAdjustments   pgtype.Numeric     `json:"other_adjustments"`
	Notes              string             `json:"notes"`
	Status             string             `json:"status"`
	ClosedBy           pgtype.Text        `json:"closed_by"`
	ClosedAt           pgtype.Timestamptz `json:"closed_at"`
	CreatedAt          pgtype.Timestamptz `json:"created_at"`
	UpdatedAt          pgtype.Timestamptz `json:"updated_at"`
}

type OutboxEvent struct {
	ID            string             `json:"id"`
	CompanyID     string             `json:"company_id"`
	AggregateID   string             `json:"aggregate_id"`
	AggregateType string             `json:"aggregate_type"`
	EventType     string             `json:"event_type"`
	Payload       []byte             `json:"payload"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	PublishedAt   pgtype.Timestamptz `json:"published_at"`
	Published     bool               `json:"published"`
}

type StatementImportBatch struct {
	ID            string             `json:"id"`
	CompanyID     string             `json:"company_id"`
	BankAccountID string             `json:"bank_account_id"`
	Source        string             `json:"source"`
	Format        string             `json:"format"`
	RowsTotal     int32              `json:"rows_total"`
	RowsImported  int32              `json:"rows_imported"`
	RowsDuplicate int32              `json:"rows_duplicate"`
	RowErrors     []byte             `json:"row_errors"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
}

type Transaction struct {
	ID            string             `json:"id"`
	CompanyID     string             `json:"company_id"`
	Number        int64              `json:"number"`
	Date          pgtype.Date        `json:"date"`
	Description   string             `json:"description"`
	ReferenceType string             `json:"reference_type"`
	ReferenceID   pgtype.Text        `json:"reference_id"`
	Status        string             `json:"status"`
	IsReconciled  bool               `json:"is_reconciled"`
	ReversesID    pgtype.Text        `json:"reverses_id"`
	ReversedByID  pgtype.Text        `json:"reversed_by_id"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	PostedAt      pgtype.Timestamptz `json:"posted_at"`
}

type TransactionEntry struct {
	ID            string             `json:"id"`
	TransactionID string             `json:"transaction_id"`
	AccountID     string             `json:"account_id"`
	Description   string             `json:"description"`
	Debit         pgtype.Numeric     `json:"debit"`
	Credit        pgtype.Numeric     `json:"credit"`
	IsReconciled  bool               `json:"is_reconciled"`
	ReconciledAt  pgtype.Timestamptz `json:"reconciled_at"`
	BankDate      pgtype.Date        `json:"bank_date"`
	BankReference string             `json:"bank_reference"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
}
