package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const entryColumns = `e.id, e.transaction_id, e.account_id, e.description, e.debit, e.credit, e.is_reconciled, e.reconciled_at, e.bank_date, e.bank_reference, e.created_at`

func entryDest(i *TransactionEntry) []any {
	return []any{
		&i.ID,
		&i.TransactionID,
		&i.AccountID,
		&i.Description,
		&i.Debit,
		&i.Credit,
		&i.IsReconciled,
		&i.ReconciledAt,
		&i.BankDate,
		&i.BankReference,
		&i.CreatedAt,
	}
}

const createEntry = `-- name: CreateEntry :exec
INSERT INTO transaction_entries (id, transaction_id, account_id, description, debit, credit, is_reconciled, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

type CreateEntryParams struct {
	ID            string             `json:"id"`
	TransactionID string             `json:"transaction_id"`
	AccountID     string             `json:"account_id"`
	Description   string             `json:"description"`
	Debit         pgtype.Numeric     `json:"debit"`
	Credit        pgtype.Numeric     `json:"credit"`
	IsReconciled  bool               `json:"is_reconciled"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
}

func (q *Queries) CreateEntry(ctx context.Context, arg CreateEntryParams) error {
	_, err := q.db.Exec(ctx, createEntry,
		arg.ID,
		arg.TransactionID,
		arg.AccountID,
		arg.Description,
		arg.Debit,
		arg.Credit,
		arg.IsReconciled,
		arg.CreatedAt,
	)
	return err
}

const getEntryByID = `-- name: GetEntryByID :one
SELECT ` + entryColumns + ` FROM transaction_entries e
JOIN transactions t ON t.id = e.transaction_id
WHERE t.company_id = $1 AND e.id = $2
`

type GetEntryByIDParams struct {
	CompanyID string `json:"company_id"`
	ID        string `json:"id"`
}

func (q *Queries) GetEntryByID(ctx context.Context, arg GetEntryByIDParams) (TransactionEntry, error) {
	row := q.db.QueryRow(ctx, getEntryByID, arg.CompanyID, arg.ID)
	var i TransactionEntry
	err := row.Scan(entryDest(&i)...)
	return i, err
}

const listEntriesByTransactions = `-- name: ListEntriesByTransactions :many
SELECT ` + entryColumns + ` FROM transaction_entries e
WHERE e.transaction_id = ANY($1::text[])
ORDER BY e.transaction_id, e.id
`

func (q *Queries) ListEntriesByTransactions(ctx context.Context, transactionIds []string) ([]TransactionEntry, error) {
	rows, err := q.db.Query(ctx, listEntriesByTransactions, transactionIds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []TransactionEntry{}
	for rows.Next() {
		var i TransactionEntry
		if err := rows.Scan(entryDest(&i)...); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const sumEntriesByAccount = `-- name: SumEntriesByAccount :many
SELECT e.account_id, COALESCE(SUM(e.debit), 0)::numeric AS debits, COALESCE(SUM(e.credit), 0)::numeric AS credits
FROM transaction_entries e
JOIN transactions t ON t.id = e.transaction_id
WHERE t.company_id = $1
  AND t.status IN ('posted', 'reversed')
  AND e.account_id = ANY($2::text[])
  AND ($3::date IS NULL OR t.date >= $3)
  AND ($4::date IS NULL OR t.date <= $4)
GROUP BY e.account_id
`

type SumEntriesByAccountParams struct {
	CompanyID  string      `json:"company_id"`
	AccountIds []string    `json:"account_ids"`
	FromDate   pgtype.Date `json:"from_date"`
	ToDate     pgtype.Date `json:"to_date"`
}

type SumEntriesByAccountRow struct {
	AccountID string         `json:"account_id"`
	Debits    pgtype.Numeric `json:"debits"`
	Credits   pgtype.Numeric `json:"credits"`
}

func (q *Queries) SumEntriesByAccount(ctx context.Context, arg SumEntriesByAccountParams) ([]SumEntriesByAccountRow, error) {
	rows, err := q.db.Query(ctx, sumEntriesByAccount,
		arg.CompanyID,
		arg.AccountIds,
		arg.FromDate,
		arg.ToDate,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []SumEntriesByAccountRow{}
	for rows.Next() {
		var i SumEntriesByAccountRow
		if err := rows.Scan(&i.AccountID, &i.Debits, &i.Credits); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listLedgerEntries = `-- name: ListLedgerEntries :many
SELECT ` + entryColumns + `, t.number, t.date, t.description
FROM transaction_entries e
JOIN transactions t ON t.id = e.transaction_id
WHERE t.company_id = $1
  AND e.account_id = $2
  AND t.status IN ('posted', 'reversed')
  AND t.date >= $3 AND t.date <= $4
ORDER BY t.date, t.number, e.id
`

type ListLedgerEntriesParams struct {
	CompanyID string      `json:"company_id"`
	AccountID string      `json:"account_id"`
	FromDate  pgtype.Date `json:"from_date"`
	ToDate    pgtype.Date `json:"to_date"`
}

type ListLedgerEntriesRow struct {
	TransactionEntry       TransactionEntry `json:"transaction_entry"`
	Number                 int64            `json:"number"`
	Date                   pgtype.Date      `json:"date"`
	TransactionDescription string           `json:"transaction_description"`
}

func (q *Queries) ListLedgerEntries(ctx context.Context, arg ListLedgerEntriesParams) ([]ListLedgerEntriesRow, error) {
	rows, err := q.db.Query(ctx, listLedgerEntries,
		arg.CompanyID,
		arg.AccountID,
		arg.FromDate,
		arg.ToDate,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListLedgerEntriesRow{}
	for rows.Next() {
		var i ListLedgerEntriesRow
		dest := append(entryDest(&i.TransactionEntry), &i.Number, &i.Date, &i.TransactionDescription)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listUnreconciledEntries = `-- name: ListUnreconciledEntries :many
SELECT ` + entryColumns + `, t.date
FROM transaction_entries e
JOIN transactions t ON t.id = e.transaction_id
WHERE t.company_id = $1
  AND e.account_id = $2
  AND NOT e.is_reconciled
  AND t.status = 'posted'
  AND t.reverses_id IS NULL
ORDER BY e.id
`

type ListUnreconciledEntriesParams struct {
	CompanyID string `json:"company_id"`
	AccountID string `json:"account_id"`
}

type ListUnreconciledEntriesRow struct {
	TransactionEntry TransactionEntry `json:"transaction_entry"`
	Date             pgtype.Date      `json:"date"`
}

func (q *Queries) ListUnreconciledEntries(ctx context.Context, arg ListUnreconciledEntriesParams) ([]ListUnreconciledEntriesRow, error) {
	rows, err := q.db.Query(ctx, listUnreconciledEntries, arg.CompanyID, arg.AccountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListUnreconciledEntriesRow{}
	for rows.Next() {
		var i ListUnreconciledEntriesRow
		dest := append(entryDest(&i.TransactionEntry), &i.Date)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markEntryReconciled = `-- name: MarkEntryReconciled :execrows
UPDATE transaction_entries
SET is_reconciled = TRUE, bank_date = $2, bank_reference = $3, reconciled_at = $4
WHERE id = $1 AND NOT is_reconciled
`

type MarkEntryReconciledParams struct {
	ID            string             `json:"id"`
	BankDate      pgtype.Date        `json:"bank_date"`
	BankReference string             `json:"bank_reference"`
	ReconciledAt  pgtype.Timestamptz `json:"reconciled_at"`
}

func (q *Queries) MarkEntryReconciled(ctx context.Context, arg MarkEntryReconciledParams) (int64, error) {
	result, err := q.db.Exec(ctx, markEntryReconciled,
		arg.ID,
		arg.BankDate,
		arg.BankReference,
		arg.ReconciledAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const clearEntryReconciled = `-- name: ClearEntryReconciled :execrows
UPDATE transaction_entries
SET is_reconciled = FALSE, bank_date = NULL, bank_reference = '', reconciled_at = NULL
WHERE id = $1
`

func (q *Queries) ClearEntryReconciled(ctx context.Context, id string) (int64, error) {
	result, err := q.db.Exec(ctx, clearEntryReconciled, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
