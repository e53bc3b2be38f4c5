package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const transactionColumns = `id, company_id, number, date, description, reference_type, reference_id, status, is_reconciled, reverses_id, reversed_by_id, created_at, posted_at`

func scanTransaction(row interface{ Scan(...any) error }) (Transaction, error) {
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.CompanyID,
		&i.Number,
		&i.Date,
		&i.Description,
		&i.ReferenceType,
		&i.ReferenceID,
		&i.Status,
		&i.IsReconciled,
		&i.ReversesID,
		&i.ReversedByID,
		&i.CreatedAt,
		&i.PostedAt,
	)
	return i, err
}

const nextTransactionNumber = `-- name: NextTransactionNumber :one
INSERT INTO transaction_counters (company_id, last_number) VALUES ($1, 1)
ON CONFLICT (company_id) DO UPDATE SET last_number = transaction_counters.last_number + 1
RETURNING last_number
`

func (q *Queries) NextTransactionNumber(ctx context.Context, companyID string) (int64, error) {
	row := q.db.QueryRow(ctx, nextTransactionNumber, companyID)
	var lastNumber int64
	err := row.Scan(&lastNumber)
	return lastNumber, err
}

const createTransaction = `-- name: CreateTransaction :exec
INSERT INTO transactions (id, company_id, number, date, description, reference_type, reference_id, status, is_reconciled, reverses_id, reversed_by_id, created_at, posted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`

type CreateTransactionParams struct {
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

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) error {
	_, err := q.db.Exec(ctx, createTransaction,
		arg.ID,
		arg.CompanyID,
		arg.Number,
		arg.Date,
		arg.Description,
		arg.ReferenceType,
		arg.ReferenceID,
		arg.Status,
		arg.IsReconciled,
		arg.ReversesID,
		arg.ReversedByID,
		arg.CreatedAt,
		arg.PostedAt,
	)
	return err
}

const getTransactionByID = `-- name: GetTransactionByID :one
SELECT ` + transactionColumns + ` FROM transactions WHERE company_id = $1 AND id = $2
`

type GetTransactionByIDParams struct {
	CompanyID string `json:"company_id"`
	ID        string `json:"id"`
}

func (q *Queries) GetTransactionByID(ctx context.Context, arg GetTransactionByIDParams) (Transaction, error) {
	row := q.db.QueryRow(ctx, getTransactionByID, arg.CompanyID, arg.ID)
	return scanTransaction(row)
}

const getTransactionByIDForUpdate = `-- name: GetTransactionByIDForUpdate :one
SELECT ` + transactionColumns + ` FROM transactions WHERE company_id = $1 AND id = $2 FOR UPDATE
`

func (q *Queries) GetTransactionByIDForUpdate(ctx context.Context, arg GetTransactionByIDParams) (Transaction, error) {
	row := q.db.QueryRow(ctx, getTransactionByIDForUpdate, arg.CompanyID, arg.ID)
	return scanTransaction(row)
}

const markTransactionPosted = `-- name: MarkTransactionPosted :execrows
UPDATE transactions SET status = 'posted', posted_at = $2 WHERE id = $1
`

type MarkTransactionPostedParams struct {
	ID       string             `json:"id"`
	PostedAt pgtype.Timestamptz `json:"posted_at"`
}

func (q *Queries) MarkTransactionPosted(ctx context.Context, arg MarkTransactionPostedParams) (int64, error) {
	result, err := q.db.Exec(ctx, markTransactionPosted, arg.ID, arg.PostedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const markTransactionReversed = `-- name: MarkTransactionReversed :execrows
UPDATE transactions SET status = 'reversed', reversed_by_id = $2 WHERE id = $1
`

type MarkTransactionReversedParams struct {
	ID           string      `json:"id"`
	ReversedByID pgtype.Text `json:"reversed_by_id"`
}

func (q *Queries) MarkTransactionReversed(ctx context.Context, arg MarkTransactionReversedParams) (int64, error) {
	result, err := q.db.Exec(ctx, markTransactionReversed, arg.ID, arg.ReversedByID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const refreshTransactionReconciled = `-- name: RefreshTransactionReconciled :execrows
UPDATE transactions t SET is_reconciled = COALESCE((
    SELECT bool_and(e.is_reconciled)
    FROM transaction_entries e
    JOIN accounts a ON a.id = e.account_id
    WHERE e.transaction_id = t.id AND a.bank_account_id IS NOT NULL
), false)
WHERE t.id = $1
`

func (q *Queries) RefreshTransactionReconciled(ctx context.Context, id string) (int64, error) {
	result, err := q.db.Exec(ctx, refreshTransactionReconciled, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listTransactions = `-- name: ListTransactions :many
SELECT ` + transactionColumns + ` FROM transactions
WHERE company_id = $1
  AND ($2::text IS NULL OR status = $2)
  AND ($3::text IS NULL OR reference_type = $3)
  AND ($4::date IS NULL OR date >= $4)
  AND ($5::date IS NULL OR date <= $5)
ORDER BY number DESC
LIMIT $6 OFFSET $7
`

type ListTransactionsParams struct {
	CompanyID     string      `json:"company_id"`
	Status        pgtype.Text `json:"status"`
	ReferenceType pgtype.Text `json:"reference_type"`
	FromDate      pgtype.Date `json:"from_date"`
	ToDate        pgtype.Date `json:"to_date"`
	Limit         int32       `json:"limit"`
	Offset        int32       `json:"offset"`
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, listTransactions,
		arg.CompanyID,
		arg.Status,
		arg.ReferenceType,
		arg.FromDate,
		arg.ToDate,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Transaction{}
	for rows.Next() {
		i, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
