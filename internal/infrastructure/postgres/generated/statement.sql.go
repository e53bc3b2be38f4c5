package generated

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const statementColumns = `id, company_id, bank_account_id, import_batch_id, value_date, posting_date, amount, reference, description, running_balance, status, matched_entry_id, created_transaction_id, matched_at, created_at`

func scanStatementEntry(row interface{ Scan(...any) error }) (BankStatementEntry, error) {
	var i BankStatementEntry
	err := row.Scan(
		&i.ID,
		&i.CompanyID,
		&i.BankAccountID,
		&i.ImportBatchID,
		&i.ValueDate,
		&i.PostingDate,
		&i.Amount,
		&i.Reference,
		&i.Description,
		&i.RunningBalance,
		&i.Status,
		&i.MatchedEntryID,
		&i.CreatedTransactionID,
		&i.MatchedAt,
		&i.CreatedAt,
	)
	return i, err
}

func collectStatementEntries(rows pgx.Rows) ([]BankStatementEntry, error) {
	defer rows.Close()
	items := []BankStatementEntry{}
	for rows.Next() {
		i, err := scanStatementEntry(rows)
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

const insertStatementEntry = `-- name: InsertStatementEntry :execrows
INSERT INTO bank_statement_entries (id, company_id, bank_account_id, import_batch_id, value_date, posting_date, amount, reference, description, running_balance, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT ON CONSTRAINT bank_statement_entries_dedupe_key DO NOTHING
`

type InsertStatementEntryParams struct {
	ID             string             `json:"id"`
	CompanyID      string             `json:"company_id"`
	BankAccountID  string             `json:"bank_account_id"`
	ImportBatchID  pgtype.Text        `json:"import_batch_id"`
	ValueDate      pgtype.Date        `json:"value_date"`
	PostingDate    pgtype.Date        `json:"posting_date"`
	Amount         pgtype.Numeric     `json:"amount"`
	Reference      string             `json:"reference"`
	Description    string             `json:"description"`
	RunningBalance pgtype.Numeric     `json:"running_balance"`
	Status         string             `json:"status"`
	CreatedAt      pgtype.Timestamptz `json:"created_at"`
}

func (q *Queries) InsertStatementEntry(ctx context.Context, arg InsertStatementEntryParams) (int64, error) {
	result, err := q.db.Exec(ctx, insertStatementEntry,
		arg.ID,
		arg.CompanyID,
		arg.BankAccountID,
		arg.ImportBatchID,
		arg.ValueDate,
		arg.PostingDate,
		arg.Amount,
		arg.Reference,
		arg.Description,
		arg.RunningBalance,
		arg.Status,
		arg.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getStatementEntryByID = `-- name: GetStatementEntryByID :one
SELECT ` + statementColumns + ` FROM bank_statement_entries WHERE company_id = $1 AND id = $2
`

type GetStatementEntryByIDParams struct {
	CompanyID string `json:"company_id"`
	ID        string `json:"id"`
}

func (q *Queries) GetStatementEntryByID(ctx context.Context, arg GetStatementEntryByIDParams) (BankStatementEntry, error) {
	row := q.db.QueryRow(ctx, getStatementEntryByID, arg.CompanyID, arg.ID)
	return scanStatementEntry(row)
}

const getStatementEntryByIDForUpdate = `-- name: GetStatementEntryByIDForUpdate :one
SELECT ` + statementColumns + ` FROM bank_statement_entries WHERE company_id = $1 AND id = $2 FOR UPDATE
`

func (q *Queries) GetStatementEntryByIDForUpdate(ctx context.Context, arg GetStatementEntryByIDParams) (BankStatementEntry, error) {
	row := q.db.QueryRow(ctx, getStatementEntryByIDForUpdate, arg.CompanyID, arg.ID)
	return scanStatementEntry(row)
}

const listPendingStatementEntries = `-- name: ListPendingStatementEntries :many
SELECT ` + statementColumns + ` FROM bank_statement_entries
WHERE company_id = $1 AND bank_account_id = $2 AND status = 'pending'
ORDER BY value_date, id
`

type ListPendingStatementEntriesParams struct {
	CompanyID     string `json:"company_id"`
	BankAccountID string `json:"bank_account_id"`
}

func (q *Queries) ListPendingStatementEntries(ctx context.Context, arg ListPendingStatementEntriesParams) ([]BankStatementEntry, error) {
	rows, err := q.db.Query(ctx, listPendingStatementEntries, arg.CompanyID, arg.BankAccountID)
	if err != nil {
		return nil, err
	}
	return collectStatementEntries(rows)
}

const listStatementEntries = `-- name: ListStatementEntries :many
SELECT ` + statementColumns + ` FROM bank_statement_entries
WHERE company_id = $1
  AND ($2::text IS NULL OR bank_account_id = $2)
  AND ($3::text IS NULL OR status = $3)
  AND ($4::date IS NULL OR value_date >= $4)
  AND ($5::date IS NULL OR value_date <= $5)
ORDER BY value_date, id
LIMIT $6 OFFSET $7
`

type ListStatementEntriesParams struct {
	CompanyID     string      `json:"company_id"`
	BankAccountID pgtype.Text `json:"bank_account_id"`
	Status        pgtype.Text `json:"status"`
	FromDate      pgtype.Date `json:"from_date"`
	ToDate        pgtype.Date `json:"to_date"`
	Limit         int32       `json:"limit"`
	Offset        int32       `json:"offset"`
}

func (q *Queries) ListStatementEntries(ctx context.Context, arg ListStatementEntriesParams) ([]BankStatementEntry, error) {
	rows, err := q.db.Query(ctx, listStatementEntries,
		arg.CompanyID,
		arg.BankAccountID,
		arg.Status,
		arg.FromDate,
		arg.ToDate,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	return collectStatementEntries(rows)
}

const markStatementEntryMatched = `-- name: MarkStatementEntryMatched :execrows
UPDATE bank_statement_entries
SET status = 'matched',
    matched_entry_id = $2,
    created_transaction_id = COALESCE($3, created_transaction_id),
    matched_at = $4
WHERE id = $1 AND status = 'pending'
`

type MarkStatementEntryMatchedParams struct {
	ID                   string             `json:"id"`
	MatchedEntryID       pgtype.Text        `json:"matched_entry_id"`
	CreatedTransactionID pgtype.Text        `json:"created_transaction_id"`
	MatchedAt            pgtype.Timestamptz `json:"matched_at"`
}

func (q *Queries) MarkStatementEntryMatched(ctx context.Context, arg MarkStatementEntryMatchedParams) (int64, error) {
	result, err := q.db.Exec(ctx, markStatementEntryMatched,
		arg.ID,
		arg.MatchedEntryID,
		arg.CreatedTransactionID,
		arg.MatchedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const transitionStatementEntry = `-- name: TransitionStatementEntry :execrows
UPDATE bank_statement_entries
SET status = $3::text,
    matched_entry_id = CASE WHEN $3::text = 'pending' THEN NULL ELSE matched_entry_id END,
    matched_at = CASE WHEN $3::text = 'pending' THEN NULL ELSE matched_at END
WHERE id = $1 AND status = $2
`

type TransitionStatementEntryParams struct {
	ID         string `json:"id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
}

func (q *Queries) TransitionStatementEntry(ctx context.Context, arg TransitionStatementEntryParams) (int64, error) {
	result, err := q.db.Exec(ctx, transitionStatementEntry, arg.ID, arg.FromStatus, arg.ToStatus)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
