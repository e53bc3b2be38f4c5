package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createImportBatch = `-- name: CreateImportBatch :exec
INSERT INTO statement_import_batches (id, company_id, bank_account_id, source, format, rows_total, rows_imported, rows_duplicate, row_errors, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

type CreateImportBatchParams struct {
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

func (q *Queries) CreateImportBatch(ctx context.Context, arg CreateImportBatchParams) error {
	_, err := q.db.Exec(ctx, createImportBatch,
		arg.ID,
		arg.CompanyID,
		arg.BankAccountID,
		arg.Source,
		arg.Format,
		arg.RowsTotal,
		arg.RowsImported,
		arg.RowsDuplicate,
		arg.RowErrors,
		arg.CreatedAt,
	)
	return err
}

const updateImportBatchCounts = `-- name: UpdateImportBatchCounts :exec
UPDATE statement_import_batches
SET rows_total = $2, rows_imported = $3, rows_duplicate = $4, row_errors = $5
WHERE id = $1
`

type UpdateImportBatchCountsParams struct {
	ID            string `json:"id"`
	RowsTotal     int32  `json:"rows_total"`
	RowsImported  int32  `json:"rows_imported"`
	RowsDuplicate int32  `json:"rows_duplicate"`
	RowErrors     []byte `json:"row_errors"`
}

func (q *Queries) UpdateImportBatchCounts(ctx context.Context, arg UpdateImportBatchCountsParams) error {
	_, err := q.db.Exec(ctx, updateImportBatchCounts,
		arg.ID,
		arg.RowsTotal,
		arg.RowsImported,
		arg.RowsDuplicate,
		arg.RowErrors,
	)
	return err
}

const listImportBatches = `-- name: ListImportBatches :many
SELECT id, company_id, bank_account_id, source, format, rows_total, rows_imported, rows_duplicate, row_errors, created_at
FROM statement_import_batches
WHERE company_id = $1 AND ($2::text IS NULL OR bank_account_id = $2)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4
`

type ListImportBatchesParams struct {
	CompanyID     string      `json:"company_id"`
	BankAccountID pgtype.Text `json:"bank_account_id"`
	Limit         int32       `json:"limit"`
	Offset        int32       `json:"offset"`
}

func (q *Queries) ListImportBatches(ctx context.Context, arg ListImportBatchesParams) ([]StatementImportBatch, error) {
	rows, err := q.db.Query(ctx, listImportBatches,
		arg.CompanyID,
		arg.BankAccountID,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []StatementImportBatch{}
	for rows.Next() {
		var i StatementImportBatch
		if err := rows.Scan(
			&i.ID,
			&i.CompanyID,
			&i.BankAccountID,
			&i.Source,
			&i.Format,
			&i.RowsTotal,
			&i.RowsImported,
			&i.RowsDuplicate,
			&i.RowErrors,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
