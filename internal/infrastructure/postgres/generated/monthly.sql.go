package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertMonthlyReconciliation = `-- name: InsertMonthlyReconciliation :exec
INSERT INTO monthly_bank_reconciliations (
    id, company_id, bank_account_id, year, month,
    bank_opening, bank_closing, book_opening, book_closing, book_debits, book_credits,
    outstanding_cheques, deposits_in_transit, unbooked_charges, unbooked_interest, other_adjustments,
    notes, status, closed_by, closed_at, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
ON CONFLICT ON CONSTRAINT monthly_bank_reconciliations_period_key DO NOTHING
`

type InsertMonthlyReconciliationParams MonthlyBankReconciliation

func (q *Queries) InsertMonthlyReconciliation(ctx context.Context, arg InsertMonthlyReconciliationParams) error {
	_, err := q.db.Exec(ctx, insertMonthlyReconciliation,
		arg.ID,
		arg.CompanyID,
		arg.BankAccountID,
		arg.Year,
		arg.Month,
		arg.BankOpening,
		arg.BankClosing,
		arg.BookOpening,
		arg.BookClosing,
		arg.BookDebits,
		arg.BookCredits,
		arg.OutstandingCheques,
		arg.DepositsInTransit,
		arg.UnbookedCharges,
		arg.UnbookedInterest,
		arg.OtherAdjustments,
		arg.Notes,
		arg.Status,
		arg.ClosedBy,
		arg.ClosedAt,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const getMonthlyReconciliationForUpdate = `-- name: GetMonthlyReconciliationForUpdate :one
SELECT id, company_id, bank_account_id, year, month,
       bank_opening, bank_closing, book_opening, book_closing, book_debits, book_credits,
       outstanding_cheques, deposits_in_transit, unbooked_charges, unbooked_interest, other_adjustments,
       notes, status, closed_by, closed_at, created_at, updated_at
FROM monthly_bank_reconciliations
WHERE company_id = $1 AND bank_account_id = $2 AND year = $3 AND month = $4
FOR UPDATE
`

type GetMonthlyReconciliationForUpdateParams struct {
	CompanyID     string `json:"company_id"`
	BankAccountID string `json:"bank_account_id"`
	Year          int32  `json:"year"`
	Month         int32  `json:"month"`
}

func (q *Queries) GetMonthlyReconciliationForUpdate(ctx context.Context, arg GetMonthlyReconciliationForUpdateParams) (MonthlyBankReconciliation, error) {
	row := q.db.QueryRow(ctx, getMonthlyReconciliationForUpdate,
		arg.CompanyID,
		arg.BankAccountID,
		arg.Year,
		arg.Month,
	)
	var i MonthlyBankReconciliation
	err := row.Scan(
		&i.ID,
		&i.CompanyID,
		&i.BankAccountID,
		&i.Year,
		&i.Month,
		&i.BankOpening,
		&i.BankClosing,
		&i.BookOpening,
		&i.BookClosing,
		&i.BookDebits,
		&i.BookCredits,
		&i.OutstandingCheques,
		&i.DepositsInTransit,
		&i.UnbookedCharges,
		&i.UnbookedInterest,
		&i.OtherAdjustments,
		&i.Notes,
		&i.Status,
		&i.ClosedBy,
		&i.ClosedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const saveMonthlyReconciliation = `-- name: SaveMonthlyReconciliation :execrows
UPDATE monthly_bank_reconciliations
SET bank_opening = $2, bank_closing = $3, book_opening = $4, book_closing = $5, book_debits = $6, book_credits = $7,
    outstanding_cheques = $8, deposits_in_transit = $9, unbooked_charges = $10, unbooked_interest = $11, other_adjustments = $12,
    notes = $13, status = $14, closed_by = $15, closed_at = $16, updated_at = $17
WHERE id = $1
`

type SaveMonthlyReconciliationParams struct {
	ID                 string             `json:"id"`
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
	UpdatedAt          pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) SaveMonthlyReconciliation(ctx context.Context, arg SaveMonthlyReconciliationParams) (int64, error) {
	result, err := q.db.Exec(ctx, saveMonthlyReconciliation,
		arg.ID,
		arg.BankOpening,
		arg.BankClosing,
		arg.BookOpening,
		arg.BookClosing,
		arg.BookDebits,
		arg.BookCredits,
		arg.OutstandingCheques,
		arg.DepositsInTransit,
		arg.UnbookedCharges,
		arg.UnbookedInterest,
		arg.OtherAdjustments,
		arg.Notes,
		arg.Status,
		arg.ClosedBy,
		arg.ClosedAt,
		arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
