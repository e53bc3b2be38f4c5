package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const checkLedgerTotals = `-- name: CheckLedgerTotals :one
SELECT COALESCE(SUM(e.debit), 0)::numeric AS total_debits, COALESCE(SUM(e.credit), 0)::numeric AS total_credits
FROM transaction_entries e
JOIN transactions t ON t.id = e.transaction_id
WHERE t.company_id = $1 AND t.status IN ('posted', 'reversed')
`

type CheckLedgerTotalsRow struct {
	TotalDebits  pgtype.Numeric `json:"total_debits"`
	TotalCredits pgtype.Numeric `json:"total_credits"`
}

func (q *Queries) CheckLedgerTotals(ctx context.Context, companyID string) (CheckLedgerTotalsRow, error) {
	row := q.db.QueryRow(ctx, checkLedgerTotals, companyID)
	var i CheckLedgerTotalsRow
	err := row.Scan(&i.TotalDebits, &i.TotalCredits)
	return i, err
}

const listUnbalancedTransactions = `-- name: ListUnbalancedTransactions :many
SELECT t.id
FROM transactions t
JOIN transaction_entries e ON e.transaction_id = t.id
WHERE t.company_id = $1 AND t.status IN ('posted', 'reversed')
GROUP BY t.id
HAVING SUM(e.debit) <> SUM(e.credit)
ORDER BY t.id
`

func (q *Queries) ListUnbalancedTransactions(ctx context.Context, companyID string) ([]string, error) {
	rows, err := q.db.Query(ctx, listUnbalancedTransactions, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listReconciliationDrift = `-- name: ListReconciliationDrift :many
SELECT e.id
FROM transaction_entries e
JOIN transactions t ON t.id = e.transaction_id
LEFT JOIN bank_statement_entries s ON s.matched_entry_id = e.id AND s.status = 'matched'
WHERE t.company_id = $1 AND e.is_reconciled <> (s.id IS NOT NULL)
ORDER BY e.id
`

func (q *Queries) ListReconciliationDrift(ctx context.Context, companyID string) ([]string, error) {
	rows, err := q.db.Query(ctx, listReconciliationDrift, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
