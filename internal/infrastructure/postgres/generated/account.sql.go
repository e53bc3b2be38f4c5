package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const accountColumns = `id, company_id, code, name, type, parent_id, bank_account_id, is_system, is_active, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (Account, error) {
	var i Account
	err := row.Scan(
		&i.ID,
		&i.CompanyID,
		&i.Code,
		&i.Name,
		&i.Type,
		&i.ParentID,
		&i.BankAccountID,
		&i.IsSystem,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createAccount = `-- name: CreateAccount :exec
INSERT INTO accounts (id, company_id, code, name, type, parent_id, bank_account_id, is_system, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

type CreateAccountParams struct {
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

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) error {
	_, err := q.db.Exec(ctx, createAccount,
		arg.ID,
		arg.CompanyID,
		arg.Code,
		arg.Name,
		arg.Type,
		arg.ParentID,
		arg.BankAccountID,
		arg.IsSystem,
		arg.IsActive,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const getAccountByID = `-- name: GetAccountByID :one
SELECT ` + accountColumns + ` FROM accounts WHERE company_id = $1 AND id = $2
`

type GetAccountByIDParams struct {
	CompanyID string `json:"company_id"`
	ID        string `json:"id"`
}

func (q *Queries) GetAccountByID(ctx context.Context, arg GetAccountByIDParams) (Account, error) {
	row := q.db.QueryRow(ctx, getAccountByID, arg.CompanyID, arg.ID)
	return scanAccount(row)
}

const getAccountsByIDs = `-- name: GetAccountsByIDs :many
SELECT ` + accountColumns + ` FROM accounts WHERE company_id = $1 AND id = ANY($2::text[]) ORDER BY code
`

type GetAccountsByIDsParams struct {
	CompanyID string   `json:"company_id"`
	Ids       []string `json:"ids"`
}

func (q *Queries) GetAccountsByIDs(ctx context.Context, arg GetAccountsByIDsParams) ([]Account, error) {
	rows, err := q.db.Query(ctx, getAccountsByIDs, arg.CompanyID, arg.Ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Account{}
	for rows.Next() {
		i, err := scanAccount(rows)
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

const getAccountByBankAccountID = `-- name: GetAccountByBankAccountID :one
SELECT ` + accountColumns + ` FROM accounts WHERE company_id = $1 AND bank_account_id = $2
`

type GetAccountByBankAccountIDParams struct {
	CompanyID     string      `json:"company_id"`
	BankAccountID pgtype.Text `json:"bank_account_id"`
}

func (q *Queries) GetAccountByBankAccountID(ctx context.Context, arg GetAccountByBankAccountIDParams) (Account, error) {
	row := q.db.QueryRow(ctx, getAccountByBankAccountID, arg.CompanyID, arg.BankAccountID)
	return scanAccount(row)
}

const listAccounts = `-- name: ListAccounts :many
SELECT ` + accountColumns + ` FROM accounts
WHERE company_id = $1
  AND ($2::text IS NULL OR type = $2)
  AND ($3::boolean OR is_active)
ORDER BY code
LIMIT $4 OFFSET $5
`

type ListAccountsParams struct {
	CompanyID       string      `json:"company_id"`
	Type            pgtype.Text `json:"type"`
	IncludeInactive bool        `json:"include_inactive"`
	Limit           int32       `json:"limit"`
	Offset          int32       `json:"offset"`
}

func (q *Queries) ListAccounts(ctx context.Context, arg ListAccountsParams) ([]Account, error) {
	rows, err := q.db.Query(ctx, listAccounts,
		arg.CompanyID,
		arg.Type,
		arg.IncludeInactive,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Account{}
	for rows.Next() {
		i, err := scanAccount(rows)
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

const listCompanyAccounts = `-- name: ListCompanyAccounts :many
SELECT ` + accountColumns + ` FROM accounts WHERE company_id = $1 ORDER BY code
`

func (q *Queries) ListCompanyAccounts(ctx context.Context, companyID string) ([]Account, error) {
	rows, err := q.db.Query(ctx, listCompanyAccounts, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Account{}
	for rows.Next() {
		i, err := scanAccount(rows)
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

const setAccountActive = `-- name: SetAccountActive :execrows
UPDATE accounts SET is_active = $3, updated_at = $4 WHERE company_id = $1 AND id = $2
`

type SetAccountActiveParams struct {
	CompanyID string             `json:"company_id"`
	ID        string             `json:"id"`
	IsActive  bool               `json:"is_active"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) SetAccountActive(ctx context.Context, arg SetAccountActiveParams) (int64, error) {
	result, err := q.db.Exec(ctx, setAccountActive,
		arg.CompanyID,
		arg.ID,
		arg.IsActive,
		arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const linkBankAccount = `-- name: LinkBankAccount :execrows
UPDATE accounts SET bank_account_id = $3, updated_at = $4 WHERE company_id = $1 AND id = $2
`

type LinkBankAccountParams struct {
	CompanyID     string             `json:"company_id"`
	ID            string             `json:"id"`
	BankAccountID pgtype.Text        `json:"bank_account_id"`
	UpdatedAt     pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) LinkBankAccount(ctx context.Context, arg LinkBankAccountParams) (int64, error) {
	result, err := q.db.Exec(ctx, linkBankAccount,
		arg.CompanyID,
		arg.ID,
		arg.BankAccountID,
		arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
