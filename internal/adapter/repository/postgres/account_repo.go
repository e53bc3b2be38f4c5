package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/infrastructure/postgres/generated"
	"github.com/iho/bookkeeper/internal/usecase"
)

const (
	accountCodeConstraint = "accounts_company_code_key"
	accountBankConstraint = "accounts_company_bank_key"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	queries *generated.Queries
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return newAccountRepository(pool)
}

func newAccountRepository(db generated.DBTX) *AccountRepository {
	return &AccountRepository{queries: generated.New(db)}
}

// CreateTx inserts an account within a transaction.
func (r *AccountRepository) CreateTx(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	err := queriesFor(tx).CreateAccount(ctx, generated.CreateAccountParams{
		ID:            account.ID,
		CompanyID:     account.CompanyID,
		Code:          account.Code,
		Name:          account.Name,
		Type:          string(account.Type),
		ParentID:      optionalStringToPgText(account.ParentID),
		BankAccountID: optionalStringToPgText(account.BankAccountID),
		IsSystem:      account.IsSystem,
		IsActive:      account.IsActive,
		CreatedAt:     timeToPgTimestamptz(account.CreatedAt),
		UpdatedAt:     timeToPgTimestamptz(account.UpdatedAt),
	})
	switch {
	case isUniqueViolation(err, accountCodeConstraint):
		return domain.ErrDuplicateAccountCode
	case isUniqueViolation(err, accountBankConstraint):
		return errBankAlreadyLinked
	}

	return err
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, companyID, id string) (*domain.Account, error) {
	row, err := r.queries.GetAccountByID(ctx, generated.GetAccountByIDParams{CompanyID: companyID, ID: id})
	if err != nil {
		return nil, notFound(err, "account", id)
	}

	return rowToAccount(row), nil
}

// GetByIDs retrieves the accounts that exist among ids.
func (r *AccountRepository) GetByIDs(ctx context.Context, companyID string, ids []string) ([]*domain.Account, error) {
	rows, err := r.queries.GetAccountsByIDs(ctx, generated.GetAccountsByIDsParams{CompanyID: companyID, Ids: ids})
	if err != nil {
		return nil, err
	}

	return rowsToAccounts(rows), nil
}

// GetByBankAccountID finds the ledger account linked to a bank account.
func (r *AccountRepository) GetByBankAccountID(ctx context.Context, companyID, bankAccountID string) (*domain.Account, error) {
	row, err := r.queries.GetAccountByBankAccountID(ctx, generated.GetAccountByBankAccountIDParams{
		CompanyID:     companyID,
		BankAccountID: pgtype.Text{String: bankAccountID, Valid: true},
	})
	if err != nil {
		return nil, notFound(err, "bank account link", bankAccountID)
	}

	return rowToAccount(row), nil
}

// CodeIndex returns every account of the company keyed by code.
func (r *AccountRepository) CodeIndex(ctx context.Context, companyID string) (domain.AccountsByCode, error) {
	rows, err := r.queries.ListCompanyAccounts(ctx, companyID)
	if err != nil {
		return nil, err
	}

	index := make(domain.AccountsByCode, len(rows))
	for _, row := range rows {
		index[row.Code] = rowToAccount(row)
	}

	return index, nil
}

// List lists accounts ordered by code.
func (r *AccountRepository) List(ctx context.Context, companyID string, filter domain.AccountFilter, limit, offset int) ([]*domain.Account, error) {
	rows, err := r.queries.ListAccounts(ctx, generated.ListAccountsParams{
		CompanyID:       companyID,
		Type:            stringToPgText(string(filter.Type)),
		IncludeInactive: filter.IncludeInactive,
		Limit:           int32(limit),
		Offset:          int32(offset),
	})
	if err != nil {
		return nil, err
	}

	return rowsToAccounts(rows), nil
}

// SetActive activates or deactivates an account.
func (r *AccountRepository) SetActive(ctx context.Context, tx usecase.Transaction, companyID, id string, active bool, updatedAt time.Time) error {
	n, err := queriesFor(tx).SetAccountActive(ctx, generated.SetAccountActiveParams{
		CompanyID: companyID,
		ID:        id,
		IsActive:  active,
		UpdatedAt: timeToPgTimestamptz(updatedAt),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewNotFoundError("account", id)
	}

	return nil
}

// LinkBankAccount ties a bank account to a ledger account.
func (r *AccountRepository) LinkBankAccount(ctx context.Context, tx usecase.Transaction, companyID, id, bankAccountID string, updatedAt time.Time) error {
	n, err := queriesFor(tx).LinkBankAccount(ctx, generated.LinkBankAccountParams{
		CompanyID:     companyID,
		ID:            id,
		BankAccountID: pgtype.Text{String: bankAccountID, Valid: true},
		UpdatedAt:     timeToPgTimestamptz(updatedAt),
	})
	if isUniqueViolation(err, accountBankConstraint) {
		return errBankAlreadyLinked
	}
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewNotFoundError("account", id)
	}

	return nil
}

var errBankAlreadyLinked = domain.NewValidationError("bank_account_id", "bank account is already linked to another ledger account")

func rowsToAccounts(rows []generated.Account) []*domain.Account {
	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, rowToAccount(row))
	}

	return accounts
}

func rowToAccount(row generated.Account) *domain.Account {
	return &domain.Account{
		ID:            row.ID,
		CompanyID:     row.CompanyID,
		Code:          row.Code,
		Name:          row.Name,
		Type:          domain.AccountType(row.Type),
		ParentID:      pgTextToOptionalString(row.ParentID),
		BankAccountID: pgTextToOptionalString(row.BankAccountID),
		IsSystem:      row.IsSystem,
		IsActive:      row.IsActive,
		CreatedAt:     row.CreatedAt.Time,
		UpdatedAt:     row.UpdatedAt.Time,
	}
}
