package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/infrastructure/metrics"
)

// AccountUseCase handles the chart of accounts.
type AccountUseCase struct {
	base
	accountRepo AccountRepository
	entryRepo   EntryRepository
	chart       []domain.ChartEntry
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
) *AccountUseCase {
	return &AccountUseCase{
		base: base{
			txManager:  txManager,
			outboxRepo: outboxRepo,
			auditRepo:  auditRepo,
			idGen:      idGen,
			logger:     zerolog.Nop(),
		},
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		chart:       domain.DefaultChart,
	}
}

// WithChart replaces the chart seeded by InitializeChart.
func (uc *AccountUseCase) WithChart(chart []domain.ChartEntry) *AccountUseCase {
	uc.chart = chart
	return uc
}

// WithRetrier enables retries on transient database errors.
func (uc *AccountUseCase) WithRetrier(r Retrier) *AccountUseCase {
	uc.retrier = r
	return uc
}

// WithMetrics enables Prometheus metrics.
func (uc *AccountUseCase) WithMetrics(m *metrics.Metrics) *AccountUseCase {
	uc.metrics = m
	return uc
}

// WithLogger sets the logger.
func (uc *AccountUseCase) WithLogger(l zerolog.Logger) *AccountUseCase {
	uc.logger = l
	return uc
}

// InitializeChartResult reports what a chart seed did.
type InitializeChartResult struct {
	Created []*domain.Account
	Skipped int
}

// InitializeChart seeds the company's chart of accounts. Codes that already exist are left alone.
func (uc *AccountUseCase) InitializeChart(ctx context.Context, companyID string) (*InitializeChartResult, error) {
	if err := requireCompany(companyID); err != nil {
		return nil, err
	}
	if err := domain.ValidateChart(uc.chart); err != nil {
		return nil, err
	}

	var result *InitializeChartResult
	seed := func() error {
		existing, err := uc.accountRepo.CodeIndex(ctx, companyID)
		if err != nil {
			return err
		}

		result = &InitializeChartResult{}
		return uc.inTx(ctx, PostingTimeout, func(txCtx context.Context, tx Transaction) error {
			now := time.Now().UTC()
			byCode := make(map[string]*domain.Account, len(existing)+len(uc.chart))
			for code, a := range existing {
				byCode[code] = a
			}

			for _, entry := range uc.chart {
				if _, ok := byCode[entry.Code]; ok {
					result.Skipped++
					continue
				}

				account := &domain.Account{
					ID:        uc.idGen.Generate(),
					CompanyID: companyID,
					Code:      entry.Code,
					Name:      entry.Name,
					Type:      entry.Type,
					IsSystem:  entry.IsSystem,
					IsActive:  true,
					CreatedAt: now,
					UpdatedAt: now,
				}
				if parent, ok := byCode[entry.ParentCode]; ok && entry.ParentCode != "" {
					account.ParentID = &parent.ID
				}

				if err := uc.accountRepo.CreateTx(txCtx, tx, account); err != nil {
					return err
				}
				byCode[entry.Code] = account
				result.Created = append(result.Created, account)
			}

			if len(result.Created) == 0 {
				return nil
			}

			if err := uc.emit(txCtx, tx, companyID, domain.AggregateTypeCompany, companyID, domain.EventTypeChartInitialized, map[string]any{
				"company_id": companyID,
				"created":    len(result.Created),
			}); err != nil {
				return err
			}

			return uc.audit(txCtx, tx, companyID, domain.AuditActionChartInitialize, "company", companyID, nil, map[string]any{
				"created": len(result.Created),
				"skipped": result.Skipped,
			})
		})
	}

	err := seed()
	// A concurrent seed for the same company won the race; reread and fill any gaps.
	if errors.Is(err, domain.ErrDuplicateAccountCode) {
		err = seed()
	}
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.ChartsSeeded.Inc()
		uc.metrics.AccountsCreated.Add(float64(len(result.Created)))
	}

	uc.logger.Info().
		Str("company_id", companyID).
		Int("created", len(result.Created)).
		Int("skipped", result.Skipped).
		Msg("chart of accounts initialized")

	return result, nil
}

// CreateAccountInput represents input for creating an account.
type CreateAccountInput struct {
	CompanyID     string
	Code          string
	Name          string
	Type          domain.AccountType
	ParentID      *string
	BankAccountID *string
}

// CreateAccount creates a new account.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	now := time.Now().UTC()

	account := &domain.Account{
		ID:            uc.idGen.Generate(),
		CompanyID:     input.CompanyID,
		Code:          strings.TrimSpace(input.Code),
		Name:          strings.TrimSpace(input.Name),
		Type:          input.Type,
		ParentID:      input.ParentID,
		BankAccountID: input.BankAccountID,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}

	if account.ParentID != nil {
		if _, err := uc.accountRepo.GetByID(ctx, input.CompanyID, *account.ParentID); err != nil {
			return nil, err
		}
	}

	if account.BankAccountID != nil && account.Type != domain.AccountTypeAsset {
		return nil, domain.NewValidationError("bank_account_id", "only asset accounts can be linked to a bank account")
	}

	err := uc.inTx(ctx, PostingTimeout, func(txCtx context.Context, tx Transaction) error {
		if err := uc.accountRepo.CreateTx(txCtx, tx, account); err != nil {
			return err
		}

		if err := uc.emit(txCtx, tx, account.CompanyID, domain.AggregateTypeAccount, account.ID, domain.EventTypeAccountCreated, map[string]any{
			"account_id": account.ID,
			"code":       account.Code,
			"name":       account.Name,
			"type":       string(account.Type),
		}); err != nil {
			return err
		}

		return uc.audit(txCtx, tx, account.CompanyID, domain.AuditActionAccountCreate, "account", account.ID, nil, account)
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.AccountsCreated.Inc()
	}

	return account, nil
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, companyID, id string) (*domain.Account, error) {
	return uc.accountRepo.GetByID(ctx, companyID, id)
}

// ListAccountsInput represents input for listing accounts.
type ListAccountsInput struct {
	CompanyID string
	Filter    domain.AccountFilter
	Limit     int
	Offset    int
}

// ListAccounts lists accounts with pagination.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, input ListAccountsInput) ([]*domain.Account, error) {
	if err := requireCompany(input.CompanyID); err != nil {
		return nil, err
	}
	if input.Filter.Type != "" && !input.Filter.Type.IsValid() {
		return nil, domain.NewValidationError("type", "unknown account type "+string(input.Filter.Type))
	}
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)
	return uc.accountRepo.List(ctx, input.CompanyID, input.Filter, limit, offset)
}

// DeactivateAccount soft-deactivates an account. System accounts and accounts
// carrying a balance stay active.
func (uc *AccountUseCase) DeactivateAccount(ctx context.Context, companyID, id string) (*domain.Account, error) {
	account, err := uc.accountRepo.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return account, nil
	}
	if account.IsSystem {
		return nil, domain.ErrSystemAccount
	}

	sums, err := uc.entryRepo.Sums(ctx, companyID, []string{account.ID}, nil, nil)
	if err != nil {
		return nil, err
	}
	s := sums[account.ID]
	if !account.Type.SignedBalance(s.Debits, s.Credits).IsZero() {
		return nil, domain.ErrAccountHasBalance
	}

	before := *account
	now := time.Now().UTC()
	err = uc.inTx(ctx, PostingTimeout, func(txCtx context.Context, tx Transaction) error {
		if err := uc.accountRepo.SetActive(txCtx, tx, companyID, id, false, now); err != nil {
			return err
		}
		account.IsActive = false
		account.UpdatedAt = now
		return uc.audit(txCtx, tx, companyID, domain.AuditActionAccountDisable, "account", id, before, account)
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

// LinkBankAccount ties an asset account to an external bank account so statements can be reconciled against it.
func (uc *AccountUseCase) LinkBankAccount(ctx context.Context, companyID, id, bankAccountID string) (*domain.Account, error) {
	bankAccountID = strings.TrimSpace(bankAccountID)
	if bankAccountID == "" {
		return nil, domain.NewValidationError("bank_account_id", "bank account is required")
	}

	account, err := uc.accountRepo.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if account.Type != domain.AccountTypeAsset {
		return nil, domain.NewValidationError("bank_account_id", "only asset accounts can be linked to a bank account")
	}
	if !account.IsActive {
		return nil, domain.ErrAccountInactive
	}

	before := *account
	now := time.Now().UTC()
	err = uc.inTx(ctx, PostingTimeout, func(txCtx context.Context, tx Transaction) error {
		if err := uc.accountRepo.LinkBankAccount(txCtx, tx, companyID, id, bankAccountID, now); err != nil {
			return err
		}
		account.BankAccountID = &bankAccountID
		account.UpdatedAt = now
		return uc.audit(txCtx, tx, companyID, domain.AuditActionAccountLinkBank, "account", id, before, account)
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}
