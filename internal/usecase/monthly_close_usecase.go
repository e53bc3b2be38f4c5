package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/infrastructure/metrics"
)

// MonthlyCloseUseCase maintains monthly bank reconciliations.
type MonthlyCloseUseCase struct {
	base
	accountRepo AccountRepository
	monthlyRepo MonthlyReconciliationRepository
	balances    *BalanceUseCase
}

// NewMonthlyCloseUseCase creates a new MonthlyCloseUseCase.
func NewMonthlyCloseUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	monthlyRepo MonthlyReconciliationRepository,
	balances *BalanceUseCase,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
) *MonthlyCloseUseCase {
	return &MonthlyCloseUseCase{
		base: base{
			txManager:  txManager,
			outboxRepo: outboxRepo,
			auditRepo:  auditRepo,
			idGen:      idGen,
			logger:     zerolog.Nop(),
		},
		accountRepo: accountRepo,
		monthlyRepo: monthlyRepo,
		balances:    balances,
	}
}

// WithRetrier enables retries on transient database errors.
func (uc *MonthlyCloseUseCase) WithRetrier(r Retrier) *MonthlyCloseUseCase {
	uc.retrier = r
	return uc
}

// WithMetrics enables Prometheus metrics.
func (uc *MonthlyCloseUseCase) WithMetrics(m *metrics.Metrics) *MonthlyCloseUseCase {
	uc.metrics = m
	return uc
}

// WithLogger sets the logger.
func (uc *MonthlyCloseUseCase) WithLogger(l zerolog.Logger) *MonthlyCloseUseCase {
	uc.logger = l
	return uc
}

// Period identifies one bank account's month.
type Period struct {
	CompanyID     string
	BankAccountID string
	Year          int
	Month         int
}

func (p Period) validate() error {
	if err := requireCompany(p.CompanyID); err != nil {
		return err
	}
	if strings.TrimSpace(p.BankAccountID) == "" {
		return domain.NewValidationError("bank_account_id", "bank account is required")
	}
	return domain.ValidatePeriod(p.Year, p.Month)
}

type bookFigures struct {
	opening decimal.Decimal
	debits  decimal.Decimal
	credits decimal.Decimal
}

// GetMonthlyReconciliation returns the period, creating it on first access. Book figures
// are recomputed from the ledger on every read until the period is closed.
func (uc *MonthlyCloseUseCase) GetMonthlyReconciliation(ctx context.Context, p Period) (*domain.MonthlyBankReconciliation, error) {
	var rec *domain.MonthlyBankReconciliation
	err := uc.withPeriod(ctx, p, func(txCtx context.Context, tx Transaction, r *domain.MonthlyBankReconciliation) error {
		rec = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateMonthlyInput carries the user-maintained parts of a period. Nil fields are left unchanged.
type UpdateMonthlyInput struct {
	Period
	BankOpening *decimal.Decimal
	BankClosing *decimal.Decimal
	Adjustments *domain.Adjustments
	Notes       *string
	Status      *domain.MonthlyStatus
}

func (in UpdateMonthlyInput) validate() error {
	amounts := map[string]*decimal.Decimal{"bank_opening": in.BankOpening, "bank_closing": in.BankClosing}
	if a := in.Adjustments; a != nil {
		amounts["outstanding_cheques"] = &a.OutstandingCheques
		amounts["deposits_in_transit"] = &a.DepositsInTransit
		amounts["unbooked_charges"] = &a.UnbookedCharges
		amounts["unbooked_interest"] = &a.UnbookedInterest
		amounts["other"] = &a.Other
	}
	for field, v := range amounts {
		if v != nil && !domain.HasAtMostCents(*v) {
			return domain.ErrTooManyDecimals.ForField(field)
		}
	}
	if in.Notes != nil {
		return domain.ValidateDescription(*in.Notes)
	}
	return nil
}

// UpdateMonthlyReconciliation records bank figures, adjustments, notes and the draft/reconciled status.
func (uc *MonthlyCloseUseCase) UpdateMonthlyReconciliation(ctx context.Context, input UpdateMonthlyInput) (*domain.MonthlyBankReconciliation, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	var rec *domain.MonthlyBankReconciliation
	err := uc.withPeriod(ctx, input.Period, func(txCtx context.Context, tx Transaction, r *domain.MonthlyBankReconciliation) error {
		if r.IsClosed() {
			return domain.ErrReconciliationClosed
		}
		before := *r

		if input.BankOpening != nil {
			r.BankOpening = *input.BankOpening
		}
		if input.BankClosing != nil {
			r.BankClosing = *input.BankClosing
		}
		if input.Adjustments != nil {
			r.Adjustments = *input.Adjustments
		}
		if input.Notes != nil {
			r.Notes = strings.TrimSpace(*input.Notes)
		}
		if input.Status != nil {
			if err := r.SetStatus(*input.Status); err != nil {
				return err
			}
		}
		r.UpdatedAt = time.Now().UTC()

		if err := uc.monthlyRepo.Save(txCtx, tx, r); err != nil {
			return err
		}
		rec = r
		return uc.audit(txCtx, tx, input.CompanyID, domain.AuditActionMonthlyUpdate, "monthly_reconciliation", r.ID, before, r)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// CloseMonthlyReconciliation locks the period with a final snapshot of the book figures.
// closedBy defaults to the caller in ctx.
func (uc *MonthlyCloseUseCase) CloseMonthlyReconciliation(ctx context.Context, p Period, closedBy string) (*domain.MonthlyBankReconciliation, error) {
	closedBy = strings.TrimSpace(closedBy)
	if closedBy == "" {
		closedBy = domain.ActorFromContext(ctx)
	}

	var rec *domain.MonthlyBankReconciliation
	err := uc.withPeriod(ctx, p, func(txCtx context.Context, tx Transaction, r *domain.MonthlyBankReconciliation) error {
		before := *r
		if err := r.Close(closedBy, time.Now().UTC()); err != nil {
			return err
		}
		if err := uc.monthlyRepo.Save(txCtx, tx, r); err != nil {
			return err
		}

		if err := uc.emit(txCtx, tx, p.CompanyID, domain.AggregateTypeMonthly, r.ID, domain.EventTypeMonthClosed, map[string]any{
			"bank_account_id": r.BankAccountID,
			"year":            r.Year,
			"month":           r.Month,
			"difference":      r.Difference().StringFixed(domain.CentsPlaces),
			"unexplained":     r.UnexplainedDifference().StringFixed(domain.CentsPlaces),
			"closed_by":       closedBy,
		}); err != nil {
			return err
		}
		if err := uc.audit(txCtx, tx, p.CompanyID, domain.AuditActionMonthlyClose, "monthly_reconciliation", r.ID, before, r); err != nil {
			return err
		}
		rec = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.MonthsClosed.Inc()
	}
	if !rec.UnexplainedDifference().IsZero() {
		uc.logger.Warn().
			Str("company_id", p.CompanyID).
			Str("bank_account_id", p.BankAccountID).
			Int("year", p.Year).
			Int("month", p.Month).
			Str("unexplained", rec.UnexplainedDifference().StringFixed(domain.CentsPlaces)).
			Msg("period closed with an unexplained difference")
	}
	return rec, nil
}

// withPeriod locks the period row, creating it when missing, refreshes its book figures
// unless closed, and hands it to fn in the same unit of work.
func (uc *MonthlyCloseUseCase) withPeriod(ctx context.Context, p Period, fn func(ctx context.Context, tx Transaction, r *domain.MonthlyBankReconciliation) error) error {
	if err := p.validate(); err != nil {
		return err
	}

	account, err := uc.accountRepo.GetByBankAccountID(ctx, p.CompanyID, p.BankAccountID)
	if err != nil {
		return err
	}
	figures, err := uc.bookFigures(ctx, p, account.ID)
	if err != nil {
		return err
	}

	return uc.inTx(ctx, MonthCloseTimeout, func(txCtx context.Context, tx Transaction) error {
		rec, err := uc.getOrCreate(txCtx, tx, p)
		if err != nil {
			return err
		}

		if !rec.IsClosed() {
			rec.BookOpening = figures.opening
			rec.BookDebits = figures.debits
			rec.BookCredits = figures.credits
			rec.BookClosing = domain.RoundCents(figures.opening.Add(figures.debits).Sub(figures.credits))
			if err := uc.monthlyRepo.Save(txCtx, tx, rec); err != nil {
				return err
			}
		}
		return fn(txCtx, tx, rec)
	})
}

func (uc *MonthlyCloseUseCase) getOrCreate(ctx context.Context, tx Transaction, p Period) (*domain.MonthlyBankReconciliation, error) {
	rec, err := uc.monthlyRepo.GetForUpdate(ctx, tx, p.CompanyID, p.BankAccountID, p.Year, p.Month)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	rec = &domain.MonthlyBankReconciliation{
		ID:            uc.idGen.Generate(),
		CompanyID:     p.CompanyID,
		BankAccountID: p.BankAccountID,
		Year:          p.Year,
		Month:         p.Month,
		Status:        domain.MonthlyStatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// The bank's opening carries over from the prior month's closing when it exists.
	prevYear, prevMonth := p.Year, p.Month-1
	if prevMonth == 0 {
		prevYear, prevMonth = p.Year-1, 12
	}
	prior, err := uc.monthlyRepo.GetForUpdate(ctx, tx, p.CompanyID, p.BankAccountID, prevYear, prevMonth)
	switch {
	case err == nil:
		rec.BankOpening = prior.BankClosing
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	if err := uc.monthlyRepo.Insert(ctx, tx, rec); err != nil {
		return nil, err
	}
	// A concurrent request may have created the row first; lock whichever row won.
	return uc.monthlyRepo.GetForUpdate(ctx, tx, p.CompanyID, p.BankAccountID, p.Year, p.Month)
}

func (uc *MonthlyCloseUseCase) bookFigures(ctx context.Context, p Period, accountID string) (bookFigures, error) {
	start, end, priorEnd := domain.PeriodBounds(p.Year, p.Month)

	opening, err := uc.balances.GetBalance(ctx, p.CompanyID, accountID, &priorEnd)
	if err != nil {
		return bookFigures{}, err
	}
	movement, err := uc.balances.GetPeriodMovement(ctx, p.CompanyID, accountID, start, end)
	if err != nil {
		return bookFigures{}, err
	}

	return bookFigures{
		opening: opening.Balance,
		debits:  movement.Debits,
		credits: movement.Credits,
	}, nil
}
