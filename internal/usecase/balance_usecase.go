package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/infrastructure/metrics"
)

// BalanceUseCase derives balances from posted entries. Nothing here writes.
type BalanceUseCase struct {
	accountRepo AccountRepository
	entryRepo   EntryRepository
	cache       BalanceCache
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewBalanceUseCase creates a new BalanceUseCase.
func NewBalanceUseCase(accountRepo AccountRepository, entryRepo EntryRepository) *BalanceUseCase {
	return &BalanceUseCase{
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		logger:      zerolog.Nop(),
	}
}

// WithCache enables the read-through balance cache.
func (uc *BalanceUseCase) WithCache(c BalanceCache) *BalanceUseCase {
	uc.cache = c
	return uc
}

// WithMetrics enables Prometheus metrics.
func (uc *BalanceUseCase) WithMetrics(m *metrics.Metrics) *BalanceUseCase {
	uc.metrics = m
	return uc
}

// WithLogger sets the logger.
func (uc *BalanceUseCase) WithLogger(l zerolog.Logger) *BalanceUseCase {
	uc.logger = l
	return uc
}

// GetBalance returns the balance of an account, optionally as of the end of a day.
func (uc *BalanceUseCase) GetBalance(ctx context.Context, companyID, accountID string, asOf *time.Time) (*domain.Balance, error) {
	account, err := uc.accountRepo.GetByID(ctx, companyID, accountID)
	if err != nil {
		return nil, err
	}
	asOf = normalizeDate(asOf)

	// The generation must be read before the entries are summed so that a post
	// committing in between leaves the computed value unreachable.
	cacheable := false
	var gen int64
	if uc.cache != nil {
		cached, g, err := uc.cache.Get(ctx, companyID, accountID, asOf)
		switch {
		case err != nil:
			uc.logger.Warn().Err(err).Str("account_id", accountID).Msg("balance cache read failed")
		case cached != nil:
			uc.observeCache(true)
			return cached, nil
		default:
			cacheable, gen = true, g
		}
		uc.observeCache(false)
	}

	sums, err := uc.entryRepo.Sums(ctx, companyID, []string{accountID}, nil, asOf)
	if err != nil {
		return nil, err
	}
	s := sums[accountID]
	balance := domain.NewBalance(accountID, account.Type, s.Debits, s.Credits, asOf)

	if uc.metrics != nil {
		uc.metrics.BalanceQueries.Inc()
	}

	if cacheable {
		if err := uc.cache.Set(ctx, companyID, gen, balance); err != nil {
			uc.logger.Warn().Err(err).Str("account_id", accountID).Msg("balance cache write failed")
		}
	}

	return &balance, nil
}

// GetBalances computes balances for many accounts with one grouped query.
func (uc *BalanceUseCase) GetBalances(ctx context.Context, companyID string, accountIDs []string, asOf *time.Time) ([]domain.Balance, error) {
	if err := requireCompany(companyID); err != nil {
		return nil, err
	}
	ids := uniqueSorted(accountIDs)
	if len(ids) == 0 {
		return []domain.Balance{}, nil
	}

	accounts, err := uc.accountRepo.GetByIDs(ctx, companyID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, domain.NewNotFoundError("account", id)
		}
	}

	asOf = normalizeDate(asOf)
	sums, err := uc.entryRepo.Sums(ctx, companyID, ids, nil, asOf)
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.BalanceQueries.Add(float64(len(ids)))
	}

	balances := make([]domain.Balance, 0, len(ids))
	for _, id := range ids {
		s := sums[id]
		balances = append(balances, domain.NewBalance(id, byID[id].Type, s.Debits, s.Credits, asOf))
	}
	return balances, nil
}

// GetPeriodMovement returns what moved through an account between two dates, inclusive.
func (uc *BalanceUseCase) GetPeriodMovement(ctx context.Context, companyID, accountID string, from, to time.Time) (*domain.Movement, error) {
	from, to = domain.DateOnly(from), domain.DateOnly(to)
	if err := domain.ValidateDateRange(from, to); err != nil {
		return nil, err
	}

	account, err := uc.accountRepo.GetByID(ctx, companyID, accountID)
	if err != nil {
		return nil, err
	}

	sums, err := uc.entryRepo.Sums(ctx, companyID, []string{accountID}, &from, &to)
	if err != nil {
		return nil, err
	}
	s := sums[accountID]

	return &domain.Movement{
		AccountID: accountID,
		From:      from,
		To:        to,
		Debits:    domain.RoundCents(s.Debits),
		Credits:   domain.RoundCents(s.Credits),
		Net:       account.Type.SignedBalance(s.Debits, s.Credits),
	}, nil
}

// GetAccountLedger returns the entries of an account in a date range with a running balance.
func (uc *BalanceUseCase) GetAccountLedger(ctx context.Context, companyID, accountID string, from, to time.Time) (*domain.AccountLedger, error) {
	from, to = domain.DateOnly(from), domain.DateOnly(to)
	if err := domain.ValidateDateRange(from, to); err != nil {
		return nil, err
	}

	account, err := uc.accountRepo.GetByID(ctx, companyID, accountID)
	if err != nil {
		return nil, err
	}

	openingDay := from.AddDate(0, 0, -1)
	sums, err := uc.entryRepo.Sums(ctx, companyID, []string{accountID}, nil, &openingDay)
	if err != nil {
		return nil, err
	}
	s := sums[accountID]
	opening := account.Type.SignedBalance(s.Debits, s.Credits)

	lines, err := uc.entryRepo.ListForLedger(ctx, companyID, accountID, from, to)
	if err != nil {
		return nil, err
	}

	running := opening
	for i := range lines {
		running = running.Add(account.Type.SignedBalance(lines[i].Entry.Debit, lines[i].Entry.Credit))
		lines[i].Running = running
	}

	return &domain.AccountLedger{
		Account: account,
		From:    from,
		To:      to,
		Opening: opening,
		Lines:   lines,
		Closing: running,
	}, nil
}

func (uc *BalanceUseCase) observeCache(hit bool) {
	if uc.metrics == nil {
		return
	}
	if hit {
		uc.metrics.BalanceCacheHits.Inc()
	} else {
		uc.metrics.BalanceCacheMisses.Inc()
	}
}

func normalizeDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := domain.DateOnly(*t)
	return &d
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
