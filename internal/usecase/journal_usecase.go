package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/infrastructure/metrics"
)

// JournalUseCase creates, posts and reverses journal transactions.
type JournalUseCase struct {
	base
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	entryRepo       EntryRepository
	cache           BalanceCache
}

// NewJournalUseCase creates a new JournalUseCase.
func NewJournalUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	entryRepo EntryRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
) *JournalUseCase {
	return &JournalUseCase{
		base: base{
			txManager:  txManager,
			outboxRepo: outboxRepo,
			auditRepo:  auditRepo,
			idGen:      idGen,
			logger:     zerolog.Nop(),
		},
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		entryRepo:       entryRepo,
	}
}

// WithRetrier enables retries on transient database errors.
func (uc *JournalUseCase) WithRetrier(r Retrier) *JournalUseCase {
	uc.retrier = r
	return uc
}

// WithMetrics enables Prometheus metrics.
func (uc *JournalUseCase) WithMetrics(m *metrics.Metrics) *JournalUseCase {
	uc.metrics = m
	return uc
}

// WithLogger sets the logger.
func (uc *JournalUseCase) WithLogger(l zerolog.Logger) *JournalUseCase {
	uc.logger = l
	return uc
}

// WithCache sets the balance cache to invalidate after every post or reversal.
func (uc *JournalUseCase) WithCache(c BalanceCache) *JournalUseCase {
	uc.cache = c
	return uc
}

// EntryInput is one leg of a journal entry request.
type EntryInput struct {
	AccountID   string
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// CreateJournalEntryInput represents input for creating a journal transaction.
type CreateJournalEntryInput struct {
	CompanyID   string
	Date        time.Time
	Description string
	Reference   domain.Reference
	Entries     []EntryInput
	AutoPost    bool
}

// CreateJournalEntry validates and stores a transaction with its entries in one unit of work.
func (uc *JournalUseCase) CreateJournalEntry(ctx context.Context, input CreateJournalEntryInput) (*domain.Transaction, error) {
	start := time.Now()

	transaction, err := uc.prepare(ctx, input)
	if err != nil {
		uc.observeError(err)
		return nil, err
	}

	err = uc.inTx(ctx, PostingTimeout, func(txCtx context.Context, tx Transaction) error {
		return uc.createInTx(txCtx, tx, transaction)
	})
	if err != nil {
		uc.observeError(err)
		return nil, err
	}

	uc.afterCommit(ctx, transaction, start, true)
	return transaction, nil
}

// prepare builds the transaction from input and checks every referenced account.
// Nothing is written.
func (uc *JournalUseCase) prepare(ctx context.Context, input CreateJournalEntryInput) (*domain.Transaction, error) {
	if err := requireCompany(input.CompanyID); err != nil {
		return nil, err
	}
	if input.Reference.Type == "" {
		input.Reference.Type = domain.ReferenceManual
	}
	description := strings.TrimSpace(input.Description)
	if err := domain.ValidateDescription(description); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	transaction := &domain.Transaction{
		ID:          uc.idGen.Generate(),
		CompanyID:   input.CompanyID,
		Date:        domain.DateOnly(input.Date),
		Description: description,
		Reference:   input.Reference,
		Status:      domain.TransactionStatusDraft,
		CreatedAt:   now,
	}
	for _, e := range input.Entries {
		transaction.Entries = append(transaction.Entries, &domain.TransactionEntry{
			ID:            uc.idGen.Generate(),
			TransactionID: transaction.ID,
			AccountID:     e.AccountID,
			Description:   strings.TrimSpace(e.Description),
			Debit:         e.Debit,
			Credit:        e.Credit,
			CreatedAt:     now,
		})
	}

	if err := transaction.Validate(); err != nil {
		return nil, err
	}

	if err := uc.checkAccounts(ctx, input.CompanyID, transaction.AccountIDs()); err != nil {
		return nil, err
	}

	if input.AutoPost {
		transaction.Status = domain.TransactionStatusPosted
		transaction.PostedAt = &now
	}
	return transaction, nil
}

func (uc *JournalUseCase) checkAccounts(ctx context.Context, companyID string, ids []string) error {
	accounts, err := uc.accountRepo.GetByIDs(ctx, companyID, ids)
	if err != nil {
		return err
	}
	byID := make(map[string]*domain.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	for _, id := range ids {
		a, ok := byID[id]
		if !ok {
			return domain.NewNotFoundError("account", id)
		}
		if !a.IsActive {
			return domain.NewValidationError("account_id", fmt.Sprintf("account %s is inactive", a.Code))
		}
	}
	return nil
}

// createInTx numbers and stores a prepared transaction inside an open unit of work.
func (uc *JournalUseCase) createInTx(ctx context.Context, tx Transaction, transaction *domain.Transaction) error {
	number, err := uc.transactionRepo.NextNumber(ctx, tx, transaction.CompanyID)
	if err != nil {
		return fmt.Errorf("failed to allocate transaction number: %w", err)
	}
	transaction.Number = number

	if err := uc.transactionRepo.Create(ctx, tx, transaction); err != nil {
		return err
	}
	if err := uc.entryRepo.CreateBatch(ctx, tx, transaction.Entries); err != nil {
		return err
	}

	if err := uc.audit(ctx, tx, transaction.CompanyID, domain.AuditActionTransactionCreate, "transaction", transaction.ID, nil, transaction); err != nil {
		return err
	}

	if transaction.Status == domain.TransactionStatusPosted {
		return uc.emitPosted(ctx, tx, transaction)
	}
	return nil
}

func (uc *JournalUseCase) emitPosted(ctx context.Context, tx Transaction, t *domain.Transaction) error {
	return uc.emit(ctx, tx, t.CompanyID, domain.AggregateTypeTransaction, t.ID, domain.EventTypeTransactionPosted, map[string]any{
		"transaction_id": t.ID,
		"number":         t.Number,
		"date":           t.Date.Format(time.DateOnly),
		"reference_type": string(t.Reference.Type),
		"total":          t.Total().StringFixed(domain.CentsPlaces),
		"account_ids":    t.AccountIDs(),
	})
}

// PostTransaction moves a draft transaction to posted.
func (uc *JournalUseCase) PostTransaction(ctx context.Context, companyID, id string) (*domain.Transaction, error) {
	start := time.Now()
	var transaction *domain.Transaction

	err := uc.inTx(ctx, PostingTimeout, func(txCtx context.Context, tx Transaction) error {
		t, err := uc.transactionRepo.GetByIDForUpdate(txCtx, tx, companyID, id)
		if err != nil {
			return err
		}
		if err := t.CanPost(); err != nil {
			return err
		}
		if err := uc.checkAccounts(txCtx, companyID, t.AccountIDs()); err != nil {
			return err
		}

		before := *t
		now := time.Now().UTC()
		if err := uc.transactionRepo.MarkPosted(txCtx, tx, t.ID, now); err != nil {
			return err
		}
		t.Status = domain.TransactionStatusPosted
		t.PostedAt = &now

		if err := uc.emitPosted(txCtx, tx, t); err != nil {
			return err
		}
		if err := uc.audit(txCtx, tx, companyID, domain.AuditActionTransactionPost, "transaction", t.ID, before, t); err != nil {
			return err
		}
		transaction = t
		return nil
	})
	if err != nil {
		uc.observeError(err)
		return nil, err
	}

	uc.afterCommit(ctx, transaction, start, false)
	return transaction, nil
}

// ReverseTransactionInput represents input for reversing a posted transaction.
type ReverseTransactionInput struct {
	CompanyID     string
	TransactionID string
	// Date of the reversal; today when nil.
	Date   *time.Time
	Reason string
}

// ReverseTransaction books a mirror of a posted transaction and links the two.
func (uc *JournalUseCase) ReverseTransaction(ctx context.Context, input ReverseTransactionInput) (*domain.Transaction, error) {
	start := time.Now()
	reason := strings.TrimSpace(input.Reason)
	if err := domain.ValidateDescription(reason); err != nil {
		return nil, err
	}

	date := today()
	if input.Date != nil {
		date = domain.DateOnly(*input.Date)
	}

	var reversal *domain.Transaction
	err := uc.inTx(ctx, PostingTimeout, func(txCtx context.Context, tx Transaction) error {
		original, err := uc.transactionRepo.GetByIDForUpdate(txCtx, tx, input.CompanyID, input.TransactionID)
		if err != nil {
			return err
		}
		if err := original.CanReverse(); err != nil {
			return err
		}
		if date.Before(original.Date) {
			return domain.NewValidationError("date", "reversal cannot be dated before the original transaction")
		}

		before := *original
		now := time.Now().UTC()
		r := &domain.Transaction{
			ID:          uc.idGen.Generate(),
			CompanyID:   original.CompanyID,
			Date:        date,
			Description: reversalDescription(original, reason),
			Reference:   original.Reference,
			Status:      domain.TransactionStatusPosted,
			ReversesID:  &original.ID,
			CreatedAt:   now,
			PostedAt:    &now,
		}
		r.Entries = original.MirrorEntries(uc.idGen.Generate, r.ID, now)

		if err := uc.createInTx(txCtx, tx, r); err != nil {
			return err
		}
		if err := uc.transactionRepo.MarkReversed(txCtx, tx, original.ID, r.ID); err != nil {
			return err
		}
		original.Status = domain.TransactionStatusReversed
		original.ReversedByID = &r.ID

		if err := uc.emit(txCtx, tx, original.CompanyID, domain.AggregateTypeTransaction, original.ID, domain.EventTypeTransactionReversed, map[string]any{
			"transaction_id": original.ID,
			"reversal_id":    r.ID,
			"reason":         reason,
			"account_ids":    original.AccountIDs(),
		}); err != nil {
			return err
		}
		if err := uc.audit(txCtx, tx, original.CompanyID, domain.AuditActionTransactionReverse, "transaction", original.ID, before, original); err != nil {
			return err
		}

		reversal = r
		return nil
	})
	if err != nil {
		uc.observeError(err)
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.TransactionsReversed.Inc()
	}
	uc.afterCommit(ctx, reversal, start, true)

	uc.logger.Info().
		Str("company_id", input.CompanyID).
		Str("transaction_id", input.TransactionID).
		Str("reversal_id", reversal.ID).
		Msg("transaction reversed")

	return reversal, nil
}

func reversalDescription(original *domain.Transaction, reason string) string {
	desc := fmt.Sprintf("Reversal of #%d", original.Number)
	if reason != "" {
		desc += ": " + reason
	}
	if len(desc) > domain.MaxDescriptionLength {
		desc = desc[:domain.MaxDescriptionLength]
	}
	return desc
}

// GetTransaction retrieves a transaction with its entries.
func (uc *JournalUseCase) GetTransaction(ctx context.Context, companyID, id string) (*domain.Transaction, error) {
	return uc.transactionRepo.GetByID(ctx, companyID, id)
}

// ListTransactionsInput represents input for listing transactions.
type ListTransactionsInput struct {
	CompanyID string
	Filter    domain.TransactionFilter
	Limit     int
	Offset    int
}

// ListTransactions lists transactions newest first.
func (uc *JournalUseCase) ListTransactions(ctx context.Context, input ListTransactionsInput) ([]*domain.Transaction, error) {
	if err := requireCompany(input.CompanyID); err != nil {
		return nil, err
	}
	f := input.Filter
	if f.Status != "" && f.Status != domain.TransactionStatusDraft && f.Status != domain.TransactionStatusPosted && f.Status != domain.TransactionStatusReversed {
		return nil, domain.NewValidationError("status", "unknown status "+string(f.Status))
	}
	if f.ReferenceType != "" && !f.ReferenceType.IsValid() {
		return nil, domain.NewValidationError("reference_type", "unknown reference type "+string(f.ReferenceType))
	}
	if f.From != nil && f.To != nil {
		if err := domain.ValidateDateRange(*f.From, *f.To); err != nil {
			return nil, err
		}
	}
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)
	return uc.transactionRepo.List(ctx, input.CompanyID, f, limit, offset)
}

// PostingResult is the outcome of one posting template.
type PostingResult struct {
	Template    string
	Transaction *domain.Transaction
	// Skipped is set when an optional template could not resolve its accounts.
	Skipped bool
	Reason  string
}

// PostTemplate resolves a template's accounts by code and books it as a posted transaction.
func (uc *JournalUseCase) PostTemplate(ctx context.Context, companyID string, template domain.PostingTemplate) (*PostingResult, error) {
	if err := requireCompany(companyID); err != nil {
		return nil, err
	}

	index, err := uc.accountRepo.CodeIndex(ctx, companyID)
	if err != nil {
		return nil, err
	}

	result := &PostingResult{Template: template.Kind()}

	accounts, err := index.Resolve(template.RequiredCodes()...)
	if err != nil {
		if template.Optional() && domain.IsConfiguration(err) {
			uc.logger.Warn().
				Err(err).
				Str("company_id", companyID).
				Str("template", template.Kind()).
				Msg("optional posting skipped")
			if uc.metrics != nil {
				uc.metrics.TemplatesSkipped.WithLabelValues(template.Kind()).Inc()
			}
			result.Skipped = true
			result.Reason = err.Error()
			return result, nil
		}
		uc.observeError(err)
		return nil, err
	}

	lines, err := template.Lines(accounts)
	if err != nil {
		uc.observeError(err)
		return nil, err
	}

	input := CreateJournalEntryInput{
		CompanyID:   companyID,
		Date:        template.EventDate(),
		Description: template.Description(),
		Reference:   template.Reference(),
		AutoPost:    true,
	}
	for _, line := range lines {
		account, ok := accounts[line.AccountCode]
		if !ok {
			err := &domain.ConfigurationError{MissingCodes: []string{line.AccountCode}}
			uc.observeError(err)
			return nil, err
		}
		input.Entries = append(input.Entries, EntryInput{
			AccountID:   account.ID,
			Description: line.Description,
			Debit:       line.Debit,
			Credit:      line.Credit,
		})
	}

	transaction, err := uc.CreateJournalEntry(ctx, input)
	if err != nil {
		return nil, err
	}
	result.Transaction = transaction
	return result, nil
}

// PostTemplates books several templates for one business event. Each template is its own
// unit of work, so a skipped optional template never blocks the others.
func (uc *JournalUseCase) PostTemplates(ctx context.Context, companyID string, templates ...domain.PostingTemplate) ([]*PostingResult, error) {
	results := make([]*PostingResult, 0, len(templates))
	for _, t := range templates {
		r, err := uc.PostTemplate(ctx, companyID, t)
		if err != nil {
			return results, fmt.Errorf("%s: %w", t.Kind(), err)
		}
		results = append(results, r)
	}
	return results, nil
}

func (uc *JournalUseCase) afterCommit(ctx context.Context, t *domain.Transaction, start time.Time, created bool) {
	if uc.metrics != nil {
		uc.metrics.PostingDuration.Observe(time.Since(start).Seconds())
		if created {
			uc.metrics.TransactionsCreated.WithLabelValues(string(t.Reference.Type)).Inc()
		}
		if t.Status == domain.TransactionStatusPosted {
			uc.metrics.TransactionsPosted.Inc()
		}
	}

	if t.Status == domain.TransactionStatusPosted {
		uc.invalidate(ctx, t.CompanyID, t.AccountIDs())
	}
}

func (uc *JournalUseCase) invalidate(ctx context.Context, companyID string, accountIDs []string) {
	if uc.cache == nil || len(accountIDs) == 0 {
		return
	}
	if err := uc.cache.Invalidate(ctx, companyID, accountIDs); err != nil {
		uc.logger.Warn().Err(err).Str("company_id", companyID).Msg("balance cache invalidation failed")
	}
}

func (uc *JournalUseCase) observeError(err error) {
	if uc.metrics != nil {
		uc.metrics.PostingErrors.WithLabelValues(errorKind(err)).Inc()
	}
}
