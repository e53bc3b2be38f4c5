package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/infrastructure/metrics"
)

// DefaultStatementFormat is the parser used when an import names none.
const DefaultStatementFormat = "generic"

// StatementUseCase imports and manages bank statement lines.
type StatementUseCase struct {
	base
	accountRepo   AccountRepository
	statementRepo StatementRepository
	batchRepo     ImportBatchRepository
	parsers       ParserRegistry
	maxRows       int
}

// NewStatementUseCase creates a new StatementUseCase.
func NewStatementUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	statementRepo StatementRepository,
	batchRepo ImportBatchRepository,
	parsers ParserRegistry,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
) *StatementUseCase {
	return &StatementUseCase{
		base: base{
			txManager:  txManager,
			outboxRepo: outboxRepo,
			auditRepo:  auditRepo,
			idGen:      idGen,
			logger:     zerolog.Nop(),
		},
		accountRepo:   accountRepo,
		statementRepo: statementRepo,
		batchRepo:     batchRepo,
		parsers:       parsers,
		maxRows:       DefaultMaxImportRows,
	}
}

// WithMaxRows caps the number of rows a single import may carry.
func (uc *StatementUseCase) WithMaxRows(n int) *StatementUseCase {
	if n > 0 {
		uc.maxRows = n
	}
	return uc
}

// WithRetrier enables retries on transient database errors.
func (uc *StatementUseCase) WithRetrier(r Retrier) *StatementUseCase {
	uc.retrier = r
	return uc
}

// WithMetrics enables Prometheus metrics.
func (uc *StatementUseCase) WithMetrics(m *metrics.Metrics) *StatementUseCase {
	uc.metrics = m
	return uc
}

// WithLogger sets the logger.
func (uc *StatementUseCase) WithLogger(l zerolog.Logger) *StatementUseCase {
	uc.logger = l
	return uc
}

// ImportStatementInput represents input for a statement import.
type ImportStatementInput struct {
	CompanyID     string
	BankAccountID string
	// Source is a free-form label such as the uploaded file name.
	Source     string
	Format     string
	Mapping    *ColumnMapping
	DateLayout string
	Data       io.Reader
}

// ImportResult reports what an import stored.
type ImportResult struct {
	Batch   *domain.StatementImportBatch
	Entries []*domain.BankStatementEntry
}

// ImportStatement parses a statement file and stores its lines. Lines already stored,
// or repeated within the file, are counted as duplicates. Rows that fail to parse are
// reported on the batch and do not block the rest.
func (uc *StatementUseCase) ImportStatement(ctx context.Context, input ImportStatementInput) (*ImportResult, error) {
	start := time.Now()

	if err := requireCompany(input.CompanyID); err != nil {
		return nil, err
	}
	bankAccountID := strings.TrimSpace(input.BankAccountID)
	if bankAccountID == "" {
		return nil, domain.NewValidationError("bank_account_id", "bank account is required")
	}
	if input.Data == nil {
		return nil, domain.NewValidationError("file", "statement data is required")
	}
	if _, err := uc.accountRepo.GetByBankAccountID(ctx, input.CompanyID, bankAccountID); err != nil {
		return nil, err
	}

	format := strings.ToLower(strings.TrimSpace(input.Format))
	if format == "" {
		format = DefaultStatementFormat
	}
	parser, err := uc.parsers.Get(format)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(input.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to read statement: %w", err)
	}

	parsed, err := parser.Parse(ctx, data, ParseOptions{
		Mapping:    input.Mapping,
		DateLayout: input.DateLayout,
		MaxRows:    uc.maxRows,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	batch := &domain.StatementImportBatch{
		ID:            uc.idGen.Generate(),
		CompanyID:     input.CompanyID,
		BankAccountID: bankAccountID,
		Source:        strings.TrimSpace(input.Source),
		Format:        format,
		RowsTotal:     len(parsed.Rows) + len(parsed.RowErrors),
		RowErrors:     append([]domain.RowError(nil), parsed.RowErrors...),
		CreatedAt:     now,
	}

	seen := make(map[domain.DedupeKey]bool, len(parsed.Rows))
	candidates := make([]*domain.BankStatementEntry, 0, len(parsed.Rows))
	inFileDuplicates := 0
	for _, row := range parsed.Rows {
		entry := &domain.BankStatementEntry{
			ID:             uc.idGen.Generate(),
			CompanyID:      input.CompanyID,
			BankAccountID:  bankAccountID,
			ImportBatchID:  &batch.ID,
			ValueDate:      domain.DateOnly(row.ValueDate),
			PostingDate:    normalizeDate(row.PostingDate),
			Amount:         row.Amount,
			Reference:      strings.TrimSpace(row.Reference),
			Description:    strings.TrimSpace(row.Description),
			RunningBalance: row.RunningBalance,
			Status:         domain.StatementStatusPending,
			CreatedAt:      now,
		}
		if err := entry.Validate(); err != nil {
			batch.RowErrors = append(batch.RowErrors, domain.RowError{Line: row.Line, Reason: err.Error()})
			continue
		}
		key := entry.DedupeKey()
		if seen[key] {
			inFileDuplicates++
			continue
		}
		seen[key] = true
		candidates = append(candidates, entry)
	}

	var stored []*domain.BankStatementEntry
	err = uc.inTx(ctx, ImportTimeout, func(txCtx context.Context, tx Transaction) error {
		stored = stored[:0]
		batch.RowsImported = 0
		batch.RowsDuplicate = inFileDuplicates

		if err := uc.batchRepo.Create(txCtx, tx, batch); err != nil {
			return err
		}

		for _, entry := range candidates {
			inserted, err := uc.statementRepo.Insert(txCtx, tx, entry)
			if err != nil {
				return err
			}
			if !inserted {
				batch.RowsDuplicate++
				continue
			}
			batch.RowsImported++
			stored = append(stored, entry)
		}

		if err := uc.batchRepo.UpdateCounts(txCtx, tx, batch); err != nil {
			return err
		}

		if err := uc.emit(txCtx, tx, input.CompanyID, domain.AggregateTypeImportBatch, batch.ID, domain.EventTypeStatementImported, map[string]any{
			"batch_id":        batch.ID,
			"bank_account_id": bankAccountID,
			"rows_total":      batch.RowsTotal,
			"rows_imported":   batch.RowsImported,
			"rows_duplicate":  batch.RowsDuplicate,
			"rows_errored":    len(batch.RowErrors),
		}); err != nil {
			return err
		}

		return uc.audit(txCtx, tx, input.CompanyID, domain.AuditActionStatementImport, "statement_import_batch", batch.ID, nil, map[string]any{
			"source":         batch.Source,
			"format":         batch.Format,
			"rows_imported":  batch.RowsImported,
			"rows_duplicate": batch.RowsDuplicate,
			"rows_errored":   len(batch.RowErrors),
		})
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.ImportDuration.Observe(time.Since(start).Seconds())
		uc.metrics.StatementRowsImported.Add(float64(batch.RowsImported))
		uc.metrics.StatementRowsDuplicate.Add(float64(batch.RowsDuplicate))
		uc.metrics.StatementRowsErrored.Add(float64(len(batch.RowErrors)))
	}

	logEvent := uc.logger.Info()
	if len(batch.RowErrors) > 0 {
		logEvent = uc.logger.Warn()
	}
	logEvent.
		Str("company_id", input.CompanyID).
		Str("bank_account_id", bankAccountID).
		Str("batch_id", batch.ID).
		Int("imported", batch.RowsImported).
		Int("duplicates", batch.RowsDuplicate).
		Int("errors", len(batch.RowErrors)).
		Msg("statement imported")

	return &ImportResult{Batch: batch, Entries: stored}, nil
}

// ListStatementEntriesInput represents input for listing statement lines.
type ListStatementEntriesInput struct {
	CompanyID string
	Filter    domain.StatementFilter
	Limit     int
	Offset    int
}

// ListStatementEntries lists statement lines by value date.
func (uc *StatementUseCase) ListStatementEntries(ctx context.Context, input ListStatementEntriesInput) ([]*domain.BankStatementEntry, error) {
	if err := requireCompany(input.CompanyID); err != nil {
		return nil, err
	}
	f := input.Filter
	if f.Status != "" && !f.Status.IsValid() {
		return nil, domain.NewValidationError("status", "unknown status "+string(f.Status))
	}
	if f.From != nil && f.To != nil {
		if err := domain.ValidateDateRange(*f.From, *f.To); err != nil {
			return nil, err
		}
	}
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)
	return uc.statementRepo.List(ctx, input.CompanyID, f, limit, offset)
}

// GetStatementEntry retrieves a statement line.
func (uc *StatementUseCase) GetStatementEntry(ctx context.Context, companyID, id string) (*domain.BankStatementEntry, error) {
	return uc.statementRepo.GetByID(ctx, companyID, id)
}

// DisputeStatementEntry flags a pending line as disputed with the bank.
func (uc *StatementUseCase) DisputeStatementEntry(ctx context.Context, companyID, id string) (*domain.BankStatementEntry, error) {
	return transitionStatement(ctx, &uc.base, uc.statementRepo, companyID, id, domain.StatementStatusDisputed, domain.AuditActionStatementDispute)
}

// ReopenStatementEntry returns a disputed or confirmed-unmatched line to pending.
// Matched lines go back through Unmatch instead.
func (uc *StatementUseCase) ReopenStatementEntry(ctx context.Context, companyID, id string) (*domain.BankStatementEntry, error) {
	return transitionStatement(ctx, &uc.base, uc.statementRepo, companyID, id, domain.StatementStatusPending, domain.AuditActionStatementReopen)
}

// ListImportBatches lists the imports of a bank account, newest first.
func (uc *StatementUseCase) ListImportBatches(ctx context.Context, companyID, bankAccountID string, limit, offset int) ([]*domain.StatementImportBatch, error) {
	if err := requireCompany(companyID); err != nil {
		return nil, err
	}
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.batchRepo.List(ctx, companyID, bankAccountID, limit, offset)
}

// transitionStatement moves a line between non-matched statuses under a row lock.
func transitionStatement(
	ctx context.Context,
	b *base,
	repo StatementRepository,
	companyID, id string,
	to domain.StatementStatus,
	action domain.AuditAction,
) (*domain.BankStatementEntry, error) {
	var entry *domain.BankStatementEntry

	err := b.inTx(ctx, PostingTimeout, func(txCtx context.Context, tx Transaction) error {
		e, err := repo.GetByIDForUpdate(txCtx, tx, companyID, id)
		if err != nil {
			return err
		}
		if e.Status == domain.StatementStatusMatched {
			return domain.NewConflictError("bank statement entry", "entry is matched; unmatch it first")
		}
		if !e.Status.CanTransition(to) {
			return domain.NewConflictError("bank statement entry", fmt.Sprintf("cannot move from %s to %s", e.Status, to))
		}

		ok, err := repo.Transition(txCtx, tx, e.ID, e.Status, to)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NewConflictError("bank statement entry", "entry changed concurrently")
		}

		before := *e
		e.Status = to
		if to == domain.StatementStatusPending {
			e.MatchedEntryID = nil
			e.MatchedAt = nil
		}
		if err := b.audit(txCtx, tx, companyID, action, "bank_statement_entry", e.ID, before, e); err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}
