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

// Match methods, used as metric labels and event payloads.
const (
	MatchMethodAuto       = "auto"
	MatchMethodManual     = "manual"
	MatchMethodCategorize = "categorize"
)

// errMatchRaceLost is returned when a compare-and-set on either side of a match finds the row already taken.
var errMatchRaceLost = domain.NewConflictError("match", "entry or statement line was matched concurrently")

// ReconciliationUseCase pairs bank statement lines with ledger entries.
type ReconciliationUseCase struct {
	base
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	entryRepo       EntryRepository
	statementRepo   StatementRepository
	journal         *JournalUseCase
	tolerance       domain.MatchTolerance
}

// NewReconciliationUseCase creates a new ReconciliationUseCase. The journal is used by
// Categorize to book the offsetting transaction in the same unit of work as the match.
func NewReconciliationUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	entryRepo EntryRepository,
	statementRepo StatementRepository,
	journal *JournalUseCase,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
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
		statementRepo:   statementRepo,
		journal:         journal,
		tolerance:       domain.DefaultMatchTolerance(),
	}
}

// WithTolerance sets the default auto-match tolerance.
func (uc *ReconciliationUseCase) WithTolerance(t domain.MatchTolerance) *ReconciliationUseCase {
	uc.tolerance = t
	return uc
}

// WithRetrier enables retries on transient database errors.
func (uc *ReconciliationUseCase) WithRetrier(r Retrier) *ReconciliationUseCase {
	uc.retrier = r
	return uc
}

// WithMetrics enables Prometheus metrics.
func (uc *ReconciliationUseCase) WithMetrics(m *metrics.Metrics) *ReconciliationUseCase {
	uc.metrics = m
	return uc
}

// WithLogger sets the logger.
func (uc *ReconciliationUseCase) WithLogger(l zerolog.Logger) *ReconciliationUseCase {
	uc.logger = l
	return uc
}

// AutoMatchInput represents input for an auto-match pass.
type AutoMatchInput struct {
	CompanyID     string
	BankAccountID string
	// Tolerance overrides the configured default when set.
	Tolerance *domain.MatchTolerance
}

// AutoMatchResult reports an auto-match pass.
type AutoMatchResult struct {
	Matched       []domain.MatchPair
	UnmatchedBook []domain.BookCandidate
	UnmatchedBank []*domain.BankStatementEntry
	// Contended pairs lost a race to a concurrent matcher; both sides stay open for the next pass.
	Contended []domain.MatchPair
}

// AutoMatch pairs pending statement lines with unreconciled entries on the bank's ledger account.
// Each pair commits on its own, so a pass interrupted by an error keeps the pairs already stored.
func (uc *ReconciliationUseCase) AutoMatch(ctx context.Context, input AutoMatchInput) (*AutoMatchResult, error) {
	if err := requireCompany(input.CompanyID); err != nil {
		return nil, err
	}
	tol := uc.tolerance
	if input.Tolerance != nil {
		tol = *input.Tolerance
	}
	if err := tol.Validate(); err != nil {
		return nil, err
	}

	account, err := uc.accountRepo.GetByBankAccountID(ctx, input.CompanyID, input.BankAccountID)
	if err != nil {
		return nil, err
	}

	book, err := uc.entryRepo.ListUnreconciled(ctx, input.CompanyID, account.ID)
	if err != nil {
		return nil, err
	}
	bank, err := uc.statementRepo.ListPending(ctx, input.CompanyID, input.BankAccountID)
	if err != nil {
		return nil, err
	}

	plan := domain.MatchGreedy(book, bank, tol)
	result := &AutoMatchResult{
		UnmatchedBook: plan.UnmatchedBook,
		UnmatchedBank: plan.UnmatchedBank,
	}

	for _, pair := range plan.Pairs {
		err := uc.inTx(ctx, PostingTimeout, func(txCtx context.Context, tx Transaction) error {
			return uc.matchInTx(txCtx, tx, input.CompanyID, pair.Book.Entry, pair.Bank, nil, MatchMethodAuto)
		})
		if errors.Is(err, errMatchRaceLost) {
			result.Contended = append(result.Contended, pair)
			uc.logger.Warn().
				Str("company_id", input.CompanyID).
				Str("statement_entry_id", pair.Bank.ID).
				Str("transaction_entry_id", pair.Book.Entry.ID).
				Msg("auto-match pair taken concurrently; skipped")
			if uc.metrics != nil {
				uc.metrics.MatchRacesLost.Inc()
			}
			continue
		}
		if err != nil {
			return result, err
		}
		result.Matched = append(result.Matched, pair)
	}

	if uc.metrics != nil {
		uc.metrics.Matches.WithLabelValues(MatchMethodAuto).Add(float64(len(result.Matched)))
		uc.metrics.UnmatchedEntries.WithLabelValues("book").Set(float64(len(result.UnmatchedBook)))
		uc.metrics.UnmatchedEntries.WithLabelValues("bank").Set(float64(len(result.UnmatchedBank)))
	}

	uc.logger.Info().
		Str("company_id", input.CompanyID).
		Str("bank_account_id", input.BankAccountID).
		Int("matched", len(result.Matched)).
		Int("unmatched_book", len(result.UnmatchedBook)).
		Int("unmatched_bank", len(result.UnmatchedBank)).
		Int("contended", len(result.Contended)).
		Msg("auto-match completed")

	return result, nil
}

// ManualMatch pairs a pending statement line with a specific ledger entry.
func (uc *ReconciliationUseCase) ManualMatch(ctx context.Context, companyID, statementEntryID, transactionEntryID string) (*domain.BankStatementEntry, error) {
	var matched *domain.BankStatementEntry

	err := uc.inTx(ctx, PostingTimeout, func(txCtx context.Context, tx Transaction) error {
		line, err := uc.statementRepo.GetByIDForUpdate(txCtx, tx, companyID, statementEntryID)
		if err != nil {
			return err
		}
		if line.Status != domain.StatementStatusPending {
			return domain.ErrStatementNotPending
		}

		account, err := uc.accountRepo.GetByBankAccountID(txCtx, companyID, line.BankAccountID)
		if err != nil {
			return err
		}
		entry, err := uc.entryRepo.GetByID(txCtx, companyID, transactionEntryID)
		if err != nil {
			return err
		}
		if entry.AccountID != account.ID {
			return domain.ErrEntryNotOnBankAccount
		}
		if entry.IsReconciled {
			return domain.ErrEntryAlreadyReconciled
		}

		t, err := uc.transactionRepo.GetByID(txCtx, companyID, entry.TransactionID)
		if err != nil {
			return err
		}
		if err := t.CanMatch(); err != nil {
			return err
		}

		if err := uc.matchInTx(txCtx, tx, companyID, entry, line, nil, MatchMethodManual); err != nil {
			return err
		}
		matched = line
		return nil
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.Matches.WithLabelValues(MatchMethodManual).Inc()
	}
	return matched, nil
}

// matchInTx reconciles both sides with compare-and-set updates and refreshes the transaction flag.
// line is updated in place on success.
func (uc *ReconciliationUseCase) matchInTx(
	ctx context.Context,
	tx Transaction,
	companyID string,
	entry *domain.TransactionEntry,
	line *domain.BankStatementEntry,
	createdTransactionID *string,
	method string,
) error {
	now := time.Now().UTC()

	ok, err := uc.entryRepo.MarkReconciled(ctx, tx, entry.ID, line.ValueDate, line.Reference, now)
	if err != nil {
		return err
	}
	if !ok {
		return errMatchRaceLost
	}

	ok, err = uc.statementRepo.MarkMatched(ctx, tx, line.ID, entry.ID, createdTransactionID, now)
	if err != nil {
		return err
	}
	if !ok {
		return errMatchRaceLost
	}

	if err := uc.transactionRepo.RefreshReconciled(ctx, tx, entry.TransactionID); err != nil {
		return err
	}

	before := *line
	line.Status = domain.StatementStatusMatched
	line.MatchedEntryID = &entry.ID
	line.MatchedAt = &now
	if createdTransactionID != nil {
		line.CreatedTransactionID = createdTransactionID
	}

	if err := uc.emit(ctx, tx, companyID, domain.AggregateTypeStatementEntry, line.ID, domain.EventTypeStatementMatched, map[string]any{
		"statement_entry_id":   line.ID,
		"bank_account_id":      line.BankAccountID,
		"transaction_entry_id": entry.ID,
		"transaction_id":       entry.TransactionID,
		"amount":               line.Amount.StringFixed(domain.CentsPlaces),
		"method":               method,
	}); err != nil {
		return err
	}

	return uc.audit(ctx, tx, companyID, domain.AuditActionStatementMatch, "bank_statement_entry", line.ID, before, map[string]any{
		"status":               string(line.Status),
		"transaction_entry_id": entry.ID,
		"method":               method,
	})
}

// Unmatch returns a matched statement line and its ledger entry to the open state.
// A transaction booked by Categorize stays in the ledger; reverse it separately if it was wrong.
func (uc *ReconciliationUseCase) Unmatch(ctx context.Context, companyID, statementEntryID string) (*domain.BankStatementEntry, error) {
	var line *domain.BankStatementEntry

	err := uc.inTx(ctx, PostingTimeout, func(txCtx context.Context, tx Transaction) error {
		l, err := uc.statementRepo.GetByIDForUpdate(txCtx, tx, companyID, statementEntryID)
		if err != nil {
			return err
		}
		if l.Status != domain.StatementStatusMatched || l.MatchedEntryID == nil {
			return domain.ErrStatementNotMatched
		}

		entry, err := uc.entryRepo.GetByID(txCtx, companyID, *l.MatchedEntryID)
		if err != nil {
			return err
		}
		if err := uc.entryRepo.ClearReconciled(txCtx, tx, entry.ID); err != nil {
			return err
		}

		ok, err := uc.statementRepo.Transition(txCtx, tx, l.ID, domain.StatementStatusMatched, domain.StatementStatusPending)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrStatementNotMatched
		}

		if err := uc.transactionRepo.RefreshReconciled(txCtx, tx, entry.TransactionID); err != nil {
			return err
		}

		before := *l
		l.Status = domain.StatementStatusPending
		l.MatchedEntryID = nil
		l.MatchedAt = nil

		if err := uc.emit(txCtx, tx, companyID, domain.AggregateTypeStatementEntry, l.ID, domain.EventTypeStatementUnmatched, map[string]any{
			"statement_entry_id":   l.ID,
			"bank_account_id":      l.BankAccountID,
			"transaction_entry_id": entry.ID,
			"transaction_id":       entry.TransactionID,
		}); err != nil {
			return err
		}
		if err := uc.audit(txCtx, tx, companyID, domain.AuditActionStatementUnmatch, "bank_statement_entry", l.ID, before, l); err != nil {
			return err
		}
		line = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// CategorizeInput represents input for booking a statement line that has no ledger counterpart.
type CategorizeInput struct {
	CompanyID        string
	StatementEntryID string
	// One of AccountID or AccountCode names the offset account, e.g. bank charges.
	AccountID   string
	AccountCode string
	Description string
}

// CategorizeResult is the booked transaction and the now-matched statement line.
type CategorizeResult struct {
	StatementEntry *domain.BankStatementEntry
	Transaction    *domain.Transaction
}

// Categorize books a statement line against an offset account and matches the line
// to the bank-side entry of the new transaction, all in one unit of work.
func (uc *ReconciliationUseCase) Categorize(ctx context.Context, input CategorizeInput) (*CategorizeResult, error) {
	start := time.Now()
	if err := requireCompany(input.CompanyID); err != nil {
		return nil, err
	}

	offset, err := uc.resolveOffsetAccount(ctx, input)
	if err != nil {
		return nil, err
	}

	var result *CategorizeResult
	err = uc.inTx(ctx, PostingTimeout, func(txCtx context.Context, tx Transaction) error {
		line, err := uc.statementRepo.GetByIDForUpdate(txCtx, tx, input.CompanyID, input.StatementEntryID)
		if err != nil {
			return err
		}
		if line.Status != domain.StatementStatusPending {
			return domain.ErrStatementNotPending
		}

		bankLedger, err := uc.accountRepo.GetByBankAccountID(txCtx, input.CompanyID, line.BankAccountID)
		if err != nil {
			return err
		}
		if bankLedger.ID == offset.ID {
			return domain.NewValidationError("account_id", "offset account must differ from the bank's ledger account")
		}

		description := strings.TrimSpace(input.Description)
		if description == "" {
			description = firstNonBlank(line.Description, line.Reference, "Bank statement line")
		}

		amount := line.Amount.Abs()
		bankLeg := EntryInput{AccountID: bankLedger.ID, Description: description}
		offsetLeg := EntryInput{AccountID: offset.ID, Description: description}
		if line.IsCredit() {
			bankLeg.Debit, offsetLeg.Credit = amount, amount
		} else {
			offsetLeg.Debit, bankLeg.Credit = amount, amount
		}

		t, err := uc.journal.prepare(txCtx, CreateJournalEntryInput{
			CompanyID:   input.CompanyID,
			Date:        line.ValueDate,
			Description: description,
			Reference:   domain.Reference{Type: domain.ReferenceBankImport, ID: &line.ID},
			Entries:     []EntryInput{bankLeg, offsetLeg},
			AutoPost:    true,
		})
		if err != nil {
			return err
		}
		if err := uc.journal.createInTx(txCtx, tx, t); err != nil {
			return err
		}

		var bankEntry *domain.TransactionEntry
		for _, e := range t.Entries {
			if e.AccountID == bankLedger.ID {
				bankEntry = e
				break
			}
		}

		if err := uc.matchInTx(txCtx, tx, input.CompanyID, bankEntry, line, &t.ID, MatchMethodCategorize); err != nil {
			return err
		}
		bankEntry.IsReconciled = true
		t.IsReconciled = true

		if err := uc.emit(txCtx, tx, input.CompanyID, domain.AggregateTypeStatementEntry, line.ID, domain.EventTypeStatementCategorized, map[string]any{
			"statement_entry_id": line.ID,
			"transaction_id":     t.ID,
			"account_id":         offset.ID,
			"account_code":       offset.Code,
		}); err != nil {
			return err
		}
		if err := uc.audit(txCtx, tx, input.CompanyID, domain.AuditActionStatementCategorize, "bank_statement_entry", line.ID, nil, map[string]any{
			"transaction_id": t.ID,
			"account_id":     offset.ID,
		}); err != nil {
			return err
		}

		result = &CategorizeResult{StatementEntry: line, Transaction: t}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.journal.afterCommit(ctx, result.Transaction, start, true)
	if uc.metrics != nil {
		uc.metrics.Matches.WithLabelValues(MatchMethodCategorize).Inc()
	}
	return result, nil
}

func (uc *ReconciliationUseCase) resolveOffsetAccount(ctx context.Context, input CategorizeInput) (*domain.Account, error) {
	switch {
	case input.AccountID != "":
		account, err := uc.accountRepo.GetByID(ctx, input.CompanyID, input.AccountID)
		if err != nil {
			return nil, err
		}
		return account, nil
	case input.AccountCode != "":
		index, err := uc.accountRepo.CodeIndex(ctx, input.CompanyID)
		if err != nil {
			return nil, err
		}
		resolved, err := index.Resolve(input.AccountCode)
		if err != nil {
			return nil, err
		}
		return resolved[input.AccountCode], nil
	}
	return nil, domain.NewValidationError("account_id", "account_id or account_code is required")
}

// ConfirmUnmatched records that no ledger entry is expected for a pending line.
func (uc *ReconciliationUseCase) ConfirmUnmatched(ctx context.Context, companyID, statementEntryID string) (*domain.BankStatementEntry, error) {
	return transitionStatement(ctx, &uc.base, uc.statementRepo, companyID, statementEntryID, domain.StatementStatusUnmatchedConfirmed, domain.AuditActionStatementConfirm)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
