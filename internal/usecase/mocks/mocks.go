package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/usecase"
)

// Store is the shared in-memory state behind the repository mocks, so that a
// transaction written through one mock is visible to the others.
// Writes are not undone on rollback.
type Store struct {
	mu           sync.RWMutex
	Accounts     map[string]*domain.Account
	Transactions map[string]*domain.Transaction
	Entries      map[string]*domain.TransactionEntry
	Statements   map[string]*domain.BankStatementEntry
	Batches      map[string]*domain.StatementImportBatch
	Monthly      map[string]*domain.MonthlyBankReconciliation
	Outbox       []*domain.OutboxEvent
	Audit        []*domain.AuditLog
	counters     map[string]int64
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		Accounts:     make(map[string]*domain.Account),
		Transactions: make(map[string]*domain.Transaction),
		Entries:      make(map[string]*domain.TransactionEntry),
		Statements:   make(map[string]*domain.BankStatementEntry),
		Batches:      make(map[string]*domain.StatementImportBatch),
		Monthly:      make(map[string]*domain.MonthlyBankReconciliation),
		counters:     make(map[string]int64),
	}
}

// AddAccount stores an account directly.
func (s *Store) AddAccount(a *domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *a
	s.Accounts[a.ID] = &c
}

// AddStatement stores a statement line directly.
func (s *Store) AddStatement(e *domain.BankStatementEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *e
	s.Statements[e.ID] = &c
}

// Statement returns a copy of a stored statement line, or nil.
func (s *Store) Statement(id string) *domain.BankStatementEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.Statements[id]; ok {
		c := *e
		return &c
	}
	return nil
}

// Entry returns a copy of a stored transaction entry, or nil.
func (s *Store) Entry(id string) *domain.TransactionEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.Entries[id]; ok {
		c := *e
		return &c
	}
	return nil
}

// Transaction returns a copy of a stored transaction with its entries, or nil.
func (s *Store) Transaction(id string) *domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.Transactions[id]; ok {
		return s.cloneTransaction(t)
	}
	return nil
}

// EventTypes lists the outbox event types in write order.
func (s *Store) EventTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	types := make([]string, 0, len(s.Outbox))
	for _, e := range s.Outbox {
		types = append(types, e.EventType)
	}
	return types
}

// AuditActions lists the audit actions in write order.
func (s *Store) AuditActions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	actions := make([]string, 0, len(s.Audit))
	for _, a := range s.Audit {
		actions = append(actions, a.Action)
	}
	return actions
}

// cloneTransaction copies t and rebuilds its entries from the entry table. Callers hold mu.
func (s *Store) cloneTransaction(t *domain.Transaction) *domain.Transaction {
	c := *t
	c.Entries = nil
	for _, e := range s.Entries {
		if e.TransactionID == t.ID {
			ec := *e
			c.Entries = append(c.Entries, &ec)
		}
	}
	sort.Slice(c.Entries, func(i, j int) bool { return c.Entries[i].ID < c.Entries[j].ID })
	return &c
}

func (s *Store) counts(t *domain.Transaction) bool {
	return t.Status == domain.TransactionStatusPosted || t.Status == domain.TransactionStatusReversed
}

func inRange(d time.Time, from, to *time.Time) bool {
	if from != nil && d.Before(*from) {
		return false
	}
	if to != nil && d.After(*to) {
		return false
	}
	return true
}

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	store *Store

	CreateTxFunc func(ctx context.Context, tx usecase.Transaction, account *domain.Account) error
	GetByIDFunc  func(ctx context.Context, companyID, id string) (*domain.Account, error)
}

func NewMockAccountRepository(store *Store) *MockAccountRepository {
	return &MockAccountRepository{store: store}
}

func (m *MockAccountRepository) CreateTx(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	if m.CreateTxFunc != nil {
		return m.CreateTxFunc(ctx, tx, account)
	}
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.Accounts {
		if a.CompanyID == account.CompanyID && a.Code == account.Code {
			return domain.ErrDuplicateAccountCode
		}
	}
	c := *account
	s.Accounts[account.ID] = &c
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, companyID, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, companyID, id)
	}
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.Accounts[id]; ok && a.CompanyID == companyID {
		c := *a
		return &c, nil
	}
	return nil, domain.NewNotFoundError("account", id)
}

func (m *MockAccountRepository) GetByIDs(ctx context.Context, companyID string, ids []string) ([]*domain.Account, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	var accounts []*domain.Account
	for _, id := range ids {
		if a, ok := s.Accounts[id]; ok && a.CompanyID == companyID {
			c := *a
			accounts = append(accounts, &c)
		}
	}
	return accounts, nil
}

func (m *MockAccountRepository) GetByBankAccountID(ctx context.Context, companyID, bankAccountID string) (*domain.Account, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.Accounts {
		if a.CompanyID == companyID && a.BankAccountID != nil && *a.BankAccountID == bankAccountID {
			c := *a
			return &c, nil
		}
	}
	return nil, domain.NewNotFoundError("bank account link", bankAccountID)
}

func (m *MockAccountRepository) CodeIndex(ctx context.Context, companyID string) (domain.AccountsByCode, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	index := make(domain.AccountsByCode)
	for _, a := range s.Accounts {
		if a.CompanyID == companyID {
			c := *a
			index[a.Code] = &c
		}
	}
	return index, nil
}

func (m *MockAccountRepository) List(ctx context.Context, companyID string, filter domain.AccountFilter, limit, offset int) ([]*domain.Account, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	var accounts []*domain.Account
	for _, a := range s.Accounts {
		if a.CompanyID != companyID || (filter.Type != "" && a.Type != filter.Type) || (!filter.IncludeInactive && !a.IsActive) {
			continue
		}
		c := *a
		accounts = append(accounts, &c)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })
	return page(accounts, limit, offset), nil
}

func (m *MockAccountRepository) SetActive(ctx context.Context, tx usecase.Transaction, companyID, id string, active bool, updatedAt time.Time) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.Accounts[id]
	if !ok || a.CompanyID != companyID {
		return domain.NewNotFoundError("account", id)
	}
	a.IsActive = active
	a.UpdatedAt = updatedAt
	return nil
}

func (m *MockAccountRepository) LinkBankAccount(ctx context.Context, tx usecase.Transaction, companyID, id, bankAccountID string, updatedAt time.Time) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.Accounts[id]
	if !ok || a.CompanyID != companyID {
		return domain.NewNotFoundError("account", id)
	}
	for _, other := range s.Accounts {
		if other.ID != id && other.CompanyID == companyID && other.BankAccountID != nil && *other.BankAccountID == bankAccountID {
			return domain.NewValidationError("bank_account_id", "bank account is already linked to another ledger account")
		}
	}
	a.BankAccountID = &bankAccountID
	a.UpdatedAt = updatedAt
	return nil
}

// MockTransactionRepository is a mock implementation of TransactionRepository.
type MockTransactionRepository struct {
	store *Store

	CreateFunc     func(ctx context.Context, tx usecase.Transaction, transaction *domain.Transaction) error
	NextNumberFunc func(ctx context.Context, tx usecase.Transaction, companyID string) (int64, error)
}

func NewMockTransactionRepository(store *Store) *MockTransactionRepository {
	return &MockTransactionRepository{store: store}
}

func (m *MockTransactionRepository) NextNumber(ctx context.Context, tx usecase.Transaction, companyID string) (int64, error) {
	if m.NextNumberFunc != nil {
		return m.NextNumberFunc(ctx, tx, companyID)
	}
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[companyID]++
	return s.counters[companyID], nil
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, transaction *domain.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, transaction)
	}
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := transaction.OpeningBalanceFor(); ok {
		for _, t := range s.Transactions {
			if other, held := t.OpeningBalanceFor(); held && other == code && t.CompanyID == transaction.CompanyID {
				return domain.ErrOpeningBalanceExists
			}
		}
	}
	c := *transaction
	c.Entries = nil
	s.Transactions[transaction.ID] = &c
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, companyID, id string) (*domain.Transaction, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.Transactions[id]; ok && t.CompanyID == companyID {
		return s.cloneTransaction(t), nil
	}
	return nil, domain.NewNotFoundError("transaction", id)
}

func (m *MockTransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, companyID, id string) (*domain.Transaction, error) {
	return m.GetByID(ctx, companyID, id)
}

func (m *MockTransactionRepository) MarkPosted(ctx context.Context, tx usecase.Transaction, id string, postedAt time.Time) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.Transactions[id]
	if !ok {
		return domain.NewNotFoundError("transaction", id)
	}
	t.Status = domain.TransactionStatusPosted
	t.PostedAt = &postedAt
	return nil
}

func (m *MockTransactionRepository) MarkReversed(ctx context.Context, tx usecase.Transaction, id, reversedByID string) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.Transactions[id]
	if !ok {
		return domain.NewNotFoundError("transaction", id)
	}
	t.Status = domain.TransactionStatusReversed
	t.ReversedByID = &reversedByID
	return nil
}

func (m *MockTransactionRepository) RefreshReconciled(ctx context.Context, tx usecase.Transaction, id string) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.Transactions[id]
	if !ok {
		return domain.NewNotFoundError("transaction", id)
	}
	reconciled, bankLegs := true, 0
	for _, e := range s.Entries {
		if e.TransactionID != id {
			continue
		}
		if a, ok := s.Accounts[e.AccountID]; ok && a.BankAccountID != nil {
			bankLegs++
			reconciled = reconciled && e.IsReconciled
		}
	}
	t.IsReconciled = bankLegs > 0 && reconciled
	return nil
}

func (m *MockTransactionRepository) List(ctx context.Context, companyID string, filter domain.TransactionFilter, limit, offset int) ([]*domain.Transaction, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Transaction
	for _, t := range s.Transactions {
		if t.CompanyID != companyID ||
			(filter.Status != "" && t.Status != filter.Status) ||
			(filter.ReferenceType != "" && t.Reference.Type != filter.ReferenceType) ||
			!inRange(t.Date, filter.From, filter.To) {
			continue
		}
		out = append(out, s.cloneTransaction(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	return page(out, limit, offset), nil
}

// MockEntryRepository is a mock implementation of EntryRepository.
type MockEntryRepository struct {
	store *Store

	SumsFunc           func(ctx context.Context, companyID string, accountIDs []string, from, to *time.Time) (map[string]usecase.EntrySums, error)
	MarkReconciledFunc func(ctx context.Context, tx usecase.Transaction, id string, bankDate time.Time, bankReference string, at time.Time) (bool, error)
}

func NewMockEntryRepository(store *Store) *MockEntryRepository {
	return &MockEntryRepository{store: store}
}

func (m *MockEntryRepository) CreateBatch(ctx context.Context, tx usecase.Transaction, entries []*domain.TransactionEntry) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		c := *e
		s.Entries[e.ID] = &c
	}
	return nil
}

func (m *MockEntryRepository) GetByID(ctx context.Context, companyID, id string) (*domain.TransactionEntry, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.Entries[id]
	if ok {
		if t, found := s.Transactions[e.TransactionID]; found && t.CompanyID == companyID {
			c := *e
			return &c, nil
		}
	}
	return nil, domain.NewNotFoundError("transaction entry", id)
}

func (m *MockEntryRepository) Sums(ctx context.Context, companyID string, accountIDs []string, from, to *time.Time) (map[string]usecase.EntrySums, error) {
	if m.SumsFunc != nil {
		return m.SumsFunc(ctx, companyID, accountIDs, from, to)
	}
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[string]bool, len(accountIDs))
	for _, id := range accountIDs {
		wanted[id] = true
	}
	sums := make(map[string]usecase.EntrySums)
	for _, e := range s.Entries {
		t := s.Transactions[e.TransactionID]
		if t == nil || t.CompanyID != companyID || !s.counts(t) || !wanted[e.AccountID] || !inRange(t.Date, from, to) {
			continue
		}
		cur, ok := sums[e.AccountID]
		if !ok {
			cur = usecase.EntrySums{Debits: decimal.Zero, Credits: decimal.Zero}
		}
		cur.Debits = cur.Debits.Add(e.Debit)
		cur.Credits = cur.Credits.Add(e.Credit)
		sums[e.AccountID] = cur
	}
	return sums, nil
}

func (m *MockEntryRepository) ListForLedger(ctx context.Context, companyID, accountID string, from, to time.Time) ([]domain.LedgerLine, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	var lines []domain.LedgerLine
	for _, e := range s.Entries {
		t := s.Transactions[e.TransactionID]
		if t == nil || t.CompanyID != companyID || !s.counts(t) || e.AccountID != accountID || !inRange(t.Date, &from, &to) {
			continue
		}
		c := *e
		lines = append(lines, domain.LedgerLine{Entry: &c, TransactionNumber: t.Number, Date: t.Date, Description: t.Description})
	}
	sort.Slice(lines, func(i, j int) bool {
		if !lines[i].Date.Equal(lines[j].Date) {
			return lines[i].Date.Before(lines[j].Date)
		}
		if lines[i].TransactionNumber != lines[j].TransactionNumber {
			return lines[i].TransactionNumber < lines[j].TransactionNumber
		}
		return lines[i].Entry.ID < lines[j].Entry.ID
	})
	return lines, nil
}

func (m *MockEntryRepository) ListUnreconciled(ctx context.Context, companyID, accountID string) ([]domain.BookCandidate, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.BookCandidate
	for _, e := range s.Entries {
		t := s.Transactions[e.TransactionID]
		if t == nil || t.CompanyID != companyID || e.AccountID != accountID || e.IsReconciled || t.CanMatch() != nil {
			continue
		}
		c := *e
		out = append(out, domain.BookCandidate{Entry: &c, Date: t.Date})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Entry.ID < out[j].Entry.ID })
	return out, nil
}

func (m *MockEntryRepository) MarkReconciled(ctx context.Context, tx usecase.Transaction, id string, bankDate time.Time, bankReference string, at time.Time) (bool, error) {
	if m.MarkReconciledFunc != nil {
		return m.MarkReconciledFunc(ctx, tx, id, bankDate, bankReference, at)
	}
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.Entries[id]
	if !ok || e.IsReconciled {
		return false, nil
	}
	e.IsReconciled = true
	e.BankDate = &bankDate
	e.BankReference = bankReference
	e.ReconciledAt = &at
	return true, nil
}

func (m *MockEntryRepository) ClearReconciled(ctx context.Context, tx usecase.Transaction, id string) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.Entries[id]
	if !ok {
		return domain.NewNotFoundError("transaction entry", id)
	}
	e.IsReconciled = false
	e.BankDate = nil
	e.BankReference = ""
	e.ReconciledAt = nil
	return nil
}

// MockStatementRepository is a mock implementation of StatementRepository.
type MockStatementRepository struct {
	store *Store

	InsertFunc      func(ctx context.Context, tx usecase.Transaction, entry *domain.BankStatementEntry) (bool, error)
	MarkMatchedFunc func(ctx context.Context, tx usecase.Transaction, id, entryID string, createdTransactionID *string, at time.Time) (bool, error)
}

func NewMockStatementRepository(store *Store) *MockStatementRepository {
	return &MockStatementRepository{store: store}
}

func (m *MockStatementRepository) Insert(ctx context.Context, tx usecase.Transaction, entry *domain.BankStatementEntry) (bool, error) {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, tx, entry)
	}
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entry.DedupeKey()
	for _, e := range s.Statements {
		if e.CompanyID == entry.CompanyID && e.DedupeKey() == key {
			return false, nil
		}
	}
	c := *entry
	s.Statements[entry.ID] = &c
	return true, nil
}

func (m *MockStatementRepository) GetByID(ctx context.Context, companyID, id string) (*domain.BankStatementEntry, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.Statements[id]; ok && e.CompanyID == companyID {
		c := *e
		return &c, nil
	}
	return nil, domain.NewNotFoundError("bank statement entry", id)
}

func (m *MockStatementRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, companyID, id string) (*domain.BankStatementEntry, error) {
	return m.GetByID(ctx, companyID, id)
}

func (m *MockStatementRepository) ListPending(ctx context.Context, companyID, bankAccountID string) ([]*domain.BankStatementEntry, error) {
	return m.List(ctx, companyID, domain.StatementFilter{BankAccountID: bankAccountID, Status: domain.StatementStatusPending}, 0, 0)
}

func (m *MockStatementRepository) List(ctx context.Context, companyID string, filter domain.StatementFilter, limit, offset int) ([]*domain.BankStatementEntry, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.BankStatementEntry
	for _, e := range s.Statements {
		if e.CompanyID != companyID ||
			(filter.BankAccountID != "" && e.BankAccountID != filter.BankAccountID) ||
			(filter.Status != "" && e.Status != filter.Status) ||
			!inRange(e.ValueDate, filter.From, filter.To) {
			continue
		}
		c := *e
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ValueDate.Equal(out[j].ValueDate) {
			return out[i].ValueDate.Before(out[j].ValueDate)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, limit, offset), nil
}

func (m *MockStatementRepository) MarkMatched(ctx context.Context, tx usecase.Transaction, id, entryID string, createdTransactionID *string, at time.Time) (bool, error) {
	if m.MarkMatchedFunc != nil {
		return m.MarkMatchedFunc(ctx, tx, id, entryID, createdTransactionID, at)
	}
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.Statements[id]
	if !ok || e.Status != domain.StatementStatusPending {
		return false, nil
	}
	e.Status = domain.StatementStatusMatched
	e.MatchedEntryID = &entryID
	e.MatchedAt = &at
	if createdTransactionID != nil {
		e.CreatedTransactionID = createdTransactionID
	}
	return true, nil
}

func (m *MockStatementRepository) Transition(ctx context.Context, tx usecase.Transaction, id string, from, to domain.StatementStatus) (bool, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.Statements[id]
	if !ok || e.Status != from {
		return false, nil
	}
	e.Status = to
	if to == domain.StatementStatusPending {
		e.MatchedEntryID = nil
		e.MatchedAt = nil
	}
	return true, nil
}

// MockImportBatchRepository is a mock implementation of ImportBatchRepository.
type MockImportBatchRepository struct {
	store *Store
}

func NewMockImportBatchRepository(store *Store) *MockImportBatchRepository {
	return &MockImportBatchRepository{store: store}
}

func (m *MockImportBatchRepository) Create(ctx context.Context, tx usecase.Transaction, batch *domain.StatementImportBatch) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *batch
	s.Batches[batch.ID] = &c
	return nil
}

func (m *MockImportBatchRepository) UpdateCounts(ctx context.Context, tx usecase.Transaction, batch *domain.StatementImportBatch) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.Batches[batch.ID]
	if !ok {
		return domain.NewNotFoundError("statement import batch", batch.ID)
	}
	b.RowsTotal = batch.RowsTotal
	b.RowsImported = batch.RowsImported
	b.RowsDuplicate = batch.RowsDuplicate
	b.RowErrors = append([]domain.RowError(nil), batch.RowErrors...)
	return nil
}

func (m *MockImportBatchRepository) List(ctx context.Context, companyID, bankAccountID string, limit, offset int) ([]*domain.StatementImportBatch, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.StatementImportBatch
	for _, b := range s.Batches {
		if b.CompanyID == companyID && (bankAccountID == "" || b.BankAccountID == bankAccountID) {
			c := *b
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

// MockMonthlyReconciliationRepository is a mock implementation of MonthlyReconciliationRepository.
type MockMonthlyReconciliationRepository struct {
	store *Store

	SaveFunc func(ctx context.Context, tx usecase.Transaction, rec *domain.MonthlyBankReconciliation) error
}

func NewMockMonthlyReconciliationRepository(store *Store) *MockMonthlyReconciliationRepository {
	return &MockMonthlyReconciliationRepository{store: store}
}

func monthlyKey(companyID, bankAccountID string, year, month int) string {
	return fmt.Sprintf("%s|%s|%04d-%02d", companyID, bankAccountID, year, month)
}

func (m *MockMonthlyReconciliationRepository) Insert(ctx context.Context, tx usecase.Transaction, rec *domain.MonthlyBankReconciliation) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	key := monthlyKey(rec.CompanyID, rec.BankAccountID, rec.Year, rec.Month)
	if _, exists := s.Monthly[key]; exists {
		return nil
	}
	c := *rec
	s.Monthly[key] = &c
	return nil
}

func (m *MockMonthlyReconciliationRepository) GetForUpdate(ctx context.Context, tx usecase.Transaction, companyID, bankAccountID string, year, month int) (*domain.MonthlyBankReconciliation, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.Monthly[monthlyKey(companyID, bankAccountID, year, month)]; ok {
		c := *r
		return &c, nil
	}
	return nil, domain.NewNotFoundError("monthly reconciliation", "")
}

func (m *MockMonthlyReconciliationRepository) Save(ctx context.Context, tx usecase.Transaction, rec *domain.MonthlyBankReconciliation) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, rec)
	}
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *rec
	s.Monthly[monthlyKey(rec.CompanyID, rec.BankAccountID, rec.Year, rec.Month)] = &c
	return nil
}

// MockLedgerRepository is a mock implementation of LedgerRepository.
type MockLedgerRepository struct {
	store *Store
}

func NewMockLedgerRepository(store *Store) *MockLedgerRepository {
	return &MockLedgerRepository{store: store}
}

func (m *MockLedgerRepository) CheckConsistency(ctx context.Context, companyID string) (*usecase.ConsistencyReport, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	report := &usecase.ConsistencyReport{CompanyID: companyID, TotalDebits: decimal.Zero, TotalCredits: decimal.Zero}
	perTx := make(map[string]decimal.Decimal)
	for _, e := range s.Entries {
		t := s.Transactions[e.TransactionID]
		if t == nil || t.CompanyID != companyID || !s.counts(t) {
			continue
		}
		report.TotalDebits = report.TotalDebits.Add(e.Debit)
		report.TotalCredits = report.TotalCredits.Add(e.Credit)
		perTx[t.ID] = perTx[t.ID].Add(e.Debit).Sub(e.Credit)
	}
	for id, net := range perTx {
		if !net.IsZero() {
			report.UnbalancedTransactions = append(report.UnbalancedTransactions, id)
		}
	}
	sort.Strings(report.UnbalancedTransactions)

	matched := make(map[string]bool)
	for _, l := range s.Statements {
		if l.CompanyID == companyID && l.Status == domain.StatementStatusMatched && l.MatchedEntryID != nil {
			matched[*l.MatchedEntryID] = true
		}
	}
	for _, e := range s.Entries {
		t := s.Transactions[e.TransactionID]
		if t == nil || t.CompanyID != companyID {
			continue
		}
		if e.IsReconciled != matched[e.ID] {
			report.ReconciliationDrift = append(report.ReconciliationDrift, e.ID)
		}
	}
	sort.Strings(report.ReconciliationDrift)
	return report, nil
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	store *Store

	CreateFunc func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
}

func NewMockOutboxRepository(store *Store) *MockOutboxRepository {
	return &MockOutboxRepository{store: store}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Outbox = append(s.Outbox, event)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range s.Outbox {
		if !e.Published {
			out = append(out, e)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.Outbox {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
		}
	}
	return nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.Outbox[:0]
	for _, e := range s.Outbox {
		if !e.Published || e.PublishedAt == nil || !e.PublishedAt.Before(before) {
			kept = append(kept, e)
		}
	}
	s.Outbox = kept
	return nil
}

// MockAuditRepository is a mock implementation of AuditRepository.
type MockAuditRepository struct {
	store *Store
}

func NewMockAuditRepository(store *Store) *MockAuditRepository {
	return &MockAuditRepository{store: store}
}

func (m *MockAuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	log.ID = fmt.Sprintf("audit-%d", len(s.Audit)+1)
	s.Audit = append(s.Audit, log)
	return nil
}

func (m *MockAuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.AuditLog
	for _, a := range s.Audit {
		if (filter.CompanyID == "" || a.CompanyID == filter.CompanyID) &&
			(filter.ResourceID == "" || a.ResourceID == filter.ResourceID) &&
			(filter.Action == "" || a.Action == filter.Action) {
			out = append(out, a)
		}
	}
	return out, nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

// Generate returns mock-id-0001, mock-id-0002, ... so IDs sort in creation order.
func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%04d", m.counter)
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte("processing")
	}
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// Repositories bundles a full set of mocks over one Store.
type Repositories struct {
	Store        *Store
	Accounts     *MockAccountRepository
	Transactions *MockTransactionRepository
	Entries      *MockEntryRepository
	Statements   *MockStatementRepository
	Batches      *MockImportBatchRepository
	Monthly      *MockMonthlyReconciliationRepository
	Ledger       *MockLedgerRepository
	Outbox       *MockOutboxRepository
	Audit        *MockAuditRepository
	TxManager    *MockTransactionManager
	IDGen        *MockIDGenerator
}

// NewRepositories builds every mock over a fresh Store.
func NewRepositories() *Repositories {
	store := NewStore()
	return &Repositories{
		Store:        store,
		Accounts:     NewMockAccountRepository(store),
		Transactions: NewMockTransactionRepository(store),
		Entries:      NewMockEntryRepository(store),
		Statements:   NewMockStatementRepository(store),
		Batches:      NewMockImportBatchRepository(store),
		Monthly:      NewMockMonthlyReconciliationRepository(store),
		Ledger:       NewMockLedgerRepository(store),
		Outbox:       NewMockOutboxRepository(store),
		Audit:        NewMockAuditRepository(store),
		TxManager:    NewMockTransactionManager(),
		IDGen:        NewMockIDGenerator(),
	}
}
