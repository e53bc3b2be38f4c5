package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bookkeeper/internal/adapter/http/dto"
	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/usecase"
)

// JournalService defines the behavior needed by JournalHandler.
type JournalService interface {
	CreateJournalEntry(ctx context.Context, input usecase.CreateJournalEntryInput) (*domain.Transaction, error)
	PostTransaction(ctx context.Context, companyID, id string) (*domain.Transaction, error)
	ReverseTransaction(ctx context.Context, input usecase.ReverseTransactionInput) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, companyID, id string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.Transaction, error)
	PostTemplate(ctx context.Context, companyID string, template domain.PostingTemplate) (*usecase.PostingResult, error)
}

// JournalHandler handles journal transactions and business-event postings.
type JournalHandler struct {
	journalUC JournalService
}

// NewJournalHandler creates a new JournalHandler.
func NewJournalHandler(journalUC JournalService) *JournalHandler {
	return &JournalHandler{journalUC: journalUC}
}

// Create records a manual journal entry, as a draft unless auto_post is set.
func (h *JournalHandler) Create(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		writeDomainError(w, r, "missing company", err)
		return
	}

	var req dto.CreateTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, "invalid request", err)
		return
	}

	tx, err := h.journalUC.CreateJournalEntry(r.Context(), req.ToUseCaseInput(companyID))
	if err != nil {
		writeDomainError(w, r, "failed to create transaction", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(tx))
}

// Get retrieves a transaction with its entries.
func (h *JournalHandler) Get(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		writeDomainError(w, r, "missing company", err)
		return
	}

	tx, err := h.journalUC.GetTransaction(r.Context(), companyID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to get transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(tx))
}

// List lists transactions by status, reference type and date range.
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		writeDomainError(w, r, "missing company", err)
		return
	}
	from, err := parseDateQuery(r, "from")
	if err != nil {
		writeDomainError(w, r, "invalid request", err)
		return
	}
	to, err := parseDateQuery(r, "to")
	if err != nil {
		writeDomainError(w, r, "invalid request", err)
		return
	}

	q := r.URL.Query()
	txs, err := h.journalUC.ListTransactions(r.Context(), usecase.ListTransactionsInput{
		CompanyID: companyID,
		Filter: domain.TransactionFilter{
			Status:        domain.TransactionStatus(q.Get("status")),
			ReferenceType: domain.ReferenceType(q.Get("reference_type")),
			From:          from,
			To:            to,
		},
		Limit:  parseIntQuery(r, "limit", 0),
		Offset: parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeDomainError(w, r, "failed to list transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListTransactionsResponse{
		Transactions: dto.TransactionsFromDomain(txs),
		Count:        len(txs),
	})
}

// Post moves a draft transaction to posted.
func (h *JournalHandler) Post(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		writeDomainError(w, r, "missing company", err)
		return
	}

	tx, err := h.journalUC.PostTransaction(r.Context(), companyID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to post transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(tx))
}

// Reverse books the mirror of a posted transaction.
func (h *JournalHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		writeDomainError(w, r, "missing company", err)
		return
	}

	var req dto.ReverseTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, "invalid request", err)
		return
	}

	reversal, err := h.journalUC.ReverseTransaction(r.Context(), req.ToUseCaseInput(companyID, chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, r, "failed to reverse transaction", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(reversal))
}

// PostEvent books a business event through its posting template.
func (h *JournalHandler) PostEvent(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		writeDomainError(w, r, "missing company", err)
		return
	}

	kind := chi.URLParam(r, "kind")
	req, ok := dto.NewPostingRequest(kind)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown posting kind", kind)
		return
	}
	if err := decodeJSON(w, r, req); err != nil {
		writeDomainError(w, r, "invalid request", err)
		return
	}

	result, err := h.journalUC.PostTemplate(r.Context(), companyID, req.ToTemplate())
	if err != nil {
		writeDomainError(w, r, "failed to post "+kind, err)
		return
	}

	status := http.StatusCreated
	if result.Skipped {
		status = http.StatusOK
	}
	writeJSON(w, status, dto.PostingResultFromUseCase(result))
}
