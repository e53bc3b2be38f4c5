package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bookkeeper/internal/adapter/http/dto"
	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/usecase"
)

// DefaultMaxUploadBytes caps a statement upload when no limit is configured.
const DefaultMaxUploadBytes = 10 << 20

// StatementService defines the behavior needed by StatementHandler.
type StatementService interface {
	ImportStatement(ctx context.Context, input usecase.ImportStatementInput) (*usecase.ImportResult, error)
	ListStatementEntries(ctx context.Context, input usecase.ListStatementEntriesInput) ([]*domain.BankStatementEntry, error)
	GetStatementEntry(ctx context.Context, companyID, id string) (*domain.BankStatementEntry, error)
	DisputeStatementEntry(ctx context.Context, companyID, id string) (*domain.BankStatementEntry, error)
	ReopenStatementEntry(ctx context.Context, companyID, id string) (*domain.BankStatementEntry, error)
	ListImportBatches(ctx context.Context, companyID, bankAccountID string, limit, offset int) ([]*domain.StatementImportBatch, error)
}

// StatementHandler handles bank statement imports and listings.
type StatementHandler struct {
	statementUC StatementService
	maxBytes    int64
}

// NewStatementHandler creates a new StatementHandler. maxBytes <= 0 uses DefaultMaxUploadBytes.
func NewStatementHandler(statementUC StatementService, maxBytes int64) *StatementHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &StatementHandler{statementUC: statementUC, maxBytes: maxBytes}
}

// mappingFields lists the column mapping parameters accepted in the query or form.
var mappingFields = []string{"date", "posting_date", "description", "debit", "credit", "amount", "reference", "balance"}

func columnMapping(get func(string) string) *usecase.ColumnMapping {
	values := make(map[string]string, len(mappingFields))
	set := false
	for _, f := range mappingFields {
		v := strings.TrimSpace(get("col_" + f))
		values[f] = v
		set = set || v != ""
	}
	if !set {
		return nil
	}
	return &usecase.ColumnMapping{
		Date:        values["date"],
		PostingDate: values["posting_date"],
		Description: values["description"],
		Debit:       values["debit"],
		Credit:      values["credit"],
		Amount:      values["amount"],
		Reference:   values["reference"],
		Balance:     values["balance"],
	}
}

// Import stores the lines of an uploaded statement. The file is either the raw
// request body or the multipart field "file"; format, date_layout and col_*
// mapping parameters come from the query string or the form.
func (h *StatementHandler) Import(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		writeDomainError(w, r, "missing company", err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	in := usecase.ImportStatementInput{
		CompanyID:     companyID,
		BankAccountID: chi.URLParam(r, "bankAccountID"),
	}
	get := r.URL.Query().Get

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(h.maxBytes); err != nil {
			writeUploadError(w, r, err)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeDomainError(w, r, "invalid request", domain.NewValidationError("file", "multipart field \"file\" is required"))
			return
		}
		defer file.Close()
		in.Data = file
		in.Source = header.Filename
		get = func(key string) string {
			if v := r.FormValue(key); v != "" {
				return v
			}
			return r.URL.Query().Get(key)
		}
	} else {
		in.Data = r.Body
		in.Source = r.URL.Query().Get("source")
	}

	in.Format = get("format")
	in.DateLayout = get("date_layout")
	in.Mapping = columnMapping(get)
	if s := get("source"); s != "" {
		in.Source = s
	}

	result, err := h.statementUC.ImportStatement(r.Context(), in)
	if err != nil {
		writeUploadError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ImportResultFromUseCase(result))
}

func writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "statement too large", err.Error())
		return
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		writeError(w, http.StatusBadRequest, "invalid request", "truncated upload")
		return
	}
	writeDomainError(w, r, "failed to import statement", err)
}

// List lists statement lines of a bank account.
func (h *StatementHandler) List(w http.ResponseWriter, r *http.Request) {
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

	entries, err := h.statementUC.ListStatementEntries(r.Context(), usecase.ListStatementEntriesInput{
		CompanyID: companyID,
		Filter: domain.StatementFilter{
			BankAccountID: chi.URLParam(r, "bankAccountID"),
			Status:        domain.StatementStatus(r.URL.Query().Get("status")),
			From:          from,
			To:            to,
		},
		Limit:  parseIntQuery(r, "limit", 0),
		Offset: parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeDomainError(w, r, "failed to list statement entries", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListStatementEntriesResponse{
		Entries: dto.StatementEntriesFromDomain(entries),
		Count:   len(entries),
	})
}

// Imports lists the import batches of a bank account.
func (h *StatementHandler) Imports(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		writeDomainError(w, r, "missing company", err)
		return
	}

	batches, err := h.statementUC.ListImportBatches(r.Context(), companyID, chi.URLParam(r, "bankAccountID"),
		parseIntQuery(r, "limit", 0), parseIntQuery(r, "offset", 0))
	if err != nil {
		writeDomainError(w, r, "failed to list imports", err)
		return
	}

	resp := dto.ListImportBatchesResponse{Imports: make([]*dto.ImportBatchResponse, len(batches)), Count: len(batches)}
	for i, b := range batches {
		resp.Imports[i] = dto.ImportBatchFromDomain(b)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get retrieves one statement line.
func (h *StatementHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.entryAction(w, r, "failed to get statement entry", h.statementUC.GetStatementEntry)
}

// Dispute flags a pending statement line for follow-up with the bank.
func (h *StatementHandler) Dispute(w http.ResponseWriter, r *http.Request) {
	h.entryAction(w, r, "failed to dispute statement entry", h.statementUC.DisputeStatementEntry)
}

// Reopen returns a disputed or confirmed-unmatched line to pending.
func (h *StatementHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	h.entryAction(w, r, "failed to reopen statement entry", h.statementUC.ReopenStatementEntry)
}

func (h *StatementHandler) entryAction(
	w http.ResponseWriter,
	r *http.Request,
	message string,
	fn func(ctx context.Context, companyID, id string) (*domain.BankStatementEntry, error),
) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		writeDomainError(w, r, "missing company", err)
		return
	}

	entry, err := fn(r.Context(), companyID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, message, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.StatementEntryFromDomain(entry))
}
