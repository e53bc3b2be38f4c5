package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/usecase"
)

type statementServiceStub struct {
	importFn  func(ctx context.Context, input usecase.ImportStatementInput) (*usecase.ImportResult, error)
	listFn    func(ctx context.Context, input usecase.ListStatementEntriesInput) ([]*domain.BankStatementEntry, error)
	actionFn  func(ctx context.Context, companyID, id string) (*domain.BankStatementEntry, error)
	batchesFn func(ctx context.Context, companyID, bankAccountID string, limit, offset int) ([]*domain.StatementImportBatch, error)
}

func (s *statementServiceStub) ImportStatement(ctx context.Context, input usecase.ImportStatementInput) (*usecase.ImportResult, error) {
	return s.importFn(ctx, input)
}

func (s *statementServiceStub) ListStatementEntries(ctx context.Context, input usecase.ListStatementEntriesInput) ([]*domain.BankStatementEntry, error) {
	return s.listFn(ctx, input)
}

func (s *statementServiceStub) GetStatementEntry(ctx context.Context, companyID, id string) (*domain.BankStatementEntry, error) {
	return s.actionFn(ctx, companyID, id)
}

func (s *statementServiceStub) DisputeStatementEntry(ctx context.Context, companyID, id string) (*domain.BankStatementEntry, error) {
	return s.actionFn(ctx, companyID, id)
}

func (s *statementServiceStub) ReopenStatementEntry(ctx context.Context, companyID, id string) (*domain.BankStatementEntry, error) {
	return s.actionFn(ctx, companyID, id)
}

func (s *statementServiceStub) ListImportBatches(ctx context.Context, companyID, bankAccountID string, limit, offset int) ([]*domain.StatementImportBatch, error) {
	return s.batchesFn(ctx, companyID, bankAccountID, limit, offset)
}

const sampleCSV = "Date,Description,Amount\n2024-03-04,NEFT CR,1180.00\n"

// capturingImport records the import input and the uploaded bytes.
func capturingImport(in *usecase.ImportStatementInput, data *string) func(context.Context, usecase.ImportStatementInput) (*usecase.ImportResult, error) {
	return func(ctx context.Context, input usecase.ImportStatementInput) (*usecase.ImportResult, error) {
		*in = input
		b, err := io.ReadAll(input.Data)
		if err != nil {
			return nil, err
		}
		*data = string(b)
		return &usecase.ImportResult{Batch: &domain.StatementImportBatch{ID: "b-1", BankAccountID: input.BankAccountID, Format: "csv", RowsTotal: 1, RowsImported: 1}}, nil
	}
}

func TestStatementHandler_Import_RawBody(t *testing.T) {
	var in usecase.ImportStatementInput
	var data string
	handler := NewStatementHandler(&statementServiceStub{importFn: capturingImport(&in, &data)}, 0)

	req := httptest.NewRequest(http.MethodPost, "/bank-accounts/hdfc-001/statements/import?format=csv&date_layout=02/01/2006&col_amount=Amount&source=march.csv", strings.NewReader(sampleCSV))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()

	handler.Import(rec, withParams(withPrincipal(req), "bankAccountID", "hdfc-001"))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if in.BankAccountID != "hdfc-001" || in.Format != "csv" || in.DateLayout != "02/01/2006" || in.Source != "march.csv" {
		t.Fatalf("unexpected input %+v", in)
	}
	if in.Mapping == nil || in.Mapping.Amount != "Amount" || in.Mapping.Date != "" {
		t.Fatalf("unexpected mapping %+v", in.Mapping)
	}
	if data != sampleCSV {
		t.Fatalf("body not passed through: %q", data)
	}
}

func TestStatementHandler_Import_Multipart(t *testing.T) {
	var in usecase.ImportStatementInput
	var data string
	handler := NewStatementHandler(&statementServiceStub{importFn: capturingImport(&in, &data)}, 0)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("format", "generic")
	_ = mw.WriteField("col_date", "Value Dt")
	fw, _ := mw.CreateFormFile("file", "hdfc.csv")
	_, _ = fw.Write([]byte(sampleCSV))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/bank-accounts/hdfc-001/statements/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	handler.Import(rec, withParams(withPrincipal(req), "bankAccountID", "hdfc-001"))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if in.Source != "hdfc.csv" || in.Format != "generic" || in.Mapping == nil || in.Mapping.Date != "Value Dt" {
		t.Fatalf("unexpected input %+v", in)
	}
	if data != sampleCSV {
		t.Fatalf("file not passed through: %q", data)
	}
}

func TestStatementHandler_Import_TooLarge(t *testing.T) {
	var in usecase.ImportStatementInput
	var data string
	handler := NewStatementHandler(&statementServiceStub{importFn: capturingImport(&in, &data)}, 16)

	req := httptest.NewRequest(http.MethodPost, "/bank-accounts/hdfc-001/statements/import", strings.NewReader(sampleCSV))
	rec := httptest.NewRecorder()

	handler.Import(rec, withParams(withPrincipal(req), "bankAccountID", "hdfc-001"))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestStatementHandler_Import_UnsupportedFormat(t *testing.T) {
	handler := NewStatementHandler(&statementServiceStub{
		importFn: func(ctx context.Context, input usecase.ImportStatementInput) (*usecase.ImportResult, error) {
			return nil, domain.ErrUnsupportedFormat
		},
	}, 0)

	req := httptest.NewRequest(http.MethodPost, "/bank-accounts/hdfc-001/statements/import?format=ofx", strings.NewReader(sampleCSV))
	rec := httptest.NewRecorder()

	handler.Import(rec, withParams(withPrincipal(req), "bankAccountID", "hdfc-001"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Field != "format" {
		t.Fatalf("expected format field, got %+v", resp)
	}
}

func TestStatementHandler_ListAndActions(t *testing.T) {
	var filter domain.StatementFilter
	handler := NewStatementHandler(&statementServiceStub{
		listFn: func(ctx context.Context, input usecase.ListStatementEntriesInput) ([]*domain.BankStatementEntry, error) {
			filter = input.Filter
			return nil, nil
		},
		actionFn: func(ctx context.Context, companyID, id string) (*domain.BankStatementEntry, error) {
			if id == "matched" {
				return nil, domain.ErrStatementNotPending
			}
			return &domain.BankStatementEntry{ID: id, Status: domain.StatementStatusDisputed}, nil
		},
		batchesFn: func(ctx context.Context, companyID, bankAccountID string, limit, offset int) ([]*domain.StatementImportBatch, error) {
			return []*domain.StatementImportBatch{{ID: "b-1"}}, nil
		},
	}, 0)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/bank-accounts/hdfc-001/statements?status=pending", nil)
	handler.List(rec, withParams(withPrincipal(req), "bankAccountID", "hdfc-001"))
	if rec.Code != http.StatusOK || filter.BankAccountID != "hdfc-001" || filter.Status != domain.StatementStatusPending {
		t.Fatalf("unexpected list result %d %+v", rec.Code, filter)
	}
	if !strings.Contains(rec.Body.String(), `"entries":[]`) {
		t.Errorf("expected empty entries array, got %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.Dispute(rec, withParams(withPrincipal(httptest.NewRequest(http.MethodPost, "/statements/s-1/dispute", nil)), "id", "s-1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.Dispute(rec, withParams(withPrincipal(httptest.NewRequest(http.MethodPost, "/statements/matched/dispute", nil)), "id", "matched"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.Imports(rec, withParams(withPrincipal(httptest.NewRequest(http.MethodGet, "/bank-accounts/hdfc-001/imports", nil)), "bankAccountID", "hdfc-001"))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":1`) {
		t.Fatalf("unexpected imports response %d %s", rec.Code, rec.Body.String())
	}
}
