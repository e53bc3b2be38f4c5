package integration

import (
	"net/http"
	"testing"

	"github.com/iho/bookkeeper/internal/adapter/http/dto"
	"github.com/iho/bookkeeper/internal/domain"
)

func TestReversal(t *testing.T) {
	e := setup(t)
	accounts := e.seedChart(t)
	payment := e.postInvoiceAndPayment(t, "inv-1", "2024-03-04")

	var reversal dto.TransactionResponse
	e.app.MustDo(http.StatusCreated, e.company, http.MethodPost, "/transactions/"+payment.Transaction.ID+"/reverse",
		map[string]string{"reason": "entered against the wrong invoice", "date": "2024-03-10"}, &reversal)

	if reversal.ReversesID == nil || *reversal.ReversesID != payment.Transaction.ID {
		t.Fatalf("reversal does not point at the original: %+v", reversal)
	}
	originals := make(map[string]*dto.EntryResponse, len(payment.Transaction.Entries))
	for _, entry := range payment.Transaction.Entries {
		originals[entry.AccountID] = entry
	}
	for _, entry := range reversal.Entries {
		original := originals[entry.AccountID]
		if original == nil || entry.Debit != original.Credit || entry.Credit != original.Debit {
			t.Fatalf("entry on %s not mirrored: %+v vs %+v", entry.AccountID, entry, original)
		}
	}

	var original dto.TransactionResponse
	e.app.MustDo(http.StatusOK, e.company, http.MethodGet, "/transactions/"+payment.Transaction.ID, nil, &original)
	if original.Status != string(domain.TransactionStatusReversed) || original.ReversedByID == nil {
		t.Fatalf("original not marked reversed: %+v", original)
	}

	if got := e.balance(t, accounts[domain.CodeBank].ID); got != "0.00" {
		t.Fatalf("expected bank back to 0.00, got %s", got)
	}

	t.Run("cannot reverse twice", func(t *testing.T) {
		resp := e.app.Do(e.company, http.MethodPost, "/transactions/"+payment.Transaction.ID+"/reverse",
			map[string]string{"reason": "again"})
		if resp.Status != http.StatusConflict {
			t.Fatalf("expected 409, got %d: %s", resp.Status, resp.Body)
		}
	})

	t.Run("cannot reverse a reversal", func(t *testing.T) {
		resp := e.app.Do(e.company, http.MethodPost, "/transactions/"+reversal.ID+"/reverse",
			map[string]string{"reason": "undo the undo"})
		if resp.Status != http.StatusConflict && resp.Status != http.StatusBadRequest {
			t.Fatalf("expected rejection, got %d: %s", resp.Status, resp.Body)
		}
	})

	t.Run("balance as of before the reversal", func(t *testing.T) {
		var b dto.BalanceResponse
		e.app.MustDo(http.StatusOK, e.company, http.MethodGet,
			"/accounts/"+accounts[domain.CodeBank].ID+"/balance?as_of=2024-03-05", nil, &b)
		if b.Balance != "1180.00" {
			t.Fatalf("expected historical balance 1180.00, got %s", b.Balance)
		}
	})

	e.requireConsistent(t)

	if n := e.db.CountRows(e.ctx, "outbox_events", e.company); n == 0 {
		t.Fatal("expected outbox events to be recorded")
	}

	var logs struct {
		AuditLogs []dto.AuditLogResponse `json:"audit_logs"`
		Count     int                    `json:"count"`
	}
	e.app.MustDo(http.StatusOK, e.company, http.MethodGet, "/audit-logs?resource_type=transaction&action="+string(domain.AuditActionTransactionReverse), nil, &logs)
	if logs.Count != 1 {
		t.Fatalf("expected one reversal audit entry, got %d", logs.Count)
	}
}
