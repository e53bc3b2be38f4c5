package domain

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func entry(account, debit, credit string) *TransactionEntry {
	return &TransactionEntry{AccountID: account, Debit: d(debit), Credit: d(credit)}
}

func TestValidateBalanced(t *testing.T) {
	tests := []struct {
		name    string
		entries []*TransactionEntry
		wantErr error
	}{
		{
			name:    "balanced pair",
			entries: []*TransactionEntry{entry("bank", "100", "0"), entry("sales", "0", "100")},
		},
		{
			name:    "single entry",
			entries: []*TransactionEntry{entry("bank", "100", "0")},
			wantErr: ErrTooFewEntries,
		},
		{
			name:    "unbalanced",
			entries: []*TransactionEntry{entry("bank", "100", "0"), entry("sales", "0", "99.99")},
			wantErr: ErrUnbalancedEntries,
		},
		{
			name:    "both sides set",
			entries: []*TransactionEntry{entry("bank", "100", "100"), entry("sales", "0", "0")},
			wantErr: ErrAmbiguousEntry,
		},
		{
			name:    "negative amount",
			entries: []*TransactionEntry{entry("bank", "-5", "0"), entry("sales", "0", "-5")},
			wantErr: ErrNegativeAmount,
		},
		{
			name:    "sub-cent amount",
			entries: []*TransactionEntry{entry("bank", "0.001", "0"), entry("sales", "0", "0.001")},
			wantErr: ErrTooManyDecimals,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBalanced(tt.entries)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if !IsValidation(err) {
				t.Errorf("expected a validation error, got %v", err)
			}
		})
	}
}

// Random balanced sets always validate, and perturbing one leg by a cent never does.
func TestValidateBalanced_RandomBalancedSets(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		n := 1 + rng.Intn(5)
		var entries []*TransactionEntry
		total := decimal.Zero
		for j := 0; j < n; j++ {
			amount := decimal.New(int64(1+rng.Intn(10_000_000)), -CentsPlaces)
			total = total.Add(amount)
			entries = append(entries, &TransactionEntry{AccountID: fmt.Sprintf("dr-%d", j), Debit: amount, Credit: decimal.Zero})
		}
		// split the total across 1..3 credit legs
		remaining := total
		legs := 1 + rng.Intn(3)
		for j := 0; j < legs-1 && remaining.GreaterThan(OneCent()); j++ {
			part := RoundCents(remaining.Div(decimal.NewFromInt(2)))
			entries = append(entries, &TransactionEntry{AccountID: fmt.Sprintf("cr-%d", j), Debit: decimal.Zero, Credit: part})
			remaining = remaining.Sub(part)
		}
		entries = append(entries, &TransactionEntry{AccountID: "cr-last", Debit: decimal.Zero, Credit: remaining})

		if err := ValidateBalanced(entries); err != nil {
			t.Fatalf("iteration %d: balanced set rejected: %v", i, err)
		}
		debits, credits := Totals(entries)
		if !debits.Equal(credits) {
			t.Fatalf("iteration %d: totals differ %s vs %s", i, debits, credits)
		}

		entries[0].Debit = entries[0].Debit.Add(OneCent())
		if err := ValidateBalanced(entries); !errors.Is(err, ErrUnbalancedEntries) {
			t.Fatalf("iteration %d: expected unbalanced, got %v", i, err)
		}
	}
}

func TestTransaction_CanReverse(t *testing.T) {
	reversal := "tx-2"
	tests := []struct {
		name    string
		tx      Transaction
		wantErr error
	}{
		{name: "posted", tx: Transaction{Status: TransactionStatusPosted}},
		{name: "draft", tx: Transaction{Status: TransactionStatusDraft}, wantErr: ErrReverseNotPosted},
		{name: "already reversed", tx: Transaction{Status: TransactionStatusReversed, ReversedByID: &reversal}, wantErr: ErrAlreadyReversed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tx.CanReverse()
			if !errors.Is(err, tt.wantErr) && !(tt.wantErr == nil && err == nil) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTransaction_MirrorEntriesNetToZero(t *testing.T) {
	tx := Transaction{
		Status: TransactionStatusPosted,
		Entries: []*TransactionEntry{
			entry("ar", "1180", "0"),
			entry("sales", "0", "1000"),
			entry("cgst", "0", "90"),
			entry("sgst", "0", "90"),
		},
	}

	n := 0
	mirror := tx.MirrorEntries(func() string { n++; return fmt.Sprintf("m-%d", n) }, "tx-rev", time.Now())
	if len(mirror) != 4 {
		t.Fatalf("expected 4 mirrored legs, got %d", len(mirror))
	}

	net := map[string]decimal.Decimal{}
	for _, e := range append(tx.Entries, mirror...) {
		net[e.AccountID] = net[e.AccountID].Add(e.Debit).Sub(e.Credit)
	}
	for account, v := range net {
		if !v.IsZero() {
			t.Errorf("account %s nets to %s after reversal", account, v)
		}
	}
	if mirror[0].TransactionID != "tx-rev" || mirror[0].ID != "m-1" {
		t.Errorf("unexpected mirror leg %+v", mirror[0])
	}
}

func TestTransaction_CanPost(t *testing.T) {
	tx := Transaction{Status: TransactionStatusPosted}
	if err := tx.CanPost(); !errors.Is(err, ErrNotDraft) {
		t.Errorf("expected ErrNotDraft, got %v", err)
	}

	tx = Transaction{
		Status:  TransactionStatusDraft,
		Entries: []*TransactionEntry{entry("bank", "10", "0"), entry("cash", "0", "10")},
	}
	if err := tx.CanPost(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTransactionCanMatch(t *testing.T) {
	original := "t-1"
	tests := []struct {
		name string
		tx   Transaction
		ok   bool
	}{
		{name: "posted", tx: Transaction{Status: TransactionStatusPosted}, ok: true},
		{name: "draft", tx: Transaction{Status: TransactionStatusDraft}},
		{name: "reversed original", tx: Transaction{Status: TransactionStatusReversed, ReversedByID: &original}},
		{name: "reversal", tx: Transaction{Status: TransactionStatusPosted, ReversesID: &original}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tx.CanMatch()
			if tt.ok && err != nil {
				t.Fatalf("expected matchable, got %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
