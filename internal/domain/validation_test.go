package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateAccountName(t *testing.T) {
	t.Parallel()

	t.Run("valid name", func(t *testing.T) {
		if err := ValidateAccountName("Accounts Receivable"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		if err := ValidateAccountName("   "); !IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("name too long", func(t *testing.T) {
		tooLong := strings.Repeat("a", MaxAccountNameLength+1)
		if err := ValidateAccountName(tooLong); !IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("length counts characters not bytes", func(t *testing.T) {
		// 255 Devanagari characters take three bytes each.
		if err := ValidateAccountName(strings.Repeat("भ", MaxAccountNameLength)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("control characters rejected", func(t *testing.T) {
		for _, name := range []string{"Bank\tCharges", "Sales\x00", "Cash\u0085"} {
			if err := ValidateAccountName(name); !IsValidation(err) {
				t.Errorf("expected %q to be rejected, got %v", name, err)
			}
		}
	})
}

func TestValidateAccountCode(t *testing.T) {
	t.Parallel()

	for _, code := range []string{"1100", "2110.01", "A-10"} {
		if err := ValidateAccountCode(code); err != nil {
			t.Errorf("expected %q to be valid, got %v", code, err)
		}
	}

	for _, code := range []string{"", ".1100", "11 00", strings.Repeat("9", MaxAccountCodeLength+1)} {
		if err := ValidateAccountCode(code); !IsValidation(err) {
			t.Errorf("expected %q to be rejected, got %v", code, err)
		}
	}
}

func TestValidateAmount(t *testing.T) {
	t.Parallel()

	if err := ValidateAmount("debit", decimal.RequireFromString("100.25")); err != nil {
		t.Fatalf("expected valid amount, got %v", err)
	}

	if err := ValidateAmount("debit", decimal.Zero); err != nil {
		t.Fatalf("expected zero side to be allowed, got %v", err)
	}

	if err := ValidateAmount("debit", decimal.RequireFromString("0.001")); !errors.Is(err, ErrTooManyDecimals) {
		t.Fatalf("expected ErrTooManyDecimals, got %v", err)
	}

	if err := ValidateAmount("debit", decimal.NewFromInt(-1)); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}

	huge := decimal.New(1, 15).Add(decimal.NewFromInt(1))
	if err := ValidateAmount("debit", huge); !IsValidation(err) {
		t.Fatalf("expected validation error for huge amount, got %v", err)
	}
}

func TestParseAmount_RoundsHalfUp(t *testing.T) {
	t.Parallel()

	got, err := ParseAmount("2.345")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.String() != "2.35" {
		t.Errorf("expected 2.35, got %s", got)
	}

	if _, err := ParseAmount("12,00"); !IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestValidatePeriod(t *testing.T) {
	t.Parallel()

	if err := ValidatePeriod(2024, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, p := range [][2]int{{2024, 0}, {2024, 13}, {1899, 1}} {
		if err := ValidatePeriod(p[0], p[1]); !errors.Is(err, ErrInvalidPeriod) {
			t.Errorf("expected ErrInvalidPeriod for %v, got %v", p, err)
		}
	}
}

func TestValidatePagination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		limit, offset   int
		wantLimit, wOff int
	}{
		{0, 0, 50, 0},
		{10, 5, 10, 5},
		{5000, -1, 1000, 0},
	}
	for _, tt := range tests {
		l, o := ValidatePagination(tt.limit, tt.offset)
		if l != tt.wantLimit || o != tt.wOff {
			t.Errorf("ValidatePagination(%d, %d) = %d, %d", tt.limit, tt.offset, l, o)
		}
	}
}

func TestRole_Allows(t *testing.T) {
	t.Parallel()

	if !RoleAdmin.Allows(RoleOperator) || !RoleOperator.Allows(RoleOperator) {
		t.Error("admin and operator must satisfy operator")
	}
	if RoleViewer.Allows(RoleOperator) {
		t.Error("viewer must not satisfy operator")
	}
	if Role("root").Allows(RoleViewer) {
		t.Error("unknown roles allow nothing")
	}
}
