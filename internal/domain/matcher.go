package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Default auto-match tolerances.
const DefaultDateToleranceDays = 3

// MatchTolerance bounds how far a bank line may drift from a book entry and still match.
type MatchTolerance struct {
	DateDays int
	Amount   decimal.Decimal
}

// DefaultMatchTolerance is three days and one cent.
func DefaultMatchTolerance() MatchTolerance {
	return MatchTolerance{DateDays: DefaultDateToleranceDays, Amount: OneCent()}
}

// Validate rejects negative tolerances.
func (t MatchTolerance) Validate() error {
	if t.DateDays < 0 {
		return NewValidationError("date_tolerance_days", "must not be negative")
	}
	if t.Amount.IsNegative() {
		return NewValidationError("amount_tolerance", "must not be negative")
	}
	return nil
}

// BookCandidate is an unreconciled ledger entry on a bank's ledger account.
type BookCandidate struct {
	Entry *TransactionEntry
	Date  time.Time
}

// MatchPair links one book entry to one bank line.
type MatchPair struct {
	Book      BookCandidate
	Bank      *BankStatementEntry
	DateGap   int
	AmountGap decimal.Decimal
}

// MatchResult is the outcome of a matching pass.
type MatchResult struct {
	Pairs         []MatchPair
	UnmatchedBook []BookCandidate
	UnmatchedBank []*BankStatementEntry
}

// DaysBetween returns the absolute number of calendar days between two dates.
func DaysBetween(a, b time.Time) int {
	d := int(DateOnly(a).Sub(DateOnly(b)).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}

// MatchGreedy pairs book entries with pending bank lines one-to-one.
//
// Book entries are visited in (date, id) order. Each takes the still-available
// bank line whose amount is within tolerance and whose date is closest, with
// ties broken by amount gap, then bank value date and id. The result is
// deterministic but not a minimum-cost assignment.
func MatchGreedy(book []BookCandidate, bank []*BankStatementEntry, tol MatchTolerance) MatchResult {
	books := append([]BookCandidate(nil), book...)
	sort.SliceStable(books, func(i, j int) bool {
		if !books[i].Date.Equal(books[j].Date) {
			return books[i].Date.Before(books[j].Date)
		}
		return books[i].Entry.ID < books[j].Entry.ID
	})

	banks := append([]*BankStatementEntry(nil), bank...)
	sort.SliceStable(banks, func(i, j int) bool {
		if !banks[i].ValueDate.Equal(banks[j].ValueDate) {
			return banks[i].ValueDate.Before(banks[j].ValueDate)
		}
		return banks[i].ID < banks[j].ID
	})

	used := make([]bool, len(banks))
	var result MatchResult

	for _, b := range books {
		amount := b.Entry.BankAmount()
		best := -1
		var bestDays int
		var bestGap decimal.Decimal

		for i, line := range banks {
			if used[i] {
				continue
			}
			gap := line.Amount.Sub(amount).Abs()
			if gap.GreaterThan(tol.Amount) {
				continue
			}
			days := DaysBetween(line.ValueDate, b.Date)
			if days > tol.DateDays {
				continue
			}
			// banks is sorted, so the first candidate wins on equal days and gap.
			if best == -1 || days < bestDays || (days == bestDays && gap.LessThan(bestGap)) {
				best, bestDays, bestGap = i, days, gap
			}
		}

		if best == -1 {
			result.UnmatchedBook = append(result.UnmatchedBook, b)
			continue
		}
		used[best] = true
		result.Pairs = append(result.Pairs, MatchPair{Book: b, Bank: banks[best], DateGap: bestDays, AmountGap: bestGap})
	}

	for i, line := range banks {
		if !used[i] {
			result.UnmatchedBank = append(result.UnmatchedBank, line)
		}
	}

	return result
}
