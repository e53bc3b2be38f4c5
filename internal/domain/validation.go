package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Length limits, counted in characters.
const (
	MaxAccountNameLength = 255
	MinAccountNameLength = 1
	MaxAccountCodeLength = 20
	MaxDescriptionLength = 1000
)

var accountCodeRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.\-]*$`)

// ValidateAccountName checks a ledger account name such as "GST Input - CGST"
// or "भंडार". Names are counted in characters and may not contain control
// characters, which would break statement exports.
func ValidateAccountName(name string) error {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)

	switch {
	case n < MinAccountNameLength:
		return NewValidationError("name", "name cannot be empty")
	case n > MaxAccountNameLength:
		return NewValidationError("name", fmt.Sprintf("name exceeds %d characters", MaxAccountNameLength))
	case !utf8.ValidString(name) || strings.IndexFunc(name, unicode.IsControl) >= 0:
		return NewValidationError("name", "name contains invalid characters")
	}
	return nil
}

// ValidateAccountCode validates a chart-of-accounts code such as "1100" or "2110.01".
func ValidateAccountCode(code string) error {
	if code == "" {
		return NewValidationError("code", "code cannot be empty")
	}

	if len(code) > MaxAccountCodeLength {
		return NewValidationError("code", fmt.Sprintf("code exceeds %d characters", MaxAccountCodeLength))
	}

	if !accountCodeRegex.MatchString(code) {
		return NewValidationError("code", "code may contain only letters, digits, dots and dashes")
	}

	return nil
}

// ValidateDescription bounds narration text on transactions and entries.
func ValidateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return NewValidationError("description", fmt.Sprintf("description exceeds %d characters", MaxDescriptionLength))
	}
	return nil
}

// ValidateDateRange checks that from is not after to.
func ValidateDateRange(from, to time.Time) error {
	if from.After(to) {
		return NewValidationError("from", "from must not be after to")
	}
	return nil
}

// ValidatePeriod validates a calendar month.
func ValidatePeriod(year, month int) error {
	if month < 1 || month > 12 || year < 1900 || year > 9999 {
		return ErrInvalidPeriod
	}
	return nil
}

// Page sizes for ledger, statement and audit listings.
const (
	DefaultPageSize = 50
	MaxPageSize     = 1000
)

// ValidatePagination clamps limit to (0, MaxPageSize] and offset to >= 0.
func ValidatePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return min(limit, MaxPageSize), max(offset, 0)
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
