package usecase

import "time"

// Unit-of-work deadlines applied by inTx on top of the caller's context.
// A retried unit of work gets a fresh deadline per attempt.
const (
	// PostingTimeout covers a single posting, reversal, match or account change.
	PostingTimeout = 10 * time.Second

	// ImportTimeout covers a whole statement import, which commits as one unit of work.
	ImportTimeout = 60 * time.Second

	// MonthCloseTimeout covers a close or reopen, which sums every bank account of the company.
	MonthCloseTimeout = 30 * time.Second
)

// DefaultMaxImportRows caps the rows accepted from one statement file.
const DefaultMaxImportRows = 50_000
