package importer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/usecase"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Bank exports often open with account details before the header row.
const maxPreambleLines = 30

// Day-first layouts come before month-first ones; statements here are DD/MM.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"2/1/2006",
	"02/01/06",
	"02-01-06",
	"02-Jan-2006",
	"02-Jan-06",
	"02 Jan 2006",
	"2 Jan 2006",
	"02 Jan 06",
	"Jan 2, 2006",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	time.RFC3339,
}

// Header synonyms per field, in order of preference. Compared after normalizeHeader.
var headerSynonyms = map[string][]string{
	"date":         {"valuedate", "valuedt", "date", "txndate", "transactiondate", "trandate"},
	"posting_date": {"postingdate", "postdate", "bookingdate", "txndate", "transactiondate", "date"},
	"description":  {"description", "narration", "particulars", "details", "remarks", "transactiondetails", "memo"},
	"debit":        {"debit", "withdrawal", "withdrawalamt", "withdrawalamount", "withdrawals", "debitamount", "dr", "paidout"},
	"credit":       {"credit", "deposit", "depositamt", "depositamount", "deposits", "creditamount", "cr", "paidin"},
	"amount":       {"amount", "amt", "transactionamount", "amountinr"},
	"reference":    {"reference", "ref", "refno", "referenceno", "chqrefno", "chequeno", "chqno", "utr", "utrno", "transactionid"},
	"balance":      {"balance", "closingbalance", "runningbalance", "availablebalance"},
}

// Fields are resolved in this order so the value date claims its column before the posting date.
var fieldOrder = []string{"date", "posting_date", "description", "debit", "credit", "amount", "reference", "balance"}

// DelimitedParser parses CSV-like statements with a header row.
type DelimitedParser struct {
	delimiter rune
}

// NewDelimitedParser creates a parser. A zero delimiter is sniffed from the data.
func NewDelimitedParser(delimiter rune) *DelimitedParser {
	return &DelimitedParser{delimiter: delimiter}
}

// Parse reads a delimited statement. Rows that fail to parse are returned as row errors;
// a missing header, an unknown mapped column or too many rows fail the whole file.
func (p *DelimitedParser) Parse(ctx context.Context, data []byte, opts usecase.ParseOptions) (*usecase.ParseResult, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, domain.NewValidationError("file", "statement is empty")
	}

	delimiter := opts.Delimiter
	if delimiter == 0 {
		delimiter = p.delimiter
	}
	if delimiter == 0 {
		delimiter = sniffDelimiter(data)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	result := &usecase.ParseResult{}
	var cols *columns
	preamble := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if cols != nil && errors.As(err, &perr) {
				result.RowErrors = append(result.RowErrors, domain.RowError{Line: perr.Line, Reason: perr.Err.Error()})
				continue
			}
			return nil, domain.NewValidationError("file", fmt.Sprintf("reading statement: %v", err))
		}
		line, _ := cr.FieldPos(0)

		if isBlank(rec) {
			continue
		}

		if cols == nil {
			found, err := locateColumns(rec, opts.Mapping)
			if err != nil {
				return nil, err
			}
			if found == nil {
				preamble++
				if preamble > maxPreambleLines {
					break
				}
				continue
			}
			cols = found
			result.Mapping = found.mapping(rec)
			continue
		}

		if opts.MaxRows > 0 && len(result.Rows)+len(result.RowErrors) >= opts.MaxRows {
			return nil, domain.NewValidationError("file", fmt.Sprintf("statement has more than %d rows", opts.MaxRows))
		}

		row, err := cols.parseRow(rec, opts.DateLayout)
		if err != nil {
			result.RowErrors = append(result.RowErrors, domain.RowError{Line: line, Reason: err.Error()})
			continue
		}
		row.Line = line
		result.Rows = append(result.Rows, row)
	}

	if cols == nil {
		return nil, domain.NewValidationError("file", "no header row with a date and an amount column was found")
	}
	return result, nil
}

// columns holds the index of each field in a record, -1 when absent.
type columns struct {
	idx map[string]int
}

func (c *columns) has(field string) bool {
	return c.idx[field] >= 0
}

func (c *columns) get(rec []string, field string) string {
	i := c.idx[field]
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (c *columns) mapping(header []string) usecase.ColumnMapping {
	name := func(field string) string {
		if i := c.idx[field]; i >= 0 {
			return strings.TrimSpace(header[i])
		}
		return ""
	}
	return usecase.ColumnMapping{
		Date:        name("date"),
		PostingDate: name("posting_date"),
		Description: name("description"),
		Debit:       name("debit"),
		Credit:      name("credit"),
		Amount:      name("amount"),
		Reference:   name("reference"),
		Balance:     name("balance"),
	}
}

// locateColumns resolves field positions in a candidate header row. It returns nil when the
// record is not a header, and an error when an explicitly mapped column is missing from a header.
func locateColumns(header []string, m *usecase.ColumnMapping) (*columns, error) {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeHeader(h)
	}

	explicit := map[string]string{}
	if m != nil {
		for field, v := range map[string]string{
			"date": m.Date, "posting_date": m.PostingDate, "description": m.Description, "debit": m.Debit,
			"credit": m.Credit, "amount": m.Amount, "reference": m.Reference, "balance": m.Balance,
		} {
			if strings.TrimSpace(v) != "" {
				explicit[field] = normalizeHeader(v)
			}
		}
	}

	c := &columns{idx: make(map[string]int, len(fieldOrder))}
	used := make(map[int]bool, len(header))

	// Explicit names first so auto-detection cannot steal their columns.
	for _, field := range fieldOrder {
		c.idx[field] = -1
		want, ok := explicit[field]
		if !ok {
			continue
		}
		if i := indexOf(normalized, want, used); i >= 0 {
			c.idx[field] = i
			used[i] = true
		}
	}

	// Until the mapped date column shows up we are still in the preamble.
	if _, ok := explicit["date"]; ok && c.idx["date"] < 0 {
		return nil, nil
	}

	for _, field := range fieldOrder {
		if _, ok := explicit[field]; ok {
			if c.idx[field] < 0 {
				return nil, domain.NewValidationError("mapping", fmt.Sprintf("column for %s not found in header", field))
			}
			continue
		}
		for _, syn := range headerSynonyms[field] {
			if i := indexOf(normalized, syn, used); i >= 0 {
				c.idx[field] = i
				used[i] = true
				break
			}
		}
	}

	if !c.has("date") || !(c.has("amount") || c.has("debit") || c.has("credit")) {
		return nil, nil
	}
	return c, nil
}

func (c *columns) parseRow(rec []string, layout string) (usecase.ParsedRow, error) {
	var row usecase.ParsedRow

	valueDate, err := parseDate(c.get(rec, "date"), layout)
	if err != nil {
		return row, err
	}
	row.ValueDate = valueDate

	if raw := c.get(rec, "posting_date"); raw != "" {
		pd, err := parseDate(raw, layout)
		if err != nil {
			return row, fmt.Errorf("posting date: %w", err)
		}
		row.PostingDate = &pd
	}

	amount, err := c.amount(rec)
	if err != nil {
		return row, err
	}
	row.Amount = amount

	if raw := c.get(rec, "balance"); raw != "" {
		b, err := parseAmount(raw)
		if err != nil {
			return row, fmt.Errorf("balance: %w", err)
		}
		row.RunningBalance = &b
	}

	row.Description = c.get(rec, "description")
	row.Reference = c.get(rec, "reference")
	return row, nil
}

// amount is the signed amount: money in is positive. A signed amount column wins over debit/credit.
func (c *columns) amount(rec []string) (decimal.Decimal, error) {
	if raw := c.get(rec, "amount"); raw != "" {
		return parseAmount(raw)
	}

	debit, credit := decimal.Zero, decimal.Zero
	var err error
	if raw := c.get(rec, "debit"); raw != "" {
		if debit, err = parseAmount(raw); err != nil {
			return decimal.Zero, fmt.Errorf("debit: %w", err)
		}
	}
	if raw := c.get(rec, "credit"); raw != "" {
		if credit, err = parseAmount(raw); err != nil {
			return decimal.Zero, fmt.Errorf("credit: %w", err)
		}
	}

	switch {
	case !debit.IsZero() && !credit.IsZero():
		return decimal.Zero, errors.New("both debit and credit are set")
	case debit.IsZero() && credit.IsZero():
		return decimal.Zero, errors.New("amount is missing")
	}
	return credit.Abs().Sub(debit.Abs()), nil
}

func parseDate(raw, layout string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("date is missing")
	}
	if layout != "" {
		t, err := time.Parse(layout, raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing date %q with layout %q", raw, layout)
		}
		return domain.DateOnly(t), nil
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, raw); err == nil {
			return domain.DateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// parseAmount accepts thousands separators, currency marks, parentheses or a trailing minus
// for negatives, Dr/Cr suffixes and decimal commas.
func parseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	negative := false

	upper := strings.ToUpper(s)
	switch {
	case strings.HasSuffix(upper, "DR"):
		negative = true
		s = strings.TrimSpace(s[:len(s)-2])
	case strings.HasSuffix(upper, "CR"):
		s = strings.TrimSpace(s[:len(s)-2])
	}

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = !negative
		s = s[1 : len(s)-1]
	}
	if strings.HasSuffix(s, "-") {
		negative = !negative
		s = strings.TrimSuffix(s, "-")
	}

	s = strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == '.' || r == ',' || r == '-' || r == '+' {
			return r
		}
		return -1
	}, s)

	lastDot, lastComma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case lastComma > lastDot && len(s)-lastComma == 3:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	default:
		s = strings.ReplaceAll(s, ",", "")
	}

	if s == "" || s == "-" || s == "+" {
		return decimal.Zero, fmt.Errorf("unrecognized amount %q", raw)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unrecognized amount %q", raw)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// sniffDelimiter picks the candidate that appears most often outside quotes in the first lines.
func sniffDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	counts := make(map[rune]int, len(candidates))

	sc := bufio.NewScanner(bytes.NewReader(data))
	for lines := 0; sc.Scan() && lines < 10; lines++ {
		inQuotes := false
		for _, r := range sc.Text() {
			if r == '"' {
				inQuotes = !inQuotes
				continue
			}
			if !inQuotes {
				counts[r]++
			}
		}
	}

	best := ','
	for _, c := range candidates {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

func normalizeHeader(h string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, h)
}

func indexOf(normalized []string, want string, used map[int]bool) int {
	for i, n := range normalized {
		if n == want && !used[i] {
			return i
		}
	}
	return -1
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
