package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PostingLine is one leg of a template, addressed by well-known account code.
type PostingLine struct {
	AccountCode string
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

func debit(code, desc string, amount decimal.Decimal) PostingLine {
	return PostingLine{AccountCode: code, Description: desc, Debit: RoundCents(amount), Credit: decimal.Zero}
}

func credit(code, desc string, amount decimal.Decimal) PostingLine {
	return PostingLine{AccountCode: code, Description: desc, Debit: decimal.Zero, Credit: RoundCents(amount)}
}

// PostingTemplate maps a business event to a balanced set of lines.
// The set of implementations is closed.
type PostingTemplate interface {
	// Kind names the template for logs and metrics.
	Kind() string
	Reference() Reference
	EventDate() time.Time
	Description() string
	// RequiredCodes lists the account codes Lines needs.
	RequiredCodes() []string
	// Optional templates are skipped, not failed, when their accounts are missing.
	Optional() bool
	// Lines builds the legs given the resolved accounts for RequiredCodes.
	Lines(accounts map[string]*Account) ([]PostingLine, error)

	isPostingTemplate()
}

func refID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func requirePositive(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return NewValidationError(field, "must be greater than zero")
	}
	return ValidateAmount(field, d)
}

func requireNonNegative(field string, d decimal.Decimal) error {
	return ValidateAmount(field, d)
}

// InvoiceFinalized books a finalized invoice: receivable against revenue and GST liabilities.
type InvoiceFinalized struct {
	InvoiceID     string
	InvoiceNumber string
	Date          time.Time
	Subtotal      decimal.Decimal
	CGST          decimal.Decimal
	SGST          decimal.Decimal
	IGST          decimal.Decimal
	Total         decimal.Decimal
}

func (InvoiceFinalized) isPostingTemplate() {}

func (t InvoiceFinalized) Kind() string         { return "invoice_finalized" }
func (t InvoiceFinalized) EventDate() time.Time { return t.Date }
func (t InvoiceFinalized) Optional() bool       { return false }

func (t InvoiceFinalized) Reference() Reference {
	return Reference{Type: ReferenceInvoice, ID: refID(t.InvoiceID)}
}

func (t InvoiceFinalized) Description() string {
	return "Invoice " + firstNonEmpty(t.InvoiceNumber, t.InvoiceID)
}

func (t InvoiceFinalized) RequiredCodes() []string {
	codes := []string{CodeAccountsReceivable, CodeSalesRevenue}
	if t.CGST.IsPositive() {
		codes = append(codes, CodeCGSTPayable)
	}
	if t.SGST.IsPositive() {
		codes = append(codes, CodeSGSTPayable)
	}
	if t.IGST.IsPositive() {
		codes = append(codes, CodeIGSTPayable)
	}
	return codes
}

func (t InvoiceFinalized) Lines(_ map[string]*Account) ([]PostingLine, error) {
	if err := requirePositive("total", t.Total); err != nil {
		return nil, err
	}
	for _, part := range []struct {
		field string
		value decimal.Decimal
	}{
		{"subtotal", t.Subtotal},
		{"cgst", t.CGST},
		{"sgst", t.SGST},
		{"igst", t.IGST},
	} {
		if err := requireNonNegative(part.field, part.value); err != nil {
			return nil, err
		}
	}
	if !t.Subtotal.Add(t.CGST).Add(t.SGST).Add(t.IGST).Equal(t.Total) {
		return nil, NewValidationError("total", "subtotal plus taxes must equal total")
	}

	desc := t.Description()
	lines := []PostingLine{debit(CodeAccountsReceivable, desc, t.Total)}
	if t.Subtotal.IsPositive() {
		lines = append(lines, credit(CodeSalesRevenue, desc, t.Subtotal))
	}
	if t.CGST.IsPositive() {
		lines = append(lines, credit(CodeCGSTPayable, desc+" CGST", t.CGST))
	}
	if t.SGST.IsPositive() {
		lines = append(lines, credit(CodeSGSTPayable, desc+" SGST", t.SGST))
	}
	if t.IGST.IsPositive() {
		lines = append(lines, credit(CodeIGSTPayable, desc+" IGST", t.IGST))
	}
	return lines, nil
}

// PaymentMethod is how a customer payment was received.
type PaymentMethod string

const (
	PaymentMethodBank PaymentMethod = "bank"
	PaymentMethodCash PaymentMethod = "cash"
)

// PaymentRecorded books a customer payment: bank or cash against receivable.
type PaymentRecorded struct {
	PaymentID string
	InvoiceID string
	Date      time.Time
	Amount    decimal.Decimal
	Method    PaymentMethod
}

func (PaymentRecorded) isPostingTemplate() {}

func (t PaymentRecorded) Kind() string         { return "payment_recorded" }
func (t PaymentRecorded) EventDate() time.Time { return t.Date }
func (t PaymentRecorded) Optional() bool       { return false }

func (t PaymentRecorded) Reference() Reference {
	return Reference{Type: ReferencePayment, ID: refID(t.PaymentID)}
}

func (t PaymentRecorded) Description() string {
	if t.InvoiceID != "" {
		return "Payment received for invoice " + t.InvoiceID
	}
	return "Payment received " + t.PaymentID
}

func (t PaymentRecorded) cashCode() string {
	if t.Method == PaymentMethodCash {
		return CodeCash
	}
	return CodeBank
}

func (t PaymentRecorded) RequiredCodes() []string {
	return []string{t.cashCode(), CodeAccountsReceivable}
}

func (t PaymentRecorded) Lines(_ map[string]*Account) ([]PostingLine, error) {
	if t.Method != PaymentMethodBank && t.Method != PaymentMethodCash {
		return nil, NewValidationError("method", "payment method must be bank or cash")
	}
	if err := requirePositive("amount", t.Amount); err != nil {
		return nil, err
	}
	desc := t.Description()
	return []PostingLine{
		debit(t.cashCode(), desc, t.Amount),
		credit(CodeAccountsReceivable, desc, t.Amount),
	}, nil
}

// StockItem is one shipped line valued for cost of goods sold.
type StockItem struct {
	ProductID    string
	Quantity     decimal.Decimal
	StandardCost decimal.Decimal
	UnitPrice    decimal.Decimal
}

// UnitValue is the standard cost, falling back to the unit price when no cost is set.
func (i StockItem) UnitValue() decimal.Decimal {
	if i.StandardCost.IsPositive() {
		return i.StandardCost
	}
	return i.UnitPrice
}

// StockReduced moves shipped goods from inventory to cost of goods sold,
// or back again when Reversal is set.
type StockReduced struct {
	InvoiceID string
	Date      time.Time
	Items     []StockItem
	Reversal  bool
}

func (StockReduced) isPostingTemplate() {}

func (t StockReduced) Kind() string {
	if t.Reversal {
		return "stock_restored"
	}
	return "stock_reduced"
}

func (t StockReduced) EventDate() time.Time { return t.Date }
func (t StockReduced) Optional() bool       { return true }

func (t StockReduced) Reference() Reference {
	return Reference{Type: ReferenceInvoice, ID: refID(t.InvoiceID)}
}

func (t StockReduced) Description() string {
	if t.Reversal {
		return "Stock restored for invoice " + t.InvoiceID
	}
	return "Cost of goods sold for invoice " + t.InvoiceID
}

func (t StockReduced) RequiredCodes() []string {
	return []string{CodeCostOfGoodsSold, CodeInventory}
}

// Value is the cost of all items, rounded to cents.
func (t StockReduced) Value() decimal.Decimal {
	total := decimal.Zero
	for _, it := range t.Items {
		total = total.Add(it.Quantity.Mul(it.UnitValue()))
	}
	return RoundCents(total)
}

func (t StockReduced) Lines(_ map[string]*Account) ([]PostingLine, error) {
	for _, it := range t.Items {
		if it.Quantity.IsNegative() {
			return nil, NewValidationError("quantity", "quantity must not be negative")
		}
	}
	value := t.Value()
	if !value.IsPositive() {
		return nil, NewValidationError("items", "stock value must be greater than zero")
	}
	desc := t.Description()
	if t.Reversal {
		return []PostingLine{
			debit(CodeInventory, desc, value),
			credit(CodeCostOfGoodsSold, desc, value),
		}, nil
	}
	return []PostingLine{
		debit(CodeCostOfGoodsSold, desc, value),
		credit(CodeInventory, desc, value),
	}, nil
}

// ChequeEventKind is a state transition in a cheque's life.
type ChequeEventKind string

const (
	ChequeReceive ChequeEventKind = "receive"
	ChequeDeposit ChequeEventKind = "deposit"
	ChequeBounce  ChequeEventKind = "bounce"
	ChequeIssue   ChequeEventKind = "issue"
	ChequeStop    ChequeEventKind = "stop"
	ChequeClear   ChequeEventKind = "clear"
)

// ChequeEvent books one cheque state transition as its own journal entry.
type ChequeEvent struct {
	ChequeID     string
	ChequeNumber string
	Event        ChequeEventKind
	Date         time.Time
	Amount       decimal.Decimal
}

func (ChequeEvent) isPostingTemplate() {}

func (t ChequeEvent) Kind() string         { return "cheque_" + string(t.Event) }
func (t ChequeEvent) EventDate() time.Time { return t.Date }
func (t ChequeEvent) Optional() bool       { return false }

func (t ChequeEvent) Reference() Reference {
	return Reference{Type: ReferenceCheque, ID: refID(t.ChequeID)}
}

func (t ChequeEvent) Description() string {
	return fmt.Sprintf("Cheque %s %s", firstNonEmpty(t.ChequeNumber, t.ChequeID), t.Event)
}

func (t ChequeEvent) RequiredCodes() []string {
	switch t.Event {
	case ChequeReceive:
		return []string{CodeChequesInHand, CodeAccountsReceivable}
	case ChequeDeposit:
		return []string{CodeBank, CodeChequesInHand}
	case ChequeBounce:
		return []string{CodeChequesInHand, CodeBank, CodeAccountsReceivable}
	case ChequeIssue, ChequeStop:
		return []string{CodeAccountsPayable, CodeChequesIssued}
	case ChequeClear:
		return []string{CodeChequesIssued, CodeBank}
	}
	return nil
}

func (t ChequeEvent) Lines(_ map[string]*Account) ([]PostingLine, error) {
	if err := requirePositive("amount", t.Amount); err != nil {
		return nil, err
	}
	desc := t.Description()
	a := t.Amount
	switch t.Event {
	case ChequeReceive:
		return []PostingLine{debit(CodeChequesInHand, desc, a), credit(CodeAccountsReceivable, desc, a)}, nil
	case ChequeDeposit:
		return []PostingLine{debit(CodeBank, desc, a), credit(CodeChequesInHand, desc, a)}, nil
	case ChequeBounce:
		// Undo the deposit, then put the receivable back.
		return []PostingLine{
			debit(CodeChequesInHand, desc, a), credit(CodeBank, desc, a),
			debit(CodeAccountsReceivable, desc, a), credit(CodeChequesInHand, desc, a),
		}, nil
	case ChequeIssue:
		return []PostingLine{debit(CodeAccountsPayable, desc, a), credit(CodeChequesIssued, desc, a)}, nil
	case ChequeStop:
		return []PostingLine{debit(CodeChequesIssued, desc, a), credit(CodeAccountsPayable, desc, a)}, nil
	case ChequeClear:
		return []PostingLine{debit(CodeChequesIssued, desc, a), credit(CodeBank, desc, a)}, nil
	}
	return nil, NewValidationError("kind", "unknown cheque event "+string(t.Event))
}

// PayrollFinalized books one aggregated payroll run.
type PayrollFinalized struct {
	PayrollRunID string
	Date         time.Time
	GrossSalary  decimal.Decimal
	EmployerPF   decimal.Decimal
	EmployerESI  decimal.Decimal
	NetPayable   decimal.Decimal
	EmployeePF   decimal.Decimal
	EmployeeESI  decimal.Decimal
	TDS          decimal.Decimal
	PT           decimal.Decimal
}

func (PayrollFinalized) isPostingTemplate() {}

func (t PayrollFinalized) Kind() string         { return "payroll_finalized" }
func (t PayrollFinalized) EventDate() time.Time { return t.Date }
func (t PayrollFinalized) Optional() bool       { return false }

func (t PayrollFinalized) Reference() Reference {
	return Reference{Type: ReferencePayroll, ID: refID(t.PayrollRunID)}
}

func (t PayrollFinalized) Description() string {
	return "Payroll " + t.PayrollRunID
}

func (t PayrollFinalized) RequiredCodes() []string {
	codes := []string{CodeSalariesExpense, CodeSalaryPayable}
	add := func(cond bool, c ...string) {
		if cond {
			codes = append(codes, c...)
		}
	}
	add(t.EmployerPF.IsPositive(), CodeEmployerPFExpense)
	add(t.EmployerESI.IsPositive(), CodeEmployerESIExpense)
	add(t.EmployeePF.Add(t.EmployerPF).IsPositive(), CodePFPayable)
	add(t.EmployeeESI.Add(t.EmployerESI).IsPositive(), CodeESIPayable)
	add(t.TDS.IsPositive(), CodeTDSPayable)
	add(t.PT.IsPositive(), CodePTPayable)
	return codes
}

func (t PayrollFinalized) Lines(_ map[string]*Account) ([]PostingLine, error) {
	if err := requirePositive("gross_salary", t.GrossSalary); err != nil {
		return nil, err
	}
	fields := map[string]decimal.Decimal{
		"employer_pf": t.EmployerPF, "employer_esi": t.EmployerESI, "net_payable": t.NetPayable,
		"employee_pf": t.EmployeePF, "employee_esi": t.EmployeeESI, "tds": t.TDS, "pt": t.PT,
	}
	for field, v := range fields {
		if err := requireNonNegative(field, v); err != nil {
			return nil, err
		}
	}
	deductions := t.EmployeePF.Add(t.EmployeeESI).Add(t.TDS).Add(t.PT)
	if !t.NetPayable.Add(deductions).Equal(t.GrossSalary) {
		return nil, NewValidationError("net_payable", "net pay plus deductions must equal gross salary")
	}

	desc := t.Description()
	lines := []PostingLine{debit(CodeSalariesExpense, desc+" gross salary", t.GrossSalary)}
	appendIf := func(l PostingLine, amount decimal.Decimal) {
		if amount.IsPositive() {
			lines = append(lines, l)
		}
	}
	appendIf(debit(CodeEmployerPFExpense, desc+" employer PF", t.EmployerPF), t.EmployerPF)
	appendIf(debit(CodeEmployerESIExpense, desc+" employer ESI", t.EmployerESI), t.EmployerESI)
	appendIf(credit(CodeSalaryPayable, desc+" net salary", t.NetPayable), t.NetPayable)
	pf := t.EmployeePF.Add(t.EmployerPF)
	appendIf(credit(CodePFPayable, desc+" PF", pf), pf)
	esi := t.EmployeeESI.Add(t.EmployerESI)
	appendIf(credit(CodeESIPayable, desc+" ESI", esi), esi)
	appendIf(credit(CodeTDSPayable, desc+" TDS", t.TDS), t.TDS)
	appendIf(credit(CodePTPayable, desc+" professional tax", t.PT), t.PT)
	return lines, nil
}

// OpeningBalance initializes one account against Opening Balance Equity.
// A positive Amount increases the account on its normal side.
type OpeningBalance struct {
	AccountCode string
	Date        time.Time
	Amount      decimal.Decimal
}

func (OpeningBalance) isPostingTemplate() {}

func (t OpeningBalance) Kind() string         { return "opening_balance" }
func (t OpeningBalance) EventDate() time.Time { return t.Date }
func (t OpeningBalance) Optional() bool       { return false }

func (t OpeningBalance) Reference() Reference {
	return Reference{Type: ReferenceOpeningBalance, ID: refID(t.AccountCode)}
}

func (t OpeningBalance) Description() string {
	return "Opening balance for " + t.AccountCode
}

func (t OpeningBalance) RequiredCodes() []string {
	return []string{t.AccountCode, CodeOpeningBalance}
}

func (t OpeningBalance) Lines(accounts map[string]*Account) ([]PostingLine, error) {
	if t.AccountCode == CodeOpeningBalance {
		return nil, NewValidationError("account_code", "cannot open the opening balance equity account against itself")
	}
	if t.Amount.IsZero() {
		return nil, NewValidationError("amount", "opening amount must not be zero")
	}
	if !HasAtMostCents(t.Amount) {
		return nil, ErrTooManyDecimals
	}
	account, ok := accounts[t.AccountCode]
	if !ok {
		return nil, &ConfigurationError{MissingCodes: []string{t.AccountCode}}
	}

	side := account.Type.NormalBalance()
	if t.Amount.IsNegative() {
		side = opposite(side)
	}
	amount := t.Amount.Abs()
	desc := t.Description()
	if side == SideDebit {
		return []PostingLine{debit(t.AccountCode, desc, amount), credit(CodeOpeningBalance, desc, amount)}, nil
	}
	return []PostingLine{credit(t.AccountCode, desc, amount), debit(CodeOpeningBalance, desc, amount)}, nil
}

func opposite(s Side) Side {
	if s == SideDebit {
		return SideCredit
	}
	return SideDebit
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
