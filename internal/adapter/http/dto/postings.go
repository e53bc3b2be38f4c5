package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/bookkeeper/internal/domain"
)

// PostingRequest converts a business event into a posting template.
type PostingRequest interface {
	ToTemplate() domain.PostingTemplate
}

// InvoicePostingRequest books a finalized invoice.
type InvoicePostingRequest struct {
	InvoiceID     string          `json:"invoice_id"     validate:"required"`
	InvoiceNumber string          `json:"invoice_number"`
	Date          *Date           `json:"date"           validate:"required"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	CGST          decimal.Decimal `json:"cgst"`
	SGST          decimal.Decimal `json:"sgst"`
	IGST          decimal.Decimal `json:"igst"`
	// Total defaults to subtotal plus taxes.
	Total *decimal.Decimal `json:"total,omitempty"`
}

func (r *InvoicePostingRequest) ToTemplate() domain.PostingTemplate {
	total := r.Subtotal.Add(r.CGST).Add(r.SGST).Add(r.IGST)
	if r.Total != nil {
		total = *r.Total
	}
	return domain.InvoiceFinalized{
		InvoiceID:     r.InvoiceID,
		InvoiceNumber: r.InvoiceNumber,
		Date:          r.Date.Time,
		Subtotal:      r.Subtotal,
		CGST:          r.CGST,
		SGST:          r.SGST,
		IGST:          r.IGST,
		Total:         total,
	}
}

// PaymentPostingRequest books a customer payment.
type PaymentPostingRequest struct {
	PaymentID string          `json:"payment_id" validate:"required"`
	InvoiceID string          `json:"invoice_id,omitempty"`
	Date      *Date           `json:"date"       validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"     validate:"required,oneof=bank cash"`
}

func (r *PaymentPostingRequest) ToTemplate() domain.PostingTemplate {
	return domain.PaymentRecorded{
		PaymentID: r.PaymentID,
		InvoiceID: r.InvoiceID,
		Date:      r.Date.Time,
		Amount:    r.Amount,
		Method:    domain.PaymentMethod(r.Method),
	}
}

// StockItemRequest is one shipped line.
type StockItemRequest struct {
	ProductID    string          `json:"product_id" validate:"required"`
	Quantity     decimal.Decimal `json:"quantity"`
	StandardCost decimal.Decimal `json:"standard_cost"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
}

// StockPostingRequest books cost of goods sold for shipped items.
type StockPostingRequest struct {
	InvoiceID string             `json:"invoice_id" validate:"required"`
	Date      *Date              `json:"date"       validate:"required"`
	Items     []StockItemRequest `json:"items"      validate:"required,min=1,dive"`
	Reversal  bool               `json:"reversal"`
}

func (r *StockPostingRequest) ToTemplate() domain.PostingTemplate {
	items := make([]domain.StockItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = domain.StockItem{
			ProductID:    it.ProductID,
			Quantity:     it.Quantity,
			StandardCost: it.StandardCost,
			UnitPrice:    it.UnitPrice,
		}
	}
	return domain.StockReduced{InvoiceID: r.InvoiceID, Date: r.Date.Time, Items: items, Reversal: r.Reversal}
}

// ChequePostingRequest books one cheque state transition.
type ChequePostingRequest struct {
	ChequeID     string          `json:"cheque_id"     validate:"required"`
	ChequeNumber string          `json:"cheque_number"`
	Event        string          `json:"event"         validate:"required,oneof=receive deposit bounce issue stop clear"`
	Date         *Date           `json:"date"          validate:"required"`
	Amount       decimal.Decimal `json:"amount"`
}

func (r *ChequePostingRequest) ToTemplate() domain.PostingTemplate {
	return domain.ChequeEvent{
		ChequeID:     r.ChequeID,
		ChequeNumber: r.ChequeNumber,
		Event:        domain.ChequeEventKind(r.Event),
		Date:         r.Date.Time,
		Amount:       r.Amount,
	}
}

// PayrollPostingRequest books an aggregated payroll run.
type PayrollPostingRequest struct {
	PayrollRunID string          `json:"payroll_run_id" validate:"required"`
	Date         *Date           `json:"date"           validate:"required"`
	GrossSalary  decimal.Decimal `json:"gross_salary"`
	EmployerPF   decimal.Decimal `json:"employer_pf"`
	EmployerESI  decimal.Decimal `json:"employer_esi"`
	NetPayable   decimal.Decimal `json:"net_payable"`
	EmployeePF   decimal.Decimal `json:"employee_pf"`
	EmployeeESI  decimal.Decimal `json:"employee_esi"`
	TDS          decimal.Decimal `json:"tds"`
	PT           decimal.Decimal `json:"pt"`
}

func (r *PayrollPostingRequest) ToTemplate() domain.PostingTemplate {
	return domain.PayrollFinalized{
		PayrollRunID: r.PayrollRunID,
		Date:         r.Date.Time,
		GrossSalary:  r.GrossSalary,
		EmployerPF:   r.EmployerPF,
		EmployerESI:  r.EmployerESI,
		NetPayable:   r.NetPayable,
		EmployeePF:   r.EmployeePF,
		EmployeeESI:  r.EmployeeESI,
		TDS:          r.TDS,
		PT:           r.PT,
	}
}

// OpeningBalancePostingRequest sets an account's opening balance.
type OpeningBalancePostingRequest struct {
	AccountCode string          `json:"account_code" validate:"required"`
	Date        *Date           `json:"date"         validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
}

func (r *OpeningBalancePostingRequest) ToTemplate() domain.PostingTemplate {
	return domain.OpeningBalance{AccountCode: r.AccountCode, Date: r.Date.Time, Amount: r.Amount}
}

// NewPostingRequest returns an empty request for a posting kind, or false for an unknown kind.
func NewPostingRequest(kind string) (PostingRequest, bool) {
	switch kind {
	case "invoice":
		return &InvoicePostingRequest{}, true
	case "payment":
		return &PaymentPostingRequest{}, true
	case "stock":
		return &StockPostingRequest{}, true
	case "cheque":
		return &ChequePostingRequest{}, true
	case "payroll":
		return &PayrollPostingRequest{}, true
	case "opening-balance":
		return &OpeningBalancePostingRequest{}, true
	}
	return nil, false
}
