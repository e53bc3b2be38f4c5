package domain

// Well-known account codes. Posting templates resolve accounts through these
// codes only, so a seeded chart must keep them stable.
const (
	CodeCash                = "1000"
	CodeBank                = "1010"
	CodeAccountsReceivable  = "1100"
	CodeInventory           = "1200"
	CodeChequesInHand       = "1300"
	CodeAccountsPayable     = "2000"
	CodeTaxPayable          = "2100"
	CodeCGSTPayable         = "2110"
	CodeSGSTPayable         = "2120"
	CodeIGSTPayable         = "2130"
	CodeSalaryPayable       = "2200"
	CodePFPayable           = "2210"
	CodeESIPayable          = "2220"
	CodeTDSPayable          = "2230"
	CodePTPayable           = "2240"
	CodeChequesIssued       = "2300"
	CodeOwnersEquity        = "3000"
	CodeOpeningBalance      = "3100"
	CodeRetainedEarnings    = "3200"
	CodeSalesRevenue        = "4000"
	CodeInterestIncome      = "4100"
	CodeCostOfGoodsSold     = "5000"
	CodeSalariesExpense     = "6000"
	CodeEmployerPFExpense   = "6010"
	CodeEmployerESIExpense  = "6020"
	CodeBankCharges         = "6100"
	CodeMiscellaneousIncome = "4900"
)

// ChartEntry is one row of the default chart of accounts.
type ChartEntry struct {
	Code       string      `yaml:"code"`
	Name       string      `yaml:"name"`
	Type       AccountType `yaml:"type"`
	ParentCode string      `yaml:"parent_code,omitempty"`
	IsSystem   bool        `yaml:"is_system"`
}

// DefaultChart is the chart seeded for every new company.
var DefaultChart = []ChartEntry{
	{Code: CodeCash, Name: "Cash", Type: AccountTypeAsset, IsSystem: true},
	{Code: CodeBank, Name: "Bank", Type: AccountTypeAsset, IsSystem: true},
	{Code: CodeAccountsReceivable, Name: "Accounts Receivable", Type: AccountTypeAsset, IsSystem: true},
	{Code: CodeInventory, Name: "Inventory", Type: AccountTypeAsset, IsSystem: true},
	{Code: CodeChequesInHand, Name: "Cheques in Hand", Type: AccountTypeAsset, IsSystem: true},

	{Code: CodeAccountsPayable, Name: "Accounts Payable", Type: AccountTypeLiability, IsSystem: true},
	{Code: CodeTaxPayable, Name: "Tax Payable", Type: AccountTypeLiability, IsSystem: true},
	{Code: CodeCGSTPayable, Name: "CGST Payable", Type: AccountTypeLiability, ParentCode: CodeTaxPayable, IsSystem: true},
	{Code: CodeSGSTPayable, Name: "SGST Payable", Type: AccountTypeLiability, ParentCode: CodeTaxPayable, IsSystem: true},
	{Code: CodeIGSTPayable, Name: "IGST Payable", Type: AccountTypeLiability, ParentCode: CodeTaxPayable, IsSystem: true},
	{Code: CodeSalaryPayable, Name: "Salary Payable", Type: AccountTypeLiability, IsSystem: true},
	{Code: CodePFPayable, Name: "PF Payable", Type: AccountTypeLiability, ParentCode: CodeSalaryPayable, IsSystem: true},
	{Code: CodeESIPayable, Name: "ESI Payable", Type: AccountTypeLiability, ParentCode: CodeSalaryPayable, IsSystem: true},
	{Code: CodeTDSPayable, Name: "TDS Payable", Type: AccountTypeLiability, ParentCode: CodeSalaryPayable, IsSystem: true},
	{Code: CodePTPayable, Name: "Professional Tax Payable", Type: AccountTypeLiability, ParentCode: CodeSalaryPayable, IsSystem: true},
	{Code: CodeChequesIssued, Name: "Cheques Issued", Type: AccountTypeLiability, IsSystem: true},

	{Code: CodeOwnersEquity, Name: "Owner's Equity", Type: AccountTypeEquity, IsSystem: true},
	{Code: CodeOpeningBalance, Name: "Opening Balance Equity", Type: AccountTypeEquity, IsSystem: true},
	{Code: CodeRetainedEarnings, Name: "Retained Earnings", Type: AccountTypeEquity, IsSystem: true},

	{Code: CodeSalesRevenue, Name: "Sales Revenue", Type: AccountTypeRevenue, IsSystem: true},
	{Code: CodeInterestIncome, Name: "Interest Income", Type: AccountTypeRevenue, IsSystem: true},
	{Code: CodeMiscellaneousIncome, Name: "Miscellaneous Income", Type: AccountTypeRevenue, IsSystem: false},

	{Code: CodeCostOfGoodsSold, Name: "Cost of Goods Sold", Type: AccountTypeExpense, IsSystem: true},
	{Code: CodeSalariesExpense, Name: "Salaries Expense", Type: AccountTypeExpense, IsSystem: true},
	{Code: CodeEmployerPFExpense, Name: "Employer PF Contribution", Type: AccountTypeExpense, ParentCode: CodeSalariesExpense, IsSystem: true},
	{Code: CodeEmployerESIExpense, Name: "Employer ESI Contribution", Type: AccountTypeExpense, ParentCode: CodeSalariesExpense, IsSystem: true},
	{Code: CodeBankCharges, Name: "Bank Charges", Type: AccountTypeExpense, IsSystem: true},
}

// LookupChartEntry finds a default chart entry by code.
func LookupChartEntry(code string) (ChartEntry, bool) {
	for _, e := range DefaultChart {
		if e.Code == code {
			return e, true
		}
	}
	return ChartEntry{}, false
}

// ValidateChart checks a chart for duplicate codes, unknown types and dangling parents.
// Parents must appear before their children.
func ValidateChart(chart []ChartEntry) error {
	seen := make(map[string]AccountType, len(chart))
	for _, e := range chart {
		if err := ValidateAccountCode(e.Code); err != nil {
			return err
		}
		if !e.Type.IsValid() {
			return NewValidationError("type", "unknown account type "+string(e.Type)+" for code "+e.Code)
		}
		if _, dup := seen[e.Code]; dup {
			return NewValidationError("code", "duplicate code "+e.Code)
		}
		if e.ParentCode != "" {
			if _, ok := seen[e.ParentCode]; !ok {
				return NewValidationError("parent_code", "parent "+e.ParentCode+" must precede "+e.Code)
			}
		}
		seen[e.Code] = e.Type
	}
	return nil
}

// AccountsByCode indexes a company's accounts by code.
type AccountsByCode map[string]*Account

// Resolve returns the accounts for codes, or a ConfigurationError naming every missing code.
func (m AccountsByCode) Resolve(codes ...string) (map[string]*Account, error) {
	out := make(map[string]*Account, len(codes))
	var missing []string
	for _, c := range codes {
		a, ok := m[c]
		if !ok || !a.IsActive {
			missing = append(missing, c)
			continue
		}
		out[c] = a
	}
	if len(missing) > 0 {
		return nil, &ConfigurationError{MissingCodes: missing}
	}
	return out, nil
}
