package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Chart of accounts codes.
const (
	GLCodeCash                = "1000"
	GLCodeInterbankClearing   = "1300"
	GLCodeCounterpartyPrefix  = "2100-"
	GLCodeFeeRevenue          = "4000"
	GLCodeCommissionRevenue   = "4100"
	GLCodeCardRevenue         = "4200"
	GLCodeLogisticsRevenue    = "4300"
	defaultCounterpartySuffix = "GENERAL"
)

// GLAccountType is the accounting class of a GL account.
type GLAccountType string

const (
	GLAccountAsset     GLAccountType = "asset"
	GLAccountLiability GLAccountType = "liability"
	GLAccountRevenue   GLAccountType = "revenue"
	GLAccountExpense   GLAccountType = "expense"
)

// BalanceChange returns the signed balance movement of a debit/credit pair for
// an account of this type. Assets and expenses grow with debits.
func (t GLAccountType) BalanceChange(debit, credit decimal.Decimal) decimal.Decimal {
	switch t {
	case GLAccountAsset, GLAccountExpense:
		return debit.Sub(credit)
	default:
		return credit.Sub(debit)
	}
}

// GLAccount is a chart of accounts entry. Code is the natural key.
type GLAccount struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	ID        string
	Code      string
	Name      string
	Type      GLAccountType
	Balance   decimal.Decimal
	IsActive  bool
}

// GLAccountSpec identifies an account to get-or-create by code.
type GLAccountSpec struct {
	Code string
	Name string
	Type GLAccountType
}

var (
	cashAccount     = GLAccountSpec{Code: GLCodeCash, Name: "Cash on Hand", Type: GLAccountAsset}
	clearingAccount = GLAccountSpec{Code: GLCodeInterbankClearing, Name: "Interbank Clearing", Type: GLAccountAsset}
	feeRevenue      = GLAccountSpec{Code: GLCodeFeeRevenue, Name: "Fee Revenue", Type: GLAccountRevenue}
	nonCodeChars    = regexp.MustCompile(`[^A-Z0-9]+`)
)

var revenueAccounts = map[string]GLAccountSpec{
	GLCodeCommissionRevenue: {Code: GLCodeCommissionRevenue, Name: "Commission Revenue", Type: GLAccountRevenue},
	GLCodeCardRevenue:       {Code: GLCodeCardRevenue, Name: "Card Issuance Revenue", Type: GLAccountRevenue},
	GLCodeLogisticsRevenue:  {Code: GLCodeLogisticsRevenue, Name: "Logistics Revenue", Type: GLAccountRevenue},
}

// CounterpartyAccount returns the liability account of a provider. The code is
// derived from the provider code so the same provider always maps to one account.
func CounterpartyAccount(provider string) GLAccountSpec {
	suffix := strings.Trim(nonCodeChars.ReplaceAllString(strings.ToUpper(provider), "-"), "-")
	if suffix == "" {
		suffix = defaultCounterpartySuffix
	}

	return GLAccountSpec{
		Code: GLCodeCounterpartyPrefix + suffix,
		Name: strings.TrimSpace(provider) + " Float Liability",
		Type: GLAccountLiability,
	}
}

// GLTransaction is a balanced group of entries tied to one source transaction.
type GLTransaction struct {
	Date                  time.Time
	CreatedAt             time.Time
	ID                    string
	Description           string
	SourceModule          string
	SourceTransactionID   string
	SourceTransactionType string
	ActorID               string
	Entries               []*GLEntry
}

// Totals returns the debit and credit sums of the entries.
func (t *GLTransaction) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, e := range t.Entries {
		debit = debit.Add(e.Debit)
		credit = credit.Add(e.Credit)
	}

	return debit, credit
}

// GLEntry is one debit or credit line.
type GLEntry struct {
	CreatedAt       time.Time
	Metadata        map[string]any
	ID              string
	GLTransactionID string
	AccountID       string
	AccountCode     string
	AccountType     GLAccountType
	Description     string
	Debit           decimal.Decimal
	Credit          decimal.Decimal
}
