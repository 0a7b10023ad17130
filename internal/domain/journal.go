package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// JournalLine is an unresolved GL entry produced by a journal template.
type JournalLine struct {
	Account     GLAccountSpec
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// Journal is the full line set for one transaction.
type Journal []JournalLine

func debit(acc GLAccountSpec, amount decimal.Decimal, desc string) JournalLine {
	return JournalLine{Account: acc, Debit: amount, Credit: decimal.Zero, Description: desc}
}

func credit(acc GLAccountSpec, amount decimal.Decimal, desc string) JournalLine {
	return JournalLine{Account: acc, Debit: decimal.Zero, Credit: amount, Description: desc}
}

// BuildJournal returns the fixed template for the transaction's domain/type,
// filled with its amount and fee. provider names the counterparty whose
// liability account is affected.
func BuildJournal(t *Transaction, provider string) (Journal, error) {
	spec, ok := LookupKind(t.Domain, t.Type)
	if !ok {
		return nil, fmt.Errorf("no journal template for %s/%s", t.Domain, t.Type)
	}

	counterparty := CounterpartyAccount(provider)
	label := fmt.Sprintf("%s %s", t.Domain, t.Type)

	var j Journal

	switch spec.Rule {
	case RuleDeposit:
		j = append(j,
			debit(cashAccount, t.Amount, label+" principal"),
			credit(counterparty, t.Amount, label+" principal"),
		)
	case RuleWithdrawal:
		j = append(j,
			debit(counterparty, t.Amount, label+" principal"),
			credit(cashAccount, t.Amount, label+" principal"),
		)
	case RuleInterbank:
		if spec.MovesFloat {
			j = append(j,
				debit(clearingAccount, t.Amount, label+" principal"),
				credit(counterparty, t.Amount, label+" principal"),
			)
		}
	case RuleCommission:
		revenue, ok := revenueAccounts[spec.RevenueCode]
		if !ok {
			return nil, fmt.Errorf("no revenue account %q for %s/%s", spec.RevenueCode, t.Domain, t.Type)
		}

		return Journal{
			debit(cashAccount, t.Amount, label),
			credit(revenue, t.Amount, label),
		}, nil
	}

	if t.Fee.IsPositive() {
		j = append(j,
			debit(cashAccount, t.Fee, label+" fee"),
			credit(feeRevenue, t.Fee, label+" fee"),
		)
	}

	return j, nil
}

// Totals returns the debit and credit sums.
func (j Journal) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range j {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}

	return debit, credit
}

// Validate checks every line carries exactly one non-negative side and that
// the journal balances.
func (j Journal) Validate() error {
	for i, l := range j {
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return fmt.Errorf("%w: line %d has a negative amount", ErrLedgerImbalance, i)
		}

		if l.Debit.IsZero() == l.Credit.IsZero() {
			return fmt.Errorf("%w: line %d must have exactly one of debit or credit", ErrLedgerImbalance, i)
		}
	}

	d, c := j.Totals()
	if !d.Equal(c) {
		return &LedgerImbalanceError{TotalDebit: d, TotalCredit: c}
	}

	return nil
}

// NetFor returns debits minus credits booked against code.
func (j Journal) NetFor(code string) decimal.Decimal {
	net := decimal.Zero
	for _, l := range j {
		if l.Account.Code == code {
			net = net.Add(l.Debit).Sub(l.Credit)
		}
	}

	return net
}
