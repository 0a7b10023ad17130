package domain

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// EffectRule is the balance policy a domain/type pair follows.
type EffectRule string

const (
	RuleDeposit    EffectRule = "deposit"
	RuleWithdrawal EffectRule = "withdrawal"
	RuleInterbank  EffectRule = "interbank"
	RuleCommission EffectRule = "commission"
)

// Kind identifies a domain/type pair.
type Kind struct {
	Domain TransactionDomain
	Type   TransactionType
}

func (k Kind) String() string {
	return string(k.Domain) + "/" + string(k.Type)
}

// KindSpec is the fixed policy of one domain/type pair.
type KindSpec struct {
	Rule EffectRule
	// MovesFloat is false for interbank legs settled outside our float.
	MovesFloat bool
	// RevenueCode is the GL revenue account credited by fee-only rules.
	RevenueCode string
}

// kinds is the single authoritative rule table.
var kinds = map[Kind]KindSpec{
	{DomainMobileMoney, TypeDeposit}:    {Rule: RuleDeposit, MovesFloat: true},
	{DomainMobileMoney, TypeWithdrawal}: {Rule: RuleWithdrawal, MovesFloat: true},
	{DomainMobileMoney, TypeInterbank}:  {Rule: RuleInterbank, MovesFloat: false},
	{DomainMobileMoney, TypeCommission}: {Rule: RuleCommission, RevenueCode: GLCodeCommissionRevenue},

	{DomainAgencyBanking, TypeDeposit}:    {Rule: RuleDeposit, MovesFloat: true},
	{DomainAgencyBanking, TypeWithdrawal}: {Rule: RuleWithdrawal, MovesFloat: true},
	{DomainAgencyBanking, TypeInterbank}:  {Rule: RuleInterbank, MovesFloat: true},
	{DomainAgencyBanking, TypeCommission}: {Rule: RuleCommission, RevenueCode: GLCodeCommissionRevenue},

	{DomainCardIssuance, TypeIssuance}:   {Rule: RuleCommission, RevenueCode: GLCodeCardRevenue},
	{DomainCardIssuance, TypeCommission}: {Rule: RuleCommission, RevenueCode: GLCodeCommissionRevenue},

	{DomainCardWithdrawal, TypeWithdrawal}: {Rule: RuleWithdrawal, MovesFloat: true},
	{DomainCardWithdrawal, TypeCommission}: {Rule: RuleCommission, RevenueCode: GLCodeCommissionRevenue},

	{DomainBillPayment, TypePayment}:    {Rule: RuleDeposit, MovesFloat: true},
	{DomainBillPayment, TypeCommission}: {Rule: RuleCommission, RevenueCode: GLCodeCommissionRevenue},

	{DomainPackageLogistics, TypeShipment}:   {Rule: RuleCommission, RevenueCode: GLCodeLogisticsRevenue},
	{DomainPackageLogistics, TypeCommission}: {Rule: RuleCommission, RevenueCode: GLCodeCommissionRevenue},
}

// LookupKind returns the policy for a domain/type pair.
func LookupKind(d TransactionDomain, t TransactionType) (KindSpec, bool) {
	spec, ok := kinds[Kind{Domain: d, Type: t}]
	return spec, ok
}

// Kinds lists every supported domain/type pair in a stable order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })

	return out
}

// ValidateKind checks caller supplied domain and type.
func ValidateKind(d TransactionDomain, t TransactionType) error {
	if _, ok := LookupKind(d, t); !ok {
		return NewValidationError("type", fmt.Sprintf("unsupported transaction type %q for domain %q", t, d))
	}

	return nil
}

// Effects is the signed balance movement of one transaction.
type Effects struct {
	CashTillDelta decimal.Decimal
	FloatDelta    decimal.Decimal
}

// Negate returns the exact inverse effects.
func (e Effects) Negate() Effects {
	return Effects{CashTillDelta: e.CashTillDelta.Neg(), FloatDelta: e.FloatDelta.Neg()}
}

// Sub returns e - other.
func (e Effects) Sub(other Effects) Effects {
	return Effects{
		CashTillDelta: e.CashTillDelta.Sub(other.CashTillDelta),
		FloatDelta:    e.FloatDelta.Sub(other.FloatDelta),
	}
}

// Moves reports whether any balance changes.
func (e Effects) Moves() bool {
	return !e.CashTillDelta.IsZero() || !e.FloatDelta.IsZero()
}

// ComputeEffects maps a transaction to its cash till and float deltas.
// It panics for a domain/type pair outside the rule table; callers validate
// input with ValidateKind first.
func ComputeEffects(d TransactionDomain, t TransactionType, amount, fee decimal.Decimal) Effects {
	spec, ok := LookupKind(d, t)
	if !ok {
		panic(fmt.Sprintf("domain: no effect rule for %s/%s", d, t))
	}

	switch spec.Rule {
	case RuleDeposit:
		return Effects{CashTillDelta: amount.Add(fee), FloatDelta: amount.Neg()}
	case RuleWithdrawal:
		return Effects{CashTillDelta: amount.Sub(fee).Neg(), FloatDelta: amount}
	case RuleInterbank:
		floatDelta := decimal.Zero
		if spec.MovesFloat {
			floatDelta = amount.Neg()
		}

		return Effects{CashTillDelta: fee, FloatDelta: floatDelta}
	case RuleCommission:
		return Effects{CashTillDelta: amount, FloatDelta: decimal.Zero}
	default:
		panic(fmt.Sprintf("domain: unknown effect rule %q", spec.Rule))
	}
}

// AccountDeltas accumulates signed deltas per account id.
type AccountDeltas map[string]decimal.Decimal

// Add accumulates delta onto accountID. Empty ids and zero deltas are ignored.
func (d AccountDeltas) Add(accountID string, delta decimal.Decimal) {
	if accountID == "" || delta.IsZero() {
		return
	}

	d[accountID] = d[accountID].Add(delta)
}

// Merge accumulates every delta of other into d.
func (d AccountDeltas) Merge(other AccountDeltas) {
	for id, delta := range other {
		d.Add(id, delta)
	}
}

// Negate returns the inverse of every delta.
func (d AccountDeltas) Negate() AccountDeltas {
	out := make(AccountDeltas, len(d))
	for id, delta := range d {
		out[id] = delta.Neg()
	}

	return out
}

// SortedIDs returns account ids with a non-zero net delta in lock order.
func (d AccountDeltas) SortedIDs() []string {
	ids := make([]string, 0, len(d))
	for id, delta := range d {
		if !delta.IsZero() {
			ids = append(ids, id)
		}
	}

	sort.Strings(ids)

	return ids
}
