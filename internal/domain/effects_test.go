package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeEffects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		domain    TransactionDomain
		txType    TransactionType
		amount    string
		fee       string
		wantCash  string
		wantFloat string
	}{
		{"mobile money deposit", DomainMobileMoney, TypeDeposit, "1000", "10", "1010", "-1000"},
		{"mobile money withdrawal", DomainMobileMoney, TypeWithdrawal, "500", "5", "-495", "500"},
		{"mobile money interbank leaves float", DomainMobileMoney, TypeInterbank, "300", "3", "3", "0"},
		{"agency interbank moves float", DomainAgencyBanking, TypeInterbank, "300", "3", "3", "-300"},
		{"agency deposit without fee", DomainAgencyBanking, TypeDeposit, "250.50", "0", "250.50", "-250.50"},
		{"card withdrawal", DomainCardWithdrawal, TypeWithdrawal, "200", "2", "-198", "200"},
		{"bill payment", DomainBillPayment, TypePayment, "75", "1.5", "76.5", "-75"},
		{"card issuance", DomainCardIssuance, TypeIssuance, "20", "0", "20", "0"},
		{"shipment", DomainPackageLogistics, TypeShipment, "45", "0", "45", "0"},
		{"commission", DomainMobileMoney, TypeCommission, "12.25", "0", "12.25", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeEffects(tt.domain, tt.txType, dec(tt.amount), dec(tt.fee))
			if !got.CashTillDelta.Equal(dec(tt.wantCash)) {
				t.Errorf("cash till delta = %s, want %s", got.CashTillDelta, tt.wantCash)
			}
			if !got.FloatDelta.Equal(dec(tt.wantFloat)) {
				t.Errorf("float delta = %s, want %s", got.FloatDelta, tt.wantFloat)
			}
		})
	}
}

func TestComputeEffects_BranchBalances(t *testing.T) {
	t.Parallel()

	till, float := dec("2000"), dec("5000")

	deposit := ComputeEffects(DomainMobileMoney, TypeDeposit, dec("1000"), dec("10"))
	till, float = till.Add(deposit.CashTillDelta), float.Add(deposit.FloatDelta)

	if !till.Equal(dec("3010")) || !float.Equal(dec("4000")) {
		t.Fatalf("after deposit till=%s float=%s, want 3010/4000", till, float)
	}

	withdrawal := ComputeEffects(DomainMobileMoney, TypeWithdrawal, dec("500"), dec("5"))
	till, float = till.Add(withdrawal.CashTillDelta), float.Add(withdrawal.FloatDelta)

	if !till.Equal(dec("2515")) || !float.Equal(dec("4500")) {
		t.Fatalf("after withdrawal till=%s float=%s, want 2515/4500", till, float)
	}

	rev := withdrawal.Negate()
	till, float = till.Add(rev.CashTillDelta), float.Add(rev.FloatDelta)

	if !till.Equal(dec("3010")) || !float.Equal(dec("4000")) {
		t.Fatalf("after reversal till=%s float=%s, want 3010/4000", till, float)
	}
}

func TestComputeEffects_AmendNetsDifference(t *testing.T) {
	t.Parallel()

	old := ComputeEffects(DomainMobileMoney, TypeDeposit, dec("1000"), decimal.Zero)
	amended := ComputeEffects(DomainMobileMoney, TypeDeposit, dec("1500"), decimal.Zero)
	net := amended.Sub(old)

	if !net.CashTillDelta.Equal(dec("500")) {
		t.Errorf("net cash = %s, want 500", net.CashTillDelta)
	}
	if !net.FloatDelta.Equal(dec("-500")) {
		t.Errorf("net float = %s, want -500", net.FloatDelta)
	}
}

func TestComputeEffects_NegationRoundTrip(t *testing.T) {
	t.Parallel()

	for _, k := range Kinds() {
		fee := dec("3.33")
		if spec, _ := LookupKind(k.Domain, k.Type); spec.Rule == RuleCommission {
			fee = decimal.Zero
		}

		e := ComputeEffects(k.Domain, k.Type, dec("123.45"), fee)
		sum := Effects{
			CashTillDelta: e.CashTillDelta.Add(e.Negate().CashTillDelta),
			FloatDelta:    e.FloatDelta.Add(e.Negate().FloatDelta),
		}
		if sum.Moves() {
			t.Errorf("%s: effects plus negation should be zero, got %+v", k, sum)
		}
	}
}

func TestComputeEffects_UnknownPairPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown domain/type pair")
		}
	}()

	ComputeEffects(DomainCardIssuance, TypeDeposit, dec("1"), decimal.Zero)
}

func TestValidateKind(t *testing.T) {
	t.Parallel()

	if err := ValidateKind(DomainBillPayment, TypePayment); err != nil {
		t.Fatalf("expected bill-payment/payment to be valid, got %v", err)
	}

	err := ValidateKind(DomainBillPayment, TypeDeposit)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "type" {
		t.Fatalf("expected ValidationError on field type, got %v", err)
	}
}

func TestAccountDeltas(t *testing.T) {
	t.Parallel()

	d := AccountDeltas{}
	d.Add("b", dec("10"))
	d.Add("a", dec("-4"))
	d.Add("", dec("99"))
	d.Add("c", decimal.Zero)
	d.Merge(AccountDeltas{"b": dec("-10"), "a": dec("1")})

	ids := d.SortedIDs()
	if len(ids) != 1 || ids[0] != "a" {
		t.Fatalf("sorted ids = %v, want [a]", ids)
	}

	if !d["a"].Equal(dec("-3")) {
		t.Errorf("a = %s, want -3", d["a"])
	}

	if !d.Negate()["a"].Equal(dec("3")) {
		t.Errorf("negated a = %s, want 3", d.Negate()["a"])
	}
}
