package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestBuildJournal_BalancedAndConsistent(t *testing.T) {
	t.Parallel()

	counterparty := CounterpartyAccount("MTN").Code

	for _, k := range Kinds() {
		t.Run(k.String(), func(t *testing.T) {
			spec, _ := LookupKind(k.Domain, k.Type)
			fee := dec("10")
			if spec.Rule == RuleCommission {
				fee = decimal.Zero
			}

			txn := &Transaction{Domain: k.Domain, Type: k.Type, Amount: dec("1000"), Fee: fee}
			effects := ComputeEffects(k.Domain, k.Type, txn.Amount, txn.Fee)

			j, err := BuildJournal(txn, "MTN")
			if err != nil {
				t.Fatalf("BuildJournal returned error: %v", err)
			}
			if err := j.Validate(); err != nil {
				t.Fatalf("journal does not validate: %v", err)
			}

			if got := j.NetFor(GLCodeCash); !got.Equal(effects.CashTillDelta) {
				t.Errorf("cash GL net = %s, cash till delta = %s", got, effects.CashTillDelta)
			}
			if got := j.NetFor(counterparty); !got.Equal(effects.FloatDelta) {
				t.Errorf("counterparty GL net = %s, float delta = %s", got, effects.FloatDelta)
			}
		})
	}
}

func TestBuildJournal_DepositLines(t *testing.T) {
	t.Parallel()

	txn := &Transaction{Domain: DomainMobileMoney, Type: TypeDeposit, Amount: dec("1000"), Fee: dec("10")}

	j, err := BuildJournal(txn, "mtn momo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(j) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(j))
	}

	want := []struct {
		code   string
		debit  string
		credit string
	}{
		{GLCodeCash, "1000", "0"},
		{"2100-MTN-MOMO", "0", "1000"},
		{GLCodeCash, "10", "0"},
		{GLCodeFeeRevenue, "0", "10"},
	}
	for i, w := range want {
		if j[i].Account.Code != w.code || !j[i].Debit.Equal(dec(w.debit)) || !j[i].Credit.Equal(dec(w.credit)) {
			t.Errorf("line %d = %s Dr %s Cr %s, want %s Dr %s Cr %s",
				i, j[i].Account.Code, j[i].Debit, j[i].Credit, w.code, w.debit, w.credit)
		}
	}
}

func TestBuildJournal_FeeFreeInterbankPostsNothing(t *testing.T) {
	t.Parallel()

	txn := &Transaction{Domain: DomainMobileMoney, Type: TypeInterbank, Amount: dec("300"), Fee: decimal.Zero}

	j, err := BuildJournal(txn, "MTN")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(j) != 0 {
		t.Fatalf("expected empty journal, got %d lines", len(j))
	}
}

func TestJournal_ValidateImbalance(t *testing.T) {
	t.Parallel()

	j := Journal{
		{Account: GLAccountSpec{Code: GLCodeCash}, Debit: dec("100"), Credit: decimal.Zero},
		{Account: GLAccountSpec{Code: GLCodeFeeRevenue}, Debit: decimal.Zero, Credit: dec("90")},
	}

	err := j.Validate()

	var imbalance *LedgerImbalanceError
	if !errors.As(err, &imbalance) {
		t.Fatalf("expected LedgerImbalanceError, got %v", err)
	}
	if !imbalance.TotalDebit.Equal(dec("100")) || !imbalance.TotalCredit.Equal(dec("90")) {
		t.Errorf("totals = %s/%s, want 100/90", imbalance.TotalDebit, imbalance.TotalCredit)
	}
	if !errors.Is(err, ErrLedgerImbalance) {
		t.Errorf("expected errors.Is ErrLedgerImbalance")
	}
}

func TestJournal_ValidateLineShape(t *testing.T) {
	t.Parallel()

	both := Journal{{Account: GLAccountSpec{Code: GLCodeCash}, Debit: dec("1"), Credit: dec("1")}}
	if err := both.Validate(); !errors.Is(err, ErrLedgerImbalance) {
		t.Errorf("line with both sides: expected ErrLedgerImbalance, got %v", err)
	}

	negative := Journal{
		{Account: GLAccountSpec{Code: GLCodeCash}, Debit: dec("-5"), Credit: decimal.Zero},
		{Account: GLAccountSpec{Code: GLCodeFeeRevenue}, Debit: decimal.Zero, Credit: dec("-5")},
	}
	if err := negative.Validate(); !errors.Is(err, ErrLedgerImbalance) {
		t.Errorf("negative line: expected ErrLedgerImbalance, got %v", err)
	}
}

func TestCounterpartyAccount(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"MTN":          "2100-MTN",
		" airtel tz ":  "2100-AIRTEL-TZ",
		"m-pesa/kenya": "2100-M-PESA-KENYA",
		"":             "2100-GENERAL",
	}
	for provider, want := range tests {
		if got := CounterpartyAccount(provider).Code; got != want {
			t.Errorf("CounterpartyAccount(%q) = %s, want %s", provider, got, want)
		}
	}
}

func TestGLAccountType_BalanceChange(t *testing.T) {
	t.Parallel()

	if got := GLAccountAsset.BalanceChange(dec("10"), dec("3")); !got.Equal(dec("7")) {
		t.Errorf("asset change = %s, want 7", got)
	}
	if got := GLAccountLiability.BalanceChange(dec("10"), dec("3")); !got.Equal(dec("-7")) {
		t.Errorf("liability change = %s, want -7", got)
	}
	if got := GLAccountRevenue.BalanceChange(decimal.Zero, dec("4")); !got.Equal(dec("4")) {
		t.Errorf("revenue change = %s, want 4", got)
	}
}
