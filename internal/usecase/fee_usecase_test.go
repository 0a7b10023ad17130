package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
	"github.com/iho/branchledger/internal/usecase/mocks"
)

var testFeePolicy = usecase.FeePolicy{
	DefaultRate: decimal.RequireFromString("0.02"),
	Cap:         decimal.NewFromInt(15),
}

func TestFeeUseCase_QuoteFromLookupIsCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	lookup := mocks.NewMockFeeLookup(ctrl)
	lookup.EXPECT().
		Lookup(gomock.Any(), domain.DomainMobileMoney, domain.TypeDeposit, gomock.Any(), "float-mtn").
		Return(decimal.RequireFromString("7.5"), nil).
		Times(1)

	uc := usecase.NewFeeUseCase(lookup, mocks.NewMockCache(), testFeePolicy, zerolog.Nop())
	input := usecase.FeeQuoteInput{
		Domain:                domain.DomainMobileMoney,
		Type:                  domain.TypeDeposit,
		CounterpartyAccountID: "float-mtn",
		Amount:                decimal.NewFromInt(1000),
	}

	quote, err := uc.Quote(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Source != usecase.FeeSourceLookup || !quote.Fee.Equal(decimal.RequireFromString("7.5")) {
		t.Errorf("unexpected quote %+v", quote)
	}

	quote, err = uc.Quote(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Source != usecase.FeeSourceCache || !quote.Fee.Equal(decimal.RequireFromString("7.5")) {
		t.Errorf("second quote should come from cache, got %+v", quote)
	}
}

func TestFeeUseCase_FallbackWhenLookupFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	lookup := mocks.NewMockFeeLookup(ctrl)
	lookup.EXPECT().
		Lookup(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(decimal.Zero, errors.New("circuit open")).
		Times(2)

	uc := usecase.NewFeeUseCase(lookup, nil, testFeePolicy, zerolog.Nop())

	tests := []struct {
		amount int64
		want   string
	}{
		{1000, "15"},
		{300, "6"},
	}

	for _, tt := range tests {
		quote, err := uc.Quote(context.Background(), usecase.FeeQuoteInput{
			Domain: domain.DomainAgencyBanking,
			Type:   domain.TypeWithdrawal,
			Amount: decimal.NewFromInt(tt.amount),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if quote.Source != usecase.FeeSourceFallback {
			t.Errorf("source = %s, want fallback", quote.Source)
		}
		if !quote.Fee.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("fee for %d = %s, want %s", tt.amount, quote.Fee, tt.want)
		}
	}
}

func TestFeeUseCase_CommissionKindsQuoteZero(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No EXPECT: the lookup must not be called.
	lookup := mocks.NewMockFeeLookup(ctrl)
	uc := usecase.NewFeeUseCase(lookup, nil, testFeePolicy, zerolog.Nop())

	quote, err := uc.Quote(context.Background(), usecase.FeeQuoteInput{
		Domain: domain.DomainCardIssuance,
		Type:   domain.TypeIssuance,
		Amount: decimal.NewFromInt(50),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Source != usecase.FeeSourceNone || !quote.Fee.IsZero() {
		t.Errorf("unexpected quote %+v", quote)
	}
}

func TestFeeUseCase_RejectsInvalidInput(t *testing.T) {
	uc := usecase.NewFeeUseCase(nil, nil, testFeePolicy, zerolog.Nop())

	if _, err := uc.Quote(context.Background(), usecase.FeeQuoteInput{
		Domain: domain.DomainMobileMoney,
		Type:   domain.TypeShipment,
		Amount: decimal.NewFromInt(10),
	}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for unknown kind, got %v", err)
	}

	if _, err := uc.Quote(context.Background(), usecase.FeeQuoteInput{
		Domain: domain.DomainMobileMoney,
		Type:   domain.TypeDeposit,
		Amount: decimal.Zero,
	}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for zero amount, got %v", err)
	}
}

type countingFeeMetrics map[string]int

func (m countingFeeMetrics) IncFeeQuote(source string) { m[source]++ }

func TestFeeUseCase_CountsQuotesBySource(t *testing.T) {
	m := countingFeeMetrics{}
	uc := usecase.NewFeeUseCase(nil, nil, testFeePolicy, zerolog.Nop()).WithMetrics(m)

	if _, err := uc.Quote(context.Background(), usecase.FeeQuoteInput{
		Domain: domain.DomainMobileMoney,
		Type:   domain.TypeDeposit,
		Amount: decimal.NewFromInt(100),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := uc.Quote(context.Background(), usecase.FeeQuoteInput{
		Domain: domain.DomainMobileMoney,
		Type:   domain.TypeDeposit,
		Amount: decimal.Zero,
	}); err == nil {
		t.Fatal("expected validation error")
	}

	if m[usecase.FeeSourceFallback] != 1 || len(m) != 1 {
		t.Errorf("unexpected counts %v", m)
	}
}
