package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/domain"
)

// Fee quote sources.
const (
	FeeSourceLookup   = "lookup"
	FeeSourceCache    = "cache"
	FeeSourceFallback = "fallback"
	FeeSourceNone     = "none"
)

// FeePolicy is the explicit fallback used when the fee service is unavailable.
type FeePolicy struct {
	DefaultRate decimal.Decimal
	Cap         decimal.Decimal
}

// Fallback returns min(amount * rate, cap) rounded to cents.
func (p FeePolicy) Fallback(amount decimal.Decimal) decimal.Decimal {
	fee := amount.Mul(p.DefaultRate)
	if p.Cap.IsPositive() && fee.GreaterThan(p.Cap) {
		fee = p.Cap
	}

	return fee.Round(domain.MaxAmountDecimals)
}

// FeeUseCase quotes fees for callers before they settle. Settlement itself
// treats the fee as an opaque input.
type FeeUseCase struct {
	lookup  FeeLookup
	cache   Cache
	policy  FeePolicy
	metrics FeeMetrics
	logger  zerolog.Logger
}

// NewFeeUseCase creates a new FeeUseCase. lookup and cache may be nil.
func NewFeeUseCase(lookup FeeLookup, cache Cache, policy FeePolicy, logger zerolog.Logger) *FeeUseCase {
	return &FeeUseCase{
		lookup: lookup,
		cache:  cache,
		policy: policy,
		logger: logger,
	}
}

// WithMetrics sets the quote counter.
func (uc *FeeUseCase) WithMetrics(m FeeMetrics) *FeeUseCase {
	uc.metrics = m
	return uc
}

// FeeQuoteInput represents a fee quote request.
type FeeQuoteInput struct {
	Domain                domain.TransactionDomain
	Type                  domain.TransactionType
	CounterpartyAccountID string
	Amount                decimal.Decimal
}

// FeeQuote is a fee with the place it came from.
type FeeQuote struct {
	Source string
	Fee    decimal.Decimal
}

// Quote returns the fee for input. Fee-only kinds always quote zero.
func (uc *FeeUseCase) Quote(ctx context.Context, input FeeQuoteInput) (*FeeQuote, error) {
	q, err := uc.quote(ctx, input)
	if err == nil && uc.metrics != nil {
		uc.metrics.IncFeeQuote(q.Source)
	}

	return q, err
}

func (uc *FeeUseCase) quote(ctx context.Context, input FeeQuoteInput) (*FeeQuote, error) {
	if err := domain.ValidateKind(input.Domain, input.Type); err != nil {
		return nil, err
	}

	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	if spec, _ := domain.LookupKind(input.Domain, input.Type); spec.Rule == domain.RuleCommission {
		return &FeeQuote{Fee: decimal.Zero, Source: FeeSourceNone}, nil
	}

	key := feeCacheKey(input)

	if uc.cache != nil {
		if cached, err := uc.cache.Get(ctx, key); err == nil && cached != nil {
			if fee, err := decimal.NewFromString(string(cached)); err == nil {
				return &FeeQuote{Fee: fee, Source: FeeSourceCache}, nil
			}
		}
	}

	if uc.lookup != nil {
		fee, err := uc.lookup.Lookup(ctx, input.Domain, input.Type, input.Amount, input.CounterpartyAccountID)
		if err == nil && !fee.IsNegative() {
			fee = fee.Round(domain.MaxAmountDecimals)

			if uc.cache != nil {
				if err := uc.cache.Set(ctx, key, []byte(fee.String()), FeeQuoteTTL); err != nil {
					uc.logger.Warn().Err(err).Str("key", key).Msg("failed to cache fee quote")
				}
			}

			return &FeeQuote{Fee: fee, Source: FeeSourceLookup}, nil
		}

		if err == nil {
			err = errors.New("fee service returned a negative fee")
		}

		uc.logger.Warn().
			Err(err).
			Str("domain", string(input.Domain)).
			Str("type", string(input.Type)).
			Msg("fee lookup unavailable, using fallback policy")
	}

	return &FeeQuote{Fee: uc.policy.Fallback(input.Amount), Source: FeeSourceFallback}, nil
}

func feeCacheKey(input FeeQuoteInput) string {
	return fmt.Sprintf("fee:%s:%s:%s:%s", input.Domain, input.Type, input.CounterpartyAccountID, input.Amount.String())
}
