package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"loan-portal/domain"
)

type offerVariant struct {
	name     string
	spread   float64
	featured bool
}

// Offer order matters to clients: the featured offer sits in the middle.
var offerVariants = []offerVariant{
	{name: "Standard Loan", spread: 0},
	{name: "Premier Loan", spread: -0.5, featured: true},
	{name: "Economy Loan", spread: 1},
}

// RateAdjustment returns the percentage points added to the base rate for
// a credit score.
func RateAdjustment(score int) decimal.Decimal {
	switch {
	case score < 650:
		return decimal.NewFromInt(5)
	case score < 700:
		return decimal.NewFromInt(3)
	case score < 750:
		return decimal.NewFromInt(1)
	case score > 800:
		return decimal.NewFromInt(-1)
	default:
		return decimal.Zero
	}
}

type OfferService struct {
	baseRate decimal.Decimal
	latency  *Latency
}

func NewOfferService(baseRate decimal.Decimal, latency *Latency) *OfferService {
	return &OfferService{baseRate: baseRate, latency: latency}
}

// Generate builds the Standard, Premier and Economy offers for req.
func (s *OfferService) Generate(req domain.OfferRequest) ([]domain.LoanOffer, error) {
	score := DefaultCreditScore
	if req.CreditScore != nil {
		score = *req.CreditScore
		if score < MinCreditScore || score > MaxCreditScore {
			return nil, domain.NewValidationError("creditScore",
				fmt.Sprintf("must be between %d and %d", MinCreditScore, MaxCreditScore))
		}
	}

	rate := s.baseRate.Add(RateAdjustment(score))
	offers := make([]domain.LoanOffer, 0, len(offerVariants))

	for _, v := range offerVariants {
		offerRate := rate.Add(decimal.NewFromFloat(v.spread))
		result, err := Amortize(req.Principal, offerRate, req.TermMonths)
		if err != nil {
			return nil, fmt.Errorf("price %s: %w", v.name, err)
		}

		offers = append(offers, domain.LoanOffer{
			ID:                "OFFER-" + uuid.NewString(),
			DisplayName:       v.name,
			AnnualRatePercent: offerRate,
			TermMonths:        req.TermMonths,
			Principal:         req.Principal,
			MonthlyPayment:    result.MonthlyPayment,
			TotalPayment:      result.TotalPayment,
			Featured:          v.featured,
		})
	}

	return offers, nil
}

// Preview generates offers after the simulated backend delay, without
// storing them anywhere.
func (s *OfferService) Preview(ctx context.Context, req domain.OfferRequest) ([]domain.LoanOffer, error) {
	if err := s.latency.Wait(ctx); err != nil {
		return nil, err
	}
	offers, err := s.Generate(req)
	if err != nil {
		return nil, fmt.Errorf("generate offers: %w", err)
	}
	return offers, nil
}
