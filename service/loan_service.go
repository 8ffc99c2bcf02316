package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"loan-portal/domain"
	"loan-portal/repository"
)

const calculationCacheTTL = 24 * time.Hour

// Amortize computes the fixed monthly payment for principal at annualRate
// percent over termMonths. The payment is rounded to cents and the totals
// are derived from the rounded payment. A zero rate amortizes linearly.
func Amortize(principal, annualRate decimal.Decimal, termMonths int) (domain.LoanResult, error) {
	if principal.LessThanOrEqual(decimal.Zero) {
		return domain.LoanResult{}, domain.NewValidationError("amount", "must be greater than zero")
	}
	if principal.GreaterThan(decimal.NewFromFloat(MaxLoanAmount)) {
		return domain.LoanResult{}, domain.NewValidationError("amount",
			fmt.Sprintf("must not exceed %.2f", MaxLoanAmount))
	}
	if annualRate.IsNegative() {
		return domain.LoanResult{}, domain.NewValidationError("interestRate", "must not be negative")
	}
	if annualRate.GreaterThan(decimal.NewFromFloat(MaxInterestRate)) {
		return domain.LoanResult{}, domain.NewValidationError("interestRate",
			fmt.Sprintf("must not exceed %.2f%%", MaxInterestRate))
	}
	if termMonths < MinTermMonths {
		return domain.LoanResult{}, domain.NewValidationError("termMonths", "must be a positive number of months")
	}
	if termMonths > MaxTermMonths {
		return domain.LoanResult{}, domain.NewValidationError("termMonths",
			fmt.Sprintf("must not exceed %d months", MaxTermMonths))
	}

	n := decimal.NewFromInt(int64(termMonths))
	var payment decimal.Decimal

	if p, ok := annuityPayment(principal, annualRate, termMonths); ok {
		payment = p
	} else {
		payment = principal.Div(n).Round(2)
	}

	total := payment.Mul(n)
	return domain.LoanResult{
		MonthlyPayment: payment,
		TotalPayment:   total,
		TotalInterest:  total.Sub(principal),
		InterestRate:   annualRate,
		APR:            annualRate.Add(decimal.NewFromFloat(APRMargin)),
	}, nil
}

// annuityPayment returns the rounded fixed payment, or false when the rate
// is too small to price as an annuity and the loan amortizes linearly.
func annuityPayment(principal, annualRate decimal.Decimal, termMonths int) (decimal.Decimal, bool) {
	monthlyRate := annualRate.InexactFloat64() / 100 / 12
	if monthlyRate <= 0 {
		return decimal.Zero, false
	}
	// (1+i)^n - 1 via Log1p/Expm1 stays accurate when i is close to zero.
	growth := math.Expm1(float64(termMonths) * math.Log1p(monthlyRate))
	if growth <= 0 || math.IsInf(growth, 0) || math.IsNaN(growth) {
		return decimal.Zero, false
	}
	payment := principal.InexactFloat64() * monthlyRate * (1 + growth) / growth
	if math.IsInf(payment, 0) || math.IsNaN(payment) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(payment).Round(2), true
}

// Schedule expands a loan into its per-period amortization schedule. The
// last period absorbs rounding so the balance reaches exactly zero.
func Schedule(
	principal, annualRate decimal.Decimal,
	termMonths int,
	start time.Time,
) ([]domain.AmortizationEntry, error) {
	result, err := Amortize(principal, annualRate, termMonths)
	if err != nil {
		return nil, err
	}

	monthlyRate := annualRate.Div(decimal.NewFromInt(1200))
	remaining := principal
	schedule := make([]domain.AmortizationEntry, 0, termMonths)

	for period := 1; period <= termMonths; period++ {
		interest := remaining.Mul(monthlyRate).Round(2)
		principalPart := result.MonthlyPayment.Sub(interest)
		if period == termMonths || principalPart.GreaterThan(remaining) {
			principalPart = remaining
		}
		remaining = remaining.Sub(principalPart)

		schedule = append(schedule, domain.AmortizationEntry{
			Period:           period,
			DueDate:          start.AddDate(0, period, 0),
			Principal:        principalPart,
			Interest:         interest,
			Total:            principalPart.Add(interest),
			RemainingBalance: remaining,
		})
	}
	return schedule, nil
}

type LoanService struct {
	cache   repository.CacheRepository
	latency *Latency
	logger  *slog.Logger
}

// NewLoanService creates a new LoanService backed by cache.
func NewLoanService(
	cache repository.CacheRepository,
	latency *Latency,
	logger *slog.Logger,
) *LoanService {
	return &LoanService{cache: cache, latency: latency, logger: logger}
}

// CalculateLoan calculates the loan details based on the input parameters.
func (s *LoanService) CalculateLoan(
	ctx context.Context,
	input domain.LoanInput,
) (domain.LoanResult, error) {
	if err := s.latency.Wait(ctx); err != nil {
		return domain.LoanResult{}, err
	}

	rate := decimal.NewFromFloat(DefaultInterestRate)
	if input.InterestRate != nil {
		rate = *input.InterestRate
	}

	key := calculationKey(input.Amount, rate, input.TermMonths)
	if cached, ok := s.cache.Get(ctx, key); ok {
		var result domain.LoanResult
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			return result, nil
		}
		s.logger.Warn("discarding unreadable cached calculation", "key", key)
	}

	result, err := Amortize(input.Amount, rate, input.TermMonths)
	if err != nil {
		return domain.LoanResult{}, fmt.Errorf("calculate loan: %w", err)
	}

	// Not critical if caching fails.
	if raw, err := json.Marshal(result); err == nil {
		if err := s.cache.Set(ctx, key, string(raw), calculationCacheTTL); err != nil {
			s.logger.Warn("failed to cache loan calculation", "key", key, "error", err)
		}
	}

	return result, nil
}

func calculationKey(amount, rate decimal.Decimal, term int) string {
	return fmt.Sprintf("loan:calc:%s:%s:%d", amount.String(), rate.String(), term)
}
