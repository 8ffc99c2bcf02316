package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"loan-portal/domain"
)

// Policy names accepted by NewEligibilityService.
const (
	PolicyStandard          = "standard"
	PolicyTermAffordability = "term-affordability"
)

// Rule is a single named eligibility check. It returns a denial reason, or
// "" when the request passes.
type Rule struct {
	Name  string
	Check func(req domain.LoanRequest, score int) string
}

// EligibilityPolicy evaluates every rule independently and decides the
// affordable amount for the request.
type EligibilityPolicy interface {
	Name() string
	Validate(req domain.LoanRequest) error
	Rules() []Rule
	MaxAffordable(req domain.LoanRequest, approved bool, reasons []string) decimal.Decimal
}

// StandardPolicy screens on credit score, expense-to-income ratio and a
// minimum income. It is the default policy.
type StandardPolicy struct{}

func (StandardPolicy) Name() string { return PolicyStandard }

func (StandardPolicy) Validate(req domain.LoanRequest) error {
	return validateIncome(req)
}

func (StandardPolicy) Rules() []Rule {
	return []Rule{
		{
			Name: "minimum-credit-score",
			Check: func(_ domain.LoanRequest, score int) string {
				if score < MinApprovalCreditScore {
					return domain.ReasonCreditScoreTooLow
				}
				return ""
			},
		},
		{
			Name: "expense-to-income",
			Check: func(req domain.LoanRequest, _ int) string {
				ratio := req.DeclaredExpenses.Div(req.AnnualIncome)
				if ratio.GreaterThan(decimal.NewFromFloat(MaxExpenseToIncomeRatio)) {
					return domain.ReasonDebtToIncomeTooHigh
				}
				return ""
			},
		},
		minimumIncomeRule,
	}
}

func (StandardPolicy) MaxAffordable(req domain.LoanRequest, approved bool, _ []string) decimal.Decimal {
	if !approved {
		return decimal.Zero
	}
	return req.AnnualIncome.Mul(decimal.NewFromFloat(ApprovedIncomeMultiplier))
}

// TermAffordabilityPolicy compares the requested amount with the income
// earned over the loan term.
type TermAffordabilityPolicy struct{}

func (TermAffordabilityPolicy) Name() string { return PolicyTermAffordability }

func (TermAffordabilityPolicy) Validate(req domain.LoanRequest) error {
	if err := validateIncome(req); err != nil {
		return err
	}
	if !req.Amount.IsPositive() {
		return domain.NewValidationError("amount", "must be greater than zero")
	}
	if req.TermMonths < MinTermMonths || req.TermMonths > MaxTermMonths {
		return domain.NewValidationError("termMonths",
			fmt.Sprintf("must be between %d and %d months", MinTermMonths, MaxTermMonths))
	}
	return nil
}

func (TermAffordabilityPolicy) Rules() []Rule {
	return []Rule{
		minimumIncomeRule,
		{
			Name: "term-debt-to-income",
			Check: func(req domain.LoanRequest, _ int) string {
				ratio := req.Amount.Div(termIncome(req))
				if ratio.GreaterThan(decimal.NewFromFloat(MaxTermDebtToIncomeRatio)) {
					return domain.ReasonAmountTooHigh
				}
				return ""
			},
		},
	}
}

func (TermAffordabilityPolicy) MaxAffordable(req domain.LoanRequest, _ bool, reasons []string) decimal.Decimal {
	for _, r := range reasons {
		if r == domain.ReasonIncomeTooLow {
			return decimal.Zero
		}
	}
	return termIncome(req).Mul(decimal.NewFromFloat(MaxTermDebtToIncomeRatio))
}

func termIncome(req domain.LoanRequest) decimal.Decimal {
	return req.AnnualIncome.Mul(decimal.NewFromInt(int64(req.TermMonths)))
}

var minimumIncomeRule = Rule{
	Name: "minimum-income",
	Check: func(req domain.LoanRequest, _ int) string {
		if req.AnnualIncome.LessThan(decimal.NewFromFloat(MinAnnualIncome)) {
			return domain.ReasonIncomeTooLow
		}
		return ""
	},
}

func validateIncome(req domain.LoanRequest) error {
	if !req.AnnualIncome.IsPositive() {
		return domain.NewValidationError("annualIncome", "must be greater than zero")
	}
	if req.DeclaredExpenses.IsNegative() {
		return domain.NewValidationError("declaredExpenses", "must not be negative")
	}
	return nil
}

// PolicyByName resolves a configured policy name.
func PolicyByName(name string) (EligibilityPolicy, error) {
	switch name {
	case "", PolicyStandard:
		return StandardPolicy{}, nil
	case PolicyTermAffordability:
		return TermAffordabilityPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown eligibility policy %q", name)
	}
}

type EligibilityService struct {
	policy  EligibilityPolicy
	latency *Latency
	logger  *slog.Logger
}

func NewEligibilityService(policy EligibilityPolicy, latency *Latency, logger *slog.Logger) *EligibilityService {
	return &EligibilityService{policy: policy, latency: latency, logger: logger}
}

// Evaluate runs the policy without simulated latency.
func Evaluate(policy EligibilityPolicy, req domain.LoanRequest) (domain.EligibilityDecision, error) {
	score := DefaultCreditScore
	if req.CreditScore != nil {
		score = *req.CreditScore
		if score < MinCreditScore || score > MaxCreditScore {
			return domain.EligibilityDecision{}, domain.NewValidationError("creditScore",
				fmt.Sprintf("must be between %d and %d", MinCreditScore, MaxCreditScore))
		}
	}
	if err := policy.Validate(req); err != nil {
		return domain.EligibilityDecision{}, err
	}

	reasons := []string{}
	for _, rule := range policy.Rules() {
		if reason := rule.Check(req, score); reason != "" {
			reasons = append(reasons, reason)
		}
	}

	approved := len(reasons) == 0
	tags := domain.DeclinedProductTags
	if approved {
		tags = domain.ApprovedProductTags
	}

	return domain.EligibilityDecision{
		Approved:               approved,
		MaxAffordableAmount:    policy.MaxAffordable(req, approved, reasons),
		Reasons:                reasons,
		RecommendedProductTags: append([]string(nil), tags...),
	}, nil
}

// CheckEligibility evaluates req with the configured policy.
func (s *EligibilityService) CheckEligibility(
	ctx context.Context,
	req domain.LoanRequest,
) (domain.EligibilityDecision, error) {
	if err := s.latency.Wait(ctx); err != nil {
		return domain.EligibilityDecision{}, err
	}

	decision, err := Evaluate(s.policy, req)
	if err != nil {
		return domain.EligibilityDecision{}, fmt.Errorf("check eligibility: %w", err)
	}

	s.logger.Debug("eligibility evaluated",
		"policy", s.policy.Name(),
		"approved", decision.Approved,
		"reasons", len(decision.Reasons),
	)
	return decision, nil
}

func (s *EligibilityService) Policy() EligibilityPolicy {
	return s.policy
}
