package domain

import "github.com/shopspring/decimal"

// LoanRequest carries the figures an eligibility check is run against.
// Amount and TermMonths are only consulted by the term-affordability policy.
type LoanRequest struct {
	Amount           decimal.Decimal `json:"amount"`
	TermMonths       int             `json:"termMonths"`
	AnnualIncome     decimal.Decimal `json:"annualIncome"`
	DeclaredExpenses decimal.Decimal `json:"declaredExpenses"`
	CreditScore      *int            `json:"creditScore,omitempty"`
}

type EligibilityDecision struct {
	Approved               bool            `json:"approved"`
	MaxAffordableAmount    decimal.Decimal `json:"maxAffordableAmount"`
	Reasons                []string        `json:"reasons"`
	RecommendedProductTags []string        `json:"recommendedProductTags"`
}

const (
	ReasonCreditScoreTooLow   = "Credit score below minimum requirement"
	ReasonDebtToIncomeTooHigh = "Debt-to-income ratio too high"
	ReasonIncomeTooLow        = "Income below minimum requirement"
	ReasonAmountTooHigh       = "Loan amount too high for income"
)

var (
	ApprovedProductTags = []string{"Personal Loan", "Debt Consolidation"}
	DeclinedProductTags = []string{"Credit Builder", "Secured Card"}
)
