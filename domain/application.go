package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApplicationInput is what a user submits when applying for a loan. Income
// is optional; when present an eligibility decision is recorded.
type ApplicationInput struct {
	Amount           decimal.Decimal `json:"amount"`
	TermMonths       int             `json:"termMonths"`
	Purpose          string          `json:"purpose"`
	AnnualIncome     decimal.Decimal `json:"annualIncome"`
	DeclaredExpenses decimal.Decimal `json:"declaredExpenses"`
}

type LoanApplication struct {
	ID          string               `json:"id"`
	UserID      string               `json:"userId"`
	Amount      decimal.Decimal      `json:"amount"`
	TermMonths  int                  `json:"termMonths"`
	Purpose     string               `json:"purpose"`
	CreditScore int                  `json:"creditScore"`
	Status      LoanStatus           `json:"status"`
	Decision    *EligibilityDecision `json:"decision,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
}
