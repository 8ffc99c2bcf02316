package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanInput is the input of a single payment calculation. A nil
// InterestRate selects the default rate.
type LoanInput struct {
	Amount       decimal.Decimal  `json:"amount"`
	InterestRate *decimal.Decimal `json:"interestRate,omitempty"`
	TermMonths   int              `json:"termMonths"`
}

type LoanResult struct {
	MonthlyPayment decimal.Decimal `json:"monthlyPayment"`
	TotalPayment   decimal.Decimal `json:"totalPayment"`
	TotalInterest  decimal.Decimal `json:"totalInterest"`
	InterestRate   decimal.Decimal `json:"interestRate"`
	APR            decimal.Decimal `json:"apr"`
}

// AmortizationEntry is one period of a fixed-payment schedule.
type AmortizationEntry struct {
	Period           int             `json:"period"`
	DueDate          time.Time       `json:"dueDate"`
	Principal        decimal.Decimal `json:"principal"`
	Interest         decimal.Decimal `json:"interest"`
	Total            decimal.Decimal `json:"total"`
	RemainingBalance decimal.Decimal `json:"remainingBalance"`
}
