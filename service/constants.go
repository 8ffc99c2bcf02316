package service

const (
	MaxLoanAmount   = 1_000_000_000.0
	MaxInterestRate = 1000.0
	MaxTermMonths   = 600
	MinTermMonths   = 1

	DefaultInterestRate = 5.99
	// APR shown to users carries a fixed origination margin over the nominal rate.
	APRMargin = 0.5

	DefaultCreditScore = 750
	MinCreditScore     = 300
	MaxCreditScore     = 900

	MinAnnualIncome          = 30000.0
	MinApprovalCreditScore   = 600
	MaxExpenseToIncomeRatio  = 0.5
	ApprovedIncomeMultiplier = 0.8

	MaxTermDebtToIncomeRatio = 0.4
)
