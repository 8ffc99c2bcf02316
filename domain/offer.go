package domain

import "github.com/shopspring/decimal"

type LoanOffer struct {
	ID                string          `json:"id"`
	ApplicationID     string          `json:"applicationId,omitempty"`
	DisplayName       string          `json:"displayName"`
	AnnualRatePercent decimal.Decimal `json:"annualRatePercent"`
	TermMonths        int             `json:"termMonths"`
	Principal         decimal.Decimal `json:"principal"`
	MonthlyPayment    decimal.Decimal `json:"monthlyPayment"`
	TotalPayment      decimal.Decimal `json:"totalPayment"`
	Featured          bool            `json:"featured"`
	Accepted          bool            `json:"accepted"`
}

// OfferRequest describes the loan offers are generated for. A nil
// CreditScore is treated as the default score.
type OfferRequest struct {
	Principal   decimal.Decimal `json:"principal"`
	TermMonths  int             `json:"termMonths"`
	CreditScore *int            `json:"creditScore,omitempty"`
}
