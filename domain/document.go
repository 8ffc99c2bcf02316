package domain

import "time"

type DocumentType string

const (
	DocumentContract DocumentType = "contract"
	DocumentSchedule DocumentType = "schedule"
)

// Document is a record derived from an accepted loan; nothing is stored
// for it separately.
type Document struct {
	ID     string       `json:"id"`
	LoanID string       `json:"loanId"`
	Name   string       `json:"name"`
	Type   DocumentType `json:"type"`
	Date   time.Time    `json:"date"`
}

// LoanDocuments returns the agreement and the payment schedule of a loan,
// both dated on the loan's start date.
func LoanDocuments(loan LoanAccount) []Document {
	return []Document{
		{
			ID:     loan.ID + "-agreement",
			LoanID: loan.ID,
			Name:   "Loan Agreement - " + loan.Type,
			Type:   DocumentContract,
			Date:   loan.StartDate,
		},
		{
			ID:     loan.ID + "-schedule",
			LoanID: loan.ID,
			Name:   "Payment Schedule",
			Type:   DocumentSchedule,
			Date:   loan.StartDate,
		},
	}
}
