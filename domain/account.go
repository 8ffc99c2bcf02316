package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusPending   LoanStatus = "pending"
	LoanStatusApproved  LoanStatus = "approved"
	LoanStatusActive    LoanStatus = "active"
	LoanStatusCompleted LoanStatus = "completed"
	LoanStatusRejected  LoanStatus = "rejected"
)

type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusOverdue PaymentStatus = "overdue"
)

type PaymentRecord struct {
	ID     string          `json:"id"`
	Date   time.Time       `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Status PaymentStatus   `json:"status"`
}

// LoanAccount is an accepted offer together with its repayment history.
type LoanAccount struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId"`
	ApplicationID     string          `json:"applicationId"`
	OfferID           string          `json:"offerId"`
	Type              string          `json:"type"`
	Principal         decimal.Decimal `json:"principal"`
	TermMonths        int             `json:"termMonths"`
	AnnualRatePercent decimal.Decimal `json:"annualRatePercent"`
	MonthlyPayment    decimal.Decimal `json:"monthlyPayment"`
	TotalPayment      decimal.Decimal `json:"totalPayment"`
	RemainingAmount   decimal.Decimal `json:"remainingAmount"`
	Status            LoanStatus      `json:"status"`
	StartDate         time.Time       `json:"startDate"`
	NextPaymentDate   *time.Time      `json:"nextPaymentDate,omitempty"`
	PaymentsMade      int             `json:"paymentsMade"`
	RemainingPayments int             `json:"remainingPayments"`
	Payments          []PaymentRecord `json:"payments"`
}

// NewLoanAccount turns an accepted offer into an approved loan whose first
// installment falls due one month after now.
func NewLoanAccount(offer LoanOffer, userID string, now time.Time) LoanAccount {
	start := now.UTC().Truncate(24 * time.Hour)
	loan := LoanAccount{
		ID:                "LOAN-" + uuid.NewString(),
		UserID:            userID,
		ApplicationID:     offer.ApplicationID,
		OfferID:           offer.ID,
		Type:              offer.DisplayName,
		Principal:         offer.Principal,
		TermMonths:        offer.TermMonths,
		AnnualRatePercent: offer.AnnualRatePercent,
		MonthlyPayment:    offer.MonthlyPayment,
		TotalPayment:      offer.TotalPayment,
		RemainingAmount:   offer.TotalPayment,
		Status:            LoanStatusApproved,
		StartDate:         start,
		RemainingPayments: offer.TermMonths,
	}
	loan.scheduleNext()
	return loan
}

func (l *LoanAccount) scheduleNext() {
	due := l.StartDate.AddDate(0, l.PaymentsMade+1, 0)
	l.NextPaymentDate = &due
	l.Payments = append(l.Payments, PaymentRecord{
		ID:     "PAY-" + uuid.NewString(),
		Date:   due,
		Amount: l.MonthlyPayment,
		Status: PaymentStatusPending,
	})
}

// RecordPayment settles the outstanding installment at now.
func (l *LoanAccount) RecordPayment(now time.Time) (PaymentRecord, error) {
	if l.RemainingPayments == 0 || l.Status == LoanStatusCompleted || l.Status == LoanStatusRejected {
		return PaymentRecord{}, fmt.Errorf("loan %s is %s: %w", l.ID, l.Status, ErrConflict)
	}

	idx := len(l.Payments) - 1
	if idx < 0 || l.Payments[idx].Status == PaymentStatusPaid {
		return PaymentRecord{}, fmt.Errorf("loan %s has no outstanding installment: %w", l.ID, ErrConflict)
	}
	due := l.Payments[idx]

	amount := due.Amount
	if l.RemainingPayments == 1 {
		amount = l.RemainingAmount
	}
	paid := PaymentRecord{
		ID:     due.ID,
		Date:   now.UTC(),
		Amount: amount,
		Status: PaymentStatusPaid,
	}
	l.Payments[idx] = paid

	l.PaymentsMade++
	l.RemainingPayments--
	l.RemainingAmount = l.RemainingAmount.Sub(amount)

	if l.RemainingPayments == 0 {
		l.Status = LoanStatusCompleted
		l.NextPaymentDate = nil
		return paid, nil
	}
	l.Status = LoanStatusActive
	l.scheduleNext()
	return paid, nil
}

// MarkOverdue flags pending installments whose due date is before now.
func (l *LoanAccount) MarkOverdue(now time.Time) {
	for i := range l.Payments {
		if l.Payments[i].Status == PaymentStatusPending && l.Payments[i].Date.Before(now) {
			l.Payments[i].Status = PaymentStatusOverdue
		}
	}
}

// Clone returns a copy that shares no slices with l.
func (l LoanAccount) Clone() LoanAccount {
	l.Payments = append([]PaymentRecord(nil), l.Payments...)
	if l.NextPaymentDate != nil {
		next := *l.NextPaymentDate
		l.NextPaymentDate = &next
	}
	return l
}
