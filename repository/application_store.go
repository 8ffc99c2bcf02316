package repository

import (
	"context"
	"time"

	"loan-portal/domain"
)

// ApplicationStore owns users, applications, offers and loan accounts for
// the lifetime of the process. Each call is atomic.
type ApplicationStore interface {
	CreateUser(ctx context.Context, user domain.User) (domain.User, error)
	GetUser(ctx context.Context, id string) (domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)
	UpdateCreditScore(ctx context.Context, userID string, score int) error
	AddBankAccount(ctx context.Context, userID string, input domain.BankDetailsInput) (domain.BankAccount, error)
	UpdatePreferences(ctx context.Context, userID string, prefs domain.LoanPreferences) (domain.User, error)

	CreateApplication(ctx context.Context, app domain.LoanApplication) (string, error)
	GetApplication(ctx context.Context, id string) (domain.LoanApplication, error)

	SaveOffers(ctx context.Context, applicationID string, offers []domain.LoanOffer) error
	ListOffers(ctx context.Context, applicationID string) ([]domain.LoanOffer, error)
	AcceptOffer(ctx context.Context, userID, offerID string, now time.Time) (domain.LoanAccount, error)

	GetLoan(ctx context.Context, id string) (domain.LoanAccount, error)
	ListLoans(ctx context.Context, userID string) ([]domain.LoanAccount, error)
	RecordPayment(ctx context.Context, userID, loanID string, now time.Time) (domain.LoanAccount, domain.PaymentRecord, error)
}
