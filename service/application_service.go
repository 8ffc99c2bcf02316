package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"loan-portal/domain"
	"loan-portal/repository"
)

// ApplicationService drives a user's journey from application to repayment.
// Every operation takes the caller's session explicitly.
type ApplicationService struct {
	store       repository.ApplicationStore
	eligibility *EligibilityService
	offers      *OfferService
	scores      *CreditScoreService
	latency     *Latency
	logger      *slog.Logger
	now         func() time.Time
}

func NewApplicationService(
	store repository.ApplicationStore,
	eligibility *EligibilityService,
	offers *OfferService,
	scores *CreditScoreService,
	latency *Latency,
	logger *slog.Logger,
) *ApplicationService {
	return &ApplicationService{
		store:       store,
		eligibility: eligibility,
		offers:      offers,
		scores:      scores,
		latency:     latency,
		logger:      logger,
		now:         time.Now,
	}
}

func requireSession(session domain.Session) error {
	if !session.Valid() {
		return fmt.Errorf("no signed-in user: %w", domain.ErrUnauthorized)
	}
	return nil
}

// Submit records an application. When income is supplied the configured
// eligibility policy decides it; a rejected application gets no offers,
// any other gets three.
func (s *ApplicationService) Submit(
	ctx context.Context,
	session domain.Session,
	input domain.ApplicationInput,
) (domain.LoanApplication, error) {
	if err := requireSession(session); err != nil {
		return domain.LoanApplication{}, err
	}
	if err := s.latency.Wait(ctx); err != nil {
		return domain.LoanApplication{}, err
	}

	user, err := s.store.GetUser(ctx, session.UserID)
	if err != nil {
		return domain.LoanApplication{}, fmt.Errorf("load applicant: %w", err)
	}
	score := user.CreditScore
	if score == 0 {
		score = DefaultCreditScore
	}

	// Validate pricing inputs up front so a bad request stores nothing.
	offers, err := s.offers.Generate(domain.OfferRequest{
		Principal:   input.Amount,
		TermMonths:  input.TermMonths,
		CreditScore: &score,
	})
	if err != nil {
		return domain.LoanApplication{}, fmt.Errorf("submit application: %w", err)
	}

	app := domain.LoanApplication{
		UserID:      user.ID,
		Amount:      input.Amount,
		TermMonths:  input.TermMonths,
		Purpose:     strings.TrimSpace(input.Purpose),
		CreditScore: score,
		Status:      domain.LoanStatusPending,
		CreatedAt:   s.now().UTC(),
	}

	if !input.AnnualIncome.IsZero() {
		decision, err := Evaluate(s.eligibility.Policy(), domain.LoanRequest{
			Amount:           input.Amount,
			TermMonths:       input.TermMonths,
			AnnualIncome:     input.AnnualIncome,
			DeclaredExpenses: input.DeclaredExpenses,
			CreditScore:      &score,
		})
		if err != nil {
			return domain.LoanApplication{}, fmt.Errorf("submit application: %w", err)
		}
		app.Decision = &decision
		if !decision.Approved {
			app.Status = domain.LoanStatusRejected
		}
	}

	id, err := s.store.CreateApplication(ctx, app)
	if err != nil {
		return domain.LoanApplication{}, fmt.Errorf("store application: %w", err)
	}
	app.ID = id

	if app.Status != domain.LoanStatusRejected {
		if err := s.store.SaveOffers(ctx, id, offers); err != nil {
			return domain.LoanApplication{}, fmt.Errorf("store offers: %w", err)
		}
	}

	s.logger.Info("loan application submitted",
		"application_id", id,
		"user_id", user.ID,
		"status", app.Status,
	)
	return app, nil
}

// Offers lists the offers generated for one of the user's applications.
func (s *ApplicationService) Offers(
	ctx context.Context,
	session domain.Session,
	applicationID string,
) ([]domain.LoanOffer, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if err := s.latency.Wait(ctx); err != nil {
		return nil, err
	}

	app, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.UserID != session.UserID {
		return nil, domain.NotFoundError("application", applicationID)
	}
	return s.store.ListOffers(ctx, applicationID)
}

// AcceptOffer turns an offer into the user's loan account.
func (s *ApplicationService) AcceptOffer(
	ctx context.Context,
	session domain.Session,
	offerID string,
) (domain.LoanAccount, error) {
	if err := requireSession(session); err != nil {
		return domain.LoanAccount{}, err
	}
	if err := s.latency.Wait(ctx); err != nil {
		return domain.LoanAccount{}, err
	}

	loan, err := s.store.AcceptOffer(ctx, session.UserID, offerID, s.now())
	if err != nil {
		return domain.LoanAccount{}, fmt.Errorf("accept offer: %w", err)
	}
	s.logger.Info("offer accepted", "offer_id", offerID, "loan_id", loan.ID, "user_id", session.UserID)
	return loan, nil
}

// Loans lists the user's loans with past-due installments flagged overdue.
func (s *ApplicationService) Loans(ctx context.Context, session domain.Session) ([]domain.LoanAccount, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if err := s.latency.Wait(ctx); err != nil {
		return nil, err
	}

	loans, err := s.store.ListLoans(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	now := s.now()
	for i := range loans {
		loans[i].MarkOverdue(now)
	}
	return loans, nil
}

// Schedule returns the amortization schedule of one of the user's loans.
func (s *ApplicationService) Schedule(
	ctx context.Context,
	session domain.Session,
	loanID string,
) ([]domain.AmortizationEntry, error) {
	loan, err := s.ownedLoan(ctx, session, loanID)
	if err != nil {
		return nil, err
	}
	return Schedule(loan.Principal, loan.AnnualRatePercent, loan.TermMonths, loan.StartDate)
}

// MakePayment pays the outstanding installment of a loan.
func (s *ApplicationService) MakePayment(
	ctx context.Context,
	session domain.Session,
	loanID string,
) (domain.LoanAccount, domain.PaymentRecord, error) {
	if err := requireSession(session); err != nil {
		return domain.LoanAccount{}, domain.PaymentRecord{}, err
	}
	if err := s.latency.Wait(ctx); err != nil {
		return domain.LoanAccount{}, domain.PaymentRecord{}, err
	}

	loan, payment, err := s.store.RecordPayment(ctx, session.UserID, loanID, s.now())
	if err != nil {
		return domain.LoanAccount{}, domain.PaymentRecord{}, fmt.Errorf("make payment: %w", err)
	}
	s.logger.Info("payment recorded",
		"loan_id", loanID,
		"payment_id", payment.ID,
		"remaining_payments", loan.RemainingPayments,
	)
	return loan, payment, nil
}

func (s *ApplicationService) ownedLoan(
	ctx context.Context,
	session domain.Session,
	loanID string,
) (domain.LoanAccount, error) {
	if err := requireSession(session); err != nil {
		return domain.LoanAccount{}, err
	}
	loan, err := s.store.GetLoan(ctx, loanID)
	if err != nil {
		return domain.LoanAccount{}, err
	}
	if loan.UserID != session.UserID {
		return domain.LoanAccount{}, domain.NotFoundError("loan", loanID)
	}
	return loan, nil
}

// Profile returns the signed-in user's profile.
func (s *ApplicationService) Profile(ctx context.Context, session domain.Session) (domain.User, error) {
	if err := requireSession(session); err != nil {
		return domain.User{}, err
	}
	if err := s.latency.Wait(ctx); err != nil {
		return domain.User{}, err
	}
	return s.store.GetUser(ctx, session.UserID)
}

// AddBankAccount validates and attaches a bank account to the profile.
func (s *ApplicationService) AddBankAccount(
	ctx context.Context,
	session domain.Session,
	input domain.BankDetailsInput,
) (domain.BankAccount, error) {
	if err := requireSession(session); err != nil {
		return domain.BankAccount{}, err
	}
	if err := s.latency.Wait(ctx); err != nil {
		return domain.BankAccount{}, err
	}

	account, err := s.store.AddBankAccount(ctx, session.UserID, input)
	if err != nil {
		return domain.BankAccount{}, fmt.Errorf("add bank account: %w", err)
	}
	s.logger.Info("bank account added", "user_id", session.UserID, "account_id", account.ID)
	return account, nil
}

// UpdatePreferences replaces the signed-in user's loan and notification
// preferences.
func (s *ApplicationService) UpdatePreferences(
	ctx context.Context,
	session domain.Session,
	prefs domain.LoanPreferences,
) (domain.User, error) {
	if err := requireSession(session); err != nil {
		return domain.User{}, err
	}
	if err := s.latency.Wait(ctx); err != nil {
		return domain.User{}, err
	}

	user, err := s.store.UpdatePreferences(ctx, session.UserID, prefs)
	if err != nil {
		return domain.User{}, fmt.Errorf("update preferences: %w", err)
	}
	s.logger.Info("loan preferences updated", "user_id", session.UserID)
	return user, nil
}

// Documents lists the agreement and payment schedule of every loan the
// user has accepted, oldest loan first.
func (s *ApplicationService) Documents(ctx context.Context, session domain.Session) ([]domain.Document, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if err := s.latency.Wait(ctx); err != nil {
		return nil, err
	}

	loans, err := s.store.ListLoans(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	docs := make([]domain.Document, 0, 2*len(loans))
	for _, loan := range loans {
		docs = append(docs, domain.LoanDocuments(loan)...)
	}
	return docs, nil
}

// CheckCreditScore runs the score check and records the score on the
// profile, where later applications pick it up.
func (s *ApplicationService) CheckCreditScore(
	ctx context.Context,
	session domain.Session,
	input domain.CreditCheckInput,
) (domain.CreditScoreResult, error) {
	result, err := s.scores.Check(ctx, session, input)
	if err != nil {
		return domain.CreditScoreResult{}, fmt.Errorf("check credit score: %w", err)
	}
	if err := s.store.UpdateCreditScore(ctx, session.UserID, result.Score); err != nil {
		return domain.CreditScoreResult{}, fmt.Errorf("record credit score: %w", err)
	}
	return result, nil
}
