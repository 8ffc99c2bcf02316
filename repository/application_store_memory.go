package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"loan-portal/domain"
)

// MemoryStore is an in-memory implementation of ApplicationStore.
type MemoryStore struct {
	mu           sync.Mutex
	users        map[string]domain.User
	emails       map[string]string
	applications map[string]domain.LoanApplication
	offers       map[string][]domain.LoanOffer
	offerIndex   map[string]string
	loans        map[string]domain.LoanAccount
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[string]domain.User),
		emails:       make(map[string]string),
		applications: make(map[string]domain.LoanApplication),
		offers:       make(map[string][]domain.LoanOffer),
		offerIndex:   make(map[string]string),
		loans:        make(map[string]domain.LoanAccount),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *MemoryStore) CreateUser(_ context.Context, user domain.User) (domain.User, error) {
	email := normalizeEmail(user.Email)
	if email == "" {
		return domain.User{}, domain.NewValidationError("email", "must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.emails[email]; taken {
		return domain.User{}, fmt.Errorf("email %q already registered: %w", email, domain.ErrConflict)
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = email
	user.BankAccounts = append([]domain.BankAccount(nil), user.BankAccounts...)

	s.users[user.ID] = user
	s.emails[email] = user.ID
	return cloneUser(user), nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.NotFoundError("user", id)
	}
	return cloneUser(user), nil
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.emails[normalizeEmail(email)]
	if !ok {
		return domain.User{}, domain.NotFoundError("user", email)
	}
	return cloneUser(s.users[id]), nil
}

func (s *MemoryStore) UpdateCreditScore(_ context.Context, userID string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return domain.NotFoundError("user", userID)
	}
	user.CreditScore = score
	s.users[userID] = user
	return nil
}

// AddBankAccount validates input and appends the account to the user's
// profile. The first account, or one flagged primary, becomes primary.
func (s *MemoryStore) AddBankAccount(
	_ context.Context,
	userID string,
	input domain.BankDetailsInput,
) (domain.BankAccount, error) {
	if err := input.Validate(); err != nil {
		return domain.BankAccount{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return domain.BankAccount{}, domain.NotFoundError("user", userID)
	}

	account := domain.BankAccount{
		ID:            "BA-" + uuid.NewString(),
		Name:          input.DisplayName(),
		BankName:      strings.TrimSpace(input.BankName),
		AccountNumber: domain.MaskAccountNumber(input.AccountNumber),
		IFSCCode:      strings.ToUpper(strings.TrimSpace(input.IFSCCode)),
		IsPrimary:     input.IsPrimary || len(user.BankAccounts) == 0,
	}
	accounts := append([]domain.BankAccount(nil), user.BankAccounts...)
	if account.IsPrimary {
		for i := range accounts {
			accounts[i].IsPrimary = false
		}
	}
	user.BankAccounts = append(accounts, account)
	s.users[userID] = user
	return account, nil
}

// UpdatePreferences validates prefs and replaces the user's preferences.
func (s *MemoryStore) UpdatePreferences(
	_ context.Context,
	userID string,
	prefs domain.LoanPreferences,
) (domain.User, error) {
	if err := prefs.Validate(); err != nil {
		return domain.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.NotFoundError("user", userID)
	}
	user.Preferences = prefs
	s.users[userID] = user
	return cloneUser(user), nil
}

func (s *MemoryStore) CreateApplication(_ context.Context, app domain.LoanApplication) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[app.UserID]; !ok {
		return "", domain.NotFoundError("user", app.UserID)
	}
	if app.ID == "" {
		app.ID = "APP-" + uuid.NewString()
	}
	if _, exists := s.applications[app.ID]; exists {
		return "", fmt.Errorf("application %q: %w", app.ID, domain.ErrConflict)
	}
	s.applications[app.ID] = app
	return app.ID, nil
}

func (s *MemoryStore) GetApplication(_ context.Context, id string) (domain.LoanApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.applications[id]
	if !ok {
		return domain.LoanApplication{}, domain.NotFoundError("application", id)
	}
	return app, nil
}

// SaveOffers replaces the offers recorded for an application.
func (s *MemoryStore) SaveOffers(_ context.Context, applicationID string, offers []domain.LoanOffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.applications[applicationID]; !ok {
		return domain.NotFoundError("application", applicationID)
	}
	for _, old := range s.offers[applicationID] {
		delete(s.offerIndex, old.ID)
	}

	stored := make([]domain.LoanOffer, len(offers))
	for i, offer := range offers {
		offer.ApplicationID = applicationID
		stored[i] = offer
		s.offerIndex[offer.ID] = applicationID
	}
	s.offers[applicationID] = stored
	return nil
}

// ListOffers returns the offers of a known application in generation
// order; a rejected application has none.
func (s *MemoryStore) ListOffers(_ context.Context, applicationID string) ([]domain.LoanOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.applications[applicationID]; !ok {
		return nil, domain.NotFoundError("application", applicationID)
	}
	return append([]domain.LoanOffer{}, s.offers[applicationID]...), nil
}

// AcceptOffer converts an offer of one of userID's applications into a
// loan account. Sibling offers stay listed but can no longer be accepted.
func (s *MemoryStore) AcceptOffer(
	_ context.Context,
	userID, offerID string,
	now time.Time,
) (domain.LoanAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appID, ok := s.offerIndex[offerID]
	if !ok {
		return domain.LoanAccount{}, domain.NotFoundError("offer", offerID)
	}
	app := s.applications[appID]
	if app.UserID != userID {
		return domain.LoanAccount{}, domain.NotFoundError("offer", offerID)
	}
	if app.Status == domain.LoanStatusApproved {
		return domain.LoanAccount{}, fmt.Errorf("application %s already has an accepted offer: %w", appID, domain.ErrConflict)
	}

	offers := s.offers[appID]
	idx := -1
	for i := range offers {
		if offers[i].ID == offerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.LoanAccount{}, domain.NotFoundError("offer", offerID)
	}

	offers[idx].Accepted = true
	loan := domain.NewLoanAccount(offers[idx], userID, now)
	app.Status = domain.LoanStatusApproved
	s.applications[appID] = app
	s.loans[loan.ID] = loan
	return loan.Clone(), nil
}

func (s *MemoryStore) GetLoan(_ context.Context, id string) (domain.LoanAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.loans[id]
	if !ok {
		return domain.LoanAccount{}, domain.NotFoundError("loan", id)
	}
	return loan.Clone(), nil
}

// ListLoans returns userID's loans, oldest first.
func (s *MemoryStore) ListLoans(_ context.Context, userID string) ([]domain.LoanAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loans := []domain.LoanAccount{}
	for _, loan := range s.loans {
		if loan.UserID == userID {
			loans = append(loans, loan.Clone())
		}
	}
	sort.Slice(loans, func(i, j int) bool {
		if loans[i].StartDate.Equal(loans[j].StartDate) {
			return loans[i].ID < loans[j].ID
		}
		return loans[i].StartDate.Before(loans[j].StartDate)
	})
	return loans, nil
}

func (s *MemoryStore) RecordPayment(
	_ context.Context,
	userID, loanID string,
	now time.Time,
) (domain.LoanAccount, domain.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.loans[loanID]
	if !ok || loan.UserID != userID {
		return domain.LoanAccount{}, domain.PaymentRecord{}, domain.NotFoundError("loan", loanID)
	}

	loan = loan.Clone()
	payment, err := loan.RecordPayment(now)
	if err != nil {
		return domain.LoanAccount{}, domain.PaymentRecord{}, err
	}
	s.loans[loanID] = loan
	return loan.Clone(), payment, nil
}

func cloneUser(u domain.User) domain.User {
	u.BankAccounts = append([]domain.BankAccount{}, u.BankAccounts...)
	u.PasswordHash = append([]byte(nil), u.PasswordHash...)
	return u
}
