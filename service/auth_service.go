package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"loan-portal/domain"
	"loan-portal/repository"
)

const minPasswordLength = 6

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      domain.User `json:"user"`
}

type AuthService struct {
	store   repository.ApplicationStore
	cache   repository.CacheRepository
	tokens  *TokenService
	latency *Latency
	logger  *slog.Logger
	now     func() time.Time
}

func NewAuthService(
	store repository.ApplicationStore,
	cache repository.CacheRepository,
	tokens *TokenService,
	latency *Latency,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:   store,
		cache:   cache,
		tokens:  tokens,
		latency: latency,
		logger:  logger,
		now:     time.Now,
	}
}

// Register creates an account and signs the new user in.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (AuthResult, error) {
	if err := s.latency.Wait(ctx); err != nil {
		return AuthResult{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return AuthResult{}, domain.NewValidationError("name", "must not be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return AuthResult{}, domain.NewValidationError("email", "must be a valid address")
	}
	if len(password) < minPasswordLength {
		return AuthResult{}, domain.NewValidationError("password",
			fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	user, err := s.createUser(ctx, domain.User{Name: name, Email: email}, password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("register: %w", err)
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return s.issue(user)
}

// SeedUser creates user with password unless the email is already taken.
func (s *AuthService) SeedUser(ctx context.Context, user domain.User, password string) (domain.User, error) {
	existing, err := s.store.FindUserByEmail(ctx, user.Email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}
	return s.createUser(ctx, user, password)
}

func (s *AuthService) createUser(ctx context.Context, user domain.User, password string) (domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	if user.KYCStatus == "" {
		user.KYCStatus = "Pending"
	}
	if user.Preferences == (domain.LoanPreferences{}) {
		user.Preferences = domain.DefaultLoanPreferences
	}
	if user.CreditScore == 0 {
		user.CreditScore = DefaultCreditScore
	}
	user.CreatedAt = s.now().UTC()

	created, err := s.store.CreateUser(ctx, user)
	if err != nil {
		return domain.User{}, err
	}
	// Later score checks report the score the user was priced with.
	key := creditScoreKey(created.ID)
	if err := s.cache.Set(ctx, key, strconv.Itoa(created.CreditScore), creditScoreTTL); err != nil {
		s.logger.Warn("failed to remember initial credit score", "user_id", created.ID, "error", err)
	}
	return created, nil
}

// Login checks the credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	if err := s.latency.Wait(ctx); err != nil {
		return AuthResult{}, err
	}

	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return AuthResult{}, fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)
		}
		return AuthResult{}, fmt.Errorf("login: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		s.logger.Debug("password mismatch", "user_id", user.ID)
		return AuthResult{}, fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)
	}
	return s.issue(user)
}

func (s *AuthService) issue(user domain.User) (AuthResult, error) {
	token, claims, err := s.tokens.Issue(user)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user}, nil
}

// Authenticate turns a bearer token into a session, rejecting revoked
// tokens.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Session, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return domain.Session{}, err
	}
	if _, revoked := s.cache.Get(ctx, revokedKey(claims.ID)); revoked {
		return domain.Session{}, fmt.Errorf("token revoked: %w", domain.ErrUnauthorized)
	}
	return claims.Session(), nil
}

// Logout revokes the session's token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return err
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.cache.Set(ctx, revokedKey(claims.ID), claims.Subject, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.logger.Info("user logged out", "user_id", claims.Subject)
	return nil
}

func revokedKey(tokenID string) string {
	return "session:revoked:" + tokenID
}
