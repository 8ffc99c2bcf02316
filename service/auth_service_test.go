package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-portal/domain"
	"loan-portal/observability"
	"loan-portal/repository"
)

func newTestAuthService(t *testing.T) (*AuthService, *repository.MemoryStore) {
	t.Helper()
	tokens, err := NewTokenService("test-secret", "loan-portal", time.Hour)
	require.NoError(t, err)
	store := repository.NewMemoryStore()
	return NewAuthService(store, repository.NewMemoryCache(), tokens, nil, observability.Discard()), store
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	auth, store := newTestAuthService(t)
	ctx := context.Background()

	registered, err := auth.Register(ctx, "  Jane Roe ", "jane@example.com", "s3cret!")
	require.NoError(t, err)
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, "Jane Roe", registered.User.Name)
	assert.Equal(t, "Pending", registered.User.KYCStatus)
	assert.Equal(t, domain.DefaultLoanPreferences, registered.User.Preferences)

	stored, err := store.GetUser(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.NotEqual(t, []byte("s3cret!"), stored.PasswordHash)

	loggedIn, err := auth.Login(ctx, "jane@example.com", "s3cret!")
	require.NoError(t, err)

	session, err := auth.Authenticate(ctx, loggedIn.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, session.UserID)
	assert.Equal(t, "jane@example.com", session.Email)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	auth, _ := newTestAuthService(t)

	cases := []struct {
		name, email, password, field string
	}{
		{"", "a@example.com", "password", "name"},
		{"Jane", "not-an-email", "password", "email"},
		{"Jane", "a@example.com", "short", "password"},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			_, err := auth.Register(context.Background(), tc.name, tc.email, tc.password)
			require.ErrorIs(t, err, domain.ErrValidation)

			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestAuthService_DuplicateEmail(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, "Jane", "jane@example.com", "password")
	require.NoError(t, err)

	_, err = auth.Register(ctx, "Other Jane", "JANE@example.com", "password")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestAuthService_LoginFailures(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, "Jane", "jane@example.com", "password")
	require.NoError(t, err)

	_, err = auth.Login(ctx, "jane@example.com", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = auth.Login(ctx, "nobody@example.com", "password")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthService_LogoutRevokesToken(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	result, err := auth.Register(ctx, "Jane", "jane@example.com", "password")
	require.NoError(t, err)

	require.NoError(t, auth.Logout(ctx, result.Token))

	_, err = auth.Authenticate(ctx, result.Token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	again, err := auth.Login(ctx, "jane@example.com", "password")
	require.NoError(t, err)
	_, err = auth.Authenticate(ctx, again.Token)
	assert.NoError(t, err)
}

func TestAuthService_SeedUserIsIdempotent(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	demo := domain.User{Name: "John Doe", Email: "user@example.com", CreditScore: 750}
	first, err := auth.SeedUser(ctx, demo, "password")
	require.NoError(t, err)

	second, err := auth.SeedUser(ctx, demo, "password")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = auth.Login(ctx, "user@example.com", "password")
	assert.NoError(t, err)
}

func TestAuthService_RegisterRemembersDefaultScore(t *testing.T) {
	tokens, err := NewTokenService("test-secret", "loan-portal", time.Hour)
	require.NoError(t, err)
	cache := repository.NewMemoryCache()
	auth := NewAuthService(repository.NewMemoryStore(), cache, tokens, nil, observability.Discard())
	scores := NewCreditScoreService(NewSeededScoreSimulator(3), cache, nil, observability.Discard())
	ctx := context.Background()

	registered, err := auth.Register(ctx, "Jane Roe", "jane@example.com", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, DefaultCreditScore, registered.User.CreditScore)

	result, err := scores.Check(ctx, domain.Session{UserID: registered.User.ID}, applicantDetails)
	require.NoError(t, err)
	assert.Equal(t, 750, result.Score)
	assert.Equal(t, domain.TierExcellent, result.Tier)
}
