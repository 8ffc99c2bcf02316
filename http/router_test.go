package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-portal/domain"
	"loan-portal/observability"
	"loan-portal/repository"
	"loan-portal/service"
)

type testServer struct {
	handler http.Handler
	metrics *observability.Metrics
	limiter *RateLimiter
	clock   time.Time
}

func newTestServer(t *testing.T, capacity int) *testServer {
	t.Helper()
	logger := observability.Discard()
	store := repository.NewMemoryStore()
	cache := repository.NewMemoryCache()

	tokens, err := service.NewTokenService("test-secret", "loan-portal", time.Hour)
	require.NoError(t, err)

	eligibility := service.NewEligibilityService(service.StandardPolicy{}, nil, logger)
	offers := service.NewOfferService(decimal.RequireFromString("5.99"), nil)
	scores := service.NewCreditScoreService(service.NewSeededScoreSimulator(5), cache, nil, logger)

	ts := &testServer{
		metrics: observability.NewMetrics(),
		clock:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	ts.limiter = newRateLimiter(capacity, time.Minute, func() time.Time { return ts.clock })
	ts.handler = NewRouter(Services{
		Auth:         service.NewAuthService(store, cache, tokens, nil, logger),
		Loans:        service.NewLoanService(cache, nil, logger),
		Eligibility:  eligibility,
		Offers:       offers,
		Applications: service.NewApplicationService(store, eligibility, offers, scores, nil, logger),
	}, ts.limiter, ts.metrics, logger)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (ts *testServer) register(t *testing.T, email string) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/auth/register", "",
		`{"name":"Jane Roe","email":"`+email+`","password":"password"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeBody[service.AuthResult](t, w).Token
}

func TestCalculateLoanHandler_OK(t *testing.T) {
	ts := newTestServer(t, 30)

	w := ts.do(t, http.MethodPost, "/loan/calculate", "", `{"amount": 10000, "interestRate": 12, "termMonths": 24}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	result := decodeBody[domain.LoanResult](t, w)
	assert.Equal(t, "470.73", result.MonthlyPayment.StringFixed(2))
	assert.Equal(t, "11297.52", result.TotalPayment.StringFixed(2))
	assert.Equal(t, "1297.52", result.TotalInterest.StringFixed(2))

	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.RequestsTotal.WithLabelValues("POST /loan/calculate", "200")))
}

func TestCalculateLoanHandler_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, 30)

	w := ts.do(t, http.MethodGet, "/loan/calculate", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestCalculateLoanHandler_BadRequest(t *testing.T) {
	ts := newTestServer(t, 30)

	w := ts.do(t, http.MethodPost, "/loan/calculate", "", `{invalid-json}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCalculateLoanHandler_ValidationFields(t *testing.T) {
	ts := newTestServer(t, 30)

	w := ts.do(t, http.MethodPost, "/loan/calculate", "", `{"amount": 0, "termMonths": 12}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeBody[errorResponse](t, w)
	require.Len(t, resp.Fields, 1)
	assert.Equal(t, "amount", resp.Fields[0].Field)
}

func TestCalculateLoanHandler_UnsupportedMediaType(t *testing.T) {
	ts := newTestServer(t, 30)

	req := httptest.NewRequest(http.MethodPost, "/loan/calculate", bytes.NewBufferString("amount=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestCalculateLoanHandler_RateLimited(t *testing.T) {
	ts := newTestServer(t, 2)
	body := `{"amount": 1000, "termMonths": 12}`

	for i := 0; i < 2; i++ {
		w := ts.do(t, http.MethodPost, "/loan/calculate", "", body)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := ts.do(t, http.MethodPost, "/loan/calculate", "", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.RateLimited.WithLabelValues("POST /loan/calculate")))

	ts.clock = ts.clock.Add(time.Minute)
	w = ts.do(t, http.MethodPost, "/loan/calculate", "", body)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEligibilityHandler(t *testing.T) {
	ts := newTestServer(t, 30)

	w := ts.do(t, http.MethodPost, "/loan/eligibility", "",
		`{"annualIncome": 20000, "declaredExpenses": 15000, "creditScore": 550}`)
	require.Equal(t, http.StatusOK, w.Code)

	decision := decodeBody[domain.EligibilityDecision](t, w)
	assert.False(t, decision.Approved)
	assert.Len(t, decision.Reasons, 3)
	assert.Equal(t, domain.DeclinedProductTags, decision.RecommendedProductTags)
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.EligibilityDecisions.WithLabelValues("false")))

	w = ts.do(t, http.MethodPost, "/loan/eligibility", "", `{"annualIncome": 0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreviewOffersHandler(t *testing.T) {
	ts := newTestServer(t, 30)

	w := ts.do(t, http.MethodPost, "/loan/offers/preview", "", `{"principal": 10000, "termMonths": 36}`)
	require.Equal(t, http.StatusOK, w.Code)

	offers := decodeBody[[]domain.LoanOffer](t, w)
	require.Len(t, offers, 3)
	assert.True(t, offers[1].Featured)
	assert.Equal(t, "304.17", offers[0].MonthlyPayment.StringFixed(2))
}

func TestPrivateRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t, 30)

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/credit-score"},
		{http.MethodPost, "/applications"},
		{http.MethodGet, "/loans"},
		{http.MethodGet, "/profile"},
		{http.MethodGet, "/documents"},
		{http.MethodPut, "/profile/preferences"},
	} {
		w := ts.do(t, route.method, route.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
	}

	w := ts.do(t, http.MethodGet, "/profile", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t, 30)
	token := ts.register(t, "jane@example.com")

	w := ts.do(t, http.MethodPost, "/auth/register", "",
		`{"name":"Jane","email":"jane@example.com","password":"password"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPost, "/auth/login", "", `{"email":"jane@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/auth/login", "", `{"email":"jane@example.com","password":"password"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "passwordHash")

	w = ts.do(t, http.MethodGet, "/profile", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	profile := decodeBody[domain.User](t, w)
	assert.Equal(t, "jane@example.com", profile.Email)

	w = ts.do(t, http.MethodPost, "/auth/logout", token, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/profile", token, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/auth/logout", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func applicantJSON(pan string) string {
	return `{"fullName":"Jane Roe","email":"jane@example.com","phone":"(555) 123-4567","panNumber":"` + pan + `"}`
}

func TestCreditScoreRejectsBadPAN(t *testing.T) {
	ts := newTestServer(t, 30)
	token := ts.register(t, "jane@example.com")

	w := ts.do(t, http.MethodPost, "/credit-score", token, applicantJSON("ABC123"))
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeBody[errorResponse](t, w)
	require.Len(t, resp.Fields, 1)
	assert.Equal(t, "panNumber", resp.Fields[0].Field)

	w = ts.do(t, http.MethodPost, "/credit-score", token, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoanJourney(t *testing.T) {
	ts := newTestServer(t, 30)
	token := ts.register(t, "jane@example.com")

	w := ts.do(t, http.MethodPost, "/credit-score", token, applicantJSON("ABCDE1234F"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	score := decodeBody[domain.CreditScoreResult](t, w)
	assert.Equal(t, domain.TierForScore(score.Score), score.Tier)

	w = ts.do(t, http.MethodPost, "/applications", token,
		`{"amount": 10000, "termMonths": 36, "purpose": "Car", "annualIncome": 80000, "declaredExpenses": 10000}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	app := decodeBody[domain.LoanApplication](t, w)
	assert.Equal(t, score.Score, app.CreditScore)

	w = ts.do(t, http.MethodGet, "/applications/"+app.ID+"/offers", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	offers := decodeBody[[]domain.LoanOffer](t, w)

	if app.Status == domain.LoanStatusRejected {
		assert.Empty(t, offers)
		return
	}
	require.Len(t, offers, 3)

	w = ts.do(t, http.MethodPost, "/offers/"+offers[1].ID+"/accept", token, "")
	require.Equal(t, http.StatusCreated, w.Code)
	loan := decodeBody[domain.LoanAccount](t, w)
	assert.True(t, loan.Principal.Equal(offers[1].Principal))
	assert.True(t, loan.AnnualRatePercent.Equal(offers[1].AnnualRatePercent))
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.OffersAccepted))

	w = ts.do(t, http.MethodPost, "/offers/"+offers[1].ID+"/accept", token, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodGet, "/loans/"+loan.ID+"/schedule", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[[]domain.AmortizationEntry](t, w), 36)

	w = ts.do(t, http.MethodPost, "/loans/"+loan.ID+"/payments", token, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.PaymentsRecorded))

	w = ts.do(t, http.MethodGet, "/loans", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	loans := decodeBody[[]domain.LoanAccount](t, w)
	require.Len(t, loans, 1)
	assert.Equal(t, 1, loans[0].PaymentsMade)
	assert.Equal(t, domain.LoanStatusActive, loans[0].Status)

	w = ts.do(t, http.MethodGet, "/documents", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	docs := decodeBody[[]domain.Document](t, w)
	require.Len(t, docs, 2)
	assert.Equal(t, domain.DocumentContract, docs[0].Type)
	assert.Equal(t, domain.DocumentSchedule, docs[1].Type)
	assert.Equal(t, loan.ID, docs[1].LoanID)

	other := ts.register(t, "mallory@example.com")
	w = ts.do(t, http.MethodGet, "/applications/"+app.ID+"/offers", other, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBankAccountHandler(t *testing.T) {
	ts := newTestServer(t, 30)
	token := ts.register(t, "jane@example.com")

	w := ts.do(t, http.MethodPost, "/profile/bank-accounts", token,
		`{"name":"Salary","bankName":"","accountNumber":"12","ifscCode":"X"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeBody[errorResponse](t, w)
	assert.Len(t, resp.Fields, 3)

	w = ts.do(t, http.MethodPost, "/profile/bank-accounts", token,
		`{"name":"Salary","bankName":"First Bank","accountNumber":"123456789012","ifscCode":"ABCD0123456"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	account := decodeBody[domain.BankAccount](t, w)
	assert.Equal(t, "****9012", account.AccountNumber)
}

func TestPreferencesHandler(t *testing.T) {
	ts := newTestServer(t, 30)
	token := ts.register(t, "jane@example.com")

	w := ts.do(t, http.MethodPut, "/profile/preferences", token,
		`{"communicationFrequency":"Yearly","paymentDate":"30th"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeBody[errorResponse](t, w)
	require.Len(t, resp.Fields, 2)
	assert.Equal(t, "communicationFrequency", resp.Fields[0].Field)
	assert.Equal(t, "paymentDate", resp.Fields[1].Field)

	w = ts.do(t, http.MethodPut, "/profile/preferences", token,
		`{"communicationFrequency":"Monthly","paymentDate":"1st","autoPayEnabled":false,
		  "notifications":{"paymentReminders":true,"marketing":true}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/profile", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	profile := decodeBody[domain.User](t, w)
	assert.Equal(t, domain.LoanPreferences{
		CommunicationFrequency: "Monthly",
		PaymentDate:            "1st",
		Notifications: domain.NotificationPreferences{
			PaymentReminders: true,
			Marketing:        true,
		},
	}, profile.Preferences)
}

func TestOpsRoutes(t *testing.T) {
	ts := newTestServer(t, 30)

	w := ts.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	ts.do(t, http.MethodPost, "/loan/calculate", "", `{"amount": 1000, "termMonths": 12}`)
	w = ts.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "loan_portal_http_requests_total")
}
