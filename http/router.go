package http

import (
	"log/slog"
	"net/http"

	"loan-portal/observability"
	"loan-portal/service"
)

// Services bundles what the router dispatches to.
type Services struct {
	Auth         *service.AuthService
	Loans        *service.LoanService
	Eligibility  *service.EligibilityService
	Offers       *service.OfferService
	Applications *service.ApplicationService
}

// NewRouter wires every route. Calculator routes are rate limited per
// client; account routes require a bearer token.
func NewRouter(
	svc Services,
	limiter *RateLimiter,
	metrics *observability.Metrics,
	logger *slog.Logger,
) http.Handler {
	loanHandler := NewLoanHandler(svc.Loans, svc.Eligibility, svc.Offers, metrics, logger)
	appHandler := NewApplicationHandler(svc.Applications, metrics, logger)
	authHandler := NewAuthHandler(svc.Auth, logger)

	mux := http.NewServeMux()

	handle := func(pattern string, h http.Handler) {
		mux.Handle(pattern, Instrument(metrics, logger, pattern, h))
	}
	limited := func(pattern string, h http.HandlerFunc) {
		handle(pattern, RateLimitMiddleware(limiter, metrics, pattern, h))
	}
	private := func(pattern string, h http.HandlerFunc) {
		handle(pattern, RequireSession(svc.Auth, logger, h))
	}

	handle("POST /auth/register", http.HandlerFunc(authHandler.Register))
	handle("POST /auth/login", http.HandlerFunc(authHandler.Login))
	handle("POST /auth/logout", http.HandlerFunc(authHandler.Logout))

	limited("POST /loan/calculate", loanHandler.CalculateLoan)
	limited("POST /loan/eligibility", loanHandler.CheckEligibility)
	limited("POST /loan/offers/preview", loanHandler.PreviewOffers)

	private("POST /credit-score", appHandler.CreditScore)
	private("POST /applications", appHandler.Submit)
	private("GET /applications/{id}/offers", appHandler.Offers)
	private("POST /offers/{id}/accept", appHandler.AcceptOffer)
	private("GET /loans", appHandler.Loans)
	private("GET /loans/{id}/schedule", appHandler.Schedule)
	private("POST /loans/{id}/payments", appHandler.MakePayment)
	private("GET /profile", appHandler.Profile)
	private("POST /profile/bank-accounts", appHandler.AddBankAccount)
	private("PUT /profile/preferences", appHandler.UpdatePreferences)
	private("GET /documents", appHandler.Documents)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", metrics.Handler())

	return mux
}
