package http

import (
	"log/slog"
	"net/http"

	"loan-portal/domain"
	"loan-portal/observability"
	"loan-portal/service"
)

// LoanHandler serves the stateless calculators: payment, eligibility and
// offer preview.
type LoanHandler struct {
	loans       *service.LoanService
	eligibility *service.EligibilityService
	offers      *service.OfferService
	metrics     *observability.Metrics
	logger      *slog.Logger
}

func NewLoanHandler(
	loans *service.LoanService,
	eligibility *service.EligibilityService,
	offers *service.OfferService,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *LoanHandler {
	return &LoanHandler{
		loans:       loans,
		eligibility: eligibility,
		offers:      offers,
		metrics:     metrics,
		logger:      logger,
	}
}

func (h *LoanHandler) CalculateLoan(w http.ResponseWriter, r *http.Request) {
	var input domain.LoanInput
	if !decodeJSON(w, r, h.logger, &input) {
		return
	}

	result, err := h.loans.CalculateLoan(r.Context(), input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

func (h *LoanHandler) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	var req domain.LoanRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	decision, err := h.eligibility.CheckEligibility(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.metrics.ObserveDecision(decision.Approved)
	writeJSON(w, h.logger, http.StatusOK, decision)
}

func (h *LoanHandler) PreviewOffers(w http.ResponseWriter, r *http.Request) {
	var req domain.OfferRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	offers, err := h.offers.Preview(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, offers)
}
