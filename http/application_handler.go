package http

import (
	"log/slog"
	"net/http"

	"loan-portal/domain"
	"loan-portal/observability"
	"loan-portal/service"
)

type ApplicationHandler struct {
	service *service.ApplicationService
	metrics *observability.Metrics
	logger  *slog.Logger
}

func NewApplicationHandler(
	service *service.ApplicationService,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *ApplicationHandler {
	return &ApplicationHandler{service: service, metrics: metrics, logger: logger}
}

type paymentResponse struct {
	Loan    domain.LoanAccount   `json:"loan"`
	Payment domain.PaymentRecord `json:"payment"`
}

func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var input domain.ApplicationInput
	if !decodeJSON(w, r, h.logger, &input) {
		return
	}

	app, err := h.service.Submit(r.Context(), SessionFrom(r.Context()), input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if app.Decision != nil {
		h.metrics.ObserveDecision(app.Decision.Approved)
	}
	writeJSON(w, h.logger, http.StatusCreated, app)
}

func (h *ApplicationHandler) Offers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.service.Offers(r.Context(), SessionFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, offers)
}

func (h *ApplicationHandler) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	loan, err := h.service.AcceptOffer(r.Context(), SessionFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.metrics.OffersAccepted.Inc()
	writeJSON(w, h.logger, http.StatusCreated, loan)
}

func (h *ApplicationHandler) Loans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.Loans(r.Context(), SessionFrom(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, loans)
}

func (h *ApplicationHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.service.Schedule(r.Context(), SessionFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, schedule)
}

func (h *ApplicationHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	loan, payment, err := h.service.MakePayment(r.Context(), SessionFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.metrics.PaymentsRecorded.Inc()
	writeJSON(w, h.logger, http.StatusCreated, paymentResponse{Loan: loan, Payment: payment})
}

func (h *ApplicationHandler) CreditScore(w http.ResponseWriter, r *http.Request) {
	var input domain.CreditCheckInput
	if !decodeJSON(w, r, h.logger, &input) {
		return
	}

	result, err := h.service.CheckCreditScore(r.Context(), SessionFrom(r.Context()), input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

func (h *ApplicationHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Profile(r.Context(), SessionFrom(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, user)
}

func (h *ApplicationHandler) AddBankAccount(w http.ResponseWriter, r *http.Request) {
	var input domain.BankDetailsInput
	if !decodeJSON(w, r, h.logger, &input) {
		return
	}

	account, err := h.service.AddBankAccount(r.Context(), SessionFrom(r.Context()), input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, account)
}

func (h *ApplicationHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var prefs domain.LoanPreferences
	if !decodeJSON(w, r, h.logger, &prefs) {
		return
	}

	user, err := h.service.UpdatePreferences(r.Context(), SessionFrom(r.Context()), prefs)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, user)
}

func (h *ApplicationHandler) Documents(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.Documents(r.Context(), SessionFrom(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, docs)
}
