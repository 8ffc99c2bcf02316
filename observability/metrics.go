package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors recorded by the HTTP layer.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal        *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
	RateLimited          *prometheus.CounterVec
	EligibilityDecisions *prometheus.CounterVec
	OffersAccepted       prometheus.Counter
	PaymentsRecorded     prometheus.Counter
}

// NewMetrics registers the portal collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loan_portal",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "loan_portal",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loan_portal",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"route"}),
		EligibilityDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loan_portal",
			Name:      "eligibility_decisions_total",
			Help:      "Eligibility decisions by outcome.",
		}, []string{"approved"}),
		OffersAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loan_portal",
			Name:      "offers_accepted_total",
			Help:      "Loan offers accepted.",
		}),
		PaymentsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loan_portal",
			Name:      "payments_recorded_total",
			Help:      "Loan installments paid.",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RateLimited,
		m.EligibilityDecisions,
		m.OffersAccepted,
		m.PaymentsRecorded,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveDecision counts an eligibility outcome.
func (m *Metrics) ObserveDecision(approved bool) {
	m.EligibilityDecisions.WithLabelValues(strconv.FormatBool(approved)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
