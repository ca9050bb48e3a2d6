package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	QuoteRequestsTotal *prometheus.CounterVec
	QuoteDuration      *prometheus.HistogramVec
	CarrierErrors      *prometheus.CounterVec
	BreakerState       *prometheus.GaugeVec
	WebhooksTotal      *prometheus.CounterVec
}

// NewMetrics creates and registers Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		QuoteRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quenty_quote_requests_total",
				Help: "Total quote comparisons by status",
			},
			[]string{"status"},
		),
		QuoteDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quenty_quote_duration_seconds",
				Help:    "Quote comparison duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		CarrierErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quenty_carrier_errors_total",
				Help: "Total carrier failures by carrier and error kind",
			},
			[]string{"carrier", "kind"},
		),
		BreakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quenty_breaker_state",
				Help: "Circuit state per carrier (0=closed, 1=half-open, 2=open)",
			},
			[]string{"carrier"},
		),
		WebhooksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quenty_webhooks_total",
				Help: "Total webhook deliveries by carrier and outcome",
			},
			[]string{"carrier", "outcome"},
		),
	}
}

// RecordQuote records one quote comparison.
func (m *Metrics) RecordQuote(status string, duration float64) {
	m.QuoteRequestsTotal.WithLabelValues(status).Inc()
	m.QuoteDuration.WithLabelValues(status).Observe(duration)
}

// RecordCarrierError records a carrier failure.
func (m *Metrics) RecordCarrierError(carrier, kind string) {
	m.CarrierErrors.WithLabelValues(carrier, kind).Inc()
}

// SetBreakerState publishes a carrier's circuit state.
func (m *Metrics) SetBreakerState(carrier string, state float64) {
	m.BreakerState.WithLabelValues(carrier).Set(state)
}

// RecordWebhook records one webhook delivery.
func (m *Metrics) RecordWebhook(carrier, outcome string) {
	m.WebhooksTotal.WithLabelValues(carrier, outcome).Inc()
}
