package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the credential platform.
type Metrics struct {
	CredentialsIssued   prometheus.Counter
	CredentialsRevoked  prometheus.Counter
	CredentialsImported prometheus.Counter
	Verifications       *prometheus.CounterVec
	RequestLatency      *prometheus.HistogramVec
}

// New creates and registers all metrics on the given registerer. Pass
// prometheus.DefaultRegisterer in main and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CredentialsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "certo_credentials_issued_total",
			Help: "Total number of credentials issued",
		}),
		CredentialsRevoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "certo_credentials_revoked_total",
			Help: "Total number of credentials revoked",
		}),
		CredentialsImported: factory.NewCounter(prometheus.CounterOpts{
			Name: "certo_credentials_imported_total",
			Help: "Total number of external credentials imported",
		}),
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "certo_verifications_total",
			Help: "Total number of verification requests by outcome",
		}, []string{"outcome"}),
		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "certo_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// ObserveVerification records one verification by outcome ("verified",
// "not_verified", or "error").
func (m *Metrics) ObserveVerification(outcome string) {
	m.Verifications.WithLabelValues(outcome).Inc()
}
