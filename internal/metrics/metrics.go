package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector aggregates the service's Prometheus metrics behind a dedicated
// registry. A nil *Collector is safe to call, so wiring stays optional in
// tests.
type Collector struct {
	registry         *prometheus.Registry
	transfers        *prometheus.CounterVec
	riskScores       prometheus.Histogram
	otpVerifications *prometheus.CounterVec
}

// NewCollector builds a collector with its own registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	return &Collector{
		registry: registry,
		transfers: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "vaultpay_transfers_total",
			Help: "Transfer attempts by terminal outcome",
		}, []string{"status"}),
		riskScores: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "vaultpay_transfer_risk_score",
			Help:    "Distribution of transfer risk scores",
			Buckets: []float64{0, 25, 50, 75, 100},
		}),
		otpVerifications: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "vaultpay_otp_verifications_total",
			Help: "OTP verification attempts by result",
		}, []string{"result"}),
	}
}

// RecordTransfer counts one terminal transfer outcome and observes its score.
func (c *Collector) RecordTransfer(status string, riskScore int) {
	if c == nil {
		return
	}
	c.transfers.WithLabelValues(status).Inc()
	c.riskScores.Observe(float64(riskScore))
}

// RecordOTP counts one OTP verification result.
func (c *Collector) RecordOTP(result string) {
	if c == nil {
		return
	}
	c.otpVerifications.WithLabelValues(result).Inc()
}

// Handler exposes the registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
