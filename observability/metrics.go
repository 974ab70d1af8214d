// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Claim outcomes
const (
	OutcomeSuccess         = "success"
	OutcomeAlreadyClaimed  = "already_claimed"
	OutcomeHasTokens       = "already_has_tokens"
	OutcomeInsufficient    = "insufficient_balance"
	OutcomeInvalidRequest  = "invalid_request"
	OutcomeConfigError     = "config_error"
	OutcomeSubmitConflict  = "submit_conflict"
	OutcomeSubmitFailed    = "submit_failed"
	OutcomeConfirmTimeout  = "confirm_timeout"
	OutcomeInternalFailure = "internal_error"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	registry *prometheus.Registry

	ClaimsTotal     *prometheus.CounterVec
	ClaimDuration   prometheus.Histogram
	RPCCallLatency  *prometheus.HistogramVec
	RPCCallErrors   *prometheus.CounterVec
	StoreOperations *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "airdrop"
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ClaimsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_total",
			Help:      "Total number of airdrop claims by outcome",
		}, []string{"outcome"}),
		ClaimDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "claim_duration_seconds",
			Help:      "End-to-end latency of airdrop claims",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_duration_seconds",
			Help:      "Latency of Solana RPC calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_errors_total",
			Help:      "Total number of failed Solana RPC calls",
		}, []string{"method"}),
		StoreOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Claim store operations by type and result",
		}, []string{"op", "result"}),
	}
}

// RecordClaim counts a finished claim.
func (m *Metrics) RecordClaim(outcome string, elapsed time.Duration) {
	m.ClaimsTotal.WithLabelValues(outcome).Inc()
	m.ClaimDuration.Observe(elapsed.Seconds())
}

// ObserveRPC records one RPC call.
func (m *Metrics) ObserveRPC(method string, elapsed time.Duration, err error) {
	m.RPCCallLatency.WithLabelValues(method).Observe(elapsed.Seconds())
	if err != nil {
		m.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordStore counts a claim store operation.
func (m *Metrics) RecordStore(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StoreOperations.WithLabelValues(op, result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
