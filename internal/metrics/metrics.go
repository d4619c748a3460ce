// Package metrics exposes Prometheus metrics for token subscribers:
// fetch outcomes, refresh latency, token lifetimes, and readiness.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tokensub"

// Failure reason label values.
const (
	ReasonPreconditions = "preconditions"
	ReasonTransport     = "transport"
	ReasonStatus        = "status"
	ReasonParse         = "parse"
)

var (
	// FetchTotal counts every completed refresh attempt.
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Total number of token fetch attempts",
		},
		[]string{"subscriber", "kind", "outcome"},
	)

	// FetchFailures counts failed refresh attempts by reason.
	FetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Total number of failed token fetch attempts",
		},
		[]string{"subscriber", "kind", "reason"},
	)

	// FetchLatency tracks time from dispatch to completion.
	FetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_latency_seconds",
			Help:      "Token fetch latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"subscriber"},
	)

	// TokenTTL records the lifetime reported with the last token.
	TokenTTL = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "token_ttl_seconds",
			Help:      "Lifetime of the most recently fetched token in seconds",
		},
		[]string{"subscriber", "kind"},
	)

	// Ready is 1 once the subscriber has obtained its first token.
	Ready = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ready",
			Help:      "Whether the subscriber has fetched at least one token",
		},
		[]string{"subscriber"},
	)
)
