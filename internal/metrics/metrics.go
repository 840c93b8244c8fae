// internal/metrics/metrics.go

// Package metrics exposes Prometheus instrumentation for the submission
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "enroll",
		Subsystem: "submissions",
		Name:      "total",
		Help:      "Submission attempts by terminal outcome.",
	}, []string{"outcome"})

	PaymentResolutionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "enroll",
		Subsystem: "submissions",
		Name:      "payment_resolution_failures_total",
		Help:      "Payment instrument resolution failures by kind.",
	}, []string{"kind"})

	PriceFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "enroll",
		Subsystem: "pricing",
		Name:      "fallbacks_total",
		Help:      "Coverage lines priced from a fallback source instead of the rate engine.",
	}, []string{"source"})

	ExternalCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "enroll",
		Subsystem: "external",
		Name:      "call_duration_seconds",
		Help:      "Latency of vault, rate engine and carrier calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"target"})
)

// Submission outcomes.
const (
	OutcomeSubmitted        = "submitted"
	OutcomeValidationFailed = "validation_failed"
	OutcomeResolutionFailed = "payment_resolution_failed"
	OutcomeCarrierRejected  = "carrier_rejected"
	OutcomeCarrierError     = "carrier_unavailable"
	OutcomeConflict         = "conflict"
)
