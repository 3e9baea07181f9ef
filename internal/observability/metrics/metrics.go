package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storepulse_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storepulse_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	admissionDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storepulse_admission_decisions_total",
		Help: "Analysis admission attempts by result",
	}, []string{"result"})

	admissionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storepulse_admission_duration_seconds",
		Help:    "Duration of the admission transaction",
		Buckets: prometheus.DefBuckets,
	})

	analysisOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storepulse_analysis_outcomes_total",
		Help: "Analyses reaching a terminal state, by status and source",
	}, []string{"status", "source"})

	inFlightAnalyses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storepulse_analyses_in_flight",
		Help: "Analyses pending or processing, as last observed by the stale worker",
	})

	suggestionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storepulse_suggestion_transitions_total",
		Help: "Suggestion status changes",
	}, []string{"from", "to"})

	creditMovements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storepulse_credit_movements_total",
		Help: "Credits moved by kind (debit, grant, refund)",
	}, []string{"kind"})

	jobDispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storepulse_job_dispatch_total",
		Help: "Analysis job dispatch attempts by result",
	}, []string{"result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveAdmission records one admission decision and how long it took.
// result is one of admitted, in_flight, rate_limited, insufficient_credits, error.
func ObserveAdmission(result string, duration time.Duration) {
	admissionDecisions.WithLabelValues(result).Inc()
	admissionDuration.Observe(duration.Seconds())
}

// ObserveAnalysisOutcome counts a terminal analysis transition.
func ObserveAnalysisOutcome(status, source string) {
	analysisOutcomes.WithLabelValues(status, source).Inc()
}

// SetInFlight sets the in-flight analyses gauge.
func SetInFlight(count int) {
	if count < 0 {
		count = 0
	}
	inFlightAnalyses.Set(float64(count))
}

// ObserveSuggestionTransition counts a suggestion status change.
func ObserveSuggestionTransition(from, to string) {
	suggestionTransitions.WithLabelValues(from, to).Inc()
}

// ObserveCredits adds amount to the credit movement counter for kind.
func ObserveCredits(kind string, amount int) {
	if amount <= 0 {
		return
	}
	creditMovements.WithLabelValues(kind).Add(float64(amount))
}

// ObserveDispatch counts a job dispatch attempt.
func ObserveDispatch(result string) {
	jobDispatches.WithLabelValues(result).Inc()
}
