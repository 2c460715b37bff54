package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metrics
var (
	SignalsFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "riskgate", Subsystem: "risk", Name: "signals_fired_total", Help: "Risk signals that contributed points, by signal."},
		[]string{"signal"},
	)
	SignalFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "riskgate", Subsystem: "risk", Name: "signal_failures_total", Help: "Risk signals that could not be evaluated, by signal."},
		[]string{"signal"},
	)
	RiskScores = prometheus.NewHistogram(
		prometheus.HistogramOpts{Namespace: "riskgate", Subsystem: "risk", Name: "score", Help: "Distribution of capped risk scores.", Buckets: prometheus.LinearBuckets(0, 10, 11)},
	)
	LoginDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "riskgate", Subsystem: "login", Name: "decisions_total", Help: "Login outcomes, by decision."},
		[]string{"decision"},
	)
	ChallengeResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "riskgate", Subsystem: "challenge", Name: "results_total", Help: "Second-factor verification outcomes."},
		[]string{"result"},
	)
	HistoryErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "riskgate", Subsystem: "history", Name: "errors_total", Help: "History store failures, by operation."},
		[]string{"op"},
	)
	HistoryPruned = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "riskgate", Subsystem: "history", Name: "pruned_total", Help: "Attempts removed by retention sweeps."},
	)
)

func init() {
	_ = prometheus.Register(SignalsFired)
	_ = prometheus.Register(SignalFailures)
	_ = prometheus.Register(RiskScores)
	_ = prometheus.Register(LoginDecisions)
	_ = prometheus.Register(ChallengeResults)
	_ = prometheus.Register(HistoryErrors)
	_ = prometheus.Register(HistoryPruned)
}

// MetricsHandler exposes the default registry
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
