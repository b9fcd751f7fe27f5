package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the lifecycle engine.
type Metrics struct {
	// Applications created in this process
	ApplicationsCreated prometheus.Counter

	// Transition outcomes by command and result code
	TransitionOutcome *prometheus.CounterVec

	// Command latency including collaborator calls
	CommandLatency *prometheus.HistogramVec
}

// New creates a Metrics instance with all engine metrics registered.
func New() *Metrics {
	return &Metrics{
		ApplicationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lendflow_applications_created_total",
			Help: "Total salary advance applications created",
		}),

		TransitionOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lendflow_transitions_total",
			Help: "Lifecycle transition outcomes by command and result",
		}, []string{"command", "result"}), // result: "ok" or the error code

		CommandLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lendflow_command_duration_seconds",
			Help:    "Duration of lifecycle commands including collaborator calls",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"command"}),
	}
}

// IncrementCreated records a created application.
func (m *Metrics) IncrementCreated() {
	if m != nil {
		m.ApplicationsCreated.Inc()
	}
}

// IncrementTransition records a transition outcome.
func (m *Metrics) IncrementTransition(command, result string) {
	if m != nil {
		m.TransitionOutcome.WithLabelValues(command, result).Inc()
	}
}

// ObserveCommandLatency records a command's total duration.
func (m *Metrics) ObserveCommandLatency(command string, d time.Duration) {
	if m != nil {
		m.CommandLatency.WithLabelValues(command).Observe(d.Seconds())
	}
}
