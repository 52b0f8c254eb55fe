// Package metrics holds Prometheus collectors for agent activity and local
// text features of user input.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Turn outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

var (
	// Registry is private so tests and embedders never collide with the
	// global default registerer.
	Registry = prometheus.NewRegistry()

	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calagent_turns_total",
			Help: "Total number of processed user messages by outcome",
		},
		[]string{"outcome"},
	)

	toolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calagent_tool_calls_total",
			Help: "Total number of tool executions by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)

	toolDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "calagent_tool_duration_seconds",
			Help:    "Duration of tool executions in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8), // 1ms to ~16s
		},
		[]string{"tool"},
	)

	tokenUsage = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calagent_token_usage_total",
			Help: "Tokens reported by the model API",
		},
		[]string{"model", "type"}, // type: input or output
	)
)

func init() {
	Registry.MustRegister(turnsTotal, toolCallsTotal, toolDurationSeconds, tokenUsage)
}

// RecordTurn counts one processed user message.
func RecordTurn(outcome string) {
	turnsTotal.WithLabelValues(outcome).Inc()
}

// RecordToolCall counts one tool execution and observes its duration.
func RecordToolCall(tool, outcome string, d time.Duration) {
	toolCallsTotal.WithLabelValues(tool, outcome).Inc()
	toolDurationSeconds.WithLabelValues(tool).Observe(d.Seconds())
}

// RecordTokens adds API-reported usage for model.
func RecordTokens(model string, input, output int64) {
	if input > 0 {
		tokenUsage.WithLabelValues(model, "input").Add(float64(input))
	}
	if output > 0 {
		tokenUsage.WithLabelValues(model, "output").Add(float64(output))
	}
}
