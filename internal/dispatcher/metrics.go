package dispatcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics are the dispatcher's Prometheus counters (SPEC_FULL §ambient
// stack: "the dispatcher emits slog debug events at each state transition
// and increments triad_dispatcher_turns_total / triad_dispatcher_tool_calls_total").
type metrics struct {
	turnsTotal     prometheus.Counter
	turnsFailed    prometheus.Counter
	toolCallsTotal prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		turnsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "triad_dispatcher_turns_total",
			Help: "Total number of turns completed by the dispatcher.",
		}),
		turnsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "triad_dispatcher_turns_failed_total",
			Help: "Total number of turns that ended in an error.",
		}),
		toolCallsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "triad_dispatcher_tool_calls_total",
			Help: "Total number of tool invocations made across all turns.",
		}),
	}
}
