package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики выполнения графов.
var (
	// RunsTotal — количество завершённых runs по итоговому статусу.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowline_runs_total",
		Help: "Completed flow runs by final status.",
	}, []string{"status"})

	// NodeExecutionsTotal — количество выполнений узлов по типу и статусу.
	NodeExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowline_node_executions_total",
		Help: "Node executions by node type and status.",
	}, []string{"type", "status"})

	// NodeDurationSeconds — длительность успешных выполнений узлов.
	NodeDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flowline_node_duration_seconds",
		Help:    "Duration of successful node executions.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"type"})

	// SandboxTimeoutsTotal — количество sandbox-тел, снятых по таймауту.
	SandboxTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowline_sandbox_timeouts_total",
		Help: "Custom node bodies interrupted by the wall-clock timeout.",
	})
)
