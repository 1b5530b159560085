package sessions

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	// created counts sessions by how they started (new, restored)
	created *prometheus.CounterVec

	// operations counts session operations by operation and result
	operations *prometheus.CounterVec

	// duration tracks operation latency, lock wait included
	duration *prometheus.HistogramVec

	active  prometheus.Gauge
	evicted prometheus.Counter

	// saves counts save attempts by result
	saves *prometheus.CounterVec
}

// newMetrics registers the manager metrics with reg. A nil reg creates
// unregistered collectors.
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)

	return &metrics{
		created: f.NewCounterVec(prometheus.CounterOpts{
			Name: "configbuilder_sessions_created_total",
			Help: "Total configuration sessions created by origin",
		}, []string{"origin"}),

		operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "configbuilder_session_operations_total",
			Help: "Total session operations by operation and result",
		}, []string{"operation", "result"}),

		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "configbuilder_session_operation_duration_seconds",
			Help:    "Session operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14), // 50us to ~400ms
		}, []string{"operation"}),

		active: f.NewGauge(prometheus.GaugeOpts{
			Name: "configbuilder_sessions_active",
			Help: "Number of live configuration sessions",
		}),

		evicted: f.NewCounter(prometheus.CounterOpts{
			Name: "configbuilder_sessions_evicted_total",
			Help: "Total idle sessions evicted by the sweeper",
		}),

		saves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "configbuilder_configuration_saves_total",
			Help: "Total configuration saves by result",
		}, []string{"result"}),
	}
}
