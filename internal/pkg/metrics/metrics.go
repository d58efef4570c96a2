// Package metrics holds the Prometheus collectors for the attendance service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "attendance"

var (
	TransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "state",
		Name:      "transitions_total",
		Help:      "Attendance transitions by operation and outcome.",
	}, []string{"operation", "outcome"})

	WriteConflictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "write_conflicts_total",
		Help:      "Optimistic write conflicts observed, by operation.",
	}, []string{"operation"})

	AutoClosedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cron",
		Name:      "auto_closed_total",
		Help:      "Stale attendance records clocked out by the scheduler.",
	})

	lastTransitionGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "state",
		Name:      "last_transition_timestamp_seconds",
		Help:      "Unix timestamp of the most recent committed transition.",
	})
)

func init() {
	prometheus.MustRegister(TransitionsTotal, WriteConflictsTotal, AutoClosedTotal, lastTransitionGauge)
}

// RecordTransition counts a transition attempt. outcome is "ok" or the
// error code returned to the caller.
func RecordTransition(operation, outcome string, at time.Time) {
	TransitionsTotal.WithLabelValues(operation, outcome).Inc()
	if outcome == "ok" && !at.IsZero() {
		lastTransitionGauge.Set(float64(at.Unix()))
	}
}

func RecordWriteConflict(operation string) {
	WriteConflictsTotal.WithLabelValues(operation).Inc()
}

func RecordAutoClosed(n int) {
	if n <= 0 {
		return
	}
	AutoClosedTotal.Add(float64(n))
}

// NewActiveStreamsGauge reports open SSE streams as read from count at
// scrape time.
func NewActiveStreamsGauge(count func() int) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "active_connections",
		Help:      "Open attendance SSE streams.",
	}, func() float64 { return float64(count()) })
}
