// Package metrics holds the agent's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the agent-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mtolling",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Outbound mTolling API requests by method and outcome.",
		},
		[]string{"method", "outcome"},
	)

	apiDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mtolling",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound mTolling API requests.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"method"},
	)

	tripPolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mtolling",
			Subsystem: "trips",
			Name:      "polls_total",
			Help:      "Trip poll cycles by result (ok, error, skipped).",
		},
		[]string{"result"},
	)

	tripEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mtolling",
			Subsystem: "trips",
			Name:      "new_trip_events_total",
			Help:      "Change events emitted for newly observed trips.",
		},
	)

	locationFixes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mtolling",
			Subsystem: "location",
			Name:      "fixes_total",
			Help:      "Location fixes by outcome (forwarded, rejected, forward_failed).",
		},
		[]string{"outcome"},
	)

	tollCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mtolling",
			Subsystem: "tolls",
			Name:      "cache_lookups_total",
			Help:      "Toll cache lookups by source (cache, remote, stale).",
		},
		[]string{"source"},
	)
)

func init() {
	Registry.MustRegister(
		apiRequests,
		apiDuration,
		tripPolls,
		tripEvents,
		locationFixes,
		tollCacheLookups,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveAPIRequest records one outbound request.
func ObserveAPIRequest(method, outcome string, d time.Duration) {
	apiRequests.WithLabelValues(method, outcome).Inc()
	apiDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordTripPoll records the result of one poll cycle.
func RecordTripPoll(result string) {
	tripPolls.WithLabelValues(result).Inc()
}

// RecordTripEvents adds n emitted change events.
func RecordTripEvents(n int) {
	tripEvents.Add(float64(n))
}

// RecordLocationFix records what happened to a received fix.
func RecordLocationFix(outcome string) {
	locationFixes.WithLabelValues(outcome).Inc()
}

// RecordTollLookup records where a toll lookup was served from.
func RecordTollLookup(source string) {
	tollCacheLookups.WithLabelValues(source).Inc()
}
