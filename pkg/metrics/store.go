// Package metrics exposes the Prometheus counters and histograms shared by
// the watcher, registry and sinks.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Store bundles every metric the exporter registers, all named under a
// single configurable prefix (Config.MetricsNamePrefix).
type Store struct {
	EventsProcessed  prometheus.Counter
	EventsDiscarded  prometheus.Counter
	WatchErrors      prometheus.Counter
	SendErrors       *prometheus.CounterVec
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	QueueDropped     *prometheus.CounterVec
	QueueLength      *prometheus.GaugeVec
	SinkSendDuration *prometheus.HistogramVec
}

// NewStore creates and registers a Store on reg using prefix as the metric
// name prefix (e.g. "kubesee_"). Passing a fresh registry in tests avoids
// the "duplicate metrics collector registration" panic of the global
// DefaultRegisterer.
func NewStore(reg prometheus.Registerer, prefix string) *Store {
	s := &Store{
		EventsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "events_processed_total",
			Help: "Number of events processed by the watcher.",
		}),
		EventsDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "events_discarded_total",
			Help: "Number of events discarded by the age filter.",
		}),
		WatchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "watch_errors_total",
			Help: "Number of errors reported by the watch stream.",
		}),
		SendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "send_errors_total",
			Help: "Number of sink send failures.",
		}, []string{"receiver"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "object_metadata_cache_hits_total",
			Help: "Number of involved-object metadata lookups served from cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "object_metadata_cache_misses_total",
			Help: "Number of involved-object metadata lookups that hit the API server.",
		}),
		QueueDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "queue_dropped_total",
			Help: "Number of events dropped because a receiver's queue was full.",
		}, []string{"receiver"}),
		QueueLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prefix + "queue_length",
			Help: "Current number of events buffered for a receiver.",
		}, []string{"receiver"}),
		SinkSendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    prefix + "sink_send_duration_seconds",
			Help:    "Duration of sink Send calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"receiver"}),
	}

	reg.MustRegister(
		s.EventsProcessed,
		s.EventsDiscarded,
		s.WatchErrors,
		s.SendErrors,
		s.CacheHits,
		s.CacheMisses,
		s.QueueDropped,
		s.QueueLength,
		s.SinkSendDuration,
	)
	return s
}

// NewUnregisteredStore creates a Store backed by its own private registry,
// convenient for tests and for components (like the watcher's unit tests)
// that do not care about exposition.
func NewUnregisteredStore() *Store {
	return NewStore(prometheus.NewRegistry(), "kubesee_")
}
