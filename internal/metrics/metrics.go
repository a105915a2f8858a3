// Package metrics exposes Prometheus counters for station lookups.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "carburanti"

type Metrics struct {
	registry *prometheus.Registry

	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	StaleFallbacks  prometheus.Counter
	FetchErrors     prometheus.Counter
	FetchDuration   prometheus.Histogram
	DroppedRecords  prometheus.Counter
	StationsFetched *prometheus.CounterVec
	Notifications   prometheus.Counter
}

// New registers the lookup collectors, plus the Go runtime and process
// collectors, on a dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_hits_total",
			Help: "Station lookups served from a fresh cache entry.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_misses_total",
			Help: "Station lookups that required an upstream fetch.",
		}),
		StaleFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "stale_fallbacks_total",
			Help: "Failed fetches answered with expired cached data.",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "fetch_errors_total",
			Help: "Upstream fetches that failed.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "fetch_duration_seconds",
			Help:    "Upstream fetch latency.",
			Buckets: prometheus.DefBuckets,
		}),
		DroppedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "dropped_records_total",
			Help: "Upstream records rejected by normalization.",
		}),
		StationsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "stations_fetched_total",
			Help: "Normalized stations received from upstream, by fuel.",
		}, []string{"fuel"}),
		Notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "proximity_notifications_total",
			Help: "Proximity notifications emitted.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.CacheHits,
		m.CacheMisses,
		m.StaleFallbacks,
		m.FetchErrors,
		m.FetchDuration,
		m.DroppedRecords,
		m.StationsFetched,
		m.Notifications,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
