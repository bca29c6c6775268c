// Package metrics exposes Cadabra's counters as Prometheus text
// exposition for the GET /metrics route (§6).
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cadabra-cache/cadabra/pkg/store"
)

// Registry owns Cadabra's Prometheus metrics on a private registry so
// the exposed series are exactly the ones this package defines, not
// whatever else an imported library happened to register globally.
type Registry struct {
	reg *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	invalidationsTotal prometheus.Counter
	cacheEntries       prometheus.Gauge
	entriesPerTable    *prometheus.GaugeVec
	indexSize          *prometheus.GaugeVec
}

// NewRegistry builds and registers Cadabra's metric set.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		requestsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "cadabra",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests handled, by route and status class.",
		}, []string{"route", "status"}),
		invalidationsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "cadabra",
			Name:      "invalidations_total",
			Help:      "Total cache entries deleted by invalidate/clearTable calls.",
		}),
		cacheEntries: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "cadabra",
			Name:      "cache_entries",
			Help:      "Current number of cache_entries rows.",
		}),
		entriesPerTable: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cadabra",
			Name:      "cache_entries_per_table",
			Help:      "Current number of cache entries registered against each table.",
		}, []string{"table"}),
		indexSize: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cadabra",
			Name:      "index_size",
			Help:      "Current number of rows in each secondary index.",
		}, []string{"index"}),
	}

	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return r
}

// Handler serves the Prometheus text exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveRequest records one HTTP request outcome.
func (r *Registry) ObserveRequest(route string, status int) {
	class := "2xx"
	switch {
	case status >= 500:
		class = "5xx"
	case status >= 400:
		class = "4xx"
	}
	r.requestsTotal.WithLabelValues(route, class).Inc()
}

// ObserveInvalidations adds n to the running invalidation count.
func (r *Registry) ObserveInvalidations(n int) {
	if n > 0 {
		r.invalidationsTotal.Add(float64(n))
	}
}

// StartCollector polls cache.Metrics() on interval and mirrors it onto
// the gauges, until stop is closed. The store has no push hooks, so a
// poll loop is the simplest way to keep gauges fresh between scrapes.
func (r *Registry) StartCollector(cache *store.Store, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				r.refresh(cache)
			}
		}
	}()
}

func (r *Registry) refresh(cache *store.Store) {
	m, err := cache.Metrics()
	if err != nil {
		return
	}
	r.cacheEntries.Set(float64(m.CacheEntries))
	for table, count := range m.EntriesPerTable {
		r.entriesPerTable.WithLabelValues(table).Set(float64(count))
	}
	r.indexSize.WithLabelValues("by_table").Set(float64(m.ByTableIndexSize))
	r.indexSize.WithLabelValues("by_row").Set(float64(m.ByRowIndexSize))
	r.indexSize.WithLabelValues("by_column").Set(float64(m.ByColumnIndexSize))
	r.indexSize.WithLabelValues("by_aggregate").Set(float64(m.ByAggregateIndexSize))
}
