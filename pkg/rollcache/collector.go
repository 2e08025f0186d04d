package rollcache

import "github.com/prometheus/client_golang/prometheus"

// Observable is what [Collector] reads from. *Cache[T] and *Synced[T] satisfy it.
// Use Synced when the cache is driven from a goroutine other than the
// one scraping metrics.
type Observable interface {
	Stats() Stats
	Window() Range
	PendingLen() int
}

// Collector exposes cache counters as Prometheus metrics.
type Collector struct {
	src Observable

	hits        *prometheus.Desc
	misses      *prometheus.Desc
	fetches     *prometheus.Desc
	rowsFetched *prometheus.Desc
	rowsEvicted *prometheus.Desc
	flushed     *prometheus.Desc
	flushErrors *prometheus.Desc
	windowRows  *prometheus.Desc
	pending     *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector for src. Every metric carries a "cache"
// label set to name so several caches can share a registry.
func NewCollector(name string, src Observable) *Collector {
	labels := prometheus.Labels{"cache": name}

	desc := func(metric, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc("rollcache_"+metric, help, variable, labels)
	}

	return &Collector{
		src: src,

		hits:        desc("hits_total", "Get calls served from the window"),
		misses:      desc("misses_total", "Get calls that moved the window, by kind", "kind"),
		fetches:     desc("fetches_total", "Calls to the source's Fetch"),
		rowsFetched: desc("rows_fetched_total", "Rows returned by the source"),
		rowsEvicted: desc("rows_evicted_total", "Rows dropped from the window"),
		flushed:     desc("flushed_total", "Pending changes written to the source"),
		flushErrors: desc("flush_errors_total", "Flush calls stopped by a write failure"),
		windowRows:  desc("window_rows", "Rows currently held in the window"),
		pending:     desc("pending_changes", "Changes waiting for Flush"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.fetches
	ch <- c.rowsFetched
	ch <- c.rowsEvicted
	ch <- c.flushed
	ch <- c.flushErrors
	ch <- c.windowRows
	ch <- c.pending
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()

	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}

	counter(c.hits, st.Hits)
	counter(c.misses, st.NearMisses, "near")
	counter(c.misses, st.Shifts, "shift")
	counter(c.misses, st.FarMisses, "far")
	counter(c.fetches, st.Fetches)
	counter(c.rowsFetched, st.RowsFetched)
	counter(c.rowsEvicted, st.RowsEvicted)
	counter(c.flushed, st.Flushed)
	counter(c.flushErrors, st.FlushErrors)

	ch <- prometheus.MustNewConstMetric(c.windowRows, prometheus.GaugeValue, float64(c.src.Window().Length))
	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(c.src.PendingLen()))
}
