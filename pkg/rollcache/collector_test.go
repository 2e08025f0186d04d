package rollcache_test

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/rollcache/pkg/rollcache"
)

func Test_Collector_Exports_Counters_And_Gauges_When_Cache_Used(t *testing.T) {
	t.Parallel()

	c := newCache(t, newTable(1000), 100, 300)

	for _, index := range []int{0, 50, 150, 900} {
		_, err := c.Get(t.Context(), index)
		require.NoError(t, err)
	}

	c.Add(item{ID: 5000})

	collector := rollcache.NewCollector("products", c)

	want := `
# HELP rollcache_fetches_total Calls to the source's Fetch
# TYPE rollcache_fetches_total counter
rollcache_fetches_total{cache="products"} 3
# HELP rollcache_hits_total Get calls served from the window
# TYPE rollcache_hits_total counter
rollcache_hits_total{cache="products"} 1
# HELP rollcache_misses_total Get calls that moved the window, by kind
# TYPE rollcache_misses_total counter
rollcache_misses_total{cache="products",kind="far"} 1
rollcache_misses_total{cache="products",kind="near"} 2
rollcache_misses_total{cache="products",kind="shift"} 0
# HELP rollcache_pending_changes Changes waiting for Flush
# TYPE rollcache_pending_changes gauge
rollcache_pending_changes{cache="products"} 1
# HELP rollcache_window_rows Rows currently held in the window
# TYPE rollcache_window_rows gauge
rollcache_window_rows{cache="products"} 100
`

	err := testutil.CollectAndCompare(collector, strings.NewReader(want),
		"rollcache_fetches_total",
		"rollcache_hits_total",
		"rollcache_misses_total",
		"rollcache_pending_changes",
		"rollcache_window_rows",
	)
	require.NoError(t, err)
}

func Test_Collector_Registers_Without_Conflict_When_Caches_Share_Registry(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewPedanticRegistry()

	first := newCache(t, newTable(10), 5, 10)
	second := rollcache.NewSynced(newCache(t, newTable(10), 5, 10))

	require.NoError(t, reg.Register(rollcache.NewCollector("first", first)))
	require.NoError(t, reg.Register(rollcache.NewCollector("second", second)))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 9, "one family per metric")

	assert.Equal(t, 3, testutil.CollectAndCount(rollcache.NewCollector("third", first), "rollcache_misses_total"),
		"misses carry one series per kind")
}
