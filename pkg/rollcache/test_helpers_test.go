package rollcache_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/rollcache/pkg/rollcache"
	"github.com/calvinalkan/rollcache/pkg/rollcache/model"
)

type item struct {
	ID   int64
	Name string
}

func itemID(it item) int64 { return it.ID }

// newTable returns a table of n items numbered from 0, with IDs from 1.
func newTable(n int) *model.Table[item] {
	rows := make([]item, n)
	for i := range rows {
		rows[i] = item{ID: int64(i + 1), Name: fmt.Sprintf("row-%d", i)}
	}

	return model.NewTable(rows, itemID)
}

func newCache(t *testing.T, src rollcache.Source[item], pageSize, maxWindow int) *rollcache.Cache[item] {
	t.Helper()

	c, err := rollcache.New(t.Context(), src, rollcache.Options[item]{PageSize: pageSize, MaxWindow: maxWindow})
	require.NoError(t, err, "New should succeed")

	return c
}

// requireInvariants checks the window invariants that must hold after every operation.
func requireInvariants(t *testing.T, c *rollcache.Cache[item]) {
	t.Helper()

	window := c.Window()

	require.True(t, c.OuterLimits().ContainsRange(window), "window %v must lie inside %v", window, c.OuterLimits())
	require.Len(t, c.RowsForTesting(), window.Length, "window length must equal materialized rows")
	require.LessOrEqual(t, window.Length, c.MaxWindow(), "window must not exceed MaxWindow")
}
