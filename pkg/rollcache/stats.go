package rollcache

// Stats counts what the cache did since it was created or last reset.
type Stats struct {
	Hits        uint64 // Hits counts Get calls served from the window.
	Misses      uint64 // Misses counts Get calls that had to move the window.
	NearMisses  uint64 // NearMisses counts misses that extended the window.
	Shifts      uint64 // Shifts counts misses that slid the window.
	FarMisses   uint64 // FarMisses counts misses that replaced the window.
	Fetches     uint64 // Fetches counts calls to Source.Fetch.
	RowsFetched uint64 // RowsFetched counts rows returned by Source.Fetch.
	RowsEvicted uint64 // RowsEvicted counts rows dropped from the window edges.
	Flushed     uint64 // Flushed counts changes written by Flush.
	FlushErrors uint64 // FlushErrors counts Flush calls that stopped on a write failure.
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[T]) Stats() Stats {
	return c.stats
}

// ResetStats zeroes the cache counters.
func (c *Cache[T]) ResetStats() {
	c.stats = Stats{}
}
