package rollcache

// Export internal functions for testing.
// This file is only compiled during tests.

// PurgeForTesting calls purge with window positions from..to.
func (c *Cache[T]) PurgeForTesting(from, to int) error {
	return c.purge(from, to)
}

// AlignForTesting calls alignToPage.
func (c *Cache[T]) AlignForTesting(point int) int {
	return c.alignToPage(point)
}

// RowsForTesting returns the materialized rows.
func (c *Cache[T]) RowsForTesting() []T {
	return c.rows
}
