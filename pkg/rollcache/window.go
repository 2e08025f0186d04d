package rollcache

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// alignToPage snaps point outward to a page boundary measured from the first
// row of the source: down when point precedes the window, up to the last row of
// its page when it follows the window. The result is clamped into the source.
func (c *Cache[T]) alignToPage(point int) int {
	part := (point - c.outer.First) % c.pageSize

	switch {
	case point < c.window.First:
		point -= part
	case point > c.window.Last():
		point += c.pageSize - part - 1
	}

	return min(max(point, c.outer.First), c.outer.Last())
}

// move brings index into the window. The caller checked that index lies in
// the source and not in the window.
func (c *Cache[T]) move(ctx context.Context, index int) error {
	target := c.alignToPage(index)
	dist := c.window.DistanceTo(target)
	right := dist > 0

	if dist < 0 {
		dist = -dist
	}

	switch {
	case dist <= c.maxWindow:
		c.stats.NearMisses++
		c.log.Debug("near miss: extend window",
			zap.Int("index", index), zap.Int("target", target), zap.Int("dist", dist),
			zap.Stringer("window", c.window))

		err := c.extend(ctx, target, right)
		if err != nil {
			return err
		}

	case dist < 2*c.maxWindow:
		c.stats.Shifts++
		c.log.Debug("shift window",
			zap.Int("index", index), zap.Int("target", target), zap.Int("dist", dist),
			zap.Stringer("window", c.window))

		need := c.window.Complement(target)

		// Evict from the far edge before fetching so the window slides.
		err := c.evict(min(need.Length, c.window.Length), right)
		if err != nil {
			return err
		}

		// Nothing left to stay contiguous with: skip the rows the bound
		// below would drop right after fetching them.
		if c.window.IsEmpty() {
			if right {
				c.window.First = max(c.window.First, target-c.maxWindow+1)
			} else {
				c.window.First = min(c.window.First, target+c.maxWindow)
			}
		}

		err = c.extend(ctx, target, right)
		if err != nil {
			return err
		}

	default:
		c.stats.FarMisses++
		c.log.Debug("far miss: reload window",
			zap.Int("index", index), zap.Int("target", target), zap.Int("dist", dist),
			zap.Stringer("window", c.window))

		return c.reload(ctx, Range{First: index, Length: c.pageSize}.Clamp(c.outer))
	}

	// A window grown past MaxWindow gives up rows on the side away from target.
	if excess := c.window.Length - c.maxWindow; excess > 0 {
		return c.evict(excess, right)
	}

	return nil
}

// extend fetches the rows between the window and target and merges them on
// the side of target.
func (c *Cache[T]) extend(ctx context.Context, target int, right bool) error {
	need := c.window.Complement(target).Clamp(c.outer)
	if need.IsEmpty() {
		return nil
	}

	rows, err := c.fetch(ctx, need)
	if err != nil {
		return err
	}

	if right {
		c.rows = append(c.rows, rows...)
		c.window.Length += len(rows)

		return nil
	}

	// A short read starts at need.First and leaves a gap before the window.
	// The window cannot stay contiguous, so the fetched rows replace it.
	if len(rows) < need.Length {
		c.stats.RowsEvicted += uint64(len(c.rows))
		clear(c.rows)
		c.rows = rows
		c.window = Range{First: need.First, Length: len(rows)}

		return nil
	}

	merged := make([]T, 0, len(rows)+len(c.rows))
	merged = append(merged, rows...)
	merged = append(merged, c.rows...)

	c.rows = merged
	c.window.First -= len(rows)
	c.window.Length += len(rows)

	return nil
}

// reload replaces the whole window with the rows of r. On error the old
// window is kept.
func (c *Cache[T]) reload(ctx context.Context, r Range) error {
	rows, err := c.fetch(ctx, r)
	if err != nil {
		return err
	}

	c.stats.RowsEvicted += uint64(len(c.rows))
	c.rows = rows
	c.window = Range{First: r.First, Length: len(rows)}

	return nil
}

// fetch reads r from the source. Rows past r.Length break the source contract
// and are dropped.
func (c *Cache[T]) fetch(ctx context.Context, r Range) ([]T, error) {
	c.stats.Fetches++

	rows, err := c.src.Fetch(ctx, r)
	if err != nil {
		return nil, sourceErr("fetch "+r.String(), err)
	}

	c.stats.RowsFetched += uint64(len(rows))

	switch {
	case len(rows) > r.Length:
		c.log.Warn("source returned rows outside the requested range",
			zap.Stringer("range", r), zap.Int("returned", len(rows)))

		rows = rows[:r.Length]
	case len(rows) < r.Length:
		c.log.Debug("short read",
			zap.Stringer("range", r), zap.Int("returned", len(rows)))
	}

	return rows, nil
}

// evict drops n rows from the front (front == true) or the back of the window.
func (c *Cache[T]) evict(n int, front bool) error {
	if n <= 0 {
		return nil
	}

	if n >= len(c.rows) {
		// Whole window: keep the anchor on the side that stays.
		anchor := c.window.First
		if front {
			anchor = c.window.Last() + 1
		}

		c.stats.RowsEvicted += uint64(len(c.rows))
		clear(c.rows)
		c.rows = c.rows[:0]
		c.window = Range{First: anchor}

		return nil
	}

	if front {
		return c.purge(0, n-1)
	}

	return c.purge(len(c.rows)-n, len(c.rows)-1)
}

// purge removes window positions from..to (inclusive). The run must touch an
// edge of the window so the window stays contiguous.
func (c *Cache[T]) purge(from, to int) error {
	last := len(c.rows) - 1

	if from > to {
		return fmt.Errorf("purge %d..%d: from > to: %w", from, to, ErrPrecondition)
	}

	if from < 0 || to > last {
		return fmt.Errorf("purge %d..%d: outside window positions 0..%d: %w", from, to, last, ErrPrecondition)
	}

	if from != 0 && to != last {
		return fmt.Errorf("purge %d..%d: run does not touch a window edge: %w", from, to, ErrPrecondition)
	}

	n := to - from + 1

	if from == 0 {
		c.rows = append(c.rows[:0:0], c.rows[n:]...)
		c.window.First += n
	} else {
		clear(c.rows[from:])
		c.rows = c.rows[:from]
	}

	c.window.Length -= n
	c.stats.RowsEvicted += uint64(n)

	c.log.Debug("purged rows", zap.Int("from", from), zap.Int("to", to), zap.Stringer("window", c.window))

	return nil
}
