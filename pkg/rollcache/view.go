package rollcache

import "iter"

// Origin tells where a visible row comes from.
type Origin int

// Origins of visible rows.
const (
	FromWindow Origin = iota // FromWindow rows are materialized source rows.
	FromLedger               // FromLedger rows are pending insertions.
)

func (o Origin) String() string {
	if o == FromLedger {
		return "ledger"
	}

	return "window"
}

// Position identifies a visible row. Index is the source row number for
// FromWindow rows; Key is the ledger key for FromLedger rows.
type Position struct {
	From  Origin
	Index int
	Key   Key
}

// Size returns the number of visible rows: the materialized window followed by
// pending insertions.
func (c *Cache[T]) Size() int {
	return len(c.rows) + c.ledger.insertions()
}

// IsEmpty reports whether no row is visible.
func (c *Cache[T]) IsEmpty() bool {
	return c.Size() == 0
}

// PositionAt maps view position i (0 <= i < Size) to where its row lives.
func (c *Cache[T]) PositionAt(i int) (Position, bool) {
	if i < 0 {
		return Position{}, false
	}

	if i < len(c.rows) {
		return Position{From: FromWindow, Index: c.window.First + i}, true
	}

	i -= len(c.rows)

	for _, key := range c.ledger.order {
		if c.ledger.entries[key].Kind != ChangeInsert {
			continue
		}

		if i == 0 {
			return Position{From: FromLedger, Index: noRow, Key: key}, true
		}

		i--
	}

	return Position{}, false
}

// All iterates the visible rows: the window in row order, then pending
// insertions in ledger order. It does not fetch.
//
// The cache must not be modified during iteration.
func (c *Cache[T]) All() iter.Seq2[Position, T] {
	return func(yield func(Position, T) bool) {
		for i, row := range c.rows {
			if !yield(Position{From: FromWindow, Index: c.window.First + i}, row) {
				return
			}
		}

		for _, key := range c.ledger.order {
			change := c.ledger.entries[key]
			if change.Kind != ChangeInsert {
				continue
			}

			if !yield(Position{From: FromLedger, Index: noRow, Key: key}, change.New) {
				return
			}
		}
	}
}

// Snapshot returns a copy of the visible rows in [Cache.All] order.
func (c *Cache[T]) Snapshot() []T {
	out := make([]T, 0, c.Size())
	for _, row := range c.All() {
		out = append(out, row)
	}

	return out
}
