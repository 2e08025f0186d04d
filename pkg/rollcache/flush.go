package rollcache

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Add buffers a new row and returns the key of its pending insertion.
// The row becomes visible at the end of [Cache.All] and is written on Flush.
func (c *Cache[T]) Add(value T) Key {
	key := c.ledger.insert(value)

	c.log.Debug("ledger add", zap.Stringer("key", key))

	return key
}

// Set replaces the new value of a pending change.
func (c *Cache[T]) Set(key Key, value T) error {
	kind, ok := c.ledger.setNew(key, value)
	if !ok {
		return fmt.Errorf("set %s: %w", key, ErrUnknownKey)
	}

	c.log.Debug("ledger set", zap.Stringer("key", key), zap.Stringer("kind", kind))

	return nil
}

// Remove marks a pending change as removed. Removing a pending insertion
// cancels it.
func (c *Cache[T]) Remove(key Key) error {
	kind, ok := c.ledger.clearNew(key)
	if !ok {
		return fmt.Errorf("remove %s: %w", key, ErrUnknownKey)
	}

	c.log.Debug("ledger remove", zap.Stringer("key", key), zap.Stringer("kind", kind))

	return nil
}

// UpdateAt buffers a new value for the source row at index and returns the
// key of its pending change. Later edits of the same row reuse that key.
func (c *Cache[T]) UpdateAt(ctx context.Context, index int, value T) (Key, error) {
	key, err := c.trackRow(ctx, index)
	if err != nil {
		return Key{}, fmt.Errorf("update at: %w", err)
	}

	c.ledger.setNew(key, value)

	return key, nil
}

// DeleteAt buffers the removal of the source row at index and returns the key
// of its pending change.
func (c *Cache[T]) DeleteAt(ctx context.Context, index int) (Key, error) {
	key, err := c.trackRow(ctx, index)
	if err != nil {
		return Key{}, fmt.Errorf("delete at: %w", err)
	}

	c.ledger.clearNew(key)

	return key, nil
}

func (c *Cache[T]) trackRow(ctx context.Context, index int) (Key, error) {
	if key, ok := c.ledger.byRow[index]; ok {
		return key, nil
	}

	row, err := c.Get(ctx, index)
	if err != nil {
		return Key{}, err
	}

	return c.ledger.track(index, row), nil
}

// Pending returns the pending change for key.
func (c *Cache[T]) Pending(key Key) (Change[T], bool) {
	return c.ledger.get(key)
}

// Changes returns all pending changes in the order they were first made.
func (c *Cache[T]) Changes() []Change[T] {
	return c.ledger.list()
}

// PendingLen returns the number of pending changes.
func (c *Cache[T]) PendingLen() int {
	return c.ledger.len()
}

// Flush writes pending changes to the source one at a time, in the order they
// were first made: insertions with InsertRow, updates with UpdateRow, removals
// with DeleteRow on the old value. Each written change leaves the ledger.
//
// Flush stops at the first failing write and returns an error matching
// [ErrSourceIO]. That change and every later one stay pending, so Flush can be
// retried. Without a [Writer], Flush returns [ErrUnsupported] and changes
// nothing.
//
// Flush does not touch the window; call [Cache.Refresh] to see the written rows.
// Once an insertion or removal is written, pending changes no longer answer to
// their old row numbers: a later UpdateAt or DeleteAt tracks the row afresh.
func (c *Cache[T]) Flush(ctx context.Context) error {
	if c.writer == nil {
		return fmt.Errorf("flush: source is read-only: %w", ErrUnsupported)
	}

	written := 0
	renumbered := false

	defer func() {
		c.stats.Flushed += uint64(written)
		c.ledger.compact()

		// Inserts and deletes shift the row numbers of tracked entries.
		if renumbered {
			c.ledger.forgetRows()
		}
	}()

	for _, change := range c.ledger.list() {
		var err error

		switch change.Kind {
		case ChangeInsert:
			err = c.writer.InsertRow(ctx, change.New)
		case ChangeUpdate:
			err = c.writer.UpdateRow(ctx, change.New)
		case ChangeDelete:
			err = c.writer.DeleteRow(ctx, change.Old)
		case ChangeNone:
			c.ledger.forget(change.Key)

			continue
		}

		if err != nil {
			c.stats.FlushErrors++
			c.log.Warn("flush stopped",
				zap.Stringer("key", change.Key),
				zap.Stringer("kind", change.Kind),
				zap.Int("written", written),
				zap.Int("pending", len(c.ledger.entries)),
				zap.Error(err))

			return sourceErr(fmt.Sprintf("flush %s %s", change.Kind, change.Key), err)
		}

		c.ledger.forget(change.Key)
		written++

		if change.Kind != ChangeUpdate {
			renumbered = true
		}
	}

	c.log.Debug("flushed", zap.Int("written", written))

	return nil
}
