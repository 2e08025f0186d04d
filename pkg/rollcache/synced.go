package rollcache

import (
	"context"
	"sync"
)

// Synced serializes access to a [Cache] with a single mutex.
//
// Every call, including the whole window transition inside Get, runs under
// the lock, so callers on different goroutines see one operation at a time.
// Get and Flush hold the lock while the source works.
type Synced[T any] struct {
	mu    sync.Mutex
	cache *Cache[T]
}

// NewSynced wraps c. The caller must not use c directly afterwards.
func NewSynced[T any](c *Cache[T]) *Synced[T] {
	return &Synced[T]{cache: c}
}

// Get calls [Cache.Get] under the lock, including any fetch it triggers.
func (s *Synced[T]) Get(ctx context.Context, index int) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cache.Get(ctx, index)
}

// Refresh calls [Cache.Refresh] under the lock.
func (s *Synced[T]) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cache.Refresh(ctx)
}

// Flush calls [Cache.Flush] under the lock, holding it for every write.
func (s *Synced[T]) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cache.Flush(ctx)
}

// Add calls [Cache.Add] under the lock.
func (s *Synced[T]) Add(value T) Key {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cache.Add(value)
}

// Set calls [Cache.Set] under the lock.
func (s *Synced[T]) Set(key Key, value T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cache.Set(key, value)
}

// Remove calls [Cache.Remove] under the lock.
func (s *Synced[T]) Remove(key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cache.Remove(key)
}

// UpdateAt calls [Cache.UpdateAt] under the lock.
func (s *Synced[T]) UpdateAt(ctx context.Context, index int, value T) (Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cache.UpdateAt(ctx, index, value)
}

// DeleteAt calls [Cache.DeleteAt] under the lock.
func (s *Synced[T]) DeleteAt(ctx context.Context, index int) (Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cache.DeleteAt(ctx, index)
}

// Size returns the number of visible rows.
func (s *Synced[T]) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cache.Size()
}

// ContainsIndex reports whether the row at index is held in memory.
func (s *Synced[T]) ContainsIndex(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cache.ContainsIndex(index)
}

// Window returns the rows currently held in memory.
func (s *Synced[T]) Window() Range {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cache.Window()
}

// PendingLen returns the number of pending changes.
func (s *Synced[T]) PendingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cache.PendingLen()
}

// Snapshot copies the visible rows under the lock.
func (s *Synced[T]) Snapshot() []T {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cache.Snapshot()
}

// Stats returns the counters of the wrapped cache.
func (s *Synced[T]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cache.Stats()
}
