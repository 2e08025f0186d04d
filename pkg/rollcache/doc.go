// Package rollcache provides a rolling (sliding-window) cache over a
// row-numbered data source.
//
// A [Cache] keeps one bounded, contiguous window of rows in memory. When a
// caller asks for a row outside the window, the cache aligns the request to a
// page boundary, measures how far away it is, and then either extends the
// window, slides it, or replaces it entirely. Only rows it does not already
// hold are fetched from the [Source].
//
// Rows added, edited, or removed through the cache are buffered in a ledger of
// pending changes and written to the source only on [Cache.Flush], and only
// when the source also implements [Writer].
//
// # Basic Usage
//
//	cache, err := rollcache.New(ctx, src, rollcache.Options[Product]{
//	    PageSize:  100,
//	    MaxWindow: 300,
//	})
//	if err != nil {
//	    // handle error
//	}
//
//	// Read
//	row, err := cache.Get(ctx, 4711)
//
//	// Write
//	key := cache.Add(Product{Name: "new"})
//	_ = cache.Set(key, Product{Name: "renamed"})
//	err = cache.Flush(ctx)
//
// # Concurrency
//
// A [Cache] has a single owner and performs no locking. Wrap it with
// [NewSynced] when several goroutines need access.
//
// # Error Handling
//
// Errors wrap one of the package sentinels and are matched with [errors.Is]:
//
// Caller errors ([ErrInvalidArgument], [ErrIndexOutOfRange], [ErrPrecondition],
// [ErrUnsupported]): fix the call.
//
// Source errors ([ErrSourceIO]): the source failed; the underlying error is
// wrapped as well. Flush can be retried, the ledger keeps what was not written.
//
// [ErrInconsistent] reports a broken internal invariant and is a bug.
package rollcache
