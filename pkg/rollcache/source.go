package rollcache

import "context"

// Source supplies rows by row number.
//
// Implementations decide how row numbers map onto their storage. The cache
// never asks for rows outside the range returned by TotalRange.
type Source[T any] interface {
	// TotalRange returns the full addressable span of rows.
	TotalRange(ctx context.Context) (Range, error)

	// Fetch returns the rows of r in order, starting at r.First.
	//
	// Fetch may return fewer rows than r.Length (rows were removed at the
	// source meanwhile) and the cache adjusts its window to what was returned.
	// It must not return rows outside r.
	Fetch(ctx context.Context, r Range) ([]T, error)
}

// Writer is the optional write capability of a [Source].
//
// A cache whose source does not implement Writer is read-only: edits are still
// buffered, but [Cache.Flush] returns [ErrUnsupported].
type Writer[T any] interface {
	InsertRow(ctx context.Context, row T) error
	UpdateRow(ctx context.Context, row T) error
	DeleteRow(ctx context.Context, row T) error
}
