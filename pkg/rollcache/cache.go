package rollcache

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// Default tunables used when Options leaves them zero.
const (
	DefaultPageSize  = 100
	DefaultMaxWindow = 300
)

// Options configure a [Cache].
type Options[T any] struct {
	// PageSize is the alignment and fetch granularity. Every miss pulls at
	// least one page. Zero means DefaultPageSize.
	PageSize int

	// MaxWindow is the eviction threshold in rows. It also drives the miss
	// classification: a miss within MaxWindow rows extends the window, one
	// within 2*MaxWindow slides it, anything farther replaces it.
	// Zero means DefaultMaxWindow. Must be >= PageSize.
	MaxWindow int

	// Logger receives window transitions at debug level and source contract
	// violations at warn level. Nil disables logging.
	Logger *zap.Logger

	// Equal decides whether an edit changed a row. Nil means reflect.DeepEqual.
	Equal func(a, b T) bool
}

// Cache is a rolling window over a [Source] plus a ledger of pending edits.
//
// Row numbers passed to and returned from Cache are source row numbers, not
// positions inside the window.
//
// The zero value is not usable; call [New]. A Cache is not safe for concurrent
// use, see [Synced].
type Cache[T any] struct {
	src    Source[T]
	writer Writer[T] // nil when src is read-only

	outer  Range
	window Range
	rows   []T

	pageSize  int
	maxWindow int

	ledger *ledger[T]
	log    *zap.Logger
	stats  Stats
}

// New creates a cache over src. It reads the source's total range once; the
// window starts empty at the first row.
//
// If src also implements [Writer], the cache can flush edits back to it.
func New[T any](ctx context.Context, src Source[T], opts Options[T]) (*Cache[T], error) {
	if ctx == nil {
		return nil, fmt.Errorf("new: context is nil: %w", ErrInvalidArgument)
	}

	if src == nil {
		return nil, fmt.Errorf("new: source is nil: %w", ErrInvalidArgument)
	}

	pageSize, maxWindow, err := validateSizes(opts.PageSize, opts.MaxWindow)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	outer, err := src.TotalRange(ctx)
	if err != nil {
		return nil, sourceErr("new: total range", err)
	}

	if outer.Length < 0 {
		return nil, fmt.Errorf("new: source total range has length %d: %w", outer.Length, ErrInvalidArgument)
	}

	equal := opts.Equal
	if equal == nil {
		equal = func(a, b T) bool { return reflect.DeepEqual(a, b) }
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	writer, _ := src.(Writer[T])

	c := &Cache[T]{
		src:       src,
		writer:    writer,
		outer:     outer,
		window:    Range{First: outer.First},
		pageSize:  pageSize,
		maxWindow: maxWindow,
		ledger:    newLedger(equal),
		log:       log,
	}

	log.Debug("cache created",
		zap.Stringer("outer", outer),
		zap.Int("page_size", pageSize),
		zap.Int("max_window", maxWindow),
		zap.Bool("writable", writer != nil))

	return c, nil
}

func validateSizes(pageSize, maxWindow int) (int, int, error) {
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}

	if maxWindow == 0 {
		maxWindow = max(DefaultMaxWindow, pageSize)
	}

	if pageSize < 1 {
		return 0, 0, fmt.Errorf("page size must be >= 1, got %d: %w", pageSize, ErrInvalidArgument)
	}

	if maxWindow < pageSize {
		return 0, 0, fmt.Errorf("max window %d is smaller than page size %d: %w", maxWindow, pageSize, ErrInvalidArgument)
	}

	return pageSize, maxWindow, nil
}

// Get returns the row at index, moving the window first when index is not
// held. Afterwards the window contains index.
//
// Get returns [ErrIndexOutOfRange] for rows outside [Cache.OuterLimits] and
// [ErrSourceIO] when the source fails; in that case the window stays valid.
func (c *Cache[T]) Get(ctx context.Context, index int) (T, error) {
	var zero T

	if !c.outer.Contains(index) {
		return zero, fmt.Errorf("get %d: outside %v: %w", index, c.outer, ErrIndexOutOfRange)
	}

	if c.window.Contains(index) {
		c.stats.Hits++

		return c.rows[index-c.window.First], nil
	}

	c.stats.Misses++

	err := c.move(ctx, index)
	if err != nil {
		return zero, fmt.Errorf("get %d: %w", index, err)
	}

	if !c.window.Contains(index) || c.window.Length != len(c.rows) {
		return zero, fmt.Errorf("get %d: window %v holds %d rows after load: %w",
			index, c.window, len(c.rows), ErrInconsistent)
	}

	return c.rows[index-c.window.First], nil
}

// Refresh drops the materialized rows, re-reads the source's total range and
// fetches the same span again. Pending edits are kept.
func (c *Cache[T]) Refresh(ctx context.Context) error {
	outer, err := c.src.TotalRange(ctx)
	if err != nil {
		return sourceErr("refresh: total range", err)
	}

	want := c.window.Clamp(outer)
	if want.IsEmpty() {
		// Keep the anchor on a source row rather than past the end.
		want.First = max(outer.First, min(want.First, outer.Last()))
	}

	var rows []T

	if !want.IsEmpty() {
		rows, err = c.fetch(ctx, want)
		if err != nil {
			return fmt.Errorf("refresh: %w", err)
		}
	}

	c.log.Debug("refresh",
		zap.Stringer("outer", outer),
		zap.Stringer("window", c.window),
		zap.Int("fetched", len(rows)))

	c.outer = outer
	c.rows = rows
	c.window = Range{First: want.First, Length: len(rows)}
	c.ledger.forgetRows()

	return nil
}

// ContainsIndex reports whether the row at index is held in memory.
func (c *Cache[T]) ContainsIndex(index int) bool {
	return c.window.Contains(index)
}

// Window returns the span of rows held in memory.
func (c *Cache[T]) Window() Range {
	return c.window
}

// OuterLimits returns the source's total range as last read.
func (c *Cache[T]) OuterLimits() Range {
	return c.outer
}

// PageSize returns the fetch granularity.
func (c *Cache[T]) PageSize() int {
	return c.pageSize
}

// MaxWindow returns the eviction threshold.
func (c *Cache[T]) MaxWindow() int {
	return c.maxWindow
}

// SetPageSize changes the fetch granularity. It must stay <= MaxWindow.
// The current window is kept as is.
func (c *Cache[T]) SetPageSize(n int) error {
	if n == 0 {
		return fmt.Errorf("set page size: got 0: %w", ErrInvalidArgument)
	}

	_, _, err := validateSizes(n, c.maxWindow)
	if err != nil {
		return fmt.Errorf("set page size: %w", err)
	}

	c.pageSize = n

	return nil
}

// SetMaxWindow changes the eviction threshold. It must stay >= PageSize.
// A window larger than n shrinks on the next miss.
func (c *Cache[T]) SetMaxWindow(n int) error {
	if n == 0 {
		return fmt.Errorf("set max window: got 0: %w", ErrInvalidArgument)
	}

	_, _, err := validateSizes(c.pageSize, n)
	if err != nil {
		return fmt.Errorf("set max window: %w", err)
	}

	c.maxWindow = n

	return nil
}

// Writable reports whether the source accepts writes, that is whether
// [Cache.Flush] can succeed.
func (c *Cache[T]) Writable() bool {
	return c.writer != nil
}
