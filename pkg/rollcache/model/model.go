// Package model provides a deliberately simple in-memory row source for
// rollcache.
//
// Table is the reference against which the cache is tested: it holds every
// row, counts what was asked of it, and can be told to return short reads or
// fail. It favors clarity over performance.
package model

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/calvinalkan/rollcache/pkg/rollcache"
)

// ErrInjected is returned by operations set up to fail with [Table.FailAfter].
var ErrInjected = errors.New("model: injected failure")

// ErrNoSuchRow is returned by UpdateRow and DeleteRow for unknown row IDs.
var ErrNoSuchRow = errors.New("model: no such row")

// Write is one recorded write call.
type Write[T any] struct {
	Op  string // Op is "insert", "update" or "delete".
	Row T
}

// Table is an in-memory row source with write support.
// Rows are numbered from First in slice order.
type Table[T any] struct {
	First int
	Rows  []T

	// ID identifies a row for UpdateRow and DeleteRow.
	ID func(T) int64

	Fetches []rollcache.Range // Fetches records every requested range.
	Writes  []Write[T]        // Writes records every successful write.

	// ShortBy trims this many rows off every fetch result.
	ShortBy int

	failAfter int // remaining successful calls before failing, -1 = never
}

// NewTable returns a table holding rows, numbered from 0.
func NewTable[T any](rows []T, id func(T) int64) *Table[T] {
	return &Table[T]{Rows: slices.Clone(rows), ID: id, failAfter: -1}
}

// FailAfter makes the table fail every Fetch and write call after n more
// successful ones. A negative n disables failures.
func (t *Table[T]) FailAfter(n int) {
	t.failAfter = n
}

func (t *Table[T]) fail() bool {
	if t.failAfter < 0 {
		return false
	}

	if t.failAfter == 0 {
		return true
	}

	t.failAfter--

	return false
}

// Total returns the addressable range without recording anything.
func (t *Table[T]) Total() rollcache.Range {
	return rollcache.Range{First: t.First, Length: len(t.Rows)}
}

// Row returns the row numbered n.
func (t *Table[T]) Row(n int) T {
	return t.Rows[n-t.First]
}

// TotalRange implements rollcache.Source.
func (t *Table[T]) TotalRange(context.Context) (rollcache.Range, error) {
	return t.Total(), nil
}

// Fetch implements rollcache.Source.
func (t *Table[T]) Fetch(_ context.Context, r rollcache.Range) ([]T, error) {
	t.Fetches = append(t.Fetches, r)

	if t.fail() {
		return nil, fmt.Errorf("fetch %v: %w", r, ErrInjected)
	}

	got := r.Clamp(t.Total())
	if got.IsEmpty() {
		return nil, nil
	}

	from := got.First - t.First
	to := from + got.Length - t.ShortBy

	if to < from {
		to = from
	}

	return slices.Clone(t.Rows[from:to]), nil
}

// InsertRow implements rollcache.Writer. Rows are appended.
func (t *Table[T]) InsertRow(_ context.Context, row T) error {
	if t.fail() {
		return fmt.Errorf("insert: %w", ErrInjected)
	}

	t.Rows = append(t.Rows, row)
	t.Writes = append(t.Writes, Write[T]{Op: "insert", Row: row})

	return nil
}

// UpdateRow implements rollcache.Writer.
func (t *Table[T]) UpdateRow(_ context.Context, row T) error {
	if t.fail() {
		return fmt.Errorf("update: %w", ErrInjected)
	}

	i := t.indexOf(row)
	if i < 0 {
		return fmt.Errorf("update %d: %w", t.ID(row), ErrNoSuchRow)
	}

	t.Rows[i] = row
	t.Writes = append(t.Writes, Write[T]{Op: "update", Row: row})

	return nil
}

// DeleteRow implements rollcache.Writer.
func (t *Table[T]) DeleteRow(_ context.Context, row T) error {
	if t.fail() {
		return fmt.Errorf("delete: %w", ErrInjected)
	}

	i := t.indexOf(row)
	if i < 0 {
		return fmt.Errorf("delete %d: %w", t.ID(row), ErrNoSuchRow)
	}

	t.Rows = slices.Delete(t.Rows, i, i+1)
	t.Writes = append(t.Writes, Write[T]{Op: "delete", Row: row})

	return nil
}

func (t *Table[T]) indexOf(row T) int {
	id := t.ID(row)

	return slices.IndexFunc(t.Rows, func(r T) bool { return t.ID(r) == id })
}

// ReadOnly hides the write methods of a table.
type ReadOnly[T any] struct {
	Table *Table[T]
}

// TotalRange implements rollcache.Source.
func (r ReadOnly[T]) TotalRange(ctx context.Context) (rollcache.Range, error) {
	return r.Table.TotalRange(ctx)
}

// Fetch implements rollcache.Source.
func (r ReadOnly[T]) Fetch(ctx context.Context, rng rollcache.Range) ([]T, error) {
	return r.Table.Fetch(ctx, rng)
}
