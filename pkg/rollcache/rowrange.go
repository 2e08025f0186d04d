package rollcache

import "fmt"

// Range is a contiguous run of row numbers starting at First.
//
// Range is a value type: the mutators return a new Range and never modify the
// receiver. A zero Length is valid and describes an empty run anchored at First;
// its Last is First-1.
type Range struct {
	First  int
	Length int
}

// NewRange returns the range [first, first+length-1].
// A negative length returns [ErrInvalidArgument].
func NewRange(first, length int) (Range, error) {
	if length < 0 {
		return Range{}, fmt.Errorf("new range: length %d: %w", length, ErrInvalidArgument)
	}

	return Range{First: first, Length: length}, nil
}

// Last returns the last row number in the range.
func (r Range) Last() int {
	return r.First + r.Length - 1
}

// IsEmpty reports whether the range holds no rows.
func (r Range) IsEmpty() bool {
	return r.Length <= 0
}

// Contains reports whether point lies inside the range.
func (r Range) Contains(point int) bool {
	return r.Length > 0 && point >= r.First && point <= r.Last()
}

// ContainsRange reports whether every row of other lies inside r.
// An empty other is contained when its anchor lies within [First, Last+1].
func (r Range) ContainsRange(other Range) bool {
	if other.IsEmpty() {
		return other.First >= r.First && other.First <= r.Last()+1
	}

	return other.First >= r.First && other.Last() <= r.Last()
}

// DistanceTo returns the signed number of rows outside r that separate it from
// point: 0 when point is inside, negative when point precedes First, positive
// when it follows Last.
func (r Range) DistanceTo(point int) int {
	switch {
	case point < r.First:
		return point - r.First
	case point > r.Last():
		return point - r.Last()
	default:
		return 0
	}
}

// Complement returns the rows between r and point that r does not cover:
// [Last+1, point] when point follows r, [point, First-1] when it precedes it.
// The result never overlaps r. When point is inside r the result is empty.
func (r Range) Complement(point int) Range {
	switch {
	case point > r.Last():
		return Range{First: r.Last() + 1, Length: point - r.Last()}
	case point < r.First:
		return Range{First: point, Length: r.First - point}
	default:
		return Range{First: r.Last() + 1}
	}
}

// Clamp returns the part of r that lies inside outer. When they do not
// overlap, the result is empty and anchored at the nearest edge of outer.
func (r Range) Clamp(outer Range) Range {
	first := max(r.First, outer.First)
	last := min(r.Last(), outer.Last())

	if first > outer.Last()+1 {
		first = outer.Last() + 1
	}

	if last < first {
		return Range{First: first}
	}

	return Range{First: first, Length: last - first + 1}
}

// Grow returns r with delta rows added to (or, when negative, removed from)
// its end, clamped into outer. The length never drops below zero.
func (r Range) Grow(delta int, outer Range) Range {
	n := max(r.Length+delta, 0)

	return Range{First: r.First, Length: n}.Clamp(outer)
}

// WithFirst returns r moved to start at first, keeping its length where outer
// allows it.
func (r Range) WithFirst(first int, outer Range) Range {
	return Range{First: first, Length: r.Length}.Clamp(outer)
}

// String renders the range as [first,last].
func (r Range) String() string {
	if r.IsEmpty() {
		return fmt.Sprintf("[%d,)", r.First)
	}

	return fmt.Sprintf("[%d,%d]", r.First, r.Last())
}
