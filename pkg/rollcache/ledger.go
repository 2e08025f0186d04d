package rollcache

import (
	"slices"

	"github.com/google/uuid"
)

// Key identifies a pending change in the ledger.
// Keys are UUIDv7, so they sort in creation order.
type Key = uuid.UUID

// ChangeKind classifies a pending change by its old and new values.
type ChangeKind int

// Change kinds.
const (
	ChangeNone ChangeKind = iota
	ChangeInsert
	ChangeUpdate
	ChangeDelete
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeInsert:
		return "insert"
	case ChangeUpdate:
		return "update"
	case ChangeDelete:
		return "delete"
	default:
		return "none"
	}
}

// noRow marks a change that did not originate from a source row.
const noRow = -1

// Change is a pending edit awaiting [Cache.Flush].
//
// HasOld is false for rows that did not exist in the source before the edit;
// HasNew is false for rows that are being removed. Kind is derived from both.
type Change[T any] struct {
	Key    Key
	Row    int // Row is the source row number the change was made on, -1 for additions.
	Old    T
	HasOld bool
	New    T
	HasNew bool
	Kind   ChangeKind
}

// ledger buffers pending changes in insertion order.
type ledger[T any] struct {
	entries map[Key]*Change[T]
	order   []Key
	byRow   map[int]Key
	equal   func(a, b T) bool
}

func newLedger[T any](equal func(a, b T) bool) *ledger[T] {
	return &ledger[T]{
		entries: make(map[Key]*Change[T]),
		byRow:   make(map[int]Key),
		equal:   equal,
	}
}

func newKey() Key {
	// crypto/rand does not fail on supported platforms.
	return uuid.Must(uuid.NewV7())
}

// derive recomputes the kind of c from its old and new values.
func (l *ledger[T]) derive(c *Change[T]) {
	switch {
	case !c.HasOld && c.HasNew:
		c.Kind = ChangeInsert
	case c.HasOld && !c.HasNew:
		c.Kind = ChangeDelete
	case c.HasOld && c.HasNew && !l.equal(c.Old, c.New):
		c.Kind = ChangeUpdate
	default:
		c.Kind = ChangeNone
	}
}

// insert records a new row that the source does not know about yet.
func (l *ledger[T]) insert(value T) Key {
	c := &Change[T]{Key: newKey(), Row: noRow, New: value, HasNew: true}
	l.derive(c)
	l.put(c)

	return c.Key
}

// track returns the key of the pending change for a source row, creating an
// unchanged entry holding old when the row has none yet.
func (l *ledger[T]) track(row int, old T) Key {
	if key, ok := l.byRow[row]; ok {
		return key
	}

	c := &Change[T]{Key: newKey(), Row: row, Old: old, HasOld: true, New: old, HasNew: true}
	l.derive(c)
	l.put(c)
	l.byRow[row] = c.Key

	return c.Key
}

func (l *ledger[T]) put(c *Change[T]) {
	l.entries[c.Key] = c
	l.order = append(l.order, c.Key)
}

// setNew replaces the new value of key. Entries that end up unchanged are pruned.
func (l *ledger[T]) setNew(key Key, value T) (ChangeKind, bool) {
	c, ok := l.entries[key]
	if !ok {
		return ChangeNone, false
	}

	c.New = value
	c.HasNew = true
	l.derive(c)
	l.pruneIfNone(c)

	return c.Kind, true
}

// clearNew marks key as removed. Entries that end up unchanged are pruned.
func (l *ledger[T]) clearNew(key Key) (ChangeKind, bool) {
	c, ok := l.entries[key]
	if !ok {
		return ChangeNone, false
	}

	var zero T

	c.New = zero
	c.HasNew = false
	l.derive(c)
	l.pruneIfNone(c)

	return c.Kind, true
}

func (l *ledger[T]) pruneIfNone(c *Change[T]) {
	if c.Kind == ChangeNone {
		l.remove(c.Key)
	}
}

func (l *ledger[T]) get(key Key) (Change[T], bool) {
	c, ok := l.entries[key]
	if !ok {
		return Change[T]{}, false
	}

	return *c, true
}

func (l *ledger[T]) remove(key Key) {
	if l.forget(key) {
		l.order = slices.DeleteFunc(l.order, func(k Key) bool { return k == key })
	}
}

// forget drops key from the entries but leaves its slot in order until the
// next compact. It reports whether key was pending.
func (l *ledger[T]) forget(key Key) bool {
	c, ok := l.entries[key]
	if !ok {
		return false
	}

	delete(l.entries, key)

	if c.Row != noRow && l.byRow[c.Row] == key {
		delete(l.byRow, c.Row)
	}

	return true
}

// compact drops the slots of forgotten keys from order in one pass.
func (l *ledger[T]) compact() {
	if len(l.order) == len(l.entries) {
		return
	}

	l.order = slices.DeleteFunc(l.order, func(k Key) bool {
		_, ok := l.entries[k]

		return !ok
	})
}

// list returns copies of all pending changes in insertion order.
func (l *ledger[T]) list() []Change[T] {
	out := make([]Change[T], 0, len(l.order))
	for _, key := range l.order {
		out = append(out, *l.entries[key])
	}

	return out
}

func (l *ledger[T]) len() int {
	return len(l.order)
}

// insertions counts pending rows that are new to the source.
func (l *ledger[T]) insertions() int {
	n := 0

	for _, key := range l.order {
		if l.entries[key].Kind == ChangeInsert {
			n++
		}
	}

	return n
}

// forgetRows drops the row-number index. Row numbers of tracked entries go
// stale whenever the source is rewritten.
func (l *ledger[T]) forgetRows() {
	clear(l.byRow)
}
