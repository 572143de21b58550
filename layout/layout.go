// Package layout implements the Layout type: an ordered schema of typed
// columns, precomputed row offsets, and the reference-counted structural
// lock that guards it against mutation while a Row/codec/Writer/Reader
// depends on it (spec.md §3.2, §5).
package layout

import (
	"strings"
	"sync/atomic"

	"github.com/bcsv-go/bcsv/errs"
	"github.com/bcsv-go/bcsv/format"
)

// column is one entry of a Layout: its name, type, and precomputed inline
// byte offset (meaningless for string columns, which are stored out of
// line in the owning Row).
type column struct {
	name   string
	typ    format.ColumnType
	offset int
}

// Layout is an ordered, named, typed column schema. The zero value is not
// usable; construct with New. A Layout may be shared by many Rows and
// referenced by at most the codecs/Readers/Writers that called Lock
// (spec.md §5) — mutation is rejected for as long as the lock's reference
// count is above zero.
//
// Layout is grounded on the teacher's section.NumericFlag / section.const
// packed-header style (validated setters over a small struct) generalized
// here to an ordered column slice with by-name and by-index lookup.
type Layout struct {
	columns []column
	stride  int // total inline row byte width (strings excluded)
	lock    int32
}

// New returns an empty, unlocked Layout.
func New() *Layout {
	return &Layout{}
}

// NewFromColumns builds a Layout from (name, type) pairs in order, exactly
// as if each had been added via AddColumn.
func NewFromColumns(names []string, types []format.ColumnType) (*Layout, error) {
	l := New()
	if err := l.SetColumns(names, types); err != nil {
		return nil, err
	}

	return l, nil
}

// Lock increments the structural-lock reference count. Any number of
// holders may Lock concurrently (spec.md §5); Unlock must be called
// exactly once per successful Lock.
func (l *Layout) Lock() {
	atomic.AddInt32(&l.lock, 1)
}

// Unlock decrements the structural-lock reference count.
func (l *Layout) Unlock() {
	atomic.AddInt32(&l.lock, -1)
}

// IsLocked reports whether at least one holder currently holds the lock.
func (l *Layout) IsLocked() bool {
	return atomic.LoadInt32(&l.lock) > 0
}

func (l *Layout) checkUnlocked() error {
	if l.IsLocked() {
		return errs.ErrStructuralLock
	}

	return nil
}

// ColumnCount returns the number of columns.
func (l *Layout) ColumnCount() int {
	return len(l.columns)
}

// ColumnName returns the name of column i.
func (l *Layout) ColumnName(i int) string {
	return l.columns[i].name
}

// ColumnType returns the type of column i.
func (l *Layout) ColumnType(i int) format.ColumnType {
	return l.columns[i].typ
}

// ColumnOffset returns the inline byte offset of column i within a row's
// fixed-width buffer. String columns have a meaningless offset here; Row
// stores their data out of line.
func (l *Layout) ColumnOffset(i int) int {
	return l.columns[i].offset
}

// Stride returns the total inline row byte width (sum of fixed-width
// column sizes; string columns do not contribute).
func (l *Layout) Stride() int {
	return l.stride
}

// HasColumn reports whether name matches any column.
func (l *Layout) HasColumn(name string) bool {
	_, ok := l.tryColumnIndex(name)

	return ok
}

// ColumnIndex returns the index of the first column named name, or -1.
// Names need not be unique; this resolves to the first match (spec.md
// §3.2).
func (l *Layout) ColumnIndex(name string) int {
	i, ok := l.tryColumnIndex(name)
	if !ok {
		return -1
	}

	return i
}

func (l *Layout) tryColumnIndex(name string) (int, bool) {
	for i, c := range l.columns {
		if c.name == name {
			return i, true
		}
	}

	return 0, false
}

// DuplicateNames returns the set of column names that occur more than
// once, for tools to warn on (spec.md §3.2).
func (l *Layout) DuplicateNames() []string {
	seen := make(map[string]int, len(l.columns))
	for _, c := range l.columns {
		seen[c.name]++
	}

	var dups []string
	for name, n := range seen {
		if n > 1 {
			dups = append(dups, name)
		}
	}

	return dups
}

func (l *Layout) recomputeOffsets() {
	offset := 0
	for i := range l.columns {
		l.columns[i].offset = offset
		offset += l.columns[i].typ.Size()
	}
	l.stride = offset
}

// AddColumn appends a new column. Forbidden while structurally locked.
func (l *Layout) AddColumn(name string, typ format.ColumnType) error {
	if err := l.checkUnlocked(); err != nil {
		return err
	}
	if !typ.IsValid() {
		return errs.ErrInvalidColumnType
	}
	if len(l.columns)+1 > 1<<16 {
		return errs.ErrTooManyColumns
	}

	l.columns = append(l.columns, column{name: name, typ: typ})
	l.recomputeOffsets()

	return nil
}

// RemoveColumn removes column i. Forbidden while structurally locked.
func (l *Layout) RemoveColumn(i int) error {
	if err := l.checkUnlocked(); err != nil {
		return err
	}
	if i < 0 || i >= len(l.columns) {
		return errs.ErrInvalidColumnIndex
	}

	l.columns = append(l.columns[:i], l.columns[i+1:]...)
	l.recomputeOffsets()

	return nil
}

// SetColumnType changes the type of column i in place. Forbidden while
// structurally locked.
func (l *Layout) SetColumnType(i int, typ format.ColumnType) error {
	if err := l.checkUnlocked(); err != nil {
		return err
	}
	if i < 0 || i >= len(l.columns) {
		return errs.ErrInvalidColumnIndex
	}
	if !typ.IsValid() {
		return errs.ErrInvalidColumnType
	}

	l.columns[i].typ = typ
	l.recomputeOffsets()

	return nil
}

// SetColumnName renames column i. Permitted even while the structural lock
// is held: renaming is benign to codecs and to the wire format, which
// encodes columns positionally (spec.md §3.2).
func (l *Layout) SetColumnName(i int, name string) error {
	if i < 0 || i >= len(l.columns) {
		return errs.ErrInvalidColumnIndex
	}

	l.columns[i].name = name

	return nil
}

// SetColumns replaces the entire column list atomically. Forbidden while
// structurally locked.
func (l *Layout) SetColumns(names []string, types []format.ColumnType) error {
	if err := l.checkUnlocked(); err != nil {
		return err
	}
	if len(names) != len(types) {
		return errs.ErrInvalidColumnIndex
	}
	if len(names) > 1<<16 {
		return errs.ErrTooManyColumns
	}
	for _, t := range types {
		if !t.IsValid() {
			return errs.ErrInvalidColumnType
		}
	}

	cols := make([]column, len(names))
	for i := range names {
		cols[i] = column{name: names[i], typ: types[i]}
	}
	l.columns = cols
	l.recomputeOffsets()

	return nil
}

// Clear removes every column. Forbidden while structurally locked.
func (l *Layout) Clear() error {
	if err := l.checkUnlocked(); err != nil {
		return err
	}

	l.columns = nil
	l.stride = 0

	return nil
}

// Clone returns an independent, unlocked copy of l.
func (l *Layout) Clone() *Layout {
	out := &Layout{
		columns: make([]column, len(l.columns)),
		stride:  l.stride,
	}
	copy(out.columns, l.columns)

	return out
}

// WireCompatible reports whether l and other have the same column count
// and the same types in the same order (spec.md §3.2). When strictNames is
// true, column names must also match in order (the Reader's strict path);
// when false, only counts and types are compared (the loose path).
func (l *Layout) WireCompatible(other *Layout, strictNames bool) error {
	if len(l.columns) != len(other.columns) {
		return errs.ErrLayoutColumnCount
	}
	for i := range l.columns {
		if l.columns[i].typ != other.columns[i].typ {
			return errs.ErrLayoutColumnType
		}
	}
	if strictNames {
		for i := range l.columns {
			if l.columns[i].name != other.columns[i].name {
				return errs.ErrLayoutColumnName
			}
		}
	}

	return nil
}

// String renders a human-readable summary, e.g. "id:i32, name:string".
func (l *Layout) String() string {
	var sb strings.Builder
	for i, c := range l.columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.name)
		sb.WriteByte(':')
		sb.WriteString(c.typ.String())
	}

	return sb.String()
}
