package layout_test

import (
	"testing"

	"github.com/bcsv-go/bcsv/errs"
	"github.com/bcsv-go/bcsv/format"
	"github.com/bcsv-go/bcsv/layout"
	"github.com/stretchr/testify/require"
)

func newS1Layout(t *testing.T) *layout.Layout {
	t.Helper()
	l := layout.New()
	require.NoError(t, l.AddColumn("id", format.ColumnTypeI32))
	require.NoError(t, l.AddColumn("name", format.ColumnTypeString))
	require.NoError(t, l.AddColumn("score", format.ColumnTypeF32))
	require.NoError(t, l.AddColumn("active", format.ColumnTypeBool))

	return l
}

func TestColumnIndexFirstMatch(t *testing.T) {
	l := layout.New()
	require.NoError(t, l.AddColumn("x", format.ColumnTypeI32))
	require.NoError(t, l.AddColumn("x", format.ColumnTypeF64))
	require.Equal(t, 0, l.ColumnIndex("x"))
	require.Len(t, l.DuplicateNames(), 1)
}

func TestOffsetsAndStride(t *testing.T) {
	l := newS1Layout(t)
	require.Equal(t, 0, l.ColumnOffset(0))  // id: i32
	require.Equal(t, 4, l.ColumnOffset(1))  // name: string, 0-width inline
	require.Equal(t, 4, l.ColumnOffset(2))  // score: f32
	require.Equal(t, 8, l.ColumnOffset(3))  // active: bool
	require.Equal(t, 9, l.Stride())
}

// TestStructuralLock is scenario S4 from spec.md §8.
func TestStructuralLock(t *testing.T) {
	l := newS1Layout(t)

	l.Lock() // simulates a Writer opening on this layout

	err := l.AddColumn("extra", format.ColumnTypeU8)
	require.ErrorIs(t, err, errs.ErrStructuralLock)

	err = l.RemoveColumn(0)
	require.ErrorIs(t, err, errs.ErrStructuralLock)

	err = l.SetColumnType(0, format.ColumnTypeI64)
	require.ErrorIs(t, err, errs.ErrStructuralLock)

	err = l.Clear()
	require.ErrorIs(t, err, errs.ErrStructuralLock)

	// SetColumnName is permitted while locked.
	require.NoError(t, l.SetColumnName(0, "renamed"))
	require.Equal(t, "renamed", l.ColumnName(0))

	l.Unlock()

	require.NoError(t, l.AddColumn("extra", format.ColumnTypeU8))
}

func TestLockIsRefCounted(t *testing.T) {
	l := newS1Layout(t)
	l.Lock()
	l.Lock()
	l.Unlock()
	require.True(t, l.IsLocked())
	l.Unlock()
	require.False(t, l.IsLocked())
}

func TestWireCompatible(t *testing.T) {
	a := newS1Layout(t)
	b := newS1Layout(t)
	require.NoError(t, a.WireCompatible(b, true))

	require.NoError(t, b.SetColumnName(0, "different"))
	require.ErrorIs(t, a.WireCompatible(b, true), errs.ErrLayoutColumnName)
	require.NoError(t, a.WireCompatible(b, false))

	c := layout.New()
	require.NoError(t, c.AddColumn("id", format.ColumnTypeI32))
	require.ErrorIs(t, a.WireCompatible(c, false), errs.ErrLayoutColumnCount)
}
