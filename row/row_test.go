package row_test

import (
	"testing"

	"github.com/bcsv-go/bcsv/format"
	"github.com/bcsv-go/bcsv/layout"
	"github.com/bcsv-go/bcsv/row"
	"github.com/stretchr/testify/require"
)

func s1Layout(t *testing.T) *layout.Layout {
	t.Helper()
	l := layout.New()
	require.NoError(t, l.AddColumn("id", format.ColumnTypeI32))
	require.NoError(t, l.AddColumn("name", format.ColumnTypeString))
	require.NoError(t, l.AddColumn("score", format.ColumnTypeF32))
	require.NoError(t, l.AddColumn("active", format.ColumnTypeBool))

	return l
}

func TestScalarRoundTrip(t *testing.T) {
	l := s1Layout(t)
	r := row.New(l)

	r.SetI32(0, 1)
	require.NoError(t, r.SetString(1, "Alice"))
	r.SetF32(2, 95.5)
	r.SetBool(3, true)

	require.Equal(t, int32(1), r.GetI32(0))
	require.Equal(t, "Alice", r.GetString(1))
	require.InDelta(t, 95.5, r.GetF32(2), 1e-6)
	require.True(t, r.GetBool(3))
}

func TestGenericGetSet(t *testing.T) {
	l := s1Layout(t)
	r := row.New(l)

	require.NoError(t, row.Set(r, 0, int32(42)))
	require.Equal(t, int32(42), row.Get[int32](r, 0))

	require.NoError(t, row.Set(r, 1, "hello"))
	require.Equal(t, "hello", row.Get[string](r, 1))
}

func TestTypeMismatchPanics(t *testing.T) {
	l := s1Layout(t)
	r := row.New(l)
	require.Panics(t, func() { r.GetI64(0) })
}

func TestTrackingPolicy(t *testing.T) {
	l := s1Layout(t)
	r := row.New(l)
	r.SetTracking(true)

	r.SetI32(0, 1)
	require.True(t, r.Changed(0))
	require.False(t, r.Changed(1))

	r.ResetChanges()
	require.False(t, r.Changed(0))

	// Re-setting to the existing value with tracking enabled is a no-op
	// bit-wise for the caller that chooses to skip the Set when value is
	// unchanged; the codec-facing contract is just "Changed reflects the
	// bitset", exercised here directly.
	r.SetI32(0, 1)
	require.True(t, r.Changed(0))
}

func TestTrackingDisabledAlwaysChanged(t *testing.T) {
	l := s1Layout(t)
	r := row.New(l)
	require.False(t, r.Tracking())
	require.True(t, r.Changed(0))
	require.True(t, r.Changed(3))
}

func TestVisitConstOrder(t *testing.T) {
	l := s1Layout(t)
	r := row.New(l)
	r.SetI32(0, 7)
	require.NoError(t, r.SetString(1, "x"))
	r.SetF32(2, 1.5)
	r.SetBool(3, false)

	var indices []int
	r.VisitConst(func(cv row.ConstValue) {
		indices = append(indices, cv.Index)
	})
	require.Equal(t, []int{0, 1, 2, 3}, indices)
}

func TestStringTooLong(t *testing.T) {
	l := s1Layout(t)
	r := row.New(l)
	big := make([]byte, 65535)
	err := r.SetString(1, string(big))
	require.Error(t, err)
}

func TestClearResetsRow(t *testing.T) {
	l := s1Layout(t)
	r := row.New(l)
	r.SetI32(0, 99)
	require.NoError(t, r.SetString(1, "gone"))
	r.Clear()
	require.Equal(t, int32(0), r.GetI32(0))
	require.Equal(t, "", r.GetString(1))
}
