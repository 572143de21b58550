package rowcodec_test

import (
	"testing"

	"github.com/bcsv-go/bcsv/format"
	"github.com/bcsv-go/bcsv/layout"
	"github.com/bcsv-go/bcsv/row"
	"github.com/bcsv-go/bcsv/rowcodec"
	"github.com/stretchr/testify/require"
)

// s1Layout matches spec.md's S1 scenario: id:i32, name:string, score:f32,
// active:bool.
func s1Layout(t *testing.T) *layout.Layout {
	t.Helper()
	l := layout.New()
	require.NoError(t, l.AddColumn("id", format.ColumnTypeI32))
	require.NoError(t, l.AddColumn("name", format.ColumnTypeString))
	require.NoError(t, l.AddColumn("score", format.ColumnTypeF32))
	require.NoError(t, l.AddColumn("active", format.ColumnTypeBool))

	return l
}

func TestFlatRoundTrip(t *testing.T) {
	l := s1Layout(t)
	c, err := rowcodec.New(format.RowCodecFlat001)
	require.NoError(t, err)
	require.NoError(t, c.Setup(l))
	defer c.Close()

	in := row.New(l)
	in.SetI32(0, 42)
	require.NoError(t, in.SetString(1, "Alice"))
	in.SetF32(2, 3.5)
	in.SetBool(3, true)

	buf, err := c.Encode(nil, in)
	require.NoError(t, err)

	out := row.New(l)
	n, err := c.Decode(buf, out)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)

	require.Equal(t, int32(42), out.GetI32(0))
	require.Equal(t, "Alice", out.GetString(1))
	require.InDelta(t, 3.5, out.GetF32(2), 1e-6)
	require.True(t, out.GetBool(3))
}

func TestZoHFirstRowIsFullSnapshot(t *testing.T) {
	l := s1Layout(t)
	c, err := rowcodec.New(format.RowCodecZoH001)
	require.NoError(t, err)
	require.NoError(t, c.Setup(l))
	defer c.Close()

	in := row.New(l)
	in.SetTracking(true)
	in.SetI32(0, 1)
	require.NoError(t, in.SetString(1, "first"))
	in.SetF32(2, 1.0)
	in.SetBool(3, false)

	buf, err := c.Encode(nil, in)
	require.NoError(t, err)

	out := row.New(l)
	_, err = c.Decode(buf, out)
	require.NoError(t, err)
	require.Equal(t, int32(1), out.GetI32(0))
	require.Equal(t, "first", out.GetString(1))
}

func TestZoHOnlyChangedColumnsEncoded(t *testing.T) {
	l := s1Layout(t)
	enc, err := rowcodec.New(format.RowCodecZoH001)
	require.NoError(t, err)
	require.NoError(t, enc.Setup(l))
	defer enc.Close()

	dec, err := rowcodec.New(format.RowCodecZoH001)
	require.NoError(t, err)
	require.NoError(t, dec.Setup(l))
	defer dec.Close()

	r1 := row.New(l)
	r1.SetTracking(true)
	r1.SetI32(0, 1)
	require.NoError(t, r1.SetString(1, "a"))
	r1.SetF32(2, 10.0)
	r1.SetBool(3, true)

	buf1, err := enc.Encode(nil, r1)
	require.NoError(t, err)
	out1 := row.New(l)
	_, err = dec.Decode(buf1, out1)
	require.NoError(t, err)

	r2 := row.New(l)
	r2.SetTracking(true)
	r2.SetI32(0, 1)
	require.NoError(t, r2.SetString(1, "a"))
	r2.SetF32(2, 20.0) // only score changes
	r2.SetBool(3, true)
	r2.ResetChanges()
	r2.SetF32(2, 20.0)

	buf2, err := enc.Encode(nil, r2)
	require.NoError(t, err)
	require.Less(t, len(buf2), len(buf1), "second row should encode fewer bytes than the full snapshot")

	out2 := row.New(l)
	_, err = dec.Decode(buf2, out2)
	require.NoError(t, err)

	require.Equal(t, int32(1), out2.GetI32(0))
	require.Equal(t, "a", out2.GetString(1))
	require.InDelta(t, 20.0, out2.GetF32(2), 1e-6)
	require.True(t, out2.GetBool(3))
}

func TestZoHResetForcesNewSnapshot(t *testing.T) {
	l := s1Layout(t)
	c, err := rowcodec.New(format.RowCodecZoH001)
	require.NoError(t, err)
	require.NoError(t, c.Setup(l))
	defer c.Close()

	r1 := row.New(l)
	r1.SetTracking(true)
	r1.SetI32(0, 1)
	require.NoError(t, r1.SetString(1, "a"))
	_, err = c.Encode(nil, r1)
	require.NoError(t, err)

	c.Reset()

	r2 := row.New(l)
	r2.SetTracking(true)
	r2.SetI32(0, 2)
	require.NoError(t, r2.SetString(1, "b"))
	buf2, err := c.Encode(nil, r2)
	require.NoError(t, err)

	// After Reset, decode must not need prior packet state: a fresh codec
	// decoding just buf2 should succeed as a full snapshot.
	fresh, err := rowcodec.New(format.RowCodecZoH001)
	require.NoError(t, err)
	require.NoError(t, fresh.Setup(l))
	defer fresh.Close()

	out := row.New(l)
	_, err = fresh.Decode(buf2, out)
	require.NoError(t, err)
	require.Equal(t, int32(2), out.GetI32(0))
	require.Equal(t, "b", out.GetString(1))
}

func numericLayout(t *testing.T) *layout.Layout {
	t.Helper()
	l := layout.New()
	require.NoError(t, l.AddColumn("ts", format.ColumnTypeI64))
	require.NoError(t, l.AddColumn("value", format.ColumnTypeF64))

	return l
}

func TestDeltaIntegerAndFloatRoundTrip(t *testing.T) {
	l := numericLayout(t)
	enc, err := rowcodec.New(format.RowCodecDelta001)
	require.NoError(t, err)
	require.NoError(t, enc.Setup(l))
	defer enc.Close()

	dec, err := rowcodec.New(format.RowCodecDelta001)
	require.NoError(t, err)
	require.NoError(t, dec.Setup(l))
	defer dec.Close()

	ts := []int64{1000, 1010, 1025, 1025, 900}
	vals := []float64{1.5, 1.75, -2.25, -2.25, 100.0}

	var buf []byte
	out := row.New(l)
	for i := range ts {
		in := row.New(l)
		in.SetTracking(true)
		in.SetI64(0, ts[i])
		in.SetF64(1, vals[i])

		buf, err = enc.Encode(buf[:0], in)
		require.NoError(t, err)

		n, err := dec.Decode(buf, out)
		require.NoError(t, err)
		require.Equal(t, len(buf), n)

		require.Equal(t, ts[i], out.GetI64(0))
		require.InDelta(t, vals[i], out.GetF64(1), 1e-9)
	}
}

func TestDeltaUnchangedColumnReconstructedFromPrev(t *testing.T) {
	l := numericLayout(t)
	enc, err := rowcodec.New(format.RowCodecDelta001)
	require.NoError(t, err)
	require.NoError(t, enc.Setup(l))
	defer enc.Close()

	dec, err := rowcodec.New(format.RowCodecDelta001)
	require.NoError(t, err)
	require.NoError(t, dec.Setup(l))
	defer dec.Close()

	r1 := row.New(l)
	r1.SetTracking(true)
	r1.SetI64(0, 5000)
	r1.SetF64(1, 42.0)
	buf1, err := enc.Encode(nil, r1)
	require.NoError(t, err)
	out1 := row.New(l)
	_, err = dec.Decode(buf1, out1)
	require.NoError(t, err)

	r2 := row.New(l)
	r2.SetTracking(true)
	r2.SetI64(0, 5000)
	r2.SetF64(1, 42.0)
	r2.ResetChanges()
	r2.SetI64(0, 5100) // only ts changes

	buf2, err := enc.Encode(nil, r2)
	require.NoError(t, err)
	out2 := row.New(l)
	_, err = dec.Decode(buf2, out2)
	require.NoError(t, err)

	require.Equal(t, int64(5100), out2.GetI64(0))
	require.InDelta(t, 42.0, out2.GetF64(1), 1e-9)
}

func TestDeltaTrackingDisabledAlwaysFullSnapshot(t *testing.T) {
	l := numericLayout(t)
	c, err := rowcodec.New(format.RowCodecDelta001)
	require.NoError(t, err)
	require.NoError(t, c.Setup(l))
	defer c.Close()

	r1 := row.New(l)
	r1.SetI64(0, 1)
	r1.SetF64(1, 1.0)
	buf1, err := c.Encode(nil, r1)
	require.NoError(t, err)

	r2 := row.New(l)
	r2.SetI64(0, 1)
	r2.SetF64(1, 1.0)
	buf2, err := c.Encode(nil, r2)
	require.NoError(t, err)

	// Tracking disabled means every row re-emits every column, so
	// successive identical rows encode to the same length.
	require.Equal(t, len(buf1), len(buf2))
}

func TestCodecFactoryRejectsUnknownType(t *testing.T) {
	_, err := rowcodec.New(format.RowCodecType(0xFF))
	require.Error(t, err)
}
