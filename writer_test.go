package bcsv_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bcsv-go/bcsv"
	"github.com/bcsv-go/bcsv/errs"
	"github.com/bcsv-go/bcsv/format"
	"github.com/bcsv-go/bcsv/layout"
	"github.com/stretchr/testify/require"
)

func tsLayout(t *testing.T) *layout.Layout {
	t.Helper()
	l := layout.New()
	require.NoError(t, l.AddColumn("ts", format.ColumnTypeI64))
	require.NoError(t, l.AddColumn("value", format.ColumnTypeF64))
	require.NoError(t, l.AddColumn("label", format.ColumnTypeString))

	return l
}

// TestWriterFlatRoundTrip is scenario S1 from spec.md §8: write N rows
// with RowCodecFlat001 and no compression, read them back unchanged.
func TestWriterFlatRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flat.bcsv")
	l := tsLayout(t)

	w, err := bcsv.OpenWriter(path, l, bcsv.WithBlockSizeKB(4))
	require.NoError(t, err)

	for i := 0; i < 500; i++ {
		r := w.Row()
		r.SetI64(0, int64(i))
		r.SetF64(1, float64(i)*0.5)
		require.NoError(t, r.SetString(2, "row"))
		require.NoError(t, w.WriteRow())
	}
	require.NoError(t, w.Close())
	require.Equal(t, uint64(500), w.RowCount())

	rd, err := bcsv.OpenReader(path)
	require.NoError(t, err)
	defer rd.Close()

	var count int
	for rd.ReadNext() {
		row := rd.Row()
		require.Equal(t, int64(count), row.GetI64(0))
		require.InDelta(t, float64(count)*0.5, row.GetF64(1), 1e-9)
		require.Equal(t, "row", row.GetString(2))
		count++
	}
	require.NoError(t, rd.Err())
	require.Equal(t, 500, count)
}

// TestWriterRejectsExistingFileWithoutOverwrite covers spec.md §4.6's
// AlreadyExists rejection.
func TestWriterRejectsExistingFileWithoutOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exists.bcsv")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	l := tsLayout(t)
	_, err := bcsv.OpenWriter(path, l)
	require.Error(t, err)

	w, err := bcsv.OpenWriter(path, l, bcsv.WithOverwrite(true))
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

// TestWriterZoHRoundTrip is scenario S2 from spec.md §8: a time series
// where most rows repeat the previous row's label.
func TestWriterZoHRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zoh.bcsv")
	l := tsLayout(t)

	w, err := bcsv.OpenWriter(path, l, bcsv.WithRowCodec(format.RowCodecZoH001), bcsv.WithBlockSizeKB(4))
	require.NoError(t, err)

	for i := 0; i < 300; i++ {
		r := w.Row()
		r.SetI64(0, int64(i))
		r.SetF64(1, 42.0)
		require.NoError(t, r.SetString(2, "checkpoint"))
		require.NoError(t, w.WriteRow())
	}
	require.NoError(t, w.Close())

	rd, err := bcsv.OpenReader(path)
	require.NoError(t, err)
	defer rd.Close()

	var count int
	for rd.ReadNext() {
		row := rd.Row()
		require.Equal(t, int64(count), row.GetI64(0))
		require.Equal(t, 42.0, row.GetF64(1))
		require.Equal(t, "checkpoint", row.GetString(2))
		count++
	}
	require.NoError(t, rd.Err())
	require.Equal(t, 300, count)
}

// TestWriterDeltaRoundTripLZ4 exercises Delta encoding together with LZ4
// packet compression.
func TestWriterDeltaRoundTripLZ4(t *testing.T) {
	path := filepath.Join(t.TempDir(), "delta.bcsv")
	l := layout.New()
	require.NoError(t, l.AddColumn("ts", format.ColumnTypeI64))
	require.NoError(t, l.AddColumn("value", format.ColumnTypeF64))

	w, err := bcsv.OpenWriter(path, l,
		bcsv.WithRowCodec(format.RowCodecDelta001),
		bcsv.WithCompressionLevel(6),
		bcsv.WithBlockSizeKB(8),
	)
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		r := w.Row()
		r.SetI64(0, int64(1_700_000_000+i))
		r.SetF64(1, 20.0+float64(i)*0.01)
		require.NoError(t, w.WriteRow())
	}
	require.NoError(t, w.Close())

	rd, err := bcsv.OpenReader(path)
	require.NoError(t, err)
	defer rd.Close()

	var count int
	for rd.ReadNext() {
		row := rd.Row()
		require.Equal(t, int64(1_700_000_000+count), row.GetI64(0))
		require.InDelta(t, 20.0+float64(count)*0.01, row.GetF64(1), 1e-6)
		count++
	}
	require.NoError(t, rd.Err())
	require.Equal(t, 1000, count)
}

// TestWriterBatchCompressMatchesPlain is scenario S6 from spec.md §8 (P6):
// batch mode must decode to the same row sequence as non-batch mode.
func TestWriterBatchCompressMatchesPlain(t *testing.T) {
	dir := t.TempDir()
	plainPath := filepath.Join(dir, "plain.bcsv")
	batchPath := filepath.Join(dir, "batch.bcsv")

	write := func(path string, batch bool) {
		l := tsLayout(t)
		opts := []bcsv.WriterOption{
			bcsv.WithRowCodec(format.RowCodecZoH001),
			bcsv.WithCompressionLevel(3),
			bcsv.WithBlockSizeKB(4),
		}
		if batch {
			opts = append(opts, bcsv.WithBatchCompress(true))
		}
		w, err := bcsv.OpenWriter(path, l, opts...)
		require.NoError(t, err)
		for i := 0; i < 400; i++ {
			r := w.Row()
			r.SetI64(0, int64(i))
			r.SetF64(1, float64(i%7))
			require.NoError(t, r.SetString(2, "x"))
			require.NoError(t, w.WriteRow())
		}
		require.NoError(t, w.Close())
	}

	write(plainPath, false)
	write(batchPath, true)

	readAll := func(path string) [][3]any {
		rd, err := bcsv.OpenReader(path)
		require.NoError(t, err)
		defer rd.Close()

		var out [][3]any
		for rd.ReadNext() {
			row := rd.Row()
			out = append(out, [3]any{row.GetI64(0), row.GetF64(1), row.GetString(2)})
		}
		require.NoError(t, rd.Err())

		return out
	}

	require.Equal(t, readAll(plainPath), readAll(batchPath))
}

// TestWriterStreamModeOmitsFooter checks that a STREAM_MODE file has no
// trailing footer index and that OpenDirectReader rejects it.
func TestWriterStreamModeOmitsFooter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.bcsv")
	l := tsLayout(t)

	w, err := bcsv.OpenWriter(path, l, bcsv.WithStreamMode(true), bcsv.WithBlockSizeKB(4))
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		r := w.Row()
		r.SetI64(0, int64(i))
		r.SetF64(1, 1.0)
		require.NoError(t, r.SetString(2, "s"))
		require.NoError(t, w.WriteRow())
	}
	require.NoError(t, w.Close())

	_, err = bcsv.OpenDirectReader(path)
	require.Error(t, err)

	rd, err := bcsv.OpenReader(path)
	require.NoError(t, err)
	defer rd.Close()

	var count int
	for rd.ReadNext() {
		count++
	}
	require.NoError(t, rd.Err())
	require.Equal(t, 50, count)
}

// TestWriterDeltaStreamModeMultiPacketRoundTrip guards against a codec
// state corruption at packet boundaries: in STREAM_MODE the codec is
// never Reset between packets, so the assembler's overflow check must not
// encode the boundary row twice (the first, discarded encode would leave
// Delta's "previous row" state equal to the boundary row itself, making
// the kept encode a zero delta against itself instead of a delta against
// the prior packet's last row).
func TestWriterDeltaStreamModeMultiPacketRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "delta_stream.bcsv")
	l := layout.New()
	require.NoError(t, l.AddColumn("ts", format.ColumnTypeI64))
	require.NoError(t, l.AddColumn("value", format.ColumnTypeF64))

	w, err := bcsv.OpenWriter(path, l,
		bcsv.WithRowCodec(format.RowCodecDelta001),
		bcsv.WithStreamMode(true),
		bcsv.WithBlockSizeKB(4),
	)
	require.NoError(t, err)

	const rows = 800
	for i := 0; i < rows; i++ {
		r := w.Row()
		r.SetI64(0, int64(1_700_000_000+i))
		r.SetF64(1, float64(i))
		require.NoError(t, w.WriteRow())
	}
	require.NoError(t, w.Close())

	rd, err := bcsv.OpenReader(path)
	require.NoError(t, err)
	defer rd.Close()

	var count int
	for rd.ReadNext() {
		row := rd.Row()
		require.Equal(t, int64(1_700_000_000+count), row.GetI64(0))
		require.Equal(t, float64(count), row.GetF64(1))
		count++
	}
	require.NoError(t, rd.Err())
	require.Equal(t, rows, count)
}

func TestWithCompressionLevelRejectsOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "badlevel.bcsv")
	l := tsLayout(t)
	_, err := bcsv.OpenWriter(path, l, bcsv.WithCompressionLevel(10))
	require.Error(t, err)
}

func TestWithBlockSizeKBRejectsOutOfRange(t *testing.T) {
	l := tsLayout(t)

	_, err := bcsv.OpenWriter(filepath.Join(t.TempDir(), "toosmall.bcsv"), l, bcsv.WithBlockSizeKB(1))
	require.ErrorIs(t, err, errs.ErrInvalidBlockSize)

	_, err = bcsv.OpenWriter(filepath.Join(t.TempDir(), "toobig.bcsv"), l, bcsv.WithBlockSizeKB(8192))
	require.ErrorIs(t, err, errs.ErrInvalidBlockSize)
}
