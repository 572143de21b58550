package bcsv_test

import (
	"path/filepath"
	"testing"

	"github.com/bcsv-go/bcsv"
	"github.com/bcsv-go/bcsv/errs"
	"github.com/bcsv-go/bcsv/format"
	"github.com/stretchr/testify/require"
)

// TestDirectReaderRandomAccessFlat is scenario S5 from spec.md §8: open a
// many-row file and read scattered indices without a sequential scan.
func TestDirectReaderRandomAccessFlat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "direct_flat.bcsv")
	writeSimpleFile(t, path, 2000, bcsv.WithBlockSizeKB(4))

	dr, err := bcsv.OpenDirectReader(path)
	require.NoError(t, err)
	defer dr.Close()

	require.Equal(t, uint64(2000), dr.RowCount())

	for _, i := range []uint64{0, 1, 999, 1000, 1999, 500, 1500} {
		r, err := dr.ReadAt(i)
		require.NoError(t, err)
		require.Equal(t, int64(i), r.GetI64(0))
		require.Equal(t, float64(i), r.GetF64(1))
	}
}

// TestDirectReaderRandomAccessDelta exercises random access against the
// Delta codec, which forces a full resequencing of each target packet
// since Delta rows are not independently decodable.
func TestDirectReaderRandomAccessDelta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "direct_delta.bcsv")
	writeSimpleFile(t, path, 600, bcsv.WithBlockSizeKB(4), bcsv.WithRowCodec(format.RowCodecDelta001))

	dr, err := bcsv.OpenDirectReader(path)
	require.NoError(t, err)
	defer dr.Close()

	// Walk backward in steps of 37, so each earlier packet is loaded into
	// the cache after a later one.
	for i := 599; i >= 0; i -= 37 {
		r, err := dr.ReadAt(uint64(i))
		require.NoError(t, err)
		require.Equal(t, int64(i), r.GetI64(0))
		require.Equal(t, float64(i), r.GetF64(1))
	}
}

func TestDirectReaderOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "direct.bcsv")
	writeSimpleFile(t, path, 10)

	dr, err := bcsv.OpenDirectReader(path)
	require.NoError(t, err)
	defer dr.Close()

	_, err = dr.ReadAt(10)
	require.ErrorIs(t, err, errs.ErrRowOutOfRange)
}

func TestOpenDirectReaderRejectsStreamModeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.bcsv")
	writeSimpleFile(t, path, 10, bcsv.WithStreamMode(true))

	_, err := bcsv.OpenDirectReader(path)
	require.ErrorIs(t, err, errs.ErrFooterMissing)
}

func TestOpenDirectReaderRejectsNoFileIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noidx.bcsv")
	writeSimpleFile(t, path, 10, bcsv.WithNoFileIndex(true))

	_, err := bcsv.OpenDirectReader(path)
	require.ErrorIs(t, err, errs.ErrFooterMissing)
}

func TestDirectReaderClosedAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "direct.bcsv")
	writeSimpleFile(t, path, 5)

	dr, err := bcsv.OpenDirectReader(path)
	require.NoError(t, err)
	require.NoError(t, dr.Close())

	_, err = dr.ReadAt(0)
	require.ErrorIs(t, err, errs.ErrClosed)
}
