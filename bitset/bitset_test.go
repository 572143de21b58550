package bitset_test

import (
	"testing"

	"github.com/bcsv-go/bcsv/bitset"
	"github.com/stretchr/testify/require"
)

func TestSetTest(t *testing.T) {
	b := bitset.New(10)
	require.True(t, b.Set(3).Test(3))
	require.False(t, b.Test(4))
}

func TestResetNone(t *testing.T) {
	b := bitset.New(10).SetAll()
	require.True(t, b.ResetAll().None())
}

func TestSetAllAll(t *testing.T) {
	b := bitset.New(17)
	require.True(t, b.SetAll().All())
}

func TestPopcountOfAndNot(t *testing.T) {
	b := bitset.New(33).SetAll()
	inv := b.Clone().Not()
	b.And(inv)
	require.Equal(t, 0, b.Count())
}

func TestShiftBySizeIsZero(t *testing.T) {
	b := bitset.New(40).SetAll()
	b.Shl(40)
	require.True(t, b.None())

	b2 := bitset.New(40).SetAll()
	b2.Shr(40)
	require.True(t, b2.None())
}

func TestUnusedBitsMasked(t *testing.T) {
	b := bitset.New(5).SetAll()
	require.Equal(t, uint64(0b11111), b.ToUint64())
}

func TestFromASCIIRoundTrip(t *testing.T) {
	b := bitset.FromASCII("1011")
	require.True(t, b.Test(3))
	require.False(t, b.Test(2))
	require.True(t, b.Test(1))
	require.True(t, b.Test(0))
	require.Equal(t, "1011", b.ToASCII())
}

func TestFromUint64(t *testing.T) {
	b := bitset.FromUint64(8, 0xFF)
	require.True(t, b.All())
}

func TestAppendBytesRoundTrip(t *testing.T) {
	b := bitset.New(12)
	b.Set(0).Set(11).Set(5)

	buf := b.AppendBytes(nil)
	require.Equal(t, 2, len(buf))

	b2 := bitset.New(12)
	b2.SetFromBytes(buf)
	require.True(t, b.Equal(b2))
}

func TestToFixedSizeMismatch(t *testing.T) {
	b := bitset.New(10)
	_, ok := b.ToFixed(5)
	require.False(t, ok)

	_, ok = b.ToFixed(10)
	require.True(t, ok)
}

func TestEqualAcrossMultiWord(t *testing.T) {
	a := bitset.New(130)
	c := bitset.New(130)
	for _, i := range []int{0, 63, 64, 65, 129} {
		a.Set(i)
		c.Set(i)
	}
	require.True(t, a.Equal(c))
	c.Flip(129)
	require.False(t, a.Equal(c))
}
