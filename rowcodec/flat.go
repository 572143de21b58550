package rowcodec

import (
	"github.com/bcsv-go/bcsv/errs"
	"github.com/bcsv-go/bcsv/format"
	"github.com/bcsv-go/bcsv/layout"
	"github.com/bcsv-go/bcsv/row"
)

// Flat is RowCodecFlat001: the baseline codec. Wire image is every fixed-
// width field in column order (which is exactly a Row's inline buffer,
// since string columns occupy zero inline bytes), followed by each
// string column's value, length-prefixed with a u16 (spec.md §4.2).
//
// Flat carries no cross-row state; Reset is a no-op.
type Flat struct {
	layout      *layout.Layout
	stringCols  []int
	stride      int
	columnCount int
}

var _ Codec = (*Flat)(nil)

func (c *Flat) Type() format.RowCodecType { return format.RowCodecFlat001 }

func (c *Flat) Setup(l *layout.Layout) error {
	l.Lock()
	c.layout = l
	c.stride = l.Stride()
	c.columnCount = l.ColumnCount()
	c.stringCols = c.stringCols[:0]
	for i := 0; i < c.columnCount; i++ {
		if l.ColumnType(i) == format.ColumnTypeString {
			c.stringCols = append(c.stringCols, i)
		}
	}

	return nil
}

func (c *Flat) Reset() {}

func (c *Flat) Close() {
	if c.layout != nil {
		c.layout.Unlock()
		c.layout = nil
	}
}

func (c *Flat) Encode(dst []byte, r *row.Row) ([]byte, error) {
	dst = appendRowBuf(dst, r, c.stride)
	for _, i := range c.stringCols {
		dst = appendString(dst, r.GetString(i))
	}

	return dst, nil
}

func (c *Flat) Decode(src []byte, r *row.Row) (int, error) {
	if len(src) < c.stride {
		return 0, errs.ErrCodecUnderrun
	}
	pos := setRowBuf(r, src, c.stride)

	for _, i := range c.stringCols {
		s, n, err := readString(src[pos:])
		if err != nil {
			return 0, err
		}
		if err := r.SetString(i, s); err != nil {
			return 0, err
		}
		pos += n
	}

	return pos, nil
}

// appendRowBuf appends the row's raw fixed-width buffer, used by every
// codec variant as the base wire image of a full row.
func appendRowBuf(dst []byte, r *row.Row, stride int) []byte {
	return append(dst, r.RawBuf()[:stride]...)
}

// setRowBuf copies stride bytes from src into the row's fixed-width
// buffer and returns stride (the bytes consumed).
func setRowBuf(r *row.Row, src []byte, stride int) int {
	r.SetRawBuf(src[:stride])

	return stride
}

func appendString(dst []byte, s string) []byte {
	n := len(s)
	dst = append(dst, byte(n), byte(n>>8))
	dst = append(dst, s...)

	return dst
}

func readString(src []byte) (string, int, error) {
	if len(src) < 2 {
		return "", 0, errs.ErrCodecUnderrun
	}
	n := int(src[0]) | int(src[1])<<8
	if len(src) < 2+n {
		return "", 0, errs.ErrCodecUnderrun
	}

	return string(src[2 : 2+n]), 2 + n, nil
}
