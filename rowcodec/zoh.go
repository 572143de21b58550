package rowcodec

import (
	"github.com/bcsv-go/bcsv/bitset"
	"github.com/bcsv-go/bcsv/errs"
	"github.com/bcsv-go/bcsv/format"
	"github.com/bcsv-go/bcsv/layout"
	"github.com/bcsv-go/bcsv/row"
)

// ZoH is RowCodecZoH001: each row is framed with a presence bitset (one bit
// per column) followed by the values of the present columns only. The
// first row encoded after Setup or Reset is always a full snapshot — every
// bit set — so a packet never depends on state from a prior packet
// (spec.md §4.2).
type ZoH struct {
	layout    *layout.Layout
	cols      []colMeta
	prev      *row.Row
	prevValid bool
}

var _ Codec = (*ZoH)(nil)

func (c *ZoH) Type() format.RowCodecType { return format.RowCodecZoH001 }

func (c *ZoH) Setup(l *layout.Layout) error {
	l.Lock()
	c.layout = l
	c.cols = computeColMeta(l)
	c.prev = row.New(l)
	c.prevValid = false

	return nil
}

func (c *ZoH) Reset() {
	c.prevValid = false
}

func (c *ZoH) Close() {
	if c.layout != nil {
		c.layout.Unlock()
		c.layout = nil
	}
}

func (c *ZoH) Encode(dst []byte, r *row.Row) ([]byte, error) {
	firstRow := !c.prevValid
	mask := presenceMask(r, len(c.cols), firstRow)

	dst = mask.AppendBytes(dst)
	dst = encodePresentColumns(dst, r, c.prevIfValid(), c.cols, mask, false)

	c.prev.CopyFrom(r)
	c.prevValid = true

	return dst, nil
}

func (c *ZoH) Decode(src []byte, r *row.Row) (int, error) {
	maskBytes := (len(c.cols) + 7) / 8
	if len(src) < maskBytes {
		return 0, errs.ErrCodecUnderrun
	}
	mask := bitset.New(len(c.cols))
	mask.SetFromBytes(src[:maskBytes])

	if !c.prevValid && !mask.All() {
		return 0, errs.ErrInvalidChangeMask
	}

	n, err := decodePresentColumns(src[maskBytes:], r, c.prevIfValid(), c.cols, mask, false)
	if err != nil {
		return 0, err
	}

	c.prev.CopyFrom(r)
	c.prevValid = true

	return maskBytes + n, nil
}

func (c *ZoH) prevIfValid() *row.Row {
	if !c.prevValid {
		return nil
	}

	return c.prev
}
