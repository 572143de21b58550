package rowcodec

import (
	"github.com/bcsv-go/bcsv/bitset"
	"github.com/bcsv-go/bcsv/errs"
	"github.com/bcsv-go/bcsv/format"
	"github.com/bcsv-go/bcsv/layout"
	"github.com/bcsv-go/bcsv/row"
)

// Delta is RowCodecDelta001: identical framing to ZoH (presence bitset
// plus present-column values) except that present numeric columns store
// the arithmetic difference from the previous row's value instead of the
// raw value. Non-numeric columns (bool, string) fall back to ZoH's
// present/absent behavior, since a delta has no meaning for them
// (spec.md §4.2).
type Delta struct {
	layout    *layout.Layout
	cols      []colMeta
	prev      *row.Row
	prevValid bool
}

var _ Codec = (*Delta)(nil)

func (c *Delta) Type() format.RowCodecType { return format.RowCodecDelta001 }

func (c *Delta) Setup(l *layout.Layout) error {
	l.Lock()
	c.layout = l
	c.cols = computeColMeta(l)
	c.prev = row.New(l)
	c.prevValid = false

	return nil
}

func (c *Delta) Reset() {
	c.prevValid = false
}

func (c *Delta) Close() {
	if c.layout != nil {
		c.layout.Unlock()
		c.layout = nil
	}
}

func (c *Delta) Encode(dst []byte, r *row.Row) ([]byte, error) {
	firstRow := !c.prevValid
	mask := presenceMask(r, len(c.cols), firstRow)

	dst = mask.AppendBytes(dst)
	dst = encodePresentColumns(dst, r, c.prevIfValid(), c.cols, mask, true)

	c.prev.CopyFrom(r)
	c.prevValid = true

	return dst, nil
}

func (c *Delta) Decode(src []byte, r *row.Row) (int, error) {
	maskBytes := (len(c.cols) + 7) / 8
	if len(src) < maskBytes {
		return 0, errs.ErrCodecUnderrun
	}
	mask := bitset.New(len(c.cols))
	mask.SetFromBytes(src[:maskBytes])

	if !c.prevValid && !mask.All() {
		return 0, errs.ErrInvalidChangeMask
	}

	n, err := decodePresentColumns(src[maskBytes:], r, c.prevIfValid(), c.cols, mask, true)
	if err != nil {
		return 0, err
	}

	c.prev.CopyFrom(r)
	c.prevValid = true

	return maskBytes + n, nil
}

func (c *Delta) prevIfValid() *row.Row {
	if !c.prevValid {
		return nil
	}

	return c.prev
}
