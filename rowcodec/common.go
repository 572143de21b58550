package rowcodec

import (
	"math"

	"github.com/bcsv-go/bcsv/bitset"
	"github.com/bcsv-go/bcsv/errs"
	"github.com/bcsv-go/bcsv/format"
	"github.com/bcsv-go/bcsv/layout"
	"github.com/bcsv-go/bcsv/row"
)

// colMeta precomputes per-column wire metadata shared by ZoH and Delta,
// mirroring the "precompute per-column offsets" step every rowcodec
// implementation performs in Setup (spec.md §4.2).
type colMeta struct {
	offset   int
	size     int
	isString bool
	numeric  bool
	isFloat  bool
}

func computeColMeta(l *layout.Layout) []colMeta {
	cols := make([]colMeta, l.ColumnCount())
	for i := range cols {
		t := l.ColumnType(i)
		cols[i] = colMeta{
			offset:   l.ColumnOffset(i),
			size:     t.Size(),
			isString: t == format.ColumnTypeString,
			numeric:  t.IsNumeric(),
			isFloat:  t == format.ColumnTypeF32 || t == format.ColumnTypeF64,
		}
	}

	return cols
}

// presenceMask returns the bitset to serialize for this row: all bits set
// for the first row of a packet (mandatory snapshot, spec.md §4.2), or the
// row's own change-tracking bitset (or "all changed" when tracking is
// disabled, per spec.md §3.3's edge-case rule).
func presenceMask(r *row.Row, columnCount int, firstRow bool) *bitset.Bitset {
	mask := bitset.New(columnCount)
	if firstRow || !r.Tracking() {
		mask.SetAll()

		return mask
	}

	src := r.ChangeMask()
	for i := 0; i < columnCount; i++ {
		if src.Test(i) {
			mask.Set(i)
		}
	}

	return mask
}

// encodePresentColumns appends the values of columns whose presence bit is
// set, in column order, optionally delta-encoding numeric fixed-width
// columns against prev. prev is nil on the first row of a packet.
func encodePresentColumns(dst []byte, r, prev *row.Row, cols []colMeta, presence *bitset.Bitset, useDelta bool) []byte {
	for i, cm := range cols {
		if !presence.Test(i) {
			continue
		}
		if cm.isString {
			dst = appendString(dst, r.GetString(i))

			continue
		}

		cur := r.RawBuf()[cm.offset : cm.offset+cm.size]
		switch {
		case useDelta && cm.isFloat && prev != nil:
			prevBytes := prev.RawBuf()[cm.offset : cm.offset+cm.size]
			dst = append(dst, appendColumnFloatDelta(cur, prevBytes, cm.size)...)
		case useDelta && cm.numeric && prev != nil:
			prevBytes := prev.RawBuf()[cm.offset : cm.offset+cm.size]
			dst = appendDelta(dst, cur, prevBytes, cm.size)
		default:
			dst = append(dst, cur...)
		}
	}

	return dst
}

// decodePresentColumns mirrors encodePresentColumns, reconstructing
// columns whose presence bit is clear from prev's current value.
func decodePresentColumns(src []byte, r, prev *row.Row, cols []colMeta, presence *bitset.Bitset, useDelta bool) (int, error) {
	pos := 0
	for i, cm := range cols {
		if !presence.Test(i) {
			if prev == nil {
				return 0, errs.ErrInvalidChangeMask
			}
			copyColumn(r, prev, i, cm)
			r.MarkChanged(i) // unchanged columns still have a defined value

			continue
		}

		if cm.isString {
			s, n, err := readString(src[pos:])
			if err != nil {
				return 0, err
			}
			if err := r.SetString(i, s); err != nil {
				return 0, err
			}
			pos += n
			r.MarkChanged(i)

			continue
		}

		if len(src) < pos+cm.size {
			return 0, errs.ErrCodecUnderrun
		}
		raw := src[pos : pos+cm.size]
		dstBuf := r.RawBuf()[cm.offset : cm.offset+cm.size]
		switch {
		case useDelta && cm.isFloat && prev != nil:
			prevBytes := prev.RawBuf()[cm.offset : cm.offset+cm.size]
			applyColumnFloatDelta(dstBuf, raw, prevBytes, cm.size)
		case useDelta && cm.numeric && prev != nil:
			prevBytes := prev.RawBuf()[cm.offset : cm.offset+cm.size]
			applyDelta(dstBuf, raw, prevBytes, cm.size)
		default:
			copy(dstBuf, raw)
		}
		pos += cm.size
		r.MarkChanged(i)
	}

	return pos, nil
}

func copyColumn(dst, src *row.Row, i int, cm colMeta) {
	if cm.isString {
		_ = dst.SetString(i, src.GetString(i))

		return
	}
	copy(dst.RawBuf()[cm.offset:cm.offset+cm.size], src.RawBuf()[cm.offset:cm.offset+cm.size])
}

// appendDelta appends cur-prev for integer columns: wraparound subtraction
// on the raw little-endian bytes, which is exactly invertible regardless
// of signedness. Float columns never reach here; see
// appendColumnFloatDelta (spec.md §4.2 edge cases).
func appendDelta(dst, cur, prev []byte, size int) []byte {
	switch size {
	case 1:
		return append(dst, cur[0]-prev[0])
	case 2:
		a := le16(cur)
		b := le16(prev)

		return appendLE16(dst, a-b)
	case 4:
		a := le32(cur)
		b := le32(prev)

		return appendLE32(dst, a-b)
	case 8:
		a := le64(cur)
		b := le64(prev)

		return appendLE64(dst, a-b)
	default:
		return append(dst, cur...)
	}
}

// appendColumnFloatDelta dispatches to floatDelta32/floatDelta64 by column
// width, keeping float subtraction on IEEE-754 semantics instead of the
// wraparound integer path used by appendDelta.
func appendColumnFloatDelta(cur, prev []byte, size int) []byte {
	if size == 8 {
		return floatDelta64(cur, prev)
	}

	return floatDelta32(cur, prev)
}

// applyColumnFloatDelta is the decode-side counterpart of
// appendColumnFloatDelta.
func applyColumnFloatDelta(dst, delta, prev []byte, size int) {
	if size == 8 {
		applyFloatDelta64(dst, delta, prev)

		return
	}

	applyFloatDelta32(dst, delta, prev)
}

func applyDelta(dst, delta, prev []byte, size int) {
	switch size {
	case 1:
		dst[0] = prev[0] + delta[0]
	case 2:
		p := le16(prev)
		d := le16(delta)
		putLE16(dst, p+d)
	case 4:
		p := le32(prev)
		d := le32(delta)
		putLE32(dst, p+d)
	case 8:
		p := le64(prev)
		d := le64(delta)
		putLE64(dst, p+d)
	}
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func le64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}

	return v
}

func appendLE16(dst []byte, v uint16) []byte { return append(dst, byte(v), byte(v>>8)) }
func appendLE32(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}
func appendLE64(dst []byte, v uint64) []byte {
	for i := 0; i < 8; i++ {
		dst = append(dst, byte(v>>(8*i)))
	}

	return dst
}

func putLE16(dst []byte, v uint16) { dst[0] = byte(v); dst[1] = byte(v >> 8) }
func putLE32(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}
func putLE64(dst []byte, v uint64) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}

// floatDelta32/floatDelta64 are used instead of the generic integer delta
// path for f32/f64 columns, so subtraction follows IEEE-754 float
// semantics (including NaN propagation) rather than wraparound integer
// arithmetic (spec.md §4.2 edge cases).
func floatDelta32(cur, prev []byte) []byte {
	a := math.Float32frombits(le32(cur))
	b := math.Float32frombits(le32(prev))
	d := a - b
	out := make([]byte, 4)
	putLE32(out, math.Float32bits(d))

	return out
}

func floatDelta64(cur, prev []byte) []byte {
	a := math.Float64frombits(le64(cur))
	b := math.Float64frombits(le64(prev))
	d := a - b
	out := make([]byte, 8)
	putLE64(out, math.Float64bits(d))

	return out
}

func applyFloatDelta32(dst, delta, prev []byte) {
	p := math.Float32frombits(le32(prev))
	d := math.Float32frombits(le32(delta))
	putLE32(dst, math.Float32bits(p+d))
}

func applyFloatDelta64(dst, delta, prev []byte) {
	p := math.Float64frombits(le64(prev))
	d := math.Float64frombits(le64(delta))
	putLE64(dst, math.Float64bits(p+d))
}
