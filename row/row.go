// Package row implements Row, the single-row-sized typed value buffer
// described in spec.md §3.3: fixed-width columns live inline in a
// contiguous byte buffer sized by a Layout, string columns are owned
// (copy-on-set) by the Row, and an optional tracking policy records which
// columns changed since the row was last reset, for the ZoH/Delta codecs
// to consult (spec.md §4.2).
package row

import (
	"math"

	"github.com/bcsv-go/bcsv/bitset"
	"github.com/bcsv-go/bcsv/errs"
	"github.com/bcsv-go/bcsv/format"
	"github.com/bcsv-go/bcsv/layout"
)

// Row is grounded on the teacher's blob/numeric_blob_material.go
// materialized fixed-offset row storage, generalized from "one metric's
// points" to "one row of an arbitrary Layout", plus a generic
// Get[T]/Set[T] accessor pair modeled on encoding/columnar.go's
// ColumnarEncoder[T] generic-interface style.
type Row struct {
	layout   *layout.Layout
	buf      []byte   // inline fixed-width storage, length == layout.Stride()
	strings  []string // indexed by column; only meaningful for string columns
	tracking bool
	changed  *bitset.Bitset // nil when tracking is disabled
}

// New creates a Row bound to l. The Row holds l by reference (a one-way
// handle, spec.md §9); the caller must keep l alive and must not mutate
// its structure except via SetColumnName while this Row exists.
func New(l *layout.Layout) *Row {
	r := &Row{
		layout:  l,
		buf:     make([]byte, l.Stride()),
		strings: make([]string, l.ColumnCount()),
	}

	return r
}

// SetTracking enables or disables the per-column change-tracking policy
// (spec.md §3.3). Enabling tracking allocates a change bitset sized to the
// layout's current column count; toggling tracking resets all change bits.
func (r *Row) SetTracking(enabled bool) {
	r.tracking = enabled
	if enabled {
		r.changed = bitset.New(r.layout.ColumnCount())
	} else {
		r.changed = nil
	}
}

// Tracking reports whether the change-tracking policy is enabled.
func (r *Row) Tracking() bool {
	return r.tracking
}

// Changed reports whether column i changed since the row was last
// ResetChanges'd. When tracking is disabled every column reports changed,
// matching "every set is treated as a change" (spec.md §3.3).
func (r *Row) Changed(i int) bool {
	if !r.tracking {
		return true
	}

	return r.changed.Test(i)
}

// ChangeMask returns the tracking bitset directly for codecs that need to
// serialize it verbatim (rowcodec.ZoH/Delta). Returns nil if tracking is
// disabled.
func (r *Row) ChangeMask() *bitset.Bitset {
	return r.changed
}

// ResetChanges clears all change-tracking bits. Clear calls it (so
// Writer.WriteRow resets its staging row's bits after encoding), and a
// caller calls it after reusing one Row instance to stage the next row.
// The row codecs do not call it.
func (r *Row) ResetChanges() {
	if r.changed != nil {
		r.changed.ResetAll()
	}
}

// MarkChanged force-marks column i as changed, used by rowcodec decoders
// reconstructing a Row's tracking state from a decoded change mask.
func (r *Row) MarkChanged(i int) {
	if r.changed != nil {
		r.changed.Set(i)
	}
}

// Layout returns the Layout this row is bound to.
func (r *Row) Layout() *layout.Layout {
	return r.layout
}

// RawBuf returns the row's inline fixed-width byte buffer (fixed-width
// column values, in column order, at the offsets Layout.ColumnOffset
// reports). It is exposed for rowcodec, which serializes/deserializes
// this buffer directly rather than column-by-column, matching spec.md
// §4.2's "fixed-width fields in column order" wire framing. The returned
// slice aliases the Row's storage; callers must not retain it across a
// SetRawBuf or another mutating call.
func (r *Row) RawBuf() []byte {
	return r.buf
}

// SetRawBuf overwrites the row's inline fixed-width buffer from data,
// which must be exactly len(r.RawBuf()) bytes.
func (r *Row) SetRawBuf(data []byte) {
	copy(r.buf, data)
}

func (r *Row) checkType(i int, want format.ColumnType) {
	if i < 0 || i >= r.layout.ColumnCount() {
		panic(errs.ErrInvalidColumnIndex)
	}
	if r.layout.ColumnType(i) != want {
		panic(errs.ErrTypeMismatch)
	}
}

func (r *Row) markSet(i int) {
	if r.tracking {
		r.changed.Set(i)
	}
}

// --- Scalar accessors -------------------------------------------------

func (r *Row) GetBool(i int) bool {
	r.checkType(i, format.ColumnTypeBool)

	return r.buf[r.layout.ColumnOffset(i)] != 0
}

func (r *Row) SetBool(i int, v bool) {
	r.checkType(i, format.ColumnTypeBool)
	if v {
		r.buf[r.layout.ColumnOffset(i)] = 1
	} else {
		r.buf[r.layout.ColumnOffset(i)] = 0
	}
	r.markSet(i)
}

func (r *Row) GetU8(i int) uint8 {
	r.checkType(i, format.ColumnTypeU8)

	return r.buf[r.layout.ColumnOffset(i)]
}

func (r *Row) SetU8(i int, v uint8) {
	r.checkType(i, format.ColumnTypeU8)
	r.buf[r.layout.ColumnOffset(i)] = v
	r.markSet(i)
}

func (r *Row) GetI8(i int) int8 {
	r.checkType(i, format.ColumnTypeI8)

	return int8(r.buf[r.layout.ColumnOffset(i)])
}

func (r *Row) SetI8(i int, v int8) {
	r.checkType(i, format.ColumnTypeI8)
	r.buf[r.layout.ColumnOffset(i)] = byte(v)
	r.markSet(i)
}

func (r *Row) GetU16(i int) uint16 {
	r.checkType(i, format.ColumnTypeU16)
	off := r.layout.ColumnOffset(i)

	return uint16(r.buf[off]) | uint16(r.buf[off+1])<<8
}

func (r *Row) SetU16(i int, v uint16) {
	r.checkType(i, format.ColumnTypeU16)
	off := r.layout.ColumnOffset(i)
	r.buf[off] = byte(v)
	r.buf[off+1] = byte(v >> 8)
	r.markSet(i)
}

func (r *Row) GetI16(i int) int16 {
	r.checkType(i, format.ColumnTypeI16)
	off := r.layout.ColumnOffset(i)

	return int16(uint16(r.buf[off]) | uint16(r.buf[off+1])<<8)
}

func (r *Row) SetI16(i int, v int16) {
	r.checkType(i, format.ColumnTypeI16)
	off := r.layout.ColumnOffset(i)
	u := uint16(v)
	r.buf[off] = byte(u)
	r.buf[off+1] = byte(u >> 8)
	r.markSet(i)
}

func (r *Row) GetU32(i int) uint32 {
	r.checkType(i, format.ColumnTypeU32)

	return r.readU32(i)
}

func (r *Row) readU32(i int) uint32 {
	off := r.layout.ColumnOffset(i)

	return uint32(r.buf[off]) | uint32(r.buf[off+1])<<8 |
		uint32(r.buf[off+2])<<16 | uint32(r.buf[off+3])<<24
}

func (r *Row) writeU32(i int, v uint32) {
	off := r.layout.ColumnOffset(i)
	r.buf[off] = byte(v)
	r.buf[off+1] = byte(v >> 8)
	r.buf[off+2] = byte(v >> 16)
	r.buf[off+3] = byte(v >> 24)
}

func (r *Row) SetU32(i int, v uint32) {
	r.checkType(i, format.ColumnTypeU32)
	r.writeU32(i, v)
	r.markSet(i)
}

func (r *Row) GetI32(i int) int32 {
	r.checkType(i, format.ColumnTypeI32)

	return int32(r.readU32(i))
}

func (r *Row) SetI32(i int, v int32) {
	r.checkType(i, format.ColumnTypeI32)
	r.writeU32(i, uint32(v))
	r.markSet(i)
}

func (r *Row) GetF32(i int) float32 {
	r.checkType(i, format.ColumnTypeF32)

	return math.Float32frombits(r.readU32(i))
}

func (r *Row) SetF32(i int, v float32) {
	r.checkType(i, format.ColumnTypeF32)
	r.writeU32(i, math.Float32bits(v))
	r.markSet(i)
}

func (r *Row) GetU64(i int) uint64 {
	r.checkType(i, format.ColumnTypeU64)

	return r.readU64(i)
}

func (r *Row) readU64(i int) uint64 {
	off := r.layout.ColumnOffset(i)
	var v uint64
	for b := 0; b < 8; b++ {
		v |= uint64(r.buf[off+b]) << (8 * b)
	}

	return v
}

func (r *Row) writeU64(i int, v uint64) {
	off := r.layout.ColumnOffset(i)
	for b := 0; b < 8; b++ {
		r.buf[off+b] = byte(v >> (8 * b))
	}
}

func (r *Row) SetU64(i int, v uint64) {
	r.checkType(i, format.ColumnTypeU64)
	r.writeU64(i, v)
	r.markSet(i)
}

func (r *Row) GetI64(i int) int64 {
	r.checkType(i, format.ColumnTypeI64)

	return int64(r.readU64(i))
}

func (r *Row) SetI64(i int, v int64) {
	r.checkType(i, format.ColumnTypeI64)
	r.writeU64(i, uint64(v))
	r.markSet(i)
}

func (r *Row) GetF64(i int) float64 {
	r.checkType(i, format.ColumnTypeF64)

	return math.Float64frombits(r.readU64(i))
}

func (r *Row) SetF64(i int, v float64) {
	r.checkType(i, format.ColumnTypeF64)
	r.writeU64(i, math.Float64bits(v))
	r.markSet(i)
}

func (r *Row) GetString(i int) string {
	r.checkType(i, format.ColumnTypeString)

	return r.strings[i]
}

// SetString copies v into the row's owned string storage (spec.md §3.3:
// "copy on set"). Strings over 65534 bytes are rejected because the wire
// length prefix is a u16 (spec.md §3.1).
func (r *Row) SetString(i int, v string) error {
	r.checkType(i, format.ColumnTypeString)
	if len(v) > 65534 {
		return errs.ErrStringTooLong
	}

	r.strings[i] = v
	r.markSet(i)

	return nil
}

// --- Generic accessors --------------------------------------------------

// Get reads column i as type T, panicking with errs.ErrTypeMismatch if the
// column's declared type does not match T.
func Get[T any](r *Row, i int) T {
	var zero T
	var v any
	switch any(zero).(type) {
	case bool:
		v = r.GetBool(i)
	case uint8:
		v = r.GetU8(i)
	case int8:
		v = r.GetI8(i)
	case uint16:
		v = r.GetU16(i)
	case int16:
		v = r.GetI16(i)
	case uint32:
		v = r.GetU32(i)
	case int32:
		v = r.GetI32(i)
	case uint64:
		v = r.GetU64(i)
	case int64:
		v = r.GetI64(i)
	case float32:
		v = r.GetF32(i)
	case float64:
		v = r.GetF64(i)
	case string:
		v = r.GetString(i)
	default:
		panic(errs.ErrTypeMismatch)
	}

	return v.(T)
}

// Set writes column i from a value of type T. Returns an error only for
// string columns exceeding the wire length limit; all other mismatches
// panic with errs.ErrTypeMismatch, consistent with the scalar setters.
func Set[T any](r *Row, i int, v T) error {
	switch val := any(v).(type) {
	case bool:
		r.SetBool(i, val)
	case uint8:
		r.SetU8(i, val)
	case int8:
		r.SetI8(i, val)
	case uint16:
		r.SetU16(i, val)
	case int16:
		r.SetI16(i, val)
	case uint32:
		r.SetU32(i, val)
	case int32:
		r.SetI32(i, val)
	case uint64:
		r.SetU64(i, val)
	case int64:
		r.SetI64(i, val)
	case float32:
		r.SetF32(i, val)
	case float64:
		r.SetF64(i, val)
	case string:
		return r.SetString(i, val)
	default:
		panic(errs.ErrTypeMismatch)
	}

	return nil
}

// GetRange reads a contiguous run of columns [start, start+n) that must
// all share one type T, returning the values in a new slice. This is
// the vectorized accessor spec.md §3.3 calls for "bulk operations"; it
// panics if any column in the range has a different type.
func GetRange[T any](r *Row, start, n int) []T {
	out := make([]T, 0, n)
	for i := start; i < start+n; i++ {
		out = append(out, Get[T](r, i))
	}

	return out
}

// SetRange writes values into a contiguous run of columns starting at
// start, one call to Set per element.
func SetRange[T any](r *Row, start int, values []T) error {
	for idx, v := range values {
		if err := Set(r, start+idx, v); err != nil {
			return err
		}
	}

	return nil
}

// ConstValue is one (column_index, value) pair yielded by VisitConst.
type ConstValue struct {
	Index int
	Value any
}

// VisitConst calls f for every column in order with its current value,
// boxed as any, for generic dispatch (spec.md §3.3; used by CSV-style
// adapters external to this module).
func (r *Row) VisitConst(f func(ConstValue)) {
	for i := 0; i < r.layout.ColumnCount(); i++ {
		var v any
		switch r.layout.ColumnType(i) {
		case format.ColumnTypeBool:
			v = r.GetBool(i)
		case format.ColumnTypeU8:
			v = r.GetU8(i)
		case format.ColumnTypeI8:
			v = r.GetI8(i)
		case format.ColumnTypeU16:
			v = r.GetU16(i)
		case format.ColumnTypeI16:
			v = r.GetI16(i)
		case format.ColumnTypeU32:
			v = r.GetU32(i)
		case format.ColumnTypeI32:
			v = r.GetI32(i)
		case format.ColumnTypeU64:
			v = r.GetU64(i)
		case format.ColumnTypeI64:
			v = r.GetI64(i)
		case format.ColumnTypeF32:
			v = r.GetF32(i)
		case format.ColumnTypeF64:
			v = r.GetF64(i)
		case format.ColumnTypeString:
			v = r.GetString(i)
		}
		f(ConstValue{Index: i, Value: v})
	}
}

// Clear zeroes all fixed-width storage, clears owned strings, and resets
// change tracking, preparing the Row for reuse as a staging area (Writer's
// Row() returns one such reusable instance, spec.md §4.6).
func (r *Row) Clear() {
	for i := range r.buf {
		r.buf[i] = 0
	}
	for i := range r.strings {
		r.strings[i] = ""
	}
	r.ResetChanges()
}

// CopyFrom overwrites r's contents with src's. Both rows must share a
// wire-compatible layout; this does not check compatibility itself — the
// caller (typically a row codec's decode path) is expected to have
// already validated it via Layout.WireCompatible.
func (r *Row) CopyFrom(src *Row) {
	copy(r.buf, src.buf)
	copy(r.strings, src.strings)
}
