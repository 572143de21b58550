// Package rowcodec implements the three row wire encodings of spec.md
// §4.2: Flat (RowCodecFlat001), ZoH (RowCodecZoH001), and Delta
// (RowCodecDelta001). Each codec serializes one row at a time to/from a
// byte stream, and ZoH/Delta additionally maintain a per-column "previous
// row" used to reconstruct unchanged values.
package rowcodec

import (
	"github.com/bcsv-go/bcsv/endian"
	"github.com/bcsv-go/bcsv/errs"
	"github.com/bcsv-go/bcsv/format"
	"github.com/bcsv-go/bcsv/layout"
	"github.com/bcsv-go/bcsv/row"
)

// Codec is the shared contract for Flat/ZoH/Delta implementations,
// modeled on the teacher's encoding.ColumnarEncoder[T] lifecycle
// (Setup/encode/decode/Reset/Close) generalized from one typed column
// stream to one whole row.
type Codec interface {
	// Setup precomputes per-column state and acquires the Layout's
	// structural lock (spec.md §4.2). Must be called exactly once before
	// Encode/Decode.
	Setup(l *layout.Layout) error

	// Encode appends r's wire image to dst and returns the extended
	// slice.
	Encode(dst []byte, r *row.Row) ([]byte, error)

	// Decode consumes exactly one row's wire image from src, writing the
	// decoded values into r, and returns the number of bytes consumed.
	Decode(src []byte, r *row.Row) (int, error)

	// Reset drops any cross-row "previous value" state. Called at every
	// packet boundary so that, outside STREAM_MODE, packets are
	// independently decodable (spec.md §4.2, §6.1).
	Reset()

	// Close releases the structural lock acquired by Setup. Safe to call
	// more than once.
	Close()

	// Type identifies which RowCodecType this instance implements, for
	// the file header's flag bits (spec.md §4.2).
	Type() format.RowCodecType
}

// New constructs the codec named by t, bound to no layout yet (call Setup
// before use).
func New(t format.RowCodecType) (Codec, error) {
	switch t {
	case format.RowCodecFlat001:
		return &Flat{}, nil
	case format.RowCodecZoH001:
		return &ZoH{}, nil
	case format.RowCodecDelta001:
		return &Delta{}, nil
	default:
		return nil, errs.ErrInvalidColumnType
	}
}

// engine is the little-endian byte-order engine of the BCSV wire format
// (spec.md §6.1). The codecs in this package do not consult it: they copy
// the Row's little-endian inline buffer and use their own little-endian
// helpers (common.go, flat.go).
var engine = endian.GetLittleEndianEngine()
