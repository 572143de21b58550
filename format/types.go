// Package format defines the wire-level enumerations shared by every BCSV
// component: column scalar types, row codec identifiers, compression
// algorithms, checksum algorithms, and the file-header flag bits.
package format

// ColumnType identifies the wire type of one Layout column.
type ColumnType uint8

const (
	ColumnTypeBool   ColumnType = 0x01
	ColumnTypeU8     ColumnType = 0x02
	ColumnTypeI8     ColumnType = 0x03
	ColumnTypeU16    ColumnType = 0x04
	ColumnTypeI16    ColumnType = 0x05
	ColumnTypeU32    ColumnType = 0x06
	ColumnTypeI32    ColumnType = 0x07
	ColumnTypeU64    ColumnType = 0x08
	ColumnTypeI64    ColumnType = 0x09
	ColumnTypeF32    ColumnType = 0x0A
	ColumnTypeF64    ColumnType = 0x0B
	ColumnTypeString ColumnType = 0x0C
)

// Size returns the inline wire size of a fixed-width column type, in bytes.
// It returns 0 for ColumnTypeString, whose values are stored out-of-line.
func (t ColumnType) Size() int {
	switch t {
	case ColumnTypeBool, ColumnTypeU8, ColumnTypeI8:
		return 1
	case ColumnTypeU16, ColumnTypeI16:
		return 2
	case ColumnTypeU32, ColumnTypeI32, ColumnTypeF32:
		return 4
	case ColumnTypeU64, ColumnTypeI64, ColumnTypeF64:
		return 8
	default:
		return 0
	}
}

// IsNumeric reports whether t supports delta encoding (RowCodecDelta001).
func (t ColumnType) IsNumeric() bool {
	switch t {
	case ColumnTypeU8, ColumnTypeI8, ColumnTypeU16, ColumnTypeI16,
		ColumnTypeU32, ColumnTypeI32, ColumnTypeU64, ColumnTypeI64,
		ColumnTypeF32, ColumnTypeF64:
		return true
	default:
		return false
	}
}

// IsValid reports whether t is a recognized column type.
func (t ColumnType) IsValid() bool {
	return t >= ColumnTypeBool && t <= ColumnTypeString
}

func (t ColumnType) String() string {
	switch t {
	case ColumnTypeBool:
		return "bool"
	case ColumnTypeU8:
		return "u8"
	case ColumnTypeI8:
		return "i8"
	case ColumnTypeU16:
		return "u16"
	case ColumnTypeI16:
		return "i16"
	case ColumnTypeU32:
		return "u32"
	case ColumnTypeI32:
		return "i32"
	case ColumnTypeU64:
		return "u64"
	case ColumnTypeI64:
		return "i64"
	case ColumnTypeF32:
		return "f32"
	case ColumnTypeF64:
		return "f64"
	case ColumnTypeString:
		return "string"
	default:
		return "unknown"
	}
}

// RowCodecType selects the wire encoding used for each row.
type RowCodecType uint8

const (
	// RowCodecFlat001 emits every column of every row, no cross-row state.
	RowCodecFlat001 RowCodecType = 0x1
	// RowCodecZoH001 emits only changed columns, reconstructing the rest
	// from the previous row (zero-order hold).
	RowCodecZoH001 RowCodecType = 0x2
	// RowCodecDelta001 mirrors RowCodecZoH001 but stores numeric columns
	// as an arithmetic delta from the previous row.
	RowCodecDelta001 RowCodecType = 0x3
)

func (c RowCodecType) String() string {
	switch c {
	case RowCodecFlat001:
		return "Flat"
	case RowCodecZoH001:
		return "ZoH"
	case RowCodecDelta001:
		return "Delta"
	default:
		return "Unknown"
	}
}

// CompressionType selects the packet payload compression algorithm.
type CompressionType uint8

const (
	CompressionNone CompressionType = 0x0
	CompressionLZ4  CompressionType = 0x1
	CompressionZstd CompressionType = 0x2
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionLZ4:
		return "LZ4"
	case CompressionZstd:
		return "Zstd"
	default:
		return "Unknown"
	}
}

// ChecksumAlgorithm identifies the digest used for packet/header/footer
// integrity checks (internal/digest.Checksum32, the low 32 bits of
// xxHash64). Only one value is defined. The file header has no
// checksum-algorithm field, so this value is not written to files.
type ChecksumAlgorithm uint8

const (
	ChecksumXXH32 ChecksumAlgorithm = 0x1
)

// FileFlags is the FileHeader.flags bit field (spec.md §6.1).
type FileFlags uint16

const (
	FlagZeroOrderHold FileFlags = 1 << 0
	FlagNoFileIndex   FileFlags = 1 << 1
	FlagStreamMode    FileFlags = 1 << 2
	FlagBatchCompress FileFlags = 1 << 3
	FlagDeltaEncoding FileFlags = 1 << 4
	// FlagZstdCompression selects klauspost/compress/zstd instead of LZ4
	// for packet payloads (SPEC_FULL.md §8 additive domain-stack wiring).
	FlagZstdCompression FileFlags = 1 << 5
)

// Has reports whether all bits in mask are set in f.
func (f FileFlags) Has(mask FileFlags) bool {
	return f&mask == mask
}

// RowCodec derives the row codec selected by the Flat/ZoH/Delta flag bits.
// Exactly one of ZeroOrderHold/DeltaEncoding may be set; Flat is the
// default when neither is set.
func (f FileFlags) RowCodec() RowCodecType {
	switch {
	case f.Has(FlagDeltaEncoding):
		return RowCodecDelta001
	case f.Has(FlagZeroOrderHold):
		return RowCodecZoH001
	default:
		return RowCodecFlat001
	}
}

// Compression derives the packet compression algorithm selected by flags
// together with the header's compression_lvl byte. level == 0 always means
// "stored verbatim" regardless of flags (spec.md §9).
func (f FileFlags) Compression(level uint8) CompressionType {
	if level == 0 {
		return CompressionNone
	}
	if f.Has(FlagZstdCompression) {
		return CompressionZstd
	}

	return CompressionLZ4
}
