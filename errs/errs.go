// Package errs collects the sentinel errors returned across the BCSV
// public API. Callers should use errors.Is rather than string matching;
// Writer/Reader/DirectReader return these sentinels without added
// context, and Writer and Reader additionally expose Err() for the last
// terminal error, mirroring the source library's errorMsg() convention
// (spec.md §9).
package errs

import "errors"

// InvalidArgument: reject call, state unchanged (spec.md §7).
var (
	ErrEmptyPath               = errors.New("bcsv: path is empty")
	ErrTooManyColumns          = errors.New("bcsv: column count exceeds 65536")
	ErrStringTooLong           = errors.New("bcsv: string value exceeds 65534 bytes")
	ErrInvalidBlockSize        = errors.New("bcsv: block_size_kb out of range [4,4096]")
	ErrInvalidCompressionLevel = errors.New("bcsv: compression_lvl out of range [0,9]")
	ErrInvalidColumnIndex      = errors.New("bcsv: column index out of range")
	ErrInvalidColumnType       = errors.New("bcsv: unrecognized column type")
	ErrTypeMismatch            = errors.New("bcsv: accessor type does not match column type")
	ErrEmptyLayout             = errors.New("bcsv: layout has no columns")
)

// IoError: transition to Closed, report message.
var (
	ErrShortRead  = errors.New("bcsv: short read")
	ErrShortWrite = errors.New("bcsv: short write")
	ErrClosed     = errors.New("bcsv: operation on closed stream")
)

// NotFound: reject open, state unchanged.
var ErrFileNotFound = errors.New("bcsv: input file not found")

// AlreadyExists: reject open, state unchanged.
var ErrFileExists = errors.New("bcsv: output file already exists")

// HeaderMalformed: reject open.
var (
	ErrBadMagic           = errors.New("bcsv: bad file magic")
	ErrUnsupportedVersion = errors.New("bcsv: unsupported format version")
	ErrHeaderCRC          = errors.New("bcsv: file header CRC mismatch")
	ErrInvalidHeaderSize  = errors.New("bcsv: invalid header size")
)

// LayoutIncompatible: reject open (strict) or warn (loose).
var (
	ErrLayoutColumnCount = errors.New("bcsv: layout column count mismatch")
	ErrLayoutColumnType  = errors.New("bcsv: layout column type mismatch")
	ErrLayoutColumnName  = errors.New("bcsv: layout column name mismatch")
)

// PacketMalformed: transition to Closed.
var (
	ErrBadPacketMagic  = errors.New("bcsv: bad packet magic")
	ErrPacketSize      = errors.New("bcsv: packet size mismatch")
	ErrPacketChecksum  = errors.New("bcsv: packet checksum mismatch")
	ErrLZ4Stream       = errors.New("bcsv: lz4 stream error")
	ErrDecompressLimit = errors.New("bcsv: decompressed size exceeds configured cap")
)

// CodecError: transition to Closed.
var (
	ErrCodecUnderrun    = errors.New("bcsv: row codec read past end of payload")
	ErrInvalidChangeMask = errors.New("bcsv: invalid change mask")
	ErrCodecNotSetup    = errors.New("bcsv: row codec used before setup")
)

// StructuralLock: reject mutation, state unchanged.
var ErrStructuralLock = errors.New("bcsv: layout is structurally locked")

// Footer/index specific.
var (
	ErrFooterMissing = errors.New("bcsv: footer absent or corrupt")
	ErrFooterMagic   = errors.New("bcsv: bad footer magic")
	ErrFooterCRC     = errors.New("bcsv: footer CRC mismatch")
	ErrRowOutOfRange = errors.New("bcsv: row index out of range")
)

// Writer/Reader state machine misuse.
var (
	ErrAlreadyOpen = errors.New("bcsv: already open")
	ErrNotOpen     = errors.New("bcsv: not open")
)

// Exhausted is not a real error kind (spec.md §7 marks it "NOT an error");
// it exists only so callers that prefer errors.Is over a boolean can ask
// "was this EOF". ReadNext/ReadAt never actually return it.
var ErrExhausted = errors.New("bcsv: no more rows")
