package section

import (
	"github.com/bcsv-go/bcsv/endian"
	"github.com/bcsv-go/bcsv/errs"
	"github.com/bcsv-go/bcsv/format"
	"github.com/bcsv-go/bcsv/internal/digest"
	"github.com/bcsv-go/bcsv/layout"
)

// FileMagic is the 4-byte BCSV file magic (spec.md §6.1).
var FileMagic = [4]byte{'B', 'C', 'S', 'V'}

// FormatVersion is the wire format version this module writes and the
// only version it reads.
const FormatVersion uint16 = 1

// FileHeader is the fixed-plus-variable header at the start of a BCSV
// file: magic, format_version, flags, compression_lvl, block_size_kb,
// column_count, one ColumnDef per column, and a trailing CRC over
// everything preceding it.
type FileHeader struct {
	FormatVersion  uint16
	Flags          format.FileFlags
	CompressionLvl uint8
	BlockSizeKB    uint16
	Columns        []ColumnDef
}

// NewFileHeader builds a FileHeader describing l, with the codec flag
// derived from codec and the remaining flags supplied by the caller
// (ZeroOrderHold/DeltaEncoding are set automatically to match codec, per
// spec.md §6.1's "Exactly one of Flat/ZoH/Delta applies").
func NewFileHeader(l *layout.Layout, codec format.RowCodecType, extraFlags format.FileFlags, compressionLvl uint8, blockSizeKB uint16) *FileHeader {
	flags := extraFlags &^ (format.FlagZeroOrderHold | format.FlagDeltaEncoding)
	switch codec {
	case format.RowCodecZoH001:
		flags |= format.FlagZeroOrderHold
	case format.RowCodecDelta001:
		flags |= format.FlagDeltaEncoding
	}

	cols := make([]ColumnDef, l.ColumnCount())
	for i := range cols {
		cols[i] = ColumnDef{Type: l.ColumnType(i), Name: l.ColumnName(i)}
	}

	return &FileHeader{
		FormatVersion:  FormatVersion,
		Flags:          flags,
		CompressionLvl: compressionLvl,
		BlockSizeKB:    blockSizeKB,
		Columns:        cols,
	}
}

// Bytes serializes h, including the trailing header_crc.
func (h *FileHeader) Bytes(e endian.EndianEngine) []byte {
	body := make([]byte, 0, 4+2+2+1+2+2+64)
	body = append(body, FileMagic[:]...)
	body = e.AppendUint16(body, h.FormatVersion)
	body = e.AppendUint16(body, uint16(h.Flags))
	body = append(body, h.CompressionLvl)
	body = e.AppendUint16(body, h.BlockSizeKB)
	body = e.AppendUint16(body, uint16(len(h.Columns)))
	for _, c := range h.Columns {
		body = c.appendTo(body, e)
	}

	crc := digest.Checksum32(body)

	return e.AppendUint32(body, crc)
}

// ParseFileHeader reads a FileHeader from the front of data and returns it
// along with the number of bytes consumed.
func ParseFileHeader(data []byte, e endian.EndianEngine) (*FileHeader, int, error) {
	if len(data) < 4+2+2+1+2+2 {
		return nil, 0, errs.ErrShortRead
	}
	if [4]byte(data[0:4]) != FileMagic {
		return nil, 0, errs.ErrBadMagic
	}

	pos := 4
	version := e.Uint16(data[pos : pos+2])
	pos += 2
	if version != FormatVersion {
		return nil, 0, errs.ErrUnsupportedVersion
	}
	flags := format.FileFlags(e.Uint16(data[pos : pos+2]))
	pos += 2
	compressionLvl := data[pos]
	pos++
	blockSizeKB := e.Uint16(data[pos : pos+2])
	pos += 2
	columnCount := int(e.Uint16(data[pos : pos+2]))
	pos += 2

	cols := make([]ColumnDef, columnCount)
	for i := 0; i < columnCount; i++ {
		cd, n, err := parseColumnDef(data[pos:], e)
		if err != nil {
			return nil, 0, err
		}
		cols[i] = cd
		pos += n
	}

	if len(data) < pos+4 {
		return nil, 0, errs.ErrShortRead
	}
	wantCRC := e.Uint32(data[pos : pos+4])
	gotCRC := digest.Checksum32(data[:pos])
	if wantCRC != gotCRC {
		return nil, 0, errs.ErrHeaderCRC
	}
	pos += 4

	h := &FileHeader{
		FormatVersion:  version,
		Flags:          flags,
		CompressionLvl: compressionLvl,
		BlockSizeKB:    blockSizeKB,
		Columns:        cols,
	}

	return h, pos, nil
}

// ToLayout rebuilds the Layout described by h's column list, for a Reader
// opening a file without an explicit expected layout.
func (h *FileHeader) ToLayout() (*layout.Layout, error) {
	names := make([]string, len(h.Columns))
	types := make([]format.ColumnType, len(h.Columns))
	for i, c := range h.Columns {
		names[i] = c.Name
		types[i] = c.Type
	}

	return layout.NewFromColumns(names, types)
}

// RowCodec derives the row codec selected by h's flags.
func (h *FileHeader) RowCodec() format.RowCodecType {
	return h.Flags.RowCodec()
}

// Compression derives the packet compression algorithm selected by h's
// flags and compression level.
func (h *FileHeader) Compression() format.CompressionType {
	return h.Flags.Compression(h.CompressionLvl)
}
