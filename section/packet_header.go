package section

import (
	"github.com/bcsv-go/bcsv/endian"
	"github.com/bcsv-go/bcsv/errs"
	"github.com/bcsv-go/bcsv/internal/digest"
)

// PacketMagic is the 4-byte magic prefixing every packet (spec.md §6.1).
var PacketMagic = [4]byte{'P', 'K', 'T', '1'}

// PacketHeaderSize is the fixed wire size of a PacketHeader, not counting
// the payload that follows it.
const PacketHeaderSize = 4 + 4 + 4 + 4 + 4 + 4

// PacketHeader frames one packet's payload: its magic, compressed and
// uncompressed sizes, row count, the file-wide row number of its first
// row, and a CRC over the uncompressed payload (spec.md §4.4, §6.1).
type PacketHeader struct {
	CompressedSize   uint32
	UncompressedSize uint32
	RowCount         uint32
	FirstRowNumber   uint32
	PayloadCRC       uint32
}

// NewPacketHeader builds a PacketHeader for a payload, computing PayloadCRC
// over uncompressed (the bytes that will be compressed, or stored verbatim
// when compression is off) so that the checksum survives compression
// algorithm changes (spec.md §4.4).
func NewPacketHeader(compressed, uncompressed []byte, rowCount, firstRowNumber uint32) PacketHeader {
	return PacketHeader{
		CompressedSize:   uint32(len(compressed)),
		UncompressedSize: uint32(len(uncompressed)),
		RowCount:         rowCount,
		FirstRowNumber:   firstRowNumber,
		PayloadCRC:       digest.Checksum32(uncompressed),
	}
}

// Bytes serializes h (header only, not the payload that follows it).
func (h PacketHeader) Bytes(e endian.EndianEngine) []byte {
	dst := make([]byte, 0, PacketHeaderSize)
	dst = append(dst, PacketMagic[:]...)
	dst = e.AppendUint32(dst, h.CompressedSize)
	dst = e.AppendUint32(dst, h.UncompressedSize)
	dst = e.AppendUint32(dst, h.RowCount)
	dst = e.AppendUint32(dst, h.FirstRowNumber)
	dst = e.AppendUint32(dst, h.PayloadCRC)

	return dst
}

// ParsePacketHeader reads a PacketHeader from the front of data.
func ParsePacketHeader(data []byte, e endian.EndianEngine) (PacketHeader, error) {
	if len(data) < PacketHeaderSize {
		return PacketHeader{}, errs.ErrShortRead
	}
	if [4]byte(data[0:4]) != PacketMagic {
		return PacketHeader{}, errs.ErrBadPacketMagic
	}

	pos := 4

	h := PacketHeader{
		CompressedSize:   e.Uint32(data[pos : pos+4]),
		UncompressedSize: e.Uint32(data[pos+4 : pos+8]),
		RowCount:         e.Uint32(data[pos+8 : pos+12]),
		FirstRowNumber:   e.Uint32(data[pos+12 : pos+16]),
		PayloadCRC:       e.Uint32(data[pos+16 : pos+20]),
	}

	return h, nil
}

// VerifyPayload reports whether uncompressed matches h's recorded size and
// checksum.
func (h PacketHeader) VerifyPayload(uncompressed []byte) error {
	if uint32(len(uncompressed)) != h.UncompressedSize {
		return errs.ErrPacketSize
	}
	if digest.Checksum32(uncompressed) != h.PayloadCRC {
		return errs.ErrPacketChecksum
	}

	return nil
}
